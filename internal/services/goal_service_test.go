package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"bilancio/internal/core"
)

func TestAddFundsMovesBalanceIntoReserve(t *testing.T) {
	store := newTestStore(t)
	userID := newTestUser(t, store, "500")
	svc := NewGoalService(store, nil)
	ctx := context.Background()

	goal, err := svc.CreateGoal(ctx, userID, CreateGoalParams{
		Title:        "New laptop",
		TargetAmount: dec("1000"),
		TargetDate:   day(2025, time.June, 1),
	})
	if err != nil {
		t.Fatalf("CreateGoal() error = %v", err)
	}
	wantDecimal(t, "initial reserve", goal.CurrentAmount, dec("0"))

	funded, err := svc.AddFunds(ctx, goal.ID, userID, dec("200"))
	if err != nil {
		t.Fatalf("AddFunds() error = %v", err)
	}
	wantDecimal(t, "reserve", funded.CurrentAmount, dec("200"))
	wantDecimal(t, "balance", userBalance(t, store, userID), dec("300"))

	// Funding beyond the balance is rejected with no mutation.
	_, err = svc.AddFunds(ctx, goal.ID, userID, dec("400"))
	if !errors.Is(err, core.ErrInsufficientFunds) {
		t.Fatalf("AddFunds() overdraw error = %v, want ErrInsufficientFunds", err)
	}
	got, _ := svc.GetGoal(ctx, goal.ID, userID)
	wantDecimal(t, "reserve unchanged", got.CurrentAmount, dec("200"))
	wantDecimal(t, "balance unchanged", userBalance(t, store, userID), dec("300"))
}

func TestWithdrawFundsRequiresReserve(t *testing.T) {
	store := newTestStore(t)
	userID := newTestUser(t, store, "500")
	svc := NewGoalService(store, nil)
	ctx := context.Background()

	goal, err := svc.CreateGoal(ctx, userID, CreateGoalParams{
		Title:        "Vacation",
		TargetAmount: dec("1000"),
		TargetDate:   day(2025, time.June, 1),
	})
	if err != nil {
		t.Fatalf("CreateGoal() error = %v", err)
	}
	if _, err := svc.AddFunds(ctx, goal.ID, userID, dec("200")); err != nil {
		t.Fatalf("AddFunds() error = %v", err)
	}

	// Reserve is 200; withdrawing 300 must fail and change nothing.
	_, err = svc.WithdrawFunds(ctx, goal.ID, userID, dec("300"))
	if !errors.Is(err, core.ErrInsufficientReserve) {
		t.Fatalf("WithdrawFunds() error = %v, want ErrInsufficientReserve", err)
	}
	got, _ := svc.GetGoal(ctx, goal.ID, userID)
	wantDecimal(t, "reserve unchanged", got.CurrentAmount, dec("200"))
	wantDecimal(t, "balance unchanged", userBalance(t, store, userID), dec("300"))

	// A covered withdrawal moves the money back.
	withdrawn, err := svc.WithdrawFunds(ctx, goal.ID, userID, dec("150"))
	if err != nil {
		t.Fatalf("WithdrawFunds() error = %v", err)
	}
	wantDecimal(t, "reserve", withdrawn.CurrentAmount, dec("50"))
	wantDecimal(t, "balance", userBalance(t, store, userID), dec("450"))
}

func TestConvertToExpenseLeavesBalanceUntouched(t *testing.T) {
	store := newTestStore(t)
	userID := newTestUser(t, store, "500")
	svc := NewGoalService(store, nil)
	ctx := context.Background()

	goal, err := svc.CreateGoal(ctx, userID, CreateGoalParams{
		Title:        "New laptop",
		TargetAmount: dec("300"),
		TargetDate:   day(2025, time.June, 1),
	})
	if err != nil {
		t.Fatalf("CreateGoal() error = %v", err)
	}
	if _, err := svc.AddFunds(ctx, goal.ID, userID, dec("300")); err != nil {
		t.Fatalf("AddFunds() error = %v", err)
	}
	wantDecimal(t, "balance after funding", userBalance(t, store, userID), dec("200"))

	tx, err := svc.ConvertToExpense(ctx, goal.ID, userID, dec("300"), "Entertainment")
	if err != nil {
		t.Fatalf("ConvertToExpense() error = %v", err)
	}

	// Reserved money already left the balance when it was added.
	wantDecimal(t, "balance after conversion", userBalance(t, store, userID), dec("200"))
	if tx.Type != core.Expense {
		t.Errorf("transaction Type = %v, want Expense", tx.Type)
	}
	wantDecimal(t, "transaction Amount", tx.Amount, dec("300"))

	// Terminal conversion completes the goal.
	got, _ := svc.GetGoal(ctx, goal.ID, userID)
	wantDecimal(t, "reserve", got.CurrentAmount, dec("0"))
	if got.Status != core.GoalCompleted {
		t.Errorf("Status = %v, want Completed", got.Status)
	}
	if got.Active {
		t.Error("completed goal should be inactive")
	}

	// A completed goal accepts no more funds.
	if _, err := svc.AddFunds(ctx, goal.ID, userID, dec("10")); !errors.Is(err, core.ErrInvalidStatus) {
		t.Errorf("AddFunds() on completed goal error = %v, want ErrInvalidStatus", err)
	}
}

func TestPartialConversionKeepsGoalActive(t *testing.T) {
	store := newTestStore(t)
	userID := newTestUser(t, store, "500")
	svc := NewGoalService(store, nil)
	ctx := context.Background()

	goal, err := svc.CreateGoal(ctx, userID, CreateGoalParams{
		Title:        "Furniture",
		TargetAmount: dec("400"),
		TargetDate:   day(2025, time.June, 1),
	})
	if err != nil {
		t.Fatalf("CreateGoal() error = %v", err)
	}
	if _, err := svc.AddFunds(ctx, goal.ID, userID, dec("400")); err != nil {
		t.Fatalf("AddFunds() error = %v", err)
	}

	if _, err := svc.ConvertToExpense(ctx, goal.ID, userID, dec("150"), "Miscellaneous"); err != nil {
		t.Fatalf("ConvertToExpense() error = %v", err)
	}

	got, _ := svc.GetGoal(ctx, goal.ID, userID)
	wantDecimal(t, "reserve", got.CurrentAmount, dec("250"))
	if got.Status != core.GoalActive {
		t.Errorf("Status = %v, want still Active", got.Status)
	}
}

func TestDeleteGoalRefundsReserve(t *testing.T) {
	store := newTestStore(t)
	userID := newTestUser(t, store, "500")
	svc := NewGoalService(store, nil)
	ctx := context.Background()

	goal, err := svc.CreateGoal(ctx, userID, CreateGoalParams{
		Title:        "Abandoned",
		TargetAmount: dec("1000"),
		TargetDate:   day(2025, time.June, 1),
	})
	if err != nil {
		t.Fatalf("CreateGoal() error = %v", err)
	}
	if _, err := svc.AddFunds(ctx, goal.ID, userID, dec("320")); err != nil {
		t.Fatalf("AddFunds() error = %v", err)
	}
	wantDecimal(t, "balance after funding", userBalance(t, store, userID), dec("180"))

	if err := svc.DeleteGoal(ctx, goal.ID, userID); err != nil {
		t.Fatalf("DeleteGoal() error = %v", err)
	}

	// Deleting a goal never destroys money.
	wantDecimal(t, "balance after delete", userBalance(t, store, userID), dec("500"))
	if _, err := svc.GetGoal(ctx, goal.ID, userID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("GetGoal() after delete error = %v, want ErrNotFound", err)
	}
}

func TestUpdateGoalNeverTouchesReserve(t *testing.T) {
	store := newTestStore(t)
	userID := newTestUser(t, store, "500")
	svc := NewGoalService(store, nil)
	ctx := context.Background()

	goal, err := svc.CreateGoal(ctx, userID, CreateGoalParams{
		Title:        "Original",
		TargetAmount: dec("1000"),
		TargetDate:   day(2025, time.June, 1),
	})
	if err != nil {
		t.Fatalf("CreateGoal() error = %v", err)
	}
	if _, err := svc.AddFunds(ctx, goal.ID, userID, dec("100")); err != nil {
		t.Fatalf("AddFunds() error = %v", err)
	}

	updated, err := svc.UpdateGoal(ctx, goal.ID, userID, CreateGoalParams{
		Title:        "Renamed",
		TargetAmount: dec("1500"),
		TargetDate:   day(2025, time.December, 1),
		Priority:     2,
	})
	if err != nil {
		t.Fatalf("UpdateGoal() error = %v", err)
	}

	if updated.Title != "Renamed" {
		t.Errorf("Title = %q, want %q", updated.Title, "Renamed")
	}
	wantDecimal(t, "TargetAmount", updated.TargetAmount, dec("1500"))
	wantDecimal(t, "reserve unchanged", updated.CurrentAmount, dec("100"))
}

func TestBalanceConservationAcrossOperations(t *testing.T) {
	store := newTestStore(t)
	userID := newTestUser(t, store, "1000")
	goals := NewGoalService(store, nil)
	transactions := NewTransactionService(store)
	ctx := context.Background()

	goal, err := goals.CreateGoal(ctx, userID, CreateGoalParams{
		Title:        "Buffer",
		TargetAmount: dec("500"),
		TargetDate:   day(2025, time.June, 1),
	})
	if err != nil {
		t.Fatalf("CreateGoal() error = %v", err)
	}

	// Interleave ledger and reserve operations.
	if _, err := transactions.CreateTransaction(ctx, userID, CreateTransactionParams{
		Title: "Salary", Amount: dec("400"), Category: "Miscellaneous", Type: "Income",
		Date: day(2024, time.January, 1),
	}); err != nil {
		t.Fatalf("CreateTransaction() error = %v", err)
	}
	if _, err := goals.AddFunds(ctx, goal.ID, userID, dec("250")); err != nil {
		t.Fatalf("AddFunds() error = %v", err)
	}
	if _, err := transactions.CreateTransaction(ctx, userID, CreateTransactionParams{
		Title: "Rent", Amount: dec("300"), Category: "Rent", Type: "Expense",
		Date: day(2024, time.January, 2),
	}); err != nil {
		t.Fatalf("CreateTransaction() error = %v", err)
	}
	if _, err := goals.WithdrawFunds(ctx, goal.ID, userID, dec("50")); err != nil {
		t.Fatalf("WithdrawFunds() error = %v", err)
	}

	// initial 1000 + 400 income - 300 expense = 1100 total money;
	// 200 sits in the reserve, the rest is spendable.
	wantDecimal(t, "balance", userBalance(t, store, userID), dec("900"))
	got, _ := goals.GetGoal(ctx, goal.ID, userID)
	wantDecimal(t, "reserve", got.CurrentAmount, dec("200"))
	wantDecimal(t, "balance+reserve", userBalance(t, store, userID).Add(got.CurrentAmount), dec("1100"))
}

func TestGoalSummary(t *testing.T) {
	store := newTestStore(t)
	userID := newTestUser(t, store, "1000")
	svc := NewGoalService(store, nil)
	ctx := context.Background()

	first, err := svc.CreateGoal(ctx, userID, CreateGoalParams{
		Title: "First", TargetAmount: dec("100"), TargetDate: day(2025, time.June, 1),
	})
	if err != nil {
		t.Fatalf("CreateGoal() error = %v", err)
	}
	if _, err := svc.CreateGoal(ctx, userID, CreateGoalParams{
		Title: "Second", TargetAmount: dec("300"), TargetDate: day(2025, time.July, 1),
	}); err != nil {
		t.Fatalf("CreateGoal() error = %v", err)
	}

	if _, err := svc.AddFunds(ctx, first.ID, userID, dec("100")); err != nil {
		t.Fatalf("AddFunds() error = %v", err)
	}
	if _, err := svc.ConvertToExpense(ctx, first.ID, userID, dec("100"), "Miscellaneous"); err != nil {
		t.Fatalf("ConvertToExpense() error = %v", err)
	}

	summary, err := svc.GetSummary(ctx, userID)
	if err != nil {
		t.Fatalf("GetSummary() error = %v", err)
	}
	if summary.Total != 2 || summary.Active != 1 || summary.Completed != 1 {
		t.Errorf("summary = %+v, want total 2, active 1, completed 1", summary)
	}
	wantDecimal(t, "TotalReserved", summary.TotalReserved, dec("0"))
	wantDecimal(t, "TotalTarget", summary.TotalTarget, dec("300"))
}
