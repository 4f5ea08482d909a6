package core

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestParseCategory(t *testing.T) {
	cases := []struct {
		in   string
		want Category
		ok   bool
	}{
		{"Food", "Food", true},
		{"food", "Food", true},
		{"GROCERY", "Grocery", true},
		{" Rent ", "Rent", true},
		{"Gambling", "", false},
		{"", "", false},
	}
	for i, tc := range cases {
		got, err := ParseCategory(tc.in)
		if tc.ok && (err != nil || got != tc.want) {
			t.Fatalf("case %d: got (%q, %v), want %q", i, got, err, tc.want)
		}
		if !tc.ok && !errors.Is(err, ErrInvalidCategory) {
			t.Fatalf("case %d: expected ErrInvalidCategory, got %v", i, err)
		}
	}
}

func TestParseFrequency(t *testing.T) {
	if f, err := ParseFrequency("monthly"); err != nil || f != Monthly {
		t.Fatalf("got (%q, %v)", f, err)
	}
	if _, err := ParseFrequency("fortnightly"); !errors.Is(err, ErrInvalidFrequency) {
		t.Fatalf("expected ErrInvalidFrequency, got %v", err)
	}
}

func TestTransactionSignedAmount(t *testing.T) {
	amount := decimal.NewFromInt(100)
	income := Transaction{Type: Income, Amount: amount}
	expense := Transaction{Type: Expense, Amount: amount}

	if !income.SignedAmount().Equal(amount) {
		t.Fatalf("income signed amount = %s", income.SignedAmount())
	}
	if !expense.SignedAmount().Equal(amount.Neg()) {
		t.Fatalf("expense signed amount = %s", expense.SignedAmount())
	}
}

func TestTransactionValidate(t *testing.T) {
	good := Transaction{
		Title:    "Lunch",
		Amount:   decimal.NewFromInt(12),
		Category: "Food",
		Type:     Expense,
		Date:     date(2024, 1, 1),
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Transaction{
		{Title: "", Amount: decimal.NewFromInt(1), Category: "Food", Type: Expense, Date: date(2024, 1, 1)},
		{Title: "x", Amount: decimal.Zero, Category: "Food", Type: Expense, Date: date(2024, 1, 1)},
		{Title: "x", Amount: decimal.NewFromInt(1), Category: "Nope", Type: Expense, Date: date(2024, 1, 1)},
		{Title: "x", Amount: decimal.NewFromInt(1), Category: "Food", Type: "Transfer", Date: date(2024, 1, 1)},
		{Title: "x", Amount: decimal.NewFromInt(1), Category: "Food", Type: Expense},
	}
	for i, tx := range bads {
		if err := tx.Validate(); err == nil {
			t.Fatalf("case %d: expected error", i)
		}
	}
}

func TestBudgetOverlaps(t *testing.T) {
	end := date(2024, 2, 1)
	b := Budget{StartDate: date(2024, 1, 1), EndDate: &end}

	mid := date(2024, 1, 15)
	midEnd := date(2024, 2, 15)
	if !b.Overlaps(mid, &midEnd) {
		t.Fatal("intersecting interval should overlap")
	}

	// Half-open boundary: a period starting exactly at the old end does not overlap.
	nextEnd := date(2024, 3, 1)
	if b.Overlaps(end, &nextEnd) {
		t.Fatal("period starting at end boundary must not overlap")
	}

	before := date(2023, 12, 1)
	beforeEnd := date(2024, 1, 1)
	if b.Overlaps(before, &beforeEnd) {
		t.Fatal("period ending at start boundary must not overlap")
	}

	// Unbounded candidate interval overlaps everything from its start on.
	if !b.Overlaps(mid, nil) {
		t.Fatal("unbounded interval starting inside should overlap")
	}

	unbounded := Budget{StartDate: date(2024, 1, 1)}
	if !unbounded.Overlaps(mid, &midEnd) {
		t.Fatal("budget with nil end should overlap later intervals")
	}
}

func TestBudgetRenewable(t *testing.T) {
	now := date(2024, 2, 5)
	end := date(2024, 2, 1)

	b := Budget{AutoRenew: true, EndDate: &end}
	if !b.Renewable(now) {
		t.Fatal("expired auto-renew budget should be renewable")
	}

	b.AutoRenew = false
	if b.Renewable(now) {
		t.Fatal("auto-renew disabled")
	}

	future := date(2024, 3, 1)
	b = Budget{AutoRenew: true, EndDate: &future}
	if b.Renewable(now) {
		t.Fatal("budget still running should not renew")
	}

	if (Budget{AutoRenew: true}).Renewable(now) {
		t.Fatal("budget without end date should not renew")
	}
}

func TestRecurringCanBeProcessed(t *testing.T) {
	now := date(2024, 1, 10)
	base := RecurringTransaction{
		Status:         StatusActive,
		NextOccurrence: date(2024, 1, 8),
	}

	if !base.CanBeProcessed(now) {
		t.Fatal("active template with due date should be processable")
	}

	paused := base
	paused.Status = StatusPaused
	if paused.CanBeProcessed(now) {
		t.Fatal("paused template must not be processed")
	}

	notDue := base
	notDue.NextOccurrence = date(2024, 1, 11)
	if notDue.CanBeProcessed(now) {
		t.Fatal("template not yet due must not be processed")
	}

	ended := base
	end := date(2024, 1, 10)
	ended.EndDate = &end
	if ended.CanBeProcessed(now) {
		t.Fatal("template at its end date must not be processed")
	}
}

func TestRecurringCanTransitionTo(t *testing.T) {
	active := RecurringTransaction{Status: StatusActive}
	if !active.CanTransitionTo(StatusPaused) || !active.CanTransitionTo(StatusCancelled) {
		t.Fatal("active template should pause or cancel")
	}

	cancelled := RecurringTransaction{Status: StatusCancelled}
	for _, next := range []RecurringStatus{StatusActive, StatusPaused, StatusCancelled} {
		if cancelled.CanTransitionTo(next) {
			t.Fatalf("cancelled is terminal, transition to %s allowed", next)
		}
	}
}

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"12.34", "12.34", true},
		{"12,34", "12.34", true},
		{"100", "100", true},
		{"0", "", false},
		{"-5", "", false},
		{"abc", "", false},
		{"", "", false},
	}
	for i, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil {
				t.Fatalf("case %d: unexpected error %v", i, err)
			}
			want, _ := decimal.NewFromString(tc.want)
			if !got.Equal(want) {
				t.Fatalf("case %d: got %s, want %s", i, got, want)
			}
			continue
		}
		if !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("case %d: expected ErrInvalidAmount, got %v", i, err)
		}
	}
}

func TestGoalValidate(t *testing.T) {
	good := Goal{
		Title:         "Vacation",
		TargetAmount:  decimal.NewFromInt(1000),
		CurrentAmount: decimal.Zero,
		TargetDate:    time.Now().AddDate(1, 0, 0),
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Goal{
		{Title: "", TargetAmount: decimal.NewFromInt(1)},
		{Title: "V", TargetAmount: decimal.NewFromInt(1)},
		{Title: "Vacation", TargetAmount: decimal.Zero},
		{Title: "Vacation", TargetAmount: decimal.NewFromInt(1), CurrentAmount: decimal.NewFromInt(-1)},
	}
	for i, g := range bads {
		if err := g.Validate(); err == nil {
			t.Fatalf("case %d: expected error", i)
		}
	}
}
