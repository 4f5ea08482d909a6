package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"bilancio/internal/core"
	"bilancio/internal/storage"
)

// TransactionService is the entry point for direct transaction CRUD. Every
// mutation co-updates the user balance and any linked budget's spent amount
// inside one store transaction.
type TransactionService struct {
	store *storage.Store
	now   func() time.Time
}

func NewTransactionService(store *storage.Store) *TransactionService {
	return &TransactionService{
		store: store,
		now:   time.Now,
	}
}

// CreateTransactionParams carries the caller-controlled fields of a new
// ledger transaction.
type CreateTransactionParams struct {
	Title       string
	Description string
	Amount      decimal.Decimal
	Category    string
	Type        string
	Date        time.Time
}

func (s *TransactionService) CreateTransaction(ctx context.Context, userID uuid.UUID, params CreateTransactionParams) (core.Transaction, error) {
	tx, err := s.buildTransaction(userID, params)
	if err != nil {
		return core.Transaction{}, err
	}

	err = s.store.Tx(ctx, func(q *storage.Queries) error {
		if err := ApplyTransactionEffect(ctx, q, userID, tx.Type, tx.Amount); err != nil {
			return err
		}
		if err := linkAndRecordSpend(ctx, q, &tx); err != nil {
			return err
		}
		return q.CreateTransaction(ctx, tx)
	})
	if err != nil {
		return core.Transaction{}, err
	}

	slog.InfoContext(ctx, "Transaction created",
		"transaction_id", tx.ID,
		"user_id", userID,
		"type", tx.Type,
		"amount", tx.Amount)

	return tx, nil
}

// UpdateTransaction replaces the mutable fields of an owned transaction.
// The balance is corrected with one net delta (reverse old, apply new) and
// budget linkage is recomputed, all in the same store transaction.
func (s *TransactionService) UpdateTransaction(ctx context.Context, id, userID uuid.UUID, params CreateTransactionParams) (core.Transaction, error) {
	updated, err := s.buildTransaction(userID, params)
	if err != nil {
		return core.Transaction{}, err
	}

	err = s.store.Tx(ctx, func(q *storage.Queries) error {
		old, err := q.GetTransaction(ctx, id, userID)
		if err != nil {
			return err
		}

		delta := updated.SignedAmount().Sub(old.SignedAmount())
		if err := adjustBalance(ctx, q, userID, delta, false); err != nil {
			return err
		}

		if old.BudgetID != nil {
			if err := reverseSpend(ctx, q, *old.BudgetID, old.Amount); err != nil {
				return err
			}
		}
		if err := linkAndRecordSpend(ctx, q, &updated); err != nil {
			return err
		}

		updated.ID = old.ID
		updated.RecurringID = old.RecurringID
		updated.RecurringGenerated = old.RecurringGenerated
		updated.CreatedAt = old.CreatedAt
		return q.UpdateTransaction(ctx, updated)
	})
	if err != nil {
		return core.Transaction{}, err
	}

	slog.InfoContext(ctx, "Transaction updated", "transaction_id", id, "user_id", userID)
	return updated, nil
}

// DeleteTransaction removes an owned transaction, reversing its balance
// effect and any budget spend it recorded.
func (s *TransactionService) DeleteTransaction(ctx context.Context, id, userID uuid.UUID) error {
	err := s.store.Tx(ctx, func(q *storage.Queries) error {
		tx, err := q.GetTransaction(ctx, id, userID)
		if err != nil {
			return err
		}
		if err := ReverseTransactionEffect(ctx, q, userID, tx.Type, tx.Amount); err != nil {
			return err
		}
		if tx.BudgetID != nil {
			if err := reverseSpend(ctx, q, *tx.BudgetID, tx.Amount); err != nil {
				return err
			}
		}
		return q.DeleteTransaction(ctx, id, userID)
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Transaction deleted", "transaction_id", id, "user_id", userID)
	return nil
}

func (s *TransactionService) GetTransaction(ctx context.Context, id, userID uuid.UUID) (core.Transaction, error) {
	return s.store.Queries().GetTransaction(ctx, id, userID)
}

func (s *TransactionService) ListTransactions(ctx context.Context, userID uuid.UUID) ([]core.Transaction, error) {
	return s.store.Queries().ListTransactions(ctx, userID)
}

// TransactionSummary aggregates the current calendar month.
type TransactionSummary struct {
	TotalTransactions int
	TotalIncome       decimal.Decimal
	TotalExpenses     decimal.Decimal
	NetAmount         decimal.Decimal
	CategoryBreakdown map[core.Category]decimal.Decimal
	TypeBreakdown     map[core.TransactionType]int
	Recent            []core.Transaction
}

// GetSummary is a derived read-only view; it carries no invariants of its own.
func (s *TransactionService) GetSummary(ctx context.Context, userID uuid.UUID) (TransactionSummary, error) {
	now := s.now().UTC()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	transactions, err := s.store.Queries().ListTransactionsBetween(ctx, userID, from, to)
	if err != nil {
		return TransactionSummary{}, err
	}

	summary := TransactionSummary{
		TotalTransactions: len(transactions),
		TotalIncome:       decimal.Zero,
		TotalExpenses:     decimal.Zero,
		CategoryBreakdown: make(map[core.Category]decimal.Decimal),
		TypeBreakdown:     make(map[core.TransactionType]int),
	}
	for _, tx := range transactions {
		if tx.Type == core.Income {
			summary.TotalIncome = summary.TotalIncome.Add(tx.Amount)
		} else {
			summary.TotalExpenses = summary.TotalExpenses.Add(tx.Amount)
		}
		summary.CategoryBreakdown[tx.Category] = summary.CategoryBreakdown[tx.Category].Add(tx.Amount)
		summary.TypeBreakdown[tx.Type]++
	}
	summary.NetAmount = summary.TotalIncome.Sub(summary.TotalExpenses)

	if len(transactions) > 10 {
		summary.Recent = transactions[:10]
	} else {
		summary.Recent = transactions
	}
	return summary, nil
}

func (s *TransactionService) buildTransaction(userID uuid.UUID, params CreateTransactionParams) (core.Transaction, error) {
	category, err := core.ParseCategory(params.Category)
	if err != nil {
		return core.Transaction{}, err
	}
	typ, err := core.ParseTransactionType(params.Type)
	if err != nil {
		return core.Transaction{}, err
	}
	if params.Date.IsZero() {
		return core.Transaction{}, fmt.Errorf("date cannot be zero")
	}

	tx := core.Transaction{
		ID:          uuid.New(),
		UserID:      userID,
		Title:       params.Title,
		Description: params.Description,
		Amount:      params.Amount,
		Category:    category,
		Type:        typ,
		Date:        core.DateOnly(params.Date),
		CreatedAt:   s.now().UTC(),
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	return tx, nil
}

// linkAndRecordSpend links an expense to the budget whose period covers its
// date, if one exists, and records the spend on it. Incomes and expenses
// outside any budget period pass through unlinked.
func linkAndRecordSpend(ctx context.Context, q *storage.Queries, tx *core.Transaction) error {
	tx.BudgetID = nil
	if tx.Type != core.Expense {
		return nil
	}

	budget, err := q.FindBudgetForSpend(ctx, tx.UserID, tx.Category, tx.Date)
	if errors.Is(err, core.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	tx.BudgetID = &budget.ID
	return recordSpend(ctx, q, budget.ID, tx.Amount)
}
