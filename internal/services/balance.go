// Package services implements the ledger engine: balance consistency,
// budget periods with auto-renewal, recurring transaction scheduling,
// goal reserves and daily snapshots. Every multi-entity mutation runs
// inside one store transaction.
package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"bilancio/internal/core"
	"bilancio/internal/storage"
)

// ApplyTransactionEffect applies a transaction's effect to the user balance:
// income credits, expense debits. It must run on a tx-scoped query handle so
// the balance write commits together with the transaction row.
func ApplyTransactionEffect(ctx context.Context, q *storage.Queries, userID uuid.UUID, typ core.TransactionType, amount decimal.Decimal) error {
	return adjustBalance(ctx, q, userID, signedDelta(typ, amount), false)
}

// ApplyTransactionEffectGated is ApplyTransactionEffect for balance-gated
// operations: an expense the balance cannot cover fails with
// core.ErrInsufficientFunds and leaves the balance untouched.
func ApplyTransactionEffectGated(ctx context.Context, q *storage.Queries, userID uuid.UUID, typ core.TransactionType, amount decimal.Decimal) error {
	return adjustBalance(ctx, q, userID, signedDelta(typ, amount), true)
}

// ReverseTransactionEffect undoes a previously applied effect, used before
// deleting a transaction or as half of an update's net delta.
func ReverseTransactionEffect(ctx context.Context, q *storage.Queries, userID uuid.UUID, typ core.TransactionType, amount decimal.Decimal) error {
	return adjustBalance(ctx, q, userID, signedDelta(typ, amount).Neg(), false)
}

func signedDelta(typ core.TransactionType, amount decimal.Decimal) decimal.Decimal {
	if typ == core.Expense {
		return amount.Neg()
	}
	return amount
}

// adjustBalance is the single read-modify-write path for the user balance.
// A missing user is fatal for the enclosing operation; with gated set, a
// debit larger than the balance is rejected without mutation.
func adjustBalance(ctx context.Context, q *storage.Queries, userID uuid.UUID, delta decimal.Decimal, gated bool) error {
	user, err := q.GetUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("load user for balance adjustment: %w", err)
	}

	next := user.Balance.Add(delta)
	if gated && next.IsNegative() {
		return core.ErrInsufficientFunds
	}

	if err := q.UpdateUserBalance(ctx, userID, next); err != nil {
		return fmt.Errorf("write user balance: %w", err)
	}
	return nil
}
