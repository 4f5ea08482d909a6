package services

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"bilancio/internal/core"
	"bilancio/internal/storage"
)

func newTestStore(t *testing.T) *storage.Store {
	t.Helper()
	store, err := storage.Open(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func newTestUser(t *testing.T, store *storage.Store, balance string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	err := store.Queries().CreateUser(context.Background(), core.User{
		ID:        id,
		Balance:   dec(balance),
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("create test user: %v", err)
	}
	return id
}

func userBalance(t *testing.T, store *storage.Store, id uuid.UUID) decimal.Decimal {
	t.Helper()
	user, err := store.Queries().GetUser(context.Background(), id)
	if err != nil {
		t.Fatalf("get test user: %v", err)
	}
	return user.Balance
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func pin(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func wantDecimal(t *testing.T, name string, got, want decimal.Decimal) {
	t.Helper()
	if !got.Equal(want) {
		t.Errorf("%s = %s, want %s", name, got, want)
	}
}
