package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"bilancio/internal/core"
	"bilancio/internal/storage"
)

// SnapshotService records one balance snapshot per user per day. The
// per-user-per-day uniqueness in storage makes the sweep idempotent: running
// it twice on the same day records nothing new.
type SnapshotService struct {
	store *storage.Store
	now   func() time.Time
}

func NewSnapshotService(store *storage.Store) *SnapshotService {
	return &SnapshotService{
		store: store,
		now:   time.Now,
	}
}

// RunDailySnapshotSweep captures balance and reserved totals for every user.
// Each user runs in its own store transaction; one failure never blocks the
// rest.
func (s *SnapshotService) RunDailySnapshotSweep(ctx context.Context, now time.Time) (int, error) {
	userIDs, err := s.store.Queries().ListUserIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list users for snapshot: %w", err)
	}

	day := core.DateOnly(now)
	recorded := 0
	for _, userID := range userIDs {
		if err := s.snapshotUser(ctx, userID, day, now); err != nil {
			slog.ErrorContext(ctx, "Failed to record daily snapshot",
				"user_id", userID,
				"error", err)
			continue
		}
		recorded++
	}

	slog.InfoContext(ctx, "Daily snapshot sweep complete",
		"recorded", recorded,
		"users", len(userIDs),
		"snapshot_date", day.Format("2006-01-02"))

	return recorded, nil
}

func (s *SnapshotService) snapshotUser(ctx context.Context, userID uuid.UUID, day, now time.Time) error {
	return s.store.Tx(ctx, func(q *storage.Queries) error {
		user, err := q.GetUser(ctx, userID)
		if err != nil {
			return err
		}
		goals, err := q.ListGoals(ctx, userID)
		if err != nil {
			return err
		}

		reserved := decimal.Zero
		for _, g := range goals {
			reserved = reserved.Add(g.CurrentAmount)
		}

		return q.CreateSnapshot(ctx, core.DailySnapshot{
			ID:        uuid.New(),
			UserID:    userID,
			Date:      day,
			Balance:   user.Balance,
			Reserved:  reserved,
			CreatedAt: now.UTC(),
		})
	})
}

// History returns the recorded snapshots for a user over [from, to).
func (s *SnapshotService) History(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]core.DailySnapshot, error) {
	return s.store.Queries().ListSnapshots(ctx, userID, core.DateOnly(from), core.DateOnly(to))
}
