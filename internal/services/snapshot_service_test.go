package services

import (
	"context"
	"testing"
	"time"
)

func TestDailySnapshotSweep(t *testing.T) {
	store := newTestStore(t)
	first := newTestUser(t, store, "1000")
	second := newTestUser(t, store, "250")
	goals := NewGoalService(store, nil)
	svc := NewSnapshotService(store)
	ctx := context.Background()

	goal, err := goals.CreateGoal(ctx, first, CreateGoalParams{
		Title:        "Reserve",
		TargetAmount: dec("500"),
		TargetDate:   day(2025, time.June, 1),
	})
	if err != nil {
		t.Fatalf("CreateGoal() error = %v", err)
	}
	if _, err := goals.AddFunds(ctx, goal.ID, first, dec("300")); err != nil {
		t.Fatalf("AddFunds() error = %v", err)
	}

	sweepTime := day(2024, time.April, 10).Add(6 * time.Hour)
	recorded, err := svc.RunDailySnapshotSweep(ctx, sweepTime)
	if err != nil {
		t.Fatalf("RunDailySnapshotSweep() error = %v", err)
	}
	if recorded != 2 {
		t.Fatalf("recorded = %d, want 2", recorded)
	}

	from, to := day(2024, time.April, 1), day(2024, time.May, 1)

	snapshots, err := svc.History(ctx, first, from, to)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(snapshots) != 1 {
		t.Fatalf("len(snapshots) = %d, want 1", len(snapshots))
	}
	wantDecimal(t, "Balance", snapshots[0].Balance, dec("700"))
	wantDecimal(t, "Reserved", snapshots[0].Reserved, dec("300"))
	if !snapshots[0].Date.Equal(day(2024, time.April, 10)) {
		t.Errorf("Date = %v, want 2024-04-10", snapshots[0].Date)
	}

	secondSnaps, err := svc.History(ctx, second, from, to)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(secondSnaps) != 1 {
		t.Fatalf("len(secondSnaps) = %d, want 1", len(secondSnaps))
	}
	wantDecimal(t, "second Balance", secondSnaps[0].Balance, dec("250"))
	wantDecimal(t, "second Reserved", secondSnaps[0].Reserved, dec("0"))
}

func TestDailySnapshotSweepIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	userID := newTestUser(t, store, "1000")
	svc := NewSnapshotService(store)
	ctx := context.Background()

	morning := day(2024, time.April, 10).Add(2 * time.Hour)
	evening := day(2024, time.April, 10).Add(20 * time.Hour)

	if _, err := svc.RunDailySnapshotSweep(ctx, morning); err != nil {
		t.Fatalf("first sweep error = %v", err)
	}
	if _, err := svc.RunDailySnapshotSweep(ctx, evening); err != nil {
		t.Fatalf("second sweep error = %v", err)
	}

	snapshots, err := svc.History(ctx, userID, day(2024, time.April, 1), day(2024, time.May, 1))
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(snapshots) != 1 {
		t.Errorf("len(snapshots) = %d, want 1 (same-day sweep records nothing new)", len(snapshots))
	}

	// The next day records a fresh snapshot.
	if _, err := svc.RunDailySnapshotSweep(ctx, day(2024, time.April, 11)); err != nil {
		t.Fatalf("next-day sweep error = %v", err)
	}
	snapshots, _ = svc.History(ctx, userID, day(2024, time.April, 1), day(2024, time.May, 1))
	if len(snapshots) != 2 {
		t.Errorf("len(snapshots) = %d, want 2", len(snapshots))
	}
}
