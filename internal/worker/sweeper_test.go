package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestSweeperRunsImmediatelyAndOnTicks(t *testing.T) {
	var runs atomic.Int64
	s := NewSweeper("test", 10*time.Millisecond, func(ctx context.Context, now time.Time) (int, error) {
		runs.Add(1)
		return 0, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 55*time.Millisecond)
	defer cancel()

	err := s.Run(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Run() error = %v, want deadline exceeded", err)
	}

	// One immediate pass plus at least a couple of ticks.
	if got := runs.Load(); got < 3 {
		t.Errorf("runs = %d, want at least 3", got)
	}
}

func TestSweeperKeepsRunningAfterFailure(t *testing.T) {
	var runs atomic.Int64
	s := NewSweeper("flaky", 5*time.Millisecond, func(ctx context.Context, now time.Time) (int, error) {
		if runs.Add(1) == 1 {
			return 0, errors.New("store unavailable")
		}
		return 1, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_ = s.Run(ctx)

	if got := runs.Load(); got < 2 {
		t.Errorf("runs = %d, want at least 2 (loop must survive a failed pass)", got)
	}
}

func TestSweeperStopsOnCancel(t *testing.T) {
	s := NewSweeper("cancelled", time.Hour, func(ctx context.Context, now time.Time) (int, error) {
		return 0, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run() error = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run() did not stop after cancellation")
	}
}
