// Package worker runs the periodic ledger sweeps: budget auto-renewal,
// recurring transaction processing and daily snapshots.
package worker

import (
	"context"
	"log/slog"
	"time"
)

// SweepFunc runs one sweep pass at the given time and reports how many rows
// it affected. Sweeps are idempotent: a failed pass leaves its rows eligible
// for the next one.
type SweepFunc func(ctx context.Context, now time.Time) (int, error)

// Sweeper drives one sweep function on a fixed interval.
type Sweeper struct {
	name     string
	interval time.Duration
	sweep    SweepFunc
	now      func() time.Time
}

func NewSweeper(name string, interval time.Duration, sweep SweepFunc) *Sweeper {
	return &Sweeper{
		name:     name,
		interval: interval,
		sweep:    sweep,
		now:      time.Now,
	}
}

// Run executes one pass immediately, then on every tick until ctx is
// cancelled. Sweep errors are logged, never fatal: the loop keeps going.
func (s *Sweeper) Run(ctx context.Context) error {
	slog.InfoContext(ctx, "Starting sweep loop",
		"sweep", s.name,
		"interval", s.interval)

	s.runOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping sweep loop", "sweep", s.name, "reason", ctx.Err())
			return ctx.Err()
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Sweeper) runOnce(ctx context.Context) {
	affected, err := s.sweep(ctx, s.now().UTC())
	if err != nil {
		slog.ErrorContext(ctx, "Sweep pass failed", "sweep", s.name, "error", err)
		return
	}
	slog.InfoContext(ctx, "Sweep pass complete", "sweep", s.name, "affected", affected)
}
