package world

import (
	"context"
	"log/slog"
	"time"
)

type Clock interface {
	Now() time.Time
}

type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time {
	return f()
}

// Run drives the fixed-rate tick loop until ctx is cancelled.
//
// The loop keeps an absolute schedule: each iteration either sleeps until the
// next deadline or, if the deadline has passed, runs exactly one step and
// moves the deadline forward by one period. A lagging loop therefore catches
// up one step per iteration without sleeping, and never runs several steps
// for one wake-up.
func (w *World) Run(ctx context.Context) error {
	defer w.doneOnce.Do(func() { close(w.done) })

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	w.log.Info("world loop started",
		slog.Int("tick_hz", w.cfg.TickHz),
		slog.Int("snapshot_hz", w.cfg.SnapshotHz),
		slog.Int("asteroids", len(w.asteroids)),
	)
	next := w.clock.Now()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		now := w.clock.Now()
		if now.Before(next) {
			timer.Reset(next.Sub(now))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-timer.C:
			}
			continue
		}
		w.step()
		next = w.advanceSchedule(next, now)
	}
}

// advanceSchedule moves the deadline forward one period. If the loop has
// fallen more than MaxCatchupTicks periods behind, the schedule restarts
// from now instead of replaying the whole backlog.
func (w *World) advanceSchedule(next, now time.Time) time.Time {
	next = next.Add(w.period)
	limit := w.cfg.MaxCatchupTicks
	if limit <= 0 {
		return next
	}
	if lag := now.Sub(next); lag > time.Duration(limit)*w.period {
		w.counters.catchupResets.Add(1)
		w.log.Warn("tick schedule reset",
			slog.Duration("lag", lag),
			slog.Uint64("tick", w.tick.Load()),
		)
		return now
	}
	return next
}
