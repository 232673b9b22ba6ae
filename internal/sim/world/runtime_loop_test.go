package world

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestAdvanceSchedule_StepsOnePeriod(t *testing.T) {
	w := newTestWorld(t)
	base := time.Unix(1000, 0)
	next := w.advanceSchedule(base, base.Add(10*w.period))
	if next != base.Add(w.period) {
		t.Fatalf("next=%v want base+period", next)
	}
	if w.counters.catchupResets.Load() != 0 {
		t.Fatalf("unexpected reset")
	}
}

func TestAdvanceSchedule_ResetsWhenTooFarBehind(t *testing.T) {
	w := newTestWorld(t)
	base := time.Unix(1000, 0)
	now := base.Add(time.Duration(w.cfg.MaxCatchupTicks+5) * w.period)
	if next := w.advanceSchedule(base, now); !next.Equal(now) {
		t.Fatalf("next=%v want now=%v", next, now)
	}
	if w.counters.catchupResets.Load() != 1 {
		t.Fatalf("reset not counted")
	}
}

func TestRun_TicksAndServesJoins(t *testing.T) {
	w := newTestWorld(t)
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()

	jctx, jcancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer jcancel()
	resp, err := w.Join(jctx, "bob")
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if resp.PlayerID != 1 || len(resp.MapInit.Asteroids) != 0 || resp.MapInit.MapW != w.cfg.Map.W {
		t.Fatalf("join response: %+v", resp)
	}

	deadline := time.Now().Add(2 * time.Second)
	for w.CurrentTick() < 10 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if w.CurrentTick() < 10 {
		t.Fatalf("loop stalled at tick %d", w.CurrentTick())
	}

	cancel()
	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("run did not stop")
	}

	if _, err := w.Join(context.Background(), "late"); !errors.Is(err, ErrStopped) {
		t.Fatalf("join after stop: %v", err)
	}
}

func TestRun_FakeClockCatchesUpOneStepPerIteration(t *testing.T) {
	base := time.Unix(5000, 0)
	var calls int
	w := newTestWorld(t)
	// Time jumps 30 periods ahead after the first read, then stands still
	// long enough for the loop to work off the backlog.
	w.clock = ClockFunc(func() time.Time {
		calls++
		if calls == 1 {
			return base
		}
		return base.Add(30 * w.period)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		_ = w.Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for w.CurrentTick() < 31 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	cancel()
	<-done
	// The clock never passes base+30 periods, so exactly 31 deadlines
	// (base, base+1p, ..., base+30p) are due.
	if got := w.CurrentTick(); got != 31 {
		t.Fatalf("ticks=%d want 31", got)
	}
	if w.counters.catchupResets.Load() != 0 {
		t.Fatalf("30 periods is within the catch-up window")
	}
}

func TestJoin_AbandonedBeforeTickSpawnsNothing(t *testing.T) {
	w := newTestWorld(t)
	logs := &captureTickLogger{}
	w.SetTickLogger(logs)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := w.Join(ctx, "late"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("join err=%v", err)
	}
	w.step()

	if n := len(w.Players()); n != 0 {
		t.Fatalf("players=%d want 0", n)
	}
	if n := len(w.entities); n != 0 {
		t.Fatalf("entities=%d want 0", n)
	}
	if len(logs.entries) != 0 {
		t.Fatalf("abandoned join journaled: %+v", logs.entries)
	}
}

func TestJoin_AbandonedAfterDrainLeavesPlayerDisconnected(t *testing.T) {
	w := newTestWorld(t)
	ctx, cancel := context.WithCancel(context.Background())
	type result struct {
		resp JoinResponse
		err  error
	}
	got := make(chan result, 1)
	go func() {
		resp, err := w.Join(ctx, "slow")
		got <- result{resp, err}
	}()

	deadline := time.Now().Add(2 * time.Second)
	var joins []JoinRequest
	for len(joins) == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("join never queued")
		}
		time.Sleep(time.Millisecond)
		joins, _, _ = w.drainQueues()
	}
	cancel()
	w.mu.Lock()
	w.handleJoin(joins[0])
	w.mu.Unlock()

	r := <-got
	w.step()
	players := w.Players()
	if len(players) != 1 {
		t.Fatalf("players=%d want 1", len(players))
	}
	// Whichever side won the race, a caller that got an error has no live player.
	if r.err != nil && players[0].Connected {
		t.Fatalf("abandoned join still connected (err=%v)", r.err)
	}
	if r.err == nil && !players[0].Connected {
		t.Fatalf("successful join was disconnected")
	}
}
