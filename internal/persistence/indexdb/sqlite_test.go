package indexdb

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"orerush.io/internal/sim/tuning"
	"orerush.io/internal/sim/world"
	"orerush.io/internal/transport/session"
)

func openTest(t *testing.T) *SQLiteIndex {
	t.Helper()
	idx, err := OpenSQLite(filepath.Join(t.TempDir(), "index", "orerush.sqlite"), slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func flush(t *testing.T, idx *SQLiteIndex) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := idx.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
}

func TestSQLiteIndex_IndexesTicksAndLedger(t *testing.T) {
	idx := openTest(t)

	entries := []world.TickLogEntry{
		{Tick: 1, Joins: []world.RecordedJoin{{PlayerID: 1, Name: "ann"}}},
		{
			Tick:     5,
			Commands: []world.RecordedCommand{{PlayerID: 1, Type: "cmd_buy_miner", Cmd: world.BuyMinerCommand{StationID: 1}}},
			Ledger:   []world.LedgerEntry{{PlayerID: 1, Kind: world.LedgerPurchase, Amount: -120, Balance: 380, EntityID: 16}},
		},
		{Tick: 600, Ledger: []world.LedgerEntry{{PlayerID: 1, Kind: world.LedgerDeposit, Amount: 80, Balance: 460, EntityID: 16}}},
		{Tick: 700, Leaves: []world.PlayerID{1}},
	}
	for _, e := range entries {
		if err := idx.WriteTick(e); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	flush(t, idx)

	rows, err := idx.Ledger(context.Background(), 1, 10)
	if err != nil {
		t.Fatalf("ledger: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("ledger rows=%d want 2", len(rows))
	}
	if rows[0].Tick != 600 || rows[0].Kind != world.LedgerDeposit || rows[0].Balance != 460 {
		t.Fatalf("newest row=%+v", rows[0])
	}
	if rows[1].Amount != -120 || rows[1].EntityID != 16 {
		t.Fatalf("oldest row=%+v", rows[1])
	}

	var name string
	var joinTick int64
	var leaveTick *int64
	err = idx.db.QueryRow(`SELECT name, join_tick, leave_tick FROM players WHERE player_id=1`).Scan(&name, &joinTick, &leaveTick)
	if err != nil {
		t.Fatalf("players: %v", err)
	}
	if name != "ann" || joinTick != 1 || leaveTick == nil || *leaveTick != 700 {
		t.Fatalf("player row: %s %d %v", name, joinTick, leaveTick)
	}

	var cmdJSON string
	if err := idx.db.QueryRow(`SELECT cmd_json FROM commands WHERE tick=5 AND seq=0`).Scan(&cmdJSON); err != nil {
		t.Fatalf("commands: %v", err)
	}
	if cmdJSON != `{"station_id":1}` {
		t.Fatalf("cmd_json=%s", cmdJSON)
	}

	var n int
	if err := idx.db.QueryRow(`SELECT COUNT(*) FROM ticks`).Scan(&n); err != nil || n != 4 {
		t.Fatalf("ticks=%d err=%v", n, err)
	}
}

func TestSQLiteIndex_SessionEventsAndMeta(t *testing.T) {
	idx := openTest(t)

	tune := tuning.Defaults()
	if err := idx.UpsertMeta(tune, 60); err != nil {
		t.Fatalf("meta: %v", err)
	}
	idx.RecordSessionEvent(session.Event{Kind: session.EventJoined, SessionID: "abc", PlayerID: 3, Remote: "127.0.0.1:1"})
	idx.RecordSessionEvent(session.Event{Kind: session.EventLeft, SessionID: "abc", PlayerID: 3, Remote: "127.0.0.1:1", Err: errors.New("boom")})
	flush(t, idx)

	if v, ok, err := idx.Meta(context.Background(), "asteroids"); err != nil || !ok || v != "60" {
		t.Fatalf("asteroids meta=%q ok=%v err=%v", v, ok, err)
	}
	if v, ok, _ := idx.Meta(context.Background(), "tuning_digest"); !ok || len(v) != 64 {
		t.Fatalf("digest=%q", v)
	}
	if _, ok, err := idx.Meta(context.Background(), "missing"); ok || err != nil {
		t.Fatalf("missing key: ok=%v err=%v", ok, err)
	}

	var errText *string
	if err := idx.db.QueryRow(`SELECT err FROM sessions WHERE session_id='abc' AND event='left'`).Scan(&errText); err != nil {
		t.Fatalf("sessions: %v", err)
	}
	if errText == nil || *errText != "boom" {
		t.Fatalf("err column=%v", errText)
	}
	var joinedErr *string
	if err := idx.db.QueryRow(`SELECT err FROM sessions WHERE session_id='abc' AND event='joined'`).Scan(&joinedErr); err != nil || joinedErr != nil {
		t.Fatalf("joined row err=%v scan=%v", joinedErr, err)
	}
}

func TestSQLiteIndex_CloseIsIdempotent(t *testing.T) {
	idx := openTest(t)
	if err := idx.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if err := idx.WriteTick(world.TickLogEntry{Tick: 1}); err != nil {
		t.Fatalf("write after close: %v", err)
	}
}

func TestSQLiteIndex_EventsRacingCloseAreDropped(t *testing.T) {
	idx := openTest(t)

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(pid int) {
			defer wg.Done()
			<-start
			for j := 0; j < 200; j++ {
				idx.RecordSessionEvent(session.Event{Kind: session.EventLeft, SessionID: "s", PlayerID: world.PlayerID(pid)})
				_ = idx.WriteTick(world.TickLogEntry{Tick: uint64(j)})
			}
		}(i + 1)
	}
	close(start)
	if err := idx.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	wg.Wait()

	// Nothing reaches the queue once it is closed.
	idx.RecordSessionEvent(session.Event{Kind: session.EventPruned, SessionID: "late"})
	if err := idx.Flush(context.Background()); err != nil {
		t.Fatalf("flush after close: %v", err)
	}
}
