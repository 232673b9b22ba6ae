package world

import (
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"

	"orerush.io/internal/protocol"
	"orerush.io/internal/sim/tuning"
	"orerush.io/internal/sim/worldgen"
)

func newTestWorld(t *testing.T, asteroids ...worldgen.Asteroid) *World {
	t.Helper()
	return newTestWorldWith(t, tuning.Defaults(), asteroids...)
}

func newTestWorldWith(t *testing.T, tune tuning.Tuning, asteroids ...worldgen.Asteroid) *World {
	t.Helper()
	w, err := New(Config{
		Tuning:    tune,
		Asteroids: asteroids,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("new world: %v", err)
	}
	return w
}

// join applies a join directly, the way step does at a tick boundary.
func join(w *World, name string) PlayerID {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.handleJoin(JoinRequest{Name: name}).PlayerID
}

func stationOf(t *testing.T, w *World, pid PlayerID) *Entity {
	t.Helper()
	for _, id := range w.order {
		e := w.entities[id]
		if e.Owner == pid && e.Kind == KindStation {
			return e
		}
	}
	t.Fatalf("player %d has no station", pid)
	return nil
}

func unitsOf(w *World, pid PlayerID, kind Kind) []*Entity {
	var out []*Entity
	for _, id := range w.order {
		e := w.entities[id]
		if e.Owner == pid && e.Kind == kind && e.Alive() {
			out = append(out, e)
		}
	}
	return out
}

// placeMiner adds a miner for pid at pos, homed on the player's station.
func placeMiner(t *testing.T, w *World, pid PlayerID, pos Vec2) *Entity {
	t.Helper()
	m := newUnit(KindMiner, pid, pos, w.cfg.Units.Miner)
	m.Miner.HomeStationID = stationOf(t, w, pid).ID
	return w.addEntity(m)
}

func stepN(w *World, n int) {
	for i := 0; i < n; i++ {
		w.step()
	}
}

type captureBroadcaster struct {
	mu   sync.Mutex
	msgs [][]byte
}

func (c *captureBroadcaster) Broadcast(b []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, b)
}

func (c *captureBroadcaster) snapshots(t *testing.T) []protocol.SnapshotMsg {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]protocol.SnapshotMsg, 0, len(c.msgs))
	for _, b := range c.msgs {
		var m protocol.SnapshotMsg
		if err := json.Unmarshal(b, &m); err != nil {
			t.Fatalf("decode snapshot: %v", err)
		}
		out = append(out, m)
	}
	return out
}

type captureTickLogger struct {
	mu      sync.Mutex
	entries []TickLogEntry
}

func (c *captureTickLogger) WriteTick(e TickLogEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, e)
	return nil
}
