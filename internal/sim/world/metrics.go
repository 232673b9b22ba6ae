package world

import (
	"sync/atomic"
	"time"
)

// WorldMetrics is a thread-safe read-only view of key world runtime signals.
// It is updated from the world loop goroutine and read from HTTP handlers/tests.
type WorldMetrics struct {
	Tick uint64 `json:"tick"`

	Players          int `json:"players"`
	ConnectedPlayers int `json:"connected_players"`
	Entities         int `json:"entities"`
	QueueDepth       int `json:"queue_depth"`

	StepMS        float64 `json:"step_ms"`
	SnapshotBytes int     `json:"snapshot_bytes"`

	CommandsTotal      uint64 `json:"commands_total"`
	CatchupResetsTotal uint64 `json:"catchup_resets_total"`
}

type counters struct {
	commands      atomic.Uint64
	catchupResets atomic.Uint64
}

type population struct {
	players   int
	connected int
	live      int
}

func (w *World) populationLocked() population {
	var p population
	p.players = len(w.players)
	for _, pl := range w.players {
		if pl.Connected {
			p.connected++
		}
	}
	for _, e := range w.entities {
		if e.Alive() {
			p.live++
		}
	}
	return p
}

func (w *World) publishMetrics(tick uint64, pop population, stepDur time.Duration, snapBytes int) {
	prev := w.Metrics()
	if snapBytes == 0 {
		snapBytes = prev.SnapshotBytes
	}
	w.metrics.Store(WorldMetrics{
		Tick:               tick,
		Players:            pop.players,
		ConnectedPlayers:   pop.connected,
		Entities:           pop.live,
		QueueDepth:         w.queueDepth(),
		StepMS:             float64(stepDur.Microseconds()) / 1000.0,
		SnapshotBytes:      snapBytes,
		CommandsTotal:      w.counters.commands.Load(),
		CatchupResetsTotal: w.counters.catchupResets.Load(),
	})
}

func (w *World) Metrics() WorldMetrics {
	if w == nil {
		return WorldMetrics{}
	}
	v := w.metrics.Load()
	if v == nil {
		return WorldMetrics{}
	}
	m, ok := v.(WorldMetrics)
	if !ok {
		return WorldMetrics{}
	}
	return m
}
