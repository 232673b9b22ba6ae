package world

import (
	"encoding/json"
	"log/slog"
	"time"
)

// step runs one tick: pending leaves and joins, every queued command in
// arrival order, one simulation step, and (every snapEvery ticks) a snapshot.
// Snapshot encoding, broadcast and journaling happen after the state lock is
// released. The returned entry is what was journaled (possibly empty).
func (w *World) step() TickLogEntry {
	start := time.Now()
	joins, leaves, cmds := w.drainQueues()

	w.mu.Lock()
	w.journal = TickLogEntry{}
	for _, pid := range leaves {
		w.handleLeave(pid)
	}
	for _, req := range joins {
		w.handleJoin(req)
	}
	for _, qc := range cmds {
		w.applyCommand(qc)
	}
	w.simulate()
	tick := w.tick.Add(1)
	entry := w.journal
	entry.Tick = tick
	w.journal = TickLogEntry{}

	var snap *Snapshot
	if tick%w.snapEvery == 0 {
		s := w.snapshotLocked(tick)
		snap = &s
	}
	pop := w.populationLocked()
	w.mu.Unlock()

	var snapBytes int
	if snap != nil && w.broadcaster != nil {
		b, err := json.Marshal(snap.Message())
		if err != nil {
			w.log.Error("encode snapshot", slog.Uint64("tick", tick), slog.Any("err", err))
		} else {
			snapBytes = len(b)
			w.broadcaster.Broadcast(b)
		}
	}

	if w.tickLogger != nil && !entry.empty() {
		if err := w.tickLogger.WriteTick(entry); err != nil {
			w.log.Warn("tick log write failed", slog.Uint64("tick", tick), slog.Any("err", err))
		}
	}

	w.counters.commands.Add(uint64(len(cmds)))
	w.publishMetrics(tick, pop, time.Since(start), snapBytes)
	return entry
}

// StepOnce queues the given inputs and runs exactly one tick, returning its
// journal entry. It is for offline replay and must not be mixed with Run.
func (w *World) StepOnce(joins []string, leaves []PlayerID, cmds []QueuedCommand) TickLogEntry {
	w.qmu.Lock()
	for _, name := range joins {
		w.joins = append(w.joins, JoinRequest{Name: name})
	}
	w.leaves = append(w.leaves, leaves...)
	w.queue = append(w.queue, cmds...)
	w.qmu.Unlock()
	return w.step()
}

// simulate advances every live entity by one fixed dt. Entities are visited
// in id order.
func (w *World) simulate() {
	for _, id := range w.order {
		e := w.entities[id]
		if !e.Alive() {
			continue
		}
		if e.Miner != nil {
			w.stepMiner(e)
		} else {
			w.moveAndCollide(e)
		}
		e.Pos = e.Pos.Clamp(w.cfg.Map.W, w.cfg.Map.H)
	}
}
