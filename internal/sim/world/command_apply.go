package world

import "orerush.io/internal/sim/worldgen"

// applyCommand validates cmd against current state and applies the valid
// part. Nothing is reported back to the player.
func (w *World) applyCommand(qc QueuedCommand) {
	if w.players[qc.PlayerID] == nil {
		return
	}
	switch c := qc.Cmd.(type) {
	case MoveCommand:
		w.applyMove(qc.PlayerID, c)
	case BuyMinerCommand:
		w.applyBuyMiner(qc.PlayerID, c)
	case MineCommand:
		w.applyMine(qc.PlayerID, c)
	default:
		return
	}
	w.journal.Commands = append(w.journal.Commands, RecordedCommand{
		PlayerID: qc.PlayerID,
		Type:     qc.Cmd.CommandType(),
		Cmd:      qc.Cmd,
	})
}

// ownedUnits resolves ids to the caller's live entities, in request order,
// without duplicates.
func (w *World) ownedUnits(pid PlayerID, ids []EntityID) []*Entity {
	out := make([]*Entity, 0, len(ids))
	seen := make(map[EntityID]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		e := w.liveEntity(id)
		if e == nil || e.Owner != pid {
			continue
		}
		out = append(out, e)
	}
	return out
}

func (w *World) applyMove(pid PlayerID, c MoveCommand) {
	units := w.ownedUnits(pid, c.UnitIDs)
	slots := FitSlots(FormationSlots(len(units), c.Target, w.cfg.Movement.FormationSpacing), w.cfg.Map.W, w.cfg.Map.H)
	for i, e := range units {
		e.setTarget(slots[i])
		if e.Miner != nil {
			e.Miner.reset()
		}
	}
}

func (w *World) applyBuyMiner(pid PlayerID, c BuyMinerCommand) {
	cost := w.cfg.Economy.MinerCost
	if w.credits[pid] < cost {
		return
	}
	st := w.liveEntity(c.StationID)
	if st == nil || st.Kind != KindStation || st.Owner != pid {
		return
	}
	w.credits[pid] -= cost
	m := w.spawnMiner(pid, st)
	w.journal.Ledger = append(w.journal.Ledger, LedgerEntry{
		PlayerID: pid,
		Kind:     LedgerPurchase,
		Amount:   -cost,
		Balance:  w.credits[pid],
		EntityID: m.ID,
	})
}

func (w *World) applyMine(pid PlayerID, c MineCommand) {
	a, ok := w.asteroidByID[c.AsteroidID]
	if !ok {
		return
	}
	for _, e := range w.ownedUnits(pid, c.UnitIDs) {
		if e.Miner == nil {
			continue
		}
		e.Miner.State = MinerToAsteroid
		e.Miner.AsteroidID = a.ID
		e.Miner.MineTimer = 0
		e.Miner.Cargo = 0
		e.setTarget(landingPoint(a, e.Pos, e.Radius))
	}
}

// landingPoint is the spot just outside asteroid a on the side facing pos.
func landingPoint(a worldgen.Asteroid, pos Vec2, radius float64) Vec2 {
	center := Vec2{X: a.X, Y: a.Y}
	n, _ := center.Dir(pos)
	return center.Add(n.Scale(a.R + radius))
}
