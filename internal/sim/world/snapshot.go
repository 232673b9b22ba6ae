package world

import "orerush.io/internal/protocol"

// EntityView is a copied-out, read-only view of a live entity.
type EntityView struct {
	ID      EntityID
	Kind    Kind
	Owner   PlayerID
	Pos     Vec2
	Heading float64
	HP      float64
	HPMax   float64

	// Set only for miners.
	Miner *MinerView
}

type MinerView struct {
	State      MinerState
	AsteroidID int
}

// Snapshot is a consistent copy of world state at one tick.
type Snapshot struct {
	Tick     uint64
	Entities []EntityView
	Credits  map[PlayerID]int
}

// Snapshot takes a consistent copy of live entities and credits.
func (w *World) Snapshot() Snapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.snapshotLocked(w.tick.Load())
}

func (w *World) snapshotLocked(tick uint64) Snapshot {
	s := Snapshot{
		Tick:     tick,
		Entities: make([]EntityView, 0, len(w.order)),
		Credits:  make(map[PlayerID]int, len(w.credits)),
	}
	for _, id := range w.order {
		e := w.entities[id]
		if !e.Alive() {
			continue
		}
		v := EntityView{
			ID:      e.ID,
			Kind:    e.Kind,
			Owner:   e.Owner,
			Pos:     e.Pos,
			Heading: e.Heading,
			HP:      e.HP,
			HPMax:   e.HPMax,
		}
		if e.Miner != nil {
			v.Miner = &MinerView{State: e.Miner.State, AsteroidID: e.Miner.AsteroidID}
		}
		s.Entities = append(s.Entities, v)
	}
	for pid, c := range w.credits {
		s.Credits[pid] = c
	}
	return s
}

// Message converts the snapshot to its wire form.
func (s Snapshot) Message() protocol.SnapshotMsg {
	msg := protocol.SnapshotMsg{
		Type:     protocol.TypeSnapshot,
		Tick:     s.Tick,
		Entities: make([]protocol.EntityInfo, 0, len(s.Entities)),
		Credits:  make(map[int]int, len(s.Credits)),
	}
	for _, e := range s.Entities {
		info := protocol.EntityInfo{
			ID:    int64(e.ID),
			Type:  e.Kind.String(),
			Owner: int(e.Owner),
			X:     e.Pos.X,
			Y:     e.Pos.Y,
			Angle: e.Heading,
			HP:    e.HP,
			HPMax: e.HPMax,
		}
		if e.Miner != nil {
			info.MinerState = e.Miner.State.String()
			info.MineAsteroidID = e.Miner.AsteroidID
		}
		msg.Entities = append(msg.Entities, info)
	}
	for pid, c := range s.Credits {
		msg.Credits[int(pid)] = c
	}
	return msg
}

// UnitCount counts live entities of one kind owned by pid.
func (s Snapshot) UnitCount(pid PlayerID, kind Kind) int {
	n := 0
	for _, e := range s.Entities {
		if e.Owner == pid && e.Kind == kind {
			n++
		}
	}
	return n
}
