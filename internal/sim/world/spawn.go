package world

import (
	"math"
	"math/rand"

	"orerush.io/internal/sim/tuning"
)

func newUnit(kind Kind, owner PlayerID, pos Vec2, stats tuning.UnitStats) *Entity {
	e := &Entity{
		Kind:   kind,
		Owner:  owner,
		Pos:    pos,
		HP:     stats.HP,
		HPMax:  stats.HP,
		Speed:  stats.Speed,
		Radius: stats.Radius,
	}
	if kind == KindMiner {
		e.Miner = &MinerData{State: MinerIdle}
	}
	return e
}

// stationSlot is the home position for a player's station. Players beyond
// the configured slots reuse them in order.
func (w *World) stationSlot(pid PlayerID) Vec2 {
	slots := w.cfg.Spawn.Slots
	s := slots[(int(pid)-1)%len(slots)]
	return Vec2{X: w.cfg.Map.W * s[0], Y: w.cfg.Map.H * s[1]}
}

func (w *World) spawnStationAndFighters(pid PlayerID) *Entity {
	base := w.stationSlot(pid)
	station := w.addEntity(newUnit(KindStation, pid, base, w.cfg.Units.Station))

	n := w.cfg.Spawn.FighterCount
	ring := w.cfg.Spawn.FighterRingRadius
	for i := 0; i < n; i++ {
		ang := float64(i) / float64(n) * 2 * math.Pi
		pos := Vec2{X: base.X + math.Cos(ang)*ring, Y: base.Y + math.Sin(ang)*ring}
		w.addEntity(newUnit(KindFighter, pid, pos.Clamp(w.cfg.Map.W, w.cfg.Map.H), w.cfg.Units.Fighter))
	}
	return station
}

// minerSpawnSeed derives the spawn-offset seed for a purchase. Including the
// next entity id makes repeated purchases land in different places.
func minerSpawnSeed(mapSeed int64, pid PlayerID, nextEntityID EntityID) int64 {
	return mapSeed + int64(pid)*9999 + int64(nextEntityID)
}

func (w *World) spawnMiner(pid PlayerID, station *Entity) *Entity {
	rng := rand.New(rand.NewSource(minerSpawnSeed(w.cfg.Map.Seed, pid, w.nextEntityID)))
	ang := rng.Float64() * 2 * math.Pi
	lo, hi := w.cfg.Spawn.MinerRingMin, w.cfg.Spawn.MinerRingMax
	rr := float64(lo + rng.Intn(hi-lo))

	pos := Vec2{X: station.Pos.X + math.Cos(ang)*rr, Y: station.Pos.Y + math.Sin(ang)*rr}
	m := newUnit(KindMiner, pid, pos.Clamp(w.cfg.Map.W, w.cfg.Map.H), w.cfg.Units.Miner)
	m.Miner.HomeStationID = station.ID
	return w.addEntity(m)
}
