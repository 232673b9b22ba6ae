package main

import (
	"math"
	"math/rand"

	"orerush.io/internal/protocol"
)

// brain keeps a fixed number of miners busy and wanders the fighters. It
// only ever looks at the latest snapshot.
type brain struct {
	pid       int
	mapW      float64
	mapH      float64
	asteroids []protocol.AsteroidInfo
	wantMiner int
	rng       *rand.Rand

	lastBuyTick    uint64
	lastWanderTick uint64
}

const (
	buyCooldownTicks    = 60
	wanderEveryTicks    = 600
	fightersPerWanderer = 4
)

func newBrain(mi protocol.MapInitMsg, wantMiners int, seed int64) *brain {
	return &brain{
		pid:       mi.PlayerID,
		mapW:      mi.MapW,
		mapH:      mi.MapH,
		asteroids: mi.Asteroids,
		wantMiner: wantMiners,
		rng:       rand.New(rand.NewSource(seed)),
	}
}

func (b *brain) decide(s protocol.SnapshotMsg) []protocol.ClientMessage {
	var (
		station    *protocol.EntityInfo
		miners     int
		idleMiners []int64
		fighterIDs []int64
		out        []protocol.ClientMessage
	)
	for i := range s.Entities {
		e := &s.Entities[i]
		if e.Owner != b.pid {
			continue
		}
		switch e.Type {
		case "station":
			station = e
		case "miner":
			miners++
			if e.MinerState == "idle" {
				idleMiners = append(idleMiners, e.ID)
			}
		case "fighter":
			fighterIDs = append(fighterIDs, e.ID)
		}
	}
	if station == nil {
		return nil
	}

	if miners < b.wantMiner && s.Tick-b.lastBuyTick >= buyCooldownTicks {
		b.lastBuyTick = s.Tick
		out = append(out, protocol.BuyMinerCmdMsg{Type: protocol.TypeCmdBuyMiner, StationID: station.ID})
	}
	if len(idleMiners) > 0 {
		if ast, ok := b.nearestAsteroid(station.X, station.Y); ok {
			out = append(out, protocol.MineCmdMsg{Type: protocol.TypeCmdMine, UnitIDs: idleMiners, AsteroidID: ast})
		}
	}
	if len(fighterIDs) >= fightersPerWanderer && s.Tick-b.lastWanderTick >= wanderEveryTicks {
		b.lastWanderTick = s.Tick
		out = append(out, protocol.MoveCmdMsg{
			Type:    protocol.TypeCmdMove,
			UnitIDs: fighterIDs[:fightersPerWanderer],
			X:       b.rng.Float64() * b.mapW,
			Y:       b.rng.Float64() * b.mapH,
		})
	}
	return out
}

func (b *brain) nearestAsteroid(x, y float64) (int, bool) {
	best, bestD := 0, math.Inf(1)
	for _, a := range b.asteroids {
		if d := math.Hypot(a.X-x, a.Y-y); d < bestD {
			best, bestD = a.ID, d
		}
	}
	return best, len(b.asteroids) > 0
}
