package world

import (
	"testing"

	"orerush.io/internal/sim/worldgen"
)

// minerFixture sets up one player with a miner 300 units from its landing
// point on a lone asteroid, already told to mine it. The miner sits on the
// station side of the asteroid so neither leg of the loop grazes it.
func minerFixture(t *testing.T) (*World, PlayerID, *Entity) {
	t.Helper()
	ast := worldgen.Asteroid{ID: 1, X: 5000, Y: 5000, R: 50}
	w := newTestWorld(t, ast)
	p1 := join(w, "a")
	start := Vec2{X: ast.X, Y: ast.Y - ast.R - 10 - 300}
	m := placeMiner(t, w, p1, start)
	w.Enqueue(p1, MineCommand{UnitIDs: []EntityID{m.ID}, AsteroidID: ast.ID})
	return w, p1, m
}

func TestMiner_FullCycleDepositsReward(t *testing.T) {
	w, p1, m := minerFixture(t)
	logs := &captureTickLogger{}
	w.SetTickLogger(logs)

	var (
		miningAt    = -1
		returningAt = -1
		depositAt   = -1
	)
	prev := MinerIdle
	for i := 1; i <= 3000 && depositAt < 0; i++ {
		w.step()
		st := m.Miner.State
		if st != prev {
			switch {
			case st == MinerMining:
				miningAt = i
			case st == MinerReturning:
				returningAt = i
				if m.Miner.Cargo != 80 {
					t.Fatalf("cargo=%d on leaving mining", m.Miner.Cargo)
				}
			case prev == MinerReturning && st == MinerToAsteroid:
				depositAt = i
			}
			prev = st
		}
		if st != MinerReturning && m.Miner.Cargo != 0 {
			t.Fatalf("tick %d: cargo %d outside returning", i, m.Miner.Cargo)
		}
	}

	// 300 units at 180/s is ~1.67s, i.e. ~100 ticks at 60 Hz.
	if miningAt < 95 || miningAt > 105 {
		t.Fatalf("reached mining at tick %d, want ~100", miningAt)
	}
	// 4.0s of mining.
	if d := returningAt - miningAt; d < 239 || d > 242 {
		t.Fatalf("mining lasted %d ticks, want ~240", d)
	}
	if depositAt < 0 {
		t.Fatalf("miner never completed the loop")
	}
	if got := w.credits[p1]; got != 580 {
		t.Fatalf("credits=%d want 580 (+80)", got)
	}
	if m.Miner.AsteroidID != 1 || m.Target == nil {
		t.Fatalf("miner should loop back to its asteroid: %+v target=%v", m.Miner, m.Target)
	}

	var deposits int
	for _, e := range logs.entries {
		for _, l := range e.Ledger {
			if l.Kind == LedgerDeposit {
				deposits++
				if l.Amount != 80 || l.Balance != 580 || l.EntityID != m.ID {
					t.Fatalf("unexpected ledger entry: %+v", l)
				}
			}
		}
	}
	if deposits != 1 {
		t.Fatalf("deposits logged=%d want 1", deposits)
	}
}

func TestMiner_LoopIsStable(t *testing.T) {
	w, p1, m := minerFixture(t)
	// Two full loops after the first.
	deposits := 0
	prev := m.Miner.State
	for i := 0; i < 6000 && deposits < 3; i++ {
		w.step()
		if prev == MinerReturning && m.Miner.State == MinerToAsteroid {
			deposits++
		}
		prev = m.Miner.State
	}
	if deposits != 3 {
		t.Fatalf("completed %d loops", deposits)
	}
	if got := w.credits[p1]; got != 500+3*80 {
		t.Fatalf("credits=%d want %d", got, 500+3*80)
	}
}

func TestMiner_HomeStationLostWhileMining(t *testing.T) {
	w, p1, m := minerFixture(t)
	for i := 0; i < 2000 && m.Miner.State != MinerMining; i++ {
		w.step()
	}
	if m.Miner.State != MinerMining {
		t.Fatalf("miner never started mining")
	}
	stationOf(t, w, p1).HP = 0
	for i := 0; i < 400 && m.Miner.State == MinerMining; i++ {
		w.step()
	}
	if m.Miner.State != MinerIdle || m.Miner.Cargo != 0 || m.Miner.AsteroidID != 0 || m.Target != nil {
		t.Fatalf("miner should idle with cargo lost: %+v target=%v", m.Miner, m.Target)
	}
	if w.credits[p1] != 500 {
		t.Fatalf("credits changed: %d", w.credits[p1])
	}
}

func TestMiner_HomeStationLostWhileReturning(t *testing.T) {
	w, p1, m := minerFixture(t)
	for i := 0; i < 2000 && m.Miner.State != MinerReturning; i++ {
		w.step()
	}
	if m.Miner.State != MinerReturning {
		t.Fatalf("miner never started returning")
	}
	stationOf(t, w, p1).HP = 0
	w.step()
	if m.Miner.State != MinerIdle || m.Miner.Cargo != 0 || m.Target != nil {
		t.Fatalf("returning miner kept going after station loss: %+v", m.Miner)
	}
	stepN(w, 600)
	if w.credits[p1] != 500 {
		t.Fatalf("credits changed: %d", w.credits[p1])
	}
}

func TestMiner_IdleBehavesLikePlainUnit(t *testing.T) {
	w := newTestWorld(t)
	p1 := join(w, "a")
	m := placeMiner(t, w, p1, Vec2{X: 1000, Y: 1000})
	w.Enqueue(p1, MoveCommand{UnitIDs: []EntityID{m.ID}, Target: Vec2{X: 1000, Y: 1300}})
	stepN(w, 200)
	if m.Pos != (Vec2{X: 1000, Y: 1300}) || m.Target != nil || m.Miner.State != MinerIdle {
		t.Fatalf("idle miner did not arrive: pos=%+v state=%v", m.Pos, m.Miner.State)
	}
}
