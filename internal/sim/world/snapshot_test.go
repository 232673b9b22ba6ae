package world

import (
	"testing"

	"orerush.io/internal/protocol"
	"orerush.io/internal/sim/worldgen"
)

func TestSnapshot_OmitsDeadAndCarriesMinerFields(t *testing.T) {
	ast := worldgen.Asteroid{ID: 7, X: 6000, Y: 5000, R: 40}
	w := newTestWorld(t, ast)
	p1 := join(w, "a")
	dead := unitsOf(w, p1, KindFighter)[0]
	dead.HP = 0
	idle := placeMiner(t, w, p1, Vec2{X: 1000, Y: 1000})
	busy := placeMiner(t, w, p1, Vec2{X: 6000, Y: 4000})
	w.Enqueue(p1, MineCommand{UnitIDs: []EntityID{busy.ID}, AsteroidID: ast.ID})
	w.step()

	msg := w.Snapshot().Message()
	if msg.Type != protocol.TypeSnapshot || msg.Tick != 1 {
		t.Fatalf("header: %+v", msg)
	}
	byID := map[int64]protocol.EntityInfo{}
	for _, e := range msg.Entities {
		byID[e.ID] = e
	}
	if _, ok := byID[int64(dead.ID)]; ok {
		t.Fatalf("dead entity included")
	}
	// station + 13 live fighters + 2 miners
	if len(msg.Entities) != 16 {
		t.Fatalf("entities=%d want 16", len(msg.Entities))
	}

	st := byID[int64(stationOf(t, w, p1).ID)]
	if st.Type != "station" || st.MinerState != "" || st.HP != 800 || st.HPMax != 800 {
		t.Fatalf("station info: %+v", st)
	}
	if got := byID[int64(idle.ID)]; got.Type != "miner" || got.MinerState != "idle" || got.MineAsteroidID != 0 {
		t.Fatalf("idle miner info: %+v", got)
	}
	if got := byID[int64(busy.ID)]; got.MinerState != "to_asteroid" || got.MineAsteroidID != 7 {
		t.Fatalf("busy miner info: %+v", got)
	}
	if msg.Credits[int(p1)] != 500 {
		t.Fatalf("credits=%v", msg.Credits)
	}

	// Entities are listed in id order.
	for i := 1; i < len(msg.Entities); i++ {
		if msg.Entities[i-1].ID >= msg.Entities[i].ID {
			t.Fatalf("entities not ordered by id at %d", i)
		}
	}

	if s := w.Snapshot(); s.UnitCount(p1, KindFighter) != 13 || s.UnitCount(p1, KindMiner) != 2 {
		t.Fatalf("unit counts: fighters=%d miners=%d", s.UnitCount(p1, KindFighter), s.UnitCount(p1, KindMiner))
	}
}

func TestStep_BroadcastsAtSnapshotRate(t *testing.T) {
	w := newTestWorld(t)
	bc := &captureBroadcaster{}
	w.SetBroadcaster(bc)
	join(w, "a")

	stepN(w, 6)
	snaps := bc.snapshots(t)
	if len(snaps) != 3 {
		t.Fatalf("snapshots=%d want 3 (60 Hz tick, 30 Hz snapshot)", len(snaps))
	}
	for i, s := range snaps {
		if want := uint64(2 * (i + 1)); s.Tick != want {
			t.Fatalf("snapshot %d tick=%d want %d", i, s.Tick, want)
		}
	}
	if m := w.Metrics(); m.Tick != 6 || m.SnapshotBytes == 0 || m.Players != 1 || m.Entities != 15 {
		t.Fatalf("metrics: %+v", m)
	}
}

func TestStep_JournalsJoinsCommandsAndLedger(t *testing.T) {
	w := newTestWorld(t)
	logs := &captureTickLogger{}
	w.SetTickLogger(logs)

	done := make(chan JoinResponse, 1)
	w.joins = append(w.joins, JoinRequest{Name: "alice", Resp: done})
	w.step()
	resp := <-done
	if resp.PlayerID != 1 || resp.MapInit.PlayerID != 1 || resp.MapInit.Type != protocol.TypeMapInit {
		t.Fatalf("join response: %+v", resp)
	}

	st := stationOf(t, w, resp.PlayerID)
	w.Enqueue(resp.PlayerID, BuyMinerCommand{StationID: st.ID})
	w.step()
	w.step() // nothing happened: no entry
	w.Leave(resp.PlayerID)
	w.step()

	if len(logs.entries) != 3 {
		t.Fatalf("entries=%d want 3", len(logs.entries))
	}
	if e := logs.entries[0]; e.Tick != 1 || len(e.Joins) != 1 || e.Joins[0].Name != "alice" {
		t.Fatalf("join entry: %+v", e)
	}
	e := logs.entries[1]
	if e.Tick != 2 || len(e.Commands) != 1 || e.Commands[0].Type != protocol.TypeCmdBuyMiner {
		t.Fatalf("command entry: %+v", e)
	}
	if len(e.Ledger) != 1 || e.Ledger[0].Kind != LedgerPurchase || e.Ledger[0].Amount != -120 || e.Ledger[0].Balance != 380 {
		t.Fatalf("ledger: %+v", e.Ledger)
	}
	if e := logs.entries[2]; e.Tick != 4 || len(e.Leaves) != 1 || e.Leaves[0] != resp.PlayerID {
		t.Fatalf("leave entry: %+v", e)
	}

	// Disconnected players keep their units and credits.
	players := w.Players()
	if len(players) != 1 || players[0].Connected {
		t.Fatalf("players: %+v", players)
	}
	if w.credits[resp.PlayerID] != 380 || len(unitsOf(w, resp.PlayerID, KindMiner)) != 1 {
		t.Fatalf("disconnected player state was removed")
	}
}
