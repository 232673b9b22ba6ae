package world

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"orerush.io/internal/protocol"
	"orerush.io/internal/sim/tuning"
	"orerush.io/internal/sim/worldgen"
)

var ErrStopped = errors.New("world: stopped")

type Config struct {
	Tuning    tuning.Tuning
	Asteroids []worldgen.Asteroid
	Logger    *slog.Logger
	// Clock drives the tick scheduler. Defaults to wall time.
	Clock Clock
}

// World is the single authoritative simulation.
//
// Lock discipline: only the goroutine running Run (or step, in tests) mutates
// state, and it does so while holding mu for writing. Readers take mu for
// reading, copy what they need, and release before doing anything slow.
// The command and join queues have their own mutex so producers never wait
// on a tick in progress.
type World struct {
	cfg       tuning.Tuning
	log       *slog.Logger
	clock     Clock
	dt        float64
	period    time.Duration
	snapEvery uint64

	// Immutable after New.
	asteroids    []worldgen.Asteroid
	asteroidByID map[int]worldgen.Asteroid

	mu           sync.RWMutex
	entities     map[EntityID]*Entity
	order        []EntityID // ascending id
	credits      map[PlayerID]int
	players      map[PlayerID]*Player
	nextPlayerID PlayerID
	nextEntityID EntityID
	journal      TickLogEntry

	qmu    sync.Mutex
	queue  []QueuedCommand
	joins  []JoinRequest
	leaves []PlayerID

	done     chan struct{}
	doneOnce sync.Once

	tick atomic.Uint64

	broadcaster Broadcaster
	tickLogger  TickLogger

	metrics  atomic.Value // WorldMetrics
	counters counters
}

func New(cfg Config) (*World, error) {
	if err := cfg.Tuning.Validate(); err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = ClockFunc(time.Now)
	}
	w := &World{
		cfg:          cfg.Tuning,
		log:          logger.With(slog.String("component", "world")),
		clock:        clock,
		dt:           1.0 / float64(cfg.Tuning.TickHz),
		period:       time.Second / time.Duration(cfg.Tuning.TickHz),
		snapEvery:    uint64(cfg.Tuning.SnapshotEveryTicks()),
		asteroids:    append([]worldgen.Asteroid(nil), cfg.Asteroids...),
		asteroidByID: make(map[int]worldgen.Asteroid, len(cfg.Asteroids)),
		entities:     map[EntityID]*Entity{},
		credits:      map[PlayerID]int{},
		players:      map[PlayerID]*Player{},
		nextPlayerID: 1,
		nextEntityID: 1,
		done:         make(chan struct{}),
	}
	for _, a := range w.asteroids {
		w.asteroidByID[a.ID] = a
	}
	return w, nil
}

// SetBroadcaster must be called before Run.
func (w *World) SetBroadcaster(b Broadcaster) { w.broadcaster = b }

// SetTickLogger must be called before Run.
func (w *World) SetTickLogger(l TickLogger) { w.tickLogger = l }

// Done is closed once Run has returned.
func (w *World) Done() <-chan struct{} { return w.done }

func (w *World) CurrentTick() uint64 { return w.tick.Load() }

func (w *World) Tuning() tuning.Tuning { return w.cfg }

func (w *World) Asteroids() []worldgen.Asteroid {
	return append([]worldgen.Asteroid(nil), w.asteroids...)
}

// Enqueue appends a command for the next tick. It never blocks on the
// simulation and never fails; invalid commands are dropped when applied.
func (w *World) Enqueue(playerID PlayerID, cmd Command) {
	if cmd == nil {
		return
	}
	w.qmu.Lock()
	w.queue = append(w.queue, QueuedCommand{PlayerID: playerID, Cmd: cmd})
	w.qmu.Unlock()
}

// Join registers a new player at the next tick boundary and waits for the
// assigned id and map description.
func (w *World) Join(ctx context.Context, name string) (JoinResponse, error) {
	req := JoinRequest{Name: name, Resp: make(chan JoinResponse, 1)}
	w.qmu.Lock()
	w.joins = append(w.joins, req)
	w.qmu.Unlock()

	select {
	case resp := <-req.Resp:
		return resp, nil
	case <-w.done:
		return JoinResponse{}, ErrStopped
	case <-ctx.Done():
		if w.withdrawJoin(req.Resp) {
			return JoinResponse{}, ctx.Err()
		}
		// The tick already took the request; undo it once it lands.
		select {
		case resp := <-req.Resp:
			w.Leave(resp.PlayerID)
		case <-w.done:
		}
		return JoinResponse{}, ctx.Err()
	}
}

// withdrawJoin removes a pending join identified by its reply channel. It
// reports false when a tick has already drained the request.
func (w *World) withdrawJoin(resp chan JoinResponse) bool {
	w.qmu.Lock()
	defer w.qmu.Unlock()
	for i, r := range w.joins {
		if r.Resp == resp {
			w.joins = append(w.joins[:i], w.joins[i+1:]...)
			return true
		}
	}
	return false
}

// Leave marks a player as disconnected at the next tick boundary. Their units
// and credits remain in the world.
func (w *World) Leave(playerID PlayerID) {
	w.qmu.Lock()
	w.leaves = append(w.leaves, playerID)
	w.qmu.Unlock()
}

func (w *World) drainQueues() (joins []JoinRequest, leaves []PlayerID, cmds []QueuedCommand) {
	w.qmu.Lock()
	joins, w.joins = w.joins, nil
	leaves, w.leaves = w.leaves, nil
	cmds, w.queue = w.queue, nil
	w.qmu.Unlock()
	return joins, leaves, cmds
}

func (w *World) queueDepth() int {
	w.qmu.Lock()
	defer w.qmu.Unlock()
	return len(w.queue)
}

func (w *World) handleJoin(req JoinRequest) JoinResponse {
	pid := w.nextPlayerID
	w.nextPlayerID++
	name := req.Name
	if name == "" {
		name = "player"
	}
	w.players[pid] = &Player{ID: pid, Name: name, Connected: true, JoinTick: w.tick.Load()}
	w.credits[pid] = w.cfg.Economy.CreditsStart
	w.spawnStationAndFighters(pid)
	w.journal.Joins = append(w.journal.Joins, RecordedJoin{PlayerID: pid, Name: name})

	resp := JoinResponse{PlayerID: pid, MapInit: w.mapInit(pid)}
	if req.Resp != nil {
		req.Resp <- resp
	}
	return resp
}

func (w *World) handleLeave(pid PlayerID) {
	p := w.players[pid]
	if p == nil || !p.Connected {
		return
	}
	p.Connected = false
	w.journal.Leaves = append(w.journal.Leaves, pid)
}

func (w *World) mapInit(pid PlayerID) protocol.MapInitMsg {
	ast := make([]protocol.AsteroidInfo, 0, len(w.asteroids))
	for _, a := range w.asteroids {
		ast = append(ast, protocol.AsteroidInfo{ID: a.ID, X: a.X, Y: a.Y, R: a.R})
	}
	return protocol.MapInitMsg{
		Type:      protocol.TypeMapInit,
		PlayerID:  int(pid),
		MapW:      w.cfg.Map.W,
		MapH:      w.cfg.Map.H,
		MapSeed:   w.cfg.Map.Seed,
		Asteroids: ast,
	}
}

func (w *World) addEntity(e *Entity) *Entity {
	e.ID = w.nextEntityID
	w.nextEntityID++
	w.entities[e.ID] = e
	w.order = append(w.order, e.ID)
	return e
}

// liveEntity resolves id to a live entity, or nil.
func (w *World) liveEntity(id EntityID) *Entity {
	e := w.entities[id]
	if !e.Alive() {
		return nil
	}
	return e
}

// Players returns a copy of every player that has joined.
func (w *World) Players() []Player {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]Player, 0, len(w.players))
	for pid := PlayerID(1); pid < w.nextPlayerID; pid++ {
		if p := w.players[pid]; p != nil {
			out = append(out, *p)
		}
	}
	return out
}
