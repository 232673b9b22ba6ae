package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"orerush.io/internal/protocol"
	"orerush.io/internal/sim/tuning"
	"orerush.io/internal/sim/world"
)

// ErrHandshake is returned by Serve when the first message is not a valid
// hello.
var ErrHandshake = errors.New("session: handshake failed")

// Simulation is the part of the world a session talks to.
type Simulation interface {
	Join(ctx context.Context, name string) (world.JoinResponse, error)
	Leave(playerID world.PlayerID)
	Enqueue(playerID world.PlayerID, cmd world.Command)
}

type Config struct {
	World  Simulation
	Logger *slog.Logger
	Limits tuning.Limits

	// HandshakeTimeout bounds the wait for hello on transports that
	// support read deadlines. Defaults to 5s.
	HandshakeTimeout time.Duration
}

// Hub owns the set of live sessions and fans snapshots out to them.
type Hub struct {
	world            Simulation
	log              *slog.Logger
	limits           tuning.Limits
	handshakeTimeout time.Duration

	mu       sync.RWMutex
	sessions map[string]*Session
	onEvent  func(Event)

	prunedTotal      atomic.Uint64
	rateLimitedTotal atomic.Uint64
	invalidTotal     atomic.Uint64
}

func NewHub(cfg Config) *Hub {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.HandshakeTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	limits := cfg.Limits
	if limits.SendQueue <= 0 {
		limits.SendQueue = 8
	}
	return &Hub{
		world:            cfg.World,
		log:              logger.With(slog.String("component", "session")),
		limits:           limits,
		handshakeTimeout: timeout,
		sessions:         map[string]*Session{},
	}
}

// OnEvent installs the lifecycle hook. It is called outside the hub lock.
func (h *Hub) OnEvent(fn func(Event)) {
	h.mu.Lock()
	h.onEvent = fn
	h.mu.Unlock()
}

func (h *Hub) emit(ev Event) {
	h.mu.RLock()
	fn := h.onEvent
	h.mu.RUnlock()
	if fn != nil {
		fn(ev)
	}
}

// Serve runs one client connection to completion: hello, join, map_init,
// then the read and write loops. It always closes conn and, once joined,
// always tells the world the player left.
//
// A clean disconnect returns nil.
func (h *Hub) Serve(ctx context.Context, conn Conn) error {
	defer conn.Close()
	remote := conn.RemoteAddr()

	hello, err := h.readHello(conn)
	if err != nil {
		if errors.Is(err, ErrHandshake) {
			if pc, ok := conn.(policyCloser); ok {
				_ = pc.ClosePolicyViolation("expected hello")
			}
		}
		h.log.Debug("handshake failed", slog.String("remote", remote), slog.Any("err", err))
		return err
	}

	resp, err := h.world.Join(ctx, hello.Name)
	if err != nil {
		return fmt.Errorf("session: join: %w", err)
	}
	s := h.newSession(conn, resp.PlayerID, remote)

	b, err := json.Marshal(resp.MapInit)
	if err == nil {
		err = conn.WriteMessage(b)
	}
	if err != nil {
		h.world.Leave(s.playerID)
		return fmt.Errorf("session: write map_init: %w", err)
	}

	// Registered only after map_init so snapshots always follow it.
	h.register(s)
	h.log.Info("session joined",
		slog.String("session_id", s.id),
		slog.Int("player_id", int(s.playerID)),
		slog.String("name", hello.Name),
		slog.String("remote", remote),
	)
	h.emit(Event{Kind: EventJoined, SessionID: s.id, PlayerID: s.playerID, Remote: remote})

	err = s.run(ctx, h)

	removed := h.unregister(s)
	h.world.Leave(s.playerID)
	if s.dead.Load() {
		// A failed write ends the session as a prune whichever side notices
		// first. Broadcast has already reported it when removed is false.
		if removed {
			h.notePruned(s)
		}
		return err
	}
	if err != nil {
		h.log.Warn("session ended", slog.String("session_id", s.id), slog.Int("player_id", int(s.playerID)), slog.Any("err", err))
	} else {
		h.log.Info("session ended", slog.String("session_id", s.id), slog.Int("player_id", int(s.playerID)))
	}
	h.emit(Event{Kind: EventLeft, SessionID: s.id, PlayerID: s.playerID, Remote: remote, Err: err})
	return err
}

func (h *Hub) readHello(conn Conn) (protocol.HelloMsg, error) {
	if rd, ok := conn.(readDeadliner); ok {
		_ = rd.SetReadDeadline(time.Now().Add(h.handshakeTimeout))
		defer rd.SetReadDeadline(time.Time{})
	}
	b, err := conn.ReadMessage()
	if err != nil {
		return protocol.HelloMsg{}, err
	}
	msg, err := protocol.DecodeClient(b)
	if err != nil {
		return protocol.HelloMsg{}, fmt.Errorf("%w: %v", ErrHandshake, err)
	}
	hello, ok := msg.(protocol.HelloMsg)
	if !ok {
		return protocol.HelloMsg{}, fmt.Errorf("%w: first message was %s", ErrHandshake, msg.MessageType())
	}
	return hello, nil
}

func (h *Hub) newSession(conn Conn, pid world.PlayerID, remote string) *Session {
	lim := rate.Inf
	if h.limits.CommandRate > 0 {
		lim = rate.Limit(h.limits.CommandRate)
	}
	burst := h.limits.CommandBurst
	if burst <= 0 {
		burst = 1
	}
	return &Session{
		id:       uuid.NewString(),
		playerID: pid,
		remote:   remote,
		conn:     conn,
		out:      make(chan []byte, h.limits.SendQueue),
		limiter:  rate.NewLimiter(lim, burst),
		kill:     make(chan struct{}),
	}
}

func (h *Hub) register(s *Session) {
	h.mu.Lock()
	h.sessions[s.id] = s
	h.mu.Unlock()
}

// unregister removes s and reports whether it was still registered.
func (h *Hub) unregister(s *Session) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.sessions[s.id]; !ok {
		return false
	}
	delete(h.sessions, s.id)
	return true
}

// Broadcast hands payload to every live session without blocking. A session
// whose queue is full loses its oldest pending message. Sessions already
// marked dead are collected during the pass and removed after it.
func (h *Hub) Broadcast(payload []byte) {
	var dead []*Session
	h.mu.RLock()
	for _, s := range h.sessions {
		if s.dead.Load() {
			dead = append(dead, s)
			continue
		}
		sendLatest(s.out, payload)
	}
	h.mu.RUnlock()

	for _, s := range dead {
		h.prune(s)
	}
}

func (h *Hub) prune(s *Session) {
	if !h.unregister(s) {
		return
	}
	s.stop()
	_ = s.conn.Close()
	h.notePruned(s)
}

func (h *Hub) notePruned(s *Session) {
	h.prunedTotal.Add(1)
	h.log.Info("session pruned", slog.String("session_id", s.id), slog.Int("player_id", int(s.playerID)))
	h.emit(Event{Kind: EventPruned, SessionID: s.id, PlayerID: s.playerID, Remote: s.remote})
}

func sendLatest(ch chan []byte, b []byte) {
	select {
	case ch <- b:
		return
	default:
	}
	// Drop one.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- b:
	default:
	}
}

type Info struct {
	ID         string         `json:"id"`
	PlayerID   world.PlayerID `json:"player_id"`
	Remote     string         `json:"remote"`
	QueueDepth int            `json:"queue_depth"`
}

// Sessions lists live sessions ordered by player id.
func (h *Hub) Sessions() []Info {
	h.mu.RLock()
	out := make([]Info, 0, len(h.sessions))
	for _, s := range h.sessions {
		out = append(out, Info{ID: s.id, PlayerID: s.playerID, Remote: s.remote, QueueDepth: len(s.out)})
	}
	h.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].PlayerID < out[j].PlayerID })
	return out
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

type Metrics struct {
	Sessions         int    `json:"sessions"`
	PrunedTotal      uint64 `json:"pruned_total"`
	RateLimitedTotal uint64 `json:"rate_limited_total"`
	InvalidTotal     uint64 `json:"invalid_total"`
}

func (h *Hub) Metrics() Metrics {
	return Metrics{
		Sessions:         h.Count(),
		PrunedTotal:      h.prunedTotal.Load(),
		RateLimitedTotal: h.rateLimitedTotal.Load(),
		InvalidTotal:     h.invalidTotal.Load(),
	}
}
