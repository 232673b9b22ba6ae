package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"orerush.io/internal/protocol"
	"orerush.io/internal/sim/world"
)

var errPruned = errors.New("session: pruned")

// Session is one joined client.
type Session struct {
	id       string
	playerID world.PlayerID
	remote   string
	conn     Conn

	out     chan []byte
	limiter *rate.Limiter

	dead     atomic.Bool
	kill     chan struct{}
	killOnce sync.Once
}

func (s *Session) stop() {
	s.killOnce.Do(func() { close(s.kill) })
}

// run blocks until the connection closes, the session is pruned, or ctx is
// cancelled. Every loop returns a non-nil error so the first one to finish
// tears the others down.
func (s *Session) run(ctx context.Context, h *Hub) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-gctx.Done()
		_ = s.conn.Close()
		return nil
	})
	g.Go(func() error { return s.readLoop(h) })
	g.Go(func() error { return s.writeLoop(gctx) })

	err := g.Wait()
	if isNormalClose(err) {
		return nil
	}
	return err
}

// readLoop turns inbound messages into queued commands. Unknown types and
// schema-invalid commands are skipped; a payload that is not a JSON object
// ends the session.
func (s *Session) readLoop(h *Hub) error {
	for {
		b, err := s.conn.ReadMessage()
		if err != nil {
			return err
		}
		msg, err := protocol.DecodeClient(b)
		switch {
		case err == nil:
		case errors.Is(err, protocol.ErrUnknownType):
			h.log.Debug("ignoring message", slog.String("session_id", s.id), slog.Any("err", err))
			continue
		case errors.Is(err, protocol.ErrInvalidMessage):
			h.invalidTotal.Add(1)
			continue
		default:
			return fmt.Errorf("session %s: %w", s.id, err)
		}

		cmd, ok := world.CommandFromMessage(msg)
		if !ok {
			continue
		}
		if !s.limiter.Allow() {
			h.rateLimitedTotal.Add(1)
			continue
		}
		h.world.Enqueue(s.playerID, cmd)
	}
}

func (s *Session) writeLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.kill:
			return errPruned
		case b := <-s.out:
			if err := s.conn.WriteMessage(b); err != nil {
				s.dead.Store(true)
				return fmt.Errorf("session %s: write: %w", s.id, err)
			}
		}
	}
}

func isNormalClose(err error) bool {
	return err == nil ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, errPruned) ||
		errors.Is(err, context.Canceled)
}
