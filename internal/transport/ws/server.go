package ws

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"orerush.io/internal/protocol"
	"orerush.io/internal/transport/session"
)

// Handler runs one connection to completion.
type Handler interface {
	Serve(ctx context.Context, conn session.Conn) error
}

type Server struct {
	handler  Handler
	log      *slog.Logger
	maxBytes int
	baseCtx  context.Context
	wg       sync.WaitGroup

	upgrader websocket.Upgrader
}

// NewServer serves the game protocol over websocket text messages. Sessions
// end when ctx is cancelled.
func NewServer(ctx context.Context, h Handler, maxFrameBytes int, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if maxFrameBytes <= 0 {
		maxFrameBytes = protocol.DefaultMaxFrameBytes
	}
	return &Server{
		handler:  h,
		log:      logger.With(slog.String("component", "ws")),
		maxBytes: maxFrameBytes,
		baseCtx:  ctx,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		conn.SetReadLimit(int64(s.maxBytes))

		s.wg.Add(1)
		defer s.wg.Done()
		c := &wsConn{c: conn, remote: r.RemoteAddr}
		if err := s.handler.Serve(s.baseCtx, c); err != nil {
			s.log.Debug("connection closed", slog.String("remote", r.RemoteAddr), slog.Any("err", err))
		}
	}
}

// Wait blocks until every upgraded connection has finished Serve, or ctx
// ends. http.Server.Shutdown does not track hijacked connections.
func (s *Server) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// wsConn carries one JSON payload per text message.
type wsConn struct {
	c      *websocket.Conn
	remote string
}

func (w *wsConn) ReadMessage() ([]byte, error) {
	for {
		mt, b, err := w.c.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				return nil, io.EOF
			}
			if errors.Is(err, websocket.ErrReadLimit) {
				return nil, protocol.ErrFrameTooLarge
			}
			return nil, err
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}
		if len(b) == 0 {
			return nil, protocol.ErrEmptyFrame
		}
		return b, nil
	}
}

func (w *wsConn) WriteMessage(payload []byte) error {
	_ = w.c.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return w.c.WriteMessage(websocket.TextMessage, payload)
}

func (w *wsConn) Close() error { return w.c.Close() }

func (w *wsConn) RemoteAddr() string { return w.remote }

func (w *wsConn) SetReadDeadline(t time.Time) error { return w.c.SetReadDeadline(t) }

func (w *wsConn) ClosePolicyViolation(reason string) error {
	return w.c.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason), time.Now().Add(time.Second))
}
