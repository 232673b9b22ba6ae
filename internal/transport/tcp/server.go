package tcp

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"sync"
	"time"

	"orerush.io/internal/protocol"
	"orerush.io/internal/transport/session"
)

// Handler runs one connection to completion.
type Handler interface {
	Serve(ctx context.Context, conn session.Conn) error
}

// Server accepts raw TCP clients speaking 4-byte big-endian length-prefixed
// JSON frames.
type Server struct {
	handler  Handler
	log      *slog.Logger
	maxBytes int

	wg sync.WaitGroup
}

func NewServer(h Handler, maxFrameBytes int, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if maxFrameBytes <= 0 {
		maxFrameBytes = protocol.DefaultMaxFrameBytes
	}
	return &Server{
		handler:  h,
		log:      logger.With(slog.String("component", "tcp")),
		maxBytes: maxFrameBytes,
	}
}

func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts until ctx is cancelled, then waits for open connections to
// finish. Cancelling ctx also ends every connection.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()
	s.log.Info("listening", slog.String("addr", ln.Addr().String()))

	var backoff time.Duration
	for {
		c, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				s.wg.Wait()
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				backoff = min(max(2*backoff, 5*time.Millisecond), time.Second)
				s.log.Warn("accept error; retrying", slog.Any("err", err), slog.Duration("backoff", backoff))
				time.Sleep(backoff)
				continue
			}
			s.wg.Wait()
			return err
		}
		backoff = 0
		if tc, ok := c.(*net.TCPConn); ok {
			_ = tc.SetNoDelay(true)
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			fc := newFrameConn(c, s.maxBytes)
			if err := s.handler.Serve(ctx, fc); err != nil {
				s.log.Debug("connection closed", slog.String("remote", fc.RemoteAddr()), slog.Any("err", err))
			}
		}()
	}
}
