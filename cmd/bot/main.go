package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strings"

	"github.com/gorilla/websocket"

	"orerush.io/internal/protocol"
)

// link is one client connection carrying whole JSON payloads.
type link interface {
	Send(payload []byte) error
	Recv() ([]byte, error)
	Close() error
}

type tcpLink struct {
	c   net.Conn
	r   *bufio.Reader
	max int
}

func (l *tcpLink) Send(b []byte) error   { return protocol.WriteFrame(l.c, b, l.max) }
func (l *tcpLink) Recv() ([]byte, error) { return protocol.ReadFrame(l.r, l.max) }
func (l *tcpLink) Close() error          { return l.c.Close() }

type wsLink struct{ c *websocket.Conn }

func (l *wsLink) Send(b []byte) error { return l.c.WriteMessage(websocket.TextMessage, b) }
func (l *wsLink) Recv() ([]byte, error) {
	_, b, err := l.c.ReadMessage()
	return b, err
}
func (l *wsLink) Close() error { return l.c.Close() }

func dial(target string) (link, error) {
	if strings.HasPrefix(target, "ws://") || strings.HasPrefix(target, "wss://") {
		c, _, err := websocket.DefaultDialer.Dial(target, nil)
		if err != nil {
			return nil, err
		}
		return &wsLink{c: c}, nil
	}
	c, err := net.Dial("tcp", target)
	if err != nil {
		return nil, err
	}
	return &tcpLink{c: c, r: bufio.NewReader(c), max: protocol.DefaultMaxFrameBytes}, nil
}

func main() {
	var (
		target = flag.String("target", "localhost:7777", "tcp host:port or ws:// url")
		name   = flag.String("name", "bot", "player name")
		miners = flag.Int("miners", 4, "miners to keep")
		seed   = flag.Int64("seed", 1, "seed for wander targets")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil)).With(slog.String("component", "bot"), slog.String("name", *name))
	conn, err := dial(*target)
	if err != nil {
		logger.Error("dial", slog.Any("err", err))
		os.Exit(1)
	}
	defer conn.Close()

	hello, _ := json.Marshal(protocol.HelloMsg{Type: protocol.TypeHello, Name: *name})
	if err := conn.Send(hello); err != nil {
		logger.Error("send hello", slog.Any("err", err))
		os.Exit(1)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	go func() {
		<-stop
		_ = conn.Close()
	}()

	var b *brain
	for {
		msg, err := conn.Recv()
		if err != nil {
			logger.Info("disconnected", slog.Any("err", err))
			return
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			continue
		}
		switch base.Type {
		case protocol.TypeMapInit:
			var mi protocol.MapInitMsg
			if err := json.Unmarshal(msg, &mi); err != nil {
				continue
			}
			b = newBrain(mi, *miners, *seed)
			logger.Info("joined", slog.Int("player_id", mi.PlayerID), slog.Int("asteroids", len(mi.Asteroids)), slog.Int64("map_seed", mi.MapSeed))

		case protocol.TypeSnapshot:
			if b == nil {
				continue
			}
			var snap protocol.SnapshotMsg
			if err := json.Unmarshal(msg, &snap); err != nil {
				continue
			}
			for _, cmd := range b.decide(snap) {
				payload, _ := json.Marshal(cmd)
				if err := conn.Send(payload); err != nil {
					logger.Info("send failed", slog.Any("err", err))
					return
				}
			}
			if snap.Tick%600 == 0 {
				logger.Info("status", slog.Uint64("tick", snap.Tick), slog.Int("credits", snap.Credits[b.pid]))
			}
		}
	}
}
