package tcp

import (
	"bufio"
	"net"
	"time"

	"orerush.io/internal/protocol"
)

const writeTimeout = 5 * time.Second

// frameConn adapts a stream connection to length-prefixed messages.
type frameConn struct {
	c        net.Conn
	br       *bufio.Reader
	maxBytes int
}

func newFrameConn(c net.Conn, maxBytes int) *frameConn {
	return &frameConn{c: c, br: bufio.NewReaderSize(c, 64*1024), maxBytes: maxBytes}
}

func (f *frameConn) ReadMessage() ([]byte, error) {
	return protocol.ReadFrame(f.br, f.maxBytes)
}

func (f *frameConn) WriteMessage(payload []byte) error {
	_ = f.c.SetWriteDeadline(time.Now().Add(writeTimeout))
	return protocol.WriteFrame(f.c, payload, f.maxBytes)
}

func (f *frameConn) Close() error { return f.c.Close() }

func (f *frameConn) RemoteAddr() string { return f.c.RemoteAddr().String() }

func (f *frameConn) SetReadDeadline(t time.Time) error { return f.c.SetReadDeadline(t) }
