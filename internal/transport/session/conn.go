package session

import "time"

//go:generate go tool mockgen -destination=./mocks/conn_mock.go -package=mocks . Conn

// Conn is one message-oriented client connection. Transports adapt their
// native framing (length-prefixed TCP, websocket messages) to it.
//
// ReadMessage is called from a single reader goroutine and WriteMessage from
// a single writer goroutine. Close may be called concurrently with both.
type Conn interface {
	ReadMessage() ([]byte, error)
	WriteMessage(payload []byte) error
	Close() error
	RemoteAddr() string
}

// readDeadliner is implemented by transports that can bound the hello read.
type readDeadliner interface {
	SetReadDeadline(t time.Time) error
}

// policyCloser is implemented by transports with a protocol-level close
// reason (websocket close code 1008).
type policyCloser interface {
	ClosePolicyViolation(reason string) error
}
