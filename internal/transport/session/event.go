package session

import "orerush.io/internal/sim/world"

type EventKind int

const (
	EventJoined EventKind = iota + 1
	EventLeft
	EventPruned
)

func (k EventKind) String() string {
	switch k {
	case EventJoined:
		return "joined"
	case EventLeft:
		return "left"
	case EventPruned:
		return "pruned"
	default:
		return "unknown"
	}
}

// Event reports a session lifecycle change. Err is set on EventLeft when the
// session ended abnormally.
type Event struct {
	Kind      EventKind
	SessionID string
	PlayerID  world.PlayerID
	Remote    string
	Err       error
}
