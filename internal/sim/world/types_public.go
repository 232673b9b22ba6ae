package world

import (
	"encoding/json"
	"fmt"

	"orerush.io/internal/protocol"
)

// Broadcaster fans an encoded snapshot out to every connected client.
// Implementations must not block on network I/O.
type Broadcaster interface {
	Broadcast(payload []byte)
}

type TickLogger interface {
	WriteTick(entry TickLogEntry) error
}

type RecordedJoin struct {
	PlayerID PlayerID `json:"player_id"`
	Name     string   `json:"name"`
}

type RecordedCommand struct {
	PlayerID PlayerID `json:"player_id"`
	Type     string   `json:"type"`
	Cmd      Command  `json:"cmd"`
}

// UnmarshalJSON restores the concrete command from its type tag so journals
// can be replayed.
func (rc *RecordedCommand) UnmarshalJSON(b []byte) error {
	var raw struct {
		PlayerID PlayerID        `json:"player_id"`
		Type     string          `json:"type"`
		Cmd      json.RawMessage `json:"cmd"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	var cmd Command
	var err error
	switch raw.Type {
	case protocol.TypeCmdMove:
		var c MoveCommand
		err = json.Unmarshal(raw.Cmd, &c)
		cmd = c
	case protocol.TypeCmdBuyMiner:
		var c BuyMinerCommand
		err = json.Unmarshal(raw.Cmd, &c)
		cmd = c
	case protocol.TypeCmdMine:
		var c MineCommand
		err = json.Unmarshal(raw.Cmd, &c)
		cmd = c
	default:
		return fmt.Errorf("recorded command: unknown type %q", raw.Type)
	}
	if err != nil {
		return fmt.Errorf("recorded %s: %w", raw.Type, err)
	}
	*rc = RecordedCommand{PlayerID: raw.PlayerID, Type: raw.Type, Cmd: cmd}
	return nil
}

const (
	LedgerPurchase = "purchase"
	LedgerDeposit  = "deposit"
)

// LedgerEntry records one credit mutation.
type LedgerEntry struct {
	PlayerID PlayerID `json:"player_id"`
	Kind     string   `json:"kind"`
	Amount   int      `json:"amount"`
	Balance  int      `json:"balance"`
	EntityID EntityID `json:"entity_id"`
}

// TickLogEntry is written for every tick that had joins, leaves, commands or
// credit changes.
type TickLogEntry struct {
	Tick     uint64            `json:"tick"`
	Joins    []RecordedJoin    `json:"joins,omitempty"`
	Leaves   []PlayerID        `json:"leaves,omitempty"`
	Commands []RecordedCommand `json:"commands,omitempty"`
	Ledger   []LedgerEntry     `json:"ledger,omitempty"`
}

func (e TickLogEntry) empty() bool {
	return len(e.Joins) == 0 && len(e.Leaves) == 0 && len(e.Commands) == 0 && len(e.Ledger) == 0
}

type JoinRequest struct {
	Name string
	Resp chan JoinResponse
}

type JoinResponse struct {
	PlayerID PlayerID
	MapInit  protocol.MapInitMsg
}
