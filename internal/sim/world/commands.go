package world

import "orerush.io/internal/protocol"

// Command is a player intent. The set is closed: MoveCommand,
// BuyMinerCommand and MineCommand.
type Command interface {
	CommandType() string
	command()
}

type MoveCommand struct {
	UnitIDs []EntityID `json:"unit_ids"`
	Target  Vec2       `json:"target"`
}

type BuyMinerCommand struct {
	StationID EntityID `json:"station_id"`
}

type MineCommand struct {
	UnitIDs    []EntityID `json:"unit_ids"`
	AsteroidID int        `json:"asteroid_id"`
}

func (MoveCommand) CommandType() string     { return protocol.TypeCmdMove }
func (BuyMinerCommand) CommandType() string { return protocol.TypeCmdBuyMiner }
func (MineCommand) CommandType() string     { return protocol.TypeCmdMine }

func (MoveCommand) command()     {}
func (BuyMinerCommand) command() {}
func (MineCommand) command()     {}

// QueuedCommand is a command waiting for the next tick.
type QueuedCommand struct {
	PlayerID PlayerID
	Cmd      Command
}

// CommandFromMessage converts a decoded client message into a Command.
// It returns false for messages that are not commands (hello).
func CommandFromMessage(msg protocol.ClientMessage) (Command, bool) {
	switch m := msg.(type) {
	case protocol.MoveCmdMsg:
		return MoveCommand{UnitIDs: toEntityIDs(m.UnitIDs), Target: Vec2{X: m.X, Y: m.Y}}, true
	case protocol.BuyMinerCmdMsg:
		return BuyMinerCommand{StationID: EntityID(m.StationID)}, true
	case protocol.MineCmdMsg:
		return MineCommand{UnitIDs: toEntityIDs(m.UnitIDs), AsteroidID: m.AsteroidID}, true
	default:
		return nil, false
	}
}

func toEntityIDs(ids []int64) []EntityID {
	out := make([]EntityID, len(ids))
	for i, id := range ids {
		out[i] = EntityID(id)
	}
	return out
}
