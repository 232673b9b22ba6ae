package protocol

import "encoding/json"

// Message types.
const (
	TypeHello       = "hello"
	TypeMapInit     = "map_init"
	TypeSnapshot    = "snapshot"
	TypeCmdMove     = "cmd_move"
	TypeCmdBuyMiner = "cmd_buy_miner"
	TypeCmdMine     = "cmd_mine"
)

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type string `json:"type"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}

// IsCommandType reports whether t is one of the cmd_* types accepted after map_init.
func IsCommandType(t string) bool {
	switch t {
	case TypeCmdMove, TypeCmdBuyMiner, TypeCmdMine:
		return true
	}
	return false
}
