package protocol

// ClientMessage is the closed set of messages a client may send.
type ClientMessage interface {
	MessageType() string
	clientMessage()
}

// hello (client -> server)
type HelloMsg struct {
	Type string `json:"type"`
	Name string `json:"name,omitempty"`
}

// cmd_move (client -> server)
type MoveCmdMsg struct {
	Type    string  `json:"type"`
	UnitIDs []int64 `json:"unit_ids"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
}

// cmd_buy_miner (client -> server)
type BuyMinerCmdMsg struct {
	Type      string `json:"type"`
	StationID int64  `json:"station_id"`
}

// cmd_mine (client -> server)
type MineCmdMsg struct {
	Type       string  `json:"type"`
	UnitIDs    []int64 `json:"unit_ids"`
	AsteroidID int     `json:"asteroid_id"`
}

func (HelloMsg) MessageType() string       { return TypeHello }
func (MoveCmdMsg) MessageType() string     { return TypeCmdMove }
func (BuyMinerCmdMsg) MessageType() string { return TypeCmdBuyMiner }
func (MineCmdMsg) MessageType() string     { return TypeCmdMine }

func (HelloMsg) clientMessage()       {}
func (MoveCmdMsg) clientMessage()     {}
func (BuyMinerCmdMsg) clientMessage() {}
func (MineCmdMsg) clientMessage()     {}

// map_init (server -> client, once per connection)
type MapInitMsg struct {
	Type      string         `json:"type"`
	PlayerID  int            `json:"player_id"`
	MapW      float64        `json:"map_w"`
	MapH      float64        `json:"map_h"`
	MapSeed   int64          `json:"map_seed"`
	Asteroids []AsteroidInfo `json:"asteroids"`
}

type AsteroidInfo struct {
	ID int     `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
	R  float64 `json:"r"`
}

// snapshot (server -> clients, periodic)
type SnapshotMsg struct {
	Type     string       `json:"type"`
	Tick     uint64       `json:"tick"`
	Entities []EntityInfo `json:"entities"`
	// Keys are player ids; encoding/json writes them as strings.
	Credits map[int]int `json:"credits"`
}

type EntityInfo struct {
	ID    int64   `json:"id"`
	Type  string  `json:"type"`
	Owner int     `json:"owner"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Angle float64 `json:"angle"`
	HP    float64 `json:"hp"`
	HPMax float64 `json:"hp_max"`

	// Miner only.
	MinerState     string `json:"miner_state,omitempty"`
	MineAsteroidID int    `json:"mine_asteroid_id,omitempty"`
}
