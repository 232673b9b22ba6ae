package world

type PlayerID int

type EntityID int64

type Kind uint8

const (
	KindStation Kind = iota + 1
	KindFighter
	KindMiner
)

func (k Kind) String() string {
	switch k {
	case KindStation:
		return "station"
	case KindFighter:
		return "fighter"
	case KindMiner:
		return "miner"
	default:
		return "unknown"
	}
}

type MinerState uint8

const (
	MinerIdle MinerState = iota
	MinerToAsteroid
	MinerMining
	MinerReturning
)

func (s MinerState) String() string {
	switch s {
	case MinerIdle:
		return "idle"
	case MinerToAsteroid:
		return "to_asteroid"
	case MinerMining:
		return "mining"
	case MinerReturning:
		return "returning"
	default:
		return "unknown"
	}
}

// MinerData is the miner-only part of an Entity.
type MinerData struct {
	State         MinerState
	AsteroidID    int // 0 = none
	MineTimer     float64
	Cargo         int
	HomeStationID EntityID
}

func (m *MinerData) reset() {
	m.State = MinerIdle
	m.AsteroidID = 0
	m.MineTimer = 0
	m.Cargo = 0
}

type Entity struct {
	ID    EntityID
	Kind  Kind
	Owner PlayerID

	Pos     Vec2
	Vel     Vec2
	Heading float64

	HP    float64
	HPMax float64

	Speed  float64
	Radius float64

	// Move target; nil when the entity has nowhere to go.
	Target *Vec2

	// Non-nil iff Kind == KindMiner.
	Miner *MinerData
}

// Alive reports whether the entity takes part in the simulation. Dead
// entities stay in storage but are invisible to every operation.
func (e *Entity) Alive() bool { return e != nil && e.HP > 0 }

func (e *Entity) setTarget(p Vec2) {
	e.Target = &p
}

func (e *Entity) clearTarget() {
	e.Target = nil
}

type Player struct {
	ID        PlayerID `json:"id"`
	Name      string   `json:"name"`
	Connected bool     `json:"connected"`
	JoinTick  uint64   `json:"join_tick"`
}
