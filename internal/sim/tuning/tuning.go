package tuning

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	TickHz     int `yaml:"tick_hz" json:"tick_hz"`
	SnapshotHz int `yaml:"snapshot_hz" json:"snapshot_hz"`
	// MaxCatchupTicks bounds how far the loop schedule may fall behind wall time
	// before it is reset. 0 disables the reset.
	MaxCatchupTicks int `yaml:"max_catchup_ticks" json:"max_catchup_ticks"`

	Map       MapParams      `yaml:"map" json:"map"`
	Asteroids AsteroidParams `yaml:"asteroids" json:"asteroids"`
	Economy   Economy        `yaml:"economy" json:"economy"`
	Movement  Movement       `yaml:"movement" json:"movement"`
	Spawn     Spawn          `yaml:"spawn" json:"spawn"`
	Units     Units          `yaml:"units" json:"units"`
	Limits    Limits         `yaml:"limits" json:"limits"`
}

type MapParams struct {
	W    float64 `yaml:"w" json:"w"`
	H    float64 `yaml:"h" json:"h"`
	Seed int64   `yaml:"seed" json:"seed"`
}

type AsteroidParams struct {
	Count       int     `yaml:"count" json:"count"`
	Gap         float64 `yaml:"gap" json:"gap"`
	MinR        int     `yaml:"min_r" json:"min_r"`
	MaxR        int     `yaml:"max_r" json:"max_r"`
	EdgePad     int     `yaml:"edge_pad" json:"edge_pad"`
	MaxAttempts int     `yaml:"max_attempts" json:"max_attempts"`
}

type Economy struct {
	CreditsStart int     `yaml:"credits_start" json:"credits_start"`
	MinerCost    int     `yaml:"miner_cost" json:"miner_cost"`
	MiningTime   float64 `yaml:"mining_time" json:"mining_time"`
	MiningReward int     `yaml:"mining_reward" json:"mining_reward"`
	// Cosmetic spin while mining, radians per second.
	MiningSpinRate float64 `yaml:"mining_spin_rate" json:"mining_spin_rate"`
}

type Movement struct {
	FormationSpacing float64 `yaml:"formation_spacing" json:"formation_spacing"`
	ArrivalThreshold float64 `yaml:"arrival_threshold" json:"arrival_threshold"`
	// Dock point is this far above (−y) the home station.
	DockOffset float64 `yaml:"dock_offset" json:"dock_offset"`
}

type Spawn struct {
	// Station positions as fractions of the map, assigned by player id.
	Slots             [][2]float64 `yaml:"slots" json:"slots"`
	FighterCount      int          `yaml:"fighter_count" json:"fighter_count"`
	FighterRingRadius float64      `yaml:"fighter_ring_radius" json:"fighter_ring_radius"`
	MinerRingMin      int          `yaml:"miner_ring_min" json:"miner_ring_min"`
	MinerRingMax      int          `yaml:"miner_ring_max" json:"miner_ring_max"`
}

type UnitStats struct {
	Speed  float64 `yaml:"speed" json:"speed"`
	Radius float64 `yaml:"radius" json:"radius"`
	HP     float64 `yaml:"hp" json:"hp"`
}

type Units struct {
	Station UnitStats `yaml:"station" json:"station"`
	Fighter UnitStats `yaml:"fighter" json:"fighter"`
	Miner   UnitStats `yaml:"miner" json:"miner"`
}

type Limits struct {
	MaxFrameBytes int `yaml:"max_frame_bytes" json:"max_frame_bytes"`
	// Per-session inbound command budget (messages per second, burst).
	CommandRate  float64 `yaml:"command_rate" json:"command_rate"`
	CommandBurst int     `yaml:"command_burst" json:"command_burst"`
	// Outbound snapshot queue per session.
	SendQueue int `yaml:"send_queue" json:"send_queue"`
}

func Defaults() Tuning {
	return Tuning{
		TickHz:          60,
		SnapshotHz:      30,
		MaxCatchupTicks: 120,
		Map: MapParams{
			W:    15000,
			H:    10000,
			Seed: 1337,
		},
		Asteroids: AsteroidParams{
			Count:       60,
			Gap:         250,
			MinR:        35,
			MaxR:        110,
			EdgePad:     600,
			MaxAttempts: 140000,
		},
		Economy: Economy{
			CreditsStart:   500,
			MinerCost:      120,
			MiningTime:     4.0,
			MiningReward:   80,
			MiningSpinRate: 0.6,
		},
		Movement: Movement{
			FormationSpacing: 42,
			ArrivalThreshold: 6,
			DockOffset:       110,
		},
		Spawn: Spawn{
			Slots:             [][2]float64{{0.30, 0.40}, {0.70, 0.60}},
			FighterCount:      14,
			FighterRingRadius: 240,
			MinerRingMin:      130,
			MinerRingMax:      190,
		},
		Units: Units{
			Station: UnitStats{Speed: 60, Radius: 95, HP: 800},
			Fighter: UnitStats{Speed: 260, Radius: 10, HP: 80},
			Miner:   UnitStats{Speed: 180, Radius: 10, HP: 90},
		},
		Limits: Limits{
			MaxFrameBytes: 2_000_000,
			CommandRate:   60,
			CommandBurst:  120,
			SendQueue:     8,
		},
	}
}

// Load reads a YAML file on top of Defaults. Keys missing from the file keep
// their default values.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

// SnapshotEveryTicks is tick_hz/snapshot_hz.
func (t Tuning) SnapshotEveryTicks() int {
	if t.SnapshotHz <= 0 || t.TickHz <= 0 {
		return 1
	}
	n := t.TickHz / t.SnapshotHz
	if n < 1 {
		n = 1
	}
	return n
}

func (t Tuning) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}
	check(t.TickHz > 0, "tick_hz must be > 0 (got %d)", t.TickHz)
	check(t.SnapshotHz > 0 && t.SnapshotHz <= t.TickHz, "snapshot_hz must be in (0, tick_hz] (got %d)", t.SnapshotHz)
	if t.TickHz > 0 && t.SnapshotHz > 0 {
		check(t.TickHz%t.SnapshotHz == 0, "tick_hz (%d) must be a multiple of snapshot_hz (%d)", t.TickHz, t.SnapshotHz)
	}
	check(t.MaxCatchupTicks >= 0, "max_catchup_ticks must be >= 0")
	check(t.Map.W > 0 && t.Map.H > 0, "map dimensions must be positive")
	check(t.Economy.MinerCost > 0, "economy.miner_cost must be > 0")
	check(t.Economy.CreditsStart >= 0, "economy.credits_start must be >= 0")
	check(t.Economy.MiningTime > 0, "economy.mining_time must be > 0")
	check(t.Economy.MiningReward >= 0, "economy.mining_reward must be >= 0")
	check(t.Movement.FormationSpacing > 0, "movement.formation_spacing must be > 0")
	check(t.Movement.ArrivalThreshold > 0, "movement.arrival_threshold must be > 0")
	check(len(t.Spawn.Slots) > 0, "spawn.slots must not be empty")
	check(t.Spawn.FighterCount >= 0, "spawn.fighter_count must be >= 0")
	check(t.Spawn.MinerRingMin > 0 && t.Spawn.MinerRingMin < t.Spawn.MinerRingMax,
		"spawn.miner_ring_min must be in (0, miner_ring_max)")
	for name, u := range map[string]UnitStats{"station": t.Units.Station, "fighter": t.Units.Fighter, "miner": t.Units.Miner} {
		check(u.Speed > 0 && u.Radius > 0 && u.HP > 0, "units.%s: speed, radius and hp must be > 0", name)
	}
	check(t.Limits.MaxFrameBytes > 0, "limits.max_frame_bytes must be > 0")
	check(t.Limits.CommandRate > 0 && t.Limits.CommandBurst > 0, "limits.command_rate and command_burst must be > 0")
	check(t.Limits.SendQueue > 0, "limits.send_queue must be > 0")
	return errors.Join(errs...)
}
