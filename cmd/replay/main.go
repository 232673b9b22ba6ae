package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"orerush.io/internal/sim/tuning"
	"orerush.io/internal/sim/world"
	"orerush.io/internal/sim/worldgen"
)

func main() {
	var (
		eventsDir  = flag.String("events", "./data/events", "events dir containing events-*.jsonl.zst")
		configDir  = flag.String("configs", "./configs", "config directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		seed       = flag.Int64("seed", 0, "map seed override; must match the recorded server")
		toTick     = flag.Uint64("to_tick", 0, "stop at tick (inclusive, optional)")
	)
	flag.Parse()

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load tuning:", err)
		os.Exit(1)
	}
	if *seed != 0 {
		tune.Map.Seed = *seed
	}

	w, err := newReplayWorld(tune)
	if err != nil {
		fmt.Fprintln(os.Stderr, "world:", err)
		os.Exit(1)
	}

	files, err := listEventFiles(*eventsDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "list events:", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "no events files found in", *eventsDir)
		os.Exit(1)
	}

	st, err := replayFiles(w, files, *toTick)
	if err != nil {
		fmt.Fprintln(os.Stderr, "replay:", err)
		os.Exit(1)
	}
	fmt.Printf("replay ok: entries=%d ticks=%d joins=%d commands=%d ledger=%d\n",
		st.Entries, st.LastTick, st.Joins, st.Commands, st.Ledger)

	snap := w.Snapshot()
	pids := make([]int, 0, len(snap.Credits))
	for pid := range snap.Credits {
		pids = append(pids, int(pid))
	}
	sort.Ints(pids)
	for _, pid := range pids {
		fmt.Printf("player %d credits=%d\n", pid, snap.Credits[world.PlayerID(pid)])
	}
}

func newReplayWorld(tune tuning.Tuning) (*world.World, error) {
	p := worldgen.Params{
		Seed:        tune.Map.Seed,
		MapW:        tune.Map.W,
		MapH:        tune.Map.H,
		Count:       tune.Asteroids.Count,
		MinR:        tune.Asteroids.MinR,
		MaxR:        tune.Asteroids.MaxR,
		EdgePad:     tune.Asteroids.EdgePad,
		Gap:         tune.Asteroids.Gap,
		MaxAttempts: tune.Asteroids.MaxAttempts,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return world.New(world.Config{Tuning: tune, Asteroids: worldgen.Generate(p).Asteroids})
}

func listEventFiles(dir string) ([]string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(ents))
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, "events-") && strings.HasSuffix(name, ".jsonl.zst") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	out := make([]string, 0, len(names))
	for _, name := range names {
		out = append(out, filepath.Join(dir, name))
	}
	return out, nil
}
