package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"reflect"

	persistlog "orerush.io/internal/persistence/log"
	"orerush.io/internal/sim/world"
)

var errStop = errors.New("stop")

type replayStats struct {
	Entries  int
	LastTick uint64
	Joins    int
	Commands int
	Ledger   int
}

// replayFiles feeds every journaled tick back through w and checks that the
// recomputed entry (assigned player ids, applied commands, credit changes)
// matches the recording. Idle ticks between entries are stepped empty.
func replayFiles(w *world.World, files []string, toTick uint64) (replayStats, error) {
	var st replayStats
	for _, path := range files {
		err := persistlog.ReadJSONL(path, func(e world.TickLogEntry) error {
			if toTick != 0 && e.Tick > toTick {
				return errStop
			}
			if e.Tick <= w.CurrentTick() {
				return fmt.Errorf("tick %d out of order (world at %d, file=%s)", e.Tick, w.CurrentTick(), filepath.Base(path))
			}
			for w.CurrentTick()+1 < e.Tick {
				if got := w.StepOnce(nil, nil, nil); len(got.Ledger) != 0 {
					return fmt.Errorf("unrecorded credit change at tick %d: %+v", got.Tick, got.Ledger)
				}
			}
			got := w.StepOnce(joinNames(e.Joins), e.Leaves, queued(e.Commands))
			if err := compareEntry(got, e); err != nil {
				return err
			}
			st.Entries++
			st.LastTick = e.Tick
			st.Joins += len(e.Joins)
			st.Commands += len(e.Commands)
			st.Ledger += len(e.Ledger)
			return nil
		})
		if errors.Is(err, errStop) {
			return st, nil
		}
		if err != nil {
			return st, err
		}
	}
	return st, nil
}

func joinNames(js []world.RecordedJoin) []string {
	out := make([]string, 0, len(js))
	for _, j := range js {
		out = append(out, j.Name)
	}
	return out
}

func queued(cs []world.RecordedCommand) []world.QueuedCommand {
	out := make([]world.QueuedCommand, 0, len(cs))
	for _, c := range cs {
		out = append(out, world.QueuedCommand{PlayerID: c.PlayerID, Cmd: c.Cmd})
	}
	return out
}

func compareEntry(got, want world.TickLogEntry) error {
	if got.Tick != want.Tick {
		return fmt.Errorf("stepped tick %d, journal has %d", got.Tick, want.Tick)
	}
	if len(got.Joins) != len(want.Joins) {
		return fmt.Errorf("tick %d: joins=%d want=%d", want.Tick, len(got.Joins), len(want.Joins))
	}
	for i := range want.Joins {
		if got.Joins[i] != want.Joins[i] {
			return fmt.Errorf("tick %d: join %d=%+v want=%+v", want.Tick, i, got.Joins[i], want.Joins[i])
		}
	}
	if len(got.Commands) != len(want.Commands) {
		return fmt.Errorf("tick %d: applied commands=%d want=%d", want.Tick, len(got.Commands), len(want.Commands))
	}
	if len(got.Ledger) != len(want.Ledger) {
		return fmt.Errorf("tick %d: ledger=%+v want=%+v", want.Tick, got.Ledger, want.Ledger)
	}
	for i := range want.Ledger {
		if !reflect.DeepEqual(got.Ledger[i], want.Ledger[i]) {
			return fmt.Errorf("tick %d: ledger[%d]=%+v want=%+v", want.Tick, i, got.Ledger[i], want.Ledger[i])
		}
	}
	return nil
}
