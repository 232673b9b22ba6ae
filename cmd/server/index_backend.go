package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"orerush.io/internal/persistence/indexdb"
	"orerush.io/internal/sim/tuning"
	"orerush.io/internal/sim/world"
	"orerush.io/internal/transport/session"
)

type runtimeIndex interface {
	world.TickLogger
	Close() error
	RecordSessionEvent(ev session.Event)
	UpsertMeta(tune tuning.Tuning, asteroids int) error
	Ledger(ctx context.Context, playerID, limit int) ([]indexdb.LedgerRow, error)
	Stats() indexdb.Stats
}

func openRuntimeIndex(dataDir string, disableDB bool, logger *slog.Logger) (runtimeIndex, error) {
	if disableDB {
		return nil, nil
	}

	backend := strings.ToLower(strings.TrimSpace(os.Getenv("ORERUSH_INDEX_BACKEND")))
	if backend == "" {
		backend = "sqlite"
	}

	switch backend {
	case "none", "off", "disabled":
		return nil, nil
	case "sqlite":
		dbPath := filepath.Join(dataDir, "index", "orerush.sqlite")
		idx, err := indexdb.OpenSQLite(dbPath, logger)
		if err != nil {
			return nil, err
		}
		return idx, nil
	default:
		return nil, fmt.Errorf("unsupported ORERUSH_INDEX_BACKEND: %s", backend)
	}
}
