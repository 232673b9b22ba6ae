package main

import (
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

type dbQuery struct {
	limit    int
	playerID int
}

func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	dbPath := fs.String("db", "", "sqlite db path (default: <data>/index/orerush.sqlite)")
	limit := fs.Int("limit", 20, "result limit")
	playerID := fs.Int("player_id", 0, "player filter (commands, ledger)")
	_ = fs.Parse(args)

	q := "meta"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}

	path := strings.TrimSpace(*dbPath)
	if path == "" {
		path = filepath.Join(*dataDir, "index", "orerush.sqlite")
	}
	if _, err := os.Stat(path); err != nil {
		fmt.Fprintln(os.Stderr, "db:", err)
		os.Exit(1)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := runDBQuery(db, q, dbQuery{limit: *limit, playerID: *playerID}, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, q+":", err)
		os.Exit(1)
	}
}

// runDBQuery prints one JSON object per row.
func runDBQuery(db *sql.DB, q string, opt dbQuery, out io.Writer) error {
	if opt.limit <= 0 {
		opt.limit = 20
	}
	enc := json.NewEncoder(out)
	enc.SetEscapeHTML(false)

	switch q {
	case "meta":
		rows, err := db.Query(`SELECT key, value FROM meta ORDER BY key`)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Key   string `json:"key"`
				Value string `json:"value"`
			}
			if err := rows.Scan(&r.Key, &r.Value); err != nil {
				return err
			}
			_ = enc.Encode(r)
		}
		return rows.Err()

	case "players":
		rows, err := db.Query(`SELECT player_id, name, join_tick, leave_tick FROM players ORDER BY player_id LIMIT ?`, opt.limit)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				PlayerID  int    `json:"player_id"`
				Name      string `json:"name"`
				JoinTick  int64  `json:"join_tick"`
				LeaveTick *int64 `json:"leave_tick,omitempty"`
			}
			var leave sql.NullInt64
			if err := rows.Scan(&r.PlayerID, &r.Name, &r.JoinTick, &leave); err != nil {
				return err
			}
			if leave.Valid {
				r.LeaveTick = &leave.Int64
			}
			_ = enc.Encode(r)
		}
		return rows.Err()

	case "ticks":
		rows, err := db.Query(`SELECT tick, joins, leaves, commands, ledger FROM ticks ORDER BY tick DESC LIMIT ?`, opt.limit)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Tick     int64 `json:"tick"`
				Joins    int   `json:"joins"`
				Leaves   int   `json:"leaves"`
				Commands int   `json:"commands"`
				Ledger   int   `json:"ledger"`
			}
			if err := rows.Scan(&r.Tick, &r.Joins, &r.Leaves, &r.Commands, &r.Ledger); err != nil {
				return err
			}
			_ = enc.Encode(r)
		}
		return rows.Err()

	case "commands":
		rows, err := db.Query(`SELECT tick, seq, player_id, type, cmd_json FROM commands
			WHERE (?=0 OR player_id=?) ORDER BY tick DESC, seq DESC LIMIT ?`, opt.playerID, opt.playerID, opt.limit)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Tick     int64           `json:"tick"`
				Seq      int             `json:"seq"`
				PlayerID int             `json:"player_id"`
				Type     string          `json:"type"`
				Cmd      json.RawMessage `json:"cmd"`
			}
			var raw string
			if err := rows.Scan(&r.Tick, &r.Seq, &r.PlayerID, &r.Type, &raw); err != nil {
				return err
			}
			r.Cmd = json.RawMessage(raw)
			_ = enc.Encode(r)
		}
		return rows.Err()

	case "ledger":
		rows, err := db.Query(`SELECT tick, player_id, kind, amount, balance, entity_id FROM ledger
			WHERE (?=0 OR player_id=?) ORDER BY tick DESC, seq DESC LIMIT ?`, opt.playerID, opt.playerID, opt.limit)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Tick     int64  `json:"tick"`
				PlayerID int    `json:"player_id"`
				Kind     string `json:"kind"`
				Amount   int    `json:"amount"`
				Balance  int    `json:"balance"`
				EntityID int64  `json:"entity_id"`
			}
			if err := rows.Scan(&r.Tick, &r.PlayerID, &r.Kind, &r.Amount, &r.Balance, &r.EntityID); err != nil {
				return err
			}
			_ = enc.Encode(r)
		}
		return rows.Err()

	case "sessions":
		rows, err := db.Query(`SELECT session_id, event, player_id, remote, COALESCE(err,''), at FROM sessions ORDER BY at DESC LIMIT ?`, opt.limit)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				SessionID string `json:"session_id"`
				Event     string `json:"event"`
				PlayerID  int    `json:"player_id"`
				Remote    string `json:"remote"`
				Err       string `json:"err,omitempty"`
				At        string `json:"at"`
			}
			if err := rows.Scan(&r.SessionID, &r.Event, &r.PlayerID, &r.Remote, &r.Err, &r.At); err != nil {
				return err
			}
			_ = enc.Encode(r)
		}
		return rows.Err()

	default:
		return fmt.Errorf("unknown query %q", q)
	}
}
