package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"orerush.io/internal/sim/tuning"
	"orerush.io/internal/sim/world"
	"orerush.io/internal/transport/session"
)

const schemaVersion = "1"

// SQLiteIndex is a queryable secondary index of the tick journal and session
// lifecycle. Writes are queued and applied by one goroutine in batched
// transactions; when the queue is full, records are dropped and counted.
type SQLiteIndex struct {
	db  *sql.DB
	log *slog.Logger

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	// mu orders sends against close(ch): senders hold it shared.
	mu     sync.RWMutex
	closed bool

	dropTickTotal    atomic.Uint64
	dropSessionTotal atomic.Uint64
	writeErrTotal    atomic.Uint64
}

type reqKind int

const (
	reqTick reqKind = iota + 1
	reqSession
	reqFlush
)

type req struct {
	kind reqKind

	tick    world.TickLogEntry
	session sessionRow
	flushed chan struct{}
}

type sessionRow struct {
	SessionID string
	PlayerID  int
	Remote    string
	Kind      string
	Err       string
	At        string
}

type Stats struct {
	QueueDepth       int    `json:"queue_depth"`
	QueueCapacity    int    `json:"queue_capacity"`
	DropTickTotal    uint64 `json:"drop_tick_total"`
	DropSessionTotal uint64 `json:"drop_session_total"`
	WriteErrTotal    uint64 `json:"write_err_total"`
}

func OpenSQLite(path string, logger *slog.Logger) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db:  db,
		log: logger.With(slog.String("component", "indexdb")),
		ch:  make(chan req, 65536),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS ticks (
			tick INTEGER PRIMARY KEY,
			joins INTEGER NOT NULL,
			leaves INTEGER NOT NULL,
			commands INTEGER NOT NULL,
			ledger INTEGER NOT NULL,
			raw_json TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS players (
			player_id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			join_tick INTEGER NOT NULL,
			leave_tick INTEGER
		);`,
		`CREATE TABLE IF NOT EXISTS commands (
			tick INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			player_id INTEGER NOT NULL,
			type TEXT NOT NULL,
			cmd_json TEXT NOT NULL,
			PRIMARY KEY (tick, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_commands_player_tick ON commands(player_id, tick);`,
		`CREATE TABLE IF NOT EXISTS ledger (
			tick INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			player_id INTEGER NOT NULL,
			kind TEXT NOT NULL,
			amount INTEGER NOT NULL,
			balance INTEGER NOT NULL,
			entity_id INTEGER NOT NULL,
			PRIMARY KEY (tick, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_ledger_player_tick ON ledger(player_id, tick);`,
		`CREATE TABLE IF NOT EXISTS sessions (
			session_id TEXT NOT NULL,
			event TEXT NOT NULL,
			player_id INTEGER NOT NULL,
			remote TEXT NOT NULL,
			err TEXT,
			at TEXT NOT NULL,
			PRIMARY KEY (session_id, event)
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.ch)
		s.mu.Unlock()
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:       len(s.ch),
		QueueCapacity:    cap(s.ch),
		DropTickTotal:    s.dropTickTotal.Load(),
		DropSessionTotal: s.dropSessionTotal.Load(),
		WriteErrTotal:    s.writeErrTotal.Load(),
	}
}

// WriteTick implements world.TickLogger. It never blocks the simulation.
func (s *SQLiteIndex) WriteTick(entry world.TickLogEntry) error {
	if s == nil {
		return nil
	}
	if !s.offer(req{kind: reqTick, tick: entry}) {
		// The zstd journal remains the source of truth.
		s.dropTickTotal.Add(1)
	}
	return nil
}

// offer queues r without blocking. It reports false when the queue is full;
// after Close it reports true and discards r.
func (s *SQLiteIndex) offer(r req) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return true
	}
	select {
	case s.ch <- r:
		return true
	default:
		return false
	}
}

// RecordSessionEvent indexes a hub lifecycle event.
func (s *SQLiteIndex) RecordSessionEvent(ev session.Event) {
	if s == nil {
		return
	}
	row := sessionRow{
		SessionID: ev.SessionID,
		PlayerID:  int(ev.PlayerID),
		Remote:    ev.Remote,
		Kind:      ev.Kind.String(),
		At:        time.Now().UTC().Format(time.RFC3339Nano),
	}
	if ev.Err != nil {
		row.Err = ev.Err.Error()
	}
	if !s.offer(req{kind: reqSession, session: row}) {
		s.dropSessionTotal.Add(1)
	}
}

// Flush commits everything queued before the call.
func (s *SQLiteIndex) Flush(ctx context.Context) error {
	if s == nil {
		return nil
	}
	done := make(chan struct{})
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil
	}
	select {
	case s.ch <- req{kind: reqFlush, flushed: done}:
		s.mu.RUnlock()
	case <-ctx.Done():
		s.mu.RUnlock()
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// UpsertMeta records the tuning in effect and the generated map.
func (s *SQLiteIndex) UpsertMeta(tune tuning.Tuning, asteroids int) error {
	if s == nil {
		return nil
	}
	b, err := json.Marshal(tune)
	if err != nil {
		return err
	}
	sum := sha256.Sum256(b)
	rows := map[string]string{
		"schema_version": schemaVersion,
		"tuning_json":    string(b),
		"tuning_digest":  hex.EncodeToString(sum[:]),
		"map_seed":       strconv.FormatInt(tune.Map.Seed, 10),
		"asteroids":      strconv.Itoa(asteroids),
		"started_at":     time.Now().UTC().Format(time.RFC3339Nano),
	}

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO meta(key,value) VALUES(?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for k, v := range rows {
		if _, err := stmt.Exec(k, v); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Meta reads one meta value.
func (s *SQLiteIndex) Meta(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key=?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

type LedgerRow struct {
	Tick     uint64 `json:"tick"`
	PlayerID int    `json:"player_id"`
	Kind     string `json:"kind"`
	Amount   int    `json:"amount"`
	Balance  int    `json:"balance"`
	EntityID int64  `json:"entity_id"`
}

// Ledger returns up to limit of a player's most recent credit changes,
// newest first.
func (s *SQLiteIndex) Ledger(ctx context.Context, playerID, limit int) ([]LedgerRow, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT tick, player_id, kind, amount, balance, entity_id FROM ledger
		 WHERE player_id=? ORDER BY tick DESC, seq DESC LIMIT ?`, playerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []LedgerRow
	for rows.Next() {
		var r LedgerRow
		if err := rows.Scan(&r.Tick, &r.PlayerID, &r.Kind, &r.Amount, &r.Balance, &r.EntityID); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertTick, _ := s.db.Prepare(`INSERT OR REPLACE INTO ticks(tick,joins,leaves,commands,ledger,raw_json) VALUES(?,?,?,?,?,?)`)
	insertJoin, _ := s.db.Prepare(`INSERT OR REPLACE INTO players(player_id,name,join_tick,leave_tick) VALUES(?,?,?,NULL)`)
	markLeave, _ := s.db.Prepare(`UPDATE players SET leave_tick=? WHERE player_id=?`)
	insertCommand, _ := s.db.Prepare(`INSERT OR REPLACE INTO commands(tick,seq,player_id,type,cmd_json) VALUES(?,?,?,?,?)`)
	insertLedger, _ := s.db.Prepare(`INSERT OR REPLACE INTO ledger(tick,seq,player_id,kind,amount,balance,entity_id) VALUES(?,?,?,?,?,?,?)`)
	insertSession, _ := s.db.Prepare(`INSERT OR REPLACE INTO sessions(session_id,event,player_id,remote,err,at) VALUES(?,?,?,?,?,?)`)
	stmts := []*sql.Stmt{insertTick, insertJoin, markLeave, insertCommand, insertLedger, insertSession}
	defer func() {
		for _, st := range stmts {
			if st != nil {
				_ = st.Close()
			}
		}
	}()
	for _, st := range stmts {
		if st == nil {
			s.log.Error("prepare statements failed; index disabled")
			for range s.ch {
			}
			return
		}
	}

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 2000
		commitMaxWait = 2 * time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		if err := tx.Commit(); err != nil {
			s.writeErrTotal.Add(1)
			s.log.Warn("commit failed", slog.Any("err", err))
		}
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func(err error) {
		s.writeErrTotal.Add(1)
		s.log.Warn("index write failed", slog.Any("err", err))
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	exec := func(st *sql.Stmt, args ...any) bool {
		if _, err := tx.Stmt(st).Exec(args...); err != nil {
			rollback(err)
			return false
		}
		opCount++
		return true
	}

	flushIfNeeded := func() {
		if tx == nil {
			return
		}
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}

	for r := range s.ch {
		if r.kind == reqFlush {
			commit()
			close(r.flushed)
			continue
		}
		begin()
		if tx == nil {
			s.writeErrTotal.Add(1)
			continue
		}
		switch r.kind {
		case reqTick:
			s.applyTick(r.tick, exec, insertTick, insertJoin, markLeave, insertCommand, insertLedger)
		case reqSession:
			se := r.session
			var errText any
			if se.Err != "" {
				errText = se.Err
			}
			exec(insertSession, se.SessionID, se.Kind, se.PlayerID, se.Remote, errText, se.At)
		}
		flushIfNeeded()
	}

	commit()
}

func (s *SQLiteIndex) applyTick(e world.TickLogEntry, exec func(*sql.Stmt, ...any) bool, insertTick, insertJoin, markLeave, insertCommand, insertLedger *sql.Stmt) {
	tick := int64(e.Tick)
	raw, err := json.Marshal(e)
	if err != nil {
		s.writeErrTotal.Add(1)
		return
	}
	if !exec(insertTick, tick, len(e.Joins), len(e.Leaves), len(e.Commands), len(e.Ledger), string(raw)) {
		return
	}
	for _, j := range e.Joins {
		if !exec(insertJoin, int(j.PlayerID), j.Name, tick) {
			return
		}
	}
	for _, pid := range e.Leaves {
		if !exec(markLeave, tick, int(pid)) {
			return
		}
	}
	for i, c := range e.Commands {
		b, _ := json.Marshal(c.Cmd)
		if !exec(insertCommand, tick, i, int(c.PlayerID), c.Type, string(b)) {
			return
		}
	}
	for i, l := range e.Ledger {
		if !exec(insertLedger, tick, i, int(l.PlayerID), l.Kind, l.Amount, l.Balance, int64(l.EntityID)) {
			return
		}
	}
}
