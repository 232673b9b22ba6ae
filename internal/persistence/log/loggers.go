package log

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"orerush.io/internal/sim/world"
)

// JSONLZstdWriter appends JSON lines to hourly zstd files named
// <prefix>-YYYY-MM-DD-HH.jsonl.zst under baseDir.
type JSONLZstdWriter struct {
	baseDir string
	prefix  string
	now     func() time.Time

	mu      sync.Mutex
	curHour string
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
	lines   uint64
}

func NewJSONLZstdWriter(baseDir, prefix string) *JSONLZstdWriter {
	return &JSONLZstdWriter{
		baseDir: baseDir,
		prefix:  prefix,
		now:     time.Now,
	}
}

func (w *JSONLZstdWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

func (w *JSONLZstdWriter) Write(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	hour := w.now().UTC().Format("2006-01-02-15")
	if hour != w.curHour || w.w == nil {
		if err := w.rotateLocked(hour); err != nil {
			return err
		}
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	w.lines++
	return w.w.Flush()
}

// Lines reports how many records have been written since construction.
func (w *JSONLZstdWriter) Lines() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lines
}

func (w *JSONLZstdWriter) rotateLocked(hour string) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	path := w.pathForHour(hour)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f = f
	w.enc = enc
	w.w = bufio.NewWriterSize(enc, 128*1024)
	w.curHour = hour
	return nil
}

func (w *JSONLZstdWriter) closeLocked() error {
	var errs []error
	if w.w != nil {
		errs = append(errs, w.w.Flush())
	}
	if w.enc != nil {
		errs = append(errs, w.enc.Close())
		w.enc = nil
	}
	if w.f != nil {
		errs = append(errs, w.f.Close())
		w.f = nil
	}
	w.w = nil
	w.curHour = ""
	return errors.Join(errs...)
}

func (w *JSONLZstdWriter) pathForHour(hour string) string {
	return filepath.Join(w.baseDir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, hour))
}

// TickLogger journals every eventful tick. Credit mutations are also copied
// to a separate ledger stream so the economy can be audited without
// scanning commands.
type TickLogger struct {
	ticks  *JSONLZstdWriter
	ledger *JSONLZstdWriter
}

// LedgerRecord is one line of the ledger stream.
type LedgerRecord struct {
	Tick uint64 `json:"tick"`
	world.LedgerEntry
}

func NewTickLogger(dataDir string) *TickLogger {
	return &TickLogger{
		ticks:  NewJSONLZstdWriter(filepath.Join(dataDir, "events"), "events"),
		ledger: NewJSONLZstdWriter(filepath.Join(dataDir, "ledger"), "ledger"),
	}
}

func (l *TickLogger) WriteTick(e world.TickLogEntry) error {
	if err := l.ticks.Write(e); err != nil {
		return fmt.Errorf("events: %w", err)
	}
	for _, le := range e.Ledger {
		if err := l.ledger.Write(LedgerRecord{Tick: e.Tick, LedgerEntry: le}); err != nil {
			return fmt.Errorf("ledger: %w", err)
		}
	}
	return nil
}

func (l *TickLogger) Close() error {
	return errors.Join(l.ticks.Close(), l.ledger.Close())
}

// ReadJSONL decodes every line of one .jsonl.zst file into a fresh T.
func ReadJSONL[T any](path string, fn func(T) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()

	jd := json.NewDecoder(bufio.NewReader(dec))
	for {
		var v T
		if err := jd.Decode(&v); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		if err := fn(v); err != nil {
			return err
		}
	}
}
