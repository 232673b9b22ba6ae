package indexdb

import (
	"testing"

	"orerush.io/internal/sim/world"
	"orerush.io/internal/transport/session"
)

func TestSQLiteIndex_QueueDropStats(t *testing.T) {
	s := &SQLiteIndex{ch: make(chan req, 1)}
	s.ch <- req{kind: reqTick, tick: world.TickLogEntry{Tick: 1}}

	if err := s.WriteTick(world.TickLogEntry{Tick: 2}); err != nil {
		t.Fatalf("WriteTick must not fail when full: %v", err)
	}
	s.RecordSessionEvent(session.Event{Kind: session.EventJoined, SessionID: "s1", PlayerID: 1})

	st := s.Stats()
	if st.DropTickTotal != 1 {
		t.Fatalf("DropTickTotal=%d want=1", st.DropTickTotal)
	}
	if st.DropSessionTotal != 1 {
		t.Fatalf("DropSessionTotal=%d want=1", st.DropSessionTotal)
	}
	if st.QueueDepth != 1 || st.QueueCapacity != 1 {
		t.Fatalf("queue stats mismatch: depth=%d cap=%d", st.QueueDepth, st.QueueCapacity)
	}
}

func TestSQLiteIndex_NilIsNoop(t *testing.T) {
	var s *SQLiteIndex
	if err := s.WriteTick(world.TickLogEntry{Tick: 1}); err != nil {
		t.Fatalf("nil WriteTick: %v", err)
	}
	s.RecordSessionEvent(session.Event{})
	if st := s.Stats(); st != (Stats{}) {
		t.Fatalf("nil stats=%+v", st)
	}
}
