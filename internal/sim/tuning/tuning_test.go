package tuning

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestLoad_ShippedConfigMatchesDefaults(t *testing.T) {
	got, err := Load("../../../configs/tuning.yaml")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(got, Defaults()) {
		t.Fatalf("configs/tuning.yaml drifted from Defaults():\n got=%+v\nwant=%+v", got, Defaults())
	}
	if got.SnapshotEveryTicks() != 2 {
		t.Fatalf("SnapshotEveryTicks=%d want 2", got.SnapshotEveryTicks())
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "tuning.yaml")
	if err := os.WriteFile(p, []byte("economy:\n  miner_cost: 200\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Economy.MinerCost != 200 {
		t.Fatalf("miner_cost=%d want 200", got.Economy.MinerCost)
	}
	if got.Economy.CreditsStart != 500 || got.TickHz != 60 {
		t.Fatalf("defaults lost: %+v", got)
	}
}

func TestLoad_RejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "tuning.yaml")
	if err := os.WriteFile(p, []byte("tick_hz: 60\nsnapshot_hz: 25\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err := Load(p)
	if err == nil || !strings.Contains(err.Error(), "multiple of snapshot_hz") {
		t.Fatalf("expected snapshot_hz error, got %v", err)
	}

	if err := os.WriteFile(p, []byte("tick_hz: [1,2\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(p); err == nil || !strings.HasPrefix(err.Error(), "tuning.yaml:") {
		t.Fatalf("expected yaml error, got %v", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if !os.IsNotExist(err) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}
