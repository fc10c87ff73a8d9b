package persistence

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/avena-commons/eventcore/internal/eventmodel"
	"github.com/avena-commons/eventcore/internal/eventpool"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	incoming := eventpool.NewIncoming(0, eventpool.OverflowUnlimited, nil)
	processing := eventpool.NewProcessing(0, eventpool.OverflowUnlimited, nil)
	outgoing := eventpool.NewOutgoing(0, eventpool.OverflowUnlimited, nil)

	e := &eventmodel.Event{
		Source: "a", Destination: "b", EventType: "ping",
		Timestamp: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	outgoing.AppendWithRetry(e, 2)

	snap := BuildSnapshot(incoming, processing, outgoing, map[string]interface{}{"k": "v"})
	if len(snap.Outgoing) != 1 || snap.Outgoing[0].RetryCount != 2 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if snap.State["k"] != "v" {
		t.Fatalf("expected state captured in snapshot, got %+v", snap.State)
	}

	path := filepath.Join(t.TempDir(), "state.json")
	if err := Save(path, snap); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded.Outgoing) != 1 {
		t.Fatalf("expected 1 outgoing entry after reload, got %d", len(loaded.Outgoing))
	}
	if loaded.State["k"] != "v" {
		t.Fatalf("expected state preserved across save/load, got %+v", loaded.State)
	}

	freshOutgoing := eventpool.NewOutgoing(0, eventpool.OverflowUnlimited, nil)
	Restore(loaded, incoming, processing, freshOutgoing)
	if freshOutgoing.Len() != 1 {
		t.Fatalf("expected restored pool to have 1 entry, got %d", freshOutgoing.Len())
	}
	m := freshOutgoing.PeekOldest()
	if m.RetryCount != 2 {
		t.Fatalf("expected retry_count preserved across restore, got %d", m.RetryCount)
	}
}

func TestLoadMissingFileReturnsEmptySnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "does-not-exist.json")
	snap, err := Load(path)
	if err != nil {
		t.Fatalf("expected no error for missing file, got %v", err)
	}
	if len(snap.Incoming) != 0 || len(snap.Processing) != 0 || len(snap.Outgoing) != 0 {
		t.Fatalf("expected empty snapshot, got %+v", snap)
	}
}

func TestConfigSaveLoadRoundTrip(t *testing.T) {
	type cfg struct {
		ListenAddr string `json:"listen_addr"`
		MaxRetries int    `json:"max_retries"`
	}

	path := filepath.Join(t.TempDir(), "config.json")
	original := cfg{ListenAddr: ":9090", MaxRetries: 7}
	if err := SaveConfig(path, original); err != nil {
		t.Fatalf("save config: %v", err)
	}

	var loaded cfg
	if err := LoadConfig(path, &loaded); err != nil {
		t.Fatalf("load config: %v", err)
	}
	if loaded != original {
		t.Fatalf("expected %+v, got %+v", original, loaded)
	}
}

func TestLoadConfigMissingFileLeavesDstUnmodified(t *testing.T) {
	type cfg struct{ X int }
	dst := cfg{X: 42}
	path := filepath.Join(t.TempDir(), "missing.json")
	if err := LoadConfig(path, &dst); err != nil {
		t.Fatalf("expected no error for missing file, got %v", err)
	}
	if dst.X != 42 {
		t.Fatalf("expected dst left unmodified, got %+v", dst)
	}
}
