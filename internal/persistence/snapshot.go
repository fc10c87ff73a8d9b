// Package persistence implements the listener's crash-safe state snapshot:
// the three pools (plus the listener's state map) serialized to a single
// JSON file, written atomically (temp file + rename) so a crash
// mid-write never leaves a corrupt snapshot on disk, per spec.md §4.6. The
// listener's config map goes to its own file through SaveConfig.
//
// This is grounded on the Python __save_queues/__load_queues pair
// (original_source/.../event_listener.py): write to a .tmp path in the
// same directory, then os.Rename over the final path, exactly mirroring
// the original's tempfile-then-os.replace sequence. The teacher's own
// artifact store (internal/artifacts, since removed from this tree — see
// DESIGN.md) used a similar temp+rename idiom for a different,
// multi-file use case; the single-file shape here is simpler and modeled
// directly on the Python source instead.
package persistence

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/avena-commons/eventcore/internal/eventmodel"
	"github.com/avena-commons/eventcore/internal/eventpool"
)

// EntrySnapshot is the serializable form of one eventpool.Metadata.
type EntrySnapshot struct {
	Event      *eventmodel.Event `json:"event"`
	AddedAt    time.Time         `json:"added_at"`
	RetryCount int               `json:"retry_count"`
	Priority   int               `json:"priority"`
}

// Snapshot is the full on-disk state of a listener at the moment of
// shutdown.
type Snapshot struct {
	SavedAt    time.Time              `json:"saved_at"`
	Incoming   []EntrySnapshot        `json:"incoming"`
	Processing []EntrySnapshot        `json:"processing"`
	Outgoing   []EntrySnapshot        `json:"outgoing"`
	State      map[string]interface{} `json:"state"`
}

func toEntrySnapshots(metas []*eventpool.Metadata) []EntrySnapshot {
	out := make([]EntrySnapshot, 0, len(metas))
	for _, m := range metas {
		out = append(out, EntrySnapshot{
			Event:      m.Event,
			AddedAt:    m.AddedAt,
			RetryCount: m.RetryCount,
			Priority:   m.Priority,
		})
	}
	return out
}

// BuildSnapshot captures the current contents of the three pools plus the
// listener's user-maintained application state map (spec.md §3's "state:
// user-maintained mapping... (persisted)").
func BuildSnapshot(incoming, processing, outgoing *eventpool.Pool, state map[string]interface{}) Snapshot {
	return Snapshot{
		SavedAt:    time.Now(),
		Incoming:   toEntrySnapshots(incoming.Snapshot()),
		Processing: toEntrySnapshots(processing.Snapshot()),
		Outgoing:   toEntrySnapshots(outgoing.Snapshot()),
		State:      state,
	}
}

// Save writes snapshot to path atomically: marshal, write to a temp file
// named after path's base name plus ".tmp-" and a random suffix in the same
// directory, fsync, then rename over path. A reader never
// observes a partially written file.
func Save(path string, snapshot Snapshot) error {
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create snapshot temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write snapshot temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("sync snapshot temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close snapshot temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename snapshot into place: %w", err)
	}
	return nil
}

// Load reads a snapshot previously written by Save. A missing file is not
// an error: it returns a zero-value Snapshot, matching the Python source's
// behavior of starting with empty queues when no state file exists yet.
func Load(path string) (Snapshot, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Snapshot{}, nil
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("read snapshot: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return Snapshot{}, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return snapshot, nil
}

// Restore replays a snapshot's entries back into the three pools,
// preserving each entry's original retry_count and priority (a plain
// Append would reset those, which would silently erase in-flight retry
// state across a restart).
func Restore(snapshot Snapshot, incoming, processing, outgoing *eventpool.Pool) {
	restoreInto(snapshot.Incoming, incoming)
	restoreInto(snapshot.Processing, processing)
	restoreInto(snapshot.Outgoing, outgoing)
}

func restoreInto(entries []EntrySnapshot, pool *eventpool.Pool) {
	for _, entry := range entries {
		pool.Append(entry.Event, entry.RetryCount, entry.Priority, nil)
	}
}
