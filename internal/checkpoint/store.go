// Package checkpoint persists per-project scrape progress as a single JSON
// document. Saves are atomic (write-to-temp-then-rename) so a crash never
// exposes a partially written checkpoint.
package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Progress records how far a single project has been scraped.
type Progress struct {
	// Offset is the next startAt value for the project's search cursor.
	// Monotonically non-decreasing while a run progresses.
	Offset int `json:"offset"`

	// Completed marks the project's result set as exhausted. No further
	// fetches are issued for a completed project until an explicit reset.
	Completed bool `json:"completed"`
}

// Checkpoint maps project identifiers to their progress.
type Checkpoint map[string]Progress

// Clone returns a deep copy of the checkpoint.
func (c Checkpoint) Clone() Checkpoint {
	out := make(Checkpoint, len(c))
	for project, progress := range c {
		out[project] = progress
	}
	return out
}

// Store is a file-backed checkpoint store. It is the single source of
// truth for where a run resumes after interruption.
type Store struct {
	path string
}

// NewStore creates a store persisting to path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the checkpoint file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the persisted checkpoint. Returns an empty checkpoint when no
// state has been persisted yet.
func (s *Store) Load() (Checkpoint, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Checkpoint{}, nil
		}
		return nil, fmt.Errorf("read checkpoint: %w", err)
	}

	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("decode checkpoint: %w", err)
	}
	if cp == nil {
		cp = Checkpoint{}
	}
	return cp, nil
}

// Save persists the entire checkpoint snapshot atomically. The new state
// is either fully visible or not visible at all after a crash.
func (s *Store) Save(cp Checkpoint) error {
	data, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("encode checkpoint: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create checkpoint dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".checkpoint-*")
	if err != nil {
		return fmt.Errorf("create temp checkpoint: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp checkpoint: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync temp checkpoint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp checkpoint: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace checkpoint: %w", err)
	}
	return nil
}

// Reset removes all persisted state. Safe to call when nothing has been
// persisted.
func (s *Store) Reset() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove checkpoint: %w", err)
	}
	return nil
}
