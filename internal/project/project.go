package project

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

const (
	// DotDir is the project-local state directory.
	DotDir = ".apx"

	// RecordName is the project record file inside DotDir.
	RecordName = "project.json"

	// BuildDir is where build artifacts are staged.
	BuildDir = ".build"
)

// ProcessRecord is one registered dev process.
type ProcessRecord struct {
	PID       int       `json:"pid"`
	Port      int       `json:"port,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Record is the persisted project state in .apx/project.json.
type Record struct {
	// ApplicationID is assigned on first touch and stable afterwards.
	ApplicationID string `json:"application_id"`

	// Processes maps a process name ("frontend", "backend", "openapi")
	// to its last known record. Stale entries are cleaned by the dev
	// manager, not here.
	Processes map[string]ProcessRecord `json:"processes"`
}

// Store reads and writes the project record for one project root.
type Store struct {
	root string
}

// NewStore creates a Store rooted at the project directory.
func NewStore(root string) *Store {
	return &Store{root: root}
}

// DotPath returns the project's .apx directory.
func (s *Store) DotPath() string {
	return filepath.Join(s.root, DotDir)
}

// recordPath returns the project.json path.
func (s *Store) recordPath() string {
	return filepath.Join(s.DotPath(), RecordName)
}

// Load returns the project record, creating it with a fresh application
// id when the file is absent or unreadable. A corrupt record is
// regenerated rather than surfaced: losing the process registry is
// recoverable, blocking every command on a bad JSON file is not.
func (s *Store) Load() (*Record, error) {
	data, err := os.ReadFile(s.recordPath())
	if err == nil {
		var rec Record
		if jsonErr := json.Unmarshal(data, &rec); jsonErr == nil && rec.ApplicationID != "" {
			if rec.Processes == nil {
				rec.Processes = make(map[string]ProcessRecord)
			}
			return &rec, nil
		}
	}

	rec := &Record{
		ApplicationID: uuid.NewString(),
		Processes:     make(map[string]ProcessRecord),
	}
	if err := s.Save(rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Save writes the record atomically: a temp file in the same directory
// renamed over project.json, so a crash never leaves a half-written
// record behind.
func (s *Store) Save(rec *Record) error {
	if err := os.MkdirAll(s.DotPath(), 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", s.DotPath(), err)
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode project record: %w", err)
	}

	tmp, err := os.CreateTemp(s.DotPath(), RecordName+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp record: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write project record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close project record: %w", err)
	}
	if err := os.Rename(tmpName, s.recordPath()); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace project record: %w", err)
	}
	return nil
}

// SetProcess records a running dev process and persists the record.
func (s *Store) SetProcess(name string, proc ProcessRecord) error {
	rec, err := s.Load()
	if err != nil {
		return err
	}
	rec.Processes[name] = proc
	return s.Save(rec)
}

// ClearProcess removes a dev process entry and persists the record.
// Clearing an absent entry is a no-op.
func (s *Store) ClearProcess(name string) error {
	rec, err := s.Load()
	if err != nil {
		return err
	}
	if _, ok := rec.Processes[name]; !ok {
		return nil
	}
	delete(rec.Processes, name)
	return s.Save(rec)
}
