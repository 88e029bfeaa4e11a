package project

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestStore_LoadCreatesRecord(t *testing.T) {
	s := NewStore(t.TempDir())

	rec, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := uuid.Parse(rec.ApplicationID); err != nil {
		t.Errorf("application id %q is not a uuid: %v", rec.ApplicationID, err)
	}
	if rec.Processes == nil {
		t.Error("processes map is nil")
	}
	if _, err := os.Stat(filepath.Join(s.DotPath(), RecordName)); err != nil {
		t.Errorf("record file was not persisted: %v", err)
	}
}

func TestStore_ApplicationIDIsStable(t *testing.T) {
	s := NewStore(t.TempDir())

	first, err := s.Load()
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.Load()
	if err != nil {
		t.Fatal(err)
	}
	if first.ApplicationID != second.ApplicationID {
		t.Errorf("application id changed across loads: %q then %q",
			first.ApplicationID, second.ApplicationID)
	}
}

func TestStore_CorruptRecordIsRegenerated(t *testing.T) {
	root := t.TempDir()
	s := NewStore(root)

	if err := os.MkdirAll(s.DotPath(), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(s.DotPath(), RecordName), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	rec, err := s.Load()
	if err != nil {
		t.Fatalf("Load on corrupt record: %v", err)
	}
	if _, err := uuid.Parse(rec.ApplicationID); err != nil {
		t.Errorf("regenerated id %q is not a uuid", rec.ApplicationID)
	}
}

func TestStore_ProcessRoundTrip(t *testing.T) {
	s := NewStore(t.TempDir())

	proc := ProcessRecord{PID: 4242, Port: 8000, CreatedAt: time.Now().UTC().Truncate(time.Second)}
	if err := s.SetProcess("backend", proc); err != nil {
		t.Fatalf("SetProcess: %v", err)
	}

	rec, err := s.Load()
	if err != nil {
		t.Fatal(err)
	}
	got, ok := rec.Processes["backend"]
	if !ok {
		t.Fatal("backend process not recorded")
	}
	if got.PID != proc.PID || got.Port != proc.Port || !got.CreatedAt.Equal(proc.CreatedAt) {
		t.Errorf("round-tripped record = %+v, want %+v", got, proc)
	}

	if err := s.ClearProcess("backend"); err != nil {
		t.Fatalf("ClearProcess: %v", err)
	}
	rec, err = s.Load()
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := rec.Processes["backend"]; ok {
		t.Error("backend process still present after ClearProcess")
	}

	// Clearing an absent entry is a no-op.
	if err := s.ClearProcess("backend"); err != nil {
		t.Errorf("ClearProcess on absent entry = %v, want nil", err)
	}
}

func TestLoadAppConfig(t *testing.T) {
	root := t.TempDir()
	manifest := `command: ["uvicorn", "server.app:app"]
env:
  - name: LOG_LEVEL
    value: debug
  - name: DB_TOKEN
    valueFrom: db-secret
`
	if err := os.WriteFile(filepath.Join(root, AppConfigName), []byte(manifest), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadAppConfig(root)
	if err != nil {
		t.Fatalf("LoadAppConfig: %v", err)
	}
	if len(cfg.Command) != 2 || cfg.Command[0] != "uvicorn" {
		t.Errorf("command = %v, want [uvicorn server.app:app]", cfg.Command)
	}
	if len(cfg.Env) != 2 {
		t.Fatalf("env entries = %d, want 2", len(cfg.Env))
	}
	if cfg.Env[0].Value != "debug" || cfg.Env[1].ValueFrom != "db-secret" {
		t.Errorf("env = %+v", cfg.Env)
	}
}

func TestLoadAppConfig_MissingCommand(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, AppConfigName), []byte("env: []\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadAppConfig(root); err == nil {
		t.Error("LoadAppConfig accepted a manifest without a command")
	}
}
