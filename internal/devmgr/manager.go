package devmgr

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	shellwords "github.com/mattn/go-shellwords"

	"github.com/apx-dev/apx/internal/logging"
	"github.com/apx-dev/apx/internal/project"
)

// StopTimeout is how long a process tree gets to exit after SIGTERM
// before it is killed.
const StopTimeout = 5 * time.Second

// Status is the liveness of one managed process.
type Status struct {
	Name    string
	Running bool
	PID     int
	Port    int
	Since   time.Time
}

// Manager starts and stops detached dev processes for one project.
type Manager struct {
	store  *project.Store
	log    *logging.Logger
	logDir string
}

// New creates a Manager. Detached process output goes to per-process
// log files under logDir.
func New(store *project.Store, logDir string, log *logging.Logger) *Manager {
	if log == nil {
		log = logging.NopLogger()
	}
	return &Manager{store: store, log: log, logDir: logDir}
}

// Start launches command as a detached process registered under name.
// The child gets its own session so Stop can signal the whole tree, and
// its stdout/stderr are appended to {logDir}/{name}.out.log. A live
// recorded PID refuses the start; a stale record is cleaned and the
// start proceeds.
func (m *Manager) Start(name, command string, port int) (int, error) {
	rec, err := m.store.Load()
	if err != nil {
		return 0, err
	}
	if existing, ok := rec.Processes[name]; ok {
		if alive(existing.PID) {
			return 0, fmt.Errorf("%s (pid %d): %w", name, existing.PID, ErrAlreadyRunning)
		}
		m.log.Debug("cleaning stale process record", "process", name, "pid", existing.PID)
		if err := m.store.ClearProcess(name); err != nil {
			return 0, err
		}
	}

	args, err := shellwords.Parse(command)
	if err != nil {
		return 0, fmt.Errorf("failed to parse command for %s: %w", name, err)
	}
	if len(args) == 0 {
		return 0, fmt.Errorf("%s has an empty command", name)
	}

	out, err := m.openOutput(name)
	if err != nil {
		return 0, err
	}
	defer out.Close()

	cmd := exec.Command(args[0], args[1:]...)
	cmd.Stdout = out
	cmd.Stderr = out
	cmd.Stdin = nil
	// New session: the child survives this apx invocation and is
	// signalable as a group via its negative PID.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("failed to start %s: %w", name, err)
	}
	pid := cmd.Process.Pid

	// Detach: the child is reaped by init, not by us.
	if err := cmd.Process.Release(); err != nil {
		m.log.Warn("failed to release process handle", "process", name, "error", err)
	}

	if err := m.store.SetProcess(name, project.ProcessRecord{
		PID:       pid,
		Port:      port,
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		// The process is up but unrecorded; bring it back down.
		_ = syscall.Kill(-pid, syscall.SIGKILL)
		return 0, err
	}

	m.log.Info("process started", "process", name, "pid", pid, "port", port)
	return pid, nil
}

// Stop terminates the named process tree: SIGTERM to the session's
// process group, then SIGKILL if it is still alive after StopTimeout.
// The record is cleared either way.
func (m *Manager) Stop(name string) error {
	rec, err := m.store.Load()
	if err != nil {
		return err
	}
	proc, ok := rec.Processes[name]
	if !ok {
		return fmt.Errorf("%s: %w", name, ErrNotRunning)
	}

	defer func() {
		if err := m.store.ClearProcess(name); err != nil {
			m.log.Warn("failed to clear process record", "process", name, "error", err)
		}
	}()

	if !alive(proc.PID) {
		m.log.Debug("process already gone", "process", name, "pid", proc.PID)
		return nil
	}

	m.log.Info("stopping process", "process", name, "pid", proc.PID)
	if err := syscall.Kill(-proc.PID, syscall.SIGTERM); err != nil {
		_ = syscall.Kill(-proc.PID, syscall.SIGKILL)
		return nil
	}

	deadline := time.Now().Add(StopTimeout)
	for time.Now().Before(deadline) {
		if !alive(proc.PID) {
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}

	m.log.Warn("process did not exit gracefully, killing", "process", name, "pid", proc.PID)
	_ = syscall.Kill(-proc.PID, syscall.SIGKILL)
	return nil
}

// StopAll stops every recorded process, returning the first error.
func (m *Manager) StopAll() error {
	rec, err := m.store.Load()
	if err != nil {
		return err
	}

	var firstErr error
	for name := range rec.Processes {
		if err := m.Stop(name); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Statuses reports every recorded process, sorted by name. Dead records
// are reported as not running but left in place; Start cleans them.
func (m *Manager) Statuses() ([]Status, error) {
	rec, err := m.store.Load()
	if err != nil {
		return nil, err
	}

	statuses := make([]Status, 0, len(rec.Processes))
	for name, proc := range rec.Processes {
		statuses = append(statuses, Status{
			Name:    name,
			Running: alive(proc.PID),
			PID:     proc.PID,
			Port:    proc.Port,
			Since:   proc.CreatedAt,
		})
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].Name < statuses[j].Name })
	return statuses, nil
}

// openOutput opens the append-mode output file for a process.
func (m *Manager) openOutput(name string) (*os.File, error) {
	if err := os.MkdirAll(m.logDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	path := filepath.Join(m.logDir, name+".out.log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open output log for %s: %w", name, err)
	}
	return f, nil
}

// alive reports whether pid exists. Signal 0 performs the existence
// check without delivering anything.
func alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	return syscall.Kill(pid, 0) == nil
}
