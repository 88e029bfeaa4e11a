package supervisor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"

	shellwords "github.com/mattn/go-shellwords"

	"github.com/apx-dev/apx/internal/logging"
)

// Supervisor runs shell commands as tracked child processes.
// It is safe for concurrent use, though the pipeline runner only ever
// executes one command at a time.
type Supervisor struct {
	mu     sync.Mutex
	procs  map[int]string // pid -> program name
	log    *logging.Logger
	stdout io.Writer
	stderr io.Writer
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithOutput redirects the child processes' standard streams.
// By default they are inherited from the parent.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(s *Supervisor) {
		s.stdout = stdout
		s.stderr = stderr
	}
}

// New creates a Supervisor with no tracked processes.
func New(log *logging.Logger, opts ...Option) *Supervisor {
	if log == nil {
		log = logging.NopLogger()
	}
	s := &Supervisor{
		procs:  make(map[int]string),
		log:    log,
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run executes command as a child process in its own process group and
// blocks until it exits. The command string is split into a program and
// arguments; no shell-injection protection is applied — callers are
// trusted to supply safe command strings.
//
// The result is nil for a zero exit code and for a signal-terminated
// exit (intentional shutdown must stay silent), an [*ExitError] for a
// non-zero exit code, and the spawn error if the process never started.
//
// ctx is the session's cancellation token: once it is cancelled no new
// command starts. A command already running is not aborted here — Stop
// delivers signals and this call still settles through the exit handler.
func (s *Supervisor) Run(ctx context.Context, command string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	args, err := shellwords.Parse(command)
	if err != nil {
		return fmt.Errorf("failed to parse command %q: %w", command, err)
	}
	if len(args) == 0 {
		return ErrEmptyCommand
	}

	cmd := exec.Command(args[0], args[1:]...)
	cmd.Stdout = s.stdout
	cmd.Stderr = s.stderr
	// Own process group, so Terminate reaches descendants too.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %q: %w", args[0], err)
	}

	pid := cmd.Process.Pid
	s.track(pid, args[0])
	s.log.Debug("command started", "command", args[0], "pid", pid)

	// The single settlement path: even when a termination signal lands
	// mid-execution, the outcome is decided here by the exit status.
	waitErr := cmd.Wait()
	s.untrack(pid)

	if waitErr == nil {
		return nil
	}

	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
			if ctx.Err() == nil {
				// Killed from outside a shutdown. Still treated as a
				// clean exit for cleanup, but worth surfacing.
				s.log.Warn("command terminated by signal outside shutdown",
					"command", args[0], "pid", pid, "signal", status.Signal().String())
			} else {
				s.log.Debug("command terminated during shutdown",
					"command", args[0], "pid", pid, "signal", status.Signal().String())
			}
			return nil
		}
		return &ExitError{Code: exitErr.ExitCode()}
	}

	return waitErr
}

// Terminate sends SIGTERM to the process group of pid, escalating to
// SIGKILL when the signal cannot be delivered. Untracked PIDs are
// no-ops, which makes repeated calls on an exited handle safe.
func (s *Supervisor) Terminate(pid int) {
	s.mu.Lock()
	name, ok := s.procs[pid]
	s.mu.Unlock()
	if !ok {
		return
	}

	s.log.Debug("terminating process group", "command", name, "pid", pid)
	if err := syscall.Kill(-pid, syscall.SIGTERM); err != nil {
		s.log.Warn("graceful termination failed, escalating",
			"command", name, "pid", pid, "error", err)
		_ = syscall.Kill(-pid, syscall.SIGKILL)
	}
}

// TerminateAll terminates every tracked process group.
func (s *Supervisor) TerminateAll() {
	s.mu.Lock()
	pids := make([]int, 0, len(s.procs))
	for pid := range s.procs {
		pids = append(pids, pid)
	}
	s.mu.Unlock()

	for _, pid := range pids {
		s.Terminate(pid)
	}
}

// Reset clears the tracked process set in preparation for a new build
// session. It does not signal anything.
func (s *Supervisor) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.procs = make(map[int]string)
}

// Tracked returns the number of processes currently tracked.
func (s *Supervisor) Tracked() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.procs)
}

func (s *Supervisor) track(pid int, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.procs[pid] = name
}

func (s *Supervisor) untrack(pid int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.procs, pid)
}
