package supervisor

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/apx-dev/apx/internal/logging"
)

func TestRun_SuccessfulExit(t *testing.T) {
	s := New(logging.NopLogger())

	if err := s.Run(context.Background(), "true"); err != nil {
		t.Errorf("Run(true) = %v, want nil", err)
	}
	if s.Tracked() != 0 {
		t.Errorf("tracked = %d after exit, want 0", s.Tracked())
	}
}

func TestRun_NonZeroExitCode(t *testing.T) {
	s := New(logging.NopLogger())

	err := s.Run(context.Background(), `sh -c "exit 2"`)

	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("Run = %v, want *ExitError", err)
	}
	if exitErr.Code != 2 {
		t.Errorf("exit code = %d, want 2", exitErr.Code)
	}
}

func TestRun_CapturesOutput(t *testing.T) {
	var out bytes.Buffer
	s := New(logging.NopLogger(), WithOutput(&out, &out))

	if err := s.Run(context.Background(), "echo hello"); err != nil {
		t.Fatalf("Run = %v, want nil", err)
	}
	if got := out.String(); got != "hello\n" {
		t.Errorf("output = %q, want %q", got, "hello\n")
	}
}

func TestRun_EmptyCommand(t *testing.T) {
	s := New(logging.NopLogger())

	if err := s.Run(context.Background(), "   "); !errors.Is(err, ErrEmptyCommand) {
		t.Errorf("Run = %v, want ErrEmptyCommand", err)
	}
}

func TestRun_CancelledContextStartsNothing(t *testing.T) {
	s := New(logging.NopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := s.Run(ctx, "true"); !errors.Is(err, context.Canceled) {
		t.Errorf("Run on cancelled ctx = %v, want context.Canceled", err)
	}
	if s.Tracked() != 0 {
		t.Errorf("tracked = %d, want 0", s.Tracked())
	}
}

func TestRun_SignalTerminationIsNotAnError(t *testing.T) {
	s := New(logging.NopLogger())

	done := make(chan error, 1)
	go func() {
		done <- s.Run(context.Background(), "sleep 30")
	}()

	// Wait for the process to be tracked, then terminate it.
	deadline := time.Now().Add(5 * time.Second)
	for s.Tracked() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("process was never tracked")
		}
		time.Sleep(10 * time.Millisecond)
	}
	s.TerminateAll()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("signal-terminated Run = %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not settle after termination")
	}

	if s.Tracked() != 0 {
		t.Errorf("tracked = %d after termination, want 0", s.Tracked())
	}
}

func TestTerminate_UntrackedPIDIsNoOp(t *testing.T) {
	s := New(logging.NopLogger())

	// Must not panic or signal anything.
	s.Terminate(999999)
	s.TerminateAll()
}

func TestReset_ClearsTracking(t *testing.T) {
	s := New(logging.NopLogger())
	s.track(12345, "fake")

	s.Reset()

	if s.Tracked() != 0 {
		t.Errorf("tracked = %d after reset, want 0", s.Tracked())
	}
}

func TestRun_QuotedArguments(t *testing.T) {
	var out bytes.Buffer
	s := New(logging.NopLogger(), WithOutput(&out, &out))

	if err := s.Run(context.Background(), `echo "two words"`); err != nil {
		t.Fatalf("Run = %v, want nil", err)
	}
	if got := out.String(); got != "two words\n" {
		t.Errorf("output = %q, want %q", got, "two words\n")
	}
}
