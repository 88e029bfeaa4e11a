package runner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/apx-dev/apx/internal/logging"
	"github.com/apx-dev/apx/internal/outdir"
	"github.com/apx-dev/apx/internal/step"
	"github.com/apx-dev/apx/internal/supervisor"
)

func newTestRunner(t *testing.T, steps []step.Spec, quiet time.Duration) (*Runner, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), ".apx")
	r, err := New(Config{
		Steps:       steps,
		Guard:       outdir.New(dir, logging.NopLogger()),
		Supervisor:  supervisor.New(logging.NopLogger()),
		Logger:      logging.NopLogger(),
		QuietPeriod: quiet,
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return r, dir
}

func TestTrigger_RunsStepsInOrder(t *testing.T) {
	var order []string
	var mu sync.Mutex
	record := func(name string) step.Spec {
		return step.Callback(name, func(ctx context.Context) error {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return nil
		})
	}

	r, _ := newTestRunner(t, []step.Spec{record("a"), record("b"), record("c")}, 0)

	if err := r.Trigger(); err != nil {
		t.Fatalf("Trigger = %v, want nil", err)
	}

	want := []string{"a", "b", "c"}
	if len(order) != len(want) {
		t.Fatalf("ran %d steps, want %d", len(order), len(want))
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("step %d = %q, want %q", i, order[i], want[i])
		}
	}
	if r.State() != StateIdle {
		t.Errorf("state = %v after run, want Idle", r.State())
	}
}

func TestTrigger_EnsuresOutputDirectory(t *testing.T) {
	r, dir := newTestRunner(t, []step.Spec{
		step.Callback("noop", func(ctx context.Context) error { return nil }),
	}, 0)

	if err := r.Trigger(); err != nil {
		t.Fatalf("Trigger = %v, want nil", err)
	}
	if _, err := os.Stat(filepath.Join(dir, outdir.MarkerName)); err != nil {
		t.Errorf("output guard did not create the ignore marker: %v", err)
	}
}

func TestTrigger_AbortsOnFirstFailure(t *testing.T) {
	var ranC atomic.Bool
	steps := []step.Spec{
		step.Command("a", "true"),
		step.Command("b", `sh -c "exit 2"`),
		step.Callback("c", func(ctx context.Context) error {
			ranC.Store(true)
			return nil
		}),
	}
	r, _ := newTestRunner(t, steps, 0)

	err := r.Trigger()
	if err == nil {
		t.Fatal("Trigger = nil, want step failure")
	}

	var exitErr *supervisor.ExitError
	if !errors.As(err, &exitErr) || exitErr.Code != 2 {
		t.Errorf("error = %v, want wrapped ExitError with code 2", err)
	}
	if ranC.Load() {
		t.Error("step c executed after step b failed")
	}
	if r.State() != StateIdle {
		t.Errorf("state = %v after failure, want Idle (recoverable)", r.State())
	}

	// The runner must accept the next trigger after a failure.
	if err := r.Trigger(); err == nil {
		t.Log("second run failed the same way, as expected")
	}
}

func TestTrigger_SecondTriggerDropped(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	var runs atomic.Int32

	steps := []step.Spec{
		step.Callback("block", func(ctx context.Context) error {
			runs.Add(1)
			close(entered)
			<-release
			return nil
		}),
	}
	r, _ := newTestRunner(t, steps, 0)

	firstDone := make(chan error, 1)
	go func() { firstDone <- r.Trigger() }()

	<-entered
	if err := r.Trigger(); !errors.Is(err, ErrRunInFlight) {
		t.Errorf("second Trigger = %v, want ErrRunInFlight", err)
	}
	close(release)

	if err := <-firstDone; err != nil {
		t.Errorf("first Trigger = %v, want nil", err)
	}
	if got := runs.Load(); got != 1 {
		t.Errorf("pipeline executed %d times, want 1", got)
	}
}

func TestScheduleDebounced_CoalescesBursts(t *testing.T) {
	var runs atomic.Int32
	steps := []step.Spec{
		step.Callback("count", func(ctx context.Context) error {
			runs.Add(1)
			return nil
		}),
	}
	r, _ := newTestRunner(t, steps, 30*time.Millisecond)

	for i := 0; i < 10; i++ {
		r.ScheduleDebounced()
		time.Sleep(2 * time.Millisecond)
	}

	time.Sleep(200 * time.Millisecond)
	if got := runs.Load(); got != 1 {
		t.Errorf("burst of 10 changes produced %d runs, want exactly 1", got)
	}
}

func TestScheduleDebounced_ResetDisarmsPendingTimer(t *testing.T) {
	var runs atomic.Int32
	steps := []step.Spec{
		step.Callback("count", func(ctx context.Context) error {
			runs.Add(1)
			return nil
		}),
	}
	r, _ := newTestRunner(t, steps, 30*time.Millisecond)

	r.ScheduleDebounced()
	if !r.DebounceArmed() {
		t.Fatal("latch should be armed after ScheduleDebounced")
	}
	r.Reset()
	if r.DebounceArmed() {
		t.Error("latch should be disarmed after Reset")
	}

	time.Sleep(100 * time.Millisecond)
	if got := runs.Load(); got != 0 {
		t.Errorf("disarmed timer still produced %d runs, want 0", got)
	}
}

func TestScheduleDebounced_StaleFireDoesNotConsumeRearm(t *testing.T) {
	var runs atomic.Int32
	steps := []step.Spec{
		step.Callback("count", func(ctx context.Context) error {
			runs.Add(1)
			return nil
		}),
	}
	r, _ := newTestRunner(t, steps, 30*time.Millisecond)

	// Arm the latch, then deliver a fire from an earlier arming, as if
	// its timer had expired just before a re-arm took the lock.
	r.ScheduleDebounced()
	r.debounceFired(0)

	if !r.DebounceArmed() {
		t.Fatal("stale fire consumed the live arming")
	}
	if got := runs.Load(); got != 0 {
		t.Fatalf("stale fire triggered %d runs, want 0", got)
	}

	// The live timer still fires exactly once.
	time.Sleep(200 * time.Millisecond)
	if got := runs.Load(); got != 1 {
		t.Errorf("runs = %d, want 1", got)
	}
}

func TestStop_TerminatesInFlightCommand(t *testing.T) {
	steps := []step.Spec{
		step.Command("long", "sleep 30"),
		step.Callback("after", func(ctx context.Context) error {
			t.Error("step after a stop must not execute")
			return nil
		}),
	}
	r, _ := newTestRunner(t, steps, 0)

	done := make(chan error, 1)
	go func() { done <- r.Trigger() }()

	// Wait for the run to start.
	deadline := time.Now().Add(5 * time.Second)
	for r.State() != StateRunning {
		if time.Now().After(deadline) {
			t.Fatal("run never started")
		}
		time.Sleep(10 * time.Millisecond)
	}
	// Give the sleep command a moment to spawn.
	time.Sleep(50 * time.Millisecond)

	r.Stop()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("stopped run returned %v, want nil (cancellation is not a failure)", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("run did not settle after Stop")
	}

	if r.State() != StateStopped {
		t.Errorf("state = %v, want Stopped", r.State())
	}
	if err := r.Trigger(); !errors.Is(err, ErrStopped) {
		t.Errorf("Trigger after Stop = %v, want ErrStopped", err)
	}

	// Stop is idempotent.
	r.Stop()
}

func TestReset_ReturnsStoppedRunnerToIdle(t *testing.T) {
	var runs atomic.Int32
	steps := []step.Spec{
		step.Callback("count", func(ctx context.Context) error {
			runs.Add(1)
			return nil
		}),
	}
	r, _ := newTestRunner(t, steps, 0)

	r.Stop()
	if r.State() != StateStopped {
		t.Fatalf("state = %v, want Stopped", r.State())
	}

	r.Reset()
	if r.State() != StateIdle {
		t.Fatalf("state = %v after Reset, want Idle", r.State())
	}
	if err := r.Trigger(); err != nil {
		t.Errorf("Trigger after Reset = %v, want nil", err)
	}
	if runs.Load() != 1 {
		t.Errorf("runs = %d, want 1", runs.Load())
	}
}

func TestRunner_MutualExclusionInvariant(t *testing.T) {
	var inFlight atomic.Int32
	var maxSeen atomic.Int32

	steps := []step.Spec{
		step.Callback("observe", func(ctx context.Context) error {
			n := inFlight.Add(1)
			if n > maxSeen.Load() {
				maxSeen.Store(n)
			}
			time.Sleep(5 * time.Millisecond)
			inFlight.Add(-1)
			return nil
		}),
	}
	r, _ := newTestRunner(t, steps, 0)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = r.Trigger()
		}()
	}
	wg.Wait()

	if maxSeen.Load() > 1 {
		t.Errorf("observed %d concurrent runs, want at most 1", maxSeen.Load())
	}
}

func TestRunner_OnErrorForDebouncedFailures(t *testing.T) {
	errCh := make(chan error, 1)
	dir := filepath.Join(t.TempDir(), ".apx")
	r, err := New(Config{
		Steps:       []step.Spec{step.Command("fail", `sh -c "exit 3"`)},
		Guard:       outdir.New(dir, logging.NopLogger()),
		Supervisor:  supervisor.New(logging.NopLogger()),
		Logger:      logging.NopLogger(),
		QuietPeriod: 20 * time.Millisecond,
		OnError:     func(e error) { errCh <- e },
	})
	if err != nil {
		t.Fatal(err)
	}

	r.ScheduleDebounced()

	select {
	case e := <-errCh:
		var exitErr *supervisor.ExitError
		if !errors.As(e, &exitErr) || exitErr.Code != 3 {
			t.Errorf("OnError got %v, want ExitError code 3", e)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("OnError was never invoked for a failed debounced run")
	}
}

func TestNew_RejectsInvalidSteps(t *testing.T) {
	dir := filepath.Join(t.TempDir(), ".apx")
	_, err := New(Config{
		Steps:      []step.Spec{{Name: "nameless"}},
		Guard:      outdir.New(dir, logging.NopLogger()),
		Supervisor: supervisor.New(logging.NopLogger()),
	})
	if !errors.Is(err, step.ErrMissingAction) {
		t.Errorf("New = %v, want ErrMissingAction", err)
	}
}
