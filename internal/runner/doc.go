// Package runner executes the build pipeline: an ordered list of step
// specs run strictly sequentially, at most one run in flight at a time.
//
// # State machine
//
// A Runner moves Idle → Running → (Idle | Stopped). Stopped is terminal
// for the current build session; [Runner.Reset] returns it to Idle when
// the host bundler resolves a new configuration.
//
// A [Runner.Trigger] while a run is in flight is dropped, not queued —
// the next debounce cycle re-checks state naturally. File-change events
// go through [Runner.ScheduleDebounced], which coalesces a burst of
// events inside the quiet period into exactly one run. The debounce is
// an explicit armed/disarmed latch rather than a bare nullable timer so
// that Reset cannot race a pending fire.
//
// Each Runner owns its complete run state; multiple independent Runners
// can coexist in one process, which is what the tests rely on.
//
// # Failure semantics
//
// The first failing step aborts the remainder of the run. The failure is
// logged with the step name and elapsed time and returned to the caller
// so the host can mark the build failed; the Runner itself returns to
// Idle, ready for the next trigger. A stop mid-run is not a failure:
// signal-terminated commands settle silently and remaining steps are
// skipped.
package runner
