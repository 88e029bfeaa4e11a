package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/apx-dev/apx/internal/logging"
	"github.com/apx-dev/apx/internal/outdir"
	"github.com/apx-dev/apx/internal/step"
	"github.com/apx-dev/apx/internal/supervisor"
)

// DefaultQuietPeriod is the debounce window for file-change triggers.
const DefaultQuietPeriod = 300 * time.Millisecond

// State is the runner's position in its session state machine.
type State string

const (
	// StateIdle means no run is in flight and triggers are accepted.
	StateIdle State = "idle"

	// StateRunning means a pipeline run is in flight.
	StateRunning State = "running"

	// StateStopped means the session was stopped; only Reset leaves it.
	StateStopped State = "stopped"
)

// Config holds everything a Runner needs.
type Config struct {
	// Steps is the pipeline in execution order. Order is preserved
	// verbatim; steps run strictly sequentially.
	Steps []step.Spec

	// Guard bootstraps the output directory before and after each step.
	Guard *outdir.Guard

	// Supervisor executes shell-command steps.
	Supervisor *supervisor.Supervisor

	// Logger receives run and step lifecycle entries.
	Logger *logging.Logger

	// QuietPeriod is the debounce window for ScheduleDebounced.
	// Zero means DefaultQuietPeriod.
	QuietPeriod time.Duration

	// OnError is invoked with the run error when a debounced run fails.
	// Trigger callers get the error as a return value instead.
	OnError func(error)
}

// Runner serializes pipeline runs for one build session.
// All state lives on the instance; it is safe for concurrent use.
type Runner struct {
	mu sync.Mutex

	steps   []step.Spec
	guard   *outdir.Guard
	sup     *supervisor.Supervisor
	log     *logging.Logger
	quiet   time.Duration
	onError func(error)

	running  bool
	stopping bool
	stopped  bool

	// Debounce latch: armed says whether a timer is live, gen identifies
	// the current arming. Reset and Stop disarm; a fire carrying a stale
	// generation lost a race to a disarm or a re-arm and is ignored, so
	// a re-armed timer always gets its full quiet period.
	timer *time.Timer
	armed bool
	gen   uint64

	sessionCtx    context.Context
	sessionCancel context.CancelFunc
}

// New creates a Runner in the Idle state.
func New(cfg Config) (*Runner, error) {
	if err := step.ValidateAll(cfg.Steps); err != nil {
		return nil, fmt.Errorf("invalid pipeline: %w", err)
	}
	if cfg.Guard == nil {
		return nil, errors.New("runner: Guard is required")
	}
	if cfg.Supervisor == nil {
		return nil, errors.New("runner: Supervisor is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NopLogger()
	}
	if cfg.QuietPeriod <= 0 {
		cfg.QuietPeriod = DefaultQuietPeriod
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		steps:         cfg.Steps,
		guard:         cfg.Guard,
		sup:           cfg.Supervisor,
		log:           cfg.Logger,
		quiet:         cfg.QuietPeriod,
		onError:       cfg.OnError,
		sessionCtx:    ctx,
		sessionCancel: cancel,
	}, nil
}

// State returns the runner's current state.
func (r *Runner) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch {
	case r.stopped:
		return StateStopped
	case r.running:
		return StateRunning
	default:
		return StateIdle
	}
}

// Trigger runs the pipeline once, blocking until it completes or aborts.
// It returns ErrRunInFlight when a run is already executing (the request
// is dropped) and ErrStopped after Stop. Step failures are returned so
// the host can mark the build failed; the runner is Idle again
// afterwards, ready for the next trigger.
func (r *Runner) Trigger() error {
	r.mu.Lock()
	if r.stopping || r.stopped {
		r.mu.Unlock()
		return ErrStopped
	}
	if r.running {
		r.mu.Unlock()
		r.log.Debug("trigger dropped, run already in flight")
		return ErrRunInFlight
	}
	r.running = true
	ctx := r.sessionCtx
	r.mu.Unlock()

	err := r.runSteps(ctx)

	r.mu.Lock()
	r.running = false
	r.mu.Unlock()
	return err
}

// ScheduleDebounced arms (or re-arms) the quiet-period timer. When the
// timer fires without being re-armed, the pipeline is triggered once —
// a burst of N calls inside the window collapses into a single run.
// No-op once the session is stopping.
func (r *Runner) ScheduleDebounced() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stopping || r.stopped {
		return
	}
	if r.armed && r.timer != nil {
		r.timer.Stop()
	}
	r.gen++
	gen := r.gen
	r.timer = time.AfterFunc(r.quiet, func() { r.debounceFired(gen) })
	r.armed = true
}

// DebounceArmed reports whether a debounce timer is pending.
func (r *Runner) DebounceArmed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.armed
}

// Stop ends the current session: no new step starts, the pending
// debounce timer is cancelled, and every tracked child process group is
// sent a termination signal. An in-flight shell command settles through
// the supervisor's normal exit handling. Idempotent.
func (r *Runner) Stop() {
	r.mu.Lock()
	if r.stopping {
		r.mu.Unlock()
		return
	}
	r.stopping = true
	r.stopped = true
	r.disarmLocked()
	cancel := r.sessionCancel
	r.mu.Unlock()

	r.log.Info("stopping pipeline")
	cancel()
	r.sup.TerminateAll()
}

// Reset clears all session state — stop flags, the debounce latch, and
// the tracked child-process set — in preparation for a new build
// session, and returns the runner to Idle.
func (r *Runner) Reset() {
	r.mu.Lock()
	r.disarmLocked()
	r.stopping = false
	r.stopped = false
	r.running = false
	if r.sessionCancel != nil {
		r.sessionCancel()
	}
	r.sessionCtx, r.sessionCancel = context.WithCancel(context.Background())
	r.mu.Unlock()

	r.sup.Reset()
	r.log.Debug("pipeline session reset")
}

// disarmLocked cancels the pending debounce timer. Caller holds r.mu.
func (r *Runner) disarmLocked() {
	if r.timer != nil {
		r.timer.Stop()
	}
	r.timer = nil
	r.armed = false
}

// debounceFired runs on the timer goroutine when the quiet period ends.
// gen is the arming that started this timer; a mismatch means the latch
// was disarmed or re-armed after the fire was already in flight, and the
// fire must not consume the newer arming.
func (r *Runner) debounceFired(gen uint64) {
	r.mu.Lock()
	if !r.armed || gen != r.gen {
		r.mu.Unlock()
		return
	}
	r.timer = nil
	r.armed = false
	r.mu.Unlock()

	err := r.Trigger()
	if err == nil || errors.Is(err, ErrRunInFlight) || errors.Is(err, ErrStopped) {
		return
	}
	if r.onError != nil {
		r.onError(err)
	}
}

// runSteps executes the pipeline in order, invoking the output guard
// defensively around every individual step.
func (r *Runner) runSteps(ctx context.Context) error {
	r.log.Info("pipeline run started", "steps", len(r.steps))
	runStart := time.Now()

	for _, spec := range r.steps {
		if r.isStopping() || ctx.Err() != nil {
			r.log.Debug("pipeline interrupted by stop", "step", spec.Name)
			return nil
		}

		r.guard.Ensure()
		stepStart := time.Now()
		err := r.runStep(ctx, spec)
		elapsed := time.Since(stepStart)
		r.guard.Ensure()

		if err != nil {
			if r.isStopping() {
				// Cancellation is not a failure.
				r.log.Debug("step interrupted by stop", "step", spec.Name)
				return nil
			}
			r.log.Error("step failed",
				"step", spec.Name, "elapsed", elapsed.Round(time.Millisecond).String(), "error", err)
			return fmt.Errorf("step %q failed after %s: %w",
				spec.Name, elapsed.Round(time.Millisecond), err)
		}
		r.log.Info("step completed",
			"step", spec.Name, "elapsed", elapsed.Round(time.Millisecond).String())
	}

	r.log.Info("pipeline run completed",
		"elapsed", time.Since(runStart).Round(time.Millisecond).String())
	return nil
}

// runStep dispatches one step to the supervisor or invokes the callback.
func (r *Runner) runStep(ctx context.Context, spec step.Spec) error {
	if spec.Run != "" {
		return r.sup.Run(ctx, spec.Run)
	}
	return spec.Call(ctx)
}

func (r *Runner) isStopping() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stopping
}
