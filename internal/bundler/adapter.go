package bundler

import (
	"strings"

	"github.com/apx-dev/apx/internal/logging"
	"github.com/apx-dev/apx/internal/outdir"
	"github.com/apx-dev/apx/internal/runner"
)

// Adapter maps host bundler lifecycle events onto pipeline operations.
// One Adapter serves one build session at a time; ConfigResolved starts
// a fresh session.
type Adapter struct {
	runner *runner.Runner
	guard  *outdir.Guard
	log    *logging.Logger

	// ignore holds substring/path-prefix patterns. A changed path that
	// contains any pattern, or begins with one, never schedules a run.
	// This is deliberate substring matching, not globbing: the host
	// reports absolute paths and the patterns name directories.
	ignore []string
}

// NewAdapter creates an Adapter around an existing runner and guard.
func NewAdapter(r *runner.Runner, g *outdir.Guard, ignore []string, log *logging.Logger) *Adapter {
	if log == nil {
		log = logging.NopLogger()
	}
	return &Adapter{
		runner: r,
		guard:  g,
		log:    log,
		ignore: ignore,
	}
}

// ConfigResolved begins a new build session: the guard is rebound to
// the freshly resolved output directory, all runner session state is
// cleared, and the directory is bootstrapped immediately so later
// defensive Ensure calls are cheap stat checks.
func (a *Adapter) ConfigResolved(outputDir string) {
	a.log.Info("bundler config resolved", "output_dir", outputDir)
	a.guard.Rebind(outputDir)
	a.runner.Reset()
	a.guard.Ensure()
}

// DevServerStarting is informational; the first run arrives through
// BuildStarting or a file change.
func (a *Adapter) DevServerStarting() {
	a.log.Info("dev server starting")
}

// DevServerClosed stops the session.
func (a *Adapter) DevServerClosed() {
	a.log.Info("dev server closed")
	a.runner.Stop()
}

// BuildStarting triggers a pipeline run unconditionally and blocks
// until it settles, returning the run error so the host can mark the
// build failed. An already-stopped session and a dropped trigger both
// come back as nil: neither is a build failure.
func (a *Adapter) BuildStarting() error {
	a.log.Info("build starting")
	err := a.runner.Trigger()
	switch err {
	case nil, runner.ErrRunInFlight, runner.ErrStopped:
		return nil
	default:
		return err
	}
}

// FileChanged schedules a debounced run unless the path matches a
// configured ignore pattern.
func (a *Adapter) FileChanged(path string) {
	if a.ignored(path) {
		a.log.Debug("change ignored", "path", path)
		return
	}
	a.log.Debug("change detected", "path", path)
	a.runner.ScheduleDebounced()
}

// BundleWritten re-asserts the output directory after the bundler has
// flushed artifacts into it.
func (a *Adapter) BundleWritten() {
	a.guard.Ensure()
}

// BundleClosed stops the session.
func (a *Adapter) BundleClosed() {
	a.log.Info("bundle closed")
	a.runner.Stop()
}

// ignored reports whether path matches any ignore pattern by substring
// or path-prefix.
func (a *Adapter) ignored(path string) bool {
	for _, pattern := range a.ignore {
		if pattern == "" {
			continue
		}
		if strings.Contains(path, pattern) || strings.HasPrefix(path, pattern) {
			return true
		}
	}
	return false
}
