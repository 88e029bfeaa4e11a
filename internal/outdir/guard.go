package outdir

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/apx-dev/apx/internal/logging"
)

// MarkerName is the ignore-marker file created inside the output directory.
const MarkerName = ".gitignore"

// markerContent ignores everything under the output directory.
const markerContent = "*\n"

// Guard idempotently bootstraps an output directory. It is safe for
// concurrent use; concurrent Ensure calls leave the directory in the
// same final state as a single call.
type Guard struct {
	mu  sync.Mutex
	dir string
	log *logging.Logger
}

// New creates a Guard for the given directory. An empty dir is allowed:
// Ensure becomes a logged no-op until Rebind provides one.
func New(dir string, log *logging.Logger) *Guard {
	if log == nil {
		log = logging.NopLogger()
	}
	return &Guard{dir: dir, log: log}
}

// Rebind points the Guard at a new output directory. Called when the
// host bundler resolves its configuration.
func (g *Guard) Rebind(dir string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.dir = dir
}

// Dir returns the directory currently guarded.
func (g *Guard) Dir() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.dir
}

// Ensure creates the output directory and its ignore marker if absent.
// It never returns an error: failures are logged and swallowed so that
// directory bookkeeping cannot abort a build.
func (g *Guard) Ensure() {
	g.mu.Lock()
	dir := g.dir
	g.mu.Unlock()

	if dir == "" {
		g.log.Debug("no output directory configured, skipping ensure")
		return
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		g.log.Warn("failed to create output directory", "dir", dir, "error", err)
		return
	}

	marker := filepath.Join(dir, MarkerName)
	if _, err := os.Stat(marker); err == nil {
		return
	}

	if err := os.WriteFile(marker, []byte(markerContent), 0o644); err != nil {
		g.log.Warn("failed to write ignore marker", "path", marker, "error", err)
	}
}
