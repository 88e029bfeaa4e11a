package bundler

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/apx-dev/apx/internal/logging"
)

// Watcher feeds fileChanged events to an Adapter from the local
// filesystem. It watches a directory tree recursively, registering new
// subdirectories as they appear, and runs until its context is
// cancelled.
type Watcher struct {
	adapter *Adapter
	fsw     *fsnotify.Watcher
	log     *logging.Logger
	root    string
}

// NewWatcher creates a Watcher rooted at root. Every existing
// subdirectory is registered up front; ignored paths are never
// registered, so events below them are not even delivered.
func NewWatcher(root string, adapter *Adapter, log *logging.Logger) (*Watcher, error) {
	if log == nil {
		log = logging.NopLogger()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create filesystem watcher: %w", err)
	}

	w := &Watcher{
		adapter: adapter,
		fsw:     fsw,
		log:     log,
		root:    root,
	}

	if err := w.addTree(root); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// addTree registers dir and all its non-ignored subdirectories.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// A directory that vanished mid-walk is not fatal.
			w.log.Debug("skipping unreadable path", "path", path, "error", err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if w.adapter.ignored(path) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}

// Run pumps filesystem events into the adapter until ctx is cancelled
// or the underlying watcher closes its channels.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()
	w.log.Info("watching for changes", "root", w.root)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handle(ev)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watcher error", "error", err)
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	// Chmod-only events carry no content change.
	if ev.Op == fsnotify.Chmod {
		return
	}

	if ev.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if !w.adapter.ignored(ev.Name) {
				if err := w.addTree(ev.Name); err != nil {
					w.log.Warn("failed to watch new directory", "path", ev.Name, "error", err)
				}
			}
			return
		}
	}

	w.adapter.FileChanged(ev.Name)
}
