package vfs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/l3aro/pyresolve/internal/log"
)

var skippedWatchDirs = map[string]bool{
	".git":          true,
	"__pycache__":   true,
	"node_modules":  true,
	".venv":         true,
	"venv":          true,
	".tox":          true,
	".mypy_cache":   true,
	".pytest_cache": true,
}

// Invalidator receives paths whose cached content is stale.
type Invalidator interface {
	Invalidate(path string)
	InvalidatePrefix(dir string) int
}

// Watcher invalidates cached sources when files under a root change.
type Watcher struct {
	watcher *fsnotify.Watcher
	target  Invalidator
	logger  log.Logger
}

// NewWatcher starts watching every directory below root.
func NewWatcher(root string, target Invalidator, logger log.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	w := &Watcher{watcher: fw, target: target, logger: logger}
	if err := w.addDirs(root); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch directories: %w", err)
	}
	return w, nil
}

// Run processes events until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", "error", err)
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

func (w *Watcher) handle(event fsnotify.Event) {
	if !isRelevantChange(event) {
		return
	}
	switch {
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		// the path may have been a directory; drop everything below it too
		w.target.Invalidate(event.Name)
		w.target.InvalidatePrefix(event.Name)
	case event.Has(fsnotify.Create):
		w.target.Invalidate(event.Name)
		w.addIfDirectory(event.Name)
	default:
		w.target.Invalidate(event.Name)
	}
	w.logger.Debug("invalidated cached source", "path", event.Name, "op", event.Op.String())
}

func isRelevantChange(event fsnotify.Event) bool {
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
		event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)
}

func (w *Watcher) addDirs(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if skippedWatchDirs[d.Name()] {
				return filepath.SkipDir
			}
			return w.watcher.Add(path)
		}
		return nil
	})
}

func (w *Watcher) addIfDirectory(path string) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return
	}
	_ = w.addDirs(path)
}
