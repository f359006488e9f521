package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/sambeau/filtr/log"
)

// debounce is how long rapid saves are folded into one run.
const debounce = 100 * time.Millisecond

// scriptWatcher re-runs a script each time it is saved
type scriptWatcher struct {
	watcher *fsnotify.Watcher
	script  string
	rerun   func()
	logger  log.Logger

	// Track last change time to debounce rapid changes
	mu         sync.Mutex
	lastChange time.Time
}

// watchScript runs the script once and again after every save until ctx is
// done. Runs happen on the event loop, so they never overlap.
func watchScript(ctx context.Context, script string, logger log.Logger, rerun func()) error {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsWatcher.Close()

	abs, err := filepath.Abs(script)
	if err != nil {
		return err
	}
	w := &scriptWatcher{
		watcher: fsWatcher,
		script:  abs,
		rerun:   rerun,
		logger:  logger,
	}

	// Editors often replace files on save, so watch the directory.
	dir := filepath.Dir(abs)
	if err := fsWatcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	logger.Info("watching script", slog.String("script", script))

	w.rerun()
	w.eventLoop(ctx)
	return nil
}

// eventLoop processes file system events
func (w *scriptWatcher) eventLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}

			w.mu.Lock()
			if time.Since(w.lastChange) < debounce {
				w.mu.Unlock()
				continue
			}
			w.lastChange = time.Now()
			w.mu.Unlock()

			// Let the writer finish before reading.
			time.Sleep(debounce / 2)
			w.logger.Info("script changed", slog.String("script", w.script))
			w.rerun()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("watcher error", slog.String("error", err.Error()))
		}
	}
}

// relevant reports whether event is a write to the watched script.
func (w *scriptWatcher) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return false
	}
	return filepath.Clean(event.Name) == w.script
}
