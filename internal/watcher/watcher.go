// Package watcher signals library changes so the scanner can reconcile.
//
// Individual filesystem events are not mapped to store operations. Any
// relevant event arms a settle timer, and once the library has been quiet
// for the settle delay a single change notification fires. Consumers run a
// full rescan in response, which keeps the watcher free of per-file state.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher monitors a library tree and coalesces events into change signals.
type Watcher struct {
	logger  *slog.Logger
	opts    Options
	watcher *fsnotify.Watcher

	mu    sync.Mutex
	timer *time.Timer

	changes chan struct{}
	done    chan struct{}
	stop    sync.Once
	wg      sync.WaitGroup
}

// New creates a watcher with the given options.
func New(logger *slog.Logger, opts Options) (*Watcher, error) {
	opts.setDefaults()

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &Watcher{
		logger:  logger,
		opts:    opts,
		watcher: fsw,
		changes: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}, nil
}

// Watch adds a directory tree to be monitored.
func (w *Watcher) Watch(path string) error {
	path = filepath.Clean(path)

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat path: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("watch path is not a directory: %s", path)
	}
	return w.watchDir(path)
}

// watchDir recursively watches a directory.
func (w *Watcher) watchDir(path string) error {
	return filepath.Walk(path, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			w.logger.Warn("failed to access path", "path", p, "error", err)
			return nil
		}

		if w.opts.shouldIgnore(p) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if !info.IsDir() {
			return nil
		}

		if err := w.watcher.Add(p); err != nil {
			w.logger.Error("failed to add watch", "path", p, "error", err)
			return nil
		}

		w.logger.Debug("added watch", "path", p)
		return nil
	})
}

// Start processes events until the context is canceled or Stop is called.
func (w *Watcher) Start(ctx context.Context) {
	w.wg.Add(1)
	go w.processEvents(ctx)
}

// Changes returns the channel that receives one signal per settled burst of
// filesystem activity. The channel has capacity one; signals arriving while
// a rescan is pending collapse into it.
func (w *Watcher) Changes() <-chan struct{} {
	return w.changes
}

// Stop shuts the watcher down and releases its watches.
func (w *Watcher) Stop() {
	w.stop.Do(func() {
		close(w.done)

		w.mu.Lock()
		if w.timer != nil {
			w.timer.Stop()
		}
		w.mu.Unlock()

		_ = w.watcher.Close()
		w.wg.Wait()
	})
}

// processEvents drains fsnotify events.
func (w *Watcher) processEvents(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("watch error", "error", err)
		}
	}
}

// handleEvent arms the settle timer for relevant events.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if w.opts.shouldIgnore(event.Name) {
		return
	}

	// New directories need their own watch before their contents produce
	// events.
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.watchDir(event.Name); err != nil {
				w.logger.Warn("failed to watch new directory", "path", event.Name, "error", err)
			}
		}
	}

	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.opts.SettleDelay, w.signal)
}

// signal delivers a change notification without blocking.
func (w *Watcher) signal() {
	select {
	case w.changes <- struct{}{}:
	default:
	}
}
