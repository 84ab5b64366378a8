package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/shelfmark/shelfmark-server/internal/config"
	"github.com/shelfmark/shelfmark-server/internal/logger"
	"github.com/shelfmark/shelfmark-server/internal/ratelimit"
	"github.com/shelfmark/shelfmark-server/internal/scanner"
	"github.com/shelfmark/shelfmark-server/internal/service"
	"github.com/shelfmark/shelfmark-server/internal/watcher"
)

// FileWatcherHandle wraps the file watcher with shutdown capability.
// The watcher is nil when watching is disabled or no books path is set.
type FileWatcherHandle struct {
	*watcher.Watcher
	cancel  context.CancelFunc
	started bool
}

// Shutdown implements do.Shutdownable.
func (h *FileWatcherHandle) Shutdown() error {
	if !h.started {
		return nil
	}
	h.cancel()
	h.Watcher.Stop()
	return nil
}

// ProvideFileWatcher provides the file system watcher.
// Change signals from the watcher trigger a full library rescan.
func ProvideFileWatcher(i do.Injector) (*FileWatcherHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if !cfg.Library.Watch || cfg.Library.BooksPath == "" {
		log.Info("File watching disabled")
		return &FileWatcherHandle{started: false}, nil
	}

	libraryService := do.MustInvoke[*service.LibraryService](i)

	w, err := watcher.New(log.Logger, watcher.Options{IgnoreHidden: true})
	if err != nil {
		return nil, err
	}

	if err := w.Watch(cfg.Library.BooksPath); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	w.Start(ctx)

	// Rescan on each settled change signal. Signals are coalesced by the
	// watcher, so a burst of filesystem events costs one scan.
	go func() {
		for {
			select {
			case <-w.Changes():
				result, err := libraryService.TriggerScan(ctx, scanner.ScanOptions{})
				if err != nil {
					log.Warn("Rescan after filesystem change failed", "error", err)
					continue
				}
				log.Info("Rescan after filesystem change completed",
					"added", result.Added,
					"updated", result.Updated,
					"removed", result.Removed,
				)
			case <-ctx.Done():
				return
			}
		}
	}()

	log.Info("File watcher started", "path", cfg.Library.BooksPath)

	return &FileWatcherHandle{
		Watcher: w,
		cancel:  cancel,
		started: true,
	}, nil
}

// RateLimiterHandle wraps the download rate limiter with shutdown capability.
type RateLimiterHandle struct {
	*ratelimit.KeyedRateLimiter
}

// Shutdown implements do.Shutdownable.
func (h *RateLimiterHandle) Shutdown() error {
	h.Stop()
	return nil
}

// ProvideDownloadLimiter provides the per-client rate limiter for payload endpoints.
func ProvideDownloadLimiter(i do.Injector) (*RateLimiterHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)

	limiter := ratelimit.New(float64(cfg.Server.DownloadRPS), cfg.Server.DownloadBurst)
	return &RateLimiterHandle{KeyedRateLimiter: limiter}, nil
}
