package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/shelfmark/shelfmark-server/internal/config"
	"github.com/shelfmark/shelfmark-server/internal/logger"
	"github.com/shelfmark/shelfmark-server/internal/scanner"
	"github.com/shelfmark/shelfmark-server/internal/service"
)

// ProvideScanner provides the file scanner.
func ProvideScanner(i do.Injector) (*scanner.Scanner, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return scanner.NewScanner(storeHandle.Store, log.Logger), nil
}

// RunInitialScan starts a library scan in a goroutine when a books path is
// configured but the store holds no books yet.
// Should be called after all dependencies are wired.
func RunInitialScan(i do.Injector) {
	cfg := do.MustInvoke[*config.Config](i)
	if cfg.Library.BooksPath == "" {
		return
	}

	storeHandle := do.MustInvoke[*StoreHandle](i)
	libraryService := do.MustInvoke[*service.LibraryService](i)
	log := do.MustInvoke[*logger.Logger](i)

	books, err := storeHandle.ListBooks(context.Background())
	if err != nil || len(books) > 0 {
		return
	}

	log.Info("Empty library detected, starting initial scan", "path", cfg.Library.BooksPath)

	go func() {
		result, err := libraryService.TriggerScan(context.Background(), scanner.ScanOptions{})
		if err != nil {
			log.Error("Initial scan failed", "error", err)
			return
		}
		log.Info("Initial scan completed",
			"added", result.Added,
			"updated", result.Updated,
			"removed", result.Removed,
		)
	}()
}
