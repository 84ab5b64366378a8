package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/shelfmark/shelfmark-server/internal/domain"
	domainerrors "github.com/shelfmark/shelfmark-server/internal/errors"
	"github.com/shelfmark/shelfmark-server/internal/scanner"
	"github.com/shelfmark/shelfmark-server/internal/store"
)

// LibraryService manages the book library: listings, lookups, and scans.
type LibraryService struct {
	store     *store.Store
	scanner   *scanner.Scanner
	booksPath string
	logger    *slog.Logger

	// Serializes scans. Overlapping rescans would race on the diff pass.
	scanMu sync.Mutex
}

// NewLibraryService creates a new library service.
func NewLibraryService(st *store.Store, sc *scanner.Scanner, booksPath string, logger *slog.Logger) *LibraryService {
	return &LibraryService{
		store:     st,
		scanner:   sc,
		booksPath: booksPath,
		logger:    logger,
	}
}

// ListBooks returns the books visible to the given user.
func (s *LibraryService) ListBooks(ctx context.Context, userID string) ([]*domain.Book, error) {
	return s.store.BooksForUser(ctx, userID)
}

// GetBook returns a single book by id.
func (s *LibraryService) GetBook(ctx context.Context, id string) (*domain.Book, error) {
	book, err := s.store.GetBook(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrBookNotFound) {
			return nil, domainerrors.NotFound("book not found")
		}
		return nil, err
	}
	return book, nil
}

// TriggerScan runs a reconciliation scan of the configured books path.
// Concurrent callers queue behind the running scan.
func (s *LibraryService) TriggerScan(ctx context.Context, opts scanner.ScanOptions) (*scanner.ScanResult, error) {
	if s.booksPath == "" {
		return nil, domainerrors.Validation("no books path configured")
	}

	s.scanMu.Lock()
	defer s.scanMu.Unlock()

	return s.scanner.Scan(ctx, s.booksPath, opts)
}
