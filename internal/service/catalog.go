// Package service implements business operations over the store for the
// HTTP layer.
package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shelfmark/shelfmark-server/internal/author"
	"github.com/shelfmark/shelfmark-server/internal/domain"
	"github.com/shelfmark/shelfmark-server/internal/opds"
	"github.com/shelfmark/shelfmark-server/internal/store"
)

// catalogLibrary adapts the store to the catalog's Library interface.
// The catalog expects (nil, nil) for unknown ids where the store returns
// sentinel errors.
type catalogLibrary struct {
	store *store.Store
}

func (l catalogLibrary) BooksForUser(ctx context.Context, userID string) ([]*domain.Book, error) {
	return l.store.BooksForUser(ctx, userID)
}

func (l catalogLibrary) FavoritesForUser(ctx context.Context, userID string) ([]*domain.Book, error) {
	return l.store.FavoritesForUser(ctx, userID)
}

func (l catalogLibrary) GetBook(ctx context.Context, id string) (*domain.Book, error) {
	book, err := l.store.GetBook(ctx, id)
	if errors.Is(err, store.ErrBookNotFound) {
		return nil, nil
	}
	return book, err
}

func (l catalogLibrary) GetFolder(ctx context.Context, id string) (*domain.Folder, error) {
	folder, err := l.store.GetFolder(ctx, id)
	if errors.Is(err, store.ErrFolderNotFound) {
		return nil, nil
	}
	return folder, err
}

// NewCatalog wires an OPDS catalog over the store and search index. The
// store doubles as the settings source for feed title decoration.
func NewCatalog(st *store.Store, searcher opds.Searcher, extractor author.Extractor, logger *slog.Logger) *opds.Catalog {
	return opds.NewCatalog(catalogLibrary{store: st}, searcher, st, extractor, logger)
}
