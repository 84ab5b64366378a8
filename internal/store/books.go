package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/dgraph-io/badger/v4"

	"github.com/shelfmark/shelfmark-server/internal/domain"
)

const (
	bookPrefix       = "book:"
	bookByPathPrefix = "idx:books:path:"
)

var (
	ErrBookNotFound = errors.New("book not found")
	ErrBookExists   = errors.New("book already exists")
)

// Book Operations

// CreateBook creates a new book and its path index entry.
func (s *Store) CreateBook(ctx context.Context, book *domain.Book) error {
	key := []byte(bookPrefix + book.ID)

	exists, err := s.exists(key)
	if err != nil {
		return fmt.Errorf("check book exists: %w", err)
	}
	if exists {
		return ErrBookExists
	}

	if err := s.setJSON(key, book); err != nil {
		return fmt.Errorf("create book: %w", err)
	}
	if err := s.setJSON([]byte(bookByPathPrefix+book.Path), book.ID); err != nil {
		return fmt.Errorf("create book path index: %w", err)
	}

	s.indexBook(ctx, book)

	if s.logger != nil {
		s.logger.LogAttrs(ctx, slog.LevelInfo, "book created",
			slog.String("id", book.ID),
			slog.String("title", book.Title),
			slog.String("path", book.Path),
		)
	}
	return nil
}

// UpdateBook replaces an existing book record.
func (s *Store) UpdateBook(ctx context.Context, book *domain.Book) error {
	key := []byte(bookPrefix + book.ID)

	exists, err := s.exists(key)
	if err != nil {
		return fmt.Errorf("check book exists: %w", err)
	}
	if !exists {
		return ErrBookNotFound
	}

	book.Touch()
	if err := s.setJSON(key, book); err != nil {
		return fmt.Errorf("update book: %w", err)
	}

	s.indexBook(ctx, book)
	return nil
}

// GetBook retrieves a book by ID.
func (s *Store) GetBook(_ context.Context, id string) (*domain.Book, error) {
	var book domain.Book
	err := s.getJSON([]byte(bookPrefix+id), &book)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, fmt.Errorf("get book: %w", err)
	}
	return &book, nil
}

// GetBookByPath retrieves a book by its library path.
// Used by the scanner to match rediscovered files to existing records.
func (s *Store) GetBookByPath(ctx context.Context, path string) (*domain.Book, error) {
	var bookID string
	err := s.getJSON([]byte(bookByPathPrefix+path), &bookID)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, fmt.Errorf("get book by path: %w", err)
	}
	return s.GetBook(ctx, bookID)
}

// ListBooks returns every book in the catalog, ordered by title.
func (s *Store) ListBooks(_ context.Context) ([]*domain.Book, error) {
	books, err := listPrefix[domain.Book](s, []byte(bookPrefix))
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	sort.Slice(books, func(i, j int) bool { return books[i].Title < books[j].Title })
	return books, nil
}

// BooksForUser returns the books visible to the given user, ordered by title.
//
// The user id is a soft scope: an empty id, or one that does not resolve to
// a known user, silently falls back to the full catalog. A resolved user
// sees only books under the root folders their LibraryAccess allows.
func (s *Store) BooksForUser(ctx context.Context, userID string) ([]*domain.Book, error) {
	books, err := s.ListBooks(ctx)
	if err != nil {
		return nil, err
	}

	if userID == "" {
		return books, nil
	}

	user, err := s.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return books, nil
		}
		return nil, err
	}

	visible := make([]*domain.Book, 0, len(books))
	for _, book := range books {
		if user.CanSee(book.RootFolder) {
			visible = append(visible, book)
		}
	}
	return visible, nil
}

// FavoritesForUser returns the user's favorite books, ordered by title.
// An unknown or empty user id yields an empty list, never an error.
func (s *Store) FavoritesForUser(ctx context.Context, userID string) ([]*domain.Book, error) {
	if userID == "" {
		return nil, nil
	}

	user, err := s.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var books []*domain.Book
	for _, bookID := range user.Favorites {
		book, err := s.GetBook(ctx, bookID)
		if err != nil {
			if errors.Is(err, ErrBookNotFound) {
				// Favorite pointing at a book removed from the library.
				continue
			}
			return nil, err
		}
		books = append(books, book)
	}
	sort.Slice(books, func(i, j int) bool { return books[i].Title < books[j].Title })
	return books, nil
}

// DeleteBook removes a book and its path index entry.
func (s *Store) DeleteBook(ctx context.Context, id string) error {
	book, err := s.GetBook(ctx, id)
	if err != nil {
		return err
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete([]byte(bookPrefix + id)); err != nil {
			return err
		}
		return txn.Delete([]byte(bookByPathPrefix + book.Path))
	})
	if err != nil {
		return fmt.Errorf("delete book: %w", err)
	}

	if s.searchIndexer != nil {
		if err := s.searchIndexer.DeleteBook(ctx, id); err != nil && s.logger != nil {
			s.logger.Warn("failed to remove book from search index", "id", id, "error", err)
		}
	}
	return nil
}

// indexBook pushes a book into the search index, logging failures instead of
// propagating them. A stale search index is recoverable; a failed scan is not.
func (s *Store) indexBook(ctx context.Context, book *domain.Book) {
	if s.searchIndexer == nil {
		return
	}
	if err := s.searchIndexer.IndexBook(ctx, book); err != nil && s.logger != nil {
		s.logger.Warn("failed to index book", "id", book.ID, "error", err)
	}
}
