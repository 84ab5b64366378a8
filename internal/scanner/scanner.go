// Package scanner discovers ebooks on disk and reconciles them with the store.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shelfmark/shelfmark-server/internal/domain"
	"github.com/shelfmark/shelfmark-server/internal/id"
	"github.com/shelfmark/shelfmark-server/internal/mediatype"
	"github.com/shelfmark/shelfmark-server/internal/store"
)

// Extension set for cover sidecar classification (package-level to avoid allocations).
var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
	".gif":  true,
}

// coverBasenames are sidecar names checked before falling back to an image
// that shares the book file's stem.
var coverBasenames = []string{"cover", "folder"}

// Scanner orchestrates the library scanning process.
type Scanner struct {
	store  *store.Store
	logger *slog.Logger
	walker *Walker
}

// NewScanner creates a new scanner instance.
func NewScanner(st *store.Store, logger *slog.Logger) *Scanner {
	return &Scanner{
		store:  st,
		logger: logger,
		walker: NewWalker(logger),
	}
}

// ScanOptions configures a scan.
type ScanOptions struct {
	// DryRun reports what would change without writing to the store.
	DryRun bool
}

// ScanResult summarizes one reconciliation pass.
type ScanResult struct {
	StartedAt   time.Time
	CompletedAt time.Time
	Added       int
	Updated     int
	Removed     int
	Errors      int
}

// Scan performs a full library scan of the given books path.
// It walks the filesystem, pairs each ebook with its cover sidecar, and
// reconciles the result against the store: new files are created, changed
// files updated, and books whose files vanished are deleted.
func (s *Scanner) Scan(ctx context.Context, booksPath string, opts ScanOptions) (*ScanResult, error) {
	if _, err := os.Stat(booksPath); err != nil {
		return nil, fmt.Errorf("books path not accessible: %w", err)
	}

	result := &ScanResult{StartedAt: time.Now()}

	ebooks, imagesByDir := s.walkFilesystem(ctx, booksPath)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	existing, err := s.store.ListBooks(ctx)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	byPath := make(map[string]*domain.Book, len(existing))
	for _, book := range existing {
		byPath[book.Path] = book
	}

	folders := newFolderCache(s.store)
	seen := make(map[string]bool, len(ebooks))

	for _, file := range ebooks {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		seen[file.Path] = true

		if prev, ok := byPath[file.Path]; ok {
			if prev.Size == file.Size && prev.ModTime == file.ModTime {
				continue
			}
			result.Updated++
			if opts.DryRun {
				continue
			}
			prev.Size = file.Size
			prev.ModTime = file.ModTime
			prev.CoverPath = findCover(file.Path, imagesByDir)
			prev.Touch()
			if err := s.store.UpdateBook(ctx, prev); err != nil {
				s.logger.Error("failed to update book", "path", file.Path, "error", err)
				result.Errors++
			}
			continue
		}

		result.Added++
		if opts.DryRun {
			continue
		}

		book, err := s.buildBook(ctx, booksPath, file, imagesByDir, folders)
		if err != nil {
			s.logger.Error("failed to build book", "path", file.Path, "error", err)
			result.Errors++
			continue
		}
		if err := s.store.CreateBook(ctx, book); err != nil {
			s.logger.Error("failed to create book", "path", file.Path, "error", err)
			result.Errors++
		}
	}

	// Remove books whose files are gone.
	for path, book := range byPath {
		if seen[path] {
			continue
		}
		result.Removed++
		if opts.DryRun {
			continue
		}
		if err := s.store.DeleteBook(ctx, book.ID); err != nil {
			s.logger.Error("failed to delete book", "path", path, "error", err)
			result.Errors++
		}
	}

	result.CompletedAt = time.Now()
	s.logger.Info("scan complete",
		"duration", result.CompletedAt.Sub(result.StartedAt),
		"added", result.Added,
		"updated", result.Updated,
		"removed", result.Removed,
		"errors", result.Errors,
	)
	return result, nil
}

// walkFilesystem walks the tree, splitting files into ebooks and candidate
// cover images grouped by directory.
func (s *Scanner) walkFilesystem(ctx context.Context, booksPath string) ([]WalkResult, map[string][]string) {
	s.logger.Info("starting walk", "path", booksPath)

	var ebooks []WalkResult
	imagesByDir := make(map[string][]string)

	for wr := range s.walker.Walk(ctx, booksPath) {
		if wr.Error != nil {
			continue
		}
		if mediatype.IsEbook(wr.Path) {
			ebooks = append(ebooks, wr)
			continue
		}
		ext := strings.ToLower(filepath.Ext(wr.Path))
		if imageExtensions[ext] {
			dir := filepath.Dir(wr.Path)
			imagesByDir[dir] = append(imagesByDir[dir], wr.Path)
		}
	}

	s.logger.Info("walk complete", "ebooks", len(ebooks))
	return ebooks, imagesByDir
}

// buildBook constructs a new domain.Book for a discovered file.
func (s *Scanner) buildBook(ctx context.Context, booksPath string, file WalkResult, imagesByDir map[string][]string, folders *folderCache) (*domain.Book, error) {
	dir := filepath.Dir(file.Path)

	book := &domain.Book{
		Title:      titleFor(booksPath, file.Path),
		Path:       file.Path,
		RootFolder: rootFolderFor(file.RelPath),
		Format:     strings.TrimPrefix(strings.ToLower(filepath.Ext(file.Path)), "."),
		CoverPath:  findCover(file.Path, imagesByDir),
		Size:       file.Size,
		ModTime:    file.ModTime,
	}
	book.ID = id.MustGenerate("book")
	book.InitTimestamps()

	// Files at the library root have no containing folder to attribute.
	if dir != filepath.Clean(booksPath) {
		folder, err := folders.ensure(ctx, dir)
		if err != nil {
			return nil, err
		}
		book.FolderID = folder.ID
	}

	return book, nil
}

// titleFor derives a display title: the containing folder's name, or the
// file's stem for books sitting directly in the library root.
func titleFor(booksPath, path string) string {
	dir := filepath.Dir(path)
	if dir == filepath.Clean(booksPath) {
		base := filepath.Base(path)
		return strings.TrimSuffix(base, filepath.Ext(base))
	}
	return filepath.Base(dir)
}

// rootFolderFor returns the first segment of the file's path relative to the
// library root, or "" for files at the root itself.
func rootFolderFor(relPath string) string {
	parts := strings.Split(filepath.ToSlash(relPath), "/")
	if len(parts) < 2 {
		return ""
	}
	return parts[0]
}

// findCover picks a cover image from the book's directory: a conventional
// sidecar name first, then an image sharing the book file's stem, then any
// image present.
func findCover(bookPath string, imagesByDir map[string][]string) string {
	images := imagesByDir[filepath.Dir(bookPath)]
	if len(images) == 0 {
		return ""
	}

	for _, img := range images {
		stem := strings.ToLower(strings.TrimSuffix(filepath.Base(img), filepath.Ext(img)))
		for _, name := range coverBasenames {
			if stem == name {
				return img
			}
		}
	}

	bookStem := strings.ToLower(strings.TrimSuffix(filepath.Base(bookPath), filepath.Ext(bookPath)))
	for _, img := range images {
		stem := strings.ToLower(strings.TrimSuffix(filepath.Base(img), filepath.Ext(img)))
		if stem == bookStem {
			return img
		}
	}

	return images[0]
}

// folderCache memoizes folder lookups within a single scan.
type folderCache struct {
	store *store.Store
	byDir map[string]*domain.Folder
}

func newFolderCache(st *store.Store) *folderCache {
	return &folderCache{
		store: st,
		byDir: make(map[string]*domain.Folder),
	}
}

// ensure returns the folder for a directory, creating it on first sight.
func (c *folderCache) ensure(ctx context.Context, dir string) (*domain.Folder, error) {
	if folder, ok := c.byDir[dir]; ok {
		return folder, nil
	}

	folder, err := c.store.GetFolderByPath(ctx, dir)
	if err != nil {
		if !errors.Is(err, store.ErrFolderNotFound) {
			return nil, fmt.Errorf("get folder %s: %w", dir, err)
		}
		folder = &domain.Folder{
			Name: filepath.Base(dir),
			Path: dir,
		}
		folder.ID = id.MustGenerate("folder")
		folder.InitTimestamps()
		if err := c.store.CreateFolder(ctx, folder); err != nil {
			return nil, fmt.Errorf("create folder %s: %w", dir, err)
		}
	}

	c.byDir[dir] = folder
	return folder, nil
}
