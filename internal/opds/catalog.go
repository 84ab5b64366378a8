package opds

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shelfmark/shelfmark-server/internal/author"
	"github.com/shelfmark/shelfmark-server/internal/domain"
	"github.com/shelfmark/shelfmark-server/internal/mediatype"
)

// catalogAuthor is the fixed publisher attribution on every feed.
const catalogAuthor = "Shelfmark"

// defaultServerName decorates feed titles when no display name is configured.
const defaultServerName = "Shelfmark"

// searchLimit caps the number of hits requested from the search collaborator.
const searchLimit = 100

// Catalog endpoint paths. Hrefs in feeds are always server-relative.
const (
	rootPath         = "/opds"
	authorsPath      = "/opds/authors"
	authorsAllPath   = "/opds/authors/all"
	letterPathBase   = "/opds/authors/letter/"
	authorPathBase   = "/opds/authors/"
	favoritesPath    = "/opds/books/favorites"
	searchPathBase   = "/opds/search/"
	osdPath          = "/opds/osd"
	coverPathBase    = "/opds/cover/"
	downloadPathBase = "/opds/download/"
)

// AllAuthorsSentinel disables letter filtering in author listings.
const AllAuthorsSentinel = "all"

// Library is the catalog's view of the book store.
//
// The user id on scoped queries is soft: empty or unknown ids silently fall
// back to the unscoped catalog. Lookups by id return (nil, nil) for unknown
// ids; an error always means the collaborator itself failed and aborts feed
// construction.
type Library interface {
	BooksForUser(ctx context.Context, userID string) ([]*domain.Book, error)
	FavoritesForUser(ctx context.Context, userID string) ([]*domain.Book, error)
	GetBook(ctx context.Context, id string) (*domain.Book, error)
	GetFolder(ctx context.Context, id string) (*domain.Folder, error)
}

// Searcher finds book ids matching a free-text term, best match first.
type Searcher interface {
	SearchBooks(ctx context.Context, term string, limit int) ([]string, error)
}

// Settings exposes the host's display name. Empty means unconfigured.
type Settings interface {
	ServerDisplayName(ctx context.Context) string
}

// Catalog assembles OPDS documents from the library.
//
// Every method is a stateless transformation: it queries collaborators,
// derives author identity where needed, and returns a fresh document tree.
// Nothing is retained between calls, so concurrent requests need no locking.
type Catalog struct {
	library   Library
	searcher  Searcher
	settings  Settings
	extractor author.Extractor
	logger    *slog.Logger
}

// NewCatalog creates a catalog over the given collaborators.
// A nil extractor falls back to the default folder layout heuristic.
func NewCatalog(library Library, searcher Searcher, settings Settings, extractor author.Extractor, logger *slog.Logger) *Catalog {
	if extractor == nil {
		extractor = author.FolderExtractor{}
	}
	return &Catalog{
		library:   library,
		searcher:  searcher,
		settings:  settings,
		extractor: extractor,
		logger:    logger,
	}
}

// RootFeed returns the catalog's top-level navigation feed.
// No book data is read for this call.
func (c *Catalog) RootFeed(ctx context.Context) *Feed {
	feed := newFeed(c.decorate(ctx, "Catalog"))
	c.addNavLinks(feed, rootPath, "")

	now := time.Now().UTC().Format(time.RFC3339)
	feed.AddEntry(Entry{
		ID:      "authors",
		Title:   "Authors",
		Updated: now,
		Links:   []Link{{Rel: RelSubsection, Href: authorsPath, Type: NavigationType}},
	})
	feed.AddEntry(Entry{
		ID:      "favorites",
		Title:   "Favorite Books",
		Updated: now,
		Links:   []Link{{Rel: RelSubsection, Href: favoritesPath, Type: AcquisitionType}},
	})
	return feed
}

// AuthorIndexFeed returns the alphabetical author index: an "All Authors"
// entry plus one entry per letter A-Z. Pure, no collaborator calls.
func (c *Catalog) AuthorIndexFeed(ctx context.Context) *Feed {
	feed := newFeed(c.decorate(ctx, "Authors"))
	c.addNavLinks(feed, authorsPath, rootPath)

	now := time.Now().UTC().Format(time.RFC3339)
	feed.AddEntry(Entry{
		ID:      "all",
		Title:   "All Authors",
		Updated: now,
		Links:   []Link{{Rel: RelSubsection, Href: authorsAllPath, Type: NavigationType}},
	})

	for letter := 'A'; letter <= 'Z'; letter++ {
		l := string(letter)
		feed.AddEntry(Entry{
			ID:      l,
			Title:   l,
			Updated: now,
			Links:   []Link{{Rel: RelSubsection, Href: letterPathBase + l, Type: NavigationType}},
		})
	}
	return feed
}

// AuthorsByLetterFeed lists the distinct derived authors whose name starts
// with the given letter, sorted ascending. The sentinel "all" (or an empty
// letter) disables filtering. Books whose paths don't match the library
// layout are silently excluded.
func (c *Catalog) AuthorsByLetterFeed(ctx context.Context, userID, letter string) (*Feed, error) {
	books, err := c.library.BooksForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("query books: %w", err)
	}

	// Dedupe derived names within this request's snapshot. The id is a pure
	// function of the name, so recomputing it per book is harmless.
	authors := make(map[string]uuid.UUID)
	for _, book := range books {
		if book.Path == "" {
			continue
		}
		name, ok := c.extractor.Extract(book.Path)
		if !ok {
			continue
		}
		authors[name] = author.StableID(name)
	}

	names := make([]string, 0, len(authors))
	for name := range authors {
		names = append(names, name)
	}
	// Ordinal sort keeps letter buckets deterministic across platforms.
	sort.Strings(names)

	filter := strings.ToLower(letter)
	if filter == AllAuthorsSentinel {
		filter = ""
	}

	title := "Authors"
	if filter != "" {
		title = "Authors - " + strings.ToUpper(letter)
	}
	feed := newFeed(c.decorate(ctx, title))
	self := authorsAllPath
	if filter != "" {
		self = letterPathBase + letter
	}
	c.addNavLinks(feed, self, authorsPath)

	now := time.Now().UTC().Format(time.RFC3339)
	for _, name := range names {
		if filter != "" && !strings.HasPrefix(strings.ToLower(name), filter) {
			continue
		}
		id := authors[name].String()
		feed.AddEntry(Entry{
			ID:      id,
			Title:   name,
			Updated: now,
			Links:   []Link{{Rel: RelSubsection, Href: authorPathBase + id, Type: AcquisitionType}},
		})
	}
	return feed, nil
}

// BooksByAuthorFeed lists every visible book whose derived author id equals
// the requested id. The feed title is the author's display name, or a
// generic label when nothing matches.
func (c *Catalog) BooksByAuthorFeed(ctx context.Context, userID, authorID string) (*Feed, error) {
	books, err := c.library.BooksForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("query books: %w", err)
	}

	wanted, parseErr := uuid.Parse(authorID)

	var entries []Entry
	displayName := ""
	if parseErr == nil {
		for _, book := range books {
			if book.Path == "" {
				continue
			}
			name, ok := c.extractor.Extract(book.Path)
			if !ok || author.StableID(name) != wanted {
				continue
			}
			if displayName == "" {
				displayName = name
			}
			entry, err := c.bookEntry(ctx, book)
			if err != nil {
				return nil, err
			}
			entries = append(entries, entry)
		}
	}

	title := "Books"
	if displayName != "" {
		title = displayName
	}
	feed := newFeed(c.decorate(ctx, title))
	c.addNavLinks(feed, authorPathBase+authorID, authorsPath)
	feed.Entries = entries
	return feed, nil
}

// FavoritesFeed lists the user's favorite books. An empty or unknown user
// yields an empty feed.
func (c *Catalog) FavoritesFeed(ctx context.Context, userID string) (*Feed, error) {
	books, err := c.library.FavoritesForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("query favorites: %w", err)
	}

	feed := newFeed(c.decorate(ctx, "Favorite Books"))
	c.addNavLinks(feed, favoritesPath, rootPath)

	for _, book := range books {
		entry, err := c.bookEntry(ctx, book)
		if err != nil {
			return nil, err
		}
		feed.AddEntry(entry)
	}
	return feed, nil
}

// SearchFeed returns books matching the term, delegated to the search
// collaborator and capped at its hit limit. The feed title echoes the term.
func (c *Catalog) SearchFeed(ctx context.Context, userID, term string) (*Feed, error) {
	feed := newFeed(c.decorate(ctx, term))
	c.addNavLinks(feed, searchPathBase+url.PathEscape(term), rootPath)

	ids, err := c.searcher.SearchBooks(ctx, term, searchLimit)
	if err != nil {
		return nil, fmt.Errorf("search books: %w", err)
	}
	if len(ids) == 0 {
		return feed, nil
	}

	// Hits are post-filtered against the user's visible catalog so scoping
	// matches the browse listings.
	visible, err := c.visibleIDs(ctx, userID)
	if err != nil {
		return nil, err
	}

	for _, id := range ids {
		if !visible[id] {
			continue
		}
		book, err := c.library.GetBook(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("resolve hit %s: %w", id, err)
		}
		if book == nil {
			// Index briefly ahead of the store; skip the stale hit.
			continue
		}
		entry, err := c.bookEntry(ctx, book)
		if err != nil {
			return nil, err
		}
		feed.AddEntry(entry)
	}
	return feed, nil
}

// SearchDescription returns the OpenSearch document describing the search
// endpoint's URL templates.
func (c *Catalog) SearchDescription(ctx context.Context) *OpenSearchDescription {
	return &OpenSearchDescription{
		Xmlns:          openSearchNamespace,
		ShortName:      c.serverName(ctx),
		Description:    c.decorate(ctx, "Search the catalog"),
		InputEncoding:  "UTF-8",
		OutputEncoding: "UTF-8",
		URLs: []SearchURL{
			{Type: "text/html", Template: "/search?query={searchTerms}"},
			{Type: AtomType, Template: searchPathBase + "{searchTerms}"},
		},
	}
}

// CoverPath returns the cover image path for a book, or "" when the book is
// unknown or has no cover.
func (c *Catalog) CoverPath(ctx context.Context, bookID string) (string, error) {
	book, err := c.library.GetBook(ctx, bookID)
	if err != nil {
		return "", fmt.Errorf("get book: %w", err)
	}
	if book == nil {
		return "", nil
	}
	return book.CoverPath, nil
}

// ContentPath returns the book file path, or "" when the book is unknown.
func (c *Catalog) ContentPath(ctx context.Context, bookID string) (string, error) {
	book, err := c.library.GetBook(ctx, bookID)
	if err != nil {
		return "", fmt.Errorf("get book: %w", err)
	}
	if book == nil {
		return "", nil
	}
	return book.Path, nil
}

// bookEntry builds a full acquisition entry for a book.
//
// Attribution names the book's containing folder, matching what the reader
// sees on disk rather than the derived identity used for listings. Books
// without a folder record fall back to the path-derived author name.
// Image and acquisition links are omitted, without error, when no media type
// resolves for their paths.
func (c *Catalog) bookEntry(ctx context.Context, book *domain.Book) (Entry, error) {
	entry := Entry{
		ID:      book.ID,
		Title:   book.Title,
		Updated: time.UnixMilli(book.ModTime).UTC().Format(time.RFC3339),
	}

	if book.Description != "" {
		entry.Summary = &Content{Type: "text", Text: book.Description}
	}

	if book.FolderID != "" {
		folder, err := c.library.GetFolder(ctx, book.FolderID)
		if err != nil {
			return Entry{}, fmt.Errorf("get folder %s: %w", book.FolderID, err)
		}
		if folder != nil {
			entry.Author = &Author{Name: folder.Name}
		}
	}
	if entry.Author == nil {
		if name, ok := c.extractor.Extract(book.Path); ok {
			entry.Author = &Author{Name: name}
		}
	}

	if book.CoverPath != "" {
		if coverType, ok := mediatype.ForPath(book.CoverPath); ok {
			href := coverPathBase + book.ID
			entry.Links = append(entry.Links,
				Link{Rel: RelImage, Href: href, Type: coverType},
				Link{Rel: RelThumbnail, Href: href, Type: coverType},
			)
		}
	}

	if book.Path != "" {
		if bookType, ok := mediatype.ForPath(book.Path); ok {
			entry.Links = append(entry.Links, Link{
				Rel:     RelAcquisition,
				Href:    downloadPathBase + book.ID,
				Type:    bookType,
				Length:  book.Size,
				Updated: time.UnixMilli(book.ModTime).UTC().Format(time.RFC3339),
			})
		}
	}

	return entry, nil
}

// visibleIDs returns the set of book ids visible to the user.
func (c *Catalog) visibleIDs(ctx context.Context, userID string) (map[string]bool, error) {
	books, err := c.library.BooksForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("query books: %w", err)
	}
	ids := make(map[string]bool, len(books))
	for _, book := range books {
		ids[book.ID] = true
	}
	return ids, nil
}

// addNavLinks attaches the canonical link set: self, start, up (when the
// feed has a parent), and the two search links.
func (c *Catalog) addNavLinks(feed *Feed, self, up string) {
	feed.AddLink(RelSelf, self, NavigationType)
	feed.AddLink(RelStart, rootPath, NavigationType)
	if up != "" {
		feed.AddLink(RelUp, up, NavigationType)
	}
	feed.AddLink(RelSearch, osdPath, SearchDescriptionType)
	feed.AddLink(RelSearch, searchPathBase+"{searchTerms}", AtomType)
}

// serverName returns the host display name, falling back to the default.
func (c *Catalog) serverName(ctx context.Context) string {
	if c.settings != nil {
		if name := c.settings.ServerDisplayName(ctx); name != "" {
			return name
		}
	}
	return defaultServerName
}

// decorate suffixes a title with the host display name.
func (c *Catalog) decorate(ctx context.Context, title string) string {
	return title + " - " + c.serverName(ctx)
}
