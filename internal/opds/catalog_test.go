package opds

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfmark/shelfmark-server/internal/author"
	"github.com/shelfmark/shelfmark-server/internal/domain"
)

type fakeLibrary struct {
	books     []*domain.Book
	folders   map[string]*domain.Folder
	favorites map[string][]*domain.Book
	// access maps a user id to allowed root folders. Users absent from the
	// map are unknown and see the full catalog.
	access map[string][]string
}

func (f *fakeLibrary) BooksForUser(_ context.Context, userID string) ([]*domain.Book, error) {
	allowed, known := f.access[userID]
	if userID == "" || !known || len(allowed) == 0 {
		return f.books, nil
	}
	var out []*domain.Book
	for _, b := range f.books {
		for _, root := range allowed {
			if b.RootFolder == root {
				out = append(out, b)
				break
			}
		}
	}
	return out, nil
}

func (f *fakeLibrary) FavoritesForUser(_ context.Context, userID string) ([]*domain.Book, error) {
	return f.favorites[userID], nil
}

func (f *fakeLibrary) GetBook(_ context.Context, id string) (*domain.Book, error) {
	for _, b := range f.books {
		if b.ID == id {
			return b, nil
		}
	}
	return nil, nil
}

func (f *fakeLibrary) GetFolder(_ context.Context, id string) (*domain.Folder, error) {
	return f.folders[id], nil
}

type fakeSearcher struct {
	hits map[string][]string
}

func (f *fakeSearcher) SearchBooks(_ context.Context, term string, _ int) ([]string, error) {
	return f.hits[term], nil
}

type fakeSettings struct {
	name string
}

func (f *fakeSettings) ServerDisplayName(_ context.Context) string { return f.name }

func testBook(id, title, path, rootFolder string) *domain.Book {
	b := &domain.Book{
		Title:      title,
		Path:       path,
		RootFolder: rootFolder,
		Format:     "epub",
		Size:       2048,
		ModTime:    1700000000000,
	}
	b.ID = id
	return b
}

// newTestCatalog wires a catalog over in-memory fakes with three books by
// two authors across two root folders.
func newTestCatalog(t *testing.T) (*Catalog, *fakeLibrary, *fakeSearcher) {
	t.Helper()

	dune := testBook("book-dune", "Dune", "/data/media/books/scifi/Frank Herbert/Dune/Dune.epub", "scifi")
	dune.FolderID = "folder-dune"
	dune.CoverPath = "/data/media/books/scifi/Frank Herbert/Dune/cover.jpg"

	messiah := testBook("book-messiah", "Dune Messiah", "/data/media/books/scifi/Frank Herbert/Dune Messiah/Dune Messiah.epub", "scifi")
	persuasion := testBook("book-persuasion", "Persuasion", "/data/media/books/romance/Jane Austen/Persuasion/Persuasion.epub", "romance")

	lib := &fakeLibrary{
		books: []*domain.Book{dune, messiah, persuasion},
		folders: map[string]*domain.Folder{
			"folder-dune": {Name: "Dune"},
		},
		favorites: map[string][]*domain.Book{
			"user-kid": {dune},
		},
		access: map[string][]string{
			"user-kid": {"scifi"},
		},
	}
	searcher := &fakeSearcher{hits: map[string][]string{
		"dune": {"book-dune", "book-messiah"},
	}}
	catalog := NewCatalog(lib, searcher, &fakeSettings{}, nil, nil)
	return catalog, lib, searcher
}

func TestRootFeed(t *testing.T) {
	c, _, _ := newTestCatalog(t)

	feed := c.RootFeed(context.Background())
	assert.Equal(t, "Catalog - Shelfmark", feed.Title)
	require.Len(t, feed.Entries, 2)
	assert.Equal(t, "Authors", feed.Entries[0].Title)
	assert.Equal(t, "Favorite Books", feed.Entries[1].Title)

	// Root has no parent: self, start, and the two search links.
	assert.Len(t, feed.Links, 4)
}

func TestRootFeed_UsesDisplayName(t *testing.T) {
	c := NewCatalog(&fakeLibrary{}, &fakeSearcher{}, &fakeSettings{name: "Family Library"}, nil, nil)

	feed := c.RootFeed(context.Background())
	assert.Equal(t, "Catalog - Family Library", feed.Title)
}

func TestAuthorIndexFeed(t *testing.T) {
	c, _, _ := newTestCatalog(t)

	feed := c.AuthorIndexFeed(context.Background())
	require.Len(t, feed.Entries, 27)
	assert.Equal(t, "All Authors", feed.Entries[0].Title)
	assert.Equal(t, "A", feed.Entries[1].Title)
	assert.Equal(t, "Z", feed.Entries[26].Title)

	// Letter entries link into the filtered listing, and an up link points
	// back at the root.
	assert.Equal(t, "/opds/authors/letter/A", feed.Entries[1].Links[0].Href)
	assert.Len(t, feed.Links, 5)
}

func TestAuthorsByLetterFeed_All(t *testing.T) {
	c, _, _ := newTestCatalog(t)

	feed, err := c.AuthorsByLetterFeed(context.Background(), "", AllAuthorsSentinel)
	require.NoError(t, err)

	// Two distinct authors across three books, sorted ascending.
	require.Len(t, feed.Entries, 2)
	assert.Equal(t, "Austen, Jane", feed.Entries[0].Title)
	assert.Equal(t, "Herbert, Frank", feed.Entries[1].Title)
}

func TestAuthorsByLetterFeed_Filters(t *testing.T) {
	c, _, _ := newTestCatalog(t)
	ctx := context.Background()

	feed, err := c.AuthorsByLetterFeed(ctx, "", "H")
	require.NoError(t, err)
	require.Len(t, feed.Entries, 1)
	assert.Equal(t, "Herbert, Frank", feed.Entries[0].Title)
	assert.Equal(t, "Authors - H - Shelfmark", feed.Title)

	feed, err = c.AuthorsByLetterFeed(ctx, "", "Q")
	require.NoError(t, err)
	assert.Empty(t, feed.Entries)
}

func TestAuthorsByLetterFeed_SkipsUnparseablePaths(t *testing.T) {
	c, lib, _ := newTestCatalog(t)
	lib.books = append(lib.books, testBook("book-loose", "Loose File", "/data/loose.epub", "scifi"))

	feed, err := c.AuthorsByLetterFeed(context.Background(), "", AllAuthorsSentinel)
	require.NoError(t, err)
	assert.Len(t, feed.Entries, 2)
}

func TestAuthorsByLetterFeed_UserScoped(t *testing.T) {
	c, _, _ := newTestCatalog(t)

	feed, err := c.AuthorsByLetterFeed(context.Background(), "user-kid", AllAuthorsSentinel)
	require.NoError(t, err)
	require.Len(t, feed.Entries, 1)
	assert.Equal(t, "Herbert, Frank", feed.Entries[0].Title)
}

func TestBooksByAuthorFeed_RoundTrip(t *testing.T) {
	c, _, _ := newTestCatalog(t)
	ctx := context.Background()

	// The id in a listing entry resolves back to that author's books.
	listing, err := c.AuthorsByLetterFeed(ctx, "", "H")
	require.NoError(t, err)
	require.Len(t, listing.Entries, 1)
	authorID := listing.Entries[0].ID
	assert.Equal(t, author.StableID("Herbert, Frank").String(), authorID)

	feed, err := c.BooksByAuthorFeed(ctx, "", authorID)
	require.NoError(t, err)
	assert.Equal(t, "Herbert, Frank - Shelfmark", feed.Title)
	require.Len(t, feed.Entries, 2)
	assert.Equal(t, "Dune", feed.Entries[0].Title)
	assert.Equal(t, "Dune Messiah", feed.Entries[1].Title)
}

func TestBooksByAuthorFeed_UnknownAuthor(t *testing.T) {
	c, _, _ := newTestCatalog(t)
	ctx := context.Background()

	feed, err := c.BooksByAuthorFeed(ctx, "", author.StableID("Nobody, Known").String())
	require.NoError(t, err)
	assert.Equal(t, "Books - Shelfmark", feed.Title)
	assert.Empty(t, feed.Entries)

	// Malformed ids degrade the same way.
	feed, err = c.BooksByAuthorFeed(ctx, "", "not-a-uuid")
	require.NoError(t, err)
	assert.Empty(t, feed.Entries)
}

func TestBookEntry_Links(t *testing.T) {
	c, _, _ := newTestCatalog(t)
	ctx := context.Background()

	feed, err := c.BooksByAuthorFeed(ctx, "", author.StableID("Herbert, Frank").String())
	require.NoError(t, err)
	require.Len(t, feed.Entries, 2)

	// Dune has a cover: image, thumbnail, and acquisition links.
	dune := feed.Entries[0]
	require.Len(t, dune.Links, 3)
	assert.Equal(t, RelImage, dune.Links[0].Rel)
	assert.Equal(t, "image/jpeg", dune.Links[0].Type)
	assert.Equal(t, RelThumbnail, dune.Links[1].Rel)
	assert.Equal(t, RelAcquisition, dune.Links[2].Rel)
	assert.Equal(t, "/opds/download/book-dune", dune.Links[2].Href)
	assert.Equal(t, "application/epub+zip", dune.Links[2].Type)
	assert.Equal(t, int64(2048), dune.Links[2].Length)

	// Attribution names the containing folder, not the derived author.
	require.NotNil(t, dune.Author)
	assert.Equal(t, "Dune", dune.Author.Name)

	// Messiah has no cover: acquisition link only.
	messiah := feed.Entries[1]
	require.Len(t, messiah.Links, 1)
	assert.Equal(t, RelAcquisition, messiah.Links[0].Rel)
}

func TestBookEntry_DerivedNameFallbackAttribution(t *testing.T) {
	c, _, _ := newTestCatalog(t)

	// Messiah carries no folder record; the path-derived author is
	// credited instead.
	feed, err := c.BooksByAuthorFeed(context.Background(), "", author.StableID("Herbert, Frank").String())
	require.NoError(t, err)
	require.Len(t, feed.Entries, 2)

	messiah := feed.Entries[1]
	require.NotNil(t, messiah.Author)
	assert.Equal(t, "Herbert, Frank", messiah.Author.Name)
}

func TestFavoritesFeed(t *testing.T) {
	c, _, _ := newTestCatalog(t)
	ctx := context.Background()

	feed, err := c.FavoritesFeed(ctx, "user-kid")
	require.NoError(t, err)
	require.Len(t, feed.Entries, 1)
	assert.Equal(t, "Dune", feed.Entries[0].Title)

	feed, err = c.FavoritesFeed(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, feed.Entries)
}

func TestSearchFeed(t *testing.T) {
	c, _, _ := newTestCatalog(t)

	feed, err := c.SearchFeed(context.Background(), "", "dune")
	require.NoError(t, err)
	assert.Equal(t, "dune - Shelfmark", feed.Title)
	require.Len(t, feed.Entries, 2)
	assert.Equal(t, "Dune", feed.Entries[0].Title)
}

func TestSearchFeed_EscapesTermInSelfLink(t *testing.T) {
	c, _, searcher := newTestCatalog(t)
	searcher.hits["dune messiah"] = []string{"book-messiah"}

	feed, err := c.SearchFeed(context.Background(), "", "dune messiah")
	require.NoError(t, err)

	// The self link is a valid href even when the term needs escaping;
	// the title still echoes the raw term.
	assert.Equal(t, "/opds/search/dune%20messiah", feed.Links[0].Href)
	assert.Equal(t, "dune messiah - Shelfmark", feed.Title)
	require.Len(t, feed.Entries, 1)
}

func TestSearchFeed_NoMatches(t *testing.T) {
	c, _, _ := newTestCatalog(t)

	feed, err := c.SearchFeed(context.Background(), "", "unwritten")
	require.NoError(t, err)
	assert.Empty(t, feed.Entries)
}

func TestSearchFeed_RespectsUserScope(t *testing.T) {
	c, _, searcher := newTestCatalog(t)
	searcher.hits["austen"] = []string{"book-persuasion"}

	// The scoped user cannot see the romance root folder, so the hit is
	// dropped even though the index returned it.
	feed, err := c.SearchFeed(context.Background(), "user-kid", "austen")
	require.NoError(t, err)
	assert.Empty(t, feed.Entries)
}

func TestSearchFeed_SkipsStaleHits(t *testing.T) {
	c, _, searcher := newTestCatalog(t)
	searcher.hits["dune"] = append(searcher.hits["dune"], "book-deleted")

	feed, err := c.SearchFeed(context.Background(), "", "dune")
	require.NoError(t, err)
	assert.Len(t, feed.Entries, 2)
}

func TestSearchDescription(t *testing.T) {
	c, _, _ := newTestCatalog(t)

	osd := c.SearchDescription(context.Background())
	assert.Equal(t, "Shelfmark", osd.ShortName)
	require.Len(t, osd.URLs, 2)
	assert.Contains(t, osd.URLs[0].Template, "{searchTerms}")
	assert.Equal(t, AtomType, osd.URLs[1].Type)
	assert.Equal(t, "/opds/search/{searchTerms}", osd.URLs[1].Template)
}

func TestCoverAndContentPaths(t *testing.T) {
	c, _, _ := newTestCatalog(t)
	ctx := context.Background()

	cover, err := c.CoverPath(ctx, "book-dune")
	require.NoError(t, err)
	assert.Equal(t, "/data/media/books/scifi/Frank Herbert/Dune/cover.jpg", cover)

	// No cover recorded and unknown book both yield empty paths.
	cover, err = c.CoverPath(ctx, "book-messiah")
	require.NoError(t, err)
	assert.Empty(t, cover)
	cover, err = c.CoverPath(ctx, "book-missing")
	require.NoError(t, err)
	assert.Empty(t, cover)

	path, err := c.ContentPath(ctx, "book-persuasion")
	require.NoError(t, err)
	assert.Equal(t, "/data/media/books/romance/Jane Austen/Persuasion/Persuasion.epub", path)
}
