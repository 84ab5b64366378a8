package api

import (
	"context"
	"encoding/json/v2"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfmark/shelfmark-server/internal/author"
	"github.com/shelfmark/shelfmark-server/internal/domain"
	"github.com/shelfmark/shelfmark-server/internal/http/response"
	"github.com/shelfmark/shelfmark-server/internal/id"
	"github.com/shelfmark/shelfmark-server/internal/ratelimit"
	"github.com/shelfmark/shelfmark-server/internal/scanner"
	"github.com/shelfmark/shelfmark-server/internal/service"
	"github.com/shelfmark/shelfmark-server/internal/store"
	"github.com/shelfmark/shelfmark-server/internal/validation"
)

type stubSearcher struct {
	hits map[string][]string
}

func (s stubSearcher) SearchBooks(_ context.Context, term string, _ int) ([]string, error) {
	return s.hits[term], nil
}

type testEnv struct {
	server *Server
	store  *store.Store
	dune   *domain.Book
}

// newTestEnv builds a server over a real store with one book whose file
// exists on disk.
func newTestEnv(t *testing.T, limiter *ratelimit.KeyedRateLimiter) *testEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	st, err := store.New(t.TempDir(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	libraryRoot := t.TempDir()
	bookDir := filepath.Join(libraryRoot, "scifi", "Frank Herbert", "Dune")
	require.NoError(t, os.MkdirAll(bookDir, 0o755))
	bookPath := filepath.Join(bookDir, "Dune.epub")
	require.NoError(t, os.WriteFile(bookPath, []byte("dune-content"), 0o644))

	dune := &domain.Book{
		Title:      "Dune",
		Path:       bookPath,
		RootFolder: "scifi",
		Format:     "epub",
		Size:       int64(len("dune-content")),
		ModTime:    1700000000000,
	}
	dune.ID = id.MustGenerate("book")
	dune.InitTimestamps()
	require.NoError(t, st.CreateBook(context.Background(), dune))

	searcher := stubSearcher{hits: map[string][]string{"dune": {dune.ID}}}
	// The configured segment matches the temp dir depth of the author
	// folder in bookPath.
	extractor := author.FolderExtractor{Segment: len(strings.Split(libraryRoot, "/")) + 1}
	catalog := service.NewCatalog(st, searcher, extractor, logger)

	sc := scanner.NewScanner(st, logger)
	services := &Services{
		Library:  service.NewLibraryService(st, sc, libraryRoot, logger),
		User:     service.NewUserService(st, validation.New(), logger),
		Settings: service.NewSettingsService(st, logger),
	}

	return &testEnv{
		server: NewServer(catalog, services, limiter, logger),
		store:  st,
		dune:   dune,
	}
}

func (e *testEnv) request(t *testing.T, method, path string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, body)
	w := httptest.NewRecorder()
	e.server.ServeHTTP(w, req)
	return w
}

func TestHealthCheck(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.request(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}

func TestOPDSRoot(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.request(t, http.MethodGet, "/opds", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "kind=navigation")

	body := w.Body.String()
	assert.Contains(t, body, "<title>Authors</title>")
	assert.Contains(t, body, "<title>Favorite Books</title>")
}

func TestOPDSAuthorBrowse(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.request(t, http.MethodGet, "/opds/authors/all", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Herbert, Frank")

	authorID := author.StableID("Herbert, Frank").String()
	w = env.request(t, http.MethodGet, "/opds/authors/"+authorID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "kind=acquisition")
	assert.Contains(t, w.Body.String(), "<title>Dune</title>")
}

func TestOPDSSearch(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.request(t, http.MethodGet, "/opds/search/dune", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "<title>Dune</title>")

	w = env.request(t, http.MethodGet, "/opds/search/nothing", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "<entry>")
}

func TestOPDSSearchDescription(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.request(t, http.MethodGet, "/opds/osd", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "{searchTerms}")
}

func TestOPDSDownload(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.request(t, http.MethodGet, "/opds/download/"+env.dune.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "dune-content", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), `filename="Dune.epub"`)
}

func TestOPDSDownload_UnknownBook(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.request(t, http.MethodGet, "/opds/download/book-missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestOPDSCover_NoCover(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.request(t, http.MethodGet, "/opds/cover/"+env.dune.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestOPDSDownload_RateLimited(t *testing.T) {
	limiter := ratelimit.New(0.1, 1)
	t.Cleanup(limiter.Stop)
	env := newTestEnv(t, limiter)

	w := env.request(t, http.MethodGet, "/opds/download/"+env.dune.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.request(t, http.MethodGet, "/opds/download/"+env.dune.ID, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestUserLifecycleAndScopedFeed(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.request(t, http.MethodPost, "/api/v1/users",
		strings.NewReader(`{"name":"kid","libraryAccess":["romance"]}`))
	require.Equal(t, http.StatusCreated, w.Code)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	data, ok := envelope.Data.(map[string]any)
	require.True(t, ok)
	userID, _ := data["id"].(string)
	require.NotEmpty(t, userID)

	// The scoped user cannot see the scifi root folder.
	w = env.request(t, http.MethodGet, "/opds/authors/all?user="+userID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "Herbert, Frank")
}

func TestCreateUser_Invalid(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.request(t, http.MethodPost, "/api/v1/users", strings.NewReader(`{}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFavoritesFlow(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.request(t, http.MethodPost, "/api/v1/users", strings.NewReader(`{"name":"reader"}`))
	require.Equal(t, http.StatusCreated, w.Code)
	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	userID := envelope.Data.(map[string]any)["id"].(string)

	w = env.request(t, http.MethodPut, "/api/v1/users/"+userID+"/favorites/"+env.dune.ID, nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = env.request(t, http.MethodGet, "/opds/books/favorites?user="+userID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "<title>Dune</title>")

	w = env.request(t, http.MethodDelete, "/api/v1/users/"+userID+"/favorites/"+env.dune.ID, nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = env.request(t, http.MethodGet, "/opds/books/favorites?user="+userID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "<title>Dune</title>")
}

func TestSettingsDecorateFeedTitles(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.request(t, http.MethodPatch, "/api/v1/settings",
		strings.NewReader(`{"displayName":"Family Library"}`))
	require.Equal(t, http.StatusOK, w.Code)

	w = env.request(t, http.MethodGet, "/opds", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Catalog - Family Library")
}

func TestTriggerScan(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.request(t, http.MethodPost, "/api/v1/library/scan?dry_run=true", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Added")
}

func TestGetBook(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.request(t, http.MethodGet, "/api/v1/books/"+env.dune.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Dune")

	w = env.request(t, http.MethodGet, "/api/v1/books/book-missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
