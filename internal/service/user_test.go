package service

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfmark/shelfmark-server/internal/domain"
	domainerrors "github.com/shelfmark/shelfmark-server/internal/errors"
	"github.com/shelfmark/shelfmark-server/internal/id"
	"github.com/shelfmark/shelfmark-server/internal/store"
	"github.com/shelfmark/shelfmark-server/internal/validation"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	st, err := store.New(t.TempDir(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func newUserService(t *testing.T) (*UserService, *store.Store) {
	t.Helper()

	st := newTestStore(t)
	return NewUserService(st, validation.New(), discardLogger()), st
}

func seedBook(t *testing.T, st *store.Store, title string) *domain.Book {
	t.Helper()

	book := &domain.Book{
		Title:      title,
		Path:       "/data/media/books/scifi/Frank Herbert/" + title + "/" + title + ".epub",
		RootFolder: "scifi",
		Format:     "epub",
	}
	book.ID = id.MustGenerate("book")
	book.InitTimestamps()
	require.NoError(t, st.CreateBook(context.Background(), book))
	return book
}

func TestCreateUser(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()

	user, err := svc.CreateUser(ctx, CreateUserRequest{Name: "kid", LibraryAccess: []string{"scifi"}})
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "kid", user.Name)
	assert.Equal(t, []string{"scifi"}, user.LibraryAccess)

	got, err := svc.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Name, got.Name)
}

func TestCreateUser_ValidationFails(t *testing.T) {
	svc, _ := newUserService(t)

	_, err := svc.CreateUser(context.Background(), CreateUserRequest{})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestGetUser_NotFound(t *testing.T) {
	svc, _ := newUserService(t)

	_, err := svc.GetUser(context.Background(), "user-missing")
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestUpdateAccess(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()

	user, err := svc.CreateUser(ctx, CreateUserRequest{Name: "kid"})
	require.NoError(t, err)

	updated, err := svc.UpdateAccess(ctx, user.ID, UpdateAccessRequest{LibraryAccess: []string{"romance"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"romance"}, updated.LibraryAccess)
}

func TestSetFavorite(t *testing.T) {
	svc, st := newUserService(t)
	ctx := context.Background()

	book := seedBook(t, st, "Dune")
	user, err := svc.CreateUser(ctx, CreateUserRequest{Name: "reader"})
	require.NoError(t, err)

	require.NoError(t, svc.SetFavorite(ctx, user.ID, book.ID, true))

	favorites, err := st.FavoritesForUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, favorites, 1)
	assert.Equal(t, "Dune", favorites[0].Title)

	require.NoError(t, svc.SetFavorite(ctx, user.ID, book.ID, false))
	favorites, err = st.FavoritesForUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, favorites)
}

func TestSetFavorite_UnknownIDs(t *testing.T) {
	svc, st := newUserService(t)
	ctx := context.Background()

	book := seedBook(t, st, "Dune")

	err := svc.SetFavorite(ctx, "user-missing", book.ID, true)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)

	user, err := svc.CreateUser(ctx, CreateUserRequest{Name: "reader"})
	require.NoError(t, err)
	err = svc.SetFavorite(ctx, user.ID, "book-missing", true)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}
