package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shelfmark/shelfmark-server/internal/domain"
	domainerrors "github.com/shelfmark/shelfmark-server/internal/errors"
	"github.com/shelfmark/shelfmark-server/internal/id"
	"github.com/shelfmark/shelfmark-server/internal/store"
	"github.com/shelfmark/shelfmark-server/internal/validation"
)

// UserService manages catalog users and their favorites.
type UserService struct {
	store     *store.Store
	validator *validation.Validator
	logger    *slog.Logger
}

// NewUserService creates a new user service.
func NewUserService(st *store.Store, validator *validation.Validator, logger *slog.Logger) *UserService {
	return &UserService{
		store:     st,
		validator: validator,
		logger:    logger,
	}
}

// CreateUserRequest carries the fields for creating a user.
type CreateUserRequest struct {
	Name string `json:"name" validate:"required,min=1,max=64"`
	// LibraryAccess lists root folders the user may see. Empty means the
	// whole catalog.
	LibraryAccess []string `json:"libraryAccess" validate:"dive,required"`
}

// CreateUser validates and persists a new user.
func (s *UserService) CreateUser(ctx context.Context, req CreateUserRequest) (*domain.User, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	user := &domain.User{
		Name:          req.Name,
		LibraryAccess: req.LibraryAccess,
	}
	user.ID = id.MustGenerate("user")
	user.InitTimestamps()

	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrUserExists) {
			return nil, domainerrors.AlreadyExists("user already exists")
		}
		return nil, err
	}
	return user, nil
}

// GetUser returns a user by id.
func (s *UserService) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, domainerrors.NotFound("user not found")
		}
		return nil, err
	}
	return user, nil
}

// ListUsers returns all users ordered by name.
func (s *UserService) ListUsers(ctx context.Context) ([]*domain.User, error) {
	return s.store.ListUsers(ctx)
}

// UpdateAccessRequest carries a replacement root-folder allowlist.
type UpdateAccessRequest struct {
	LibraryAccess []string `json:"libraryAccess" validate:"dive,required"`
}

// UpdateAccess replaces a user's root-folder allowlist.
func (s *UserService) UpdateAccess(ctx context.Context, userID string, req UpdateAccessRequest) (*domain.User, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	user.LibraryAccess = req.LibraryAccess
	if err := s.store.UpdateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// SetFavorite marks or unmarks a book as the user's favorite.
func (s *UserService) SetFavorite(ctx context.Context, userID, bookID string, favorite bool) error {
	err := s.store.SetBookFavorite(ctx, userID, bookID, favorite)
	switch {
	case errors.Is(err, store.ErrUserNotFound):
		return domainerrors.NotFound("user not found")
	case errors.Is(err, store.ErrBookNotFound):
		return domainerrors.NotFound("book not found")
	}
	return err
}
