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

const userPrefix = "user:"

var (
	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("user already exists")
)

// User Operations

// CreateUser creates a new user.
func (s *Store) CreateUser(ctx context.Context, user *domain.User) error {
	key := []byte(userPrefix + user.ID)

	exists, err := s.exists(key)
	if err != nil {
		return fmt.Errorf("check user exists: %w", err)
	}
	if exists {
		return ErrUserExists
	}

	if err := s.setJSON(key, user); err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	if s.logger != nil {
		s.logger.LogAttrs(ctx, slog.LevelInfo, "user created",
			slog.String("id", user.ID),
			slog.String("name", user.Name),
		)
	}
	return nil
}

// GetUser retrieves a user by ID.
func (s *Store) GetUser(_ context.Context, id string) (*domain.User, error) {
	var user domain.User
	err := s.getJSON([]byte(userPrefix+id), &user)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &user, nil
}

// UpdateUser replaces an existing user record.
func (s *Store) UpdateUser(_ context.Context, user *domain.User) error {
	key := []byte(userPrefix + user.ID)

	exists, err := s.exists(key)
	if err != nil {
		return fmt.Errorf("check user exists: %w", err)
	}
	if !exists {
		return ErrUserNotFound
	}

	user.Touch()
	if err := s.setJSON(key, user); err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

// ListUsers returns all users ordered by name.
func (s *Store) ListUsers(_ context.Context) ([]*domain.User, error) {
	users, err := listPrefix[domain.User](s, []byte(userPrefix))
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Name < users[j].Name })
	return users, nil
}

// SetBookFavorite marks or unmarks a book as a favorite for the user.
// Returns ErrUserNotFound or ErrBookNotFound for unknown ids.
func (s *Store) SetBookFavorite(ctx context.Context, userID, bookID string, favorite bool) error {
	if _, err := s.GetBook(ctx, bookID); err != nil {
		return err
	}

	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return err
	}

	var changed bool
	if favorite {
		changed = user.AddFavorite(bookID)
	} else {
		changed = user.RemoveFavorite(bookID)
	}
	if !changed {
		return nil
	}

	return s.UpdateUser(ctx, user)
}
