package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/shelfmark/shelfmark-server/internal/domain"
)

const (
	folderPrefix       = "folder:"
	folderByPathPrefix = "idx:folders:path:"
)

var ErrFolderNotFound = errors.New("folder not found")

// Folder Operations

// CreateFolder creates a new folder and its path index entry.
func (s *Store) CreateFolder(_ context.Context, folder *domain.Folder) error {
	key := []byte(folderPrefix + folder.ID)

	exists, err := s.exists(key)
	if err != nil {
		return fmt.Errorf("check folder exists: %w", err)
	}
	if exists {
		return errors.New("folder already exists")
	}

	if err := s.setJSON(key, folder); err != nil {
		return fmt.Errorf("create folder: %w", err)
	}
	if err := s.setJSON([]byte(folderByPathPrefix+folder.Path), folder.ID); err != nil {
		return fmt.Errorf("create folder path index: %w", err)
	}
	return nil
}

// GetFolder retrieves a folder by ID.
func (s *Store) GetFolder(_ context.Context, id string) (*domain.Folder, error) {
	var folder domain.Folder
	err := s.getJSON([]byte(folderPrefix+id), &folder)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrFolderNotFound
		}
		return nil, fmt.Errorf("get folder: %w", err)
	}
	return &folder, nil
}

// GetFolderByPath retrieves a folder by its library path.
func (s *Store) GetFolderByPath(ctx context.Context, path string) (*domain.Folder, error) {
	var folderID string
	err := s.getJSON([]byte(folderByPathPrefix+path), &folderID)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrFolderNotFound
		}
		return nil, fmt.Errorf("get folder by path: %w", err)
	}
	return s.GetFolder(ctx, folderID)
}
