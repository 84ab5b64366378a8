package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/shelfmark/shelfmark-server/internal/domain"
)

const serverSettingsKey = "server:settings"

// GetServerSettings retrieves server-wide settings, creating defaults if absent.
func (s *Store) GetServerSettings(_ context.Context) (*domain.ServerSettings, error) {
	var settings domain.ServerSettings
	err := s.getJSON([]byte(serverSettingsKey), &settings)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return domain.NewServerSettings(), nil
		}
		return nil, fmt.Errorf("get server settings: %w", err)
	}
	return &settings, nil
}

// UpdateServerSettings stores server-wide settings.
func (s *Store) UpdateServerSettings(_ context.Context, settings *domain.ServerSettings) error {
	if err := s.setJSON([]byte(serverSettingsKey), settings); err != nil {
		return fmt.Errorf("update server settings: %w", err)
	}
	return nil
}

// ServerDisplayName returns the configured display name, or "" when unset.
// Feed titles fall back to the catalog's built-in default on empty.
func (s *Store) ServerDisplayName(ctx context.Context) string {
	settings, err := s.GetServerSettings(ctx)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("failed to load server settings", "error", err)
		}
		return ""
	}
	return settings.DisplayName
}
