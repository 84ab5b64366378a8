package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shelfmark/shelfmark-server/internal/domain"
	"github.com/shelfmark/shelfmark-server/internal/store"
)

// SettingsService manages server-wide settings.
type SettingsService struct {
	store  *store.Store
	logger *slog.Logger
}

// NewSettingsService creates a new settings service.
func NewSettingsService(st *store.Store, logger *slog.Logger) *SettingsService {
	return &SettingsService{
		store:  st,
		logger: logger,
	}
}

// GetServerSettings retrieves server-wide settings.
func (s *SettingsService) GetServerSettings(ctx context.Context) (*domain.ServerSettings, error) {
	return s.store.GetServerSettings(ctx)
}

// SettingsUpdate contains fields that can be updated.
type SettingsUpdate struct {
	DisplayName *string
}

// UpdateServerSettings updates server-wide settings.
func (s *SettingsService) UpdateServerSettings(ctx context.Context, update *SettingsUpdate) (*domain.ServerSettings, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	current, err := s.store.GetServerSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("get current settings: %w", err)
	}

	if update.DisplayName != nil {
		current.DisplayName = *update.DisplayName
	}
	current.UpdatedAt = time.Now()

	if err := s.store.UpdateServerSettings(ctx, current); err != nil {
		return nil, fmt.Errorf("update settings: %w", err)
	}

	s.logger.Info("server settings updated", "display_name", current.DisplayName)

	return current, nil
}
