package domain

import "time"

// ServerSettings contains server-wide configuration.
// Stored as a single key in Badger.
type ServerSettings struct {
	// DisplayName decorates every catalog feed title. Empty means the
	// catalog falls back to its built-in default name.
	DisplayName string    `json:"display_name"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewServerSettings creates settings with sensible defaults.
func NewServerSettings() *ServerSettings {
	return &ServerSettings{
		UpdatedAt: time.Now(),
	}
}
