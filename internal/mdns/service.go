// Package mdns provides mDNS/Zeroconf advertisement so OPDS readers on the
// local network can discover the catalog without manual configuration.
package mdns

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/hashicorp/mdns"
)

const (
	// ServiceType is the mDNS service type advertised for the catalog.
	ServiceType = "_opds._tcp"

	// CatalogPath is the feed entry point advertised in TXT records.
	CatalogPath = "/opds"

	// ServerVersion is the current server version advertised in TXT records.
	// TODO: Extract to a shared version package.
	ServerVersion = "1.0.0"
)

// Service manages mDNS advertisement for the catalog server.
type Service struct {
	server *mdns.Server
	logger *slog.Logger
	mu     sync.Mutex
}

// NewService creates a new mDNS service.
func NewService(logger *slog.Logger) *Service {
	return &Service{
		logger: logger,
	}
}

// Start begins advertising the catalog via mDNS.
// It should be called after the HTTP server is running.
//
// Parameters:
//   - name: The catalog display name
//   - port: The HTTP server port
//
// Returns an error if mDNS advertisement fails to start.
// Errors are typically non-fatal (e.g., multicast not supported in Docker).
func (s *Service) Start(name string, port int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Stop existing server if running (for restart scenarios)
	if s.server != nil {
		_ = s.server.Shutdown()
		s.server = nil
	}

	// Get hostname for mDNS instance name
	host, err := os.Hostname()
	if err != nil {
		host = "shelfmark-server"
	}

	// Build TXT records with catalog metadata
	txtRecords := []string{
		fmt.Sprintf("name=%s", name),
		fmt.Sprintf("path=%s", CatalogPath),
		fmt.Sprintf("version=%s", ServerVersion),
	}

	// Create mDNS service configuration
	service, err := mdns.NewMDNSService(
		host,        // Instance name (hostname)
		ServiceType, // Service type (_opds._tcp)
		"",          // Domain (empty = .local)
		"",          // Host (empty = use system hostname)
		port,        // Port
		nil,         // IPs (nil = all interfaces)
		txtRecords,  // TXT records
	)
	if err != nil {
		return fmt.Errorf("create mDNS service: %w", err)
	}

	// Create and start mDNS server
	server, err := mdns.NewServer(&mdns.Config{
		Zone: service,
	})
	if err != nil {
		return fmt.Errorf("start mDNS server: %w", err)
	}

	s.server = server

	s.logger.Info("mDNS advertisement started",
		"service", ServiceType,
		"port", port,
		"name", name,
	)

	return nil
}

// Stop stops mDNS advertising.
// Safe to call multiple times or if not started.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		_ = s.server.Shutdown()
		s.server = nil
		s.logger.Info("mDNS advertisement stopped")
	}
}
