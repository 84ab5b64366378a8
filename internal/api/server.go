// Package api provides the HTTP server and handlers for the Shelfmark catalog.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/shelfmark/shelfmark-server/internal/http/response"
	"github.com/shelfmark/shelfmark-server/internal/opds"
	"github.com/shelfmark/shelfmark-server/internal/ratelimit"
	"github.com/shelfmark/shelfmark-server/internal/service"
)

// Services groups all business logic services used by the API server.
// This reduces the parameter count for NewServer and improves testability.
type Services struct {
	Library  *service.LibraryService
	User     *service.UserService
	Settings *service.SettingsService
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	catalog         *opds.Catalog
	services        *Services
	downloadLimiter *ratelimit.KeyedRateLimiter
	router          *chi.Mux
	logger          *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
// A nil downloadLimiter disables payload rate limiting.
func NewServer(catalog *opds.Catalog, services *Services, downloadLimiter *ratelimit.KeyedRateLimiter, logger *slog.Logger) *Server {
	s := &Server{
		catalog:         catalog,
		services:        services,
		downloadLimiter: downloadLimiter,
		router:          chi.NewRouter(),
		logger:          logger,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// setupMiddleware configures middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))

	// OPDS readers and web frontends fetch feeds cross-origin.
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	// Health check.
	s.router.Get("/health", s.handleHealthCheck)

	// OPDS catalog. User scoping rides on the ?user= query parameter; an
	// unknown or absent user sees the unscoped catalog.
	s.router.Route("/opds", func(r chi.Router) {
		r.Get("/", s.handleOPDSRoot)
		r.Get("/osd", s.handleOPDSSearchDescription)

		r.Route("/authors", func(r chi.Router) {
			r.Get("/", s.handleOPDSAuthorIndex)
			r.Get("/all", s.handleOPDSAllAuthors)
			r.Get("/letter/{letter}", s.handleOPDSAuthorsByLetter)
			r.Get("/{authorID}", s.handleOPDSBooksByAuthor)
		})

		r.Get("/books/favorites", s.handleOPDSFavorites)
		r.Get("/search/{term}", s.handleOPDSSearch)

		// Payload endpoints are rate limited per client.
		r.Group(func(r chi.Router) {
			if s.downloadLimiter != nil {
				r.Use(RateLimitMiddleware(s.downloadLimiter, s.logger))
			}
			r.Get("/cover/{bookID}", s.handleOPDSCover)
			r.Get("/download/{bookID}", s.handleOPDSDownload)
		})
	})

	// JSON admin API.
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Route("/books", func(r chi.Router) {
			r.Get("/", s.handleListBooks)
			r.Get("/{id}", s.handleGetBook)
		})

		r.Post("/library/scan", s.handleTriggerScan)

		r.Route("/users", func(r chi.Router) {
			r.Post("/", s.handleCreateUser)
			r.Get("/", s.handleListUsers)
			r.Get("/{id}", s.handleGetUser)
			r.Put("/{id}/access", s.handleUpdateUserAccess)
			r.Put("/{id}/favorites/{bookID}", s.handleAddFavorite)
			r.Delete("/{id}/favorites/{bookID}", s.handleRemoveFavorite)
		})

		r.Route("/settings", func(r chi.Router) {
			r.Get("/", s.handleGetSettings)
			r.Patch("/", s.handleUpdateSettings)
		})
	})
}

// handleHealthCheck returns server health status.
func (s *Server) handleHealthCheck(w http.ResponseWriter, _ *http.Request) {
	response.Success(w, map[string]string{
		"status": "healthy",
	}, s.logger)
}

// requestUserID returns the catalog user id carried by the request, if any.
func requestUserID(r *http.Request) string {
	return r.URL.Query().Get("user")
}
