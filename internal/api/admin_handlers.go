package api

import (
	"encoding/json/v2"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/shelfmark/shelfmark-server/internal/http/response"
	"github.com/shelfmark/shelfmark-server/internal/scanner"
	"github.com/shelfmark/shelfmark-server/internal/service"
)

// handleListBooks returns the books visible to the requesting user.
func (s *Server) handleListBooks(w http.ResponseWriter, r *http.Request) {
	books, err := s.services.Library.ListBooks(r.Context(), requestUserID(r))
	if err != nil {
		s.logger.Error("Failed to list books", "error", err)
		response.InternalError(w, "Failed to retrieve books", s.logger)
		return
	}
	response.Success(w, books, s.logger)
}

// handleGetBook returns a single book by ID.
func (s *Server) handleGetBook(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	book, err := s.services.Library.GetBook(r.Context(), id)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, book, s.logger)
}

// handleTriggerScan runs a library scan. The dry_run query parameter
// reports changes without applying them.
func (s *Server) handleTriggerScan(w http.ResponseWriter, r *http.Request) {
	opts := scanner.ScanOptions{
		DryRun: r.URL.Query().Get("dry_run") == "true",
	}

	result, err := s.services.Library.TriggerScan(r.Context(), opts)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, result, s.logger)
}

// handleCreateUser creates a catalog user.
func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req service.CreateUserRequest
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}

	user, err := s.services.User.CreateUser(r.Context(), req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Created(w, user, s.logger)
}

// handleListUsers returns all catalog users.
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.services.User.ListUsers(r.Context())
	if err != nil {
		s.logger.Error("Failed to list users", "error", err)
		response.InternalError(w, "Failed to retrieve users", s.logger)
		return
	}
	response.Success(w, users, s.logger)
}

// handleGetUser returns a single user by ID.
func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.services.User.GetUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, user, s.logger)
}

// handleUpdateUserAccess replaces a user's root-folder allowlist.
func (s *Server) handleUpdateUserAccess(w http.ResponseWriter, r *http.Request) {
	var req service.UpdateAccessRequest
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}

	user, err := s.services.User.UpdateAccess(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, user, s.logger)
}

// handleAddFavorite marks a book as the user's favorite.
func (s *Server) handleAddFavorite(w http.ResponseWriter, r *http.Request) {
	s.setFavorite(w, r, true)
}

// handleRemoveFavorite unmarks a book as the user's favorite.
func (s *Server) handleRemoveFavorite(w http.ResponseWriter, r *http.Request) {
	s.setFavorite(w, r, false)
}

func (s *Server) setFavorite(w http.ResponseWriter, r *http.Request, favorite bool) {
	userID := chi.URLParam(r, "id")
	bookID := chi.URLParam(r, "bookID")

	if err := s.services.User.SetFavorite(r.Context(), userID, bookID, favorite); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.NoContent(w)
}

// handleGetSettings returns server-wide settings.
func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.services.Settings.GetServerSettings(r.Context())
	if err != nil {
		s.logger.Error("Failed to get settings", "error", err)
		response.InternalError(w, "Failed to retrieve settings", s.logger)
		return
	}
	response.Success(w, settings, s.logger)
}

// UpdateSettingsRequest is the request body for updating settings.
type UpdateSettingsRequest struct {
	DisplayName *string `json:"displayName,omitempty"`
}

// handleUpdateSettings updates server-wide settings.
func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req UpdateSettingsRequest
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}

	settings, err := s.services.Settings.UpdateServerSettings(r.Context(), &service.SettingsUpdate{
		DisplayName: req.DisplayName,
	})
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, settings, s.logger)
}
