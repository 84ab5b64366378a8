package api

import (
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"

	"github.com/shelfmark/shelfmark-server/internal/http/response"
	"github.com/shelfmark/shelfmark-server/internal/opds"
)

// handleOPDSRoot serves the top-level navigation feed.
func (s *Server) handleOPDSRoot(w http.ResponseWriter, r *http.Request) {
	feed := s.catalog.RootFeed(r.Context())
	response.XML(w, opds.NavigationType, feed, s.logger)
}

// handleOPDSSearchDescription serves the OpenSearch description document.
func (s *Server) handleOPDSSearchDescription(w http.ResponseWriter, r *http.Request) {
	osd := s.catalog.SearchDescription(r.Context())
	response.XML(w, opds.SearchDescriptionType, osd, s.logger)
}

// handleOPDSAuthorIndex serves the alphabetical author index.
func (s *Server) handleOPDSAuthorIndex(w http.ResponseWriter, r *http.Request) {
	feed := s.catalog.AuthorIndexFeed(r.Context())
	response.XML(w, opds.NavigationType, feed, s.logger)
}

// handleOPDSAllAuthors serves the unfiltered author listing.
func (s *Server) handleOPDSAllAuthors(w http.ResponseWriter, r *http.Request) {
	feed, err := s.catalog.AuthorsByLetterFeed(r.Context(), requestUserID(r), opds.AllAuthorsSentinel)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.XML(w, opds.NavigationType, feed, s.logger)
}

// handleOPDSAuthorsByLetter serves the author listing for one letter.
func (s *Server) handleOPDSAuthorsByLetter(w http.ResponseWriter, r *http.Request) {
	letter := chi.URLParam(r, "letter")
	feed, err := s.catalog.AuthorsByLetterFeed(r.Context(), requestUserID(r), letter)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.XML(w, opds.NavigationType, feed, s.logger)
}

// handleOPDSBooksByAuthor serves the acquisition feed for one author.
func (s *Server) handleOPDSBooksByAuthor(w http.ResponseWriter, r *http.Request) {
	authorID := chi.URLParam(r, "authorID")
	feed, err := s.catalog.BooksByAuthorFeed(r.Context(), requestUserID(r), authorID)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.XML(w, opds.AcquisitionType, feed, s.logger)
}

// handleOPDSFavorites serves the user's favorite books.
func (s *Server) handleOPDSFavorites(w http.ResponseWriter, r *http.Request) {
	feed, err := s.catalog.FavoritesFeed(r.Context(), requestUserID(r))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.XML(w, opds.AcquisitionType, feed, s.logger)
}

// handleOPDSSearch serves full-text search results as an acquisition feed.
func (s *Server) handleOPDSSearch(w http.ResponseWriter, r *http.Request) {
	term := chi.URLParam(r, "term")
	feed, err := s.catalog.SearchFeed(r.Context(), requestUserID(r), term)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.XML(w, opds.AcquisitionType, feed, s.logger)
}

// handleOPDSCover streams a book's cover image.
func (s *Server) handleOPDSCover(w http.ResponseWriter, r *http.Request) {
	bookID := chi.URLParam(r, "bookID")

	path, err := s.catalog.CoverPath(r.Context(), bookID)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	if path == "" {
		response.NotFound(w, "cover not found", s.logger)
		return
	}

	http.ServeFile(w, r, path)
}

// handleOPDSDownload streams a book file as an attachment.
func (s *Server) handleOPDSDownload(w http.ResponseWriter, r *http.Request) {
	bookID := chi.URLParam(r, "bookID")

	path, err := s.catalog.ContentPath(r.Context(), bookID)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	if path == "" {
		response.NotFound(w, "book not found", s.logger)
		return
	}

	w.Header().Set("Content-Disposition", `attachment; filename="`+filepath.Base(path)+`"`)
	http.ServeFile(w, r, path)
}
