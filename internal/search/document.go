// Package search provides full-text search over the book catalog using Bleve.
//
// Only books are indexed. Author names are denormalized into each book
// document at index time (derived from the book's path, same heuristic the
// catalog uses) so a search for an author surfaces their books directly.
package search

import (
	"github.com/shelfmark/shelfmark-server/internal/domain"
)

// BookDocument is the document structure stored in the Bleve index.
type BookDocument struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Author      string `json:"author,omitempty"` // Denormalized from the book path
	Format      string `json:"format,omitempty"`
}

// newBookDocument builds a search document from a book and its derived author
// name. The author may be empty when the book's path does not match the
// library layout; the document is still searchable by title.
func newBookDocument(book *domain.Book, authorName string) *BookDocument {
	return &BookDocument{
		ID:          book.ID,
		Title:       book.Title,
		Description: book.Description,
		Author:      authorName,
		Format:      book.Format,
	}
}
