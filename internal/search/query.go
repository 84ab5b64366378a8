package search

import (
	"context"
	"fmt"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
)

// SearchBooks returns the ids of books matching the term, best match first,
// capped at limit. An empty term or a term matching nothing yields an empty
// slice, never an error.
func (s *SearchIndex) SearchBooks(ctx context.Context, term string, limit int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if term == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}

	searchRequest := bleve.NewSearchRequestOptions(buildBookQuery(term), limit, 0, false)
	searchRequest.Fields = []string{"id"}

	result, err := s.index.SearchInContext(ctx, searchRequest)
	if err != nil {
		return nil, fmt.Errorf("search books: %w", err)
	}

	ids := make([]string, 0, len(result.Hits))
	for _, hit := range result.Hits {
		ids = append(ids, hit.ID)
	}
	return ids, nil
}

// buildBookQuery matches the term against title, author, and description,
// with title matches weighted heaviest.
func buildBookQuery(term string) query.Query {
	titleQuery := bleve.NewMatchQuery(term)
	titleQuery.SetField("title")
	titleQuery.SetBoost(3.0)

	authorQuery := bleve.NewMatchQuery(term)
	authorQuery.SetField("author")
	authorQuery.SetBoost(2.0)

	descQuery := bleve.NewMatchQuery(term)
	descQuery.SetField("description")

	// Prefix match on title so partial typing still finds books.
	prefixQuery := bleve.NewPrefixQuery(term)
	prefixQuery.SetField("title")

	return bleve.NewDisjunctionQuery(titleQuery, authorQuery, descQuery, prefixQuery)
}
