package models

import "fmt"

// SearchQuery represents a search request.
type SearchQuery struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k,omitempty"`
}

// Validate ensures the query is non-empty and normalizes TopK into [1, maxTopK].
func (q *SearchQuery) Validate(defaultTopK, maxTopK int) error {
	if q.Query == "" {
		return fmt.Errorf("query cannot be empty")
	}
	if q.TopK <= 0 {
		q.TopK = defaultTopK
	}
	if q.TopK > maxTopK {
		q.TopK = maxTopK
	}
	return nil
}
