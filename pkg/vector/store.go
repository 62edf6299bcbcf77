// Package vector is the retrieval boundary: a minimal search contract over
// an external vector database.
package vector

import "context"

// SearchResult is one retrieved chunk. Distance is the vector distance of
// the match; relevance for display is 1 - Distance.
type SearchResult struct {
	ID       string
	Content  string
	Distance float32
}

// Store searches a single pre-ingested collection. Ingestion is owned by an
// external pipeline.
type Store interface {
	// Search returns up to limit results ordered by increasing distance.
	Search(ctx context.Context, vector []float32, limit int) ([]SearchResult, error)

	// Health reports whether the store is reachable.
	Health(ctx context.Context) error
}
