// Package embedder turns query text into vectors for retrieval.
package embedder

import "context"

// Embedder produces an embedding vector for a piece of text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
