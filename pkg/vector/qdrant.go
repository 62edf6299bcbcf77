package vector

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"

	"github.com/alfredoalpizar/rag-orchestrator-sub000/pkg/config"
)

// QdrantStore implements Store over a Qdrant collection.
type QdrantStore struct {
	client     *qdrant.Client
	collection string
}

// NewQdrantStore connects to Qdrant with the configured settings.
func NewQdrantStore(cfg config.QdrantConfig) (*QdrantStore, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to qdrant: %w", err)
	}
	return &QdrantStore{client: client, collection: cfg.Collection}, nil
}

// Search queries the collection by vector similarity.
func (s *QdrantStore) Search(ctx context.Context, vector []float32, limit int) ([]SearchResult, error) {
	lim := uint64(limit)
	points, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          &lim,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant query: %w", err)
	}

	results := make([]SearchResult, 0, len(points))
	for _, p := range points {
		content := ""
		if v, ok := p.Payload["content"]; ok {
			content = v.GetStringValue()
		}
		if content == "" {
			continue
		}
		results = append(results, SearchResult{
			ID:      pointIDString(p.Id),
			Content: content,
			// Cosine similarity score; stored as a distance so relevance
			// comes out as 1 - distance downstream.
			Distance: 1 - p.Score,
		})
	}
	return results, nil
}

// Health checks connectivity to the Qdrant instance.
func (s *QdrantStore) Health(ctx context.Context) error {
	if _, err := s.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("qdrant health check: %w", err)
	}
	return nil
}

// Close releases the underlying connection.
func (s *QdrantStore) Close() error {
	return s.client.Close()
}

func pointIDString(id *qdrant.PointId) string {
	if id == nil {
		return ""
	}
	if uuid := id.GetUuid(); uuid != "" {
		return uuid
	}
	return fmt.Sprintf("%d", id.GetNum())
}
