package tools

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alfredoalpizar/rag-orchestrator-sub000/pkg/vector"
)

type stubEmbedder struct {
	err error
}

func (e *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

type stubStore struct {
	results   []vector.SearchResult
	err       error
	lastLimit int
}

func (s *stubStore) Search(ctx context.Context, vec []float32, limit int) ([]vector.SearchResult, error) {
	s.lastLimit = limit
	return s.results, s.err
}

func (s *stubStore) Health(ctx context.Context) error { return nil }

func TestRAGToolFormatsDocuments(t *testing.T) {
	store := &stubStore{results: []vector.SearchResult{
		{ID: "1", Content: "Reset your password via the portal.", Distance: 0.1},
		{ID: "2", Content: "Contact IT for locked accounts.", Distance: 0.25},
	}}
	tool := NewRAGTool(&stubEmbedder{}, store)

	out, err := tool.Execute(context.Background(), map[string]any{"query": "password reset"})
	require.NoError(t, err)

	assert.Equal(t,
		"Document: Reset your password via the portal.\n(Relevance: 0.9000)\n\n"+
			"Document: Contact IT for locked accounts.\n(Relevance: 0.7500)",
		out)
	assert.Equal(t, 5, store.lastLimit)
}

func TestRAGToolMaxResults(t *testing.T) {
	store := &stubStore{}
	tool := NewRAGTool(&stubEmbedder{}, store)

	// JSON numbers decode as float64.
	_, err := tool.Execute(context.Background(), map[string]any{"query": "q", "maxResults": float64(2)})
	require.NoError(t, err)
	assert.Equal(t, 2, store.lastLimit)
}

func TestRAGToolEmptyResults(t *testing.T) {
	tool := NewRAGTool(&stubEmbedder{}, &stubStore{})
	out, err := tool.Execute(context.Background(), map[string]any{"query": "q"})
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestRAGToolMissingQuery(t *testing.T) {
	tool := NewRAGTool(&stubEmbedder{}, &stubStore{})
	_, err := tool.Execute(context.Background(), map[string]any{})
	assert.Error(t, err)
}

func TestRAGToolStoreFailureSurfacesAsToolError(t *testing.T) {
	r := NewRegistry(NewRAGTool(&stubEmbedder{}, &stubStore{err: errors.New("qdrant unreachable")}))
	res := r.Execute(context.Background(), toolCall(RAGToolName, `{"query":"q"}`))
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "qdrant unreachable")
}

func TestRAGToolEmbedderFailure(t *testing.T) {
	tool := NewRAGTool(&stubEmbedder{err: errors.New("embedding service down")}, &stubStore{})
	_, err := tool.Execute(context.Background(), map[string]any{"query": "q"})
	assert.ErrorContains(t, err, "embedding service down")
}
