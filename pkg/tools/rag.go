package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/alfredoalpizar/rag-orchestrator-sub000/pkg/embedder"
	"github.com/alfredoalpizar/rag-orchestrator-sub000/pkg/llm"
	"github.com/alfredoalpizar/rag-orchestrator-sub000/pkg/vector"
)

// RAGToolName is the registry key of the knowledge base search tool.
const RAGToolName = "rag_search"

const defaultMaxResults = 5

// RAGTool retrieves documents from the vector store for a text query.
type RAGTool struct {
	embedder embedder.Embedder
	store    vector.Store
}

// NewRAGTool wires the retrieval tool.
func NewRAGTool(emb embedder.Embedder, store vector.Store) *RAGTool {
	return &RAGTool{embedder: emb, store: store}
}

// Schema describes the tool to the model.
func (t *RAGTool) Schema() llm.ToolSchema {
	return llm.ToolSchema{
		Name:        RAGToolName,
		Description: "Search the knowledge base for documents relevant to a query. Use this to ground your answer in retrieved facts.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "The search query",
				},
				"maxResults": map[string]any{
					"type":        "integer",
					"description": "Maximum number of documents to return (default 5)",
				},
			},
			"required": []string{"query"},
		},
	}
}

// Execute embeds the query, searches the store, and formats the hits one per
// paragraph in decreasing relevance order. An empty result set yields an
// empty string.
func (t *RAGTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	query, _ := args["query"].(string)
	if strings.TrimSpace(query) == "" {
		return "", fmt.Errorf("query is required")
	}

	maxResults := defaultMaxResults
	if v, ok := args["maxResults"].(float64); ok && int(v) > 0 {
		maxResults = int(v)
	}

	return t.Search(ctx, query, maxResults)
}

// Search is the direct entry point used by the orchestrator's pre-retrieval
// step, bypassing argument parsing.
func (t *RAGTool) Search(ctx context.Context, query string, maxResults int) (string, error) {
	vec, err := t.embedder.Embed(ctx, query)
	if err != nil {
		return "", fmt.Errorf("embedding query: %w", err)
	}

	results, err := t.store.Search(ctx, vec, maxResults)
	if err != nil {
		return "", fmt.Errorf("vector search: %w", err)
	}

	paragraphs := make([]string, 0, len(results))
	for _, r := range results {
		paragraphs = append(paragraphs, fmt.Sprintf("Document: %s\n(Relevance: %.4f)", r.Content, 1-r.Distance))
	}
	return strings.Join(paragraphs, "\n\n"), nil
}
