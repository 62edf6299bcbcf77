package orchestrator

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/alfredoalpizar/rag-orchestrator-sub000/pkg/models"
)

// collector accumulates per-turn metadata: tool call records, reasoning text,
// and per-iteration groupings. One collector lives for one turn.
type collector struct {
	toolCalls       []models.ToolCallRecord
	reasoning       strings.Builder
	iterReasoning   map[int]*strings.Builder
	iterToolCallIDs map[int][]string
}

func newCollector() *collector {
	return &collector{
		iterReasoning:   make(map[int]*strings.Builder),
		iterToolCallIDs: make(map[int][]string),
	}
}

func (c *collector) addReasoning(iteration int, text string) {
	c.reasoning.WriteString(text)
	b, ok := c.iterReasoning[iteration]
	if !ok {
		b = &strings.Builder{}
		c.iterReasoning[iteration] = b
	}
	b.WriteString(text)
}

func (c *collector) addToolCall(rec models.ToolCallRecord) {
	c.toolCalls = append(c.toolCalls, rec)
	c.iterToolCallIDs[rec.Iteration] = append(c.iterToolCallIDs[rec.Iteration], rec.ID)
}

// snapshot builds the metadata blob for the final assistant message.
// Iteration data is contiguous from 1 through the current iteration.
func (c *collector) snapshot(iterations, totalTokens int) *models.MessageMetadata {
	meta := &models.MessageMetadata{
		ToolCalls:     append([]models.ToolCallRecord{}, c.toolCalls...),
		IterationData: make([]models.IterationData, 0, iterations),
		Metrics: models.TurnMetrics{
			Iterations:  iterations,
			TotalTokens: totalTokens,
		},
	}

	if c.reasoning.Len() > 0 {
		r := c.reasoning.String()
		meta.Reasoning = &r
	}

	for i := 1; i <= iterations; i++ {
		data := models.IterationData{
			Iteration:   i,
			ToolCallIDs: append([]string{}, c.iterToolCallIDs[i]...),
		}
		if b, ok := c.iterReasoning[i]; ok {
			data.Reasoning = b.String()
		}
		meta.IterationData = append(meta.IterationData, data)
	}
	return meta
}

const resultSummaryLimit = 200

// summariseResult replaces large tool output with a short description so RAG
// payloads are never inlined into persisted metadata.
func summariseResult(result string, success bool) string {
	if success && strings.Contains(result, "Document: ") {
		n := strings.Count(result, "Document: ")
		return fmt.Sprintf("Retrieved %d document chunks (%d chars)", n, len(result))
	}
	if len(result) > resultSummaryLimit {
		// Back up to a rune boundary so the cut never splits a multibyte
		// character.
		cut := resultSummaryLimit
		for cut > 0 && !utf8.RuneStart(result[cut]) {
			cut--
		}
		return result[:cut]
	}
	return result
}
