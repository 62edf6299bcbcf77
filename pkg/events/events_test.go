package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTerminal(t *testing.T) {
	assert.True(t, NewCompleted("c1", 1, 10).Terminal())
	assert.True(t, NewError("c1", "internal error", "").Terminal())
	assert.False(t, NewStatusUpdate("c1", "working", "", 1).Terminal())
	assert.False(t, NewResponseChunk("c1", "hi", 1, true).Terminal())
}

func TestPayloadWireFormat(t *testing.T) {
	ev := NewToolCallStart("conv-1", "rag_search", "call_1", map[string]any{"query": "vpn"}, 2)
	b, err := json.Marshal(ev.Payload)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	assert.Equal(t, "conv-1", m["conversationId"])
	assert.Equal(t, "rag_search", m["toolName"])
	assert.Equal(t, "call_1", m["toolCallId"])
	assert.Equal(t, float64(2), m["iteration"])
	assert.Equal(t, map[string]any{"query": "vpn"}, m["arguments"])

	ts, ok := m["timestamp"].(string)
	require.True(t, ok)
	parsed, err := time.Parse(time.RFC3339Nano, ts)
	require.NoError(t, err)
	assert.Equal(t, time.UTC, parsed.Location())
}

func TestResponseChunkFields(t *testing.T) {
	b, err := json.Marshal(NewResponseChunk("conv-1", "partial", 3, true).Payload)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	assert.Equal(t, "partial", m["content"])
	assert.Equal(t, true, m["isFinalAnswer"])
	assert.Equal(t, float64(3), m["iteration"])
}

func TestStatusUpdateOmitsEmptyFields(t *testing.T) {
	b, err := json.Marshal(NewStatusUpdate("conv-1", "Loading conversation...", "", 0).Payload)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	_, hasDetails := m["details"]
	assert.False(t, hasDetails)
	_, hasIteration := m["iteration"]
	assert.False(t, hasIteration)
}

func TestReasoningTraceStage(t *testing.T) {
	p := NewReasoningTrace("conv-1", "thinking", 1).Payload.(ReasoningTracePayload)
	assert.Equal(t, StagePlanning, p.Stage)
}

func TestCompletedPayload(t *testing.T) {
	b, err := json.Marshal(NewCompleted("conv-1", 4, 512).Payload)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	assert.Equal(t, float64(4), m["iterationsUsed"])
	assert.Equal(t, float64(512), m["tokensUsed"])
}
