package models

import "encoding/json"

// ToolResultSummary is the summarised outcome of one tool execution stored in
// message metadata. Large payloads are never inlined here.
type ToolResultSummary struct {
	Type    string `json:"type"`
	Summary string `json:"summary"`
	Success bool   `json:"success"`
}

// ToolCallRecord captures one tool invocation for the metadata blob.
type ToolCallRecord struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Arguments string            `json:"arguments"`
	Result    ToolResultSummary `json:"result"`
	Success   bool              `json:"success"`
	Iteration int               `json:"iteration"`
}

// IterationData groups the reasoning and tool calls of one loop iteration.
type IterationData struct {
	Iteration   int      `json:"iteration"`
	Reasoning   string   `json:"reasoning,omitempty"`
	ToolCallIDs []string `json:"toolCallIds"`
}

// TurnMetrics holds aggregate counters for one turn.
type TurnMetrics struct {
	Iterations  int `json:"iterations"`
	TotalTokens int `json:"totalTokens"`
}

// MessageMetadata is persisted next to the final assistant message of each
// turn. The persistent message stream stays short (user and final assistant
// turns only); intermediate tool exchanges live here in summarised form.
type MessageMetadata struct {
	ToolCalls []ToolCallRecord `json:"toolCalls"`
	Reasoning *string          `json:"reasoning"`
	// IterationData is sorted by iteration; iterations are contiguous from 1.
	IterationData []IterationData `json:"iterationData"`
	Metrics       TurnMetrics     `json:"metrics"`
}

// Encode serialises the metadata to its stored JSON form.
func (m *MessageMetadata) Encode() (string, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DecodeMessageMetadata parses a stored metadata blob.
func DecodeMessageMetadata(raw string) (*MessageMetadata, error) {
	var m MessageMetadata
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, err
	}
	return &m, nil
}
