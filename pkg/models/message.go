package models

import "time"

// Role identifies the author of a message.
type Role string

const (
	// RoleUser is an end-user turn
	RoleUser Role = "user"
	// RoleAssistant is a model turn
	RoleAssistant Role = "assistant"
	// RoleTool is a tool execution result
	RoleTool Role = "tool"
	// RoleSystem is an injected system prompt
	RoleSystem Role = "system"
)

// IsValid checks if the role is valid
func (r Role) IsValid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleTool, RoleSystem:
		return true
	default:
		return false
	}
}

// ToolCallFunction is the function half of a tool call. Arguments is the raw
// JSON text exactly as the provider produced it; fragments streamed by the
// provider are accumulated without reparsing mid-stream.
type ToolCallFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolCall is an LLM request to invoke a tool.
type ToolCall struct {
	ID       string           `json:"id"`
	Type     string           `json:"type"` // always "function"
	Function ToolCallFunction `json:"function"`
}

// Message is one turn of a conversation.
type Message struct {
	MessageID      string     `json:"message_id"`
	ConversationID string     `json:"conversation_id"`
	Role           Role       `json:"role"`
	Content        string     `json:"content"`
	// ToolCallID is set iff Role is RoleTool and matches the id the
	// assistant used when requesting the call.
	ToolCallID string `json:"tool_call_id,omitempty"`
	// ToolCalls is set only on assistant messages that requested tool
	// invocations.
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	TokenCount int        `json:"token_count"`
	// Metadata is a MessageMetadata JSON blob; only meaningful for
	// assistant messages.
	Metadata string `json:"metadata,omitempty"`
}

// EstimateTokens is the cheap token count heuristic used for window
// accounting: max(1, len(content)/4). No production decision depends on
// exact counts.
func EstimateTokens(content string) int {
	n := len(content) / 4
	if n < 1 {
		return 1
	}
	return n
}
