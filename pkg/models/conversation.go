// Package models contains request/response models and business domain types.
package models

import "time"

// ConversationStatus is the lifecycle state of a conversation.
type ConversationStatus string

const (
	// ConversationStatusActive is a live conversation accepting new turns
	ConversationStatusActive ConversationStatus = "active"
	// ConversationStatusArchived is a read-only conversation
	ConversationStatusArchived ConversationStatus = "archived"
	// ConversationStatusDeleted is a soft-deleted conversation
	ConversationStatusDeleted ConversationStatus = "deleted"
)

// IsValid checks if the conversation status is valid
func (s ConversationStatus) IsValid() bool {
	switch s {
	case ConversationStatusActive, ConversationStatusArchived, ConversationStatusDeleted:
		return true
	default:
		return false
	}
}

// Conversation is the long-lived persistent entity. Counters are maintained
// by the orchestrator and always reflect the stored messages.
type Conversation struct {
	ConversationID string             `json:"conversation_id"`
	CallerID       string             `json:"caller_id"`
	UserID         string             `json:"user_id,omitempty"`
	AccountID      string             `json:"account_id,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
	LastMessageAt  *time.Time         `json:"last_message_at,omitempty"`
	MessageCount   int                `json:"message_count"`
	ToolCallsCount int                `json:"tool_calls_count"`
	TotalTokens    int                `json:"total_tokens"`
	Status         ConversationStatus `json:"status"`
	S3Key          string             `json:"s3_key,omitempty"`
	Metadata       string             `json:"metadata,omitempty"`
}

// ConversationContext is the transient working value for one turn: the
// conversation, its rolling window of messages, and the window's token sum.
// It is derived on every turn and never persisted as such.
type ConversationContext struct {
	Conversation *Conversation
	Messages     []Message
	TotalTokens  int
}

// CreateConversationRequest contains fields for creating a conversation
type CreateConversationRequest struct {
	CallerID       string `json:"callerId"`
	UserID         string `json:"userId,omitempty"`
	AccountID      string `json:"accountId,omitempty"`
	InitialMessage string `json:"initialMessage,omitempty"`
	Metadata       string `json:"metadata,omitempty"`
}
