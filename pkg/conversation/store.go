package conversation

import (
	"context"
	"time"

	"github.com/alfredoalpizar/rag-orchestrator-sub000/pkg/models"
)

// Store is the persistence boundary shared by the in-memory and database
// backends. The manager applies the rolling window itself, so both modes
// behave identically above this interface.
//
// Stored messages never carry ToolCalls: only user turns and final assistant
// turns are persisted, and tool exchanges are summarised into the assistant
// message's metadata.
type Store interface {
	CreateConversation(ctx context.Context, conv *models.Conversation) error
	GetConversation(ctx context.Context, id string) (*models.Conversation, error)

	// UpdateConversation persists counter and status changes.
	UpdateConversation(ctx context.Context, conv *models.Conversation) error

	// AppendMessage atomically inserts the message and persists the updated
	// conversation counters.
	AppendMessage(ctx context.Context, conv *models.Conversation, msg *models.Message) error

	// GetMessages returns all messages of a conversation ordered by creation.
	GetMessages(ctx context.Context, conversationID string) ([]models.Message, error)

	// ListByCaller returns the most recently updated conversations of one
	// caller, newest first.
	ListByCaller(ctx context.Context, callerID string, limit int) ([]models.Conversation, error)

	// SoftDeleteOlderThan marks conversations untouched since cutoff as
	// deleted and returns how many were affected. Idempotent.
	SoftDeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error)

	Health(ctx context.Context) error
}
