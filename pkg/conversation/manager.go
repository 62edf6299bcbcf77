package conversation

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alfredoalpizar/rag-orchestrator-sub000/pkg/models"
)

// Manager is the context manager: it owns conversation lifecycle, message
// appends, counter maintenance, and the rolling window over stored messages.
// Mutations for one conversation are serialised by a per-conversation lock.
type Manager struct {
	store      Store
	windowSize int

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewManager builds a manager over the given store with the configured
// rolling window size.
func NewManager(store Store, windowSize int) *Manager {
	return &Manager{
		store:      store,
		windowSize: windowSize,
		locks:      make(map[string]*sync.Mutex),
	}
}

func (m *Manager) lockFor(conversationID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[conversationID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[conversationID] = l
	}
	return l
}

// CreateConversation creates a new conversation, optionally seeding it with
// an initial user message.
func (m *Manager) CreateConversation(ctx context.Context, req models.CreateConversationRequest) (*models.Conversation, error) {
	if strings.TrimSpace(req.CallerID) == "" {
		return nil, NewValidationError("callerId", "is required")
	}

	now := time.Now().UTC()
	conv := &models.Conversation{
		ConversationID: uuid.NewString(),
		CallerID:       req.CallerID,
		UserID:         req.UserID,
		AccountID:      req.AccountID,
		CreatedAt:      now,
		UpdatedAt:      now,
		Status:         models.ConversationStatusActive,
		Metadata:       req.Metadata,
	}
	if err := m.store.CreateConversation(ctx, conv); err != nil {
		return nil, err
	}

	if strings.TrimSpace(req.InitialMessage) != "" {
		if _, err := m.AddMessage(ctx, conv.ConversationID, models.Message{
			Role:    models.RoleUser,
			Content: req.InitialMessage,
		}); err != nil {
			return nil, err
		}
		return m.store.GetConversation(ctx, conv.ConversationID)
	}
	return conv, nil
}

// Load returns the conversation with its current rolling window.
func (m *Manager) Load(ctx context.Context, conversationID string) (*models.ConversationContext, error) {
	conv, err := m.store.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	msgs, err := m.store.GetMessages(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	return m.buildContext(conv, msgs), nil
}

// AddMessage appends a message, updates counters, and returns the refreshed
// context.
func (m *Manager) AddMessage(ctx context.Context, conversationID string, msg models.Message) (*models.ConversationContext, error) {
	return m.AddMessageWithMetadata(ctx, conversationID, msg, "")
}

// AddMessageWithMetadata appends a message with a metadata blob stored
// verbatim alongside it.
func (m *Manager) AddMessageWithMetadata(ctx context.Context, conversationID string, msg models.Message, metadataJSON string) (*models.ConversationContext, error) {
	if !msg.Role.IsValid() {
		return nil, NewValidationError("role", "unknown role")
	}

	l := m.lockFor(conversationID)
	l.Lock()
	defer l.Unlock()

	conv, err := m.store.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	msg.ConversationID = conversationID
	if msg.MessageID == "" {
		msg.MessageID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = now
	}
	if msg.TokenCount == 0 {
		msg.TokenCount = models.EstimateTokens(msg.Content)
	}
	if metadataJSON != "" {
		msg.Metadata = metadataJSON
	}

	conv.MessageCount++
	conv.TotalTokens += msg.TokenCount
	conv.UpdatedAt = now
	t := msg.CreatedAt
	conv.LastMessageAt = &t

	if err := m.store.AppendMessage(ctx, conv, &msg); err != nil {
		return nil, err
	}

	msgs, err := m.store.GetMessages(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	return m.buildContext(conv, msgs), nil
}

// SaveConversation persists the counter updates accumulated during a turn.
func (m *Manager) SaveConversation(ctx context.Context, cctx *models.ConversationContext) error {
	l := m.lockFor(cctx.Conversation.ConversationID)
	l.Lock()
	defer l.Unlock()

	cctx.Conversation.UpdatedAt = time.Now().UTC()
	return m.store.UpdateConversation(ctx, cctx.Conversation)
}

// Archive marks a conversation as archived. Archived conversations remain
// readable but accept no new turns.
func (m *Manager) Archive(ctx context.Context, conversationID string) error {
	l := m.lockFor(conversationID)
	l.Lock()
	defer l.Unlock()

	conv, err := m.store.GetConversation(ctx, conversationID)
	if err != nil {
		return err
	}
	conv.Status = models.ConversationStatusArchived
	conv.UpdatedAt = time.Now().UTC()
	return m.store.UpdateConversation(ctx, conv)
}

// RecentByCaller lists a caller's most recently active conversations.
func (m *Manager) RecentByCaller(ctx context.Context, callerID string, limit int) ([]models.Conversation, error) {
	return m.store.ListByCaller(ctx, callerID, limit)
}

// Health reports the storage backend's health.
func (m *Manager) Health(ctx context.Context) error {
	return m.store.Health(ctx)
}

func (m *Manager) buildContext(conv *models.Conversation, msgs []models.Message) *models.ConversationContext {
	window := applyWindow(msgs, m.windowSize)
	total := 0
	for _, msg := range window {
		total += msg.TokenCount
	}
	return &models.ConversationContext{
		Conversation: conv,
		Messages:     window,
		TotalTokens:  total,
	}
}

// applyWindow cuts the message list to its last windowSize entries. If the
// cut would leave orphan tool messages at the front, it moves backwards
// until the window starts on a non-tool message, so tool call ids always
// stay resolvable within the window.
func applyWindow(msgs []models.Message, windowSize int) []models.Message {
	if len(msgs) <= windowSize {
		return msgs
	}
	cut := len(msgs) - windowSize
	for cut > 0 && msgs[cut].Role == models.RoleTool {
		cut--
	}
	return msgs[cut:]
}
