package conversation

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/alfredoalpizar/rag-orchestrator-sub000/pkg/models"
)

// MemoryStore keeps conversations in a process-local map. Suitable for
// development and tests; contents are lost on restart.
type MemoryStore struct {
	mu            sync.RWMutex
	conversations map[string]*models.Conversation
	messages      map[string][]models.Message
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		conversations: make(map[string]*models.Conversation),
		messages:      make(map[string][]models.Message),
	}
}

func (s *MemoryStore) CreateConversation(ctx context.Context, conv *models.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.conversations[conv.ConversationID]; exists {
		return ErrAlreadyExists
	}
	c := *conv
	s.conversations[conv.ConversationID] = &c
	return nil
}

func (s *MemoryStore) GetConversation(ctx context.Context, id string) (*models.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *conv
	return &c, nil
}

func (s *MemoryStore) UpdateConversation(ctx context.Context, conv *models.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conversations[conv.ConversationID]; !ok {
		return ErrNotFound
	}
	c := *conv
	s.conversations[conv.ConversationID] = &c
	return nil
}

func (s *MemoryStore) AppendMessage(ctx context.Context, conv *models.Conversation, msg *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conversations[conv.ConversationID]; !ok {
		return ErrNotFound
	}
	s.messages[conv.ConversationID] = append(s.messages[conv.ConversationID], *msg)
	c := *conv
	s.conversations[conv.ConversationID] = &c
	return nil
}

func (s *MemoryStore) GetMessages(ctx context.Context, conversationID string) ([]models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.conversations[conversationID]; !ok {
		return nil, ErrNotFound
	}
	msgs := make([]models.Message, len(s.messages[conversationID]))
	copy(msgs, s.messages[conversationID])
	return msgs, nil
}

func (s *MemoryStore) ListByCaller(ctx context.Context, callerID string, limit int) ([]models.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Conversation
	for _, conv := range s.conversations {
		if conv.CallerID == callerID && conv.Status != models.ConversationStatusDeleted {
			out = append(out, *conv)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) SoftDeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, conv := range s.conversations {
		if conv.Status != models.ConversationStatusDeleted && conv.UpdatedAt.Before(cutoff) {
			conv.Status = models.ConversationStatusDeleted
			conv.UpdatedAt = time.Now().UTC()
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) Health(ctx context.Context) error { return nil }
