package conversation_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alfredoalpizar/rag-orchestrator-sub000/pkg/conversation"
	"github.com/alfredoalpizar/rag-orchestrator-sub000/pkg/models"
	"github.com/alfredoalpizar/rag-orchestrator-sub000/test/util"
)

func newPostgresStore(t *testing.T) *conversation.PostgresStore {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping database test in short mode")
	}
	return conversation.NewPostgresStore(util.SetupTestDatabase(t))
}

func newStoredConversation(t *testing.T, store *conversation.PostgresStore, callerID string) *models.Conversation {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Microsecond)
	conv := &models.Conversation{
		ConversationID: uuid.NewString(),
		CallerID:       callerID,
		CreatedAt:      now,
		UpdatedAt:      now,
		Status:         models.ConversationStatusActive,
	}
	require.NoError(t, store.CreateConversation(context.Background(), conv))
	return conv
}

func TestPostgresConversationRoundTrip(t *testing.T) {
	store := newPostgresStore(t)
	ctx := context.Background()

	conv := newStoredConversation(t, store, "a@b")
	conv.UserID = ""

	got, err := store.GetConversation(ctx, conv.ConversationID)
	require.NoError(t, err)
	assert.Equal(t, conv.ConversationID, got.ConversationID)
	assert.Equal(t, "a@b", got.CallerID)
	assert.Equal(t, models.ConversationStatusActive, got.Status)
	assert.Nil(t, got.LastMessageAt)
	assert.Zero(t, got.MessageCount)

	_, err = store.GetConversation(ctx, "missing")
	assert.ErrorIs(t, err, conversation.ErrNotFound)
}

func TestPostgresUpdateConversation(t *testing.T) {
	store := newPostgresStore(t)
	ctx := context.Background()

	conv := newStoredConversation(t, store, "a@b")
	conv.Status = models.ConversationStatusArchived
	conv.MessageCount = 4
	conv.TotalTokens = 99
	conv.UpdatedAt = time.Now().UTC().Truncate(time.Microsecond)
	require.NoError(t, store.UpdateConversation(ctx, conv))

	got, err := store.GetConversation(ctx, conv.ConversationID)
	require.NoError(t, err)
	assert.Equal(t, models.ConversationStatusArchived, got.Status)
	assert.Equal(t, 4, got.MessageCount)
	assert.Equal(t, 99, got.TotalTokens)

	missing := &models.Conversation{ConversationID: "missing", UpdatedAt: time.Now().UTC()}
	assert.ErrorIs(t, store.UpdateConversation(ctx, missing), conversation.ErrNotFound)
}

func TestPostgresAppendMessageAtomicity(t *testing.T) {
	store := newPostgresStore(t)
	ctx := context.Background()

	conv := newStoredConversation(t, store, "a@b")

	now := time.Now().UTC().Truncate(time.Microsecond)
	conv.MessageCount = 1
	conv.TotalTokens = 3
	conv.UpdatedAt = now
	conv.LastMessageAt = &now

	msg := &models.Message{
		MessageID:      uuid.NewString(),
		ConversationID: conv.ConversationID,
		Role:           models.RoleUser,
		Content:        "What is 2+2?",
		CreatedAt:      now,
		TokenCount:     3,
	}
	require.NoError(t, store.AppendMessage(ctx, conv, msg))

	got, err := store.GetConversation(ctx, conv.ConversationID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.MessageCount)
	assert.Equal(t, 3, got.TotalTokens)
	require.NotNil(t, got.LastMessageAt)

	msgs, err := store.GetMessages(ctx, conv.ConversationID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "What is 2+2?", msgs[0].Content)
	assert.Equal(t, models.RoleUser, msgs[0].Role)

	// Appending to an unknown conversation rolls back the whole write.
	orphan := &models.Conversation{ConversationID: conv.ConversationID}
	orphan.ConversationID = "missing"
	badMsg := &models.Message{
		MessageID:      uuid.NewString(),
		ConversationID: conv.ConversationID,
		Role:           models.RoleUser,
		Content:        "orphan",
		CreatedAt:      now,
		TokenCount:     1,
	}
	assert.ErrorIs(t, store.AppendMessage(ctx, orphan, badMsg), conversation.ErrNotFound)

	msgs, err = store.GetMessages(ctx, conv.ConversationID)
	require.NoError(t, err)
	assert.Len(t, msgs, 1, "rolled-back insert must not be visible")
}

func TestPostgresMessageOrderingAndMetadata(t *testing.T) {
	store := newPostgresStore(t)
	ctx := context.Background()

	conv := newStoredConversation(t, store, "a@b")
	base := time.Now().UTC().Truncate(time.Microsecond)

	contents := []string{"first", "second", "third"}
	for i, content := range contents {
		now := base.Add(time.Duration(i) * time.Millisecond)
		conv.MessageCount++
		conv.UpdatedAt = now
		conv.LastMessageAt = &now
		msg := &models.Message{
			MessageID:      uuid.NewString(),
			ConversationID: conv.ConversationID,
			Role:           models.RoleUser,
			Content:        content,
			CreatedAt:      now,
			TokenCount:     1,
		}
		if i == 2 {
			msg.Role = models.RoleAssistant
			msg.Metadata = `{"metrics":{"iterations":1,"totalTokens":5}}`
		}
		require.NoError(t, store.AppendMessage(ctx, conv, msg))
	}

	msgs, err := store.GetMessages(ctx, conv.ConversationID)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	for i, content := range contents {
		assert.Equal(t, content, msgs[i].Content)
	}
	assert.Equal(t, models.RoleAssistant, msgs[2].Role)
	assert.Contains(t, msgs[2].Metadata, `"totalTokens":5`)

	_, err = store.GetMessages(ctx, "missing")
	assert.ErrorIs(t, err, conversation.ErrNotFound)
}

func TestPostgresListByCaller(t *testing.T) {
	store := newPostgresStore(t)
	ctx := context.Background()

	first := newStoredConversation(t, store, "a@b")
	second := newStoredConversation(t, store, "a@b")
	newStoredConversation(t, store, "other@b")

	deleted := newStoredConversation(t, store, "a@b")
	deleted.Status = models.ConversationStatusDeleted
	deleted.UpdatedAt = time.Now().UTC()
	require.NoError(t, store.UpdateConversation(ctx, deleted))

	// Touch the first conversation so it sorts newest.
	first.UpdatedAt = time.Now().UTC().Add(time.Second).Truncate(time.Microsecond)
	require.NoError(t, store.UpdateConversation(ctx, first))

	out, err := store.ListByCaller(ctx, "a@b", 10)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, first.ConversationID, out[0].ConversationID)
	assert.Equal(t, second.ConversationID, out[1].ConversationID)

	out, err = store.ListByCaller(ctx, "a@b", 1)
	require.NoError(t, err)
	assert.Len(t, out, 1)
}

func TestPostgresManagerIntegration(t *testing.T) {
	store := newPostgresStore(t)
	ctx := context.Background()

	manager := conversation.NewManager(store, 3)
	conv, err := manager.CreateConversation(ctx, models.CreateConversationRequest{
		CallerID:       "a@b",
		InitialMessage: "hello",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, conv.MessageCount)

	for i := 0; i < 4; i++ {
		_, err = manager.AddMessage(ctx, conv.ConversationID, models.Message{
			Role:    models.RoleAssistant,
			Content: "reply",
		})
		require.NoError(t, err)
	}

	cctx, err := manager.Load(ctx, conv.ConversationID)
	require.NoError(t, err)
	assert.Equal(t, 5, cctx.Conversation.MessageCount)
	assert.Len(t, cctx.Messages, 3, "window applies over the stored history")
}
