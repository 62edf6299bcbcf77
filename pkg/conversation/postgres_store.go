package conversation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/alfredoalpizar/rag-orchestrator-sub000/pkg/models"
)

// PostgresStore persists conversations in PostgreSQL via database/sql.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore wraps an open database handle.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) CreateConversation(ctx context.Context, conv *models.Conversation) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO conversations (
			conversation_id, caller_id, user_id, account_id,
			created_at, updated_at, last_message_at,
			message_count, tool_calls_count, total_tokens,
			status, s3_key, metadata
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		conv.ConversationID, conv.CallerID,
		nullString(conv.UserID), nullString(conv.AccountID),
		conv.CreatedAt, conv.UpdatedAt, nullTime(conv.LastMessageAt),
		conv.MessageCount, conv.ToolCallsCount, conv.TotalTokens,
		string(conv.Status), nullString(conv.S3Key), nullString(conv.Metadata),
	)
	if err != nil {
		return fmt.Errorf("inserting conversation: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetConversation(ctx context.Context, id string) (*models.Conversation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT conversation_id, caller_id, user_id, account_id,
		       created_at, updated_at, last_message_at,
		       message_count, tool_calls_count, total_tokens,
		       status, s3_key, metadata
		FROM conversations
		WHERE conversation_id = $1`, id)

	conv, err := scanConversation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading conversation: %w", err)
	}
	return conv, nil
}

func (s *PostgresStore) UpdateConversation(ctx context.Context, conv *models.Conversation) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE conversations
		SET updated_at = $2, last_message_at = $3,
		    message_count = $4, tool_calls_count = $5, total_tokens = $6,
		    status = $7, metadata = $8
		WHERE conversation_id = $1`,
		conv.ConversationID, conv.UpdatedAt, nullTime(conv.LastMessageAt),
		conv.MessageCount, conv.ToolCallsCount, conv.TotalTokens,
		string(conv.Status), nullString(conv.Metadata),
	)
	if err != nil {
		return fmt.Errorf("updating conversation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) AppendMessage(ctx context.Context, conv *models.Conversation, msg *models.Message) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO conversation_messages (
			message_id, conversation_id, role, content,
			tool_call_id, created_at, token_count, metadata
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		msg.MessageID, msg.ConversationID, string(msg.Role), msg.Content,
		nullString(msg.ToolCallID), msg.CreatedAt, msg.TokenCount,
		nullString(msg.Metadata),
	)
	if err != nil {
		return fmt.Errorf("inserting message: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE conversations
		SET updated_at = $2, last_message_at = $3,
		    message_count = $4, tool_calls_count = $5, total_tokens = $6
		WHERE conversation_id = $1`,
		conv.ConversationID, conv.UpdatedAt, nullTime(conv.LastMessageAt),
		conv.MessageCount, conv.ToolCallsCount, conv.TotalTokens,
	)
	if err != nil {
		return fmt.Errorf("updating counters: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}

	return tx.Commit()
}

func (s *PostgresStore) GetMessages(ctx context.Context, conversationID string) ([]models.Message, error) {
	if _, err := s.GetConversation(ctx, conversationID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT message_id, conversation_id, role, content,
		       tool_call_id, created_at, token_count, metadata
		FROM conversation_messages
		WHERE conversation_id = $1
		ORDER BY created_at, message_id`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("loading messages: %w", err)
	}
	defer rows.Close()

	var msgs []models.Message
	for rows.Next() {
		var m models.Message
		var role string
		var toolCallID, metadata sql.NullString
		if err := rows.Scan(&m.MessageID, &m.ConversationID, &role, &m.Content,
			&toolCallID, &m.CreatedAt, &m.TokenCount, &metadata); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		m.Role = models.Role(role)
		m.ToolCallID = toolCallID.String
		m.Metadata = metadata.String
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

func (s *PostgresStore) ListByCaller(ctx context.Context, callerID string, limit int) ([]models.Conversation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT conversation_id, caller_id, user_id, account_id,
		       created_at, updated_at, last_message_at,
		       message_count, tool_calls_count, total_tokens,
		       status, s3_key, metadata
		FROM conversations
		WHERE caller_id = $1 AND status != 'deleted'
		ORDER BY updated_at DESC
		LIMIT $2`, callerID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing conversations: %w", err)
	}
	defer rows.Close()

	var out []models.Conversation
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning conversation: %w", err)
		}
		out = append(out, *conv)
	}
	return out, rows.Err()
}

func (s *PostgresStore) SoftDeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE conversations
		SET status = 'deleted', updated_at = $2
		WHERE updated_at < $1 AND status != 'deleted'`,
		cutoff, time.Now().UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("soft-deleting conversations: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (s *PostgresStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConversation(row rowScanner) (*models.Conversation, error) {
	var conv models.Conversation
	var userID, accountID, s3Key, metadata sql.NullString
	var lastMessageAt sql.NullTime
	var status string

	err := row.Scan(&conv.ConversationID, &conv.CallerID, &userID, &accountID,
		&conv.CreatedAt, &conv.UpdatedAt, &lastMessageAt,
		&conv.MessageCount, &conv.ToolCallsCount, &conv.TotalTokens,
		&status, &s3Key, &metadata)
	if err != nil {
		return nil, err
	}

	conv.UserID = userID.String
	conv.AccountID = accountID.String
	conv.S3Key = s3Key.String
	conv.Metadata = metadata.String
	conv.Status = models.ConversationStatus(status)
	if lastMessageAt.Valid {
		t := lastMessageAt.Time
		conv.LastMessageAt = &t
	}
	return &conv, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
