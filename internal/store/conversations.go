package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/yenceelabs/speak-to-slides/internal/deck"
	"github.com/yenceelabs/speak-to-slides/pkg/errors"
)

type ConversationState string

const (
	StateGathering  ConversationState = "gathering"
	StateConfirming ConversationState = "confirming"
	StateBuilding   ConversationState = "building"
	StateReviewing  ConversationState = "reviewing"
	StateDone       ConversationState = "done"
)

type ChatMessage struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
}

type Conversation struct {
	ID          string
	ChatID      string
	Channel     string
	State       ConversationState
	Messages    []ChatMessage
	Outline     *deck.Outline
	DeckID      string
	CreatedAtMs int64
	UpdatedAtMs int64
}

// GetOrCreateConversation returns the most recent active (non-done)
// conversation for the chat handle, or inserts a fresh one in gathering.
// It never creates a second concurrently-active row for the same handle.
func (s *Store) GetOrCreateConversation(ctx context.Context, chatID, channel string) (*Conversation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, chat_id, channel, state, messages_json, outline_json, deck_id, created_at_unix_ms, updated_at_unix_ms
		 FROM conversations
		 WHERE chat_id = ? AND state != ?
		 ORDER BY created_at_unix_ms DESC
		 LIMIT 1`, chatID, StateDone)

	conv, err := scanConversation(row)
	if err == nil {
		return conv, nil
	}
	if err != sql.ErrNoRows {
		return nil, errors.Wrap(err, errors.ErrCodeStorage, "failed to fetch conversation")
	}

	now := time.Now().UnixMilli()
	conv = &Conversation{
		ID:          uuid.NewString(),
		ChatID:      chatID,
		Channel:     channel,
		State:       StateGathering,
		Messages:    []ChatMessage{},
		CreatedAtMs: now,
		UpdatedAtMs: now,
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO conversations (id, chat_id, channel, state, messages_json, outline_json, deck_id, created_at_unix_ms, updated_at_unix_ms)
		 VALUES (?, ?, ?, ?, '[]', '', '', ?, ?)`,
		conv.ID, conv.ChatID, conv.Channel, conv.State, now, now)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorage, "failed to insert conversation")
	}
	return conv, nil
}

// GetConversation returns nil, nil when absent.
func (s *Store) GetConversation(ctx context.Context, id string) (*Conversation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, chat_id, channel, state, messages_json, outline_json, deck_id, created_at_unix_ms, updated_at_unix_ms
		 FROM conversations WHERE id = ?`, id)
	conv, err := scanConversation(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorage, "failed to fetch conversation")
	}
	return conv, nil
}

// UpdateConversation writes state, outline and deck link in one UPDATE.
// Message history goes through AppendMessage; it is append-only.
func (s *Store) UpdateConversation(ctx context.Context, conv *Conversation) error {
	messagesJSON, err := json.Marshal(conv.Messages)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStorage, "failed to encode messages")
	}
	outlineJSON := ""
	if conv.Outline != nil {
		b, err := json.Marshal(conv.Outline)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeStorage, "failed to encode outline")
		}
		outlineJSON = string(b)
	}

	conv.UpdatedAtMs = time.Now().UnixMilli()
	res, err := s.db.ExecContext(ctx,
		`UPDATE conversations SET state = ?, messages_json = ?, outline_json = ?, deck_id = ?, updated_at_unix_ms = ? WHERE id = ?`,
		conv.State, string(messagesJSON), outlineJSON, conv.DeckID, conv.UpdatedAtMs, conv.ID)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStorage, "failed to update conversation")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.New(errors.ErrCodeNotFound, "conversation not found")
	}
	return nil
}

// AppendMessage adds one message to the history and persists.
func (s *Store) AppendMessage(ctx context.Context, conv *Conversation, role, content string) error {
	conv.Messages = append(conv.Messages, ChatMessage{
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UnixMilli(),
	})
	return s.UpdateConversation(ctx, conv)
}

// ResetConversations marks every active conversation for the handle as
// done. History rows stay around for audit; nothing is deleted.
func (s *Store) ResetConversations(ctx context.Context, chatID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE conversations SET state = ?, updated_at_unix_ms = ? WHERE chat_id = ? AND state != ?`,
		StateDone, time.Now().UnixMilli(), chatID, StateDone)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStorage, "failed to reset conversations")
	}
	return nil
}

// CountActiveConversations exists for invariant checks in tests and ops
// tooling: it should never exceed 1 for a handle.
func (s *Store) CountActiveConversations(ctx context.Context, chatID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM conversations WHERE chat_id = ? AND state != ?`, chatID, StateDone).Scan(&n)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeStorage, "failed to count conversations")
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanConversation(row rowScanner) (*Conversation, error) {
	var conv Conversation
	var messagesJSON, outlineJSON string
	err := row.Scan(&conv.ID, &conv.ChatID, &conv.Channel, &conv.State, &messagesJSON, &outlineJSON, &conv.DeckID, &conv.CreatedAtMs, &conv.UpdatedAtMs)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(messagesJSON), &conv.Messages); err != nil {
		return nil, err
	}
	if outlineJSON != "" {
		var o deck.Outline
		if err := json.Unmarshal([]byte(outlineJSON), &o); err != nil {
			return nil, err
		}
		conv.Outline = &o
	}
	return &conv, nil
}
