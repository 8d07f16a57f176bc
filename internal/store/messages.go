package store

import (
	"context"
	"fmt"

	"github.com/mkravets/unimarket/internal/model"
)

// InsertMessage writes an outgoing message in pending state inside the
// repository's write transaction.
func (tx *Tx) InsertMessage(ctx context.Context, m *model.Message) error {
	return upsertMessage(ctx, tx.tx, m, model.MessagePending)
}

// UpsertMessage writes a message received from the stream subscription.
// Stream messages are authoritative, so the row is overwritten.
func (s *Store) UpsertMessage(ctx context.Context, m *model.Message) error {
	status := m.Status
	if status == "" {
		status = model.MessageSent
	}
	return upsertMessage(ctx, s.conn, m, status)
}

func upsertMessage(ctx context.Context, q dbtx, m *model.Message, status model.MessageStatus) error {
	_, err := q.ExecContext(ctx, `
	INSERT INTO messages (id, conversation_id, sender_id, recipient_id, body, sent_at, status)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		body = excluded.body,
		sent_at = excluded.sent_at,
		status = excluded.status
	`,
		m.ID,
		m.ConversationID,
		m.SenderID,
		m.RecipientID,
		m.Body,
		formatTime(m.SentAt),
		string(status),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert message %s: %w", m.ID, err)
	}
	return nil
}

// SetMessageStatus flips an outgoing message's sync state after replay.
func (s *Store) SetMessageStatus(ctx context.Context, id string, status model.MessageStatus) error {
	_, err := s.conn.ExecContext(ctx,
		"UPDATE messages SET status = ? WHERE id = ?", string(status), id)
	if err != nil {
		return fmt.Errorf("failed to set message %s status: %w", id, err)
	}
	return nil
}

// ListConversation returns a conversation's messages in send order.
func (s *Store) ListConversation(ctx context.Context, conversationID string) ([]model.Message, error) {
	rows, err := s.conn.QueryContext(ctx, `
	SELECT id, conversation_id, sender_id, recipient_id, body, sent_at, status
	FROM messages
	WHERE conversation_id = ?
	ORDER BY sent_at ASC, id ASC
	`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversation %s: %w", conversationID, err)
	}
	defer rows.Close()

	var messages []model.Message
	for rows.Next() {
		var m model.Message
		var sentAt, status string
		err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.RecipientID,
			&m.Body, &sentAt, &status)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		m.SentAt = parseTime(sentAt)
		m.Status = model.MessageStatus(status)
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}
	return messages, nil
}
