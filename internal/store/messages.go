package store

import (
	"context"
	"database/sql"
	"fmt"

	"spotifly/internal/models"
)

// CreateMessage inserts a direct message.
func (s *Store) CreateMessage(ctx context.Context, msg *models.Message) error {
	if msg == nil {
		return fmt.Errorf("message is required")
	}

	msg.ID = newID()
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO messages (id, sender_id, receiver_id, content, song_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`,
		msg.ID, msg.SenderID, msg.ReceiverID, msg.Content, nullIfEmpty(msg.SongID),
	).Scan(&msg.CreatedAt, &msg.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// ListConversation returns the messages exchanged between a and b in both
// directions, oldest first.
func (s *Store) ListConversation(ctx context.Context, a, b string) ([]models.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sender_id, receiver_id, content, song_id, created_at, updated_at
		FROM messages
		WHERE (sender_id = $1 AND receiver_id = $2) OR (sender_id = $2 AND receiver_id = $1)
		ORDER BY created_at ASC, id ASC`, a, b)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	messages := make([]models.Message, 0)
	for rows.Next() {
		var (
			msg    models.Message
			songID sql.NullString
		)
		if err := rows.Scan(&msg.ID, &msg.SenderID, &msg.ReceiverID, &msg.Content, &songID,
			&msg.CreatedAt, &msg.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msg.SongID = stringPtr(songID)
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return messages, nil
}
