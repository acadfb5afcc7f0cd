package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/campus-planet/chat-service/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

type MessageRepository struct {
	db *pgxpool.Pool
}

func NewMessageRepository(db *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Append(ctx context.Context, chatID, senderID int64, content string, at time.Time) (*domain.Message, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO messages (chat_id, sender_id, content, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, chat_id, sender_id, content, created_at
	`, chatID, senderID, content, at)

	var m domain.Message
	if err := row.Scan(&m.ID, &m.ChatID, &m.SenderID, &m.Content, &m.CreatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}

// ListDetailed returns the chat's messages in insertion order
// (created_at, id ASC) with cursor pagination, joined with the sender's
// display data.
func (r *MessageRepository) ListDetailed(ctx context.Context, chatID int64, after string, limit int) ([]domain.MessageView, string, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	cur, err := DecodeCursor(after)
	if err != nil {
		return nil, "", fmt.Errorf("decode cursor: %w", err)
	}

	const baseQuery = `
		SELECT m.id, m.chat_id, m.sender_id, u.username, u.avatar_url, m.content, m.created_at
		FROM messages AS m
		JOIN users AS u ON u.id = m.sender_id
		WHERE m.chat_id = $1
		  AND (
		    $2::timestamptz IS NULL
		    OR m.created_at > $2
		    OR (m.created_at = $2 AND m.id > $3)
		  )
		ORDER BY m.created_at ASC, m.id ASC
		LIMIT $4
	`

	var createdAt any
	var id any
	if cur != nil {
		createdAt = cur.CreatedAt
		id = cur.ID
	}

	rows, err := r.db.Query(ctx, baseQuery, chatID, createdAt, id, limit)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()

	var out []domain.MessageView
	for rows.Next() {
		var m domain.MessageView
		if err := rows.Scan(&m.ID, &m.ChatID, &m.SenderID, &m.Username, &m.AvatarURL, &m.Content, &m.CreatedAt); err != nil {
			return nil, "", err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, "", err
	}

	var next string
	if len(out) == limit {
		last := out[len(out)-1]
		if c, e := EncodeCursor(Cursor{CreatedAt: last.CreatedAt, ID: last.ID}); e == nil {
			next = c
		}
	}
	return out, next, nil
}
