package domain

import "time"

type Message struct {
	ID        int64     `db:"id"`
	ChatID    int64     `db:"chat_id"`
	SenderID  int64     `db:"sender_id"`
	Content   string    `db:"content"`
	CreatedAt time.Time `db:"created_at"`
}

// MessageView is a message enriched with sender display data, served on
// room open and over the history endpoint.
type MessageView struct {
	ID        int64
	ChatID    int64
	SenderID  int64
	Username  string
	AvatarURL *string
	Content   string
	CreatedAt time.Time
}
