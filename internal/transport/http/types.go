package http

import "time"

type ErrorResponse struct {
	Error string `json:"error"`
}

type MessageItem struct {
	ID        int64     `json:"id"`
	ChatID    int64     `json:"chat_id"`
	SenderID  int64     `json:"sender_id"`
	Username  string    `json:"username"`
	AvatarURL *string   `json:"avatar_url"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type MessagesResponse struct {
	Items      []MessageItem `json:"items"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

type UserItem struct {
	ID        int64   `json:"id"`
	Username  string  `json:"username"`
	Role      string  `json:"role"`
	AvatarURL *string `json:"avatar_url"`
}

type UsersResponse struct {
	Items []UserItem `json:"items"`
}

type PrivateChatResponse struct {
	ChatID int64 `json:"chat_id"`
}
