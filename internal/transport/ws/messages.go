package ws

import "time"

// Inbound frame: one JSON object per message event.
type Inbound struct {
	Content string `json:"content"`
}

// MessagePayload is the enriched outbound shape, one object per
// broadcast and per history item.
type MessagePayload struct {
	Content   string    `json:"content"`
	SenderID  int64     `json:"sender_id"`
	Username  string    `json:"username"`
	AvatarURL *string   `json:"avatar_url"`
	CreatedAt time.Time `json:"created_at"`
}
