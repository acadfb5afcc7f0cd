package domain

import "errors"

var (
	ErrInvalidToken   = errors.New("invalid or expired access token")
	ErrUserNotFound   = errors.New("user not found")
	ErrAmbiguousUser  = errors.New("username resolves to more than one user")
	ErrCourseNotFound = errors.New("course not found")
	ErrChatNotFound   = errors.New("chat not found")
	ErrNotParticipant = errors.New("user is not a participant of this chat")
	ErrSelfChat       = errors.New("private chat with oneself is not allowed")

	// ErrChatExists reports a lost find-or-create race: the unique
	// constraint rejected the insert because the chat already exists.
	ErrChatExists = errors.New("chat already exists")
)
