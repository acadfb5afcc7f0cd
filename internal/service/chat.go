package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/campus-planet/chat-service/internal/domain"
)

const maxMessageRunes = 4000

var (
	ErrEmptyMessage   = errors.New("empty message")
	ErrMessageTooLong = errors.New("message too long")
)

type ChatStore interface {
	FindGroupByCourse(ctx context.Context, courseID int64) (*domain.Chat, error)
	CreateGroup(ctx context.Context, courseID int64) (*domain.Chat, error)
	FindPrivate(ctx context.Context, a, b int64) (*domain.Chat, error)
	CreatePrivate(ctx context.Context, a, b int64) (*domain.Chat, error)
}

type MessageStore interface {
	Append(ctx context.Context, chatID, senderID int64, content string, at time.Time) (*domain.Message, error)
	ListDetailed(ctx context.Context, chatID int64, after string, limit int) ([]domain.MessageView, string, error)
}

type ChatService struct {
	chats    ChatStore
	messages MessageStore
}

func NewChatService(chats ChatStore, messages MessageStore) *ChatService {
	return &ChatService{chats: chats, messages: messages}
}

// FindOrCreatePrivate resolves the single private chat for the unordered
// pair {a, b}, creating it on first contact. Two concurrent first
// contacts both reach the insert; the loser gets ErrChatExists from the
// storage uniqueness constraint and returns the winner's chat instead.
func (s *ChatService) FindOrCreatePrivate(ctx context.Context, a, b int64) (int64, error) {
	if a == b {
		return 0, domain.ErrSelfChat
	}

	chat, err := s.chats.FindPrivate(ctx, a, b)
	if err == nil {
		return chat.ID, nil
	}
	if !errors.Is(err, domain.ErrChatNotFound) {
		return 0, fmt.Errorf("find private chat: %w", err)
	}

	chat, err = s.chats.CreatePrivate(ctx, a, b)
	if err == nil {
		return chat.ID, nil
	}
	if !errors.Is(err, domain.ErrChatExists) {
		return 0, fmt.Errorf("create private chat: %w", err)
	}

	// Lost the race; the winner's row is already committed.
	chat, err = s.chats.FindPrivate(ctx, a, b)
	if err != nil {
		return 0, fmt.Errorf("requery private chat: %w", err)
	}
	return chat.ID, nil
}

// FindOrCreateGroup resolves the course's single group chat, creating it
// lazily. Same race discipline as FindOrCreatePrivate, backed by the
// unique index on the course id.
func (s *ChatService) FindOrCreateGroup(ctx context.Context, courseID int64) (int64, error) {
	chat, err := s.chats.FindGroupByCourse(ctx, courseID)
	if err == nil {
		return chat.ID, nil
	}
	if !errors.Is(err, domain.ErrChatNotFound) {
		return 0, fmt.Errorf("find group chat: %w", err)
	}

	chat, err = s.chats.CreateGroup(ctx, courseID)
	if err == nil {
		return chat.ID, nil
	}
	if !errors.Is(err, domain.ErrChatExists) {
		return 0, fmt.Errorf("create group chat: %w", err)
	}

	chat, err = s.chats.FindGroupByCourse(ctx, courseID)
	if err != nil {
		return 0, fmt.Errorf("requery group chat: %w", err)
	}
	return chat.ID, nil
}

func (s *ChatService) SaveMessage(ctx context.Context, chatID, senderID int64, content string) (*domain.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyMessage
	}
	if utf8.RuneCountInString(content) > maxMessageRunes {
		return nil, ErrMessageTooLong
	}

	msg, err := s.messages.Append(ctx, chatID, senderID, content, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("messages.Append: %w", err)
	}
	return msg, nil
}

// History returns the chat's messages in insertion order, enriched with
// sender display data for the room-open snapshot.
func (s *ChatService) History(ctx context.Context, chatID int64, after string, limit int) ([]domain.MessageView, string, error) {
	return s.messages.ListDetailed(ctx, chatID, after, limit)
}
