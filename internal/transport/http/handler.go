package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/campus-planet/chat-service/internal/domain"
	"github.com/campus-planet/chat-service/internal/postgres"
	httpmw "github.com/campus-planet/chat-service/internal/transport/http/middleware"

	"github.com/go-chi/chi/v5"
)

type AccessSvc interface {
	AuthorizePrivate(ctx context.Context, user *domain.User, counterpart string) (int64, error)
	CanRead(ctx context.Context, user *domain.User, chatID int64) (bool, error)
}

type ChatSvc interface {
	History(ctx context.Context, chatID int64, after string, limit int) ([]domain.MessageView, string, error)
}

type UserSvc interface {
	ListUsers(ctx context.Context) ([]domain.User, error)
}

type Handler struct {
	access  AccessSvc
	chatSvc ChatSvc
	userSvc UserSvc
}

func NewHandler(access AccessSvc, chat ChatSvc, users UserSvc) *Handler {
	return &Handler{
		access:  access,
		chatSvc: chat,
		userSvc: users,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// GET /chats/{id}/messages?after=&limit=
func (h *Handler) GetMessages(w http.ResponseWriter, r *http.Request) {
	user := httpmw.UserFromCtx(r.Context())
	if user == nil {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "missing identity"})
		return
	}

	chatID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || chatID <= 0 {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid chat id"})
		return
	}

	ok, err := h.access.CanRead(r.Context(), user, chatID)
	if err != nil {
		slog.Error("handler.GetMessages.CanRead:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	if !ok {
		writeJSON(w, http.StatusForbidden, ErrorResponse{Error: "not a participant"})
		return
	}

	after := r.URL.Query().Get("after")
	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			limit = n
		}
	}

	items, next, err := h.chatSvc.History(r.Context(), chatID, after, limit)
	if err != nil {
		if errors.Is(err, postgres.ErrInvalidCursor) {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid_cursor"})
			return
		}
		slog.Error("handler.GetMessages:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	resp := MessagesResponse{Items: make([]MessageItem, 0, len(items)), NextCursor: next}
	for _, m := range items {
		resp.Items = append(resp.Items, MessageItem{
			ID:        m.ID,
			ChatID:    m.ChatID,
			SenderID:  m.SenderID,
			Username:  m.Username,
			AvatarURL: m.AvatarURL,
			Content:   m.Content,
			CreatedAt: m.CreatedAt.Truncate(time.Millisecond),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// GET /chats/users
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.userSvc.ListUsers(r.Context())
	if err != nil {
		slog.Error("handler.ListUsers:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	resp := UsersResponse{Items: make([]UserItem, 0, len(users))}
	for _, u := range users {
		resp.Items = append(resp.Items, UserItem{
			ID:        u.ID,
			Username:  u.Username,
			Role:      u.Role,
			AvatarURL: u.AvatarURL,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// POST /chats/private/{username}
func (h *Handler) ResolvePrivateChat(w http.ResponseWriter, r *http.Request) {
	user := httpmw.UserFromCtx(r.Context())
	if user == nil {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "missing identity"})
		return
	}

	counterpart := chi.URLParam(r, "username")
	chatID, err := h.access.AuthorizePrivate(r.Context(), user, counterpart)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUserNotFound):
			writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "user not found"})
		case errors.Is(err, domain.ErrAmbiguousUser):
			writeJSON(w, http.StatusConflict, ErrorResponse{Error: "ambiguous target"})
		case errors.Is(err, domain.ErrSelfChat):
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "cannot chat with yourself"})
		default:
			slog.Error("handler.ResolvePrivateChat:", slog.Any("err", err))
			writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		}
		return
	}

	writeJSON(w, http.StatusOK, PrivateChatResponse{ChatID: chatID})
}
