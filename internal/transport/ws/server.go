package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/campus-planet/chat-service/internal/domain"
	"github.com/campus-planet/chat-service/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

type IdentitySvc interface {
	Resolve(ctx context.Context, token string) (*domain.User, error)
}

type AccessSvc interface {
	AuthorizeGroup(ctx context.Context, user *domain.User, courseID int64) (int64, error)
	AuthorizePrivate(ctx context.Context, user *domain.User, counterpart string) (int64, error)
}

type ChatSvc interface {
	SaveMessage(ctx context.Context, chatID, senderID int64, content string) (*domain.Message, error)
	History(ctx context.Context, chatID int64, after string, limit int) ([]domain.MessageView, string, error)
}

type Server struct {
	upgrader websocket.Upgrader
	hub      *Hub
	identity IdentitySvc
	access   AccessSvc
	chatSvc  ChatSvc

	pingEvery   time.Duration
	historySize int
}

func NewServer(hub *Hub, identity IdentitySvc, access AccessSvc, chat ChatSvc) *Server {
	return &Server{
		hub:      hub,
		identity: identity,
		access:   access,
		chatSvc:  chat,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		pingEvery:   15 * time.Second,
		historySize: 50,
	}
}

func (s *Server) SetPingInterval(d time.Duration) {
	if d > 0 {
		s.pingEvery = d
	}
}

// WS endpoint: GET /ws/courses/{id}?access_token=...
func (s *Server) HandleGroupWS(w http.ResponseWriter, r *http.Request) {
	courseID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || courseID <= 0 {
		http.Error(w, "invalid course id", http.StatusBadRequest)
		return
	}

	s.handle(w, r, func(ctx context.Context, user *domain.User) (int64, error) {
		return s.access.AuthorizeGroup(ctx, user, courseID)
	})
}

// WS endpoint: GET /ws/private/{username}?access_token=...
func (s *Server) HandlePrivateWS(w http.ResponseWriter, r *http.Request) {
	counterpart := strings.TrimSpace(chi.URLParam(r, "username"))
	if counterpart == "" {
		http.Error(w, "missing counterpart username", http.StatusBadRequest)
		return
	}

	s.handle(w, r, func(ctx context.Context, user *domain.User) (int64, error) {
		return s.access.AuthorizePrivate(ctx, user, counterpart)
	})
}

// handle runs the shared admission path: upgrade, resolve identity,
// authorize, then enter the session loop. A denied connection is closed
// with a policy-violation status and never reaches the hub.
func (s *Server) handle(w http.ResponseWriter, r *http.Request, authorize func(context.Context, *domain.User) (int64, error)) {
	token := strings.TrimSpace(r.URL.Query().Get("access_token"))

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("ws upgrade failed", "err", err)
		return
	}

	ctx := r.Context()

	user, err := s.identity.Resolve(ctx, token)
	if err != nil {
		slog.Info("ws refused", "reason", "authentication", "err", err)
		closePolicy(conn, denyReason(err))
		return
	}

	roomID, err := authorize(ctx, user)
	if err != nil {
		slog.Info("ws refused",
			"reason", "authorization", "user", user.ID, "err", err)
		closePolicy(conn, denyReason(err))
		return
	}

	s.serve(ctx, conn, roomID, *user)
}

func (s *Server) serve(ctx context.Context, conn *websocket.Conn, roomID int64, user domain.User) {
	sess := NewSession(conn, roomID, user)
	s.hub.Add(sess)
	sess.Activate()

	// Removal must happen on every exit path, or dead sessions leak
	// into future broadcasts.
	defer func() {
		s.hub.Remove(sess)
		sess.Close(ErrTransportClosed)
	}()

	slog.Info("ws session open", "room", roomID, "user", user.ID)

	if err := s.sendHistory(ctx, sess); err != nil {
		slog.Warn("ws send history failed",
			"room", roomID, "user", user.ID, "err", err)
	}

	go s.pingLoop(ctx, sess, conn)
	s.readLoop(ctx, sess, conn)

	slog.Info("ws session closed",
		"room", roomID, "user", user.ID, "reason", sess.CloseReason())
}

// sendHistory replays the room's messages in insertion order as the
// initial-state exchange.
func (s *Server) sendHistory(ctx context.Context, sess *Session) error {
	items, _, err := s.chatSvc.History(ctx, sess.RoomID(), "", s.historySize)
	if err != nil {
		return err
	}
	for _, m := range items {
		if err := sess.Send(MessagePayload{
			Content:   m.Content,
			SenderID:  m.SenderID,
			Username:  m.Username,
			AvatarURL: m.AvatarURL,
			CreatedAt: m.CreatedAt,
		}); err != nil {
			return err
		}
	}
	return nil
}

func (s *Server) readLoop(ctx context.Context, sess *Session, conn *websocket.Conn) {
	conn.SetReadLimit(1 << 20)
	conn.SetReadDeadline(time.Now().Add(2 * s.pingEvery))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(2 * s.pingEvery))
		return nil
	})

	user := sess.User()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			sess.Close(fmt.Errorf("%w: %v", ErrTransportClosed, err))
			return
		}

		var in Inbound
		if err := json.Unmarshal(data, &in); err != nil {
			closePolicy(conn, "malformed payload")
			sess.Close(fmt.Errorf("%w: %v", ErrProtocol, err))
			return
		}
		if strings.TrimSpace(in.Content) == "" {
			continue
		}

		msg, err := s.chatSvc.SaveMessage(ctx, sess.RoomID(), user.ID, in.Content)
		if err != nil {
			if errors.Is(err, service.ErrMessageTooLong) {
				closePolicy(conn, "message too long")
				sess.Close(fmt.Errorf("%w: %v", ErrProtocol, err))
				return
			}
			slog.Error("ws save message failed",
				"room", sess.RoomID(), "user", user.ID, "err", err)
			sess.Close(fmt.Errorf("%w: %v", ErrPersistence, err))
			return
		}

		s.hub.Broadcast(sess.RoomID(), MessagePayload{
			Content:   msg.Content,
			SenderID:  user.ID,
			Username:  user.Username,
			AvatarURL: user.AvatarURL,
			CreatedAt: msg.CreatedAt,
		})
	}
}

func (s *Server) pingLoop(ctx context.Context, sess *Session, conn *websocket.Conn) {
	ticker := time.NewTicker(s.pingEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_ = conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
		case <-ctx.Done():
			return
		case <-sess.Closed():
			return
		}
	}
}

// --- helpers ---

func closePolicy(conn *websocket.Conn, reason string) {
	deadline := time.Now().Add(5 * time.Second)
	msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason)
	_ = conn.WriteControl(websocket.CloseMessage, msg, deadline)
	_ = conn.Close()
}

func denyReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidToken):
		return "invalid token"
	case errors.Is(err, domain.ErrUserNotFound):
		return "user not found"
	case errors.Is(err, domain.ErrAmbiguousUser):
		return "ambiguous target"
	case errors.Is(err, domain.ErrNotParticipant):
		return "not a participant"
	case errors.Is(err, domain.ErrCourseNotFound):
		return "course not found"
	case errors.Is(err, domain.ErrSelfChat):
		return "cannot chat with yourself"
	default:
		return "unauthorized"
	}
}
