package ws

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/campus-planet/chat-service/internal/domain"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

type fakeIdentity struct {
	users map[string]domain.User // token -> user
}

func (f *fakeIdentity) Resolve(ctx context.Context, token string) (*domain.User, error) {
	u, ok := f.users[token]
	if !ok {
		return nil, domain.ErrInvalidToken
	}
	return &u, nil
}

type fakeAccess struct {
	courseID  int64
	roomID    int64
	teacherID int64
	enrolled  map[int64]bool
}

func (f *fakeAccess) AuthorizeGroup(ctx context.Context, user *domain.User, courseID int64) (int64, error) {
	if courseID != f.courseID {
		return 0, domain.ErrCourseNotFound
	}
	if user.ID == f.teacherID || f.enrolled[user.ID] {
		return f.roomID, nil
	}
	return 0, domain.ErrNotParticipant
}

func (f *fakeAccess) AuthorizePrivate(ctx context.Context, user *domain.User, counterpart string) (int64, error) {
	return 0, domain.ErrUserNotFound
}

type fakeChatSvc struct {
	mu       sync.Mutex
	nextID   int64
	msgs     []domain.Message
	users    map[int64]domain.User
	failSave bool
}

func (f *fakeChatSvc) SaveMessage(ctx context.Context, chatID, senderID int64, content string) (*domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSave {
		return nil, errors.New("storage unavailable")
	}
	f.nextID++
	m := domain.Message{
		ID:        f.nextID,
		ChatID:    chatID,
		SenderID:  senderID,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	f.msgs = append(f.msgs, m)
	return &m, nil
}

func (f *fakeChatSvc) History(ctx context.Context, chatID int64, after string, limit int) ([]domain.MessageView, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.MessageView
	for _, m := range f.msgs {
		if m.ChatID != chatID {
			continue
		}
		u := f.users[m.SenderID]
		out = append(out, domain.MessageView{
			ID:        m.ID,
			ChatID:    m.ChatID,
			SenderID:  m.SenderID,
			Username:  u.Username,
			AvatarURL: u.AvatarURL,
			Content:   m.Content,
			CreatedAt: m.CreatedAt,
		})
	}
	return out, "", nil
}

func (f *fakeChatSvc) stored() []domain.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Message(nil), f.msgs...)
}

const (
	testCourseID = 7
	testRoomID   = 70
)

func newChatFixture() (*fakeIdentity, *fakeAccess, *fakeChatSvc) {
	teacher := domain.User{ID: 1, Username: "alice", Email: "alice@school.test", Role: domain.RoleTeacher}
	student := domain.User{ID: 2, Username: "bob", Email: "bob@school.test", Role: domain.RoleStudent}
	stranger := domain.User{ID: 3, Username: "mallory", Email: "mallory@school.test", Role: domain.RoleStudent}

	identity := &fakeIdentity{users: map[string]domain.User{
		"teacher-token":  teacher,
		"student-token":  student,
		"stranger-token": stranger,
	}}
	access := &fakeAccess{
		courseID:  testCourseID,
		roomID:    testRoomID,
		teacherID: teacher.ID,
		enrolled:  map[int64]bool{student.ID: true},
	}
	chat := &fakeChatSvc{users: map[int64]domain.User{
		teacher.ID: teacher,
		student.ID: student,
	}}
	return identity, access, chat
}

func newTestServer(t *testing.T, identity IdentitySvc, access AccessSvc, chat ChatSvc) (*httptest.Server, *Hub) {
	t.Helper()

	hub := NewHub()
	srv := NewServer(hub, identity, access, chat)

	r := chi.NewRouter()
	r.Get("/ws/courses/{id}", srv.HandleGroupWS)
	r.Get("/ws/private/{username}", srv.HandlePrivateWS)

	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)
	return ts, hub
}

func dial(t *testing.T, ts *httptest.Server, path string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + path
	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", path, err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func readPayload(t *testing.T, c *websocket.Conn) MessagePayload {
	t.Helper()

	c.SetReadDeadline(time.Now().Add(2 * time.Second))
	var p MessagePayload
	if err := c.ReadJSON(&p); err != nil {
		t.Fatalf("read payload: %v", err)
	}
	return p
}

func expectPolicyClose(t *testing.T, c *websocket.Conn) {
	t.Helper()

	c.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := c.ReadMessage()
	var ce *websocket.CloseError
	if !errors.As(err, &ce) || ce.Code != websocket.ClosePolicyViolation {
		t.Fatalf("expected policy-violation close, got %v", err)
	}
}

func waitForLen(t *testing.T, hub *Hub, roomID int64, want int) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.Len(roomID) == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("hub.Len(%d) = %d, want %d", roomID, hub.Len(roomID), want)
}

func TestServer_GroupChatEndToEnd(t *testing.T) {
	identity, access, chat := newChatFixture()
	ts, hub := newTestServer(t, identity, access, chat)

	teacher := dial(t, ts, "/ws/courses/7?access_token=teacher-token")
	student := dial(t, ts, "/ws/courses/7?access_token=student-token")
	waitForLen(t, hub, testRoomID, 2)

	if err := student.WriteJSON(Inbound{Content: "hello"}); err != nil {
		t.Fatalf("student write: %v", err)
	}

	for _, c := range []*websocket.Conn{teacher, student} {
		p := readPayload(t, c)
		if p.Content != "hello" || p.SenderID != 2 || p.Username != "bob" {
			t.Fatalf("payload = %+v, want content=hello sender_id=2 username=bob", p)
		}
	}

	stored := chat.stored()
	if len(stored) != 1 || stored[0].Content != "hello" || stored[0].ChatID != testRoomID {
		t.Fatalf("persisted = %+v, want one hello in room %d", stored, testRoomID)
	}
}

func TestServer_OrderingPerListener(t *testing.T) {
	identity, access, chat := newChatFixture()
	ts, hub := newTestServer(t, identity, access, chat)

	teacher := dial(t, ts, "/ws/courses/7?access_token=teacher-token")
	student := dial(t, ts, "/ws/courses/7?access_token=student-token")
	waitForLen(t, hub, testRoomID, 2)

	if err := student.WriteJSON(Inbound{Content: "m1"}); err != nil {
		t.Fatalf("write m1: %v", err)
	}
	if err := student.WriteJSON(Inbound{Content: "m2"}); err != nil {
		t.Fatalf("write m2: %v", err)
	}

	if p := readPayload(t, teacher); p.Content != "m1" {
		t.Fatalf("first payload = %q, want m1", p.Content)
	}
	if p := readPayload(t, teacher); p.Content != "m2" {
		t.Fatalf("second payload = %q, want m2", p.Content)
	}

	stored := chat.stored()
	if len(stored) != 2 || stored[0].Content != "m1" || stored[1].Content != "m2" {
		t.Fatalf("persisted order = %+v, want m1 then m2", stored)
	}
}

func TestServer_HistoryReplayOnConnect(t *testing.T) {
	identity, access, chat := newChatFixture()
	chat.msgs = []domain.Message{
		{ID: 1, ChatID: testRoomID, SenderID: 2, Content: "earlier", CreatedAt: time.Now().Add(-time.Hour)},
		{ID: 2, ChatID: testRoomID, SenderID: 1, Content: "later", CreatedAt: time.Now().Add(-time.Minute)},
	}
	chat.nextID = 2
	ts, _ := newTestServer(t, identity, access, chat)

	teacher := dial(t, ts, "/ws/courses/7?access_token=teacher-token")

	if p := readPayload(t, teacher); p.Content != "earlier" || p.Username != "bob" {
		t.Fatalf("first history payload = %+v, want earlier from bob", p)
	}
	if p := readPayload(t, teacher); p.Content != "later" || p.Username != "alice" {
		t.Fatalf("second history payload = %+v, want later from alice", p)
	}
}

func TestServer_RejectsInvalidToken(t *testing.T) {
	identity, access, chat := newChatFixture()
	ts, hub := newTestServer(t, identity, access, chat)

	c := dial(t, ts, "/ws/courses/7?access_token=bogus")
	expectPolicyClose(t, c)

	if got := hub.RoomCount(); got != 0 {
		t.Fatalf("RoomCount = %d, want 0 (denied connection must not be admitted)", got)
	}
}

func TestServer_RejectsNonParticipant(t *testing.T) {
	identity, access, chat := newChatFixture()
	ts, hub := newTestServer(t, identity, access, chat)

	c := dial(t, ts, "/ws/courses/7?access_token=stranger-token")
	expectPolicyClose(t, c)

	if got := hub.RoomCount(); got != 0 {
		t.Fatalf("RoomCount = %d, want 0", got)
	}
}

func TestServer_MalformedPayloadClosesOnlySender(t *testing.T) {
	identity, access, chat := newChatFixture()
	ts, hub := newTestServer(t, identity, access, chat)

	teacher := dial(t, ts, "/ws/courses/7?access_token=teacher-token")
	student := dial(t, ts, "/ws/courses/7?access_token=student-token")
	waitForLen(t, hub, testRoomID, 2)

	if err := student.WriteMessage(websocket.TextMessage, []byte("{not json")); err != nil {
		t.Fatalf("student write: %v", err)
	}
	expectPolicyClose(t, student)
	waitForLen(t, hub, testRoomID, 1)

	// the room and its other session are unaffected
	_ = teacher.WriteJSON(Inbound{Content: "still here"})
	if p := readPayload(t, teacher); p.Content != "still here" {
		t.Fatalf("surviving session payload = %q, want still here", p.Content)
	}
}

func TestServer_PersistenceFailureClosesOnlySender(t *testing.T) {
	identity, access, chat := newChatFixture()
	chat.failSave = true
	ts, hub := newTestServer(t, identity, access, chat)

	teacher := dial(t, ts, "/ws/courses/7?access_token=teacher-token")
	student := dial(t, ts, "/ws/courses/7?access_token=student-token")
	waitForLen(t, hub, testRoomID, 2)

	if err := student.WriteJSON(Inbound{Content: "doomed"}); err != nil {
		t.Fatalf("student write: %v", err)
	}

	// sender is dropped, the rest of the room stays registered
	waitForLen(t, hub, testRoomID, 1)

	student.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := student.ReadMessage(); err == nil {
		t.Fatal("expected sender's connection to be closed")
	}
	_ = teacher
}
