package ws

import (
	"log/slog"
	"sync"
)

// Hub maps room ids to the sessions currently bound to them. The room
// entry is created on first admission and deleted when the last session
// leaves, so the map only holds active rooms.
type Hub struct {
	mu    sync.RWMutex
	rooms map[int64]map[*Session]struct{}
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[int64]map[*Session]struct{})}
}

func (h *Hub) Add(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	rs, ok := h.rooms[s.RoomID()]
	if !ok {
		rs = make(map[*Session]struct{})
		h.rooms[s.RoomID()] = rs
	}
	rs[s] = struct{}{}
}

// Remove is idempotent; removing an unknown session is a no-op.
func (h *Hub) Remove(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if rs, ok := h.rooms[s.RoomID()]; ok {
		delete(rs, s)
		if len(rs) == 0 {
			delete(h.rooms, s.RoomID())
		}
	}
}

// Sessions returns a snapshot of the room's sessions. Admissions after
// the snapshot are not observed, which is fine for fan-out.
func (h *Hub) Sessions(roomID int64) []*Session {
	h.mu.RLock()
	defer h.mu.RUnlock()

	rs, ok := h.rooms[roomID]
	if !ok {
		return nil
	}
	out := make([]*Session, 0, len(rs))
	for s := range rs {
		out = append(out, s)
	}
	return out
}

// Len reports the number of sessions bound to the room.
func (h *Hub) Len(roomID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

// RoomCount reports the number of rooms with at least one session.
func (h *Hub) RoomCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

// Broadcast delivers the payload to every session in the room's
// snapshot. Writes happen outside the registry lock. A session whose
// write fails is closed and dropped; the rest still get the payload.
func (h *Hub) Broadcast(roomID int64, payload any) {
	for _, s := range h.Sessions(roomID) {
		if err := s.Send(payload); err != nil {
			slog.Debug("ws broadcast drop",
				"room", roomID, "user", s.User().ID, "err", err)
			s.Close(err)
			h.Remove(s)
		}
	}
}
