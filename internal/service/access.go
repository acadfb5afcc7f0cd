package service

import (
	"context"
	"fmt"

	"github.com/campus-planet/chat-service/internal/domain"
)

type CourseFacts interface {
	IsTeacherOf(ctx context.Context, userID, courseID int64) (bool, error)
	IsEnrolled(ctx context.Context, userID, courseID int64) (bool, error)
}

type RoomResolver interface {
	FindOrCreateGroup(ctx context.Context, courseID int64) (int64, error)
	FindOrCreatePrivate(ctx context.Context, a, b int64) (int64, error)
}

type MembershipStore interface {
	IsMember(ctx context.Context, chatID, userID int64) (bool, error)
}

// AccessService decides whether a user may be admitted to a room and
// resolves the room id for a claimed target. Read-only against the
// store except for the delegated find-or-create in RoomResolver.
type AccessService struct {
	courses CourseFacts
	users   UserDirectory
	rooms   RoomResolver
	members MembershipStore
}

func NewAccessService(courses CourseFacts, users UserDirectory, rooms RoomResolver, members MembershipStore) *AccessService {
	return &AccessService{
		courses: courses,
		users:   users,
		rooms:   rooms,
		members: members,
	}
}

// AuthorizeGroup admits the course's teacher and enrolled students to
// the course group room; everyone else gets ErrNotParticipant.
func (s *AccessService) AuthorizeGroup(ctx context.Context, user *domain.User, courseID int64) (int64, error) {
	teacher, err := s.courses.IsTeacherOf(ctx, user.ID, courseID)
	if err != nil {
		return 0, err
	}
	if !teacher {
		enrolled, err := s.courses.IsEnrolled(ctx, user.ID, courseID)
		if err != nil {
			return 0, fmt.Errorf("courses.IsEnrolled: %w", err)
		}
		if !enrolled {
			return 0, domain.ErrNotParticipant
		}
	}

	return s.rooms.FindOrCreateGroup(ctx, courseID)
}

// AuthorizePrivate resolves the counterpart by username and admits the
// user to the pair's single private room.
func (s *AccessService) AuthorizePrivate(ctx context.Context, user *domain.User, counterpart string) (int64, error) {
	peer, err := s.users.ResolveByUsername(ctx, counterpart)
	if err != nil {
		return 0, err
	}
	if peer.ID == user.ID {
		return 0, domain.ErrSelfChat
	}

	return s.rooms.FindOrCreatePrivate(ctx, user.ID, peer.ID)
}

// CanRead reports whether the user may fetch the chat's history.
func (s *AccessService) CanRead(ctx context.Context, user *domain.User, chatID int64) (bool, error) {
	return s.members.IsMember(ctx, chatID, user.ID)
}
