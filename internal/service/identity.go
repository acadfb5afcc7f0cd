package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/campus-planet/chat-service/internal/domain"
)

type TokenVerifier interface {
	Subject(token string) (string, error)
}

type UserDirectory interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	ResolveByUsername(ctx context.Context, username string) (*domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
}

type IdentityService struct {
	verifier TokenVerifier
	users    UserDirectory
}

func NewIdentityService(verifier TokenVerifier, users UserDirectory) *IdentityService {
	return &IdentityService{verifier: verifier, users: users}
}

// Resolve maps an access token to the user it was issued for.
func (s *IdentityService) Resolve(ctx context.Context, token string) (*domain.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, domain.ErrInvalidToken
	}

	email, err := s.verifier.Subject(token)
	if err != nil {
		return nil, domain.ErrInvalidToken
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		// A valid token whose subject no longer exists is still an
		// authentication failure from the caller's point of view.
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidToken
		}
		return nil, fmt.Errorf("users.GetByEmail: %w", err)
	}
	return u, nil
}

func (s *IdentityService) ListUsers(ctx context.Context) ([]domain.User, error) {
	return s.users.List(ctx)
}
