package httpmw

import (
	"context"
	"net/http"
	"strings"

	"github.com/campus-planet/chat-service/internal/domain"
)

type ctxKey string

const ctxKeyUser ctxKey = "user"

type IdentityResolver interface {
	Resolve(ctx context.Context, token string) (*domain.User, error)
}

// AuthMiddleware resolves the Bearer token to a user and stores the
// identity in the request context.
func AuthMiddleware(identity IdentityResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") || len(auth) <= 7 {
				http.Error(w, `{"error":"missing bearer token"}`, http.StatusUnauthorized)
				return
			}

			user, err := identity.Resolve(r.Context(), strings.TrimSpace(auth[7:]))
			if err != nil {
				http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), ctxKeyUser, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func UserFromCtx(ctx context.Context) *domain.User {
	if v := ctx.Value(ctxKeyUser); v != nil {
		if u, ok := v.(*domain.User); ok {
			return u
		}
	}
	return nil
}
