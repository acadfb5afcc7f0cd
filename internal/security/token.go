package security

import (
	"time"

	"github.com/campus-planet/chat-service/internal/domain"

	"github.com/golang-jwt/jwt/v5"
)

// TokenVerifier validates HS256 access tokens issued by the platform's
// auth layer. The subject claim carries the account email.
type TokenVerifier struct {
	secret    []byte
	clockSkew time.Duration
}

func NewTokenVerifier(secret string, clockSkew time.Duration) *TokenVerifier {
	return &TokenVerifier{
		secret:    []byte(secret),
		clockSkew: clockSkew,
	}
}

func (v *TokenVerifier) Subject(tokenStr string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims,
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, domain.ErrInvalidToken
			}
			return v.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(v.clockSkew),
	)
	if err != nil || !token.Valid {
		return "", domain.ErrInvalidToken
	}
	if claims.Subject == "" {
		return "", domain.ErrInvalidToken
	}
	return claims.Subject, nil
}
