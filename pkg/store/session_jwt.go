package store

import (
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	defaultJWTIssuer   = "librarium"
	defaultJWTAudience = "librarium-api"
)

// JWTSessionStore issues and validates HS256 session tokens signed with the
// service secret key. Logout works through the attached TokenRevoker.
type JWTSessionStore struct {
	secret   []byte
	ttl      time.Duration
	issuer   string
	audience string
	revoker  TokenRevoker
}

// NewJWTSessionStore builds a session store from the service secret.
func NewJWTSessionStore(secret string, ttl time.Duration, revoker TokenRevoker) (*JWTSessionStore, error) {
	if secret == "" {
		return nil, errors.New("session secret is required")
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &JWTSessionStore{
		secret:   []byte(secret),
		ttl:      ttl,
		issuer:   defaultJWTIssuer,
		audience: defaultJWTAudience,
		revoker:  revoker,
	}, nil
}

// NewSession creates a signed token for the user ID.
func (s *JWTSessionStore) NewSession(userID string) (string, error) {
	now := time.Now().UTC()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    s.issuer,
		Audience:  jwt.ClaimStrings{s.audience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		ID:        uuid.NewString(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// UserIDFromToken validates a token and returns the subject. Revoked and
// expired tokens report not-found rather than an error.
func (s *JWTSessionStore) UserIDFromToken(token string) (string, bool, error) {
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return s.secret, nil
	},
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return "", false, nil
	}
	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", false, nil
	}
	if s.revoker != nil {
		revoked, err := s.revoker.IsRevoked(claims.ID)
		if err != nil {
			return "", false, fmt.Errorf("check revocation: %w", err)
		}
		if revoked {
			return "", false, nil
		}
	}
	return claims.Subject, true, nil
}

// DeleteSession revokes a token for its remaining lifetime.
func (s *JWTSessionStore) DeleteSession(token string) error {
	if s.revoker == nil {
		return nil
	}
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		// Invalid or already expired tokens need no revocation entry.
		return nil
	}
	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.ExpiresAt == nil {
		return nil
	}
	remaining := time.Until(claims.ExpiresAt.Time)
	if remaining <= 0 {
		return nil
	}
	return s.revoker.Revoke(claims.ID, remaining)
}
