package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const sessionIssuer = "go-panel-backend"

var ErrInvalidSessionToken = errors.New("invalid client session token")

// SessionTokens issues and verifies the HS256 tokens that carry a client
// slot id in the client_session cookie.
type SessionTokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewSessionTokens(secret string, ttl time.Duration) *SessionTokens {
	return &SessionTokens{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// TTL is the lifetime of issued tokens.
func (s *SessionTokens) TTL() time.Duration {
	return s.ttl
}

// Issue creates a token for a fresh slot id.
func (s *SessionTokens) Issue() (token, sid string, err error) {
	sid = uuid.NewString()
	now := s.now()
	claims := jwt.RegisteredClaims{
		ID:        sid,
		Issuer:    sessionIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", "", fmt.Errorf("sign client session: %w", err)
	}
	return token, sid, nil
}

// Parse returns the slot id of a valid token.
func (s *SessionTokens) Parse(token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithIssuer(sessionIssuer),
		jwt.WithTimeFunc(s.now),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil || !parsed.Valid || claims.ID == "" {
		return "", ErrInvalidSessionToken
	}
	return claims.ID, nil
}
