package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const DefaultSessionTTL = 7 * 24 * time.Hour

var (
	ErrInvalidToken = errors.New("session token invalid")
	ErrExpiredToken = errors.New("session token expired")
	ErrEmptySecret  = errors.New("session secret can't be empty")
)

// SessionIssuer mints and checks HS256 signed session tokens. The subject of
// every token is the account ID.
type SessionIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

type SessionOption func(*SessionIssuer)

// WithSessionClock overrides the clock used for issuing and validating tokens.
func WithSessionClock(now func() time.Time) SessionOption {
	return func(s *SessionIssuer) {
		if now != nil {
			s.now = now
		}
	}
}

func NewSessionIssuer(secret []byte, ttl time.Duration, opts ...SessionOption) (*SessionIssuer, error) {
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}

	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}

	s := &SessionIssuer{
		secret: secret,
		ttl:    ttl,
		now:    time.Now,
	}

	for _, o := range opts {
		o(s)
	}

	return s, nil
}

func (s *SessionIssuer) TTL() time.Duration {
	return s.ttl
}

// Issue returns a signed token for accountID and the moment it expires.
func (s *SessionIssuer) Issue(accountID string) (string, time.Time, error) {
	if accountID == "" {
		return "", time.Time{}, errors.New("no account ID provided")
	}

	jti, err := gonanoid.New()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to generate token ID, %w", err)
	}

	now := s.now()
	expiresAt := now.Add(s.ttl)

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ID:        jti,
		Subject:   accountID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	})

	signed, err := t.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign session token, %w", err)
	}

	return signed, expiresAt, nil
}

// Verify checks the signature and expiry of token and returns the account ID
// it was issued for.
func (s *SessionIssuer) Verify(token string) (string, error) {
	var claims jwt.RegisteredClaims

	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpiredToken
		}

		return "", ErrInvalidToken
	}

	if claims.Subject == "" {
		return "", ErrInvalidToken
	}

	return claims.Subject, nil
}
