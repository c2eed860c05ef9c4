package application

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ericfisherdev/authgateway/internal/domain/model"
)

// DefaultTokenTTL is the validity window of issued tokens.
const DefaultTokenTTL = time.Hour

// TokenService issues and verifies HS256-signed tokens over arbitrary claim
// sets. It holds no state besides its key, so it is safe for concurrent use.
type TokenService struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

// NewTokenService creates a TokenService signing with key. A non-positive
// ttl falls back to DefaultTokenTTL.
func NewTokenService(key []byte, ttl time.Duration) *TokenService {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{key: key, ttl: ttl, now: time.Now}
}

// WithClock returns a copy of s that reads the current time from now.
func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	clone := *s
	clone.now = now
	return &clone
}

// TTL returns the validity window applied to issued tokens.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Encode signs claims with an exp of now + TTL. A caller-supplied exp is
// overwritten; the input map is not modified.
func (s *TokenService) Encode(claims model.Claims) (string, error) {
	payload := jwt.MapClaims(claims.Clone())
	payload[model.ClaimExpiry] = jwt.NewNumericDate(s.now().Add(s.ttl))

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, payload).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the token's signature and expiry and returns its claims
// without exp. Any failure yields ErrUnauthorized wrapping the cause.
func (s *TokenService) Verify(token string) (model.Claims, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: %w", ErrUnauthorized, jwt.ErrTokenMalformed)
	}

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
		jwt.WithJSONNumber(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}

	out := model.Claims(claims)
	delete(out, model.ClaimExpiry)
	return out, nil
}

// IsExpired reports whether err came from verifying an expired token.
func IsExpired(err error) bool {
	return errors.Is(err, jwt.ErrTokenExpired)
}
