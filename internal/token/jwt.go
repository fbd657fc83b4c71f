package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/LastCoderBoy/finice-auth/internal/domain"
)

var (
	ErrExpired     = errors.New("access token expired")
	ErrMalformed   = errors.New("access token malformed")
	ErrUnsupported = errors.New("access token uses an unsupported algorithm")
)

// Config holds access-token signing parameters
type Config struct {
	Secret string
	TTL    time.Duration
	Issuer string
}

type accessClaims struct {
	UserID    string   `json:"user_id"`
	Email     string   `json:"email"`
	Roles     []string `json:"roles"`
	TokenType string   `json:"token_type"`
	jwt.RegisteredClaims
}

// Codec creates and verifies signed access tokens. Tokens are
// self-contained so verification never needs a store round-trip.
type Codec struct {
	secret []byte
	ttl    time.Duration
	issuer string
}

// NewCodec creates a Codec from config
func NewCodec(cfg *Config) *Codec {
	ttl := cfg.TTL
	if ttl == 0 {
		ttl = 15 * time.Minute
	}
	return &Codec{
		secret: []byte(cfg.Secret),
		ttl:    ttl,
		issuer: cfg.Issuer,
	}
}

// TTL returns the configured access-token lifetime
func (c *Codec) TTL() time.Duration {
	return c.ttl
}

// Issue signs a new access token for the user. Returns the token string
// and its expiry instant.
func (c *Codec) Issue(user *domain.User) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(c.ttl)

	claims := &accessClaims{
		UserID:    user.ID,
		Email:     user.Email,
		Roles:     user.RoleNames(),
		TokenType: domain.TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Username,
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify checks signature and expiry and returns the embedded claims.
// Failures are classified as expired, malformed, or unsupported; callers
// present all three as the same generic rejection.
func (c *Codec) Verify(tokenString string) (*domain.Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &accessClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrUnsupported
		}
		return c.secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpired
		case errors.Is(err, ErrUnsupported):
			return nil, ErrUnsupported
		default:
			return nil, ErrMalformed
		}
	}

	claims, ok := parsed.Claims.(*accessClaims)
	if !ok || !parsed.Valid {
		return nil, ErrMalformed
	}
	if claims.TokenType != domain.TokenTypeAccess {
		return nil, ErrMalformed
	}

	var expiresAt time.Time
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}

	return &domain.Claims{
		UserID:    claims.UserID,
		Username:  claims.Subject,
		Email:     claims.Email,
		Roles:     claims.Roles,
		TokenType: claims.TokenType,
		ExpiresAt: expiresAt,
	}, nil
}

// RemainingLifetime returns how long the claims stay valid from now.
// Non-positive means the token has already expired.
func (c *Codec) RemainingLifetime(claims *domain.Claims, now time.Time) time.Duration {
	return claims.ExpiresAt.Sub(now)
}
