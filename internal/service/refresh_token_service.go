package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/LastCoderBoy/finice-auth/internal/domain"
	"github.com/LastCoderBoy/finice-auth/internal/repository"
	"github.com/LastCoderBoy/finice-auth/pkg/telemetry"
)

// RefreshTokenService persists, verifies, rotates, and revokes opaque
// refresh tokens
type RefreshTokenService interface {
	// Create issues a new refresh token for the user
	Create(ctx context.Context, user *domain.User, ip, userAgent string) (*domain.RefreshToken, error)
	// Verify looks up the token and checks revocation and expiry
	Verify(ctx context.Context, tokenValue string) (*domain.RefreshToken, error)
	// Rotate revokes the old token and issues its successor atomically
	Rotate(ctx context.Context, old *domain.RefreshToken, ip, userAgent string) (*domain.RefreshToken, error)
	// Revoke invalidates a single token; absent tokens are tolerated
	Revoke(ctx context.Context, tokenValue string) error
	// RevokeAllForUser invalidates every active token of the user
	RevokeAllForUser(ctx context.Context, userID string) (int64, error)
}

type refreshTokenService struct {
	repo repository.RefreshTokenRepository
	ttl  time.Duration
}

// NewRefreshTokenService creates a new RefreshTokenService
func NewRefreshTokenService(repo repository.RefreshTokenRepository, ttl time.Duration) RefreshTokenService {
	if ttl == 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &refreshTokenService{repo: repo, ttl: ttl}
}

// generateOpaqueToken returns 32 bytes of cryptographic randomness,
// URL-safe encoded. Nothing in the value is parseable or forgeable.
func generateOpaqueToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func (s *refreshTokenService) newToken(userID, ip, userAgent string) (*domain.RefreshToken, error) {
	value, err := generateOpaqueToken()
	if err != nil {
		return nil, err
	}
	now := time.Now()
	return &domain.RefreshToken{
		ID:        uuid.New().String(),
		UserID:    userID,
		Token:     value,
		ExpiresAt: now.Add(s.ttl),
		IP:        ip,
		UserAgent: userAgent,
		CreatedAt: now,
	}, nil
}

// Create issues a new refresh token for the user
func (s *refreshTokenService) Create(ctx context.Context, user *domain.User, ip, userAgent string) (*domain.RefreshToken, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.refresh_token.create")
	defer span.End()

	span.SetAttributes(attribute.String("user_id", user.ID))

	token, err := s.newToken(user.ID, ip, userAgent)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if err := s.repo.Create(ctx, token); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	return token, nil
}

// Verify looks up the token and checks revocation and expiry. Revoked
// and expired are distinct failures so callers can tell a replayed
// rotation from an idle session.
func (s *refreshTokenService) Verify(ctx context.Context, tokenValue string) (*domain.RefreshToken, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.refresh_token.verify")
	defer span.End()

	token, err := s.repo.GetByToken(ctx, tokenValue)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if token == nil {
		span.SetStatus(codes.Error, "token not found")
		return nil, ErrResourceNotFound
	}
	if token.Revoked {
		span.SetStatus(codes.Error, "token revoked")
		return nil, ErrTokenRevoked
	}
	if token.Expired(time.Now()) {
		span.SetStatus(codes.Error, "token expired")
		return nil, ErrTokenExpired
	}

	span.SetAttributes(attribute.String("user_id", token.UserID))
	span.SetStatus(codes.Ok, "")
	return token, nil
}

// Rotate revokes the old token and issues its successor in one
// transaction. If another rotation already claimed the old token, the
// caller sees ErrTokenRevoked.
func (s *refreshTokenService) Rotate(ctx context.Context, old *domain.RefreshToken, ip, userAgent string) (*domain.RefreshToken, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.refresh_token.rotate")
	defer span.End()

	span.SetAttributes(attribute.String("user_id", old.UserID))

	successor, err := s.newToken(old.UserID, ip, userAgent)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	rotated, err := s.repo.Rotate(ctx, old.Token, successor)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if !rotated {
		span.SetStatus(codes.Error, "token already rotated")
		return nil, ErrTokenRevoked
	}

	span.SetStatus(codes.Ok, "")
	return successor, nil
}

// Revoke invalidates a single token
func (s *refreshTokenService) Revoke(ctx context.Context, tokenValue string) error {
	ctx, span := telemetry.StartSpan(ctx, "service.refresh_token.revoke")
	defer span.End()

	if err := s.repo.Revoke(ctx, tokenValue); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// RevokeAllForUser invalidates every active token of the user
func (s *refreshTokenService) RevokeAllForUser(ctx context.Context, userID string) (int64, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.refresh_token.revoke_all")
	defer span.End()

	span.SetAttributes(attribute.String("user_id", userID))

	revoked, err := s.repo.RevokeAllForUser(ctx, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}

	span.SetAttributes(attribute.Int64("revoked", revoked))
	span.SetStatus(codes.Ok, "")
	return revoked, nil
}
