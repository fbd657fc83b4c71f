package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/LastCoderBoy/finice-auth/internal/domain"
	"github.com/LastCoderBoy/finice-auth/internal/repository"
	"github.com/LastCoderBoy/finice-auth/pkg/telemetry"
)

// EmailTokenService issues and redeems single-use email tokens
type EmailTokenService interface {
	// Issue creates a new token for the user, invalidating any prior
	// unused token of the same purpose
	Issue(ctx context.Context, user *domain.User, purpose domain.TokenPurpose) (*domain.EmailToken, error)
	// Redeem consumes a token exactly once and returns it
	Redeem(ctx context.Context, tokenValue string, purpose domain.TokenPurpose) (*domain.EmailToken, error)
}

// EmailTokenConfig holds per-purpose expiry policy
type EmailTokenConfig struct {
	VerificationTTL  time.Duration
	PasswordResetTTL time.Duration
}

type emailTokenService struct {
	repo   repository.EmailTokenRepository
	config *EmailTokenConfig
}

// NewEmailTokenService creates a new EmailTokenService
func NewEmailTokenService(repo repository.EmailTokenRepository, config *EmailTokenConfig) EmailTokenService {
	if config == nil {
		config = &EmailTokenConfig{}
	}
	if config.VerificationTTL == 0 {
		config.VerificationTTL = 15 * time.Minute
	}
	if config.PasswordResetTTL == 0 {
		config.PasswordResetTTL = 10 * time.Minute
	}
	return &emailTokenService{repo: repo, config: config}
}

func (s *emailTokenService) ttlFor(purpose domain.TokenPurpose) time.Duration {
	if purpose == domain.PurposePasswordReset {
		return s.config.PasswordResetTTL
	}
	return s.config.VerificationTTL
}

// Issue creates a new token, enforcing one active token per (user, purpose)
func (s *emailTokenService) Issue(ctx context.Context, user *domain.User, purpose domain.TokenPurpose) (*domain.EmailToken, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.email_token.issue")
	defer span.End()

	span.SetAttributes(
		attribute.String("user_id", user.ID),
		attribute.String("purpose", string(purpose)),
	)

	value, err := generateOpaqueToken()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	now := time.Now()
	token := &domain.EmailToken{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		Token:     value,
		Purpose:   purpose,
		ExpiresAt: now.Add(s.ttlFor(purpose)),
		CreatedAt: now,
	}

	if err := s.repo.Issue(ctx, token); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	return token, nil
}

// Redeem consumes a token exactly once. A failed redemption is
// classified after the fact: NotFound, AlreadyUsed, or Expired.
func (s *emailTokenService) Redeem(ctx context.Context, tokenValue string, purpose domain.TokenPurpose) (*domain.EmailToken, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.email_token.redeem")
	defer span.End()

	span.SetAttributes(attribute.String("purpose", string(purpose)))

	token, err := s.repo.Redeem(ctx, tokenValue, purpose)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if token != nil {
		span.SetAttributes(attribute.String("user_id", token.UserID))
		span.SetStatus(codes.Ok, "")
		return token, nil
	}

	// The atomic redeem claimed nothing; classify why
	existing, err := s.repo.GetByToken(ctx, tokenValue, purpose)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	switch {
	case existing == nil:
		span.SetStatus(codes.Error, "token not found")
		return nil, ErrResourceNotFound
	case existing.Used():
		span.SetStatus(codes.Error, "token already used")
		return nil, ErrTokenAlreadyUsed
	default:
		span.SetStatus(codes.Error, "token expired")
		return nil, ErrTokenExpired
	}
}
