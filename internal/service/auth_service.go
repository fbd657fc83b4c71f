package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/LastCoderBoy/finice-auth/internal/cache"
	"github.com/LastCoderBoy/finice-auth/internal/domain"
	"github.com/LastCoderBoy/finice-auth/internal/dto"
	"github.com/LastCoderBoy/finice-auth/internal/repository"
	"github.com/LastCoderBoy/finice-auth/internal/token"
	"github.com/LastCoderBoy/finice-auth/pkg/logger"
	"github.com/LastCoderBoy/finice-auth/pkg/telemetry"
)

// TaskSubmitter enqueues fire-and-forget background work
type TaskSubmitter interface {
	Submit(name string, fn func(ctx context.Context) error)
}

// AuthServiceConfig holds authentication policy
type AuthServiceConfig struct {
	LockoutThreshold int
	LockoutDuration  time.Duration
	BcryptCost       int
}

// AuthService orchestrates the authentication flows
type AuthService interface {
	// Register creates a new account and issues its first credential pair
	Register(ctx context.Context, req *dto.RegisterRequest, ip, userAgent string) (*dto.AuthResponse, *domain.RefreshToken, error)
	// Login authenticates a user and issues a fresh credential pair
	Login(ctx context.Context, req *dto.LoginRequest, ip, userAgent string) (*dto.AuthResponse, *domain.RefreshToken, error)
	// Refresh rotates the refresh token and mints a new access token
	Refresh(ctx context.Context, refreshToken, ip, userAgent string) (*dto.AuthResponse, *domain.RefreshToken, error)
	// Logout revokes the refresh token and blacklists the access token.
	// Best-effort and idempotent; never fails the caller.
	Logout(ctx context.Context, refreshToken, accessToken string)
	// VerifyAccess verifies an access token and checks the blacklist
	VerifyAccess(ctx context.Context, accessToken string) (*domain.Claims, error)
	// ChangePassword replaces the password and revokes all sessions
	ChangePassword(ctx context.Context, userID string, req *dto.ChangePasswordRequest) error
	// GetProfile returns the user's profile
	GetProfile(ctx context.Context, userID string) (*dto.UserResponse, error)
	// UpdateProfile updates profile fields
	UpdateProfile(ctx context.Context, userID string, req *dto.UpdateProfileRequest) (*dto.UserResponse, error)
	// VerifyEmail redeems a verification token and activates the account
	VerifyEmail(ctx context.Context, tokenValue string) error
	// ResendVerification issues a fresh verification token and email
	ResendVerification(ctx context.Context, email string) error
	// ForgotPassword issues a password-reset token and email. Always
	// succeeds from the caller's perspective to avoid account enumeration.
	ForgotPassword(ctx context.Context, email string) error
	// ResetPassword redeems a reset token and replaces the password
	ResetPassword(ctx context.Context, req *dto.ResetPasswordRequest) error
}

type authService struct {
	users         repository.UserRepository
	refreshTokens RefreshTokenService
	emailTokens   EmailTokenService
	emails        *EmailService
	codec         *token.Codec
	blacklist     *cache.RevocationCache
	tasks         TaskSubmitter
	config        *AuthServiceConfig
	log           *logger.Logger
}

// NewAuthService creates a new AuthService
func NewAuthService(
	users repository.UserRepository,
	refreshTokens RefreshTokenService,
	emailTokens EmailTokenService,
	emails *EmailService,
	codec *token.Codec,
	blacklist *cache.RevocationCache,
	tasks TaskSubmitter,
	config *AuthServiceConfig,
) AuthService {
	if config.LockoutThreshold == 0 {
		config.LockoutThreshold = 5
	}
	if config.LockoutDuration == 0 {
		config.LockoutDuration = 30 * time.Minute
	}
	if config.BcryptCost == 0 {
		config.BcryptCost = bcrypt.DefaultCost
	}
	return &authService{
		users:         users,
		refreshTokens: refreshTokens,
		emailTokens:   emailTokens,
		emails:        emails,
		codec:         codec,
		blacklist:     blacklist,
		tasks:         tasks,
		config:        config,
		log:           logger.Get(),
	}
}

// Register creates a new account in PENDING_VERIFICATION status with the
// default role and issues its first credential pair. Verification email
// dispatch happens in the background.
func (s *authService) Register(ctx context.Context, req *dto.RegisterRequest, ip, userAgent string) (*dto.AuthResponse, *domain.RefreshToken, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.auth.register")
	defer span.End()

	span.SetAttributes(attribute.String("username", req.Username))

	exists, err := s.users.ExistsByUsername(ctx, req.Username)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, nil, err
	}
	if exists {
		span.SetStatus(codes.Error, "username taken")
		return nil, nil, fmt.Errorf("%w: username already taken", ErrDuplicateResource)
	}

	exists, err = s.users.ExistsByEmail(ctx, req.Email)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, nil, err
	}
	if exists {
		span.SetStatus(codes.Error, "email taken")
		return nil, nil, fmt.Errorf("%w: email already registered", ErrDuplicateResource)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.config.BcryptCost)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, nil, err
	}

	defaultRole, err := s.users.EnsureRole(ctx, domain.RoleUser, "Standard user")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, nil, err
	}

	now := time.Now()
	user := &domain.User{
		ID:           uuid.New().String(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hashed),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Status:       domain.StatusPendingVerification,
		Roles:        []domain.Role{*defaultRole},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, nil, err
	}

	resp, refresh, err := s.issueCredentials(ctx, user, ip, userAgent)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, nil, err
	}

	s.dispatchVerification(user)

	span.SetAttributes(attribute.String("user_id", user.ID))
	span.SetStatus(codes.Ok, "")
	return resp, refresh, nil
}

// dispatchVerification issues a verification token and sends the email in
// the background. Failures are logged, never surfaced.
func (s *authService) dispatchVerification(user *domain.User) {
	email := user.Email
	s.tasks.Submit("send-verification-email", func(ctx context.Context) error {
		emailToken, err := s.emailTokens.Issue(ctx, user, domain.PurposeEmailVerification)
		if err != nil {
			return fmt.Errorf("failed to issue verification token: %w", err)
		}
		return s.emails.SendVerification(ctx, email, emailToken.Token)
	})
}

// Login authenticates against the stored credentials and enforces the
// lockout state machine. Lock expiry is evaluated lazily here: a stale
// lock found on read is cleared before the credential check.
func (s *authService) Login(ctx context.Context, req *dto.LoginRequest, ip, userAgent string) (*dto.AuthResponse, *domain.RefreshToken, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.auth.login")
	defer span.End()

	now := time.Now()

	user, err := s.users.GetByUsernameOrEmail(ctx, req.Login)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, nil, err
	}
	if user == nil {
		span.SetStatus(codes.Error, "unknown login")
		return nil, nil, ErrBadCredentials
	}

	span.SetAttributes(attribute.String("user_id", user.ID))

	if user.LockExpired(now) {
		user.ResetFailedLogins()
		if err := s.users.Update(ctx, user); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, nil, err
		}
	}

	if user.IsLocked(now) {
		span.SetStatus(codes.Error, "account locked")
		return nil, nil, ErrAccountLocked
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		span.SetStatus(codes.Error, "bad credentials")
		return nil, nil, s.recordFailedAttempt(ctx, user, now)
	}

	if !user.CanAuthenticate() {
		span.SetStatus(codes.Error, "account disabled")
		return nil, nil, ErrAccountLocked
	}
	if user.Status == domain.StatusPendingVerification || !user.EmailVerified {
		span.SetStatus(codes.Error, "account not verified")
		return nil, nil, ErrAccountNotVerified
	}

	user.ResetFailedLogins()
	user.RecordLogin(ip, now)
	if err := s.users.Update(ctx, user); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, nil, err
	}

	resp, refresh, err := s.issueCredentials(ctx, user, ip, userAgent)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, nil, err
	}

	span.SetStatus(codes.Ok, "")
	return resp, refresh, nil
}

// recordFailedAttempt increments the lockout counter and persists it.
// The attempt itself always reads as bad credentials; the lock engages
// silently and only surfaces as AccountLocked on the next attempt.
func (s *authService) recordFailedAttempt(ctx context.Context, user *domain.User, now time.Time) error {
	tripped := user.RecordFailedLogin(s.config.LockoutThreshold, s.config.LockoutDuration, now)
	if err := s.users.Update(ctx, user); err != nil {
		return err
	}
	if tripped {
		return fmt.Errorf("%w: account locked after %d failed attempts", ErrBadCredentials, user.FailedAttempts)
	}
	if user.FailedAttempts == s.config.LockoutThreshold-1 {
		return fmt.Errorf("%w: %d failed attempts, the account locks on the next failure", ErrBadCredentials, user.FailedAttempts)
	}
	return ErrBadCredentials
}

// issueCredentials mints an access token and a refresh token for the user
func (s *authService) issueCredentials(ctx context.Context, user *domain.User, ip, userAgent string) (*dto.AuthResponse, *domain.RefreshToken, error) {
	accessToken, expiresAt, err := s.codec.Issue(user)
	if err != nil {
		return nil, nil, err
	}

	refresh, err := s.refreshTokens.Create(ctx, user, ip, userAgent)
	if err != nil {
		return nil, nil, err
	}

	return &dto.AuthResponse{
		AccessToken: accessToken,
		ExpiresIn:   int64(time.Until(expiresAt).Seconds()),
		User:        toUserResponse(user),
	}, refresh, nil
}

// Refresh rotates the presented refresh token and mints a new access
// token. The owning account is re-validated: a since-suspended or locked
// account cannot refresh even with a technically valid token.
func (s *authService) Refresh(ctx context.Context, refreshToken, ip, userAgent string) (*dto.AuthResponse, *domain.RefreshToken, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.auth.refresh")
	defer span.End()

	if refreshToken == "" {
		span.SetStatus(codes.Error, "missing refresh token")
		return nil, nil, ErrResourceNotFound
	}

	current, err := s.refreshTokens.Verify(ctx, refreshToken)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, nil, err
	}

	span.SetAttributes(attribute.String("user_id", current.UserID))

	user, err := s.users.GetByID(ctx, current.UserID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, nil, err
	}
	if user == nil {
		span.SetStatus(codes.Error, "user not found")
		return nil, nil, ErrResourceNotFound
	}

	now := time.Now()
	if user.LockExpired(now) {
		user.ResetFailedLogins()
	}
	if user.IsLocked(now) || !user.CanAuthenticate() {
		span.SetStatus(codes.Error, "account disabled or locked")
		return nil, nil, ErrAccountLocked
	}

	rotated, err := s.refreshTokens.Rotate(ctx, current, ip, userAgent)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, nil, err
	}

	// Only the winner of the rotation race records the login, so a
	// replayed token cannot overwrite the last-login metadata.
	user.RecordLogin(ip, now)
	if err := s.users.Update(ctx, user); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, nil, err
	}

	accessToken, expiresAt, err := s.codec.Issue(user)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, nil, err
	}

	span.SetStatus(codes.Ok, "")
	return &dto.AuthResponse{
		AccessToken: accessToken,
		ExpiresIn:   int64(time.Until(expiresAt).Seconds()),
		User:        toUserResponse(user),
	}, rotated, nil
}

// Logout revokes the refresh token and blacklists the access token for
// its remaining lifetime. Both steps are best-effort: the caller always
// gets its cookie cleared regardless of what happens here.
func (s *authService) Logout(ctx context.Context, refreshToken, accessToken string) {
	ctx, span := telemetry.StartSpan(ctx, "service.auth.logout")
	defer span.End()

	if refreshToken != "" {
		if err := s.refreshTokens.Revoke(ctx, refreshToken); err != nil {
			s.log.Warn("Failed to revoke refresh token on logout", zap.Error(err))
		}
	}

	if accessToken != "" {
		claims, err := s.codec.Verify(accessToken)
		if err == nil {
			ttl := s.codec.RemainingLifetime(claims, time.Now())
			if err := s.blacklist.Blacklist(ctx, accessToken, ttl); err != nil {
				s.log.Warn("Failed to blacklist access token on logout", zap.Error(err))
			}
		}
	}

	span.SetStatus(codes.Ok, "")
}

// VerifyAccess verifies an access token and checks the blacklist. All
// verification failures map to the same pair of generic rejections.
func (s *authService) VerifyAccess(ctx context.Context, accessToken string) (*domain.Claims, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.auth.verify_access")
	defer span.End()

	claims, err := s.codec.Verify(accessToken)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		if errors.Is(err, token.ErrExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	if s.blacklist.IsBlacklisted(ctx, accessToken) {
		span.SetStatus(codes.Error, "token blacklisted")
		return nil, ErrTokenRevoked
	}

	span.SetAttributes(attribute.String("user_id", claims.UserID))
	span.SetStatus(codes.Ok, "")
	return claims, nil
}

// ChangePassword verifies the current password, persists the new hash,
// and asynchronously revokes every refresh token of the user so all
// other devices must log in again.
func (s *authService) ChangePassword(ctx context.Context, userID string, req *dto.ChangePasswordRequest) error {
	ctx, span := telemetry.StartSpan(ctx, "service.auth.change_password")
	defer span.End()

	span.SetAttributes(attribute.String("user_id", userID))

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	if user == nil {
		span.SetStatus(codes.Error, "user not found")
		return ErrResourceNotFound
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		span.SetStatus(codes.Error, "bad current password")
		return ErrBadCredentials
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), s.config.BcryptCost)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	user.PasswordHash = string(hashed)

	if err := s.users.Update(ctx, user); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	s.revokeAllSessionsAsync(userID)

	span.SetStatus(codes.Ok, "")
	return nil
}

// revokeAllSessionsAsync bulk-revokes the user's refresh tokens in the
// background. The triggering action already succeeded, so failures are
// logged only.
func (s *authService) revokeAllSessionsAsync(userID string) {
	s.tasks.Submit("revoke-all-refresh-tokens", func(ctx context.Context) error {
		revoked, err := s.refreshTokens.RevokeAllForUser(ctx, userID)
		if err != nil {
			return err
		}
		s.log.Info("Revoked all refresh tokens",
			zap.String("user_id", userID),
			zap.Int64("revoked", revoked),
		)
		return nil
	})
}

// GetProfile returns the user's profile
func (s *authService) GetProfile(ctx context.Context, userID string) (*dto.UserResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.auth.get_profile")
	defer span.End()

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if user == nil {
		span.SetStatus(codes.Error, "user not found")
		return nil, ErrResourceNotFound
	}

	span.SetStatus(codes.Ok, "")
	resp := toUserResponse(user)
	return &resp, nil
}

// UpdateProfile updates profile fields
func (s *authService) UpdateProfile(ctx context.Context, userID string, req *dto.UpdateProfileRequest) (*dto.UserResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.auth.update_profile")
	defer span.End()

	span.SetAttributes(attribute.String("user_id", userID))

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if user == nil {
		span.SetStatus(codes.Error, "user not found")
		return nil, ErrResourceNotFound
	}

	if req.Username != "" && req.Username != user.Username {
		taken, err := s.users.ExistsByUsername(ctx, req.Username)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		if taken {
			span.SetStatus(codes.Error, "username taken")
			return nil, fmt.Errorf("%w: username already in use", ErrDuplicateResource)
		}
		user.Username = req.Username
	}
	if req.FirstName != "" {
		user.FirstName = req.FirstName
	}
	if req.LastName != "" {
		user.LastName = req.LastName
	}

	if err := s.users.Update(ctx, user); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	resp := toUserResponse(user)
	return &resp, nil
}

// VerifyEmail redeems a verification token and activates the account
func (s *authService) VerifyEmail(ctx context.Context, tokenValue string) error {
	ctx, span := telemetry.StartSpan(ctx, "service.auth.verify_email")
	defer span.End()

	redeemed, err := s.emailTokens.Redeem(ctx, tokenValue, domain.PurposeEmailVerification)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	user, err := s.users.GetByID(ctx, redeemed.UserID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	if user == nil {
		span.SetStatus(codes.Error, "user not found")
		return ErrResourceNotFound
	}

	user.EmailVerified = true
	if user.Status == domain.StatusPendingVerification {
		user.Status = domain.StatusActive
	}
	if err := s.users.Update(ctx, user); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	span.SetAttributes(attribute.String("user_id", user.ID))
	span.SetStatus(codes.Ok, "")
	return nil
}

// ResendVerification issues a fresh verification token, invalidating any
// prior one, and dispatches the email in the background
func (s *authService) ResendVerification(ctx context.Context, email string) error {
	ctx, span := telemetry.StartSpan(ctx, "service.auth.resend_verification")
	defer span.End()

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	if user == nil {
		span.SetStatus(codes.Error, "user not found")
		return ErrResourceNotFound
	}
	if user.EmailVerified {
		span.SetStatus(codes.Error, "already verified")
		return fmt.Errorf("%w: email already verified", ErrValidation)
	}

	s.dispatchVerification(user)

	span.SetStatus(codes.Ok, "")
	return nil
}

// ForgotPassword issues a password-reset token and email. An unknown
// email is reported as success so the endpoint cannot be used to probe
// which addresses have accounts.
func (s *authService) ForgotPassword(ctx context.Context, email string) error {
	ctx, span := telemetry.StartSpan(ctx, "service.auth.forgot_password")
	defer span.End()

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	if user == nil {
		s.log.Info("Password reset requested for unknown email")
		span.SetStatus(codes.Ok, "")
		return nil
	}

	target := user.Email
	s.tasks.Submit("send-password-reset-email", func(ctx context.Context) error {
		resetToken, err := s.emailTokens.Issue(ctx, user, domain.PurposePasswordReset)
		if err != nil {
			return fmt.Errorf("failed to issue reset token: %w", err)
		}
		return s.emails.SendPasswordReset(ctx, target, resetToken.Token)
	})

	span.SetStatus(codes.Ok, "")
	return nil
}

// ResetPassword redeems a reset token, replaces the password, and
// asynchronously revokes every refresh token of the user
func (s *authService) ResetPassword(ctx context.Context, req *dto.ResetPasswordRequest) error {
	ctx, span := telemetry.StartSpan(ctx, "service.auth.reset_password")
	defer span.End()

	redeemed, err := s.emailTokens.Redeem(ctx, req.Token, domain.PurposePasswordReset)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	user, err := s.users.GetByID(ctx, redeemed.UserID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	if user == nil {
		span.SetStatus(codes.Error, "user not found")
		return ErrResourceNotFound
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), s.config.BcryptCost)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	user.PasswordHash = string(hashed)
	user.ResetFailedLogins()

	if err := s.users.Update(ctx, user); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	s.revokeAllSessionsAsync(user.ID)

	span.SetAttributes(attribute.String("user_id", user.ID))
	span.SetStatus(codes.Ok, "")
	return nil
}

// toUserResponse converts User to UserResponse
func toUserResponse(user *domain.User) dto.UserResponse {
	resp := dto.UserResponse{
		ID:            user.ID,
		Username:      user.Username,
		Email:         user.Email,
		FirstName:     user.FirstName,
		LastName:      user.LastName,
		Status:        string(user.Status),
		Roles:         user.RoleNames(),
		EmailVerified: user.EmailVerified,
		CreatedAt:     user.CreatedAt.Format(time.RFC3339),
	}
	if user.LastLoginAt != nil {
		resp.LastLoginAt = user.LastLoginAt.Format(time.RFC3339)
	}
	return resp
}
