package repository

import (
	"context"

	"github.com/LastCoderBoy/finice-auth/internal/domain"
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user with its role memberships
	Create(ctx context.Context, user *domain.User) error
	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, id string) (*domain.User, error)
	// GetByUsernameOrEmail retrieves a user matching either the username
	// or the email address
	GetByUsernameOrEmail(ctx context.Context, login string) (*domain.User, error)
	// GetByEmail retrieves a user by email
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	// ExistsByUsername checks if a user exists with the given username
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	// ExistsByEmail checks if a user exists with the given email
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	// Update persists user mutations (status, lockout state, password hash,
	// profile fields, last-login metadata)
	Update(ctx context.Context, user *domain.User) error
	// EnsureRole returns the role with the given name, creating it with the
	// description on first use
	EnsureRole(ctx context.Context, name domain.RoleName, description string) (*domain.Role, error)
}

// RefreshTokenRepository defines the interface for refresh token data access
type RefreshTokenRepository interface {
	// Create persists a new refresh token
	Create(ctx context.Context, token *domain.RefreshToken) error
	// GetByToken retrieves a refresh token by its opaque value
	GetByToken(ctx context.Context, token string) (*domain.RefreshToken, error)
	// Rotate atomically revokes the old token and persists its successor
	// in one transaction. Returns false if the old token was no longer
	// active, in which case the successor is not created.
	Rotate(ctx context.Context, oldToken string, successor *domain.RefreshToken) (bool, error)
	// Revoke marks a single token revoked. Revoking an absent or
	// already-revoked token is not an error.
	Revoke(ctx context.Context, token string) error
	// RevokeAllForUser marks every active token of the user revoked and
	// returns how many were affected
	RevokeAllForUser(ctx context.Context, userID string) (int64, error)
}

// EmailTokenRepository defines the interface for single-use token data access
type EmailTokenRepository interface {
	// Issue marks all unused tokens of the same (user, purpose) pair used
	// and persists the new token, in one transaction
	Issue(ctx context.Context, token *domain.EmailToken) error
	// GetByToken retrieves a token by value and purpose
	GetByToken(ctx context.Context, token string, purpose domain.TokenPurpose) (*domain.EmailToken, error)
	// Redeem atomically marks an unused, unexpired token used. Returns the
	// redeemed token, or nil if no such token was redeemable.
	Redeem(ctx context.Context, token string, purpose domain.TokenPurpose) (*domain.EmailToken, error)
}
