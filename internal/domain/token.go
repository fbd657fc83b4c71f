package domain

import (
	"time"
)

// RefreshToken is a long-lived opaque credential bound to a user and the
// device it was issued to. Revoked tokens are kept, never deleted.
type RefreshToken struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	Token     string     `json:"-"`
	ExpiresAt time.Time  `json:"expires_at"`
	Revoked   bool       `json:"revoked"`
	RevokedAt *time.Time `json:"revoked_at"`
	IP        string     `json:"ip"`
	UserAgent string     `json:"user_agent"`
	CreatedAt time.Time  `json:"created_at"`
}

// Expired reports whether the token is past its expiry
func (t *RefreshToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// Usable reports whether the token may still mint access tokens
func (t *RefreshToken) Usable(now time.Time) bool {
	return !t.Revoked && now.Before(t.ExpiresAt)
}

// TokenPurpose identifies what a single-use email token confirms
type TokenPurpose string

const (
	PurposeEmailVerification TokenPurpose = "EMAIL_VERIFICATION"
	PurposePasswordReset     TokenPurpose = "PASSWORD_RESET"
	PurposeEmailChange       TokenPurpose = "EMAIL_CHANGE_CONFIRMATION"
)

// EmailToken is an opaque single-use credential for out-of-band
// confirmation. A nil UsedAt means the token is still unredeemed.
type EmailToken struct {
	ID        string       `json:"id"`
	UserID    string       `json:"user_id"`
	Token     string       `json:"-"`
	Purpose   TokenPurpose `json:"purpose"`
	ExpiresAt time.Time    `json:"expires_at"`
	UsedAt    *time.Time   `json:"used_at"`
	CreatedAt time.Time    `json:"created_at"`
}

// Expired reports whether the token is past its expiry
func (t *EmailToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// Used reports whether the token has already been redeemed
func (t *EmailToken) Used() bool {
	return t.UsedAt != nil
}

// Valid reports whether the token can still be redeemed
func (t *EmailToken) Valid(now time.Time) bool {
	return !t.Used() && now.Before(t.ExpiresAt)
}
