package domain

import (
	"time"
)

// TokenType distinguishes access tokens from anything else that might be
// presented as a bearer credential
const TokenTypeAccess = "ACCESS"

// Claims represents the verified contents of an access token
type Claims struct {
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Roles     []string  `json:"roles"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Identity is the authenticated principal seen by downstream code. It is
// satisfied both by a freshly loaded user record and by verified token
// claims, so callers never care which source produced it.
type Identity interface {
	ID() string
	Username() string
	Email() string
	Roles() []string
	Enabled() bool
	LockedAt(now time.Time) bool
}

type userIdentity struct {
	user *User
}

// IdentityFromUser builds an Identity backed by a stored user record
func IdentityFromUser(u *User) Identity {
	return &userIdentity{user: u}
}

func (i *userIdentity) ID() string       { return i.user.ID }
func (i *userIdentity) Username() string { return i.user.Username }
func (i *userIdentity) Email() string    { return i.user.Email }
func (i *userIdentity) Roles() []string  { return i.user.RoleNames() }
func (i *userIdentity) Enabled() bool    { return i.user.Status == StatusActive }

func (i *userIdentity) LockedAt(now time.Time) bool { return i.user.IsLocked(now) }

type claimsIdentity struct {
	claims *Claims
}

// IdentityFromClaims builds an Identity backed by verified token claims.
// Claims carry no lockout state; a token that verified is treated as an
// enabled, unlocked principal for its remaining lifetime.
func IdentityFromClaims(c *Claims) Identity {
	return &claimsIdentity{claims: c}
}

func (i *claimsIdentity) ID() string       { return i.claims.UserID }
func (i *claimsIdentity) Username() string { return i.claims.Username }
func (i *claimsIdentity) Email() string    { return i.claims.Email }
func (i *claimsIdentity) Roles() []string  { return i.claims.Roles }
func (i *claimsIdentity) Enabled() bool    { return true }

func (i *claimsIdentity) LockedAt(now time.Time) bool { return false }
