package domain

import (
	"time"
)

// AccountStatus represents the lifecycle state of a user account
type AccountStatus string

const (
	StatusPendingVerification AccountStatus = "PENDING_VERIFICATION"
	StatusActive              AccountStatus = "ACTIVE"
	StatusInactive            AccountStatus = "INACTIVE"
	StatusSuspended           AccountStatus = "SUSPENDED"
	StatusClosed              AccountStatus = "CLOSED"
)

// RoleName is drawn from a fixed enumeration
type RoleName string

const (
	RoleUser    RoleName = "USER"
	RoleAdmin   RoleName = "ADMIN"
	RoleManager RoleName = "MANAGER"
	RoleAuditor RoleName = "AUDITOR"
)

// Role represents a named role with a human-readable description.
// Roles are immutable once created and seeded lazily on first use.
type Role struct {
	ID          string   `json:"id"`
	Name        RoleName `json:"name"`
	Description string   `json:"description"`
}

// User represents a user identity record
type User struct {
	ID             string        `json:"id"`
	Username       string        `json:"username"`
	Email          string        `json:"email"`
	PasswordHash   string        `json:"-"` // Never serialize password
	FirstName      string        `json:"first_name"`
	LastName       string        `json:"last_name"`
	Status         AccountStatus `json:"status"`
	EmailVerified  bool          `json:"email_verified"`
	PhoneVerified  bool          `json:"phone_verified"`
	Locked         bool          `json:"-"`
	LockedUntil    *time.Time    `json:"-"`
	FailedAttempts int           `json:"-"`
	Roles          []Role        `json:"roles"`
	LastLoginAt    *time.Time    `json:"last_login_at"`
	LastLoginIP    string        `json:"-"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// RoleNames returns the role names as plain strings
func (u *User) RoleNames() []string {
	names := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		names = append(names, string(r.Name))
	}
	return names
}

// IsLocked reports whether the account is locked at the given instant.
// A lock whose lockedUntil has passed no longer counts as locked.
func (u *User) IsLocked(now time.Time) bool {
	if !u.Locked {
		return false
	}
	if u.LockedUntil != nil && now.After(*u.LockedUntil) {
		return false
	}
	return true
}

// LockExpired reports whether a stale lock should be cleared on read
func (u *User) LockExpired(now time.Time) bool {
	return u.Locked && u.LockedUntil != nil && now.After(*u.LockedUntil)
}

// RecordFailedLogin increments the failed-attempt counter and engages the
// lock once the counter reaches threshold. Returns true if this attempt
// tripped the lock.
func (u *User) RecordFailedLogin(threshold int, lockDuration time.Duration, now time.Time) bool {
	u.FailedAttempts++
	if u.FailedAttempts >= threshold {
		until := now.Add(lockDuration)
		u.Locked = true
		u.LockedUntil = &until
		return true
	}
	return false
}

// ResetFailedLogins clears the lockout state. Called on successful login
// and on read-time detection of an expired lock.
func (u *User) ResetFailedLogins() {
	u.FailedAttempts = 0
	u.Locked = false
	u.LockedUntil = nil
}

// RecordLogin updates last-login metadata after a successful credential check
func (u *User) RecordLogin(ip string, now time.Time) {
	u.LastLoginAt = &now
	u.LastLoginIP = ip
}

// CanAuthenticate reports whether the account status permits issuing
// credentials. Pending accounts may hold tokens but cannot log in until
// verified; that check lives with the caller.
func (u *User) CanAuthenticate() bool {
	switch u.Status {
	case StatusActive, StatusPendingVerification:
		return true
	default:
		return false
	}
}
