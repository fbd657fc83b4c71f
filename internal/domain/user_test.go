package domain

import (
	"testing"
	"time"
)

func TestUser_RecordFailedLogin_TripsLockAtThreshold(t *testing.T) {
	now := time.Now()
	user := &User{Status: StatusActive}

	for i := 1; i <= 4; i++ {
		locked := user.RecordFailedLogin(5, 30*time.Minute, now)
		if locked {
			t.Fatalf("attempt %d should not lock the account", i)
		}
		if user.FailedAttempts != i {
			t.Errorf("FailedAttempts = %d, want %d", user.FailedAttempts, i)
		}
	}

	locked := user.RecordFailedLogin(5, 30*time.Minute, now)
	if !locked {
		t.Fatal("5th failed attempt should lock the account")
	}
	if !user.Locked {
		t.Error("Locked flag should be set")
	}
	if user.LockedUntil == nil {
		t.Fatal("LockedUntil should be set")
	}
	want := now.Add(30 * time.Minute)
	if !user.LockedUntil.Equal(want) {
		t.Errorf("LockedUntil = %v, want %v", user.LockedUntil, want)
	}
	if !user.IsLocked(now) {
		t.Error("IsLocked should report true while lock is in force")
	}
}

func TestUser_IsLocked_ExpiresLazily(t *testing.T) {
	now := time.Now()
	until := now.Add(30 * time.Minute)
	user := &User{
		Locked:         true,
		LockedUntil:    &until,
		FailedAttempts: 5,
	}

	if !user.IsLocked(now) {
		t.Error("lock should be in force before lockedUntil")
	}
	if user.LockExpired(now) {
		t.Error("lock should not be expired yet")
	}

	later := until.Add(time.Second)
	if user.IsLocked(later) {
		t.Error("lock should no longer be in force after lockedUntil")
	}
	if !user.LockExpired(later) {
		t.Error("LockExpired should report true after lockedUntil")
	}
}

func TestUser_ResetFailedLogins(t *testing.T) {
	until := time.Now().Add(30 * time.Minute)
	user := &User{
		Locked:         true,
		LockedUntil:    &until,
		FailedAttempts: 5,
	}

	user.ResetFailedLogins()

	if user.Locked {
		t.Error("Locked should be cleared")
	}
	if user.LockedUntil != nil {
		t.Error("LockedUntil should be cleared")
	}
	if user.FailedAttempts != 0 {
		t.Errorf("FailedAttempts = %d, want 0", user.FailedAttempts)
	}
}

func TestUser_CanAuthenticate(t *testing.T) {
	cases := []struct {
		status AccountStatus
		want   bool
	}{
		{StatusActive, true},
		{StatusPendingVerification, true},
		{StatusInactive, false},
		{StatusSuspended, false},
		{StatusClosed, false},
	}

	for _, tc := range cases {
		user := &User{Status: tc.status}
		if got := user.CanAuthenticate(); got != tc.want {
			t.Errorf("CanAuthenticate with status %s = %v, want %v", tc.status, got, tc.want)
		}
	}
}

func TestRefreshToken_Usable(t *testing.T) {
	now := time.Now()

	token := &RefreshToken{ExpiresAt: now.Add(time.Hour)}
	if !token.Usable(now) {
		t.Error("unrevoked, unexpired token should be usable")
	}

	token.Revoked = true
	if token.Usable(now) {
		t.Error("revoked token should not be usable")
	}

	token = &RefreshToken{ExpiresAt: now.Add(-time.Second)}
	if token.Usable(now) {
		t.Error("expired token should not be usable")
	}
	if !token.Expired(now) {
		t.Error("Expired should report true past expiry")
	}
}

func TestEmailToken_Valid(t *testing.T) {
	now := time.Now()

	token := &EmailToken{Purpose: PurposeEmailVerification, ExpiresAt: now.Add(15 * time.Minute)}
	if !token.Valid(now) {
		t.Error("unused, unexpired token should be valid")
	}

	usedAt := now
	token.UsedAt = &usedAt
	if token.Valid(now) {
		t.Error("used token should not be valid")
	}
	if !token.Used() {
		t.Error("Used should report true once redeemed")
	}

	token = &EmailToken{Purpose: PurposePasswordReset, ExpiresAt: now.Add(-time.Minute)}
	if token.Valid(now) {
		t.Error("expired token should not be valid")
	}
}

func TestIdentity_FromUserAndClaims(t *testing.T) {
	now := time.Now()
	user := &User{
		ID:       "u1",
		Username: "alice",
		Email:    "alice@x.com",
		Status:   StatusActive,
		Roles:    []Role{{Name: RoleUser}, {Name: RoleAdmin}},
	}

	fromUser := IdentityFromUser(user)
	if fromUser.ID() != "u1" || fromUser.Username() != "alice" || fromUser.Email() != "alice@x.com" {
		t.Error("user-backed identity should expose user fields")
	}
	if !fromUser.Enabled() {
		t.Error("active user should be enabled")
	}
	if fromUser.LockedAt(now) {
		t.Error("unlocked user should not report locked")
	}
	if got := fromUser.Roles(); len(got) != 2 || got[0] != "USER" || got[1] != "ADMIN" {
		t.Errorf("Roles = %v, want [USER ADMIN]", got)
	}

	claims := &Claims{
		UserID:   "u1",
		Username: "alice",
		Email:    "alice@x.com",
		Roles:    []string{"USER"},
	}
	fromClaims := IdentityFromClaims(claims)
	if fromClaims.ID() != fromUser.ID() || fromClaims.Username() != fromUser.Username() {
		t.Error("claims-backed identity should expose the same principal")
	}
	if !fromClaims.Enabled() || fromClaims.LockedAt(now) {
		t.Error("claims-backed identity is always enabled and unlocked")
	}
}
