package dto

import (
	"testing"
)

func TestValidatePassword(t *testing.T) {
	cases := []struct {
		name     string
		password string
		ok       bool
	}{
		{"valid short", "Pass1!", true},
		{"valid long", "Str0ng&Password", true},
		{"too short", "Pa1!", false},
		{"no uppercase", "pass1!", false},
		{"no lowercase", "PASS1!", false},
		{"no digit", "Passw!", false},
		{"no special", "Passw1", false},
		{"empty", "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ok, msg := ValidatePassword(tc.password)
			if ok != tc.ok {
				t.Errorf("ValidatePassword(%q) = %v (%s), want %v", tc.password, ok, msg, tc.ok)
			}
			if !ok && msg == "" {
				t.Error("rejection should carry a message")
			}
		})
	}
}

func TestRegisterRequest_ValidateEmail(t *testing.T) {
	cases := []struct {
		email string
		ok    bool
	}{
		{"alice@x.com", true},
		{"first.last+tag@sub.example.co", true},
		{"no-at-sign", false},
		{"missing@tld", false},
		{"@example.com", false},
	}

	for _, tc := range cases {
		req := &RegisterRequest{Email: tc.email}
		ok, _ := req.ValidateEmail()
		if ok != tc.ok {
			t.Errorf("ValidateEmail(%q) = %v, want %v", tc.email, ok, tc.ok)
		}
	}
}

func TestChangePasswordRequest_Validate(t *testing.T) {
	req := &ChangePasswordRequest{
		CurrentPassword: "Old1!x",
		NewPassword:     "New1!x",
		ConfirmPassword: "New1!x",
	}
	if ok, msg := req.Validate(); !ok {
		t.Errorf("valid change rejected: %s", msg)
	}

	req.ConfirmPassword = "Other1!"
	if ok, _ := req.Validate(); ok {
		t.Error("mismatched confirmation should be rejected")
	}

	req.NewPassword = "Old1!x"
	req.ConfirmPassword = "Old1!x"
	if ok, _ := req.Validate(); ok {
		t.Error("reusing the current password should be rejected")
	}
}

func TestResetPasswordRequest_Validate(t *testing.T) {
	req := &ResetPasswordRequest{
		Token:           "tok",
		NewPassword:     "New1!x",
		ConfirmPassword: "New1!x",
	}
	if ok, msg := req.Validate(); !ok {
		t.Errorf("valid reset rejected: %s", msg)
	}

	req.ConfirmPassword = "nope"
	if ok, _ := req.Validate(); ok {
		t.Error("mismatched confirmation should be rejected")
	}
}

func TestUpdateProfileRequest_Validate(t *testing.T) {
	req := &UpdateProfileRequest{}
	if ok, _ := req.Validate(); ok {
		t.Error("empty update should be rejected")
	}

	req.FirstName = "Alice"
	if ok, msg := req.Validate(); !ok {
		t.Errorf("valid update rejected: %s", msg)
	}
}
