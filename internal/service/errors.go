package service

import "errors"

var (
	ErrDuplicateResource  = errors.New("resource already exists")
	ErrValidation         = errors.New("validation failed")
	ErrBadCredentials     = errors.New("invalid username or password")
	ErrAccountLocked      = errors.New("account is locked")
	ErrAccountNotVerified = errors.New("account is not verified")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenRevoked       = errors.New("token revoked")
	ErrTokenAlreadyUsed   = errors.New("token already used")
	ErrResourceNotFound   = errors.New("resource not found")
)
