package domain

import "errors"

var (
	ErrNotFound          = errors.New("document not found")
	ErrProfileNotFound   = errors.New("profile not found")
	ErrProfileExists     = errors.New("profile already exists")
	ErrAccountNotFound   = errors.New("account not found")
	ErrEmailTaken        = errors.New("email already registered")
	ErrNoClientSession   = errors.New("client session not signed in")
	ErrResetTokenInvalid = errors.New("password reset token invalid or expired")
)
