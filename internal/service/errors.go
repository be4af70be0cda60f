package service

import "errors"

var (
	// ErrInvalidCredentials covers both unknown email and wrong password so the
	// response never reveals whether an account exists.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrUserNotFound       = errors.New("user not found")
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionExpired     = errors.New("session expired")
	// ErrTokenSuperseded marks a well-formed, unexpired access token issued
	// before the owning account's password changed.
	ErrTokenSuperseded    = errors.New("token superseded by password change")
	ErrInvalidResetTicket = errors.New("invalid or expired reset ticket")
)
