package models

import "time"

type UserRole string

const (
	UserRoleUser  UserRole = "user"
	UserRoleAdmin UserRole = "admin"
)

type User struct {
	ID                string
	Email             string
	PasswordHash      []byte
	DisplayName       string
	Role              UserRole
	PasswordChangedAt *time.Time
	LastLoginAt       *time.Time
	ResetTokenHash    []byte
	ResetExpiresAt    *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// PasswordChangedAfter reports whether the password was changed strictly
// after the given instant. Tokens issued before a change are rejected.
// Both sides are truncated to seconds because JWT iat carries no finer
// precision; a token issued within the same second as the change survives.
func (u User) PasswordChangedAfter(t time.Time) bool {
	if u.PasswordChangedAt == nil {
		return false
	}
	return t.Truncate(time.Second).Before(u.PasswordChangedAt.Truncate(time.Second))
}
