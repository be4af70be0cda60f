package models

import "time"

// RefreshSession is one row per issued refresh token. Only the sha256 of the
// opaque token value is stored; the plaintext exists only on the client.
type RefreshSession struct {
	ID        string
	UserID    string
	TokenHash []byte
	CreatedAt time.Time
	ExpiresAt time.Time
}

func (s RefreshSession) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}
