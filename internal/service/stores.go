package service

import (
	"context"
	"time"

	"github.com/yasut0ra/mini-task/internal/models"
)

// UserStore is the credential store contract. Implementations signal missing
// rows with repository.ErrUserNotFound and unique violations with
// repository.ErrDuplicateEmail.
type UserStore interface {
	Create(ctx context.Context, user models.User) error
	FindByEmail(ctx context.Context, email string) (models.User, error)
	GetByID(ctx context.Context, id string) (models.User, error)
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
	UpdatePassword(ctx context.Context, id string, hash []byte, changedAt time.Time) error
	UpdateProfile(ctx context.Context, id string, displayName string, email string) error
	SetResetToken(ctx context.Context, id string, tokenHash []byte, expiresAt time.Time) error
	FindByResetTokenHash(ctx context.Context, tokenHash []byte, now time.Time) (models.User, error)
	ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error)
}

// SessionStore owns the refresh-session rows. Missing rows are signalled with
// repository.ErrSessionNotFound; deletes are idempotent.
type SessionStore interface {
	Create(ctx context.Context, session models.RefreshSession) error
	FindByTokenHash(ctx context.Context, tokenHash []byte) (models.RefreshSession, error)
	DeleteByTokenHash(ctx context.Context, tokenHash []byte) error
	DeleteAllForUser(ctx context.Context, userID string) error
	ListByUser(ctx context.Context, userID string) ([]models.RefreshSession, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
