package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/yasut0ra/mini-task/internal/config"
	"github.com/yasut0ra/mini-task/internal/ids"
	"github.com/yasut0ra/mini-task/internal/models"
	"github.com/yasut0ra/mini-task/internal/repository"
	"github.com/yasut0ra/mini-task/internal/security"
)

type AuthService struct {
	users    UserStore
	sessions SessionStore
	cfg      *config.AppConfig
	log      zerolog.Logger
	now      func() time.Time
}

func NewAuthService(users UserStore, sessions SessionStore, cfg *config.AppConfig, log zerolog.Logger) *AuthService {
	return &AuthService{
		users:    users,
		sessions: sessions,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
}

type RegisterInput struct {
	Email       string
	Password    string
	DisplayName string
}

// SessionPair is the issuance value object. The transport layer decides how
// to place the tokens into cookies and/or the response body.
type SessionPair struct {
	AccessToken  string
	RefreshToken string
	User         models.User
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (SessionPair, error) {
	input.Email = NormalizeEmail(input.Email)
	if input.Email == "" || input.Password == "" {
		return SessionPair{}, fmt.Errorf("email and password required")
	}

	passwordHash, err := security.HashPassword(input.Password)
	if err != nil {
		return SessionPair{}, err
	}

	user := models.User{
		ID:           ids.New(),
		Email:        input.Email,
		PasswordHash: passwordHash,
		DisplayName:  input.DisplayName,
		Role:         models.UserRoleUser,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return SessionPair{}, ErrDuplicateEmail
		}
		return SessionPair{}, err
	}

	return s.issuePair(ctx, user)
}

// dummyHash absorbs a full verification on the unknown-email path so login
// timing does not reveal whether an account exists.
var dummyHash, _ = security.HashPassword("timing-equalizer")

func (s *AuthService) Login(ctx context.Context, email string, password string) (SessionPair, error) {
	email = NormalizeEmail(email)
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			_, _ = security.VerifyPassword(password, dummyHash)
			return SessionPair{}, ErrInvalidCredentials
		}
		return SessionPair{}, err
	}

	ok, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil || !ok {
		return SessionPair{}, ErrInvalidCredentials
	}

	now := s.now()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID).Msg("update last login failed")
	}
	user.LastLoginAt = &now

	return s.issuePair(ctx, user)
}

// issuePair mints the access/refresh pair for an already-verified user.
// The refresh session row is persisted before the pair is handed out.
func (s *AuthService) issuePair(ctx context.Context, user models.User) (SessionPair, error) {
	refreshToken, refreshHash, err := security.GenerateOpaqueToken(64)
	if err != nil {
		return SessionPair{}, err
	}

	session := models.RefreshSession{
		ID:        ids.New(),
		UserID:    user.ID,
		TokenHash: refreshHash,
		ExpiresAt: s.now().Add(s.cfg.Security.RefreshTTL),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return SessionPair{}, err
	}

	accessToken, err := security.GenerateAccessToken(
		s.cfg.Security.JWTSecret,
		user.ID,
		string(user.Role),
		s.cfg.Security.AccessTTL,
		s.now(),
	)
	if err != nil {
		return SessionPair{}, err
	}

	return SessionPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         user,
	}, nil
}

// Refresh exchanges a live refresh token for a new access token. The refresh
// value is not consumed, so concurrent calls with the same value all succeed.
func (s *AuthService) Refresh(ctx context.Context, refreshValue string) (string, models.User, error) {
	if refreshValue == "" {
		return "", models.User{}, ErrSessionNotFound
	}

	session, err := s.sessions.FindByTokenHash(ctx, security.HashOpaqueToken(refreshValue))
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return "", models.User{}, ErrSessionNotFound
		}
		return "", models.User{}, err
	}

	if session.Expired(s.now()) {
		if err := s.sessions.DeleteByTokenHash(ctx, session.TokenHash); err != nil {
			s.log.Warn().Err(err).Str("session_id", session.ID).Msg("delete expired session failed")
		}
		return "", models.User{}, ErrSessionExpired
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return "", models.User{}, ErrUserNotFound
		}
		return "", models.User{}, err
	}

	accessToken, err := security.GenerateAccessToken(
		s.cfg.Security.JWTSecret,
		user.ID,
		string(user.Role),
		s.cfg.Security.AccessTTL,
		s.now(),
	)
	if err != nil {
		return "", models.User{}, err
	}
	return accessToken, user, nil
}

// Logout revokes the refresh session backing the given value. Revoking an
// absent or already-revoked session is not an error.
func (s *AuthService) Logout(ctx context.Context, refreshValue string) error {
	if refreshValue == "" {
		return nil
	}
	return s.sessions.DeleteByTokenHash(ctx, security.HashOpaqueToken(refreshValue))
}

// Authenticate resolves an access token to its owning user. Beyond signature
// and expiry it re-fetches the user and rejects tokens issued before the most
// recent password change.
func (s *AuthService) Authenticate(ctx context.Context, tokenStr string) (models.User, *security.AccessClaims, error) {
	claims, err := security.ParseAccessToken(tokenStr, s.cfg.Security.JWTSecret)
	if err != nil {
		return models.User{}, nil, err
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return models.User{}, nil, ErrUserNotFound
		}
		return models.User{}, nil, err
	}

	if claims.IssuedAt != nil && user.PasswordChangedAfter(claims.IssuedAt.Time) {
		return models.User{}, nil, ErrTokenSuperseded
	}

	return user, claims, nil
}

// ChangePassword verifies the current password before installing the new one
// and revokes every outstanding refresh session for the user.
func (s *AuthService) ChangePassword(ctx context.Context, userID string, currentPassword string, newPassword string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	ok, err := security.VerifyPassword(currentPassword, user.PasswordHash)
	if err != nil || !ok {
		return ErrInvalidCredentials
	}

	newHash, err := security.HashPassword(newPassword)
	if err != nil {
		return err
	}

	if err := s.users.UpdatePassword(ctx, user.ID, newHash, s.now()); err != nil {
		return err
	}

	if err := s.sessions.DeleteAllForUser(ctx, user.ID); err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID).Msg("revoke sessions after password change failed")
	}
	return nil
}

func (s *AuthService) UpdateProfile(ctx context.Context, userID string, displayName string, email string) (models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, err
	}

	if displayName == "" {
		displayName = user.DisplayName
	}
	if email == "" {
		email = user.Email
	}
	email = NormalizeEmail(email)

	if err := s.users.UpdateProfile(ctx, user.ID, displayName, email); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return models.User{}, ErrDuplicateEmail
		}
		return models.User{}, err
	}

	user.DisplayName = displayName
	user.Email = email
	return user, nil
}

func (s *AuthService) ListSessions(ctx context.Context, userID string) ([]models.RefreshSession, error) {
	return s.sessions.ListByUser(ctx, userID)
}

func NormalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}
