package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/yasut0ra/mini-task/internal/config"
	"github.com/yasut0ra/mini-task/internal/mail"
	"github.com/yasut0ra/mini-task/internal/repository"
	"github.com/yasut0ra/mini-task/internal/security"
)

type PasswordResetService struct {
	users    UserStore
	sessions SessionStore
	mailer   mail.Mailer
	cfg      *config.AppConfig
	log      zerolog.Logger
	now      func() time.Time
}

func NewPasswordResetService(users UserStore, sessions SessionStore, mailer mail.Mailer, cfg *config.AppConfig, log zerolog.Logger) *PasswordResetService {
	return &PasswordResetService{
		users:    users,
		sessions: sessions,
		mailer:   mailer,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
}

// RequestReset hands a single-use plaintext ticket to the email side effect
// and stores only its hash. It succeeds whether or not the email is
// registered; the ticket is generated before the lookup so both paths do the
// same work.
func (s *PasswordResetService) RequestReset(ctx context.Context, email string) error {
	email = NormalizeEmail(email)

	ticket, ticketHash, err := security.GenerateOpaqueToken(32)
	if err != nil {
		return err
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.log.Debug().Str("email", email).Msg("reset requested for unknown email")
			return nil
		}
		return err
	}

	expiresAt := s.now().Add(s.cfg.Security.ResetTTL)
	if err := s.users.SetResetToken(ctx, user.ID, ticketHash, expiresAt); err != nil {
		return err
	}

	resetURL := fmt.Sprintf("%s/reset-password/%s", s.cfg.SMTP.BaseURL, ticket)
	html := fmt.Sprintf(
		`<p>Hello %s,</p><p>You requested a password reset. The link below is valid for %s and can be used once.</p><p><a href="%s">%s</a></p><p>If you did not request this, you can ignore this email.</p>`,
		user.DisplayName, s.cfg.Security.ResetTTL, resetURL, resetURL,
	)

	if err := s.mailer.Send(ctx, user.Email, "Password reset", html); err != nil {
		// Delivery is fire-and-forget; the response stays uniform either way.
		s.log.Error().Err(err).Str("user_id", user.ID).Msg("reset mail delivery failed")
	}
	return nil
}

// ResetPassword exercises a ticket. On success the new password is installed,
// the reset fields are cleared and every refresh session is revoked; the
// ticket cannot be used again because its hash no longer matches any row.
func (s *PasswordResetService) ResetPassword(ctx context.Context, ticket string, newPassword string) error {
	if ticket == "" || newPassword == "" {
		return ErrInvalidResetTicket
	}

	user, err := s.users.FindByResetTokenHash(ctx, security.HashOpaqueToken(ticket), s.now())
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrInvalidResetTicket
		}
		return err
	}

	newHash, err := security.HashPassword(newPassword)
	if err != nil {
		return err
	}

	if err := s.users.UpdatePassword(ctx, user.ID, newHash, s.now()); err != nil {
		return err
	}

	if err := s.sessions.DeleteAllForUser(ctx, user.ID); err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID).Msg("revoke sessions after reset failed")
	}
	return nil
}
