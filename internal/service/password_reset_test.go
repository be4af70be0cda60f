package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/yasut0ra/mini-task/internal/service/servicetest"
)

type resetFixture struct {
	*authFixture
	mailer *servicetest.FakeMailer
	reset  *PasswordResetService
}

func newResetFixture(t *testing.T) *resetFixture {
	t.Helper()
	auth := newAuthFixture(t)
	mailer := servicetest.NewFakeMailer()
	reset := NewPasswordResetService(auth.users, auth.sessions, mailer, testConfig(), zerolog.Nop())
	return &resetFixture{authFixture: auth, mailer: mailer, reset: reset}
}

// ticketFromMail recovers the plaintext ticket from the delivered reset link.
func (f *resetFixture) ticketFromMail(t *testing.T) string {
	t.Helper()
	mail, ok := f.mailer.Last()
	require.True(t, ok, "no reset mail delivered")

	const marker = "/reset-password/"
	idx := strings.Index(mail.HTML, marker)
	require.GreaterOrEqual(t, idx, 0)
	rest := mail.HTML[idx+len(marker):]
	end := strings.IndexAny(rest, `"<`)
	require.Greater(t, end, 0)
	return rest[:end]
}

func TestResetPasswordRoundTrip(t *testing.T) {
	f := newResetFixture(t)
	ctx := context.Background()

	f.register(t, "a@x.com", "Secret123")

	require.NoError(t, f.reset.RequestReset(ctx, "a@x.com"))
	require.Equal(t, 1, f.mailer.SentCount())
	ticket := f.ticketFromMail(t)

	require.NoError(t, f.reset.ResetPassword(ctx, ticket, "NewPass456"))

	_, err := f.service.Login(ctx, "a@x.com", "Secret123")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.service.Login(ctx, "a@x.com", "NewPass456")
	require.NoError(t, err)
}

func TestResetTicketIsSingleUse(t *testing.T) {
	f := newResetFixture(t)
	ctx := context.Background()

	f.register(t, "a@x.com", "Secret123")
	require.NoError(t, f.reset.RequestReset(ctx, "a@x.com"))
	ticket := f.ticketFromMail(t)

	require.NoError(t, f.reset.ResetPassword(ctx, ticket, "NewPass456"))
	require.ErrorIs(t, f.reset.ResetPassword(ctx, ticket, "Another789"), ErrInvalidResetTicket)
}

func TestResetTicketExpires(t *testing.T) {
	f := newResetFixture(t)
	ctx := context.Background()

	f.register(t, "a@x.com", "Secret123")
	require.NoError(t, f.reset.RequestReset(ctx, "a@x.com"))
	ticket := f.ticketFromMail(t)

	f.reset.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	require.ErrorIs(t, f.reset.ResetPassword(ctx, ticket, "NewPass456"), ErrInvalidResetTicket)
}

// Requesting a reset for an unknown email succeeds without sending anything.
func TestRequestResetUnknownEmail(t *testing.T) {
	f := newResetFixture(t)

	require.NoError(t, f.reset.RequestReset(context.Background(), "nobody@x.com"))
	require.Equal(t, 0, f.mailer.SentCount())
}

func TestResetRevokesSessionsAndSupersedesTokens(t *testing.T) {
	f := newResetFixture(t)
	ctx := context.Background()

	pair := f.register(t, "a@x.com", "Secret123")
	require.Equal(t, 1, f.sessions.Count())

	require.NoError(t, f.reset.RequestReset(ctx, "a@x.com"))
	ticket := f.ticketFromMail(t)

	f.reset.now = func() time.Time { return time.Now().Add(time.Minute) }
	require.NoError(t, f.reset.ResetPassword(ctx, ticket, "NewPass456"))

	require.Equal(t, 0, f.sessions.Count())
	_, _, err := f.service.Refresh(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, ErrSessionNotFound)

	_, _, err = f.service.Authenticate(ctx, pair.AccessToken)
	require.ErrorIs(t, err, ErrTokenSuperseded)
}

func TestResetWithBogusTicket(t *testing.T) {
	f := newResetFixture(t)

	err := f.reset.ResetPassword(context.Background(), "bogus-ticket", "NewPass456")
	require.ErrorIs(t, err, ErrInvalidResetTicket)
}
