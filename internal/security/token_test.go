package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func TestAccessTokenRoundTrip(t *testing.T) {
	now := time.Now()
	token, err := GenerateAccessToken(testSecret, "user-1", "user", 15*time.Minute, now)
	require.NoError(t, err)

	claims, err := ParseAccessToken(token, testSecret)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.UserID)
	require.Equal(t, "user", claims.Role)
	require.Equal(t, "user-1", claims.Subject)
	require.WithinDuration(t, now, claims.IssuedAt.Time, time.Second)
	require.WithinDuration(t, now.Add(15*time.Minute), claims.ExpiresAt.Time, time.Second)
}

func TestParseExpiredToken(t *testing.T) {
	token, err := GenerateAccessToken(testSecret, "user-1", "user", 15*time.Minute, time.Now().Add(-time.Hour))
	require.NoError(t, err)

	_, err = ParseAccessToken(token, testSecret)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestParseMalformedToken(t *testing.T) {
	_, err := ParseAccessToken("definitely-not-a-jwt", testSecret)
	require.ErrorIs(t, err, ErrTokenMalformed)
}

// A wrong signing key is malformed, not expired: the caller must force a
// re-login rather than attempt a refresh.
func TestParseWrongSecret(t *testing.T) {
	token, err := GenerateAccessToken(testSecret, "user-1", "user", 15*time.Minute, time.Now())
	require.NoError(t, err)

	_, err = ParseAccessToken(token, "other-secret")
	require.ErrorIs(t, err, ErrTokenMalformed)
}

func TestParseTamperedToken(t *testing.T) {
	token, err := GenerateAccessToken(testSecret, "user-1", "user", 15*time.Minute, time.Now())
	require.NoError(t, err)

	tampered := token + "xx"
	_, err = ParseAccessToken(tampered, testSecret)
	require.ErrorIs(t, err, ErrTokenMalformed)
}

func TestGenerateOpaqueToken(t *testing.T) {
	first, firstHash, err := GenerateOpaqueToken(64)
	require.NoError(t, err)
	second, secondHash, err := GenerateOpaqueToken(64)
	require.NoError(t, err)

	require.NotEqual(t, first, second)
	require.NotEqual(t, firstHash, secondHash)
	require.Len(t, firstHash, 32)

	// The stored hash is recomputable from the plaintext alone.
	require.Equal(t, firstHash, HashOpaqueToken(first))
}
