package jwt_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	customjwt "github.com/smallbiznis/valora-accounts/internal/jwt"
)

func TestGeneratePairRoundTrip(t *testing.T) {
	generator := customjwt.NewGenerator("access-secret", "refresh-secret", 15*time.Minute, 7*24*time.Hour)

	pair, err := generator.GeneratePair(context.Background(), "64f1c0ffee", "user@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	require.NotEqual(t, pair.AccessToken, pair.RefreshToken)

	claims, err := generator.VerifyAccess(pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "64f1c0ffee", claims.Subject)
	require.Equal(t, "user@example.com", claims.Email)

	claims, err = generator.VerifyRefresh(pair.RefreshToken)
	require.NoError(t, err)
	require.Equal(t, "64f1c0ffee", claims.Subject)
}

func TestVerifyRejectsCrossClassTokens(t *testing.T) {
	generator := customjwt.NewGenerator("access-secret", "refresh-secret", time.Minute, time.Hour)

	pair, err := generator.GeneratePair(context.Background(), "u1", "u1@example.com")
	require.NoError(t, err)

	// Access secret must not verify refresh tokens, and vice versa.
	_, err = generator.VerifyAccess(pair.RefreshToken)
	require.Error(t, err)
	_, err = generator.VerifyRefresh(pair.AccessToken)
	require.Error(t, err)
}

func TestVerifyRejectsExpired(t *testing.T) {
	generator := customjwt.NewGenerator("access-secret", "refresh-secret", -5*time.Minute, -5*time.Minute)

	pair, err := generator.GeneratePair(context.Background(), "u1", "u1@example.com")
	require.NoError(t, err)

	_, err = generator.VerifyAccess(pair.AccessToken)
	require.Error(t, err)
	_, err = generator.VerifyRefresh(pair.RefreshToken)
	require.Error(t, err)
}

func TestVerifyRejectsForeignSecret(t *testing.T) {
	generator := customjwt.NewGenerator("access-secret", "refresh-secret", time.Minute, time.Hour)
	other := customjwt.NewGenerator("other-secret", "other-refresh", time.Minute, time.Hour)

	pair, err := other.GeneratePair(context.Background(), "u1", "u1@example.com")
	require.NoError(t, err)

	_, err = generator.VerifyAccess(pair.AccessToken)
	require.Error(t, err)

	_, err = generator.VerifyAccess("not-a-jwt")
	require.Error(t, err)
}
