package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/smallbiznis/valora-accounts/internal/domain"
	"github.com/smallbiznis/valora-accounts/internal/password"
	"github.com/smallbiznis/valora-accounts/internal/repository"
)

func newUserFixture(t *testing.T) (*UserService, *fakeUserRepo, *fakeCache, *fakeMailer) {
	t.Helper()
	users := newFakeUserRepo()
	cache := newFakeCache()
	mailer := &fakeMailer{}
	return NewUserService(users, cache, mailer, zap.NewNop()), users, cache, mailer
}

func TestCreateUserSendsWelcomeEmail(t *testing.T) {
	svc, _, _, mailer := newUserFixture(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, "Ada", "ada@example.com", "hunter22")
	require.NoError(t, err)
	require.Equal(t, "ada@example.com", created.Email)

	require.Eventually(t, func() bool {
		return mailer.sentTo("welcome", "ada@example.com")
	}, time.Second, 10*time.Millisecond)

	_, err = svc.Create(ctx, "Imposter", "ADA@example.com", "other")
	var svcErr *Error
	require.ErrorAs(t, err, &svcErr)
	require.Equal(t, http.StatusConflict, svcErr.Status)
}

func TestGetByIDReadsThroughCache(t *testing.T) {
	svc, users, cache, _ := newUserFixture(t)
	ctx := context.Background()
	user := users.put(domain.User{Name: "Ada", Email: "ada@example.com", IsActive: true})

	first, err := svc.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, "Ada", first.Name)
	require.True(t, cache.has(userCacheKey(user.ID)))

	// Mutate storage behind the cache; a second read must serve the
	// cached value untouched.
	name := "Grace"
	_, err = users.UpdateProfile(ctx, user.ID, repository.UserUpdate{Name: &name})
	require.NoError(t, err)

	second, err := svc.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, "Ada", second.Name)
}

func TestUpdateInvalidatesCachedReads(t *testing.T) {
	svc, users, cache, _ := newUserFixture(t)
	ctx := context.Background()
	user := users.put(domain.User{Name: "Ada", Email: "ada@example.com", IsActive: true})

	_, err := svc.GetByID(ctx, user.ID)
	require.NoError(t, err)
	_, err = svc.List(ctx)
	require.NoError(t, err)
	require.True(t, cache.has(usersListCacheKey))

	name := "Grace"
	updated, err := svc.Update(ctx, user.ID, repository.UserUpdate{Name: &name})
	require.NoError(t, err)
	require.Equal(t, "Grace", updated.Name)
	require.False(t, cache.has(userCacheKey(user.ID)))
	require.False(t, cache.has(usersListCacheKey))

	fresh, err := svc.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, "Grace", fresh.Name)
}

func TestGetByIDUnknownUser(t *testing.T) {
	svc, _, _, _ := newUserFixture(t)

	_, err := svc.GetByID(context.Background(), primitive.NewObjectID())
	var svcErr *Error
	require.ErrorAs(t, err, &svcErr)
	require.Equal(t, http.StatusNotFound, svcErr.Status)
}

func TestUpdatePasswordVerifiesCurrent(t *testing.T) {
	svc, users, _, _ := newUserFixture(t)
	ctx := context.Background()

	hash, err := password.Hash("old-secret")
	require.NoError(t, err)
	user := users.put(domain.User{
		Email:         "ada@example.com",
		Password:      hash,
		RefreshTokens: []string{"stale-session"},
		IsActive:      true,
	})

	_, err = svc.UpdatePassword(ctx, user.ID, "wrong-guess", "new-secret")
	var svcErr *Error
	require.ErrorAs(t, err, &svcErr)
	require.Equal(t, http.StatusBadRequest, svcErr.Status)

	resp, err := svc.UpdatePassword(ctx, user.ID, "old-secret", "new-secret")
	require.NoError(t, err)
	require.Equal(t, "Password updated successfully", resp.Message)

	stored, _ := users.get(user.ID)
	require.Empty(t, stored.RefreshTokens)
	ok, err := password.Verify("new-secret", stored.Password)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestPasswordResetFlow(t *testing.T) {
	svc, users, _, mailer := newUserFixture(t)
	ctx := context.Background()

	hash, err := password.Hash("old-secret")
	require.NoError(t, err)
	user := users.put(domain.User{
		Email:         "ada@example.com",
		Password:      hash,
		RefreshTokens: []string{"stale-session"},
		IsActive:      true,
	})

	_, err = svc.RequestPasswordReset(ctx, "nobody@example.com")
	var svcErr *Error
	require.ErrorAs(t, err, &svcErr)
	require.Equal(t, http.StatusNotFound, svcErr.Status)

	resp, err := svc.RequestPasswordReset(ctx, "ada@example.com")
	require.NoError(t, err)
	require.Equal(t, "Password reset email sent", resp.Message)
	require.Eventually(t, func() bool {
		return mailer.sentTo("reset-password", "ada@example.com")
	}, time.Second, 10*time.Millisecond)

	stored, _ := users.get(user.ID)
	require.NotEmpty(t, stored.PasswordResetToken)
	token := stored.PasswordResetToken

	_, err = svc.ResetPassword(ctx, token, "new-secret")
	require.NoError(t, err)

	stored, _ = users.get(user.ID)
	require.Empty(t, stored.PasswordResetToken)
	require.Empty(t, stored.RefreshTokens)
	ok, err := password.Verify("new-secret", stored.Password)
	require.NoError(t, err)
	require.True(t, ok)

	// The token is single-use.
	_, err = svc.ResetPassword(ctx, token, "again")
	require.ErrorAs(t, err, &svcErr)
	require.Equal(t, http.StatusBadRequest, svcErr.Status)
}

func TestResetPasswordRejectsExpiredToken(t *testing.T) {
	svc, users, _, _ := newUserFixture(t)
	ctx := context.Background()
	user := users.put(domain.User{Email: "ada@example.com", IsActive: true})

	require.NoError(t, users.SetResetToken(ctx, user.ID, "expired-token", time.Now().UTC().Add(-time.Minute)))

	_, err := svc.ResetPassword(ctx, "expired-token", "new-secret")
	var svcErr *Error
	require.ErrorAs(t, err, &svcErr)
	require.Equal(t, http.StatusBadRequest, svcErr.Status)
}

func TestVerifyEmailIsSingleUse(t *testing.T) {
	svc, users, _, _ := newUserFixture(t)
	ctx := context.Background()
	user := users.put(domain.User{
		Email:                  "ada@example.com",
		EmailVerificationToken: "verify-me",
		IsActive:               true,
	})

	resp, err := svc.VerifyEmail(ctx, "verify-me")
	require.NoError(t, err)
	require.Equal(t, "Email verified successfully", resp.Message)

	stored, _ := users.get(user.ID)
	require.True(t, stored.IsEmailVerified)
	require.Empty(t, stored.EmailVerificationToken)

	_, err = svc.VerifyEmail(ctx, "verify-me")
	var svcErr *Error
	require.ErrorAs(t, err, &svcErr)
	require.Equal(t, http.StatusBadRequest, svcErr.Status)
}

func TestDeactivatePreservesRecord(t *testing.T) {
	svc, users, cache, _ := newUserFixture(t)
	ctx := context.Background()
	user := users.put(domain.User{Email: "ada@example.com", IsActive: true})

	_, err := svc.GetByID(ctx, user.ID)
	require.NoError(t, err)

	resp, err := svc.Deactivate(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, "User deactivated successfully", resp.Message)
	require.False(t, cache.has(userCacheKey(user.ID)))

	stored, ok := users.get(user.ID)
	require.True(t, ok)
	require.False(t, stored.IsActive)

	// Deactivated users stay readable by id.
	fetched, err := svc.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.False(t, fetched.IsActive)
}

func TestUpdatePreferencesReturnsStoredValue(t *testing.T) {
	svc, users, cache, _ := newUserFixture(t)
	ctx := context.Background()
	user := users.put(domain.User{Email: "ada@example.com", IsActive: true})

	_, err := svc.GetByID(ctx, user.ID)
	require.NoError(t, err)

	prefs, err := svc.UpdatePreferences(ctx, user.ID, map[string]any{"theme": "dark"})
	require.NoError(t, err)
	require.Equal(t, "dark", prefs["theme"])
	require.False(t, cache.has(userCacheKey(user.ID)))
}
