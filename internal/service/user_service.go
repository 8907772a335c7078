package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/smallbiznis/valora-accounts/internal/domain"
	"github.com/smallbiznis/valora-accounts/internal/password"
	"github.com/smallbiznis/valora-accounts/internal/repository"
)

const (
	userCacheTTL      = 300 * time.Second
	usersListCacheKey = "users:all"

	resetTokenTTL = time.Hour
)

func userCacheKey(id primitive.ObjectID) string {
	return "user:" + id.Hex()
}

// UserService manages profile, credential lifecycle, and preferences.
type UserService struct {
	users  repository.UserRepository
	cache  Cache
	mailer Mailer
	logger *zap.Logger
	tracer trace.Tracer
}

// NewUserService wires dependencies.
func NewUserService(users repository.UserRepository, cache Cache, mailer Mailer, logger *zap.Logger) *UserService {
	return &UserService{
		users:  users,
		cache:  cache,
		mailer: mailer,
		logger: logger,
		tracer: otel.Tracer("github.com/smallbiznis/valora-accounts/internal/service"),
	}
}

// Create registers a user and fires a best-effort welcome email after the
// record is durable.
func (s *UserService) Create(ctx context.Context, name, email, pw string) (domain.User, error) {
	ctx, span := s.startSpan(ctx, "UserService.Create")
	defer span.End()

	normalized := normalizeEmail(email)
	if _, err := s.users.GetByEmail(ctx, normalized); err == nil {
		return domain.User{}, conflict("Email already exists")
	} else if !errors.Is(err, repository.ErrNotFound) {
		span.RecordError(err)
		return domain.User{}, fmt.Errorf("create user lookup: %w", err)
	}

	hash, err := password.Hash(pw)
	if err != nil {
		span.RecordError(err)
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}

	user := domain.User{
		Name:                   name,
		Email:                  normalized,
		Password:               hash,
		EmailVerificationToken: uuid.NewString(),
		Role:                   domain.RoleUser,
		IsActive:               true,
	}
	created, err := s.users.Create(ctx, user)
	if err != nil {
		if repository.IsDuplicateKey(err) {
			return domain.User{}, conflict("Email already exists")
		}
		span.RecordError(err)
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}

	s.sendDetached(ctx, "welcome email", created.Email, func(mailCtx context.Context) error {
		return s.mailer.SendWelcome(mailCtx, created.Email, created.Name)
	})

	return created, nil
}

// GetByID returns the user through the read-through cache. Deactivated
// users remain retrievable by id.
func (s *UserService) GetByID(ctx context.Context, id primitive.ObjectID) (domain.User, error) {
	ctx, span := s.startSpan(ctx, "UserService.GetByID")
	defer span.End()

	key := userCacheKey(id)
	var cached domain.User
	if s.cache.Get(ctx, key, &cached) {
		return cached, nil
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.User{}, notFound("User not found")
		}
		span.RecordError(err)
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}

	s.cache.Set(ctx, key, user, userCacheTTL)
	return user, nil
}

// List returns every user without sensitive fields, cached under one key.
func (s *UserService) List(ctx context.Context) ([]domain.User, error) {
	ctx, span := s.startSpan(ctx, "UserService.List")
	defer span.End()

	var cached []domain.User
	if s.cache.Get(ctx, usersListCacheKey, &cached) {
		return cached, nil
	}

	users, err := s.users.List(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("list users: %w", err)
	}

	s.cache.Set(ctx, usersListCacheKey, users, userCacheTTL)
	return users, nil
}

// Update applies partial profile changes and invalidates cached reads.
func (s *UserService) Update(ctx context.Context, id primitive.ObjectID, update repository.UserUpdate) (domain.User, error) {
	ctx, span := s.startSpan(ctx, "UserService.Update")
	defer span.End()

	user, err := s.users.UpdateProfile(ctx, id, update)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.User{}, notFound("User not found")
		}
		span.RecordError(err)
		return domain.User{}, fmt.Errorf("update user: %w", err)
	}

	s.cache.Delete(ctx, userCacheKey(id), usersListCacheKey)
	return user, nil
}

// UpdatePassword verifies the current password before storing the new hash.
// All refresh tokens are cleared, forcing every other session to
// re-authenticate.
func (s *UserService) UpdatePassword(ctx context.Context, id primitive.ObjectID, current, next string) (*MessageResponse, error) {
	ctx, span := s.startSpan(ctx, "UserService.UpdatePassword")
	defer span.End()

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("User not found")
		}
		span.RecordError(err)
		return nil, fmt.Errorf("get user: %w", err)
	}

	valid, err := password.Verify(current, user.Password)
	if err != nil || !valid {
		return nil, badRequest("Current password is incorrect")
	}

	hash, err := password.Hash(next)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.SetPassword(ctx, id, hash); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("set password: %w", err)
	}

	s.logger.Info("password updated", zap.String("user_id", id.Hex()))
	return &MessageResponse{Message: "Password updated successfully"}, nil
}

// RequestPasswordReset stores a one-hour reset token and mails the link.
func (s *UserService) RequestPasswordReset(ctx context.Context, email string) (*MessageResponse, error) {
	ctx, span := s.startSpan(ctx, "UserService.RequestPasswordReset")
	defer span.End()

	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("User not found")
		}
		span.RecordError(err)
		return nil, fmt.Errorf("get user by email: %w", err)
	}

	token := uuid.NewString()
	expires := time.Now().UTC().Add(resetTokenTTL)
	if err := s.users.SetResetToken(ctx, user.ID, token, expires); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("set reset token: %w", err)
	}

	s.sendDetached(ctx, "password reset email", user.Email, func(mailCtx context.Context) error {
		return s.mailer.SendPasswordReset(mailCtx, user.Email, user.Name, token)
	})

	return &MessageResponse{Message: "Password reset email sent"}, nil
}

// ResetPassword redeems a reset token. The token is single-use: it is
// cleared together with every refresh token on success.
func (s *UserService) ResetPassword(ctx context.Context, token, next string) (*MessageResponse, error) {
	ctx, span := s.startSpan(ctx, "UserService.ResetPassword")
	defer span.End()

	user, err := s.users.GetByResetToken(ctx, token, time.Now().UTC())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, badRequest("Invalid or expired reset token")
		}
		span.RecordError(err)
		return nil, fmt.Errorf("get user by reset token: %w", err)
	}

	hash, err := password.Hash(next)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.ResetPassword(ctx, user.ID, hash); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("reset password: %w", err)
	}

	s.logger.Info("password reset", zap.String("user_id", user.ID.Hex()))
	return &MessageResponse{Message: "Password reset successfully"}, nil
}

// VerifyEmail redeems a single-use verification token.
func (s *UserService) VerifyEmail(ctx context.Context, token string) (*MessageResponse, error) {
	ctx, span := s.startSpan(ctx, "UserService.VerifyEmail")
	defer span.End()

	user, err := s.users.GetByVerificationToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, badRequest("Invalid verification token")
		}
		span.RecordError(err)
		return nil, fmt.Errorf("get user by verification token: %w", err)
	}

	if err := s.users.MarkEmailVerified(ctx, user.ID); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("mark email verified: %w", err)
	}

	return &MessageResponse{Message: "Email verified successfully"}, nil
}

// Deactivate soft-deletes the account. The record itself is never removed.
func (s *UserService) Deactivate(ctx context.Context, id primitive.ObjectID) (*MessageResponse, error) {
	ctx, span := s.startSpan(ctx, "UserService.Deactivate")
	defer span.End()

	if err := s.users.Deactivate(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("User not found")
		}
		span.RecordError(err)
		return nil, fmt.Errorf("deactivate user: %w", err)
	}

	s.cache.Delete(ctx, userCacheKey(id), usersListCacheKey)
	return &MessageResponse{Message: "User deactivated successfully"}, nil
}

// UpdatePreferences replaces the preferences mapping and returns the stored
// value.
func (s *UserService) UpdatePreferences(ctx context.Context, id primitive.ObjectID, preferences map[string]any) (map[string]any, error) {
	ctx, span := s.startSpan(ctx, "UserService.UpdatePreferences")
	defer span.End()

	user, err := s.users.SetPreferences(ctx, id, preferences)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("User not found")
		}
		span.RecordError(err)
		return nil, fmt.Errorf("set preferences: %w", err)
	}

	s.cache.Delete(ctx, userCacheKey(id))
	return user.Preferences, nil
}

// sendDetached dispatches a best-effort notification after the owning write
// is durable. The send outlives the request and its failure is only logged.
func (s *UserService) sendDetached(ctx context.Context, kind, to string, send func(context.Context) error) {
	mailCtx := context.WithoutCancel(ctx)
	go func() {
		if err := send(mailCtx); err != nil {
			s.logger.Error("failed to send "+kind, zap.String("to", to), zap.Error(err))
		}
	}()
}

func (s *UserService) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	if s == nil || s.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return s.tracer.Start(ctx, name)
}
