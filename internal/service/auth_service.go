package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/smallbiznis/valora-accounts/internal/domain"
	"github.com/smallbiznis/valora-accounts/internal/jwt"
	"github.com/smallbiznis/valora-accounts/internal/password"
	"github.com/smallbiznis/valora-accounts/internal/repository"
)

// Each signin or refresh appends one hashed refresh token to the user
// record. The stored set is capped to the most recent entries so active
// sessions cannot grow it without bound.
const maxStoredRefreshTokens = 25

// AuthService implements signup, signin, and refresh-token issuance.
type AuthService struct {
	users  repository.UserRepository
	tokens *jwt.Generator
	logger *zap.Logger
	tracer trace.Tracer
}

// NewAuthService wires dependencies.
func NewAuthService(users repository.UserRepository, tokens *jwt.Generator, logger *zap.Logger) *AuthService {
	return &AuthService{
		users:  users,
		tokens: tokens,
		logger: logger,
		tracer: otel.Tracer("github.com/smallbiznis/valora-accounts/internal/service"),
	}
}

// Signup registers a new account. No tokens are issued; signin is a
// separate step.
func (s *AuthService) Signup(ctx context.Context, name, email, pw string) (*MessageResponse, error) {
	ctx, span := s.startSpan(ctx, "AuthService.Signup")
	defer span.End()

	normalized := normalizeEmail(email)
	if _, err := s.users.GetByEmail(ctx, normalized); err == nil {
		return nil, conflict("Email already exists")
	} else if !errors.Is(err, repository.ErrNotFound) {
		span.RecordError(err)
		return nil, fmt.Errorf("signup lookup: %w", err)
	}

	hash, err := password.Hash(pw)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("hash password: %w", err)
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
			return nil, conflict("Email already exists")
		}
		span.RecordError(err)
		return nil, fmt.Errorf("signup create: %w", err)
	}

	s.logger.Info("user signed up", zap.String("user_id", created.ID.Hex()))
	return &MessageResponse{Message: "User created successfully"}, nil
}

// Signin checks credentials and issues a token pair. The hash of the new
// refresh token is appended to the user's stored set.
func (s *AuthService) Signin(ctx context.Context, email, pw string) (*TokenResponse, error) {
	ctx, span := s.startSpan(ctx, "AuthService.Signin")
	defer span.End()

	user, err := s.users.GetActiveByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, unauthorized("Invalid credentials")
	}

	valid, err := password.Verify(pw, user.Password)
	if err != nil || !valid {
		return nil, unauthorized("Invalid credentials")
	}

	pair, err := s.issueAndStore(ctx, user)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if err := s.users.SetLastLogin(ctx, user.ID, time.Now().UTC()); err != nil {
		s.logger.Warn("failed to record last login", zap.String("user_id", user.ID.Hex()), zap.Error(err))
	}

	s.logger.Info("user signed in", zap.String("user_id", user.ID.Hex()))
	return &TokenResponse{
		Message:      "Logged in successfully",
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, nil
}

// Refresh verifies a refresh token against the refresh secret and issues a
// new pair for the referenced user.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	ctx, span := s.startSpan(ctx, "AuthService.Refresh")
	defer span.End()

	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, unauthorized("Invalid refresh token")
	}

	id, err := primitive.ObjectIDFromHex(claims.Subject)
	if err != nil {
		return nil, unauthorized("Invalid refresh token")
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, unauthorized("Invalid refresh token")
	}

	pair, err := s.issueAndStore(ctx, user)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	return &TokenResponse{
		Message:      "Token refreshed successfully",
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, nil
}

func (s *AuthService) issueAndStore(ctx context.Context, user domain.User) (jwt.TokenPair, error) {
	pair, err := s.tokens.GeneratePair(ctx, user.ID.Hex(), user.Email)
	if err != nil {
		return jwt.TokenPair{}, fmt.Errorf("issue tokens: %w", err)
	}

	hash, err := password.Hash(pair.RefreshToken)
	if err != nil {
		return jwt.TokenPair{}, fmt.Errorf("hash refresh token: %w", err)
	}
	if err := s.users.AppendRefreshToken(ctx, user.ID, hash, maxStoredRefreshTokens); err != nil {
		return jwt.TokenPair{}, fmt.Errorf("store refresh token: %w", err)
	}
	return pair, nil
}

func (s *AuthService) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	if s == nil || s.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return s.tracer.Start(ctx, name)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
