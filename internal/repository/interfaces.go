package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/smallbiznis/valora-accounts/internal/domain"
)

// ErrNotFound is returned when a query matches no document.
var ErrNotFound = errors.New("not found")

// UserUpdate carries the optional profile fields a user may change.
type UserUpdate struct {
	Name   *string
	Avatar *string
}

// UserRepository exposes persistence for account records.
type UserRepository interface {
	Create(ctx context.Context, user domain.User) (domain.User, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (domain.User, error)
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	GetActiveByEmail(ctx context.Context, email string) (domain.User, error)
	GetByVerificationToken(ctx context.Context, token string) (domain.User, error)
	// GetByResetToken matches the reset token only while its expiry is after now.
	GetByResetToken(ctx context.Context, token string, now time.Time) (domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
	ListByIDs(ctx context.Context, ids []primitive.ObjectID) ([]domain.User, error)
	UpdateProfile(ctx context.Context, id primitive.ObjectID, update UserUpdate) (domain.User, error)
	// SetPassword stores a new password hash and clears every refresh token.
	SetPassword(ctx context.Context, id primitive.ObjectID, hash string) error
	// ResetPassword additionally clears the one-shot reset token and expiry.
	ResetPassword(ctx context.Context, id primitive.ObjectID, hash string) error
	SetResetToken(ctx context.Context, id primitive.ObjectID, token string, expires time.Time) error
	MarkEmailVerified(ctx context.Context, id primitive.ObjectID) error
	// AppendRefreshToken pushes a refresh-token hash, keeping at most max entries.
	AppendRefreshToken(ctx context.Context, id primitive.ObjectID, hash string, max int) error
	SetLastLogin(ctx context.Context, id primitive.ObjectID, at time.Time) error
	SetPreferences(ctx context.Context, id primitive.ObjectID, preferences map[string]any) (domain.User, error)
	Deactivate(ctx context.Context, id primitive.ObjectID) error
}

// OrganizationUpdate carries the optional fields an admin may change.
type OrganizationUpdate struct {
	Name        *string
	Description *string
}

// OrganizationRepository exposes persistence for organizations. Soft-deleted
// organizations are excluded from every read.
type OrganizationRepository interface {
	Create(ctx context.Context, org domain.Organization) (domain.Organization, error)
	// GetVisible returns the organization only when userID is a member.
	GetVisible(ctx context.Context, id, userID primitive.ObjectID) (domain.Organization, error)
	// GetForAdmin returns the organization only when userID holds admin access.
	GetForAdmin(ctx context.Context, id, userID primitive.ObjectID) (domain.Organization, error)
	ListByMember(ctx context.Context, userID primitive.ObjectID, skip, limit int64) ([]domain.Organization, error)
	CountByMember(ctx context.Context, userID primitive.ObjectID) (int64, error)
	UpdateFields(ctx context.Context, id primitive.ObjectID, update OrganizationUpdate) (domain.Organization, error)
	SoftDelete(ctx context.Context, id primitive.ObjectID) error
	AppendMember(ctx context.Context, id primitive.ObjectID, member domain.Member) error
}
