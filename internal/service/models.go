package service

import (
	"context"
	"time"

	"github.com/smallbiznis/valora-accounts/internal/domain"
)

// Cache is the invalidate-on-write read accelerator the services depend on.
// Implementations must degrade to miss behavior when the backing store is
// unavailable; none of these calls may fail the owning operation.
type Cache interface {
	// Get unmarshals the cached value into dest and reports a hit.
	Get(ctx context.Context, key string, dest any) bool
	Set(ctx context.Context, key string, value any, ttl time.Duration)
	Delete(ctx context.Context, keys ...string)
}

// Mailer dispatches templated notification email. All sends made by the
// services are best-effort; errors are logged at the call site only.
type Mailer interface {
	SendWelcome(ctx context.Context, to, userName string) error
	SendPasswordReset(ctx context.Context, to, userName, resetToken string) error
	SendOrganizationInvite(ctx context.Context, to, organizationName, inviterName string) error
}

// MessageResponse is the confirmation payload for message-only operations.
type MessageResponse struct {
	Message string `json:"message"`
}

// TokenResponse carries a freshly issued token pair.
type TokenResponse struct {
	Message      string `json:"message"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// MemberView is a membership entry with the user reference resolved.
type MemberView struct {
	UserID      string    `json:"userId"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	AccessLevel string    `json:"accessLevel"`
	JoinedAt    time.Time `json:"joinedAt"`
}

// OrganizationView is the projection returned to members.
type OrganizationView struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Members     []MemberView `json:"members"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// ListMeta describes one page of a paginated listing.
type ListMeta struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int64 `json:"totalPages"`
}

// OrganizationList is one page of organizations visible to the requester.
type OrganizationList struct {
	Organizations []OrganizationView `json:"organizations"`
	Meta          ListMeta           `json:"meta"`
}

// CreateOrganizationResponse confirms creation with the new id.
type CreateOrganizationResponse struct {
	OrganizationID string `json:"organizationId"`
	Message        string `json:"message"`
}

func organizationView(org domain.Organization, usersByID map[string]domain.User) OrganizationView {
	members := make([]MemberView, 0, len(org.Members))
	for _, m := range org.Members {
		view := MemberView{
			UserID:      m.UserID.Hex(),
			AccessLevel: m.AccessLevel,
			JoinedAt:    m.JoinedAt,
		}
		if u, ok := usersByID[m.UserID.Hex()]; ok {
			view.Name = u.Name
			view.Email = u.Email
		}
		members = append(members, view)
	}
	return OrganizationView{
		ID:          org.ID.Hex(),
		Name:        org.Name,
		Description: org.Description,
		Members:     members,
		CreatedAt:   org.CreatedAt,
		UpdatedAt:   org.UpdatedAt,
	}
}
