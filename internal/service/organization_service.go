package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/smallbiznis/valora-accounts/internal/domain"
	"github.com/smallbiznis/valora-accounts/internal/repository"
)

const (
	organizationCacheTTL = 300 * time.Second

	defaultPage  = 1
	defaultLimit = 10
)

// Cache keys carry the requester because the member projection and the
// listing both depend on who is asking; keying by resource id alone would
// leak cross-tenant data.
func organizationCacheKey(id, requester primitive.ObjectID) string {
	return "organization:" + id.Hex() + ":" + requester.Hex()
}

func organizationListCacheKey(requester primitive.ObjectID, page, limit int) string {
	return "organizations:" + requester.Hex() + ":" + strconv.Itoa(page) + ":" + strconv.Itoa(limit)
}

// OrganizationService manages organizations and role-scoped membership.
type OrganizationService struct {
	orgs   repository.OrganizationRepository
	users  repository.UserRepository
	cache  Cache
	mailer Mailer
	logger *zap.Logger
	tracer trace.Tracer
}

// NewOrganizationService wires dependencies.
func NewOrganizationService(orgs repository.OrganizationRepository, users repository.UserRepository, cache Cache, mailer Mailer, logger *zap.Logger) *OrganizationService {
	return &OrganizationService{
		orgs:   orgs,
		users:  users,
		cache:  cache,
		mailer: mailer,
		logger: logger,
		tracer: otel.Tracer("github.com/smallbiznis/valora-accounts/internal/service"),
	}
}

// Create stores a new organization with the creator as its sole admin.
func (s *OrganizationService) Create(ctx context.Context, name, description string, creatorID primitive.ObjectID) (*CreateOrganizationResponse, error) {
	ctx, span := s.startSpan(ctx, "OrganizationService.Create")
	defer span.End()

	org := domain.Organization{
		Name:        name,
		Description: description,
		Members: []domain.Member{{
			UserID:      creatorID,
			AccessLevel: domain.AccessAdmin,
			JoinedAt:    time.Now().UTC(),
		}},
	}
	created, err := s.orgs.Create(ctx, org)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("create organization: %w", err)
	}

	s.logger.Info("organization created",
		zap.String("organization_id", created.ID.Hex()),
		zap.String("creator_id", creatorID.Hex()))
	return &CreateOrganizationResponse{
		OrganizationID: created.ID.Hex(),
		Message:        "Organization created successfully",
	}, nil
}

// GetByID returns the member-resolved view. Non-members receive NotFound:
// membership and existence are deliberately not distinguished.
func (s *OrganizationService) GetByID(ctx context.Context, id, requesterID primitive.ObjectID) (*OrganizationView, error) {
	ctx, span := s.startSpan(ctx, "OrganizationService.GetByID")
	defer span.End()

	key := organizationCacheKey(id, requesterID)
	var cached OrganizationView
	if s.cache.Get(ctx, key, &cached) {
		return &cached, nil
	}

	org, err := s.orgs.GetVisible(ctx, id, requesterID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("Organization not found")
		}
		span.RecordError(err)
		return nil, fmt.Errorf("get organization: %w", err)
	}

	view, err := s.resolveView(ctx, org)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.cache.Set(ctx, key, view, organizationCacheTTL)
	return &view, nil
}

// List returns the requester's organizations, newest first, paginated.
func (s *OrganizationService) List(ctx context.Context, requesterID primitive.ObjectID, page, limit int) (*OrganizationList, error) {
	ctx, span := s.startSpan(ctx, "OrganizationService.List")
	defer span.End()

	if page < 1 {
		page = defaultPage
	}
	if limit < 1 {
		limit = defaultLimit
	}

	key := organizationListCacheKey(requesterID, page, limit)
	var cached OrganizationList
	if s.cache.Get(ctx, key, &cached) {
		return &cached, nil
	}

	skip := int64(page-1) * int64(limit)
	orgs, err := s.orgs.ListByMember(ctx, requesterID, skip, int64(limit))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("list organizations: %w", err)
	}
	total, err := s.orgs.CountByMember(ctx, requesterID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("count organizations: %w", err)
	}

	views := make([]OrganizationView, 0, len(orgs))
	for _, org := range orgs {
		view, err := s.resolveView(ctx, org)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		views = append(views, view)
	}

	result := OrganizationList{
		Organizations: views,
		Meta: ListMeta{
			Total:      total,
			Page:       page,
			Limit:      limit,
			TotalPages: (total + int64(limit) - 1) / int64(limit),
		},
	}

	s.cache.Set(ctx, key, result, organizationCacheTTL)
	return &result, nil
}

// Update applies partial changes; the requester must hold admin access.
// Only the requester's own cached view is invalidated; other members'
// views age out within the cache TTL.
func (s *OrganizationService) Update(ctx context.Context, id primitive.ObjectID, update repository.OrganizationUpdate, requesterID primitive.ObjectID) (*OrganizationView, error) {
	ctx, span := s.startSpan(ctx, "OrganizationService.Update")
	defer span.End()

	if _, err := s.orgs.GetForAdmin(ctx, id, requesterID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, unauthorized("Not authorized to update this organization")
		}
		span.RecordError(err)
		return nil, fmt.Errorf("authorize update: %w", err)
	}

	org, err := s.orgs.UpdateFields(ctx, id, update)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("update organization: %w", err)
	}

	view, err := s.resolveView(ctx, org)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.cache.Delete(ctx, organizationCacheKey(id, requesterID))
	return &view, nil
}

// Remove soft-deletes; the requester must hold admin access.
func (s *OrganizationService) Remove(ctx context.Context, id, requesterID primitive.ObjectID) (*MessageResponse, error) {
	ctx, span := s.startSpan(ctx, "OrganizationService.Remove")
	defer span.End()

	if _, err := s.orgs.GetForAdmin(ctx, id, requesterID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, unauthorized("Not authorized to delete this organization")
		}
		span.RecordError(err)
		return nil, fmt.Errorf("authorize delete: %w", err)
	}

	if err := s.orgs.SoftDelete(ctx, id); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("delete organization: %w", err)
	}

	s.cache.Delete(ctx, organizationCacheKey(id, requesterID))
	s.logger.Info("organization deleted",
		zap.String("organization_id", id.Hex()),
		zap.String("requester_id", requesterID.Hex()))
	return &MessageResponse{Message: "Organization deleted successfully"}, nil
}

// InviteUser appends an active user as a member with the "member" access
// level and fires a best-effort invitation email.
func (s *OrganizationService) InviteUser(ctx context.Context, id primitive.ObjectID, inviteeEmail string, inviterID primitive.ObjectID) (*MessageResponse, error) {
	ctx, span := s.startSpan(ctx, "OrganizationService.InviteUser")
	defer span.End()

	org, err := s.orgs.GetForAdmin(ctx, id, inviterID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, unauthorized("Not authorized to invite users")
		}
		span.RecordError(err)
		return nil, fmt.Errorf("authorize invite: %w", err)
	}

	invitee, err := s.users.GetActiveByEmail(ctx, normalizeEmail(inviteeEmail))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("User not found")
		}
		span.RecordError(err)
		return nil, fmt.Errorf("find invitee: %w", err)
	}

	if org.HasMember(invitee.ID) {
		return nil, badRequest("User is already a member")
	}

	member := domain.Member{
		UserID:      invitee.ID,
		AccessLevel: domain.AccessMember,
		JoinedAt:    time.Now().UTC(),
	}
	if err := s.orgs.AppendMember(ctx, id, member); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("append member: %w", err)
	}

	s.sendInviteDetached(ctx, org, invitee.Email, inviterID)
	s.cache.Delete(ctx, organizationCacheKey(id, inviterID))

	return &MessageResponse{Message: "User invited successfully"}, nil
}

// sendInviteDetached resolves the inviter's display name and dispatches the
// invitation after the membership write is durable. Failure is logged only.
func (s *OrganizationService) sendInviteDetached(ctx context.Context, org domain.Organization, inviteeEmail string, inviterID primitive.ObjectID) {
	mailCtx := context.WithoutCancel(ctx)
	go func() {
		inviterName := ""
		if inviter, err := s.users.GetByID(mailCtx, inviterID); err == nil {
			inviterName = inviter.Name
		}
		if err := s.mailer.SendOrganizationInvite(mailCtx, inviteeEmail, org.Name, inviterName); err != nil {
			s.logger.Error("failed to send invitation email",
				zap.String("organization_id", org.ID.Hex()),
				zap.String("to", inviteeEmail),
				zap.Error(err))
		}
	}()
}

func (s *OrganizationService) resolveView(ctx context.Context, org domain.Organization) (OrganizationView, error) {
	ids := make([]primitive.ObjectID, 0, len(org.Members))
	for _, m := range org.Members {
		ids = append(ids, m.UserID)
	}

	users, err := s.users.ListByIDs(ctx, ids)
	if err != nil {
		return OrganizationView{}, fmt.Errorf("resolve members: %w", err)
	}

	byID := make(map[string]domain.User, len(users))
	for _, u := range users {
		byID[u.ID.Hex()] = u
	}
	return organizationView(org, byID), nil
}

func (s *OrganizationService) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	if s == nil || s.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return s.tracer.Start(ctx, name)
}
