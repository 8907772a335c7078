package service

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/smallbiznis/valora-accounts/internal/domain"
	"github.com/smallbiznis/valora-accounts/internal/repository"
)

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[primitive.ObjectID]domain.User)}
}

var _ repository.UserRepository = (*fakeUserRepo)(nil)

func (r *fakeUserRepo) put(user domain.User) domain.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	r.users[user.ID] = user
	return user
}

func (r *fakeUserRepo) get(id primitive.ObjectID) (domain.User, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	return u, ok
}

func (r *fakeUserRepo) remove(id primitive.ObjectID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, id)
}

func (r *fakeUserRepo) Create(_ context.Context, user domain.User) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.RefreshTokens == nil {
		user.RefreshTokens = []string{}
	}
	r.users[user.ID] = user
	return user, nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id primitive.ObjectID) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		return u, nil
	}
	return domain.User{}, repository.ErrNotFound
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (domain.User, error) {
	return r.find(func(u domain.User) bool { return u.Email == email })
}

func (r *fakeUserRepo) GetActiveByEmail(_ context.Context, email string) (domain.User, error) {
	return r.find(func(u domain.User) bool { return u.Email == email && u.IsActive })
}

func (r *fakeUserRepo) GetByVerificationToken(_ context.Context, token string) (domain.User, error) {
	return r.find(func(u domain.User) bool {
		return token != "" && u.EmailVerificationToken == token
	})
}

func (r *fakeUserRepo) GetByResetToken(_ context.Context, token string, now time.Time) (domain.User, error) {
	return r.find(func(u domain.User) bool {
		return token != "" && u.PasswordResetToken == token &&
			u.PasswordResetExpires != nil && u.PasswordResetExpires.After(now)
	})
}

func (r *fakeUserRepo) List(_ context.Context) ([]domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.Hex() < out[j].ID.Hex() })
	return out, nil
}

func (r *fakeUserRepo) ListByIDs(_ context.Context, ids []primitive.ObjectID) ([]domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := r.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *fakeUserRepo) UpdateProfile(_ context.Context, id primitive.ObjectID, update repository.UserUpdate) (domain.User, error) {
	return r.mutate(id, func(u *domain.User) {
		if update.Name != nil {
			u.Name = *update.Name
		}
		if update.Avatar != nil {
			u.Avatar = *update.Avatar
		}
	})
}

func (r *fakeUserRepo) SetPassword(_ context.Context, id primitive.ObjectID, hash string) error {
	_, err := r.mutate(id, func(u *domain.User) {
		u.Password = hash
		u.RefreshTokens = []string{}
	})
	return err
}

func (r *fakeUserRepo) ResetPassword(_ context.Context, id primitive.ObjectID, hash string) error {
	_, err := r.mutate(id, func(u *domain.User) {
		u.Password = hash
		u.RefreshTokens = []string{}
		u.PasswordResetToken = ""
		u.PasswordResetExpires = nil
	})
	return err
}

func (r *fakeUserRepo) SetResetToken(_ context.Context, id primitive.ObjectID, token string, expires time.Time) error {
	_, err := r.mutate(id, func(u *domain.User) {
		u.PasswordResetToken = token
		u.PasswordResetExpires = &expires
	})
	return err
}

func (r *fakeUserRepo) MarkEmailVerified(_ context.Context, id primitive.ObjectID) error {
	_, err := r.mutate(id, func(u *domain.User) {
		u.IsEmailVerified = true
		u.EmailVerificationToken = ""
	})
	return err
}

func (r *fakeUserRepo) AppendRefreshToken(_ context.Context, id primitive.ObjectID, hash string, max int) error {
	_, err := r.mutate(id, func(u *domain.User) {
		u.RefreshTokens = append(u.RefreshTokens, hash)
		if len(u.RefreshTokens) > max {
			u.RefreshTokens = u.RefreshTokens[len(u.RefreshTokens)-max:]
		}
	})
	return err
}

func (r *fakeUserRepo) SetLastLogin(_ context.Context, id primitive.ObjectID, at time.Time) error {
	_, err := r.mutate(id, func(u *domain.User) {
		u.LastLogin = at
	})
	return err
}

func (r *fakeUserRepo) SetPreferences(_ context.Context, id primitive.ObjectID, preferences map[string]any) (domain.User, error) {
	return r.mutate(id, func(u *domain.User) {
		u.Preferences = preferences
	})
}

func (r *fakeUserRepo) Deactivate(_ context.Context, id primitive.ObjectID) error {
	_, err := r.mutate(id, func(u *domain.User) {
		u.IsActive = false
	})
	return err
}

func (r *fakeUserRepo) find(match func(domain.User) bool) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if match(u) {
			return u, nil
		}
	}
	return domain.User{}, repository.ErrNotFound
}

func (r *fakeUserRepo) mutate(id primitive.ObjectID, apply func(*domain.User)) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return domain.User{}, repository.ErrNotFound
	}
	apply(&u)
	u.UpdatedAt = time.Now().UTC()
	r.users[id] = u
	return u, nil
}

type fakeOrgRepo struct {
	mu    sync.Mutex
	orgs  map[primitive.ObjectID]domain.Organization
	order []primitive.ObjectID
}

func newFakeOrgRepo() *fakeOrgRepo {
	return &fakeOrgRepo{orgs: make(map[primitive.ObjectID]domain.Organization)}
}

var _ repository.OrganizationRepository = (*fakeOrgRepo)(nil)

func (r *fakeOrgRepo) get(id primitive.ObjectID) (domain.Organization, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orgs[id]
	return o, ok
}

func (r *fakeOrgRepo) Create(_ context.Context, org domain.Organization) (domain.Organization, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	org.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	org.CreatedAt = now
	org.UpdatedAt = now
	r.orgs[org.ID] = org
	r.order = append(r.order, org.ID)
	return org, nil
}

func (r *fakeOrgRepo) GetVisible(_ context.Context, id, userID primitive.ObjectID) (domain.Organization, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	org, ok := r.orgs[id]
	if !ok || org.IsDeleted || !org.HasMember(userID) {
		return domain.Organization{}, repository.ErrNotFound
	}
	return org, nil
}

func (r *fakeOrgRepo) GetForAdmin(_ context.Context, id, userID primitive.ObjectID) (domain.Organization, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	org, ok := r.orgs[id]
	if !ok || org.IsDeleted || org.AccessLevelOf(userID) != domain.AccessAdmin {
		return domain.Organization{}, repository.ErrNotFound
	}
	return org, nil
}

func (r *fakeOrgRepo) ListByMember(_ context.Context, userID primitive.ObjectID, skip, limit int64) ([]domain.Organization, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []domain.Organization
	for i := len(r.order) - 1; i >= 0; i-- {
		org := r.orgs[r.order[i]]
		if !org.IsDeleted && org.HasMember(userID) {
			matched = append(matched, org)
		}
	}
	if skip >= int64(len(matched)) {
		return nil, nil
	}
	matched = matched[skip:]
	if int64(len(matched)) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (r *fakeOrgRepo) CountByMember(_ context.Context, userID primitive.ObjectID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, org := range r.orgs {
		if !org.IsDeleted && org.HasMember(userID) {
			n++
		}
	}
	return n, nil
}

func (r *fakeOrgRepo) UpdateFields(_ context.Context, id primitive.ObjectID, update repository.OrganizationUpdate) (domain.Organization, error) {
	return r.mutate(id, func(o *domain.Organization) {
		if update.Name != nil {
			o.Name = *update.Name
		}
		if update.Description != nil {
			o.Description = *update.Description
		}
	})
}

func (r *fakeOrgRepo) SoftDelete(_ context.Context, id primitive.ObjectID) error {
	_, err := r.mutate(id, func(o *domain.Organization) {
		o.IsDeleted = true
	})
	return err
}

func (r *fakeOrgRepo) AppendMember(_ context.Context, id primitive.ObjectID, member domain.Member) error {
	_, err := r.mutate(id, func(o *domain.Organization) {
		o.Members = append(o.Members, member)
	})
	return err
}

func (r *fakeOrgRepo) mutate(id primitive.ObjectID, apply func(*domain.Organization)) (domain.Organization, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	org, ok := r.orgs[id]
	if !ok || org.IsDeleted {
		return domain.Organization{}, repository.ErrNotFound
	}
	apply(&org)
	org.UpdatedAt = time.Now().UTC()
	r.orgs[id] = org
	return org, nil
}

// fakeCache stores JSON-encoded entries in memory, mirroring the redis
// adapter closely enough to observe hits, writes, and invalidations.
type fakeCache struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string][]byte)}
}

var _ Cache = (*fakeCache)(nil)

func (c *fakeCache) Get(_ context.Context, key string, dest any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.entries[key]
	if !ok {
		return false
	}
	return json.Unmarshal(raw, dest) == nil
}

func (c *fakeCache) Set(_ context.Context, key string, value any, _ time.Duration) {
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = raw
}

func (c *fakeCache) Delete(_ context.Context, keys ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range keys {
		delete(c.entries, key)
	}
}

func (c *fakeCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok
}

type mailRecord struct {
	kind string
	to   string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []mailRecord
}

var _ Mailer = (*fakeMailer)(nil)

func (m *fakeMailer) SendWelcome(_ context.Context, to, _ string) error {
	m.record("welcome", to)
	return nil
}

func (m *fakeMailer) SendPasswordReset(_ context.Context, to, _, _ string) error {
	m.record("reset-password", to)
	return nil
}

func (m *fakeMailer) SendOrganizationInvite(_ context.Context, to, _, _ string) error {
	m.record("organization-invite", to)
	return nil
}

func (m *fakeMailer) record(kind, to string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, mailRecord{kind: kind, to: to})
}

func (m *fakeMailer) sentTo(kind, to string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range m.sent {
		if rec.kind == kind && rec.to == to {
			return true
		}
	}
	return false
}
