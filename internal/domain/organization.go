package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Access levels a member can hold within an organization.
const (
	AccessAdmin  = "admin"
	AccessMember = "member"
	AccessViewer = "viewer"
)

// Member embeds a user reference inside an organization. Membership holds a
// weak reference only; deactivating the user does not touch member lists.
type Member struct {
	UserID      primitive.ObjectID `bson:"userId" json:"userId"`
	AccessLevel string             `bson:"accessLevel" json:"accessLevel"`
	JoinedAt    time.Time          `bson:"joinedAt" json:"joinedAt"`
}

// Organization is a named tenant boundary owning a membership list.
// Organizations are soft-deleted, never removed.
type Organization struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name"`
	Description string             `bson:"description,omitempty" json:"description"`
	Members     []Member           `bson:"members" json:"members"`
	IsDeleted   bool               `bson:"isDeleted" json:"-"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// HasMember reports whether the user appears in the member list.
func (o Organization) HasMember(userID primitive.ObjectID) bool {
	for _, m := range o.Members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}

// AccessLevelOf returns the member's access level, or "" for non-members.
func (o Organization) AccessLevelOf(userID primitive.ObjectID) string {
	for _, m := range o.Members {
		if m.UserID == userID {
			return m.AccessLevel
		}
	}
	return ""
}
