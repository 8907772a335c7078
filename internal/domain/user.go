package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AccountRole values stored on User.Role.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is the authoritative account record. Password and RefreshTokens hold
// argon2id hashes and are never serialized to JSON.
type User struct {
	ID                     primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name                   string             `bson:"name" json:"name"`
	Email                  string             `bson:"email" json:"email"`
	Password               string             `bson:"password" json:"-"`
	RefreshTokens          []string           `bson:"refreshTokens" json:"-"`
	IsEmailVerified        bool               `bson:"isEmailVerified" json:"isEmailVerified"`
	EmailVerificationToken string             `bson:"emailVerificationToken,omitempty" json:"-"`
	PasswordResetToken     string             `bson:"passwordResetToken,omitempty" json:"-"`
	PasswordResetExpires   *time.Time         `bson:"passwordResetExpires,omitempty" json:"-"`
	Role                   string             `bson:"role" json:"role"`
	IsActive               bool               `bson:"isActive" json:"isActive"`
	LastLogin              time.Time          `bson:"lastLogin" json:"lastLogin"`
	Avatar                 string             `bson:"avatar,omitempty" json:"avatar,omitempty"`
	Preferences            map[string]any     `bson:"preferences" json:"preferences"`
	CreatedAt              time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt              time.Time          `bson:"updatedAt" json:"updatedAt"`
}
