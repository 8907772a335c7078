package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	usersCollection         = "users"
	organizationsCollection = "organizations"
)

// Compile-time interface assertions.
var (
	_ UserRepository         = (*MongoUserRepo)(nil)
	_ OrganizationRepository = (*MongoOrganizationRepo)(nil)
)

// EnsureIndexes declares the secondary indexes both repositories rely on.
// Safe to call on every startup; Mongo treats matching definitions as no-ops.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	users := db.Collection(usersCollection)
	_, err := users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "emailVerificationToken", Value: 1}}},
		{Keys: bson.D{{Key: "passwordResetToken", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("ensure user indexes: %w", err)
	}
	return nil
}

func mapMongoErr(op string, err error) error {
	if err == mongo.ErrNoDocuments {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}

// IsDuplicateKey reports whether the error is a unique-index violation,
// which the services map to a Conflict.
func IsDuplicateKey(err error) bool {
	return mongo.IsDuplicateKeyError(err)
}
