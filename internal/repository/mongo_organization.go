package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/smallbiznis/valora-accounts/internal/domain"
)

// MongoOrganizationRepo implements OrganizationRepository on the
// organizations collection.
type MongoOrganizationRepo struct {
	coll *mongo.Collection
}

func NewMongoOrganizationRepo(db *mongo.Database) *MongoOrganizationRepo {
	return &MongoOrganizationRepo{coll: db.Collection(organizationsCollection)}
}

func (r *MongoOrganizationRepo) Create(ctx context.Context, org domain.Organization) (domain.Organization, error) {
	now := time.Now().UTC()
	if org.ID.IsZero() {
		org.ID = primitive.NewObjectID()
	}
	org.CreatedAt = now
	org.UpdatedAt = now

	if _, err := r.coll.InsertOne(ctx, org); err != nil {
		return domain.Organization{}, mapMongoErr("insert organization", err)
	}
	return org, nil
}

func (r *MongoOrganizationRepo) GetVisible(ctx context.Context, id, userID primitive.ObjectID) (domain.Organization, error) {
	return r.findOne(ctx, bson.M{
		"_id":            id,
		"members.userId": userID,
		"isDeleted":      false,
	})
}

// GetForAdmin requires the userID and the admin access level on the same
// member element.
func (r *MongoOrganizationRepo) GetForAdmin(ctx context.Context, id, userID primitive.ObjectID) (domain.Organization, error) {
	return r.findOne(ctx, bson.M{
		"_id": id,
		"members": bson.M{"$elemMatch": bson.M{
			"userId":      userID,
			"accessLevel": domain.AccessAdmin,
		}},
		"isDeleted": false,
	})
}

func (r *MongoOrganizationRepo) ListByMember(ctx context.Context, userID primitive.ObjectID, skip, limit int64) ([]domain.Organization, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(skip).
		SetLimit(limit)

	cursor, err := r.coll.Find(ctx, memberFilter(userID), opts)
	if err != nil {
		return nil, mapMongoErr("list organizations", err)
	}
	var orgs []domain.Organization
	if err := cursor.All(ctx, &orgs); err != nil {
		return nil, mapMongoErr("decode organizations", err)
	}
	return orgs, nil
}

func (r *MongoOrganizationRepo) CountByMember(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	total, err := r.coll.CountDocuments(ctx, memberFilter(userID))
	if err != nil {
		return 0, mapMongoErr("count organizations", err)
	}
	return total, nil
}

func (r *MongoOrganizationRepo) UpdateFields(ctx context.Context, id primitive.ObjectID, update OrganizationUpdate) (domain.Organization, error) {
	set := bson.M{"updatedAt": time.Now().UTC()}
	if update.Name != nil {
		set["name"] = *update.Name
	}
	if update.Description != nil {
		set["description"] = *update.Description
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var org domain.Organization
	if err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&org); err != nil {
		return domain.Organization{}, mapMongoErr("update organization", err)
	}
	return org, nil
}

func (r *MongoOrganizationRepo) SoftDelete(ctx context.Context, id primitive.ObjectID) error {
	return r.updateOne(ctx, id, bson.M{"$set": bson.M{
		"isDeleted": true,
		"updatedAt": time.Now().UTC(),
	}})
}

func (r *MongoOrganizationRepo) AppendMember(ctx context.Context, id primitive.ObjectID, member domain.Member) error {
	return r.updateOne(ctx, id, bson.M{
		"$push": bson.M{"members": member},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	})
}

func memberFilter(userID primitive.ObjectID) bson.M {
	return bson.M{
		"members.userId": userID,
		"isDeleted":      false,
	}
}

func (r *MongoOrganizationRepo) findOne(ctx context.Context, filter bson.M) (domain.Organization, error) {
	var org domain.Organization
	if err := r.coll.FindOne(ctx, filter).Decode(&org); err != nil {
		return domain.Organization{}, mapMongoErr("find organization", err)
	}
	return org, nil
}

func (r *MongoOrganizationRepo) updateOne(ctx context.Context, id primitive.ObjectID, update bson.M) error {
	res, err := r.coll.UpdateByID(ctx, id, update)
	if err != nil {
		return mapMongoErr("update organization", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
