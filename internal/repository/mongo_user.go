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

// MongoUserRepo implements UserRepository on the users collection.
type MongoUserRepo struct {
	coll *mongo.Collection
}

func NewMongoUserRepo(db *mongo.Database) *MongoUserRepo {
	return &MongoUserRepo{coll: db.Collection(usersCollection)}
}

func (r *MongoUserRepo) Create(ctx context.Context, user domain.User) (domain.User, error) {
	now := time.Now().UTC()
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	if user.RefreshTokens == nil {
		user.RefreshTokens = []string{}
	}
	if user.Preferences == nil {
		user.Preferences = map[string]any{}
	}
	user.CreatedAt = now
	user.UpdatedAt = now
	user.LastLogin = now

	if _, err := r.coll.InsertOne(ctx, user); err != nil {
		return domain.User{}, mapMongoErr("insert user", err)
	}
	return user, nil
}

func (r *MongoUserRepo) GetByID(ctx context.Context, id primitive.ObjectID) (domain.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *MongoUserRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *MongoUserRepo) GetActiveByEmail(ctx context.Context, email string) (domain.User, error) {
	return r.findOne(ctx, bson.M{"email": email, "isActive": true})
}

func (r *MongoUserRepo) GetByVerificationToken(ctx context.Context, token string) (domain.User, error) {
	return r.findOne(ctx, bson.M{"emailVerificationToken": token})
}

func (r *MongoUserRepo) GetByResetToken(ctx context.Context, token string, now time.Time) (domain.User, error) {
	return r.findOne(ctx, bson.M{
		"passwordResetToken":   token,
		"passwordResetExpires": bson.M{"$gt": now},
	})
}

func (r *MongoUserRepo) List(ctx context.Context) ([]domain.User, error) {
	cursor, err := r.coll.Find(ctx, bson.M{})
	if err != nil {
		return nil, mapMongoErr("list users", err)
	}
	var users []domain.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, mapMongoErr("decode users", err)
	}
	return users, nil
}

func (r *MongoUserRepo) ListByIDs(ctx context.Context, ids []primitive.ObjectID) ([]domain.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	cursor, err := r.coll.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, mapMongoErr("list users by id", err)
	}
	var users []domain.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, mapMongoErr("decode users", err)
	}
	return users, nil
}

func (r *MongoUserRepo) UpdateProfile(ctx context.Context, id primitive.ObjectID, update UserUpdate) (domain.User, error) {
	set := bson.M{"updatedAt": time.Now().UTC()}
	if update.Name != nil {
		set["name"] = *update.Name
	}
	if update.Avatar != nil {
		set["avatar"] = *update.Avatar
	}
	return r.findOneAndUpdate(ctx, id, bson.M{"$set": set})
}

func (r *MongoUserRepo) SetPassword(ctx context.Context, id primitive.ObjectID, hash string) error {
	return r.updateOne(ctx, id, bson.M{"$set": bson.M{
		"password":      hash,
		"refreshTokens": []string{},
		"updatedAt":     time.Now().UTC(),
	}})
}

func (r *MongoUserRepo) ResetPassword(ctx context.Context, id primitive.ObjectID, hash string) error {
	return r.updateOne(ctx, id, bson.M{
		"$set": bson.M{
			"password":      hash,
			"refreshTokens": []string{},
			"updatedAt":     time.Now().UTC(),
		},
		"$unset": bson.M{
			"passwordResetToken":   "",
			"passwordResetExpires": "",
		},
	})
}

func (r *MongoUserRepo) SetResetToken(ctx context.Context, id primitive.ObjectID, token string, expires time.Time) error {
	return r.updateOne(ctx, id, bson.M{"$set": bson.M{
		"passwordResetToken":   token,
		"passwordResetExpires": expires,
		"updatedAt":            time.Now().UTC(),
	}})
}

func (r *MongoUserRepo) MarkEmailVerified(ctx context.Context, id primitive.ObjectID) error {
	return r.updateOne(ctx, id, bson.M{
		"$set":   bson.M{"isEmailVerified": true, "updatedAt": time.Now().UTC()},
		"$unset": bson.M{"emailVerificationToken": ""},
	})
}

func (r *MongoUserRepo) AppendRefreshToken(ctx context.Context, id primitive.ObjectID, hash string, max int) error {
	return r.updateOne(ctx, id, bson.M{"$push": bson.M{
		"refreshTokens": bson.M{
			"$each":  []string{hash},
			"$slice": -max,
		},
	}})
}

func (r *MongoUserRepo) SetLastLogin(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	return r.updateOne(ctx, id, bson.M{"$set": bson.M{"lastLogin": at}})
}

func (r *MongoUserRepo) SetPreferences(ctx context.Context, id primitive.ObjectID, preferences map[string]any) (domain.User, error) {
	return r.findOneAndUpdate(ctx, id, bson.M{"$set": bson.M{
		"preferences": preferences,
		"updatedAt":   time.Now().UTC(),
	}})
}

func (r *MongoUserRepo) Deactivate(ctx context.Context, id primitive.ObjectID) error {
	return r.updateOne(ctx, id, bson.M{"$set": bson.M{
		"isActive":  false,
		"updatedAt": time.Now().UTC(),
	}})
}

func (r *MongoUserRepo) findOne(ctx context.Context, filter bson.M) (domain.User, error) {
	var user domain.User
	if err := r.coll.FindOne(ctx, filter).Decode(&user); err != nil {
		return domain.User{}, mapMongoErr("find user", err)
	}
	return user, nil
}

func (r *MongoUserRepo) findOneAndUpdate(ctx context.Context, id primitive.ObjectID, update bson.M) (domain.User, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var user domain.User
	if err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&user); err != nil {
		return domain.User{}, mapMongoErr("update user", err)
	}
	return user, nil
}

func (r *MongoUserRepo) updateOne(ctx context.Context, id primitive.ObjectID, update bson.M) error {
	res, err := r.coll.UpdateByID(ctx, id, update)
	if err != nil {
		return mapMongoErr("update user", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
