package otp

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const mongoCollection = "otp_verifications"

type mongoVerification struct {
	PhoneKey       string    `bson:"phone_key"`
	VerificationID string    `bson:"verification_id"`
	CodeHash       string    `bson:"code_hash"`
	ExpiresAt      time.Time `bson:"expires_at"`
	Attempts       int       `bson:"attempts"`
	CreatedAt      time.Time `bson:"created_at"`
	UpdatedAt      time.Time `bson:"updated_at"`
}

func (d mongoVerification) toModel() PendingVerification {
	return PendingVerification{
		ID:        d.VerificationID,
		PhoneKey:  d.PhoneKey,
		CodeHash:  d.CodeHash,
		ExpiresAt: d.ExpiresAt.UTC(),
		Attempts:  d.Attempts,
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
	}
}

// MongoStore keeps pending verifications in a collection with a TTL index on
// expires_at, so MongoDB's monitor removes expired documents on its own.
type MongoStore struct {
	coll *mongo.Collection
}

// NewMongoStore builds a Mongo-backed verification store in db.
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{coll: db.Collection(mongoCollection)}
}

// EnsureIndexes creates the unique phone index and the expiry TTL index.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "phone_key", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32(ExpiredRetention / time.Second)),
		},
	})
	return err
}

// Upsert replaces the pending verification for phoneKey.
func (s *MongoStore) Upsert(ctx context.Context, phoneKey, codeHash string, expiresAt time.Time) (PendingVerification, error) {
	now := time.Now().UTC()
	id := uuid.NewString()
	filter := bson.M{"phone_key": phoneKey}
	update := bson.M{
		"$set": bson.M{
			"verification_id": id,
			"code_hash":       codeHash,
			"expires_at":      expiresAt.UTC(),
			"attempts":        0,
			"updated_at":      now,
		},
		"$setOnInsert": bson.M{"created_at": now},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var doc mongoVerification
	err := s.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if mongo.IsDuplicateKeyError(err) {
		// Two upserts raced on insert; the retry takes the update path.
		err = s.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	}
	if err != nil {
		return PendingVerification{}, err
	}
	return doc.toModel(), nil
}

// Find returns the pending verification for phoneKey.
func (s *MongoStore) Find(ctx context.Context, phoneKey string) (PendingVerification, error) {
	var doc mongoVerification
	if err := s.coll.FindOne(ctx, bson.M{"phone_key": phoneKey}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return PendingVerification{}, ErrNotFound
		}
		return PendingVerification{}, err
	}
	return doc.toModel(), nil
}

// IncrementAttempts bumps the mismatch counter of the record identified by id.
func (s *MongoStore) IncrementAttempts(ctx context.Context, phoneKey, id string) (int, error) {
	var doc mongoVerification
	err := s.coll.FindOneAndUpdate(ctx,
		bson.M{"phone_key": phoneKey, "verification_id": id},
		bson.M{"$inc": bson.M{"attempts": 1}, "$set": bson.M{"updated_at": time.Now().UTC()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return doc.Attempts, nil
}

// Delete removes the record identified by id and reports whether it existed.
func (s *MongoStore) Delete(ctx context.Context, phoneKey, id string) (bool, error) {
	res, err := s.coll.DeleteOne(ctx, bson.M{"phone_key": phoneKey, "verification_id": id})
	if err != nil {
		return false, err
	}
	return res.DeletedCount == 1, nil
}

// DeleteExpired removes expired documents ahead of the TTL monitor, which only runs once a minute.
func (s *MongoStore) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.coll.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lt": before.UTC()}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
