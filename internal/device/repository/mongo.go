package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"prospect-platform/backend/internal/db"
	"prospect-platform/backend/internal/device/domain"
)

type bindingDoc struct {
	UserID      string    `bson:"user_id"`
	DeviceToken string    `bson:"device_token"`
	DeviceID    string    `bson:"device_id"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

// MongoRepository stores bindings in the device_details collection keyed by user_id.
type MongoRepository struct {
	coll *mongo.Collection
}

var _ Repository = (*MongoRepository)(nil)

// NewMongoRepository returns a device binding repository backed by database.
func NewMongoRepository(database *mongo.Database) *MongoRepository {
	return &MongoRepository{coll: database.Collection(db.CollDevices)}
}

// GetByUser returns the binding for userID, or nil if none.
func (r *MongoRepository) GetByUser(ctx context.Context, userID string) (*domain.Binding, error) {
	var doc bindingDoc
	if err := r.coll.FindOne(ctx, bson.M{"user_id": userID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return docToDomain(&doc), nil
}

// Upsert sets the device token and id for b.UserID, creating the document if absent.
func (r *MongoRepository) Upsert(ctx context.Context, b *domain.Binding) (*domain.Binding, error) {
	if b.UpdatedAt.IsZero() {
		b.UpdatedAt = time.Now().UTC()
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var doc bindingDoc
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"user_id": b.UserID},
		bson.M{"$set": bson.M{
			"device_token": b.DeviceToken,
			"device_id":    b.DeviceID,
			"updated_at":   b.UpdatedAt,
		}},
		opts,
	).Decode(&doc)
	if err != nil {
		return nil, err
	}
	return docToDomain(&doc), nil
}

func docToDomain(d *bindingDoc) *domain.Binding {
	return &domain.Binding{
		UserID:      d.UserID,
		DeviceToken: d.DeviceToken,
		DeviceID:    d.DeviceID,
		UpdatedAt:   d.UpdatedAt,
	}
}
