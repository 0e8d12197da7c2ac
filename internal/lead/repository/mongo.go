package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"prospect-platform/backend/internal/db"
	"prospect-platform/backend/internal/lead/domain"
)

type leadDoc struct {
	ID             primitive.ObjectID `bson:"_id,omitempty"`
	ListedByUserID string             `bson:"listed_by_user_id"`
	UserID         string             `bson:"user_id"`
	PropertyID     string             `bson:"property_id"`
	Status         string             `bson:"status"`
	CreatedAt      time.Time          `bson:"created_at"`
	UpdatedAt      time.Time          `bson:"updated_at"`
}

// MongoRepository stores leads in customer_leads. The partial unique index created by
// db.EnsureIndexes backs ErrDuplicateActive.
type MongoRepository struct {
	coll *mongo.Collection
}

var _ Repository = (*MongoRepository)(nil)

// NewMongoRepository returns a lead repository backed by database.
func NewMongoRepository(database *mongo.Database) *MongoRepository {
	return &MongoRepository{coll: database.Collection(db.CollLeads)}
}

// GetByID returns the lead for id, or nil if not found or id is malformed.
func (r *MongoRepository) GetByID(ctx context.Context, id string) (*domain.Lead, error) {
	oid, err := db.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

// FindActive returns the active lead for (userID, propertyID), or nil if none.
func (r *MongoRepository) FindActive(ctx context.Context, userID, propertyID string) (*domain.Lead, error) {
	return r.findOne(ctx, bson.M{
		"user_id":     userID,
		"property_id": propertyID,
		"status":      string(domain.StatusActive),
	})
}

func (r *MongoRepository) findOne(ctx context.Context, filter bson.M) (*domain.Lead, error) {
	var doc leadDoc
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return docToDomain(&doc), nil
}

// Create inserts l and sets its ID and timestamps.
func (r *MongoRepository) Create(ctx context.Context, l *domain.Lead) error {
	now := time.Now().UTC()
	if l.CreatedAt.IsZero() {
		l.CreatedAt = now
	}
	l.UpdatedAt = now
	doc := leadDoc{
		ListedByUserID: l.ListedByUserID,
		UserID:         l.UserID,
		PropertyID:     l.PropertyID,
		Status:         string(l.Status),
		CreatedAt:      l.CreatedAt,
		UpdatedAt:      l.UpdatedAt,
	}
	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateActive
		}
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		l.ID = oid.Hex()
	}
	return nil
}

// ListByOwner returns one page of leads on the owner's listings, newest first.
func (r *MongoRepository) ListByOwner(ctx context.Context, ownerUserID string, skip, limit int64) ([]*domain.Lead, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(skip).
		SetLimit(limit)
	cur, err := r.coll.Find(ctx, bson.M{"listed_by_user_id": ownerUserID}, opts)
	if err != nil {
		return nil, err
	}
	var docs []leadDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]*domain.Lead, len(docs))
	for i := range docs {
		out[i] = docToDomain(&docs[i])
	}
	return out, nil
}

// CountByOwner counts all leads on the owner's listings.
func (r *MongoRepository) CountByOwner(ctx context.Context, ownerUserID string) (int64, error) {
	return r.coll.CountDocuments(ctx, bson.M{"listed_by_user_id": ownerUserID})
}

// CountActiveByProperty counts active leads on propertyID.
func (r *MongoRepository) CountActiveByProperty(ctx context.Context, propertyID string) (int64, error) {
	return r.coll.CountDocuments(ctx, bson.M{"property_id": propertyID, "status": string(domain.StatusActive)})
}

// UpdateStatus sets the lead's status and returns the updated lead, or nil if not found.
func (r *MongoRepository) UpdateStatus(ctx context.Context, id string, status domain.Status) (*domain.Lead, error) {
	oid, err := db.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc leadDoc
	err = r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": bson.M{"status": string(status), "updated_at": time.Now().UTC()}},
		opts,
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrDuplicateActive
		}
		return nil, err
	}
	return docToDomain(&doc), nil
}

func docToDomain(d *leadDoc) *domain.Lead {
	return &domain.Lead{
		ID:             d.ID.Hex(),
		ListedByUserID: d.ListedByUserID,
		UserID:         d.UserID,
		PropertyID:     d.PropertyID,
		Status:         domain.Status(d.Status),
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
}
