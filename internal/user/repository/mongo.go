package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"prospect-platform/backend/internal/db"
	"prospect-platform/backend/internal/user/domain"
)

type userDoc struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	MobileNumber string             `bson:"mobile_number"`
	Email        string             `bson:"email"`
	Name         string             `bson:"name,omitempty"`
	Password     string             `bson:"password"`
	SecurePIN    string             `bson:"secure_pin,omitempty"`
	IsActive     bool               `bson:"is_active"`
	UserType     string             `bson:"user_type"`
	LastLoginAt  *time.Time         `bson:"last_login_at,omitempty"`
	CreatedAt    time.Time          `bson:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at"`
}

// MongoRepository stores users in the users collection.
type MongoRepository struct {
	coll *mongo.Collection
}

var _ Repository = (*MongoRepository)(nil)

// NewMongoRepository returns a user repository backed by database.
func NewMongoRepository(database *mongo.Database) *MongoRepository {
	return &MongoRepository{coll: database.Collection(db.CollUsers)}
}

// GetByID returns the user for id, or nil if not found or id is malformed.
func (r *MongoRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	oid, err := db.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

// GetByMobile returns the user registered with mobileNumber, or nil if none.
func (r *MongoRepository) GetByMobile(ctx context.Context, mobileNumber string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"mobile_number": mobileNumber})
}

func (r *MongoRepository) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	var doc userDoc
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return docToDomain(&doc), nil
}

// Create inserts u and sets u.ID from the generated ObjectID when empty.
func (r *MongoRepository) Create(ctx context.Context, u *domain.User) error {
	doc := domainToDoc(u)
	if u.ID != "" {
		oid, err := db.ObjectIDFromHex(u.ID)
		if err != nil {
			return err
		}
		doc.ID = oid
	}
	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		u.ID = oid.Hex()
	}
	return nil
}

// UpdateLastLogin sets last_login_at. A missing user is not an error.
func (r *MongoRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	oid, err := db.ObjectIDFromHex(id)
	if err != nil {
		return err
	}
	_, err = r.coll.UpdateOne(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": bson.M{"last_login_at": at, "updated_at": at}},
	)
	return err
}

func docToDomain(d *userDoc) *domain.User {
	return &domain.User{
		ID:           d.ID.Hex(),
		MobileNumber: d.MobileNumber,
		Email:        d.Email,
		Name:         d.Name,
		PasswordHash: d.Password,
		SecurePIN:    d.SecurePIN,
		IsActive:     d.IsActive,
		UserType:     domain.UserType(d.UserType),
		LastLoginAt:  d.LastLoginAt,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

func domainToDoc(u *domain.User) *userDoc {
	return &userDoc{
		MobileNumber: u.MobileNumber,
		Email:        u.Email,
		Name:         u.Name,
		Password:     u.PasswordHash,
		SecurePIN:    u.SecurePIN,
		IsActive:     u.IsActive,
		UserType:     string(u.UserType),
		LastLoginAt:  u.LastLoginAt,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}
