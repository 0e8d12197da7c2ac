package db

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Collection names in the document store.
const (
	CollUsers      = "users"
	CollDevices    = "device_details"
	CollLeads      = "customer_leads"
	CollProperties = "property_details"
	CollCandles    = "candle_details"
)

// ActiveLeadIndex is the name of the partial unique index that allows one active lead per (user, property).
const ActiveLeadIndex = "uniq_active_lead_per_user_property"

// ErrInvalidID is returned when a string is not a 24-char hex ObjectID.
var ErrInvalidID = errors.New("invalid object id")

// ConnectMongo connects to uri and pings the primary. Caller must Disconnect when done.
func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	if uri == "" {
		return nil, errors.New("MONGO_URI is not set")
	}
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return client, nil
}

// MongoPinger adapts a client to the readiness Pinger interface.
type MongoPinger struct {
	Client *mongo.Client
}

// PingContext pings the primary.
func (p MongoPinger) PingContext(ctx context.Context) error {
	if p.Client == nil {
		return errors.New("mongo client not configured")
	}
	return p.Client.Ping(ctx, readpref.Primary())
}

// EnsureIndexes creates the indexes the repositories rely on. Safe to run on every start.
func EnsureIndexes(ctx context.Context, database *mongo.Database) error {
	for coll, models := range indexModels() {
		if _, err := database.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("indexes on %s: %w", coll, err)
		}
	}
	return nil
}

// indexModels returns the index definitions per collection.
func indexModels() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		CollUsers: {
			{Keys: bson.D{{Key: "mobile_number", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		CollDevices: {
			{Keys: bson.D{{Key: "user_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		CollLeads: {
			{
				Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "property_id", Value: 1}},
				Options: options.Index().
					SetName(ActiveLeadIndex).
					SetUnique(true).
					SetPartialFilterExpression(bson.D{{Key: "status", Value: "active"}}),
			},
			{Keys: bson.D{{Key: "listed_by_user_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "property_id", Value: 1}, {Key: "status", Value: 1}}},
		},
		CollProperties: {
			{Keys: bson.D{{Key: "listed_by_user_id", Value: 1}}},
		},
		CollCandles: {
			{Keys: bson.D{{Key: "property_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
	}
}

// ObjectIDFromHex parses a hex id, mapping any parse failure to ErrInvalidID.
func ObjectIDFromHex(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, ErrInvalidID
	}
	return oid, nil
}

// PageWindow converts a 1-indexed page and page size into skip/limit.
// page is clamped to [1, MaxPage]; perPage < 1 uses DefaultPerPage; perPage is capped at MaxPerPage.
func PageWindow(page, perPage int) (skip, limit int64) {
	if page < 1 {
		page = 1
	}
	if page > MaxPage {
		page = MaxPage
	}
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	return int64(page-1) * int64(perPage), int64(perPage)
}

// Paging defaults shared by list endpoints.
const (
	DefaultPerPage = 10
	MaxPerPage     = 100
	// MaxPage keeps (page-1)*MaxPerPage well inside int64.
	MaxPage = math.MaxInt32
)
