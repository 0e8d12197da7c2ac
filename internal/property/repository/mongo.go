package repository

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"prospect-platform/backend/internal/db"
	"prospect-platform/backend/internal/property/domain"
)

type propertyDoc struct {
	ID             primitive.ObjectID `bson:"_id,omitempty"`
	ListedByUserID string             `bson:"listed_by_user_id"`
	Title          string             `bson:"title"`
	Address        string             `bson:"address"`
	Logo           string             `bson:"logo"`
	Price          float64            `bson:"price"`
}

type candleDoc struct {
	PropertyID string        `bson:"property_id"`
	CandleData []candlePoint `bson:"candle_data"`
}

type candlePoint struct {
	Price     float64   `bson:"price"`
	Timestamp time.Time `bson:"timestamp"`
}

// listProjection limits list reads to what the project summary shows.
var listProjection = bson.D{
	{Key: "_id", Value: 1},
	{Key: "listed_by_user_id", Value: 1},
	{Key: "title", Value: 1},
	{Key: "logo", Value: 1},
	{Key: "address", Value: 1},
	{Key: "price", Value: 1},
}

// MongoRepository reads property_details and candle_details.
type MongoRepository struct {
	properties *mongo.Collection
	candles    *mongo.Collection
}

var _ Repository = (*MongoRepository)(nil)

// NewMongoRepository returns a property repository backed by database.
func NewMongoRepository(database *mongo.Database) *MongoRepository {
	return &MongoRepository{
		properties: database.Collection(db.CollProperties),
		candles:    database.Collection(db.CollCandles),
	}
}

// GetByID returns the property for id, or nil if not found or id is malformed.
func (r *MongoRepository) GetByID(ctx context.Context, id string) (*domain.Property, error) {
	oid, err := db.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}
	var doc propertyDoc
	err = r.properties.FindOne(ctx, bson.M{"_id": oid}, options.FindOne().SetProjection(listProjection)).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return propertyToDomain(&doc), nil
}

// ListByOwner returns one page of the owner's properties in insertion order.
func (r *MongoRepository) ListByOwner(ctx context.Context, ownerUserID string, skip, limit int64) ([]*domain.Property, error) {
	opts := options.Find().
		SetProjection(listProjection).
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetSkip(skip).
		SetLimit(limit)
	cur, err := r.properties.Find(ctx, bson.M{"listed_by_user_id": ownerUserID}, opts)
	if err != nil {
		return nil, err
	}
	var docs []propertyDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]*domain.Property, len(docs))
	for i := range docs {
		out[i] = propertyToDomain(&docs[i])
	}
	return out, nil
}

// CountByOwner counts all of the owner's properties.
func (r *MongoRepository) CountByOwner(ctx context.Context, ownerUserID string) (int64, error) {
	return r.properties.CountDocuments(ctx, bson.M{"listed_by_user_id": ownerUserID})
}

// GetCandles returns the property's price points sorted by timestamp; nil when it has none.
func (r *MongoRepository) GetCandles(ctx context.Context, propertyID string) ([]domain.PricePoint, error) {
	var doc candleDoc
	err := r.candles.FindOne(ctx, bson.M{"property_id": propertyID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return candlesToDomain(doc.CandleData), nil
}

// Create inserts p and sets p.ID when empty.
func (r *MongoRepository) Create(ctx context.Context, p *domain.Property) error {
	price, _ := p.Price.Float64()
	doc := propertyDoc{
		ListedByUserID: p.ListedByUserID,
		Title:          p.Title,
		Address:        p.Address,
		Logo:           p.Logo,
		Price:          price,
	}
	res, err := r.properties.InsertOne(ctx, doc)
	if err != nil {
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		p.ID = oid.Hex()
	}
	return nil
}

// SaveCandles replaces the property's candle data.
func (r *MongoRepository) SaveCandles(ctx context.Context, propertyID string, points []domain.PricePoint) error {
	data := make([]candlePoint, len(points))
	for i, p := range points {
		f, _ := p.Price.Float64()
		data[i] = candlePoint{Price: f, Timestamp: p.Timestamp}
	}
	_, err := r.candles.UpdateOne(ctx,
		bson.M{"property_id": propertyID},
		bson.M{"$set": bson.M{"candle_data": data}},
		options.Update().SetUpsert(true),
	)
	return err
}

func propertyToDomain(d *propertyDoc) *domain.Property {
	return &domain.Property{
		ID:             d.ID.Hex(),
		ListedByUserID: d.ListedByUserID,
		Title:          d.Title,
		Address:        d.Address,
		Logo:           d.Logo,
		Price:          decimal.NewFromFloat(d.Price),
	}
}

func candlesToDomain(data []candlePoint) []domain.PricePoint {
	if len(data) == 0 {
		return nil
	}
	out := make([]domain.PricePoint, len(data))
	for i, c := range data {
		out[i] = domain.PricePoint{Price: decimal.NewFromFloat(c.Price), Timestamp: c.Timestamp}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out
}
