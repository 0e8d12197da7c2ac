// seed inserts demo users, listings, and candle data into MONGO_DATABASE for local testing.
// Idempotent: skips everything if the demo partner's mobile number already exists.
package main

import (
	"context"
	"log"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"prospect-platform/backend/internal/config"
	"prospect-platform/backend/internal/db"
	"prospect-platform/backend/internal/platform/logger"
	propertydomain "prospect-platform/backend/internal/property/domain"
	propertyrepo "prospect-platform/backend/internal/property/repository"
	"prospect-platform/backend/internal/security"
	userdomain "prospect-platform/backend/internal/user/domain"
	userrepo "prospect-platform/backend/internal/user/repository"
)

const (
	demoPassword  = "password123"
	demoPIN       = "1234"
	partnerMobile = "9000000001"
)

var demoUsers = []userdomain.User{
	{MobileNumber: partnerMobile, Email: "partner@example.com", Name: "Demo Partner", UserType: userdomain.UserTypePartner},
	{MobileNumber: "9000000002", Email: "customer@example.com", Name: "Demo Customer", UserType: userdomain.UserTypeCustomer},
	{MobileNumber: "9000000003", Email: "admin@example.com", Name: "Demo Admin", UserType: userdomain.UserTypeAdmin},
}

var demoListings = []struct {
	title, address, logo string
	prices               []int64
}{
	{"Palm Grove Residences", "12 Palm Ave", "logos/palm-grove.png", []int64{100, 104, 98, 112, 150}},
	{"Harbour View Towers", "3 Quay St", "logos/harbour-view.png", []int64{250, 240, 245}},
	{"Cedar Park Villas", "88 Cedar Rd", "logos/cedar-park.png", []int64{80}},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	zl, err := logger.New(logger.Config{Level: cfg.LogLevel, Environment: cfg.Env, ServiceName: "prospect-seed"})
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	client, err := db.ConnectMongo(ctx, cfg.MongoURI)
	if err != nil {
		zl.Fatal("mongo connect", zap.Error(err))
	}
	defer func() { _ = client.Disconnect(context.Background()) }()
	database := client.Database(cfg.MongoDatabase)
	if err := db.EnsureIndexes(ctx, database); err != nil {
		zl.Fatal("mongo indexes", zap.Error(err))
	}

	users := userrepo.NewMongoRepository(database)
	existing, err := users.GetByMobile(ctx, partnerMobile)
	if err != nil {
		zl.Fatal("lookup demo partner", zap.Error(err))
	}
	if existing != nil {
		zl.Info("demo data already present; nothing to do", zap.String("partner_id", existing.ID))
		return
	}

	hash, err := security.NewHasher(cfg.BcryptCost).Hash([]byte(demoPassword))
	if err != nil {
		zl.Fatal("hash password", zap.Error(err))
	}
	now := time.Now().UTC()
	var partnerID string
	for i := range demoUsers {
		u := demoUsers[i]
		u.PasswordHash = hash
		u.SecurePIN = demoPIN
		u.IsActive = true
		u.CreatedAt = now
		u.UpdatedAt = now
		if err := users.Create(ctx, &u); err != nil {
			zl.Fatal("create user", zap.String("mobile", u.MobileNumber), zap.Error(err))
		}
		if u.UserType == userdomain.UserTypePartner {
			partnerID = u.ID
		}
		zl.Info("seeded user", zap.String("id", u.ID), zap.String("user_type", string(u.UserType)))
	}

	properties := propertyrepo.NewMongoRepository(database)
	for _, l := range demoListings {
		p := &propertydomain.Property{
			ListedByUserID: partnerID,
			Title:          l.title,
			Address:        l.address,
			Logo:           l.logo,
			Price:          decimal.NewFromInt(l.prices[len(l.prices)-1]),
		}
		if err := properties.Create(ctx, p); err != nil {
			zl.Fatal("create property", zap.String("title", l.title), zap.Error(err))
		}
		points := make([]propertydomain.PricePoint, len(l.prices))
		start := now.Add(-time.Duration(len(l.prices)) * 24 * time.Hour)
		for i, price := range l.prices {
			points[i] = propertydomain.PricePoint{
				Price:     decimal.NewFromInt(price),
				Timestamp: start.Add(time.Duration(i) * 24 * time.Hour),
			}
		}
		if err := properties.SaveCandles(ctx, p.ID, points); err != nil {
			zl.Fatal("save candles", zap.String("property_id", p.ID), zap.Error(err))
		}
		zl.Info("seeded property", zap.String("id", p.ID), zap.String("title", l.title), zap.Int("candles", len(points)))
	}

	zl.Info("seed complete",
		zap.String("password", demoPassword),
		zap.String("secure_pin", demoPIN),
		zap.String("partner_mobile", partnerMobile),
	)
}
