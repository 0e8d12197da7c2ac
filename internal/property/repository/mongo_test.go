package repository

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestCandlesToDomain_SortsByTimestamp(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	data := []candlePoint{
		{Price: 150, Timestamp: t0.Add(2 * time.Hour)},
		{Price: 100, Timestamp: t0},
		{Price: 120, Timestamp: t0.Add(time.Hour)},
	}
	got := candlesToDomain(data)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	want := []int64{100, 120, 150}
	for i, w := range want {
		if !got[i].Price.Equal(decimal.NewFromInt(w)) {
			t.Errorf("point %d price = %s, want %d", i, got[i].Price, w)
		}
	}
}

func TestCandlesToDomain_Empty(t *testing.T) {
	if got := candlesToDomain(nil); got != nil {
		t.Errorf("candlesToDomain(nil) = %v, want nil", got)
	}
}

func TestPropertyToDomain(t *testing.T) {
	oid := primitive.NewObjectID()
	p := propertyToDomain(&propertyDoc{ID: oid, ListedByUserID: "owner", Title: "Tower A", Logo: "logos/a.png", Price: 2500000.5})
	if p.ID != oid.Hex() {
		t.Errorf("ID = %q, want %q", p.ID, oid.Hex())
	}
	if !p.Price.Equal(decimal.RequireFromString("2500000.5")) {
		t.Errorf("Price = %s", p.Price)
	}
}
