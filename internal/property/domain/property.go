package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Property is a listing. Only the fields the lead and project views read are modelled.
type Property struct {
	ID             string
	ListedByUserID string
	Title          string
	Address        string
	Logo           string // object key in storage; signed before it reaches a client
	Price          decimal.Decimal
}

// PricePoint is one observation in a property's candle data.
type PricePoint struct {
	Price     decimal.Decimal `json:"price"`
	Timestamp time.Time       `json:"timestamp"`
}

// PriceChange is the movement between the first and last price point.
type PriceChange struct {
	Change        decimal.Decimal
	ChangePercent decimal.Decimal
}

var hundred = decimal.NewFromInt(100)

// Summarize computes change = last - first and change percent = change / first * 100 over
// time-ordered points. Fewer than two points, or a zero first price, yields zero for both.
func Summarize(points []PricePoint) PriceChange {
	if len(points) < 2 {
		return PriceChange{Change: decimal.Zero, ChangePercent: decimal.Zero}
	}
	first := points[0].Price
	change := points[len(points)-1].Price.Sub(first)
	if first.IsZero() {
		return PriceChange{Change: change, ChangePercent: decimal.Zero}
	}
	return PriceChange{
		Change:        change,
		ChangePercent: change.Mul(hundred).Div(first),
	}
}
