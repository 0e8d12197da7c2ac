package repository

import (
	"context"

	"prospect-platform/backend/internal/property/domain"
)

// Repository reads listings and their candle data. Create and SaveCandles exist for seeding.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Property, error)
	ListByOwner(ctx context.Context, ownerUserID string, skip, limit int64) ([]*domain.Property, error)
	CountByOwner(ctx context.Context, ownerUserID string) (int64, error)
	GetCandles(ctx context.Context, propertyID string) ([]domain.PricePoint, error)
	Create(ctx context.Context, p *domain.Property) error
	SaveCandles(ctx context.Context, propertyID string, points []domain.PricePoint) error
}
