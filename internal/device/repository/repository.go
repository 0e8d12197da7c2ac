package repository

import (
	"context"

	"prospect-platform/backend/internal/device/domain"
)

// Repository defines persistence for device bindings.
type Repository interface {
	GetByUser(ctx context.Context, userID string) (*domain.Binding, error)
	// Upsert replaces the user's binding (last write wins) and returns the stored record.
	Upsert(ctx context.Context, b *domain.Binding) (*domain.Binding, error)
}
