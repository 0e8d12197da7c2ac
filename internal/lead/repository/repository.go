package repository

import (
	"context"
	"errors"

	"prospect-platform/backend/internal/lead/domain"
)

// ErrDuplicateActive is returned by Create and UpdateStatus when the write would leave two active
// leads for the same (user, property).
var ErrDuplicateActive = errors.New("active lead already exists for user and property")

// Repository defines persistence for leads.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Lead, error)
	FindActive(ctx context.Context, userID, propertyID string) (*domain.Lead, error)
	Create(ctx context.Context, l *domain.Lead) error
	ListByOwner(ctx context.Context, ownerUserID string, skip, limit int64) ([]*domain.Lead, error)
	CountByOwner(ctx context.Context, ownerUserID string) (int64, error)
	CountActiveByProperty(ctx context.Context, propertyID string) (int64, error)
	UpdateStatus(ctx context.Context, id string, status domain.Status) (*domain.Lead, error)
}
