package repository

import (
	"context"

	"prospect-platform/backend/internal/audit/domain"
)

// Filter narrows List and Count. Empty fields match everything.
type Filter struct {
	UserID   string
	Action   string
	Resource string
}

// Repository defines persistence for audit logs.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.AuditLog, error)
	List(ctx context.Context, f Filter, limit, offset int64) ([]*domain.AuditLog, error)
	Count(ctx context.Context, f Filter) (int64, error)
	Create(ctx context.Context, a *domain.AuditLog) error
}
