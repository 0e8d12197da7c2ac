package repository

import (
	"context"
	"time"

	"prospect-platform/backend/internal/user/domain"
)

// Repository defines persistence for users.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByMobile(ctx context.Context, mobileNumber string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
}
