package database

import (
	"context"
	"time"

	"github.com/google/uuid"

	"authlink/internal/models"
)

// UserRepositoryInterface defines the user store operations consumed by the
// identity linker, middleware, and workers.
type UserRepositoryInterface interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	UpdateLastSeen(ctx context.Context, id uuid.UUID, seenAt time.Time) error
}

// LoginActivityRepositoryInterface defines the activity log operations consumed by workers
type LoginActivityRepositoryInterface interface {
	Record(ctx context.Context, activity *models.LoginActivity) error
}

// Ensure concrete types implement the interfaces
var (
	_ UserRepositoryInterface          = (*UserRepository)(nil)
	_ LoginActivityRepositoryInterface = (*LoginActivityRepository)(nil)
)
