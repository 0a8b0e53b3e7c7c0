package database

import (
	"context"
	"time"

	"github.com/dearfuture/letterbox/internal/models"
	"github.com/google/uuid"
)

// LetterRepositoryInterface defines the interface for letter repository operations
// This interface enables better testability by allowing mock implementations
type LetterRepositoryInterface interface {
	Create(ctx context.Context, letter *models.Letter) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Letter, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) ([]*models.Letter, error)
	GetDueUndelivered(ctx context.Context, asOf time.Time) ([]*models.Letter, error)
	Update(ctx context.Context, letter *models.Letter) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// UserStatsRepositoryInterface defines the interface for user stats repository operations
type UserStatsRepositoryInterface interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.UserStats, error)
	Upsert(ctx context.Context, stats *models.UserStats) error
}

// UserRepositoryInterface defines the interface for user repository operations
type UserRepositoryInterface interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByProviderID(ctx context.Context, providerID string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
}

// Ensure concrete types implement the interfaces
var (
	_ LetterRepositoryInterface    = (*LetterRepository)(nil)
	_ UserStatsRepositoryInterface = (*UserStatsRepository)(nil)
	_ UserRepositoryInterface      = (*UserRepository)(nil)
)
