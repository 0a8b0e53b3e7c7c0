package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dearfuture/letterbox/internal/models"
	"github.com/google/uuid"
)

// UserStatsRepository handles user stats database operations. Stats rows are
// only written by the stats aggregator, never by the lifecycle engine.
type UserStatsRepository struct {
	db *DB
}

// NewUserStatsRepository creates a new user stats repository
func NewUserStatsRepository(db *DB) *UserStatsRepository {
	return &UserStatsRepository{db: db}
}

// GetByUserID retrieves stats for a user. Returns a zero-valued stats record
// (not an error) when no row exists yet, so the aggregator can treat first
// activity and later activity uniformly.
func (r *UserStatsRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.UserStats, error) {
	stats := &models.UserStats{}
	var lastActivity sql.NullTime

	query := `
		SELECT user_id, total_letters, total_reflections, goals_accomplished,
			current_streak, longest_streak, last_activity_date, created_at, updated_at
		FROM user_stats
		WHERE user_id = $1
	`

	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&stats.UserID,
		&stats.TotalLetters,
		&stats.TotalReflections,
		&stats.GoalsAccomplished,
		&stats.CurrentStreak,
		&stats.LongestStreak,
		&lastActivity,
		&stats.CreatedAt,
		&stats.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return &models.UserStats{UserID: userID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user stats: %w", err)
	}

	if lastActivity.Valid {
		stats.LastActivityDate = &lastActivity.Time
	}

	return stats, nil
}

// Upsert creates or updates the stats row for a user
func (r *UserStatsRepository) Upsert(ctx context.Context, stats *models.UserStats) error {
	query := `
		INSERT INTO user_stats (user_id, total_letters, total_reflections, goals_accomplished,
			current_streak, longest_streak, last_activity_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		ON CONFLICT (user_id) DO UPDATE
		SET total_letters = EXCLUDED.total_letters,
		    total_reflections = EXCLUDED.total_reflections,
		    goals_accomplished = EXCLUDED.goals_accomplished,
		    current_streak = EXCLUDED.current_streak,
		    longest_streak = EXCLUDED.longest_streak,
		    last_activity_date = EXCLUDED.last_activity_date,
		    updated_at = EXCLUDED.updated_at
		RETURNING created_at, updated_at
	`

	var lastActivity sql.NullTime
	if stats.LastActivityDate != nil {
		lastActivity = sql.NullTime{Time: *stats.LastActivityDate, Valid: true}
	}

	now := time.Now()
	err := r.db.QueryRowContext(ctx, query,
		stats.UserID,
		stats.TotalLetters,
		stats.TotalReflections,
		stats.GoalsAccomplished,
		stats.CurrentStreak,
		stats.LongestStreak,
		lastActivity,
		now,
	).Scan(&stats.CreatedAt, &stats.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to upsert user stats: %w", err)
	}

	return nil
}
