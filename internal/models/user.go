package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents a user in the system
type User struct {
	ID         uuid.UUID `json:"id"`
	Email      string    `json:"email"`
	ProviderID *string   `json:"provider_id,omitempty"`
	Name       *string   `json:"name,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// UserStats holds a user's derived counters. It is mutated only by the stats
// aggregator in response to lifecycle events; lifecycle operations never
// write it directly.
type UserStats struct {
	UserID            uuid.UUID  `json:"user_id"`
	TotalLetters      int        `json:"total_letters"`
	TotalReflections  int        `json:"total_reflections"`
	GoalsAccomplished int        `json:"goals_accomplished"`
	CurrentStreak     int        `json:"current_streak"`
	LongestStreak     int        `json:"longest_streak"`
	LastActivityDate  *time.Time `json:"last_activity_date,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}
