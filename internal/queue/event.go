package queue

import (
	"time"

	"github.com/google/uuid"
)

// StatEventType identifies which lifecycle event a stat event records
type StatEventType string

const (
	// StatEventLetterCreated is emitted after a letter is persisted
	StatEventLetterCreated StatEventType = "letter_created"
	// StatEventReflectionAdded is emitted after a reflection is appended
	StatEventReflectionAdded StatEventType = "reflection_added"
	// StatEventGoalAccomplished is emitted when a goal transitions to completed
	StatEventGoalAccomplished StatEventType = "goal_accomplished"
)

// StatEvent is a fire-and-forget notification from the lifecycle engine to
// the stats aggregator. It is dispatched after the primary entity write
// commits; losing one must never fail the triggering operation.
type StatEvent struct {
	ID         uuid.UUID     `json:"id"`
	Type       StatEventType `json:"type"`
	UserID     uuid.UUID     `json:"user_id"`
	OccurredAt time.Time     `json:"occurred_at"`
	RetryCount int           `json:"retry_count"`
	MaxRetries int           `json:"max_retries"`
}

// NewStatEvent creates a new stat event stamped with the current time
func NewStatEvent(eventType StatEventType, userID uuid.UUID) *StatEvent {
	return &StatEvent{
		ID:         uuid.New(),
		Type:       eventType,
		UserID:     userID,
		OccurredAt: time.Now(),
		RetryCount: 0,
		MaxRetries: 3,
	}
}

// Valid reports whether the event carries a recognized type and a user
func (e *StatEvent) Valid() bool {
	switch e.Type {
	case StatEventLetterCreated, StatEventReflectionAdded, StatEventGoalAccomplished:
		return e.UserID != uuid.Nil
	default:
		return false
	}
}

// CanRetry checks if the event can be redelivered after a failure
func (e *StatEvent) CanRetry() bool {
	return e.RetryCount < e.MaxRetries
}

// IncrementRetry increments the retry count
func (e *StatEvent) IncrementRetry() {
	e.RetryCount++
}
