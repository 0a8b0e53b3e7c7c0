// Package stats maintains each user's derived counters (letter, reflection
// and accomplished-goal totals plus the daily activity streak) in response
// to stat events emitted by the lifecycle engine.
package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/dearfuture/letterbox/internal/database"
	"github.com/dearfuture/letterbox/internal/models"
	"github.com/dearfuture/letterbox/internal/queue"
	"go.uber.org/zap"
)

// Aggregator consumes stat events and upserts user stats rows. It is the
// only writer of user stats; the lifecycle engine never touches them.
type Aggregator struct {
	statsRepo database.UserStatsRepositoryInterface
	logger    *zap.Logger
	now       func() time.Time
}

// NewAggregator creates a new stats aggregator
func NewAggregator(statsRepo database.UserStatsRepositoryInterface, logger *zap.Logger) *Aggregator {
	return &Aggregator{
		statsRepo: statsRepo,
		logger:    logger,
		now:       time.Now,
	}
}

// Apply loads the user's stats, applies the event and persists the result
func (a *Aggregator) Apply(ctx context.Context, event *queue.StatEvent) error {
	stats, err := a.statsRepo.GetByUserID(ctx, event.UserID)
	if err != nil {
		return fmt.Errorf("failed to load stats: %w", err)
	}

	ApplyEvent(stats, event.Type, a.now())

	if err := a.statsRepo.Upsert(ctx, stats); err != nil {
		return fmt.Errorf("failed to persist stats: %w", err)
	}

	a.logger.Debug("stat_event_applied",
		zap.String("event_type", string(event.Type)),
		zap.String("user_id", event.UserID.String()),
		zap.Int("current_streak", stats.CurrentStreak),
	)

	return nil
}

// ApplyEvent mutates stats in place: bumps the counter matching the event
// type and runs the streak rule. Counters only ever go up.
func ApplyEvent(stats *models.UserStats, eventType queue.StatEventType, now time.Time) {
	switch eventType {
	case queue.StatEventLetterCreated:
		stats.TotalLetters++
	case queue.StatEventReflectionAdded:
		stats.TotalReflections++
	case queue.StatEventGoalAccomplished:
		stats.GoalsAccomplished++
	}

	touchStreak(stats, now)
}

// touchStreak updates the activity streak. Days are compared in UTC:
// same-day activity refreshes lastActivityDate only, a gap of exactly one
// day extends the streak, anything longer resets it to 1. longestStreak is
// raised whenever currentStreak exceeds it, so longestStreak >= currentStreak
// always holds after an update.
func touchStreak(stats *models.UserStats, now time.Time) {
	today := dayOf(now)

	switch {
	case stats.LastActivityDate == nil:
		stats.CurrentStreak = 1
	default:
		gap := daysBetween(dayOf(*stats.LastActivityDate), today)
		switch {
		case gap == 0:
			// Same day: counters untouched, date refreshed below
		case gap == 1:
			stats.CurrentStreak++
		default:
			stats.CurrentStreak = 1
		}
	}

	if stats.CurrentStreak > stats.LongestStreak {
		stats.LongestStreak = stats.CurrentStreak
	}

	stats.LastActivityDate = &today
}

// dayOf truncates an instant to its UTC calendar day
func dayOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// daysBetween counts whole calendar days from a to b (both day-truncated)
func daysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}
