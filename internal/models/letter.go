package models

import (
	"time"

	"github.com/google/uuid"
)

// DeliveryInterval represents the symbolic scheduling interval for a letter
type DeliveryInterval string

const (
	DeliveryIntervalOneWeek   DeliveryInterval = "1week"
	DeliveryIntervalOneMonth  DeliveryInterval = "1month"
	DeliveryIntervalSixMonths DeliveryInterval = "6months"
	DeliveryIntervalOneYear   DeliveryInterval = "1year"
	DeliveryIntervalFiveYears DeliveryInterval = "5years"
	DeliveryIntervalCustom    DeliveryInterval = "custom"
)

// GoalStatus represents the status of a goal
type GoalStatus string

const (
	GoalStatusPending        GoalStatus = "pending"
	GoalStatusInProgress     GoalStatus = "in_progress"
	GoalStatusCompleted      GoalStatus = "completed"
	GoalStatusAbandoned      GoalStatus = "abandoned"
	GoalStatusCarriedForward GoalStatus = "carried_forward"
)

// Mood is an optional emoji attached to a letter at writing time
type Mood string

const (
	MoodHappy    Mood = "😊"
	MoodSad      Mood = "😢"
	MoodAngry    Mood = "😡"
	MoodCalm     Mood = "😌"
	MoodThinking Mood = "🤔"
	MoodTired    Mood = "😴"
	MoodExcited  Mood = "🥳"
	MoodAnxious  Mood = "😰"
)

// Moods lists every accepted mood value.
var Moods = []Mood{
	MoodHappy, MoodSad, MoodAngry, MoodCalm,
	MoodThinking, MoodTired, MoodExcited, MoodAnxious,
}

// LetterContext captures advisory snapshot fields recorded when the letter
// was written. All fields are optional and unconstrained beyond length.
type LetterContext struct {
	Weather     *string `json:"weather,omitempty"`
	Temperature *string `json:"temperature,omitempty"`
	CurrentSong *string `json:"current_song,omitempty"`
	Headline    *string `json:"headline,omitempty"`
	Location    *string `json:"location,omitempty"`
}

// Goal is a goal recorded inside a letter. Goals are owned by exactly one
// letter and are only addressable through it. CarriedForwardTo/From hold
// non-owning letter id references preserving carry-forward lineage.
type Goal struct {
	ID                 uuid.UUID  `json:"id"`
	Text               string     `json:"text"`
	Status             GoalStatus `json:"status"`
	Reflection         *string    `json:"reflection,omitempty"`
	CarriedForwardTo   *uuid.UUID `json:"carried_forward_to,omitempty"`
	CarriedForwardFrom *uuid.UUID `json:"carried_forward_from,omitempty"`
	StatusUpdatedAt    *time.Time `json:"status_updated_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

// Reflection is a free-text reflection written after a letter is delivered
type Reflection struct {
	ID   uuid.UUID `json:"id"`
	Text string    `json:"text"`
	Date time.Time `json:"date"`
}

// Letter represents one entry in a user's letters-to-future-self journal
type Letter struct {
	ID               uuid.UUID        `json:"id"`
	UserID           uuid.UUID        `json:"user_id"`
	Title            string           `json:"title"`
	Content          string           `json:"content"`
	Mood             *Mood            `json:"mood,omitempty"`
	Context          LetterContext    `json:"context"`
	DeliveryInterval DeliveryInterval `json:"delivery_interval"`
	DeliveredAt      time.Time        `json:"delivered_at"`
	IsDelivered      bool             `json:"is_delivered"`
	Goals            []Goal           `json:"goals"`
	Reflections      []Reflection     `json:"reflections"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// FindGoal returns the goal with the given id, or nil if the letter has no
// such goal. Goals are addressed by (letter id, goal id) composite lookup.
func (l *Letter) FindGoal(goalID uuid.UUID) *Goal {
	for i := range l.Goals {
		if l.Goals[i].ID == goalID {
			return &l.Goals[i]
		}
	}
	return nil
}

// RemoveReflection deletes the reflection with the given id in place.
// It reports whether a reflection was removed.
func (l *Letter) RemoveReflection(reflectionID uuid.UUID) bool {
	for i := range l.Reflections {
		if l.Reflections[i].ID == reflectionID {
			l.Reflections = append(l.Reflections[:i], l.Reflections[i+1:]...)
			return true
		}
	}
	return false
}

// DueFor reports whether the letter should be considered delivered at the
// given instant. The delivery flag itself only flips via the lifecycle
// engine's View path.
func (l *Letter) DueFor(now time.Time) bool {
	return !now.Before(l.DeliveredAt)
}
