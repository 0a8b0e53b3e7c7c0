// Package letters implements the letter/goal lifecycle engine: ownership
// checks, delivery-date gating, reflection eligibility, goal status
// transitions including cross-letter carry-forward, and stat event emission.
package letters

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dearfuture/letterbox/internal/database"
	"github.com/dearfuture/letterbox/internal/models"
	"github.com/dearfuture/letterbox/internal/queue"
	"github.com/dearfuture/letterbox/internal/temporal"
	"github.com/dearfuture/letterbox/internal/validation"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Text limits for letter input. The create/update payloads enforce the
// title/content/goal limits through their validate tags; the single-field
// operations below check the matching constant directly.
const (
	// MaxTitleLength is the maximum length for a letter title
	MaxTitleLength = 100
	// MaxContentLength is the maximum length for letter content
	MaxContentLength = 5000
	// MaxGoalTextLength is the maximum length for goal text
	MaxGoalTextLength = 150
	// MaxGoalReflectionLength is the maximum length for a goal reflection
	MaxGoalReflectionLength = 500
	// MinReflectionLength is the minimum length for a letter reflection
	MinReflectionLength = 50
	// MaxContextFieldLength bounds the advisory context fields
	MaxContextFieldLength = 200
	// DefaultTitle is used when no title is supplied
	DefaultTitle = "Untitled"
)

// StatDispatcher publishes stat events after primary writes commit.
// Satisfied by queue.EventQueue.
type StatDispatcher interface {
	Publish(ctx context.Context, event *queue.StatEvent) error
}

// Service is the lifecycle engine for letters and their goals/reflections.
// Every operation resolves the letter first and checks ownership before
// touching state. Stat events are dispatched best-effort after the primary
// write; a failed dispatch is logged, never returned.
type Service struct {
	letters database.LetterRepositoryInterface
	events  StatDispatcher
	logger  *zap.Logger
	now     func() time.Time
}

// NewService creates a new lifecycle service. events may be nil, in which
// case no stat events are emitted.
func NewService(letters database.LetterRepositoryInterface, events StatDispatcher, logger *zap.Logger) *Service {
	return &Service{
		letters: letters,
		events:  events,
		logger:  logger,
		now:     time.Now,
	}
}

// CreateLetterInput is the payload for Create. Fields are sanitized before
// the validate tags run, so the length rules see the stored form of the text.
type CreateLetterInput struct {
	Title            string               `json:"title" validate:"omitempty,max=100"`
	Content          string               `json:"content" validate:"required,max=5000"`
	Mood             *string              `json:"mood,omitempty" validate:"omitempty,mood"`
	Context          models.LetterContext `json:"context"`
	DeliveryInterval string               `json:"delivery_interval" validate:"delivery_interval"`
	DeliveredAt      *time.Time           `json:"delivered_at,omitempty"`
	Goals            []string             `json:"goals,omitempty" validate:"dive,required,max=150"`
}

// UpdateLetterInput patches advisory fields only. DeliveredAt is deliberately
// absent: delivery dates change exclusively through Reschedule so the
// lead-time invariant cannot be bypassed.
type UpdateLetterInput struct {
	Title   *string               `json:"title,omitempty" validate:"omitempty,max=100"`
	Content *string               `json:"content,omitempty" validate:"omitempty,max=5000"`
	Mood    *string               `json:"mood,omitempty" validate:"omitempty,mood"`
	Context *models.LetterContext `json:"context,omitempty"`
}

// UpdateGoalStatusInput is the payload for UpdateGoalStatus
type UpdateGoalStatusInput struct {
	Status     string  `json:"status" validate:"required,goal_status"`
	Reflection *string `json:"reflection,omitempty" validate:"omitempty,max=500"`
}

// getOwned loads a letter and enforces ownership
func (s *Service) getOwned(ctx context.Context, letterID, userID uuid.UUID) (*models.Letter, error) {
	letter, err := s.letters.GetByID(ctx, letterID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrLetterNotFound
		}
		return nil, fmt.Errorf("failed to load letter: %w", err)
	}
	if letter.UserID != userID {
		return nil, ErrForbidden
	}
	return letter, nil
}

// View loads a letter for reading. If the delivery date has passed and the
// letter is still flagged undelivered, the flag flips true and is persisted
// before returning. This is the only path that marks delivery; nothing in
// the system pushes letters at the delivery instant.
func (s *Service) View(ctx context.Context, letterID, userID uuid.UUID) (*models.Letter, error) {
	letter, err := s.getOwned(ctx, letterID, userID)
	if err != nil {
		return nil, err
	}

	if !letter.IsDelivered && letter.DueFor(s.now()) {
		letter.IsDelivered = true
		if err := s.letters.Update(ctx, letter); err != nil {
			return nil, fmt.Errorf("failed to mark letter delivered: %w", err)
		}
		s.logger.Info("letter_delivered",
			zap.String("letter_id", letter.ID.String()),
			zap.String("user_id", userID.String()),
		)
	}

	return letter, nil
}

// List returns the user's letters, newest first. Listing does not flip
// delivery flags; only View does.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]*models.Letter, error) {
	letters, err := s.letters.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list letters: %w", err)
	}
	return letters, nil
}

// Create validates the payload, resolves the delivery date and persists a
// new undelivered letter, then emits a letter_created stat event.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, input CreateLetterInput) (*models.Letter, error) {
	now := s.now()

	input.Title = validation.SanitizeText(input.Title)
	input.Content = validation.SanitizeText(input.Content)
	if input.Mood != nil {
		m := validation.SanitizeText(*input.Mood)
		input.Mood = &m
	}
	for i := range input.Goals {
		input.Goals[i] = validation.SanitizeText(input.Goals[i])
	}

	fields := fieldErrors{}
	fields.fold(validation.Validate.Struct(input))
	validateContext(input.Context, fields)

	interval := models.DeliveryInterval(input.DeliveryInterval)
	var deliveredAt time.Time
	if temporal.ValidInterval(interval) {
		if interval != models.DeliveryIntervalCustom && input.DeliveredAt != nil {
			// A symbolic interval already determines the date; an explicit one
			// alongside it is a contradiction, not a hint.
			fields.add("delivered_at", "is only accepted with the custom interval")
		} else {
			resolved, err := temporal.ResolveDeliveryDateAt(now, interval, input.DeliveredAt)
			switch {
			case errors.Is(err, temporal.ErrMissingCustomDate):
				fields.add("delivered_at", "is required for a custom interval")
			case err != nil:
				fields.add("delivery_interval", err.Error())
			default:
				deliveredAt = resolved
				if !temporal.ValidateLeadTimeAt(now, deliveredAt) {
					fields.add("delivered_at", "must be at least 24 hours in the future")
				}
			}
		}
	}

	if err := fields.err(); err != nil {
		return nil, err
	}

	title := input.Title
	if title == "" {
		title = DefaultTitle
	}

	var mood *models.Mood
	if input.Mood != nil && *input.Mood != "" {
		m := models.Mood(*input.Mood)
		mood = &m
	}

	goals := make([]models.Goal, 0, len(input.Goals))
	for _, text := range input.Goals {
		goals = append(goals, models.Goal{
			ID:        uuid.New(),
			Text:      text,
			Status:    models.GoalStatusPending,
			CreatedAt: now,
		})
	}

	letter := &models.Letter{
		ID:               uuid.New(),
		UserID:           userID,
		Title:            title,
		Content:          input.Content,
		Mood:             mood,
		Context:          input.Context,
		DeliveryInterval: interval,
		DeliveredAt:      deliveredAt,
		IsDelivered:      false,
		Goals:            goals,
		Reflections:      []models.Reflection{},
	}

	if err := s.letters.Create(ctx, letter); err != nil {
		return nil, fmt.Errorf("failed to create letter: %w", err)
	}

	s.emitStatEvent(ctx, queue.StatEventLetterCreated, userID)

	return letter, nil
}

// Reschedule moves an undelivered letter's delivery date. Fails once the
// letter has been delivered, regardless of the new date.
func (s *Service) Reschedule(ctx context.Context, letterID, userID uuid.UUID, newDate time.Time) (*models.Letter, error) {
	letter, err := s.getOwned(ctx, letterID, userID)
	if err != nil {
		return nil, err
	}

	if letter.IsDelivered {
		return nil, ErrAlreadyDelivered
	}

	if !temporal.ValidateLeadTimeAt(s.now(), newDate) {
		fields := fieldErrors{}
		fields.add("delivered_at", "must be at least 24 hours in the future")
		return nil, fields.err()
	}

	letter.DeliveredAt = newDate
	letter.DeliveryInterval = models.DeliveryIntervalCustom

	if err := s.letters.Update(ctx, letter); err != nil {
		return nil, fmt.Errorf("failed to reschedule letter: %w", err)
	}

	return letter, nil
}

// Update patches advisory fields (title, content, mood, context). Because
// the delivery date is untouched, no lead-time check applies here.
func (s *Service) Update(ctx context.Context, letterID, userID uuid.UUID, input UpdateLetterInput) (*models.Letter, error) {
	letter, err := s.getOwned(ctx, letterID, userID)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		title := validation.SanitizeText(*input.Title)
		input.Title = &title
	}
	if input.Content != nil {
		content := validation.SanitizeText(*input.Content)
		input.Content = &content
	}
	if input.Mood != nil {
		m := validation.SanitizeText(*input.Mood)
		input.Mood = &m
	}

	fields := fieldErrors{}
	fields.fold(validation.Validate.Struct(input))
	if input.Content != nil && *input.Content == "" {
		fields.add("content", "is required")
	}
	if input.Context != nil {
		validateContext(*input.Context, fields)
	}
	if err := fields.err(); err != nil {
		return nil, err
	}

	if input.Title != nil {
		title := *input.Title
		if title == "" {
			title = DefaultTitle
		}
		letter.Title = title
	}
	if input.Content != nil {
		letter.Content = *input.Content
	}
	if input.Mood != nil && *input.Mood != "" {
		m := models.Mood(*input.Mood)
		letter.Mood = &m
	}
	if input.Context != nil {
		letter.Context = *input.Context
	}

	if err := s.letters.Update(ctx, letter); err != nil {
		return nil, fmt.Errorf("failed to update letter: %w", err)
	}

	return letter, nil
}

// Delete removes a letter along with its embedded goals and reflections
func (s *Service) Delete(ctx context.Context, letterID, userID uuid.UUID) error {
	if _, err := s.getOwned(ctx, letterID, userID); err != nil {
		return err
	}

	if err := s.letters.Delete(ctx, letterID); err != nil {
		return fmt.Errorf("failed to delete letter: %w", err)
	}

	s.logger.Info("letter_deleted",
		zap.String("letter_id", letterID.String()),
		zap.String("user_id", userID.String()),
	)

	return nil
}

// AddReflection appends a reflection to a delivered letter and emits a
// reflection_added stat event.
func (s *Service) AddReflection(ctx context.Context, letterID, userID uuid.UUID, text string) (*models.Letter, error) {
	letter, err := s.getOwned(ctx, letterID, userID)
	if err != nil {
		return nil, err
	}

	if !letter.IsDelivered {
		return nil, ErrNotYetDelivered
	}

	text = validation.SanitizeText(text)
	if len([]rune(text)) < MinReflectionLength {
		fields := fieldErrors{}
		fields.add("text", fmt.Sprintf("must be at least %d characters", MinReflectionLength))
		return nil, fields.err()
	}

	letter.Reflections = append(letter.Reflections, models.Reflection{
		ID:   uuid.New(),
		Text: text,
		Date: s.now(),
	})

	if err := s.letters.Update(ctx, letter); err != nil {
		return nil, fmt.Errorf("failed to add reflection: %w", err)
	}

	s.emitStatEvent(ctx, queue.StatEventReflectionAdded, userID)

	return letter, nil
}

// RemoveReflection removes a reflection by id. Removal is not delivery-gated
// and is a no-op when the id is absent.
func (s *Service) RemoveReflection(ctx context.Context, letterID, userID, reflectionID uuid.UUID) (*models.Letter, error) {
	letter, err := s.getOwned(ctx, letterID, userID)
	if err != nil {
		return nil, err
	}

	if !letter.RemoveReflection(reflectionID) {
		return letter, nil
	}

	if err := s.letters.Update(ctx, letter); err != nil {
		return nil, fmt.Errorf("failed to remove reflection: %w", err)
	}

	return letter, nil
}

// AddGoal appends a new pending goal to a letter
func (s *Service) AddGoal(ctx context.Context, letterID, userID uuid.UUID, text string) (*models.Letter, error) {
	letter, err := s.getOwned(ctx, letterID, userID)
	if err != nil {
		return nil, err
	}

	fields := fieldErrors{}
	text = validation.SanitizeText(text)
	if text == "" {
		fields.add("text", "is required")
	} else if len([]rune(text)) > MaxGoalTextLength {
		fields.add("text", fmt.Sprintf("must be at most %d characters", MaxGoalTextLength))
	}
	if err := fields.err(); err != nil {
		return nil, err
	}

	letter.Goals = append(letter.Goals, models.Goal{
		ID:        uuid.New(),
		Text:      text,
		Status:    models.GoalStatusPending,
		CreatedAt: s.now(),
	})

	if err := s.letters.Update(ctx, letter); err != nil {
		return nil, fmt.Errorf("failed to add goal: %w", err)
	}

	return letter, nil
}

// UpdateGoalStatus sets a goal's status on a delivered letter. A direct
// transition to carried_forward is rejected: that status is reserved for
// CarryGoalForward, which maintains the cross-letter lineage references.
// Completing a goal emits a goal_accomplished stat event.
func (s *Service) UpdateGoalStatus(ctx context.Context, letterID, userID, goalID uuid.UUID, input UpdateGoalStatusInput) (*models.Letter, error) {
	letter, err := s.getOwned(ctx, letterID, userID)
	if err != nil {
		return nil, err
	}

	if !letter.IsDelivered {
		return nil, ErrNotYetDelivered
	}

	goal := letter.FindGoal(goalID)
	if goal == nil {
		return nil, ErrGoalNotFound
	}

	if input.Reflection != nil {
		text := validation.SanitizeText(*input.Reflection)
		input.Reflection = &text
	}

	fields := fieldErrors{}
	fields.fold(validation.Validate.Struct(input))
	if _, bad := fields["status"]; !bad && models.GoalStatus(input.Status) == models.GoalStatusCarriedForward {
		fields.add("status", "carried_forward is set by the carry-forward operation and cannot be assigned directly")
	}
	if err := fields.err(); err != nil {
		return nil, err
	}

	now := s.now()
	goal.Status = models.GoalStatus(input.Status)
	goal.StatusUpdatedAt = &now
	if input.Reflection != nil {
		goal.Reflection = input.Reflection
	}

	if err := s.letters.Update(ctx, letter); err != nil {
		return nil, fmt.Errorf("failed to update goal status: %w", err)
	}

	if goal.Status == models.GoalStatusCompleted {
		s.emitStatEvent(ctx, queue.StatEventGoalAccomplished, userID)
	}

	return letter, nil
}

// CarryGoalForward moves an unfinished goal to another letter owned by the
// same user: the target letter gains a fresh pending goal pointing back at
// the source, and the source goal becomes carried_forward pointing at the
// target. The two letters are written sequentially, target first; if the
// source write fails the target keeps its new goal (at-least-once, surfaced
// as an error), there is no compensating rollback.
func (s *Service) CarryGoalForward(ctx context.Context, oldLetterID, goalID, newLetterID, userID uuid.UUID) (*models.Letter, *models.Letter, error) {
	if oldLetterID == newLetterID {
		fields := fieldErrors{}
		fields.add("new_letter_id", "must be a different letter")
		return nil, nil, fields.err()
	}

	source, err := s.getOwned(ctx, oldLetterID, userID)
	if err != nil {
		return nil, nil, err
	}
	target, err := s.getOwned(ctx, newLetterID, userID)
	if err != nil {
		return nil, nil, err
	}

	goal := source.FindGoal(goalID)
	if goal == nil {
		return nil, nil, ErrGoalNotFound
	}

	now := s.now()
	target.Goals = append(target.Goals, models.Goal{
		ID:                 uuid.New(),
		Text:               goal.Text,
		Status:             models.GoalStatusPending,
		CarriedForwardFrom: &oldLetterID,
		CreatedAt:          now,
	})

	if err := s.letters.Update(ctx, target); err != nil {
		return nil, nil, fmt.Errorf("failed to append goal to target letter: %w", err)
	}

	goal.Status = models.GoalStatusCarriedForward
	goal.CarriedForwardTo = &newLetterID
	goal.StatusUpdatedAt = &now

	if err := s.letters.Update(ctx, source); err != nil {
		// Target write already committed; the new goal stays in place.
		s.logger.Error("carry_forward_source_write_failed",
			zap.String("source_letter_id", oldLetterID.String()),
			zap.String("target_letter_id", newLetterID.String()),
			zap.String("goal_id", goalID.String()),
			zap.Error(err),
		)
		return nil, nil, fmt.Errorf("failed to update source goal after carry-forward: %w", err)
	}

	return source, target, nil
}

// AddGoalReflection overwrites a goal's reflection text on a delivered letter
func (s *Service) AddGoalReflection(ctx context.Context, letterID, userID, goalID uuid.UUID, text string) (*models.Letter, error) {
	letter, err := s.getOwned(ctx, letterID, userID)
	if err != nil {
		return nil, err
	}

	if !letter.IsDelivered {
		return nil, ErrNotYetDelivered
	}

	goal := letter.FindGoal(goalID)
	if goal == nil {
		return nil, ErrGoalNotFound
	}

	fields := fieldErrors{}
	text = validation.SanitizeText(text)
	if text == "" {
		fields.add("text", "is required")
	} else if len([]rune(text)) > MaxGoalReflectionLength {
		fields.add("text", fmt.Sprintf("must be at most %d characters", MaxGoalReflectionLength))
	}
	if err := fields.err(); err != nil {
		return nil, err
	}

	goal.Reflection = &text

	if err := s.letters.Update(ctx, letter); err != nil {
		return nil, fmt.Errorf("failed to add goal reflection: %w", err)
	}

	return letter, nil
}

// emitStatEvent publishes a stat event best-effort. Failures are logged and
// never propagated to the caller; the primary write has already committed.
func (s *Service) emitStatEvent(ctx context.Context, eventType queue.StatEventType, userID uuid.UUID) {
	if s.events == nil {
		return
	}
	event := queue.NewStatEvent(eventType, userID)
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn("failed_to_publish_stat_event",
			zap.String("event_type", string(eventType)),
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
	}
}

// validateContext bounds the advisory context fields
func validateContext(c models.LetterContext, fields fieldErrors) {
	check := func(field string, value *string) {
		if value != nil && len([]rune(*value)) > MaxContextFieldLength {
			fields.add(field, fmt.Sprintf("must be at most %d characters", MaxContextFieldLength))
		}
	}
	check("context.weather", c.Weather)
	check("context.temperature", c.Temperature)
	check("context.current_song", c.CurrentSong)
	check("context.headline", c.Headline)
	check("context.location", c.Location)
}
