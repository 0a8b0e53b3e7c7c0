package letters

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dearfuture/letterbox/internal/database"
	"github.com/dearfuture/letterbox/internal/models"
	"github.com/dearfuture/letterbox/internal/queue"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// fakeLetterRepo is an in-memory LetterRepositoryInterface for service tests
type fakeLetterRepo struct {
	mu          sync.Mutex
	letters     map[uuid.UUID]*models.Letter
	updateCount int
	failUpdate  map[uuid.UUID]error
}

func newFakeLetterRepo() *fakeLetterRepo {
	return &fakeLetterRepo{
		letters:    make(map[uuid.UUID]*models.Letter),
		failUpdate: make(map[uuid.UUID]error),
	}
}

func (f *fakeLetterRepo) Create(ctx context.Context, letter *models.Letter) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	letter.CreatedAt = time.Now()
	letter.UpdatedAt = letter.CreatedAt
	f.letters[letter.ID] = letter
	return nil
}

func (f *fakeLetterRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Letter, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	letter, ok := f.letters[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return letter, nil
}

func (f *fakeLetterRepo) GetByUserID(ctx context.Context, userID uuid.UUID) ([]*models.Letter, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []*models.Letter
	for _, letter := range f.letters {
		if letter.UserID == userID {
			result = append(result, letter)
		}
	}
	return result, nil
}

func (f *fakeLetterRepo) GetDueUndelivered(ctx context.Context, asOf time.Time) ([]*models.Letter, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []*models.Letter
	for _, letter := range f.letters {
		if !letter.IsDelivered && letter.DueFor(asOf) {
			result = append(result, letter)
		}
	}
	return result, nil
}

func (f *fakeLetterRepo) Update(ctx context.Context, letter *models.Letter) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failUpdate[letter.ID]; ok {
		return err
	}
	if _, ok := f.letters[letter.ID]; !ok {
		return database.ErrNotFound
	}
	f.updateCount++
	letter.UpdatedAt = time.Now()
	f.letters[letter.ID] = letter
	return nil
}

func (f *fakeLetterRepo) Delete(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.letters[id]; !ok {
		return database.ErrNotFound
	}
	delete(f.letters, id)
	return nil
}

func (f *fakeLetterRepo) updates() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.updateCount
}

// fakeDispatcher records published stat events
type fakeDispatcher struct {
	mu     sync.Mutex
	events []*queue.StatEvent
	err    error
}

func (f *fakeDispatcher) Publish(ctx context.Context, event *queue.StatEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}

func (f *fakeDispatcher) types() []queue.StatEventType {
	f.mu.Lock()
	defer f.mu.Unlock()
	types := make([]queue.StatEventType, 0, len(f.events))
	for _, e := range f.events {
		types = append(types, e.Type)
	}
	return types
}

func newTestService(t *testing.T, now time.Time) (*Service, *fakeLetterRepo, *fakeDispatcher) {
	t.Helper()
	repo := newFakeLetterRepo()
	dispatcher := &fakeDispatcher{}
	svc := NewService(repo, dispatcher, zap.NewNop())
	svc.now = func() time.Time { return now }
	return svc, repo, dispatcher
}

func seedLetter(repo *fakeLetterRepo, userID uuid.UUID, delivered bool, deliveredAt time.Time) *models.Letter {
	letter := &models.Letter{
		ID:               uuid.New(),
		UserID:           userID,
		Title:            "A letter",
		Content:          "Some content",
		DeliveryInterval: models.DeliveryIntervalOneMonth,
		DeliveredAt:      deliveredAt,
		IsDelivered:      delivered,
		Goals:            []models.Goal{},
		Reflections:      []models.Reflection{},
	}
	repo.letters[letter.ID] = letter
	return letter
}

func TestCreateLetter(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	userID := uuid.New()

	t.Run("valid letter with interval", func(t *testing.T) {
		t.Parallel()
		svc, _, dispatcher := newTestService(t, now)

		letter, err := svc.Create(context.Background(), userID, CreateLetterInput{
			Title:            "To future me",
			Content:          "Dear future self",
			DeliveryInterval: "1month",
			Goals:            []string{"Run a marathon"},
		})
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}

		if letter.IsDelivered {
			t.Error("new letter must start undelivered")
		}
		want := now.AddDate(0, 1, 0)
		if !letter.DeliveredAt.Equal(want) {
			t.Errorf("delivery date = %v, want %v", letter.DeliveredAt, want)
		}
		if len(letter.Goals) != 1 {
			t.Fatalf("goals = %d, want 1", len(letter.Goals))
		}
		if letter.Goals[0].Status != models.GoalStatusPending {
			t.Errorf("goal status = %s, want pending", letter.Goals[0].Status)
		}
		if got := dispatcher.types(); len(got) != 1 || got[0] != queue.StatEventLetterCreated {
			t.Errorf("events = %v, want [letter_created]", got)
		}
	})

	t.Run("empty title defaults", func(t *testing.T) {
		t.Parallel()
		svc, _, _ := newTestService(t, now)

		letter, err := svc.Create(context.Background(), userID, CreateLetterInput{
			Content:          "content",
			DeliveryInterval: "1year",
		})
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if letter.Title != DefaultTitle {
			t.Errorf("title = %q, want %q", letter.Title, DefaultTitle)
		}
	})

	t.Run("missing content", func(t *testing.T) {
		t.Parallel()
		svc, _, _ := newTestService(t, now)

		_, err := svc.Create(context.Background(), userID, CreateLetterInput{
			DeliveryInterval: "1week",
		})
		verr, ok := AsValidationError(err)
		if !ok {
			t.Fatalf("expected validation error, got %v", err)
		}
		if _, ok := verr.Fields["content"]; !ok {
			t.Errorf("expected content field error, got %v", verr.Fields)
		}
	})

	t.Run("custom interval requires date", func(t *testing.T) {
		t.Parallel()
		svc, _, _ := newTestService(t, now)

		_, err := svc.Create(context.Background(), userID, CreateLetterInput{
			Content:          "content",
			DeliveryInterval: "custom",
		})
		verr, ok := AsValidationError(err)
		if !ok {
			t.Fatalf("expected validation error, got %v", err)
		}
		if _, ok := verr.Fields["delivered_at"]; !ok {
			t.Errorf("expected delivered_at field error, got %v", verr.Fields)
		}
	})

	t.Run("custom date exactly at lead time boundary passes", func(t *testing.T) {
		t.Parallel()
		svc, _, _ := newTestService(t, now)

		date := now.Add(24 * time.Hour)
		letter, err := svc.Create(context.Background(), userID, CreateLetterInput{
			Content:          "content",
			DeliveryInterval: "custom",
			DeliveredAt:      &date,
		})
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if !letter.DeliveredAt.Equal(date) {
			t.Errorf("delivery date = %v, want %v", letter.DeliveredAt, date)
		}
	})

	t.Run("custom date inside lead time fails", func(t *testing.T) {
		t.Parallel()
		svc, _, dispatcher := newTestService(t, now)

		date := now.Add(24*time.Hour - time.Second)
		_, err := svc.Create(context.Background(), userID, CreateLetterInput{
			Content:          "content",
			DeliveryInterval: "custom",
			DeliveredAt:      &date,
		})
		if _, ok := AsValidationError(err); !ok {
			t.Fatalf("expected validation error, got %v", err)
		}
		if len(dispatcher.types()) != 0 {
			t.Error("no event should be emitted for a rejected letter")
		}
	})

	t.Run("unknown interval", func(t *testing.T) {
		t.Parallel()
		svc, _, _ := newTestService(t, now)

		_, err := svc.Create(context.Background(), userID, CreateLetterInput{
			Content:          "content",
			DeliveryInterval: "fortnight",
		})
		if _, ok := AsValidationError(err); !ok {
			t.Fatalf("expected validation error, got %v", err)
		}
	})

	t.Run("symbolic interval with explicit date rejected", func(t *testing.T) {
		t.Parallel()
		svc, _, dispatcher := newTestService(t, now)

		date := now.Add(90 * 24 * time.Hour)
		_, err := svc.Create(context.Background(), userID, CreateLetterInput{
			Content:          "content",
			DeliveryInterval: "1week",
			DeliveredAt:      &date,
		})
		verr, ok := AsValidationError(err)
		if !ok {
			t.Fatalf("expected validation error, got %v", err)
		}
		if _, ok := verr.Fields["delivered_at"]; !ok {
			t.Errorf("expected delivered_at field error, got %v", verr.Fields)
		}
		if len(dispatcher.types()) != 0 {
			t.Error("no event should be emitted for a rejected letter")
		}
	})

	t.Run("overlong fields flagged by name", func(t *testing.T) {
		t.Parallel()
		svc, _, _ := newTestService(t, now)

		_, err := svc.Create(context.Background(), userID, CreateLetterInput{
			Title:            strings.Repeat("t", 101),
			Content:          strings.Repeat("c", 5001),
			DeliveryInterval: "1month",
			Goals:            []string{"ok", strings.Repeat("g", 151)},
		})
		verr, ok := AsValidationError(err)
		if !ok {
			t.Fatalf("expected validation error, got %v", err)
		}
		for _, field := range []string{"title", "content", "goals[1]"} {
			if _, ok := verr.Fields[field]; !ok {
				t.Errorf("expected %s field error, got %v", field, verr.Fields)
			}
		}
		if _, ok := verr.Fields["goals[0]"]; ok {
			t.Errorf("goals[0] is within bounds, got %v", verr.Fields)
		}
	})

	t.Run("blank goal text flagged by index", func(t *testing.T) {
		t.Parallel()
		svc, _, _ := newTestService(t, now)

		_, err := svc.Create(context.Background(), userID, CreateLetterInput{
			Content:          "content",
			DeliveryInterval: "1month",
			Goals:            []string{"   "},
		})
		verr, ok := AsValidationError(err)
		if !ok {
			t.Fatalf("expected validation error, got %v", err)
		}
		if _, ok := verr.Fields["goals[0]"]; !ok {
			t.Errorf("expected goals[0] field error, got %v", verr.Fields)
		}
	})

	t.Run("invalid mood", func(t *testing.T) {
		t.Parallel()
		svc, _, _ := newTestService(t, now)

		mood := "grumpy"
		_, err := svc.Create(context.Background(), userID, CreateLetterInput{
			Content:          "content",
			DeliveryInterval: "1week",
			Mood:             &mood,
		})
		verr, ok := AsValidationError(err)
		if !ok {
			t.Fatalf("expected validation error, got %v", err)
		}
		if _, ok := verr.Fields["mood"]; !ok {
			t.Errorf("expected mood field error, got %v", verr.Fields)
		}
	})
}

func TestViewDeliveryFlip(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	userID := uuid.New()

	t.Run("due letter flips exactly once", func(t *testing.T) {
		t.Parallel()
		svc, repo, _ := newTestService(t, now)
		letter := seedLetter(repo, userID, false, now.Add(-time.Hour))

		got, err := svc.View(context.Background(), letter.ID, userID)
		if err != nil {
			t.Fatalf("View failed: %v", err)
		}
		if !got.IsDelivered {
			t.Fatal("letter should be delivered after viewing past its delivery date")
		}
		if repo.updates() != 1 {
			t.Errorf("updates = %d, want 1", repo.updates())
		}

		// Second view must not write again
		if _, err := svc.View(context.Background(), letter.ID, userID); err != nil {
			t.Fatalf("second View failed: %v", err)
		}
		if repo.updates() != 1 {
			t.Errorf("updates after second view = %d, want 1", repo.updates())
		}
	})

	t.Run("not yet due stays undelivered", func(t *testing.T) {
		t.Parallel()
		svc, repo, _ := newTestService(t, now)
		letter := seedLetter(repo, userID, false, now.Add(48*time.Hour))

		got, err := svc.View(context.Background(), letter.ID, userID)
		if err != nil {
			t.Fatalf("View failed: %v", err)
		}
		if got.IsDelivered {
			t.Error("letter before its delivery date must stay undelivered")
		}
		if repo.updates() != 0 {
			t.Errorf("updates = %d, want 0", repo.updates())
		}
	})

	t.Run("exactly at delivery instant is delivered", func(t *testing.T) {
		t.Parallel()
		svc, repo, _ := newTestService(t, now)
		letter := seedLetter(repo, userID, false, now)

		got, err := svc.View(context.Background(), letter.ID, userID)
		if err != nil {
			t.Fatalf("View failed: %v", err)
		}
		if !got.IsDelivered {
			t.Error("letter at its delivery instant should be delivered")
		}
	})

	t.Run("other user is forbidden", func(t *testing.T) {
		t.Parallel()
		svc, repo, _ := newTestService(t, now)
		letter := seedLetter(repo, userID, false, now.Add(-time.Hour))

		_, err := svc.View(context.Background(), letter.ID, uuid.New())
		if !errors.Is(err, ErrForbidden) {
			t.Errorf("err = %v, want ErrForbidden", err)
		}
	})

	t.Run("unknown letter", func(t *testing.T) {
		t.Parallel()
		svc, _, _ := newTestService(t, now)

		_, err := svc.View(context.Background(), uuid.New(), userID)
		if !errors.Is(err, ErrLetterNotFound) {
			t.Errorf("err = %v, want ErrLetterNotFound", err)
		}
	})
}

func TestReschedule(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	userID := uuid.New()

	t.Run("moves date and forces custom interval", func(t *testing.T) {
		t.Parallel()
		svc, repo, _ := newTestService(t, now)
		letter := seedLetter(repo, userID, false, now.Add(30*24*time.Hour))

		newDate := now.Add(90 * 24 * time.Hour)
		got, err := svc.Reschedule(context.Background(), letter.ID, userID, newDate)
		if err != nil {
			t.Fatalf("Reschedule failed: %v", err)
		}
		if !got.DeliveredAt.Equal(newDate) {
			t.Errorf("delivery date = %v, want %v", got.DeliveredAt, newDate)
		}
		if got.DeliveryInterval != models.DeliveryIntervalCustom {
			t.Errorf("interval = %s, want custom", got.DeliveryInterval)
		}
	})

	t.Run("delivered letter cannot be rescheduled", func(t *testing.T) {
		t.Parallel()
		svc, repo, _ := newTestService(t, now)
		letter := seedLetter(repo, userID, true, now.Add(-time.Hour))

		_, err := svc.Reschedule(context.Background(), letter.ID, userID, now.Add(48*time.Hour))
		if !errors.Is(err, ErrAlreadyDelivered) {
			t.Errorf("err = %v, want ErrAlreadyDelivered", err)
		}
	})

	t.Run("new date inside lead time fails", func(t *testing.T) {
		t.Parallel()
		svc, repo, _ := newTestService(t, now)
		letter := seedLetter(repo, userID, false, now.Add(30*24*time.Hour))

		_, err := svc.Reschedule(context.Background(), letter.ID, userID, now.Add(time.Hour))
		if _, ok := AsValidationError(err); !ok {
			t.Errorf("expected validation error, got %v", err)
		}
	})
}

func TestAddReflection(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	userID := uuid.New()
	longText := strings.Repeat("thoughts ", 10)

	t.Run("delivered letter accepts reflection", func(t *testing.T) {
		t.Parallel()
		svc, repo, dispatcher := newTestService(t, now)
		letter := seedLetter(repo, userID, true, now.Add(-time.Hour))

		got, err := svc.AddReflection(context.Background(), letter.ID, userID, longText)
		if err != nil {
			t.Fatalf("AddReflection failed: %v", err)
		}
		if len(got.Reflections) != 1 {
			t.Fatalf("reflections = %d, want 1", len(got.Reflections))
		}
		if types := dispatcher.types(); len(types) != 1 || types[0] != queue.StatEventReflectionAdded {
			t.Errorf("events = %v, want [reflection_added]", types)
		}
	})

	t.Run("undelivered letter rejects reflection", func(t *testing.T) {
		t.Parallel()
		svc, repo, dispatcher := newTestService(t, now)
		letter := seedLetter(repo, userID, false, now.Add(48*time.Hour))

		_, err := svc.AddReflection(context.Background(), letter.ID, userID, longText)
		if !errors.Is(err, ErrNotYetDelivered) {
			t.Errorf("err = %v, want ErrNotYetDelivered", err)
		}
		if len(dispatcher.types()) != 0 {
			t.Error("no event should be emitted for a rejected reflection")
		}
	})

	t.Run("short reflection rejected", func(t *testing.T) {
		t.Parallel()
		svc, repo, _ := newTestService(t, now)
		letter := seedLetter(repo, userID, true, now.Add(-time.Hour))

		_, err := svc.AddReflection(context.Background(), letter.ID, userID, "too short")
		verr, ok := AsValidationError(err)
		if !ok {
			t.Fatalf("expected validation error, got %v", err)
		}
		if _, ok := verr.Fields["text"]; !ok {
			t.Errorf("expected text field error, got %v", verr.Fields)
		}
	})
}

func TestRemoveReflection(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	userID := uuid.New()

	t.Run("removes existing reflection", func(t *testing.T) {
		t.Parallel()
		svc, repo, _ := newTestService(t, now)
		letter := seedLetter(repo, userID, true, now.Add(-time.Hour))
		refID := uuid.New()
		letter.Reflections = []models.Reflection{{ID: refID, Text: "x", Date: now}}

		got, err := svc.RemoveReflection(context.Background(), letter.ID, userID, refID)
		if err != nil {
			t.Fatalf("RemoveReflection failed: %v", err)
		}
		if len(got.Reflections) != 0 {
			t.Errorf("reflections = %d, want 0", len(got.Reflections))
		}
	})

	t.Run("unknown reflection is a no-op", func(t *testing.T) {
		t.Parallel()
		svc, repo, _ := newTestService(t, now)
		letter := seedLetter(repo, userID, true, now.Add(-time.Hour))

		if _, err := svc.RemoveReflection(context.Background(), letter.ID, userID, uuid.New()); err != nil {
			t.Fatalf("RemoveReflection failed: %v", err)
		}
		if repo.updates() != 0 {
			t.Errorf("updates = %d, want 0 for a no-op removal", repo.updates())
		}
	})
}

func TestUpdateGoalStatus(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	userID := uuid.New()

	seedWithGoal := func(repo *fakeLetterRepo, delivered bool) (*models.Letter, uuid.UUID) {
		letter := seedLetter(repo, userID, delivered, now.Add(-time.Hour))
		goalID := uuid.New()
		letter.Goals = []models.Goal{{ID: goalID, Text: "Learn piano", Status: models.GoalStatusPending, CreatedAt: now}}
		return letter, goalID
	}

	t.Run("completing a goal emits goal_accomplished", func(t *testing.T) {
		t.Parallel()
		svc, repo, dispatcher := newTestService(t, now)
		letter, goalID := seedWithGoal(repo, true)

		got, err := svc.UpdateGoalStatus(context.Background(), letter.ID, userID, goalID, UpdateGoalStatusInput{Status: "completed"})
		if err != nil {
			t.Fatalf("UpdateGoalStatus failed: %v", err)
		}
		goal := got.FindGoal(goalID)
		if goal.Status != models.GoalStatusCompleted {
			t.Errorf("status = %s, want completed", goal.Status)
		}
		if goal.StatusUpdatedAt == nil || !goal.StatusUpdatedAt.Equal(now) {
			t.Errorf("status_updated_at = %v, want %v", goal.StatusUpdatedAt, now)
		}
		if types := dispatcher.types(); len(types) != 1 || types[0] != queue.StatEventGoalAccomplished {
			t.Errorf("events = %v, want [goal_accomplished]", types)
		}
	})

	t.Run("non-completed transition emits nothing", func(t *testing.T) {
		t.Parallel()
		svc, repo, dispatcher := newTestService(t, now)
		letter, goalID := seedWithGoal(repo, true)

		if _, err := svc.UpdateGoalStatus(context.Background(), letter.ID, userID, goalID, UpdateGoalStatusInput{Status: "in_progress"}); err != nil {
			t.Fatalf("UpdateGoalStatus failed: %v", err)
		}
		if len(dispatcher.types()) != 0 {
			t.Errorf("events = %v, want none", dispatcher.types())
		}
	})

	t.Run("undelivered letter rejects goal updates", func(t *testing.T) {
		t.Parallel()
		svc, repo, _ := newTestService(t, now)
		letter, goalID := seedWithGoal(repo, false)
		letter.DeliveredAt = now.Add(48 * time.Hour)

		_, err := svc.UpdateGoalStatus(context.Background(), letter.ID, userID, goalID, UpdateGoalStatusInput{Status: "completed"})
		if !errors.Is(err, ErrNotYetDelivered) {
			t.Errorf("err = %v, want ErrNotYetDelivered", err)
		}
	})

	t.Run("direct carried_forward is rejected", func(t *testing.T) {
		t.Parallel()
		svc, repo, _ := newTestService(t, now)
		letter, goalID := seedWithGoal(repo, true)

		_, err := svc.UpdateGoalStatus(context.Background(), letter.ID, userID, goalID, UpdateGoalStatusInput{Status: "carried_forward"})
		verr, ok := AsValidationError(err)
		if !ok {
			t.Fatalf("expected validation error, got %v", err)
		}
		if _, ok := verr.Fields["status"]; !ok {
			t.Errorf("expected status field error, got %v", verr.Fields)
		}
	})

	t.Run("unrecognized status is rejected", func(t *testing.T) {
		t.Parallel()
		svc, repo, _ := newTestService(t, now)
		letter, goalID := seedWithGoal(repo, true)

		_, err := svc.UpdateGoalStatus(context.Background(), letter.ID, userID, goalID, UpdateGoalStatusInput{Status: "finished"})
		verr, ok := AsValidationError(err)
		if !ok {
			t.Fatalf("expected validation error, got %v", err)
		}
		if _, ok := verr.Fields["status"]; !ok {
			t.Errorf("expected status field error, got %v", verr.Fields)
		}
	})

	t.Run("overlong reflection is rejected", func(t *testing.T) {
		t.Parallel()
		svc, repo, _ := newTestService(t, now)
		letter, goalID := seedWithGoal(repo, true)

		note := strings.Repeat("r", 501)
		_, err := svc.UpdateGoalStatus(context.Background(), letter.ID, userID, goalID, UpdateGoalStatusInput{Status: "abandoned", Reflection: &note})
		verr, ok := AsValidationError(err)
		if !ok {
			t.Fatalf("expected validation error, got %v", err)
		}
		if _, ok := verr.Fields["reflection"]; !ok {
			t.Errorf("expected reflection field error, got %v", verr.Fields)
		}
	})

	t.Run("unknown goal", func(t *testing.T) {
		t.Parallel()
		svc, repo, _ := newTestService(t, now)
		letter, _ := seedWithGoal(repo, true)

		_, err := svc.UpdateGoalStatus(context.Background(), letter.ID, userID, uuid.New(), UpdateGoalStatusInput{Status: "completed"})
		if !errors.Is(err, ErrGoalNotFound) {
			t.Errorf("err = %v, want ErrGoalNotFound", err)
		}
	})

	t.Run("reflection is stored alongside the status", func(t *testing.T) {
		t.Parallel()
		svc, repo, _ := newTestService(t, now)
		letter, goalID := seedWithGoal(repo, true)

		note := "gave it up for good reasons"
		got, err := svc.UpdateGoalStatus(context.Background(), letter.ID, userID, goalID, UpdateGoalStatusInput{Status: "abandoned", Reflection: &note})
		if err != nil {
			t.Fatalf("UpdateGoalStatus failed: %v", err)
		}
		goal := got.FindGoal(goalID)
		if goal.Reflection == nil || *goal.Reflection != note {
			t.Errorf("reflection = %v, want %q", goal.Reflection, note)
		}
	})
}

func TestCarryGoalForward(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	userID := uuid.New()

	seedPair := func(repo *fakeLetterRepo) (*models.Letter, *models.Letter, uuid.UUID) {
		source := seedLetter(repo, userID, true, now.Add(-time.Hour))
		goalID := uuid.New()
		source.Goals = []models.Goal{{ID: goalID, Text: "Write a novel", Status: models.GoalStatusInProgress, CreatedAt: now}}
		target := seedLetter(repo, userID, false, now.Add(60*24*time.Hour))
		return source, target, goalID
	}

	t.Run("moves the goal with lineage references", func(t *testing.T) {
		t.Parallel()
		svc, repo, _ := newTestService(t, now)
		source, target, goalID := seedPair(repo)

		gotSource, gotTarget, err := svc.CarryGoalForward(context.Background(), source.ID, goalID, target.ID, userID)
		if err != nil {
			t.Fatalf("CarryGoalForward failed: %v", err)
		}

		srcGoal := gotSource.FindGoal(goalID)
		if srcGoal.Status != models.GoalStatusCarriedForward {
			t.Errorf("source status = %s, want carried_forward", srcGoal.Status)
		}
		if srcGoal.CarriedForwardTo == nil || *srcGoal.CarriedForwardTo != target.ID {
			t.Errorf("carried_forward_to = %v, want %v", srcGoal.CarriedForwardTo, target.ID)
		}

		if len(gotTarget.Goals) != 1 {
			t.Fatalf("target goals = %d, want 1", len(gotTarget.Goals))
		}
		newGoal := gotTarget.Goals[0]
		if newGoal.Status != models.GoalStatusPending {
			t.Errorf("new goal status = %s, want pending", newGoal.Status)
		}
		if newGoal.Text != "Write a novel" {
			t.Errorf("new goal text = %q", newGoal.Text)
		}
		if newGoal.CarriedForwardFrom == nil || *newGoal.CarriedForwardFrom != source.ID {
			t.Errorf("carried_forward_from = %v, want %v", newGoal.CarriedForwardFrom, source.ID)
		}
		if newGoal.ID == goalID {
			t.Error("carried goal must get a fresh id")
		}
	})

	t.Run("same source and target rejected", func(t *testing.T) {
		t.Parallel()
		svc, repo, _ := newTestService(t, now)
		source, _, goalID := seedPair(repo)

		_, _, err := svc.CarryGoalForward(context.Background(), source.ID, goalID, source.ID, userID)
		if _, ok := AsValidationError(err); !ok {
			t.Errorf("expected validation error, got %v", err)
		}
	})

	t.Run("target owned by another user is forbidden", func(t *testing.T) {
		t.Parallel()
		svc, repo, _ := newTestService(t, now)
		source, _, goalID := seedPair(repo)
		other := seedLetter(repo, uuid.New(), false, now.Add(60*24*time.Hour))

		_, _, err := svc.CarryGoalForward(context.Background(), source.ID, goalID, other.ID, userID)
		if !errors.Is(err, ErrForbidden) {
			t.Errorf("err = %v, want ErrForbidden", err)
		}
	})

	t.Run("source write failure keeps the target goal", func(t *testing.T) {
		t.Parallel()
		svc, repo, _ := newTestService(t, now)
		source, target, goalID := seedPair(repo)
		repo.failUpdate[source.ID] = errors.New("connection reset")

		_, _, err := svc.CarryGoalForward(context.Background(), source.ID, goalID, target.ID, userID)
		if err == nil {
			t.Fatal("expected error when source write fails")
		}
		if len(target.Goals) != 1 {
			t.Errorf("target goals = %d, want the appended goal to survive", len(target.Goals))
		}
	})
}

func TestAddGoal(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	userID := uuid.New()

	svc, repo, _ := newTestService(t, now)
	letter := seedLetter(repo, userID, false, now.Add(48*time.Hour))

	got, err := svc.AddGoal(context.Background(), letter.ID, userID, "  Read 20 books  ")
	if err != nil {
		t.Fatalf("AddGoal failed: %v", err)
	}
	if len(got.Goals) != 1 {
		t.Fatalf("goals = %d, want 1", len(got.Goals))
	}
	if got.Goals[0].Text != "Read 20 books" {
		t.Errorf("text = %q, want trimmed text", got.Goals[0].Text)
	}
	if got.Goals[0].Status != models.GoalStatusPending {
		t.Errorf("status = %s, want pending", got.Goals[0].Status)
	}

	if _, err := svc.AddGoal(context.Background(), letter.ID, userID, "   "); err == nil {
		t.Error("expected validation error for blank goal text")
	}
}

func TestStatEventFailureDoesNotFailOperation(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	userID := uuid.New()

	repo := newFakeLetterRepo()
	dispatcher := &fakeDispatcher{err: errors.New("broker down")}
	svc := NewService(repo, dispatcher, zap.NewNop())
	svc.now = func() time.Time { return now }

	letter, err := svc.Create(context.Background(), userID, CreateLetterInput{
		Content:          "content",
		DeliveryInterval: "1week",
	})
	if err != nil {
		t.Fatalf("Create must succeed even when event dispatch fails: %v", err)
	}
	if _, ok := repo.letters[letter.ID]; !ok {
		t.Error("letter should be persisted despite dispatch failure")
	}
}
