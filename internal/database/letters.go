package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dearfuture/letterbox/internal/models"
	"github.com/google/uuid"
)

// ErrNotFound is returned when a requested row does not exist
var ErrNotFound = sql.ErrNoRows

// LetterRepository handles letter database operations. Goals, reflections
// and the writing-time context are embedded on the letter row as JSONB so
// children can never outlive or be addressed apart from their parent.
type LetterRepository struct {
	db *DB
}

// NewLetterRepository creates a new letter repository
func NewLetterRepository(db *DB) *LetterRepository {
	return &LetterRepository{db: db}
}

// Create creates a new letter
func (r *LetterRepository) Create(ctx context.Context, letter *models.Letter) error {
	query := `
		INSERT INTO letters (id, user_id, title, content, mood, context, delivery_interval,
			delivered_at, is_delivered, goals, reflections, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at, updated_at
	`

	goalsJSON, reflectionsJSON, contextJSON, err := marshalEmbedded(letter)
	if err != nil {
		return err
	}

	var mood sql.NullString
	if letter.Mood != nil {
		mood = sql.NullString{String: string(*letter.Mood), Valid: true}
	}

	now := time.Now()
	err = r.db.QueryRowContext(ctx, query,
		letter.ID,
		letter.UserID,
		letter.Title,
		letter.Content,
		mood,
		contextJSON,
		letter.DeliveryInterval,
		letter.DeliveredAt,
		letter.IsDelivered,
		goalsJSON,
		reflectionsJSON,
		now,
		now,
	).Scan(&letter.CreatedAt, &letter.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create letter: %w", err)
	}

	return nil
}

// GetByID retrieves a letter by ID
func (r *LetterRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Letter, error) {
	query := `
		SELECT id, user_id, title, content, mood, context, delivery_interval,
			delivered_at, is_delivered, goals, reflections, created_at, updated_at
		FROM letters
		WHERE id = $1
	`

	letter, err := scanLetter(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("letter not found: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get letter: %w", err)
	}

	return letter, nil
}

// GetByUserID retrieves all letters for a user, newest first
func (r *LetterRepository) GetByUserID(ctx context.Context, userID uuid.UUID) ([]*models.Letter, error) {
	query := `
		SELECT id, user_id, title, content, mood, context, delivery_interval,
			delivered_at, is_delivered, goals, reflections, created_at, updated_at
		FROM letters
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query letters: %w", err)
	}
	defer rows.Close()

	var letters []*models.Letter
	for rows.Next() {
		letter, err := scanLetter(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan letter: %w", err)
		}
		letters = append(letters, letter)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating letters: %w", err)
	}

	return letters, nil
}

// GetDueUndelivered retrieves letters whose delivery date has passed but are
// still flagged undelivered. Used by the admin CLI; the lifecycle engine
// itself only flips the flag lazily on View.
func (r *LetterRepository) GetDueUndelivered(ctx context.Context, asOf time.Time) ([]*models.Letter, error) {
	query := `
		SELECT id, user_id, title, content, mood, context, delivery_interval,
			delivered_at, is_delivered, goals, reflections, created_at, updated_at
		FROM letters
		WHERE is_delivered = false AND delivered_at <= $1
		ORDER BY delivered_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, asOf)
	if err != nil {
		return nil, fmt.Errorf("failed to query due letters: %w", err)
	}
	defer rows.Close()

	var letters []*models.Letter
	for rows.Next() {
		letter, err := scanLetter(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan letter: %w", err)
		}
		letters = append(letters, letter)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating due letters: %w", err)
	}

	return letters, nil
}

// Update updates an existing letter, including its embedded goals and
// reflections. A single call is one atomic row write.
func (r *LetterRepository) Update(ctx context.Context, letter *models.Letter) error {
	query := `
		UPDATE letters
		SET title = $2, content = $3, mood = $4, context = $5, delivery_interval = $6,
			delivered_at = $7, is_delivered = $8, goals = $9, reflections = $10, updated_at = $11
		WHERE id = $1
		RETURNING updated_at
	`

	goalsJSON, reflectionsJSON, contextJSON, err := marshalEmbedded(letter)
	if err != nil {
		return err
	}

	var mood sql.NullString
	if letter.Mood != nil {
		mood = sql.NullString{String: string(*letter.Mood), Valid: true}
	}

	now := time.Now()
	err = r.db.QueryRowContext(ctx, query,
		letter.ID,
		letter.Title,
		letter.Content,
		mood,
		contextJSON,
		letter.DeliveryInterval,
		letter.DeliveredAt,
		letter.IsDelivered,
		goalsJSON,
		reflectionsJSON,
		now,
	).Scan(&letter.UpdatedAt)

	if err == sql.ErrNoRows {
		return fmt.Errorf("letter not found: %w", err)
	}
	if err != nil {
		return fmt.Errorf("failed to update letter: %w", err)
	}

	return nil
}

// Delete deletes a letter by ID. Embedded goals and reflections go with it.
func (r *LetterRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM letters WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete letter: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("letter not found: %w", sql.ErrNoRows)
	}

	return nil
}

// rowScanner abstracts *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func marshalEmbedded(letter *models.Letter) (goals, reflections, context []byte, err error) {
	goals, err = json.Marshal(letter.Goals)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal goals: %w", err)
	}
	reflections, err = json.Marshal(letter.Reflections)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal reflections: %w", err)
	}
	context, err = json.Marshal(letter.Context)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal context: %w", err)
	}
	return goals, reflections, context, nil
}

func scanLetter(row rowScanner) (*models.Letter, error) {
	letter := &models.Letter{}
	var mood sql.NullString
	var goalsJSON, reflectionsJSON, contextJSON []byte

	err := row.Scan(
		&letter.ID,
		&letter.UserID,
		&letter.Title,
		&letter.Content,
		&mood,
		&contextJSON,
		&letter.DeliveryInterval,
		&letter.DeliveredAt,
		&letter.IsDelivered,
		&goalsJSON,
		&reflectionsJSON,
		&letter.CreatedAt,
		&letter.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if mood.Valid {
		m := models.Mood(mood.String)
		letter.Mood = &m
	}
	if err := json.Unmarshal(goalsJSON, &letter.Goals); err != nil {
		return nil, fmt.Errorf("failed to unmarshal goals: %w", err)
	}
	if err := json.Unmarshal(reflectionsJSON, &letter.Reflections); err != nil {
		return nil, fmt.Errorf("failed to unmarshal reflections: %w", err)
	}
	if err := json.Unmarshal(contextJSON, &letter.Context); err != nil {
		return nil, fmt.Errorf("failed to unmarshal context: %w", err)
	}

	return letter, nil
}
