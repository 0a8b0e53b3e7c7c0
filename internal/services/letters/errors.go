package letters

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrLetterNotFound indicates the letter does not exist
	ErrLetterNotFound = errors.New("letter not found")
	// ErrGoalNotFound indicates the letter has no goal with the given id
	ErrGoalNotFound = errors.New("goal not found")
	// ErrForbidden indicates the letter belongs to a different user.
	// Ownership violations are reported as forbidden, not as not-found:
	// the API does not hide object existence from non-owners.
	ErrForbidden = errors.New("letter does not belong to user")
	// ErrAlreadyDelivered indicates an operation that requires an undelivered letter
	ErrAlreadyDelivered = errors.New("letter has already been delivered")
	// ErrNotYetDelivered indicates an operation that requires a delivered letter
	ErrNotYetDelivered = errors.New("letter has not been delivered yet")
)

// ValidationError carries a field → message map so callers see every violated
// field, not just the first.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	names := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		names = append(names, field)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, field := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", field, e.Fields[field]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// fieldErrors accumulates field-level violations during input validation
type fieldErrors map[string]string

func (f fieldErrors) add(field, message string) {
	f[field] = message
}

// fold translates a validator.Validate.Struct result into field violations,
// keyed by the json field name (slice indices from dive rules included).
func (f fieldErrors) fold(err error) {
	if err == nil {
		return
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		f.add("request", "is invalid")
		return
	}
	for _, fe := range verrs {
		name := fe.Namespace()
		if _, rest, ok := strings.Cut(name, "."); ok {
			name = rest
		}
		f.add(name, violationMessage(fe))
	}
}

func violationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "delivery_interval":
		return fmt.Sprintf("unrecognized interval: %v", fe.Value())
	case "goal_status":
		return fmt.Sprintf("invalid goal status: %v", fe.Value())
	case "mood":
		return fmt.Sprintf("invalid mood: %v", fe.Value())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

// err returns a *ValidationError when any field was violated, nil otherwise
func (f fieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	return &ValidationError{Fields: map[string]string(f)}
}

// AsValidationError unwraps err into a *ValidationError if it is one
func AsValidationError(err error) (*ValidationError, bool) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}
