package validation

import (
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/dearfuture/letterbox/internal/models"
	"github.com/dearfuture/letterbox/internal/temporal"
	"github.com/go-playground/validator/v10"
)

var (
	// Validate is a shared validator instance
	Validate *validator.Validate
)

func init() {
	Validate = validator.New()

	// Report violations under the field's json name so they line up with the
	// request payload the client sent
	Validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	// Register custom validators for enums
	// These should never fail in normal operation, but panic loudly if they do
	if err := Validate.RegisterValidation("delivery_interval", validateDeliveryInterval); err != nil {
		panic(fmt.Sprintf("failed to register delivery_interval validator: %v", err))
	}
	if err := Validate.RegisterValidation("goal_status", validateGoalStatus); err != nil {
		panic(fmt.Sprintf("failed to register goal_status validator: %v", err))
	}
	if err := Validate.RegisterValidation("mood", validateMood); err != nil {
		panic(fmt.Sprintf("failed to register mood validator: %v", err))
	}
}

// validateDeliveryInterval validates that a string is a recognized DeliveryInterval
func validateDeliveryInterval(fl validator.FieldLevel) bool {
	return temporal.ValidInterval(models.DeliveryInterval(fl.Field().String()))
}

// validateGoalStatus validates that a string is a valid GoalStatus enum value
func validateGoalStatus(fl validator.FieldLevel) bool {
	switch models.GoalStatus(fl.Field().String()) {
	case models.GoalStatusPending, models.GoalStatusInProgress,
		models.GoalStatusCompleted, models.GoalStatusAbandoned,
		models.GoalStatusCarriedForward:
		return true
	default:
		return false
	}
}

// validateMood validates that a string is one of the accepted mood emoji
func validateMood(fl validator.FieldLevel) bool {
	value := models.Mood(fl.Field().String())
	for _, m := range models.Moods {
		if value == m {
			return true
		}
	}
	return false
}

// SanitizeText sanitizes text input by trimming whitespace and removing
// control characters except newline and tab
func SanitizeText(text string) string {
	text = strings.TrimSpace(text)

	var sanitized strings.Builder
	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		sanitized.WriteRune(r)
	}

	return sanitized.String()
}
