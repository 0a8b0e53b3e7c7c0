// Package temporal computes delivery dates from symbolic intervals and
// enforces the minimum scheduling lead time. Everything here is pure:
// callers needing determinism use the *At variants and pass their own clock.
package temporal

import (
	"errors"
	"time"

	"github.com/dearfuture/letterbox/internal/models"
)

var (
	// ErrInvalidInterval indicates an unrecognized delivery interval symbol
	ErrInvalidInterval = errors.New("invalid delivery interval")
	// ErrMissingCustomDate indicates the custom interval was chosen without a date
	ErrMissingCustomDate = errors.New("custom interval requires a delivery date")
)

// MinLeadTime is the minimum gap between "now" and a scheduled delivery
const MinLeadTime = 24 * time.Hour

// IntervalLabels maps each recognized interval to its display label.
// This table is configuration owned by this package; never mutate it.
var IntervalLabels = map[models.DeliveryInterval]string{
	models.DeliveryIntervalOneWeek:   "One week",
	models.DeliveryIntervalOneMonth:  "One month",
	models.DeliveryIntervalSixMonths: "Six months",
	models.DeliveryIntervalOneYear:   "One year",
	models.DeliveryIntervalFiveYears: "Five years",
	models.DeliveryIntervalCustom:    "Custom date",
}

// ValidInterval reports whether the interval symbol is recognized.
func ValidInterval(interval models.DeliveryInterval) bool {
	_, ok := IntervalLabels[interval]
	return ok
}

// ResolveDeliveryDate computes the delivery timestamp for an interval
// relative to the current time. For custom, the supplied date is returned
// verbatim.
func ResolveDeliveryDate(interval models.DeliveryInterval, customDate *time.Time) (time.Time, error) {
	return ResolveDeliveryDateAt(time.Now(), interval, customDate)
}

// ResolveDeliveryDateAt is ResolveDeliveryDate with an explicit reference
// instant. Month and year intervals use calendar arithmetic, not fixed-day
// offsets: one month from Jan 31 normalizes per time.AddDate.
func ResolveDeliveryDateAt(now time.Time, interval models.DeliveryInterval, customDate *time.Time) (time.Time, error) {
	switch interval {
	case models.DeliveryIntervalOneWeek:
		return now.AddDate(0, 0, 7), nil
	case models.DeliveryIntervalOneMonth:
		return now.AddDate(0, 1, 0), nil
	case models.DeliveryIntervalSixMonths:
		return now.AddDate(0, 6, 0), nil
	case models.DeliveryIntervalOneYear:
		return now.AddDate(1, 0, 0), nil
	case models.DeliveryIntervalFiveYears:
		return now.AddDate(5, 0, 0), nil
	case models.DeliveryIntervalCustom:
		if customDate == nil {
			return time.Time{}, ErrMissingCustomDate
		}
		return *customDate, nil
	default:
		return time.Time{}, ErrInvalidInterval
	}
}

// ValidateLeadTime reports whether the date is at least MinLeadTime from now.
func ValidateLeadTime(date time.Time) bool {
	return ValidateLeadTimeAt(time.Now(), date)
}

// ValidateLeadTimeAt reports whether date >= now + MinLeadTime. The boundary
// is inclusive: a date at exactly now+24h passes.
func ValidateLeadTimeAt(now, date time.Time) bool {
	return !date.Before(now.Add(MinLeadTime))
}
