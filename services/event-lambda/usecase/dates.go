package usecase

import (
	"strings"
	"time"

	apperrors "github.com/digioh-event-services/common/errors"
)

// ParseEventDate parses a date in ISO, SQL datetime or dd/mm/yyyy format.
// Only the calendar date is kept.
func ParseEventDate(field, value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, apperrors.MissingField(field)
	}

	layouts := []string{
		"2006-01-02",
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02T15:04",
		"2006-01-02 15:04:05",
		"02/01/2006",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, value); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, apperrors.InvalidInput(field, "invalid date '"+value+"' for "+field)
}

// ValidateEventDates checks the event's date range
//
// Rules:
// 1. End date must not be before the start date
// 2. Loading (setup) must happen no later than the last event day
func ValidateEventDates(start, end time.Time, loading *time.Time) error {
	if end.Before(start) {
		return apperrors.InvalidInput("end_date", "end_date must not be before start_date")
	}
	if loading != nil && loading.After(end) {
		return apperrors.InvalidInput("loading_date", "loading_date must not be after end_date")
	}
	return nil
}
