// Package maintenance holds the date arithmetic that drives obligation status
// and the workflow that records a completed obligation.
//
// Due dates are calendar dates written day/month/year ("5/1/2026" or
// "05/01/2026"). Status is computed at day granularity: the time of day of
// "today" never matters, only its calendar date in the configured location.
package maintenance

import (
	"strconv"
	"strings"
	"time"

	"labmaint/internal/types"
)

// DueSoonWindowDays is the last day count (inclusive) that still reports
// DueSoon. A due date today is 0 days away and also DueSoon.
const DueSoonWindowDays = 5

// Recurrence offsets in days.
const (
	offsetMonthly    = 30
	offsetBimonthly  = 60
	offsetQuarterly  = 90
	offsetSemiannual = 180
)

// recurrenceRules is checked in order; the first keyword contained in the
// lowercased type wins.
var recurrenceRules = []struct {
	keyword string
	days    int
}{
	{"bimestral", offsetBimonthly},
	{"trimestral", offsetQuarterly},
	{"semestral", offsetSemiannual},
}

// ParseDueDate parses a day/month/year date. The result is midnight UTC of
// that calendar day; callers compare it against other calendar days only.
func ParseDueDate(s string) (time.Time, error) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) != 3 {
		return time.Time{}, invalidDate(s)
	}
	day, errD := strconv.Atoi(parts[0])
	month, errM := strconv.Atoi(parts[1])
	year, errY := strconv.Atoi(parts[2])
	if errD != nil || errM != nil || errY != nil {
		return time.Time{}, invalidDate(s)
	}
	if len(parts[2]) != 4 || month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, invalidDate(s)
	}

	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes 31/02 into March; reject instead.
	if t.Day() != day || int(t.Month()) != month {
		return time.Time{}, invalidDate(s)
	}
	return t, nil
}

func invalidDate(s string) *types.AppError {
	return types.NewAppErrorWithDetails(
		types.ErrCodeValidationInvalidDateFormat,
		"la fecha debe tener el formato dd/mm/aaaa",
		nil,
		map[string]any{"value": s},
	)
}

// FormatDueDate renders a date the way the es-CO locale writes short dates:
// day/month/year with no zero padding.
func FormatDueDate(t time.Time) string {
	return strconv.Itoa(t.Day()) + "/" + strconv.Itoa(int(t.Month())) + "/" + strconv.Itoa(t.Year())
}

// calendarDay returns UTC midnight of t's calendar date as read in t's own
// location, so dates from different zones subtract as whole days.
func calendarDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysRemaining returns the whole number of days from today's calendar date
// to due. Negative values mean the due date has passed.
func DaysRemaining(due, today time.Time) int {
	d := calendarDay(due).Sub(calendarDay(today))
	return int(d / (24 * time.Hour))
}

// StatusForDays maps a day count onto the three derived statuses.
func StatusForDays(days int) types.ObligationStatus {
	switch {
	case days < 0:
		return types.StatusOverdue
	case days <= DueSoonWindowDays:
		return types.StatusDueSoon
	default:
		return types.StatusOnTrack
	}
}

// DeriveStatus computes an obligation's status from its due date. An empty
// date means "not scheduled yet" and is OnTrack. today should already be in
// the plant's time zone.
func DeriveStatus(dueDate string, today time.Time) (types.ObligationStatus, error) {
	if strings.TrimSpace(dueDate) == "" {
		return types.StatusOnTrack, nil
	}
	due, err := ParseDueDate(dueDate)
	if err != nil {
		return "", err
	}
	return StatusForDays(DaysRemaining(due, today)), nil
}

// RecurrenceOffset returns how many days an obligation type advances on
// completion. Matching is a case-insensitive substring test; anything
// unrecognized, monthly included, gets 30 days.
func RecurrenceOffset(obligationType string) int {
	t := strings.ToLower(obligationType)
	for _, rule := range recurrenceRules {
		if strings.Contains(t, rule.keyword) {
			return rule.days
		}
	}
	return offsetMonthly
}

// NextDueDate returns the formatted due date that follows a completion of
// obligationType at from.
func NextDueDate(obligationType string, from time.Time) string {
	return FormatDueDate(from.AddDate(0, 0, RecurrenceOffset(obligationType)))
}
