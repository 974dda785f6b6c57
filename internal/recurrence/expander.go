package recurrence

import (
	"errors"
	"fmt"
	"time"
)

// Type identifies a supported recurrence cadence.
type Type string

const (
	// TypeNone indicates a single, non-recurring booking.
	TypeNone Type = "none"
	// TypeDaily repeats every Interval days.
	TypeDaily Type = "daily"
	// TypeWeekly repeats on the selected weekdays every Interval weeks.
	TypeWeekly Type = "weekly"
	// TypeMonthly repeats on DayOfMonth every Interval months.
	TypeMonthly Type = "monthly"
)

// Pattern carries the type-specific knobs for occurrence generation.
// Interval defaults to 1 when left zero. Weekdays use 0=Monday..6=Sunday
// and apply to weekly patterns only; DayOfMonth applies to monthly only.
type Pattern struct {
	Interval   int
	Weekdays   []int
	DayOfMonth int
}

// ErrInvalidPattern indicates the recurrence inputs cannot produce occurrences.
var ErrInvalidPattern = errors.New("recurrence: invalid pattern")

// maxIterations bounds internal generation work so a malformed pattern can
// never spin the expander indefinitely.
const maxIterations = 1000

// Expand produces the ordered occurrence dates for a recurrence between
// startDate and endDate inclusive. It is pure and deterministic: the same
// inputs always yield the same dates, normalized to midnight UTC.
//
// Months that lack the requested day of month (e.g. day 31 in April) are
// skipped, not clamped. An empty result is not an error here; callers decide
// whether zero occurrences is acceptable.
func Expand(startDate, endDate time.Time, typ Type, pattern Pattern) ([]time.Time, error) {
	start := midnightUTC(startDate)
	end := midnightUTC(endDate)
	if start.After(end) {
		return nil, fmt.Errorf("%w: start date %s is after end date %s", ErrInvalidPattern, start.Format(time.DateOnly), end.Format(time.DateOnly))
	}

	interval := pattern.Interval
	if interval == 0 {
		interval = 1
	}
	if interval < 1 {
		return nil, fmt.Errorf("%w: interval must be at least 1", ErrInvalidPattern)
	}

	switch typ {
	case TypeDaily:
		return expandDaily(start, end, interval)
	case TypeWeekly:
		return expandWeekly(start, end, interval, pattern.Weekdays)
	case TypeMonthly:
		return expandMonthly(start, end, interval, pattern.DayOfMonth)
	default:
		return nil, fmt.Errorf("%w: unsupported recurrence type %q", ErrInvalidPattern, typ)
	}
}

func expandDaily(start, end time.Time, interval int) ([]time.Time, error) {
	dates := make([]time.Time, 0)
	iterations := 0
	for current := start; !current.After(end); current = current.AddDate(0, 0, interval) {
		if iterations++; iterations > maxIterations {
			return nil, fmt.Errorf("%w: too many occurrences (max %d iterations)", ErrInvalidPattern, maxIterations)
		}
		dates = append(dates, current)
	}
	return dates, nil
}

func expandWeekly(start, end time.Time, interval int, weekdays []int) ([]time.Time, error) {
	if len(weekdays) == 0 {
		return nil, fmt.Errorf("%w: weekly recurrence requires at least one weekday", ErrInvalidPattern)
	}
	selected := make(map[int]struct{}, len(weekdays))
	for _, day := range weekdays {
		if day < 0 || day > 6 {
			return nil, fmt.Errorf("%w: weekday %d out of range 0-6 (0=Monday)", ErrInvalidPattern, day)
		}
		selected[day] = struct{}{}
	}

	// Weeks are Monday-anchored; the week containing startDate is week zero
	// and every interval-th week after it is active.
	weekStart := start.AddDate(0, 0, -mondayIndex(start))
	dates := make([]time.Time, 0)
	iterations := 0
	for week := 0; ; week += interval {
		anchor := weekStart.AddDate(0, 0, week*7)
		if anchor.After(end) {
			break
		}
		for offset := 0; offset < 7; offset++ {
			if iterations++; iterations > maxIterations {
				return nil, fmt.Errorf("%w: too many occurrences (max %d iterations)", ErrInvalidPattern, maxIterations)
			}
			day := anchor.AddDate(0, 0, offset)
			if day.Before(start) || day.After(end) {
				continue
			}
			if _, ok := selected[offset]; ok {
				dates = append(dates, day)
			}
		}
	}
	return dates, nil
}

func expandMonthly(start, end time.Time, interval, dayOfMonth int) ([]time.Time, error) {
	if dayOfMonth < 1 || dayOfMonth > 31 {
		return nil, fmt.Errorf("%w: day of month %d out of range 1-31", ErrInvalidPattern, dayOfMonth)
	}

	dates := make([]time.Time, 0)
	iterations := 0
	year, month := start.Year(), int(start.Month())
	for {
		if iterations++; iterations > maxIterations {
			return nil, fmt.Errorf("%w: too many occurrences (max %d iterations)", ErrInvalidPattern, maxIterations)
		}

		firstOfMonth := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
		if firstOfMonth.After(end) {
			break
		}

		occurrence := time.Date(year, time.Month(month), dayOfMonth, 0, 0, 0, 0, time.UTC)
		// time.Date normalizes overflow (Feb 31 becomes Mar 3); a changed day
		// means the month has no such date, so the month is skipped.
		if occurrence.Day() == dayOfMonth && !occurrence.Before(start) && !occurrence.After(end) {
			dates = append(dates, occurrence)
		}

		month += interval
		for month > 12 {
			year++
			month -= 12
		}
	}
	return dates, nil
}

// mondayIndex converts Go's Sunday-first weekday to the 0=Monday..6=Sunday
// numbering used by recurrence patterns.
func mondayIndex(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

func midnightUTC(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
