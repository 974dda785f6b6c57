package recurrence

import (
	"errors"
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func assertDates(t *testing.T, got, want []time.Time) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected %d dates, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Fatalf("date %d: expected %s, got %s", i, want[i].Format(time.DateOnly), got[i].Format(time.DateOnly))
		}
	}
}

func TestExpandWeekly(t *testing.T) {
	t.Parallel()

	t.Run("mondays and wednesdays from a tuesday start", func(t *testing.T) {
		t.Parallel()

		got, err := Expand(date(2026, time.February, 17), date(2026, time.March, 31), TypeWeekly, Pattern{Weekdays: []int{0, 2}, Interval: 1})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		assertDates(t, got, []time.Time{
			date(2026, time.February, 18),
			date(2026, time.February, 23),
			date(2026, time.February, 25),
			date(2026, time.March, 2),
			date(2026, time.March, 4),
			date(2026, time.March, 9),
			date(2026, time.March, 11),
			date(2026, time.March, 16),
			date(2026, time.March, 18),
			date(2026, time.March, 23),
			date(2026, time.March, 25),
			date(2026, time.March, 30),
		})
	})

	t.Run("biweekly skips alternate weeks", func(t *testing.T) {
		t.Parallel()

		// 2026-01-05 is a Monday.
		got, err := Expand(date(2026, time.January, 5), date(2026, time.February, 2), TypeWeekly, Pattern{Weekdays: []int{0}, Interval: 2})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		assertDates(t, got, []time.Time{
			date(2026, time.January, 5),
			date(2026, time.January, 19),
			date(2026, time.February, 2),
		})
	})

	t.Run("requires at least one weekday", func(t *testing.T) {
		t.Parallel()

		if _, err := Expand(date(2026, time.January, 5), date(2026, time.February, 2), TypeWeekly, Pattern{Interval: 1}); !errors.Is(err, ErrInvalidPattern) {
			t.Fatalf("expected ErrInvalidPattern, got %v", err)
		}
	})

	t.Run("rejects weekday out of range", func(t *testing.T) {
		t.Parallel()

		if _, err := Expand(date(2026, time.January, 5), date(2026, time.February, 2), TypeWeekly, Pattern{Weekdays: []int{7}}); !errors.Is(err, ErrInvalidPattern) {
			t.Fatalf("expected ErrInvalidPattern, got %v", err)
		}
	})
}

func TestExpandDaily(t *testing.T) {
	t.Parallel()

	t.Run("every day inclusive of both bounds", func(t *testing.T) {
		t.Parallel()

		got, err := Expand(date(2026, time.April, 1), date(2026, time.April, 4), TypeDaily, Pattern{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		assertDates(t, got, []time.Time{
			date(2026, time.April, 1),
			date(2026, time.April, 2),
			date(2026, time.April, 3),
			date(2026, time.April, 4),
		})
	})

	t.Run("honours the day interval", func(t *testing.T) {
		t.Parallel()

		got, err := Expand(date(2026, time.April, 1), date(2026, time.April, 10), TypeDaily, Pattern{Interval: 3})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		assertDates(t, got, []time.Time{
			date(2026, time.April, 1),
			date(2026, time.April, 4),
			date(2026, time.April, 7),
			date(2026, time.April, 10),
		})
	})

	t.Run("rejects a negative interval", func(t *testing.T) {
		t.Parallel()

		if _, err := Expand(date(2026, time.April, 1), date(2026, time.April, 10), TypeDaily, Pattern{Interval: -1}); !errors.Is(err, ErrInvalidPattern) {
			t.Fatalf("expected ErrInvalidPattern, got %v", err)
		}
	})
}

func TestExpandMonthly(t *testing.T) {
	t.Parallel()

	t.Run("skips months without the target day", func(t *testing.T) {
		t.Parallel()

		got, err := Expand(date(2026, time.January, 1), date(2026, time.May, 31), TypeMonthly, Pattern{DayOfMonth: 31})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		// February and April have no 31st and must be skipped, not clamped.
		assertDates(t, got, []time.Time{
			date(2026, time.January, 31),
			date(2026, time.March, 31),
			date(2026, time.May, 31),
		})
	})

	t.Run("honours the month interval", func(t *testing.T) {
		t.Parallel()

		got, err := Expand(date(2026, time.January, 10), date(2026, time.July, 31), TypeMonthly, Pattern{DayOfMonth: 15, Interval: 2})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		assertDates(t, got, []time.Time{
			date(2026, time.January, 15),
			date(2026, time.March, 15),
			date(2026, time.May, 15),
			date(2026, time.July, 15),
		})
	})

	t.Run("omits a first-month day before the start date", func(t *testing.T) {
		t.Parallel()

		got, err := Expand(date(2026, time.January, 20), date(2026, time.March, 31), TypeMonthly, Pattern{DayOfMonth: 10})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		assertDates(t, got, []time.Time{
			date(2026, time.February, 10),
			date(2026, time.March, 10),
		})
	})

	t.Run("rejects day of month out of range", func(t *testing.T) {
		t.Parallel()

		for _, day := range []int{0, 32} {
			if _, err := Expand(date(2026, time.January, 1), date(2026, time.March, 31), TypeMonthly, Pattern{DayOfMonth: day}); !errors.Is(err, ErrInvalidPattern) {
				t.Fatalf("day %d: expected ErrInvalidPattern, got %v", day, err)
			}
		}
	})
}

func TestExpandValidation(t *testing.T) {
	t.Parallel()

	t.Run("start after end is rejected", func(t *testing.T) {
		t.Parallel()

		if _, err := Expand(date(2026, time.May, 2), date(2026, time.May, 1), TypeDaily, Pattern{}); !errors.Is(err, ErrInvalidPattern) {
			t.Fatalf("expected ErrInvalidPattern, got %v", err)
		}
	})

	t.Run("unknown type is rejected", func(t *testing.T) {
		t.Parallel()

		if _, err := Expand(date(2026, time.May, 1), date(2026, time.May, 2), Type("hourly"), Pattern{}); !errors.Is(err, ErrInvalidPattern) {
			t.Fatalf("expected ErrInvalidPattern, got %v", err)
		}
	})

	t.Run("aborts past the iteration cap", func(t *testing.T) {
		t.Parallel()

		if _, err := Expand(date(2020, time.January, 1), date(2030, time.January, 1), TypeDaily, Pattern{Interval: 1}); !errors.Is(err, ErrInvalidPattern) {
			t.Fatalf("expected ErrInvalidPattern, got %v", err)
		}
	})

	t.Run("normalizes zoned inputs to UTC dates", func(t *testing.T) {
		t.Parallel()

		johannesburg := time.FixedZone("SAST", 2*60*60)
		start := time.Date(2026, time.April, 1, 1, 30, 0, 0, johannesburg)
		got, err := Expand(start, date(2026, time.April, 2), TypeDaily, Pattern{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		// 01:30 SAST on April 1st is still March 31st in UTC.
		assertDates(t, got, []time.Time{
			date(2026, time.March, 31),
			date(2026, time.April, 1),
			date(2026, time.April, 2),
		})
	})
}
