package recurrence

import (
	"testing"
	"time"
)

func BenchmarkExpandWeekly(b *testing.B) {
	start := time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(1, 0, 0)
	pattern := Pattern{Weekdays: []int{0, 1, 2, 3, 4}, Interval: 1}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		dates, err := Expand(start, end, TypeWeekly, pattern)
		if err != nil {
			b.Fatalf("unexpected error: %v", err)
		}
		if len(dates) == 0 {
			b.Fatal("expected dates to be generated")
		}
	}
}
