package engine

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// dayBounds returns the [start, end) bounds of the calendar day containing
// t, in t's location.
func dayBounds(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 0, 1)
}

// dayKey formats the calendar day of t as YYYY-MM-DD in t's location.
func dayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// computeStreak returns the length of the consecutive-day completion run
// for (user, item) ending at referenceDate, inclusive. The day being
// completed counts, so the result is always at least 1. It walks backward
// one calendar day at a time and stops at the first gap; each step is one
// indexed point query, so the cost is linear in the streak length.
func (e *Engine) computeStreak(ctx context.Context, userID, itemID primitive.ObjectID, referenceDate time.Time) (int, error) {
	streak := 1
	day := referenceDate.AddDate(0, 0, -1)
	for {
		start, end := dayBounds(day)
		exists, err := e.store.CompletionExists(ctx, userID, itemID, start, end)
		if err != nil {
			return 0, err
		}
		if !exists {
			return streak, nil
		}
		streak++
		day = day.AddDate(0, 0, -1)
	}
}

// longestRun computes the longest consecutive-day run over a set of
// completion day keys. Used for the read-side item stats.
func longestRun(days map[string]bool) int {
	longest := 0
	for day := range days {
		t, err := time.Parse("2006-01-02", day)
		if err != nil {
			continue
		}
		// Only start counting from the beginning of a run.
		if days[dayKey(t.AddDate(0, 0, -1))] {
			continue
		}
		run := 1
		for days[dayKey(t.AddDate(0, 0, run))] {
			run++
		}
		if run > longest {
			longest = run
		}
	}
	return longest
}
