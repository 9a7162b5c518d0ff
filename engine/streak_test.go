package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stridehq/stride/models"
	"github.com/stridehq/stride/storage"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// baseDay is an arbitrary fixed date so the tests don't depend on the
// clock.
var baseDay = time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)

func testEngine() (*Engine, *storage.MemoryStorage) {
	store := storage.NewMemoryStorage()
	e := New(store, nil, nil)
	e.Now = func() time.Time { return baseDay }
	return e, store
}

// seedCompletion inserts a bare completion row for the given day offset
// relative to baseDay.
func seedCompletion(t *testing.T, store *storage.MemoryStorage, userID, itemID primitive.ObjectID, dayOffset int) {
	t.Helper()
	when := baseDay.AddDate(0, 0, dayOffset)
	_, err := store.AddCompletion(context.Background(), &models.CompletionEvent{
		UserID:      userID,
		ItemID:      itemID,
		CompletedAt: when,
		Day:         dayKey(when),
	})
	require.NoError(t, err)
}

func TestComputeStreakNoHistory(t *testing.T) {
	e, _ := testEngine()
	userID := primitive.NewObjectID()
	itemID := primitive.NewObjectID()

	streak, err := e.computeStreak(context.Background(), userID, itemID, baseDay)
	require.NoError(t, err)
	assert.Equal(t, 1, streak, "the day being completed always counts")
}

func TestComputeStreakGapResetsRun(t *testing.T) {
	e, store := testEngine()
	userID := primitive.NewObjectID()
	itemID := primitive.NewObjectID()

	// Older history separated from today by a gap at -1.
	seedCompletion(t, store, userID, itemID, -2)
	seedCompletion(t, store, userID, itemID, -3)
	seedCompletion(t, store, userID, itemID, -4)

	streak, err := e.computeStreak(context.Background(), userID, itemID, baseDay)
	require.NoError(t, err)
	assert.Equal(t, 1, streak, "a gap day ends the run regardless of older history")
}

func TestComputeStreakConsecutiveDays(t *testing.T) {
	e, store := testEngine()
	userID := primitive.NewObjectID()
	itemID := primitive.NewObjectID()

	for n := 1; n <= 10; n++ {
		// Day -n+1 .. -1 filled; completing day 0 makes a run of n.
		if n > 1 {
			seedCompletion(t, store, userID, itemID, -(n - 1))
		}
		streak, err := e.computeStreak(context.Background(), userID, itemID, baseDay)
		require.NoError(t, err)
		assert.Equal(t, n, streak, "run of %d consecutive days", n)
	}
}

func TestComputeStreakIgnoresOtherItems(t *testing.T) {
	e, store := testEngine()
	userID := primitive.NewObjectID()
	itemID := primitive.NewObjectID()
	otherItem := primitive.NewObjectID()

	seedCompletion(t, store, userID, otherItem, -1)

	streak, err := e.computeStreak(context.Background(), userID, itemID, baseDay)
	require.NoError(t, err)
	assert.Equal(t, 1, streak, "streaks are scoped per item")
}

func TestLongestRun(t *testing.T) {
	days := map[string]bool{
		"2024-03-01": true,
		"2024-03-02": true,
		"2024-03-03": true,
		// gap
		"2024-03-10": true,
		"2024-03-11": true,
	}
	assert.Equal(t, 3, longestRun(days))
	assert.Equal(t, 0, longestRun(map[string]bool{}))
	assert.Equal(t, 1, longestRun(map[string]bool{"2024-03-01": true}))
}
