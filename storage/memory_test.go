package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stridehq/stride/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func addCompletion(t *testing.T, store *MemoryStorage, userID, itemID primitive.ObjectID, when time.Time) *models.CompletionEvent {
	t.Helper()
	event, err := store.AddCompletion(context.Background(), &models.CompletionEvent{
		UserID:      userID,
		ItemID:      itemID,
		CompletedAt: when,
		Day:         when.Format("2006-01-02"),
	})
	require.NoError(t, err)
	return event
}

func TestCompletionDayUniqueness(t *testing.T) {
	store := NewMemoryStorage()
	userID := primitive.NewObjectID()
	itemID := primitive.NewObjectID()
	morning := time.Date(2024, 3, 15, 8, 0, 0, 0, time.UTC)

	addCompletion(t, store, userID, itemID, morning)

	// Same item, same calendar day, different clock time: rejected.
	_, err := store.AddCompletion(context.Background(), &models.CompletionEvent{
		UserID:      userID,
		ItemID:      itemID,
		CompletedAt: morning.Add(9 * time.Hour),
		Day:         morning.Format("2006-01-02"),
	})
	assert.ErrorIs(t, err, ErrDuplicate)

	// A different item on the same day is fine.
	addCompletion(t, store, userID, primitive.NewObjectID(), morning)
}

func TestCompletionWindowQueries(t *testing.T) {
	store := NewMemoryStorage()
	userID := primitive.NewObjectID()
	itemID := primitive.NewObjectID()

	day := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	addCompletion(t, store, userID, itemID, day.Add(8*time.Hour))
	late := addCompletion(t, store, userID, itemID, day.AddDate(0, 0, 1).Add(21*time.Hour))

	start := day
	end := day.AddDate(0, 0, 1)
	exists, err := store.CompletionExists(context.Background(), userID, itemID, start, end)
	require.NoError(t, err)
	assert.True(t, exists)

	// The window is half-open: a completion at the end bound belongs to the
	// next day.
	exists, err = store.CompletionExists(context.Background(), userID, itemID, day.AddDate(0, 0, -1), day)
	require.NoError(t, err)
	assert.False(t, exists)

	latest, err := store.LatestCompletion(context.Background(), userID, itemID, end, end.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, late.ID, latest.ID)

	_, err = store.LatestCompletion(context.Background(), userID, itemID, end.AddDate(0, 0, 5), end.AddDate(0, 0, 6))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEnsureLedgerIsIdempotent(t *testing.T) {
	store := NewMemoryStorage()
	userID := primitive.NewObjectID()

	first, err := store.EnsureLedger(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 0, first.TotalPoints)

	ten := 10
	_, err = store.ApplyLedgerDelta(context.Background(), userID, LedgerDelta{TotalPointsDelta: 25, CurrentStreak: &ten})
	require.NoError(t, err)

	// A second ensure returns the existing ledger rather than a fresh one.
	again, err := store.EnsureLedger(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, 25, again.TotalPoints)
}

func TestApplyLedgerDeltaStreakMaxFold(t *testing.T) {
	store := NewMemoryStorage()
	userID := primitive.NewObjectID()
	_, err := store.EnsureLedger(context.Background(), userID)
	require.NoError(t, err)

	seven := 7
	ledger, err := store.ApplyLedgerDelta(context.Background(), userID, LedgerDelta{
		CurrentStreak: &seven,
		LongestStreak: &seven,
	})
	require.NoError(t, err)
	assert.Equal(t, 7, ledger.CurrentStreak)
	assert.Equal(t, 7, ledger.LongestStreak)

	// Streaks fold with max: a smaller incoming value never lowers them.
	three := 3
	ledger, err = store.ApplyLedgerDelta(context.Background(), userID, LedgerDelta{
		CurrentStreak: &three,
		LongestStreak: &three,
	})
	require.NoError(t, err)
	assert.Equal(t, 7, ledger.CurrentStreak)
	assert.Equal(t, 7, ledger.LongestStreak)

	// Level is a plain set, not a max: undo may lower it.
	two := 2
	_, err = store.ApplyLedgerDelta(context.Background(), userID, LedgerDelta{CurrentLevel: &two})
	require.NoError(t, err)
	one := 1
	ledger, err = store.ApplyLedgerDelta(context.Background(), userID, LedgerDelta{CurrentLevel: &one})
	require.NoError(t, err)
	assert.Equal(t, 1, ledger.CurrentLevel)
}

func TestApplyLedgerDeltaAppendsAchievements(t *testing.T) {
	store := NewMemoryStorage()
	userID := primitive.NewObjectID()
	_, err := store.EnsureLedger(context.Background(), userID)
	require.NoError(t, err)

	ledger, err := store.ApplyLedgerDelta(context.Background(), userID, LedgerDelta{
		NewAchievements: []models.Achievement{{ID: "week_warrior", Title: "Week Warrior"}},
	})
	require.NoError(t, err)
	require.Len(t, ledger.Achievements, 1)
	assert.True(t, ledger.HasAchievement("week_warrior"))

	// The returned snapshot owns its achievements slice; mutating it must
	// not reach into the stored ledger.
	ledger.Achievements[0].ID = "tampered"
	fresh, err := store.FindLedger(context.Background(), userID)
	require.NoError(t, err)
	assert.True(t, fresh.HasAchievement("week_warrior"))
}

func TestApplyLedgerDeltaRequiresLedger(t *testing.T) {
	store := NewMemoryStorage()
	_, err := store.ApplyLedgerDelta(context.Background(), primitive.NewObjectID(), LedgerDelta{TotalPointsDelta: 5})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestItemNameUniquePerOwner(t *testing.T) {
	store := NewMemoryStorage()
	userID := primitive.NewObjectID()

	_, err := store.AddItem(context.Background(), &models.TrackableItem{UserID: userID, Name: "run"})
	require.NoError(t, err)

	_, err = store.AddItem(context.Background(), &models.TrackableItem{UserID: userID, Name: "run"})
	assert.ErrorIs(t, err, ErrDuplicate)

	// Another owner can reuse the name.
	_, err = store.AddItem(context.Background(), &models.TrackableItem{UserID: primitive.NewObjectID(), Name: "run"})
	assert.NoError(t, err)
}
