package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stridehq/stride/models"
)

func achievementIDs(achievements []models.Achievement) []string {
	ids := make([]string, 0, len(achievements))
	for _, a := range achievements {
		ids = append(ids, a.ID)
	}
	return ids
}

func TestEvaluateAchievementsStreaks(t *testing.T) {
	now := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)
	ledger := &models.ProgressionLedger{}

	assert.Empty(t, evaluateAchievements(ledger, 6, now))

	unlocked := evaluateAchievements(ledger, 7, now)
	assert.Equal(t, []string{"week_warrior"}, achievementIDs(unlocked))
	assert.Equal(t, models.AchievementCategoryStreak, unlocked[0].Category)
	assert.Equal(t, now, unlocked[0].UnlockedAt)

	// The streak rules fire on the exact day the threshold is reached, not
	// on every day past it.
	assert.Empty(t, evaluateAchievements(ledger, 8, now))

	assert.Equal(t, []string{"month_master"}, achievementIDs(evaluateAchievements(ledger, 30, now)))
}

func TestEvaluateAchievementsPointsAndLevel(t *testing.T) {
	now := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)

	ledger := &models.ProgressionLedger{TotalPoints: 499, CurrentLevel: 3}
	assert.Empty(t, evaluateAchievements(ledger, 1, now))

	ledger = &models.ProgressionLedger{TotalPoints: 500, CurrentLevel: 4}
	assert.Equal(t, []string{"point_collector"}, achievementIDs(evaluateAchievements(ledger, 1, now)))

	ledger = &models.ProgressionLedger{TotalPoints: 750, CurrentLevel: 5}
	assert.Equal(t, []string{"point_collector", "ladder_climber"}, achievementIDs(evaluateAchievements(ledger, 1, now)))
}

func TestEvaluateAchievementsNeverReunlocks(t *testing.T) {
	now := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)
	ledger := &models.ProgressionLedger{
		TotalPoints:  600,
		CurrentLevel: 4,
		Achievements: []models.Achievement{{ID: "point_collector"}},
	}
	assert.Empty(t, evaluateAchievements(ledger, 1, now))
}

func TestEvaluateAchievementsBatchOrder(t *testing.T) {
	now := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)

	// A single event that satisfies three rules at once unlocks them in
	// rule-table order.
	ledger := &models.ProgressionLedger{TotalPoints: 800, CurrentLevel: 5}
	unlocked := evaluateAchievements(ledger, 7, now)
	assert.Equal(t, []string{"week_warrior", "point_collector", "ladder_climber"}, achievementIDs(unlocked))
}
