package engine

import (
	"time"

	"github.com/stridehq/stride/models"
)

// achievementRule couples an achievement's catalog entry with its unlock
// condition. Conditions read the ledger as it stands after the current
// event has been applied.
type achievementRule struct {
	id          string
	title       string
	description string
	icon        string
	category    models.AchievementCategory
	qualifies   func(ledger *models.ProgressionLedger, latestStreak int) bool
}

// achievementRules is the canonical rule table. Rules are evaluated
// independently, in order, so simultaneous unlocks land in a deterministic
// sequence.
var achievementRules = []achievementRule{
	{
		id:          "week_warrior",
		title:       "Week Warrior",
		description: "Complete an item seven days in a row.",
		icon:        "🔥",
		category:    models.AchievementCategoryStreak,
		qualifies: func(_ *models.ProgressionLedger, latestStreak int) bool {
			return latestStreak == 7
		},
	},
	{
		id:          "month_master",
		title:       "Month Master",
		description: "Complete an item thirty days in a row.",
		icon:        "📅",
		category:    models.AchievementCategoryStreak,
		qualifies: func(_ *models.ProgressionLedger, latestStreak int) bool {
			return latestStreak == 30
		},
	},
	{
		id:          "point_collector",
		title:       "Point Collector",
		description: "Accumulate 500 lifetime points.",
		icon:        "💎",
		category:    models.AchievementCategoryPoints,
		qualifies: func(ledger *models.ProgressionLedger, _ int) bool {
			return ledger.TotalPoints >= 500
		},
	},
	{
		id:          "ladder_climber",
		title:       "Ladder Climber",
		description: "Reach level 5 on the ladder.",
		icon:        "🪜",
		category:    models.AchievementCategoryMilestone,
		qualifies: func(ledger *models.ProgressionLedger, _ int) bool {
			return ledger.CurrentLevel >= 5
		},
	},
}

// evaluateAchievements is a pure function of the updated ledger state. It
// returns the achievements that newly qualify on this event, skipping any
// id the ledger already holds, stamped with the given unlock time.
func evaluateAchievements(ledger *models.ProgressionLedger, latestStreak int, now time.Time) []models.Achievement {
	var unlocked []models.Achievement
	for _, rule := range achievementRules {
		if ledger.HasAchievement(rule.id) {
			continue
		}
		if !rule.qualifies(ledger, latestStreak) {
			continue
		}
		unlocked = append(unlocked, models.Achievement{
			ID:          rule.id,
			Title:       rule.title,
			Description: rule.description,
			Icon:        rule.icon,
			Category:    rule.category,
			UnlockedAt:  now,
		})
	}
	return unlocked
}
