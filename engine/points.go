package engine

import "math"

// Streak multiplier tiers, evaluated highest threshold first.
const (
	streakTier2Threshold = 7
	streakTier1Threshold = 3

	streakTier2Multiplier = 1.5
	streakTier1Multiplier = 1.2
)

// levelThresholds maps levels to cumulative lifetime point thresholds. The
// level for a point total is the highest index whose threshold the total
// has reached, capped at the top of the table.
var levelThresholds = []int{0, 50, 150, 300, 500, 750, 1000}

// rungTitles names each level, index-aligned with levelThresholds.
var rungTitles = []string{
	"Newcomer",
	"Spark",
	"Pathfinder",
	"Climber",
	"Striver",
	"Vanguard",
	"Summit",
}

// ComputeAward converts an item's base point value and the streak length at
// completion into the awarded point total. Awards are rounded half-up.
func ComputeAward(basePoints, streakLength int) int {
	multiplier := 1.0
	switch {
	case streakLength >= streakTier2Threshold:
		multiplier = streakTier2Multiplier
	case streakLength >= streakTier1Threshold:
		multiplier = streakTier1Multiplier
	}
	return int(math.Floor(float64(basePoints)*multiplier + 0.5))
}

// LevelFor derives the level from lifetime points via the threshold table.
func LevelFor(totalPoints int) int {
	level := 0
	for i, threshold := range levelThresholds {
		if totalPoints >= threshold {
			level = i
		}
	}
	return level
}

// LevelTitle returns the ladder rung name for a level. Out-of-range levels
// clamp to the ends of the table.
func LevelTitle(level int) string {
	if level < 0 {
		level = 0
	}
	if level >= len(rungTitles) {
		level = len(rungTitles) - 1
	}
	return rungTitles[level]
}
