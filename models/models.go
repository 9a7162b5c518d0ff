package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Intensity classifies how demanding a trackable item is. The point value
// of an item is derived from its intensity and is never set directly.
type Intensity string

const (
	IntensityEasy   Intensity = "easy"
	IntensityMedium Intensity = "medium"
	IntensityHard   Intensity = "hard"
)

// PointValue returns the base points earned per completion of an item with
// this intensity. Unknown intensities are worth nothing.
func (i Intensity) PointValue() int {
	switch i {
	case IntensityEasy:
		return 5
	case IntensityMedium:
		return 10
	case IntensityHard:
		return 20
	default:
		return 0
	}
}

// Valid reports whether the intensity is one of the known tiers.
func (i Intensity) Valid() bool {
	return i == IntensityEasy || i == IntensityMedium || i == IntensityHard
}

type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Username     string             `bson:"username" json:"username"`
	PasswordHash string             `bson:"password_hash" json:"-"`
	Email        string             `bson:"email" json:"email"`
	Role         string             `bson:"role" json:"role"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
}

// TrackableItem is a user-defined habit (recurring) or goal (one-time).
// PointValue is bookkeeping derived from Intensity; it is recomputed
// whenever the intensity changes.
type TrackableItem struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID      primitive.ObjectID `bson:"user_id" json:"user_id"`
	Name        string             `bson:"name" json:"name"`
	Description string             `bson:"description" json:"description"`
	Intensity   Intensity          `bson:"intensity" json:"intensity"`
	PointValue  int                `bson:"point_value" json:"point_value"`
	IsRecurring bool               `bson:"is_recurring" json:"is_recurring"`
	IsActive    bool               `bson:"is_active" json:"is_active"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	ArchivedAt  *time.Time         `bson:"archived_at,omitempty" json:"archived_at,omitempty"`
}

// Subtask is a checklist entry under a trackable item. Repetitive subtasks
// that were checked off are reset to incomplete when their parent item is
// completed, with LastShown refreshed to the completion time.
type Subtask struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ItemID       primitive.ObjectID `bson:"item_id" json:"item_id"`
	Name         string             `bson:"name" json:"name"`
	IsRepetitive bool               `bson:"is_repetitive" json:"is_repetitive"`
	Completed    bool               `bson:"completed" json:"completed"`
	LastShown    time.Time          `bson:"last_shown" json:"last_shown"`
}

// CompletionEvent records that a trackable item was done at a point in
// time. PointsAwarded and StreakAtCompletion are snapshots of what this
// specific event earned, so history stays stable if scoring rules change.
// Day is the local calendar day of CompletedAt in YYYY-MM-DD form; together
// with (user_id, item_id) it is the uniqueness key for recurring items.
type CompletionEvent struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID             primitive.ObjectID `bson:"user_id" json:"user_id"`
	ItemID             primitive.ObjectID `bson:"item_id" json:"item_id"`
	CompletedAt        time.Time          `bson:"completed_at" json:"completed_at"`
	Day                string             `bson:"day" json:"day"`
	PointsAwarded      int                `bson:"points_awarded" json:"points_awarded"`
	StreakAtCompletion int                `bson:"streak_at_completion" json:"streak_at_completion"`
	Notes              string             `bson:"notes,omitempty" json:"notes,omitempty"`
}

// AchievementCategory tags what kind of milestone an achievement marks.
type AchievementCategory string

const (
	AchievementCategoryStreak    AchievementCategory = "streak"
	AchievementCategoryPoints    AchievementCategory = "points"
	AchievementCategoryMilestone AchievementCategory = "milestone"
)

// Achievement is a named milestone unlocked once when a ledger-state
// condition is first satisfied.
type Achievement struct {
	ID          string              `bson:"id" json:"id"`
	Title       string              `bson:"title" json:"title"`
	Description string              `bson:"description" json:"description"`
	Icon        string              `bson:"icon" json:"icon"`
	Category    AchievementCategory `bson:"category" json:"category"`
	UnlockedAt  time.Time           `bson:"unlocked_at" json:"unlocked_at"`
}

// ProgressionLedger is the per-user aggregate the engine maintains: lifetime
// and weekly points, streak high-water marks, the level derived from
// lifetime points, and the set of unlocked achievements. One ledger exists
// per user, created lazily on first use.
type ProgressionLedger struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID        primitive.ObjectID `bson:"user_id" json:"user_id"`
	TotalPoints   int                `bson:"total_points" json:"total_points"`
	WeeklyPoints  int                `bson:"weekly_points" json:"weekly_points"`
	CurrentStreak int                `bson:"current_streak" json:"current_streak"`
	LongestStreak int                `bson:"longest_streak" json:"longest_streak"`
	CurrentLevel  int                `bson:"current_level" json:"current_level"`
	Achievements  []Achievement      `bson:"achievements" json:"achievements"`
	CreatedAt     time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time          `bson:"updated_at" json:"updated_at"`
}

// HasAchievement reports whether the ledger already holds the given
// achievement id.
func (l *ProgressionLedger) HasAchievement(id string) bool {
	for _, a := range l.Achievements {
		if a.ID == id {
			return true
		}
	}
	return false
}

// Submission review statuses. A submission starts pending and moves exactly
// once to approved or rejected.
const (
	SubmissionPending  = "pending"
	SubmissionApproved = "approved"
	SubmissionRejected = "rejected"
)

// LadderSubmission is a user's evidence for a ladder rung, reviewed by a
// user holding the review capability.
type LadderSubmission struct {
	ID         primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	UserID     primitive.ObjectID  `bson:"user_id" json:"user_id"`
	RungTitle  string              `bson:"rung_title" json:"rung_title"`
	Evidence   string              `bson:"evidence" json:"evidence"`
	Status     string              `bson:"status" json:"status"`
	Score      *int                `bson:"score,omitempty" json:"score,omitempty"`
	Reason     string              `bson:"reason,omitempty" json:"reason,omitempty"`
	ReviewerID *primitive.ObjectID `bson:"reviewer_id,omitempty" json:"reviewer_id,omitempty"`
	CreatedAt  time.Time           `bson:"created_at" json:"created_at"`
	ReviewedAt *time.Time          `bson:"reviewed_at,omitempty" json:"reviewed_at,omitempty"`
}

// ItemStats summarizes the completion history of a single trackable item.
type ItemStats struct {
	ItemID           primitive.ObjectID `json:"item_id"`
	TotalCompletions int                `json:"total_completions"`
	CurrentStreak    int                `json:"current_streak"`
	LongestStreak    int                `json:"longest_streak"`
	FirstCompletion  *time.Time         `json:"first_completion,omitempty"`
	LastCompletion   *time.Time         `json:"last_completion,omitempty"`
}
