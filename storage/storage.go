package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/stridehq/stride/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrNotFound is returned by the Find* methods when no document matches.
// Callers translate it into their own taxonomy at the boundary.
var ErrNotFound = errors.New("document not found")

// ErrDuplicate is returned when an insert violates a uniqueness constraint,
// such as a second completion of an item on the same calendar day.
var ErrDuplicate = errors.New("duplicate document")

// DeleteResult represents the result of a deletion operation,
// specifically the count of documents deleted.
type DeleteResult struct {
	DeletedCount int64
}

// UpdateResult represents the result of an update operation,
// specifically the count of documents matched and modified.
type UpdateResult struct {
	MatchedCount  int64
	ModifiedCount int64
}

// LedgerDelta describes one atomic mutation of a progression ledger. Point
// deltas are applied as increments; streak fields are folded in with a max,
// so a smaller incoming streak never lowers the stored one; the level is
// set outright; new achievements are appended. The whole delta lands in a
// single update so the ledger never holds a partially applied event.
type LedgerDelta struct {
	TotalPointsDelta  int
	WeeklyPointsDelta int
	CurrentStreak     *int
	LongestStreak     *int
	CurrentLevel      *int
	NewAchievements   []models.Achievement
}

// StorageInterface defines the set of methods that any persistent storage
// backend needs to implement.
type StorageInterface interface {
	// Establishes a connection to the storage backend.
	Connect(dbName, uri string) error
	// Disconnects from the storage backend.
	Disconnect() error

	// Users
	AddUser(ctx context.Context, user *models.User) (*models.User, error)
	FindUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)

	// Trackable items
	AddItem(ctx context.Context, item *models.TrackableItem) (*models.TrackableItem, error)
	FindItemByID(ctx context.Context, id primitive.ObjectID) (*models.TrackableItem, error)
	FindItemsByOwner(ctx context.Context, ownerID primitive.ObjectID, activeOnly bool) ([]models.TrackableItem, error)
	UpdateItem(ctx context.Context, item *models.TrackableItem) (*UpdateResult, error)
	ArchiveItem(ctx context.Context, id primitive.ObjectID, when time.Time) (*UpdateResult, error)

	// Subtasks
	AddSubtask(ctx context.Context, subtask *models.Subtask) (*models.Subtask, error)
	FindSubtasksByItem(ctx context.Context, itemID primitive.ObjectID) ([]models.Subtask, error)
	UpdateSubtask(ctx context.Context, subtask *models.Subtask) (*UpdateResult, error)
	// ResetRepetitiveSubtasks flips completed repetitive subtasks of the
	// item back to incomplete and refreshes their last_shown stamp.
	ResetRepetitiveSubtasks(ctx context.Context, itemID primitive.ObjectID, now time.Time) (*UpdateResult, error)

	// Completion events
	AddCompletion(ctx context.Context, event *models.CompletionEvent) (*models.CompletionEvent, error)
	// CompletionExists reports whether any completion of the item by the
	// user falls within [start, end).
	CompletionExists(ctx context.Context, userID, itemID primitive.ObjectID, start, end time.Time) (bool, error)
	// HasAnyCompletion reports whether the item has ever been completed by
	// the user, regardless of day.
	HasAnyCompletion(ctx context.Context, userID, itemID primitive.ObjectID) (bool, error)
	// LatestCompletion returns the most recent completion within
	// [start, end), or ErrNotFound.
	LatestCompletion(ctx context.Context, userID, itemID primitive.ObjectID, start, end time.Time) (*models.CompletionEvent, error)
	// CompletionsForItem returns the full history for an item, oldest first.
	CompletionsForItem(ctx context.Context, userID, itemID primitive.ObjectID) ([]models.CompletionEvent, error)
	DeleteCompletion(ctx context.Context, id primitive.ObjectID) (*DeleteResult, error)

	// Progression ledgers
	FindLedger(ctx context.Context, userID primitive.ObjectID) (*models.ProgressionLedger, error)
	// EnsureLedger returns the user's ledger, creating an empty one if none
	// exists yet.
	EnsureLedger(ctx context.Context, userID primitive.ObjectID) (*models.ProgressionLedger, error)
	// ApplyLedgerDelta applies the delta atomically and returns the updated
	// ledger.
	ApplyLedgerDelta(ctx context.Context, userID primitive.ObjectID, delta LedgerDelta) (*models.ProgressionLedger, error)
	// ResetWeeklyPoints zeroes the weekly accumulator, leaving everything
	// else untouched. Called by the weekly boundary job.
	ResetWeeklyPoints(ctx context.Context, userID primitive.ObjectID) (*models.ProgressionLedger, error)

	// Ladder submissions
	AddSubmission(ctx context.Context, submission *models.LadderSubmission) (*models.LadderSubmission, error)
	FindSubmissionByID(ctx context.Context, id primitive.ObjectID) (*models.LadderSubmission, error)
	FindSubmissionsByUser(ctx context.Context, userID primitive.ObjectID) ([]models.LadderSubmission, error)
	UpdateSubmission(ctx context.Context, submission *models.LadderSubmission) (*UpdateResult, error)
}

// NewStorage creates a new StorageInterface with a MongoDB backend,
// using the provided URI to connect to the MongoDB server.
func NewStorage(dbName, uri string) (StorageInterface, error) {
	storage := NewMongoStorage()
	err := storage.Connect(dbName, uri)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	return storage, nil
}
