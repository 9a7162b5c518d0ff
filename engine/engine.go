// Package engine implements the progression engine: the single place where
// completion events turn into point awards, streak accounting, level
// transitions, and achievement unlocks. Every completion path in the system
// goes through this package, so streaks, awards, and levels are computed by
// exactly one set of rules.
package engine

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/stridehq/stride/cache"
	"github.com/stridehq/stride/events"
	"github.com/stridehq/stride/models"
	"github.com/stridehq/stride/storage"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Engine orchestrates the completion flow against a storage backend, with
// an optional ledger-snapshot cache and an optional event publisher. Both
// extras may be nil.
//
// Updates to a user's progression ledger are serialized through a per-user
// mutex, so two concurrent completions for the same user cannot interleave
// their read-modify-write and leave the level out of sync with the totals.
type Engine struct {
	store  storage.StorageInterface
	cache  cache.CacheInterface
	events events.Publisher

	// Now supplies the current time for completions and undos. Tests
	// override it to replay multi-day histories.
	Now func() time.Time

	mu        sync.Mutex
	userLocks map[primitive.ObjectID]*sync.Mutex
}

// New creates a progression engine over the given storage backend. The
// ledger cache and event publisher are optional; pass nil to disable them.
func New(store storage.StorageInterface, ledgerCache cache.CacheInterface, publisher events.Publisher) *Engine {
	return &Engine{
		store:     store,
		cache:     ledgerCache,
		events:    publisher,
		Now:       time.Now,
		userLocks: make(map[primitive.ObjectID]*sync.Mutex),
	}
}

// CompletionResult is what a successful completion returns to the caller.
type CompletionResult struct {
	Completion      *models.CompletionEvent   `json:"completion"`
	Ledger          *models.ProgressionLedger `json:"ledger"`
	NewAchievements []models.Achievement      `json:"new_achievements"`
}

// UndoResult is what a successful undo returns to the caller.
type UndoResult struct {
	Ledger *models.ProgressionLedger `json:"ledger"`
}

// lockUser acquires the per-user mutex and returns its unlock function.
func (e *Engine) lockUser(userID primitive.ObjectID) func() {
	e.mu.Lock()
	lock, ok := e.userLocks[userID]
	if !ok {
		lock = &sync.Mutex{}
		e.userLocks[userID] = lock
	}
	e.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

// loadOwnedItem fetches an item and verifies it belongs to the acting user.
func (e *Engine) loadOwnedItem(ctx context.Context, userID, itemID primitive.ObjectID) (*models.TrackableItem, error) {
	item, err := e.store.FindItemByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if item.UserID != userID {
		return nil, ErrForbidden
	}
	return item, nil
}

// CompleteItem records a completion of the item by the user and applies the
// full progression flow: idempotence guard, streak computation, point
// award, ledger update, achievement evaluation. All checks run before any
// mutation, so a guard failure leaves every ledger untouched.
func (e *Engine) CompleteItem(ctx context.Context, userID, itemID primitive.ObjectID, notes string) (*CompletionResult, error) {
	unlock := e.lockUser(userID)
	defer unlock()

	item, err := e.loadOwnedItem(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}
	if !item.IsActive {
		return nil, ErrItemInactive
	}

	when := e.Now()
	start, end := dayBounds(when)

	// Idempotence guard: one completion per calendar day for habits, one
	// per lifetime for goals.
	if item.IsRecurring {
		exists, err := e.store.CompletionExists(ctx, userID, itemID, start, end)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, ErrAlreadyCompletedToday
		}
	} else {
		completed, err := e.store.HasAnyCompletion(ctx, userID, itemID)
		if err != nil {
			return nil, err
		}
		if completed {
			return nil, ErrAlreadyCompleted
		}
	}

	streak, err := e.computeStreak(ctx, userID, itemID, when)
	if err != nil {
		return nil, err
	}
	award := ComputeAward(item.PointValue, streak)

	ledger, err := e.store.EnsureLedger(ctx, userID)
	if err != nil {
		return nil, err
	}

	event := &models.CompletionEvent{
		UserID:             userID,
		ItemID:             itemID,
		CompletedAt:        when,
		Day:                dayKey(when),
		PointsAwarded:      award,
		StreakAtCompletion: streak,
		Notes:              notes,
	}
	event, err = e.store.AddCompletion(ctx, event)
	if err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			// Lost a race with a concurrent completion; the unique day
			// index caught it.
			return nil, ErrAlreadyCompletedToday
		}
		return nil, err
	}

	newTotal := ledger.TotalPoints + award
	level := LevelFor(newTotal)

	// Evaluate achievements against the ledger as it will stand after this
	// event.
	view := *ledger
	view.TotalPoints = newTotal
	view.WeeklyPoints = ledger.WeeklyPoints + award
	view.CurrentLevel = level
	view.CurrentStreak = maxInt(ledger.CurrentStreak, streak)
	newAchievements := evaluateAchievements(&view, streak, when)

	delta := storage.LedgerDelta{
		TotalPointsDelta:  award,
		WeeklyPointsDelta: award,
		CurrentStreak:     &streak,
		LongestStreak:     &streak,
		CurrentLevel:      &level,
		NewAchievements:   newAchievements,
	}
	updated, err := e.store.ApplyLedgerDelta(ctx, userID, delta)
	if err != nil {
		// Compensation: the ledger update failed after the event row was
		// inserted, so remove the row to keep the two stores consistent.
		if _, delErr := e.store.DeleteCompletion(ctx, event.ID); delErr != nil {
			log.Printf("error compensating completion %s: %v", event.ID.Hex(), delErr)
		}
		return nil, err
	}

	// Completing a habit starts a fresh day for its checklist: repetitive
	// subtasks that were checked off come back.
	if item.IsRecurring {
		if _, err := e.store.ResetRepetitiveSubtasks(ctx, itemID, when); err != nil {
			log.Printf("error resetting subtasks for item %s: %v", itemID.Hex(), err)
		}
	}

	e.invalidateLedger(ctx, userID)

	e.publish(events.Event{
		Type:       events.TypeCompletionRecorded,
		UserID:     userID.Hex(),
		ItemID:     itemID.Hex(),
		OccurredAt: when,
		Payload: map[string]interface{}{
			"points_awarded": award,
			"streak":         streak,
		},
	})
	for _, achievement := range newAchievements {
		e.publish(events.Event{
			Type:       events.TypeAchievementUnlocked,
			UserID:     userID.Hex(),
			ItemID:     itemID.Hex(),
			OccurredAt: when,
			Payload:    map[string]interface{}{"achievement_id": achievement.ID},
		})
	}

	return &CompletionResult{
		Completion:      event,
		Ledger:          updated,
		NewAchievements: newAchievements,
	}, nil
}

// UndoCompletion reverses the most recent completion of the item on the
// given day (today when date is nil). It refunds the event's points from
// both accumulators, floored at zero, recomputes the level, and deletes the
// completion row.
//
// Undo is a point-correction operation, not time travel: it never rewinds
// currentStreak, longestStreak, or achievements. That asymmetry is
// intentional and mirrors how the product treats undo ("give the points
// back") rather than rewriting history.
func (e *Engine) UndoCompletion(ctx context.Context, userID, itemID primitive.ObjectID, date *time.Time) (*UndoResult, error) {
	unlock := e.lockUser(userID)
	defer unlock()

	if _, err := e.loadOwnedItem(ctx, userID, itemID); err != nil {
		return nil, err
	}

	when := e.Now()
	if date != nil {
		when = *date
	}
	start, end := dayBounds(when)

	event, err := e.store.LatestCompletion(ctx, userID, itemID, start, end)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNothingToUndo
		}
		return nil, err
	}

	ledger, err := e.store.EnsureLedger(ctx, userID)
	if err != nil {
		return nil, err
	}

	totalRefund := minInt(event.PointsAwarded, ledger.TotalPoints)
	weeklyRefund := minInt(event.PointsAwarded, ledger.WeeklyPoints)
	level := LevelFor(ledger.TotalPoints - totalRefund)

	delta := storage.LedgerDelta{
		TotalPointsDelta:  -totalRefund,
		WeeklyPointsDelta: -weeklyRefund,
		CurrentLevel:      &level,
	}
	updated, err := e.store.ApplyLedgerDelta(ctx, userID, delta)
	if err != nil {
		return nil, err
	}

	if _, err := e.store.DeleteCompletion(ctx, event.ID); err != nil {
		return nil, err
	}

	e.invalidateLedger(ctx, userID)

	e.publish(events.Event{
		Type:       events.TypeCompletionUndone,
		UserID:     userID.Hex(),
		ItemID:     itemID.Hex(),
		OccurredAt: e.Now(),
		Payload:    map[string]interface{}{"points_refunded": totalRefund},
	})

	return &UndoResult{Ledger: updated}, nil
}

// GetLedger returns the user's progression ledger snapshot, served from the
// cache when possible.
func (e *Engine) GetLedger(ctx context.Context, userID primitive.ObjectID) (*models.ProgressionLedger, error) {
	key := ledgerCacheKey(userID)
	if e.cache != nil {
		var cached models.ProgressionLedger
		if err := e.cache.Get(ctx, key, &cached); err == nil {
			return &cached, nil
		}
	}

	ledger, err := e.store.FindLedger(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if e.cache != nil {
		if err := e.cache.Set(ctx, key, ledger); err != nil {
			log.Printf("error caching ledger for user %s: %v", userID.Hex(), err)
		}
	}

	return ledger, nil
}

// ResetWeeklyPoints zeroes the user's weekly accumulator. The weekly
// boundary job calls this; nothing else about the ledger changes.
func (e *Engine) ResetWeeklyPoints(ctx context.Context, userID primitive.ObjectID) (*models.ProgressionLedger, error) {
	unlock := e.lockUser(userID)
	defer unlock()

	ledger, err := e.store.ResetWeeklyPoints(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	e.invalidateLedger(ctx, userID)

	e.publish(events.Event{
		Type:       events.TypeWeeklyReset,
		UserID:     userID.Hex(),
		OccurredAt: e.Now(),
	})

	return ledger, nil
}

func ledgerCacheKey(userID primitive.ObjectID) string {
	return "ledger:" + userID.Hex()
}

func (e *Engine) invalidateLedger(ctx context.Context, userID primitive.ObjectID) {
	if e.cache == nil {
		return
	}
	if err := e.cache.Delete(ctx, ledgerCacheKey(userID)); err != nil {
		log.Printf("error invalidating ledger cache for user %s: %v", userID.Hex(), err)
	}
}

func (e *Engine) publish(event events.Event) {
	if e.events == nil {
		return
	}
	if err := e.events.Publish(event); err != nil {
		log.Printf("error publishing %s event: %v", event.Type, err)
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
