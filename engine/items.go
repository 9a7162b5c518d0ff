package engine

import (
	"context"
	"fmt"

	"github.com/stridehq/stride/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ItemUpdate carries the user-settable fields of a trackable item. Nil
// fields are left unchanged. PointValue is not here on purpose: it is
// derived from intensity and never user-settable.
type ItemUpdate struct {
	Name        *string
	Description *string
	Intensity   *models.Intensity
	IsActive    *bool
}

// TodayItem is one row in the "today" view: an active item plus whether a
// completion already exists for the current calendar day.
type TodayItem struct {
	Item           models.TrackableItem `json:"item"`
	CompletedToday bool                 `json:"completed_today"`
	Subtasks       []models.Subtask     `json:"subtasks,omitempty"`
}

// CreateItem creates a trackable item owned by the user. The point value is
// derived from the intensity.
func (e *Engine) CreateItem(ctx context.Context, userID primitive.ObjectID, name, description string, intensity models.Intensity, isRecurring bool) (*models.TrackableItem, error) {
	if len(name) < 3 {
		return nil, fmt.Errorf("item name must be at least 3 characters")
	}
	if !intensity.Valid() {
		return nil, ErrInvalidIntensity
	}

	item := &models.TrackableItem{
		UserID:      userID,
		Name:        name,
		Description: description,
		Intensity:   intensity,
		PointValue:  intensity.PointValue(),
		IsRecurring: isRecurring,
		IsActive:    true,
		CreatedAt:   e.Now(),
	}
	return e.store.AddItem(ctx, item)
}

// UpdateItem applies the given update to an item the user owns. A changed
// intensity re-derives the point value; completions already recorded keep
// their stored snapshots.
func (e *Engine) UpdateItem(ctx context.Context, userID, itemID primitive.ObjectID, update ItemUpdate) (*models.TrackableItem, error) {
	item, err := e.loadOwnedItem(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}

	if update.Name != nil {
		if len(*update.Name) < 3 {
			return nil, fmt.Errorf("item name must be at least 3 characters")
		}
		item.Name = *update.Name
	}
	if update.Description != nil {
		item.Description = *update.Description
	}
	if update.Intensity != nil {
		if !update.Intensity.Valid() {
			return nil, ErrInvalidIntensity
		}
		item.Intensity = *update.Intensity
		item.PointValue = update.Intensity.PointValue()
	}
	if update.IsActive != nil {
		item.IsActive = *update.IsActive
	}

	if _, err := e.store.UpdateItem(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// ArchiveItem soft-disables an item the user owns. Completion history stays
// put; the item just disappears from the today view.
func (e *Engine) ArchiveItem(ctx context.Context, userID, itemID primitive.ObjectID) error {
	if _, err := e.loadOwnedItem(ctx, userID, itemID); err != nil {
		return err
	}
	_, err := e.store.ArchiveItem(ctx, itemID, e.Now())
	return err
}

// ListItems returns the items the user owns. With activeOnly set, archived
// and soft-disabled items are excluded.
func (e *Engine) ListItems(ctx context.Context, userID primitive.ObjectID, activeOnly bool) ([]models.TrackableItem, error) {
	return e.store.FindItemsByOwner(ctx, userID, activeOnly)
}

// TodayView returns the user's active items with their same-day completion
// state and checklists.
func (e *Engine) TodayView(ctx context.Context, userID primitive.ObjectID) ([]TodayItem, error) {
	items, err := e.store.FindItemsByOwner(ctx, userID, true)
	if err != nil {
		return nil, err
	}

	start, end := dayBounds(e.Now())
	view := make([]TodayItem, 0, len(items))
	for _, item := range items {
		completed, err := e.store.CompletionExists(ctx, userID, item.ID, start, end)
		if err != nil {
			return nil, err
		}
		subtasks, err := e.store.FindSubtasksByItem(ctx, item.ID)
		if err != nil {
			return nil, err
		}
		view = append(view, TodayItem{Item: item, CompletedToday: completed, Subtasks: subtasks})
	}
	return view, nil
}

// AddSubtask attaches a checklist entry to an item the user owns.
func (e *Engine) AddSubtask(ctx context.Context, userID, itemID primitive.ObjectID, name string, isRepetitive bool) (*models.Subtask, error) {
	if _, err := e.loadOwnedItem(ctx, userID, itemID); err != nil {
		return nil, err
	}
	subtask := &models.Subtask{
		ItemID:       itemID,
		Name:         name,
		IsRepetitive: isRepetitive,
		LastShown:    e.Now(),
	}
	return e.store.AddSubtask(ctx, subtask)
}

// CompleteSubtask marks a checklist entry done. Repetitive entries come
// back the next time the parent item is completed.
func (e *Engine) CompleteSubtask(ctx context.Context, userID, itemID, subtaskID primitive.ObjectID) error {
	if _, err := e.loadOwnedItem(ctx, userID, itemID); err != nil {
		return err
	}
	subtasks, err := e.store.FindSubtasksByItem(ctx, itemID)
	if err != nil {
		return err
	}
	for _, subtask := range subtasks {
		if subtask.ID == subtaskID {
			subtask.Completed = true
			_, err := e.store.UpdateSubtask(ctx, &subtask)
			return err
		}
	}
	return ErrNotFound
}

// ItemStats computes the completion statistics for one item on read:
// completion count, first/last completion, the current streak relative to
// now, and the longest run in the item's history.
func (e *Engine) ItemStats(ctx context.Context, userID, itemID primitive.ObjectID) (*models.ItemStats, error) {
	if _, err := e.loadOwnedItem(ctx, userID, itemID); err != nil {
		return nil, err
	}

	history, err := e.store.CompletionsForItem(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}

	stats := &models.ItemStats{ItemID: itemID}
	stats.TotalCompletions = len(history)
	if len(history) == 0 {
		return stats, nil
	}

	first := history[0].CompletedAt
	last := history[len(history)-1].CompletedAt
	stats.FirstCompletion = &first
	stats.LastCompletion = &last

	days := make(map[string]bool, len(history))
	for _, event := range history {
		days[event.Day] = true
	}
	stats.LongestStreak = longestRun(days)

	// The current streak counts only if the run reaches today or
	// yesterday; an older run is history, not a live streak.
	now := e.Now()
	switch {
	case days[dayKey(now)]:
		streak, err := e.computeStreak(ctx, userID, itemID, now)
		if err != nil {
			return nil, err
		}
		stats.CurrentStreak = streak
	case days[dayKey(now.AddDate(0, 0, -1))]:
		streak, err := e.computeStreak(ctx, userID, itemID, now.AddDate(0, 0, -1))
		if err != nil {
			return nil, err
		}
		stats.CurrentStreak = streak
	}

	return stats, nil
}

// UserStreak returns the user-level current streak: the maximum per-item
// streak across the user's items, computed on read.
func (e *Engine) UserStreak(ctx context.Context, userID primitive.ObjectID) (int, error) {
	items, err := e.store.FindItemsByOwner(ctx, userID, false)
	if err != nil {
		return 0, err
	}

	best := 0
	for _, item := range items {
		stats, err := e.ItemStats(ctx, userID, item.ID)
		if err != nil {
			return 0, err
		}
		if stats.CurrentStreak > best {
			best = stats.CurrentStreak
		}
	}
	return best, nil
}
