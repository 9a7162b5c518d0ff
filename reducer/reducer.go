// Package reducer implements the optimistic-update pattern for an item
// list as a pure reducer plus a compensating reconcile. A dispatch applies
// the action locally and snapshots the prior state; when the server
// acknowledges, the snapshot is dropped, and when it fails, the state is
// reconciled against server truth instead of guessing at an inverse action.
package reducer

import (
	"github.com/stridehq/stride/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ActionType enumerates what can happen to the item list.
type ActionType string

const (
	ActionAdd    ActionType = "add"
	ActionUpdate ActionType = "update"
	ActionDelete ActionType = "delete"
	ActionSet    ActionType = "set"
)

// Action is one intended change to the item list. Add and Update carry
// Item; Delete carries ID; Set carries Items (the full replacement list).
type Action struct {
	Type  ActionType
	Item  models.TrackableItem
	ID    primitive.ObjectID
	Items []models.TrackableItem
}

// State is an immutable snapshot of the item list. Apply never mutates its
// input, so held snapshots stay valid for rollback.
type State struct {
	Items []models.TrackableItem
}

// Apply is the pure reducer: it returns the state resulting from applying
// the action, sharing no slices with its input. Unknown action types and
// no-op deletes return the state unchanged.
func Apply(state State, action Action) State {
	switch action.Type {
	case ActionAdd:
		next := make([]models.TrackableItem, 0, len(state.Items)+1)
		next = append(next, state.Items...)
		next = append(next, action.Item)
		return State{Items: next}
	case ActionUpdate:
		next := make([]models.TrackableItem, len(state.Items))
		copy(next, state.Items)
		for i := range next {
			if next[i].ID == action.Item.ID {
				next[i] = action.Item
			}
		}
		return State{Items: next}
	case ActionDelete:
		next := make([]models.TrackableItem, 0, len(state.Items))
		for _, item := range state.Items {
			if item.ID != action.ID {
				next = append(next, item)
			}
		}
		return State{Items: next}
	case ActionSet:
		next := make([]models.TrackableItem, len(action.Items))
		copy(next, action.Items)
		return State{Items: next}
	default:
		return state
	}
}

// Store tracks the current optimistic state and the snapshots backing
// in-flight actions. It is single-threaded by design, matching the UI
// loop it models.
type Store struct {
	current   State
	snapshots []State
}

// NewStore creates a store seeded with the given items.
func NewStore(items []models.TrackableItem) *Store {
	return &Store{current: Apply(State{}, Action{Type: ActionSet, Items: items})}
}

// State returns the current optimistic state.
func (s *Store) State() State {
	return s.current
}

// Dispatch applies the action optimistically and remembers the prior state
// until the server settles it.
func (s *Store) Dispatch(action Action) State {
	s.snapshots = append(s.snapshots, s.current)
	s.current = Apply(s.current, action)
	return s.current
}

// Ack confirms the oldest in-flight action; its snapshot is no longer
// needed.
func (s *Store) Ack() {
	if len(s.snapshots) > 0 {
		s.snapshots = s.snapshots[1:]
	}
}

// Fail reconciles after a rejected action: the state is reset to the
// server's truth and all pending snapshots are dropped, since the
// optimistic timeline they belong to no longer exists.
func (s *Store) Fail(serverItems []models.TrackableItem) State {
	s.snapshots = nil
	s.current = Apply(State{}, Action{Type: ActionSet, Items: serverItems})
	return s.current
}

// Rollback restores the state from before the oldest in-flight action.
// Used when the failure has no fresher server truth to reconcile against.
func (s *Store) Rollback() State {
	if len(s.snapshots) == 0 {
		return s.current
	}
	s.current = s.snapshots[0]
	s.snapshots = nil
	return s.current
}
