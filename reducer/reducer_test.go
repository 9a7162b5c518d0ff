package reducer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stridehq/stride/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func testItem(name string) models.TrackableItem {
	return models.TrackableItem{
		ID:        primitive.NewObjectID(),
		Name:      name,
		Intensity: models.IntensityEasy,
	}
}

func itemNames(state State) []string {
	names := make([]string, 0, len(state.Items))
	for _, item := range state.Items {
		names = append(names, item.Name)
	}
	return names
}

func TestApplyAdd(t *testing.T) {
	state := State{Items: []models.TrackableItem{testItem("run")}}
	next := Apply(state, Action{Type: ActionAdd, Item: testItem("read")})

	assert.Equal(t, []string{"run", "read"}, itemNames(next))
	assert.Equal(t, []string{"run"}, itemNames(state), "input state is untouched")
}

func TestApplyUpdate(t *testing.T) {
	item := testItem("run")
	state := State{Items: []models.TrackableItem{item, testItem("read")}}

	renamed := item
	renamed.Name = "morning run"
	next := Apply(state, Action{Type: ActionUpdate, Item: renamed})

	assert.Equal(t, []string{"morning run", "read"}, itemNames(next))
	assert.Equal(t, []string{"run", "read"}, itemNames(state), "input state is untouched")
}

func TestApplyDelete(t *testing.T) {
	item := testItem("run")
	state := State{Items: []models.TrackableItem{item, testItem("read")}}

	next := Apply(state, Action{Type: ActionDelete, ID: item.ID})
	assert.Equal(t, []string{"read"}, itemNames(next))

	// Deleting an unknown id is a no-op, not an error.
	next = Apply(state, Action{Type: ActionDelete, ID: primitive.NewObjectID()})
	assert.Equal(t, []string{"run", "read"}, itemNames(next))
}

func TestApplySet(t *testing.T) {
	state := State{Items: []models.TrackableItem{testItem("run")}}
	replacement := []models.TrackableItem{testItem("read"), testItem("stretch")}

	next := Apply(state, Action{Type: ActionSet, Items: replacement})
	assert.Equal(t, []string{"read", "stretch"}, itemNames(next))

	// The new state must not alias the caller's slice.
	replacement[0].Name = "mutated"
	assert.Equal(t, []string{"read", "stretch"}, itemNames(next))
}

func TestApplyUnknownAction(t *testing.T) {
	state := State{Items: []models.TrackableItem{testItem("run")}}
	next := Apply(state, Action{Type: ActionType("teleport")})
	assert.Equal(t, itemNames(state), itemNames(next))
}

func TestStoreDispatchAndAck(t *testing.T) {
	store := NewStore([]models.TrackableItem{testItem("run")})

	state := store.Dispatch(Action{Type: ActionAdd, Item: testItem("read")})
	assert.Equal(t, []string{"run", "read"}, itemNames(state))

	store.Ack()
	assert.Equal(t, []string{"run", "read"}, itemNames(store.State()), "ack keeps the optimistic result")

	// After the ack there is nothing in flight; rollback has nothing to
	// restore.
	state = store.Rollback()
	assert.Equal(t, []string{"run", "read"}, itemNames(state))
}

func TestStoreRollback(t *testing.T) {
	store := NewStore([]models.TrackableItem{testItem("run")})

	store.Dispatch(Action{Type: ActionAdd, Item: testItem("read")})
	store.Dispatch(Action{Type: ActionAdd, Item: testItem("stretch")})

	// Rollback restores the state from before the oldest pending action,
	// dropping the whole optimistic timeline built on top of it.
	state := store.Rollback()
	assert.Equal(t, []string{"run"}, itemNames(state))
	assert.Equal(t, []string{"run"}, itemNames(store.State()))
}

func TestStoreFailReconciles(t *testing.T) {
	store := NewStore([]models.TrackableItem{testItem("run")})
	store.Dispatch(Action{Type: ActionAdd, Item: testItem("read")})

	serverTruth := []models.TrackableItem{testItem("swim")}
	state := store.Fail(serverTruth)
	require.Equal(t, []string{"swim"}, itemNames(state))

	// The old snapshots are gone; a later rollback cannot resurrect the
	// pre-failure timeline.
	state = store.Rollback()
	assert.Equal(t, []string{"swim"}, itemNames(state))
}
