package shopping

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/basket/internal/model"
)

func TestApplyInsertIgnoresKnownID(t *testing.T) {
	s, _ := newTestState(t)
	it, _ := s.FinalizeAdd("Milk", "", true)

	changed := s.ApplyInsert(model.Item{ID: it.ID, Name: "Milk", OnList: true})

	assert.False(t, changed)
	assert.Len(t, s.Items, 1, "our own insert echoed back is not added twice")
}

func TestApplyInsertAddsRemoteItem(t *testing.T) {
	s, _ := newTestState(t)

	changed := s.ApplyInsert(model.Item{ID: "remote-1", Name: "Eggs", OnList: true})

	require.True(t, changed)
	got, ok := s.Item("remote-1")
	require.True(t, ok)
	assert.True(t, got.Synced)
	assert.Equal(t, model.NoneCategoryID, got.CategoryID)

	assert.False(t, s.ApplyInsert(model.Item{Name: "No id"}))
}

func TestApplyUpdate(t *testing.T) {
	s, clock := newTestState(t)
	it, _ := s.FinalizeAdd("Milk", "", true)
	s.ToggleComplete(it.ID)

	at := clock.Now()
	changed := s.ApplyUpdate(model.Item{
		ID:            it.ID,
		Name:          "Oat milk",
		CategoryID:    "dairy",
		OnList:        true,
		PurchaseCount: 4,
		CompletedAt:   &at,
	})

	require.True(t, changed)
	got, _ := s.Item(it.ID)
	assert.Equal(t, "Oat milk", got.Name)
	assert.Equal(t, 4, got.PurchaseCount)
	assert.False(t, got.Completed)
	assert.Nil(t, got.CompletedAt)
	_, pending := s.PendingCompletion()
	assert.False(t, pending, "a remote uncheck closes the undo window")
}

func TestApplyUpdateUnknownIDInserts(t *testing.T) {
	s, _ := newTestState(t)

	assert.True(t, s.ApplyUpdate(model.Item{ID: "remote-1", Name: "Tea"}))
	assert.Len(t, s.Items, 1)
}

func TestApplyDelete(t *testing.T) {
	s, _ := newTestState(t)
	it, _ := s.FinalizeAdd("Milk", "", true)

	assert.True(t, s.ApplyDelete(it.ID))
	assert.False(t, s.ApplyDelete(it.ID))
	assert.Empty(t, s.Items)
}

// pushAll marks every effect as acknowledged by the remote store.
func pushAll(s *State, effects []Effect) {
	for _, eff := range effects {
		s.MarkPushed(eff)
	}
}

func TestLoadRemote(t *testing.T) {
	s, _ := newTestState(t)
	shared, effects := s.FinalizeAdd("Milk", "", true)
	pushAll(s, effects)
	gone, effects := s.FinalizeAdd("Eggs", "", true)
	pushAll(s, effects)
	local, _ := s.FinalizeAdd("Flour", "", false)
	s.FinalizeAdd("Sugar", "", false)

	done := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	owed := s.LoadRemote([]model.Item{
		{ID: shared.ID, Name: "Milk", OnList: true, Completed: true, CompletedAt: &done, PurchaseCount: 3},
		{ID: "remote-sugar", Name: "sugar", OnList: true},
		{ID: shared.ID, Name: "Duplicate row"},
	})

	assert.Empty(t, owed)
	require.Len(t, s.Items, 3)
	got, ok := s.Item(shared.ID)
	require.True(t, ok)
	assert.Equal(t, 3, got.PurchaseCount, "remote rows are authoritative")
	assert.True(t, got.Completed)

	_, ok = s.Item(gone.ID)
	assert.False(t, ok, "rows removed remotely are dropped")
	_, ok = s.Item(local.ID)
	assert.True(t, ok, "history-only rows survive")

	sugar, ok := s.FindByName("Sugar")
	require.True(t, ok)
	assert.Equal(t, "remote-sugar", sugar.ID, "a remote row takes over a local-only name")
	for _, it := range s.Items {
		assert.NotEqual(t, "Duplicate row", it.Name)
	}
}

func TestLoadRemoteKeepsUnpushedAdd(t *testing.T) {
	s, _ := newTestState(t)
	added, _ := s.FinalizeAdd("Milk", "", true)

	owed := s.LoadRemote(nil)

	got, ok := s.Item(added.ID)
	require.True(t, ok, "an add that never reached the server survives")
	assert.True(t, got.OnList)
	require.Len(t, owed, 1)
	assert.Equal(t, EffectUpsert, owed[0].Kind)
	assert.Equal(t, added.ID, owed[0].ItemID)

	pushAll(s, owed)
	got, _ = s.Item(added.ID)
	assert.True(t, got.Synced)
	assert.False(t, got.Dirty)
	assert.Empty(t, s.UnsentWrites())
}

func TestLoadRemoteKeepsUnpushedChange(t *testing.T) {
	s, _ := newTestState(t)
	it, effects := s.FinalizeAdd("Milk", "", true)
	pushAll(s, effects)
	s.ToggleComplete(it.ID)

	owed := s.LoadRemote([]model.Item{{ID: it.ID, Name: "Milk", OnList: true}})

	got, _ := s.Item(it.ID)
	assert.True(t, got.Completed, "the local edit wins over the stale remote row")
	require.Len(t, owed, 1)
	assert.True(t, owed[0].Item.Completed)
}

func TestLoadRemoteMergesPendingAddByName(t *testing.T) {
	s, _ := newTestState(t)
	s.FinalizeAdd("Milk", "", true)

	owed := s.LoadRemote([]model.Item{{ID: "remote-milk", Name: "milk"}})

	require.Len(t, s.Items, 1)
	got := s.Items[0]
	assert.Equal(t, "remote-milk", got.ID)
	assert.True(t, got.OnList, "the pending add still puts the row on the list")
	require.Len(t, owed, 1)
	assert.Equal(t, "remote-milk", owed[0].ItemID)
}

func TestMarkPushedKeepsNewerChange(t *testing.T) {
	s, _ := newTestState(t)
	it, effects := s.FinalizeAdd("Milk", "", true)
	s.ToggleComplete(it.ID)

	pushAll(s, effects)

	got, _ := s.Item(it.ID)
	assert.True(t, got.Synced)
	assert.True(t, got.Dirty, "the completion has not been acknowledged yet")
}

func TestUnsentDelete(t *testing.T) {
	s, _ := newTestState(t)
	it, effects := s.FinalizeAdd("Milk", "", true)
	pushAll(s, effects)

	effects = s.DeleteItem(it.ID)
	require.Len(t, effects, 1)
	assert.Equal(t, EffectDelete, effects[0].Kind)
	assert.Equal(t, []string{it.ID}, s.Snapshot().PendingDeletes)

	assert.False(t, s.ApplyInsert(model.Item{ID: it.ID, Name: "Milk"}), "a late echo does not resurrect the row")

	owed := s.LoadRemote([]model.Item{{ID: it.ID, Name: "Milk", OnList: true}})
	assert.Empty(t, s.Items)
	require.Len(t, owed, 1)
	assert.Equal(t, EffectDelete, owed[0].Kind)

	pushAll(s, owed)
	assert.Empty(t, s.Snapshot().PendingDeletes)
}

func TestDeleteLocalOnlyItemOwesNothing(t *testing.T) {
	s, _ := newTestState(t)
	it, _ := s.FinalizeAdd("Flour", "", false)

	assert.Empty(t, s.DeleteItem(it.ID))
	assert.Empty(t, s.Snapshot().PendingDeletes)
}
