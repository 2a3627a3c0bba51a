package shopping

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/basket/internal/model"
)

func TestAddItemsFromSetCreatesMissingCategory(t *testing.T) {
	s, _ := newTestState(t)
	_, ok := s.EditSet("missing", "Bread", "", []model.SetItem{{Name: "Flour"}})
	require.False(t, ok)
	set, ok := s.CreateSetFromDraft("Bread", "🍞", []model.DraftItem{
		{SetItem: model.SetItem{Name: "Flour", CategoryName: "Baking", Emoji: "🌾"}, Included: true},
	})
	require.True(t, ok)

	effects := s.AddItemsFromSet(set.ID, set.Items)

	baking, ok := s.CategoryByName("Baking")
	require.True(t, ok)
	assert.Equal(t, baking.ID, s.Categories[len(s.Categories)-2].ID)
	requireNoneLast(t, s)

	flour, ok := s.FindByName("flour")
	require.True(t, ok)
	assert.Equal(t, baking.ID, flour.CategoryID)
	assert.True(t, flour.OnList)
	assert.Len(t, effects, 1)

	got, _ := s.Set(set.ID)
	assert.Equal(t, 1, got.UsageCount)
	assert.True(t, s.RecentlyAdded(set.ID))
}

func TestAddItemsFromSetHistoryCategoryWins(t *testing.T) {
	s, _ := newTestState(t)
	dairy, _, _ := s.SaveCategory("", "Dairy", "🥛")
	s.FinalizeAdd("Butter", dairy.ID, false)
	set, _ := s.CreateSetFromDraft("Cake", "🎂", []model.DraftItem{
		{SetItem: model.SetItem{Name: "butter", CategoryName: "Baking", Emoji: "🌾"}, Included: true},
		{SetItem: model.SetItem{Name: "sugar", CategoryName: "Baking", Emoji: "🌾"}, Included: true},
	})

	s.AddItemsFromSet(set.ID, set.Items)

	butter, _ := s.FindByName("butter")
	assert.Equal(t, dairy.ID, butter.CategoryID, "history wins over the stored tuple")
	assert.True(t, butter.OnList)
	require.Len(t, s.Items, 2)
}

func TestAddItemsFromSetPartialStillCountsOnce(t *testing.T) {
	s, clock := newTestState(t)
	set, _ := s.CreateSetFromText("Breakfast", "", "eggs\nbacon\ntoast")

	s.AddItemsFromSet(set.ID, set.Items[:1])
	got, _ := s.Set(set.ID)
	assert.Equal(t, 1, got.UsageCount)
	assert.Len(t, s.Items, 1)

	s.AddSet(set.ID)
	got, _ = s.Set(set.ID)
	assert.Equal(t, 2, got.UsageCount)
	assert.Len(t, s.Items, 3)

	clock.Advance(UndoWindow)
	assert.False(t, s.RecentlyAdded(set.ID))
}

func TestAddItemsFromSetEmptySelectionIsNoop(t *testing.T) {
	s, _ := newTestState(t)
	set, _ := s.CreateSetFromText("Breakfast", "", "eggs")

	assert.Empty(t, s.AddItemsFromSet(set.ID, nil))
	assert.Empty(t, s.AddItemsFromSet("missing", set.Items))

	got, _ := s.Set(set.ID)
	assert.Equal(t, 0, got.UsageCount)
}

func TestCreateSetFromTextInfersCategoryFromHistory(t *testing.T) {
	s, _ := newTestState(t)
	dairy, _, _ := s.SaveCategory("", "Dairy", "🥛")
	s.FinalizeAdd("Milk", dairy.ID, false)

	set, ok := s.CreateSetFromText("Pancakes", "🥞", "milk\n\nflour\nMILK")

	require.True(t, ok)
	require.Len(t, set.Items, 2, "blank and repeated names are dropped")
	assert.Equal(t, model.SetItem{Name: "Milk", CategoryName: "Dairy", Emoji: "🥛"}, set.Items[0])
	none := model.NoneCategory()
	assert.Equal(t, model.SetItem{Name: "Flour", CategoryName: none.Name, Emoji: none.Emoji}, set.Items[1])
}

func TestCreateSetFromHistory(t *testing.T) {
	s, _ := newTestState(t)
	dairy, _, _ := s.SaveCategory("", "Dairy", "🥛")
	milk, _ := s.FinalizeAdd("Milk", dairy.ID, false)
	eggs, _ := s.FinalizeAdd("Eggs", "", false)

	set, ok := s.CreateSetFromHistory("Basics", "", []string{milk.ID, "missing", eggs.ID})

	require.True(t, ok)
	assert.Equal(t, DefaultSetEmoji, set.Emoji)
	require.Len(t, set.Items, 2)
	assert.Equal(t, "Dairy", set.Items[0].CategoryName)
	assert.Equal(t, model.NoneCategory().Name, set.Items[1].CategoryName)
}

func TestCreateSetFromDraftKeepsOnlyIncluded(t *testing.T) {
	s, _ := newTestState(t)

	set, ok := s.CreateSetFromDraft("Tacos", "🌮", []model.DraftItem{
		{SetItem: model.SetItem{Name: "tortillas", CategoryName: "Bakery"}, Included: true},
		{SetItem: model.SetItem{Name: "cilantro", CategoryName: "Produce"}, Included: false},
	})

	require.True(t, ok)
	require.Len(t, set.Items, 1)
	assert.Equal(t, "Tortillas", set.Items[0].Name)

	_, ok = s.CreateSetFromDraft("Nothing", "", []model.DraftItem{
		{SetItem: model.SetItem{Name: "x"}, Included: false},
	})
	assert.False(t, ok, "no selection is a no-op")
	assert.Len(t, s.Sets, 1)
}

func TestEditSetKeepsIDAndUsage(t *testing.T) {
	s, _ := newTestState(t)
	set, _ := s.CreateSetFromText("Breakfast", "", "eggs")
	s.AddSet(set.ID)

	edited, ok := s.EditSet(set.ID, "Brunch", "🥂", []model.SetItem{
		{Name: "mimosa", CategoryName: "Drinks"},
		{Name: "waffles", CategoryName: "Frozen"},
	})

	require.True(t, ok)
	assert.Equal(t, set.ID, edited.ID)
	assert.Equal(t, 1, edited.UsageCount)
	assert.Equal(t, "Brunch", edited.Name)
	require.Len(t, edited.Items, 2)
	assert.Equal(t, "Mimosa", edited.Items[0].Name)
}

func TestDeleteSet(t *testing.T) {
	s, _ := newTestState(t)
	set, _ := s.CreateSetFromText("Breakfast", "", "eggs")
	s.AddSet(set.ID)

	assert.True(t, s.DeleteSet(set.ID))
	assert.False(t, s.DeleteSet(set.ID))
	assert.False(t, s.RecentlyAdded(set.ID))
	assert.Empty(t, s.Sets)
}

func TestSetItemsAreValues(t *testing.T) {
	s, clock := newTestState(t)
	set, _ := s.CreateSetFromText("Breakfast", "", "eggs")
	s.AddSet(set.ID)
	eggs, _ := s.FindByName("eggs")
	s.DeleteItem(eggs.ID)
	clock.Advance(time.Minute)

	s.AddSet(set.ID)

	again, ok := s.FindByName("eggs")
	require.True(t, ok)
	assert.NotEqual(t, eggs.ID, again.ID, "sets resolve by name at add time")
}
