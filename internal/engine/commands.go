package engine

import (
	"time"

	"github.com/dukerupert/basket/internal/model"
	"github.com/dukerupert/basket/internal/shopping"
)

// AddBulk adds every newline or comma separated name in text.
func (e *Engine) AddBulk(text string, onList bool) ([]model.Item, error) {
	var added []model.Item
	err := e.mutate(func(s *shopping.State) []shopping.Effect {
		var effects []shopping.Effect
		added, effects = s.AddBulk(text, onList)
		return effects
	})
	return added, err
}

// AddFromHistory puts a known item back on the buy list.
func (e *Engine) AddFromHistory(id string) (model.Item, error) {
	var it model.Item
	err := e.mutate(func(s *shopping.State) []shopping.Effect {
		var effects []shopping.Effect
		it, effects = s.AddFromHistory(id)
		return effects
	})
	return it, err
}

// EditItem renames or recategorizes an item. ok is false when the item is
// unknown, the name is blank or another item already has the name.
func (e *Engine) EditItem(id, name, categoryID string) (it model.Item, ok bool, err error) {
	err = e.mutate(func(s *shopping.State) []shopping.Effect {
		var effects []shopping.Effect
		it, effects, ok = s.EditItem(id, name, categoryID)
		return effects
	})
	return it, ok, err
}

// Toggle checks an item off or back on. See shopping.State.ToggleComplete.
func (e *Engine) Toggle(id string) (model.Item, error) {
	var it model.Item
	err := e.mutate(func(s *shopping.State) []shopping.Effect {
		var effects []shopping.Effect
		it, effects = s.ToggleComplete(id)
		if pending, ok := s.PendingCompletion(); ok && pending == id {
			e.completionTimer = e.restartUndo(e.completionTimer, func(s *shopping.State) {
				s.DiscardCompletionUndo(pending)
			})
		}
		return effects
	})
	return it, err
}

// UndoComplete reverts the last check-off while its undo window is open.
func (e *Engine) UndoComplete() (it model.Item, ok bool, err error) {
	err = e.mutate(func(s *shopping.State) []shopping.Effect {
		var effects []shopping.Effect
		it, effects, ok = s.UndoComplete()
		return effects
	})
	return it, ok, err
}

func (e *Engine) RemoveFromList(id string) error {
	return e.mutate(func(s *shopping.State) []shopping.Effect {
		return s.RemoveFromList(id)
	})
}

// DeleteItem removes an item entirely. UndoDelete restores it for a few
// seconds.
func (e *Engine) DeleteItem(id string) error {
	return e.mutate(func(s *shopping.State) []shopping.Effect {
		effects := s.DeleteItem(id)
		if pending, ok := s.PendingDelete(); ok && pending == id {
			e.deleteTimer = e.restartUndo(e.deleteTimer, func(s *shopping.State) {
				s.DiscardDeleteUndo(pending)
			})
		}
		return effects
	})
}

func (e *Engine) UndoDelete() (it model.Item, ok bool, err error) {
	err = e.mutate(func(s *shopping.State) []shopping.Effect {
		var effects []shopping.Effect
		it, effects, ok = s.UndoDelete()
		return effects
	})
	return it, ok, err
}

// restartUndo replaces t with a timer that runs discard on the loop once the
// undo window is over. Runs on the loop.
func (e *Engine) restartUndo(t *time.Timer, discard func(*shopping.State)) *time.Timer {
	if t != nil {
		t.Stop()
	}
	return time.AfterFunc(e.undoTimer, func() {
		e.read(discard)
	})
}

// SaveCategory creates a category when id is empty and edits it otherwise.
func (e *Engine) SaveCategory(id, name, emoji string) (c model.Category, ok bool, err error) {
	var opErr error
	err = e.mutate(func(s *shopping.State) []shopping.Effect {
		c, ok, opErr = s.SaveCategory(id, name, emoji)
		return nil
	})
	if err != nil {
		return c, ok, err
	}
	return c, ok, opErr
}

// DeleteCategory moves the category's items to the uncategorized bucket and
// removes it.
func (e *Engine) DeleteCategory(id string) error {
	var opErr error
	err := e.mutate(func(s *shopping.State) []shopping.Effect {
		var effects []shopping.Effect
		effects, opErr = s.DeleteCategory(id)
		return effects
	})
	if err != nil {
		return err
	}
	return opErr
}

// AddSet puts every item of a set on the buy list.
func (e *Engine) AddSet(setID string) error {
	return e.mutate(func(s *shopping.State) []shopping.Effect {
		return s.AddSet(setID)
	})
}

// AddItemsFromSet puts the chosen items of a set on the buy list.
func (e *Engine) AddItemsFromSet(setID string, subset []model.SetItem) error {
	return e.mutate(func(s *shopping.State) []shopping.Effect {
		return s.AddItemsFromSet(setID, subset)
	})
}

func (e *Engine) CreateSetFromText(name, emoji, text string) (set model.Set, ok bool, err error) {
	err = e.mutate(func(s *shopping.State) []shopping.Effect {
		set, ok = s.CreateSetFromText(name, emoji, text)
		return nil
	})
	return set, ok, err
}

func (e *Engine) CreateSetFromHistory(name, emoji string, itemIDs []string) (set model.Set, ok bool, err error) {
	err = e.mutate(func(s *shopping.State) []shopping.Effect {
		set, ok = s.CreateSetFromHistory(name, emoji, itemIDs)
		return nil
	})
	return set, ok, err
}

// CreateSetFromDraft saves the included items of a generated or suggested
// draft.
func (e *Engine) CreateSetFromDraft(draft model.SetDraft) (set model.Set, ok bool, err error) {
	err = e.mutate(func(s *shopping.State) []shopping.Effect {
		set, ok = s.CreateSetFromDraft(draft.Name, draft.Emoji, draft.Items)
		return nil
	})
	return set, ok, err
}

func (e *Engine) EditSet(id, name, emoji string, items []model.SetItem) (set model.Set, ok bool, err error) {
	err = e.mutate(func(s *shopping.State) []shopping.Effect {
		set, ok = s.EditSet(id, name, emoji, items)
		return nil
	})
	return set, ok, err
}

func (e *Engine) DeleteSet(id string) (ok bool, err error) {
	err = e.mutate(func(s *shopping.State) []shopping.Effect {
		ok = s.DeleteSet(id)
		return nil
	})
	return ok, err
}

// RecentlyAdded reports whether the set was expanded in the last few seconds.
func (e *Engine) RecentlyAdded(setID string) bool {
	var recent bool
	e.read(func(s *shopping.State) {
		recent = s.RecentlyAdded(setID)
	})
	return recent
}

// BuyList returns the items on the list grouped by category.
func (e *Engine) BuyList() ([]shopping.CategoryGroup, error) {
	var groups []shopping.CategoryGroup
	err := e.read(func(s *shopping.State) {
		groups = shopping.BuyList(s.Items, s.Categories, s.Language())
	})
	return groups, err
}

// History returns one item per product, most purchased first.
func (e *Engine) History() ([]model.Item, error) {
	var items []model.Item
	err := e.read(func(s *shopping.State) {
		items = shopping.UniqueByName(s.Items, s.Language())
	})
	return items, err
}

// Categories returns the registry ordered by how often each category is
// bought, the uncategorized bucket last.
func (e *Engine) Categories() ([]model.Category, error) {
	var categories []model.Category
	err := e.read(func(s *shopping.State) {
		categories = shopping.RankedCategories(s.Categories, s.Items)
	})
	return categories, err
}
