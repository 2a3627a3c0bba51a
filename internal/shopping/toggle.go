package shopping

import "github.com/dukerupert/basket/internal/model"

// ToggleComplete checks an item off or back on.
//
// Checking off increments the purchase count, stamps the completion time,
// appends the purchase to today's log and opens the undo window. Toggling
// again inside the window is an undo: the count is decremented and the log
// entry removed. Unchecking after the window only removes the last matching
// log entry for today; the purchase count stays.
func (s *State) ToggleComplete(id string) (model.Item, []Effect) {
	i := s.itemIndex(id)
	if i < 0 {
		return model.Item{}, nil
	}
	now := s.now()
	it := &s.Items[i]

	if !it.Completed {
		t := now
		it.Completed = true
		it.CompletedAt = &t
		it.PurchaseCount++
		s.appendPurchase(now, model.LogItem{Name: it.Name, CategoryID: it.CategoryOrNone()})
		s.pendingCompletion = &completionUndo{itemID: id, deadline: now.Add(UndoWindow)}
		return cloneItem(*it), []Effect{s.upsert(i)}
	}

	if s.completionUndoOpen(id) {
		return s.undoCompletion(i)
	}

	it.Completed = false
	it.CompletedAt = nil
	s.removeLastPurchase(now, it.Name)
	return cloneItem(*it), []Effect{s.upsert(i)}
}

// UndoComplete reverts the most recent completion while its window is open.
func (s *State) UndoComplete() (model.Item, []Effect, bool) {
	u := s.pendingCompletion
	if u == nil || !s.completionUndoOpen(u.itemID) {
		s.pendingCompletion = nil
		return model.Item{}, nil, false
	}
	i := s.itemIndex(u.itemID)
	if i < 0 || !s.Items[i].Completed {
		s.pendingCompletion = nil
		return model.Item{}, nil, false
	}
	it, effects := s.undoCompletion(i)
	return it, effects, true
}

func (s *State) completionUndoOpen(id string) bool {
	u := s.pendingCompletion
	return u != nil && u.itemID == id && s.now().Before(u.deadline)
}

func (s *State) undoCompletion(i int) (model.Item, []Effect) {
	it := &s.Items[i]
	day := s.now()
	if it.CompletedAt != nil {
		day = *it.CompletedAt
	}
	it.Completed = false
	it.CompletedAt = nil
	if it.PurchaseCount > 0 {
		it.PurchaseCount--
	}
	s.removeLastPurchase(day, it.Name)
	s.pendingCompletion = nil
	return cloneItem(*it), []Effect{s.upsert(i)}
}

// PendingCompletion returns the id of the item whose completion can still be
// undone.
func (s *State) PendingCompletion() (string, bool) {
	if s.pendingCompletion == nil {
		return "", false
	}
	return s.pendingCompletion.itemID, true
}

// DiscardCompletionUndo drops the completion undo state for id, if it is
// still the pending one. The completion itself stays applied.
func (s *State) DiscardCompletionUndo(id string) {
	if s.pendingCompletion != nil && s.pendingCompletion.itemID == id {
		s.pendingCompletion = nil
	}
}
