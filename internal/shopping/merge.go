package shopping

import (
	"slices"

	"github.com/dukerupert/basket/internal/model"
)

// ApplyInsert merges a remote insert. An item with the same id that already
// exists locally (our own optimistic add, or a repeated delivery) is left as
// is, as is a row we deleted and have not yet deleted remotely. It reports
// whether the store changed.
func (s *State) ApplyInsert(it model.Item) bool {
	if it.ID == "" || s.itemIndex(it.ID) >= 0 || s.hasUnsentDelete(it.ID) {
		return false
	}
	it = cloneItem(it)
	s.normalizeItem(&it)
	it.Synced = true
	s.Items = append(s.Items, it)
	return true
}

// ApplyUpdate replaces the mutable fields of the local item with the same id.
// An update for an unknown id is merged as an insert.
func (s *State) ApplyUpdate(it model.Item) bool {
	i := s.itemIndex(it.ID)
	if i < 0 {
		return s.ApplyInsert(it)
	}
	it = cloneItem(it)
	s.normalizeItem(&it)

	cur := &s.Items[i]
	cur.Name = it.Name
	cur.CategoryID = it.CategoryID
	cur.Completed = it.Completed
	cur.OnList = it.OnList
	cur.PurchaseCount = it.PurchaseCount
	cur.CompletedAt = it.CompletedAt
	cur.Synced = true
	if !cur.Completed {
		s.DiscardCompletionUndo(cur.ID)
	}
	return true
}

// ApplyDelete removes the local item with the given id. Deleting an unknown
// id is a no-op.
func (s *State) ApplyDelete(id string) bool {
	s.dropUnsentDelete(id)
	i := s.itemIndex(id)
	if i < 0 {
		return false
	}
	s.Items = append(s.Items[:i], s.Items[i+1:]...)
	s.DiscardCompletionUndo(id)
	return true
}

// MarkPushed records that the remote store acknowledged eff. An upserted row
// becomes synced, and stops being dirty unless it changed again after the
// write was produced.
func (s *State) MarkPushed(eff Effect) {
	switch eff.Kind {
	case EffectUpsert:
		i := s.itemIndex(eff.ItemID)
		if i < 0 {
			return
		}
		s.Items[i].Synced = true
		if sameRow(s.Items[i], eff.Item) {
			s.Items[i].Dirty = false
		}
	case EffectDelete:
		s.dropUnsentDelete(eff.ItemID)
	}
}

// UnsentWrites returns the writes the remote store has not acknowledged:
// an upsert for every dirty row and a delete for every unsent delete.
func (s *State) UnsentWrites() []Effect {
	var effects []Effect
	for _, id := range s.unsentDeletes {
		effects = append(effects, Effect{Kind: EffectDelete, ItemID: id})
	}
	for i := range s.Items {
		if s.Items[i].Dirty {
			effects = append(effects, s.upsert(i))
		}
	}
	return effects
}

func sameRow(a, b model.Item) bool {
	if a.Name != b.Name || a.CategoryID != b.CategoryID || a.Completed != b.Completed ||
		a.OnList != b.OnList || a.PurchaseCount != b.PurchaseCount {
		return false
	}
	if a.CompletedAt == nil || b.CompletedAt == nil {
		return a.CompletedAt == nil && b.CompletedAt == nil
	}
	return a.CompletedAt.Equal(*b.CompletedAt)
}

func (s *State) hasUnsentDelete(id string) bool {
	return slices.Contains(s.unsentDeletes, id)
}

func (s *State) addUnsentDelete(id string) {
	if !s.hasUnsentDelete(id) {
		s.unsentDeletes = append(s.unsentDeletes, id)
	}
}

func (s *State) dropUnsentDelete(id string) {
	s.unsentDeletes = slices.DeleteFunc(s.unsentDeletes, func(v string) bool { return v == id })
}

// LoadRemote merges the remote item list fetched at session start and returns
// the writes still owed to the remote store.
//
// Remote rows replace clean local rows with the same id. A dirty local row
// wins over its remote copy and is pushed again, so a change that never
// reached the server is not lost. Clean rows the remote store used to know
// but no longer has are dropped. Rows that were only ever local are kept
// unless a remote row now carries the same product name; a pending add
// merged that way still puts the remote row on the list. Rows deleted here
// but not yet remotely stay deleted.
func (s *State) LoadRemote(items []model.Item) []Effect {
	local := make(map[string]int, len(s.Items))
	for i, it := range s.Items {
		local[it.ID] = i
	}

	seen := make(map[string]bool, len(items))
	byName := make(map[string]int, len(items))
	merged := make([]model.Item, 0, len(items)+len(s.Items))
	for _, it := range items {
		if it.ID == "" || seen[it.ID] {
			continue
		}
		seen[it.ID] = true
		if s.hasUnsentDelete(it.ID) {
			continue
		}
		if i, ok := local[it.ID]; ok && s.Items[i].Dirty {
			it = cloneItem(s.Items[i])
		} else {
			it = cloneItem(it)
			s.normalizeItem(&it)
			it.Dirty = false
		}
		it.Synced = true
		byName[nameKey(it.Name)] = len(merged)
		merged = append(merged, it)
	}
	for _, it := range s.Items {
		if seen[it.ID] {
			continue
		}
		if j, ok := byName[nameKey(it.Name)]; ok && !it.Synced {
			if it.Dirty && it.OnList && !merged[j].OnList {
				merged[j].OnList = true
				merged[j].Dirty = true
			}
			continue
		}
		if it.Synced && !it.Dirty {
			continue
		}
		merged = append(merged, it)
	}
	s.Items = merged

	// Deletes for rows the remote store no longer has are done.
	s.unsentDeletes = slices.DeleteFunc(s.unsentDeletes, func(id string) bool { return !seen[id] })
	return s.UnsentWrites()
}
