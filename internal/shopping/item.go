package shopping

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/dukerupert/basket/internal/model"
)

// NormalizeName trims name and capitalizes its first letter. The rest of the
// name is left as typed.
func NormalizeName(name string) string {
	name = strings.TrimSpace(norm.NFC.String(name))
	if name == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(name)
	return string(unicode.ToUpper(r)) + name[size:]
}

// nameKey is the identity of a product name: two items are the same product
// when their keys are equal.
func nameKey(name string) string {
	return cases.Fold().String(norm.NFC.String(strings.TrimSpace(name)))
}

// SameName reports whether a and b name the same product.
func SameName(a, b string) bool {
	return nameKey(a) == nameKey(b)
}

func (s *State) itemIndex(id string) int {
	for i := range s.Items {
		if s.Items[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *State) nameIndex(name string) int {
	key := nameKey(name)
	if key == "" {
		return -1
	}
	for i := range s.Items {
		if nameKey(s.Items[i].Name) == key {
			return i
		}
	}
	return -1
}

// Item returns the item with the given id.
func (s *State) Item(id string) (model.Item, bool) {
	if i := s.itemIndex(id); i >= 0 {
		return cloneItem(s.Items[i]), true
	}
	return model.Item{}, false
}

// FindByName returns the item whose name matches case-insensitively.
func (s *State) FindByName(name string) (model.Item, bool) {
	if i := s.nameIndex(name); i >= 0 {
		return cloneItem(s.Items[i]), true
	}
	return model.Item{}, false
}

// normalizeItem keeps CompletedAt consistent with Completed.
func (s *State) normalizeItem(it *model.Item) {
	if strings.TrimSpace(it.CategoryID) == "" {
		it.CategoryID = model.NoneCategoryID
	}
	if !it.Completed {
		it.CompletedAt = nil
		return
	}
	if it.CompletedAt == nil {
		t := s.now()
		it.CompletedAt = &t
	}
}

// FinalizeAdd introduces a product by name or updates the existing one. It is
// the single entry point for manual adds, bulk adds, set expansion, parsed
// text and history re-adds.
//
// A matching item is never taken off the list, is returned to the active list
// when onList is requested, and only changes category when a real category is
// supplied. A new item is pushed to the remote store only when it is on the
// list; history-only items stay local.
func (s *State) FinalizeAdd(name, categoryID string, onList bool) (model.Item, []Effect) {
	name = NormalizeName(name)
	if name == "" {
		return model.Item{}, nil
	}

	if i := s.nameIndex(name); i >= 0 {
		it := &s.Items[i]
		it.OnList = onList || it.OnList
		if onList {
			it.Completed = false
			it.CompletedAt = nil
			if s.pendingCompletion != nil && s.pendingCompletion.itemID == it.ID {
				s.pendingCompletion = nil
			}
		}
		if categoryID != "" && categoryID != model.NoneCategoryID {
			it.CategoryID = categoryID
		}
		if it.OnList {
			return cloneItem(*it), []Effect{s.upsert(i)}
		}
		return cloneItem(*it), nil
	}

	if categoryID == "" {
		categoryID = model.NoneCategoryID
	}
	s.Items = append(s.Items, model.Item{
		ID:         s.newID(),
		Name:       name,
		CategoryID: categoryID,
		OnList:     onList,
	})
	i := len(s.Items) - 1
	if onList {
		return cloneItem(s.Items[i]), []Effect{s.upsert(i)}
	}
	return cloneItem(s.Items[i]), nil
}

// AddBulk splits text on newlines and commas and adds every name through
// FinalizeAdd with the uncategorized bucket.
func (s *State) AddBulk(text string, onList bool) ([]model.Item, []Effect) {
	var (
		added   []model.Item
		effects []Effect
	)
	for _, name := range SplitNames(text) {
		it, eff := s.FinalizeAdd(name, model.NoneCategoryID, onList)
		if it.ID == "" {
			continue
		}
		added = append(added, it)
		effects = append(effects, eff...)
	}
	return added, effects
}

// SplitNames splits free text into trimmed, non-empty names.
func SplitNames(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r == '\n' || r == ',' || r == ';'
	})
	names := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			names = append(names, f)
		}
	}
	return names
}

// AddFromHistory puts an existing item back on the buy list.
func (s *State) AddFromHistory(id string) (model.Item, []Effect) {
	i := s.itemIndex(id)
	if i < 0 {
		return model.Item{}, nil
	}
	return s.FinalizeAdd(s.Items[i].Name, s.Items[i].CategoryID, true)
}

// EditItem renames an item and optionally moves it to another category. A
// rename onto the name of a different item is refused.
func (s *State) EditItem(id, name, categoryID string) (model.Item, []Effect, bool) {
	i := s.itemIndex(id)
	name = NormalizeName(name)
	if i < 0 || name == "" {
		return model.Item{}, nil, false
	}
	if j := s.nameIndex(name); j >= 0 && j != i {
		return model.Item{}, nil, false
	}
	s.Items[i].Name = name
	if categoryID != "" {
		s.Items[i].CategoryID = categoryID
	}
	return cloneItem(s.Items[i]), s.pushIfShared(i), true
}

// RemoveFromList takes an item off the buy list. It stays in history.
func (s *State) RemoveFromList(id string) []Effect {
	i := s.itemIndex(id)
	if i < 0 || !s.Items[i].OnList {
		return nil
	}
	s.Items[i].OnList = false
	s.Items[i].Completed = false
	s.Items[i].CompletedAt = nil
	if s.pendingCompletion != nil && s.pendingCompletion.itemID == id {
		s.pendingCompletion = nil
	}
	return s.pushIfShared(i)
}

// DeleteItem removes an item from the store entirely. It can be restored with
// UndoDelete until the undo window closes.
func (s *State) DeleteItem(id string) []Effect {
	i := s.itemIndex(id)
	if i < 0 {
		return nil
	}
	it := s.Items[i]
	s.Items = append(s.Items[:i], s.Items[i+1:]...)
	s.pendingDelete = &deleteUndo{item: it, index: i, deadline: s.now().Add(UndoWindow)}
	if s.pendingCompletion != nil && s.pendingCompletion.itemID == id {
		s.pendingCompletion = nil
	}
	if it.Synced || it.Dirty {
		s.addUnsentDelete(id)
		return []Effect{{Kind: EffectDelete, ItemID: id}}
	}
	return nil
}

// UndoDelete restores the most recently deleted item while its undo window is
// open.
func (s *State) UndoDelete() (model.Item, []Effect, bool) {
	u := s.pendingDelete
	if u == nil || !s.now().Before(u.deadline) {
		s.pendingDelete = nil
		return model.Item{}, nil, false
	}
	s.pendingDelete = nil
	if s.itemIndex(u.item.ID) >= 0 || s.nameIndex(u.item.Name) >= 0 {
		return model.Item{}, nil, false
	}

	idx := u.index
	if idx > len(s.Items) {
		idx = len(s.Items)
	}
	s.Items = append(s.Items, model.Item{})
	copy(s.Items[idx+1:], s.Items[idx:])
	s.Items[idx] = u.item
	s.dropUnsentDelete(u.item.ID)
	return cloneItem(u.item), s.pushIfShared(idx), true
}

// PendingDelete returns the id of the deleted item that can still be restored.
func (s *State) PendingDelete() (string, bool) {
	if s.pendingDelete == nil {
		return "", false
	}
	return s.pendingDelete.item.ID, true
}

// DiscardDeleteUndo drops the delete undo state for id, if it is still the
// pending one.
func (s *State) DiscardDeleteUndo(id string) {
	if s.pendingDelete != nil && s.pendingDelete.item.ID == id {
		s.pendingDelete = nil
	}
}
