package shopping

import (
	"strings"

	"github.com/dukerupert/basket/internal/model"
)

// DefaultSetEmoji is used for sets saved without an emoji.
const DefaultSetEmoji = "🧺"

func (s *State) setIndex(id string) int {
	for i := range s.Sets {
		if s.Sets[i].ID == id {
			return i
		}
	}
	return -1
}

// Set returns the set with the given id.
func (s *State) Set(id string) (model.Set, bool) {
	i := s.setIndex(id)
	if i < 0 {
		return model.Set{}, false
	}
	set := s.Sets[i]
	set.Items = append([]model.SetItem(nil), set.Items...)
	return set, true
}

// AddItemsFromSet puts the chosen tuples of a set on the buy list.
//
// A tuple whose name matches an item already in history keeps that item's
// category; otherwise the tuple's category is resolved by name and created
// when missing. The set's usage count goes up by one no matter how many of its
// items were chosen.
func (s *State) AddItemsFromSet(setID string, subset []model.SetItem) []Effect {
	si := s.setIndex(setID)
	if si < 0 || len(subset) == 0 {
		return nil
	}

	var effects []Effect
	added := 0
	for _, tuple := range subset {
		name := NormalizeName(tuple.Name)
		if name == "" {
			continue
		}
		var categoryID string
		if existing := s.nameIndex(name); existing >= 0 {
			categoryID = s.Items[existing].CategoryID
		} else {
			categoryID = s.ResolveCategory(tuple.CategoryName, tuple.Emoji)
		}
		_, eff := s.FinalizeAdd(name, categoryID, true)
		effects = append(effects, eff...)
		added++
	}
	if added == 0 {
		return nil
	}

	s.SortCategories()
	s.Sets[si].UsageCount++
	s.recent = recentSet{setID: setID, until: s.now().Add(UndoWindow)}
	return effects
}

// AddSet puts every tuple of a set on the buy list.
func (s *State) AddSet(setID string) []Effect {
	set, ok := s.Set(setID)
	if !ok {
		return nil
	}
	return s.AddItemsFromSet(setID, set.Items)
}

// RecentlyAdded reports whether the set was expanded in the last few seconds.
func (s *State) RecentlyAdded(setID string) bool {
	return s.recent.setID == setID && s.now().Before(s.recent.until)
}

// historyTuple captures an item's current name and category as a set tuple.
func (s *State) historyTuple(it model.Item) model.SetItem {
	c := s.ResolvedCategory(it.CategoryID)
	return model.SetItem{Name: it.Name, CategoryName: c.Name, Emoji: c.Emoji}
}

// tupleFor resolves a typed name against history for category inference,
// falling back to the uncategorized bucket.
func (s *State) tupleFor(name string) model.SetItem {
	if i := s.nameIndex(name); i >= 0 {
		return s.historyTuple(s.Items[i])
	}
	none := s.None()
	return model.SetItem{Name: NormalizeName(name), CategoryName: none.Name, Emoji: none.Emoji}
}

// CreateSetFromText saves a set from newline-separated names.
func (s *State) CreateSetFromText(name, emoji, text string) (model.Set, bool) {
	var items []model.SetItem
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			items = append(items, s.tupleFor(line))
		}
	}
	return s.saveSet("", name, emoji, items)
}

// CreateSetFromHistory saves a set from existing items, capturing each
// item's current name and category.
func (s *State) CreateSetFromHistory(name, emoji string, itemIDs []string) (model.Set, bool) {
	var items []model.SetItem
	for _, id := range itemIDs {
		if i := s.itemIndex(id); i >= 0 {
			items = append(items, s.historyTuple(s.Items[i]))
		}
	}
	return s.saveSet("", name, emoji, items)
}

// CreateSetFromDraft saves the included tuples of a generated draft.
func (s *State) CreateSetFromDraft(name, emoji string, draft []model.DraftItem) (model.Set, bool) {
	var items []model.SetItem
	for _, d := range draft {
		if d.Included {
			items = append(items, d.SetItem)
		}
	}
	return s.saveSet("", name, emoji, items)
}

// EditSet replaces a set's name, emoji and full item list. Its id and usage
// count are kept.
func (s *State) EditSet(id, name, emoji string, items []model.SetItem) (model.Set, bool) {
	if s.setIndex(id) < 0 {
		return model.Set{}, false
	}
	return s.saveSet(id, name, emoji, items)
}

// DeleteSet removes a set.
func (s *State) DeleteSet(id string) bool {
	i := s.setIndex(id)
	if i < 0 {
		return false
	}
	s.Sets = append(s.Sets[:i], s.Sets[i+1:]...)
	if s.recent.setID == id {
		s.recent = recentSet{}
	}
	return true
}

func (s *State) saveSet(id, name, emoji string, items []model.SetItem) (model.Set, bool) {
	name = strings.TrimSpace(name)
	items = cleanTuples(items)
	if name == "" || len(items) == 0 {
		return model.Set{}, false
	}
	if emoji = strings.TrimSpace(emoji); emoji == "" {
		emoji = DefaultSetEmoji
	}

	if i := s.setIndex(id); i >= 0 {
		s.Sets[i].Name = name
		s.Sets[i].Emoji = emoji
		s.Sets[i].Items = items
		return s.Set(id)
	}
	set := model.Set{ID: s.newID(), Name: name, Emoji: emoji, Items: items}
	s.Sets = append(s.Sets, set)
	return s.Set(set.ID)
}

// cleanTuples normalizes names and drops empty and repeated tuples.
func cleanTuples(items []model.SetItem) []model.SetItem {
	seen := make(map[string]bool, len(items))
	out := make([]model.SetItem, 0, len(items))
	for _, it := range items {
		it.Name = NormalizeName(it.Name)
		it.CategoryName = strings.TrimSpace(it.CategoryName)
		it.Emoji = strings.TrimSpace(it.Emoji)
		key := nameKey(it.Name)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, it)
	}
	return out
}
