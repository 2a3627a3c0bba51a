package shopping

import (
	"errors"
	"strings"

	"github.com/dukerupert/basket/internal/model"
)

// ErrSentinelCategory is returned when a caller tries to rename or delete the
// uncategorized bucket.
var ErrSentinelCategory = errors.New("the uncategorized bucket cannot be changed")

// ensureNone adds the uncategorized bucket when missing and moves it last.
func (s *State) ensureNone() {
	found := false
	for _, c := range s.Categories {
		if c.IsNone() {
			found = true
			break
		}
	}
	if !found {
		s.Categories = append(s.Categories, model.NoneCategory())
	}
	s.SortCategories()
}

// SortCategories moves the uncategorized bucket to the end. Every other
// category keeps its relative order.
func (s *State) SortCategories() {
	out := make([]model.Category, 0, len(s.Categories))
	var none *model.Category
	for i := range s.Categories {
		if s.Categories[i].IsNone() {
			if none == nil {
				c := s.Categories[i]
				none = &c
			}
			continue
		}
		out = append(out, s.Categories[i])
	}
	if none == nil {
		c := model.NoneCategory()
		none = &c
	}
	s.Categories = append(out, *none)
}

func (s *State) categoryIndex(id string) int {
	for i, c := range s.Categories {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// Category returns the category with the given id.
func (s *State) Category(id string) (model.Category, bool) {
	if i := s.categoryIndex(id); i >= 0 {
		return s.Categories[i], true
	}
	return model.Category{}, false
}

// None returns the uncategorized bucket.
func (s *State) None() model.Category {
	c, _ := s.Category(model.NoneCategoryID)
	return c
}

// ResolvedCategory returns the category for id, or the uncategorized bucket
// when id is empty or dangling. Dangling ids are not repaired.
func (s *State) ResolvedCategory(id string) model.Category {
	if c, ok := s.Category(id); ok {
		return c
	}
	return s.None()
}

// CategoryByName finds a category by case-insensitive name.
func (s *State) CategoryByName(name string) (model.Category, bool) {
	key := nameKey(name)
	if key == "" {
		return model.Category{}, false
	}
	for _, c := range s.Categories {
		if nameKey(c.Name) == key {
			return c, true
		}
	}
	return model.Category{}, false
}

// SaveCategory creates a category when id is empty and edits it otherwise.
// An empty name is ignored and reported as ok=false. The uncategorized bucket
// cannot be edited.
func (s *State) SaveCategory(id, name, emoji string) (model.Category, bool, error) {
	name = strings.TrimSpace(name)
	emoji = strings.TrimSpace(emoji)
	if name == "" {
		return model.Category{}, false, nil
	}

	if id == "" {
		if emoji == "" {
			emoji = model.DefaultCategoryEmoji
		}
		c := model.Category{ID: s.newID(), Name: name, Emoji: emoji}
		s.insertCategory(c)
		return c, true, nil
	}

	if id == model.NoneCategoryID {
		return model.Category{}, false, ErrSentinelCategory
	}
	i := s.categoryIndex(id)
	if i < 0 {
		return model.Category{}, false, nil
	}
	s.Categories[i].Name = name
	if emoji != "" {
		s.Categories[i].Emoji = emoji
	}
	s.SortCategories()
	return s.Categories[s.categoryIndex(id)], true, nil
}

// insertCategory appends c just before the uncategorized bucket.
func (s *State) insertCategory(c model.Category) {
	s.Categories = append(s.Categories, c)
	s.SortCategories()
}

// DeleteCategory removes a category and moves every item in it to the
// uncategorized bucket.
func (s *State) DeleteCategory(id string) ([]Effect, error) {
	if id == model.NoneCategoryID {
		return nil, ErrSentinelCategory
	}
	i := s.categoryIndex(id)
	if i < 0 {
		return nil, nil
	}

	var effects []Effect
	for j := range s.Items {
		if s.Items[j].CategoryID != id {
			continue
		}
		s.Items[j].CategoryID = model.NoneCategoryID
		effects = append(effects, s.pushIfShared(j)...)
	}
	s.Categories = append(s.Categories[:i], s.Categories[i+1:]...)
	s.ensureNone()
	return effects, nil
}

// ResolveCategory returns the id of the category named name, creating it
// before the uncategorized bucket when nothing matches. An empty name maps to
// the uncategorized bucket.
func (s *State) ResolveCategory(name, emoji string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.NoneCategoryID
	}
	if c, ok := s.CategoryByName(name); ok {
		return c.ID
	}
	emoji = strings.TrimSpace(emoji)
	if emoji == "" {
		emoji = model.DefaultCategoryEmoji
	}
	c := model.Category{ID: s.newID(), Name: NormalizeName(name), Emoji: emoji}
	s.insertCategory(c)
	return c.ID
}
