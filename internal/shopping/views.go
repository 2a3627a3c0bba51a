package shopping

import (
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/dukerupert/basket/internal/model"
)

// CategoryGroup is one category with the items that resolve to it.
type CategoryGroup struct {
	Category model.Category `json:"category"`
	Items    []model.Item   `json:"items"`
	Total    int            `json:"total"`
}

// UniqueByName keeps the first item for every case-insensitive name and
// orders the result by purchase count, most bought first, then by name.
func UniqueByName(items []model.Item, lang language.Tag) []model.Item {
	seen := make(map[string]bool, len(items))
	out := make([]model.Item, 0, len(items))
	for _, it := range items {
		key := nameKey(it.Name)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, cloneItem(it))
	}

	col := collate.New(lang, collate.IgnoreCase)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].PurchaseCount != out[j].PurchaseCount {
			return out[i].PurchaseCount > out[j].PurchaseCount
		}
		return col.CompareString(out[i].Name, out[j].Name) < 0
	})
	return out
}

// GroupedByCategory groups every item under its resolved category. Items with
// a dangling category land in the uncategorized group. Groups are ordered by
// the total purchase count of their items.
func GroupedByCategory(items []model.Item, categories []model.Category, lang language.Tag) []CategoryGroup {
	index := make(map[string]int, len(categories))
	var groups []CategoryGroup
	for _, c := range categories {
		index[c.ID] = len(groups)
		groups = append(groups, CategoryGroup{Category: c})
	}
	if _, ok := index[model.NoneCategoryID]; !ok {
		index[model.NoneCategoryID] = len(groups)
		groups = append(groups, CategoryGroup{Category: model.NoneCategory()})
	}

	for _, it := range items {
		gi, ok := index[it.CategoryID]
		if !ok {
			gi = index[model.NoneCategoryID]
		}
		groups[gi].Items = append(groups[gi].Items, cloneItem(it))
		groups[gi].Total += it.PurchaseCount
	}

	col := collate.New(lang, collate.IgnoreCase)
	out := groups[:0]
	for _, g := range groups {
		if len(g.Items) == 0 {
			continue
		}
		sort.SliceStable(g.Items, func(i, j int) bool {
			if g.Items[i].PurchaseCount != g.Items[j].PurchaseCount {
				return g.Items[i].PurchaseCount > g.Items[j].PurchaseCount
			}
			return col.CompareString(g.Items[i].Name, g.Items[j].Name) < 0
		})
		out = append(out, g)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Total > out[j].Total
	})
	return out
}

// CategoryRanking sums the purchase counts of all items per category id.
func CategoryRanking(items []model.Item) map[string]int {
	rank := make(map[string]int)
	for _, it := range items {
		rank[it.CategoryOrNone()] += it.PurchaseCount
	}
	return rank
}

// RankedCategories orders categories by ranking, most purchased first. Ties
// keep registry order and the uncategorized bucket stays last.
func RankedCategories(categories []model.Category, items []model.Item) []model.Category {
	rank := CategoryRanking(items)
	out := make([]model.Category, 0, len(categories))
	var none []model.Category
	for _, c := range categories {
		if c.IsNone() {
			none = append(none, c)
			continue
		}
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return rank[out[i].ID] > rank[out[j].ID]
	})
	return append(out, none...)
}

// ActiveCategoryIDs returns the categories that still have items on the buy
// list that are not checked off. Dangling categories count as uncategorized.
func ActiveCategoryIDs(items []model.Item, categories []model.Category) map[string]bool {
	known := make(map[string]bool, len(categories))
	for _, c := range categories {
		known[c.ID] = true
	}
	active := make(map[string]bool)
	for _, it := range items {
		if !it.Active() {
			continue
		}
		id := it.CategoryOrNone()
		if !known[id] {
			id = model.NoneCategoryID
		}
		active[id] = true
	}
	return active
}

// BuyList returns the items currently on the list, active items first, in
// ranked category order.
func BuyList(items []model.Item, categories []model.Category, lang language.Tag) []CategoryGroup {
	var onList []model.Item
	for _, it := range items {
		if it.OnList {
			onList = append(onList, it)
		}
	}
	ranked := RankedCategories(categories, items)
	groups := GroupedByCategory(onList, ranked, lang)
	order := make(map[string]int, len(ranked))
	for i, c := range ranked {
		order[c.ID] = i
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return order[groups[i].Category.ID] < order[groups[j].Category.ID]
	})
	for _, g := range groups {
		sort.SliceStable(g.Items, func(i, j int) bool {
			return !g.Items[i].Completed && g.Items[j].Completed
		})
	}
	return groups
}
