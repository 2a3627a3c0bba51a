package ai

import (
	"context"
	"sort"
	"strings"

	"github.com/dukerupert/basket/internal/model"
)

// otherCategory is what Keyword answers when nothing matches. It names the
// uncategorized bucket.
const otherCategory = "Other"

var (
	exactMatch    map[string]string
	categoryEmoji map[string]string
)

func init() {
	exactMatch = make(map[string]string)
	categoryEmoji = make(map[string]string)
	for _, kc := range keywordCategories {
		categoryEmoji[kc.Name] = kc.Emoji
		for _, w := range kc.Words {
			exactMatch[w] = kc.Name
		}
	}
}

// KeywordCategory returns the built-in aisle for a product name: exact match
// first, then the first phrase it contains. Unknown names map to "Other".
func KeywordCategory(productName string) string {
	name := strings.ToLower(strings.TrimSpace(productName))
	if name == "" {
		return otherCategory
	}

	if cat, ok := exactMatch[name]; ok {
		return cat
	}

	for _, p := range keywordPhrases {
		for _, part := range p.Parts {
			if strings.Contains(name, part) {
				return p.Category
			}
		}
	}

	return otherCategory
}

// Keyword is an offline Gateway backed by a built-in keyword table. It is
// used when the assistant is disabled or has no credentials.
type Keyword struct {
	// MinDays is how many days two products must share before AnalyzeHistory
	// bundles them. Zero means 2.
	MinDays int
}

var _ Gateway = Keyword{}

func (k Keyword) Categorize(ctx context.Context, productName string, known []model.Category) (Suggestion, error) {
	if err := ctx.Err(); err != nil {
		return Suggestion{}, err
	}
	return k.suggest(productName, known), nil
}

func (k Keyword) suggest(productName string, known []model.Category) Suggestion {
	cat := KeywordCategory(productName)
	if c, ok := findCategory(known, cat); ok {
		return Suggestion{CategoryName: c.Name, Emoji: c.Emoji}
	}
	if cat == otherCategory {
		none := model.NoneCategory()
		return Suggestion{CategoryName: none.Name, Emoji: none.Emoji}
	}
	return Suggestion{CategoryName: cat, Emoji: categoryEmoji[cat], IsNew: true}
}

// ParseFreeText splits text on newlines, commas and the word "and", and
// categorizes each piece.
func (k Keyword) ParseFreeText(ctx context.Context, text string, known []model.Category) (Parsed, error) {
	if err := ctx.Err(); err != nil {
		return Parsed{}, err
	}
	var out Parsed
	seen := make(map[string]bool)
	for _, name := range SplitItems(text) {
		key := strings.ToLower(name)
		if seen[key] {
			continue
		}
		seen[key] = true
		s := k.suggest(name, known)
		out.Items = append(out.Items, model.SetItem{Name: name, CategoryName: s.CategoryName, Emoji: s.Emoji})
	}
	return out, nil
}

func (k Keyword) GenerateSetItems(ctx context.Context, setName string, known []model.Category) (GeneratedSet, error) {
	return GeneratedSet{}, ErrUnsupported
}

// AnalyzeHistory groups products that were bought on the same day on at
// least MinDays different days. Bundles are returned largest first.
func (k Keyword) AnalyzeHistory(ctx context.Context, logs []model.PurchaseLog, known []model.Category) ([]Bundle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	minDays := k.MinDays
	if minDays <= 0 {
		minDays = 2
	}

	display := make(map[string]string)
	categoryOf := make(map[string]string)
	pairs := make(map[[2]string]int)
	for _, log := range logs {
		var day []string
		inDay := make(map[string]bool)
		for _, it := range log.Items {
			key := strings.ToLower(strings.TrimSpace(it.Name))
			if key == "" || inDay[key] {
				continue
			}
			inDay[key] = true
			day = append(day, key)
			if _, ok := display[key]; !ok {
				display[key] = strings.TrimSpace(it.Name)
				categoryOf[key] = it.CategoryID
			}
		}
		sort.Strings(day)
		for i := range day {
			for j := i + 1; j < len(day); j++ {
				pairs[[2]string{day[i], day[j]}]++
			}
		}
	}

	// Union products linked by a frequent pair.
	parent := make(map[string]string)
	var find func(string) string
	find = func(x string) string {
		if p, ok := parent[x]; ok && p != x {
			r := find(p)
			parent[x] = r
			return r
		}
		parent[x] = x
		return x
	}
	for pair, n := range pairs {
		if n < minDays {
			continue
		}
		a, b := find(pair[0]), find(pair[1])
		if a != b {
			parent[b] = a
		}
	}

	groups := make(map[string][]string)
	for key := range parent {
		root := find(key)
		groups[root] = append(groups[root], key)
	}

	byID := make(map[string]model.Category, len(known))
	for _, c := range known {
		byID[c.ID] = c
	}

	var bundles []Bundle
	for _, members := range groups {
		if len(members) < 2 {
			continue
		}
		sort.Strings(members)
		b := Bundle{Emoji: "🧺"}
		for _, key := range members {
			c, ok := byID[categoryOf[key]]
			if !ok {
				c = model.NoneCategory()
			}
			b.Items = append(b.Items, model.SetItem{Name: display[key], CategoryName: c.Name, Emoji: c.Emoji})
		}
		b.Name = bundleName(b.Items)
		bundles = append(bundles, b)
	}
	sort.Slice(bundles, func(i, j int) bool {
		if len(bundles[i].Items) != len(bundles[j].Items) {
			return len(bundles[i].Items) > len(bundles[j].Items)
		}
		return bundles[i].Name < bundles[j].Name
	})
	return bundles, nil
}

func bundleName(items []model.SetItem) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0].Name
	case 2:
		return items[0].Name + " & " + items[1].Name
	}
	return items[0].Name + ", " + items[1].Name + " & more"
}

// SplitItems breaks free text into trimmed, non-empty product names.
func SplitItems(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r == '\n' || r == ',' || r == ';'
	})
	var out []string
	for _, f := range fields {
		for _, part := range splitAnd(f) {
			part = strings.Trim(strings.TrimSpace(part), ".")
			if part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// splitAnd splits on the word "and" unless the whole text is a known
// product such as "half and half".
func splitAnd(s string) []string {
	if _, ok := exactMatch[strings.ToLower(strings.TrimSpace(s))]; ok {
		return []string{s}
	}
	words := strings.Fields(s)
	var out []string
	start := 0
	for i, w := range words {
		if strings.EqualFold(w, "and") {
			out = append(out, strings.Join(words[start:i], " "))
			start = i + 1
		}
	}
	return append(out, strings.Join(words[start:], " "))
}
