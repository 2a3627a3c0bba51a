package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/dukerupert/basket/internal/ai"
	"github.com/dukerupert/basket/internal/model"
	"github.com/dukerupert/basket/internal/shopping"
)

// Dictation is what Dictate added to the list.
type Dictation struct {
	Items    []model.Item `json:"items"`
	DishName string       `json:"dish_name,omitempty"`
}

// AddItem adds name through the merge-or-create rule. When categoryID is
// empty, the name is new and a gateway is configured, the gateway picks the
// category first. If it fails the item is added to the uncategorized bucket
// and a notice is raised.
func (e *Engine) AddItem(ctx context.Context, name, categoryID string, onList bool) (model.Item, error) {
	var suggestion *ai.Suggestion
	if categoryID == "" && e.gateway != nil && shopping.NormalizeName(name) != "" {
		var (
			known  []model.Category
			exists bool
		)
		if err := e.read(func(s *shopping.State) {
			_, exists = s.FindByName(name)
			known = append(known, s.Categories...)
		}); err != nil {
			return model.Item{}, err
		}
		if !exists {
			sug, err := e.gateway.Categorize(ctx, name, known)
			if err != nil {
				e.aiFailed(err)
			} else {
				suggestion = &sug
			}
		}
	}

	var it model.Item
	err := e.mutate(func(s *shopping.State) []shopping.Effect {
		cat := categoryID
		if suggestion != nil {
			cat = s.ResolveCategory(suggestion.CategoryName, suggestion.Emoji)
		}
		var effects []shopping.Effect
		it, effects = s.FinalizeAdd(name, cat, onList)
		return effects
	})
	return it, err
}

// Dictate reads free text such as a spoken list and puts every product on the
// buy list. Without a gateway, or when it fails, the text is split and added
// to the uncategorized bucket instead.
func (e *Engine) Dictate(ctx context.Context, text string) (Dictation, error) {
	if strings.TrimSpace(text) == "" {
		return Dictation{}, nil
	}

	var parsed ai.Parsed
	if e.gateway != nil {
		known, err := e.knownCategories()
		if err != nil {
			return Dictation{}, err
		}
		parsed, err = e.gateway.ParseFreeText(ctx, text, known)
		if err != nil {
			e.aiFailed(err)
			parsed = ai.Parsed{}
		}
	}

	if len(parsed.Items) == 0 {
		items, err := e.AddBulk(text, true)
		return Dictation{Items: items}, err
	}

	out := Dictation{DishName: parsed.DishName}
	err := e.mutate(func(s *shopping.State) []shopping.Effect {
		var effects []shopping.Effect
		for _, tuple := range parsed.Items {
			cat := ""
			if _, ok := s.FindByName(tuple.Name); !ok {
				cat = s.ResolveCategory(tuple.CategoryName, tuple.Emoji)
			}
			it, eff := s.FinalizeAdd(tuple.Name, cat, true)
			if it.ID == "" {
				continue
			}
			out.Items = append(out.Items, it)
			effects = append(effects, eff...)
		}
		s.SortCategories()
		return effects
	})
	return out, err
}

// GenerateSet asks the gateway for the items of a set called name. Every
// proposed item starts out included.
func (e *Engine) GenerateSet(ctx context.Context, name string) (model.SetDraft, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.SetDraft{}, fmt.Errorf("set name is required")
	}
	if e.gateway == nil {
		e.aiFailed(ai.ErrNotConfigured)
		return model.SetDraft{}, ai.ErrNotConfigured
	}
	known, err := e.knownCategories()
	if err != nil {
		return model.SetDraft{}, err
	}

	gen, err := e.gateway.GenerateSetItems(ctx, name, known)
	if err != nil {
		e.aiFailed(err)
		return model.SetDraft{}, fmt.Errorf("generate set: %w", err)
	}
	emoji := gen.Emoji
	if emoji == "" {
		emoji = shopping.DefaultSetEmoji
	}
	return model.SetDraft{Name: name, Emoji: emoji, Items: draftItems(gen.Items)}, nil
}

// SuggestSets looks through the purchase log for products that are bought
// together and proposes them as sets.
func (e *Engine) SuggestSets(ctx context.Context) ([]model.SetDraft, error) {
	if e.gateway == nil {
		e.aiFailed(ai.ErrNotConfigured)
		return nil, ai.ErrNotConfigured
	}
	var (
		logs  []model.PurchaseLog
		known []model.Category
	)
	if err := e.read(func(s *shopping.State) {
		snap := s.Snapshot()
		logs, known = snap.Logs, snap.Categories
	}); err != nil {
		return nil, err
	}

	bundles, err := e.gateway.AnalyzeHistory(ctx, logs, known)
	if err != nil {
		e.aiFailed(err)
		return nil, fmt.Errorf("analyze history: %w", err)
	}
	drafts := make([]model.SetDraft, 0, len(bundles))
	for _, b := range bundles {
		drafts = append(drafts, model.SetDraft{Name: b.Name, Emoji: b.Emoji, Items: draftItems(b.Items)})
	}
	return drafts, nil
}

func draftItems(items []model.SetItem) []model.DraftItem {
	out := make([]model.DraftItem, 0, len(items))
	for _, it := range items {
		out = append(out, model.DraftItem{SetItem: it, Included: true})
	}
	return out
}

func (e *Engine) knownCategories() ([]model.Category, error) {
	var known []model.Category
	err := e.read(func(s *shopping.State) {
		known = append(known, s.Categories...)
	})
	return known, err
}

func (e *Engine) aiFailed(err error) {
	e.notify(Notice{Kind: NoticeAI, Message: ai.Classify(err).Message(), Err: err})
}
