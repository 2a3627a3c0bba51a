package cli

import (
	"fmt"
	"strings"

	"github.com/dukerupert/basket/internal/model"
	"github.com/dukerupert/basket/internal/shopping"
)

func (a *app) itemByName(name string) (model.Item, error) {
	snap, err := a.engine.Snapshot()
	if err != nil {
		return model.Item{}, err
	}
	for _, it := range snap.Items {
		if shopping.SameName(it.Name, name) {
			return it, nil
		}
	}
	return model.Item{}, fmt.Errorf("no item called %q", strings.TrimSpace(name))
}

// categoryByName finds a category by name, creating it when create is set.
func (a *app) categoryByName(name string, create bool) (model.Category, error) {
	snap, err := a.engine.Snapshot()
	if err != nil {
		return model.Category{}, err
	}
	for _, c := range snap.Categories {
		if shopping.SameName(c.Name, name) {
			return c, nil
		}
	}
	if !create {
		return model.Category{}, fmt.Errorf("no category called %q", strings.TrimSpace(name))
	}
	c, ok, err := a.engine.SaveCategory("", name, "")
	if err != nil {
		return model.Category{}, err
	}
	if !ok {
		return model.Category{}, fmt.Errorf("category name is required")
	}
	return c, nil
}

func (a *app) setByName(name string) (model.Set, error) {
	snap, err := a.engine.Snapshot()
	if err != nil {
		return model.Set{}, err
	}
	for _, s := range snap.Sets {
		if shopping.SameName(s.Name, name) {
			return s, nil
		}
	}
	return model.Set{}, fmt.Errorf("no set called %q", strings.TrimSpace(name))
}
