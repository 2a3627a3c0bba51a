package engine

import (
	"time"

	"github.com/dukerupert/basket/internal/shopping"
)

// refreshFilter updates the active category filter after a change. A
// category that gains an active item shows up at once. A category that runs
// out is only dropped once changes have been quiet for the filter delay, so
// checking off the last item does not make its chip vanish mid-tap. Runs on
// the loop.
func (e *Engine) refreshFilter() {
	next := shopping.ActiveCategoryIDs(e.state.Items, e.state.Categories)

	e.mu.Lock()
	shrinking := false
	for id := range e.active {
		if !next[id] {
			shrinking = true
			break
		}
	}
	for id := range next {
		e.active[id] = true
	}
	e.mu.Unlock()

	if !shrinking && !e.filterPending {
		return
	}
	e.filterPending = true
	if e.filterTimer == nil {
		e.filterTimer = time.AfterFunc(e.filterDelay, e.settleFilter)
		return
	}
	e.filterTimer.Reset(e.filterDelay)
}

func (e *Engine) settleFilter() {
	e.read(func(s *shopping.State) {
		e.filterPending = false
		next := shopping.ActiveCategoryIDs(s.Items, s.Categories)
		e.mu.Lock()
		e.active = next
		e.mu.Unlock()
		e.signal()
	})
}

// ActiveCategories returns the ids of categories shown as filter chips.
func (e *Engine) ActiveCategories() map[string]bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]bool, len(e.active))
	for id := range e.active {
		out[id] = true
	}
	return out
}
