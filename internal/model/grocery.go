package model

import (
	"strings"
	"time"
)

// NoneCategoryID is the id of the uncategorized bucket. It always exists and
// always sorts last.
const NoneCategoryID = "none"

// DefaultCategoryEmoji is used when a category is created without an emoji.
const DefaultCategoryEmoji = "📦"

type Category struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Emoji string `json:"emoji"`
}

// IsNone reports whether c is the uncategorized bucket.
func (c Category) IsNone() bool {
	return c.ID == NoneCategoryID
}

// NoneCategory returns the default uncategorized bucket.
func NoneCategory() Category {
	return Category{ID: NoneCategoryID, Name: "Other", Emoji: "🛒"}
}

type Item struct {
	ID            string     `json:"id"`
	FamilyID      string     `json:"family_id,omitempty"`
	Name          string     `json:"name"`
	CategoryID    string     `json:"category_id"`
	Completed     bool       `json:"completed"`
	OnList        bool       `json:"on_list"`
	PurchaseCount int        `json:"purchase_count"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`

	// Synced is set once the remote store has acknowledged a write of the
	// row. Items that were only ever added to history stay local.
	Synced bool `json:"-"`
	// Dirty marks local changes the remote store has not acknowledged yet.
	Dirty bool `json:"-"`
}

// Active reports whether the item is on the buy list and not yet checked off.
func (i Item) Active() bool {
	return i.OnList && !i.Completed
}

// CategoryOrNone returns the item's category id, reading an empty id as the
// uncategorized bucket.
func (i Item) CategoryOrNone() string {
	if strings.TrimSpace(i.CategoryID) == "" {
		return NoneCategoryID
	}
	return i.CategoryID
}
