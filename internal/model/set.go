package model

// SetItem is a plain value tuple. It names a product and its category; it
// does not point at an Item.
type SetItem struct {
	Name         string `json:"name"`
	CategoryName string `json:"category_name"`
	Emoji        string `json:"emoji"`
}

type Set struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Emoji      string    `json:"emoji"`
	Items      []SetItem `json:"items"`
	UsageCount int       `json:"usage_count"`
}

// SetDraft is a candidate set produced by generation or history analysis,
// before the user commits it.
type SetDraft struct {
	Name  string      `json:"name"`
	Emoji string      `json:"emoji"`
	Items []DraftItem `json:"items"`
}

// DraftItem is a candidate tuple that can be toggled or edited before saving.
type DraftItem struct {
	SetItem
	Included bool `json:"included"`
}
