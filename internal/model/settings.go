package model

// Preferences are presentation settings persisted on the client. None of
// them affect list correctness.
type Preferences struct {
	Theme                 string `json:"theme"`
	AIEnabled             bool   `json:"ai_enabled"`
	ConfirmDeleteItem     bool   `json:"confirm_delete_item"`
	ConfirmDeleteCategory bool   `json:"confirm_delete_category"`
	ConfirmDeleteSet      bool   `json:"confirm_delete_set"`
}

// DefaultPreferences returns the preferences used before anything is saved.
func DefaultPreferences() Preferences {
	return Preferences{
		Theme:                 "system",
		AIEnabled:             true,
		ConfirmDeleteItem:     false,
		ConfirmDeleteCategory: true,
		ConfirmDeleteSet:      true,
	}
}
