package model

import "time"

type LogItem struct {
	Name       string `json:"name"`
	CategoryID string `json:"category_id"`
}

// PurchaseLog holds every purchase made on one calendar day. Date is local
// midnight. Items keeps one entry per purchase event, duplicates included.
type PurchaseLog struct {
	ID    string    `json:"id"`
	Date  time.Time `json:"date"`
	Items []LogItem `json:"items"`
}

// StartOfDay returns local midnight for t.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// SameDay reports whether a and b fall on the same calendar day in a's location.
func SameDay(a, b time.Time) bool {
	return StartOfDay(a).Equal(StartOfDay(b.In(a.Location())))
}
