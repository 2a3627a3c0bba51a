package shopping

import (
	"sort"
	"time"

	"github.com/dukerupert/basket/internal/model"
)

func sortLogs(logs []model.PurchaseLog) {
	sort.SliceStable(logs, func(i, j int) bool {
		return logs[i].Date.Before(logs[j].Date)
	})
}

func (s *State) logIndex(day time.Time) int {
	day = model.StartOfDay(day)
	for i := range s.Logs {
		if model.StartOfDay(s.Logs[i].Date.In(day.Location())).Equal(day) {
			return i
		}
	}
	return -1
}

// appendPurchase records one purchase event on the log for the day of at,
// creating that day's entry when needed.
func (s *State) appendPurchase(at time.Time, item model.LogItem) {
	i := s.logIndex(at)
	if i < 0 {
		s.Logs = append(s.Logs, model.PurchaseLog{
			ID:   s.newID(),
			Date: model.StartOfDay(at),
		})
		sortLogs(s.Logs)
		i = s.logIndex(at)
	}
	s.Logs[i].Items = append(s.Logs[i].Items, item)
}

// removeLastPurchase removes the last log entry for the day of at whose name
// matches. A day left with no purchases is dropped.
func (s *State) removeLastPurchase(at time.Time, name string) bool {
	i := s.logIndex(at)
	if i < 0 {
		return false
	}
	items := s.Logs[i].Items
	for j := len(items) - 1; j >= 0; j-- {
		if !SameName(items[j].Name, name) {
			continue
		}
		s.Logs[i].Items = append(items[:j], items[j+1:]...)
		if len(s.Logs[i].Items) == 0 {
			s.Logs = append(s.Logs[:i], s.Logs[i+1:]...)
		}
		return true
	}
	return false
}

// PurchasesOn returns the purchases logged on the day of t.
func (s *State) PurchasesOn(t time.Time) []model.LogItem {
	i := s.logIndex(t)
	if i < 0 {
		return nil
	}
	return append([]model.LogItem(nil), s.Logs[i].Items...)
}

// RepeatCounts returns how many times each product was bought on the day of
// t, keyed by the product name as first logged.
func (s *State) RepeatCounts(t time.Time) map[string]int {
	counts := make(map[string]int)
	display := make(map[string]string)
	for _, li := range s.PurchasesOn(t) {
		key := nameKey(li.Name)
		if _, ok := display[key]; !ok {
			display[key] = li.Name
		}
		counts[display[key]]++
	}
	return counts
}
