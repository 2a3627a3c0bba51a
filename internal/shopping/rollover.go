package shopping

import "github.com/dukerupert/basket/internal/model"

// DailyRollover clears items that were checked off on an earlier calendar
// day: they leave the list and are no longer completed. Items checked off
// today are untouched. It runs once at session start.
func (s *State) DailyRollover() []Effect {
	today := model.StartOfDay(s.now())
	var effects []Effect
	for i := range s.Items {
		it := &s.Items[i]
		if !it.Completed || it.CompletedAt == nil {
			continue
		}
		if !it.CompletedAt.In(today.Location()).Before(today) {
			continue
		}
		wasShared := shared(*it)
		it.Completed = false
		it.OnList = false
		it.CompletedAt = nil
		if wasShared {
			effects = append(effects, s.upsert(i))
		}
	}
	return effects
}
