package listview

import "github.com/sevenofnine/smartevent-bridge/internal/domain"

// All is the synthetic category matching every event.
const All = "All"

// DeriveCategories returns All followed by every distinct category in
// first-seen order. Matching is exact and case-sensitive.
func DeriveCategories(events []domain.Event) []string {
	out := []string{All}
	seen := map[string]struct{}{All: {}}
	for _, e := range events {
		if _, ok := seen[e.Category]; ok {
			continue
		}
		seen[e.Category] = struct{}{}
		out = append(out, e.Category)
	}
	return out
}

// FilterByCategory keeps the events whose category equals selected, in order.
// All (or an empty selection) returns a copy of events.
func FilterByCategory(events []domain.Event, selected string) []domain.Event {
	out := make([]domain.Event, 0, len(events))
	if selected == All || selected == "" {
		return append(out, events...)
	}
	for _, e := range events {
		if e.Category == selected {
			out = append(out, e)
		}
	}
	return out
}
