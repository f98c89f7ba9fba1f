package listview

import (
	"sort"
	"time"

	"github.com/sevenofnine/smartevent-bridge/internal/domain"
)

// Scope narrows a category-filtered sequence for one surface.
type Scope func(now time.Time, events []domain.Event) []domain.Event

// Profile configures one list surface.
type Profile struct {
	Name            string
	PageSize        int
	DefaultCategory string
	Scope           Scope
}

const (
	SurfaceAdmin      = "admin"
	SurfaceCategories = "categories"
	SurfaceExplore    = "explore"
)

// DefaultProfiles mirrors the three list surfaces of the SmartEvent frontends.
func DefaultProfiles() []Profile {
	return []Profile{
		{Name: SurfaceAdmin, PageSize: 2, DefaultCategory: All},
		{Name: SurfaceCategories, PageSize: 2, DefaultCategory: All},
		{Name: SurfaceExplore, PageSize: 3, DefaultCategory: All, Scope: Upcoming(3)},
	}
}

// Upcoming keeps events starting strictly after now, earliest first. A
// positive limit keeps only the first limit events.
func Upcoming(limit int) Scope {
	return func(now time.Time, events []domain.Event) []domain.Event {
		out := make([]domain.Event, 0, len(events))
		for _, e := range events {
			if e.StartDate.After(now) {
				out = append(out, e)
			}
		}
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].StartDate.Before(out[j].StartDate)
		})
		if limit > 0 && len(out) > limit {
			out = out[:limit]
		}
		return out
	}
}
