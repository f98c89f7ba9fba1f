package listview

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/sevenofnine/smartevent-bridge/internal/domain"
	"github.com/sevenofnine/smartevent-bridge/internal/normalize"
	"github.com/sevenofnine/smartevent-bridge/internal/observability"
)

// View holds the list state of one surface. Every state transition
// recomputes the filtered sequence, the categories and the cursor before
// the lock is released, so a Snapshot is never stale.
type View struct {
	profile Profile
	coord   *Coordinator
	logger  *slog.Logger
	metrics *observability.Metrics
	now     func() time.Time

	mu         sync.Mutex
	all        []domain.Event
	filtered   []domain.Event
	categories []string
	selected   string
	cursor     Cursor
	loading    bool
	lastErr    error
	warnings   []normalize.Warning
	generation uint64
	closed     bool
	loadedAt   time.Time
}

type ViewOptions struct {
	Logger  *slog.Logger
	Metrics *observability.Metrics
	Now     func() time.Time
}

func NewView(p Profile, coord *Coordinator, opts ViewOptions) *View {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	selected := p.DefaultCategory
	if selected == "" {
		selected = All
	}
	v := &View{
		profile:  p,
		coord:    coord,
		logger:   logger.With("surface", p.Name),
		metrics:  opts.Metrics,
		now:      now,
		selected: selected,
		cursor:   NewCursor(p.PageSize),
	}
	v.recompute()
	return v
}

func (v *View) Name() string { return v.profile.Name }

// Snapshot is the read-only state handed to the UI layer.
type Snapshot struct {
	Surface    string              `json:"surface"`
	Events     []domain.Event      `json:"events"`
	Window     []domain.Event      `json:"window"`
	Categories []string            `json:"categories"`
	Selected   string              `json:"selected"`
	Page       int                 `json:"page"`
	TotalPages int                 `json:"total_pages"`
	PageSize   int                 `json:"page_size"`
	Total      int                 `json:"total"`
	Loading    bool                `json:"loading"`
	Error      string              `json:"error,omitempty"`
	Warnings   []normalize.Warning `json:"warnings,omitempty"`
	LoadedAt   *time.Time          `json:"loaded_at,omitempty"`
	Generation uint64              `json:"generation"`
}

func (v *View) Snapshot() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	s := Snapshot{
		Surface:    v.profile.Name,
		Events:     slices.Clone(v.filtered),
		Window:     v.cursor.Window(v.filtered),
		Categories: slices.Clone(v.categories),
		Selected:   v.selected,
		Page:       v.cursor.Page,
		TotalPages: v.cursor.TotalPages(len(v.filtered)),
		PageSize:   v.cursor.PageSize,
		Total:      len(v.filtered),
		Loading:    v.loading,
		Error:      DisplayMessage(v.lastErr),
		Warnings:   slices.Clone(v.warnings),
		Generation: v.generation,
	}
	if s.Events == nil {
		s.Events = []domain.Event{}
	}
	if !v.loadedAt.IsZero() {
		at := v.loadedAt
		s.LoadedAt = &at
	}
	return s
}

// Reload replaces the list with a fresh fetch. A result that arrives after
// a newer Reload started, or after Close, is discarded. On failure the
// previous list is kept and the error is exposed in the snapshot.
func (v *View) Reload(ctx context.Context) error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return ErrClosed
	}
	v.generation++
	gen := v.generation
	v.loading = true
	v.mu.Unlock()

	res, err := v.coord.Load(ctx)

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		v.discard("closed", gen)
		return ErrClosed
	}
	if gen != v.generation {
		v.discard("superseded", gen)
		return ErrSuperseded
	}
	v.loading = false
	v.metrics.RecordFetch(v.profile.Name, err)
	if err != nil {
		v.lastErr = err
		v.logger.Error("event list fetch failed", "err", err, "generation", gen)
		return err
	}
	v.lastErr = nil
	v.all = res.Events
	v.warnings = res.Warnings
	v.loadedAt = v.now()
	v.recompute()
	for _, w := range res.Warnings {
		v.logger.Warn("event data quality", "event_id", w.EventID, "field", w.Field, "detail", w.Message)
	}
	v.logger.Info("event list loaded", "events", len(v.all), "warnings", len(res.Warnings), "generation", gen)
	return nil
}

// SelectCategory switches the filter and resets the cursor to page 1.
func (v *View) SelectCategory(category string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return ErrClosed
	}
	if category == "" {
		category = All
	}
	v.selected = category
	v.cursor = v.cursor.Reset()
	v.recompute()
	return nil
}

func (v *View) NextPage() error {
	return v.move(Cursor.Next)
}

func (v *View) PreviousPage() error {
	return v.move(Cursor.Previous)
}

func (v *View) move(step func(Cursor, int) Cursor) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return ErrClosed
	}
	v.cursor = step(v.cursor, len(v.filtered))
	return nil
}

// Close detaches the view. Pending results are dropped when they arrive.
func (v *View) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.closed = true
	v.loading = false
}

// Lookup returns the event with the given id from the unfiltered list.
func (v *View) Lookup(id domain.EventID) (domain.Event, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if i := v.indexOf(id); i >= 0 {
		return v.all[i], true
	}
	return domain.Event{}, false
}

// recompute rebuilds categories and the filtered sequence from all and
// clamps the cursor. Callers hold mu.
func (v *View) recompute() {
	v.categories = DeriveCategories(v.all)
	filtered := FilterByCategory(v.all, v.selected)
	if v.profile.Scope != nil {
		filtered = v.profile.Scope(v.now(), filtered)
	}
	v.filtered = filtered
	v.cursor = v.cursor.Clamp(len(v.filtered))
	v.metrics.SetEvents(v.profile.Name, len(v.all))
}

func (v *View) indexOf(id domain.EventID) int {
	return slices.IndexFunc(v.all, func(e domain.Event) bool { return e.ID == id })
}

func (v *View) discard(reason string, gen uint64) {
	v.metrics.RecordDiscard(v.profile.Name, reason)
	v.logger.Debug("result discarded", "reason", reason, "generation", gen, "current", v.generation)
}
