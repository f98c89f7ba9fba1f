package listview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sevenofnine/smartevent-bridge/internal/domain"
	"github.com/sevenofnine/smartevent-bridge/internal/eventapi"
	"github.com/sevenofnine/smartevent-bridge/internal/normalize"
	"github.com/sevenofnine/smartevent-bridge/internal/observability"
)

// Mutator performs writes against the remote event API. Each call returns
// only after the server confirmed (or refused) the change.
type Mutator interface {
	CreateEvent(ctx context.Context, e domain.Event) (normalize.Record, error)
	UpdateEvent(ctx context.Context, id domain.EventID, e domain.Event) (normalize.Record, error)
	DeleteEvent(ctx context.Context, id domain.EventID) error
}

type Remote interface {
	Source
	Mutator
}

// Hub owns one View per surface over a shared remote. A mutation is sent to
// the remote once and then reconciled into every view.
type Hub struct {
	remote     Remote
	normalizer *normalize.Normalizer
	logger     *slog.Logger
	metrics    *observability.Metrics

	views map[string]*View
	order []string

	// mutations are applied one at a time, in arrival order
	mutMu sync.Mutex
}

type HubOptions struct {
	Normalizer *normalize.Normalizer
	Logger     *slog.Logger
	Metrics    *observability.Metrics
	Now        func() time.Time
}

func NewHub(remote Remote, profiles []Profile, opts HubOptions) (*Hub, error) {
	if remote == nil {
		return nil, errors.New("listview: remote is required")
	}
	if len(profiles) == 0 {
		return nil, errors.New("listview: at least one surface profile is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	n := opts.Normalizer
	if n == nil {
		n = normalize.New()
	}
	h := &Hub{
		remote:     remote,
		normalizer: n,
		logger:     logger,
		metrics:    opts.Metrics,
		views:      make(map[string]*View, len(profiles)),
	}
	coord := NewCoordinator(remote, n)
	for _, p := range profiles {
		if p.Name == "" {
			return nil, errors.New("listview: surface name is required")
		}
		if _, dup := h.views[p.Name]; dup {
			return nil, fmt.Errorf("listview: duplicate surface %q", p.Name)
		}
		h.views[p.Name] = NewView(p, coord, ViewOptions{Logger: logger, Metrics: opts.Metrics, Now: opts.Now})
		h.order = append(h.order, p.Name)
	}
	return h, nil
}

func (h *Hub) Names() []string {
	return append([]string(nil), h.order...)
}

func (h *Hub) View(name string) (*View, error) {
	v, ok := h.views[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSurface, name)
	}
	return v, nil
}

// ReloadAll reloads every surface concurrently. Superseded results are not
// reported as failures.
func (h *Hub) ReloadAll(ctx context.Context) error {
	errs := make([]error, len(h.order))
	var wg sync.WaitGroup
	for i, name := range h.order {
		wg.Add(1)
		go func(i int, v *View) {
			defer wg.Done()
			if err := v.Reload(ctx); err != nil && !errors.Is(err, ErrSuperseded) {
				errs[i] = fmt.Errorf("%s: %w", v.Name(), err)
			}
		}(i, h.views[name])
	}
	wg.Wait()
	return errors.Join(errs...)
}

// Create posts e and appends the confirmed event to every view.
func (h *Hub) Create(ctx context.Context, e domain.Event) (domain.Event, error) {
	var created domain.Event
	err := h.mutate(ctx, "create", func(ctx context.Context) (func(*View), error) {
		rec, err := h.remote.CreateEvent(ctx, e)
		if err != nil {
			return nil, err
		}
		created = h.confirmed(rec, e)
		return func(v *View) { v.applyCreate(created) }, nil
	})
	return created, err
}

// Update sends the patched event and replaces it in every view with the
// version the server confirmed, normalized like a fetched record.
func (h *Hub) Update(ctx context.Context, id domain.EventID, patch domain.EventPatch) (domain.Event, error) {
	var updated domain.Event
	err := h.mutate(ctx, "update", func(ctx context.Context) (func(*View), error) {
		base, ok := h.lookup(id)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownEvent, id)
		}
		sent := patch.Apply(base)
		sent.ID = id
		rec, err := h.remote.UpdateEvent(ctx, id, sent)
		if err != nil {
			return nil, err
		}
		updated = h.confirmed(rec, sent)
		updated.ID = id
		return func(v *View) { v.applyReplace(updated) }, nil
	})
	return updated, err
}

// Delete removes the event remotely, then from every view.
func (h *Hub) Delete(ctx context.Context, id domain.EventID) error {
	return h.mutate(ctx, "delete", func(ctx context.Context) (func(*View), error) {
		if err := h.remote.DeleteEvent(ctx, id); err != nil {
			return nil, err
		}
		return func(v *View) { v.applyDelete(id) }, nil
	})
}

// Users are not list-managed; the call passes straight through when the
// remote supports it.
func (h *Hub) Users(ctx context.Context) ([]domain.User, error) {
	lister, ok := h.remote.(interface {
		ListUsers(ctx context.Context) ([]domain.User, error)
	})
	if !ok {
		return nil, errors.New("listview: remote does not list users")
	}
	return lister.ListUsers(ctx)
}

func (h *Hub) Close() {
	for _, name := range h.order {
		h.views[name].Close()
	}
}

// mutate admits the mutation on every view, runs the remote call and, only
// on success, commits the returned change. A remote failure leaves every
// view untouched.
func (h *Hub) mutate(ctx context.Context, kind string, call func(context.Context) (func(*View), error)) error {
	h.mutMu.Lock()
	defer h.mutMu.Unlock()

	tickets := make([]ticket, 0, len(h.order))
	for _, name := range h.order {
		t, err := h.views[name].begin()
		if errors.Is(err, ErrClosed) {
			continue
		}
		if err != nil {
			h.metrics.RecordMutation(kind, err)
			return err
		}
		tickets = append(tickets, t)
	}
	if len(tickets) == 0 {
		return ErrClosed
	}

	apply, err := call(ctx)
	h.metrics.RecordMutation(kind, err)
	if err != nil {
		h.logger.Error("event mutation failed", "kind", kind, "err", err)
		return err
	}
	for _, t := range tickets {
		if err := t.commit(apply); err != nil {
			h.logger.Info("confirmed mutation not applied to surface", "kind", kind, "surface", t.view.Name(), "reason", err)
		}
	}
	return nil
}

// confirmed normalizes the record returned by the remote. A nil record means
// the server stored sent as is.
func (h *Hub) confirmed(rec normalize.Record, sent domain.Event) domain.Event {
	if rec == nil {
		rec = eventapi.PayloadFrom(sent).Record()
	}
	e, warnings := h.normalizer.Event(rec)
	for _, w := range warnings {
		h.logger.Warn("event data quality", "event_id", w.EventID, "field", w.Field, "detail", w.Message)
	}
	return e
}

func (h *Hub) lookup(id domain.EventID) (domain.Event, bool) {
	for _, name := range h.order {
		if e, ok := h.views[name].Lookup(id); ok {
			return e, true
		}
	}
	return domain.Event{}, false
}
