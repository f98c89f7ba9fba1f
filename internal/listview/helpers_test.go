package listview

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/sevenofnine/smartevent-bridge/internal/domain"
	"github.com/sevenofnine/smartevent-bridge/internal/normalize"
)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type sourceFunc func(ctx context.Context) ([]normalize.Record, error)

func (f sourceFunc) ListEvents(ctx context.Context) ([]normalize.Record, error) { return f(ctx) }

func staticSource(records []normalize.Record) Source {
	return sourceFunc(func(context.Context) ([]normalize.Record, error) { return records, nil })
}

// recordsFor builds records with ids 1..n and the given categories.
func recordsFor(categories ...string) []normalize.Record {
	out := make([]normalize.Record, 0, len(categories))
	for i, c := range categories {
		out = append(out, normalize.Record{
			"id":       json.Number(strconv.Itoa(i + 1)),
			"titre":    "Event " + strconv.Itoa(i+1),
			"category": c,
		})
	}
	return out
}

func newLoadedView(profile Profile, categories ...string) *View {
	v := NewView(profile, NewCoordinator(staticSource(recordsFor(categories...)), nil), ViewOptions{Logger: quietLogger})
	if err := v.Reload(context.Background()); err != nil {
		panic(err)
	}
	return v
}

func ids(events []domain.Event) []domain.EventID {
	out := make([]domain.EventID, 0, len(events))
	for _, e := range events {
		out = append(out, e.ID)
	}
	return out
}

// fakeRemote is an in-memory Remote. gate, when set, blocks ListEvents
// until it is closed; entered is signalled when a call starts waiting.
type fakeRemote struct {
	mu        sync.Mutex
	records   []normalize.Record
	listErr   error
	mutateErr error
	gate      chan struct{}
	entered   chan struct{}
	mutGate   chan struct{}
	mutEnter  chan struct{}
	nextID    int
	deleted   []domain.EventID
	updates   map[domain.EventID]domain.Event
	users     []domain.User
	// confirm, when set, builds the record the server answers an update with.
	confirm func(domain.Event) normalize.Record
}

func newFakeRemote(categories ...string) *fakeRemote {
	return &fakeRemote{records: recordsFor(categories...), nextID: 100, updates: map[domain.EventID]domain.Event{}}
}

func (f *fakeRemote) ListEvents(ctx context.Context) ([]normalize.Record, error) {
	f.mu.Lock()
	gate, entered := f.gate, f.entered
	f.mu.Unlock()
	if gate != nil {
		if entered != nil {
			entered <- struct{}{}
		}
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]normalize.Record(nil), f.records...), nil
}

func (f *fakeRemote) waitMutation() {
	f.mu.Lock()
	gate, entered := f.mutGate, f.mutEnter
	f.mu.Unlock()
	if gate != nil {
		if entered != nil {
			entered <- struct{}{}
		}
		<-gate
	}
}

func (f *fakeRemote) CreateEvent(_ context.Context, e domain.Event) (normalize.Record, error) {
	f.waitMutation()
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.mutateErr != nil {
		return nil, f.mutateErr
	}
	f.nextID++
	rec := normalize.Record{
		"id":        json.Number(strconv.Itoa(f.nextID)),
		"titre":     e.Title,
		"category":  e.Category,
		"lieu":      e.Location,
		"dateDebut": e.StartDate.UTC().Format(time.RFC3339),
	}
	f.records = append(f.records, rec)
	return rec, nil
}

func (f *fakeRemote) UpdateEvent(_ context.Context, id domain.EventID, e domain.Event) (normalize.Record, error) {
	f.waitMutation()
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.mutateErr != nil {
		return nil, f.mutateErr
	}
	f.updates[id] = e
	if f.confirm != nil {
		return f.confirm(e), nil
	}
	return nil, nil
}

func (f *fakeRemote) DeleteEvent(_ context.Context, id domain.EventID) error {
	f.waitMutation()
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.mutateErr != nil {
		return f.mutateErr
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeRemote) ListUsers(context.Context) ([]domain.User, error) {
	return f.users, nil
}
