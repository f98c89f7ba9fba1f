package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sevenofnine/smartevent-bridge/internal/config"
	"github.com/sevenofnine/smartevent-bridge/internal/domain"
	"github.com/sevenofnine/smartevent-bridge/internal/listview"
)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeHub struct {
	reloads   atomic.Int32
	closed    atomic.Bool
	reloadErr error
}

func (h *fakeHub) Names() []string { return []string{"admin"} }

func (h *fakeHub) View(string) (*listview.View, error) {
	return nil, listview.ErrUnknownSurface
}

func (h *fakeHub) Create(context.Context, domain.Event) (domain.Event, error) {
	return domain.Event{}, nil
}

func (h *fakeHub) Update(context.Context, domain.EventID, domain.EventPatch) (domain.Event, error) {
	return domain.Event{}, nil
}

func (h *fakeHub) Delete(context.Context, domain.EventID) error { return nil }

func (h *fakeHub) Users(context.Context) ([]domain.User, error) { return nil, nil }

func (h *fakeHub) Close() { h.closed.Store(true) }

func (h *fakeHub) ReloadAll(context.Context) error {
	h.reloads.Add(1)
	return h.reloadErr
}

func TestApplicationRunCancel(t *testing.T) {
	cfg := config.Config{BindAddress: "127.0.0.1:0", RequireBearerToken: false, RequestTimeout: time.Second}
	hub := &fakeHub{}
	a := New(cfg, hub, nil, quietLogger)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()
	if err := a.Run(ctx); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if hub.reloads.Load() != 1 {
		t.Fatalf("expected one startup reload, got %d", hub.reloads.Load())
	}
	if !hub.closed.Load() {
		t.Fatal("hub not closed after run")
	}
}

func TestApplicationRunNoListeners(t *testing.T) {
	cfg := config.Config{BindAddress: "", UnixSocketPath: "", RequireBearerToken: false, EnableTray: false}
	hub := &fakeHub{reloadErr: errors.New("remote down")}
	a := New(cfg, hub, nil, quietLogger)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := a.Run(ctx); err != nil {
		t.Fatalf("a failed startup reload must not stop the app, got %v", err)
	}
}

type errTray struct{}

func (errTray) Run(context.Context) error { return errors.New("tray failed") }

func TestApplicationRunTrayError(t *testing.T) {
	cfg := config.Config{BindAddress: "", RequireBearerToken: false, EnableTray: true}
	a := New(cfg, &fakeHub{}, errTray{}, quietLogger)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := a.Run(ctx); err == nil {
		t.Fatal("expected tray error")
	}
}

func TestApplicationRunBindError(t *testing.T) {
	ln := httptest.NewServer(http.NotFoundHandler())
	defer ln.Close()
	cfg := config.Config{BindAddress: ln.Listener.Addr().String()}
	a := New(cfg, &fakeHub{}, nil, quietLogger)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := a.Run(ctx); err == nil {
		t.Fatal("expected listen error for an address in use")
	}
}

func TestApplicationScheduledRefresh(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for cron ticks")
	}
	cfg := config.Config{RefreshCron: "@every 1s"}
	hub := &fakeHub{}
	a := New(cfg, hub, nil, quietLogger)
	ctx, cancel := context.WithTimeout(context.Background(), 2500*time.Millisecond)
	defer cancel()
	if err := a.Run(ctx); err != nil {
		t.Fatal(err)
	}
	if n := hub.reloads.Load(); n < 3 {
		t.Fatalf("expected startup plus scheduled reloads, got %d", n)
	}
}

func TestApplicationRefreshRejectsBadSchedule(t *testing.T) {
	a := New(config.Config{RefreshCron: "not a schedule"}, &fakeHub{}, nil, quietLogger)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := a.Run(ctx); err == nil {
		t.Fatal("expected schedule error")
	}
}

func TestBuildHub(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `[{"id": 1, "titre": "Meetup", "category": "Tech"}]`)
	}))
	defer ts.Close()

	cfg := config.Config{APIBaseURL: ts.URL, UsersBaseURL: ts.URL, RequestTimeout: time.Second}
	hub, err := BuildHub(cfg, quietLogger, prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("BuildHub: %v", err)
	}
	if err := hub.ReloadAll(context.Background()); err != nil {
		t.Fatalf("ReloadAll: %v", err)
	}
	v, err := hub.View(listview.SurfaceAdmin)
	if err != nil {
		t.Fatal(err)
	}
	if s := v.Snapshot(); s.Total != 1 || s.Events[0].Title != "Meetup" {
		t.Fatalf("unexpected snapshot %+v", s)
	}

	bad := filepath.Join(t.TempDir(), "surfaces.yaml")
	if err := os.WriteFile(bad, []byte("surfaces: []\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg.SurfacesFile = bad
	if _, err := BuildHub(cfg, quietLogger, nil); err == nil {
		t.Fatal("expected surfaces error")
	}
}
