package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sevenofnine/smartevent-bridge/internal/domain"
	"github.com/sevenofnine/smartevent-bridge/internal/eventapi"
	"github.com/sevenofnine/smartevent-bridge/internal/listview"
	"github.com/sevenofnine/smartevent-bridge/internal/security"
	"github.com/sevenofnine/smartevent-bridge/internal/version"
)

// Backend is the list engine the server exposes. *listview.Hub implements it.
type Backend interface {
	Names() []string
	View(name string) (*listview.View, error)
	Create(ctx context.Context, e domain.Event) (domain.Event, error)
	Update(ctx context.Context, id domain.EventID, patch domain.EventPatch) (domain.Event, error)
	Delete(ctx context.Context, id domain.EventID) error
	Users(ctx context.Context) ([]domain.User, error)
}

type Server struct {
	backend Backend
	auth    security.BearerAuth
	log     *slog.Logger
	httpSrv *http.Server
}

type Options struct {
	Backend Backend
	Auth    security.BearerAuth
	Logger  *slog.Logger
	// Gatherer backs /metrics; nil uses the default registry.
	Gatherer prometheus.Gatherer
}

func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	auth := opts.Auth
	auth.Public = append(auth.Public, "/healthz", "/metrics")

	s := &Server{backend: opts.Backend, auth: auth, log: logger}
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/v1/surfaces", s.handleSurfaces)
	mux.HandleFunc("/v1/surfaces/{name}", s.handleSurface)
	mux.HandleFunc("/v1/surfaces/{name}/{action}", s.handleSurfaceAction)
	mux.HandleFunc("/v1/surfaces/{name}/events/{id}", s.handleSurfaceEvent)
	mux.HandleFunc("/v1/events/create", s.handleCreateEvent)
	mux.HandleFunc("/v1/events/update", s.handleUpdateEvent)
	mux.HandleFunc("/v1/events/delete", s.handleDeleteEvent)
	mux.HandleFunc("/v1/users", s.handleUsers)
	s.httpSrv = &http.Server{Handler: s.auth.Wrap(mux, s.deny), ReadHeaderTimeout: 5 * time.Second}
	return s
}

func (s *Server) Handler() http.Handler { return s.httpSrv.Handler }

func (s *Server) ServeTCP(ctx context.Context, bind string) error {
	if bind == "" {
		return errors.New("bind required")
	}
	ln, err := net.Listen("tcp", bind)
	if err != nil {
		return err
	}
	return s.serve(ctx, ln)
}

func (s *Server) ServeUnix(ctx context.Context, path string) error {
	if path == "" {
		return errors.New("socket path required")
	}
	_ = os.Remove(path)
	ln, err := net.Listen("unix", path)
	if err != nil {
		return err
	}
	if err := os.Chmod(path, 0o600); err != nil {
		_ = ln.Close()
		return err
	}
	return s.serve(ctx, ln)
}

func (s *Server) serve(ctx context.Context, ln net.Listener) error {
	go s.shutdownOnContext(ctx)
	s.log.Info("api listening", "network", ln.Addr().Network(), "addr", ln.Addr().String())
	if err := s.httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) shutdownOnContext(ctx context.Context) {
	<-ctx.Done()
	timeout, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_ = s.httpSrv.Shutdown(timeout)
}

func (s *Server) deny(w http.ResponseWriter, r *http.Request) {
	s.log.Warn("unauthorized request", "path", r.URL.Path, "remote", r.RemoteAddr)
	writeErr(w, http.StatusUnauthorized, "unauthorized")
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"version":  version.Version,
		"surfaces": s.backend.Names(),
	})
}

func (s *Server) handleSurfaces(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"surfaces": s.backend.Names()})
}

func (s *Server) handleSurface(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	v, err := s.backend.View(r.PathValue("name"))
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v.Snapshot())
}

// handleSurfaceEvent returns one event held by the surface, filtered out of
// the current window or not.
func (s *Server) handleSurfaceEvent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	v, err := s.backend.View(r.PathValue("name"))
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	id := domain.EventID(r.PathValue("id"))
	e, ok := v.Lookup(id)
	if !ok {
		s.writeFailure(w, fmt.Errorf("%w: %s", listview.ErrUnknownEvent, id))
		return
	}
	writeJSON(w, http.StatusOK, e)
}

type categoryRequest struct {
	Category string `json:"category"`
}

func (s *Server) handleSurfaceAction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	v, err := s.backend.View(r.PathValue("name"))
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	switch r.PathValue("action") {
	case "reload":
		err = v.Reload(r.Context())
		if errors.Is(err, listview.ErrSuperseded) {
			// a newer reload owns the result
			writeJSON(w, http.StatusAccepted, v.Snapshot())
			return
		}
	case "category":
		var body categoryRequest
		if derr := json.NewDecoder(r.Body).Decode(&body); derr != nil {
			writeErr(w, http.StatusBadRequest, "invalid json")
			return
		}
		err = v.SelectCategory(body.Category)
	case "next":
		err = v.NextPage()
	case "previous":
		err = v.PreviousPage()
	default:
		writeErr(w, http.StatusNotFound, "unknown action")
		return
	}
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v.Snapshot())
}

type mutationRequest struct {
	EventID domain.EventID    `json:"event_id"`
	Event   domain.Event      `json:"event"`
	Patch   domain.EventPatch `json:"patch"`
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	s.handleMutation(w, r, func(ctx context.Context, payload mutationRequest) (any, error) {
		return s.backend.Create(ctx, payload.Event)
	})
}

func (s *Server) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	s.handleMutation(w, r, func(ctx context.Context, payload mutationRequest) (any, error) {
		if payload.EventID == "" {
			return nil, errMissingID
		}
		return s.backend.Update(ctx, payload.EventID, payload.Patch)
	})
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	s.handleMutation(w, r, func(ctx context.Context, payload mutationRequest) (any, error) {
		if payload.EventID == "" {
			return nil, errMissingID
		}
		return map[string]domain.EventID{"event_id": payload.EventID}, s.backend.Delete(ctx, payload.EventID)
	})
}

var errMissingID = errors.New("event_id required")

func (s *Server) handleMutation(w http.ResponseWriter, r *http.Request, run func(context.Context, mutationRequest) (any, error)) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var payload mutationRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	out, err := run(r.Context(), payload)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleUsers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	users, err := s.backend.Users(r.Context())
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	if users == nil {
		users = []domain.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

func (s *Server) writeFailure(w http.ResponseWriter, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		s.log.Error("request failed", "status", code, "err", err)
	}
	writeErr(w, code, listview.DisplayMessage(err))
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errMissingID):
		return http.StatusBadRequest
	case errors.Is(err, listview.ErrBusy), errors.Is(err, listview.ErrSuperseded):
		return http.StatusConflict
	case errors.Is(err, listview.ErrUnknownSurface), errors.Is(err, listview.ErrUnknownEvent):
		return http.StatusNotFound
	case errors.Is(err, listview.ErrClosed):
		return http.StatusServiceUnavailable
	case eventapi.IsRemote(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
