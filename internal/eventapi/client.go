package eventapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/trace"

	"github.com/sevenofnine/smartevent-bridge/internal/domain"
	"github.com/sevenofnine/smartevent-bridge/internal/normalize"
	"github.com/sevenofnine/smartevent-bridge/internal/observability"
	"github.com/sevenofnine/smartevent-bridge/internal/version"
)

const (
	DefaultBaseURL = "http://localhost:5207"
	EventsPath     = "/api/events"
	UsersPath      = "/api/users"
)

type Client struct {
	events *resty.Client
	users  *resty.Client
	tracer *observability.Tracer
}

type Options struct {
	BaseURL      string
	UsersBaseURL string
	Timeout      time.Duration
	Transport    http.RoundTripper
	Logger       *slog.Logger

	// TracerProvider defaults to the global provider.
	TracerProvider trace.TracerProvider
}

func New(opts Options) *Client {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	usersURL := strings.TrimRight(opts.UsersBaseURL, "/")
	if usersURL == "" {
		usersURL = baseURL
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		events: newResty(baseURL, timeout, opts.Transport, logger),
		users:  newResty(usersURL, timeout, opts.Transport, logger),
		tracer: observability.NewTracer(opts.TracerProvider),
	}
}

func newResty(baseURL string, timeout time.Duration, rt http.RoundTripper, logger *slog.Logger) *resty.Client {
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", fmt.Sprintf("smartevent-bridge/%s", version.Version)).
		SetLogger(restyLogger{log: logger.With("component", "eventapi")})
	if rt != nil {
		c.SetTransport(rt)
	}
	return c
}

func (c *Client) ListEvents(ctx context.Context) ([]normalize.Record, error) {
	const op = "list events"
	body, err := c.do(ctx, c.events, op, http.MethodGet, EventsPath, nil)
	if err != nil {
		return nil, err
	}
	records, err := normalize.DecodeRecords(body)
	if err != nil {
		return nil, &MalformedResponseError{Op: op, Err: err}
	}
	return records, nil
}

// CreateEvent posts e and returns the confirmed record. An empty 2xx body
// confirms the submitted payload as is.
func (c *Client) CreateEvent(ctx context.Context, e domain.Event) (normalize.Record, error) {
	const op = "create event"
	payload := PayloadFrom(e)
	payload.ID = nil
	zero := 0
	payload.NombreParticipants = &zero
	body, err := c.do(ctx, c.events, op, http.MethodPost, EventsPath, payload)
	if err != nil {
		return nil, err
	}
	return confirmed(op, body, payload)
}

func (c *Client) UpdateEvent(ctx context.Context, id domain.EventID, e domain.Event) (normalize.Record, error) {
	const op = "update event"
	e.ID = id
	payload := PayloadFrom(e)
	body, err := c.do(ctx, c.events, op, http.MethodPut, eventPath(id), payload)
	if err != nil {
		return nil, err
	}
	return confirmed(op, body, payload)
}

func (c *Client) DeleteEvent(ctx context.Context, id domain.EventID) error {
	_, err := c.do(ctx, c.events, "delete event", http.MethodDelete, eventPath(id), nil)
	return err
}

func (c *Client) ListUsers(ctx context.Context) ([]domain.User, error) {
	const op = "list users"
	body, err := c.do(ctx, c.users, op, http.MethodGet, UsersPath, nil)
	if err != nil {
		return nil, err
	}
	records, err := normalize.DecodeRecords(body)
	if err != nil {
		return nil, &MalformedResponseError{Op: op, Err: err}
	}
	users := make([]domain.User, 0, len(records))
	for _, r := range records {
		users = append(users, domain.User{
			ID:    field(r, "id"),
			Name:  field(r, "name"),
			Email: field(r, "email"),
			Role:  field(r, "role"),
		})
	}
	return users, nil
}

func (c *Client) do(ctx context.Context, rc *resty.Client, op, method, path string, body any) ([]byte, error) {
	ctx, span := c.tracer.StartRemoteSpan(ctx, strings.ReplaceAll(op, " ", "_"), method, path)
	req := rc.R().SetContext(ctx)
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}
	resp, err := req.Execute(method, path)
	if err != nil {
		err = &NetworkError{Op: op, Err: err}
		c.tracer.EndRemoteSpan(span, 0, err)
		return nil, err
	}
	if !resp.IsSuccess() {
		err = &HTTPError{Op: op, StatusCode: resp.StatusCode(), Message: serverMessage(resp.Body())}
		c.tracer.EndRemoteSpan(span, resp.StatusCode(), err)
		return nil, err
	}
	c.tracer.EndRemoteSpan(span, resp.StatusCode(), nil)
	return resp.Body(), nil
}

func confirmed(op string, body []byte, sent Payload) (normalize.Record, error) {
	r, err := normalize.DecodeRecord(body)
	if err != nil {
		return nil, &MalformedResponseError{Op: op, Err: err}
	}
	if r == nil {
		return sent.Record(), nil
	}
	return r, nil
}

func eventPath(id domain.EventID) string {
	return EventsPath + "/" + url.PathEscape(string(id))
}

func field(r normalize.Record, key string) string {
	v, ok := r[key]
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

// IsRemote reports whether err came from the remote API taxonomy.
func IsRemote(err error) bool {
	var netErr *NetworkError
	var httpErr *HTTPError
	var malformed *MalformedResponseError
	return errors.As(err, &netErr) || errors.As(err, &httpErr) || errors.As(err, &malformed)
}

type restyLogger struct {
	log *slog.Logger
}

func (l restyLogger) Errorf(format string, v ...any) { l.log.Error(fmt.Sprintf(format, v...)) }
func (l restyLogger) Warnf(format string, v ...any)  { l.log.Warn(fmt.Sprintf(format, v...)) }
func (l restyLogger) Debugf(format string, v ...any) { l.log.Debug(fmt.Sprintf(format, v...)) }
