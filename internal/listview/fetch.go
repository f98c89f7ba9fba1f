package listview

import (
	"context"
	"errors"
	"fmt"

	"github.com/sevenofnine/smartevent-bridge/internal/domain"
	"github.com/sevenofnine/smartevent-bridge/internal/eventapi"
	"github.com/sevenofnine/smartevent-bridge/internal/normalize"
)

// Source lists the raw event records of the remote API.
type Source interface {
	ListEvents(ctx context.Context) ([]normalize.Record, error)
}

type LoadResult struct {
	Events   []domain.Event
	Warnings []normalize.Warning
}

// FetchError is the single error type returned by Coordinator.Load.
// Message is suitable for display; Err keeps the underlying cause.
type FetchError struct {
	Message string
	Err     error
}

func (e *FetchError) Error() string { return e.Message }

func (e *FetchError) Unwrap() error { return e.Err }

// Coordinator fetches the event list and normalizes it. It never touches
// view state; the caller applies the result.
type Coordinator struct {
	source     Source
	normalizer *normalize.Normalizer
}

func NewCoordinator(source Source, n *normalize.Normalizer) *Coordinator {
	if n == nil {
		n = normalize.New()
	}
	return &Coordinator{source: source, normalizer: n}
}

func (c *Coordinator) Load(ctx context.Context) (res LoadResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			cause := fmt.Errorf("list events: panic: %v", r)
			res, err = LoadResult{}, &FetchError{Message: DisplayMessage(cause), Err: cause}
		}
	}()
	if c.source == nil {
		cause := errors.New("no event source configured")
		return LoadResult{}, &FetchError{Message: DisplayMessage(cause), Err: cause}
	}
	records, err := c.source.ListEvents(ctx)
	if err != nil {
		return LoadResult{}, &FetchError{Message: DisplayMessage(err), Err: err}
	}
	events, warnings := c.normalizer.Events(records)
	return LoadResult{Events: events, Warnings: warnings}, nil
}

// DisplayMessage renders err as one human-readable line.
func DisplayMessage(err error) string {
	if err == nil {
		return ""
	}
	var fetchErr *FetchError
	if errors.As(err, &fetchErr) && fetchErr.Message != "" {
		return fetchErr.Message
	}
	var httpErr *eventapi.HTTPError
	if errors.As(err, &httpErr) {
		if httpErr.Message != "" {
			return fmt.Sprintf("%s (HTTP status %d)", httpErr.Message, httpErr.StatusCode)
		}
		return fmt.Sprintf("HTTP error! status: %d", httpErr.StatusCode)
	}
	var malformed *eventapi.MalformedResponseError
	if errors.As(err, &malformed) {
		if errors.Is(err, normalize.ErrNotArray) {
			return "Expected array but received different data structure"
		}
		return "The event service returned an unreadable response."
	}
	var netErr *eventapi.NetworkError
	if errors.As(err, &netErr) {
		if errors.Is(err, context.DeadlineExceeded) {
			return "The event service did not answer in time. Please try again later."
		}
		return "Failed to reach the event service. Please try again later."
	}
	return err.Error()
}
