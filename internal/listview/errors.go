package listview

import "errors"

var (
	// ErrBusy is returned for a mutation requested while a fetch is in flight.
	ErrBusy = errors.New("listview: event list is loading, try again when it completes")

	// ErrSuperseded is returned when a newer reload made a result obsolete.
	// The result was not applied.
	ErrSuperseded = errors.New("listview: result superseded by a newer reload")

	// ErrClosed is returned once the view has been closed.
	ErrClosed = errors.New("listview: view is closed")

	// ErrUnknownSurface is returned by Hub lookups for an unconfigured surface.
	ErrUnknownSurface = errors.New("listview: unknown surface")

	// ErrUnknownEvent is returned when an update targets an event no view holds.
	ErrUnknownEvent = errors.New("listview: unknown event")
)
