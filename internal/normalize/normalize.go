// Package normalize maps the loosely shaped event objects returned by the
// remote event API onto domain.Event.
//
// The mapping is an ordered table: for every canonical field the first
// source key holding a non-empty value wins, otherwise the field fallback is
// used. "Empty" follows the frontend semantics the API was written against:
// missing, null, "", 0 and false all fall through.
package normalize

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sevenofnine/smartevent-bridge/internal/domain"
)

// Record is one decoded JSON object. Numbers are kept as json.Number.
type Record map[string]any

const (
	FieldID          = "id"
	FieldTitle       = "title"
	FieldDescription = "description"
	FieldCategory    = "category"
	FieldLocation    = "location"
	FieldStartDate   = "startDate"
	FieldEndDate     = "endDate"
	FieldCapacity    = "capacity"
	FieldImage       = "image"
)

const (
	UntitledEvent       = "Untitled Event"
	Uncategorized       = "Uncategorized"
	UnspecifiedLocation = "Location not specified"
)

type Rule struct {
	Field    string
	Sources  []string
	Fallback string
}

// Table is the canonical field mapping, in evaluation order.
var Table = []Rule{
	{Field: FieldID, Sources: []string{"id", "ID"}},
	{Field: FieldTitle, Sources: []string{"titre"}, Fallback: UntitledEvent},
	{Field: FieldDescription, Sources: []string{"description"}},
	{Field: FieldCategory, Sources: []string{"category"}, Fallback: Uncategorized},
	{Field: FieldLocation, Sources: []string{"lieu", "location"}, Fallback: UnspecifiedLocation},
	{Field: FieldStartDate, Sources: []string{"dateDebut", "startDate"}},
	{Field: FieldEndDate, Sources: []string{"dateFin", "endDate"}},
	{Field: FieldCapacity, Sources: []string{"capaciteMax", "capacity"}, Fallback: "0"},
	{Field: FieldImage, Sources: []string{"imageUrl"}},
}

// Warning is a data-quality finding. The record is still accepted.
type Warning struct {
	EventID domain.EventID `json:"event_id"`
	Field   string         `json:"field"`
	Message string         `json:"message"`
}

func (w Warning) String() string {
	return fmt.Sprintf("event %s: %s: %s", w.EventID, w.Field, w.Message)
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

type Normalizer struct {
	table []Rule
	newID func() string
}

type Option func(*Normalizer)

// WithIDGenerator replaces the random id source used for records without an id.
func WithIDGenerator(fn func() string) Option {
	return func(n *Normalizer) {
		if fn != nil {
			n.newID = fn
		}
	}
}

func New(opts ...Option) *Normalizer {
	n := &Normalizer{table: Table, newID: uuid.NewString}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Events normalizes every record, preserving order.
func (n *Normalizer) Events(records []Record) ([]domain.Event, []Warning) {
	events := make([]domain.Event, 0, len(records))
	var warnings []Warning
	for _, r := range records {
		e, ws := n.Event(r)
		events = append(events, e)
		warnings = append(warnings, ws...)
	}
	return events, warnings
}

func (n *Normalizer) Event(r Record) (domain.Event, []Warning) {
	values := make(map[string]any, len(n.table))
	for _, rule := range n.table {
		if v, ok := firstPresent(r, rule.Sources); ok {
			values[rule.Field] = v
		}
	}

	var e domain.Event
	var warnings []Warning
	warn := func(field, format string, args ...any) {
		warnings = append(warnings, Warning{EventID: e.ID, Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if v, ok := values[FieldID]; ok {
		e.ID = domain.EventID(text(v))
	} else {
		e.ID = domain.EventID(n.newID())
		warn(FieldID, "missing id, generated %s", e.ID)
	}
	e.Title = n.textOr(values, FieldTitle)
	e.Description = n.textOr(values, FieldDescription)
	e.Category = n.textOr(values, FieldCategory)
	e.Location = n.textOr(values, FieldLocation)
	e.Image = n.textOr(values, FieldImage)

	capacity, err := toInt(values[FieldCapacity])
	switch {
	case err != nil:
		warn(FieldCapacity, "%v, using 0", err)
		capacity = 0
	case capacity < 0:
		warn(FieldCapacity, "negative capacity %d, using 0", capacity)
		capacity = 0
	}
	e.Capacity = capacity

	for _, field := range []string{FieldStartDate, FieldEndDate} {
		v, ok := values[field]
		if !ok {
			continue
		}
		ts, err := toTime(v)
		if err != nil {
			warn(field, "%v", err)
			continue
		}
		if field == FieldStartDate {
			e.StartDate = ts
		} else {
			e.EndDate = ts
		}
	}
	if !e.StartDate.IsZero() && !e.EndDate.IsZero() && e.StartDate.After(e.EndDate) {
		warn(FieldEndDate, "end date %s precedes start date %s", e.EndDate.Format(time.RFC3339), e.StartDate.Format(time.RFC3339))
	}
	return e, warnings
}

func (n *Normalizer) textOr(values map[string]any, field string) string {
	if v, ok := values[field]; ok {
		return text(v)
	}
	for _, rule := range n.table {
		if rule.Field == field {
			return rule.Fallback
		}
	}
	return ""
}

func firstPresent(r Record, keys []string) (any, bool) {
	for _, k := range keys {
		v, ok := r[k]
		if ok && present(v) {
			return v, true
		}
	}
	return nil, false
}

func present(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case string:
		return x != ""
	case bool:
		return x
	case json.Number:
		f, err := x.Float64()
		return err != nil || f != 0
	case float64:
		return x != 0
	case int:
		return x != 0
	case int64:
		return x != 0
	default:
		return true
	}
}

func text(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

func toInt(v any) (int, error) {
	switch x := v.(type) {
	case nil:
		return 0, nil
	case int:
		return x, nil
	case int64:
		return int(x), nil
	case float64:
		return int(math.Trunc(x)), nil
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return int(i), nil
		}
		f, err := x.Float64()
		if err != nil {
			return 0, fmt.Errorf("invalid capacity %q", x.String())
		}
		return int(math.Trunc(f)), nil
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(x))
		if err != nil {
			return 0, fmt.Errorf("invalid capacity %q", x)
		}
		return i, nil
	default:
		return 0, fmt.Errorf("invalid capacity of type %T", v)
	}
}

func toTime(v any) (time.Time, error) {
	s, ok := v.(string)
	if !ok {
		return time.Time{}, fmt.Errorf("invalid date of type %T", v)
	}
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}
