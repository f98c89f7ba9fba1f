package listview

import "github.com/sevenofnine/smartevent-bridge/internal/domain"

// Cursor is a 1-based page pointer over a sequence of n elements. All
// methods return a new Cursor and never fail on out-of-range input.
type Cursor struct {
	Page     int
	PageSize int
}

func NewCursor(pageSize int) Cursor {
	if pageSize < 1 {
		pageSize = 1
	}
	return Cursor{Page: 1, PageSize: pageSize}
}

// TotalPages is ceil(n / PageSize), at least 1.
func (c Cursor) TotalPages(n int) int {
	size := c.size()
	if n <= 0 {
		return 1
	}
	return (n + size - 1) / size
}

// Window returns the elements of the current page. A page past the end
// yields an empty slice.
func (c Cursor) Window(events []domain.Event) []domain.Event {
	size := c.size()
	if c.Page < 1 {
		return []domain.Event{}
	}
	start := (c.Page - 1) * size
	if start >= len(events) {
		return []domain.Event{}
	}
	end := min(start+size, len(events))
	out := make([]domain.Event, end-start)
	copy(out, events[start:end])
	return out
}

func (c Cursor) Next(n int) Cursor {
	c = c.Clamp(n)
	if c.Page < c.TotalPages(n) {
		c.Page++
	}
	return c
}

func (c Cursor) Previous(n int) Cursor {
	c = c.Clamp(n)
	if c.Page > 1 {
		c.Page--
	}
	return c
}

func (c Cursor) Reset() Cursor {
	c.Page = 1
	return c
}

// Clamp pulls Page into [1, TotalPages(n)].
func (c Cursor) Clamp(n int) Cursor {
	if c.Page < 1 {
		c.Page = 1
	}
	if total := c.TotalPages(n); c.Page > total {
		c.Page = total
	}
	return c
}

func (c Cursor) size() int {
	if c.PageSize < 1 {
		return 1
	}
	return c.PageSize
}
