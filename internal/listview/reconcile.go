package listview

import (
	"github.com/sevenofnine/smartevent-bridge/internal/domain"
)

// ApplyCreate appends a server-confirmed event. An event whose id is already
// present replaces the existing entry instead, so ids stay unique when a
// reload already picked the event up. The page is left alone apart from
// the clamp.
func (v *View) ApplyCreate(e domain.Event) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return ErrClosed
	}
	v.applyCreate(e)
	return nil
}

// ApplyUpdate merges patch into the event with the given id. The event may
// enter or leave the active filter. An unknown id changes nothing.
func (v *View) ApplyUpdate(id domain.EventID, patch domain.EventPatch) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return ErrClosed
	}
	v.applyUpdate(id, patch)
	return nil
}

// ApplyDelete removes the event with the given id. Deleting an unknown id is
// a no-op, so the operation is idempotent.
func (v *View) ApplyDelete(id domain.EventID) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return ErrClosed
	}
	v.applyDelete(id)
	return nil
}

func (v *View) applyCreate(e domain.Event) {
	if i := v.indexOf(e.ID); i >= 0 {
		v.all[i] = e
	} else {
		v.all = append(v.all, e)
	}
	v.recompute()
}

func (v *View) applyUpdate(id domain.EventID, patch domain.EventPatch) {
	i := v.indexOf(id)
	if i < 0 {
		v.logger.Debug("update for unknown event ignored", "event_id", id)
		return
	}
	updated := patch.Apply(v.all[i])
	updated.ID = id
	v.all[i] = updated
	v.recompute()
}

// applyReplace swaps in the confirmed version of an event already held. An
// unknown id changes nothing.
func (v *View) applyReplace(e domain.Event) {
	i := v.indexOf(e.ID)
	if i < 0 {
		v.logger.Debug("confirmed update for unknown event ignored", "event_id", e.ID)
		return
	}
	v.all[i] = e
	v.recompute()
}

func (v *View) applyDelete(id domain.EventID) {
	i := v.indexOf(id)
	if i < 0 {
		return
	}
	v.all = append(v.all[:i:i], v.all[i+1:]...)
	v.recompute()
}

// ticket records the reload generation a mutation was started against.
type ticket struct {
	view       *View
	generation uint64
}

// begin admits a mutation. It is refused while a fetch is in flight so a
// confirmed change is never applied on top of a list that is about to be
// replaced.
func (v *View) begin() (ticket, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return ticket{}, ErrClosed
	}
	if v.loading {
		return ticket{}, ErrBusy
	}
	return ticket{view: v, generation: v.generation}, nil
}

// commit runs apply under the view lock unless a reload or Close happened
// after begin, in which case the newer state wins and apply is skipped.
func (t ticket) commit(apply func(v *View)) error {
	v := t.view
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		v.discard("closed", t.generation)
		return ErrClosed
	}
	if v.generation != t.generation {
		v.discard("superseded", t.generation)
		return ErrSuperseded
	}
	apply(v)
	return nil
}
