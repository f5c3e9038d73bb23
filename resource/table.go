package resource

import (
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/refcount"
	"github.com/wippyai/refcount/errors"
)

// Table maps integer handles to owned and weak references.
// Owned entries hold a Shared handle; weak entries hold a Weak handle.
// Dropping an owned entry releases one owner and may destroy the target.
type Table struct {
	mu     sync.RWMutex
	slots  slots
	closed bool

	observers []Observer
	obsMu     sync.RWMutex
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{slots: newSlots()}
}

// InsertShared moves s into a new owned entry. s is empty afterwards.
func (t *Table) InsertShared(typeID uint32, s *refcount.Shared[refcount.Managed]) (Handle, error) {
	if !s.Valid() {
		return 0, errors.InvalidInput(errors.PhaseTable, "insert of empty shared handle")
	}
	return t.insert(entry{value: s.Get(), shared: s.Move(), typeID: typeID})
}

// InsertWeak moves w into a new weak entry. w is empty afterwards.
func (t *Table) InsertWeak(typeID uint32, w *refcount.Weak[refcount.Managed]) (Handle, error) {
	if !w.Valid() {
		return 0, errors.InvalidInput(errors.PhaseTable, "insert of empty weak handle")
	}
	g := w.Lock()
	v := g.Get()
	g.Unlock()
	return t.insert(entry{value: v, weak: w.Move(), typeID: typeID})
}

func (t *Table) insert(e entry) (Handle, error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		e.release()
		return 0, ErrClosed
	}
	h := t.slots.alloc(e)
	t.mu.Unlock()

	t.notify(Event{Type: EventCreated, Handle: h, TypeID: e.typeID, Kind: e.kind(), Value: e.value})
	return h, nil
}

// Get returns a new owner of h's target. For weak entries this is an
// upgrade and fails once the target is gone. The caller must Reset the
// result.
func (t *Table) Get(h Handle) (*refcount.Shared[refcount.Managed], bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	e := t.slots.lookup(h)
	if e == nil {
		return nil, false
	}
	s := e.acquire()
	return s, s.Valid()
}

// GetTyped is Get restricted to entries of the given type.
func (t *Table) GetTyped(h Handle, typeID uint32) (*refcount.Shared[refcount.Managed], bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	e := t.slots.lookup(h)
	if e == nil || e.typeID != typeID {
		return nil, false
	}
	s := e.acquire()
	return s, s.Valid()
}

// Info returns the type, kind and borrow count of h.
func (t *Table) Info(h Handle) (Info, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	e := t.slots.lookup(h)
	if e == nil {
		return Info{}, false
	}
	return Info{TypeID: e.typeID, Kind: e.kind(), Borrows: e.borrows}, true
}

// Clone creates a new entry of the same kind referencing h's target.
func (t *Table) Clone(h Handle) (Handle, error) {
	t.mu.RLock()
	e := t.slots.lookup(h)
	if e == nil {
		t.mu.RUnlock()
		return 0, errors.NotFound(errors.PhaseTable, "clone", "handle", h)
	}
	next := entry{value: e.value, typeID: e.typeID}
	if e.weak != nil {
		next.weak = e.weak.Clone()
	} else {
		next.shared = e.shared.Clone()
	}
	t.mu.RUnlock()

	return t.insert(next)
}

// Downgrade creates a weak entry referencing h's target.
func (t *Table) Downgrade(h Handle) (Handle, error) {
	t.mu.RLock()
	e := t.slots.lookup(h)
	if e == nil {
		t.mu.RUnlock()
		return 0, errors.NotFound(errors.PhaseTable, "downgrade", "handle", h)
	}
	next := entry{value: e.value, typeID: e.typeID}
	if e.weak != nil {
		next.weak = e.weak.Clone()
	} else {
		next.weak = e.shared.Weak()
	}
	t.mu.RUnlock()

	if !next.weak.Valid() {
		return 0, errors.NotFound(errors.PhaseTable, "downgrade", "live target", h)
	}
	return t.insert(next)
}

// Upgrade creates an owned entry referencing h's target. It fails with a
// KindNotFound error if the target is gone.
func (t *Table) Upgrade(h Handle) (Handle, error) {
	t.mu.RLock()
	e := t.slots.lookup(h)
	if e == nil {
		t.mu.RUnlock()
		return 0, errors.NotFound(errors.PhaseTable, "upgrade", "handle", h)
	}
	next := entry{value: e.value, shared: e.acquire(), typeID: e.typeID}
	t.mu.RUnlock()

	if !next.shared.Valid() {
		return 0, errors.NotFound(errors.PhaseTable, "upgrade", "live target", h)
	}
	return t.insert(next)
}

// Borrow records a temporary loan of an owned entry. A borrowed entry
// cannot be dropped until every borrow is returned.
func (t *Table) Borrow(h Handle) error {
	t.mu.Lock()
	e := t.slots.lookup(h)
	if e == nil {
		t.mu.Unlock()
		return errors.NotFound(errors.PhaseTable, "borrow", "handle", h)
	}
	if e.weak != nil {
		t.mu.Unlock()
		return errors.InvalidInput(errors.PhaseTable, "borrow of weak entry")
	}
	e.borrows++
	ev := Event{Type: EventBorrowed, Handle: h, TypeID: e.typeID, Kind: KindOwned, Value: e.value}
	t.mu.Unlock()

	t.notify(ev)
	return nil
}

// ReturnBorrow ends a borrow started with Borrow.
func (t *Table) ReturnBorrow(h Handle) error {
	t.mu.Lock()
	e := t.slots.lookup(h)
	if e == nil {
		t.mu.Unlock()
		return errors.NotFound(errors.PhaseTable, "return_borrow", "handle", h)
	}
	if e.borrows == 0 {
		t.mu.Unlock()
		return errors.InvalidInput(errors.PhaseTable, "return of a borrow that was never taken")
	}
	e.borrows--
	ev := Event{Type: EventBorrowReturned, Handle: h, TypeID: e.typeID, Kind: KindOwned, Value: e.value}
	t.mu.Unlock()

	t.notify(ev)
	return nil
}

// Drop removes h and releases its handle.
func (t *Table) Drop(h Handle) error {
	t.mu.Lock()
	e := t.slots.lookup(h)
	if e == nil {
		t.mu.Unlock()
		return errors.NotFound(errors.PhaseTable, "drop", "handle", h)
	}
	if e.borrows > 0 {
		t.mu.Unlock()
		return ErrOutstandingBorrow
	}
	old := t.slots.free(h)
	t.mu.Unlock()

	t.finish(h, old)
	return nil
}

// finish releases a removed entry and reports it. Runs without the table
// lock because releasing may run deletion hooks that use the table.
func (t *Table) finish(h Handle, e entry) {
	e.release()
	t.notify(Event{Type: EventDropped, Handle: h, TypeID: e.typeID, Kind: e.kind(), Value: e.value})
}

// Count returns the number of owners of h's target, 0 if h is invalid or
// the target is gone. Advisory only.
func (t *Table) Count(h Handle) uint32 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	e := t.slots.lookup(h)
	if e == nil {
		return 0
	}
	if e.weak != nil {
		return e.weak.RefCount()
	}
	return e.shared.RefCount()
}

// WeakCount returns the number of weak handles to h's target, including
// those held outside the table. Advisory only.
func (t *Table) WeakCount(h Handle) int32 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	e := t.slots.lookup(h)
	if e == nil {
		return 0
	}
	if e.weak != nil {
		return e.weak.RefCountWeak()
	}
	return e.shared.RefCountWeak()
}

// Len returns the number of entries.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.slots.live
}

// Each calls fn for every entry until fn returns false. fn must not call
// methods that modify the table.
func (t *Table) Each(fn func(Handle, Info) bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for i := range t.slots.entries {
		e := &t.slots.entries[i]
		if !e.valid {
			continue
		}
		if !fn(Handle(i+1), Info{TypeID: e.typeID, Kind: e.kind(), Borrows: e.borrows}) {
			return
		}
	}
}

// Clear drops every entry that has no outstanding borrows. It returns the
// number of entries dropped.
func (t *Table) Clear() int {
	var handles []Handle
	t.Each(func(h Handle, info Info) bool {
		if info.Borrows == 0 {
			handles = append(handles, h)
		}
		return true
	})

	n := 0
	for _, h := range handles {
		if t.Drop(h) == nil {
			n++
		}
	}
	return n
}

// Close releases every entry, borrowed or not, and rejects further inserts.
// Closing twice is a no-op.
func (t *Table) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true

	borrowed := 0
	for i := range t.slots.entries {
		if t.slots.entries[i].valid && t.slots.entries[i].borrows > 0 {
			borrowed++
		}
	}
	drained := t.slots.drain()
	t.mu.Unlock()

	if borrowed > 0 {
		refcount.Logger().Warn("table closed with outstanding borrows", zap.Int("entries", borrowed))
	}
	for _, r := range drained {
		t.finish(r.h, r.e)
	}
	return nil
}

// Subscribe adds an observer for lifecycle events.
func (t *Table) Subscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	t.observers = append(t.observers, o)
}

// Unsubscribe removes an observer.
func (t *Table) Unsubscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	for i, obs := range t.observers {
		if obs == o {
			t.observers = append(t.observers[:i], t.observers[i+1:]...)
			return
		}
	}
}

func (t *Table) notify(e Event) {
	t.obsMu.RLock()
	defer t.obsMu.RUnlock()
	for _, o := range t.observers {
		o.OnResourceEvent(e)
	}
}
