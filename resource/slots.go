package resource

import "github.com/wippyai/refcount"

type entry struct {
	value   refcount.Managed
	shared  *refcount.Shared[refcount.Managed]
	weak    *refcount.Weak[refcount.Managed]
	typeID  uint32
	borrows uint32
	valid   bool
}

func (e *entry) kind() Kind {
	if e.weak != nil {
		return KindWeak
	}
	return KindOwned
}

// acquire returns a new owner of the target, empty if a weak entry's
// target is gone.
func (e *entry) acquire() *refcount.Shared[refcount.Managed] {
	if e.weak != nil {
		return e.weak.Upgrade()
	}
	return e.shared.Clone()
}

// release empties the entry's handle. It may run deletion dispatch and must
// be called without the table lock.
func (e *entry) release() {
	if e.shared != nil {
		e.shared.Reset()
	}
	if e.weak != nil {
		e.weak.Reset()
	}
}

// slots is the handle-indexed entry store with a free list.
// Callers synchronize access.
type slots struct {
	entries  []entry
	freeList []Handle
	live     int
}

func newSlots() slots {
	return slots{
		entries:  make([]entry, 0, 64),
		freeList: make([]Handle, 0, 16),
	}
}

func (s *slots) alloc(e entry) Handle {
	e.valid = true
	s.live++
	if len(s.freeList) > 0 {
		h := s.freeList[len(s.freeList)-1]
		s.freeList = s.freeList[:len(s.freeList)-1]
		s.entries[h-1] = e
		return h
	}
	s.entries = append(s.entries, e)
	return Handle(len(s.entries))
}

func (s *slots) lookup(h Handle) *entry {
	if h == 0 || int(h) > len(s.entries) {
		return nil
	}
	e := &s.entries[h-1]
	if !e.valid {
		return nil
	}
	return e
}

// free invalidates h and returns its former contents.
func (s *slots) free(h Handle) entry {
	e := &s.entries[h-1]
	old := *e
	*e = entry{}
	s.freeList = append(s.freeList, h)
	s.live--
	return old
}

type removed struct {
	h Handle
	e entry
}

// drain invalidates every entry and returns them.
func (s *slots) drain() []removed {
	var out []removed
	for i := range s.entries {
		if s.entries[i].valid {
			out = append(out, removed{h: Handle(i + 1), e: s.entries[i]})
		}
	}
	s.entries = nil
	s.freeList = nil
	s.live = 0
	return out
}
