package control

import (
	"sync/atomic"

	"github.com/wippyai/refcount/errors"
	"github.com/wippyai/refcount/internal/debug"
)

// State is the state of a Slot.
type State uint8

const (
	StateUnset State = iota
	StateLive
	StateDead
)

func (s State) String() string {
	switch s {
	case StateUnset:
		return "unset"
	case StateLive:
		return "live"
	case StateDead:
		return "dead"
	default:
		return "unknown"
	}
}

// Slot is the control block pointer embedded in a managed object.
// The zero value is unset.
type Slot struct {
	p atomic.Pointer[Block]
}

// State returns the slot's current state.
func (s *Slot) State() State {
	switch s.p.Load() {
	case nil:
		return StateUnset
	case dead:
		return StateDead
	default:
		return StateLive
	}
}

// Block returns the installed block, or nil when the slot is unset or dead.
func (s *Slot) Block() *Block {
	b := s.p.Load()
	if b == dead {
		return nil
	}
	return b
}

// Reset returns a dead slot to unset so a pooled object can be reused.
// It reports false if the slot was not dead.
func (s *Slot) Reset() bool {
	return s.p.CompareAndSwap(dead, nil)
}

// GetOrCreate returns the object's block with one reference added for the
// caller, allocating and installing it on first use. It returns nil without
// allocating when the object is already dead.
//
// The caller must own a strong reference, or the object must be fully
// destroyed; a raw pointer to an object that is concurrently dying is not
// enough.
func GetOrCreate(s *Slot) *Block {
	b := s.p.Load()
	if b == dead {
		return nil
	}
	if b == nil {
		nb := newBlock()
		if s.p.CompareAndSwap(nil, nb) {
			created.Add(1)
			b = nb
		} else {
			b = s.p.Load()
			if b == dead {
				return nil
			}
		}
	}
	b.AddRef()
	return b
}

// NotifyDeadAndDetach marks the slot dead. It must be called exactly once,
// after the strong count reached zero. If a block is installed, it waits out
// in-flight readers, clears the alive flag and drops the implicit target
// reference.
func NotifyDeadAndDetach(s *Slot) {
	b := s.p.Swap(dead)
	debug.Assert(b != dead, errors.PhaseControl, "object detached twice")
	if b == nil || b == dead {
		return
	}

	b.mu.Lock()
	b.alive.Store(false)
	b.Release()
	b.mu.Unlock()
}
