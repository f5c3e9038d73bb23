// Package counter implements the strong reference counter embedded in every
// managed object.
//
// The counter is a single uint32. Bit 31 is the unique flag: when set the
// object has exactly one owner (a unique handle) and the low bits hold 1.
// When clear, the low bits count live shared handles and never reach the
// flag value.
package counter

import (
	"sync/atomic"

	"github.com/wippyai/refcount/errors"
	"github.com/wippyai/refcount/internal/debug"
)

// UniqueFlag marks a counter owned by a single unique handle.
const UniqueFlag uint32 = 1 << 31

// Strong is the atomic strong counter. The zero value has no owners.
type Strong struct {
	v atomic.Uint32
}

// Load returns the raw counter value, flag included.
func (c *Strong) Load() uint32 {
	return c.v.Load()
}

// Count returns the number of live owners: 1 in unique mode, otherwise the
// shared count. Advisory only.
func (c *Strong) Count() uint32 {
	v := c.v.Load()
	if v&UniqueFlag != 0 {
		return 1
	}
	return v
}

// IsUnique reports whether the unique flag is set.
func (c *Strong) IsUnique() bool {
	return c.v.Load()&UniqueFlag != 0
}

// AddShared adds one shared owner and returns the new count.
func (c *Strong) AddShared() uint32 {
	for {
		v := c.v.Load()
		debug.Assert(v&UniqueFlag == 0, errors.PhaseCounter, "shared reference added to unique object")
		debug.Assert(v+1 != UniqueFlag, errors.PhaseCounter, "shared count overflow")
		if c.v.CompareAndSwap(v, v+1) {
			return v + 1
		}
	}
}

// AddUnique moves a counter with no owners into unique mode.
func (c *Strong) AddUnique() {
	ok := c.v.CompareAndSwap(0, UniqueFlag|1)
	debug.Assert(ok, errors.PhaseCounter, "unique reference added to owned object")
}

// ReleaseUnique drops the unique owner and leaves the counter at zero.
func (c *Strong) ReleaseUnique() {
	ok := c.v.CompareAndSwap(UniqueFlag|1, 0)
	debug.Assert(ok, errors.PhaseCounter, "unique release on non-unique object")
}

// UniqueToShared converts the unique owner into a single shared owner in one
// step, so no concurrent reader can observe a zero count in between.
func (c *Strong) UniqueToShared() {
	ok := c.v.CompareAndSwap(UniqueFlag|1, 1)
	debug.Assert(ok, errors.PhaseCounter, "unique conversion on non-unique object")
}

// ReleaseShared drops one shared owner. reachedZero is true when the caller
// released the last owner and must destroy the object.
//
// wasUnique reports a release against a counter in unique mode. That is a
// caller bug: it asserts under rcdebug, otherwise the counter is cleared and
// reachedZero is reported so the object is still destroyed once.
func (c *Strong) ReleaseShared() (reachedZero, wasUnique bool) {
	n := c.v.Add(^uint32(0))
	prev := n + 1
	if prev&UniqueFlag != 0 {
		debug.Assert(false, errors.PhaseCounter, "shared release on unique object")
		c.v.CompareAndSwap(n, 0)
		return true, true
	}
	debug.Assert(prev != 0, errors.PhaseCounter, "shared release on object with no owners")
	return n == 0, false
}

// TryUpgrade adds a shared owner only if at least one shared owner is still
// live. It returns the new count, or 0 if the object is dead (or held by a
// unique handle, which weak handles never observe).
func (c *Strong) TryUpgrade() uint32 {
	for {
		v := c.v.Load()
		if v == 0 || v&UniqueFlag != 0 {
			return 0
		}
		if c.v.CompareAndSwap(v, v+1) {
			return v + 1
		}
	}
}
