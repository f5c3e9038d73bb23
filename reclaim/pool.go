package reclaim

import (
	"sync"
	"sync/atomic"

	"github.com/wippyai/refcount"
	"github.com/wippyai/refcount/errors"
	"github.com/wippyai/refcount/internal/debug"
)

// Pool is a typed pool of managed objects.
type Pool[T refcount.Managed] struct {
	p     sync.Pool
	reset func(T)

	recycled atomic.Int64
	rejected atomic.Int64
}

// NewPool creates a pool. ctor builds a fresh object when the pool is empty.
// reset, if not nil, clears an object's fields before it is pooled.
func NewPool[T refcount.Managed](ctor func() T, reset func(T)) *Pool[T] {
	p := &Pool[T]{reset: reset}
	p.p.New = func() any { return ctor() }
	return p
}

// Get returns an object with no owners, ready for refcount.New.
func (p *Pool[T]) Get() T {
	return p.p.Get().(T)
}

// Recycle returns a destroyed object to the pool. It reports false, and
// keeps the object out of the pool, if v still has owners.
func (p *Pool[T]) Recycle(v T) bool {
	if !refcount.Recycle(v) {
		p.rejected.Add(1)
		return false
	}
	if p.reset != nil {
		p.reset(v)
	}
	p.recycled.Add(1)
	p.p.Put(v)
	return true
}

// PutAny recycles v, which must be a T. It adapts the pool to Deferred's
// free callback.
func (p *Pool[T]) PutAny(v any) {
	obj, ok := v.(T)
	debug.Assert(ok, errors.PhaseDispatch, "pool received a value of the wrong type")
	if !ok {
		p.rejected.Add(1)
		return
	}
	p.Recycle(obj)
}

// PoolStats reports pool activity.
type PoolStats struct {
	Recycled int64
	Rejected int64
}

// Stats returns a snapshot of the pool counters.
func (p *Pool[T]) Stats() PoolStats {
	return PoolStats{
		Recycled: p.recycled.Load(),
		Rejected: p.rejected.Load(),
	}
}
