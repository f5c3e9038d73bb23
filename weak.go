package refcount

import "github.com/wippyai/refcount/control"

// Weak is a non-owning handle. It keeps the control block alive, never the
// target, and can attempt to recover a Shared handle while the target lives.
type Weak[T Managed] struct {
	ptr   T
	obj   *Object
	block *control.Block
}

// NewWeak returns a weak handle to s's target, or an empty one if s is empty.
func NewWeak[T Managed](s *Shared[T]) *Weak[T] {
	if !s.Valid() {
		return &Weak[T]{}
	}
	return weakFrom(s.ptr, s.obj)
}

// WeakFromRaw returns a weak handle to v. The caller must own v through
// another handle, or v must be fully destroyed, in which case the result is
// empty and no control block is allocated.
func WeakFromRaw[T Managed](v T) *Weak[T] {
	o := objectOf(v)
	if o == nil {
		return &Weak[T]{}
	}
	return weakFrom(v, o)
}

func weakFrom[T Managed](v T, o *Object) *Weak[T] {
	b := control.GetOrCreate(&o.slot)
	if b == nil {
		return &Weak[T]{}
	}
	return &Weak[T]{ptr: v, obj: o, block: b}
}

// Valid reports whether the handle references a control block. A valid weak
// handle may still be expired.
func (w *Weak[T]) Valid() bool {
	return w != nil && w.block != nil
}

// Clone returns another weak handle to the same target.
func (w *Weak[T]) Clone() *Weak[T] {
	if !w.Valid() {
		return &Weak[T]{}
	}
	w.block.AddRef()
	return &Weak[T]{ptr: w.ptr, obj: w.obj, block: w.block}
}

// Move transfers the binding to a new handle and empties w.
func (w *Weak[T]) Move() *Weak[T] {
	if !w.Valid() {
		return &Weak[T]{}
	}
	d := &Weak[T]{ptr: w.ptr, obj: w.obj, block: w.block}
	w.clear()
	return d
}

// Reset drops the reference to the control block.
func (w *Weak[T]) Reset() {
	if !w.Valid() {
		return
	}
	b := w.block
	w.clear()
	b.Release()
}

func (w *Weak[T]) clear() {
	var zero T
	w.ptr = zero
	w.obj = nil
	w.block = nil
}

// Expired reports whether the target is gone. Advisory only: a false result
// can be stale by the time the caller acts on it; use Lock or Upgrade.
func (w *Weak[T]) Expired() bool {
	return !w.Valid() || !w.block.Alive()
}

// RefCount returns the number of owners of the target, 0 once expired.
// Advisory only.
func (w *Weak[T]) RefCount() uint32 {
	if w.Expired() {
		return 0
	}
	return w.obj.strong.Count()
}

// RefCountWeak returns the number of weak handles sharing the control block.
// Advisory only.
func (w *Weak[T]) RefCountWeak() int32 {
	if !w.Valid() {
		return 0
	}
	return w.block.WeakCount()
}

// Lock returns a guard that pins the target's liveness. The guard is empty if
// the target is gone. A non-empty guard must be released with Unlock.
func (w *Weak[T]) Lock() *Guard[T] {
	if !w.Valid() || !w.block.LockAlive() {
		return &Guard[T]{}
	}
	return &Guard[T]{ptr: w.ptr, obj: w.obj, block: w.block}
}

// Upgrade locks, converts to a Shared handle and unlocks. The result is empty
// if the target is gone.
func (w *Weak[T]) Upgrade() *Shared[T] {
	g := w.Lock()
	defer g.Unlock()
	return g.Shared()
}

// Guard is a race-free observation that the target is alive. While it is held
// the target cannot finish being destroyed.
type Guard[T Managed] struct {
	ptr    T
	obj    *Object
	block  *control.Block
	failed any
}

// Valid reports whether the guard observed a live target and is still held.
func (g *Guard[T]) Valid() bool {
	return g != nil && g.block != nil
}

// Get returns the target while the guard is held, or the zero T.
func (g *Guard[T]) Get() T {
	if g == nil {
		var zero T
		return zero
	}
	return g.ptr
}

// Shared attempts to add an owner. It returns an empty handle if the last
// owner was released after the guard was taken; teardown is then waiting on
// this guard and the target must be treated as gone. The EventUpgradeFailed
// notification is delivered by Unlock, outside the read section.
func (g *Guard[T]) Shared() *Shared[T] {
	if !g.Valid() {
		return &Shared[T]{}
	}
	if g.obj.strong.TryUpgrade() == 0 {
		g.failed = g.ptr
		return &Shared[T]{}
	}
	return bindShared(g.ptr, g.obj)
}

// Unlock releases the guard. It is safe to call on an empty guard and more
// than once.
func (g *Guard[T]) Unlock() {
	if !g.Valid() {
		return
	}
	b, failed := g.block, g.failed
	var zero T
	g.ptr = zero
	g.obj = nil
	g.block = nil
	g.failed = nil
	b.UnlockAlive()

	if failed != nil {
		emit(EventUpgradeFailed, failed)
	}
}
