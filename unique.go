package refcount

import (
	"github.com/wippyai/refcount/errors"
	"github.com/wippyai/refcount/internal/debug"
)

// Unique is the sole owner of its target. It has no Clone; use Move to hand
// it over or Share to turn it into a Shared handle.
type Unique[T Managed] struct {
	ptr  T
	obj  *Object
	leak leakGuard
}

// NewUnique binds a freshly constructed object to a unique owner.
// v must be a non-nil pointer with no existing owners.
func NewUnique[T Managed](v T) *Unique[T] {
	o := objectOf(v)
	if o == nil {
		return &Unique[T]{}
	}
	o.target = v
	o.strong.AddUnique()
	emit(EventCreated, v)
	return bindUnique(v, o)
}

// Adopt takes back ownership of a target previously returned by
// Unique.Release.
func Adopt[T Managed](v T) *Unique[T] {
	o := objectOf(v)
	if o == nil {
		return &Unique[T]{}
	}
	debug.Assert(o.strong.IsUnique(), errors.PhaseHandle, "adopt of an object not released from a unique handle")
	return bindUnique(v, o)
}

func bindUnique[T Managed](v T, o *Object) *Unique[T] {
	u := &Unique[T]{ptr: v, obj: o}
	arm(u, &u.leak, "unique", o)
	return u
}

// Valid reports whether the handle is bound.
func (u *Unique[T]) Valid() bool {
	return u != nil && u.obj != nil
}

// Get returns the target, or the zero T when empty.
func (u *Unique[T]) Get() T {
	if u == nil {
		var zero T
		return zero
	}
	return u.ptr
}

// RefCount returns 1 when bound and 0 when empty.
func (u *Unique[T]) RefCount() uint32 {
	if !u.Valid() {
		return 0
	}
	return u.obj.strong.Count()
}

// Move transfers ownership to a new handle and empties u.
func (u *Unique[T]) Move() *Unique[T] {
	if !u.Valid() {
		return &Unique[T]{}
	}
	v, o := u.ptr, u.obj
	u.unbind()
	return bindUnique(v, o)
}

// Reset destroys the target and empties the handle.
func (u *Unique[T]) Reset() {
	if !u.Valid() {
		return
	}
	o := u.unbind()
	o.strong.ReleaseUnique()
	destroy(o)
}

// Release empties the handle and returns the target without destroying it.
// Ownership passes to the caller, who must eventually hand it to Adopt.
func (u *Unique[T]) Release() T {
	debug.Assert(u.Valid(), errors.PhaseHandle, "release of empty unique handle")
	if !u.Valid() {
		var zero T
		return zero
	}
	v := u.ptr
	u.unbind()
	return v
}

// Share converts the unique owner into the first shared owner and empties u.
func (u *Unique[T]) Share() *Shared[T] {
	if !u.Valid() {
		return &Shared[T]{}
	}
	v, o := u.ptr, u.obj
	u.unbind()
	o.strong.UniqueToShared()
	return bindShared(v, o)
}

func (u *Unique[T]) unbind() *Object {
	o := u.obj
	u.leak.disarm()
	var zero T
	u.ptr = zero
	u.obj = nil
	return o
}
