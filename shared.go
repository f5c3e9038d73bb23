package refcount

import (
	"github.com/wippyai/refcount/errors"
	"github.com/wippyai/refcount/internal/debug"
)

// Shared is a reference-counted owning handle. The zero value is empty.
type Shared[T Managed] struct {
	ptr  T
	obj  *Object
	leak leakGuard
}

// New binds a freshly constructed object and returns its first owner.
// v must be a non-nil pointer with no existing owners.
func New[T Managed](v T) *Shared[T] {
	o := objectOf(v)
	if o == nil {
		return &Shared[T]{}
	}
	debug.Assert(o.strong.Load() == 0, errors.PhaseHandle, "New on an object that already has owners")
	o.target = v
	o.strong.AddShared()
	emit(EventCreated, v)
	return bindShared(v, o)
}

// NewFunc constructs an object with ctor and binds it. A constructor failure
// is returned as a KindAllocation error wrapping the cause.
func NewFunc[T Managed](ctor func() (T, error)) (*Shared[T], error) {
	v, err := ctor()
	if err != nil {
		return &Shared[T]{}, errors.AllocationFailed(errors.PhaseHandle, typeNameOf[T](), err)
	}
	if any(v) == nil {
		return &Shared[T]{}, errors.NilPointer(errors.PhaseHandle, typeNameOf[T]())
	}
	return New(v), nil
}

// FromRaw adds an owner to an object that is already alive, the intrusive
// equivalent of constructing a shared handle from a raw pointer. The caller
// must know the object is alive, for example because it holds another handle.
func FromRaw[T Managed](v T) *Shared[T] {
	o := objectOf(v)
	if o == nil {
		return &Shared[T]{}
	}
	if o.target == nil {
		o.target = v
	}
	o.strong.AddShared()
	return bindShared(v, o)
}

func bindShared[T Managed](v T, o *Object) *Shared[T] {
	s := &Shared[T]{ptr: v, obj: o}
	arm(s, &s.leak, "shared", o)
	return s
}

// Valid reports whether the handle is bound.
func (s *Shared[T]) Valid() bool {
	return s != nil && s.obj != nil
}

// Get returns the target, or the zero T when empty.
func (s *Shared[T]) Get() T {
	if s == nil {
		var zero T
		return zero
	}
	return s.ptr
}

// Clone returns a new owner of the same target.
func (s *Shared[T]) Clone() *Shared[T] {
	if !s.Valid() {
		return &Shared[T]{}
	}
	s.obj.strong.AddShared()
	return bindShared(s.ptr, s.obj)
}

// Move transfers the binding to a new handle and empties s.
func (s *Shared[T]) Move() *Shared[T] {
	if !s.Valid() {
		return &Shared[T]{}
	}
	v, o := s.ptr, s.obj
	s.unbind()
	return bindShared(v, o)
}

// Reset releases the binding. Releasing the last owner destroys the target.
func (s *Shared[T]) Reset() {
	if !s.Valid() {
		return
	}
	releaseShared(s.unbind())
}

// ResetTo releases the current binding and binds v, which must be alive.
func (s *Shared[T]) ResetTo(v T) {
	o := objectOf(v)
	if o != nil {
		o.strong.AddShared()
	}
	s.rebind(v, o)
}

// Assign makes s another owner of other's target.
func (s *Shared[T]) Assign(other *Shared[T]) {
	if !other.Valid() {
		s.Reset()
		return
	}
	v, o := other.ptr, other.obj
	o.strong.AddShared()
	s.rebind(v, o)
}

// rebind installs an already-counted binding and releases the old one last,
// so self-assignment never drops the count to zero.
func (s *Shared[T]) rebind(v T, o *Object) {
	var old *Object
	if s.obj != nil {
		old = s.unbind()
	}
	if o != nil {
		s.ptr, s.obj = v, o
		arm(s, &s.leak, "shared", o)
	}
	if old != nil {
		releaseShared(old)
	}
}

func (s *Shared[T]) unbind() *Object {
	o := s.obj
	s.leak.disarm()
	var zero T
	s.ptr = zero
	s.obj = nil
	return o
}

// Weak returns a weak handle to the target.
func (s *Shared[T]) Weak() *Weak[T] {
	return NewWeak(s)
}

// RefCount returns the number of owners. Advisory only.
func (s *Shared[T]) RefCount() uint32 {
	if !s.Valid() {
		return 0
	}
	return s.obj.strong.Count()
}

// RefCountWeak returns the number of weak handles. Advisory only.
func (s *Shared[T]) RefCountWeak() int32 {
	if !s.Valid() {
		return 0
	}
	if b := s.obj.slot.Block(); b != nil {
		return b.WeakCount()
	}
	return 0
}
