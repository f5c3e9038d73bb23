package refcount

import (
	"reflect"

	"github.com/wippyai/refcount/errors"
)

// Cast returns a new owner of s's target typed as U. It fails with a
// KindTypeMismatch error, leaving counts unchanged, when the target is not a
// U. Pointer identity is preserved in both directions.
func Cast[U, T Managed](s *Shared[T]) (*Shared[U], error) {
	if !s.Valid() {
		return &Shared[U]{}, nil
	}
	u, ok := any(s.ptr).(U)
	if !ok {
		return &Shared[U]{}, mismatch[U](s.ptr)
	}
	s.obj.strong.AddShared()
	return bindShared(u, s.obj), nil
}

// MoveCast is Cast without the count change: on success s is emptied.
func MoveCast[U, T Managed](s *Shared[T]) (*Shared[U], error) {
	if !s.Valid() {
		return &Shared[U]{}, nil
	}
	u, ok := any(s.ptr).(U)
	if !ok {
		return &Shared[U]{}, mismatch[U](s.ptr)
	}
	o := s.unbind()
	return bindShared(u, o), nil
}

// CastUnique moves a unique owner to a handle typed as U. On failure u is
// left untouched.
func CastUnique[U, T Managed](u *Unique[T]) (*Unique[U], error) {
	if !u.Valid() {
		return &Unique[U]{}, nil
	}
	v, ok := any(u.ptr).(U)
	if !ok {
		return &Unique[U]{}, mismatch[U](u.ptr)
	}
	o := u.unbind()
	return bindUnique(v, o), nil
}

// CastWeak returns another weak handle typed as U.
func CastWeak[U, T Managed](w *Weak[T]) (*Weak[U], error) {
	if !w.Valid() {
		return &Weak[U]{}, nil
	}
	v, ok := any(w.ptr).(U)
	if !ok {
		return &Weak[U]{}, mismatch[U](w.ptr)
	}
	w.block.AddRef()
	return &Weak[U]{ptr: v, obj: w.obj, block: w.block}, nil
}

func mismatch[U any](from any) error {
	return errors.TypeMismatch(errors.PhaseHandle, typeName(from), typeNameOf[U]())
}

func typeNameOf[T any]() string {
	return reflect.TypeFor[T]().String()
}
