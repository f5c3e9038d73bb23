package refcount

import (
	"reflect"

	"github.com/wippyai/refcount/control"
	"github.com/wippyai/refcount/counter"
)

// Object is embedded by value in every managed type. Its zero value has no
// owners and no control block.
//
// Object must not be copied after first use.
type Object struct {
	strong counter.Strong
	slot   control.Slot
	target any
}

func (o *Object) refObject() *Object { return o }

// Managed is satisfied by pointers to types embedding Object.
type Managed interface {
	refObject() *Object
}

// objectOf returns v's Object, or nil for a nil interface value.
// v must not be a nil pointer.
func objectOf[T Managed](v T) *Object {
	if any(v) == nil {
		return nil
	}
	return v.refObject()
}

// RefCount returns the number of owners of v. Advisory only.
func RefCount(v Managed) uint32 {
	if v == nil {
		return 0
	}
	return v.refObject().strong.Count()
}

// BlockState returns the state of v's control block slot.
func BlockState(v Managed) control.State {
	if v == nil {
		return control.StateUnset
	}
	return v.refObject().slot.State()
}

// Recycle prepares a destroyed object for reuse by a pool. It reports false
// if v still has owners. Weak handles taken before destruction stay expired;
// they never observe the reused object.
func Recycle(v Managed) bool {
	if v == nil {
		return false
	}
	o := v.refObject()
	if o.strong.Load() != 0 {
		return false
	}
	if o.slot.Reset() {
		return true
	}
	return o.slot.State() == control.StateUnset
}

func typeName(v any) string {
	if v == nil {
		return "<nil>"
	}
	return reflect.TypeOf(v).String()
}
