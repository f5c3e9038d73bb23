package resource

import "github.com/wippyai/refcount"

// TypedTable gives type-safe access to the entries of one type ID.
type TypedTable[T refcount.Managed] struct {
	table  *Table
	typeID uint32
}

// Typed returns a view of t restricted to typeID and target type T.
func Typed[T refcount.Managed](t *Table, typeID uint32) *TypedTable[T] {
	return &TypedTable[T]{table: t, typeID: typeID}
}

// Insert moves s into a new owned entry.
func (tt *TypedTable[T]) Insert(s *refcount.Shared[T]) (Handle, error) {
	m, err := refcount.MoveCast[refcount.Managed](s)
	if err != nil {
		return 0, err
	}
	return tt.table.InsertShared(tt.typeID, m)
}

// InsertWeak moves w into a new weak entry.
func (tt *TypedTable[T]) InsertWeak(w *refcount.Weak[T]) (Handle, error) {
	m, err := refcount.CastWeak[refcount.Managed](w)
	if err != nil {
		return 0, err
	}
	w.Reset()
	return tt.table.InsertWeak(tt.typeID, m)
}

// Get returns a new owner of h's target. The caller must Reset it.
func (tt *TypedTable[T]) Get(h Handle) (*refcount.Shared[T], bool) {
	s, ok := tt.table.GetTyped(h, tt.typeID)
	if !ok {
		return nil, false
	}
	typed, err := refcount.MoveCast[T](s)
	if err != nil {
		s.Reset()
		return nil, false
	}
	return typed, true
}

// Drop removes h if it belongs to this type.
func (tt *TypedTable[T]) Drop(h Handle) error {
	info, ok := tt.table.Info(h)
	if !ok || info.TypeID != tt.typeID {
		return errNotTyped[T]("drop", h)
	}
	return tt.table.Drop(h)
}

// Len returns the number of entries of this type.
func (tt *TypedTable[T]) Len() int {
	n := 0
	tt.table.Each(func(_ Handle, info Info) bool {
		if info.TypeID == tt.typeID {
			n++
		}
		return true
	})
	return n
}
