package resource

import (
	"reflect"

	"github.com/wippyai/refcount/errors"
)

// Handle is an opaque reference to an entry in a table.
// Handle 0 is reserved and always invalid.
type Handle uint32

// Kind tells whether an entry owns its target.
type Kind uint8

const (
	KindOwned Kind = iota
	KindWeak
)

func (k Kind) String() string {
	if k == KindWeak {
		return "weak"
	}
	return "owned"
}

// Event types for entry lifecycle notifications.
type EventType uint8

const (
	EventCreated EventType = iota
	EventDropped
	EventBorrowed
	EventBorrowReturned
)

// Event represents an entry lifecycle event. Value is the entry's target,
// which may already be destroyed for weak entries.
type Event struct {
	Value  any
	Handle Handle
	TypeID uint32
	Kind   Kind
	Type   EventType
}

// Observer receives notifications about entry lifecycle events.
type Observer interface {
	OnResourceEvent(Event)
}

// Info describes a live entry.
type Info struct {
	TypeID  uint32
	Kind    Kind
	Borrows uint32
}

var (
	ErrClosed            = errors.New(errors.PhaseTable, errors.KindClosed).Detail("table closed").Build()
	ErrOutstandingBorrow = errors.New(errors.PhaseTable, errors.KindOutstandingBorrow).Detail("cannot drop entry with outstanding borrows").Build()
)

func errNotTyped[T any](op string, h Handle) error {
	return errors.New(errors.PhaseTable, errors.KindNotFound).
		Path("typed", op).
		GoType(reflect.TypeFor[T]().String()).
		Value(h).
		Detail("handle %v not found for this type", h).
		Build()
}
