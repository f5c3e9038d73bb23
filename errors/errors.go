package errors

import (
	"fmt"
	"strings"
)

// Phase indicates which layer raised the error
type Phase string

const (
	PhaseCounter  Phase = "counter"  // strong counter algebra
	PhaseControl  Phase = "control"  // weak control block lifecycle
	PhaseHandle   Phase = "handle"   // handle construction and conversion
	PhaseDispatch Phase = "dispatch" // deletion dispatch
	PhaseTable    Phase = "table"    // guest handle table
	PhaseHost     Phase = "host"     // wasm host module
	PhaseConfig   Phase = "config"   // configuration
)

// Kind categorizes the error
type Kind string

const (
	KindInvariant         Kind = "invariant"
	KindAllocation        Kind = "allocation"
	KindTypeMismatch      Kind = "type_mismatch"
	KindNotFound          Kind = "not_found"
	KindInvalidInput      Kind = "invalid_input"
	KindClosed            Kind = "closed"
	KindOutstandingBorrow Kind = "outstanding_borrow"
	KindNilPointer        Kind = "nil_pointer"
)

// Error is the structured error type used throughout the module
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	GoType string
	Detail string
	Path   []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.GoType != "" {
		b.WriteString(": Go type ")
		b.WriteString(e.GoType)
	}

	if e.Detail != "" {
		if e.GoType != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the handle path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// GoType sets the Go type name
func (b *Builder) GoType(t string) *Builder {
	b.err.GoType = t
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// Invariant creates an invariant violation error. These are raised by debug
// assertions and indicate a programming error in the caller.
func Invariant(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvariant,
		Detail: detail,
	}
}

// AllocationFailed wraps a constructor failure for a managed object
func AllocationFailed(phase Phase, goType string, cause error) *Error {
	return New(phase, KindAllocation).
		GoType(goType).
		Detail("construct managed object").
		Cause(cause).
		Build()
}

// TypeMismatch creates a conversion failure between managed types
func TypeMismatch(phase Phase, fromType, toType string) *Error {
	return New(phase, KindTypeMismatch).
		GoType(fromType).
		Detail("not convertible to %s", toType).
		Build()
}

// NilPointer creates a nil pointer error
func NilPointer(phase Phase, goType string) *Error {
	return New(phase, KindNilPointer).
		GoType(goType).
		Detail("nil pointer").
		Build()
}

// NotFound creates a not-found error for the operation op
func NotFound(phase Phase, op, what string, id any) *Error {
	return New(phase, KindNotFound).
		Path(op).
		Value(id).
		Detail("%s %v not found", what, id).
		Build()
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}
