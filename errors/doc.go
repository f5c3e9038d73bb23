// Package errors provides structured error types for the refcount module.
//
// Errors are categorized by Phase (which layer raised the error) and Kind (error category).
// The Error type carries the handle path, the Go type involved, the offending value and a
// cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseHandle, errors.KindTypeMismatch).
//		GoType("*scene.Mesh").
//		Detail("target does not implement %s", "Drawable").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.Invariant(errors.PhaseCounter, "shared add on unique object")
//	err := errors.TypeMismatch(errors.PhaseHandle, "*scene.Mesh", "scene.Light")
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
