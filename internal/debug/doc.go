// Package debug holds the invariant assertions used by the counter, control
// and handle layers.
//
// Assertions are compiled in only with the rcdebug build tag:
//
//	go test -tags rcdebug ./...
//
// Without the tag Assert is an empty function and callers pay nothing for it.
// A failed assertion panics with an *errors.Error of kind KindInvariant.
package debug
