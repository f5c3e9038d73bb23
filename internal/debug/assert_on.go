//go:build rcdebug

package debug

import "github.com/wippyai/refcount/errors"

// Enabled reports whether assertions are compiled in.
const Enabled = true

// Assert panics with an invariant error when cond is false.
func Assert(cond bool, phase errors.Phase, msg string) {
	if !cond {
		panic(errors.Invariant(phase, msg))
	}
}
