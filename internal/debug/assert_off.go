//go:build !rcdebug

package debug

import "github.com/wippyai/refcount/errors"

// Enabled reports whether assertions are compiled in.
const Enabled = false

// Assert is a no-op without the rcdebug build tag.
func Assert(cond bool, phase errors.Phase, msg string) {}
