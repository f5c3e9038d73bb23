// Package control implements the weak control block shared by all weak
// handles to one managed object.
//
// A block is allocated lazily, at most once per object, on the first weak
// handle request. Its lifetime is independent of its target: it lives until
// the last weak handle and the implicit "target exists" reference are gone.
//
// # Slot states
//
// Every managed object carries a Slot pointing at its block:
//
//	unset  no weak handle was ever requested
//	live   a block is installed
//	dead   the object was destroyed; no block will ever be allocated
//
// # Locking
//
// The block's RWMutex separates upgrade attempts (read side, held by an
// upgrade guard) from teardown (write side, held only inside
// NotifyDeadAndDetach). A reader that saw alive=true keeps the target alive
// until it unlocks, because teardown cannot pass the write lock. A reader that
// sees alive=false must not try to upgrade.
package control
