package control

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/wippyai/refcount/errors"
	"github.com/wippyai/refcount/internal/debug"
)

// Block is the weak control block of one managed object.
type Block struct {
	mu    sync.RWMutex
	refs  atomic.Int32
	alive atomic.Bool
	freed atomic.Bool
}

// dead is the sentinel stored in a slot once its object is destroyed.
var dead = &Block{}

var (
	created atomic.Int64
	freed   atomic.Int64
)

func newBlock() *Block {
	b := &Block{}
	b.refs.Store(1)
	b.alive.Store(true)
	return b
}

// AddRef adds a reference held by a weak handle.
func (b *Block) AddRef() {
	n := b.refs.Add(1)
	debug.Assert(n > 1, errors.PhaseControl, "reference added to freed control block")
}

// Release drops one reference and frees the block when it was the last.
func (b *Block) Release() {
	n := b.refs.Add(-1)
	debug.Assert(n >= 0, errors.PhaseControl, "control block over-released")
	if n != 0 {
		return
	}
	if !b.freed.CompareAndSwap(false, true) {
		debug.Assert(false, errors.PhaseControl, "control block freed twice")
		return
	}
	freed.Add(1)
	if ce := Logger().Check(zap.DebugLevel, "control block freed"); ce != nil {
		ce.Write(zap.Int64("live", created.Load()-freed.Load()))
	}
}

// LockAlive takes the read side and reports whether the target is alive.
// On true the read lock is held and must be released with UnlockAlive.
// On false nothing is held.
func (b *Block) LockAlive() bool {
	b.mu.RLock()
	if !b.alive.Load() {
		b.mu.RUnlock()
		return false
	}
	return true
}

// UnlockAlive releases the read side taken by a successful LockAlive.
func (b *Block) UnlockAlive() {
	b.mu.RUnlock()
}

// Alive reports whether the target is alive. Advisory only.
func (b *Block) Alive() bool {
	return b.alive.Load()
}

// Freed reports whether the last reference was released.
func (b *Block) Freed() bool {
	return b.freed.Load()
}

// Refs returns the raw reference count, including the implicit target
// reference while the target is alive.
func (b *Block) Refs() int32 {
	return b.refs.Load()
}

// WeakCount returns the number of weak handles referencing the block.
// Advisory only.
func (b *Block) WeakCount() int32 {
	n := b.refs.Load()
	if b.alive.Load() {
		n--
	}
	if n < 0 {
		return 0
	}
	return n
}

// Snapshot is a point-in-time view of block allocation.
type Snapshot struct {
	Created int64
	Freed   int64
}

// Live returns the number of blocks allocated and not yet freed.
func (s Snapshot) Live() int64 {
	return s.Created - s.Freed
}

// Stats returns process-wide block counters.
func Stats() Snapshot {
	return Snapshot{Created: created.Load(), Freed: freed.Load()}
}
