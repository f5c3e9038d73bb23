package reclaim

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/wippyai/refcount"
	"github.com/wippyai/refcount/errors"
)

const inactive = ^uint64(0)

type retired struct {
	v     any
	epoch uint64
}

// Deferred delays reclamation of retired objects until no reader that
// entered before the retirement is still active.
//
// Retire and Advance are serialized; the free callback runs outside that
// serialization and may call Retire. Reader.Enter and Reader.Exit are
// lock-free.
type Deferred struct {
	epoch atomic.Uint64
	free  func(any)

	mu      sync.Mutex
	readers []*Reader
	buf     []retired
	mask    uint64
	head    uint64
	tail    uint64
}

// NewDeferred creates a reclaimer with an initial ring capacity of size
// entries, which must be a power of two. free is called for every object
// once it is safe to reuse.
func NewDeferred(size uint64, free func(any)) (*Deferred, error) {
	if size == 0 || size&(size-1) != 0 {
		return nil, errors.InvalidInput(errors.PhaseConfig, "retire ring size must be a power of two")
	}
	if free == nil {
		return nil, errors.InvalidInput(errors.PhaseConfig, "free callback is nil")
	}
	return &Deferred{
		free: free,
		buf:  make([]retired, size),
		mask: size - 1,
	}, nil
}

// Reader marks read sections that may observe retired objects.
type Reader struct {
	d     *Deferred
	epoch atomic.Uint64
}

// NewReader registers a reader. Readers start outside any read section.
func (d *Deferred) NewReader() *Reader {
	r := &Reader{d: d}
	r.epoch.Store(inactive)

	d.mu.Lock()
	d.readers = append(d.readers, r)
	d.mu.Unlock()
	return r
}

// RemoveReader unregisters r.
func (d *Deferred) RemoveReader(r *Reader) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, cur := range d.readers {
		if cur == r {
			d.readers = append(d.readers[:i], d.readers[i+1:]...)
			return
		}
	}
}

// Enter starts a read section.
func (r *Reader) Enter() {
	r.epoch.Store(r.d.epoch.Load())
}

// Exit ends a read section.
func (r *Reader) Exit() {
	r.epoch.Store(inactive)
}

// Active reports whether r is inside a read section.
func (r *Reader) Active() bool {
	return r.epoch.Load() != inactive
}

// Retire queues v for reclamation. It is meant to be called from
// OnZeroReached, after v has been unpublished.
func (d *Deferred) Retire(v any) {
	var ready []any

	d.mu.Lock()
	if d.head-d.tail == uint64(len(d.buf)) {
		ready = d.collectLocked()
		if d.head-d.tail == uint64(len(d.buf)) {
			d.growLocked()
		}
	}
	d.buf[d.head&d.mask] = retired{v: v, epoch: d.epoch.Load()}
	d.head++
	d.mu.Unlock()

	d.release(ready)
}

// Advance moves to the next epoch and frees every retired object that no
// active reader can still observe. It returns the number of objects freed.
func (d *Deferred) Advance() int {
	d.mu.Lock()
	epoch := d.epoch.Add(1)
	ready := d.collectLocked()
	d.mu.Unlock()

	d.release(ready)
	if len(ready) > 0 {
		if ce := refcount.Logger().Check(zap.DebugLevel, "retired objects reclaimed"); ce != nil {
			ce.Write(zap.Int("count", len(ready)), zap.Uint64("epoch", epoch))
		}
	}
	return len(ready)
}

// Pending returns the number of retired objects not yet freed.
func (d *Deferred) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int(d.head - d.tail)
}

// Epoch returns the current epoch.
func (d *Deferred) Epoch() uint64 {
	return d.epoch.Load()
}

// collectLocked dequeues entries in FIFO order and stops at the first one an
// active reader may still observe; later entries are never older.
func (d *Deferred) collectLocked() []any {
	low := d.minReaderEpoch()
	var ready []any
	for d.tail != d.head {
		e := &d.buf[d.tail&d.mask]
		if low != inactive && e.epoch >= low {
			break
		}
		ready = append(ready, e.v)
		*e = retired{}
		d.tail++
	}
	return ready
}

// release hands collected objects to the free callback. It runs without the
// lock, so free may retire further objects.
func (d *Deferred) release(ready []any) {
	for _, v := range ready {
		d.free(v)
	}
}

func (d *Deferred) minReaderEpoch() uint64 {
	low := inactive
	for _, r := range d.readers {
		if v := r.epoch.Load(); v < low {
			low = v
		}
	}
	return low
}

func (d *Deferred) growLocked() {
	size := uint64(len(d.buf)) * 2
	buf := make([]retired, size)
	for i := d.tail; i != d.head; i++ {
		buf[i&(size-1)] = d.buf[i&d.mask]
	}
	d.buf = buf
	d.mask = size - 1
}
