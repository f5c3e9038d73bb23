// Package reclaim provides reclamation strategies for types that implement
// refcount.Reclaimer.
//
// Pool returns destroyed objects to a typed sync.Pool so the next New can
// reuse them. Deferred holds destroyed objects until every reader that might
// still see them has left its read section, then hands them to a free
// callback, usually Pool.PutAny.
//
//	type Buffer struct {
//		refcount.Object
//		data []byte
//	}
//
//	var buffers = reclaim.NewPool(func() *Buffer { return &Buffer{} }, nil)
//
//	func (b *Buffer) OnZeroReached() { buffers.Recycle(b) }
package reclaim
