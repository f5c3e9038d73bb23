// Package refcount provides intrusive strong/weak, shared/unique reference
// counting for objects whose destruction must happen at a precise point,
// exactly once, regardless of which goroutine drops the last owner.
//
// The garbage collector still owns memory. What this package decides is when
// an object is destroyed: its deletion hook (closing a file, returning a
// buffer to a pool, freeing foreign memory) runs once the last owning handle
// is reset.
//
// # Architecture Overview
//
//	refcount/            Object, handles, casts, deletion dispatch, observers
//	├── counter/         strong counter with the unique flag bit
//	├── control/         lazily allocated weak control block
//	├── reclaim/         pooled and epoch-deferred reclamation hooks
//	├── resource/        integer handle table over shared and weak handles
//	├── wasmhost/        wazero host module exposing the handle table
//	├── errors/          structured error types
//	└── cmd/rcstress/    concurrent stress driver
//
// # Quick Start
//
// Opt in by embedding Object:
//
//	type Texture struct {
//	    refcount.Object
//	    id uint32
//	}
//
//	func (t *Texture) Drop() { gpu.DeleteTexture(t.id) }
//
//	tex := refcount.New(&Texture{id: 7})
//	defer tex.Reset()
//
//	cache := tex.Weak()
//	defer cache.Reset()
//
//	if s := cache.Upgrade(); s.Valid() {
//	    use(s.Get())
//	    s.Reset()
//	}
//
// # Handles
//
//	Shared   many owners; Clone adds one
//	Unique   exactly one owner; Share converts it into a Shared
//	Weak     no ownership; keeps only the control block alive
//	Guard    short-lived result of Weak.Lock; Shared upgrades it
//
// Handles are used through pointers and are not safe to share between
// goroutines without synchronization; clone one per goroutine instead. The
// objects they point to are safe for concurrent ownership changes.
//
// Go has no destructors: Reset is the destructor. A handle that becomes
// unreachable while bound leaks its reference. Enable Config.LeakDetection
// to have such handles reported.
//
// # Deletion Dispatch
//
// When the last owner goes away the concrete value is inspected:
//
//	Reclaimer   OnZeroReached() takes over reclamation (pools, deferred frees)
//	Dropper     Drop() runs as the destructor
//	neither     nothing runs; the garbage collector frees the memory
//
// Dispatch always uses the value the object was created with, so an object
// reached through an interface-typed handle is destroyed exactly like one
// reached through its concrete type.
//
// # Cycles
//
// There is no cycle detection. Two objects holding Shared handles to each
// other are never destroyed; make one edge a Weak handle.
//
// # Guards
//
// A Guard holds the read side of the control block lock. While it is held the
// target cannot finish dying, so guards must be short: read liveness, upgrade,
// unlock. Never reset the last Shared handle of a target while holding a Guard
// on it; teardown would wait for the guard forever.
package refcount
