// Package wasmhost exposes a resource.Table to WebAssembly guests as a
// wazero host module.
//
// The module, named "refcount" by default, exports functions over i32
// handles. Handle 0 is invalid; every function returns 0 on failure.
//
//	clone(h) -> h2            another owned (or weak) entry for h's target
//	drop(h) -> ok             release the entry
//	downgrade(h) -> w         a weak entry for h's target
//	upgrade(w) -> h           an owned entry, 0 once the target is gone
//	count(h) -> n             owners of h's target
//	weak_count(h) -> n        weak handles to h's target
//	borrow(h) -> ok           pin an owned entry against drop
//	return_borrow(h) -> ok    end a borrow
//
// The host creates entries with the table's Go API and passes handles to the
// guest through its own exports. wazero does not allow Go code to call a host
// module's exports directly; InstantiateForwarder adds a small guest that
// imports every function and re-exports it, for Go-side drivers and tests.
package wasmhost
