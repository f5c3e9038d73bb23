// Package resource maps integer handles to reference-counted objects.
//
// A Table is the handle table a host keeps for a guest or any other client
// that cannot hold Go pointers. Each entry is either owned, holding one
// refcount.Shared owner, or weak, holding a refcount.Weak:
//
//	table := resource.NewTable()
//
//	h, err := table.InsertShared(FileTypeID, refcount.New[refcount.Managed](f))
//
//	// Another owner, as a new handle
//	h2, err := table.Clone(h)
//
//	// A weak handle that does not keep f alive
//	w, err := table.Downgrade(h)
//
//	// Dropping the last owned entry destroys f
//	table.Drop(h)
//	table.Drop(h2)
//	_, err = table.Upgrade(w) // KindNotFound
//
// # Type Safety
//
// Entries carry a caller-chosen type ID. GetTyped and TypedTable refuse
// entries of another type.
//
// # Borrows
//
// Borrow pins an owned entry for the duration of a call. An entry with
// outstanding borrows cannot be dropped; Drop returns ErrOutstandingBorrow.
//
// # Observers
//
// Observers receive EventCreated, EventDropped, EventBorrowed and
// EventBorrowReturned. Events are delivered after the table lock is
// released.
//
// Close releases every entry. Call it when the client goes away, otherwise
// every owned entry leaks its target.
package resource
