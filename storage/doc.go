// Package storage defines the document storage collaborator the
// authentication core delegates all persistence to, plus the in-memory and
// Redis implementations shipped with it.
//
// Documents are addressed by hierarchical keys and carry an opaque version
// token. [Store.Commit] applies a batch of set/delete operations only when
// every supplied check still holds, giving callers compare-and-swap
// consistency without the core ever taking its own locks.
//
// # What this package must NOT do
//
//   - Know about identities, sessions, or ceremonies (see package identity).
//   - Surface backend errors raw; everything maps to the sentinel errors
//     defined here.
package storage
