// Package relcache memoizes values derived from referenced records.
//
// A Cache maps source records to the record they reference, resolves that
// record once, applies a value selector and keeps the result keyed by the
// referenced record's ID. Every later source that references the same ID
// is answered from the cache without resolving again.
//
// FLOW:
//
//	source → key selector → ID ─┬─ hit  → cached value
//	                            └─ miss → Resolve(ID) → selector → store
//
// The key selector is an expr.Lambda so caches can be compared and merged
// structurally; the value selector is a plain Go function.
//
// INVALIDATION:
//
// Nothing is detected automatically. Callers invalidate one ID, all IDs,
// or every ID matching a predicate, typically when the scope that owns the
// referenced records is closed or reloaded.
//
// CHANGE NOTIFICATION:
//
// Subscribe registers a Handler that is told about every entry added or
// removed. While no handler is registered no Change value is built.
//
// Thread-safety: a Cache is not safe for concurrent use. Callers that share
// one across goroutines provide their own locking.
package relcache
