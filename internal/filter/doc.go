// Package filter builds boolean filters over source records whose outcome
// depends on a referenced record.
//
// A Filter is a relcache.Cache of booleans: the criteria predicate is
// evaluated once per referenced record and the result is cached by ID.
// Its match predicate, evaluated per source record, starts as a lookup of
// that cache and can be combined with further source-level predicates.
//
// FILTER GRAPH:
//
// Filters that reach other kinds of referenced records are attached as
// children through a Graph shared by the root and all its descendants.
// Nodes are keyed by (referenced type, structural hash of the key
// selector), so two independently written criteria about the same relation
// end up in one cache:
//
//	root Filter[Entity, Layer]      key: e => e.layer_id
//	  child Filter[Entity, Owner]   key: e => e.owner_id
//
// The graph is an arena. Nodes refer to each other by Key, and match
// predicates reach child caches through expr.Lookup nodes that the graph
// links at compile time, so there are no pointer cycles.
//
// OWNERSHIP:
//
// Filters are mutable builders. And, Or and the Criteria combinators
// change the filter in place; a filter must have a single owner while it
// is being composed. Merge transfers ownership of its argument to the
// receiving filter.
package filter
