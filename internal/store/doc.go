// Package store provides SQLite-backed storage for the records that relq
// filters read: sources and the related records their keys point at.
//
// Records are grouped by kind and identified by (kind, id). Fields are
// stored as RFC 8785 canonical JSON so a round trip through the database
// never changes a record's hash.
//
// Table adapts one kind to relcache.Resolver, which makes the store the
// host collaborator behind a filter's cache:
//
//	s, _ := store.Open("relq.db")
//	layers := s.Table("layers")
//	f, _ := filter.New[store.Record, store.Record](byLayer, notLocked, layers)
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Scans order by id COLLATE BINARY so results are identical across runs.
package store
