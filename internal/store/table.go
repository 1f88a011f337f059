package store

import (
	"context"

	"github.com/roach88/relq/internal/relcache"
)

// Table resolves relation ids of one kind against the store. It is the
// relcache.Resolver behind a filter built from stored records.
type Table struct {
	store *Store
	kind  string
	reads int
}

// Table returns a resolver for records of the given kind.
func (s *Store) Table(kind string) *Table {
	return &Table{store: s, kind: kind}
}

// Resolve implements relcache.Resolver. A missing record is an error
// wrapping ErrNotFound; the cache does not store it.
func (t *Table) Resolve(ctx context.Context, id relcache.ID) (Record, error) {
	t.reads++
	return t.store.Get(ctx, t.kind, string(id))
}

// Kind reports the record kind. Filters use it to tell tables of the same
// Go type apart.
func (t *Table) Kind() string { return t.kind }

// Reads reports how many times Resolve hit the database.
func (t *Table) Reads() int { return t.reads }
