package compiler

import (
	"context"
	"fmt"

	"github.com/roach88/relq/internal/filter"
	"github.com/roach88/relq/internal/relcache"
	"github.com/roach88/relq/internal/store"
)

// Query is a QuerySpec wired to a store.
type Query struct {
	Spec   *QuerySpec
	Filter *filter.Filter[store.Record, store.Record]
	tables []*store.Table
}

// Build creates the filter graph for q: a root filter over q.Relation,
// one child per related relation, and the where predicate on the root's
// match. The options apply to every cache in the graph.
func Build(q *QuerySpec, st *store.Store, opts ...relcache.Option) (*Query, error) {
	root := st.Table(q.Relation)
	f, err := filter.New[store.Record, store.Record](q.Key, q.Criteria, root, opts...)
	if err != nil {
		return nil, fmt.Errorf("build %s: relation %s: %w", q.Name, q.Relation, err)
	}
	out := &Query{Spec: q, Filter: f, tables: []*store.Table{root}}

	for i, rel := range q.Related {
		t := st.Table(rel.Relation)
		if _, err := filter.Add[store.Record, store.Record, store.Record](f, rel.Key, rel.Criteria, t, opts...); err != nil {
			return nil, fmt.Errorf("build %s: related[%d] %s: %w", q.Name, i, rel.Relation, err)
		}
		out.tables = append(out.tables, t)
	}

	if !q.Where.IsZero() {
		f.And(q.Where)
	}
	return out, nil
}

// Run filters every record of the source kind.
func (q *Query) Run(ctx context.Context, st *store.Store) ([]store.Record, error) {
	sources, err := st.Scan(ctx, q.Spec.Source)
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", q.Spec.Name, err)
	}
	matches, err := filter.Select(ctx, q.Filter, sources)
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", q.Spec.Name, err)
	}
	return matches, nil
}

// Reads reports how many records the query's tables loaded from the
// store.
func (q *Query) Reads() int {
	n := 0
	for _, t := range q.tables {
		n += t.Reads()
	}
	return n
}
