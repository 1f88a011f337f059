package filter

import (
	"context"
	"fmt"

	"github.com/roach88/relq/internal/expr"
	"github.com/roach88/relq/internal/relcache"
)

// Filter answers "does the record this source references satisfy the
// criteria", caching the answer per referenced ID.
//
// State: a fresh filter has an empty cache, lookups populate it, and any
// change to the criteria clears it again. There is no terminal state.
//
// Thread-safety: Filter is not safe for concurrent use. It shares its
// graph with every filter composed into it.
type Filter[S expr.Record, R expr.Record] struct {
	key      Key
	cache    *relcache.Cache[S, R, bool]
	criteria *expr.Predicate
	match    *expr.Predicate
	parent   *Key
	graph    *Graph[S]
}

// New creates a root filter with its own graph. key maps a source to the
// ID of the referenced record; criteria is evaluated against that record.
// Options configure the underlying cache.
func New[S expr.Record, R expr.Record](key, criteria expr.Lambda, resolver relcache.Resolver[R], opts ...relcache.Option) (*Filter[S, R], error) {
	g := newGraph[S]()
	f, err := newFilter[S](g, nil, key, criteria, resolver, opts)
	if err != nil {
		return nil, err
	}
	if err := g.Add(f); err != nil {
		return nil, err
	}
	return f, nil
}

func newFilter[S expr.Record, R expr.Record](g *Graph[S], parent *Key, key, criteria expr.Lambda, resolver relcache.Resolver[R], opts []relcache.Option) (*Filter[S, R], error) {
	if criteria.IsZero() {
		return nil, fmt.Errorf("%w: empty criteria", expr.ErrPrecondition)
	}
	if key.IsZero() {
		return nil, fmt.Errorf("%w: empty key selector", expr.ErrPrecondition)
	}
	k, err := NewKey(TypeName[R](resolver), key)
	if err != nil {
		return nil, err
	}

	f := &Filter[S, R]{
		key:      k,
		criteria: expr.NewPredicate(criteria),
		parent:   parent,
		graph:    g,
	}
	f.cache, err = relcache.New[S](key, resolver, f.selectCriteria, opts...)
	if err != nil {
		return nil, err
	}
	f.match = expr.NewPredicate(lookupOf(k), expr.WithLinker(f))
	return f, nil
}

// lookupOf is the initial match expression: s => lookup[k](s).
func lookupOf(k Key) expr.Lambda {
	return expr.Fn("s", expr.Lookup{Ref: k.Ref(), Label: k.Type, Of: expr.Param{Name: "s"}})
}

func (f *Filter[S, R]) selectCriteria(ctx context.Context, referenced R) (bool, error) {
	return f.criteria.Eval(ctx, referenced)
}

// Link implements expr.Linker through the filter's current graph, so a
// filter moved into another graph by Merge links against its new home.
func (f *Filter[S, R]) Link(ref string) (expr.LookupFunc, error) {
	return f.graph.Link(ref)
}

// Key returns the filter's graph key.
func (f *Filter[S, R]) Key() Key { return f.key }

// Parent returns the key of the filter this one was attached to.
func (f *Filter[S, R]) Parent() (Key, bool) {
	if f.parent == nil {
		return Key{}, false
	}
	return *f.parent, true
}

// Graph returns the graph the filter belongs to.
func (f *Filter[S, R]) Graph() *Graph[S] { return f.graph }

// KeySelector returns the key selector expression.
func (f *Filter[S, R]) KeySelector() expr.Lambda { return f.cache.KeySelector() }

// CriteriaExpression returns the predicate over referenced records.
func (f *Filter[S, R]) CriteriaExpression() expr.Lambda { return f.criteria.Expression() }

// MatchExpression returns the predicate over source records.
func (f *Filter[S, R]) MatchExpression() expr.Lambda { return f.match.Expression() }

// IsMatch evaluates the match predicate for source.
func (f *Filter[S, R]) IsMatch(ctx context.Context, source S) (bool, error) {
	return f.match.Eval(ctx, source)
}

// Get is the raw cached criteria result for the record source references,
// without the extra source-level predicates of the match expression.
func (f *Filter[S, R]) Get(ctx context.Context, source S) (bool, error) {
	return f.cache.Get(ctx, source)
}

// And narrows the match predicate with a predicate over source records.
// Cached criteria results stay valid.
func (f *Filter[S, R]) And(p expr.Lambda) {
	f.match.SetExpression(expr.And(f.match.Expression(), p))
}

// Or widens the match predicate with a predicate over source records.
func (f *Filter[S, R]) Or(p expr.Lambda) {
	f.match.SetExpression(expr.Or(f.match.Expression(), p))
}

// Criteria returns the view used to change the criteria predicate.
func (f *Filter[S, R]) Criteria() Criteria[S, R] {
	return Criteria[S, R]{f: f}
}

// AsPredicate returns the match predicate as a function.
func (f *Filter[S, R]) AsPredicate() func(ctx context.Context, source S) (bool, error) {
	return f.IsMatch
}

// AsExpression returns the match predicate as an expression tree.
func (f *Filter[S, R]) AsExpression() expr.Lambda {
	return f.match.Expression()
}

// Invalidate drops the cached result for id.
func (f *Filter[S, R]) Invalidate(id relcache.ID) bool { return f.cache.Invalidate(id) }

// InvalidateAll drops every cached result.
func (f *Filter[S, R]) InvalidateAll() { f.cache.InvalidateAll() }

// InvalidateWhere drops the cached results whose ID satisfies match.
func (f *Filter[S, R]) InvalidateWhere(match func(relcache.ID) bool) int {
	return f.cache.InvalidateWhere(match)
}

// Subscribe registers h for changes of this filter's cache.
func (f *Filter[S, R]) Subscribe(h relcache.Handler) relcache.Subscription {
	return f.cache.Subscribe(h)
}

// Unsubscribe removes a handler registered with Subscribe.
func (f *Filter[S, R]) Unsubscribe(sub relcache.Subscription) bool {
	return f.cache.Unsubscribe(sub)
}

// Len returns the number of cached criteria results.
func (f *Filter[S, R]) Len() int { return f.cache.Len() }

// Stats returns the cache counters.
func (f *Filter[S, R]) Stats() relcache.Stats { return f.cache.Stats() }

// Compilations counts how often the criteria and match predicates were
// compiled.
func (f *Filter[S, R]) Compilations() (criteria, match int) {
	return f.criteria.Compilations(), f.match.Compilations()
}

// setCriteria installs l and clears the cache if it changed the tree.
func (f *Filter[S, R]) setCriteria(l expr.Lambda) bool {
	if !f.criteria.SetExpression(l) {
		return false
	}
	f.cache.InvalidateAll()
	return true
}

// absorb requires criteria as well, skipping conjuncts already present.
func (f *Filter[S, R]) absorb(criteria expr.Lambda) bool {
	return f.setCriteria(andOnce(f.criteria.Expression(), criteria))
}

func (f *Filter[S, R]) rehome(g *Graph[S], parent *Key) {
	f.graph = g
	f.parent = parent
	f.match.Reset()
}

// Criteria changes a filter's criteria predicate. Every change that alters
// the tree clears the filter's cache, since cached results were computed
// with the old predicate. Methods report whether the tree changed.
type Criteria[S expr.Record, R expr.Record] struct {
	f *Filter[S, R]
}

// Expression returns the current criteria.
func (c Criteria[S, R]) Expression() expr.Lambda { return c.f.criteria.Expression() }

// And requires p as well.
func (c Criteria[S, R]) And(p expr.Lambda) bool {
	return c.f.setCriteria(expr.And(c.Expression(), p))
}

// Or accepts p as an alternative.
func (c Criteria[S, R]) Or(p expr.Lambda) bool {
	return c.f.setCriteria(expr.Or(c.Expression(), p))
}

// ReverseAnd is And with p evaluated first.
func (c Criteria[S, R]) ReverseAnd(p expr.Lambda) bool {
	return c.f.setCriteria(expr.ReverseAnd(c.Expression(), p))
}

// ReverseOr is Or with p evaluated first.
func (c Criteria[S, R]) ReverseOr(p expr.Lambda) bool {
	return c.f.setCriteria(expr.ReverseOr(c.Expression(), p))
}

// Set replaces the criteria.
func (c Criteria[S, R]) Set(p expr.Lambda) bool {
	if p.IsZero() {
		panic(fmt.Errorf("%w: empty criteria", expr.ErrPrecondition))
	}
	return c.f.setCriteria(p)
}
