package filter

import (
	"context"
	"fmt"
	"io"

	"github.com/roach88/relq/internal/expr"
	"github.com/roach88/relq/internal/relcache"
)

// Node is a filter registered in a Graph. All nodes of a graph share the
// source type S; each has its own referenced type.
//
// Node is sealed: only *Filter implements it.
type Node[S expr.Record] interface {
	Key() Key
	Parent() (Key, bool)
	KeySelector() expr.Lambda
	CriteriaExpression() expr.Lambda
	MatchExpression() expr.Lambda
	Get(ctx context.Context, source S) (bool, error)
	IsMatch(ctx context.Context, source S) (bool, error)
	InvalidateAll()
	Len() int
	Stats() relcache.Stats

	absorb(criteria expr.Lambda) bool
	rehome(g *Graph[S], parent *Key)
	dump(w io.Writer, depth int) error
}

// Graph is the arena of filters attached to one root. Index 0 is the root.
// Nodes refer to each other by Key, never by pointer.
//
// Invariant: no two nodes share a Key.
//
// Thread-safety: Graph is not safe for concurrent use. Lookups fill node
// caches, so even IsMatch calls on filters of one graph must be serialized.
type Graph[S expr.Record] struct {
	nodes []Node[S]
	index map[Key]int
	refs  map[string]int
}

func newGraph[S expr.Record]() *Graph[S] {
	return &Graph[S]{
		index: make(map[Key]int),
		refs:  make(map[string]int),
	}
}

// Lookup returns the node registered under k.
func (g *Graph[S]) Lookup(k Key) (Node[S], bool) {
	i, ok := g.index[k]
	if !ok {
		return nil, false
	}
	return g.nodes[i], true
}

// LookupRelation returns the node for records of typ reached through
// selector, comparing selectors structurally.
func (g *Graph[S]) LookupRelation(typ string, selector expr.Lambda) (Node[S], bool) {
	k, err := NewKey(typ, selector)
	if err != nil {
		return nil, false
	}
	n, ok := g.Lookup(k)
	if !ok || !expr.Equal(n.KeySelector(), selector) {
		return nil, false
	}
	return n, true
}

// Add registers n. Fails with ErrDuplicateKey if its key is taken.
func (g *Graph[S]) Add(n Node[S]) error {
	k := n.Key()
	if _, ok := g.index[k]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateKey, k)
	}
	g.index[k] = len(g.nodes)
	g.refs[k.Ref()] = len(g.nodes)
	g.nodes = append(g.nodes, n)
	return nil
}

// Len returns the number of nodes, root included.
func (g *Graph[S]) Len() int {
	return len(g.nodes)
}

// Nodes returns the nodes in registration order, root first.
func (g *Graph[S]) Nodes() []Node[S] {
	out := make([]Node[S], len(g.nodes))
	copy(out, g.nodes)
	return out
}

// Root returns the root node, or nil for an empty graph.
func (g *Graph[S]) Root() Node[S] {
	if len(g.nodes) == 0 {
		return nil
	}
	return g.nodes[0]
}

// Children returns the nodes whose parent is k, in registration order.
func (g *Graph[S]) Children(k Key) []Node[S] {
	var out []Node[S]
	for _, n := range g.nodes {
		if p, ok := n.Parent(); ok && p == k {
			out = append(out, n)
		}
	}
	return out
}

// InvalidateAll clears the cache of every node.
func (g *Graph[S]) InvalidateAll() {
	for _, n := range g.nodes {
		n.InvalidateAll()
	}
}

// Stats sums the cache counters of every node.
func (g *Graph[S]) Stats() relcache.Stats {
	var total relcache.Stats
	for _, n := range g.nodes {
		s := n.Stats()
		total.Hits += s.Hits
		total.Misses += s.Misses
		total.Resolutions += s.Resolutions
	}
	return total
}

// narrowable fails with expr.ErrNotSupported unless every match
// predicate in g that consults k requires it as a conjunct.
func (g *Graph[S]) narrowable(k Key) error {
	for _, n := range g.nodes {
		m := n.MatchExpression()
		if consults(m.Body, k.Ref()) && !requires(m, k) {
			return fmt.Errorf("%w: narrowing %s would change %s", expr.ErrNotSupported, k, m)
		}
	}
	return nil
}

// Link implements expr.Linker: a Lookup reference resolves to the cached
// boolean of the node with that Ref.
func (g *Graph[S]) Link(ref string) (expr.LookupFunc, error) {
	i, ok := g.refs[ref]
	if !ok {
		return nil, fmt.Errorf("%w: no node for %s", expr.ErrUnlinked, ref)
	}
	n := g.nodes[i]
	return func(ctx context.Context, r expr.Record) (bool, error) {
		source, ok := r.(S)
		if !ok {
			return false, fmt.Errorf("%w: lookup %s got %T", ErrTypeMismatch, n.Key(), r)
		}
		return n.Get(ctx, source)
	}, nil
}
