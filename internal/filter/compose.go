package filter

import (
	"context"
	"fmt"

	"github.com/roach88/relq/internal/expr"
	"github.com/roach88/relq/internal/relcache"
)

// Add attaches criteria about records of type O, reached from the source
// through key, to f's graph and requires it in f's match predicate.
//
// If the graph already has a node for the same relation (same referenced
// type, structurally equal key) the criteria are ANDed into that node and
// its cache is reused. Otherwise a new child of f is registered. Either
// way the child's match predicate is ANDed into f's match once.
//
// Narrowing an existing node changes every match predicate that consults
// it, so it is only allowed when each of them requires the node as a
// top-level conjunct. After f.Or(p), for example, adding criteria on f's
// own relation would narrow only the left side of the Or; Add fails with
// expr.ErrNotSupported instead.
//
// Example:
//
//	f, _ := filter.New[Entity, Layer](byLayer, notLocked, layers)
//	owner, _ := filter.Add[Entity, Layer, Owner](f, byOwner, isActive, owners)
//	// f matches entities on an unlocked layer with an active owner.
func Add[S expr.Record, R expr.Record, O expr.Record](f *Filter[S, R], key, criteria expr.Lambda, resolver relcache.Resolver[O], opts ...relcache.Option) (*Filter[S, O], error) {
	if criteria.IsZero() {
		return nil, fmt.Errorf("%w: empty criteria", expr.ErrPrecondition)
	}
	k, err := NewKey(TypeName[O](resolver), key)
	if err != nil {
		return nil, err
	}

	var child *Filter[S, O]
	if n, ok := f.graph.Lookup(k); ok {
		existing, ok := n.(*Filter[S, O])
		if !ok {
			return nil, fmt.Errorf("%w: node %s is %T", ErrTypeMismatch, k, n)
		}
		if err := f.graph.narrowable(k); err != nil {
			return nil, err
		}
		existing.absorb(criteria)
		child = existing
	} else {
		parent := f.key
		child, err = newFilter[S](f.graph, &parent, key, criteria, resolver, opts)
		if err != nil {
			return nil, err
		}
		if err := f.graph.Add(child); err != nil {
			return nil, err
		}
	}

	f.match.SetExpression(andOnce(f.match.Expression(), child.match.Expression()))
	return child, nil
}

// Merge absorbs other, an independently built filter over the same source
// type, into f's graph:
//   - nodes whose key already exists in f's graph AND their criteria into
//     the existing node
//   - other nodes join f's graph; other's root becomes a child of f
//   - other's match predicate is ANDed into f's, skipping conjuncts f
//     already has
//
// A shared node can only be narrowed if every match predicate consulting
// it, in f's graph and in other's, requires it as a top-level conjunct.
// Otherwise the merge would change what one side means (a lookup under an
// Or or a negation), and Merge fails with expr.ErrNotSupported before
// changing either filter.
//
// Ownership of other passes to f. other must not be composed or queried
// on its own afterwards.
//
// Example:
//
//	f, _ := filter.New[Entity, Layer](byLayer, notLocked, layers)
//	other, _ := filter.New[Entity, Owner](byOwner, isActive, owners)
//	other.And(isVisible)
//	err := filter.Merge(f, other)
//	// f.MatchExpression(): s => (lookup[Layer](s) && lookup[Owner](s)) && s.visible
func Merge[S expr.Record, R expr.Record, O expr.Record](f *Filter[S, R], other *Filter[S, O]) error {
	if other == nil {
		return fmt.Errorf("%w: nil filter", expr.ErrPrecondition)
	}
	if other.graph == f.graph {
		return nil
	}

	for _, n := range other.graph.Nodes() {
		k := n.Key()
		if _, ok := f.graph.Lookup(k); !ok {
			continue
		}
		if err := f.graph.narrowable(k); err != nil {
			return err
		}
		if err := other.graph.narrowable(k); err != nil {
			return err
		}
		if !requires(other.match.Expression(), k) {
			return fmt.Errorf("%w: merged match does not require %s", expr.ErrNotSupported, k)
		}
	}

	for i, n := range other.graph.Nodes() {
		if existing, ok := f.graph.Lookup(n.Key()); ok {
			existing.absorb(n.CriteriaExpression())
			continue
		}
		if i == 0 {
			parent := f.key
			n.rehome(f.graph, &parent)
		} else {
			p, _ := n.Parent()
			n.rehome(f.graph, &p)
		}
		if err := f.graph.Add(n); err != nil {
			return err
		}
	}

	f.match.SetExpression(andOnce(f.match.Expression(), other.match.Expression()))
	other.graph = f.graph
	return nil
}

// andOnce ANDs the conjuncts of add into cur, skipping those cur already
// has. Only plain (not reversed) conjunctions are split.
func andOnce(cur, add expr.Lambda) expr.Lambda {
	have := conjuncts(cur)
	for _, c := range conjuncts(add) {
		seen := false
		for _, h := range have {
			if expr.Equal(h, c) {
				seen = true
				break
			}
		}
		if !seen {
			cur = expr.And(cur, c)
			have = append(have, c)
		}
	}
	return cur
}

func conjuncts(l expr.Lambda) []expr.Lambda {
	var out []expr.Lambda
	var walk func(n expr.Node)
	walk = func(n expr.Node) {
		if x, ok := n.(expr.Logical); ok && x.Op == expr.OpAnd && !x.RightFirst {
			walk(x.Left)
			walk(x.Right)
			return
		}
		out = append(out, expr.Lambda{Param: l.Param, Body: n})
	}
	walk(l.Body)
	return out
}

// requires reports whether lookup[k] of the parameter is a conjunct of
// l's body. Reversed conjunctions count: they change evaluation order, not
// meaning.
func requires(l expr.Lambda, k Key) bool {
	ref := k.Ref()
	var walk func(n expr.Node) bool
	walk = func(n expr.Node) bool {
		switch x := n.(type) {
		case expr.Logical:
			return x.Op == expr.OpAnd && (walk(x.Left) || walk(x.Right))
		case expr.Lookup:
			p, ok := x.Of.(expr.Param)
			return x.Ref == ref && ok && p.Name == l.Param
		}
		return false
	}
	return walk(l.Body)
}

// consults reports whether n looks up ref anywhere.
func consults(n expr.Node, ref string) bool {
	switch x := n.(type) {
	case expr.Member:
		return consults(x.Of, ref)
	case expr.Logical:
		return consults(x.Left, ref) || consults(x.Right, ref)
	case expr.Negate:
		return consults(x.Operand, ref)
	case expr.Comparison:
		return consults(x.Left, ref) || consults(x.Right, ref)
	case expr.Call:
		for _, arg := range x.Args {
			if consults(arg, ref) {
				return true
			}
		}
	case expr.Lookup:
		return x.Ref == ref || consults(x.Of, ref)
	}
	return false
}

// Select returns the sources f matches, in order. The first evaluation
// error stops the scan.
func Select[S expr.Record, R expr.Record](ctx context.Context, f *Filter[S, R], sources []S) ([]S, error) {
	var out []S
	for i, s := range sources {
		ok, err := f.IsMatch(ctx, s)
		if err != nil {
			return out, fmt.Errorf("source %d: %w", i, err)
		}
		if ok {
			out = append(out, s)
		}
	}
	return out, nil
}
