package expr

import (
	"fmt"

	"github.com/roach88/relq/internal/ir"
)

// Equal reports whether a and b are structurally identical modulo the
// parameter name. This is the comparer the filter graph uses to recognize
// "the same relation" written twice.
func Equal(a, b Lambda) bool {
	if a.Body == nil || b.Body == nil {
		return a.Body == nil && b.Body == nil
	}
	return equalNode(a.Body, b.Body, a.Param, b.Param)
}

func equalNode(a, b Node, pa, pb string) bool {
	switch x := a.(type) {
	case Const:
		y, ok := b.(Const)
		return ok && ir.Equal(x.Value, y.Value)
	case Default:
		y, ok := b.(Default)
		return ok && x.Value == y.Value
	case Param:
		y, ok := b.(Param)
		if !ok {
			return false
		}
		// Bound parameters match each other; free ones match by name.
		if x.Name == pa || y.Name == pb {
			return x.Name == pa && y.Name == pb
		}
		return x.Name == y.Name
	case Member:
		y, ok := b.(Member)
		return ok && x.Name == y.Name && equalNode(x.Of, y.Of, pa, pb)
	case Logical:
		y, ok := b.(Logical)
		return ok && x.Op == y.Op && x.RightFirst == y.RightFirst &&
			equalNode(x.Left, y.Left, pa, pb) && equalNode(x.Right, y.Right, pa, pb)
	case Negate:
		y, ok := b.(Negate)
		return ok && equalNode(x.Operand, y.Operand, pa, pb)
	case Comparison:
		y, ok := b.(Comparison)
		return ok && x.Op == y.Op &&
			equalNode(x.Left, y.Left, pa, pb) && equalNode(x.Right, y.Right, pa, pb)
	case Call:
		y, ok := b.(Call)
		if !ok || x.Func != y.Func || len(x.Args) != len(y.Args) {
			return false
		}
		for i := range x.Args {
			if !equalNode(x.Args[i], y.Args[i], pa, pb) {
				return false
			}
		}
		return true
	case Lookup:
		y, ok := b.(Lookup)
		return ok && x.Ref == y.Ref && equalNode(x.Of, y.Of, pa, pb)
	case nil:
		return b == nil
	default:
		return false
	}
}

// Hash returns the structural hash of l. Lambdas that are Equal hash
// identically. Fails only if a literal holds an unhashable value.
func Hash(l Lambda) (string, error) {
	enc, err := Canonical(l)
	if err != nil {
		return "", err
	}
	return ir.Hash(ir.DomainExpression, enc)
}

// MustHash is like Hash but panics on error.
func MustHash(l Lambda) string {
	h, err := Hash(l)
	if err != nil {
		panic(err)
	}
	return h
}

// Canonical encodes l as a tree of maps and slices suitable for
// ir.MarshalCanonical, with the bound parameter replaced by a marker.
func Canonical(l Lambda) (any, error) {
	if l.Body == nil {
		return nil, fmt.Errorf("%w: canonical form of empty lambda", ErrPrecondition)
	}
	return encodeNode(l.Body, l.Param)
}

func encodeNode(n Node, param string) (any, error) {
	switch x := n.(type) {
	case Const:
		return map[string]any{"const": x.Value}, nil
	case Default:
		return map[string]any{"default": x.Value}, nil
	case Param:
		if x.Name == param {
			return map[string]any{"param": 0}, nil
		}
		return map[string]any{"free": x.Name}, nil
	case Member:
		of, err := encodeNode(x.Of, param)
		if err != nil {
			return nil, err
		}
		return map[string]any{"member": x.Name, "of": of}, nil
	case Logical:
		left, err := encodeNode(x.Left, param)
		if err != nil {
			return nil, err
		}
		right, err := encodeNode(x.Right, param)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"logical":     int(x.Op),
			"left":        left,
			"right":       right,
			"right_first": x.RightFirst,
		}, nil
	case Negate:
		operand, err := encodeNode(x.Operand, param)
		if err != nil {
			return nil, err
		}
		return map[string]any{"not": operand}, nil
	case Comparison:
		left, err := encodeNode(x.Left, param)
		if err != nil {
			return nil, err
		}
		right, err := encodeNode(x.Right, param)
		if err != nil {
			return nil, err
		}
		return map[string]any{"compare": string(x.Op), "left": left, "right": right}, nil
	case Call:
		args := make([]any, len(x.Args))
		for i, arg := range x.Args {
			enc, err := encodeNode(arg, param)
			if err != nil {
				return nil, fmt.Errorf("call %s arg %d: %w", x.Func, i, err)
			}
			args[i] = enc
		}
		return map[string]any{"call": x.Func, "args": args}, nil
	case Lookup:
		of, err := encodeNode(x.Of, param)
		if err != nil {
			return nil, err
		}
		return map[string]any{"lookup": x.Ref, "of": of}, nil
	default:
		return nil, fmt.Errorf("%w: node %T", ErrNotSupported, n)
	}
}
