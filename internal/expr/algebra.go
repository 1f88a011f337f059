package expr

import "fmt"

// And returns left && right.
//
// Neutral elements: a Default operand on either side is dropped and the
// other operand returned unchanged, so And(x, True), And(x, False) and the
// mirrored forms all yield x. Panics with ErrPrecondition on an empty
// operand.
func And(left, right Lambda) Lambda {
	return mustCombine(OpAnd, false, left, right)
}

// Or returns left || right. False is the identity and True absorbs:
// Or(x, False) == x and Or(x, True) == True.
func Or(left, right Lambda) Lambda {
	return mustCombine(OpOr, false, left, right)
}

// ReverseAnd is And with the right operand evaluated first. Use it when
// right is cheaper or guards left against invalid input.
func ReverseAnd(left, right Lambda) Lambda {
	return mustCombine(OpAnd, true, left, right)
}

// ReverseOr is Or with the right operand evaluated first.
func ReverseOr(left, right Lambda) Lambda {
	return mustCombine(OpOr, true, left, right)
}

// Not returns the complement of l. Defaults flip and a double negation
// collapses to its operand.
func Not(l Lambda) Lambda {
	mustHaveBody("not", l)
	switch body := l.Body.(type) {
	case Default:
		return Lambda{Param: l.Param, Body: Default{Value: !body.Value}}
	case Negate:
		return Lambda{Param: l.Param, Body: body.Operand}
	default:
		return Lambda{Param: l.Param, Body: Negate{Operand: l.Body}}
	}
}

// AndAll left-folds And over ls. At least one operand is required.
func AndAll(ls ...Lambda) (Lambda, error) {
	return fold(OpAnd, ls)
}

// OrAny left-folds Or over ls. At least one operand is required.
func OrAny(ls ...Lambda) (Lambda, error) {
	return fold(OpOr, ls)
}

// Combine joins left and right with op. It is the error-returning form of
// And, Or and their reversed variants, used when the operation tag comes
// from data.
func Combine(op LogicalOp, reverse bool, left, right Lambda) (Lambda, error) {
	return combine(op, reverse, left, right)
}

// IsDefault reports whether l is one of the neutral elements.
func IsDefault(l Lambda) bool {
	_, ok := l.Body.(Default)
	return ok
}

// IsTrue reports whether l is the True neutral element.
func IsTrue(l Lambda) bool {
	d, ok := l.Body.(Default)
	return ok && d.Value
}

// IsFalse reports whether l is the False neutral element.
func IsFalse(l Lambda) bool {
	d, ok := l.Body.(Default)
	return ok && !d.Value
}

func fold(op LogicalOp, ls []Lambda) (Lambda, error) {
	if len(ls) == 0 {
		return Lambda{}, fmt.Errorf("%w: %s needs at least one operand", ErrInvalidArgument, op)
	}
	acc := ls[0]
	if acc.Body == nil {
		return Lambda{}, fmt.Errorf("%w: operand 0 is empty", ErrPrecondition)
	}
	for i, l := range ls[1:] {
		next, err := combine(op, false, acc, l)
		if err != nil {
			return Lambda{}, fmt.Errorf("operand %d: %w", i+1, err)
		}
		acc = next
	}
	return acc, nil
}

func mustCombine(op LogicalOp, reverse bool, left, right Lambda) Lambda {
	l, err := combine(op, reverse, left, right)
	if err != nil {
		panic(err)
	}
	return l
}

func combine(op LogicalOp, reverse bool, left, right Lambda) (Lambda, error) {
	if op != OpAnd && op != OpOr {
		return Lambda{}, fmt.Errorf("%w: logical operation %d", ErrNotSupported, int(op))
	}
	if left.Body == nil || right.Body == nil {
		return Lambda{}, fmt.Errorf("%w: %s with empty operand", ErrPrecondition, op)
	}

	if op == OpOr && (IsTrue(left) || IsTrue(right)) {
		return True, nil
	}
	// False is the identity of both operators; True is the identity of And.
	if IsFalse(left) || (op == OpAnd && IsTrue(left)) {
		return right, nil
	}
	if IsFalse(right) || (op == OpAnd && IsTrue(right)) {
		return left, nil
	}

	param := left.Param
	return Lambda{
		Param: param,
		Body: Logical{
			Op:         op,
			Left:       left.Body,
			Right:      renameParam(right.Body, right.Param, param),
			RightFirst: reverse,
		},
	}, nil
}

func mustHaveBody(op string, l Lambda) {
	if l.Body == nil {
		panic(fmt.Errorf("%w: %s of empty lambda", ErrPrecondition, op))
	}
}

// renameParam rewrites references to parameter from as to. Subtrees that do
// not mention from are returned as is.
func renameParam(n Node, from, to string) Node {
	if from == to {
		return n
	}
	switch x := n.(type) {
	case Param:
		if x.Name == from {
			return Param{Name: to}
		}
		return x
	case Member:
		return Member{Of: renameParam(x.Of, from, to), Name: x.Name}
	case Logical:
		return Logical{
			Op:         x.Op,
			Left:       renameParam(x.Left, from, to),
			Right:      renameParam(x.Right, from, to),
			RightFirst: x.RightFirst,
		}
	case Negate:
		return Negate{Operand: renameParam(x.Operand, from, to)}
	case Comparison:
		return Comparison{Op: x.Op, Left: renameParam(x.Left, from, to), Right: renameParam(x.Right, from, to)}
	case Call:
		args := make([]Node, len(x.Args))
		for i, arg := range x.Args {
			args[i] = renameParam(arg, from, to)
		}
		return Call{Func: x.Func, Args: args}
	case Lookup:
		return Lookup{Ref: x.Ref, Label: x.Label, Of: renameParam(x.Of, from, to)}
	default:
		return n
	}
}
