package expr

import (
	"context"
	"fmt"

	"github.com/roach88/relq/internal/ir"
)

// Func is a compiled lambda.
type Func func(ctx context.Context, r Record) (ir.IRValue, error)

// LookupFunc is the compiled form of a Lookup node: the cached boolean for
// the referenced record reached from r.
type LookupFunc func(ctx context.Context, r Record) (bool, error)

// Linker binds Lookup references to the caches that answer them.
type Linker interface {
	Link(ref string) (LookupFunc, error)
}

// LinkerFunc adapts a function to Linker.
type LinkerFunc func(ref string) (LookupFunc, error)

// Link implements Linker.
func (f LinkerFunc) Link(ref string) (LookupFunc, error) { return f(ref) }

type compileConfig struct {
	linker Linker
}

// CompileOption configures Compile.
type CompileOption func(*compileConfig)

// WithLinker sets the linker used to bind Lookup nodes.
func WithLinker(l Linker) CompileOption {
	return func(c *compileConfig) {
		c.linker = l
	}
}

// evalFunc is the internal closure shape. Values are either an ir.IRValue
// or a Record (the bound parameter, or a record a lookup produced).
type evalFunc func(ctx context.Context, arg Record) (any, error)

// Compile turns l into a closure. The tree is walked once; evaluation then
// runs without re-inspecting nodes.
//
// Evaluation rules:
//   - a missing field and member access on null yield null
//   - && and || short-circuit; RightFirst evaluates the right operand first
//   - null counts as false in boolean positions
//   - ordering comparisons need two ints, two strings or two bools
func Compile(l Lambda, opts ...CompileOption) (Func, error) {
	if l.Body == nil {
		return nil, fmt.Errorf("%w: compile empty lambda", ErrPrecondition)
	}
	cfg := &compileConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	c := &compiler{param: l.Param, cfg: cfg}
	body, err := c.compile(l.Body)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, r Record) (ir.IRValue, error) {
		v, err := body(ctx, r)
		if err != nil {
			return nil, err
		}
		return toValue(v)
	}, nil
}

type compiler struct {
	param string
	cfg   *compileConfig
}

func (c *compiler) compile(n Node) (evalFunc, error) {
	switch x := n.(type) {
	case Const:
		v := x.Value
		if v == nil {
			v = ir.IRNull{}
		}
		return func(context.Context, Record) (any, error) { return v, nil }, nil
	case Default:
		v := ir.IRBool(x.Value)
		return func(context.Context, Record) (any, error) { return v, nil }, nil
	case Param:
		if x.Name != c.param {
			return nil, fmt.Errorf("%w: unbound parameter %q", ErrInvalidArgument, x.Name)
		}
		return func(_ context.Context, arg Record) (any, error) { return arg, nil }, nil
	case Member:
		return c.compileMember(x)
	case Logical:
		return c.compileLogical(x)
	case Negate:
		operand, err := c.compile(x.Operand)
		if err != nil {
			return nil, err
		}
		return func(ctx context.Context, arg Record) (any, error) {
			b, err := evalBool(ctx, operand, arg, "!")
			if err != nil {
				return nil, err
			}
			return ir.IRBool(!b), nil
		}, nil
	case Comparison:
		return c.compileComparison(x)
	case Call:
		return c.compileCall(x)
	case Lookup:
		return c.compileLookup(x)
	case nil:
		return nil, fmt.Errorf("%w: nil node", ErrPrecondition)
	default:
		return nil, fmt.Errorf("%w: node %T", ErrNotSupported, n)
	}
}

func (c *compiler) compileMember(x Member) (evalFunc, error) {
	of, err := c.compile(x.Of)
	if err != nil {
		return nil, err
	}
	name := x.Name
	return func(ctx context.Context, arg Record) (any, error) {
		v, err := of(ctx, arg)
		if err != nil {
			return nil, err
		}
		switch target := v.(type) {
		case ir.IRObject:
			if field, ok := target[name]; ok && field != nil {
				return field, nil
			}
			return ir.IRNull{}, nil
		case ir.IRNull, nil:
			return ir.IRNull{}, nil
		case ir.IRValue:
			return nil, fmt.Errorf("%w: member %q of %s", ErrType, name, ir.KindOf(target))
		case Record:
			if field, ok := target.Field(name); ok && field != nil {
				return field, nil
			}
			return ir.IRNull{}, nil
		default:
			return nil, fmt.Errorf("%w: member %q of %T", ErrType, name, v)
		}
	}, nil
}

func (c *compiler) compileLogical(x Logical) (evalFunc, error) {
	first, second := x.Left, x.Right
	if x.RightFirst {
		first, second = second, first
	}
	a, err := c.compile(first)
	if err != nil {
		return nil, err
	}
	b, err := c.compile(second)
	if err != nil {
		return nil, err
	}
	op := x.Op.String()
	switch x.Op {
	case OpAnd:
		return func(ctx context.Context, arg Record) (any, error) {
			ok, err := evalBool(ctx, a, arg, op)
			if err != nil || !ok {
				return ir.IRBool(false), err
			}
			ok, err = evalBool(ctx, b, arg, op)
			return ir.IRBool(ok), err
		}, nil
	case OpOr:
		return func(ctx context.Context, arg Record) (any, error) {
			ok, err := evalBool(ctx, a, arg, op)
			if err != nil || ok {
				return ir.IRBool(ok), err
			}
			ok, err = evalBool(ctx, b, arg, op)
			return ir.IRBool(ok), err
		}, nil
	default:
		return nil, fmt.Errorf("%w: logical operation %d", ErrNotSupported, int(x.Op))
	}
}

func (c *compiler) compileComparison(x Comparison) (evalFunc, error) {
	left, err := c.compile(x.Left)
	if err != nil {
		return nil, err
	}
	right, err := c.compile(x.Right)
	if err != nil {
		return nil, err
	}
	var test func(a, b ir.IRValue) (bool, error)
	switch x.Op {
	case OpEq:
		test = func(a, b ir.IRValue) (bool, error) { return ir.Equal(a, b), nil }
	case OpNe:
		test = func(a, b ir.IRValue) (bool, error) { return !ir.Equal(a, b), nil }
	case OpLt, OpLe, OpGt, OpGe:
		op := x.Op
		test = func(a, b ir.IRValue) (bool, error) {
			cmp, ok := ir.Compare(a, b)
			if !ok {
				return false, fmt.Errorf("%w: %s %s %s", ErrType, ir.KindOf(a), op, ir.KindOf(b))
			}
			switch op {
			case OpLt:
				return cmp < 0, nil
			case OpLe:
				return cmp <= 0, nil
			case OpGt:
				return cmp > 0, nil
			default:
				return cmp >= 0, nil
			}
		}
	default:
		return nil, fmt.Errorf("%w: comparison %q", ErrNotSupported, string(x.Op))
	}
	return func(ctx context.Context, arg Record) (any, error) {
		a, err := evalValue(ctx, left, arg)
		if err != nil {
			return nil, err
		}
		b, err := evalValue(ctx, right, arg)
		if err != nil {
			return nil, err
		}
		ok, err := test(a, b)
		if err != nil {
			return nil, err
		}
		return ir.IRBool(ok), nil
	}, nil
}

func (c *compiler) compileCall(x Call) (evalFunc, error) {
	fn, err := lookupBuiltin(x.Func, len(x.Args))
	if err != nil {
		return nil, err
	}
	args := make([]evalFunc, len(x.Args))
	for i, arg := range x.Args {
		if args[i], err = c.compile(arg); err != nil {
			return nil, fmt.Errorf("%s arg %d: %w", x.Func, i, err)
		}
	}
	name := x.Func
	return func(ctx context.Context, arg Record) (any, error) {
		vals := make([]ir.IRValue, len(args))
		for i, a := range args {
			v, err := evalValue(ctx, a, arg)
			if err != nil {
				return nil, err
			}
			vals[i] = v
		}
		out, err := fn.fn(vals)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		return out, nil
	}, nil
}

func (c *compiler) compileLookup(x Lookup) (evalFunc, error) {
	if c.cfg.linker == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnlinked, x.Ref)
	}
	lookup, err := c.cfg.linker.Link(x.Ref)
	if err != nil {
		return nil, fmt.Errorf("link %s: %w", x.Ref, err)
	}
	if lookup == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnlinked, x.Ref)
	}
	of, err := c.compile(x.Of)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, arg Record) (any, error) {
		v, err := of(ctx, arg)
		if err != nil {
			return nil, err
		}
		var r Record
		switch target := v.(type) {
		case ir.IRObject:
			r = Object(target)
		case ir.IRValue:
			return nil, fmt.Errorf("%w: lookup of %s", ErrType, ir.KindOf(target))
		case Record:
			r = target
		default:
			return nil, fmt.Errorf("%w: lookup of %T", ErrType, v)
		}
		ok, err := lookup(ctx, r)
		if err != nil {
			return nil, err
		}
		return ir.IRBool(ok), nil
	}, nil
}

func evalBool(ctx context.Context, f evalFunc, arg Record, op string) (bool, error) {
	v, err := f(ctx, arg)
	if err != nil {
		return false, err
	}
	switch b := v.(type) {
	case ir.IRBool:
		return bool(b), nil
	case ir.IRNull, nil:
		return false, nil
	case ir.IRValue:
		return false, fmt.Errorf("%w: %s expects bool, got %s", ErrType, op, ir.KindOf(b))
	default:
		return false, fmt.Errorf("%w: %s expects bool, got %T", ErrType, op, v)
	}
}

func evalValue(ctx context.Context, f evalFunc, arg Record) (ir.IRValue, error) {
	v, err := f(ctx, arg)
	if err != nil {
		return nil, err
	}
	return toValue(v)
}

// toValue converts an evaluation result to an IR value. Records only
// convert when they are plain objects.
func toValue(v any) (ir.IRValue, error) {
	switch x := v.(type) {
	case nil:
		return ir.IRNull{}, nil
	case ir.IRValue:
		return x, nil
	case Object:
		return ir.IRObject(x), nil
	default:
		return nil, fmt.Errorf("%w: record %T is not a value", ErrType, v)
	}
}
