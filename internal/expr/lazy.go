package expr

import (
	"context"
	"fmt"

	"github.com/roach88/relq/internal/ir"
)

// Lazy is an expression tree paired with its compiled closure. The closure
// is built on first use and kept until the tree is replaced.
//
// Invariant: compiled is nil or is exactly Compile(expr, opts...).
//
// Lazy is not safe for concurrent use.
type Lazy struct {
	expr         Lambda
	opts         []CompileOption
	compiled     Func
	compilations int
}

// NewLazy wraps l. Compile options are applied on every compilation.
func NewLazy(l Lambda, opts ...CompileOption) *Lazy {
	mustHaveBody("lazy expression", l)
	return &Lazy{expr: l, opts: opts}
}

// Expression returns the tree.
func (z *Lazy) Expression() Lambda {
	return z.expr
}

// SetExpression replaces the tree unless l is structurally equal to it.
// Reports whether the tree changed; a change drops the compiled closure.
func (z *Lazy) SetExpression(l Lambda) bool {
	mustHaveBody("set expression", l)
	if Equal(z.expr, l) {
		return false
	}
	z.expr = l
	z.compiled = nil
	return true
}

// Reset drops the compiled closure so the next use recompiles. Needed when
// something a Lookup is linked to changes identity.
func (z *Lazy) Reset() {
	z.compiled = nil
}

// Function returns the compiled closure, compiling on first call.
func (z *Lazy) Function() (Func, error) {
	if z.compiled != nil {
		return z.compiled, nil
	}
	fn, err := Compile(z.expr, z.opts...)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", Render(z.expr), err)
	}
	z.compiled = fn
	z.compilations++
	return fn, nil
}

// Invoke compiles if needed and evaluates the expression against r.
func (z *Lazy) Invoke(ctx context.Context, r Record) (ir.IRValue, error) {
	fn, err := z.Function()
	if err != nil {
		return nil, err
	}
	return fn(ctx, r)
}

// IsCompiled reports whether a compiled closure is cached.
func (z *Lazy) IsCompiled() bool {
	return z.compiled != nil
}

// Compilations counts how many times the tree has been compiled.
func (z *Lazy) Compilations() int {
	return z.compilations
}

// IsDefault reports whether the tree is a neutral element.
func (z *Lazy) IsDefault() bool {
	return IsDefault(z.expr)
}

// String renders the tree.
func (z *Lazy) String() string {
	return Render(z.expr)
}

// Predicate is a Lazy whose result is a bool.
type Predicate struct {
	Lazy
}

// NewPredicate wraps l as a predicate.
func NewPredicate(l Lambda, opts ...CompileOption) *Predicate {
	mustHaveBody("predicate", l)
	return &Predicate{Lazy: Lazy{expr: l, opts: opts}}
}

// Eval evaluates the predicate against r. A null result is false; any
// other non-bool result is an ErrType error.
func (p *Predicate) Eval(ctx context.Context, r Record) (bool, error) {
	v, err := p.Invoke(ctx, r)
	if err != nil {
		return false, err
	}
	switch b := v.(type) {
	case ir.IRBool:
		return bool(b), nil
	case ir.IRNull:
		return false, nil
	default:
		return false, fmt.Errorf("%w: predicate %s returned %s", ErrType, p, ir.KindOf(v))
	}
}

// And returns a new predicate p && other. p is not modified.
func (p *Predicate) And(other Lambda) *Predicate {
	return p.derive(And(p.expr, other))
}

// Or returns a new predicate p || other.
func (p *Predicate) Or(other Lambda) *Predicate {
	return p.derive(Or(p.expr, other))
}

// ReverseAnd returns a new predicate p && other with other evaluated first.
func (p *Predicate) ReverseAnd(other Lambda) *Predicate {
	return p.derive(ReverseAnd(p.expr, other))
}

// ReverseOr returns a new predicate p || other with other evaluated first.
func (p *Predicate) ReverseOr(other Lambda) *Predicate {
	return p.derive(ReverseOr(p.expr, other))
}

// Not returns a new predicate !p.
func (p *Predicate) Not() *Predicate {
	return p.derive(Not(p.expr))
}

func (p *Predicate) derive(l Lambda) *Predicate {
	return &Predicate{Lazy: Lazy{expr: l, opts: p.opts}}
}
