package expr

import "github.com/roach88/relq/internal/ir"

// Record is the read-only view of a record that expressions evaluate
// against. Missing fields report false; the evaluator treats them as null.
type Record interface {
	Field(name string) (ir.IRValue, bool)
}

// Object adapts an ir.IRObject to Record.
type Object ir.IRObject

// Field implements Record.
func (o Object) Field(name string) (ir.IRValue, bool) {
	v, ok := o[name]
	return v, ok
}

// Node is a sealed expression tree node.
//
// Node types:
//   - Const: literal IR value
//   - Default: the neutral True/False elements
//   - Param: reference to the lambda parameter
//   - Member: field access on a record or object
//   - Logical: AND/OR of two operands
//   - Negate: logical complement
//   - Comparison: ==, !=, <, <=, >, >=
//   - Call: builtin function application
//   - Lookup: consult a filter graph node's cache
type Node interface {
	exprNode() // Marker method - seals interface to this package
}

// Const is a literal value.
type Const struct {
	Value ir.IRValue
}

func (Const) exprNode() {}

// Default is one of the two neutral elements. It is distinct from a
// Const holding a bool: combinators special-case Default, never Const.
type Default struct {
	Value bool
}

func (Default) exprNode() {}

// Param references the enclosing lambda's parameter.
type Param struct {
	Name string
}

func (Param) exprNode() {}

// Member reads field Name from the record or object Of evaluates to.
// Member access on null yields null.
type Member struct {
	Of   Node
	Name string
}

func (Member) exprNode() {}

// LogicalOp tags a Logical node.
type LogicalOp int

const (
	OpAnd LogicalOp = iota + 1
	OpOr
)

// String returns the operator's symbol.
func (op LogicalOp) String() string {
	switch op {
	case OpAnd:
		return "&&"
	case OpOr:
		return "||"
	default:
		return "?"
	}
}

// Logical combines two boolean operands with short-circuit evaluation.
// RightFirst evaluates Right before Left; it is set by ReverseAnd and
// ReverseOr for a cheaper or guarding right-hand side.
type Logical struct {
	Op         LogicalOp
	Left       Node
	Right      Node
	RightFirst bool
}

func (Logical) exprNode() {}

// Negate is the logical complement of Operand.
type Negate struct {
	Operand Node
}

func (Negate) exprNode() {}

// CompareOp tags a Comparison node.
type CompareOp string

const (
	OpEq CompareOp = "=="
	OpNe CompareOp = "!="
	OpLt CompareOp = "<"
	OpLe CompareOp = "<="
	OpGt CompareOp = ">"
	OpGe CompareOp = ">="
)

// Comparison compares two operands. Equality works on any kinds; ordering
// requires two ints, two strings or two bools.
type Comparison struct {
	Op    CompareOp
	Left  Node
	Right Node
}

func (Comparison) exprNode() {}

// Call applies the named builtin to Args.
type Call struct {
	Func string
	Args []Node
}

func (Call) exprNode() {}

// Lookup consults the cached boolean of a filter graph node for the record
// Of evaluates to. Ref is the node's key; Label is only used for rendering.
// Lookups are bound to a cache at compile time by a Linker.
type Lookup struct {
	Ref   string
	Label string
	Of    Node
}

func (Lookup) exprNode() {}

// Lambda is a one-parameter expression: Param => Body.
type Lambda struct {
	Param string
	Body  Node
}

// IsZero reports whether l has no body.
func (l Lambda) IsZero() bool {
	return l.Body == nil
}

// String renders the lambda, e.g. `e => e.layer_id`.
func (l Lambda) String() string {
	return Render(l)
}

// The two neutral lambdas.
var (
	True  = Lambda{Param: "_", Body: Default{Value: true}}
	False = Lambda{Param: "_", Body: Default{Value: false}}
)

// Fn builds a lambda.
func Fn(param string, body Node) Lambda {
	return Lambda{Param: param, Body: body}
}

// Field builds param.name.
func Field(param, name string) Member {
	return Member{Of: Param{Name: param}, Name: name}
}

// Lit builds a literal from a Go or IR value. Unsupported values panic;
// Lit is meant for literals written in code.
func Lit(v any) Const {
	val, err := ir.FromAny(v)
	if err != nil {
		panic(err)
	}
	return Const{Value: val}
}

// Eq builds left == right.
func Eq(left, right Node) Comparison { return Comparison{Op: OpEq, Left: left, Right: right} }

// Ne builds left != right.
func Ne(left, right Node) Comparison { return Comparison{Op: OpNe, Left: left, Right: right} }

// Lt builds left < right.
func Lt(left, right Node) Comparison { return Comparison{Op: OpLt, Left: left, Right: right} }

// Le builds left <= right.
func Le(left, right Node) Comparison { return Comparison{Op: OpLe, Left: left, Right: right} }

// Gt builds left > right.
func Gt(left, right Node) Comparison { return Comparison{Op: OpGt, Left: left, Right: right} }

// Ge builds left >= right.
func Ge(left, right Node) Comparison { return Comparison{Op: OpGe, Left: left, Right: right} }

// Apply builds a call of the builtin fn.
func Apply(fn string, args ...Node) Call { return Call{Func: fn, Args: args} }
