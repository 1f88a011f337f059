package expr

import "fmt"

// Issue is a problem found by Validate. Path locates the node, e.g.
// "body.left.args[1]".
type Issue struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (i Issue) Error() string {
	return fmt.Sprintf("%s: %s", i.Path, i.Message)
}

// Validate walks l and reports every problem that would make Compile fail
// for reasons other than linking: unbound parameters, unknown functions,
// wrong arities, unsupported operators and nil nodes.
// Returns all issues found (does not fail-fast).
func Validate(l Lambda) []Issue {
	if l.Body == nil {
		return []Issue{{Path: "body", Message: "expression is empty"}}
	}
	v := &validator{param: l.Param}
	v.walk("body", l.Body)
	return v.issues
}

type validator struct {
	param  string
	issues []Issue
}

func (v *validator) add(path, format string, args ...any) {
	v.issues = append(v.issues, Issue{Path: path, Message: fmt.Sprintf(format, args...)})
}

func (v *validator) walk(path string, n Node) {
	switch x := n.(type) {
	case Const, Default:
	case Param:
		if x.Name != v.param {
			v.add(path, "unbound parameter %q", x.Name)
		}
	case Member:
		v.walk(path+".of", x.Of)
	case Logical:
		if x.Op != OpAnd && x.Op != OpOr {
			v.add(path, "unsupported logical operation %d", int(x.Op))
		}
		v.walk(path+".left", x.Left)
		v.walk(path+".right", x.Right)
	case Negate:
		v.walk(path+".operand", x.Operand)
	case Comparison:
		switch x.Op {
		case OpEq, OpNe, OpLt, OpLe, OpGt, OpGe:
		default:
			v.add(path, "unsupported comparison %q", string(x.Op))
		}
		v.walk(path+".left", x.Left)
		v.walk(path+".right", x.Right)
	case Call:
		if _, err := lookupBuiltin(x.Func, len(x.Args)); err != nil {
			v.add(path, "%v", err)
		}
		for i, arg := range x.Args {
			v.walk(fmt.Sprintf("%s.args[%d]", path, i), arg)
		}
	case Lookup:
		if x.Ref == "" {
			v.add(path, "lookup without reference")
		}
		v.walk(path+".of", x.Of)
	case nil:
		v.add(path, "missing node")
	default:
		v.add(path, "unsupported node %T", n)
	}
}
