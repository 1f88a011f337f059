package expr

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/roach88/relq/internal/ir"
)

// builtin is a pure function over IR values. arity < 0 means variadic with
// at least -arity-1 arguments.
type builtin struct {
	arity int
	fn    func(args []ir.IRValue) (ir.IRValue, error)
}

var builtins = map[string]builtin{
	"starts_with": {arity: 2, fn: stringPredicate(strings.HasPrefix)},
	"ends_with":   {arity: 2, fn: stringPredicate(strings.HasSuffix)},
	"contains":    {arity: 2, fn: contains},
	"lower":       {arity: 1, fn: stringMap(func() cases.Caser { return cases.Lower(language.Und) })},
	"upper":       {arity: 1, fn: stringMap(func() cases.Caser { return cases.Upper(language.Und) })},
	"len":         {arity: 1, fn: length},
	"is_null": {arity: 1, fn: func(args []ir.IRValue) (ir.IRValue, error) {
		return ir.IRBool(ir.IsNull(args[0])), nil
	}},
	"in": {arity: -2, fn: in},
}

// Builtins lists the names of the functions a Call may reference.
func Builtins() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	return names
}

func lookupBuiltin(name string, argc int) (builtin, error) {
	b, ok := builtins[name]
	if !ok {
		return builtin{}, fmt.Errorf("%w: function %q", ErrNotSupported, name)
	}
	if b.arity >= 0 && argc != b.arity {
		return builtin{}, fmt.Errorf("%w: %s takes %d argument(s), got %d", ErrInvalidArgument, name, b.arity, argc)
	}
	if b.arity < 0 && argc < -b.arity-1 {
		return builtin{}, fmt.Errorf("%w: %s takes at least %d argument(s), got %d", ErrInvalidArgument, name, -b.arity-1, argc)
	}
	return b, nil
}

func asString(fn string, v ir.IRValue) (string, error) {
	s, ok := v.(ir.IRString)
	if !ok {
		return "", fmt.Errorf("%w: %s expects string, got %s", ErrType, fn, ir.KindOf(v))
	}
	return string(s), nil
}

func stringPredicate(pred func(s, affix string) bool) func([]ir.IRValue) (ir.IRValue, error) {
	return func(args []ir.IRValue) (ir.IRValue, error) {
		if ir.IsNull(args[0]) {
			return ir.IRBool(false), nil
		}
		s, err := asString("string predicate", args[0])
		if err != nil {
			return nil, err
		}
		affix, err := asString("string predicate", args[1])
		if err != nil {
			return nil, err
		}
		return ir.IRBool(pred(s, affix)), nil
	}
}

// stringMap applies a case mapping. Casers carry state, so each call gets
// a fresh one.
func stringMap(caser func() cases.Caser) func([]ir.IRValue) (ir.IRValue, error) {
	return func(args []ir.IRValue) (ir.IRValue, error) {
		if ir.IsNull(args[0]) {
			return ir.IRNull{}, nil
		}
		s, err := asString("case mapping", args[0])
		if err != nil {
			return nil, err
		}
		return ir.IRString(caser().String(s)), nil
	}
}

// contains is substring containment for strings and membership for arrays.
func contains(args []ir.IRValue) (ir.IRValue, error) {
	switch haystack := args[0].(type) {
	case ir.IRString:
		needle, err := asString("contains", args[1])
		if err != nil {
			return nil, err
		}
		return ir.IRBool(strings.Contains(string(haystack), needle)), nil
	case ir.IRArray:
		for _, elem := range haystack {
			if ir.Equal(elem, args[1]) {
				return ir.IRBool(true), nil
			}
		}
		return ir.IRBool(false), nil
	case ir.IRNull, nil:
		return ir.IRBool(false), nil
	default:
		return nil, fmt.Errorf("%w: contains expects string or array, got %s", ErrType, ir.KindOf(args[0]))
	}
}

func length(args []ir.IRValue) (ir.IRValue, error) {
	switch v := args[0].(type) {
	case ir.IRString:
		return ir.IRInt(len([]rune(string(v)))), nil
	case ir.IRArray:
		return ir.IRInt(len(v)), nil
	case ir.IRObject:
		return ir.IRInt(len(v)), nil
	case ir.IRNull, nil:
		return ir.IRInt(0), nil
	default:
		return nil, fmt.Errorf("%w: len expects string, array or object, got %s", ErrType, ir.KindOf(v))
	}
}

// in reports whether the first argument equals any of the others.
func in(args []ir.IRValue) (ir.IRValue, error) {
	for _, candidate := range args[1:] {
		if ir.Equal(args[0], candidate) {
			return ir.IRBool(true), nil
		}
	}
	return ir.IRBool(false), nil
}
