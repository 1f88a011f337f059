package expr

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/relq/internal/ir"
)

// DecodeLambda builds a lambda over param from the generic form produced by
// the YAML and CUE decoders. A bare true or false becomes the matching
// neutral element; anything else is decoded with Decode.
//
// Forms:
//
//	{field: "a.b"}              param.a.b
//	{const: v}                  literal (any IR value)
//	{default: true}             neutral element
//	{and: [x, y, ...]}          x && y && ...
//	{or: [x, y, ...]}           x || y || ...
//	{reverse_and: [x, y]}       x <&& y
//	{reverse_or: [x, y]}        x <|| y
//	{not: x}                    !x
//	{eq: [a, b]}                a == b (also ne, lt, le, gt, ge)
//	{call: f, args: [...]}      f(...)
//	{lookup: ref, of: x}        lookup[ref](x), of defaults to param
//	"s", 1, true, null, [...]   literal
func DecodeLambda(param string, v any) (Lambda, error) {
	if b, ok := v.(bool); ok {
		if b {
			return Lambda{Param: param, Body: Default{Value: true}}, nil
		}
		return Lambda{Param: param, Body: Default{Value: false}}, nil
	}
	body, err := Decode(param, v)
	if err != nil {
		return Lambda{}, err
	}
	return Lambda{Param: param, Body: body}, nil
}

var compareForms = map[string]CompareOp{
	"eq": OpEq,
	"ne": OpNe,
	"lt": OpLt,
	"le": OpLe,
	"gt": OpGt,
	"ge": OpGe,
}

// Decode builds a node from its generic form. See DecodeLambda.
func Decode(param string, v any) (Node, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return decodeConst(v)
	}

	if name, ok := m["call"]; ok {
		return decodeCall(param, name, m)
	}
	if ref, ok := m["lookup"]; ok {
		return decodeLookup(param, ref, m)
	}
	if len(m) != 1 {
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		return nil, fmt.Errorf("%w: expression form must have one key, got %s", ErrInvalidArgument, strings.Join(keys, ", "))
	}

	for form, arg := range m {
		return decodeForm(param, form, arg)
	}
	return nil, fmt.Errorf("%w: empty expression", ErrInvalidArgument)
}

func decodeForm(param, form string, arg any) (Node, error) {
	switch form {
	case "field":
		path, ok := arg.(string)
		if !ok || path == "" {
			return nil, fmt.Errorf("%w: field expects a non-empty path", ErrInvalidArgument)
		}
		var n Node = Param{Name: param}
		for _, name := range strings.Split(path, ".") {
			n = Member{Of: n, Name: name}
		}
		return n, nil
	case "const":
		return decodeConst(arg)
	case "default":
		b, ok := arg.(bool)
		if !ok {
			return nil, fmt.Errorf("%w: default expects a bool", ErrInvalidArgument)
		}
		return Default{Value: b}, nil
	case "and", "or", "reverse_and", "reverse_or":
		return decodeLogical(param, form, arg)
	case "not":
		operand, err := DecodeLambda(param, arg)
		if err != nil {
			return nil, fmt.Errorf("not: %w", err)
		}
		return Not(operand).Body, nil
	default:
		op, ok := compareForms[form]
		if !ok {
			return nil, fmt.Errorf("%w: expression form %q", ErrNotSupported, form)
		}
		operands, err := decodeList(param, form, arg)
		if err != nil {
			return nil, err
		}
		if len(operands) != 2 {
			return nil, fmt.Errorf("%w: %s expects 2 operands, got %d", ErrInvalidArgument, form, len(operands))
		}
		return Comparison{Op: op, Left: operands[0], Right: operands[1]}, nil
	}
}

func decodeConst(v any) (Node, error) {
	val, err := ir.FromAny(v)
	if err != nil {
		return nil, fmt.Errorf("%w: literal: %v", ErrInvalidArgument, err)
	}
	return Const{Value: val}, nil
}

func decodeList(param, form string, arg any) ([]Node, error) {
	items, ok := arg.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s expects a list", ErrInvalidArgument, form)
	}
	nodes := make([]Node, len(items))
	for i, item := range items {
		n, err := Decode(param, item)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", form, i, err)
		}
		nodes[i] = n
	}
	return nodes, nil
}

func decodeLogical(param, form string, arg any) (Node, error) {
	items, ok := arg.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s expects a list", ErrInvalidArgument, form)
	}
	operands := make([]Lambda, len(items))
	for i, item := range items {
		l, err := DecodeLambda(param, item)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", form, i, err)
		}
		operands[i] = l
	}

	var (
		out Lambda
		err error
	)
	switch form {
	case "and":
		out, err = AndAll(operands...)
	case "or":
		out, err = OrAny(operands...)
	default:
		if len(operands) != 2 {
			return nil, fmt.Errorf("%w: %s expects 2 operands, got %d", ErrInvalidArgument, form, len(operands))
		}
		op := OpAnd
		if form == "reverse_or" {
			op = OpOr
		}
		out, err = Combine(op, true, operands[0], operands[1])
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", form, err)
	}
	return out.Body, nil
}

func decodeCall(param string, name any, m map[string]any) (Node, error) {
	fn, ok := name.(string)
	if !ok || fn == "" {
		return nil, fmt.Errorf("%w: call expects a function name", ErrInvalidArgument)
	}
	for k := range m {
		if k != "call" && k != "args" {
			return nil, fmt.Errorf("%w: unexpected key %q in call", ErrInvalidArgument, k)
		}
	}
	var args []Node
	if raw, ok := m["args"]; ok {
		var err error
		if args, err = decodeList(param, fn, raw); err != nil {
			return nil, err
		}
	}
	return Call{Func: fn, Args: args}, nil
}

func decodeLookup(param string, ref any, m map[string]any) (Node, error) {
	key, ok := ref.(string)
	if !ok || key == "" {
		return nil, fmt.Errorf("%w: lookup expects a reference", ErrInvalidArgument)
	}
	n := Lookup{Ref: key, Of: Param{Name: param}}
	for k, v := range m {
		switch k {
		case "lookup":
		case "label":
			label, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("%w: lookup label must be a string", ErrInvalidArgument)
			}
			n.Label = label
		case "of":
			of, err := Decode(param, v)
			if err != nil {
				return nil, fmt.Errorf("lookup of: %w", err)
			}
			n.Of = of
		default:
			return nil, fmt.Errorf("%w: unexpected key %q in lookup", ErrInvalidArgument, k)
		}
	}
	return n, nil
}
