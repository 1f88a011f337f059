package expr

import (
	"strings"

	"github.com/roach88/relq/internal/ir"
)

// Render returns the readable text form of l:
//
//	e => (e.layer_id == "L1") && !e.locked
//
// Reversed operators are rendered with a leading '<' (`a <&& b`) to show
// that the right operand is evaluated first.
func Render(l Lambda) string {
	if l.Body == nil {
		return "<empty>"
	}
	return l.Param + " => " + RenderNode(l.Body)
}

// RenderNode renders a single node.
func RenderNode(n Node) string {
	var sb strings.Builder
	renderNode(&sb, n, true)
	return sb.String()
}

func renderNode(sb *strings.Builder, n Node, top bool) {
	switch x := n.(type) {
	case Const:
		sb.WriteString(ir.Format(x.Value))
	case Default:
		if x.Value {
			sb.WriteString("true")
		} else {
			sb.WriteString("false")
		}
	case Param:
		sb.WriteString(x.Name)
	case Member:
		renderNode(sb, x.Of, false)
		sb.WriteByte('.')
		sb.WriteString(x.Name)
	case Logical:
		if !top {
			sb.WriteByte('(')
		}
		renderNode(sb, x.Left, false)
		sb.WriteByte(' ')
		if x.RightFirst {
			sb.WriteByte('<')
		}
		sb.WriteString(x.Op.String())
		sb.WriteByte(' ')
		renderNode(sb, x.Right, false)
		if !top {
			sb.WriteByte(')')
		}
	case Negate:
		sb.WriteByte('!')
		renderNode(sb, x.Operand, false)
	case Comparison:
		if !top {
			sb.WriteByte('(')
		}
		renderNode(sb, x.Left, false)
		sb.WriteByte(' ')
		sb.WriteString(string(x.Op))
		sb.WriteByte(' ')
		renderNode(sb, x.Right, false)
		if !top {
			sb.WriteByte(')')
		}
	case Call:
		sb.WriteString(x.Func)
		sb.WriteByte('(')
		for i, arg := range x.Args {
			if i > 0 {
				sb.WriteString(", ")
			}
			renderNode(sb, arg, true)
		}
		sb.WriteByte(')')
	case Lookup:
		sb.WriteString("lookup[")
		if x.Label != "" {
			sb.WriteString(x.Label)
		} else {
			sb.WriteString(x.Ref)
		}
		sb.WriteString("](")
		renderNode(sb, x.Of, true)
		sb.WriteByte(')')
	case nil:
		sb.WriteString("<nil>")
	default:
		sb.WriteString("<?>")
	}
}
