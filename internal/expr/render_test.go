package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name string
		l    Lambda
		want string
	}{
		{
			name: "member",
			l:    Fn("e", Field("e", "layer_id")),
			want: "e => e.layer_id",
		},
		{
			name: "conjunction",
			l: And(
				Fn("e", Eq(Field("e", "layer_id"), Lit("L1"))),
				Fn("x", Negate{Operand: Field("x", "locked")}),
			),
			want: `e => (e.layer_id == "L1") && !e.locked`,
		},
		{
			name: "reversed",
			l:    ReverseOr(Fn("e", Field("e", "a")), Fn("e", Field("e", "b"))),
			want: "e => e.a <|| e.b",
		},
		{
			name: "nested logical",
			l: Or(
				And(Fn("e", Field("e", "a")), Fn("e", Field("e", "b"))),
				Fn("e", Field("e", "c")),
			),
			want: "e => (e.a && e.b) || e.c",
		},
		{
			name: "call",
			l:    Fn("l", Apply("starts_with", Field("l", "name"), Lit("X"))),
			want: `l => starts_with(l.name, "X")`,
		},
		{
			name: "lookup with label",
			l:    Fn("e", Lookup{Ref: "abc", Label: "Layer", Of: Param{Name: "e"}}),
			want: "e => lookup[Layer](e)",
		},
		{
			name: "lookup without label",
			l:    Fn("e", Lookup{Ref: "abc", Of: Param{Name: "e"}}),
			want: "e => lookup[abc](e)",
		},
		{
			name: "literals",
			l:    Fn("e", Apply("in", Field("e", "n"), Lit(1), Lit([]any{"a", nil}))),
			want: `e => in(e.n, 1, ["a", null])`,
		},
		{
			name: "neutral",
			l:    True,
			want: "_ => true",
		},
		{
			name: "empty",
			l:    Lambda{},
			want: "<empty>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Render(tt.l))
			assert.Equal(t, tt.want, tt.l.String())
		})
	}
}

func TestRenderNode_Nil(t *testing.T) {
	assert.Equal(t, "<nil>", RenderNode(nil))
	assert.Equal(t, "!<nil>", RenderNode(Negate{}))
}
