package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/relq/internal/ir"
)

func TestNode_SealedVariants(t *testing.T) {
	nodes := []Node{
		Const{Value: ir.IRInt(1)},
		Default{Value: true},
		Param{Name: "e"},
		Field("e", "a"),
		Logical{Op: OpAnd},
		Negate{},
		Eq(Lit(1), Lit(2)),
		Apply("len", Lit("x")),
		Lookup{Ref: "k"},
	}
	for _, n := range nodes {
		switch n.(type) {
		case Const, Default, Param, Member, Logical, Negate, Comparison, Call, Lookup:
			// Expected
		default:
			t.Fatalf("unexpected node type %T", n)
		}
	}
}

func TestEqual_ModuloParameterName(t *testing.T) {
	a := Fn("e", Eq(Field("e", "layer_id"), Lit("L1")))
	b := Fn("x", Eq(Field("x", "layer_id"), Lit("L1")))

	assert.True(t, Equal(a, b))
	assert.Equal(t, MustHash(a), MustHash(b))
}

func TestEqual_Differences(t *testing.T) {
	base := Fn("e", Eq(Field("e", "layer_id"), Lit("L1")))

	tests := []struct {
		name  string
		other Lambda
	}{
		{"field name", Fn("e", Eq(Field("e", "layer"), Lit("L1")))},
		{"literal", Fn("e", Eq(Field("e", "layer_id"), Lit("L2")))},
		{"literal kind", Fn("e", Eq(Field("e", "layer_id"), Lit(1)))},
		{"operator", Fn("e", Ne(Field("e", "layer_id"), Lit("L1")))},
		{"operand order", Fn("e", Eq(Lit("L1"), Field("e", "layer_id")))},
		{"free parameter", Fn("e", Eq(Field("x", "layer_id"), Lit("L1")))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, Equal(base, tt.other))
			assert.NotEqual(t, MustHash(base), MustHash(tt.other))
		})
	}
}

func TestEqual_FreeParametersMatchByName(t *testing.T) {
	a := Fn("e", Eq(Field("e", "a"), Param{Name: "limit"}))
	b := Fn("x", Eq(Field("x", "a"), Param{Name: "limit"}))
	c := Fn("x", Eq(Field("x", "a"), Param{Name: "other"}))

	assert.True(t, Equal(a, b))
	assert.False(t, Equal(a, c))
	assert.Equal(t, MustHash(a), MustHash(b))
}

func TestEqual_ReversedOrderIsDistinct(t *testing.T) {
	x := Fn("e", Field("e", "a"))
	y := Fn("e", Field("e", "b"))

	assert.False(t, Equal(And(x, y), ReverseAnd(x, y)))
	assert.NotEqual(t, MustHash(And(x, y)), MustHash(ReverseAnd(x, y)))
}

func TestEqual_DefaultIsNotBoolLiteral(t *testing.T) {
	lit := Fn("_", Lit(true))

	assert.False(t, Equal(True, lit))
	assert.NotEqual(t, MustHash(True), MustHash(lit))
	assert.True(t, Equal(True, Fn("z", Default{Value: true})))
}

func TestEqual_NullLiterals(t *testing.T) {
	a := Fn("e", Eq(Field("e", "parent"), Const{}))
	b := Fn("e", Eq(Field("e", "parent"), Const{Value: ir.IRNull{}}))

	assert.True(t, Equal(a, b))
	assert.Equal(t, MustHash(a), MustHash(b))
}

func TestEqual_Empty(t *testing.T) {
	assert.True(t, Equal(Lambda{}, Lambda{}))
	assert.False(t, Equal(Lambda{}, True))
}

func TestHash_CallAndLookup(t *testing.T) {
	a := Fn("e", Apply("starts_with", Field("e", "name"), Lit("X")))
	b := Fn("n", Apply("starts_with", Field("n", "name"), Lit("X")))
	assert.Equal(t, MustHash(a), MustHash(b))

	l1 := Fn("e", Lookup{Ref: "k1", Label: "Layer", Of: Param{Name: "e"}})
	l2 := Fn("x", Lookup{Ref: "k1", Label: "other label", Of: Param{Name: "x"}})
	l3 := Fn("x", Lookup{Ref: "k2", Of: Param{Name: "x"}})
	assert.True(t, Equal(l1, l2), "label is not part of identity")
	assert.Equal(t, MustHash(l1), MustHash(l2))
	assert.False(t, Equal(l1, l3))
}

func TestHash_Format(t *testing.T) {
	h, err := Hash(Fn("e", Field("e", "layer_id")))
	require.NoError(t, err)
	assert.Len(t, h, 64)
}

func TestCanonical_Empty(t *testing.T) {
	_, err := Canonical(Lambda{})
	assert.ErrorIs(t, err, ErrPrecondition)

	_, err = Hash(Lambda{})
	assert.ErrorIs(t, err, ErrPrecondition)
}

func TestCanonical_BoundParameterMarker(t *testing.T) {
	enc, err := Canonical(Fn("entity", Field("entity", "layer_id")))
	require.NoError(t, err)

	data, err := ir.MarshalCanonical(enc)
	require.NoError(t, err)
	assert.Equal(t, `{"member":"layer_id","of":{"param":0}}`, string(data))
}
