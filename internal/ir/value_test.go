package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIRValueSealed(t *testing.T) {
	var _ IRValue = IRNull{}
	var _ IRValue = IRString("test")
	var _ IRValue = IRInt(42)
	var _ IRValue = IRBool(true)
	var _ IRValue = IRArray{IRString("a"), IRInt(1)}
	var _ IRValue = IRObject{"key": IRString("value")}
}

func TestIRObjectSortedKeys(t *testing.T) {
	obj := IRObject{
		"zebra":  IRString("z"),
		"apple":  IRString("a"),
		"banana": IRString("b"),
	}

	assert.Equal(t, []string{"apple", "banana", "zebra"}, obj.SortedKeys())
}

func TestIRObjectSortedKeysRFC8785Order(t *testing.T) {
	obj := IRObject{
		"a":  IRInt(1),
		"A":  IRInt(2),
		"aa": IRInt(3),
		"aA": IRInt(4),
		"Aa": IRInt(5),
		"AA": IRInt(6),
	}

	assert.Equal(t, []string{"A", "AA", "Aa", "a", "aA", "aa"}, obj.SortedKeys())
}

func TestSortedKeysUTF16Order(t *testing.T) {
	// U+1F600 encodes as surrogates 0xD83D 0xDE00, which sort before U+FFFD
	// in UTF-16 even though UTF-8 orders them the other way round.
	obj := IRObject{
		"\uFFFD":     IRInt(1),
		"\U0001F600": IRInt(2),
	}

	assert.Equal(t, []string{"\U0001F600", "\uFFFD"}, obj.SortedKeys())
}

func TestEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b IRValue
		want bool
	}{
		{"same string", IRString("x"), IRString("x"), true},
		{"different string", IRString("x"), IRString("y"), false},
		{"int vs string", IRInt(1), IRString("1"), false},
		{"nil equals null", nil, IRNull{}, true},
		{"null vs bool", IRNull{}, IRBool(false), false},
		{"arrays", IRArray{IRInt(1), IRString("a")}, IRArray{IRInt(1), IRString("a")}, true},
		{"array length", IRArray{IRInt(1)}, IRArray{IRInt(1), IRInt(2)}, false},
		{"objects", IRObject{"a": IRBool(true)}, IRObject{"a": IRBool(true)}, true},
		{"object values", IRObject{"a": IRBool(true)}, IRObject{"a": IRBool(false)}, false},
		{"object keys", IRObject{"a": IRInt(1)}, IRObject{"b": IRInt(1)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Equal(tt.a, tt.b))
			assert.Equal(t, tt.want, Equal(tt.b, tt.a))
		})
	}
}

func TestCompare(t *testing.T) {
	c, ok := Compare(IRInt(1), IRInt(2))
	require.True(t, ok)
	assert.Equal(t, -1, c)

	c, ok = Compare(IRString("b"), IRString("a"))
	require.True(t, ok)
	assert.Equal(t, 1, c)

	c, ok = Compare(IRBool(false), IRBool(true))
	require.True(t, ok)
	assert.Equal(t, -1, c)

	c, ok = Compare(IRInt(7), IRInt(7))
	require.True(t, ok)
	assert.Equal(t, 0, c)

	_, ok = Compare(IRInt(1), IRString("1"))
	assert.False(t, ok)

	_, ok = Compare(IRArray{}, IRArray{})
	assert.False(t, ok)
}

func TestFormat(t *testing.T) {
	assert.Equal(t, `"L1"`, Format(IRString("L1")))
	assert.Equal(t, "42", Format(IRInt(42)))
	assert.Equal(t, "true", Format(IRBool(true)))
	assert.Equal(t, "null", Format(IRNull{}))
	assert.Equal(t, "null", Format(nil))
	assert.Equal(t, `[1, "a"]`, Format(IRArray{IRInt(1), IRString("a")}))
	assert.Equal(t, `{a: 1, b: "x"}`, Format(IRObject{"b": IRString("x"), "a": IRInt(1)}))
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, "string", KindOf(IRString("")))
	assert.Equal(t, "int", KindOf(IRInt(0)))
	assert.Equal(t, "bool", KindOf(IRBool(false)))
	assert.Equal(t, "null", KindOf(IRNull{}))
	assert.Equal(t, "nil", KindOf(nil))
	assert.Equal(t, "array", KindOf(IRArray{}))
	assert.Equal(t, "object", KindOf(IRObject{}))
}

func TestIRObjectJSONRoundTrip(t *testing.T) {
	original := IRObject{
		"name":     IRString("Layer 1"),
		"locked":   IRBool(true),
		"priority": IRInt(3),
		"parent":   IRNull{},
		"tags":     IRArray{IRString("a"), IRString("b")},
	}

	data, err := json.Marshal(original)
	require.NoError(t, err)
	assert.Equal(t, `{"locked":true,"name":"Layer 1","parent":null,"priority":3,"tags":["a","b"]}`, string(data))

	var decoded IRObject
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, Equal(original, decoded))
}

func TestUnmarshalRejectsFloats(t *testing.T) {
	var obj IRObject
	err := json.Unmarshal([]byte(`{"ratio": 1.5}`), &obj)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "floats not allowed")
}

func TestUnmarshalLargeInt(t *testing.T) {
	var obj IRObject
	require.NoError(t, json.Unmarshal([]byte(`{"n": 9007199254740993}`), &obj))
	assert.Equal(t, IRInt(9007199254740993), obj["n"])
}

func TestFromAny(t *testing.T) {
	v, err := FromAny(map[string]any{
		"name":  "x",
		"n":     7,
		"big":   int64(1 << 40),
		"whole": float64(3),
		"ok":    true,
		"none":  nil,
		"list":  []any{"a", 1},
	})
	require.NoError(t, err)

	obj, ok := v.(IRObject)
	require.True(t, ok)
	assert.Equal(t, IRString("x"), obj["name"])
	assert.Equal(t, IRInt(7), obj["n"])
	assert.Equal(t, IRInt(1<<40), obj["big"])
	assert.Equal(t, IRInt(3), obj["whole"])
	assert.Equal(t, IRBool(true), obj["ok"])
	assert.Equal(t, IRNull{}, obj["none"])
	assert.Equal(t, IRArray{IRString("a"), IRInt(1)}, obj["list"])
}

func TestFromAnyRejects(t *testing.T) {
	_, err := FromAny(1.25)
	assert.Error(t, err)

	_, err = FromAny(json.Number("2.5"))
	assert.Error(t, err)

	_, err = FromAny(struct{}{})
	assert.Error(t, err)

	_, err = FromAny([]any{"ok", 0.5})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "array[1]")
}

func TestIsNull(t *testing.T) {
	assert.True(t, IsNull(nil))
	assert.True(t, IsNull(IRNull{}))
	assert.False(t, IsNull(IRString("")))
	assert.False(t, IsNull(IRInt(0)))
}
