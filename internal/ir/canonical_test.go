package ir

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonicalBasic(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{"string", String("hello"), `"hello"`},
		{"empty string", String(""), `""`},
		{"int", Int(42), "42"},
		{"negative int", Int(-100), "-100"},
		{"max int64", Int(9223372036854775807), "9223372036854775807"},
		{"bool true", Bool(true), "true"},
		{"bool false", Bool(false), "false"},
		{"null", Null{}, "null"},
		{"empty array", Array{}, "[]"},
		{"empty tree", NewTree(), "{}"},
		{"array of ints", Array{Int(1), Int(2), Int(3)}, "[1,2,3]"},
		{"plain string", "x", `"x"`},
		{"plain int64", int64(7), "7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := MarshalCanonical(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(result))
		})
	}
}

func TestMarshalCanonicalTreeKeepsOrder(t *testing.T) {
	tree := NewTree(
		F("zebra", Int(1)),
		F("alpha", NewTree(F("b", Int(1)), F("a", Int(2)))),
	)

	result, err := MarshalCanonical(tree)
	require.NoError(t, err)
	assert.Equal(t, `{"zebra":1,"alpha":{"b":1,"a":2}}`, string(result))
}

func TestMarshalCanonicalMapSortsKeys(t *testing.T) {
	obj := map[string]any{
		"zebra": Int(1),
		"alpha": Int(2),
		"beta":  "three",
	}

	result, err := MarshalCanonical(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"alpha":2,"beta":"three","zebra":1}`, string(result))
}

func TestMarshalCanonicalNoHTMLEscape(t *testing.T) {
	result, err := MarshalCanonical(String("<a>&</a>"))
	require.NoError(t, err)
	assert.Equal(t, `"<a>&</a>"`, string(result))
}

func TestMarshalCanonicalNFC(t *testing.T) {
	// "e" + combining acute accent normalizes to U+00E9
	result, err := MarshalCanonical(String("e\u0301"))
	require.NoError(t, err)
	assert.Equal(t, "\"\u00e9\"", string(result))
}

func TestMarshalCanonicalLineSeparators(t *testing.T) {
	result, err := MarshalCanonical(String("a\u2028b\u2029c"))
	require.NoError(t, err)
	assert.Equal(t, "\"a\u2028b\u2029c\"", string(result))

	// A literal backslash followed by "u2028" text stays escaped.
	result, err = MarshalCanonical(String(`\u2028`))
	require.NoError(t, err)
	assert.Equal(t, `"\\u2028"`, string(result))
}

func TestMarshalCanonicalRejects(t *testing.T) {
	_, err := MarshalCanonical(nil)
	assert.Error(t, err)

	_, err = MarshalCanonical(1.5)
	assert.True(t, errors.Is(err, ErrFloat))

	_, err = MarshalCanonical(map[string]any{"a": 2.5})
	assert.True(t, errors.Is(err, ErrFloat))

	_, err = MarshalCanonical(struct{}{})
	assert.Error(t, err)
}

func TestMarshalCanonicalDeterministic(t *testing.T) {
	obj := map[string]any{"b": Array{Int(1)}, "a": NewTree(F("y", Null{}), F("x", Int(1)))}

	first, err := MarshalCanonical(obj)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := MarshalCanonical(obj)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}
