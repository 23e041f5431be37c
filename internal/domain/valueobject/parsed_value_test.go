package valueobject

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsedValue_MarshalJSON(t *testing.T) {
	tests := []struct {
		name     string
		value    ParsedValue
		expected string
	}{
		{name: "nil", value: Nil(), expected: `null`},
		{name: "string", value: String("twigs"), expected: `"twigs"`},
		{name: "integer_number", value: Number(2), expected: `2`},
		{name: "fractional_number", value: Number(0.25), expected: `0.25`},
		{name: "bool", value: Bool(true), expected: `true`},
		{name: "expr_is_wrapped", value: Expr("TUNING.SPEAR_DAMAGE"), expected: `{"expr":"TUNING.SPEAR_DAMAGE"}`},
		{
			name: "positional_table_is_array",
			value: TableOf(&Table{Entries: []TableEntry{
				{Positional: true, Value: String("a")},
				{Positional: true, Value: Number(1)},
			}}),
			expected: `["a",1]`,
		},
		{
			name: "mixed_table_keeps_both",
			value: TableOf(&Table{Entries: []TableEntry{
				{Positional: true, Value: String("a")},
				{Key: "meat", Value: Number(1)},
			}}),
			expected: `{"__array__":["a"],"meat":1}`,
		},
		{name: "empty_table", value: TableOf(nil), expected: `[]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.value)
			require.NoError(t, err)
			assert.JSONEq(t, tt.expected, string(data))
		})
	}
}

func TestParsedValue_Plain_CollapsesExpr(t *testing.T) {
	v := TableOf(&Table{Entries: []TableEntry{
		{Key: "builder_tag", Value: Expr("SOME_TAG")},
		{Key: "numtogive", Value: Number(4)},
	}})

	plain, ok := v.Plain().(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "SOME_TAG", plain["builder_tag"])
	assert.Equal(t, 4.0, plain["numtogive"])
}

func TestTable_GetUsesLastAssignment(t *testing.T) {
	tbl := &Table{Entries: []TableEntry{
		{Key: "hunger", Value: Number(10)},
		{Positional: true, Value: String("x")},
		{Key: "hunger", Value: Number(20)},
	}}

	v, ok := tbl.Get("hunger")
	require.True(t, ok)
	n, _ := v.AsNumber()
	assert.Equal(t, 20.0, n)
	assert.Equal(t, []string{"hunger"}, tbl.Keys())
	assert.Len(t, tbl.Array(), 1)

	_, ok = tbl.Get("missing")
	assert.False(t, ok)
}

func TestParsedValue_Source(t *testing.T) {
	v := TableOf(&Table{Entries: []TableEntry{
		{Positional: true, Value: String("a")},
		{Key: "n", Value: Number(1.5)},
		{Key: "k", KeyIsExpr: true, Value: Expr("TUNING.X")},
	}})
	assert.Equal(t, `{"a", n = 1.5, [k] = TUNING.X}`, v.Source())
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "2", FormatNumber(2))
	assert.Equal(t, "-3", FormatNumber(-3))
	assert.Equal(t, "0.5", FormatNumber(0.5))
}

func TestNewExtractorKind(t *testing.T) {
	k, err := NewExtractorKind("craft")
	require.NoError(t, err)
	assert.Equal(t, ExtractorCraft, k)

	_, err = NewExtractorKind("worldgen")
	assert.Error(t, err)

	kinds := AllExtractorKinds()
	assert.Len(t, kinds, 10)
	assert.Equal(t, ExtractorComponent, kinds[0])
}
