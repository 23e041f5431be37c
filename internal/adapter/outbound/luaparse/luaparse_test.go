package luaparse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scriptdex/internal/domain/valueobject"
)

func TestStripComments(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "line_comment", input: "local a = 1 -- note\nlocal b = 2", expected: "local a = 1 \nlocal b = 2"},
		{name: "block_comment_keeps_newlines", input: "a --[[ x\ny\n]] b", expected: "a \n\n b"},
		{name: "leveled_block_comment", input: "a --[==[ ]] ]==] b", expected: "a  b"},
		{name: "string_with_dashes_kept", input: `s = "a -- b"`, expected: `s = "a -- b"`},
		{name: "long_string_kept", input: "s = [[ -- ]]", expected: "s = [[ -- ]]"},
		{name: "empty", input: "", expected: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, StripComments(tt.input))
		})
	}
}

func TestFindMatching(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		open     int
		expected int
	}{
		{name: "simple", text: "{a}", open: 0, expected: 2},
		{name: "nested", text: "{ {1}, {2} }", open: 0, expected: 11},
		{name: "brace_in_string", text: `{ "}" }`, open: 0, expected: 6},
		{name: "brace_in_comment", text: "{ -- }\n}", open: 0, expected: 7},
		{name: "unbalanced", text: "{ {", open: 0, expected: -1},
		{name: "not_an_opener", text: "a{}", open: 0, expected: -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FindMatching(tt.text, tt.open, '{', '}'))
		})
	}
}

func TestSplitTopLevel(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected []string
	}{
		{name: "flat", text: "a, b ,c", expected: []string{"a", "b", "c"}},
		{name: "nested_brackets", text: `Ingredient("twigs", 2), {x = 1, y = 2}`, expected: []string{`Ingredient("twigs", 2)`, "{x = 1, y = 2}"}},
		{name: "string_comma", text: `"a,b", c`, expected: []string{`"a,b"`, "c"}},
		{
			name:     "function_block",
			text:     "function(a, b) if a then return b, a end end, 3",
			expected: []string{"function(a, b) if a then return b, a end end", "3"},
		},
		{
			name:     "for_do_block",
			text:     "function() for i = 1, 2 do x(i, i) end end, y",
			expected: []string{"function() for i = 1, 2 do x(i, i) end end", "y"},
		},
		{
			name:     "repeat_until",
			text:     "function() repeat a, b = 1, 2 until a end, z",
			expected: []string{"function() repeat a, b = 1, 2 until a end", "z"},
		},
		{name: "trailing_separator", text: "a, b,", expected: []string{"a", "b"}},
		{name: "empty", text: "", expected: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SplitTopLevel(tt.text, ','))
		})
	}
}

func TestCalls(t *testing.T) {
	src := "local x = 1\n" +
		"inst:AddComponent(\"weapon\")\n" +
		"-- inst:AddComponent(\"fake\")\n" +
		"inst.components.weapon:SetDamage(TUNING.SPEAR_DAMAGE)\n" +
		"AddComponent(\"plain\")\n"

	t.Run("member_calls", func(t *testing.T) {
		calls := Calls(src, CallOptions{Names: []string{"AddComponent"}, MemberCalls: true})
		require.Len(t, calls, 2)
		assert.Equal(t, "inst:AddComponent", calls[0].FullName)
		assert.Equal(t, []string{`"weapon"`}, calls[0].ArgList)
		assert.Equal(t, 2, calls[0].Line)
		assert.Equal(t, 1, calls[0].Col)
		assert.Equal(t, "AddComponent", calls[1].FullName)
		assert.Equal(t, 5, calls[1].Line)
	})

	t.Run("plain_calls_only", func(t *testing.T) {
		calls := Calls(src, CallOptions{Names: []string{"AddComponent"}})
		require.Len(t, calls, 1)
		assert.Equal(t, `"plain"`, calls[0].Args)
	})

	t.Run("full_name", func(t *testing.T) {
		calls := Calls(src, CallOptions{
			Names:       []string{"inst.components.weapon:SetDamage"},
			MemberCalls: true,
			FullName:    true,
		})
		require.Len(t, calls, 1)
		assert.Equal(t, "SetDamage", calls[0].Name)
		assert.Equal(t, []string{"TUNING.SPEAR_DAMAGE"}, calls[0].ArgList)
	})

	t.Run("nested_args_not_rescanned", func(t *testing.T) {
		calls := Calls(`Recipe("spear", {Ingredient("twigs", 2), Ingredient("rope", 1)})`, CallOptions{Names: []string{"Recipe", "Ingredient"}})
		require.Len(t, calls, 1)
		inner := Calls(calls[0].Args, CallOptions{Names: []string{"Ingredient"}})
		assert.Len(t, inner, 2)
	})
}

func TestParseExpr(t *testing.T) {
	tests := []struct {
		name string
		expr string
		kind valueobject.ValueKind
		text string
	}{
		{name: "nil", expr: "nil", kind: valueobject.KindNil},
		{name: "true", expr: "true", kind: valueobject.KindBool},
		{name: "double_quoted", expr: `"twigs"`, kind: valueobject.KindString, text: "twigs"},
		{name: "single_quoted_escape", expr: `'it\'s'`, kind: valueobject.KindString, text: "it's"},
		{name: "long_string", expr: "[[raw]]", kind: valueobject.KindString, text: "raw"},
		{name: "concat_is_expr", expr: `"a" .. "b"`, kind: valueobject.KindExpr, text: `"a" .. "b"`},
		{name: "number", expr: "2.5", kind: valueobject.KindNumber},
		{name: "exponent", expr: "1e3", kind: valueobject.KindNumber},
		{name: "table", expr: "{1, 2}", kind: valueobject.KindTable},
		{name: "function", expr: "function(inst) return inst end", kind: valueobject.KindExpr, text: "function(inst) ... end"},
		{name: "identifier", expr: "TUNING.SPEAR_DAMAGE", kind: valueobject.KindExpr, text: "TUNING.SPEAR_DAMAGE"},
		{name: "functional_identifier", expr: "functional", kind: valueobject.KindExpr, text: "functional"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := ParseExpr(tt.expr)
			assert.Equal(t, tt.kind, v.Kind())
			if tt.text != "" {
				text, ok := v.Text()
				require.True(t, ok)
				assert.Equal(t, tt.text, text)
			}
		})
	}

	n, ok := ParseExpr("1e3").AsNumber()
	require.True(t, ok)
	assert.Equal(t, 1000.0, n)
}

func TestParseTable(t *testing.T) {
	tbl := ParseTable(`
		"positional",
		hunger = TUNING.CALORIES_LARGE, -- comment
		["quoted key"] = 3;
		[FOODTYPE.MEAT] = true,
		nested = { a = 1 },
		cmp = a == b,
	`)

	require.Len(t, tbl.Entries, 6)
	assert.True(t, tbl.Entries[0].Positional)

	hunger, ok := tbl.Get("hunger")
	require.True(t, ok)
	raw, _ := hunger.Raw()
	assert.Equal(t, "TUNING.CALORIES_LARGE", raw)

	quoted, ok := tbl.Get("quoted key")
	require.True(t, ok)
	n, _ := quoted.AsNumber()
	assert.Equal(t, 3.0, n)

	assert.True(t, tbl.Entries[3].KeyIsExpr)
	assert.Equal(t, "FOODTYPE.MEAT", tbl.Entries[3].Key)

	nested, ok := tbl.Get("nested")
	require.True(t, ok)
	_, isTable := nested.AsTable()
	assert.True(t, isTable)

	cmp, ok := tbl.Get("cmp")
	require.True(t, ok)
	raw, _ = cmp.Raw()
	assert.Equal(t, "a == b", raw)
}

func TestIsNumber(t *testing.T) {
	assert.True(t, IsNumber("10"))
	assert.True(t, IsNumber("-0.5"))
	assert.True(t, IsNumber(".5"))
	assert.False(t, IsNumber("0x10"))
	assert.False(t, IsNumber("TUNING.X"))
}
