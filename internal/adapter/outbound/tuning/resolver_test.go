package tuning

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixtureTuning = `
local seg_time = 30
local total_day_time = seg_time*16
local wilson_health = 150

TUNING = {
    SPEAR_DAMAGE = 34, -- base weapon
    TOTAL_DAY_TIME = total_day_time,
    PERISH_FAST = total_day_time*6,
    HAMMER_USES = 75,
    ARMOR = { WOOD = 315 * 2 },
    lowercase_ignored = 1,
}

TUNING.HAMMER_USES = 80
TUNING.SPEAR_USES = 150
TUNING.ALIAS_USES = TUNING.SPEAR_USES
TUNING.LOOP_A = TUNING.LOOP_B
TUNING.LOOP_B = TUNING.LOOP_A
TUNING.MAXED = math.max(TUNING.SPEAR_DAMAGE, 10)
TUNING.NEG = -2^2
TUNING.NAME = "hello"
TUNING.HEALTH = wilson_health
`

func newFixtureResolver(t *testing.T) *Resolver {
	t.Helper()
	table := Parse(fixtureTuning)
	require.NotNil(t, table)
	return NewResolver(table)
}

func TestParse(t *testing.T) {
	table := Parse(fixtureTuning)

	v, ok := table.Lookup("SPEAR_DAMAGE")
	require.True(t, ok)
	n, _ := v.AsNumber()
	assert.Equal(t, 34.0, n)

	v, ok = table.Lookup("HAMMER_USES")
	require.True(t, ok)
	n, _ = v.AsNumber()
	assert.Equal(t, 80.0, n, "explicit assignment wins over constructor field")

	_, ok = table.Lookup("ARMOR.WOOD")
	assert.True(t, ok)
	_, ok = table.Lookup("lowercase_ignored")
	assert.False(t, ok)

	v, ok = table.Lookup("seg_time")
	require.True(t, ok)
	n, _ = v.AsNumber()
	assert.Equal(t, 30.0, n)

	s, ok := table.Values["NAME"].AsString()
	require.True(t, ok)
	assert.Equal(t, "hello", s)

	assert.Contains(t, table.Keys(), "TOTAL_DAY_TIME")
	assert.IsIncreasing(t, table.Keys())
}

func TestParse_Empty(t *testing.T) {
	table := Parse("")
	assert.Equal(t, 0, table.Len())
	_, ok := NewResolver(nil).Resolve("TUNING.X")
	assert.False(t, ok)
}

func TestResolver_Resolve(t *testing.T) {
	r := newFixtureResolver(t)

	tests := []struct {
		name     string
		expr     string
		expected float64
		ok       bool
	}{
		{name: "literal", expr: "2", expected: 2, ok: true},
		{name: "direct key", expr: "TUNING.SPEAR_DAMAGE", expected: 34, ok: true},
		{name: "bracket key", expr: `TUNING["SPEAR_USES"] / 2`, expected: 75, ok: true},
		{name: "alias chain", expr: "TUNING.ALIAS_USES", expected: 150, ok: true},
		{name: "local chain with arithmetic", expr: "TUNING.TOTAL_DAY_TIME", expected: 480, ok: true},
		{name: "nested constructor", expr: "TUNING.ARMOR.WOOD", expected: 630, ok: true},
		{name: "math call", expr: "TUNING.MAXED", expected: 34, ok: true},
		{name: "power binds tighter than minus", expr: "TUNING.NEG", expected: -4, ok: true},
		{name: "mixed arithmetic", expr: "TUNING.SPEAR_DAMAGE * .5 + 1", expected: 18, ok: true},
		{name: "undefined constant", expr: "TUNING.SOME_UNDEFINED_CONST", ok: false},
		{name: "loop", expr: "TUNING.LOOP_A", ok: false},
		{name: "string value", expr: "TUNING.NAME", ok: false},
		{name: "boolean logic is not guessed", expr: "TUNING.SPEAR_DAMAGE and 1 or 2", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := r.Resolve(tt.expr)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.InDelta(t, tt.expected, got, 1e-9)
			}
		})
	}
}

func TestEvaluate(t *testing.T) {
	none := func(string) (float64, bool) { return 0, false }

	tests := []struct {
		expr     string
		expected float64
		ok       bool
	}{
		{expr: "1 + 2 * 3", expected: 7, ok: true},
		{expr: "(1 + 2) * 3", expected: 9, ok: true},
		{expr: "2^3^2", expected: 512, ok: true},
		{expr: "7 % 3", expected: 1, ok: true},
		{expr: "1e3 / 4", expected: 250, ok: true},
		{expr: "math.floor(7 / 2)", expected: 3, ok: true},
		{expr: "math.min(4, 2, 8)", expected: 2, ok: true},
		{expr: "math.random(3)", ok: false},
		{expr: "10 / 0", ok: false},
		{expr: "1 +", ok: false},
		{expr: "(1", ok: false},
		{expr: "x", ok: false},
		{expr: `"a" .. "b"`, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, ok := evaluate(tt.expr, none)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.InDelta(t, tt.expected, got, 1e-9)
			}
		})
	}
}

func TestResolver_TraceKey(t *testing.T) {
	r := newFixtureResolver(t)

	t.Run("number", func(t *testing.T) {
		trace := r.TraceKey("TUNING.SPEAR_DAMAGE")
		assert.Equal(t, "TUNING.SPEAR_DAMAGE", trace.Key)
		assert.Equal(t, "SPEAR_DAMAGE", trace.Normalized)
		assert.Equal(t, 34.0, trace.Value)
		assert.Equal(t, "SPEAR_DAMAGE -> 34", trace.Chain)
	})

	t.Run("alias then expression", func(t *testing.T) {
		trace := r.TraceKey("TOTAL_DAY_TIME")
		assert.Equal(t, 480.0, trace.Value)
		assert.Equal(t, "TOTAL_DAY_TIME -> total_day_time -> seg_time*16 -> 480", trace.Chain)
		require.Len(t, trace.Steps, 3)
		assert.Equal(t, "<expr>", trace.Steps[2].Key)
	})

	t.Run("loop", func(t *testing.T) {
		trace := r.TraceKey("LOOP_A")
		assert.Nil(t, trace.Value)
		assert.Equal(t, "loop", trace.Note)
		assert.Equal(t, "LOOP_A -> LOOP_B -> LOOP_A", trace.Chain)
	})

	t.Run("missing", func(t *testing.T) {
		trace := r.TraceKey("SOME_UNDEFINED_CONST")
		assert.Nil(t, trace.Value)
		assert.Equal(t, "SOME_UNDEFINED_CONST", trace.Chain)
	})
}

func TestResolver_TraceExpr(t *testing.T) {
	r := newFixtureResolver(t)

	t.Run("resolved", func(t *testing.T) {
		entry := r.TraceExpr("TUNING.SPEAR_DAMAGE * 2")
		assert.Equal(t, 68.0, entry.Value)
		assert.Equal(t, "34 * 2", entry.ResolvedExpr)
		assert.Contains(t, entry.Refs, "SPEAR_DAMAGE")
		assert.Equal(t, "SPEAR_DAMAGE -> 34", entry.ExprChain)
	})

	t.Run("bracket reference", func(t *testing.T) {
		entry := r.TraceExpr(`TUNING["SPEAR_USES"] / 2`)
		assert.Equal(t, 75.0, entry.Value)
		assert.Equal(t, "150 / 2", entry.ResolvedExpr)
	})

	t.Run("nested key does not get partially rewritten", func(t *testing.T) {
		entry := r.TraceExpr("TUNING.ARMOR.WOOD + TUNING.SPEAR_DAMAGE")
		assert.Equal(t, 664.0, entry.Value)
		assert.Equal(t, "630 + 34", entry.ResolvedExpr)
	})

	t.Run("unresolved keeps expression", func(t *testing.T) {
		entry := r.TraceExpr("TUNING.SOME_UNDEFINED_CONST")
		assert.Nil(t, entry.Value)
		assert.Equal(t, "TUNING.SOME_UNDEFINED_CONST", entry.Expr)
		assert.Equal(t, entry.Expr, entry.ResolvedExpr)
		assert.Contains(t, entry.Refs, "SOME_UNDEFINED_CONST")
	})
}

func TestRefs(t *testing.T) {
	assert.Equal(t, []string{"A", "B_2", "C"}, Refs(`TUNING.A + TUNING.B_2 * TUNING["C"] - TUNING.A`))
	assert.Empty(t, Refs("34"))
}
