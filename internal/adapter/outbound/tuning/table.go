// Package tuning reads scripts/tuning.lua into a constant table and resolves numeric
// expressions that reference it, keeping a trace of every hop.
package tuning

import (
	"regexp"
	"sort"
	"strings"

	"scriptdex/internal/adapter/outbound/luaparse"
	"scriptdex/internal/domain/valueobject"
)

var (
	localAssign  = regexp.MustCompile(`(?m)^[ \t]*local[ \t]+([A-Za-z0-9_]+)[ \t]*=[ \t]*(.+?)[ \t]*$`)
	tuningAssign = regexp.MustCompile(`(?m)^[ \t]*TUNING\.([A-Z0-9_]+)[ \t]*=[ \t]*(.+?)[ \t]*$`)
	tuningTable  = regexp.MustCompile(`\bTUNING\s*=\s*\{`)
	upperKey     = regexp.MustCompile(`^[A-Z0-9_]+$`)
)

// Table holds the raw right-hand sides of tuning.lua. Values keep TUNING.X assignments
// and the fields of the TUNING = {...} constructor; nested constructor fields are also
// stored under dotted keys. Locals keeps file-level locals.
type Table struct {
	Values map[string]valueobject.ParsedValue
	Locals map[string]valueobject.ParsedValue
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{
		Values: make(map[string]valueobject.ParsedValue),
		Locals: make(map[string]valueobject.ParsedValue),
	}
}

// Parse reads the constants declared in tuning.lua source.
func Parse(content string) *Table {
	t := NewTable()
	if content == "" {
		return t
	}
	clean := luaparse.StripComments(content)

	for _, m := range localAssign.FindAllStringSubmatch(clean, -1) {
		v := parseRHS(m[2])
		if v.IsNil() {
			continue
		}
		t.Locals[m[1]] = v
	}

	for _, m := range tuningAssign.FindAllStringSubmatch(clean, -1) {
		rhs := trimRHS(m[2])
		v := parseRHS(rhs)
		if v.IsNil() {
			v = valueobject.Expr(rhs)
		}
		t.Values[m[1]] = v
	}

	for _, loc := range tuningTable.FindAllStringIndex(clean, -1) {
		open := loc[1] - 1
		closeIdx := luaparse.FindMatching(clean, open, '{', '}')
		if closeIdx < 0 {
			continue
		}
		t.addTable("", luaparse.ParseTable(clean[open+1:closeIdx]))
	}
	return t
}

// addTable stores keyed constructor fields. Explicit TUNING.X assignments win.
func (t *Table) addTable(prefix string, tbl *valueobject.Table) {
	for _, e := range tbl.Entries {
		if e.Positional || e.KeyIsExpr {
			continue
		}
		if prefix == "" && !upperKey.MatchString(e.Key) {
			continue
		}
		key := e.Key
		if prefix != "" {
			key = prefix + "." + e.Key
		}
		if _, exists := t.Values[key]; !exists && !e.Value.IsNil() {
			t.Values[key] = e.Value
		}
		if nested, ok := e.Value.AsTable(); ok {
			t.addTable(key, nested)
		}
	}
}

func trimRHS(rhs string) string {
	return strings.TrimSpace(strings.TrimRight(strings.TrimSpace(rhs), ","))
}

func parseRHS(rhs string) valueobject.ParsedValue {
	rhs = trimRHS(rhs)
	if rhs == "" {
		return valueobject.Nil()
	}
	return luaparse.ParseExpr(rhs)
}

// Lookup returns the raw value of key, preferring TUNING fields over locals.
func (t *Table) Lookup(key string) (valueobject.ParsedValue, bool) {
	if t == nil {
		return valueobject.Nil(), false
	}
	if v, ok := t.Values[key]; ok {
		return v, true
	}
	v, ok := t.Locals[key]
	return v, ok
}

// Keys returns the TUNING keys in sorted order.
func (t *Table) Keys() []string {
	if t == nil {
		return nil
	}
	keys := make([]string, 0, len(t.Values))
	for k := range t.Values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of TUNING keys.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Values)
}
