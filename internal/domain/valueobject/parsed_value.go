package valueobject

import (
	"encoding/json"
	"strconv"
	"strings"
)

// ValueKind discriminates the variants of ParsedValue.
type ValueKind int

// ParsedValue variants.
const (
	KindNil ValueKind = iota
	KindString
	KindNumber
	KindBool
	KindExpr
	KindTable
)

// String returns the variant name.
func (k ValueKind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindExpr:
		return "expr"
	case KindTable:
		return "table"
	default:
		return "unknown"
	}
}

// ParsedValue is the result of statically reading a Lua expression. Literals carry their
// primitive value, anything that cannot be resolved without evaluation is kept as an Expr
// holding the raw source text, and table constructors become an ordered Table.
type ParsedValue struct {
	kind  ValueKind
	str   string
	num   float64
	flag  bool
	table *Table
}

// TableEntry is one field of a table constructor. Positional entries have no key.
type TableEntry struct {
	Key        string
	KeyIsExpr  bool
	Positional bool
	Value      ParsedValue
}

// Table is an ordered Lua table constructor.
type Table struct {
	Entries []TableEntry
}

// Nil returns the nil literal.
func Nil() ParsedValue { return ParsedValue{kind: KindNil} }

// String returns a string literal.
func String(s string) ParsedValue { return ParsedValue{kind: KindString, str: s} }

// Number returns a numeric literal.
func Number(f float64) ParsedValue { return ParsedValue{kind: KindNumber, num: f} }

// Bool returns a boolean literal.
func Bool(b bool) ParsedValue { return ParsedValue{kind: KindBool, flag: b} }

// Expr returns an opaque expression holding raw source text.
func Expr(raw string) ParsedValue { return ParsedValue{kind: KindExpr, str: raw} }

// TableOf wraps a table.
func TableOf(t *Table) ParsedValue {
	if t == nil {
		t = &Table{}
	}
	return ParsedValue{kind: KindTable, table: t}
}

// Kind returns the variant.
func (v ParsedValue) Kind() ValueKind { return v.kind }

// IsNil reports whether the value is the nil literal.
func (v ParsedValue) IsNil() bool { return v.kind == KindNil }

// IsExpr reports whether the value is opaque.
func (v ParsedValue) IsExpr() bool { return v.kind == KindExpr }

// AsString returns the string literal.
func (v ParsedValue) AsString() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.str, true
}

// AsNumber returns the numeric literal.
func (v ParsedValue) AsNumber() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	return v.num, true
}

// AsBool returns the boolean literal.
func (v ParsedValue) AsBool() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.flag, true
}

// Raw returns the source text of an Expr.
func (v ParsedValue) Raw() (string, bool) {
	if v.kind != KindExpr {
		return "", false
	}
	return v.str, true
}

// AsTable returns the table.
func (v ParsedValue) AsTable() (*Table, bool) {
	if v.kind != KindTable || v.table == nil {
		return nil, false
	}
	return v.table, true
}

// Text returns a string for string literals and the raw text for expressions.
func (v ParsedValue) Text() (string, bool) {
	switch v.kind {
	case KindString, KindExpr:
		return v.str, true
	default:
		return "", false
	}
}

// Source renders the value back to Lua-like source text.
func (v ParsedValue) Source() string {
	switch v.kind {
	case KindNil:
		return "nil"
	case KindString:
		return strconv.Quote(v.str)
	case KindNumber:
		return FormatNumber(v.num)
	case KindBool:
		return strconv.FormatBool(v.flag)
	case KindExpr:
		return v.str
	case KindTable:
		parts := make([]string, 0, len(v.table.Entries))
		for _, e := range v.table.Entries {
			switch {
			case e.Positional:
				parts = append(parts, e.Value.Source())
			case e.KeyIsExpr:
				parts = append(parts, "["+e.Key+"] = "+e.Value.Source())
			default:
				parts = append(parts, e.Key+" = "+e.Value.Source())
			}
		}
		return "{" + strings.Join(parts, ", ") + "}"
	}
	return ""
}

// Plain converts the value into plain Go data. Expressions collapse to their raw text;
// tables become []interface{}, map[string]interface{}, or a map with an "__array__"
// member when both positional and keyed entries exist.
func (v ParsedValue) Plain() interface{} {
	return v.convert(func(raw string) interface{} { return raw })
}

// MarshalJSON renders literals as JSON primitives, expressions as {"expr": raw} and tables
// like Plain.
func (v ParsedValue) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.convert(func(raw string) interface{} {
		return map[string]string{"expr": raw}
	}))
}

func (v ParsedValue) convert(expr func(string) interface{}) interface{} {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return v.num
	case KindBool:
		return v.flag
	case KindExpr:
		return expr(v.str)
	case KindTable:
		var arr []interface{}
		var mp map[string]interface{}
		for _, e := range v.table.Entries {
			if e.Positional {
				arr = append(arr, e.Value.convert(expr))
				continue
			}
			if mp == nil {
				mp = make(map[string]interface{})
			}
			mp[e.Key] = e.Value.convert(expr)
		}
		switch {
		case mp != nil && arr != nil:
			mp["__array__"] = arr
			return mp
		case mp != nil:
			return mp
		case arr != nil:
			return arr
		default:
			return []interface{}{}
		}
	}
	return nil
}

// Array returns the positional entries in order.
func (t *Table) Array() []ParsedValue {
	if t == nil {
		return nil
	}
	out := make([]ParsedValue, 0, len(t.Entries))
	for _, e := range t.Entries {
		if e.Positional {
			out = append(out, e.Value)
		}
	}
	return out
}

// Get returns the value of the last keyed entry named key, matching Lua constructor
// semantics where a later field overwrites an earlier one.
func (t *Table) Get(key string) (ParsedValue, bool) {
	if t == nil {
		return Nil(), false
	}
	for i := len(t.Entries) - 1; i >= 0; i-- {
		e := t.Entries[i]
		if !e.Positional && e.Key == key {
			return e.Value, true
		}
	}
	return Nil(), false
}

// Keys returns keyed entry names in declaration order without duplicates.
func (t *Table) Keys() []string {
	if t == nil {
		return nil
	}
	seen := make(map[string]bool)
	var out []string
	for _, e := range t.Entries {
		if e.Positional || seen[e.Key] {
			continue
		}
		seen[e.Key] = true
		out = append(out, e.Key)
	}
	return out
}

// Len returns the number of entries.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Entries)
}

// FormatNumber renders a float the way Lua source writes it: integers without a
// fractional part and other values in shortest form.
func FormatNumber(f float64) string {
	if f == float64(int64(f)) && f < 1e15 && f > -1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
