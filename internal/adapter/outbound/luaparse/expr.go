package luaparse

import (
	"regexp"
	"strconv"
	"strings"

	"scriptdex/internal/domain/valueobject"
)

var (
	numberPattern   = regexp.MustCompile(`^[+-]?(?:\d+\.\d*|\d*\.\d+|\d+)(?:[eE][+-]?\d+)?$`)
	keyAssign       = regexp.MustCompile(`(?s)^([A-Za-z_][A-Za-z0-9_]*)\s*=([^=].*)$`)
	stringKeyAssign = regexp.MustCompile(`(?s)^\[\s*('[^']*'|"[^"]*"|\[=*\[.*?\]=*\])\s*\]\s*=([^=].*)$`)
	exprKeyAssign   = regexp.MustCompile(`(?s)^\[\s*(.+?)\s*\]\s*=([^=].*)$`)
)

// IsNumber reports whether expr is a Lua decimal number literal.
func IsNumber(expr string) bool {
	return numberPattern.MatchString(strings.TrimSpace(expr))
}

// ParseNumber parses a Lua decimal number literal.
func ParseNumber(expr string) (float64, bool) {
	expr = strings.TrimSpace(expr)
	if !numberPattern.MatchString(expr) {
		return 0, false
	}
	f, err := strconv.ParseFloat(expr, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// ParseString returns the contents of a short or long string literal spanning all of
// expr.
func ParseString(expr string) (string, bool) {
	expr = strings.TrimSpace(expr)
	if len(expr) >= 2 && (expr[0] == '"' || expr[0] == '\'') {
		if skipShortString(expr, 0, expr[0]) != len(expr) || expr[len(expr)-1] != expr[0] {
			return "", false
		}
		return unescape(expr[1 : len(expr)-1]), true
	}
	if strings.HasPrefix(expr, "[") {
		level := longBracketLevel(expr, 0)
		if level < 0 || skipLongBracket(expr, 0, level) != len(expr) {
			return "", false
		}
		closer := "]" + strings.Repeat("=", level) + "]"
		body := expr[2+level : len(expr)-len(closer)]
		return strings.TrimPrefix(body, "\n"), true
	}
	return "", false
}

func unescape(body string) string {
	if !strings.Contains(body, `\`) {
		return body
	}
	var b strings.Builder
	for i := 0; i < len(body); i++ {
		ch := body[i]
		if ch != '\\' || i+1 >= len(body) {
			b.WriteByte(ch)
			continue
		}
		i++
		switch body[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		default:
			b.WriteByte(body[i])
		}
	}
	return b.String()
}

// ParseExpr reads a single Lua expression. Literals and table constructors are parsed;
// anything else, including function bodies, is kept as an opaque expression.
func ParseExpr(expr string) valueobject.ParsedValue {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return valueobject.Expr("")
	}

	if strings.HasPrefix(expr, "function") && (len(expr) == 8 || !isIdentChar(expr[8])) {
		if sigEnd := strings.IndexByte(expr, ')'); sigEnd != -1 && sigEnd < 160 {
			return valueobject.Expr(expr[:sigEnd+1] + " ... end")
		}
		return valueobject.Expr("<function>")
	}

	switch expr {
	case "nil":
		return valueobject.Nil()
	case "true":
		return valueobject.Bool(true)
	case "false":
		return valueobject.Bool(false)
	}

	if s, ok := ParseString(expr); ok {
		return valueobject.String(s)
	}
	if f, ok := ParseNumber(expr); ok {
		return valueobject.Number(f)
	}
	if expr[0] == '{' {
		closeIdx := FindMatching(expr, 0, '{', '}')
		if closeIdx == len(expr)-1 {
			return valueobject.TableOf(ParseTable(expr[1:closeIdx]))
		}
	}
	return valueobject.Expr(expr)
}

// ParseTable parses the inside of a table constructor, keeping entry order.
func ParseTable(inner string) *valueobject.Table {
	inner = StripComments(inner)
	t := &valueobject.Table{}
	for _, item := range splitFields(inner) {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if m := keyAssign.FindStringSubmatch(item); m != nil {
			t.Entries = append(t.Entries, valueobject.TableEntry{Key: m[1], Value: ParseExpr(m[2])})
			continue
		}
		if m := stringKeyAssign.FindStringSubmatch(item); m != nil {
			key, ok := ParseString(m[1])
			entry := valueobject.TableEntry{Key: key, Value: ParseExpr(m[2])}
			if !ok {
				entry.Key = m[1]
				entry.KeyIsExpr = true
			}
			t.Entries = append(t.Entries, entry)
			continue
		}
		if m := exprKeyAssign.FindStringSubmatch(item); m != nil {
			t.Entries = append(t.Entries, valueobject.TableEntry{
				Key:       strings.TrimSpace(m[1]),
				KeyIsExpr: true,
				Value:     ParseExpr(m[2]),
			})
			continue
		}
		t.Entries = append(t.Entries, valueobject.TableEntry{Positional: true, Value: ParseExpr(item)})
	}
	return t
}

// splitFields splits table fields on both ',' and ';'.
func splitFields(inner string) []string {
	var out []string
	for _, part := range SplitTopLevel(inner, ',') {
		out = append(out, SplitTopLevel(part, ';')...)
	}
	return out
}

// ParseTableExpr parses a full "{...}" constructor.
func ParseTableExpr(expr string) (*valueobject.Table, bool) {
	v := ParseExpr(expr)
	return v.AsTable()
}
