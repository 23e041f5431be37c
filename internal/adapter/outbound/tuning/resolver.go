package tuning

import (
	"regexp"
	"sort"
	"strings"

	"scriptdex/internal/domain/entity"
	"scriptdex/internal/domain/valueobject"
)

const (
	maxDepth    = 8
	maxKeyHops  = 16
	tuningDot   = "TUNING."
	exprStepKey = "<expr>"
)

var (
	symbolPattern  = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.]*$`)
	refPattern     = regexp.MustCompile(`TUNING\.([A-Za-z0-9_]+(?:\.[A-Za-z0-9_]+)*)|TUNING\[\s*["']([A-Za-z0-9_]+)["']\s*\]`)
	bracketPattern = regexp.MustCompile(`TUNING\[\s*["']([A-Za-z0-9_]+)["']\s*\]`)
)

// Resolver evaluates expressions against a tuning table. It is conservative: any part
// that is not provably numeric makes the whole expression unresolved. A Resolver is
// read-only and safe for concurrent use.
type Resolver struct {
	table *Table
}

// NewResolver wraps table. A nil table resolves only literal arithmetic.
func NewResolver(table *Table) *Resolver {
	if table == nil {
		table = NewTable()
	}
	return &Resolver{table: table}
}

// Table returns the underlying raw table.
func (r *Resolver) Table() *Table {
	return r.table
}

func normKey(ref string) string {
	return strings.TrimPrefix(strings.TrimSpace(ref), tuningDot)
}

// Resolve evaluates expr to a number.
func (r *Resolver) Resolve(expr string) (float64, bool) {
	return r.resolve(expr, maxDepth)
}

// Number resolves a single TUNING key.
func (r *Resolver) Number(key string) (float64, bool) {
	return r.resolve(tuningDot+normKey(key), maxDepth)
}

func (r *Resolver) resolve(ref string, depth int) (float64, bool) {
	if depth <= 0 {
		return 0, false
	}
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return 0, false
	}
	ref = bracketPattern.ReplaceAllString(ref, tuningDot+"$1")

	if symbolPattern.MatchString(ref) {
		return r.resolveSymbol(ref, depth)
	}
	return evaluate(ref, func(name string) (float64, bool) {
		return r.resolve(name, depth-1)
	})
}

func (r *Resolver) resolveSymbol(ref string, depth int) (float64, bool) {
	v, ok := r.table.Lookup(normKey(ref))
	if !ok {
		return 0, false
	}
	if f, ok := v.AsNumber(); ok {
		return f, true
	}
	if raw, ok := v.Raw(); ok && raw != "" && raw != ref {
		return r.resolve(raw, depth-1)
	}
	return 0, false
}

func rawText(v valueobject.ParsedValue, ok bool) string {
	if !ok {
		return ""
	}
	return v.Source()
}

// TraceKey follows key through symbol aliases until a number or an expression.
func (r *Resolver) TraceKey(key string) entity.KeyTrace {
	normalized := normKey(key)
	trace := entity.KeyTrace{Key: key, Normalized: normalized, Steps: []entity.TraceStep{}}
	visited := make(map[string]bool)
	cur := normalized

	for hop := 0; hop < maxKeyHops && cur != ""; hop++ {
		if visited[cur] {
			trace.Steps = append(trace.Steps, entity.TraceStep{Key: cur})
			trace.Note = "loop"
			break
		}
		visited[cur] = true

		v, ok := r.table.Lookup(cur)
		trace.Steps = append(trace.Steps, entity.TraceStep{Key: cur, Raw: rawText(v, ok)})
		if !ok {
			break
		}

		if f, isNum := v.AsNumber(); isNum {
			trace.Value = f
			trace.Chain = strings.Join(append(stepKeys(trace.Steps), valueobject.FormatNumber(f)), " -> ")
			return trace
		}

		raw, isExpr := v.Raw()
		if !isExpr {
			break
		}
		if symbolPattern.MatchString(raw) {
			cur = normKey(raw)
			continue
		}

		val, resolved := r.Resolve(raw)
		valText := "nil"
		if resolved {
			trace.Value = val
			valText = valueobject.FormatNumber(val)
		}
		trace.Steps = append(trace.Steps, entity.TraceStep{Key: exprStepKey, Raw: raw})
		trace.Chain = strings.Join(append(stepKeys(trace.Steps[:len(trace.Steps)-1]), raw, valText), " -> ")
		return trace
	}

	parts := stepKeys(trace.Steps)
	if trace.Note == "" {
		if val, ok := r.Number(normalized); ok {
			trace.Value = val
			parts = append(parts, valueobject.FormatNumber(val))
		}
	}
	trace.Chain = strings.Join(parts, " -> ")
	return trace
}

func stepKeys(steps []entity.TraceStep) []string {
	out := make([]string, 0, len(steps)+2)
	for _, s := range steps {
		if s.Key != "" {
			out = append(out, s.Key)
		}
	}
	return out
}

// Refs returns the TUNING keys referenced by expr in first-seen order.
func Refs(expr string) []string {
	var refs []string
	seen := make(map[string]bool)
	for _, m := range refPattern.FindAllStringSubmatch(expr, -1) {
		k := m[1]
		if k == "" {
			k = m[2]
		}
		if k != "" && !seen[k] {
			seen[k] = true
			refs = append(refs, k)
		}
	}
	return refs
}

// TraceExpr resolves expr and records the trace of every TUNING reference in it.
func (r *Resolver) TraceExpr(expr string) entity.TraceEntry {
	expr = strings.TrimSpace(expr)
	refs := Refs(expr)
	entry := entity.TraceEntry{
		Expr:         expr,
		ResolvedExpr: expr,
		Refs:         make(map[string]entity.KeyTrace, len(refs)),
	}
	for _, k := range refs {
		entry.Refs[k] = r.TraceKey(k)
	}
	if v, ok := r.Resolve(expr); ok {
		entry.Value = v
	}

	// longest first so TUNING.A does not rewrite the head of TUNING.A.B
	ordered := append([]string(nil), refs...)
	sort.SliceStable(ordered, func(i, j int) bool { return len(ordered[i]) > len(ordered[j]) })
	for _, k := range ordered {
		f, ok := entry.Refs[k].Value.(float64)
		if !ok {
			continue
		}
		num := valueobject.FormatNumber(f)
		quoted := regexp.QuoteMeta(k)
		dotted := regexp.MustCompile(`\bTUNING\.` + quoted + `\b(?:[^.]|$)`)
		entry.ResolvedExpr = replaceRef(dotted, entry.ResolvedExpr, num)
		bracket := regexp.MustCompile(`TUNING\[\s*["']` + quoted + `["']\s*\]`)
		entry.ResolvedExpr = bracket.ReplaceAllLiteralString(entry.ResolvedExpr, num)
	}

	var chains []string
	for _, k := range refs {
		if c := entry.Refs[k].Chain; c != "" {
			chains = append(chains, c)
		}
	}
	sort.Strings(chains)
	entry.ExprChain = strings.Join(chains, " ; ")
	return entry
}

// replaceRef substitutes num for every match of re, keeping the one trailing character
// the pattern consumes to assert the reference ends there.
func replaceRef(re *regexp.Regexp, s, num string) string {
	return re.ReplaceAllStringFunc(s, func(m string) string {
		tail := ""
		if last := m[len(m)-1]; !isRefChar(last) {
			tail = string(last)
		}
		return num + tail
	})
}

func isRefChar(b byte) bool {
	return b == '_' || b >= '0' && b <= '9' || b >= 'A' && b <= 'Z' || b >= 'a' && b <= 'z'
}
