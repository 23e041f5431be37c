package extractor

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"scriptdex/internal/adapter/outbound/luaparse"
	"scriptdex/internal/domain/entity"
)

var (
	testFuncPattern = regexp.MustCompile(`\btest\s*=\s*function\b`)
	returnExpr      = regexp.MustCompile(`\breturn\b\s*([\s\S]*?)\bend\b`)
	whitespaceRun   = regexp.MustCompile(`\s+`)

	parenGroup   = regexp.MustCompile(`\(([^()]+)\)`)
	orOnlyNames  = regexp.MustCompile(`^\s*names\.[A-Za-z0-9_]+(?:\s+or\s+names\.[A-Za-z0-9_]+)+\s*$`)
	namesRef     = regexp.MustCompile(`\bnames\.([A-Za-z0-9_]+)\b`)
	inlineOr     = regexp.MustCompile(`\bnames\.[A-Za-z0-9_]+\b(?:\s+or\s+names\.[A-Za-z0-9_]+\b)+`)
	notNamesRef  = regexp.MustCompile(`\bnot\s+names\.`)
	sumOrPattern = regexp.MustCompile(
		`\(+\s*names\.([A-Za-z0-9_]+)\s+and\s+names\.([A-Za-z0-9_]+)\s*(?:>=|>)\s*([0-9]+)\s*\)+\s+or\s+` +
			`\(+\s*names\.([A-Za-z0-9_]+)\s+and\s+names\.([A-Za-z0-9_]+)\s*(?:>=|>)\s*([0-9]+)\s*\)+\s+or\s+` +
			`\(+\s*names\.([A-Za-z0-9_]+)\s+and\s+names\.([A-Za-z0-9_]+)\s*\)+`)
	sumPlusPattern = regexp.MustCompile(
		`\(?\s*\(?\s*names\.([A-Za-z0-9_]+)\s*(?:or\s*0)?\s*\)?\s*\+\s*` +
			`\(?\s*names\.([A-Za-z0-9_]+)\s*(?:or\s*0)?\s*\)?\s*\)?\s*(>=|>)\s*([0-9]+)`)
	comparison  = regexp.MustCompile(`\b(tags|names)\.([A-Za-z0-9_]+)\s*(==|~=|<=|>=|<|>)\s*([^\s\)\]]+)`)
	presence    = regexp.MustCompile(`\b(tags|names)\.([A-Za-z0-9_]+)\b`)
	negPresence = regexp.MustCompile(`\bnot\s+(tags|names)\.([A-Za-z0-9_]+)\b`)
	compareOpAt = regexp.MustCompile(`^\s*(==|~=|<=|>=|<|>)`)
	endsWithNot = regexp.MustCompile(`\bnot$`)
)

// testReturnExpr extracts the boolean expression of `test = function(...) return X end`.
func testReturnExpr(body string) (string, bool) {
	loc := testFuncPattern.FindStringIndex(body)
	if loc == nil {
		return "", false
	}
	start := loc[1] - len("function")
	end := luaparse.FunctionEnd(body, start)
	if end < 0 {
		return "", false
	}
	clean := luaparse.StripComments(body[start:end])
	m := returnExpr.FindStringSubmatch(clean)
	if m == nil {
		return "", false
	}
	expr := whitespaceRun.ReplaceAllString(strings.TrimSpace(m[1]), " ")
	return expr, expr != ""
}

type span struct{ start, end int }

func (s span) within(o span) bool { return s.start >= o.start && s.end <= o.end }

// parseRuleConstraints decomposes a recipe test expression into the common name and tag
// predicates. Anything it cannot classify stays in Raw.
func parseRuleConstraints(expr string) entity.RuleConstraints {
	out := entity.RuleConstraints{
		Raw:      strings.TrimSpace(expr),
		Tags:     []entity.Constraint{},
		Names:    []entity.Constraint{},
		NamesAny: []entity.NamesAny{},
		NamesSum: []entity.NamesSum{},
		Unparsed: []string{},
	}
	if out.Raw == "" {
		return out
	}
	e := whitespaceRun.ReplaceAllString(out.Raw, " ")

	seen := make(map[string]bool)
	sumSeen := make(map[string]bool)
	orNames := make(map[string]bool)
	var orSpans []span

	addConstraint := func(scope, key, op string, value interface{}, text string) {
		id := scope + "|" + key + "|" + op + "|" + valueString(value)
		if seen[id] {
			return
		}
		seen[id] = true
		c := entity.Constraint{Key: key, Op: op, Value: value, Text: text}
		if scope == "tags" {
			out.Tags = append(out.Tags, c)
		} else {
			out.Names = append(out.Names, c)
		}
	}
	addSum := func(a, b string, minVal int, text string) {
		a, b = strings.TrimSpace(a), strings.TrimSpace(b)
		if a == "" || b == "" || a == b {
			return
		}
		pair := []string{a, b}
		sort.Strings(pair)
		id := pair[0] + "|" + pair[1] + "|" + strconv.Itoa(minVal)
		if sumSeen[id] {
			return
		}
		sumSeen[id] = true
		out.NamesSum = append(out.NamesSum, entity.NamesSum{Keys: []string{a, b}, Min: minVal, Text: text})
	}
	precededByNot := func(pos int) bool {
		return endsWithNot.MatchString(strings.TrimRight(e[:pos], " "))
	}

	for _, loc := range parenGroup.FindAllStringSubmatchIndex(e, -1) {
		body := e[loc[2]:loc[3]]
		if !orOnlyNames.MatchString(body) {
			continue
		}
		keys := submatches(namesRef, body)
		if len(keys) < 2 {
			continue
		}
		if precededByNot(loc[0]) {
			for _, k := range keys {
				addConstraint("names", k, "==", 0.0, "not names."+k)
			}
		} else {
			out.NamesAny = append(out.NamesAny, entity.NamesAny{Keys: keys, Text: strings.TrimSpace(body)})
		}
		for _, k := range keys {
			orNames[k] = true
		}
		orSpans = append(orSpans, span{loc[0], loc[1]})
	}

	for _, loc := range inlineOr.FindAllStringIndex(e, -1) {
		s := span{loc[0], loc[1]}
		covered := false
		for _, o := range orSpans {
			if s.within(o) {
				covered = true
				break
			}
		}
		body := e[loc[0]:loc[1]]
		if covered || notNamesRef.MatchString(body) || precededByNot(loc[0]) {
			continue
		}
		keys := submatches(namesRef, body)
		if len(keys) < 2 {
			continue
		}
		out.NamesAny = append(out.NamesAny, entity.NamesAny{Keys: keys, Text: strings.TrimSpace(body)})
		for _, k := range keys {
			orNames[k] = true
		}
		orSpans = append(orSpans, s)
	}

	for _, m := range sumOrPattern.FindAllStringSubmatch(e, -1) {
		a, a2, b, b2, x, y := m[1], m[2], m[4], m[5], m[7], m[8]
		if a != a2 || b != b2 {
			continue
		}
		if !((x == a && y == b) || (x == b && y == a)) {
			continue
		}
		addSum(a, b, 2, strings.TrimSpace(m[0]))
	}

	for _, m := range sumPlusPattern.FindAllStringSubmatch(e, -1) {
		n, err := strconv.Atoi(m[4])
		if err != nil {
			continue
		}
		if m[3] == ">" {
			n++
		}
		addSum(m[1], m[2], n, strings.TrimSpace(m[0]))
	}

	for _, m := range comparison.FindAllStringSubmatch(e, -1) {
		addConstraint(m[1], m[2], m[3], normalizeRHS(strings.TrimRight(m[4], ",")), m[0])
	}

	for _, loc := range presence.FindAllStringSubmatchIndex(e, -1) {
		if compareOpAt.MatchString(e[loc[1]:]) || precededByNot(loc[0]) {
			continue
		}
		addConstraint(e[loc[2]:loc[3]], e[loc[4]:loc[5]], ">", 0.0, e[loc[0]:loc[1]])
	}

	for _, m := range negPresence.FindAllStringSubmatch(e, -1) {
		addConstraint(m[1], m[2], "==", 0.0, m[0])
	}

	sumKeys := make(map[string]bool)
	for _, g := range out.NamesSum {
		for _, k := range g.Keys {
			sumKeys[k] = true
		}
	}
	if len(orNames) > 0 {
		filtered := out.Names[:0]
		for _, c := range out.Names {
			if orNames[c.Key] && (c.Op == ">" || c.Op == ">=") && nonPositive(c.Value) {
				continue
			}
			filtered = append(filtered, c)
		}
		out.Names = filtered
	}
	if len(sumKeys) > 0 {
		filtered := out.Names[:0]
		for _, c := range out.Names {
			rhs, isNum := c.Value.(float64)
			positive := (c.Op == ">" || c.Op == ">=") && (!isNum || rhs >= 0)
			if c.Op == "==" && isNum && rhs > 0 {
				positive = true
			}
			if sumKeys[c.Key] && positive {
				continue
			}
			filtered = append(filtered, c)
		}
		out.Names = filtered
	}
	return out
}

func submatches(re *regexp.Regexp, s string) []string {
	var out []string
	for _, m := range re.FindAllStringSubmatch(s, -1) {
		out = append(out, m[1])
	}
	return out
}

func normalizeRHS(rhs string) interface{} {
	if rhs == "nil" {
		return nil
	}
	if f, ok := luaparse.ParseNumber(rhs); ok {
		return f
	}
	return rhs
}

func nonPositive(v interface{}) bool {
	if v == nil {
		return true
	}
	f, ok := v.(float64)
	return ok && f <= 0
}

func valueString(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return "None"
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case string:
		return x
	}
	return ""
}
