// Package cooking evaluates cookpot recipes against partial or full pot contents.
package cooking

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"scriptdex/internal/domain/entity"
	"scriptdex/internal/domain/errors/domain"
)

// Scoring and enumeration constants.
const (
	PotSize           = 4
	TagPenalty        = 10.0
	NamePenalty       = 50.0
	MaxAvailableCombo = 15000
	DefaultLimit      = 200
	MaxLimit          = 2000
	DefaultReturnTop  = 25

	Formula = "score = priority*1000 + weight*100 - missing_penalty"

	fallbackRecipe = "wetgoop"
	eps            = 1e-9
)

// Rule modes.
const (
	ModeRule = "rule"
	ModeCard = "card"
	ModeNone = "none"
)

// Missing explains one unmet recipe condition.
type Missing struct {
	Type      string  `json:"type"`
	Key       string  `json:"key"`
	Op        string  `json:"op"`
	Required  float64 `json:"required"`
	Actual    float64 `json:"actual"`
	Delta     float64 `json:"delta"`
	Direction string  `json:"direction"`
	Text      string  `json:"text"`
}

// Row is one recipe evaluated against a pot.
type Row struct {
	Name     string    `json:"name"`
	Priority float64   `json:"priority"`
	Weight   float64   `json:"weight"`
	Score    float64   `json:"score"`
	Penalty  float64   `json:"penalty"`
	OK       bool      `json:"ok"`
	Missing  []Missing `json:"missing"`
	RuleMode string    `json:"rule_mode"`
	Warnings []string  `json:"warnings"`
}

// Candidate is a matching recipe in cookpot precedence order.
type Candidate struct {
	Name     string  `json:"name"`
	Priority float64 `json:"priority"`
	Weight   float64 `json:"weight"`
}

// SimulateRequest holds exactly four items.
type SimulateRequest struct {
	Slots map[string]float64 `json:"slots"`
}

// SimulateResult is the dish the pot produces plus the ranked alternatives.
type SimulateResult struct {
	Result     string         `json:"result"`
	Reason     string         `json:"reason"`
	Candidates []Candidate    `json:"candidates"`
	Cookable   []Row          `json:"cookable"`
	NearMiss   []Row          `json:"near_miss"`
	Slots      map[string]int `json:"slots"`
	Formula    string         `json:"formula"`
}

// ExploreRequest holds up to four items and optionally the items that may fill the rest.
type ExploreRequest struct {
	Slots     map[string]float64 `json:"slots"`
	Available []string           `json:"available"`
	Limit     int                `json:"limit"`
}

// ExploreResult lists recipes that can still be cooked and those that cannot.
type ExploreResult struct {
	Slots     map[string]int `json:"slots"`
	Total     int            `json:"total"`
	Remaining int            `json:"remaining"`
	Available []string       `json:"available,omitempty"`
	Cookable  []Row          `json:"cookable"`
	NearMiss  []Row          `json:"near_miss"`
	Formula   string         `json:"formula"`
}

// Planner evaluates the cooking recipes of one catalog.
type Planner struct {
	recipes     []*entity.CookingRecipe
	ingredients map[string]*entity.CookingIngredient
}

// NewPlanner indexes the catalog's cooking recipes by name.
func NewPlanner(c *entity.Catalog) *Planner {
	p := &Planner{ingredients: map[string]*entity.CookingIngredient{}}
	if c == nil {
		return p
	}
	for _, name := range entity.SortedKeys(c.Cooking) {
		if r := c.Cooking[name]; r != nil {
			p.recipes = append(p.recipes, r)
		}
	}
	if c.CookingIngredients != nil {
		p.ingredients = c.CookingIngredients
	}
	return p
}

// Simulate returns what a full pot cooks: the matching recipe with the highest
// priority, then weight, then name. With no match the pot yields wetgoop.
func (p *Planner) Simulate(req SimulateRequest) (*SimulateResult, error) {
	slots := normalizeSlots(req.Slots)
	if total := slotTotal(slots); total != PotSize {
		return nil, fmt.Errorf("%w: cookpot requires %d items, got %d", domain.ErrInvalidCookingRequest, PotSize, total)
	}
	ix := buildIndex(p.ingredients, entity.SortedKeys(slots))

	var matched []*entity.CookingRecipe
	var cookable, nearMiss []Row
	for _, r := range p.recipes {
		row, _ := p.evaluate(r, slots, ix)
		if row.OK {
			matched = append(matched, r)
			cookable = append(cookable, row)
		} else {
			nearMiss = append(nearMiss, row)
		}
	}

	if len(matched) == 0 {
		if !p.hasRecipe(fallbackRecipe) {
			return nil, fmt.Errorf("%w: no recipe matches and there is no %s", domain.ErrInvalidCookingRequest, fallbackRecipe)
		}
		return &SimulateResult{
			Result:     fallbackRecipe,
			Reason:     "fallback_wetgoop",
			Candidates: []Candidate{},
			Cookable:   []Row{},
			NearMiss:   []Row{},
			Slots:      slots,
			Formula:    Formula,
		}, nil
	}

	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if a.Weight != b.Weight {
			return a.Weight > b.Weight
		}
		return a.Name < b.Name
	})
	candidates := make([]Candidate, 0, min(len(matched), DefaultReturnTop))
	for _, r := range matched[:min(len(matched), DefaultReturnTop)] {
		candidates = append(candidates, Candidate{Name: r.Name, Priority: r.Priority, Weight: r.Weight})
	}
	return &SimulateResult{
		Result:     matched[0].Name,
		Reason:     "matched_constraints",
		Candidates: candidates,
		Cookable:   top(sortRows(cookable), DefaultReturnTop),
		NearMiss:   top(sortRows(nearMiss), DefaultReturnTop),
		Slots:      slots,
		Formula:    Formula,
	}, nil
}

// Explore ranks recipes for a partly filled pot. With an available list small enough
// to enumerate, each recipe is scored on its best completion; otherwise rule recipes are
// checked for whether the remaining slots could still satisfy them.
func (p *Planner) Explore(req ExploreRequest) (*ExploreResult, error) {
	slots := normalizeSlots(req.Slots)
	total := slotTotal(slots)
	if total > PotSize {
		return nil, fmt.Errorf("%w: cookpot holds at most %d items, got %d", domain.ErrInvalidCookingRequest, PotSize, total)
	}
	limit := req.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	limit = min(limit, MaxLimit)

	remaining := PotSize - total
	available := normalizeAvailable(req.Available)
	ix := buildIndex(p.ingredients, append(entity.SortedKeys(slots), available...))
	maxByTag := ix.maxByTag
	if len(available) > 0 {
		maxByTag = map[string]float64{}
		for _, id := range available {
			for tag, v := range ix.tags[id] {
				if cur, ok := maxByTag[tag]; !ok || v > cur {
					maxByTag[tag] = v
				}
			}
		}
	}

	res := &ExploreResult{
		Slots:     slots,
		Total:     total,
		Remaining: remaining,
		Available: available,
		Formula:   Formula,
	}

	if len(available) > 0 {
		if combos, ok := slotCombos(available, remaining, MaxAvailableCombo); ok {
			var cookable, nearMiss []Row
			for _, r := range p.recipes {
				var bestOK, bestAny *Row
				for _, combo := range combos {
					row, _ := p.evaluate(r, mergeSlots(slots, combo), ix)
					if bestAny == nil || row.Score > bestAny.Score {
						bestAny = &row
					}
					if row.OK && (bestOK == nil || row.Score > bestOK.Score) {
						bestOK = &row
					}
				}
				switch {
				case bestOK != nil:
					cookable = append(cookable, *bestOK)
				case bestAny != nil:
					nearMiss = append(nearMiss, *bestAny)
				}
			}
			res.Cookable = top(sortRows(cookable), limit)
			res.NearMiss = top(sortRows(nearMiss), limit)
			return res, nil
		}
	}

	var availableNames map[string]bool
	if len(available) > 0 {
		availableNames = make(map[string]bool, len(available))
		for _, id := range available {
			availableNames[id] = true
		}
	}
	var cookable, nearMiss []Row
	for _, r := range p.recipes {
		row, totals := p.evaluate(r, slots, ix)
		switch {
		case row.RuleMode == ModeRule:
			if possible(ruleConstraints(r), totals, remaining, maxByTag, availableNames) {
				cookable = append(cookable, row)
			} else {
				nearMiss = append(nearMiss, row)
			}
		case row.RuleMode == ModeCard && total == PotSize && row.OK:
			cookable = append(cookable, row)
		default:
			nearMiss = append(nearMiss, row)
		}
	}
	res.Cookable = top(sortRows(cookable), limit)
	res.NearMiss = top(sortRows(nearMiss), limit)
	return res, nil
}

func (p *Planner) hasRecipe(name string) bool {
	for _, r := range p.recipes {
		if r.Name == name {
			return true
		}
	}
	return false
}

// potTotals are the summed tag values and item counts of a pot.
type potTotals struct {
	tags  map[string]float64
	names map[string]int
}

// evaluate scores recipe r against slots. A rule takes precedence over a card.
func (p *Planner) evaluate(r *entity.CookingRecipe, slots map[string]int, ix *ingredientIndex) (Row, potTotals) {
	row := Row{Name: r.Name, Priority: r.Priority, Weight: r.Weight, Missing: []Missing{}, Warnings: []string{}}
	totals := potTotals{tags: map[string]float64{}, names: sumNames(slots)}

	switch {
	case r.Rule != nil:
		row.RuleMode = ModeRule
		totals.tags = ix.sumTags(slots)
		row.Missing, row.Warnings = evaluateRule(ruleConstraints(r), totals)
	case len(r.CardIngredients) > 0:
		row.RuleMode = ModeCard
		for _, ci := range r.CardIngredients {
			have := float64(slots[ci.Item])
			if ci.Item != "" && have+eps < ci.Count {
				row.Missing = append(row.Missing, Missing{
					Type: "name", Key: ci.Item, Op: ">=",
					Required: ci.Count, Actual: have, Delta: ci.Count - have, Direction: "under",
				})
			}
		}
	default:
		row.RuleMode = ModeNone
		row.Warnings = append(row.Warnings, "no_rule_or_card_ingredients")
	}

	row.OK = row.RuleMode != ModeNone && len(row.Missing) == 0
	row.Score, row.Penalty = score(r.Priority, r.Weight, row.Missing)
	return row, totals
}

// ruleConstraints returns r's constraints. A positive presence check is dropped for a
// key that the rule also negates.
func ruleConstraints(r *entity.CookingRecipe) entity.RuleConstraints {
	if r.Rule == nil {
		return entity.RuleConstraints{}
	}
	c := r.Rule.Constraints
	negated := map[string]bool{}
	for _, t := range c.Tags {
		if strings.HasPrefix(strings.ToLower(strings.TrimSpace(t.Text)), "not ") {
			negated[strings.ToLower(t.Key)] = true
		}
	}
	if len(negated) == 0 {
		return c
	}
	tags := make([]entity.Constraint, 0, len(c.Tags))
	for _, t := range c.Tags {
		text := strings.ToLower(strings.TrimSpace(t.Text))
		if negated[strings.ToLower(t.Key)] && !strings.HasPrefix(text, "not ") && (t.Op == ">" || t.Op == ">=") {
			continue
		}
		tags = append(tags, t)
	}
	c.Tags = tags
	return c
}

func evaluateRule(c entity.RuleConstraints, totals potTotals) ([]Missing, []string) {
	missing := []Missing{}
	warnings := []string{}

	check := func(kind string, cons []entity.Constraint, lhsOf func(string) float64) {
		for _, con := range cons {
			key := strings.ToLower(strings.TrimSpace(con.Key))
			rhs, ok := constraintValue(con.Value)
			if key == "" || !ok {
				w := con.Text
				if w == "" {
					w = kind + "_constraint_unparsed"
				}
				warnings = append(warnings, w)
				continue
			}
			lhs := lhsOf(key)
			if compare(lhs, con.Op, rhs) {
				continue
			}
			delta, dir := constraintDelta(lhs, con.Op, rhs)
			missing = append(missing, Missing{
				Type: kind, Key: key, Op: con.Op, Required: rhs, Actual: lhs,
				Delta: delta, Direction: dir, Text: con.Text,
			})
		}
	}
	check("tag", c.Tags, func(k string) float64 { return totals.tags[k] })
	check("name", c.Names, func(k string) float64 { return float64(totals.names[k]) })

	for _, group := range c.NamesAny {
		found := false
		for _, k := range group.Keys {
			if totals.names[strings.ToLower(k)] > 0 {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, Missing{
				Type: "name", Key: strings.Join(group.Keys, "|"), Op: ">", Required: 1, Actual: 0,
				Delta: 1, Direction: "under", Text: group.Text,
			})
		}
	}
	for _, s := range c.NamesSum {
		have := 0
		for _, k := range s.Keys {
			have += totals.names[strings.ToLower(k)]
		}
		if have < s.Min {
			missing = append(missing, Missing{
				Type: "name", Key: strings.Join(s.Keys, "+"), Op: ">=", Required: float64(s.Min), Actual: float64(have),
				Delta: float64(s.Min - have), Direction: "under", Text: s.Text,
			})
		}
	}
	return missing, warnings
}

// possible reports whether the remaining slots could still satisfy every constraint.
func possible(c entity.RuleConstraints, totals potTotals, remaining int, maxByTag map[string]float64, availableNames map[string]bool) bool {
	rem := float64(max(0, remaining))
	feasible := func(lhs, maxAdd float64, op string, rhs float64) bool {
		maxPossible := lhs + maxAdd
		switch op {
		case ">":
			return maxPossible > rhs+eps
		case ">=":
			return maxPossible+eps >= rhs
		case "<":
			return lhs+eps < rhs
		case "<=":
			return lhs <= rhs+eps
		case "==":
			return rhs >= lhs-eps && rhs <= maxPossible+eps
		case "~=":
			return math.Abs(lhs-rhs) > eps || maxAdd > eps
		}
		return true
	}

	for _, con := range c.Tags {
		key := strings.ToLower(strings.TrimSpace(con.Key))
		rhs, ok := constraintValue(con.Value)
		if key == "" || !ok {
			continue
		}
		if !feasible(totals.tags[key], maxByTag[key]*rem, con.Op, rhs) {
			return false
		}
	}
	for _, con := range c.Names {
		key := strings.ToLower(strings.TrimSpace(con.Key))
		rhs, ok := constraintValue(con.Value)
		if key == "" || !ok {
			continue
		}
		lhs := float64(totals.names[key])
		if availableNames != nil && rhs > 0 && (con.Op == ">" || con.Op == ">=" || con.Op == "==") && !availableNames[key] && lhs == 0 {
			return false
		}
		if !feasible(lhs, rem, con.Op, rhs) {
			return false
		}
	}
	for _, group := range c.NamesAny {
		present := false
		for _, k := range group.Keys {
			k = strings.ToLower(k)
			if totals.names[k] > 0 || (rem > 0 && (availableNames == nil || availableNames[k])) {
				present = true
				break
			}
		}
		if !present {
			return false
		}
	}
	for _, s := range c.NamesSum {
		have := 0
		for _, k := range s.Keys {
			have += totals.names[strings.ToLower(k)]
		}
		if float64(have)+rem < float64(s.Min) {
			return false
		}
	}
	return true
}

func compare(lhs float64, op string, rhs float64) bool {
	switch op {
	case "==":
		return math.Abs(lhs-rhs) <= eps
	case "~=":
		return math.Abs(lhs-rhs) > eps
	case ">":
		return lhs > rhs+eps
	case ">=":
		return lhs+eps >= rhs
	case "<":
		return lhs+eps < rhs
	case "<=":
		return lhs <= rhs+eps
	}
	return true
}

func constraintDelta(lhs float64, op string, rhs float64) (float64, string) {
	switch op {
	case ">", ">=":
		return math.Max(0, rhs-lhs), "under"
	case "<", "<=":
		return math.Max(0, lhs-rhs), "over"
	case "==":
		return math.Abs(lhs - rhs), "mismatch"
	case "~=":
		if math.Abs(lhs-rhs) > eps {
			return 0, "equal"
		}
		return 1, "equal"
	}
	return 0, "unknown"
}

// constraintValue reads a constraint's right-hand side. nil compares as 0.
func constraintValue(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case nil:
		return 0, true
	case float64:
		return x, true
	case int:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	}
	return 0, false
}

func score(priority, weight float64, missing []Missing) (float64, float64) {
	penalty := 0.0
	for _, m := range missing {
		switch m.Type {
		case "tag":
			penalty += m.Delta * TagPenalty
		case "name":
			penalty += m.Delta * NamePenalty
		}
	}
	return priority*1000 + weight*100 - penalty, penalty
}

func normalizeSlots(in map[string]float64) map[string]int {
	out := map[string]int{}
	for k, v := range in {
		key := strings.ToLower(strings.TrimSpace(k))
		n := int(math.Round(v))
		if key == "" || v <= 0 || n <= 0 {
			continue
		}
		out[key] += n
	}
	return out
}

func normalizeAvailable(items []string) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, item := range items {
		id := strings.ToLower(strings.TrimSpace(item))
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func slotTotal(slots map[string]int) int {
	n := 0
	for _, v := range slots {
		n += v
	}
	return n
}

func sumNames(slots map[string]int) map[string]int {
	out := make(map[string]int, len(slots))
	for k, v := range slots {
		out[k] += v
	}
	return out
}

func mergeSlots(base, extra map[string]int) map[string]int {
	out := make(map[string]int, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] += v
	}
	return out
}

// comboCount is the number of size-k multisets over n items.
func comboCount(n, k int) int {
	if k <= 0 {
		return 1
	}
	if n <= 0 {
		return 0
	}
	num, den := 1, 1
	for i := 1; i <= k; i++ {
		num *= n + i - 1
		den *= i
	}
	return num / den
}

// slotCombos enumerates every multiset of size remaining over items. It reports false
// when there would be more than limit.
func slotCombos(items []string, remaining, limit int) ([]map[string]int, bool) {
	if remaining <= 0 {
		return []map[string]int{{}}, true
	}
	if len(items) == 0 {
		return nil, true
	}
	if comboCount(len(items), remaining) > limit {
		return nil, false
	}
	var out []map[string]int
	cur := map[string]int{}
	var walk func(start, rem int)
	walk = func(start, rem int) {
		if rem == 0 {
			combo := make(map[string]int, len(cur))
			for k, v := range cur {
				combo[k] = v
			}
			out = append(out, combo)
			return
		}
		for i := start; i < len(items); i++ {
			cur[items[i]]++
			walk(i, rem-1)
			if cur[items[i]]--; cur[items[i]] == 0 {
				delete(cur, items[i])
			}
		}
	}
	walk(0, remaining)
	return out, true
}

func sortRows(rows []Row) []Row {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Score != rows[j].Score {
			return rows[i].Score > rows[j].Score
		}
		return rows[i].Name < rows[j].Name
	})
	return rows
}

func top(rows []Row, n int) []Row {
	if rows == nil {
		return []Row{}
	}
	if len(rows) > n {
		return rows[:n]
	}
	return rows
}
