package extractor

import (
	"context"
	"regexp"
	"strings"

	"scriptdex/internal/adapter/outbound/luaparse"
	"scriptdex/internal/domain/entity"
	"scriptdex/internal/domain/valueobject"
)

// Ingredient files in merge order. Earlier files win; later ones only fill gaps.
var ingredientPaths = []string{
	"scripts/ingredients.lua",
	"scripts/cooking.lua",
	"scripts/prefabs/oceanfishdef.lua",
}

const oceanFishPath = "scripts/prefabs/oceanfishdef.lua"

var (
	ingredientTablePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\blocal\s+ingredients\s*=\s*\{`),
		regexp.MustCompile(`\bingredients\s*=\s*\{`),
		regexp.MustCompile(`\bINGREDIENTS\s*=\s*\{`),
		regexp.MustCompile(`\bcooking\.ingredients\s*=\s*\{`),
	}
	cookingTablePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\blocal\s+cooking\s*=\s*\{`),
		regexp.MustCompile(`\bcooking\s*=\s*\{`),
	}
)

// IngredientExtractor reads the tag contributions of cookable items.
type IngredientExtractor struct{}

// NewIngredientExtractor creates the ingredient extractor.
func NewIngredientExtractor() *IngredientExtractor { return &IngredientExtractor{} }

// Kind implements Extractor.
func (e *IngredientExtractor) Kind() valueobject.ExtractorKind {
	return valueobject.ExtractorIngredient
}

// Extract implements Extractor.
func (e *IngredientExtractor) Extract(ctx context.Context, in Input) (*Result, error) {
	res := newResult(e.Kind())
	res.Ingredients = make(map[string]*entity.CookingIngredient)
	files := 0
	for _, p := range ingredientPaths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		content, ok := readOptional(in, p)
		if !ok {
			continue
		}
		files++
		rows, err := safeParse(ctx, e.Kind(), p, content, func(p, content string) (map[string]*entity.CookingIngredient, error) {
			text := luaparse.StripComments(content)
			if p == oceanFishPath {
				return parseOceanFish(p, text), nil
			}
			return parseIngredientFile(p, text), nil
		})
		if err != nil {
			reason := entity.ReasonParseError
			if _, isPanic := err.(panicError); isPanic {
				reason = entity.ReasonPanic
			}
			res.unresolved(e.Kind(), p, "", reason, err.Error())
			continue
		}
		mergeIngredients(res.Ingredients, rows)
	}
	return res.finish(files, len(res.Ingredients)), nil
}

// tableByPattern returns the table constructor that follows the first match of re.
func tableByPattern(text string, re *regexp.Regexp) (*valueobject.Table, bool) {
	loc := re.FindStringIndex(text)
	if loc == nil {
		return nil, false
	}
	inner, ok := luaparse.TableAfter(text, loc[1]-1)
	if !ok {
		return nil, false
	}
	return luaparse.ParseTable(inner), true
}

// namedTable finds `local name = {...}` or `name = {...}`.
func namedTable(text, name string) (*valueobject.Table, bool) {
	q := regexp.QuoteMeta(name)
	for _, re := range []*regexp.Regexp{
		regexp.MustCompile(`\blocal\s+` + q + `\s*=\s*\{`),
		regexp.MustCompile(`\b` + q + `\s*=\s*\{`),
	} {
		if t, ok := tableByPattern(text, re); ok {
			return t, true
		}
	}
	return nil, false
}

func findIngredientsTable(text string) (*valueobject.Table, bool) {
	for _, re := range ingredientTablePatterns {
		if t, ok := tableByPattern(text, re); ok {
			return t, true
		}
	}
	for _, re := range cookingTablePatterns {
		t, ok := tableByPattern(text, re)
		if !ok {
			continue
		}
		if v, ok := t.Get("ingredients"); ok {
			if ing, ok := v.AsTable(); ok {
				return ing, true
			}
		}
		break
	}
	return nil, false
}

// tagTable splits a tag table into numeric values and opaque expressions. Booleans count
// as 1 or 0 and positional names as 1.
func tagTable(t *valueobject.Table) (map[string]float64, map[string]string) {
	tags := make(map[string]float64)
	exprs := make(map[string]string)
	if t == nil {
		return tags, exprs
	}
	for _, e := range t.Entries {
		if e.Positional || e.KeyIsExpr {
			continue
		}
		k := strings.ToLower(strings.TrimSpace(e.Key))
		if k == "" {
			continue
		}
		if f, ok := e.Value.AsNumber(); ok {
			tags[k] = f
			continue
		}
		if b, ok := e.Value.AsBool(); ok {
			tags[k] = 0
			if b {
				tags[k] = 1
			}
			continue
		}
		if s, ok := e.Value.AsString(); ok {
			if f, ok := luaparse.ParseNumber(s); ok {
				tags[k] = f
				continue
			}
		}
		text, ok := e.Value.Text()
		if !ok {
			text = e.Value.Source()
		}
		exprs[k] = text
	}
	for _, v := range t.Array() {
		s, ok := v.AsString()
		if !ok {
			continue
		}
		k := strings.ToLower(strings.TrimSpace(s))
		if k == "" {
			continue
		}
		if _, dup := tags[k]; dup {
			continue
		}
		if _, dup := exprs[k]; dup {
			continue
		}
		tags[k] = 1
	}
	return tags, exprs
}

func newIngredient(id, source string, tags map[string]float64, exprs map[string]string) (*entity.CookingIngredient, bool) {
	if len(tags) == 0 && len(exprs) == 0 && source == "" {
		return nil, false
	}
	ing := &entity.CookingIngredient{ID: id, Tags: tags, Sources: []string{}}
	if len(exprs) > 0 {
		ing.TagsExpr = exprs
	}
	if source != "" {
		ing.Sources = []string{source}
	}
	return ing, true
}

func parseIngredientFile(p, text string) map[string]*entity.CookingIngredient {
	out := make(map[string]*entity.CookingIngredient)
	tbl, ok := findIngredientsTable(text)
	if !ok || tbl.Len() == 0 {
		parseAddIngredientValues(p, text, out)
		applyIngredientAliases(text, out)
		return out
	}
	for _, e := range tbl.Entries {
		if e.Positional {
			continue
		}
		id, ok := entity.CleanID(e.Key)
		if !ok {
			continue
		}
		var tags map[string]float64
		var exprs map[string]string
		foodtype := ""
		if row, ok := e.Value.AsTable(); ok {
			var tagTbl *valueobject.Table
			if v, ok := row.Get("tags"); ok {
				tagTbl, _ = v.AsTable()
			}
			tags, exprs = tagTable(tagTbl)
			if v, ok := row.Get("foodtype"); ok {
				foodtype, _ = v.Text()
			}
		}
		ing, ok := newIngredient(id, p, tags, exprs)
		if !ok {
			continue
		}
		if ing.Tags == nil {
			ing.Tags = map[string]float64{}
		}
		ing.FoodType = foodtype
		out[id] = ing
	}
	applyIngredientAliases(text, out)
	return out
}

// parseAddIngredientValues reads AddIngredientValues(names, tags, cancook, candry). Cookable
// and dryable ingredients also yield their _cooked and _dried variants.
func parseAddIngredientValues(p, text string, out map[string]*entity.CookingIngredient) {
	calls := luaparse.Calls(text, luaparse.CallOptions{Names: []string{"AddIngredientValues"}})
	tables := make(map[string]*valueobject.Table)
	resolveNames := func(expr string) []string {
		v := luaparse.ParseExpr(expr)
		if s, ok := v.AsString(); ok {
			return []string{s}
		}
		t, ok := v.AsTable()
		if !ok {
			raw, isExpr := v.Raw()
			raw = strings.TrimSpace(raw)
			if !isExpr || raw == "" {
				return nil
			}
			cached, seen := tables[raw]
			if !seen {
				cached, _ = namedTable(text, raw)
				tables[raw] = cached
			}
			t = cached
		}
		var names []string
		for _, n := range t.Array() {
			if s, ok := n.AsString(); ok {
				names = append(names, s)
			}
		}
		return names
	}

	for _, call := range calls {
		if len(call.ArgList) < 2 {
			continue
		}
		names := resolveNames(call.ArgList[0])
		if len(names) == 0 {
			continue
		}
		tagTbl, _ := luaparse.ParseTableExpr(call.ArgList[1])
		tags, exprs := tagTable(tagTbl)
		cancook := len(call.ArgList) >= 3 && luaBool(call.ArgList[2])
		candry := len(call.ArgList) >= 4 && luaBool(call.ArgList[3])

		for _, name := range names {
			id, ok := entity.CleanID(name)
			if !ok {
				continue
			}
			set := func(id string, extra string) {
				t := copyTags(tags)
				if extra != "" {
					t[extra] = 1
				}
				if ing, ok := newIngredient(id, p, t, copyExprs(exprs)); ok {
					out[id] = ing
				}
			}
			set(id, "")
			if cancook {
				set(id+"_cooked", "precook")
			}
			if candry {
				set(id+"_dried", "dried")
			}
		}
	}
}

func luaBool(expr string) bool {
	v := luaparse.ParseExpr(expr)
	if b, ok := v.AsBool(); ok {
		return b
	}
	if f, ok := v.AsNumber(); ok {
		return f != 0
	}
	return false
}

// applyIngredientAliases copies the target row for every `aliases = {alias = target}`
// entry whose alias has no row of its own.
func applyIngredientAliases(text string, out map[string]*entity.CookingIngredient) {
	aliases, ok := namedTable(text, "aliases")
	if !ok {
		return
	}
	for _, e := range aliases.Entries {
		if e.Positional {
			continue
		}
		alias, ok := entity.CleanID(e.Key)
		if !ok {
			continue
		}
		targetName, _ := e.Value.AsString()
		target, ok := entity.CleanID(targetName)
		if !ok {
			continue
		}
		if _, exists := out[alias]; exists {
			continue
		}
		src, ok := out[target]
		if !ok {
			continue
		}
		out[alias] = &entity.CookingIngredient{
			ID:       alias,
			Tags:     copyTags(src.Tags),
			TagsExpr: copyExprs(src.TagsExpr),
			FoodType: src.FoodType,
			Sources:  append([]string{}, src.Sources...),
		}
	}
}

// parseOceanFish reads FISH_DEFS entries with a cooker_ingredient_value. The inventory
// item of fish "x" is "x_inv".
func parseOceanFish(p, text string) map[string]*entity.CookingIngredient {
	out := make(map[string]*entity.CookingIngredient)
	defs, ok := namedTable(text, "FISH_DEFS")
	if !ok {
		return out
	}
	for _, e := range defs.Entries {
		row, ok := e.Value.AsTable()
		if !ok {
			continue
		}
		pv, _ := row.Get("prefab")
		prefab, _ := pv.AsString()
		prefab = strings.TrimSpace(prefab)
		if prefab == "" {
			continue
		}
		cv, ok := row.Get("cooker_ingredient_value")
		if !ok {
			continue
		}
		tagTbl, ok := cv.AsTable()
		if !ok {
			if raw, isExpr := cv.Raw(); isExpr {
				tagTbl, _ = namedTable(text, strings.TrimSpace(raw))
			}
		}
		tags, exprs := tagTable(tagTbl)
		if len(tags) == 0 && len(exprs) == 0 {
			continue
		}
		id, ok := entity.CleanID(prefab + "_inv")
		if !ok {
			continue
		}
		if ing, ok := newIngredient(id, p, tags, exprs); ok {
			out[id] = ing
		}
	}
	return out
}

// mergeIngredients folds extra into base. Existing rows keep their values; a tag is only
// overwritten when it is missing or zero.
func mergeIngredients(base, extra map[string]*entity.CookingIngredient) {
	for _, id := range entity.SortedKeys(extra) {
		row := extra[id]
		cur, ok := base[id]
		if !ok {
			base[id] = row
			continue
		}
		cur.Sources = entity.DedupPreserve(append(cur.Sources, row.Sources...))
		if cur.Tags == nil {
			cur.Tags = map[string]float64{}
		}
		for tag, v := range row.Tags {
			if old, ok := cur.Tags[tag]; !ok || old == 0 {
				cur.Tags[tag] = v
			}
		}
		for tag, v := range row.TagsExpr {
			if cur.TagsExpr == nil {
				cur.TagsExpr = map[string]string{}
			}
			if _, ok := cur.TagsExpr[tag]; !ok {
				cur.TagsExpr[tag] = v
			}
		}
		if cur.FoodType == "" {
			cur.FoodType = row.FoodType
		}
	}
}

func copyTags(in map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(in)+1)
	for k, v := range in {
		out[k] = v
	}
	return out
}

func copyExprs(in map[string]string) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
