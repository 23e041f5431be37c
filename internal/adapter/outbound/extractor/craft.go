package extractor

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"scriptdex/internal/adapter/outbound/luaparse"
	"scriptdex/internal/domain/entity"
	"scriptdex/internal/domain/valueobject"
)

const (
	recipesPath       = "scripts/recipes.lua"
	recipes2Path      = "scripts/recipes2.lua"
	recipesFilterPath = "scripts/recipes_filter.lua"
	unknownCraftValue = "UNKNOWN"
)

var (
	techToken         = regexp.MustCompile(`\bTECH\.[A-Z0-9_]+\b`)
	tabToken          = regexp.MustCompile(`\bRECIPETABS\.[A-Z0-9_]+\b`)
	filterToken       = regexp.MustCompile(`\bCRAFTING_FILTERS\.([A-Z0-9_]+)\b`)
	quotedUpper       = regexp.MustCompile(`["']([A-Z0-9_]+)["']`)
	filterAssign      = regexp.MustCompile(`\bCRAFTING_FILTERS\.([A-Z0-9_]+)\.recipes\s*=\s*\{`)
	quotedString      = regexp.MustCompile(`(["'])([^"']+)["']`)
	specialFilterTabs = map[string]bool{
		"FAVORITES": true, "CRAFTING_STATION": true, "SPECIAL_EVENT": true,
		"MODS": true, "CHARACTER": true, "EVERYTHING": true,
	}
)

// CraftExtractor reads crafting recipes and the crafting menu filters.
type CraftExtractor struct{}

// NewCraftExtractor creates the craft extractor.
func NewCraftExtractor() *CraftExtractor { return &CraftExtractor{} }

// Kind implements Extractor.
func (e *CraftExtractor) Kind() valueobject.ExtractorKind { return valueobject.ExtractorCraft }

// Extract implements Extractor.
func (e *CraftExtractor) Extract(ctx context.Context, in Input) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res := newResult(e.Kind())
	res.Recipes = make(map[string]*entity.CraftRecipe)
	files := 0

	sources := []struct {
		path  string
		names []string
	}{
		{recipesPath, []string{"Recipe", "Recipe2"}},
		{recipes2Path, []string{"AddRecipe2"}},
	}
	for _, src := range sources {
		content, ok := readOptional(in, src.path)
		if !ok {
			continue
		}
		files++
		clean := luaparse.StripComments(content)
		for _, call := range luaparse.Calls(clean, luaparse.CallOptions{Names: src.names}) {
			rec := parseRecipeCall(call.Name, call.ArgList)
			if rec == nil {
				res.unresolved(e.Kind(), src.path, "", entity.ReasonUnparsedArgs, call.Name+"("+call.Args+")")
				continue
			}
			rec.Files = []string{src.path}
			if cur, ok := res.Recipes[rec.Name]; ok {
				mergeRecipe(cur, rec)
			} else {
				res.Recipes[rec.Name] = rec
			}
		}
	}

	meta := &CraftMeta{FilterDefs: []map[string]interface{}{}, FilterOrder: []string{}}
	var lists map[string][]string
	var bindings map[string][]string
	if content, ok := readOptional(in, recipesFilterPath); ok {
		files++
		clean := luaparse.StripComments(content)
		meta.FilterDefs = parseFilterDefs(clean)
		for _, d := range meta.FilterDefs {
			if name, ok := d["name"].(string); ok && name != "" {
				meta.FilterOrder = append(meta.FilterOrder, strings.ToUpper(name))
			}
		}
		lists = parseFilterRecipeLists(clean)
		bindings = parseFilterBindings(clean)
	}
	res.CraftMeta = meta
	finalizeRecipes(res.Recipes, meta.FilterOrder, lists, bindings)
	return res.finish(files, len(res.Recipes)), nil
}

func newCraftRecipe(name string) *entity.CraftRecipe {
	return &entity.CraftRecipe{
		Name:                  name,
		Product:               name,
		Ingredients:           []entity.Ingredient{},
		IngredientsUnresolved: []string{},
		Tech:                  unknownCraftValue,
		Tab:                   unknownCraftValue,
		Filters:               []string{},
		BuilderTags:           []string{},
		Sources:               []string{},
	}
}

// parseRecipeCall reads Recipe(name, ingredients, tech, config...) in any of its three
// spellings.
func parseRecipeCall(callName string, args []string) *entity.CraftRecipe {
	if len(args) == 0 {
		return nil
	}
	name, ok := luaparse.ParseString(args[0])
	if !ok || name == "" {
		return nil
	}
	rec := newCraftRecipe(name)
	rec.Sources = append(rec.Sources, callName)

	if len(args) >= 2 {
		rec.Ingredients, rec.IngredientsUnresolved = parseIngredients(args[1])
	}

	tech := ""
	if len(args) >= 3 {
		tech = techToken.FindString(args[2])
	}
	if tech == "" {
		tech = techToken.FindString(strings.Join(args, " "))
	}
	if tech != "" {
		rec.Tech = tech
	}
	if tab := tabToken.FindString(strings.Join(args, " ")); tab != "" {
		rec.Tab = tab
	}

	for _, a := range args[min(2, len(args)):] {
		a = strings.TrimSpace(a)
		if strings.HasPrefix(a, "{") && strings.Contains(a, "=") {
			if tbl, ok := luaparse.ParseTableExpr(a); ok {
				applyRecipeConfig(rec, tbl)
				continue
			}
		}
		rec.Filters = entity.DedupPreserve(append(rec.Filters, filtersInText(a)...))
	}
	if rec.BuilderTag != "" {
		rec.BuilderTags = entity.DedupPreserve(append(rec.BuilderTags, rec.BuilderTag))
	}
	return rec
}

// parseIngredients reads Ingredient("item", amount) calls. Amounts that are not
// numeric literals keep only their expression until the tuning resolver runs.
func parseIngredients(expr string) ([]entity.Ingredient, []string) {
	out := []entity.Ingredient{}
	var unresolved []string
	for _, call := range luaparse.Calls(expr, luaparse.CallOptions{Names: []string{"Ingredient"}}) {
		if len(call.ArgList) == 0 {
			continue
		}
		item := strings.TrimSpace(call.ArgList[0])
		if s, ok := luaparse.ParseString(item); ok {
			item = s
		}
		amount := "1"
		if len(call.ArgList) >= 2 {
			amount = strings.TrimSpace(call.ArgList[1])
		}
		ing := entity.Ingredient{ItemID: item, AmountExpr: amount}
		if f, ok := luaparse.ParseNumber(amount); ok {
			ing.AmountValue = &f
		} else {
			unresolved = append(unresolved, item)
		}
		out = append(out, ing)
	}
	return out, entity.DedupPreserve(unresolved)
}

func applyRecipeConfig(rec *entity.CraftRecipe, tbl *valueobject.Table) {
	str := func(key string) string {
		v, ok := tbl.Get(key)
		if !ok {
			return ""
		}
		s, _ := v.Text()
		return s
	}
	fill := func(dst *string, key string) {
		if *dst == "" {
			*dst = str(key)
		}
	}
	fill(&rec.BuilderTag, "builder_tag")
	fill(&rec.BuilderSkill, "builder_skill")
	fill(&rec.StationTag, "station_tag")
	fill(&rec.Placer, "placer")
	fill(&rec.Image, "image")
	fill(&rec.Atlas, "atlas")
	if p := str("product"); p != "" {
		rec.Product = p
	}
	if v, ok := tbl.Get("numtogive"); ok && rec.NumToGive == nil {
		if f, ok := v.AsNumber(); ok {
			rec.NumToGive = &f
		}
	}
	if v, ok := tbl.Get("nounlock"); ok && rec.NoUnlock == nil {
		if b, ok := v.AsBool(); ok {
			rec.NoUnlock = &b
		}
	}
	if v, ok := tbl.Get("builder_tags"); ok {
		if list, ok := v.AsTable(); ok {
			for _, t := range list.Array() {
				if s, ok := t.Text(); ok {
					rec.BuilderTags = append(rec.BuilderTags, s)
				}
			}
			rec.BuilderTags = entity.DedupPreserve(rec.BuilderTags)
		}
	}
}

func filtersInText(text string) []string {
	var out []string
	for _, m := range filterToken.FindAllStringSubmatch(text, -1) {
		out = append(out, m[1])
	}
	for _, m := range quotedUpper.FindAllStringSubmatch(text, -1) {
		out = append(out, m[1])
	}
	return entity.DedupPreserve(out)
}

// mergeRecipe folds a later declaration of the same recipe into cur: lists are
// unioned, the first non-empty ingredient list wins and empty scalars are filled.
func mergeRecipe(cur, next *entity.CraftRecipe) {
	cur.Sources = entity.DedupPreserve(append(cur.Sources, next.Sources...))
	cur.Files = entity.DedupPreserve(append(cur.Files, next.Files...))
	if len(cur.Ingredients) == 0 && len(next.Ingredients) > 0 {
		cur.Ingredients = next.Ingredients
	}
	cur.IngredientsUnresolved = entity.DedupPreserve(append(cur.IngredientsUnresolved, next.IngredientsUnresolved...))
	cur.Filters = entity.DedupPreserve(append(cur.Filters, next.Filters...))
	cur.BuilderTags = entity.DedupPreserve(append(cur.BuilderTags, next.BuilderTags...))

	fillUnknown := func(dst *string, src string) {
		if (*dst == "" || *dst == unknownCraftValue) && src != "" && src != unknownCraftValue {
			*dst = src
		}
	}
	fillUnknown(&cur.Tech, next.Tech)
	fillUnknown(&cur.Tab, next.Tab)
	fillUnknown(&cur.BuilderTag, next.BuilderTag)
	fillUnknown(&cur.BuilderSkill, next.BuilderSkill)
	fillUnknown(&cur.StationTag, next.StationTag)
	fillUnknown(&cur.Image, next.Image)
	fillUnknown(&cur.Atlas, next.Atlas)
	fillUnknown(&cur.Placer, next.Placer)
	if cur.Product == cur.Name && next.Product != next.Name {
		cur.Product = next.Product
	}
	if cur.NumToGive == nil {
		cur.NumToGive = next.NumToGive
	}
	if cur.NoUnlock == nil {
		cur.NoUnlock = next.NoUnlock
	}
}

// parseFilterDefs reads the ordered CRAFTING_FILTER_DEFS list.
func parseFilterDefs(clean string) []map[string]interface{} {
	out := []map[string]interface{}{}
	idx := strings.Index(clean, "CRAFTING_FILTER_DEFS")
	if idx < 0 {
		return out
	}
	brace := strings.IndexByte(clean[idx:], '{')
	if brace < 0 {
		return out
	}
	body, ok := luaparse.TableAfter(clean, idx+brace)
	if !ok {
		return out
	}
	for _, entry := range luaparse.ParseTable(body).Array() {
		tbl, ok := entry.AsTable()
		if !ok {
			continue
		}
		d := make(map[string]interface{})
		for _, k := range tbl.Keys() {
			v, _ := tbl.Get(k)
			d[k] = v.Plain()
		}
		if len(d) > 0 {
			out = append(out, d)
		}
	}
	return out
}

// parseFilterRecipeLists reads CRAFTING_FILTERS.X.recipes = {...} assignments.
func parseFilterRecipeLists(clean string) map[string][]string {
	out := make(map[string][]string)
	for _, loc := range filterAssign.FindAllStringSubmatchIndex(clean, -1) {
		name := strings.ToUpper(clean[loc[2]:loc[3]])
		body, ok := luaparse.TableAfter(clean, loc[1]-1)
		if !ok {
			continue
		}
		var names []string
		for _, m := range quotedString.FindAllStringSubmatch(body, -1) {
			names = append(names, m[2])
		}
		out[name] = entity.DedupPreserve(names)
	}
	return out
}

// parseFilterBindings reads AddRecipeToFilter(s) calls into recipe -> filters.
func parseFilterBindings(clean string) map[string][]string {
	out := make(map[string][]string)
	for _, call := range luaparse.Calls(clean, luaparse.CallOptions{Names: []string{"AddRecipeToFilter", "AddRecipeToFilters"}}) {
		recipe := ""
		for _, a := range call.ArgList {
			if s, ok := luaparse.ParseString(a); ok && s != strings.ToUpper(s) {
				recipe = s
				break
			}
		}
		if recipe == "" {
			for _, a := range call.ArgList {
				if s, ok := luaparse.ParseString(a); ok && s != "" {
					recipe = s
					break
				}
			}
		}
		if recipe == "" {
			continue
		}
		var filters []string
		for _, a := range call.ArgList {
			filters = append(filters, filtersInText(a)...)
		}
		if len(filters) > 0 {
			out[recipe] = entity.DedupPreserve(append(out[recipe], filters...))
		}
	}
	return out
}

// finalizeRecipes applies filter membership and derives each recipe's tab: the first
// non-special filter in menu order, else any filter in menu order.
func finalizeRecipes(recipes map[string]*entity.CraftRecipe, order []string, lists, bindings map[string][]string) {
	membership := make(map[string]map[string]bool, len(recipes))
	for name, rec := range recipes {
		set := make(map[string]bool)
		for _, f := range rec.Filters {
			set[strings.ToUpper(f)] = true
		}
		membership[name] = set
	}
	for _, flt := range sortedStringKeys(lists) {
		for _, r := range lists[flt] {
			if set, ok := membership[r]; ok {
				set[flt] = true
			}
		}
	}
	for _, r := range sortedStringKeys(bindings) {
		if set, ok := membership[r]; ok {
			for _, f := range bindings[r] {
				set[strings.ToUpper(f)] = true
			}
		}
	}

	for name, rec := range recipes {
		set := membership[name]
		rec.Filters = sortedStringKeys(set)
		chosen := ""
		for _, f := range order {
			if set[f] && !specialFilterTabs[f] {
				chosen = f
				break
			}
		}
		if chosen == "" {
			for _, f := range order {
				if set[f] {
					chosen = f
					break
				}
			}
		}
		if chosen != "" {
			rec.Tab = chosen
		}
		if rec.Tab == "" {
			rec.Tab = unknownCraftValue
		}
		if rec.BuilderTag != "" {
			rec.BuilderTags = entity.DedupPreserve(append(rec.BuilderTags, rec.BuilderTag))
		}
		if rec.BuilderTags == nil {
			rec.BuilderTags = []string{}
		}
		sort.Strings(rec.Files)
	}
}
