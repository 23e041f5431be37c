// Package linker joins extractor outputs into the cross-referenced entity graph.
//
// Linking is a pure function of its inputs: every map is walked in sorted key order and
// the extractor results are never mutated, so linking the same results twice produces
// identical graphs.
package linker

import (
	"context"
	"strings"
	"time"

	"scriptdex/internal/adapter/outbound/extractor"
	"scriptdex/internal/adapter/outbound/tuning"
	"scriptdex/internal/application/common/slogger"
	"scriptdex/internal/domain/entity"
	"scriptdex/internal/domain/service"
	"scriptdex/internal/domain/valueobject"
)

// DefaultIconBase is the URL prefix of exported inventory icons.
const DefaultIconBase = "static/icons/"

// Options configures a link run.
type Options struct {
	Classifier *service.Classifier
	IconBase   string
}

// Results indexes extractor results by kind.
type Results map[valueobject.ExtractorKind]*extractor.Result

// get returns the result of kind, or an empty result when that extractor did not run.
func (r Results) get(kind valueobject.ExtractorKind) *extractor.Result {
	if res, ok := r[kind]; ok && res != nil {
		return res
	}
	return &extractor.Result{Kind: kind}
}

type linkState struct {
	opts     Options
	resolver *tuning.Resolver
	traces   map[string]entity.TraceEntry
	results  Results
}

// Link builds the entity graph. Only cancellation of ctx is returned as an error; data
// problems end up in the gaps report.
func Link(ctx context.Context, results Results, opts Options) (*entity.Graph, error) {
	start := time.Now()
	if opts.Classifier == nil {
		opts.Classifier = service.NewClassifier(nil)
	}
	if opts.IconBase == "" {
		opts.IconBase = DefaultIconBase
	}
	st := &linkState{
		opts:     opts,
		resolver: tuning.NewResolver(results.get(valueobject.ExtractorTuning).Tuning),
		traces:   make(map[string]entity.TraceEntry),
		results:  results,
	}

	catalog := entity.NewCatalog()
	catalog.Craft = st.craftDoc()
	catalog.Cooking = st.cookingDoc()
	catalog.CookingIngredients = st.ingredientDoc()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	items, assets := st.items(catalog)
	catalog.Items = items
	catalog.Assets = assets
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	loot := entity.SortedUnique(results.get(valueobject.ExtractorLoot).Loot)
	catalog.RecountStats(len(loot))

	links := embedReferences(catalog)
	components := results.get(valueobject.ExtractorComponent).Components
	if components == nil {
		components = map[string]*entity.Component{}
	}
	prefabRes := results.get(valueobject.ExtractorPrefab)
	prefabs := prefabRes.Prefabs
	if prefabs == nil {
		prefabs = map[string]*entity.PrefabRecord{}
	}

	graph := &entity.Graph{
		Catalog:     catalog,
		Components:  components,
		Prefabs:     prefabs,
		PrefabFiles: prefabRes.PrefabFiles,
		Links:       links,
		Traces:      st.traces,
		Farming:     st.farming(),
		I18n:        i18nIndex(results.get(valueobject.ExtractorStrings)),
		Icons:       iconIndex(results.get(valueobject.ExtractorIcons)),
		Loot:        loot,
	}
	graph.Gaps = gapsReport(graph, results)

	slogger.Info(ctx, "Linked entity graph", slogger.Fields{
		"items":           len(catalog.Items),
		"craft_recipes":   len(catalog.Craft.Recipes),
		"cooking_recipes": len(catalog.Cooking),
		"links":           len(links),
		"traces":          len(st.traces),
		"unresolved":      graph.Gaps.Counts.UnresolvedValues,
		"duration_ms":     time.Since(start).Milliseconds(),
	})
	return graph, nil
}

// resolveExpr turns a source expression into a Stat. Expressions that reference TUNING
// go through the tuning resolver and leave a trace entry under traceKey; literals are
// read directly; anything else keeps a nil value.
func (st *linkState) resolveExpr(expr, traceKey string) entity.Stat {
	expr = strings.TrimSpace(expr)
	out := entity.Stat{Expr: expr, ExprResolved: expr}
	if expr == "" {
		return out
	}
	if len(tuning.Refs(expr)) > 0 {
		entry := st.resolver.TraceExpr(expr)
		if traceKey != "" {
			st.traces[traceKey] = entry
			out.TraceKey = traceKey
		}
		out.Value = entry.Value
		if entry.ResolvedExpr != "" {
			out.ExprResolved = entry.ResolvedExpr
		}
		return out
	}
	switch expr {
	case "true":
		out.Value = true
		return out
	case "false":
		out.Value = false
		return out
	}
	if f, ok := parseLiteralNumber(expr); ok {
		out.Value = f
	}
	return out
}

func (st *linkState) craftDoc() entity.CraftDoc {
	res := st.results.get(valueobject.ExtractorCraft)
	doc := entity.NewCraftDoc()
	if res.CraftMeta != nil {
		if res.CraftMeta.FilterDefs != nil {
			doc.FilterDefs = res.CraftMeta.FilterDefs
		}
		if res.CraftMeta.FilterOrder != nil {
			doc.FilterOrder = res.CraftMeta.FilterOrder
		}
	}
	for _, name := range entity.SortedKeys(res.Recipes) {
		src := res.Recipes[name]
		if src == nil {
			continue
		}
		rec := *src
		rec.Ingredients = make([]entity.Ingredient, len(src.Ingredients))
		var unresolved []string
		for i, ing := range src.Ingredients {
			if len(tuning.Refs(ing.AmountExpr)) > 0 {
				s := st.resolveExpr(ing.AmountExpr, entity.CraftIngredientTraceKey(name, ing.ItemID))
				ing.TraceKey = s.TraceKey
				ing.AmountValue = nil
				if f, ok := s.NumericValue(); ok {
					ing.AmountValue = &f
				}
			}
			if ing.AmountValue == nil {
				unresolved = append(unresolved, ing.ItemID)
			}
			rec.Ingredients[i] = ing
		}
		rec.IngredientsUnresolved = entity.DedupPreserve(unresolved)
		doc.Recipes[name] = &rec
	}
	doc.BuildAliases()
	return doc
}

func (st *linkState) cookingDoc() map[string]*entity.CookingRecipe {
	res := st.results.get(valueobject.ExtractorCooking)
	out := make(map[string]*entity.CookingRecipe, len(res.Cooking))
	for _, name := range entity.SortedKeys(res.Cooking) {
		src := res.Cooking[name]
		if src == nil {
			continue
		}
		rec := *src
		fields := rec.StatFields()
		for _, field := range entity.SortedKeys(fields) {
			ptr := fields[field]
			if *ptr == nil {
				continue
			}
			cur := **ptr
			if len(tuning.Refs(cur.Expr)) > 0 {
				resolved := st.resolveExpr(cur.Expr, entity.CookingTraceKey(name, field))
				cur.Value = resolved.Value
				cur.ExprResolved = resolved.ExprResolved
				cur.TraceKey = resolved.TraceKey
			}
			*ptr = &cur
		}
		out[name] = &rec
	}
	return out
}

func (st *linkState) ingredientDoc() map[string]*entity.CookingIngredient {
	res := st.results.get(valueobject.ExtractorIngredient)
	out := make(map[string]*entity.CookingIngredient, len(res.Ingredients))
	for _, id := range entity.SortedKeys(res.Ingredients) {
		src := res.Ingredients[id]
		if src == nil {
			continue
		}
		ing := *src
		if ing.ID == "" {
			ing.ID = id
		}
		if ing.Tags == nil {
			ing.Tags = map[string]float64{}
		}
		if ing.Sources == nil {
			ing.Sources = []string{}
		}
		out[id] = &ing
	}
	return out
}

func i18nIndex(res *extractor.Result) *entity.I18nIndex {
	idx := &entity.I18nIndex{
		SchemaVersion: entity.I18nSchemaVersion,
		Langs:         entity.SortedKeys(res.Strings),
		Names:         make(map[string]map[string]string, len(res.Strings)),
		UI:            make(map[string]map[string]string, len(res.Strings)),
	}
	for _, lang := range idx.Langs {
		ls := res.Strings[lang]
		if ls == nil {
			continue
		}
		idx.Names[lang] = nonNilStrings(ls.Names)
		idx.UI[lang] = nonNilStrings(ls.UI)
	}
	return idx
}

func iconIndex(res *extractor.Result) *entity.IconIndex {
	idx := &entity.IconIndex{
		SchemaVersion: entity.IconIndexSchemaVersion,
		Icons:         res.Icons,
		Atlases:       entity.SortedUnique(res.Atlases),
	}
	if idx.Icons == nil {
		idx.Icons = map[string]entity.Icon{}
	}
	return idx
}

func nonNilStrings(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}
