package linker

import (
	"sort"

	"scriptdex/internal/domain/entity"
	"scriptdex/internal/domain/valueobject"
)

// targetID normalizes a referenced id. References that are not valid ids keep their raw
// text so that they surface as unresolved links instead of disappearing.
func targetID(raw string) string {
	if id, ok := entity.CleanID(raw); ok {
		return id
	}
	return raw
}

// embedReferences fills the back-reference lists of every item and returns the matching
// sorted link list. Each embedded reference corresponds to exactly one link.
func embedReferences(c *entity.Catalog) []entity.Link {
	var links []entity.Link
	producedBy := map[string][]string{}
	usedIn := map[string][]string{}
	cookingUsedIn := map[string][]string{}

	for _, name := range entity.SortedKeys(c.Craft.Recipes) {
		rec := c.Craft.Recipes[name]
		if rec.Product != "" {
			product := targetID(rec.Product)
			links = append(links, entity.Link{
				SourceKind: entity.LinkKindCraftRecipe, SourceID: name,
				TargetKind: entity.LinkKindItem, TargetID: product,
				Relation: entity.RelationProduct,
			})
			producedBy[product] = append(producedBy[product], name)
		}
		for _, ing := range rec.Ingredients {
			if ing.ItemID == "" {
				continue
			}
			item := targetID(ing.ItemID)
			links = append(links, entity.Link{
				SourceKind: entity.LinkKindCraftRecipe, SourceID: name,
				TargetKind: entity.LinkKindItem, TargetID: item,
				Relation: entity.RelationIngredient,
			})
			usedIn[item] = append(usedIn[item], name)
		}
	}

	for _, name := range entity.SortedKeys(c.Cooking) {
		for _, ci := range c.Cooking[name].CardIngredients {
			if ci.Item == "" {
				continue
			}
			item := targetID(ci.Item)
			links = append(links, entity.Link{
				SourceKind: entity.LinkKindCookingRecipe, SourceID: name,
				TargetKind: entity.LinkKindItem, TargetID: item,
				Relation: entity.RelationCardIngredient,
			})
			cookingUsedIn[item] = append(cookingUsedIn[item], name)
		}
	}

	for _, id := range entity.SortedKeys(c.Items) {
		item := c.Items[id]
		item.ProducedBy = entity.SortedUnique(producedBy[id])
		item.UsedIn = entity.SortedUnique(usedIn[id])
		item.CookingUsedIn = entity.SortedUnique(cookingUsedIn[id])

		for _, comp := range item.Components {
			links = append(links, entity.Link{
				SourceKind: entity.LinkKindItem, SourceID: id,
				TargetKind: entity.LinkKindComponent, TargetID: comp,
				Relation: entity.RelationHasComponent,
			})
		}
		if _, ok := c.Assets[id]; ok {
			links = append(links, entity.Link{
				SourceKind: entity.LinkKindItem, SourceID: id,
				TargetKind: entity.LinkKindAsset, TargetID: id,
				Relation: entity.RelationHasAsset,
			})
		}
		if _, ok := c.CookingIngredients[id]; ok {
			links = append(links, entity.Link{
				SourceKind: entity.LinkKindItem, SourceID: id,
				TargetKind: entity.LinkKindCookingIngredient, TargetID: id,
				Relation: entity.RelationCookingIngredient,
			})
		}
	}
	if links == nil {
		return []entity.Link{}
	}
	return entity.SortLinks(links)
}

// gapsReport collects everything the graph could not tie together.
func gapsReport(g *entity.Graph, results Results) *entity.GapsReport {
	c := g.Catalog
	report := &entity.GapsReport{
		SchemaVersion:     entity.GapsSchemaVersion,
		UnresolvedLinks:   []entity.Link{},
		UnknownComponents: []entity.UnknownComponent{},
		UnresolvedValues:  []entity.UnresolvedValue{},
		CardRuleConflicts: []entity.UnresolvedRecord{},
		Extractors:        map[string]entity.ExtractSummary{},
		Unresolved:        []entity.UnresolvedRecord{},
	}

	for _, l := range g.Links {
		if l.TargetKind != entity.LinkKindItem {
			continue
		}
		if _, ok := c.Items[l.TargetID]; !ok {
			report.UnresolvedLinks = append(report.UnresolvedLinks, l)
		}
	}

	for _, id := range entity.SortedKeys(c.Items) {
		item := c.Items[id]
		for _, comp := range item.Components {
			if _, ok := g.Components[comp]; !ok {
				report.UnknownComponents = append(report.UnknownComponents, entity.UnknownComponent{ItemID: id, Component: comp})
			}
		}
		for _, k := range entity.SortedKeys(item.Stats) {
			s := item.Stats[k]
			if s.Value == nil {
				report.UnresolvedValues = append(report.UnresolvedValues, entity.UnresolvedValue{
					Kind: "item", ID: id, Field: "stat:" + k, Expr: s.Expr, TraceKey: s.TraceKey,
				})
			}
		}
	}
	for _, name := range entity.SortedKeys(c.Craft.Recipes) {
		for _, ing := range c.Craft.Recipes[name].Ingredients {
			if ing.AmountValue == nil {
				report.UnresolvedValues = append(report.UnresolvedValues, entity.UnresolvedValue{
					Kind: "craft", ID: name, Field: "ingredient:" + ing.ItemID, Expr: ing.AmountExpr, TraceKey: ing.TraceKey,
				})
			}
		}
	}
	for _, name := range entity.SortedKeys(c.Cooking) {
		fields := c.Cooking[name].StatFields()
		for _, field := range entity.SortedKeys(fields) {
			s := *fields[field]
			if s != nil && s.Value == nil {
				report.UnresolvedValues = append(report.UnresolvedValues, entity.UnresolvedValue{
					Kind: "cooking", ID: name, Field: field, Expr: s.Expr, TraceKey: s.TraceKey,
				})
			}
		}
	}

	for _, kind := range valueobject.AllExtractorKinds() {
		res, ok := results[kind]
		if !ok || res == nil {
			continue
		}
		report.Extractors[kind.String()] = res.Summary
		for _, rec := range res.Unresolved {
			report.Unresolved = append(report.Unresolved, rec)
			if rec.Reason == entity.NoteCardAndRuleConflict {
				report.CardRuleConflicts = append(report.CardRuleConflicts, rec)
			}
		}
	}
	sort.SliceStable(report.Unresolved, func(i, j int) bool { return report.Unresolved[i].Less(report.Unresolved[j]) })
	sort.SliceStable(report.CardRuleConflicts, func(i, j int) bool {
		return report.CardRuleConflicts[i].Less(report.CardRuleConflicts[j])
	})

	report.Counts = entity.GapsCounts{
		UnresolvedLinks:   len(report.UnresolvedLinks),
		UnknownComponents: len(report.UnknownComponents),
		UnresolvedValues:  len(report.UnresolvedValues),
		CardRuleConflicts: len(report.CardRuleConflicts),
		ExtractorRecords:  len(report.Unresolved),
	}
	return report
}
