package entity

import "sort"

// Link endpoint kinds.
const (
	LinkKindItem              = "item"
	LinkKindCraftRecipe       = "craft_recipe"
	LinkKindCookingRecipe     = "cooking_recipe"
	LinkKindComponent         = "component"
	LinkKindAsset             = "asset"
	LinkKindCookingIngredient = "cooking_ingredient"
)

// Link relations.
const (
	RelationProduct           = "product"
	RelationIngredient        = "ingredient"
	RelationCardIngredient    = "card_ingredient"
	RelationHasComponent      = "has_component"
	RelationHasAsset          = "has_asset"
	RelationCookingIngredient = "cooking_ingredient"
)

// Link is a typed edge of the entity graph.
type Link struct {
	SourceKind string `json:"source_kind"`
	SourceID   string `json:"source_id"`
	TargetKind string `json:"target_kind"`
	TargetID   string `json:"target_id"`
	Relation   string `json:"relation"`
}

// Less orders links by all five fields.
func (l Link) Less(o Link) bool {
	if l.SourceKind != o.SourceKind {
		return l.SourceKind < o.SourceKind
	}
	if l.SourceID != o.SourceID {
		return l.SourceID < o.SourceID
	}
	if l.TargetKind != o.TargetKind {
		return l.TargetKind < o.TargetKind
	}
	if l.TargetID != o.TargetID {
		return l.TargetID < o.TargetID
	}
	return l.Relation < o.Relation
}

// SortLinks sorts in place and removes exact duplicates.
func SortLinks(links []Link) []Link {
	sort.Slice(links, func(i, j int) bool { return links[i].Less(links[j]) })
	out := links[:0]
	for i, l := range links {
		if i > 0 && l == links[i-1] {
			continue
		}
		out = append(out, l)
	}
	return out
}
