package query

import (
	"context"
	"fmt"
	"strings"

	"scriptdex/internal/adapter/outbound/artifact"
	"scriptdex/internal/domain/entity"
	"scriptdex/internal/domain/errors/domain"
)

const maxSuggestions = 5

// ItemNotFoundError is returned for unknown ids. It matches domain.ErrItemNotFound and
// carries near spellings of the id.
type ItemNotFoundError struct {
	ID          string
	Suggestions []string
}

func (e *ItemNotFoundError) Error() string {
	if len(e.Suggestions) == 0 {
		return fmt.Sprintf("%s: %s", domain.ErrItemNotFound, e.ID)
	}
	return fmt.Sprintf("%s: %s (did you mean %s?)", domain.ErrItemNotFound, e.ID, strings.Join(e.Suggestions, ", "))
}

// Unwrap returns domain.ErrItemNotFound.
func (e *ItemNotFoundError) Unwrap() error { return domain.ErrItemNotFound }

// ItemCraft lists the craft recipes touching an item.
type ItemCraft struct {
	ProducedBy []*entity.CraftRecipe `json:"produced_by"`
	UsedIn     []*entity.CraftRecipe `json:"used_in"`
}

// ItemCooking holds the cooking side of an item.
type ItemCooking struct {
	AsRecipe   *entity.CookingRecipe     `json:"as_recipe"`
	Ingredient *entity.CookingIngredient `json:"ingredient"`
	UsedIn     []string                  `json:"used_in"`
}

// ItemDetail is the item-centric view: the catalog entry, its compact record, every
// recipe it takes part in and its localized names.
type ItemDetail struct {
	ItemID  string                     `json:"item_id"`
	Name    string                     `json:"name"`
	Item    *entity.Item               `json:"item"`
	Record  *entity.CatalogIndexRecord `json:"record"`
	Names   map[string]string          `json:"names"`
	Craft   ItemCraft                  `json:"craft"`
	Cooking ItemCooking                `json:"cooking"`
}

// Item returns the detail view of id. Ids are matched case-insensitively. Unknown ids
// fail with *ItemNotFoundError.
func (h *Handle) Item(ctx context.Context, id string) (*ItemDetail, error) {
	var out *ItemDetail
	err := h.observe(ctx, OpItem, func(_ context.Context, s *Snapshot) error {
		d, err := s.item(id, h.opts.PreferredLang)
		out = d
		return err
	})
	return out, err
}

func (s *Snapshot) item(raw, lang string) (*ItemDetail, error) {
	id := strings.ToLower(strings.TrimSpace(raw))
	if id == "" {
		return nil, fmt.Errorf("%w: empty item id", domain.ErrInvalidInput)
	}

	c := s.Catalog
	d := &ItemDetail{
		ItemID:  id,
		Item:    c.Items[id],
		Names:   map[string]string{},
		Craft:   ItemCraft{ProducedBy: []*entity.CraftRecipe{}, UsedIn: []*entity.CraftRecipe{}},
		Cooking: ItemCooking{AsRecipe: c.Cooking[id], Ingredient: c.CookingIngredients[id], UsedIn: []string{}},
	}
	if rec, ok := s.Index.Record(id); ok {
		d.Record = &rec
	}
	if d.Item == nil && d.Record == nil && d.Cooking.AsRecipe == nil && d.Cooking.Ingredient == nil {
		return nil, &ItemNotFoundError{ID: id, Suggestions: s.suggest(id)}
	}

	if d.Item != nil {
		d.Craft.ProducedBy = craftRecipes(c, d.Item.ProducedBy)
		d.Craft.UsedIn = craftRecipes(c, d.Item.UsedIn)
	}

	if d.Item != nil && d.Item.CookingUsedIn != nil {
		d.Cooking.UsedIn = append(d.Cooking.UsedIn, d.Item.CookingUsedIn...)
	} else {
		for _, name := range entity.SortedKeys(c.Cooking) {
			for _, card := range c.Cooking[name].CardIngredients {
				if card.Item == id {
					d.Cooking.UsedIn = append(d.Cooking.UsedIn, name)
					break
				}
			}
		}
	}

	for _, l := range s.names.Languages() {
		if v, ok := s.names.Lookup(id, l); ok {
			d.Names[l] = v
		}
	}
	d.Name = s.names.Name(id, lang)
	return d, nil
}

// craftRecipes resolves linked recipe names, skipping names the catalog does not define.
func craftRecipes(c *entity.Catalog, names []string) []*entity.CraftRecipe {
	out := make([]*entity.CraftRecipe, 0, len(names))
	for _, name := range names {
		if r, ok := c.Craft.Recipes[name]; ok {
			out = append(out, r)
		}
	}
	return out
}

func (s *Snapshot) suggest(id string) []string {
	candidates := make([]string, 0, len(s.Index.Items))
	for _, rec := range s.Index.Items {
		candidates = append(candidates, rec.ID)
	}
	return artifact.Suggest(id, candidates, maxSuggestions)
}
