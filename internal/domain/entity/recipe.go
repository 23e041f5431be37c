package entity

import "strings"

// Ingredient is one Ingredient("item", amount) entry of a craft recipe. AmountExpr keeps
// the source expression; AmountValue is nil when it does not resolve to a number.
type Ingredient struct {
	ItemID      string   `json:"item_id"`
	AmountExpr  string   `json:"amount_expr"`
	AmountValue *float64 `json:"amount_value"`
	TraceKey    string   `json:"trace_key,omitempty"`
}

// CraftRecipe is a crafting recipe registered through Recipe, Recipe2 or AddRecipe2.
type CraftRecipe struct {
	Name                  string       `json:"name"`
	Product               string       `json:"product"`
	Ingredients           []Ingredient `json:"ingredients"`
	IngredientsUnresolved []string     `json:"ingredients_unresolved"`
	Tech                  string       `json:"tech"`
	Tab                   string       `json:"tab"`
	Filters               []string     `json:"filters"`
	BuilderTag            string       `json:"builder_tag,omitempty"`
	BuilderTags           []string     `json:"builder_tags"`
	BuilderSkill          string       `json:"builder_skill,omitempty"`
	StationTag            string       `json:"station_tag,omitempty"`
	Image                 string       `json:"image,omitempty"`
	Atlas                 string       `json:"atlas,omitempty"`
	Placer                string       `json:"placer,omitempty"`
	NumToGive             *float64     `json:"numtogive,omitempty"`
	NoUnlock              *bool        `json:"nounlock,omitempty"`
	Sources               []string     `json:"sources"`
	Files                 []string     `json:"files"`
}

// CraftDoc is the craft section of the catalog. Aliases maps lowercased and
// underscore-free spellings to canonical recipe names.
type CraftDoc struct {
	Recipes     map[string]*CraftRecipe  `json:"recipes"`
	FilterDefs  []map[string]interface{} `json:"filter_defs"`
	FilterOrder []string                 `json:"filter_order"`
	Aliases     map[string]string        `json:"aliases"`
}

// NewCraftDoc returns an empty craft document.
func NewCraftDoc() CraftDoc {
	return CraftDoc{
		Recipes:     make(map[string]*CraftRecipe),
		FilterDefs:  []map[string]interface{}{},
		FilterOrder: []string{},
		Aliases:     make(map[string]string),
	}
}

// BuildAliases fills Aliases from the recipe names.
func (d *CraftDoc) BuildAliases() {
	d.Aliases = make(map[string]string, len(d.Recipes)*2)
	for _, name := range SortedKeys(d.Recipes) {
		lower := strings.ToLower(name)
		d.Aliases[lower] = name
		d.Aliases[strings.ReplaceAll(lower, "_", "")] = name
	}
}

// Canonical returns the recipe name matching q through the alias table.
func (d *CraftDoc) Canonical(q string) (string, bool) {
	q = strings.ToLower(strings.TrimSpace(q))
	if name, ok := d.Aliases[q]; ok {
		return name, true
	}
	name, ok := d.Aliases[strings.ReplaceAll(q, "_", "")]
	return name, ok
}
