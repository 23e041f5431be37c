package entity

// CatalogSchemaVersion is the schema of the catalog artifact.
const CatalogSchemaVersion = 2

// CatalogStats counts catalog sections.
type CatalogStats struct {
	ItemsTotal         int `json:"items_total"`
	AssetsTotal        int `json:"assets_total"`
	CraftRecipes       int `json:"craft_recipes"`
	CookingRecipes     int `json:"cooking_recipes"`
	CookingIngredients int `json:"cooking_ingredients"`
	LootItems          int `json:"loot_items"`
}

// Catalog is the full cross-linked catalog document.
type Catalog struct {
	SchemaVersion      int                           `json:"schema_version"`
	Meta               BuildMeta                     `json:"meta"`
	Items              map[string]*Item              `json:"items"`
	Assets             map[string]ItemAssets         `json:"assets"`
	Craft              CraftDoc                      `json:"craft"`
	Cooking            map[string]*CookingRecipe     `json:"cooking"`
	CookingIngredients map[string]*CookingIngredient `json:"cooking_ingredients"`
	Stats              CatalogStats                  `json:"stats"`
}

// NewCatalog returns an empty catalog with every map allocated.
func NewCatalog() *Catalog {
	return &Catalog{
		SchemaVersion:      CatalogSchemaVersion,
		Items:              make(map[string]*Item),
		Assets:             make(map[string]ItemAssets),
		Craft:              NewCraftDoc(),
		Cooking:            make(map[string]*CookingRecipe),
		CookingIngredients: make(map[string]*CookingIngredient),
	}
}

// RecountStats recomputes Stats from the sections. lootItems is carried from extraction.
func (c *Catalog) RecountStats(lootItems int) {
	c.Stats = CatalogStats{
		ItemsTotal:         len(c.Items),
		AssetsTotal:        len(c.Assets),
		CraftRecipes:       len(c.Craft.Recipes),
		CookingRecipes:     len(c.Cooking),
		CookingIngredients: len(c.CookingIngredients),
		LootItems:          lootItems,
	}
}

// UnknownComponent is an item binding to a component without a definition file.
type UnknownComponent struct {
	ItemID    string `json:"item_id"`
	Component string `json:"component"`
}

// UnresolvedValue is an expression-bearing field whose value stayed null.
type UnresolvedValue struct {
	Kind     string `json:"kind"`
	ID       string `json:"id"`
	Field    string `json:"field"`
	Expr     string `json:"expr"`
	TraceKey string `json:"trace_key,omitempty"`
}

// GapsCounts summarizes the gaps report.
type GapsCounts struct {
	UnresolvedLinks   int `json:"unresolved_links"`
	UnknownComponents int `json:"unknown_components"`
	UnresolvedValues  int `json:"unresolved_values"`
	CardRuleConflicts int `json:"card_rule_conflicts"`
	ExtractorRecords  int `json:"extractor_records"`
}

// GapsReport is the data-quality signal of a build. A non-empty report never fails the build.
type GapsReport struct {
	SchemaVersion     int                       `json:"schema_version"`
	Meta              BuildMeta                 `json:"meta"`
	Counts            GapsCounts                `json:"counts"`
	UnresolvedLinks   []Link                    `json:"unresolved_links"`
	UnknownComponents []UnknownComponent        `json:"unknown_components"`
	UnresolvedValues  []UnresolvedValue         `json:"unresolved_values"`
	CardRuleConflicts []UnresolvedRecord        `json:"card_rule_conflicts"`
	Extractors        map[string]ExtractSummary `json:"extractors"`
	Unresolved        []UnresolvedRecord        `json:"unresolved"`
}

// Graph is everything the linker produces from one set of extractor results. The
// document fields carry no meta yet; artifact writers stamp it.
type Graph struct {
	Catalog     *Catalog
	Components  map[string]*Component
	Prefabs     map[string]*PrefabRecord
	PrefabFiles []PrefabFile
	Links       []Link
	Traces      map[string]TraceEntry
	Gaps        *GapsReport
	Farming     *FarmingDefs
	I18n        *I18nIndex
	Icons       *IconIndex
	Loot        []string
}
