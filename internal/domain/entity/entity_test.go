package entity

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanID(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{in: "Spear", want: "spear", wantOK: true},
		{in: "  log_2 ", want: "log_2", wantOK: true},
		{in: "bad-id", wantOK: false},
		{in: "", wantOK: false},
		{in: "a.b", wantOK: false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := CleanID(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSortedUnique_NeverNil(t *testing.T) {
	assert.Equal(t, []string{}, SortedUnique(nil))
	assert.Equal(t, []string{"a", "b"}, SortedUnique([]string{"b", "", "a", "b"}))
	assert.Equal(t, []string{"b", "a"}, DedupPreserve([]string{"b", "a", "b"}))

	data, err := json.Marshal(SortedUnique(nil))
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestSortLinks(t *testing.T) {
	links := []Link{
		{SourceKind: "item", SourceID: "spear", TargetKind: "component", TargetID: "weapon", Relation: RelationHasComponent},
		{SourceKind: "craft_recipe", SourceID: "spear", TargetKind: "item", TargetID: "twigs", Relation: RelationIngredient},
		{SourceKind: "craft_recipe", SourceID: "spear", TargetKind: "item", TargetID: "spear", Relation: RelationProduct},
		{SourceKind: "item", SourceID: "spear", TargetKind: "component", TargetID: "weapon", Relation: RelationHasComponent},
	}

	sorted := SortLinks(links)
	require.Len(t, sorted, 3)
	assert.Equal(t, "spear", sorted[0].TargetID)
	assert.Equal(t, "twigs", sorted[1].TargetID)
	assert.Equal(t, "item", sorted[2].SourceKind)
}

func TestBuildMeta_FlattensExtra(t *testing.T) {
	meta := BuildMeta{
		Schema:           2,
		Generated:        "2024-01-01T00:00:00Z",
		Tool:             ToolName,
		Sources:          map[string]string{"scripts_zip": "/x/scripts.zip"},
		ScriptsSHA256_12: "abcdef012345",
	}.WithExtra("tuning_mode", "value_only").WithExtra("schema", 99)

	data, err := json.Marshal(meta)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"schema": 2,
		"generated": "2024-01-01T00:00:00Z",
		"tool": "scriptdex",
		"sources": {"scripts_zip": "/x/scripts.zip"},
		"scripts_sha256_12": "abcdef012345",
		"tuning_mode": "value_only"
	}`, string(data))

	var back BuildMeta
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, 2, back.Schema)
	assert.Equal(t, "abcdef012345", back.ScriptsSHA256_12)
	assert.Equal(t, "value_only", back.Extra["tuning_mode"])
}

func TestCardIngredient_JSON(t *testing.T) {
	in := []CardIngredient{{Item: "meat", Count: 2}, {Item: "twigs", Count: 1}}
	data, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `[["meat",2],["twigs",1]]`, string(data))

	var out []CardIngredient
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, in, out)

	assert.Error(t, json.Unmarshal([]byte(`[["meat"]]`), &out))
}

func TestNameResolver_Fallback(t *testing.T) {
	idx := &I18nIndex{Names: map[string]map[string]string{
		"en": {"spear": "Spear", "twigs": "Twigs"},
		"zh": {"spear": "长矛"},
		"ko": {"rope": "밧줄"},
	}}
	r := NewNameResolver(idx, "zh", "en")

	tests := []struct {
		name string
		id   string
		lang string
		want string
	}{
		{name: "requested_language", id: "spear", lang: "en", want: "Spear"},
		{name: "preferred_language", id: "spear", lang: "fr", want: "长矛"},
		{name: "secondary_language", id: "twigs", lang: "zh", want: "Twigs"},
		{name: "any_language_before_id", id: "rope", lang: "en", want: "밧줄"},
		{name: "id_when_untranslated", id: "flint", lang: "en", want: "flint"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Name(tt.id, tt.lang))
		})
	}
	assert.Equal(t, []string{"en", "ko", "zh"}, r.Languages())
}

func TestFarmPlantFromRow(t *testing.T) {
	row := map[string]interface{}{
		"prefab":               "farm_plant_carrot",
		"product":              "carrot",
		"seed":                 "carrot_seeds",
		"good_seasons":         map[string]interface{}{"autumn": true, "winter": false, "spring": true},
		"nutrient_consumption": []interface{}{4.0, 0.0, 0.0},
		"moisture":             map[string]interface{}{"drink_rate": -0.0347},
		"family_min_count":     4.0,
	}

	p := FarmPlantFromRow("carrot", row)
	assert.Equal(t, "carrot", p.Product)
	assert.Equal(t, []string{"autumn", "spring"}, p.GoodSeasonList())
	assert.Equal(t, [3]float64{4, 0, 0}, p.NutrientConsumption)
	assert.Equal(t, [3]bool{false, true, true}, p.NutrientRestoration)
	require.NotNil(t, p.DrinkRate)
	require.NotNil(t, p.FamilyMinCount)
	assert.Equal(t, 4, *p.FamilyMinCount)

	assert.Equal(t, "carrot", NormalizePlantID("farm_plant_carrot"))
	assert.Equal(t, "carrot", NormalizePlantID("Carrot_Seeds"))
}

func TestCraftDoc_Canonical(t *testing.T) {
	doc := NewCraftDoc()
	doc.Recipes["trap_teeth"] = &CraftRecipe{Name: "trap_teeth"}
	doc.BuildAliases()

	name, ok := doc.Canonical("TrapTeeth")
	require.True(t, ok)
	assert.Equal(t, "trap_teeth", name)

	_, ok = doc.Canonical("spear")
	assert.False(t, ok)
}

func TestTraceKeys(t *testing.T) {
	assert.Equal(t, "item:spear:stat:weapon_damage", ItemStatTraceKey("spear", "weapon_damage"))
	assert.Equal(t, "craft:spear:ingredient:twigs", CraftIngredientTraceKey("spear", "twigs"))
	assert.Equal(t, "cooking:meatballs:hunger", CookingTraceKey("meatballs", "hunger"))
}

func TestBuildCatalogIndex(t *testing.T) {
	c := NewCatalog()
	c.Items["spear"] = &Item{
		ID: "spear", Kind: KindItem, Categories: []string{"weapon"}, Components: []string{"weapon"},
		Slots: []string{"hands"}, Assets: ItemAssets{Image: "images/spear.tex"},
	}
	c.Items["twigs"] = &Item{ID: "twigs", Kind: KindItem, Tags: []string{"cattoy"}}
	c.Assets["spear"] = ItemAssets{Image: "images/spear.tex", Icon: "static/icons/spear.png"}
	icons := &IconIndex{Icons: map[string]Icon{"gears": {Atlas: "a.xml"}}}

	idx := BuildCatalogIndex(c, icons, "static/icons/", func(id string) string {
		if id == "spear" {
			return "Spear"
		}
		return ""
	})

	require.Len(t, idx.Items, 3)
	assert.Equal(t, []string{"gears", "spear", "twigs"}, []string{idx.Items[0].ID, idx.Items[1].ID, idx.Items[2].ID})

	spear, ok := idx.Record("spear")
	require.True(t, ok)
	assert.Equal(t, "Spear", spear.Name)
	assert.Equal(t, "static/icons/spear.png", spear.Icon)
	assert.True(t, spear.HasIcon)
	assert.False(t, spear.IconOnly)

	gears, ok := idx.Record("gears")
	require.True(t, ok)
	assert.True(t, gears.IconOnly)
	assert.Equal(t, "static/icons/gears.png", gears.Icon)
	assert.Equal(t, "gears", gears.Name)

	_, ok = idx.Record("missing")
	assert.False(t, ok)

	assert.Equal(t, []string{"spear", "twigs"}, idx.Indexes.ByKind[KindItem])
	assert.Equal(t, []string{"spear"}, idx.Indexes.BySlot["hands"])
	assert.Equal(t, []string{"twigs"}, idx.Indexes.ByTag["cattoy"])
	assert.Equal(t, CatalogIndexCounts{ItemsTotal: 3, ItemsWithIcon: 2, IconOnly: 1}, idx.Counts)
}
