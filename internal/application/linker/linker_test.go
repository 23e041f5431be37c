package linker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scriptdex/internal/domain/entity"
	"scriptdex/internal/domain/service"
	"scriptdex/internal/testfixtures"
)

func linkFiles(t *testing.T, files map[string]string, opts Options) *entity.Graph {
	t.Helper()
	results, err := testfixtures.Extract(context.Background(), files)
	require.NoError(t, err)
	g, err := Link(context.Background(), results, opts)
	require.NoError(t, err)
	return g
}

func linkFixture(t *testing.T) *entity.Graph {
	t.Helper()
	return linkFiles(t, testfixtures.Files(), Options{})
}

func TestLink_ItemStats(t *testing.T) {
	g := linkFixture(t)
	spear := g.Catalog.Items["spear"]
	require.NotNil(t, spear)

	dmg := spear.Stats["weapon_damage"]
	assert.Equal(t, "TUNING.SPEAR_DAMAGE", dmg.Expr)
	assert.Equal(t, 34.0, dmg.Value)
	assert.Equal(t, "item:spear:stat:weapon_damage", dmg.TraceKey)
	assert.Equal(t, entity.StatSourcePrefab, dmg.Source)
	assert.Equal(t, "weapon", dmg.SourceComponent)
	require.Contains(t, g.Traces, dmg.TraceKey)
	assert.Equal(t, 34.0, g.Traces[dmg.TraceKey].Value)

	assert.Equal(t, 150.0, spear.Stats["uses_max"].Value)
	assert.Equal(t, []string{"hands"}, spear.Slots)
	assert.Equal(t, "item", spear.Kind)
	assert.Equal(t, []string{SourceCraft}, spear.Sources)
	assert.Equal(t, "images/inventoryimages/spear.xml", spear.Assets.Atlas)
	assert.Equal(t, "images/inventoryimages/spear.tex", spear.Assets.Image)
	assert.Equal(t, DefaultIconBase+"spear.png", spear.Assets.Icon)
	assert.Contains(t, g.Catalog.Assets, "spear")
}

func TestLink_ComponentDefaultFillsMissingStat(t *testing.T) {
	files := testfixtures.Files()
	files["scripts/prefabs/club.lua"] = `
local function fn()
    local inst = CreateEntity()
    inst:AddComponent("weapon")
    return inst
end
return Prefab("club", fn)
`
	g := linkFiles(t, files, Options{})
	club := g.Catalog.Items["club"]
	require.NotNil(t, club)
	s := club.Stats["weapon_damage"]
	assert.Equal(t, "10", s.Expr)
	assert.Equal(t, 10.0, s.Value)
	assert.Equal(t, entity.StatSourceComponentDefault, s.Source)
	assert.Equal(t, "weapon", s.SourceComponent)
	assert.Empty(t, s.TraceKey, "literal values leave no trace")
}

func TestLink_CraftAmounts(t *testing.T) {
	g := linkFixture(t)
	recipes := g.Catalog.Craft.Recipes

	tests := []struct {
		name      string
		recipe    string
		item      string
		expr      string
		value     *float64
		traceKey  string
		unresolve []string
	}{
		{name: "literal", recipe: "spear", item: "twigs", expr: "2", value: ptr(2), unresolve: []string{}},
		{
			name: "tuning", recipe: "armorwood", item: "log", expr: "TUNING.ARMORWOOD_LOGS", value: ptr(8),
			traceKey: "craft:armorwood:ingredient:log", unresolve: []string{},
		},
		{
			name: "undefined_constant", recipe: "goldstaff", item: "goldnugget", expr: "TUNING.SOME_UNDEFINED_CONST",
			traceKey: "craft:goldstaff:ingredient:goldnugget", unresolve: []string{"goldnugget"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := recipes[tt.recipe]
			require.NotNil(t, rec)
			var ing *entity.Ingredient
			for i := range rec.Ingredients {
				if rec.Ingredients[i].ItemID == tt.item {
					ing = &rec.Ingredients[i]
				}
			}
			require.NotNil(t, ing)
			assert.Equal(t, tt.expr, ing.AmountExpr)
			assert.Equal(t, tt.value, ing.AmountValue)
			assert.Equal(t, tt.traceKey, ing.TraceKey)
			assert.Equal(t, tt.unresolve, rec.IngredientsUnresolved)
			if tt.traceKey != "" {
				assert.Contains(t, g.Traces, tt.traceKey)
			}
		})
	}
}

func TestLink_CookingStats(t *testing.T) {
	g := linkFixture(t)
	muffin := g.Catalog.Cooking["butterflymuffin"]
	require.NotNil(t, muffin)
	require.NotNil(t, muffin.Health)
	assert.Equal(t, 20.0, muffin.Health.Value)
	assert.Equal(t, "cooking:butterflymuffin:health", muffin.Health.TraceKey)
	assert.Equal(t, 37.5, muffin.Hunger.Value)
	assert.Equal(t, 2880.0, muffin.PerishTime.Value)
	assert.Equal(t, 0.0, muffin.Sanity.Value)
	assert.Empty(t, muffin.Sanity.TraceKey)
}

func TestLink_ReferencesMatchLinks(t *testing.T) {
	g := linkFixture(t)
	items := g.Catalog.Items

	assert.Equal(t, []string{"spear"}, items["twigs"].UsedIn)
	assert.Equal(t, []string{"spear"}, items["spear"].ProducedBy)
	assert.Equal(t, []string{"berrysalad"}, items["berries"].CookingUsedIn)

	backRefs := 0
	for _, item := range items {
		backRefs += len(item.ProducedBy) + len(item.UsedIn) + len(item.CookingUsedIn)
	}
	refLinks := 0
	for _, l := range g.Links {
		switch l.Relation {
		case entity.RelationProduct:
			refLinks++
			assert.Contains(t, items[l.TargetID].ProducedBy, l.SourceID)
		case entity.RelationIngredient:
			refLinks++
			assert.Contains(t, items[l.TargetID].UsedIn, l.SourceID)
		case entity.RelationCardIngredient:
			refLinks++
			assert.Contains(t, items[l.TargetID].CookingUsedIn, l.SourceID)
		}
	}
	assert.Equal(t, refLinks, backRefs)
	assert.Equal(t, entity.SortLinks(append([]entity.Link(nil), g.Links...)), g.Links)
}

func TestLink_Classification(t *testing.T) {
	g := linkFixture(t)
	spider := g.Catalog.Items["spider"]
	require.NotNil(t, spider)
	assert.Equal(t, "creature", spider.Kind)
	assert.Contains(t, spider.Sources, SourceSpawn)
	assert.Equal(t, []string{"brains/spiderbrain"}, spider.Brains)

	overrides, err := service.ParseTagOverrides([]byte(`
rules:
  - match: spider
    set:
      kind: [boss]
`))
	require.NoError(t, err)
	g = linkFiles(t, testfixtures.Files(), Options{Classifier: service.NewClassifier(overrides)})
	assert.Equal(t, "boss", g.Catalog.Items["spider"].Kind)
}

func TestLink_Idempotent(t *testing.T) {
	results, err := testfixtures.Extract(context.Background(), testfixtures.Files())
	require.NoError(t, err)
	first, err := Link(context.Background(), results, Options{})
	require.NoError(t, err)
	second, err := Link(context.Background(), results, Options{})
	require.NoError(t, err)
	assert.Equal(t, first.Catalog, second.Catalog)
	assert.Equal(t, first.Links, second.Links)
	assert.Equal(t, first.Traces, second.Traces)
	assert.Equal(t, first.Gaps, second.Gaps)
}

func TestLink_Farming(t *testing.T) {
	g := linkFixture(t)
	require.NotNil(t, g.Farming)
	carrot := g.Farming.Plants["carrot"]
	require.NotNil(t, carrot)

	grow, ok := carrot["grow_time"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, []interface{}{360.0, 480.0}, grow["seed"])
	assert.Equal(t, 1920.0, grow["full"])
	assert.Equal(t, []interface{}{2.0, 0.0, 0.0}, carrot["nutrient_consumption"])
	assert.Equal(t, []interface{}{nil, true, true}, carrot["nutrient_restoration"])
	assert.Equal(t, "carrot_seeds", carrot["seed"])
	assert.Equal(t, 4.0, carrot["family_min_count"])
	assert.Equal(t, 3.0, carrot["seed_weight"])

	random := g.Farming.Plants["randomseed"]
	require.NotNil(t, random)
	assert.Equal(t, "seeds", random["seed"])
	assert.Equal(t, "farm_plant_randomseed", random["plant_type_tag"])

	assert.Equal(t, 2.0, g.Farming.Tuning["FARM_PLANT_CONSUME_NUTRIENT_LOW"])
	assert.Nil(t, g.Farming.Tuning["FARM_PLANT_DRINK_HIGH"])
	assert.Equal(t, 2, g.Farming.Stats.PlantsTotal)
}

func TestLink_Gaps(t *testing.T) {
	files := testfixtures.Files()
	files["scripts/recipes2.lua"] = `AddRecipe2("torch", {Ingredient("Bad Item!", 1)}, TECH.NONE, nil, {"LIGHT"})`
	g := linkFiles(t, files, Options{})
	gaps := g.Gaps
	require.NotNil(t, gaps)

	require.Len(t, gaps.UnresolvedLinks, 1)
	assert.Equal(t, "Bad Item!", gaps.UnresolvedLinks[0].TargetID)

	assert.Contains(t, gaps.UnknownComponents, entity.UnknownComponent{ItemID: "spear", Component: "finiteuses"})
	assert.NotContains(t, gaps.UnknownComponents, entity.UnknownComponent{ItemID: "spear", Component: "weapon"})

	var found bool
	for _, v := range gaps.UnresolvedValues {
		if v.Kind == "craft" && v.ID == "goldstaff" {
			found = true
			assert.Equal(t, "TUNING.SOME_UNDEFINED_CONST", v.Expr)
		}
	}
	assert.True(t, found)

	require.Len(t, gaps.CardRuleConflicts, 1)
	assert.Equal(t, "both", gaps.CardRuleConflicts[0].Entity)
	assert.Equal(t, len(gaps.UnresolvedValues), gaps.Counts.UnresolvedValues)
	assert.Contains(t, gaps.Extractors, "prefab")
}

func TestLink_I18nAndIcons(t *testing.T) {
	g := linkFixture(t)
	assert.Equal(t, []string{"en", "zh"}, g.I18n.Langs)
	assert.Equal(t, "Spear", g.I18n.Names["en"]["spear"])
	assert.Equal(t, "长矛", g.I18n.Names["zh"]["spear"])
	assert.Contains(t, g.Icons.Icons, "twigs")
	assert.Equal(t, []string{"images/inventoryimages1.xml"}, g.Icons.Atlases)
}

func TestLink_Cancelled(t *testing.T) {
	results, err := testfixtures.Extract(context.Background(), testfixtures.Files())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Link(ctx, results, Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLink_Empty(t *testing.T) {
	g, err := Link(context.Background(), Results{}, Options{})
	require.NoError(t, err)
	assert.Empty(t, g.Catalog.Items)
	assert.NotNil(t, g.Links)
	assert.Equal(t, 0, g.Gaps.Counts.UnresolvedLinks)
}

func ptr(f float64) *float64 { return &f }
