// Package testfixtures holds a small but complete script corpus shared by the tests of
// the linker, artifact writers, build orchestrator and query layer.
package testfixtures

import (
	"context"
	"fmt"

	"scriptdex/internal/adapter/outbound/corpus"
	"scriptdex/internal/adapter/outbound/extractor"
	"scriptdex/internal/application/registry"
	"scriptdex/internal/domain/valueobject"
)

// Tuning is the fixture tuning.lua.
const Tuning = `
local seg_time = 30
local total_day_time = seg_time*16

TUNING = {
    SEG_TIME = seg_time,
    TOTAL_DAY_TIME = total_day_time,
    SPEAR_DAMAGE = 34,
    SPEAR_USES = 150,
    HEALING_MED = 20,
    HEALING_TINY = 1,
    CALORIES_LARGE = 37.5,
    CALORIES_SMALL = 12.5,
    PERISH_FAST = total_day_time*6,
    FARM_PLANT_CONSUME_NUTRIENT_LOW = 2,
    FARM_PLANT_SAME_FAMILY_MIN = 4,
    FARM_PLANT_SAME_FAMILY_RADIUS = 1.6,
}

TUNING.ARMORWOOD_LOGS = 8
`

// Spear is a prefab with weapon stats, an equip slot and inventory assets.
const Spear = `
local assets =
{
    Asset("ANIM", "anim/spear.zip"),
    Asset("ATLAS", "images/inventoryimages/spear.xml"),
    Asset("IMAGE", "images/inventoryimages/spear.tex"),
}

local function fn()
    local inst = CreateEntity()
    inst:AddTag("sharp")
    inst:AddTag("pointy")

    MakeInventoryPhysics(inst)

    inst:AddComponent("inventoryitem")

    inst:AddComponent("weapon")
    inst.components.weapon:SetDamage(TUNING.SPEAR_DAMAGE)

    inst:AddComponent("finiteuses")
    inst.components.finiteuses:SetMaxUses(TUNING.SPEAR_USES)
    inst.components.finiteuses:SetUses(TUNING.SPEAR_USES)

    inst:AddComponent("equippable")
    inst.components.equippable.equipslot = EQUIPSLOTS.HANDS

    return inst
end

return Prefab("spear", fn, assets)
`

// Twigs is a plain stackable resource.
const Twigs = `
local function fn()
    local inst = CreateEntity()
    inst:AddTag("cattoy")
    inst:AddComponent("inventoryitem")
    inst:AddComponent("stackable")
    return inst
end

return Prefab("twigs", fn)
`

// Spider is a creature with a loot table.
const Spider = `
SetSharedLootTable('spider', {{'monstermeat', 1.0}, {'silk', 0.5}})

local function fn()
    local inst = CreateEntity()
    inst:AddTag("monster")
    inst:AddComponent("health")
    inst:AddComponent("combat")
    inst:AddComponent("lootdropper")
    inst.components.lootdropper:SetChanceLootTable('spider')
    inst.components.lootdropper:AddChanceLoot("spidergland", 0.25)
    inst:SetBrain(require("brains/spiderbrain"))
    inst:SetStateGraph("SGspider")
    return inst
end

return Prefab("spider", fn)
`

// Recipes declares one literal recipe, one tuning-driven recipe and one recipe whose
// amount cannot be resolved.
const Recipes = `
Recipe("spear", {Ingredient("twigs", 2), Ingredient("rope", 1), Ingredient("flint", 1)}, RECIPETABS.WAR, TECH.SCIENCE_ONE)
Recipe2("armorwood", {Ingredient("log", TUNING.ARMORWOOD_LOGS), Ingredient("rope")}, TECH.SCIENCE_ONE, {builder_tag="handyperson", numtogive=2}, {"ARMOUR"})
Recipe2("goldstaff", {Ingredient("goldnugget", TUNING.SOME_UNDEFINED_CONST)}, TECH.NONE, nil, {"MAGIC"})
`

// PreparedFoods holds a rule recipe, a card recipe and a recipe declaring both.
const PreparedFoods = `
local foods =
{
	butterflymuffin =
	{
		test = function(cooker, names, tags) return names.butterflywings and not tags.meat and tags.veggie end,
		priority = 1,
		weight = 1,
		foodtype = FOODTYPE.VEGGIE,
		health = TUNING.HEALING_MED,
		hunger = TUNING.CALORIES_LARGE,
		sanity = 0,
		perishtime = TUNING.PERISH_FAST,
		cooktime = 2,
		tags = {"honeyed"},
	},
	meatballs =
	{
		test = function(cooker, names, tags) return tags.meat and not tags.inedible end,
		priority = -1,
		weight = 1,
		foodtype = FOODTYPE.MEAT,
		health = 3,
		hunger = TUNING.CALORIES_LARGE,
		cooktime = 0.75,
	},
	both =
	{
		test = function(cooker, names, tags) return tags.meat end,
		card_def = {ingredients = {{"meat", 2}, {"ice", 2}}},
		priority = 0,
	},
	berrysalad =
	{
		card_def = {ingredients = {{"berries", 4}}},
		priority = 5,
	},
}

return foods
`

// Cooking declares ingredient tag values.
const Cooking = `
AddIngredientValues({"berries"}, {fruit=1}, true)
AddIngredientValues({"meat"}, {meat=1}, true, true)
AddIngredientValues({"butterflywings"}, {decoration=2})
AddIngredientValues({"carrot"}, {veggie=1}, true)
AddIngredientValues({"ice"}, {frozen=1})
AddIngredientValues({"twigs"}, {inedible=1})
`

// WeaponComponent is a component class with a damage default.
const WeaponComponent = `
local Weapon = Class(function(self, inst)
    self.inst = inst
    self.damage = 10
end)

function Weapon:SetDamage(dmg)
    self.damage = dmg
end

return Weapon
`

// PlantDefs defines one crop and the random seed.
const PlantDefs = `
local PLANT_DEFS = {}
PLANT_DEFS.carrot = {build = "farm_plant_carrot", bank = "farm_plant_carrot"}
PLANT_DEFS.carrot.grow_time = MakeGrowTimes(12 * TUNING.SEG_TIME, 16 * TUNING.SEG_TIME, 4 * TUNING.TOTAL_DAY_TIME, 7 * TUNING.TOTAL_DAY_TIME)
PLANT_DEFS.carrot.nutrient_consumption = {TUNING.FARM_PLANT_CONSUME_NUTRIENT_LOW, 0, 0}
PLANT_DEFS.carrot.good_seasons = {autumn = true, winter = true, spring = true}
PLANT_DEFS.randomseed = {is_randomseed = true}
`

// Veggies declares seed weights.
const Veggies = `
local COMMON = 3
VEGGIES =
{
	carrot = MakeVegStats(COMMON, TUNING.CALORIES_SMALL, TUNING.HEALING_TINY),
}
`

// Strings is the English string table.
const Strings = `
STRINGS =
{
	NAMES =
	{
		SPEAR = "Spear",
		TWIGS = "Twigs",
		BUTTERFLYMUFFIN = "Butter Muffin",
	},
	UI =
	{
		CRAFTING_FILTERS =
		{
			TOOLS = "Tools",
		},
	},
}
`

// ChinesePO is a translation catalog.
const ChinesePO = `
msgid ""
msgstr ""

msgctxt "STRINGS.NAMES.SPEAR"
msgid "Spear"
msgstr "长矛"
`

// Atlas is an inventory image atlas.
const Atlas = `<Atlas><Texture filename="inventoryimages1.tex" /><Elements>
<Element name="spear.tex" u1="0.1" u2="0.2" v1="0.3" v2="0.4" />
<Element name="twigs.tex" u1="0" u2="0.1" v1="0" v2="0.1" />
</Elements></Atlas>`

// Files returns a fresh copy of the fixture corpus keyed by corpus path.
func Files() map[string]string {
	return map[string]string{
		"scripts/tuning.lua":                  Tuning,
		"scripts/prefabs/spear.lua":           Spear,
		"scripts/prefabs/twigs.lua":           Twigs,
		"scripts/prefabs/spider.lua":          Spider,
		"scripts/recipes.lua":                 Recipes,
		"scripts/preparedfoods.lua":           PreparedFoods,
		"scripts/cooking.lua":                 Cooking,
		"scripts/components/weapon.lua":       WeaponComponent,
		"scripts/prefabs/farm_plant_defs.lua": PlantDefs,
		"scripts/prefabs/veggies.lua":         Veggies,
		"scripts/strings.lua":                 Strings,
		"scripts/languages/chinese_s.po":      ChinesePO,
		"images/inventoryimages1.xml":         Atlas,
	}
}

// Corpus returns the fixture corpus as an in-memory view.
func Corpus() *corpus.View {
	return corpus.NewMemory(Files(), map[string]string{"scripts_fixture": "memory"})
}

// Extract runs every registered extractor over files.
func Extract(ctx context.Context, files map[string]string) (map[valueobject.ExtractorKind]*extractor.Result, error) {
	in := extractor.Input{Corpus: corpus.NewMemory(files, nil), Concurrency: 2}
	reg := registry.Default()
	out := make(map[valueobject.ExtractorKind]*extractor.Result)
	for _, kind := range reg.Kinds() {
		e, _ := reg.Get(kind)
		res, err := e.Extract(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("extract %s: %w", kind, err)
		}
		out[kind] = res
	}
	return out, nil
}
