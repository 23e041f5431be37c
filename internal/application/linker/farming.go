package linker

import (
	"regexp"
	"strings"

	"scriptdex/internal/adapter/outbound/extractor"
	"scriptdex/internal/adapter/outbound/luaparse"
	"scriptdex/internal/adapter/outbound/tuning"
	"scriptdex/internal/domain/entity"
	"scriptdex/internal/domain/valueobject"
)

// farmingTuningKeys are the TUNING constants the farming document exports.
var farmingTuningKeys = []string{
	"FARM_PLANT_RANDOMSEED_WEED_CHANCE",
	"SEED_WEIGHT_SEASON_MOD",
	"SEED_CHANCE_VERYCOMMON",
	"SEED_CHANCE_COMMON",
	"SEED_CHANCE_UNCOMMON",
	"SEED_CHANCE_RARE",
	"FARM_PLANT_CONSUME_NUTRIENT_LOW",
	"FARM_PLANT_CONSUME_NUTRIENT_MED",
	"FARM_PLANT_CONSUME_NUTRIENT_HIGH",
	"FARM_PLANT_DRINK_LOW",
	"FARM_PLANT_DRINK_MED",
	"FARM_PLANT_DRINK_HIGH",
	"FARM_PLANT_DROUGHT_TOLERANCE",
	"FARM_PLANT_KILLJOY_RADIUS",
	"FARM_PLANT_KILLJOY_TOLERANCE",
	"FARM_PANT_OVERCROWDING_MAX_PLANTS",
	"FARM_PLANT_SAME_FAMILY_MIN",
	"FARM_PLANT_SAME_FAMILY_RADIUS",
	"FARM_PLANT_LONG_LIFE_MULT",
	"STARTING_NUTRIENTS_MIN",
	"STARTING_NUTRIENTS_MAX",
	"SOIL_MOISTURE_UPDATE_TIME",
	"SOIL_RAIN_MOD",
	"SOIL_MIN_DRYING_TEMP",
	"SOIL_MAX_DRYING_TEMP",
	"SOIL_MIN_TEMP_DRY_RATE",
	"SOIL_MAX_TEMP_DRY_RATE",
	"SOIL_MAX_MOISTURE_VALUE",
	"FARM_TILL_SPACING",
	"FARM_PLANT_PHYSICS_RADIUS",
	"FARM_PLOW_USES",
	"FARM_HOE_USES",
	"SEASONAL_WEED_SPAWN_CAHNCE",
	"FORGETMELOTS_RESPAWNER_MIN",
	"FORGETMELOTS_RESPAWNER_VAR",
	"FIRE_NETTLE_TOXIN_TEMP_MODIFIER",
	"FIRE_NETTLE_TOXIN_DURATION",
	"WEED_FIRENETTLE_DAMAGE",
	"WEED_TILLWEED_MAX_DEBRIS",
	"WEED_TILLWEED_DEBRIS_TIME_MIN",
	"WEED_TILLWEED_DEBRIS_TIME_VAR",
	"FORMULA_NUTRIENTS_INDEX",
	"COMPOST_NUTRIENTS_INDEX",
	"MANURE_NUTRIENTS_INDEX",
	"POOP_NUTRIENTS",
	"FERTILIZER_NUTRIENTS",
	"GUANO_NUTRIENTS",
	"SPOILED_FOOD_NUTRIENTS",
	"ROTTENEGG_NUTRIENTS",
	"COMPOST_NUTRIENTS",
	"SPOILED_FISH_SMALL_NUTRIENTS",
	"SPOILED_FISH_NUTRIENTS",
	"SOILAMENDER_NUTRIENTS_LOW",
	"SOILAMENDER_NUTRIENTS_MED",
	"SOILAMENDER_NUTRIENTS_HIGH",
	"COMPOSTWRAP_NUTRIENTS",
	"GLOMMERFUEL_NUTRIENTS",
	"MOSQUITOFERTILIZER_NUTRIENTS",
	"TREEGROWTH_NUTRIENTS",
}

var (
	plantFields = map[string]bool{
		"grow_time": true, "moisture": true, "good_seasons": true, "nutrient_consumption": true,
		"max_killjoys_tolerance": true, "is_randomseed": true, "fireproof": true, "weight_data": true,
	}
	weedFields = map[string]bool{
		"grow_time": true, "spread": true, "seed_weight": true, "product": true,
		"nutrient_consumption": true, "moisture": true, "extra_tags": true, "prefab_deps": true,
	}
	identifier     = regexp.MustCompile(`\b[A-Za-z_][A-Za-z0-9_]*\b`)
	exactTuningRef = regexp.MustCompile(`^TUNING\.([A-Za-z0-9_]+)$`)
)

// farmScope resolves farming expressions: file locals are substituted first, then a
// bare TUNING.X naming a table expands to that table, then the tuning resolver runs.
// Anything left unresolved keeps its source text.
type farmScope struct {
	resolver *tuning.Resolver
	locals   map[string]valueobject.ParsedValue
	tables   bool
}

func (s farmScope) value(v valueobject.ParsedValue) interface{} {
	if t, ok := v.AsTable(); ok {
		return s.table(t)
	}
	if raw, ok := v.Raw(); ok {
		return s.expr(raw)
	}
	return v.Plain()
}

func (s farmScope) table(t *valueobject.Table) interface{} {
	if keys := t.Keys(); len(keys) > 0 {
		out := make(map[string]interface{}, len(keys))
		for _, k := range keys {
			v, _ := t.Get(k)
			out[k] = s.value(v)
		}
		return out
	}
	arr := t.Array()
	out := make([]interface{}, 0, len(arr))
	for _, v := range arr {
		out = append(out, s.value(v))
	}
	return out
}

func (s farmScope) expr(raw string) interface{} {
	raw = strings.TrimSpace(strings.TrimRight(strings.TrimSpace(raw), ","))
	parsed := luaparse.ParseExpr(raw)
	if !parsed.IsExpr() {
		return s.value(parsed)
	}
	text := s.substitute(raw)
	if text == "" {
		return text
	}
	if m := exactTuningRef.FindStringSubmatch(text); m != nil && s.tables {
		if v, ok := s.resolver.Table().Lookup(m[1]); ok {
			if t, isTable := v.AsTable(); isTable {
				return farmScope{resolver: s.resolver}.table(t)
			}
		}
	}
	if f, ok := s.resolver.Resolve(text); ok {
		return f
	}
	return text
}

func (s farmScope) substitute(expr string) string {
	if len(s.locals) == 0 {
		return strings.TrimSpace(expr)
	}
	return strings.TrimSpace(identifier.ReplaceAllStringFunc(expr, func(name string) string {
		v, ok := s.locals[name]
		if !ok {
			return name
		}
		if f, isNum := v.AsNumber(); isNum {
			return valueobject.FormatNumber(f)
		}
		if raw, isExpr := v.Raw(); isExpr {
			return raw
		}
		return name
	}))
}

// rhs resolves the right-hand side of a field assignment, expanding table constructors.
func (s farmScope) rhs(rhs string) interface{} {
	rhs = strings.TrimSpace(strings.TrimRight(strings.TrimSpace(rhs), ","))
	if t, ok := luaparse.ParseTableExpr(rhs); ok {
		return s.table(t)
	}
	return s.expr(rhs)
}

func (s farmScope) number(v interface{}) (float64, bool) {
	f, ok := v.(float64)
	return f, ok
}

func (s farmScope) scale(v interface{}, factor float64) interface{} {
	if f, ok := s.number(v); ok {
		return f * factor
	}
	return v
}

// plantGrowTime expands MakeGrowTimes(germ_min, germ_max, full_min, full_max).
func (s farmScope) plantGrowTime(args []string) map[string]interface{} {
	if len(args) < 4 {
		return map[string]interface{}{}
	}
	germMin, germMax := s.expr(args[0]), s.expr(args[1])
	fullMin, fullMax := s.expr(args[2]), s.expr(args[3])
	grow := map[string]interface{}{
		"seed":   []interface{}{germMin, germMax},
		"sprout": []interface{}{s.scale(fullMin, 0.5), s.scale(fullMax, 0.5)},
		"small":  []interface{}{s.scale(fullMin, 0.3), s.scale(fullMax, 0.3)},
		"med":    []interface{}{s.scale(fullMin, 0.2), s.scale(fullMax, 0.2)},
	}
	if day, ok := s.resolver.Number("TOTAL_DAY_TIME"); ok {
		grow["full"] = 4 * day
		grow["oversized"] = 6 * day
		grow["regrow"] = []interface{}{4 * day, 5 * day}
	}
	return grow
}

// weedGrowTime expands MakeGrowTimes(full_min, full_max, bolting) for weeds.
func (s farmScope) weedGrowTime(args []string) map[string]interface{} {
	if len(args) < 3 {
		return map[string]interface{}{}
	}
	fullMin, fullMax := s.expr(args[0]), s.expr(args[1])
	if truthy(s.expr(args[2])) {
		return map[string]interface{}{
			"small": []interface{}{s.scale(fullMin, 0.3), s.scale(fullMax, 0.3)},
			"med":   []interface{}{s.scale(fullMin, 0.3), s.scale(fullMax, 0.3)},
			"full":  []interface{}{s.scale(fullMin, 0.4), s.scale(fullMax, 0.4)},
		}
	}
	return map[string]interface{}{
		"small": []interface{}{s.scale(fullMin, 0.6), s.scale(fullMax, 0.6)},
		"med":   []interface{}{s.scale(fullMin, 0.4), s.scale(fullMax, 0.4)},
	}
}

func truthy(v interface{}) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case float64:
		return x != 0
	case string:
		return x != ""
	}
	return true
}

// rows resolves the constructors and the allowed field assignments of one def file.
// allowed nil accepts every field.
func (s farmScope) rows(defs extractor.FarmDefs, allowed map[string]bool, grow func([]string) map[string]interface{}) map[string]map[string]interface{} {
	out := make(map[string]map[string]interface{}, len(defs.Order))
	for _, name := range defs.Order {
		row := map[string]interface{}{}
		if t, ok := defs.Tables[name]; ok {
			for _, k := range t.Keys() {
				v, _ := t.Get(k)
				row[k] = s.value(v)
			}
		}
		out[name] = row
	}
	for _, a := range defs.Assignments {
		if allowed != nil && !allowed[a.Field] {
			continue
		}
		row, ok := out[a.Name]
		if !ok {
			row = map[string]interface{}{}
			out[a.Name] = row
		}
		if a.Field == "grow_time" && grow != nil {
			row[a.Field] = grow(extractor.CallArgs(a.RHS, "MakeGrowTimes"))
			continue
		}
		row[a.Field] = s.rhs(a.RHS)
	}
	return out
}

// farming resolves the raw farming definitions into the farming document.
func (st *linkState) farming() *entity.FarmingDefs {
	raw := st.results.get(valueobject.ExtractorFarming).Farming
	if raw == nil {
		raw = &extractor.FarmingRaw{}
	}
	doc := &entity.FarmingDefs{
		SchemaVersion: entity.FarmingSchemaVersion,
		Tuning:        map[string]interface{}{},
		SeedWeights:   map[string]interface{}{},
		Mechanics:     entity.DefaultFarmMechanics(),
	}

	base := farmScope{resolver: st.resolver, tables: true}
	for _, key := range farmingTuningKeys {
		if v, ok := st.resolver.Table().Lookup(key); ok {
			if t, isTable := v.AsTable(); isTable {
				doc.Tuning[key] = farmScope{resolver: st.resolver}.table(t)
				continue
			}
		}
		if f, ok := st.resolver.Number(key); ok {
			doc.Tuning[key] = f
		} else {
			doc.Tuning[key] = nil
		}
	}

	veggies := farmScope{resolver: st.resolver, locals: raw.VeggieLocals}
	for _, name := range entity.SortedKeys(raw.SeedWeights) {
		doc.SeedWeights[name] = veggies.expr(raw.SeedWeights[name])
	}

	plants := base
	plants.locals = raw.Plants.Locals
	doc.Plants = plants.rows(raw.Plants, plantFields, plants.plantGrowTime)
	for _, name := range entity.SortedKeys(doc.Plants) {
		st.plantDefaults(name, doc.Plants[name], doc.SeedWeights)
	}

	weeds := base
	weeds.locals = raw.Weeds.Locals
	doc.Weeds = weeds.rows(raw.Weeds, weedFields, weeds.weedGrowTime)

	ferts := base
	ferts.locals = raw.Fertilizers.Locals
	doc.Fertilizers = ferts.rows(raw.Fertilizers, nil, nil)

	doc.Stats = entity.FarmingStats{
		PlantsTotal:      len(doc.Plants),
		WeedsTotal:       len(doc.Weeds),
		FertilizersTotal: len(doc.Fertilizers),
		SeedWeightsTotal: len(doc.SeedWeights),
	}
	return doc
}

// plantDefaults fills the fields the game derives for every plant at load time.
func (st *linkState) plantDefaults(name string, row map[string]interface{}, seedWeights map[string]interface{}) {
	if consume, ok := row["nutrient_consumption"].([]interface{}); ok {
		restore := make([]interface{}, len(consume))
		for i, v := range consume {
			if f, isNum := v.(float64); isNum && f == 0 {
				restore[i] = true
			}
		}
		row["nutrient_restoration"] = restore
	}

	setDefault(row, "prefab", "farm_plant_"+name)
	setDefault(row, "bank", row["prefab"])
	setDefault(row, "build", row["prefab"])

	if truthy(row["is_randomseed"]) {
		row["seed"] = "seeds"
		row["plant_type_tag"] = "farm_plant_randomseed"
		setDefault(row, "family_min_count", 0.0)
	} else {
		seed := name + "_seeds"
		row["product"] = name
		row["product_oversized"] = name + "_oversized"
		row["seed"] = seed
		row["plant_type_tag"] = "farm_plant_" + name
		setDefault(row, "loot_oversized_rot", []interface{}{
			"spoiled_food", "spoiled_food", "spoiled_food", seed, "fruitfly", "fruitfly",
		})
		if _, ok := row["family_min_count"]; !ok {
			row["family_min_count"] = optionalNumber(st.resolver.Number("FARM_PLANT_SAME_FAMILY_MIN"))
		}
		if _, ok := row["family_check_dist"]; !ok {
			row["family_check_dist"] = optionalNumber(st.resolver.Number("FARM_PLANT_SAME_FAMILY_RADIUS"))
		}
	}
	if w, ok := seedWeights[name]; ok {
		row["seed_weight"] = w
	}
}

func setDefault(row map[string]interface{}, key string, v interface{}) {
	if _, ok := row[key]; !ok {
		row[key] = v
	}
}

func optionalNumber(f float64, ok bool) interface{} {
	if !ok {
		return nil
	}
	return f
}
