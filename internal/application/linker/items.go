package linker

import (
	"regexp"
	"strconv"
	"strings"

	"scriptdex/internal/adapter/outbound/extractor"
	"scriptdex/internal/domain/entity"
	"scriptdex/internal/domain/service"
	"scriptdex/internal/domain/valueobject"
)

// Item sources inferred from the rest of the graph.
const (
	SourceCraft   = "craft"
	SourceCook    = "cook"
	SourceLoot    = "loot"
	SourceEvent   = "event"
	SourceNatural = "natural"
	SourceSpawn   = "spawn"
)

var (
	literalNumber = regexp.MustCompile(`^[+-]?\d+(\.\d+)?$`)
	equipSlotRef  = regexp.MustCompile(`^EQUIPSLOTS\.([A-Z0-9_]+)$`)
	spawnTags     = []string{"character", "monster", "animal", "smallcreature", "largecreature", "epic"}
)

func parseLiteralNumber(expr string) (float64, bool) {
	if !literalNumber.MatchString(expr) {
		return 0, false
	}
	f, err := strconv.ParseFloat(expr, 64)
	return f, err == nil
}

// universe is the set of ids that become catalog items, with the lookups used to infer
// their sources.
type universe struct {
	ids            map[string]bool
	craftProducts  map[string]bool
	cookingRecipes map[string]bool
	loot           map[string]bool
	icons          map[string]bool
}

func addID(set map[string]bool, raw string) {
	if id, ok := entity.CleanID(raw); ok {
		set[id] = true
	}
}

func (st *linkState) collectUniverse(c *entity.Catalog) universe {
	u := universe{
		ids:            map[string]bool{},
		craftProducts:  map[string]bool{},
		cookingRecipes: map[string]bool{},
		loot:           map[string]bool{},
		icons:          map[string]bool{},
	}
	for id := range st.results.get(valueobject.ExtractorPrefab).Prefabs {
		addID(u.ids, id)
	}
	for id := range st.results.get(valueobject.ExtractorIcons).Icons {
		addID(u.icons, id)
		addID(u.ids, id)
	}
	for name, rec := range c.Craft.Recipes {
		addID(u.ids, name)
		addID(u.ids, rec.Product)
		addID(u.craftProducts, rec.Product)
		for _, ing := range rec.Ingredients {
			addID(u.ids, ing.ItemID)
		}
	}
	for name, rec := range c.Cooking {
		addID(u.ids, name)
		addID(u.cookingRecipes, name)
		for _, ci := range rec.CardIngredients {
			addID(u.ids, ci.Item)
		}
	}
	for id := range c.CookingIngredients {
		addID(u.ids, id)
	}
	for _, id := range st.results.get(valueobject.ExtractorLoot).Loot {
		addID(u.loot, id)
	}
	return u
}

// items builds every catalog item and the asset section.
func (st *linkState) items(c *entity.Catalog) (map[string]*entity.Item, map[string]entity.ItemAssets) {
	u := st.collectUniverse(c)
	prefabs := st.results.get(valueobject.ExtractorPrefab).Prefabs
	defaults := st.results.get(valueobject.ExtractorComponent).ComponentDefaults

	items := make(map[string]*entity.Item, len(u.ids))
	assets := make(map[string]entity.ItemAssets)
	for _, id := range entity.SortedKeys(u.ids) {
		pf := prefabs[id]
		if pf == nil {
			pf = &entity.PrefabRecord{ID: id}
		}
		components := entity.SortedUnique(lowerAll(pf.Components))
		tags := entity.SortedUnique(lowerAll(pf.Tags))

		stats := st.itemStats(id, pf.StatExprs, components, defaults)
		slots := slotsFromStats(stats)
		profile := st.opts.Classifier.Classify(service.ClassifyInput{
			ID:         id,
			Components: components,
			Tags:       tags,
			Sources:    inferSources(id, u, components, tags),
			Slots:      slots,
		})

		itemAssets := selectAssets(pf.Assets)
		if u.icons[id] {
			itemAssets.Icon = st.opts.IconBase + id + ".png"
		}
		if !itemAssets.IsEmpty() {
			assets[id] = itemAssets
		}

		items[id] = &entity.Item{
			ID:            id,
			Kind:          profile.Kind,
			Categories:    service.List(profile.Categories),
			Behaviors:     service.List(profile.Behaviors),
			Sources:       service.List(profile.Sources),
			Slots:         service.List(profile.Slots),
			Components:    components,
			Tags:          tags,
			Assets:        itemAssets,
			PrefabFiles:   entity.SortedUnique(pf.Files),
			PrefabAssets:  nonNilAssets(pf.Assets),
			Brains:        entity.SortedUnique(pf.Brains),
			Stategraphs:   entity.SortedUnique(pf.Stategraphs),
			Helpers:       entity.SortedUnique(pf.Helpers),
			Stats:         stats,
			ProducedBy:    []string{},
			UsedIn:        []string{},
			CookingUsedIn: []string{},
		}
	}
	return items, assets
}

// itemStats merges prefab expressions, component defaults and derived fallbacks, then
// resolves every expression.
func (st *linkState) itemStats(
	id string,
	prefabExprs map[string]string,
	components []string,
	defaults map[string]map[string]string,
) map[string]entity.Stat {
	exprs := make(map[string]string, len(prefabExprs))
	sources := make(map[string]string, len(prefabExprs))
	owners := make(map[string]string)
	for k, v := range prefabExprs {
		if strings.TrimSpace(v) == "" {
			continue
		}
		exprs[k] = v
		sources[k] = entity.StatSourcePrefab
	}
	for _, comp := range components {
		for _, k := range entity.SortedKeys(defaults[comp]) {
			if _, ok := exprs[k]; ok {
				continue
			}
			exprs[k] = defaults[comp][k]
			sources[k] = entity.StatSourceComponentDefault
			owners[k] = comp
		}
	}
	applyStatFallbacks(exprs, sources, owners)

	out := make(map[string]entity.Stat, len(exprs))
	for _, k := range entity.SortedKeys(exprs) {
		s := st.resolveExpr(exprs[k], entity.ItemStatTraceKey(id, k))
		s.Key = k
		s.Source = sources[k]
		s.SourceComponent = owners[k]
		if s.SourceComponent == "" && s.Source == entity.StatSourcePrefab {
			s.SourceComponent, _ = extractor.StatComponent(k)
		}
		out[k] = s
	}
	return out
}

// applyStatFallbacks fills stats that are commonly expressed through a sibling key.
func applyStatFallbacks(exprs, sources, owners map[string]string) {
	assign := func(target, expr, base string) {
		if _, ok := exprs[target]; ok || expr == "" {
			return
		}
		exprs[target] = expr
		sources[target] = entity.StatSourceDerived
		if comp := owners[base]; comp != "" {
			owners[target] = comp
		} else if comp, ok := extractor.StatComponent(target); ok {
			owners[target] = comp
		}
	}

	if v, ok := exprs["insulation"]; ok {
		assign("insulation_winter", v, "insulation")
		assign("insulation_summer", v, "insulation")
	}
	if v, ok := exprs["insulation_winter"]; ok {
		assign("insulation", v, "insulation_winter")
	}
	if v, ok := exprs["insulation_summer"]; ok {
		assign("insulation", v, "insulation_summer")
	}

	if v, ok := exprs["weapon_range_max"]; ok {
		assign("weapon_range", v, "weapon_range_max")
	}
	if v, ok := exprs["weapon_range_min"]; ok {
		assign("weapon_range", v, "weapon_range_min")
	}
	if v, ok := exprs["attack_range_max"]; ok {
		assign("attack_range", v, "attack_range_max")
	}
	if v, ok := exprs["heat_radius_cutoff"]; ok {
		assign("heat_radius", v, "heat_radius_cutoff")
	}

	base, hasBase := exprs["planar_damage_base"]
	bonus, hasBonus := exprs["planar_damage_bonus"]
	switch {
	case hasBase && hasBonus:
		assign("planar_damage", "("+base+") + ("+bonus+")", "planar_damage_base")
	case hasBase:
		assign("planar_damage", base, "planar_damage_base")
	}
	if v, ok := exprs["planar_damage"]; ok {
		assign("planar_damage_base", v, "planar_damage")
	}
}

// slotsFromStats maps an equip_slot expression such as EQUIPSLOTS.HANDS to "hands".
func slotsFromStats(stats map[string]entity.Stat) []string {
	s, ok := stats["equip_slot"]
	if !ok {
		return nil
	}
	expr := strings.TrimSpace(s.Expr)
	if m := equipSlotRef.FindStringSubmatch(expr); m != nil {
		return []string{strings.ToLower(m[1])}
	}
	if unq := strings.Trim(expr, `"'`); unq != expr && unq != "" {
		return []string{strings.ToLower(unq)}
	}
	return nil
}

func inferSources(id string, u universe, components, tags []string) []string {
	var out []string
	tagSet := make(map[string]bool, len(tags))
	for _, t := range tags {
		tagSet[t] = true
	}
	if u.craftProducts[id] {
		out = append(out, SourceCraft)
	}
	if u.cookingRecipes[id] {
		out = append(out, SourceCook)
	}
	if u.loot[id] {
		out = append(out, SourceLoot)
	}
	if tagSet["event"] || tagSet["festival"] {
		out = append(out, SourceEvent)
	}
	if tagSet["plant"] || tagSet["tree"] || contains(components, "pickable") {
		out = append(out, SourceNatural)
	}
	for _, t := range spawnTags {
		if tagSet[t] {
			out = append(out, SourceSpawn)
			break
		}
	}
	return out
}

// selectAssets picks the first ATLAS and IMAGE declarations.
func selectAssets(in []entity.Asset) entity.ItemAssets {
	var out entity.ItemAssets
	for _, a := range in {
		if a.Path == "" {
			continue
		}
		switch strings.ToUpper(a.Type) {
		case "ATLAS":
			if out.Atlas == "" {
				out.Atlas = a.Path
			}
		case "IMAGE":
			if out.Image == "" {
				out.Image = a.Path
			}
		}
	}
	return out
}

func nonNilAssets(in []entity.Asset) []entity.Asset {
	if in == nil {
		return []entity.Asset{}
	}
	return in
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, strings.ToLower(strings.TrimSpace(s)))
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
