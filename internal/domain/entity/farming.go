package entity

import (
	"sort"
	"strings"
)

// Stress states of a farm plant at harvest.
const (
	StressNone     = "NONE"
	StressLow      = "LOW"
	StressModerate = "MODERATE"
	StressHigh     = "HIGH"
)

// FarmMechanics are the growth constants the simulator needs that the definition files
// do not carry.
type FarmMechanics struct {
	Stress FarmStressMechanics `json:"stress"`
	Growth FarmGrowthMechanics `json:"growth"`
}

// FarmStressMechanics describes the stressor set and the final-state thresholds.
type FarmStressMechanics struct {
	Categories   []string       `json:"categories"`
	NumStressors int            `json:"num_stressors"`
	Thresholds   map[string]int `json:"thresholds"`
}

// FarmGrowthMechanics holds season effects on growth time.
type FarmGrowthMechanics struct {
	GoodSeasonMultiplier float64 `json:"good_season_multiplier"`
}

// DefaultFarmMechanics returns the stressor set of the farming rework.
func DefaultFarmMechanics() FarmMechanics {
	return FarmMechanics{
		Stress: FarmStressMechanics{
			Categories:   []string{"nutrients", "moisture", "killjoys", "family", "overcrowding", "season"},
			NumStressors: 6,
			Thresholds:   map[string]int{StressNone: 1, StressLow: 6, StressModerate: 11},
		},
		Growth: FarmGrowthMechanics{GoodSeasonMultiplier: 0.5},
	}
}

// FarmingStats counts the farming document sections.
type FarmingStats struct {
	PlantsTotal      int `json:"plants_total"`
	WeedsTotal       int `json:"weeds_total"`
	FertilizersTotal int `json:"fertilizers_total"`
	SeedWeightsTotal int `json:"seed_weights_total"`
}

// FarmingDefs is the farming definitions artifact. Definition rows stay generic because
// their fields mirror whatever the def tables declare.
type FarmingDefs struct {
	SchemaVersion int                               `json:"schema_version"`
	Meta          BuildMeta                         `json:"meta"`
	Tuning        map[string]interface{}            `json:"tuning"`
	SeedWeights   map[string]interface{}            `json:"seed_weights"`
	Plants        map[string]map[string]interface{} `json:"plants"`
	Weeds         map[string]map[string]interface{} `json:"weeds"`
	Fertilizers   map[string]map[string]interface{} `json:"fertilizers"`
	Mechanics     FarmMechanics                     `json:"mechanics"`
	Stats         FarmingStats                      `json:"stats"`
}

// TuningNumber returns a numeric tuning constant.
func (d *FarmingDefs) TuningNumber(key string) (float64, bool) {
	if d == nil {
		return 0, false
	}
	return asFloat(d.Tuning[key])
}

// PlantIDs returns the sorted plant ids.
func (d *FarmingDefs) PlantIDs() []string {
	if d == nil {
		return nil
	}
	return SortedKeys(d.Plants)
}

// FarmPlant is the typed view of one plant definition row.
type FarmPlant struct {
	ID                  string
	Prefab              string
	Product             string
	ProductOversized    string
	Seed                string
	IsRandomSeed        bool
	GoodSeasons         map[string]bool
	NutrientConsumption [3]float64
	NutrientRestoration [3]bool
	DrinkRate           *float64
	FamilyMinCount      *int
	GrowTime            map[string]interface{}
	LootOversizedRot    []string
}

// NormalizePlantID strips the farm_plant_ prefix and the _seeds suffix.
func NormalizePlantID(id string) string {
	pid := strings.ToLower(strings.TrimSpace(id))
	pid = strings.TrimPrefix(pid, "farm_plant_")
	pid = strings.TrimSuffix(pid, "_seeds")
	return pid
}

// FarmPlantFromRow builds the typed view. Missing or malformed fields fall back to
// zero values; restoration defaults to the channels the plant does not consume.
func FarmPlantFromRow(id string, row map[string]interface{}) FarmPlant {
	p := FarmPlant{
		ID:               id,
		Prefab:           asString(row["prefab"]),
		Product:          asString(row["product"]),
		ProductOversized: asString(row["product_oversized"]),
		Seed:             asString(row["seed"]),
		GoodSeasons:      make(map[string]bool),
	}
	p.IsRandomSeed, _ = row["is_randomseed"].(bool)

	if seasons, ok := row["good_seasons"].(map[string]interface{}); ok {
		for k, v := range seasons {
			if b, ok := v.(bool); ok && b {
				p.GoodSeasons[strings.ToLower(k)] = true
			}
		}
	}

	if consume, ok := row["nutrient_consumption"].([]interface{}); ok && len(consume) == 3 {
		for i, v := range consume {
			p.NutrientConsumption[i], _ = asFloat(v)
		}
	}
	restore, ok := row["nutrient_restoration"].([]interface{})
	if ok && len(restore) == 3 {
		for i, v := range restore {
			b, _ := v.(bool)
			p.NutrientRestoration[i] = b
		}
	} else {
		for i, c := range p.NutrientConsumption {
			p.NutrientRestoration[i] = c == 0
		}
	}

	if moisture, ok := row["moisture"].(map[string]interface{}); ok {
		if f, ok := asFloat(moisture["drink_rate"]); ok {
			p.DrinkRate = &f
		}
	}
	if f, ok := asFloat(row["family_min_count"]); ok {
		n := int(f)
		p.FamilyMinCount = &n
	}
	if gt, ok := row["grow_time"].(map[string]interface{}); ok {
		p.GrowTime = gt
	} else {
		p.GrowTime = map[string]interface{}{}
	}
	if loot, ok := row["loot_oversized_rot"].([]interface{}); ok {
		for _, v := range loot {
			if s := asString(v); s != "" {
				p.LootOversizedRot = append(p.LootOversizedRot, s)
			}
		}
	}
	return p
}

// GoodSeasonList returns the good seasons sorted.
func (p FarmPlant) GoodSeasonList() []string {
	out := make([]string, 0, len(p.GoodSeasons))
	for s := range p.GoodSeasons {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}
