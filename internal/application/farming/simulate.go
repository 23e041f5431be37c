package farming

import (
	"fmt"
	"strings"

	"scriptdex/internal/domain/entity"
	"scriptdex/internal/domain/errors/domain"
)

// SimRequest describes one crop cycle. Stress holds the stressor count per growth stage.
type SimRequest struct {
	Plant       string `json:"plant"`
	Season      string `json:"season"`
	Stress      []int  `json:"stress"`
	LongLife    bool   `json:"long_life"`
	NoOversized bool   `json:"no_oversized"`
}

// Range is a [min, max] duration in seconds.
type Range [2]float64

// SimPlant identifies the simulated plant.
type SimPlant struct {
	ID      string `json:"id"`
	Prefab  string `json:"prefab"`
	Product string `json:"product"`
	Seed    string `json:"seed"`
}

// SimStress is the stress outcome.
type SimStress struct {
	NumStressors int    `json:"num_stressors"`
	StagePoints  []int  `json:"stage_points"`
	TotalPoints  int    `json:"total_points"`
	FinalState   string `json:"final_state"`
}

// SimTimes are the stage durations. Nil means the definitions carry no numeric value.
type SimTimes struct {
	Seed           *Range   `json:"seed"`
	Sprout         *Range   `json:"sprout"`
	Small          *Range   `json:"small"`
	Med            *Range   `json:"med"`
	SpoilFull      *float64 `json:"spoil_full"`
	SpoilOversized *float64 `json:"spoil_oversized"`
	Regrow         *Range   `json:"regrow"`
}

// SimLoot is what the plant drops when picked and when left to rot.
type SimLoot struct {
	Harvest []string `json:"harvest"`
	Rotten  []string `json:"rotten"`
}

// SimResult is the outcome of Simulate.
type SimResult struct {
	Plant            SimPlant  `json:"plant"`
	Season           string    `json:"season"`
	GoodSeason       bool      `json:"good_season"`
	SeasonMultiplier float64   `json:"season_multiplier"`
	Stress           SimStress `json:"stress"`
	Oversized        bool      `json:"oversized"`
	Times            SimTimes  `json:"times"`
	Loot             SimLoot   `json:"loot"`
}

// Simulate plays one crop cycle: stage stress decides growth time, the final stress
// state and the loot. Unknown plants fail with ErrUnknownPlant.
func (p *Planner) Simulate(req SimRequest) (*SimResult, error) {
	id := entity.NormalizePlantID(req.Plant)
	if p.defs == nil || p.defs.Plants[id] == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownPlant, req.Plant)
	}
	plant := entity.FarmPlantFromRow(id, p.defs.Plants[id])

	mech := p.defs.Mechanics
	defaults := entity.DefaultFarmMechanics()
	numStressors := mech.Stress.NumStressors
	if numStressors == 0 {
		numStressors = len(mech.Stress.Categories)
	}

	points := make([]int, 0, 4)
	for _, n := range req.Stress {
		points = append(points, clampStress(n, numStressors))
	}
	if len(points) == 0 {
		points = []int{0, 0, 0, 0}
	}
	for len(points) < 4 {
		points = append(points, points[len(points)-1])
	}
	total := sum(points)
	final := finalStress(total, mech.Stress.Thresholds, defaults.Stress.Thresholds)

	season := strings.ToLower(strings.TrimSpace(req.Season))
	good := season != "" && plant.GoodSeasons[season]
	mult := 1.0
	if good {
		mult = defaults.Growth.GoodSeasonMultiplier
		if mech.Growth.GoodSeasonMultiplier > 0 {
			mult = mech.Growth.GoodSeasonMultiplier
		}
	}

	steps := 1
	if numStressors > 0 {
		steps = numStressors + 1
	}
	times := SimTimes{Seed: scaleRange(rangeOf(plant.GrowTime["seed"]), mult)}
	stages := []struct {
		name string
		dst  **Range
	}{{"sprout", &times.Sprout}, {"small", &times.Small}, {"med", &times.Med}}
	for i, stage := range stages {
		bounds := rangeOf(plant.GrowTime[stage.name])
		if bounds != nil {
			bounds = stageRange(*bounds, points[i], steps)
		}
		*stage.dst = scaleRange(bounds, mult)
	}

	times.SpoilFull = number(plant.GrowTime["full"])
	times.SpoilOversized = number(plant.GrowTime["oversized"])
	if req.LongLife {
		if f, ok := p.defs.TuningNumber("FARM_PLANT_LONG_LIFE_MULT"); ok && f != 0 {
			times.SpoilFull = scale(times.SpoilFull, f)
			times.SpoilOversized = scale(times.SpoilOversized, f)
		}
	}

	oversized := final == entity.StressNone && !req.NoOversized
	if !oversized {
		times.Regrow = rangeOf(plant.GrowTime["regrow"])
	}

	return &SimResult{
		Plant:            SimPlant{ID: id, Prefab: plant.Prefab, Product: plant.Product, Seed: plant.Seed},
		Season:           season,
		GoodSeason:       good,
		SeasonMultiplier: mult,
		Stress:           SimStress{NumStressors: numStressors, StagePoints: points, TotalPoints: total, FinalState: final},
		Oversized:        oversized,
		Times:            times,
		Loot: SimLoot{
			Harvest: harvestLoot(plant, final, oversized),
			Rotten:  rottenLoot(plant, oversized),
		},
	}, nil
}

func clampStress(n, numStressors int) int {
	n = max(0, n)
	if numStressors > 0 {
		n = min(n, numStressors)
	}
	return n
}

func finalStress(total int, thresholds, defaults map[string]int) string {
	limit := func(state string) int {
		if v := thresholds[state]; v > 0 {
			return v
		}
		return defaults[state]
	}
	switch {
	case total <= limit(entity.StressNone):
		return entity.StressNone
	case total <= limit(entity.StressLow):
		return entity.StressLow
	case total <= limit(entity.StressModerate):
		return entity.StressModerate
	}
	return entity.StressHigh
}

// stageRange narrows [min, max] to the slice selected by the stage's stress points.
func stageRange(bounds Range, points, steps int) *Range {
	per := (bounds[1] - bounds[0]) / float64(steps)
	return &Range{bounds[0] + float64(points)*per, bounds[0] + float64(points+1)*per}
}

func harvestLoot(p entity.FarmPlant, state string, oversized bool) []string {
	if oversized {
		if p.ProductOversized == "" {
			return []string{}
		}
		return []string{p.ProductOversized}
	}
	if p.Product == "" {
		return []string{}
	}
	loot := []string{p.Product}
	seeds := 0
	switch state {
	case entity.StressNone, entity.StressLow:
		seeds = 2
	case entity.StressModerate:
		seeds = 1
	}
	for i := 0; i < seeds && p.Seed != ""; i++ {
		loot = append(loot, p.Seed)
	}
	return loot
}

func rottenLoot(p entity.FarmPlant, oversized bool) []string {
	if !oversized {
		return []string{"spoiled_food"}
	}
	if len(p.LootOversizedRot) > 0 {
		return append([]string(nil), p.LootOversizedRot...)
	}
	loot := []string{"spoiled_food", "spoiled_food", "spoiled_food"}
	if p.Seed != "" {
		loot = append(loot, p.Seed)
	}
	return append(loot, "fruitfly", "fruitfly")
}

func number(v interface{}) *float64 {
	if f, ok := v.(float64); ok {
		return &f
	}
	return nil
}

func rangeOf(v interface{}) *Range {
	pair, ok := v.([]interface{})
	if !ok || len(pair) != 2 {
		return nil
	}
	lo, hi := number(pair[0]), number(pair[1])
	if lo == nil || hi == nil {
		return nil
	}
	return &Range{*lo, *hi}
}

func scaleRange(r *Range, f float64) *Range {
	if r == nil {
		return nil
	}
	return &Range{r[0] * f, r[1] * f}
}

func scale(v *float64, f float64) *float64 {
	if v == nil {
		return nil
	}
	out := *v * f
	return &out
}
