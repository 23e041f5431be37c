package farming

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scriptdex/internal/domain/entity"
	"scriptdex/internal/domain/errors/domain"
)

func list(vs ...interface{}) []interface{} { return vs }

func plantRow(consume []interface{}, seasons ...string) map[string]interface{} {
	good := map[string]interface{}{}
	for _, s := range seasons {
		good[s] = true
	}
	return map[string]interface{}{
		"nutrient_consumption": consume,
		"family_min_count":     0.0,
		"good_seasons":         good,
		"moisture":             map[string]interface{}{"drink_rate": -0.0075},
	}
}

func testDefs() *entity.FarmingDefs {
	carrot := plantRow(list(2.0, 0.0, 0.0), "autumn", "winter", "spring")
	carrot["product"] = "carrot"
	carrot["product_oversized"] = "carrot_oversized"
	carrot["seed"] = "carrot_seeds"
	carrot["prefab"] = "farm_plant_carrot"
	carrot["grow_time"] = map[string]interface{}{
		"seed":      list(100.0, 200.0),
		"sprout":    list(70.0, 140.0),
		"small":     list(42.0, 84.0),
		"med":       list(28.0, 56.0),
		"full":      1920.0,
		"oversized": 2880.0,
		"regrow":    list(1920.0, 2400.0),
	}

	return &entity.FarmingDefs{
		Tuning: map[string]interface{}{
			"FARM_PLANT_SAME_FAMILY_RADIUS":     4.0,
			"FARM_PANT_OVERCROWDING_MAX_PLANTS": 9.0,
			"FARM_PLANT_LONG_LIFE_MULT":         2.0,
			"FARM_PLANT_DRINK_LOW":              -0.0075,
			"FARM_PLANT_DRINK_MED":              -0.0175,
			"FARM_PLANT_DRINK_HIGH":             -0.035,
		},
		Plants: map[string]map[string]interface{}{
			"carrot":    carrot,
			"evenplant": plantRow(list(0.0, 0.0, 0.0), "spring"),
			"hungry":    plantRow(list(0.0, 4.0, 0.0), "spring"),
			"weird":     map[string]interface{}{"is_randomseed": true},
		},
		Mechanics: entity.DefaultFarmMechanics(),
	}
}

func TestSuggest_RanksByDeficit(t *testing.T) {
	p := NewPlanner(testDefs())

	plans, err := p.Suggest(PlanRequest{
		PlantIDs: []string{"evenplant", "hungry"},
		MaxKinds: 1,
		Layout:   LayoutGrid,
		Width:    3,
		Height:   3,
	})
	require.NoError(t, err)
	require.Len(t, plans, 2)

	assert.Equal(t, []string{"evenplant"}, plans[0].Plants)
	assert.Equal(t, 0, plans[0].Nutrients.Overall.Deficit.Count)
	assert.False(t, plans[0].Nutrients.Overall.MidStageRisk)

	hungry := plans[1]
	assert.Equal(t, []string{"hungry"}, hungry.Plants)
	assert.Equal(t, []int{2}, hungry.Nutrients.Overall.Deficit.Channels)
	assert.InDelta(t, -144, hungry.Nutrients.Overall.NetCycle[1], 1e-9)
	assert.True(t, hungry.Nutrients.Overall.MidStageRisk)

	require.NotNil(t, plans[0].Layout)
	assert.Equal(t, LayoutGrid, plans[0].Layout.Mode)
	assert.Len(t, plans[0].Layout.Rows, 3)
	assert.Equal(t, 9, plans[0].Family.LargestCluster["evenplant"])
	require.NotNil(t, plans[0].Water.Avg)
	assert.Equal(t, "low", plans[0].Water.Label)
}

func TestSuggest_Pits(t *testing.T) {
	p := NewPlanner(testDefs())

	tests := []struct {
		mode      string
		wantSlots int
	}{
		{mode: "8", wantSlots: 8},
		{mode: "9", wantSlots: 9},
		{mode: "10", wantSlots: 10},
	}
	for _, tt := range tests {
		t.Run("mode "+tt.mode, func(t *testing.T) {
			plans, err := p.Suggest(PlanRequest{
				Season:   "spring",
				PlantIDs: []string{"evenplant", "hungry"},
				MaxKinds: 2,
				TopN:     3,
				PitMode:  tt.mode,
			})
			require.NoError(t, err)
			require.Len(t, plans, 3)

			best := plans[0]
			assert.Equal(t, []string{"evenplant"}, best.Plants)
			assert.Equal(t, tt.wantSlots, best.Slots)
			require.NotNil(t, best.Layout)
			assert.Len(t, best.Layout.Pits, tt.wantSlots)
			assert.Equal(t, tt.wantSlots, best.Layout.HolesPerTile)
			require.NotNil(t, best.Nutrients.Tile)
			assert.Len(t, best.Nutrients.Tiles, 1)
			require.NotNil(t, best.OvercrowdingOK)
			assert.Equal(t, tt.wantSlots <= 9, *best.OvercrowdingOK)
			require.NotNil(t, best.Family.LayoutOK)
			assert.True(t, *best.Family.LayoutOK)
		})
	}
}

func TestSuggest_SeasonFilterAndRandomSeed(t *testing.T) {
	p := NewPlanner(testDefs())

	plans, err := p.Suggest(PlanRequest{Season: "winter", MaxKinds: 2, Layout: LayoutGrid, Width: 2, Height: 2})
	require.NoError(t, err)
	require.NotEmpty(t, plans)
	for _, plan := range plans {
		assert.Equal(t, []string{"carrot"}, plan.Plants)
	}
	assert.Equal(t, "1", plans[0].Ratio)
}

func TestSuggest_InvalidRequests(t *testing.T) {
	p := NewPlanner(testDefs())

	tests := []struct {
		name    string
		req     PlanRequest
		wantErr error
	}{
		{name: "too many kinds", req: PlanRequest{MaxKinds: 5}, wantErr: domain.ErrInvalidFarmingRequest},
		{name: "bad layout", req: PlanRequest{Layout: "hex"}, wantErr: domain.ErrInvalidFarmingRequest},
		{name: "bad pit mode", req: PlanRequest{PitMode: "7"}, wantErr: domain.ErrInvalidFarmingRequest},
		{name: "too many slots", req: PlanRequest{Layout: LayoutGrid, Width: 7, Height: 7}, wantErr: domain.ErrInvalidFarmingRequest},
		{name: "unknown plant", req: PlanRequest{PlantIDs: []string{"durian"}}, wantErr: domain.ErrUnknownPlant},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Suggest(tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestChoosePitLayout_PrefersFixedPattern(t *testing.T) {
	defs := testDefs()
	sc := &scorer{
		planner: NewPlanner(defs),
		req:     PlanRequest{PitMode: "9", Width: 1, Height: 2, PreferFixed: true},
		pits:    buildPits(1, 2, "9"),
		netMap:  map[string][3]float64{"a": {}, "b": {}},
	}
	sc.graph = pitGraph(sc.pits, 1)

	layout, clusters := sc.choosePitLayout([]string{"a", "b"}, []int{6, 12}, map[string]int{"a": 0, "b": 0})
	require.Len(t, layout, 18)

	rowOf, _, rows, cols := gridIndices(sc.pits)
	require.Equal(t, 6, rows)
	require.Equal(t, 3, cols)
	for i, plant := range layout {
		want := "b"
		if rowOf[i] == 2 || rowOf[i] == 3 {
			want = "a"
		}
		assert.Equal(t, want, plant, "pit %d", i)
	}
	assert.Equal(t, 6, clusters["a"])
}

func TestPartitionsAndRatio(t *testing.T) {
	var got [][]int
	partitions(4, []int{1, 1}, func(c []int) { got = append(got, c) })
	assert.Equal(t, [][]int{{1, 3}, {2, 2}, {3, 1}}, got)

	got = nil
	partitions(3, []int{2, 2}, func(c []int) { got = append(got, c) })
	assert.Empty(t, got)

	assert.Equal(t, "1:2", ratioLabel([]int{6, 12}))
	assert.Equal(t, "2:3", ratioLabel([]int{2, 3}))
	assert.Equal(t, "1", ratioLabel([]int{9}))
}

func TestSimulate(t *testing.T) {
	p := NewPlanner(testDefs())

	tests := []struct {
		name          string
		req           SimRequest
		wantState     string
		wantPoints    []int
		wantOversized bool
		wantHarvest   []string
		wantRotten    []string
		wantSprout    Range
		wantRegrow    bool
	}{
		{
			name:          "stress free in season",
			req:           SimRequest{Plant: "carrot", Season: "Autumn"},
			wantState:     entity.StressNone,
			wantPoints:    []int{0, 0, 0, 0},
			wantOversized: true,
			wantHarvest:   []string{"carrot_oversized"},
			wantRotten:    []string{"spoiled_food", "spoiled_food", "spoiled_food", "carrot_seeds", "fruitfly", "fruitfly"},
			wantSprout:    Range{35, 40},
		},
		{
			name:        "moderate out of season",
			req:         SimRequest{Plant: "carrot_seeds", Season: "summer", Stress: []int{2}},
			wantState:   entity.StressModerate,
			wantPoints:  []int{2, 2, 2, 2},
			wantHarvest: []string{"carrot", "carrot_seeds"},
			wantRotten:  []string{"spoiled_food"},
			wantSprout:  Range{90, 100},
			wantRegrow:  true,
		},
		{
			name:        "points are clamped",
			req:         SimRequest{Plant: "farm_plant_carrot", Stress: []int{9, 0, 0, -3}},
			wantState:   entity.StressLow,
			wantPoints:  []int{6, 0, 0, 0},
			wantHarvest: []string{"carrot", "carrot_seeds", "carrot_seeds"},
			wantRotten:  []string{"spoiled_food"},
			wantSprout:  Range{130, 140},
			wantRegrow:  true,
		},
		{
			name:        "high stress",
			req:         SimRequest{Plant: "carrot", Stress: []int{6, 6, 6, 6}},
			wantState:   entity.StressHigh,
			wantPoints:  []int{6, 6, 6, 6},
			wantHarvest: []string{"carrot"},
			wantRotten:  []string{"spoiled_food"},
			wantSprout:  Range{130, 140},
			wantRegrow:  true,
		},
		{
			name:        "oversize disabled",
			req:         SimRequest{Plant: "carrot", NoOversized: true},
			wantState:   entity.StressNone,
			wantPoints:  []int{0, 0, 0, 0},
			wantHarvest: []string{"carrot", "carrot_seeds", "carrot_seeds"},
			wantRotten:  []string{"spoiled_food"},
			wantSprout:  Range{70, 80},
			wantRegrow:  true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := p.Simulate(tt.req)
			require.NoError(t, err)

			assert.Equal(t, "carrot", res.Plant.ID)
			assert.Equal(t, tt.wantState, res.Stress.FinalState)
			assert.Equal(t, tt.wantPoints, res.Stress.StagePoints)
			assert.Equal(t, tt.wantOversized, res.Oversized)
			assert.Equal(t, tt.wantHarvest, res.Loot.Harvest)
			assert.Equal(t, tt.wantRotten, res.Loot.Rotten)
			require.NotNil(t, res.Times.Sprout)
			assert.InDelta(t, tt.wantSprout[0], res.Times.Sprout[0], 1e-9)
			assert.InDelta(t, tt.wantSprout[1], res.Times.Sprout[1], 1e-9)
			assert.Equal(t, tt.wantRegrow, res.Times.Regrow != nil)
		})
	}
}

func TestSimulate_LongLifeAndSeason(t *testing.T) {
	p := NewPlanner(testDefs())

	res, err := p.Simulate(SimRequest{Plant: "carrot", Season: "winter", LongLife: true})
	require.NoError(t, err)
	assert.True(t, res.GoodSeason)
	assert.InDelta(t, 0.5, res.SeasonMultiplier, 1e-9)
	require.NotNil(t, res.Times.Seed)
	assert.Equal(t, Range{50, 100}, *res.Times.Seed)
	require.NotNil(t, res.Times.SpoilFull)
	assert.InDelta(t, 3840, *res.Times.SpoilFull, 1e-9)
	assert.InDelta(t, 5760, *res.Times.SpoilOversized, 1e-9)
}

func TestSimulate_UnknownPlant(t *testing.T) {
	_, err := NewPlanner(testDefs()).Simulate(SimRequest{Plant: "durian"})
	assert.ErrorIs(t, err, domain.ErrUnknownPlant)

	_, err = NewPlanner(nil).Simulate(SimRequest{Plant: "carrot"})
	assert.ErrorIs(t, err, domain.ErrUnknownPlant)
}
