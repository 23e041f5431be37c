package cooking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scriptdex/internal/domain/entity"
	"scriptdex/internal/domain/errors/domain"
)

func rule(tags, names []entity.Constraint) *entity.CookingRule {
	return &entity.CookingRule{Kind: "test_return", Constraints: entity.RuleConstraints{Tags: tags, Names: names}}
}

func testCatalog(withWetgoop bool) *entity.Catalog {
	c := entity.NewCatalog()
	c.Cooking["butterflymuffin"] = &entity.CookingRecipe{
		Name: "butterflymuffin", Priority: 1, Weight: 1,
		Rule: rule(
			[]entity.Constraint{
				{Key: "meat", Op: "==", Value: 0.0, Text: "not tags.meat"},
				{Key: "veggie", Op: ">", Value: 0.0, Text: "tags.veggie"},
			},
			[]entity.Constraint{{Key: "butterflywings", Op: ">", Value: 0.0, Text: "names.butterflywings"}},
		),
	}
	c.Cooking["meatballs"] = &entity.CookingRecipe{
		Name: "meatballs", Priority: -1, Weight: 1,
		Rule: rule([]entity.Constraint{
			{Key: "meat", Op: ">", Value: 0.0, Text: "tags.meat"},
			{Key: "inedible", Op: "==", Value: nil, Text: "not tags.inedible"},
		}, nil),
	}
	c.Cooking["berrysalad"] = &entity.CookingRecipe{
		Name: "berrysalad", Priority: 5, Weight: 1,
		CardIngredients: []entity.CardIngredient{{Item: "berries", Count: 4}},
	}
	c.Cooking["noodles"] = &entity.CookingRecipe{Name: "noodles"}
	if withWetgoop {
		c.Cooking["wetgoop"] = &entity.CookingRecipe{Name: "wetgoop", Priority: -10}
	}
	for id, tags := range map[string]map[string]float64{
		"berries":        {"fruit": 1},
		"meat":           {"meat": 1},
		"butterflywings": {"decoration": 2},
		"carrot":         {"veggie": 1},
		"ice":            {"frozen": 1},
		"twigs":          {"inedible": 1},
	} {
		c.CookingIngredients[id] = &entity.CookingIngredient{ID: id, Tags: tags}
	}
	return c
}

func names(rows []Row) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Name)
	}
	return out
}

func TestSimulate(t *testing.T) {
	tests := []struct {
		name       string
		wetgoop    bool
		slots      map[string]float64
		wantResult string
		wantReason string
		wantErr    error
	}{
		{
			name:       "rule recipe",
			slots:      map[string]float64{"butterflywings": 1, "carrot": 3},
			wantResult: "butterflymuffin",
			wantReason: "matched_constraints",
		},
		{
			name:       "card recipe",
			slots:      map[string]float64{"Berries ": 4},
			wantResult: "berrysalad",
			wantReason: "matched_constraints",
		},
		{
			name:       "guessed small meat",
			slots:      map[string]float64{"froglegs": 2, "carrot": 2},
			wantResult: "meatballs",
			wantReason: "matched_constraints",
		},
		{
			name:       "falls back to wetgoop",
			wetgoop:    true,
			slots:      map[string]float64{"meat": 2, "twigs": 2},
			wantResult: "wetgoop",
			wantReason: "fallback_wetgoop",
		},
		{
			name:    "no match and no wetgoop",
			slots:   map[string]float64{"meat": 2, "twigs": 2},
			wantErr: domain.ErrInvalidCookingRequest,
		},
		{
			name:    "pot not full",
			slots:   map[string]float64{"carrot": 2.4, "ice": 1},
			wantErr: domain.ErrInvalidCookingRequest,
		},
		{
			name:    "pot overfull",
			slots:   map[string]float64{"carrot": 5},
			wantErr: domain.ErrInvalidCookingRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPlanner(testCatalog(tt.wetgoop))
			res, err := p.Simulate(SimulateRequest{Slots: tt.slots})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantResult, res.Result)
			assert.Equal(t, tt.wantReason, res.Reason)
			assert.Equal(t, Formula, res.Formula)
			assert.Equal(t, 4, slotTotal(res.Slots))
		})
	}
}

func TestSimulate_Alternates(t *testing.T) {
	p := NewPlanner(testCatalog(false))

	res, err := p.Simulate(SimulateRequest{Slots: map[string]float64{"butterflywings": 1, "carrot": 3}})
	require.NoError(t, err)

	require.Len(t, res.Candidates, 1)
	assert.Equal(t, Candidate{Name: "butterflymuffin", Priority: 1, Weight: 1}, res.Candidates[0])
	assert.Equal(t, []string{"butterflymuffin"}, names(res.Cookable))
	assert.Equal(t, []string{"berrysalad", "noodles", "meatballs"}, names(res.NearMiss))

	salad := res.NearMiss[0]
	assert.Equal(t, ModeCard, salad.RuleMode)
	assert.InDelta(t, 200, salad.Penalty, 1e-9)
	assert.InDelta(t, 4900, salad.Score, 1e-9)
	require.Len(t, salad.Missing, 1)
	assert.Equal(t, Missing{Type: "name", Key: "berries", Op: ">=", Required: 4, Actual: 0, Delta: 4, Direction: "under"}, salad.Missing[0])

	noodles := res.NearMiss[1]
	assert.Equal(t, ModeNone, noodles.RuleMode)
	assert.Equal(t, []string{"no_rule_or_card_ingredients"}, noodles.Warnings)
}

func TestExplore(t *testing.T) {
	p := NewPlanner(testCatalog(false))

	tests := []struct {
		name         string
		req          ExploreRequest
		wantCookable []string
		wantNearMiss []string
		wantErr      error
	}{
		{
			name:         "feasibility without inventory",
			req:          ExploreRequest{Slots: map[string]float64{"butterflywings": 1}},
			wantCookable: []string{"butterflymuffin", "meatballs"},
			wantNearMiss: []string{"berrysalad", "noodles"},
		},
		{
			name:         "enumerates available completions",
			req:          ExploreRequest{Slots: map[string]float64{"butterflywings": 1}, Available: []string{"carrot", "ice", "Carrot"}},
			wantCookable: []string{"butterflymuffin"},
			wantNearMiss: []string{"berrysalad", "noodles", "meatballs"},
		},
		{
			name:         "single available item fills the pot",
			req:          ExploreRequest{Slots: map[string]float64{"carrot": 1}, Available: []string{"meat"}, Limit: 1},
			wantCookable: []string{"meatballs"},
			wantNearMiss: []string{"berrysalad"},
		},
		{
			name:         "full pot with card",
			req:          ExploreRequest{Slots: map[string]float64{"berries": 4}},
			wantCookable: []string{"berrysalad"},
			wantNearMiss: []string{"butterflymuffin", "noodles", "meatballs"},
		},
		{
			name:    "too many items",
			req:     ExploreRequest{Slots: map[string]float64{"berries": 5}},
			wantErr: domain.ErrInvalidCookingRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := p.Explore(tt.req)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantCookable, names(res.Cookable))
			assert.Equal(t, tt.wantNearMiss, names(res.NearMiss))
			assert.Equal(t, PotSize-res.Total, res.Remaining)
		})
	}
}

func TestGuessTags(t *testing.T) {
	tests := []struct {
		id   string
		want map[string]float64
	}{
		{id: "eggplant", want: map[string]float64{"veggie": 1}},
		{id: "froglegs", want: map[string]float64{"meat": 0.5}},
		{id: "tallbirdegg", want: map[string]float64{"egg": 1}},
		{id: "butter", want: map[string]float64{"dairy": 1, "fat": 1}},
		{id: "ice", want: map[string]float64{"inedible": 1, "frozen": 1}},
		{id: "monstermeat", want: map[string]float64{"meat": 1, "monster": 1}},
		{id: " Durian ", want: map[string]float64{"monster": 1, "fruit": 1}},
		{id: "", want: map[string]float64{}},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			assert.Equal(t, tt.want, GuessTags(tt.id))
		})
	}
}

func TestRuleConstraints_DropsNegatedPresence(t *testing.T) {
	r := &entity.CookingRecipe{Rule: rule([]entity.Constraint{
		{Key: "meat", Op: ">", Value: 0.0, Text: "tags.meat"},
		{Key: "meat", Op: "==", Value: 0.0, Text: "not tags.meat"},
		{Key: "veggie", Op: ">=", Value: 1.0, Text: "tags.veggie >= 1"},
	}, nil)}

	got := ruleConstraints(r)
	require.Len(t, got.Tags, 2)
	assert.Equal(t, "not tags.meat", got.Tags[0].Text)
	assert.Equal(t, "veggie", got.Tags[1].Key)
}

func TestSlotCombos(t *testing.T) {
	combos, ok := slotCombos([]string{"a", "b"}, 2, 100)
	require.True(t, ok)
	assert.Equal(t, []map[string]int{{"a": 2}, {"a": 1, "b": 1}, {"b": 2}}, combos)

	_, ok = slotCombos([]string{"a", "b", "c"}, 3, 5)
	assert.False(t, ok)
	assert.Equal(t, 10, comboCount(3, 3))
	assert.Equal(t, 1, comboCount(3, 0))
}
