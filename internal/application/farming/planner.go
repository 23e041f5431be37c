// Package farming scores farm plot mixes and simulates crop growth from the farming
// definitions artifact.
package farming

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"scriptdex/internal/domain/entity"
	"scriptdex/internal/domain/errors/domain"
)

// Layout modes.
const (
	LayoutPits = "pits"
	LayoutGrid = "grid"
)

// Request limits. Plan enumeration grows with slots and kinds, so both are bounded.
const (
	DefaultMaxKinds = 3
	DefaultTopN     = 12
	MaxKindsLimit   = 4
	MaxSlots        = 40

	maxCandidates   = 500000
	shortlistFactor = 8
)

const eps = 1e-9

// PlanRequest selects the plants and plot shape to plan for. Width and Height count
// tiles in pits mode and cells in grid mode.
type PlanRequest struct {
	Season          string   `json:"season"`
	PlantIDs        []string `json:"plant_ids"`
	MaxKinds        int      `json:"max_kinds"`
	TopN            int      `json:"top_n"`
	Layout          string   `json:"layout"`
	PitMode         string   `json:"pit_mode"`
	Width           int      `json:"width"`
	Height          int      `json:"height"`
	AllowRandomSeed bool     `json:"allow_random_seed"`
	PreferFixed     bool     `json:"prefer_fixed"`
}

// Deficit summarizes the negative nutrient channels. Channels are 1-based.
type Deficit struct {
	Count    int     `json:"count"`
	Total    float64 `json:"total"`
	Max      float64 `json:"max"`
	Channels []int   `json:"channels"`
}

func (d Deficit) less(o Deficit) bool {
	if d.Count != o.Count {
		return d.Count < o.Count
	}
	if math.Abs(d.Total-o.Total) > eps {
		return d.Total < o.Total
	}
	return d.Max < o.Max-eps
}

// NutrientBalance is the per-growth-step and per-cycle nutrient change of a set of plants.
type NutrientBalance struct {
	Consume      *[3]float64 `json:"consume,omitempty"`
	Net          [3]float64  `json:"net"`
	NetCycle     [3]float64  `json:"net_cycle"`
	Deficit      Deficit     `json:"deficit"`
	MidStageRisk bool        `json:"mid_stage_risk"`
}

// TileBalance is the nutrient balance of one farm tile.
type TileBalance struct {
	TileX int `json:"tile_x"`
	TileY int `json:"tile_y"`
	NutrientBalance
}

// Nutrients holds the plot-wide balance and, in pits mode, the worst tile and every tile.
type Nutrients struct {
	Overall NutrientBalance  `json:"overall"`
	Tile    *NutrientBalance `json:"tile,omitempty"`
	Tiles   []TileBalance    `json:"tiles,omitempty"`
}

// Water is the average drink rate and its tier.
type Water struct {
	Total *float64 `json:"total"`
	Avg   *float64 `json:"avg"`
	Label string   `json:"label,omitempty"`
}

// Family reports whether each species meets its same-family cluster minimum.
type Family struct {
	MinRequired    map[string]int `json:"min_required"`
	CountsOK       bool           `json:"counts_ok"`
	LargestCluster map[string]int `json:"largest_cluster"`
	LayoutOK       *bool          `json:"layout_ok"`
}

// PitCell is one planted pit.
type PitCell struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	TileX int     `json:"tile_x"`
	TileY int     `json:"tile_y"`
	Plant string  `json:"plant"`
}

// TileShape is a plot size in tiles.
type TileShape struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// PlanLayout is the suggested placement.
type PlanLayout struct {
	Mode         string     `json:"mode"`
	Pattern      string     `json:"pattern,omitempty"`
	HolesPerTile int        `json:"holes_per_tile,omitempty"`
	Tile         *TileShape `json:"tile,omitempty"`
	Pits         []PitCell  `json:"pits,omitempty"`
	Width        int        `json:"width,omitempty"`
	Height       int        `json:"height,omitempty"`
	Rows         [][]string `json:"rows,omitempty"`
}

// Plan is one candidate mix.
type Plan struct {
	Plants         []string       `json:"plants"`
	Counts         map[string]int `json:"counts"`
	Ratio          string         `json:"ratio"`
	Slots          int            `json:"slots"`
	Nutrients      Nutrients      `json:"nutrients"`
	Water          Water          `json:"water"`
	Family         Family         `json:"family"`
	OvercrowdingOK *bool          `json:"overcrowding_ok"`
	Layout         *PlanLayout    `json:"layout"`
}

func (p *Plan) less(o *Plan) bool {
	if p.Nutrients.Overall.Deficit.less(o.Nutrients.Overall.Deficit) {
		return true
	}
	if o.Nutrients.Overall.Deficit.less(p.Nutrients.Overall.Deficit) {
		return false
	}
	var a, b Deficit
	if p.Nutrients.Tile != nil {
		a = p.Nutrients.Tile.Deficit
	}
	if o.Nutrients.Tile != nil {
		b = o.Nutrients.Tile.Deficit
	}
	return a.less(b)
}

type profile struct {
	id        string
	consume   [3]float64
	restore   [3]bool
	drinkRate *float64
	familyMin int
}

// net is the nutrient change one plant causes per growth stage: it drains what it
// consumes and spreads the same total over the channels it restores.
func (p profile) net() [3]float64 {
	total := p.consume[0] + p.consume[1] + p.consume[2]
	restoring := 0
	for _, r := range p.restore {
		if r {
			restoring++
		}
	}
	each := 0.0
	if restoring > 0 {
		each = total / float64(restoring)
	}
	var out [3]float64
	for i := range out {
		out[i] = -p.consume[i]
		if p.restore[i] {
			out[i] += each
		}
	}
	return out
}

// Planner scores plant mixes against one farming definitions snapshot.
type Planner struct {
	defs *entity.FarmingDefs
}

// NewPlanner returns a planner over defs.
func NewPlanner(defs *entity.FarmingDefs) *Planner {
	return &Planner{defs: defs}
}

// Plants returns the plant ids of the definitions.
func (p *Planner) Plants() []string {
	return p.defs.PlantIDs()
}

func (p *Planner) tuning(key string) (float64, bool) {
	return p.defs.TuningNumber(key)
}

func (p *Planner) profiles(req PlanRequest) map[string]profile {
	include := map[string]bool{}
	for _, id := range req.PlantIDs {
		if id = entity.NormalizePlantID(id); id != "" {
			include[id] = true
		}
	}
	season := strings.ToLower(strings.TrimSpace(req.Season))
	defaultMin := 0
	if f, ok := p.tuning("FARM_PLANT_SAME_FAMILY_MIN"); ok {
		defaultMin = int(f)
	}

	out := map[string]profile{}
	if p.defs == nil {
		return out
	}
	for id, row := range p.defs.Plants {
		plant := entity.FarmPlantFromRow(id, row)
		if plant.IsRandomSeed && !req.AllowRandomSeed {
			continue
		}
		if len(include) > 0 && !include[id] {
			continue
		}
		if season != "" && !plant.GoodSeasons[season] {
			continue
		}
		prof := profile{
			id:        id,
			consume:   plant.NutrientConsumption,
			restore:   plant.NutrientRestoration,
			drinkRate: plant.DrinkRate,
			familyMin: defaultMin,
		}
		if plant.FamilyMinCount != nil {
			prof.familyMin = *plant.FamilyMinCount
		}
		out[id] = prof
	}
	return out
}

func normalize(req PlanRequest) (PlanRequest, error) {
	if req.MaxKinds <= 0 {
		req.MaxKinds = DefaultMaxKinds
	}
	if req.MaxKinds > MaxKindsLimit {
		return req, fmt.Errorf("%w: max_kinds must be at most %d", domain.ErrInvalidFarmingRequest, MaxKindsLimit)
	}
	if req.TopN <= 0 {
		req.TopN = DefaultTopN
	}
	if req.Layout == "" {
		req.Layout = LayoutPits
	}
	if req.Width <= 0 {
		req.Width = 1
	}
	if req.Height <= 0 {
		req.Height = 1
	}
	switch req.Layout {
	case LayoutPits:
		if req.PitMode == "" {
			req.PitMode = "9"
		}
		if req.PitMode != "8" && req.PitMode != "9" && req.PitMode != "10" {
			return req, fmt.Errorf("%w: pit_mode must be 8, 9 or 10", domain.ErrInvalidFarmingRequest)
		}
	case LayoutGrid:
	default:
		return req, fmt.Errorf("%w: layout must be pits or grid", domain.ErrInvalidFarmingRequest)
	}
	return req, nil
}

// Suggest returns the best TopN plans ranked by plot-wide deficit (count, total, max)
// and then by worst-tile deficit.
func (p *Planner) Suggest(req PlanRequest) ([]Plan, error) {
	req, err := normalize(req)
	if err != nil {
		return nil, err
	}

	var pits []pit
	var graph [][]int
	slots := req.Width * req.Height
	if req.Layout == LayoutPits {
		pits = buildPits(req.Width, req.Height, req.PitMode)
		slots = len(pits)
		graph = pitGraph(pits, p.familyRadiusTiles())
	}
	if slots > MaxSlots {
		return nil, fmt.Errorf("%w: plot has %d slots, at most %d are supported", domain.ErrInvalidFarmingRequest, slots, MaxSlots)
	}

	profiles := p.profiles(req)
	ids := entity.SortedKeys(profiles)
	for _, want := range req.PlantIDs {
		if _, ok := profiles[entity.NormalizePlantID(want)]; !ok && p.defs != nil {
			if _, known := p.defs.Plants[entity.NormalizePlantID(want)]; !known {
				return nil, fmt.Errorf("%w: %s", domain.ErrUnknownPlant, want)
			}
		}
	}
	if len(ids) == 0 {
		return []Plan{}, nil
	}

	netMap := make(map[string][3]float64, len(profiles))
	for id, prof := range profiles {
		netMap[id] = prof.net()
	}
	sc := &scorer{
		planner: p,
		req:     req,
		pits:    pits,
		graph:   graph,
		netMap:  netMap,
	}

	var cands []candidate
	overflow := false
	for kinds := 1; kinds <= req.MaxKinds && kinds <= len(ids); kinds++ {
		combinations(ids, kinds, func(combo []string) {
			profs := make([]profile, len(combo))
			mins := make([]int, len(combo))
			for i, id := range combo {
				profs[i] = profiles[id]
				mins[i] = max(1, profs[i].familyMin)
			}
			combo = append([]string(nil), combo...)
			partitions(slots, mins, func(counts []int) {
				if len(cands) >= maxCandidates {
					overflow = true
					return
				}
				cands = append(cands, newCandidate(combo, profs, counts))
			})
		})
	}
	if overflow {
		return nil, fmt.Errorf("%w: more than %d mixes, narrow plant_ids or max_kinds", domain.ErrInvalidFarmingRequest, maxCandidates)
	}

	sort.SliceStable(cands, func(i, j int) bool { return cands[i].deficit.less(cands[j].deficit) })
	if limit := req.TopN * shortlistFactor; len(cands) > limit {
		cands = cands[:limit]
	}
	plans := make([]*Plan, len(cands))
	for i, c := range cands {
		plans[i] = sc.plan(c.combo, c.profs, c.counts)
	}
	sort.SliceStable(plans, func(i, j int) bool { return plans[i].less(plans[j]) })
	if len(plans) > req.TopN {
		plans = plans[:req.TopN]
	}

	out := make([]Plan, len(plans))
	for i, plan := range plans {
		sc.finish(plan, profiles)
		out[i] = *plan
	}
	return out, nil
}

// candidate is an unscored mix. Only the plot-wide deficit is known at this point.
type candidate struct {
	combo   []string
	profs   []profile
	counts  []int
	deficit Deficit
}

func newCandidate(combo []string, profs []profile, counts []int) candidate {
	var net [3]float64
	for i, prof := range profs {
		pn := prof.net()
		for ch := 0; ch < 3; ch++ {
			net[ch] += float64(counts[i]) * pn[ch]
		}
	}
	return candidate{combo: combo, profs: profs, counts: counts, deficit: balance(net).Deficit}
}

func (p *Planner) familyRadiusTiles() float64 {
	radius := defaultFamilyRadius
	if f, ok := p.tuning("FARM_PLANT_SAME_FAMILY_RADIUS"); ok {
		radius = f
	}
	return math.Max(0.01, radius/tileSize)
}

func (p *Planner) maxPerTile() int {
	if f, ok := p.tuning("FARM_PANT_OVERCROWDING_MAX_PLANTS"); ok {
		return int(f)
	}
	return 0
}

type scorer struct {
	planner *Planner
	req     PlanRequest
	pits    []pit
	graph   [][]int
	netMap  map[string][3]float64
}

func (s *scorer) plan(combo []string, profs []profile, counts []int) *Plan {
	var consume, net [3]float64
	for i, prof := range profs {
		pn := prof.net()
		for ch := 0; ch < 3; ch++ {
			consume[ch] += float64(counts[i]) * prof.consume[ch]
			net[ch] += float64(counts[i]) * pn[ch]
		}
	}
	overall := balance(net)
	c := round3v(consume)
	overall.Consume = &c

	familyMin := make(map[string]int, len(combo))
	countsOK := true
	countMap := make(map[string]int, len(combo))
	for i, id := range combo {
		familyMin[id] = profs[i].familyMin
		countMap[id] = counts[i]
		if counts[i] < profs[i].familyMin {
			countsOK = false
		}
	}

	plan := &Plan{
		Plants:    append([]string(nil), combo...),
		Counts:    countMap,
		Ratio:     ratioLabel(counts),
		Slots:     sum(counts),
		Nutrients: Nutrients{Overall: overall},
		Water:     s.water(counts, profs),
		Family:    Family{MinRequired: familyMin, CountsOK: countsOK},
	}
	if len(s.pits) > 0 {
		layout, _ := s.choosePitLayout(combo, counts, familyMin)
		worst, _ := tileSummary(s.pits, layout, s.netMap, false)
		plan.Nutrients.Tile = &worst
	}
	return plan
}

// finish attaches the layout to a plan that made the cut.
func (s *scorer) finish(plan *Plan, profiles map[string]profile) {
	counts := make([]int, len(plan.Plants))
	for i, id := range plan.Plants {
		counts[i] = plan.Counts[id]
	}
	layoutOK := func(clusters map[string]int) *bool {
		ok := true
		for _, id := range plan.Plants {
			if clusters[id] < profiles[id].familyMin {
				ok = false
			}
		}
		return &ok
	}

	switch s.req.Layout {
	case LayoutPits:
		layout, clusters := s.choosePitLayout(plan.Plants, counts, plan.Family.MinRequired)
		worst, tiles := tileSummary(s.pits, layout, s.netMap, true)
		plan.Nutrients.Tile = &worst
		plan.Nutrients.Tiles = tiles
		plan.Family.LargestCluster = clusters
		plan.Family.LayoutOK = layoutOK(clusters)
		plan.OvercrowdingOK = overcrowdingPits(s.pits, s.planner.maxPerTile())

		cells := make([]PitCell, len(s.pits))
		for i, pt := range s.pits {
			cells[i] = PitCell{X: round3(pt.x), Y: round3(pt.y), TileX: pt.tileX, TileY: pt.tileY, Plant: layout[i]}
		}
		plan.Layout = &PlanLayout{
			Mode:         LayoutPits,
			Pattern:      s.req.PitMode,
			HolesPerTile: len(s.pits) / (s.req.Width * s.req.Height),
			Tile:         &TileShape{Width: s.req.Width, Height: s.req.Height},
			Pits:         cells,
		}
	case LayoutGrid:
		rows := gridLayout(s.req.Width, s.req.Height, plan.Plants, counts)
		clusters := gridClusters(rows)
		plan.Family.LargestCluster = clusters
		plan.Family.LayoutOK = layoutOK(clusters)
		plan.Layout = &PlanLayout{Mode: LayoutGrid, Width: s.req.Width, Height: s.req.Height, Rows: rows}
	}
}

func (s *scorer) water(counts []int, profs []profile) Water {
	total := 0.0
	for i, prof := range profs {
		if prof.drinkRate == nil {
			return Water{}
		}
		total += float64(counts[i]) * math.Abs(*prof.drinkRate)
	}
	w := Water{Total: &total}
	if n := sum(counts); n > 0 {
		avg := total / float64(n)
		w.Avg = &avg
		low, okLow := s.planner.tuning("FARM_PLANT_DRINK_LOW")
		med, okMed := s.planner.tuning("FARM_PLANT_DRINK_MED")
		high, okHigh := s.planner.tuning("FARM_PLANT_DRINK_HIGH")
		if okLow && okMed && okHigh {
			low, med, high = math.Abs(low), math.Abs(med), math.Abs(high)
			switch {
			case avg <= (low+med)/2:
				w.Label = "low"
			case avg <= (med+high)/2:
				w.Label = "med"
			default:
				w.Label = "high"
			}
		}
	}
	return w
}

// balance derives the cycle totals and deficit from a per-stage net change. A crop goes
// through four stages per cycle.
func balance(net [3]float64) NutrientBalance {
	b := NutrientBalance{Net: round3v(net)}
	for i, n := range b.Net {
		b.NetCycle[i] = round3(n * 4)
		if b.NetCycle[i] < -100 {
			b.MidStageRisk = true
		}
	}
	b.Deficit = deficitOf(b.NetCycle)
	return b
}

func deficitOf(net [3]float64) Deficit {
	d := Deficit{Channels: []int{}}
	for i, v := range net {
		if v < -eps {
			d.Channels = append(d.Channels, i+1)
			d.Total += math.Abs(v)
			d.Max = math.Max(d.Max, math.Abs(v))
		}
	}
	d.Count = len(d.Channels)
	return d
}

func ratioLabel(counts []int) string {
	g := 0
	for _, c := range counts {
		g = gcd(g, c)
	}
	parts := make([]string, len(counts))
	for i, c := range counts {
		if g > 1 {
			c /= g
		}
		parts[i] = strconv.Itoa(c)
	}
	return strings.Join(parts, ":")
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// partitions yields every split of total into len(mins) parts with part i >= mins[i].
func partitions(total int, mins []int, yield func([]int)) {
	parts := make([]int, len(mins))
	var walk func(i, left int)
	walk = func(i, left int) {
		if i == len(mins)-1 {
			if left >= mins[i] {
				parts[i] = left
				yield(append([]int(nil), parts...))
			}
			return
		}
		rest := 0
		for _, m := range mins[i+1:] {
			rest += m
		}
		for first := mins[i]; first <= left-rest; first++ {
			parts[i] = first
			walk(i+1, left-first)
		}
	}
	if len(mins) > 0 {
		walk(0, total)
	}
}

// combinations yields every k-subset of items in lexicographic order.
func combinations(items []string, k int, yield func([]string)) {
	combo := make([]string, 0, k)
	var walk func(start int)
	walk = func(start int) {
		if len(combo) == k {
			yield(combo)
			return
		}
		for i := start; i <= len(items)-(k-len(combo)); i++ {
			combo = append(combo, items[i])
			walk(i + 1)
			combo = combo[:len(combo)-1]
		}
	}
	walk(0)
}

func sum(xs []int) int {
	n := 0
	for _, x := range xs {
		n += x
	}
	return n
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}

func round3v(v [3]float64) [3]float64 {
	return [3]float64{round3(v[0]), round3(v[1]), round3(v[2])}
}
