package farming

import (
	"math"
	"sort"
)

const (
	tileSize            = 4.0
	defaultFamilyRadius = 4.0
)

// pit is one planting hole in tile units.
type pit struct {
	x, y         float64
	tileX, tileY int
	index        int
}

func evenly(n int) []float64 {
	out := make([]float64, n)
	step := 1.0 / float64(n+1)
	for i := range out {
		out[i] = step * float64(i+1)
	}
	return out
}

// pitPattern returns the hole positions inside one tile. "9" is a 3x3 grid, "8" drops
// its centre and "10" is rows of 2, 3, 2 and 3.
func pitPattern(mode string) [][2]float64 {
	var out [][2]float64
	if mode == "10" {
		rows := []int{2, 3, 2, 3}
		ys := evenly(len(rows))
		for r, n := range rows {
			for _, x := range evenly(n) {
				out = append(out, [2]float64{x, ys[r]})
			}
		}
		return out
	}
	pts := evenly(3)
	for r, y := range pts {
		for c, x := range pts {
			if mode == "8" && r == 1 && c == 1 {
				continue
			}
			out = append(out, [2]float64{x, y})
		}
	}
	return out
}

func buildPits(width, height int, mode string) []pit {
	local := pitPattern(mode)
	var out []pit
	for ty := 0; ty < height; ty++ {
		for tx := 0; tx < width; tx++ {
			for _, xy := range local {
				out = append(out, pit{x: xy[0] + float64(tx), y: xy[1] + float64(ty), tileX: tx, tileY: ty, index: len(out)})
			}
		}
	}
	return out
}

// pitGraph links pits within radius of each other.
func pitGraph(pits []pit, radius float64) [][]int {
	r2 := radius * radius
	graph := make([][]int, len(pits))
	for i := range pits {
		for j := i + 1; j < len(pits); j++ {
			dx, dy := pits[i].x-pits[j].x, pits[i].y-pits[j].y
			if dx*dx+dy*dy <= r2+eps {
				graph[i] = append(graph[i], j)
				graph[j] = append(graph[j], i)
			}
		}
	}
	return graph
}

type layoutScore struct {
	deficit   Deficit
	midRisk   bool
	familyOK  int
	minRatio  float64
	clustered int
}

func (a layoutScore) deficitEqual(b layoutScore) bool {
	return !a.deficit.less(b.deficit) && !b.deficit.less(a.deficit) && a.midRisk == b.midRisk
}

func (a layoutScore) less(b layoutScore) bool {
	if a.deficit.less(b.deficit) {
		return true
	}
	if b.deficit.less(a.deficit) {
		return false
	}
	if a.midRisk != b.midRisk {
		return !a.midRisk
	}
	if a.familyOK != b.familyOK {
		return a.familyOK > b.familyOK
	}
	if math.Abs(a.minRatio-b.minRatio) > eps {
		return a.minRatio > b.minRatio
	}
	return a.clustered > b.clustered
}

// choosePitLayout tries the fixed, row-major, column-major and clustered placements and
// keeps the one with the smallest worst-tile deficit, then the best family clustering.
// With PreferFixed the fixed placement wins whenever its deficit ties the best.
func (s *scorer) choosePitLayout(ids []string, counts []int, familyMin map[string]int) ([]string, map[string]int) {
	type candidate struct {
		name   string
		layout []string
	}
	var candidates []candidate
	if fixed := s.fixedLayout(ids, counts); fixed != nil {
		candidates = append(candidates, candidate{"fixed", fixed})
	}
	candidates = append(candidates,
		candidate{"row", sequentialLayout(s.pits, ids, counts, func(a, b pit) bool {
			if a.y != b.y {
				return a.y < b.y
			}
			return a.x < b.x
		})},
		candidate{"col", sequentialLayout(s.pits, ids, counts, func(a, b pit) bool {
			if a.x != b.x {
				return a.x < b.x
			}
			return a.y < b.y
		})},
		candidate{"cluster", clusteredLayout(s.pits, s.graph, ids, counts, familyMin)},
	)

	var (
		best         []string
		bestClusters map[string]int
		bestScore    layoutScore
		fixedIdx     = -1
		scores       = make([]layoutScore, len(candidates))
		clusterSets  = make([]map[string]int, len(candidates))
	)
	for i, c := range candidates {
		clusters := graphClusters(c.layout, s.graph)
		worst, _ := tileSummary(s.pits, c.layout, s.netMap, false)
		sc := layoutScore{deficit: worst.Deficit, midRisk: worst.MidStageRisk}
		sc.familyOK, sc.minRatio, sc.clustered = familyScore(clusters, familyMin)
		scores[i], clusterSets[i] = sc, clusters
		if c.name == "fixed" {
			fixedIdx = i
		}
		if best == nil || sc.less(bestScore) {
			best, bestClusters, bestScore = c.layout, clusters, sc
		}
	}
	if s.req.PreferFixed && fixedIdx >= 0 && scores[fixedIdx].deficitEqual(bestScore) {
		return candidates[fixedIdx].layout, clusterSets[fixedIdx]
	}
	return best, bestClusters
}

// fixedLayout is the 6+12 stripe pattern for two species over two 3x3 tiles.
func (s *scorer) fixedLayout(ids []string, counts []int) []string {
	if s.req.PitMode != "9" || len(ids) != 2 {
		return nil
	}
	lo, hi := counts[0], counts[1]
	if lo > hi {
		lo, hi = hi, lo
	}
	if lo != 6 || hi != 12 {
		return nil
	}
	w, h := s.req.Width, s.req.Height
	if !(w == 1 && h == 2) && !(w == 2 && h == 1) {
		return nil
	}

	rowOf, colOf, rows, cols := gridIndices(s.pits)
	major := 0
	if counts[1] > counts[0] {
		major = 1
	}
	stripe := []int{0, 0, 1, 1, 0, 0}
	pick := func(v int) string {
		if stripe[v] == 0 {
			return ids[major]
		}
		return ids[1-major]
	}
	layout := make([]string, len(s.pits))
	switch {
	case rows == 6 && cols == 3:
		for i := range s.pits {
			layout[i] = pick(rowOf[i])
		}
	case rows == 3 && cols == 6:
		for i := range s.pits {
			layout[i] = pick(colOf[i])
		}
	default:
		return nil
	}
	return layout
}

func gridIndices(pits []pit) (rowOf, colOf []int, rows, cols int) {
	key := func(f float64) float64 { return math.Round(f*10000) / 10000 }
	xs, ys := map[float64]int{}, map[float64]int{}
	var xl, yl []float64
	for _, p := range pits {
		if _, ok := xs[key(p.x)]; !ok {
			xs[key(p.x)] = 0
			xl = append(xl, key(p.x))
		}
		if _, ok := ys[key(p.y)]; !ok {
			ys[key(p.y)] = 0
			yl = append(yl, key(p.y))
		}
	}
	sort.Float64s(xl)
	sort.Float64s(yl)
	for i, x := range xl {
		xs[x] = i
	}
	for i, y := range yl {
		ys[y] = i
	}
	rowOf, colOf = make([]int, len(pits)), make([]int, len(pits))
	for i, p := range pits {
		rowOf[i], colOf[i] = ys[key(p.y)], xs[key(p.x)]
	}
	return rowOf, colOf, len(yl), len(xl)
}

// byCountDesc orders species by count descending, then id.
func byCountDesc(ids []string, counts []int) []int {
	order := make([]int, len(ids))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		if counts[order[a]] != counts[order[b]] {
			return counts[order[a]] > counts[order[b]]
		}
		return ids[order[a]] < ids[order[b]]
	})
	return order
}

func sequentialLayout(pits []pit, ids []string, counts []int, less func(a, b pit) bool) []string {
	order := make([]int, len(pits))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return less(pits[order[a]], pits[order[b]]) })

	layout := make([]string, len(pits))
	cursor := 0
	for _, k := range byCountDesc(ids, counts) {
		for n := 0; n < counts[k] && cursor < len(order); n++ {
			layout[order[cursor]] = ids[k]
			cursor++
		}
	}
	return layout
}

// clusteredLayout grows each species breadth-first from the free pit with the most free
// neighbours.
func clusteredLayout(pits []pit, graph [][]int, ids []string, counts []int, familyMin map[string]int) []string {
	layout := make([]string, len(pits))
	order := byCountDesc(ids, counts)
	sort.SliceStable(order, func(a, b int) bool {
		ia, ib := order[a], order[b]
		if counts[ia] != counts[ib] {
			return counts[ia] > counts[ib]
		}
		if familyMin[ids[ia]] != familyMin[ids[ib]] {
			return familyMin[ids[ia]] > familyMin[ids[ib]]
		}
		return ids[ia] < ids[ib]
	})
	dist2 := func(a, b int) float64 {
		dx, dy := pits[a].x-pits[b].x, pits[a].y-pits[b].y
		return dx*dx + dy*dy
	}
	nearest := func(seed int, cand []int) {
		sort.SliceStable(cand, func(a, b int) bool {
			da, db := dist2(seed, cand[a]), dist2(seed, cand[b])
			if da != db {
				return da < db
			}
			return cand[a] < cand[b]
		})
	}

	for _, k := range order {
		need := counts[k]
		if need <= 0 {
			continue
		}
		seed, seedFree := -1, -1
		for i := range layout {
			if layout[i] != "" {
				continue
			}
			free := 0
			for _, j := range graph[i] {
				if layout[j] == "" {
					free++
				}
			}
			if free > seedFree {
				seed, seedFree = i, free
			}
		}
		if seed < 0 {
			break
		}
		layout[seed] = ids[k]
		need--

		queue := []int{seed}
		for len(queue) > 0 && need > 0 {
			cur := queue[0]
			queue = queue[1:]
			var next []int
			for _, j := range graph[cur] {
				if layout[j] == "" {
					next = append(next, j)
				}
			}
			nearest(seed, next)
			for _, j := range next {
				if need == 0 {
					break
				}
				layout[j] = ids[k]
				need--
				queue = append(queue, j)
			}
		}
		if need > 0 {
			var left []int
			for i := range layout {
				if layout[i] == "" {
					left = append(left, i)
				}
			}
			nearest(seed, left)
			for _, j := range left {
				if need == 0 {
					break
				}
				layout[j] = ids[k]
				need--
			}
		}
	}
	return layout
}

// graphClusters returns the largest connected same-species group per species.
func graphClusters(layout []string, graph [][]int) map[string]int {
	best := map[string]int{}
	seen := make([]bool, len(layout))
	for i, id := range layout {
		if seen[i] || id == "" {
			continue
		}
		seen[i] = true
		stack := []int{i}
		size := 0
		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			size++
			for _, j := range graph[cur] {
				if !seen[j] && layout[j] == id {
					seen[j] = true
					stack = append(stack, j)
				}
			}
		}
		if size > best[id] {
			best[id] = size
		}
	}
	return best
}

func familyScore(clusters, required map[string]int) (ok int, minRatio float64, total int) {
	first := true
	for id, need := range required {
		have := clusters[id]
		total += have
		if have >= need {
			ok++
		}
		ratio := float64(have) / float64(max(1, need))
		if first || ratio < minRatio {
			minRatio, first = ratio, false
		}
	}
	return ok, minRatio, total
}

// tileSummary sums the per-stage net change per tile and returns the worst tile, with
// MidStageRisk set when any tile is at risk.
func tileSummary(pits []pit, layout []string, netMap map[string][3]float64, withTiles bool) (NutrientBalance, []TileBalance) {
	type tileKey struct{ x, y int }
	nets := map[tileKey]*[3]float64{}
	var keys []tileKey
	for i, p := range pits {
		delta, ok := netMap[layout[i]]
		if layout[i] == "" || !ok {
			continue
		}
		k := tileKey{p.tileX, p.tileY}
		if nets[k] == nil {
			nets[k] = &[3]float64{}
			keys = append(keys, k)
		}
		for ch := 0; ch < 3; ch++ {
			nets[k][ch] += delta[ch]
		}
	}
	sort.Slice(keys, func(a, b int) bool {
		if keys[a].x != keys[b].x {
			return keys[a].x < keys[b].x
		}
		return keys[a].y < keys[b].y
	})

	var tiles []TileBalance
	worst := balance([3]float64{})
	found, anyRisk := false, false
	for _, k := range keys {
		b := balance(*nets[k])
		anyRisk = anyRisk || b.MidStageRisk
		if withTiles {
			tiles = append(tiles, TileBalance{TileX: k.x, TileY: k.y, NutrientBalance: b})
		}
		if !found || worst.Deficit.less(b.Deficit) {
			worst, found = b, true
		}
	}
	worst.MidStageRisk = anyRisk
	return worst, tiles
}

func overcrowdingPits(pits []pit, maxPerTile int) *bool {
	if len(pits) == 0 || maxPerTile <= 0 {
		return nil
	}
	type tileKey struct{ x, y int }
	counts := map[tileKey]int{}
	ok := true
	for _, p := range pits {
		k := tileKey{p.tileX, p.tileY}
		counts[k]++
		if counts[k] > maxPerTile {
			ok = false
		}
	}
	return &ok
}

// gridLayout fills whole rows per species first, then packs the remainder in contiguous
// runs.
func gridLayout(width, height int, ids []string, counts []int) [][]string {
	if sum(counts) != width*height {
		return [][]string{}
	}
	order := byCountDesc(ids, counts)
	remaining := make([]int, len(counts))
	copy(remaining, counts)

	var rows [][]string
	for _, k := range order {
		full := remaining[k] / width
		for n := 0; n < full; n++ {
			row := make([]string, width)
			for x := range row {
				row[x] = ids[k]
			}
			rows = append(rows, row)
		}
		remaining[k] -= full * width
	}
	for len(rows) < height {
		row := make([]string, 0, width)
		for _, k := range order {
			for remaining[k] > 0 && len(row) < width {
				row = append(row, ids[k])
				remaining[k]--
			}
			if len(row) == width {
				break
			}
		}
		for len(row) < width {
			row = append(row, ids[order[0]])
		}
		rows = append(rows, row)
	}
	return rows[:height]
}

// gridClusters is graphClusters over 4-neighbour grid adjacency.
func gridClusters(rows [][]string) map[string]int {
	best := map[string]int{}
	if len(rows) == 0 {
		return best
	}
	h, w := len(rows), len(rows[0])
	seen := make([][]bool, h)
	for y := range seen {
		seen[y] = make([]bool, w)
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			id := rows[y][x]
			if seen[y][x] || id == "" {
				continue
			}
			seen[y][x] = true
			stack := [][2]int{{x, y}}
			size := 0
			for len(stack) > 0 {
				c := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				size++
				for _, d := range [][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}} {
					nx, ny := c[0]+d[0], c[1]+d[1]
					if nx >= 0 && nx < w && ny >= 0 && ny < h && !seen[ny][nx] && rows[ny][nx] == id {
						seen[ny][nx] = true
						stack = append(stack, [2]int{nx, ny})
					}
				}
			}
			if size > best[id] {
				best[id] = size
			}
		}
	}
	return best
}
