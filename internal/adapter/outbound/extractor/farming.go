package extractor

import (
	"context"
	"regexp"
	"strings"

	"scriptdex/internal/adapter/outbound/luaparse"
	"scriptdex/internal/domain/entity"
	"scriptdex/internal/domain/valueobject"
)

// Farming definition files.
const (
	PlantDefsPath      = "scripts/prefabs/farm_plant_defs.lua"
	WeedDefsPath       = "scripts/prefabs/weed_defs.lua"
	FertilizerDefsPath = "scripts/prefabs/fertilizer_nutrient_defs.lua"
	VeggiesPath        = "scripts/prefabs/veggies.lua"
)

var (
	farmLocal   = regexp.MustCompile(`(?m)^\s*local\s+([A-Za-z0-9_]+)\s*=\s*(.+?)\s*$`)
	veggieTable = regexp.MustCompile(`\bVEGGIES\s*=\s*\{`)
)

// FieldAssign is a `PREFIX.name.field = rhs` line.
type FieldAssign struct {
	Name  string
	Field string
	RHS   string
}

// FarmDefs is one definition file: the `PREFIX.name = {...}` constructors, the later
// per-field assignments in source order, and the file locals.
type FarmDefs struct {
	Path        string
	Tables      map[string]*valueobject.Table
	Order       []string
	Assignments []FieldAssign
	Locals      map[string]valueobject.ParsedValue
}

// FarmingRaw is the unresolved content of the farming definition files. Numbers that
// depend on TUNING are resolved by the linker.
type FarmingRaw struct {
	Plants       FarmDefs
	Weeds        FarmDefs
	Fertilizers  FarmDefs
	SeedWeights  map[string]string
	VeggieLocals map[string]valueobject.ParsedValue
	Files        []string
}

// FarmingExtractor reads plant, weed, fertilizer and veggie definitions.
type FarmingExtractor struct{}

// NewFarmingExtractor creates the farming extractor.
func NewFarmingExtractor() *FarmingExtractor { return &FarmingExtractor{} }

// Kind implements Extractor.
func (e *FarmingExtractor) Kind() valueobject.ExtractorKind { return valueobject.ExtractorFarming }

// Extract implements Extractor.
func (e *FarmingExtractor) Extract(ctx context.Context, in Input) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res := newResult(e.Kind())
	raw := &FarmingRaw{SeedWeights: map[string]string{}, VeggieLocals: map[string]valueobject.ParsedValue{}}

	read := func(p string) string {
		content, ok := readOptional(in, p)
		if !ok {
			return ""
		}
		raw.Files = append(raw.Files, p)
		return luaparse.StripComments(content)
	}
	raw.Plants = parseFarmDefs(PlantDefsPath, read(PlantDefsPath), "PLANT_DEFS")
	raw.Weeds = parseFarmDefs(WeedDefsPath, read(WeedDefsPath), "WEED_DEFS")
	raw.Fertilizers = parseFarmDefs(FertilizerDefsPath, read(FertilizerDefsPath), "FERTILIZER_DEFS")

	if veggies := read(VeggiesPath); veggies != "" {
		raw.VeggieLocals = parseFarmLocals(veggies)
		if tbl, ok := tableByPattern(veggies, veggieTable); ok {
			for _, entry := range tbl.Entries {
				if entry.Positional || entry.KeyIsExpr {
					continue
				}
				expr, ok := entry.Value.Raw()
				if !ok {
					continue
				}
				if args := CallArgs(expr, "MakeVegStats"); len(args) > 0 {
					raw.SeedWeights[entry.Key] = args[0]
				}
			}
		}
	}

	for _, defs := range []FarmDefs{raw.Plants, raw.Weeds, raw.Fertilizers} {
		for _, name := range defs.Order {
			if _, ok := entity.CleanID(name); !ok {
				res.unresolved(e.Kind(), defs.Path, name, entity.ReasonInvalidID, "")
			}
		}
	}
	if len(raw.Files) == 0 {
		res.unresolved(e.Kind(), PlantDefsPath, "", entity.ReasonParseError, "missing")
	}

	res.Farming = raw
	count := len(raw.Plants.Order) + len(raw.Weeds.Order) + len(raw.Fertilizers.Order)
	return res.finish(len(raw.Files), count), nil
}

func parseFarmLocals(clean string) map[string]valueobject.ParsedValue {
	out := make(map[string]valueobject.ParsedValue)
	for _, m := range farmLocal.FindAllStringSubmatch(clean, -1) {
		rhs := strings.TrimSpace(strings.TrimRight(m[2], ","))
		if rhs == "" {
			continue
		}
		out[m[1]] = luaparse.ParseExpr(rhs)
	}
	return out
}

// parseFarmDefs collects `PREFIX.name = {...}` constructors and `PREFIX.name.field = rhs`
// lines. A def that only appears through field lines still gets an entry in Order.
func parseFarmDefs(p, clean, prefix string) FarmDefs {
	defs := FarmDefs{Path: p, Tables: map[string]*valueobject.Table{}, Locals: map[string]valueobject.ParsedValue{}}
	if clean == "" {
		return defs
	}
	defs.Locals = parseFarmLocals(clean)
	q := regexp.QuoteMeta(prefix)
	tablePattern := regexp.MustCompile(`\b` + q + `\.([A-Za-z0-9_]+)\s*=\s*\{`)
	fieldPattern := regexp.MustCompile(`^\s*` + q + `\.([A-Za-z0-9_]+)\.([A-Za-z0-9_]+)\s*=\s*(.+?)\s*$`)

	seen := make(map[string]bool)
	note := func(name string) {
		if !seen[name] {
			seen[name] = true
			defs.Order = append(defs.Order, name)
		}
	}
	for _, m := range tablePattern.FindAllStringSubmatchIndex(clean, -1) {
		name := clean[m[2]:m[3]]
		inner, ok := luaparse.TableAfter(clean, m[1]-1)
		if !ok {
			continue
		}
		defs.Tables[name] = luaparse.ParseTable(inner)
		note(name)
	}
	for _, line := range strings.Split(clean, "\n") {
		m := fieldPattern.FindStringSubmatch(line)
		if m == nil || strings.TrimSpace(m[3]) == "" {
			continue
		}
		defs.Assignments = append(defs.Assignments, FieldAssign{Name: m[1], Field: m[2], RHS: strings.TrimSpace(m[3])})
		note(m[1])
	}
	return defs
}

// CallArgs returns the top-level arguments of `fn(...)` when expr is exactly such a call.
func CallArgs(expr, fn string) []string {
	expr = strings.TrimSpace(expr)
	if !strings.HasPrefix(expr, fn) {
		return nil
	}
	open := strings.IndexByte(expr, '(')
	if open < 0 {
		return nil
	}
	closeIdx := luaparse.FindMatching(expr, open, '(', ')')
	if closeIdx < 0 {
		return nil
	}
	var out []string
	for _, a := range luaparse.SplitTopLevel(expr[open+1:closeIdx], ',') {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}
