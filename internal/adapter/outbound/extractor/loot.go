package extractor

import (
	"context"
	"strings"

	"scriptdex/internal/adapter/outbound/luaparse"
	"scriptdex/internal/domain/entity"
	"scriptdex/internal/domain/valueobject"
)

var lootTokens = []string{"SetSharedLootTable", "AddRandomLoot", "AddRandomLootTable", "AddChanceLoot"}

// LootExtractor collects every item id that some loot table can drop.
type LootExtractor struct{}

// NewLootExtractor creates the loot extractor.
func NewLootExtractor() *LootExtractor { return &LootExtractor{} }

// Kind implements Extractor.
func (e *LootExtractor) Kind() valueobject.ExtractorKind { return valueobject.ExtractorLoot }

// Extract implements Extractor.
func (e *LootExtractor) Extract(ctx context.Context, in Input) (*Result, error) {
	res := newResult(e.Kind())
	var paths []string
	for _, p := range in.Corpus.Files() {
		if !strings.HasSuffix(p, ".lua") || (!strings.Contains(p, "loot") && !strings.Contains(p, "prefabs")) {
			continue
		}
		if in.Select != nil && !in.Select(p) {
			continue
		}
		paths = append(paths, p)
	}

	col, err := processFiles(ctx, in, e.Kind(), paths, func(_ string, content string) ([]string, error) {
		if !containsAny(content, lootTokens) {
			return nil, nil
		}
		return lootItems(luaparse.StripComments(content)), nil
	})
	if err != nil {
		return nil, err
	}

	var items []string
	res.Unresolved = append(res.Unresolved, col.unresolved...)
	col.each(func(_ string, ids []string) { items = append(items, ids...) }, paths)
	res.Loot = entity.SortedUnique(items)
	return res.finish(len(paths), len(res.Loot)), nil
}

func containsAny(s string, tokens []string) bool {
	for _, t := range tokens {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

// lootItems returns the dropped item ids of one file.
func lootItems(text string) []string {
	var out []string
	add := func(expr string) {
		if s, ok := luaparse.ParseString(expr); ok {
			if id, ok := entity.CleanID(s); ok {
				out = append(out, id)
			}
		}
	}

	for _, call := range luaparse.Calls(text, luaparse.CallOptions{Names: lootTokens, MemberCalls: true}) {
		if call.Name != "SetSharedLootTable" {
			if len(call.ArgList) >= 2 {
				add(call.ArgList[0])
			}
			continue
		}
		if len(call.ArgList) < 2 {
			continue
		}
		tbl, ok := luaparse.ParseTableExpr(call.ArgList[1])
		if !ok {
			continue
		}
		for _, row := range tbl.Array() {
			inner, ok := row.AsTable()
			if !ok {
				continue
			}
			cells := inner.Array()
			if len(cells) < 2 {
				continue
			}
			if s, ok := cells[0].AsString(); ok {
				if id, ok := entity.CleanID(s); ok {
					out = append(out, id)
				}
			}
		}
	}
	return out
}
