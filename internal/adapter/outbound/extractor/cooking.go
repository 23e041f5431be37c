package extractor

import (
	"context"
	"regexp"
	"strings"

	"scriptdex/internal/adapter/outbound/luaparse"
	"scriptdex/internal/domain/entity"
	"scriptdex/internal/domain/valueobject"
)

var foodsTablePattern = regexp.MustCompile(`local\s+foods\s*=\s*\{`)

// CookingExtractor reads cookpot recipes from scripts/preparedfoods*.lua.
type CookingExtractor struct{}

// NewCookingExtractor creates the cooking extractor.
func NewCookingExtractor() *CookingExtractor { return &CookingExtractor{} }

// Kind implements Extractor.
func (e *CookingExtractor) Kind() valueobject.ExtractorKind { return valueobject.ExtractorCooking }

type cookingScan struct {
	recipes    []*entity.CookingRecipe
	unresolved []entity.UnresolvedRecord
}

// Extract implements Extractor.
func (e *CookingExtractor) Extract(ctx context.Context, in Input) (*Result, error) {
	res := newResult(e.Kind())
	paths, err := selectFiles(in, "scripts/preparedfoods*.lua")
	if err != nil {
		return nil, err
	}
	col, err := processFiles(ctx, in, e.Kind(), paths, func(p, content string) (cookingScan, error) {
		return parsePreparedFoods(p, content), nil
	})
	if err != nil {
		return nil, err
	}

	res.Cooking = make(map[string]*entity.CookingRecipe)
	res.Unresolved = append(res.Unresolved, col.unresolved...)
	col.each(func(_ string, scan cookingScan) {
		res.Unresolved = append(res.Unresolved, scan.unresolved...)
		for _, r := range scan.recipes {
			if cur, ok := res.Cooking[r.Name]; ok {
				cur.Files = entity.SortedUnique(append(cur.Files, r.Files...))
				continue
			}
			res.Cooking[r.Name] = r
		}
	}, paths)
	return res.finish(len(paths), len(res.Cooking)), nil
}

// parsePreparedFoods reads the `local foods = {...}` table of one file. Each recipe keeps
// exactly one representation: a recipe declaring both a card and a rule keeps the rule,
// and a recipe declaring neither is reported instead of emitted.
func parsePreparedFoods(p, content string) cookingScan {
	var scan cookingScan
	kind := valueobject.ExtractorCooking.String()
	clean := luaparse.StripComments(content)
	loc := foodsTablePattern.FindStringIndex(clean)
	if loc == nil {
		return scan
	}
	inner, ok := luaparse.TableAfter(clean, loc[1]-1)
	if !ok {
		scan.unresolved = append(scan.unresolved, entity.UnresolvedRecord{
			Kind: kind, Path: p, Reason: entity.ReasonUnparsedTable, Raw: clip(clean[loc[0]:]),
		})
		return scan
	}

	for _, block := range luaparse.NamedTableBlocks(inner) {
		name, ok := entity.CleanID(block.Name)
		if !ok {
			scan.unresolved = append(scan.unresolved, entity.UnresolvedRecord{
				Kind: kind, Path: p, Entity: block.Name, Reason: entity.ReasonInvalidID,
			})
			continue
		}
		tbl := luaparse.ParseTable(block.Body)
		rec := &entity.CookingRecipe{Name: name, Tags: []string{}, Files: []string{p}}

		if v, ok := tbl.Get("priority"); ok {
			rec.Priority, _ = v.AsNumber()
		}
		if v, ok := tbl.Get("weight"); ok {
			rec.Weight, _ = v.AsNumber()
		}
		if v, ok := tbl.Get("foodtype"); ok {
			rec.FoodType, _ = v.Text()
		}
		for field, dst := range rec.StatFields() {
			v, ok := tbl.Get(field)
			if !ok || v.IsNil() {
				continue
			}
			*dst = literalStat(field, v)
		}
		if v, ok := tbl.Get("tags"); ok {
			if t, ok := v.AsTable(); ok {
				for _, tag := range t.Array() {
					if s, ok := tag.Text(); ok {
						rec.Tags = append(rec.Tags, s)
					}
				}
			}
		}

		card := cardIngredients(tbl)
		ruleExpr, hasRule := testReturnExpr(block.Body)
		if hasRule {
			rec.Rule = &entity.CookingRule{Kind: "test_return", Expr: ruleExpr, Constraints: parseRuleConstraints(ruleExpr)}
		}
		switch {
		case hasRule && len(card) > 0:
			rec.Notes = append(rec.Notes, entity.NoteCardAndRuleConflict)
			scan.unresolved = append(scan.unresolved, entity.UnresolvedRecord{
				Kind: kind, Path: p, Entity: name, Reason: entity.NoteCardAndRuleConflict, Raw: cardSource(card),
			})
		case len(card) > 0:
			rec.CardIngredients = card
		case !hasRule:
			scan.unresolved = append(scan.unresolved, entity.UnresolvedRecord{
				Kind: kind, Path: p, Entity: name, Reason: entity.NoteNoCardOrRule, Raw: clip(block.Body),
			})
			continue
		}
		scan.recipes = append(scan.recipes, rec)
	}
	return scan
}

// literalStat wraps a recipe field as a stat. Numeric literals carry their value now;
// expressions are resolved by the linker.
func literalStat(field string, v valueobject.ParsedValue) *entity.Stat {
	st := &entity.Stat{Key: field, Expr: v.Source()}
	if f, ok := v.AsNumber(); ok {
		st.Value = f
	}
	if b, ok := v.AsBool(); ok {
		st.Value = b
	}
	st.ExprResolved = st.Expr
	return st
}

func cardIngredients(tbl *valueobject.Table) []entity.CardIngredient {
	cardVal, ok := tbl.Get("card_def")
	if !ok {
		return nil
	}
	card, ok := cardVal.AsTable()
	if !ok {
		return nil
	}
	ingVal, ok := card.Get("ingredients")
	if !ok {
		return nil
	}
	ing, ok := ingVal.AsTable()
	if !ok {
		return nil
	}
	var out []entity.CardIngredient
	for _, row := range ing.Array() {
		r, ok := row.AsTable()
		if !ok {
			continue
		}
		cells := r.Array()
		if len(cells) < 2 {
			continue
		}
		item, ok1 := cells[0].Text()
		count, ok2 := cells[1].AsNumber()
		if ok1 && ok2 {
			out = append(out, entity.CardIngredient{Item: item, Count: count})
		}
	}
	return out
}

func cardSource(card []entity.CardIngredient) string {
	parts := make([]string, 0, len(card))
	for _, c := range card {
		parts = append(parts, `{"`+c.Item+`", `+valueobject.FormatNumber(c.Count)+`}`)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
