package query

import (
	"context"
	"sort"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"scriptdex/internal/domain/entity"
)

// Search score weights. Scores add up across query words.
const (
	scoreExactID   = 1000
	scorePrefixID  = 200
	scoreInID      = 80
	scoreInName    = 40
	scoreInAltName = 60
)

// Icon modes of the index page descriptor.
const (
	IconModeStatic = "static"
	IconModeNone   = "none"
)

// IconConfig tells clients where record icons are served from.
type IconConfig struct {
	Mode string `json:"mode"`
	Base string `json:"base"`
}

// SearchResult is one page of ranked compact records.
type SearchResult struct {
	Q      string                      `json:"q"`
	Items  []entity.CatalogIndexRecord `json:"items"`
	Count  int                         `json:"count"`
	Total  int                         `json:"total"`
	Offset int                         `json:"offset"`
	Limit  int                         `json:"limit"`
}

// IndexPage is one page of the compact catalog index in id order.
type IndexPage struct {
	Items  []entity.CatalogIndexRecord `json:"items"`
	Count  int                         `json:"count"`
	Total  int                         `json:"total"`
	Offset int                         `json:"offset"`
	Limit  int                         `json:"limit"`
	Icon   IconConfig                  `json:"icon"`
}

type searchFilter struct {
	key  string
	vals []string
}

// parseQuery splits a lowercased query into key:value filters and plain words.
func parseQuery(q string) ([]searchFilter, []string) {
	var (
		filters []searchFilter
		words   []string
	)
	for _, tok := range strings.Fields(strings.ToLower(q)) {
		if k, v, ok := strings.Cut(tok, ":"); ok {
			k, v = strings.TrimSpace(k), strings.TrimSpace(v)
			if k != "" && v != "" {
				var vals []string
				for _, part := range strings.Split(v, ",") {
					if part = strings.TrimSpace(part); part != "" {
						vals = append(vals, part)
					}
				}
				if len(vals) > 0 {
					filters = append(filters, searchFilter{key: k, vals: vals})
				}
				continue
			}
		}
		words = append(words, tok)
	}
	return filters, words
}

func hitAny(have []string, vals []string) bool {
	for _, h := range have {
		h = strings.ToLower(h)
		for _, v := range vals {
			if h == v {
				return true
			}
		}
	}
	return false
}

// matchFilters applies every filter to rec. kind: also matches categories, so
// kind:weapon finds items classified as "item" with the weapon category. Unknown keys are
// ignored.
func matchFilters(rec *entity.CatalogIndexRecord, filters []searchFilter) bool {
	for _, f := range filters {
		var ok bool
		switch f.key {
		case "kind", "type":
			ok = hitAny([]string{rec.Kind}, f.vals) || hitAny(rec.Categories, f.vals)
		case "cat", "category":
			ok = hitAny(rec.Categories, f.vals)
		case "beh", "behavior":
			ok = hitAny(rec.Behaviors, f.vals)
		case "src", "source":
			ok = hitAny(rec.Sources, f.vals)
		case "tag":
			ok = hitAny(rec.Tags, f.vals)
		case "comp", "component":
			ok = hitAny(rec.Components, f.vals)
		case "slot":
			ok = hitAny(rec.Slots, f.vals)
		default:
			ok = true
		}
		if !ok {
			return false
		}
	}
	return true
}

func scoreRecord(rec *entity.CatalogIndexRecord, altName string, words []string) int {
	if len(words) == 0 {
		return 1
	}
	id := strings.ToLower(rec.ID)
	name := strings.ToLower(rec.Name)
	alt := strings.ToLower(altName)
	score := 0
	for _, w := range words {
		switch {
		case id == w:
			score += scoreExactID
		case strings.HasPrefix(id, w):
			score += scorePrefixID
		case strings.Contains(id, w):
			score += scoreInID
		}
		if name != "" && strings.Contains(name, w) {
			score += scoreInName
		}
		if alt != "" && strings.Contains(alt, w) {
			score += scoreInAltName
		}
	}
	return score
}

// Search ranks the compact records against q. Words score against the id, the display
// name and the secondary-language name; filters restrict the candidate set. Results are
// ordered by score descending, then id.
func (h *Handle) Search(ctx context.Context, q SearchQuery) (*SearchResult, error) {
	var out *SearchResult
	err := h.observe(ctx, OpSearch, func(ctx context.Context, s *Snapshot) error {
		if err := q.Validate(h.opts.SearchLimitMax); err != nil {
			return err
		}
		out = s.search(q)
		trace.SpanFromContext(ctx).SetAttributes(
			attribute.String("q", q.Q),
			attribute.Int("total", out.Total),
		)
		return nil
	})
	return out, err
}

func (s *Snapshot) search(q SearchQuery) *SearchResult {
	filters, words := parseQuery(q.Q)

	type scored struct {
		rec   *entity.CatalogIndexRecord
		score int
	}
	var hits []scored
	for i := range s.Index.Items {
		rec := &s.Index.Items[i]
		if !matchFilters(rec, filters) {
			continue
		}
		alt := ""
		if s.secondary != "" {
			alt, _ = s.names.Lookup(rec.ID, s.secondary)
		}
		if sc := scoreRecord(rec, alt, words); sc > 0 {
			hits = append(hits, scored{rec, sc})
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].rec.ID < hits[j].rec.ID
	})

	res := &SearchResult{Q: q.Q, Items: []entity.CatalogIndexRecord{}, Total: len(hits), Offset: q.Offset, Limit: q.Limit}
	for i := q.Offset; i < len(hits) && i < q.Offset+q.Limit; i++ {
		res.Items = append(res.Items, *hits[i].rec)
	}
	res.Count = len(res.Items)
	return res
}

// Index returns one page of the compact index in id order.
func (h *Handle) Index(ctx context.Context, q IndexQuery) (*IndexPage, error) {
	var out *IndexPage
	err := h.observe(ctx, OpIndex, func(_ context.Context, s *Snapshot) error {
		if err := q.Validate(h.opts.SearchLimitMax); err != nil {
			return err
		}
		items := s.Index.Items
		total := len(items)
		lo := min(q.Offset, total)
		hi := min(lo+q.Limit, total)
		page := append([]entity.CatalogIndexRecord{}, items[lo:hi]...)
		out = &IndexPage{
			Items:  page,
			Count:  len(page),
			Total:  total,
			Offset: q.Offset,
			Limit:  q.Limit,
			Icon:   h.iconConfig(s),
		}
		return nil
	})
	return out, err
}

func (h *Handle) iconConfig(s *Snapshot) IconConfig {
	if s.Icons == nil || h.opts.IconBase == "" {
		return IconConfig{Mode: IconModeNone}
	}
	return IconConfig{Mode: IconModeStatic, Base: h.opts.IconBase}
}
