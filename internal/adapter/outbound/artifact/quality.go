package artifact

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/agnivade/levenshtein"
	"github.com/tidwall/gjson"

	"scriptdex/internal/domain/entity"
	"scriptdex/internal/domain/valueobject"
)

// QualityThresholds are the minimums the quality gate enforces.
type QualityThresholds struct {
	MinItems     int     `json:"min_items"`
	MinIcons     int     `json:"min_icons"`
	MinI18nRatio float64 `json:"min_i18n_ratio"`
}

// DefaultQualityThresholds returns the thresholds for a full game corpus.
func DefaultQualityThresholds() QualityThresholds {
	return QualityThresholds{MinItems: 1000, MinIcons: 1000, MinI18nRatio: 0.30}
}

// QualityIssue is one finding of the gate.
type QualityIssue struct {
	Level   valueobject.IssueSeverity `json:"level"`
	Check   string                    `json:"check"`
	Message string                    `json:"message"`
}

// QualitySummary counts issues by level.
type QualitySummary struct {
	IssuesFail int `json:"issues_fail"`
	IssuesWarn int `json:"issues_warn"`
	IssuesInfo int `json:"issues_info"`
}

// QualityReport is the result of the quality gate.
type QualityReport struct {
	SchemaVersion int               `json:"schema_version"`
	Meta          entity.BuildMeta  `json:"meta"`
	Thresholds    QualityThresholds `json:"thresholds"`
	Summary       QualitySummary    `json:"summary"`
	Issues        []QualityIssue    `json:"issues"`
}

// HasFail reports whether any fail-level issue was found.
func (r *QualityReport) HasFail() bool {
	return r.Summary.IssuesFail > 0
}

func (r *QualityReport) add(level valueobject.IssueSeverity, check, format string, args ...interface{}) {
	r.Issues = append(r.Issues, QualityIssue{Level: level, Check: check, Message: fmt.Sprintf(format, args...)})
	switch level {
	case valueobject.SeverityFail:
		r.Summary.IssuesFail++
	case valueobject.SeverityWarn:
		r.Summary.IssuesWarn++
	default:
		r.Summary.IssuesInfo++
	}
}

// RunQualityGate checks the artifacts in store against th.
func RunQualityGate(ctx context.Context, store *Store, th QualityThresholds) *QualityReport {
	r := &QualityReport{
		SchemaVersion: entity.QualitySchemaVersion,
		Thresholds:    th,
		Issues:        []QualityIssue{},
	}

	var itemIDs []string
	catalog, err := store.ReadBytes(CatalogName)
	switch {
	case err != nil:
		r.add(valueobject.SeverityFail, "catalog", "catalog missing: %s", store.Path(CatalogName))
	case !gjson.ValidBytes(catalog):
		r.add(valueobject.SeverityFail, "catalog", "catalog is not valid JSON")
	default:
		res := gjson.GetManyBytes(catalog, "schema_version", "items", "cooking")
		res[1].ForEach(func(key, _ gjson.Result) bool {
			itemIDs = append(itemIDs, key.String())
			return true
		})
		sort.Strings(itemIDs)
		if len(itemIDs) < th.MinItems {
			r.add(valueobject.SeverityFail, "catalog", "catalog has %d items, expected at least %d", len(itemIDs), th.MinItems)
		}
		if res[0].Int() < entity.CatalogSchemaVersion {
			r.add(valueobject.SeverityWarn, "catalog", "catalog schema_version %d is older than %d", res[0].Int(), entity.CatalogSchemaVersion)
		}
		if conflicts := cardRuleConflicts(res[2]); len(conflicts) > 0 {
			r.add(valueobject.SeverityInfo, "cooking",
				"%d cooking recipes declare both a card and a rule, card ingredients kept only in gaps: %v",
				len(conflicts), conflicts)
		}
	}

	if data, err := store.ReadBytes(CatalogIndexName); err != nil {
		r.add(valueobject.SeverityFail, "catalog_index", "catalog index missing: %s", store.Path(CatalogIndexName))
	} else if n := len(gjson.GetBytes(data, "items").Array()); n == 0 {
		r.add(valueobject.SeverityFail, "catalog_index", "catalog index has no items")
	}

	if data, err := store.ReadBytes(IconIndexName); err != nil {
		r.add(valueobject.SeverityWarn, "icons", "icon index missing: %s", store.Path(IconIndexName))
	} else if n := len(gjson.GetBytes(data, "icons").Map()); n < th.MinIcons {
		r.add(valueobject.SeverityWarn, "icons", "icon index has %d icons, expected at least %d", n, th.MinIcons)
	}

	if data, err := store.ReadBytes(I18nName); err != nil {
		r.add(valueobject.SeverityWarn, "i18n", "i18n index missing: %s", store.Path(I18nName))
	} else if len(itemIDs) > 0 {
		names := gjson.GetBytes(data, "names")
		langs := []string{}
		names.ForEach(func(key, _ gjson.Result) bool {
			langs = append(langs, key.String())
			return true
		})
		sort.Strings(langs)
		for _, lang := range langs {
			table := names.Get(gjson.Escape(lang))
			covered := 0
			for _, id := range itemIDs {
				if table.Get(gjson.Escape(id)).Exists() {
					covered++
				}
			}
			ratio := float64(covered) / float64(len(itemIDs))
			if ratio < th.MinI18nRatio {
				r.add(valueobject.SeverityWarn, "i18n", "%s names cover %.2f of items, expected at least %.2f", lang, ratio, th.MinI18nRatio)
			}
		}
	}

	if data, err := store.ReadBytes(TraceIndexName); err != nil {
		r.add(valueobject.SeverityWarn, "tuning_trace", "trace index missing: %s", store.Path(TraceIndexName))
	} else if len(gjson.ParseBytes(data).Map()) == 0 {
		r.add(valueobject.SeverityWarn, "tuning_trace", "trace index is empty")
	}

	if data, err := store.ReadBytes(MechanismIndexName); err != nil {
		r.add(valueobject.SeverityWarn, "mechanism", "mechanism index missing: %s", store.Path(MechanismIndexName))
	} else {
		v := ValidateMechanismIndex(data)
		for _, e := range v.Errors {
			r.add(valueobject.SeverityFail, "mechanism", "%s", e)
		}
		for _, w := range v.Warnings {
			r.add(valueobject.SeverityWarn, "mechanism", "%s", w)
		}
	}

	if meta, err := ReadSQLiteMeta(ctx, store.Path(CatalogSQLiteName)); err != nil {
		r.add(valueobject.SeverityWarn, "catalog_sqlite", "catalog sqlite unreadable: %v", err)
	} else {
		if meta["schema_version"] != strconv.Itoa(entity.CatalogSchemaVersion) {
			r.add(valueobject.SeverityWarn, "catalog_sqlite", "catalog sqlite schema_version %q, expected %d", meta["schema_version"], entity.CatalogSchemaVersion)
		}
		if meta["db_schema_version"] == "" {
			r.add(valueobject.SeverityWarn, "catalog_sqlite", "catalog sqlite has no db_schema_version")
		}
		if n, err := CountRows(ctx, store.Path(CatalogSQLiteName), "items"); err == nil && n != len(itemIDs) {
			r.add(valueobject.SeverityWarn, "catalog_sqlite", "catalog sqlite has %d items, catalog has %d", n, len(itemIDs))
		}
	}

	if data, err := store.ReadBytes(GapsName); err == nil {
		unresolved := gjson.GetBytes(data, "unresolved_links")
		seen := map[string]bool{}
		unresolved.ForEach(func(_, link gjson.Result) bool {
			id := link.Get("target_id").String()
			if id == "" || seen[id] {
				return true
			}
			seen[id] = true
			if s := Suggest(id, itemIDs, 3); len(s) > 0 {
				r.add(valueobject.SeverityInfo, "gaps", "unresolved id %q, did you mean %v", id, s)
			}
			return true
		})
	}
	return r
}

// cardRuleConflicts lists the cooking recipes noted as declaring both a card and a rule.
func cardRuleConflicts(cooking gjson.Result) []string {
	var out []string
	cooking.ForEach(func(name, rec gjson.Result) bool {
		for _, note := range rec.Get("notes").Array() {
			if note.String() == entity.NoteCardAndRuleConflict {
				out = append(out, name.String())
				break
			}
		}
		return true
	})
	sort.Strings(out)
	return out
}

// Suggest returns up to limit candidates within len(id)/3+1 edits of id, closest first
// and by id within the same distance. id itself is never suggested.
func Suggest(id string, candidates []string, limit int) []string {
	maxDist := len(id)/3 + 1
	type scored struct {
		id   string
		dist int
	}
	var hits []scored
	for _, c := range candidates {
		if c == id {
			continue
		}
		if d := levenshtein.ComputeDistance(id, c); d <= maxDist {
			hits = append(hits, scored{c, d})
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].dist != hits[j].dist {
			return hits[i].dist < hits[j].dist
		}
		return hits[i].id < hits[j].id
	})
	out := []string{}
	for i := 0; i < len(hits) && i < limit; i++ {
		out = append(out, hits[i].id)
	}
	return out
}
