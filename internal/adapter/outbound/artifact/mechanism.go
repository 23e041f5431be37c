package artifact

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/tidwall/gjson"

	"scriptdex/internal/domain/entity"
)

// Mechanism edge endpoint kinds.
const (
	MechanismSourcePrefab    = "prefab"
	MechanismTargetComponent = "component"
)

// MechanismCounts summarizes the mechanism index.
type MechanismCounts struct {
	ComponentsTotal      int `json:"components_total"`
	PrefabsTotal         int `json:"prefabs_total"`
	ComponentsUsed       int `json:"components_used"`
	PrefabComponentEdges int `json:"prefab_component_edges"`
}

// MechanismComponents holds the component definitions.
type MechanismComponents struct {
	TotalFiles int                          `json:"total_files"`
	Items      map[string]*entity.Component `json:"items"`
}

// MechanismPrefab is the component binding of one prefab.
type MechanismPrefab struct {
	Components  []string `json:"components"`
	Tags        []string `json:"tags"`
	Brains      []string `json:"brains"`
	Stategraphs []string `json:"stategraphs"`
	Helpers     []string `json:"helpers"`
	Files       []string `json:"files"`
}

// MechanismPrefabs wraps the prefab rows.
type MechanismPrefabs struct {
	Items map[string]MechanismPrefab `json:"items"`
}

// MechanismEdge links a prefab to a component it adds.
type MechanismEdge struct {
	Source   string `json:"source"`
	SourceID string `json:"source_id"`
	Target   string `json:"target"`
	TargetID string `json:"target_id"`
}

// MechanismLinks holds the edge lists.
type MechanismLinks struct {
	PrefabComponent []MechanismEdge `json:"prefab_component"`
}

// MechanismIndex is the component and prefab linkage document.
type MechanismIndex struct {
	SchemaVersion  int                 `json:"schema_version"`
	Meta           entity.BuildMeta    `json:"meta"`
	Counts         MechanismCounts     `json:"counts"`
	Components     MechanismComponents `json:"components"`
	Prefabs        MechanismPrefabs    `json:"prefabs"`
	ComponentUsage map[string][]string `json:"component_usage"`
	Links          MechanismLinks      `json:"links"`
}

// BuildMechanismIndex derives the mechanism index from the graph. componentFiles is the
// number of component scripts scanned.
func BuildMechanismIndex(g *entity.Graph, componentFiles int) *MechanismIndex {
	idx := &MechanismIndex{
		SchemaVersion:  entity.MechanismIndexSchemaVersion,
		Components:     MechanismComponents{TotalFiles: componentFiles, Items: map[string]*entity.Component{}},
		Prefabs:        MechanismPrefabs{Items: map[string]MechanismPrefab{}},
		ComponentUsage: map[string][]string{},
		Links:          MechanismLinks{PrefabComponent: []MechanismEdge{}},
	}
	for id, c := range g.Components {
		idx.Components.Items[id] = c
	}

	usage := map[string][]string{}
	for _, id := range entity.SortedKeys(g.Prefabs) {
		p := g.Prefabs[id]
		row := MechanismPrefab{
			Components:  entity.SortedUnique(p.Components),
			Tags:        entity.SortedUnique(p.Tags),
			Brains:      entity.SortedUnique(p.Brains),
			Stategraphs: entity.SortedUnique(p.Stategraphs),
			Helpers:     entity.SortedUnique(p.Helpers),
			Files:       entity.SortedUnique(p.Files),
		}
		idx.Prefabs.Items[id] = row
		for _, comp := range row.Components {
			usage[comp] = append(usage[comp], id)
			idx.Links.PrefabComponent = append(idx.Links.PrefabComponent, MechanismEdge{
				Source: MechanismSourcePrefab, SourceID: id,
				Target: MechanismTargetComponent, TargetID: comp,
			})
		}
	}
	for comp, ids := range usage {
		idx.ComponentUsage[comp] = entity.SortedUnique(ids)
	}

	idx.Counts = MechanismCounts{
		ComponentsTotal:      len(idx.Components.Items),
		PrefabsTotal:         len(idx.Prefabs.Items),
		ComponentsUsed:       len(idx.ComponentUsage),
		PrefabComponentEdges: len(idx.Links.PrefabComponent),
	}
	return idx
}

// ValidationResult lists the problems of a mechanism index. Errors make it unusable;
// warnings flag inconsistencies.
type ValidationResult struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// OK reports whether there are no errors, and no warnings when strict.
func (r ValidationResult) OK(strict bool) bool {
	return len(r.Errors) == 0 && (!strict || len(r.Warnings) == 0)
}

// ValidateMechanismIndex checks the structure of a raw mechanism index document, the
// counts against the sections, and every edge against the prefab rows.
func ValidateMechanismIndex(data []byte) ValidationResult {
	res := ValidationResult{Errors: []string{}, Warnings: []string{}}
	fail := func(format string, args ...interface{}) {
		res.Errors = append(res.Errors, fmt.Sprintf(format, args...))
	}
	warn := func(format string, args ...interface{}) {
		res.Warnings = append(res.Warnings, fmt.Sprintf(format, args...))
	}

	if !gjson.ValidBytes(data) {
		fail("document is not valid JSON")
		return res
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		fail("root is not an object")
		return res
	}

	for _, key := range []string{"schema_version", "meta", "counts", "components", "prefabs", "component_usage", "links"} {
		if !root.Get(key).Exists() {
			fail("missing top-level key: %s", key)
		}
	}
	if v := root.Get("schema_version"); v.Exists() && (v.Type != gjson.Number || v.Float() != float64(v.Int())) {
		fail("schema_version is not an integer")
	}
	if v := root.Get("meta"); v.Exists() && !v.IsObject() {
		fail("meta is not an object")
	}

	counts := root.Get("counts")
	if counts.Exists() && !counts.IsObject() {
		fail("counts is not an object")
	} else {
		for _, key := range []string{"components_total", "prefabs_total", "components_used", "prefab_component_edges"} {
			if !counts.Get(key).Exists() {
				warn("counts missing: %s", key)
			}
		}
	}

	components := root.Get("components.items")
	if root.Get("components").Exists() {
		if root.Get("components.total_files").Type != gjson.Number {
			warn("components.total_files missing or not a number")
		}
		if !components.IsObject() {
			fail("components.items is not an object")
		} else {
			components.ForEach(func(key, row gjson.Result) bool {
				if !row.IsObject() {
					warn("component %s row is not an object", key.String())
					return true
				}
				if id := row.Get("id").String(); id != "" && id != key.String() {
					warn("component id mismatch: key=%s row.id=%s", key.String(), id)
				}
				return true
			})
			if c := counts.Get("components_total"); c.Exists() && int(c.Int()) != len(components.Map()) {
				warn("counts.components_total=%d but components.items has %d", c.Int(), len(components.Map()))
			}
		}
	}

	prefabs := root.Get("prefabs.items")
	if root.Get("prefabs").Exists() {
		if !prefabs.IsObject() {
			fail("prefabs.items is not an object")
		} else if c := counts.Get("prefabs_total"); c.Exists() && int(c.Int()) != len(prefabs.Map()) {
			warn("counts.prefabs_total=%d but prefabs.items has %d", c.Int(), len(prefabs.Map()))
		}
	}

	usage := root.Get("component_usage")
	if usage.Exists() {
		if !usage.IsObject() {
			fail("component_usage is not an object")
		} else {
			usage.ForEach(func(key, ids gjson.Result) bool {
				if !ids.IsArray() {
					warn("component_usage[%s] is not a list", key.String())
				}
				return true
			})
		}
	}

	edges := root.Get("links.prefab_component")
	if root.Get("links").Exists() {
		if !edges.IsArray() {
			fail("links.prefab_component is not a list")
		} else {
			n := 0
			edges.ForEach(func(_, row gjson.Result) bool {
				n++
				if !row.IsObject() {
					warn("link row is not an object")
					return true
				}
				for _, key := range []string{"source", "source_id", "target", "target_id"} {
					if !row.Get(key).Exists() {
						warn("link missing field: %s", key)
					}
				}
				if s := row.Get("source"); s.Exists() && s.String() != MechanismSourcePrefab {
					warn("link source not prefab: %s", s.String())
				}
				if tg := row.Get("target"); tg.Exists() && tg.String() != MechanismTargetComponent {
					warn("link target not component: %s", tg.String())
				}
				if prefabs.IsObject() {
					src, comp := row.Get("source_id").String(), row.Get("target_id").String()
					if !hasString(prefabs.Get(gjson.Escape(src)+".components"), comp) {
						warn("edge %s -> %s has no matching prefab component", src, comp)
					}
				}
				return true
			})
			if c := counts.Get("prefab_component_edges"); c.Exists() && int(c.Int()) != n {
				warn("counts.prefab_component_edges=%d but links has %d", c.Int(), n)
			}
		}
	}
	return res
}

func hasString(list gjson.Result, s string) bool {
	for _, v := range list.Array() {
		if v.String() == s {
			return true
		}
	}
	return false
}

// CountDelta is one count in both documents.
type CountDelta struct {
	A int `json:"a"`
	B int `json:"b"`
}

// MechanismDiff is the difference between two mechanism indexes.
type MechanismDiff struct {
	Counts            map[string]CountDelta `json:"counts"`
	ComponentsAdded   []string              `json:"components_added"`
	ComponentsRemoved []string              `json:"components_removed"`
	ComponentsChanged []string              `json:"components_changed"`
	PrefabsAdded      []string              `json:"prefabs_added"`
	PrefabsRemoved    []string              `json:"prefabs_removed"`
	PrefabsChanged    []string              `json:"prefabs_changed"`
	LinksAdded        []string              `json:"links_added"`
	LinksRemoved      []string              `json:"links_removed"`
}

// Empty reports whether the two documents describe the same mechanisms.
func (d *MechanismDiff) Empty() bool {
	return len(d.ComponentsAdded)+len(d.ComponentsRemoved)+len(d.ComponentsChanged)+
		len(d.PrefabsAdded)+len(d.PrefabsRemoved)+len(d.PrefabsChanged)+
		len(d.LinksAdded)+len(d.LinksRemoved) == 0
}

// DiffMechanismIndex compares baseline a with target b.
func DiffMechanismIndex(a, b []byte) (*MechanismDiff, error) {
	var docA, docB MechanismIndex
	if err := json.Unmarshal(a, &docA); err != nil {
		return nil, fmt.Errorf("baseline: %w", err)
	}
	if err := json.Unmarshal(b, &docB); err != nil {
		return nil, fmt.Errorf("target: %w", err)
	}

	d := &MechanismDiff{Counts: map[string]CountDelta{
		"components_total":       {docA.Counts.ComponentsTotal, docB.Counts.ComponentsTotal},
		"prefabs_total":          {docA.Counts.PrefabsTotal, docB.Counts.PrefabsTotal},
		"components_used":        {docA.Counts.ComponentsUsed, docB.Counts.ComponentsUsed},
		"prefab_component_edges": {docA.Counts.PrefabComponentEdges, docB.Counts.PrefabComponentEdges},
	}}

	d.ComponentsAdded, d.ComponentsRemoved = setDiff(keySet(docA.Components.Items), keySet(docB.Components.Items))
	d.PrefabsAdded, d.PrefabsRemoved = setDiff(keySet(docA.Prefabs.Items), keySet(docB.Prefabs.Items))
	d.LinksAdded, d.LinksRemoved = setDiff(edgeSet(docA.Links.PrefabComponent), edgeSet(docB.Links.PrefabComponent))

	d.ComponentsChanged = []string{}
	for _, id := range entity.SortedKeys(docA.Components.Items) {
		cb, ok := docB.Components.Items[id]
		if !ok {
			continue
		}
		if !sameJSON(docA.Components.Items[id], cb) {
			d.ComponentsChanged = append(d.ComponentsChanged, id)
		}
	}
	d.PrefabsChanged = []string{}
	for _, id := range entity.SortedKeys(docA.Prefabs.Items) {
		pb, ok := docB.Prefabs.Items[id]
		if !ok {
			continue
		}
		if !sameJSON(docA.Prefabs.Items[id], pb) {
			d.PrefabsChanged = append(d.PrefabsChanged, id)
		}
	}
	return d, nil
}

func keySet[V any](m map[string]V) map[string]bool {
	out := make(map[string]bool, len(m))
	for k := range m {
		out[k] = true
	}
	return out
}

func edgeSet(edges []MechanismEdge) map[string]bool {
	out := make(map[string]bool, len(edges))
	for _, e := range edges {
		out[e.SourceID+" -> "+e.TargetID] = true
	}
	return out
}

// setDiff returns the sorted keys only in b and only in a.
func setDiff(a, b map[string]bool) (added, removed []string) {
	added, removed = []string{}, []string{}
	for k := range b {
		if !a[k] {
			added = append(added, k)
		}
	}
	for k := range a {
		if !b[k] {
			removed = append(removed, k)
		}
	}
	sort.Strings(added)
	sort.Strings(removed)
	return added, removed
}

func sameJSON(a, b interface{}) bool {
	ja, errA := json.Marshal(a)
	jb, errB := json.Marshal(b)
	return errA == nil && errB == nil && string(ja) == string(jb)
}
