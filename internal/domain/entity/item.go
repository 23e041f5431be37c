package entity

import (
	"regexp"
	"sort"
	"strings"
)

// Item kinds assigned by the classifier.
const (
	KindCharacter = "character"
	KindCreature  = "creature"
	KindStructure = "structure"
	KindPlant     = "plant"
	KindItem      = "item"
	KindFX        = "fx"
	KindUnknown   = "unknown"
)

// Stat provenance values.
const (
	StatSourcePrefab           = "prefab"
	StatSourceComponentDefault = "component_default"
	StatSourceDerived          = "derived"
)

var idPattern = regexp.MustCompile(`^[a-z0-9_]+$`)

// CleanID lowercases and trims s and reports whether the result is a valid entity id.
func CleanID(s string) (string, bool) {
	id := strings.ToLower(strings.TrimSpace(s))
	if id == "" || !idPattern.MatchString(id) {
		return "", false
	}
	return id, true
}

// Stat is one numeric or boolean property recovered for an item. Expr always holds the
// source expression; Value is nil when the expression could not be resolved.
type Stat struct {
	Key             string      `json:"key"`
	Expr            string      `json:"expr"`
	Value           interface{} `json:"value"`
	ExprResolved    string      `json:"expr_resolved"`
	TraceKey        string      `json:"trace_key,omitempty"`
	Source          string      `json:"source,omitempty"`
	SourceComponent string      `json:"source_component,omitempty"`
}

// NumericValue returns the value when it is a number.
func (s Stat) NumericValue() (float64, bool) {
	f, ok := s.Value.(float64)
	return f, ok
}

// Asset is an Asset("TYPE", "path") declaration in a prefab file.
type Asset struct {
	Type string `json:"type"`
	Path string `json:"path"`
}

// ItemAssets holds the presentation references selected for an item.
type ItemAssets struct {
	Atlas string `json:"atlas,omitempty"`
	Image string `json:"image,omitempty"`
	Icon  string `json:"icon,omitempty"`
}

// IsEmpty reports whether no reference is set.
func (a ItemAssets) IsEmpty() bool {
	return a.Atlas == "" && a.Image == "" && a.Icon == ""
}

// Item is a prefab-backed catalog entry.
type Item struct {
	ID            string          `json:"id"`
	Kind          string          `json:"kind"`
	Categories    []string        `json:"categories"`
	Behaviors     []string        `json:"behaviors"`
	Sources       []string        `json:"sources"`
	Slots         []string        `json:"slots"`
	Components    []string        `json:"components"`
	Tags          []string        `json:"tags"`
	Assets        ItemAssets      `json:"assets"`
	PrefabFiles   []string        `json:"prefab_files"`
	PrefabAssets  []Asset         `json:"prefab_assets"`
	Brains        []string        `json:"brains"`
	Stategraphs   []string        `json:"stategraphs"`
	Helpers       []string        `json:"helpers"`
	Stats         map[string]Stat `json:"stats"`
	ProducedBy    []string        `json:"produced_by"`
	UsedIn        []string        `json:"used_in"`
	CookingUsedIn []string        `json:"cooking_used_in"`
}

// HasCategory reports whether the item carries category c.
func (i *Item) HasCategory(c string) bool {
	return containsString(i.Categories, c)
}

// SortedUnique returns the distinct non-empty values of in, sorted. It never returns nil
// so that empty lists serialize as [] rather than null.
func SortedUnique(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// DedupPreserve returns the distinct non-empty values of in in first-seen order.
func DedupPreserve(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// SortedKeys returns the keys of m in ordinal order.
func SortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
