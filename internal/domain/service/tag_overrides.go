package service

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"
	"gopkg.in/yaml.v3"
)

// Fields an override rule can touch.
const (
	FieldKind       = "kind"
	FieldCategories = "categories"
	FieldBehaviors  = "behaviors"
	FieldSources    = "sources"
	FieldSlots      = "slots"
)

var overrideFields = []string{FieldKind, FieldCategories, FieldBehaviors, FieldSources, FieldSlots}

// OverrideRule rewrites the profile of every id matching Match. Set replaces a field,
// then Add and Remove adjust it. For kind only the first Set value is used.
type OverrideRule struct {
	Match  string              `yaml:"match"`
	Add    map[string][]string `yaml:"add"`
	Remove map[string][]string `yaml:"remove"`
	Set    map[string][]string `yaml:"set"`

	pattern glob.Glob
}

type overrideFile struct {
	Rules []OverrideRule `yaml:"rules"`
}

// TagOverrides is an ordered rule list. The first matching rule is the only one applied.
type TagOverrides struct {
	Rules []OverrideRule
}

// ParseTagOverrides reads a `rules: [...]` YAML document. Rules with an empty match are
// dropped; an invalid glob is an error.
func ParseTagOverrides(data []byte) (*TagOverrides, error) {
	var doc overrideFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse tag overrides: %w", err)
	}
	out := &TagOverrides{}
	for i, r := range doc.Rules {
		r.Match = strings.TrimSpace(r.Match)
		if r.Match == "" {
			continue
		}
		g, err := glob.Compile(r.Match)
		if err != nil {
			return nil, fmt.Errorf("tag override rule %d: invalid match %q: %w", i, r.Match, err)
		}
		r.pattern = g
		out.Rules = append(out.Rules, r)
	}
	return out, nil
}

// Matches reports whether the rule applies to id.
func (r OverrideRule) Matches(id string) bool {
	if r.Match == id {
		return true
	}
	return r.pattern != nil && r.pattern.Match(id)
}

// Apply rewrites p with the first rule matching id. It reports whether a rule matched.
func (o *TagOverrides) Apply(id string, p *Profile) bool {
	id = strings.TrimSpace(id)
	if o == nil || id == "" {
		return false
	}
	for _, r := range o.Rules {
		if !r.Matches(id) {
			continue
		}
		for _, field := range overrideFields {
			applyField(p, field, r.Add[field], r.Remove[field], r.Set[field], hasKey(r.Set, field))
		}
		return true
	}
	return false
}

func hasKey(m map[string][]string, k string) bool {
	_, ok := m[k]
	return ok
}

func applyField(p *Profile, field string, add, remove, setTo []string, hasSet bool) {
	if field == FieldKind {
		if len(setTo) > 0 && setTo[0] != "" {
			p.Kind = setTo[0]
		}
		return
	}
	var target map[string]bool
	switch field {
	case FieldCategories:
		target = p.Categories
	case FieldBehaviors:
		target = p.Behaviors
	case FieldSources:
		target = p.Sources
	case FieldSlots:
		target = p.Slots
	default:
		return
	}
	if hasSet {
		for k := range target {
			delete(target, k)
		}
		for _, v := range setTo {
			if v != "" {
				target[v] = true
			}
		}
	}
	for _, v := range add {
		if v != "" {
			target[v] = true
		}
	}
	for _, v := range remove {
		delete(target, v)
	}
}
