// Package service holds domain services that operate on entities without touching I/O.
package service

import (
	"strings"

	"scriptdex/internal/domain/entity"
)

// KindOrder is the precedence of item kinds, strongest first.
var KindOrder = []string{
	entity.KindCharacter,
	entity.KindCreature,
	entity.KindStructure,
	entity.KindPlant,
	entity.KindItem,
	entity.KindFX,
	entity.KindUnknown,
}

var (
	creatureTags  = set("monster", "animal", "smallcreature", "largecreature", "epic", "hostile", "bird", "scarytoprey")
	plantTags     = set("plant", "tree", "crop", "flower", "berrybush", "mushroom")
	structureTags = set("structure", "wall", "house", "ruins")
	fxTags        = set("fx", "noclick", "notarget")
)

var componentBehaviors = map[string]string{
	"equippable": "equippable",
	"edible":     "edible",
	"stackable":  "stackable",
	"burnable":   "burnable",
	"perishable": "perishable",
	"repairable": "repairable",
	"fuel":       "fuel",
	"tradable":   "tradable",
	"hauntable":  "hauntable",
	"deployable": "deployable",
}

var componentCategories = map[string]string{
	"weapon":            "weapon",
	"armor":             "armor",
	"edible":            "food",
	"container":         "container",
	"inventory":         "container",
	"light":             "light",
	"fueled":            "light",
	"deployable":        "deployable",
	"trap":              "trap",
	"boat":              "boat",
	"farmplanttendable": "farm",
	"tool":              "tool",
}

var tagCategories = map[string]string{
	"weapon":        "weapon",
	"armor":         "armor",
	"food":          "food",
	"cookable":      "food",
	"magic":         "magic",
	"container":     "container",
	"boat":          "boat",
	"decor":         "decor",
	"toy":           "toy",
	"cattoy":        "toy",
	"light":         "light",
	"deploykititem": "deployable",
}

// Profile is the classification of one id.
type Profile struct {
	Kind       string
	Categories map[string]bool
	Behaviors  map[string]bool
	Sources    map[string]bool
	Slots      map[string]bool
}

// NewProfile returns an empty profile of the given kind.
func NewProfile(kind string) *Profile {
	if kind == "" {
		kind = entity.KindUnknown
	}
	return &Profile{
		Kind:       kind,
		Categories: map[string]bool{},
		Behaviors:  map[string]bool{},
		Sources:    map[string]bool{},
		Slots:      map[string]bool{},
	}
}

// List returns the sorted members of one of the profile sets.
func List(s map[string]bool) []string {
	out := make([]string, 0, len(s))
	for k, ok := range s {
		if ok {
			out = append(out, k)
		}
	}
	return entity.SortedUnique(out)
}

// ClassifyInput is what the classifier looks at for one id.
type ClassifyInput struct {
	ID         string
	Components []string
	Tags       []string
	Sources    []string
	Slots      []string
	KindHint   string
}

// Classifier infers kinds, categories and behaviors from components and tags, then
// applies the configured override rules.
type Classifier struct {
	overrides *TagOverrides
}

// NewClassifier creates a classifier. overrides may be nil.
func NewClassifier(overrides *TagOverrides) *Classifier {
	return &Classifier{overrides: overrides}
}

// Classify returns the profile of in.
func (c *Classifier) Classify(in ClassifyInput) *Profile {
	comps := lowerSet(in.Components)
	tags := lowerSet(in.Tags)

	p := NewProfile(in.KindHint)
	p.Kind = pickKind(p.Kind, tags, comps)

	for comp := range comps {
		if b, ok := componentBehaviors[comp]; ok {
			p.Behaviors[b] = true
		}
		if cat, ok := componentCategories[comp]; ok {
			p.Categories[cat] = true
		}
	}
	for tag := range tags {
		if cat, ok := tagCategories[tag]; ok {
			p.Categories[cat] = true
		}
	}
	// food that cannot be eaten as-is is an ingredient
	if p.Kind == entity.KindItem && p.Categories["food"] && !p.Behaviors["edible"] {
		p.Categories["resource"] = true
	}
	for s := range lowerSet(in.Sources) {
		p.Sources[s] = true
	}
	for s := range lowerSet(in.Slots) {
		p.Slots[s] = true
	}

	if c.overrides != nil {
		c.overrides.Apply(in.ID, p)
	}
	return p
}

func pickKind(hint string, tags, comps map[string]bool) string {
	switch {
	case tags["character"]:
		return entity.KindCharacter
	case intersects(tags, creatureTags) || (comps["brain"] && comps["health"] && comps["combat"]):
		return entity.KindCreature
	case intersects(tags, structureTags):
		return entity.KindStructure
	case intersects(tags, plantTags) || comps["pickable"] || comps["crop"]:
		return entity.KindPlant
	case intersects(tags, fxTags):
		return entity.KindFX
	case comps["inventoryitem"]:
		return entity.KindItem
	}
	if hint == "" {
		return entity.KindUnknown
	}
	return hint
}

func set(values ...string) map[string]bool {
	out := make(map[string]bool, len(values))
	for _, v := range values {
		out[v] = true
	}
	return out
}

func lowerSet(values []string) map[string]bool {
	out := make(map[string]bool, len(values))
	for _, v := range values {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			out[v] = true
		}
	}
	return out
}

func intersects(a, b map[string]bool) bool {
	for k := range a {
		if b[k] {
			return true
		}
	}
	return false
}
