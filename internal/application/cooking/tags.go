package cooking

import (
	"strings"

	"scriptdex/internal/domain/entity"
)

// tagHints maps a cooking tag to id substrings that suggest it. Order is fixed so guesses
// are deterministic.
var tagHints = []struct {
	tag   string
	hints []string
}{
	{"meat", []string{"meat", "leafymeat"}},
	{"monster", []string{"monstermeat", "durian"}},
	{"fish", []string{"fish", "eel", "salmon", "tuna", "perch", "trout", "barnacle"}},
	{"egg", []string{"bird_egg", "tallbirdegg", "egg"}},
	{"dairy", []string{"goatmilk", "milk", "butter", "cheese"}},
	{"sweetener", []string{"honey", "sugar", "nectar", "syrup", "maplesyrup"}},
	{"fruit", []string{"berries", "berry", "banana", "pomegranate", "watermelon", "dragonfruit", "durian", "fig", "cave_banana"}},
	{"veggie", []string{"carrot", "corn", "pumpkin", "eggplant", "pepper", "potato", "tomato", "onion", "garlic", "asparagus", "cactus", "kelp"}},
	{"fungus", []string{"mushroom", "cap"}},
	{"inedible", []string{"twigs", "ice"}},
	{"frozen", []string{"ice"}},
	{"seed", []string{"seed"}},
	{"fat", []string{"butter", "goatmilk", "milk", "cheese"}},
	{"magic", []string{"mandrake", "nightmarefuel", "glommerfuel"}},
}

// smallMeat ids count as half a meat.
var smallMeat = []string{"morsel", "smallmeat", "drumstick", "froglegs", "batwing"}

// GuessTags infers cooking tag values from an item id for items without a tag table.
func GuessTags(id string) map[string]float64 {
	iid := strings.ToLower(strings.TrimSpace(id))
	tags := map[string]float64{}
	if iid == "" {
		return tags
	}
	if strings.Contains(iid, "eggplant") {
		tags["veggie"] = 1
	}
	for _, key := range smallMeat {
		if strings.Contains(iid, key) {
			tags["meat"] = 0.5
			break
		}
	}
	for _, h := range tagHints {
		if h.tag == "egg" && strings.Contains(iid, "eggplant") {
			continue
		}
		if _, set := tags[h.tag]; set {
			continue
		}
		for _, hint := range h.hints {
			if strings.Contains(iid, hint) {
				tags[h.tag] = 1
				break
			}
		}
	}
	return tags
}

// ingredientIndex holds the tag values of every known ingredient and the largest value
// seen per tag.
type ingredientIndex struct {
	tags     map[string]map[string]float64
	maxByTag map[string]float64
}

func (ix *ingredientIndex) merge(id string, tags map[string]float64) {
	if len(tags) == 0 {
		return
	}
	out := ix.tags[id]
	if out == nil {
		out = map[string]float64{}
	}
	for k, v := range tags {
		key := strings.ToLower(strings.TrimSpace(k))
		if key == "" {
			continue
		}
		out[key] = v
		if cur, ok := ix.maxByTag[key]; !ok || v > cur {
			ix.maxByTag[key] = v
		}
	}
	if len(out) > 0 {
		ix.tags[id] = out
	}
}

// buildIndex combines declared ingredient tags with guessed ones. Declared values win;
// extra ids get guesses only.
func buildIndex(ingredients map[string]*entity.CookingIngredient, extra []string) *ingredientIndex {
	ix := &ingredientIndex{tags: map[string]map[string]float64{}, maxByTag: map[string]float64{}}
	for _, id := range entity.SortedKeys(ingredients) {
		ing := ingredients[id]
		iid := strings.ToLower(strings.TrimSpace(id))
		if ing == nil || iid == "" {
			continue
		}
		tags := make(map[string]float64, len(ing.Tags))
		for k, v := range ing.Tags {
			tags[strings.ToLower(k)] = v
		}
		for k, v := range GuessTags(iid) {
			if _, ok := tags[k]; !ok {
				tags[k] = v
			}
		}
		ix.merge(iid, tags)
	}
	for _, id := range extra {
		if _, ok := ix.tags[id]; ok || id == "" {
			continue
		}
		ix.merge(id, GuessTags(id))
	}
	return ix
}

func (ix *ingredientIndex) sumTags(slots map[string]int) map[string]float64 {
	totals := map[string]float64{}
	for id, n := range slots {
		for tag, v := range ix.tags[id] {
			totals[tag] += v * float64(n)
		}
	}
	return totals
}
