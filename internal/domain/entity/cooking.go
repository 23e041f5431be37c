package entity

import (
	"encoding/json"
	"fmt"
)

// Cooking recipe representation notes.
const (
	NoteCardAndRuleConflict = "card_and_rule_conflict"
	NoteNoCardOrRule        = "no_card_or_rule"
)

// CardIngredient is an exact [item, count] pair from a recipe card definition.
type CardIngredient struct {
	Item  string
	Count float64
}

// MarshalJSON renders the pair as a two-element array.
func (c CardIngredient) MarshalJSON() ([]byte, error) {
	return json.Marshal([]interface{}{c.Item, c.Count})
}

// UnmarshalJSON reads a two-element array.
func (c *CardIngredient) UnmarshalJSON(data []byte) error {
	var raw []interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) < 2 {
		return fmt.Errorf("card ingredient needs 2 elements, got %d", len(raw))
	}
	item, ok := raw[0].(string)
	if !ok {
		return fmt.Errorf("card ingredient item must be a string")
	}
	count, ok := raw[1].(float64)
	if !ok {
		return fmt.Errorf("card ingredient count must be a number")
	}
	c.Item = item
	c.Count = count
	return nil
}

// Constraint is a single comparison recovered from a recipe test function.
type Constraint struct {
	Key   string      `json:"key"`
	Op    string      `json:"op"`
	Value interface{} `json:"value"`
	Text  string      `json:"text"`
}

// NamesAny requires at least one of Keys to be present.
type NamesAny struct {
	Keys []string `json:"keys"`
	Text string   `json:"text"`
}

// NamesSum requires the combined count of Keys to reach Min.
type NamesSum struct {
	Keys []string `json:"keys"`
	Min  int      `json:"min"`
	Text string   `json:"text"`
}

// RuleConstraints is the best-effort decomposition of a test expression.
type RuleConstraints struct {
	Raw      string       `json:"raw"`
	Tags     []Constraint `json:"tags"`
	Names    []Constraint `json:"names"`
	NamesAny []NamesAny   `json:"names_any"`
	NamesSum []NamesSum   `json:"names_sum"`
	Unparsed []string     `json:"unparsed"`
}

// CookingRule is a proportional tag-predicate recipe definition.
type CookingRule struct {
	Kind        string          `json:"kind"`
	Expr        string          `json:"expr"`
	Constraints RuleConstraints `json:"constraints"`
}

// CookingRecipe is a cookpot recipe. Exactly one of CardIngredients and Rule is set.
type CookingRecipe struct {
	Name                string           `json:"name"`
	Priority            float64          `json:"priority"`
	Weight              float64          `json:"weight"`
	FoodType            string           `json:"foodtype,omitempty"`
	Hunger              *Stat            `json:"hunger,omitempty"`
	Health              *Stat            `json:"health,omitempty"`
	Sanity              *Stat            `json:"sanity,omitempty"`
	PerishTime          *Stat            `json:"perishtime,omitempty"`
	CookTime            *Stat            `json:"cooktime,omitempty"`
	Temperature         *Stat            `json:"temperature,omitempty"`
	TemperatureDuration *Stat            `json:"temperatureduration,omitempty"`
	Tags                []string         `json:"tags"`
	CardIngredients     []CardIngredient `json:"card_ingredients"`
	Rule                *CookingRule     `json:"rule"`
	Notes               []string         `json:"notes,omitempty"`
	Files               []string         `json:"files"`
}

// StatFields returns the recipe's derived stats keyed by field name.
func (r *CookingRecipe) StatFields() map[string]**Stat {
	return map[string]**Stat{
		"hunger":              &r.Hunger,
		"health":              &r.Health,
		"sanity":              &r.Sanity,
		"perishtime":          &r.PerishTime,
		"cooktime":            &r.CookTime,
		"temperature":         &r.Temperature,
		"temperatureduration": &r.TemperatureDuration,
	}
}

// CookingIngredient is the tag contribution of one cookable item.
type CookingIngredient struct {
	ID       string             `json:"id"`
	Tags     map[string]float64 `json:"tags"`
	TagsExpr map[string]string  `json:"tags_expr,omitempty"`
	FoodType string             `json:"foodtype,omitempty"`
	Sources  []string           `json:"sources"`
}
