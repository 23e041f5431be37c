package entity

// TraceStep is one hop of a tuning key chain.
type TraceStep struct {
	Key string `json:"key"`
	Raw string `json:"raw"`
}

// KeyTrace follows a single TUNING key through its aliases until a value or an
// expression is reached.
type KeyTrace struct {
	Key        string      `json:"key"`
	Normalized string      `json:"normalized"`
	Value      interface{} `json:"value"`
	Steps      []TraceStep `json:"steps"`
	Chain      string      `json:"chain"`
	Note       string      `json:"note,omitempty"`
}

// TraceEntry is the derivation record of one resolved expression.
type TraceEntry struct {
	Expr         string              `json:"expr"`
	Value        interface{}         `json:"value"`
	ResolvedExpr string              `json:"resolved_expr"`
	Refs         map[string]KeyTrace `json:"refs"`
	ExprChain    string              `json:"expr_chain,omitempty"`
}

// ItemStatTraceKey returns the trace key of an item stat.
func ItemStatTraceKey(itemID, stat string) string {
	return "item:" + itemID + ":stat:" + stat
}

// CraftIngredientTraceKey returns the trace key of a craft ingredient amount.
func CraftIngredientTraceKey(recipe, item string) string {
	return "craft:" + recipe + ":ingredient:" + item
}

// CookingTraceKey returns the trace key of a cooking recipe field.
func CookingTraceKey(recipe, field string) string {
	return "cooking:" + recipe + ":" + field
}
