package entity

// Unresolved record reasons shared across extractors.
const (
	ReasonParseError        = "parse_error"
	ReasonPanic             = "panic"
	ReasonInvalidID         = "invalid_id"
	ReasonUnparsedArgs      = "unparsed_args"
	ReasonUnresolvedAmount  = "unresolved_amount"
	ReasonMissingIngredient = "missing_ingredients"
	ReasonUnparsedTable     = "unparsed_table"
)

// UnresolvedRecord is anything an extractor saw but could not normalize. Raw keeps the
// source fragment so nothing is lost.
type UnresolvedRecord struct {
	Kind   string `json:"kind"`
	Path   string `json:"path"`
	Entity string `json:"entity,omitempty"`
	Reason string `json:"reason"`
	Raw    string `json:"raw,omitempty"`
}

// ExtractSummary is the per-extractor completion report.
type ExtractSummary struct {
	Files      int `json:"files"`
	Entities   int `json:"entities"`
	Unresolved int `json:"unresolved"`
}

// Less orders records by kind, path, entity then reason.
func (r UnresolvedRecord) Less(o UnresolvedRecord) bool {
	if r.Kind != o.Kind {
		return r.Kind < o.Kind
	}
	if r.Path != o.Path {
		return r.Path < o.Path
	}
	if r.Entity != o.Entity {
		return r.Entity < o.Entity
	}
	if r.Reason != o.Reason {
		return r.Reason < o.Reason
	}
	return r.Raw < o.Raw
}
