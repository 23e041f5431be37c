package entity

// Component is the API surface of a scripts/components/*.lua definition.
type Component struct {
	ID        string   `json:"id"`
	ClassName string   `json:"class_name"`
	Aliases   []string `json:"aliases"`
	Methods   []string `json:"methods"`
	Fields    []string `json:"fields"`
	Events    []string `json:"events"`
	Requires  []string `json:"requires"`
	Path      string   `json:"path"`
}

// PrefabRecord is what the prefab extractor recovers for one prefab id across all of the
// files that declare it.
type PrefabRecord struct {
	ID          string            `json:"id"`
	Files       []string          `json:"files"`
	Components  []string          `json:"components"`
	Tags        []string          `json:"tags"`
	Assets      []Asset           `json:"assets"`
	Brains      []string          `json:"brains"`
	Stategraphs []string          `json:"stategraphs"`
	Helpers     []string          `json:"helpers"`
	StatExprs   map[string]string `json:"stat_exprs"`
}

// PrefabFile summarizes one scanned prefab file.
type PrefabFile struct {
	Path       string   `json:"path"`
	Prefabs    []string `json:"prefabs"`
	Components []string `json:"components"`
	Tags       []string `json:"tags"`
	Assets     int      `json:"assets_count"`
}
