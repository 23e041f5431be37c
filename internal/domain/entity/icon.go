package entity

// IconUV is the texture window of an atlas element.
type IconUV struct {
	U1 float64 `json:"u1"`
	U2 float64 `json:"u2"`
	V1 float64 `json:"v1"`
	V2 float64 `json:"v2"`
}

// Icon is one inventory image element.
type Icon struct {
	Atlas   string `json:"atlas"`
	Texture string `json:"texture"`
	Element string `json:"element"`
	UV      IconUV `json:"uv"`
}

// IconIndex maps icon ids to atlas elements.
type IconIndex struct {
	SchemaVersion int             `json:"schema_version"`
	Meta          BuildMeta       `json:"meta"`
	Icons         map[string]Icon `json:"icons"`
	Atlases       []string        `json:"atlases"`
}
