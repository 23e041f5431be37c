package entity

import (
	"encoding/json"
	"sort"
)

// ToolName is written into every artifact's meta block.
const ToolName = "scriptdex"

// Schema versions of the artifacts other than the catalog.
const (
	ResourceIndexSchemaVersion  = 1
	CatalogIndexSchemaVersion   = 1
	TraceIndexSchemaVersion     = 1
	I18nSchemaVersion           = 1
	IconIndexSchemaVersion      = 1
	FarmingSchemaVersion        = 1
	MechanismIndexSchemaVersion = 1
	ManifestSchemaVersion       = 1
	GapsSchemaVersion           = 1
	QualitySchemaVersion        = 1
	CatalogDBSchemaVersion      = 1
)

// BuildMeta is the provenance block carried by every artifact except the trace index.
// Extra fields are flattened into the same JSON object.
type BuildMeta struct {
	Schema           int
	Generated        string
	Tool             string
	Sources          map[string]string
	ScriptsSHA256_12 string
	Extra            map[string]interface{}
}

var reservedMetaKeys = map[string]bool{
	"schema":            true,
	"generated":         true,
	"tool":              true,
	"sources":           true,
	"scripts_sha256_12": true,
}

// WithExtra returns a copy of m with key set in Extra.
func (m BuildMeta) WithExtra(key string, value interface{}) BuildMeta {
	out := m
	out.Extra = make(map[string]interface{}, len(m.Extra)+1)
	for k, v := range m.Extra {
		out.Extra[k] = v
	}
	out.Extra[key] = value
	return out
}

// MarshalJSON flattens Extra next to the fixed fields.
func (m BuildMeta) MarshalJSON() ([]byte, error) {
	obj := make(map[string]interface{}, len(m.Extra)+5)
	for k, v := range m.Extra {
		if reservedMetaKeys[k] {
			continue
		}
		obj[k] = v
	}
	sources := m.Sources
	if sources == nil {
		sources = map[string]string{}
	}
	obj["schema"] = m.Schema
	obj["generated"] = m.Generated
	obj["tool"] = m.Tool
	obj["sources"] = sources
	obj["scripts_sha256_12"] = m.ScriptsSHA256_12
	return json.Marshal(obj)
}

// UnmarshalJSON reads the fixed fields and keeps every other key in Extra.
func (m *BuildMeta) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*m = BuildMeta{}
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := raw[k]
		var err error
		switch k {
		case "schema":
			err = json.Unmarshal(v, &m.Schema)
		case "generated":
			err = json.Unmarshal(v, &m.Generated)
		case "tool":
			err = json.Unmarshal(v, &m.Tool)
		case "sources":
			err = json.Unmarshal(v, &m.Sources)
		case "scripts_sha256_12":
			err = json.Unmarshal(v, &m.ScriptsSHA256_12)
		default:
			var x interface{}
			err = json.Unmarshal(v, &x)
			if m.Extra == nil {
				m.Extra = make(map[string]interface{})
			}
			m.Extra[k] = x
		}
		if err != nil {
			return err
		}
	}
	return nil
}
