// Package artifact writes, peeks and validates the index artifacts under data/index.
package artifact

// Artifact file names.
const (
	ResourceIndexName   = "scriptdex_resource_index_v1.json"
	CatalogName         = "scriptdex_catalog_v2.json"
	CatalogSQLiteName   = "scriptdex_catalog_v2.sqlite"
	CatalogIndexName    = "scriptdex_catalog_index_v1.json"
	TraceIndexName      = "scriptdex_tuning_trace_v1.json"
	I18nName            = "scriptdex_i18n_v1.json"
	IconIndexName       = "scriptdex_icon_index_v1.json"
	FarmingDefsName     = "scriptdex_farming_defs_v1.json"
	MechanismIndexName  = "scriptdex_mechanism_index_v1.json"
	MechanismSQLiteName = "scriptdex_mechanism_index_v1.sqlite"
	ManifestName        = "scriptdex_index_manifest.json"
	GapsName            = "scriptdex_gaps_v1.json"
	QualityName         = "scriptdex_quality_v1.json"
)

// Artifact formats.
const (
	FormatJSON   = "json"
	FormatSQLite = "sqlite"
)

// Spec describes one artifact listed in the manifest.
type Spec struct {
	ID     string `json:"id"`
	Kind   string `json:"kind"`
	Format string `json:"format"`
	Name   string `json:"name"`
}

// Specs lists every artifact in manifest order.
func Specs() []Spec {
	return []Spec{
		{ID: "resource_index", Kind: "resource", Format: FormatJSON, Name: ResourceIndexName},
		{ID: "catalog", Kind: "catalog", Format: FormatJSON, Name: CatalogName},
		{ID: "catalog_sqlite", Kind: "catalog", Format: FormatSQLite, Name: CatalogSQLiteName},
		{ID: "catalog_index", Kind: "catalog_index", Format: FormatJSON, Name: CatalogIndexName},
		{ID: "i18n", Kind: "i18n", Format: FormatJSON, Name: I18nName},
		{ID: "farming_defs", Kind: "farming_defs", Format: FormatJSON, Name: FarmingDefsName},
		{ID: "icon_index", Kind: "icon_index", Format: FormatJSON, Name: IconIndexName},
		{ID: "tuning_trace", Kind: "tuning_trace", Format: FormatJSON, Name: TraceIndexName},
		{ID: "mechanism_index", Kind: "mechanism", Format: FormatJSON, Name: MechanismIndexName},
		{ID: "mechanism_sqlite", Kind: "mechanism", Format: FormatSQLite, Name: MechanismSQLiteName},
		{ID: "gaps", Kind: "gaps", Format: FormatJSON, Name: GapsName},
		{ID: "quality", Kind: "quality", Format: FormatJSON, Name: QualityName},
	}
}
