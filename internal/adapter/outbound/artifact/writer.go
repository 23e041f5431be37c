package artifact

import (
	"context"
	"fmt"

	"scriptdex/internal/application/common"
	"scriptdex/internal/domain/entity"
)

// Writer renders graph documents into the store with stamped meta blocks.
type Writer struct {
	store     *Store
	meta      *MetaFactory
	iconBase  string
	preferred string
	secondary string
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithIconBase sets the icon URL prefix used by the compact index.
func WithIconBase(base string) WriterOption {
	return func(w *Writer) { w.iconBase = base }
}

// WithNames sets the language used for compact index display names.
func WithNames(preferred, secondary string) WriterOption {
	return func(w *Writer) {
		w.preferred = preferred
		w.secondary = secondary
	}
}

// NewWriter creates a writer over store.
func NewWriter(store *Store, meta *MetaFactory, opts ...WriterOption) *Writer {
	w := &Writer{store: store, meta: meta, iconBase: "static/icons/", preferred: "en"}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Store returns the underlying store.
func (w *Writer) Store() *Store { return w.store }

// Meta returns the meta factory.
func (w *Writer) Meta() *MetaFactory { return w.meta }

func (w *Writer) write(ctx context.Context, name string, doc interface{}) (string, error) {
	if err := w.store.WriteJSON(ctx, name, doc); err != nil {
		return "", err
	}
	return w.store.Path(name), nil
}

func requireGraph(g *entity.Graph) error {
	if g == nil || g.Catalog == nil {
		return common.WrapServiceError(common.OpWriteArtifact, fmt.Errorf("graph has no catalog"))
	}
	return nil
}

// Catalog writes the catalog v2 document.
func (w *Writer) Catalog(ctx context.Context, g *entity.Graph) (string, error) {
	if err := requireGraph(g); err != nil {
		return "", err
	}
	doc := *g.Catalog
	doc.Meta = w.meta.Meta(CatalogName, entity.CatalogSchemaVersion)
	return w.write(ctx, CatalogName, &doc)
}

// BuildCatalogIndex derives the compact index document with its meta stamped.
func (w *Writer) BuildCatalogIndex(g *entity.Graph) *entity.CatalogIndex {
	var nameFn func(string) string
	if g.I18n != nil {
		r := entity.NewNameResolver(g.I18n, w.preferred, w.secondary)
		nameFn = func(id string) string { return r.Name(id, w.preferred) }
	}
	idx := entity.BuildCatalogIndex(g.Catalog, g.Icons, w.iconBase, nameFn)
	idx.Meta = w.meta.Meta(CatalogIndexName, entity.CatalogIndexSchemaVersion)
	return idx
}

// CatalogIndex writes the compact index.
func (w *Writer) CatalogIndex(ctx context.Context, g *entity.Graph) (string, error) {
	if err := requireGraph(g); err != nil {
		return "", err
	}
	return w.write(ctx, CatalogIndexName, w.BuildCatalogIndex(g))
}

// Traces writes the flat trace index. It carries no meta block.
func (w *Writer) Traces(ctx context.Context, g *entity.Graph) (string, error) {
	traces := g.Traces
	if traces == nil {
		traces = map[string]entity.TraceEntry{}
	}
	return w.write(ctx, TraceIndexName, traces)
}

// Farming writes the farming defs document.
func (w *Writer) Farming(ctx context.Context, g *entity.Graph) (string, error) {
	if g.Farming == nil {
		return "", common.WrapServiceError(common.OpWriteArtifact, fmt.Errorf("graph has no farming defs"))
	}
	doc := *g.Farming
	doc.SchemaVersion = entity.FarmingSchemaVersion
	doc.Meta = w.meta.Meta(FarmingDefsName, entity.FarmingSchemaVersion)
	return w.write(ctx, FarmingDefsName, &doc)
}

// I18n writes the localized names document.
func (w *Writer) I18n(ctx context.Context, g *entity.Graph) (string, error) {
	doc := entity.I18nIndex{Langs: []string{}, Names: map[string]map[string]string{}, UI: map[string]map[string]string{}}
	if g.I18n != nil {
		doc = *g.I18n
	}
	doc.SchemaVersion = entity.I18nSchemaVersion
	doc.Meta = w.meta.Meta(I18nName, entity.I18nSchemaVersion)
	return w.write(ctx, I18nName, &doc)
}

// Icons writes the atlas icon index.
func (w *Writer) Icons(ctx context.Context, g *entity.Graph) (string, error) {
	doc := entity.IconIndex{Icons: map[string]entity.Icon{}, Atlases: []string{}}
	if g.Icons != nil {
		doc = *g.Icons
	}
	doc.SchemaVersion = entity.IconIndexSchemaVersion
	doc.Meta = w.meta.Meta(IconIndexName, entity.IconIndexSchemaVersion)
	return w.write(ctx, IconIndexName, &doc)
}

// Gaps writes the gaps report.
func (w *Writer) Gaps(ctx context.Context, g *entity.Graph) (string, error) {
	if g.Gaps == nil {
		return "", common.WrapServiceError(common.OpWriteArtifact, fmt.Errorf("graph has no gaps report"))
	}
	doc := *g.Gaps
	doc.SchemaVersion = entity.GapsSchemaVersion
	doc.Meta = w.meta.Meta(GapsName, entity.GapsSchemaVersion)
	return w.write(ctx, GapsName, &doc)
}

// ResourceIndex writes the resource inventory of files.
func (w *Writer) ResourceIndex(ctx context.Context, files []string, g *entity.Graph) (string, error) {
	idx := BuildResourceIndex(files, g)
	idx.Meta = w.meta.Meta(ResourceIndexName, entity.ResourceIndexSchemaVersion)
	return w.write(ctx, ResourceIndexName, idx)
}

// MechanismIndex writes the mechanism index and returns it for the SQLite mirror.
func (w *Writer) MechanismIndex(ctx context.Context, g *entity.Graph, componentFiles int) (*MechanismIndex, string, error) {
	idx := BuildMechanismIndex(g, componentFiles)
	idx.Meta = w.meta.Meta(MechanismIndexName, entity.MechanismIndexSchemaVersion)
	path, err := w.write(ctx, MechanismIndexName, idx)
	return idx, path, err
}

// CatalogSQLite writes the catalog mirror.
func (w *Writer) CatalogSQLite(ctx context.Context, g *entity.Graph) (string, error) {
	if err := requireGraph(g); err != nil {
		return "", err
	}
	path := w.store.Path(CatalogSQLiteName)
	mirror := CatalogMirror{
		Meta:    w.meta.Meta(CatalogName, entity.CatalogSchemaVersion),
		Catalog: g.Catalog,
		Index:   w.BuildCatalogIndex(g),
		Graph:   g,
	}
	if err := WriteCatalogSQLite(ctx, path, mirror); err != nil {
		return "", common.WrapServiceError(common.OpWriteArtifact, fmt.Errorf("%s: %w", path, err))
	}
	return path, nil
}

// MechanismSQLite writes the mechanism mirror.
func (w *Writer) MechanismSQLite(ctx context.Context, idx *MechanismIndex) (string, error) {
	path := w.store.Path(MechanismSQLiteName)
	if err := WriteMechanismSQLite(ctx, path, idx); err != nil {
		return "", common.WrapServiceError(common.OpWriteArtifact, fmt.Errorf("%s: %w", path, err))
	}
	return path, nil
}

// Manifest inspects the store and writes the manifest.
func (w *Writer) Manifest(ctx context.Context) (*Manifest, string, error) {
	m := BuildManifest(ctx, w.store)
	m.Meta = w.meta.Meta(ManifestName, entity.ManifestSchemaVersion)
	path, err := w.write(ctx, ManifestName, m)
	return m, path, err
}

// Quality runs the quality gate and writes its report.
func (w *Writer) Quality(ctx context.Context, th QualityThresholds) (*QualityReport, string, error) {
	r := RunQualityGate(ctx, w.store, th)
	r.Meta = w.meta.Meta(QualityName, entity.QualitySchemaVersion)
	path, err := w.write(ctx, QualityName, r)
	return r, path, err
}
