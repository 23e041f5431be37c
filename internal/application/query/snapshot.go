package query

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"scriptdex/internal/adapter/outbound/artifact"
	"scriptdex/internal/application/common"
	"scriptdex/internal/application/common/retry"
	"scriptdex/internal/application/common/slogger"
	"scriptdex/internal/application/cooking"
	"scriptdex/internal/application/farming"
	"scriptdex/internal/domain/entity"
	"scriptdex/internal/domain/errors/domain"
)

// Degraded lists the derived artifacts that were missing or unreadable and had to be
// rebuilt in memory (or, for the SQLite mirror, ignored).
type Degraded struct {
	CatalogIndex bool `json:"catalog_index"`
	Traces       bool `json:"traces"`
	SQLite       bool `json:"sqlite"`
}

// Any reports whether any artifact was degraded.
func (d Degraded) Any() bool {
	return d.CatalogIndex || d.Traces || d.SQLite
}

// Snapshot is one immutable, fully loaded set of index artifacts. A Handle swaps whole
// snapshots; nothing in a snapshot is mutated after load.
type Snapshot struct {
	ID       string
	LoadedAt time.Time
	Dir      string

	Catalog *entity.Catalog
	Index   *entity.CatalogIndex
	Traces  map[string]entity.TraceEntry
	I18n    *entity.I18nIndex
	Icons   *entity.IconIndex
	Farming *entity.FarmingDefs

	Artifacts map[string]bool
	Degraded  Degraded

	names     *entity.NameResolver
	traceKeys []string
	cooking   *cooking.Planner
	farming   *farming.Planner
	secondary string

	// generation is assigned when the snapshot is published. Cached traces are only
	// served to the generation that produced them.
	generation uint64
}

// loadOptions carries what loadSnapshot needs from the handle options.
type loadOptions struct {
	preferred string
	secondary string
	iconBase  string
	retry     *retry.Config
}

// loadSnapshot reads every artifact in dir. Only the catalog is required.
func loadSnapshot(ctx context.Context, dir string, o loadOptions) (*Snapshot, error) {
	store := artifact.NewStore(dir)
	read := func(name string, v interface{}) error {
		return retry.DoWithConfig(ctx, o.retry, func(context.Context) error {
			return store.ReadJSON(name, v)
		})
	}

	var (
		catalogBytes []byte
		catalog      *entity.Catalog
	)
	err := retry.DoWithConfig(ctx, o.retry, func(context.Context) error {
		data, err := store.ReadBytes(artifact.CatalogName)
		if err != nil {
			return err
		}
		c := entity.NewCatalog()
		if err := json.Unmarshal(data, c); err != nil {
			return fmt.Errorf("%s: %w: %w", store.Path(artifact.CatalogName), domain.ErrArtifactInvalid, err)
		}
		catalogBytes, catalog = data, c
		return nil
	})
	if err != nil {
		return nil, common.WrapServiceError(common.OpLoadSnapshot, err)
	}
	sum := sha256.Sum256(catalogBytes)

	s := &Snapshot{
		ID:        hex.EncodeToString(sum[:])[:12],
		LoadedAt:  time.Now().UTC(),
		Dir:       dir,
		Catalog:   catalog,
		Artifacts: map[string]bool{},
		secondary: o.secondary,
	}
	for _, spec := range artifact.Specs() {
		s.Artifacts[spec.ID] = store.Exists(spec.Name)
	}

	s.I18n = &entity.I18nIndex{Langs: []string{}, Names: map[string]map[string]string{}, UI: map[string]map[string]string{}}
	if err := optional(ctx, read(artifact.I18nName, s.I18n), artifact.I18nName); err != nil {
		return nil, err
	}
	s.names = entity.NewNameResolver(s.I18n, o.preferred, o.secondary)

	icons := &entity.IconIndex{}
	if err := optional(ctx, read(artifact.IconIndexName, icons), artifact.IconIndexName); err != nil {
		return nil, err
	} else if icons.Icons != nil {
		s.Icons = icons
	}

	farmDefs := &entity.FarmingDefs{}
	if err := optional(ctx, read(artifact.FarmingDefsName, farmDefs), artifact.FarmingDefsName); err != nil {
		return nil, err
	} else if farmDefs.Plants != nil {
		s.Farming = farmDefs
		s.farming = farming.NewPlanner(farmDefs)
	}

	index := &entity.CatalogIndex{}
	if err := read(artifact.CatalogIndexName, index); err != nil || index.Items == nil {
		degradedLog(ctx, artifact.CatalogIndexName, err)
		s.Degraded.CatalogIndex = true
		index = entity.BuildCatalogIndex(catalog, s.Icons, o.iconBase, func(id string) string {
			return s.names.Name(id, o.preferred)
		})
		index.Meta = catalog.Meta
	}
	s.Index = index

	traces := map[string]entity.TraceEntry{}
	if err := read(artifact.TraceIndexName, &traces); err != nil {
		degradedLog(ctx, artifact.TraceIndexName, err)
		s.Degraded.Traces = true
		traces = TracesFromCatalog(catalog)
	}
	s.Traces = traces
	s.traceKeys = entity.SortedKeys(traces)

	s.Degraded.SQLite = !store.Exists(artifact.CatalogSQLiteName)
	s.cooking = cooking.NewPlanner(catalog)
	return s, nil
}

// optional treats a missing artifact as absent and any other failure as fatal.
func optional(ctx context.Context, err error, name string) error {
	if err == nil || errors.Is(err, domain.ErrArtifactMissing) {
		if err != nil {
			slogger.Info(ctx, "Optional artifact absent", slogger.Field("artifact", name))
		}
		return nil
	}
	return common.WrapServiceError(common.OpLoadSnapshot, err)
}

func degradedLog(ctx context.Context, name string, err error) {
	fields := slogger.Fields{"artifact": name, "mode": "degraded"}
	if err != nil {
		fields["reason"] = err.Error()
	}
	slogger.Warn(ctx, "Derived artifact unavailable, rebuilding from catalog", fields)
}

// TracesFromCatalog recomputes trace entries from the stats and amounts embedded in the
// catalog. Key chains are not available there, so Refs stay empty.
func TracesFromCatalog(c *entity.Catalog) map[string]entity.TraceEntry {
	out := map[string]entity.TraceEntry{}
	addStat := func(key string, s entity.Stat) {
		if key == "" {
			return
		}
		out[key] = entity.TraceEntry{
			Expr:         s.Expr,
			Value:        s.Value,
			ResolvedExpr: s.ExprResolved,
			Refs:         map[string]entity.KeyTrace{},
		}
	}
	for _, id := range entity.SortedKeys(c.Items) {
		item := c.Items[id]
		for _, k := range entity.SortedKeys(item.Stats) {
			addStat(item.Stats[k].TraceKey, item.Stats[k])
		}
	}
	for _, name := range entity.SortedKeys(c.Craft.Recipes) {
		for _, ing := range c.Craft.Recipes[name].Ingredients {
			if ing.TraceKey == "" {
				continue
			}
			entry := entity.TraceEntry{Expr: ing.AmountExpr, ResolvedExpr: ing.AmountExpr, Refs: map[string]entity.KeyTrace{}}
			if ing.AmountValue != nil {
				entry.Value = *ing.AmountValue
			}
			out[ing.TraceKey] = entry
		}
	}
	for _, name := range entity.SortedKeys(c.Cooking) {
		fields := c.Cooking[name].StatFields()
		for _, k := range entity.SortedKeys(fields) {
			if st := *fields[k]; st != nil {
				addStat(st.TraceKey, *st)
			}
		}
	}
	return out
}

// Names returns the name resolver of the snapshot.
func (s *Snapshot) Names() *entity.NameResolver { return s.names }
