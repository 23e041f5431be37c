package build

import (
	"context"
	"fmt"

	"scriptdex/internal/adapter/outbound/artifact"
	"scriptdex/internal/domain/entity"
	vo "scriptdex/internal/domain/valueobject"
)

// StepID names a build step. Each CLI subcommand runs one step; `build` runs all.
type StepID string

// Build steps.
const (
	StepCatalog       StepID = "catalog2"
	StepCatalogIndex  StepID = "catindex"
	StepTrace         StepID = "tuning-trace"
	StepCatalogSQLite StepID = "catalog-sqlite"
	StepI18n          StepID = "i18n"
	StepIcons         StepID = "icons"
	StepFarming       StepID = "farming-defs"
	StepGaps          StepID = "gaps"
	StepResourceIndex StepID = "resindex"
	StepMechanism     StepID = "mechanism-index"
	StepQuality       StepID = "quality"
	StepManifest      StepID = "index-manifest"
)

// linkKinds is every extractor the linker draws on for catalog-wide steps.
var linkKinds = vo.AllExtractorKinds()

// state is what steps share within one run.
type state struct {
	graph      *entity.Graph
	mechanism  *artifact.MechanismIndex
	quality    *artifact.QualityReport
	thresholds artifact.QualityThresholds
}

// Step is one entry of the static step table.
type Step struct {
	ID StepID

	// Artifacts are the files the step writes.
	Artifacts []string

	// HashFrom is the JSON artifact whose scripts_sha256_12 decides whether the step is
	// up to date. Empty means the step always runs.
	HashFrom string

	// Kinds are the extractors the step needs. Nil means the step needs no graph.
	Kinds []vo.ExtractorKind

	// Schema is the schema version of the step's primary artifact.
	Schema int

	// TagOverrides marks steps whose output depends on build.tag_overrides.
	TagOverrides bool

	run func(ctx context.Context, bc *Context, st *state) (map[string]int, error)
}

var steps = []Step{
	{
		ID: StepCatalog, Artifacts: []string{artifact.CatalogName}, HashFrom: artifact.CatalogName, Kinds: linkKinds,
		Schema: entity.CatalogSchemaVersion, TagOverrides: true,
		run: func(ctx context.Context, bc *Context, st *state) (map[string]int, error) {
			_, err := bc.Writer.Catalog(ctx, st.graph)
			s := st.graph.Catalog.Stats
			return map[string]int{"items": s.ItemsTotal, "craft_recipes": s.CraftRecipes, "cooking_recipes": s.CookingRecipes}, err
		},
	},
	{
		ID: StepCatalogIndex, Artifacts: []string{artifact.CatalogIndexName}, HashFrom: artifact.CatalogIndexName, Kinds: linkKinds,
		Schema: entity.CatalogIndexSchemaVersion, TagOverrides: true,
		run: func(ctx context.Context, bc *Context, st *state) (map[string]int, error) {
			_, err := bc.Writer.CatalogIndex(ctx, st.graph)
			return map[string]int{"items": len(st.graph.Catalog.Items)}, err
		},
	},
	{
		ID: StepTrace, Artifacts: []string{artifact.TraceIndexName}, HashFrom: artifact.CatalogName, Kinds: linkKinds,
		Schema: entity.TraceIndexSchemaVersion, TagOverrides: true,
		run: func(ctx context.Context, bc *Context, st *state) (map[string]int, error) {
			_, err := bc.Writer.Traces(ctx, st.graph)
			return map[string]int{"traces": len(st.graph.Traces)}, err
		},
	},
	{
		ID: StepCatalogSQLite, Artifacts: []string{artifact.CatalogSQLiteName}, HashFrom: artifact.CatalogName, Kinds: linkKinds,
		Schema: entity.CatalogDBSchemaVersion, TagOverrides: true,
		run: func(ctx context.Context, bc *Context, st *state) (map[string]int, error) {
			_, err := bc.Writer.CatalogSQLite(ctx, st.graph)
			return map[string]int{"items": len(st.graph.Catalog.Items), "links": len(st.graph.Links)}, err
		},
	},
	{
		ID: StepI18n, Artifacts: []string{artifact.I18nName}, HashFrom: artifact.I18nName,
		Kinds: []vo.ExtractorKind{vo.ExtractorStrings}, Schema: entity.I18nSchemaVersion,
		run: func(ctx context.Context, bc *Context, st *state) (map[string]int, error) {
			_, err := bc.Writer.I18n(ctx, st.graph)
			langs := 0
			if st.graph.I18n != nil {
				langs = len(st.graph.I18n.Langs)
			}
			return map[string]int{"langs": langs}, err
		},
	},
	{
		ID: StepIcons, Artifacts: []string{artifact.IconIndexName}, HashFrom: artifact.IconIndexName,
		Kinds: []vo.ExtractorKind{vo.ExtractorIcons}, Schema: entity.IconIndexSchemaVersion,
		run: func(ctx context.Context, bc *Context, st *state) (map[string]int, error) {
			_, err := bc.Writer.Icons(ctx, st.graph)
			icons := 0
			if st.graph.Icons != nil {
				icons = len(st.graph.Icons.Icons)
			}
			return map[string]int{"icons": icons}, err
		},
	},
	{
		ID: StepFarming, Artifacts: []string{artifact.FarmingDefsName}, HashFrom: artifact.FarmingDefsName,
		Kinds:  []vo.ExtractorKind{vo.ExtractorFarming, vo.ExtractorTuning},
		Schema: entity.FarmingSchemaVersion,
		run: func(ctx context.Context, bc *Context, st *state) (map[string]int, error) {
			_, err := bc.Writer.Farming(ctx, st.graph)
			plants := 0
			if st.graph.Farming != nil {
				plants = len(st.graph.Farming.Plants)
			}
			return map[string]int{"plants": plants}, err
		},
	},
	{
		ID: StepGaps, Artifacts: []string{artifact.GapsName}, HashFrom: artifact.GapsName, Kinds: linkKinds,
		Schema: entity.GapsSchemaVersion, TagOverrides: true,
		run: func(ctx context.Context, bc *Context, st *state) (map[string]int, error) {
			_, err := bc.Writer.Gaps(ctx, st.graph)
			c := st.graph.Gaps.Counts
			return map[string]int{
				"unresolved_links":   c.UnresolvedLinks,
				"unknown_components": c.UnknownComponents,
				"unresolved_values":  c.UnresolvedValues,
			}, err
		},
	},
	{
		ID: StepResourceIndex, Artifacts: []string{artifact.ResourceIndexName}, HashFrom: artifact.ResourceIndexName,
		Kinds:  []vo.ExtractorKind{vo.ExtractorPrefab, vo.ExtractorIcons},
		Schema: entity.ResourceIndexSchemaVersion,
		run: func(ctx context.Context, bc *Context, st *state) (map[string]int, error) {
			files := bc.Corpus.Files()
			_, err := bc.Writer.ResourceIndex(ctx, files, st.graph)
			return map[string]int{"files": len(files), "prefabs": len(st.graph.Prefabs)}, err
		},
	},
	{
		ID:        StepMechanism,
		Artifacts: []string{artifact.MechanismIndexName, artifact.MechanismSQLiteName},
		HashFrom:  artifact.MechanismIndexName,
		Kinds:     []vo.ExtractorKind{vo.ExtractorPrefab, vo.ExtractorComponent},
		Schema:    entity.MechanismIndexSchemaVersion,
		run: func(ctx context.Context, bc *Context, st *state) (map[string]int, error) {
			componentFiles, err := bc.Corpus.Glob("scripts/components/**.lua")
			if err != nil {
				return nil, err
			}
			idx, _, err := bc.Writer.MechanismIndex(ctx, st.graph, len(componentFiles))
			if err != nil {
				return nil, err
			}
			st.mechanism = idx
			if _, err := bc.Writer.MechanismSQLite(ctx, idx); err != nil {
				return nil, err
			}
			return map[string]int{
				"components": idx.Counts.ComponentsTotal,
				"prefabs":    idx.Counts.PrefabsTotal,
				"edges":      idx.Counts.PrefabComponentEdges,
			}, nil
		},
	},
	{
		ID: StepQuality, Artifacts: []string{artifact.QualityName},
		run: func(ctx context.Context, bc *Context, st *state) (map[string]int, error) {
			r, _, err := bc.Writer.Quality(ctx, st.thresholds)
			if err != nil {
				return nil, err
			}
			st.quality = r
			return map[string]int{"fail": r.Summary.IssuesFail, "warn": r.Summary.IssuesWarn}, nil
		},
	},
	{
		ID: StepManifest, Artifacts: []string{artifact.ManifestName},
		run: func(ctx context.Context, bc *Context, st *state) (map[string]int, error) {
			m, _, err := bc.Writer.Manifest(ctx)
			if err != nil {
				return nil, err
			}
			return map[string]int{"artifacts": len(m.Artifacts), "warnings": len(m.Warnings)}, nil
		},
	},
}

// Steps returns the step table in build order.
func Steps() []Step {
	return append([]Step(nil), steps...)
}

// AllSteps returns every step id in build order.
func AllSteps() []StepID {
	out := make([]StepID, 0, len(steps))
	for _, s := range steps {
		out = append(out, s.ID)
	}
	return out
}

// lookupStep returns the step with id.
func lookupStep(id StepID) (Step, error) {
	for _, s := range steps {
		if s.ID == id {
			return s, nil
		}
	}
	return Step{}, fmt.Errorf("unknown build step %q", id)
}
