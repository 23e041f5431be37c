package query

import (
	"context"
	"fmt"
	"strings"
	"time"

	"scriptdex/internal/adapter/outbound/artifact"
	"scriptdex/internal/application/cooking"
	"scriptdex/internal/application/farming"
	"scriptdex/internal/domain/entity"
	"scriptdex/internal/domain/errors/domain"
)

// I18nNames is the id to name map of one language.
type I18nNames struct {
	Lang  string            `json:"lang"`
	Names map[string]string `json:"names"`
	UI    map[string]string `json:"ui"`
	Count int               `json:"count"`
}

// MetaView describes the loaded snapshot.
type MetaView struct {
	SnapshotID    string                    `json:"snapshot_id"`
	LoadedAt      time.Time                 `json:"loaded_at"`
	SchemaVersion int                       `json:"schema_version"`
	Meta          entity.BuildMeta          `json:"meta"`
	Stats         entity.CatalogStats       `json:"stats"`
	IndexCounts   entity.CatalogIndexCounts `json:"index_counts"`
	Artifacts     map[string]bool           `json:"artifacts"`
	Degraded      Degraded                  `json:"degraded"`
	DegradedMode  bool                      `json:"degraded_mode"`
	TraceCount    int                       `json:"trace_count"`
	Langs         []string                  `json:"langs"`
	Plants        int                       `json:"plants"`
	Icon          IconConfig                `json:"icon"`
}

// I18n returns the names of lang. Languages absent from the i18n index fail with
// domain.ErrLanguageNotFound.
func (h *Handle) I18n(ctx context.Context, lang string) (*I18nNames, error) {
	lang = strings.ToLower(strings.TrimSpace(lang))
	var out *I18nNames
	err := h.observe(ctx, OpI18n, func(_ context.Context, s *Snapshot) error {
		names, ok := s.I18n.Names[lang]
		if !ok {
			return fmt.Errorf("%w: %s", domain.ErrLanguageNotFound, lang)
		}
		ui := s.I18n.UI[lang]
		if ui == nil {
			ui = map[string]string{}
		}
		out = &I18nNames{Lang: lang, Names: names, UI: ui, Count: len(names)}
		return nil
	})
	return out, err
}

// Meta describes the current snapshot, including which artifacts were found and which
// were rebuilt in memory.
func (h *Handle) Meta(ctx context.Context) (*MetaView, error) {
	var out *MetaView
	err := h.observe(ctx, OpMeta, func(_ context.Context, s *Snapshot) error {
		out = &MetaView{
			SnapshotID:    s.ID,
			LoadedAt:      s.LoadedAt,
			SchemaVersion: s.Catalog.SchemaVersion,
			Meta:          s.Catalog.Meta,
			Stats:         s.Catalog.Stats,
			IndexCounts:   s.Index.Counts,
			Artifacts:     s.Artifacts,
			Degraded:      s.Degraded,
			DegradedMode:  s.Degraded.Any(),
			TraceCount:    len(s.Traces),
			Langs:         s.names.Languages(),
			Plants:        len(s.Farming.PlantIDs()),
			Icon:          h.iconConfig(s),
		}
		return nil
	})
	return out, err
}

// CookingExplore runs the cooking planner over a partial pot.
func (h *Handle) CookingExplore(ctx context.Context, req cooking.ExploreRequest) (*cooking.ExploreResult, error) {
	var out *cooking.ExploreResult
	err := h.observe(ctx, OpCookingExplore, func(_ context.Context, s *Snapshot) error {
		res, err := s.cooking.Explore(req)
		out = res
		return err
	})
	return out, err
}

// CookingSimulate resolves a full pot to the dish it cooks.
func (h *Handle) CookingSimulate(ctx context.Context, req cooking.SimulateRequest) (*cooking.SimulateResult, error) {
	var out *cooking.SimulateResult
	err := h.observe(ctx, OpCookingSimulate, func(_ context.Context, s *Snapshot) error {
		res, err := s.cooking.Simulate(req)
		out = res
		return err
	})
	return out, err
}

// FarmingPlan ranks crop mixes. It needs the farming defs artifact.
func (h *Handle) FarmingPlan(ctx context.Context, req farming.PlanRequest) ([]farming.Plan, error) {
	var out []farming.Plan
	err := h.observe(ctx, OpFarmingPlan, func(_ context.Context, s *Snapshot) error {
		p, err := s.farmPlanner()
		if err != nil {
			return err
		}
		out, err = p.Suggest(req)
		return err
	})
	return out, err
}

// FarmingSimulate plays one crop cycle. It needs the farming defs artifact.
func (h *Handle) FarmingSimulate(ctx context.Context, req farming.SimRequest) (*farming.SimResult, error) {
	var out *farming.SimResult
	err := h.observe(ctx, OpFarmingSimulate, func(_ context.Context, s *Snapshot) error {
		p, err := s.farmPlanner()
		if err != nil {
			return err
		}
		out, err = p.Simulate(req)
		return err
	})
	return out, err
}

func (s *Snapshot) farmPlanner() (*farming.Planner, error) {
	if s.farming == nil {
		return nil, fmt.Errorf("%s: %w", artifact.FarmingDefsName, domain.ErrArtifactMissing)
	}
	return s.farming, nil
}
