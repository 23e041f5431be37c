// Package inbound defines the inbound ports (interfaces) the HTTP adapter drives.
package inbound

import (
	"context"

	"scriptdex/internal/application/cooking"
	"scriptdex/internal/application/farming"
	"scriptdex/internal/application/query"
)

// QueryService serves catalog reads from the current snapshot.
type QueryService interface {
	Snapshot() (*query.Snapshot, error)
	Reload(ctx context.Context) (*query.Snapshot, error)
	SearchLimitMax() int

	Search(ctx context.Context, q query.SearchQuery) (*query.SearchResult, error)
	Index(ctx context.Context, q query.IndexQuery) (*query.IndexPage, error)
	Item(ctx context.Context, id string) (*query.ItemDetail, error)
	Trace(ctx context.Context, key string) (*query.TraceResult, error)
	TracePrefix(ctx context.Context, prefix string, limit int) (*query.TracePage, error)
	I18n(ctx context.Context, lang string) (*query.I18nNames, error)
	Meta(ctx context.Context) (*query.MetaView, error)
}

// CookingService runs the cookpot planner.
type CookingService interface {
	CookingExplore(ctx context.Context, req cooking.ExploreRequest) (*cooking.ExploreResult, error)
	CookingSimulate(ctx context.Context, req cooking.SimulateRequest) (*cooking.SimulateResult, error)
}

// FarmingService runs the farm plot planner and the growth simulator.
type FarmingService interface {
	FarmingPlan(ctx context.Context, req farming.PlanRequest) ([]farming.Plan, error)
	FarmingSimulate(ctx context.Context, req farming.SimRequest) (*farming.SimResult, error)
}

// Services bundles every inbound port. *query.Handle implements it.
type Services interface {
	QueryService
	CookingService
	FarmingService
}

var _ Services = (*query.Handle)(nil)
