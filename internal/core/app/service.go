package app

import (
	"context"

	"reachgraph/internal/core/ports"
	"reachgraph/internal/engine/graph"
	"reachgraph/internal/engine/query"
)

// Service answers graph queries against the latest committed snapshot.
// Each call takes one snapshot up front, so a query never observes a
// half-applied batch.
type Service struct {
	store   *graph.Store
	engine  *query.Engine
	entries query.EntryConfig
}

var _ ports.QueryService = (*Service)(nil)

func (s *Service) FindPath(ctx context.Context, from, to graph.NodeID, maxHops int) (query.Path, error) {
	if err := ctx.Err(); err != nil {
		return query.Path{}, err
	}
	return s.engine.FindPath(s.store.Snapshot(), from, to, maxHops)
}

func (s *Service) Impact(ctx context.Context, root graph.NodeID, dir graph.Direction, depth int) (query.ImpactReport, error) {
	if err := ctx.Err(); err != nil {
		return query.ImpactReport{}, err
	}
	return s.engine.Impact(s.store.Snapshot(), root, dir, depth, 0)
}

func (s *Service) DeadCode(ctx context.Context) (query.DeadCodeReport, error) {
	if err := ctx.Err(); err != nil {
		return query.DeadCodeReport{}, err
	}
	return s.engine.DeadCode(s.store.Snapshot(), s.entries, 0)
}

func (s *Service) Cycles(ctx context.Context) (query.CycleReport, error) {
	if err := ctx.Err(); err != nil {
		return query.CycleReport{}, err
	}
	return s.engine.Cycles(s.store.Snapshot(), 0, 0)
}

func (s *Service) Validate(ctx context.Context) (query.ValidationReport, error) {
	if err := ctx.Err(); err != nil {
		return query.ValidationReport{}, err
	}
	return s.engine.Validate(s.store.Snapshot()), nil
}
