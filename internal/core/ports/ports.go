// Package ports defines the boundary interfaces between the engine and
// its driving adapters. The command layer depends on these, never on the
// concrete engine types.
package ports

import (
	"context"

	"reachgraph/internal/engine/graph"
	"reachgraph/internal/engine/query"
)

// ChangeProcessor ingests file change batches into the graph. A batch of
// any size commits as a single version bump.
type ChangeProcessor interface {
	Process(ctx context.Context, paths []string) error
	Scan(ctx context.Context, roots []string, excludeDirs []string) error
}

// GraphReader exposes the read side of the store to driving adapters.
// Snapshots are immutable and unaffected by later commits.
type GraphReader interface {
	Snapshot() *graph.Snapshot
	Version() uint64
}

// QueryService exposes the graph analyses. Every call runs against one
// consistent snapshot; zero bounds select the configured defaults.
type QueryService interface {
	FindPath(ctx context.Context, from, to graph.NodeID, maxHops int) (query.Path, error)
	Impact(ctx context.Context, root graph.NodeID, dir graph.Direction, depth int) (query.ImpactReport, error)
	DeadCode(ctx context.Context) (query.DeadCodeReport, error)
	Cycles(ctx context.Context) (query.CycleReport, error)
	Validate(ctx context.Context) (query.ValidationReport, error)
}

// Exporter renders a snapshot into an external format.
type Exporter interface {
	Generate() (string, error)
}
