// Package query answers analysis questions against an immutable graph
// snapshot. Operations never mutate the snapshot, and every traversal is
// bounded: hitting a hop, result or cycle-length bound yields a partial
// result with an explicit truncation flag instead of an error.
package query

import (
	"time"

	"reachgraph/internal/shared/observability"
)

const (
	DefaultMaxHops     = 10
	DefaultMaxResults  = 1000
	DefaultMaxCycleLen = 12
)

// Bounds caps traversal cost. Zero values fall back to the defaults.
type Bounds struct {
	MaxHops     int
	MaxResults  int
	MaxCycleLen int
}

func (b Bounds) withDefaults() Bounds {
	if b.MaxHops <= 0 {
		b.MaxHops = DefaultMaxHops
	}
	if b.MaxResults <= 0 {
		b.MaxResults = DefaultMaxResults
	}
	if b.MaxCycleLen <= 0 {
		b.MaxCycleLen = DefaultMaxCycleLen
	}
	return b
}

// Engine evaluates analysis queries under a fixed set of bounds.
type Engine struct {
	bounds Bounds
}

func New(bounds Bounds) *Engine {
	return &Engine{bounds: bounds.withDefaults()}
}

func (e *Engine) Bounds() Bounds { return e.bounds }

func observe(query string, start time.Time) {
	observability.QueryDuration.WithLabelValues(query).Observe(time.Since(start).Seconds())
}
