// Package app is the composition root: it wires configuration, the graph
// store, the change coordinator, the watcher and the query engine into one
// running unit.
package app

import (
	"context"
	"log/slog"
	"net/http"
	"path/filepath"

	"reachgraph/internal/core/config"
	"reachgraph/internal/core/ports"
	"reachgraph/internal/core/watcher"
	"reachgraph/internal/engine/coordinator"
	"reachgraph/internal/engine/graph"
	"reachgraph/internal/engine/query"
)

var (
	_ ports.ChangeProcessor = (*coordinator.Coordinator)(nil)
	_ ports.GraphReader     = (*graph.Store)(nil)
)

type App struct {
	Config      *config.Config
	Store       *graph.Store
	Coordinator *coordinator.Coordinator
	Queries     *Service

	logger        *slog.Logger
	activeWatcher *watcher.Watcher
	metricsServer *http.Server
}

func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	store := graph.NewStore()
	coord, err := coordinator.New(store, coordinator.Options{
		Root:          cfg.ProjectRoot,
		Workers:       cfg.Extraction.Workers,
		CacheSize:     cfg.Extraction.CacheSize,
		RatePerSecond: cfg.Extraction.RatePerSecond,
		Burst:         cfg.Extraction.Burst,
	}, logger)
	if err != nil {
		return nil, err
	}

	engine := query.New(query.Bounds{
		MaxHops:     cfg.Query.MaxHops,
		MaxResults:  cfg.Query.MaxResults,
		MaxCycleLen: cfg.Query.MaxCycleLength,
	})

	entries := query.EntryConfig{
		Names: cfg.Entries.Names,
		Files: cfg.Entries.Files,
	}
	if len(entries.Names) == 0 {
		entries.Names = query.DefaultEntryNames()
	}

	return &App{
		Config:      cfg,
		Store:       store,
		Coordinator: coord,
		Queries: &Service{
			store:   store,
			engine:  engine,
			entries: entries,
		},
		logger: logger,
	}, nil
}

// InitialScan walks the watch paths once and builds the graph from scratch.
func (a *App) InitialScan(ctx context.Context) error {
	return a.Coordinator.Scan(ctx, a.Config.WatchPaths, a.Config.Exclude.Dirs)
}

// StartWatcher begins feeding debounced change batches into the coordinator.
// The context bounds the processing of each batch, not the watcher itself;
// stop the watcher with Close.
func (a *App) StartWatcher(ctx context.Context) error {
	w, err := watcher.NewWatcher(
		a.Config.Watch.Debounce,
		a.Config.Exclude.Dirs,
		a.Config.Exclude.Files,
		func(paths []string) {
			if err := a.Coordinator.Process(ctx, paths); err != nil {
				a.logger.Error("change batch failed", "error", err)
			}
		},
	)
	if err != nil {
		return err
	}
	a.activeWatcher = w
	// Watch paths are project-relative; resolve them against the project
	// root and absolutize so change events map back onto graph file ids.
	roots := make([]string, 0, len(a.Config.WatchPaths))
	for _, p := range a.Config.WatchPaths {
		if !filepath.IsAbs(p) {
			p = filepath.Join(a.Config.ProjectRoot, p)
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			return err
		}
		roots = append(roots, abs)
	}
	return w.Watch(roots)
}

func (a *App) Close() error {
	if a.activeWatcher != nil {
		return a.activeWatcher.Close()
	}
	return nil
}
