// Package coordinator turns raw file-change notifications into minimal,
// atomic graph updates: it re-extracts changed files (in parallel, rate
// limited), skips files whose content did not actually change, commits a
// burst as one batch so readers never see a half-applied multi-file edit,
// and runs the late re-resolution pass afterwards.
package coordinator

import (
	"context"
	"crypto/sha256"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gobwas/glob"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"reachgraph/internal/core/errors"
	"reachgraph/internal/engine/extract"
	"reachgraph/internal/engine/graph"
	"reachgraph/internal/engine/normalize"
	"reachgraph/internal/shared/observability"
)

type Options struct {
	Root          string
	Workers       int
	CacheSize     int
	RatePerSecond float64
	Burst         int
}

type Coordinator struct {
	store   *graph.Store
	root    string
	workers int
	limiter *rate.Limiter
	hashes  *lru.Cache[string, [sha256.Size]byte]
	logger  *slog.Logger

	// One batch commits at a time; extraction inside a batch is parallel.
	mu sync.Mutex
}

func New(store *graph.Store, opts Options, logger *slog.Logger) (*Coordinator, error) {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 4096
	}
	if opts.RatePerSecond <= 0 {
		opts.RatePerSecond = 200
	}
	if opts.Burst <= 0 {
		opts.Burst = 50
	}
	if opts.Root == "" {
		opts.Root = "."
	}
	hashes, err := lru.New[string, [sha256.Size]byte](opts.CacheSize)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeValidationError, "bad extraction cache size")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		store:   store,
		root:    opts.Root,
		workers: opts.Workers,
		limiter: rate.NewLimiter(rate.Limit(opts.RatePerSecond), opts.Burst),
		hashes:  hashes,
		logger:  logger,
	}, nil
}

// Change processes a single path; the watcher's batch callback should use
// Process directly.
func (c *Coordinator) Change(ctx context.Context, path string) error {
	return c.Process(ctx, []string{path})
}

type target struct {
	rel     string
	content []byte
	deleted bool
}

// Process re-extracts the given changed or deleted paths and commits their
// diffs as one batch. Unreadable files are logged and skipped; the next
// change event for them retries. Paths may be absolute or root-relative.
func (c *Coordinator) Process(ctx context.Context, paths []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	start := time.Now()
	targets := c.collect(paths)
	if len(targets) == 0 {
		return nil
	}

	results := make([]*extract.Result, len(targets))
	if err := c.extractAll(ctx, targets, results); err != nil {
		return err
	}

	pre := c.store.Snapshot()
	diffs := make([]graph.FileDiff, 0, len(targets))
	matches := map[string][]graph.NodeID{}
	for i, tgt := range targets {
		if tgt.deleted {
			diffs = append(diffs, graph.FileDiff{File: tgt.rel})
			continue
		}
		res := results[i]
		if res == nil {
			continue
		}
		diff := normalize.File(res, pre)
		for _, n := range diff.Nodes {
			matches[n.Name] = append(matches[n.Name], n.ID)
		}
		diffs = append(diffs, diff)
	}
	if len(diffs) == 0 {
		return nil
	}
	sort.Slice(diffs, func(i, j int) bool { return diffs[i].File < diffs[j].File })

	c.store.ApplyBatch(diffs)
	rewired := c.store.RetargetUnresolved(matches)

	observability.CommitBatchSize.Observe(float64(len(diffs)))
	observability.CommitDuration.Observe(time.Since(start).Seconds())
	c.logger.Info("committed batch",
		"files", len(diffs),
		"rewired", rewired,
		"version", c.store.Version(),
	)
	return nil
}

// collect normalizes, filters and deduplicates the changed paths, reading
// file contents and consulting the content-hash cache.
func (c *Coordinator) collect(paths []string) []target {
	seen := map[string]bool{}
	var targets []target
	for _, path := range paths {
		rel := c.relative(path)
		if rel == "" || seen[rel] {
			continue
		}
		seen[rel] = true
		if _, ok := extract.ForPath(rel); !ok {
			continue
		}

		content, err := os.ReadFile(filepath.Join(c.root, filepath.FromSlash(rel)))
		if err != nil {
			if os.IsNotExist(err) {
				c.hashes.Remove(rel)
				targets = append(targets, target{rel: rel, deleted: true})
			} else {
				c.logger.Warn("skipping unreadable file", "path", rel, "error", err)
			}
			continue
		}

		sum := sha256.Sum256(content)
		if prev, ok := c.hashes.Get(rel); ok && prev == sum {
			observability.CoordinatorCacheHitsTotal.Inc()
			continue
		}
		c.hashes.Add(rel, sum)
		targets = append(targets, target{rel: rel, content: content})
	}
	sort.Slice(targets, func(i, j int) bool { return targets[i].rel < targets[j].rel })
	return targets
}

func (c *Coordinator) extractAll(ctx context.Context, targets []target, results []*extract.Result) error {
	type job struct {
		idx int
		tgt target
	}
	jobs := make(chan job)
	var wg sync.WaitGroup
	for w := 0; w < c.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				begin := time.Now()
				res, ok := extract.Extract(j.tgt.rel, j.tgt.content)
				if !ok {
					continue
				}
				observability.ExtractionDuration.WithLabelValues(string(res.Dialect)).Observe(time.Since(begin).Seconds())
				if len(res.Errors) > 0 {
					observability.ExtractionErrorsTotal.WithLabelValues(string(res.Dialect)).Inc()
					c.logger.Warn("extraction degraded", "path", j.tgt.rel, "errors", len(res.Errors))
				}
				results[j.idx] = res
			}
		}()
	}

	var waitErr error
	for i, tgt := range targets {
		if tgt.deleted {
			continue
		}
		if err := c.limiter.Wait(ctx); err != nil {
			waitErr = errors.Wrap(err, errors.CodeInternal, "extraction rate limiter interrupted")
			break
		}
		jobs <- job{idx: i, tgt: tgt}
	}
	close(jobs)
	wg.Wait()
	return waitErr
}

// Scan walks the given roots and processes every source file found, used to
// build the initial graph before watching starts.
func (c *Coordinator) Scan(ctx context.Context, roots []string, excludeDirs []string) error {
	excludes := make([]glob.Glob, 0, len(excludeDirs))
	for _, pattern := range excludeDirs {
		g, err := glob.Compile(pattern)
		if err != nil {
			return errors.Wrap(err, errors.CodeValidationError, "bad exclude pattern")
		}
		excludes = append(excludes, g)
	}

	var paths []string
	for _, root := range roots {
		base := root
		if !filepath.IsAbs(base) {
			base = filepath.Join(c.root, base)
		}
		// Walk absolute paths. A relative project root would otherwise
		// yield root-prefixed paths that relative() cannot map, and every
		// file would read as missing.
		base, err := filepath.Abs(base)
		if err != nil {
			return errors.Wrap(err, errors.CodeInternal, "initial scan failed")
		}
		err = filepath.Walk(base, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() {
				for _, g := range excludes {
					if g.Match(info.Name()) {
						return filepath.SkipDir
					}
				}
				return nil
			}
			if _, ok := extract.ForPath(path); ok {
				paths = append(paths, path)
			}
			return nil
		})
		if err != nil {
			return errors.Wrap(err, errors.CodeInternal, "initial scan failed")
		}
	}
	return c.Process(ctx, paths)
}

// relative maps a watcher path onto the project-relative slash form used in
// node origins and ids.
func (c *Coordinator) relative(path string) string {
	if !filepath.IsAbs(path) {
		return filepath.ToSlash(filepath.Clean(path))
	}
	absRoot, err := filepath.Abs(c.root)
	if err != nil {
		return ""
	}
	rel, err := filepath.Rel(absRoot, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return ""
	}
	return filepath.ToSlash(rel)
}
