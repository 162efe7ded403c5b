package batch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/maypok86/otter"
	"golang.org/x/sync/errgroup"

	"github.com/mvp-joe/pymap/internal/config"
	"github.com/mvp-joe/pymap/internal/extract"
	"github.com/mvp-joe/pymap/internal/symbol"
)

// Stats summarizes one batch run.
type Stats struct {
	Files       int           // files discovered or requested
	Extracted   int           // units actually parsed this run
	CacheHits   int           // units served from the result cache
	Failed      int           // files that could not be read
	Incomplete  int           // units truncated by a lex error or budget
	Symbols     int           // total symbols across all trees
	Diagnostics int           // total diagnostics across all units
	Duration    time.Duration // wall time for the run
}

// Reporter receives progress callbacks during a batch run. Callbacks for
// individual files arrive from worker goroutines and must be safe for
// concurrent use.
type Reporter interface {
	OnDiscoveryStart()
	OnDiscoveryComplete(files int)
	OnExtractionStart(totalFiles int)
	OnFileExtracted(fileID string, complete bool)
	OnComplete(stats *Stats)
}

// NopReporter discards all progress callbacks.
type NopReporter struct{}

func (NopReporter) OnDiscoveryStart()            {}
func (NopReporter) OnDiscoveryComplete(int)      {}
func (NopReporter) OnExtractionStart(int)        {}
func (NopReporter) OnFileExtracted(string, bool) {}
func (NopReporter) OnComplete(*Stats)            {}

// Runner extracts symbol trees for every discovered file, fanning units
// out across a bounded worker pool. Units share nothing, so one file's
// failure never affects its siblings.
type Runner struct {
	cfg      *config.Config
	reporter Reporter
	cache    otter.Cache[string, *symbol.Result]
	useCache bool
}

// NewRunner builds a runner from configuration. A nil reporter is
// replaced by NopReporter.
func NewRunner(cfg *config.Config, reporter Reporter) (*Runner, error) {
	if reporter == nil {
		reporter = NopReporter{}
	}
	r := &Runner{cfg: cfg, reporter: reporter}

	if cfg.Cache.Enabled {
		cache, err := otter.MustBuilder[string, *symbol.Result](cfg.Cache.Capacity).Build()
		if err != nil {
			return nil, fmt.Errorf("failed to build result cache: %w", err)
		}
		r.cache = cache
		r.useCache = true
	}
	return r, nil
}

// Close releases the result cache. The runner must not be used after.
func (r *Runner) Close() {
	if r.useCache {
		r.cache.Close()
	}
}

// Run discovers source files under rootDir and extracts all of them.
// Results come back in discovery (sorted path) order regardless of which
// worker finished first.
func (r *Runner) Run(ctx context.Context, rootDir string) ([]*symbol.Result, *Stats, error) {
	r.reporter.OnDiscoveryStart()
	disc, err := NewDiscovery(rootDir, r.cfg.Paths.Include, r.cfg.Paths.Ignore)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to compile path patterns: %w", err)
	}
	files, err := disc.Discover()
	if err != nil {
		return nil, nil, fmt.Errorf("file discovery failed: %w", err)
	}
	r.reporter.OnDiscoveryComplete(len(files))

	return r.ExtractFiles(ctx, rootDir, files)
}

// ExtractFiles extracts an explicit file list, preserving its order in the
// returned results. Watch mode uses this for changed-file subsets.
func (r *Runner) ExtractFiles(ctx context.Context, rootDir string, files []string) ([]*symbol.Result, *Stats, error) {
	start := time.Now()
	stats := &Stats{Files: len(files)}
	r.reporter.OnExtractionStart(len(files))

	results := make([]*symbol.Result, len(files))
	hits := make([]bool, len(files))
	failed := make([]bool, len(files))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers())

	for i, file := range files {
		g.Go(func() error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fileID := relativeID(rootDir, file)

			content, err := os.ReadFile(file)
			if err != nil {
				// Unreadable files are counted, not fatal.
				failed[i] = true
				r.reporter.OnFileExtracted(fileID, false)
				return nil
			}

			key := cacheKey(fileID, content, r.cfg.Extract.Budget)
			if r.useCache {
				if cached, ok := r.cache.Get(key); ok {
					results[i] = cached
					hits[i] = true
					r.reporter.OnFileExtracted(fileID, cached.Complete)
					return nil
				}
			}

			res := extract.Extract(ctx, string(content), fileID, extract.Options{
				Budget: r.cfg.Extract.Budget,
			})
			if r.useCache {
				r.cache.Set(key, res)
			}
			results[i] = res
			r.reporter.OnFileExtracted(fileID, res.Complete)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	out := make([]*symbol.Result, 0, len(results))
	for i, res := range results {
		switch {
		case failed[i]:
			stats.Failed++
		case res != nil:
			out = append(out, res)
			if hits[i] {
				stats.CacheHits++
			} else {
				stats.Extracted++
			}
			if !res.Complete {
				stats.Incomplete++
			}
			stats.Diagnostics += len(res.Diagnostics)
			res.Module.Walk(func(*symbol.Symbol) { stats.Symbols++ })
		}
	}
	stats.Duration = time.Since(start)
	r.reporter.OnComplete(stats)
	return out, stats, nil
}

func (r *Runner) workers() int {
	if r.cfg.Extract.Workers > 0 {
		return r.cfg.Extract.Workers
	}
	return runtime.NumCPU()
}

// cacheKey identifies a unit by its identifier, its content hash, and the
// budget it was extracted under, since a different budget can yield a
// different (truncated) tree for the same bytes.
func cacheKey(fileID string, content []byte, budget int) string {
	return fmt.Sprintf("%s:%x:%d", fileID, xxhash.Sum64(content), budget)
}

// relativeID derives the stable file identifier from the path: relative
// to the batch root, slash-separated.
func relativeID(rootDir, file string) string {
	rel, err := filepath.Rel(rootDir, file)
	if err != nil {
		return filepath.ToSlash(file)
	}
	return filepath.ToSlash(rel)
}
