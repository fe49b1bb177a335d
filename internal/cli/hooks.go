package cli

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/incgraph/pkg/observability"
)

// slowLookup is the resolver latency above which a lookup is logged.
const slowLookup = 250 * time.Millisecond

// buildStats counts resolver and cache events for one command. It is
// registered as the process-wide resolver and cache hooks.
type buildStats struct {
	observability.NoopEngineHooks

	logger   *log.Logger
	resolved atomic.Int64
	failed   atomic.Int64
	hits     atomic.Int64
	misses   atomic.Int64
}

func newBuildStats(l *log.Logger) *buildStats {
	return &buildStats{logger: l}
}

// install registers s for resolver, cache and engine events and returns a
// function that restores the defaults.
func (s *buildStats) install() func() {
	observability.SetResolverHooks(s)
	observability.SetCacheHooks(s)
	observability.SetEngineHooks(s)
	return observability.Reset
}

func (s *buildStats) OnResolve(ctx context.Context, path string, includes int, d time.Duration, err error) {
	s.resolved.Add(1)
	if err != nil {
		s.failed.Add(1)
		return
	}
	if d > slowLookup {
		s.logger.Debug("slow include lookup", "file", path, "includes", includes, "took", d.Round(time.Millisecond))
	}
}

func (s *buildStats) OnComputeComplete(ctx context.Context, runID string, nodes, edges int, d time.Duration, cancelled bool) {
	s.logger.Debug("run complete", "run", runID, "lookups", s.resolved.Load(), "failed", s.failed.Load(), "cache_hits", s.hits.Load())
}

func (s *buildStats) OnCacheHit(context.Context, string)      { s.hits.Add(1) }
func (s *buildStats) OnCacheMiss(context.Context, string)     { s.misses.Add(1) }
func (s *buildStats) OnCacheSet(context.Context, string, int) {}
