package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/matzehuels/incgraph/pkg/cache"
	"github.com/matzehuels/incgraph/pkg/incgraph"
	"github.com/matzehuels/incgraph/pkg/observability"
)

const cacheKeyType = "resolve"

// Candidate is a file a resolver looked for, and whether it was there.
type Candidate struct {
	Path   string `json:"path"`
	Exists bool   `json:"exists"`
}

// Tracer is implemented by resolvers whose answer depends on which files
// exist besides the one being resolved, such as headers along a search
// path.
type Tracer interface {
	TraceIncludes(ctx context.Context, path string, opts incgraph.Options) ([]string, []Candidate, error)
}

// entry is the cached form of one lookup.
type entry struct {
	Includes []string    `json:"includes"`
	Checked  []Candidate `json:"checked,omitempty"`
}

// fresh reports whether every checked candidate would still come out the same.
func (e *entry) fresh() bool {
	for _, c := range e.Checked {
		if isFile(c.Path) != c.Exists {
			return false
		}
	}
	return true
}

// Cached memoizes another resolver. Entries are keyed on the file path, the
// options and the file's size and modification time, so editing a file
// invalidates its entry. When the inner resolver is a [Tracer], the
// candidates it checked are stored too and re-checked on every hit, so a
// header that appears, disappears or starts shadowing another one also
// invalidates the entry. Failed lookups are never cached. Concurrent
// lookups of the same key share one call to the inner resolver.
type Cached struct {
	inner incgraph.Resolver
	cache cache.Cache
	keyer cache.Keyer
	ttl   time.Duration
	group singleflight.Group
}

// NewCached wraps inner with c. A nil cache disables caching and a nil
// keyer uses [cache.NewDefaultKeyer].
func NewCached(inner incgraph.Resolver, c cache.Cache, keyer cache.Keyer) *Cached {
	if c == nil {
		c = cache.NewNullCache()
	}
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	return &Cached{inner: inner, cache: c, keyer: keyer, ttl: cache.TTLResolve}
}

// WithTTL sets the lifetime of new entries and returns r.
func (r *Cached) WithTTL(ttl time.Duration) *Cached {
	r.ttl = ttl
	return r
}

// DirectIncludes returns the cached answer for (path, opts) or asks the
// inner resolver and stores its answer.
func (r *Cached) DirectIncludes(ctx context.Context, path string, opts incgraph.Options) ([]string, error) {
	hooks := observability.Cache()
	key := r.keyer.ResolveKey(path, opts, fileStamp(path))

	if data, hit, err := r.cache.Get(ctx, key); err == nil && hit {
		var e entry
		if err := json.Unmarshal(data, &e); err == nil && e.fresh() {
			hooks.OnCacheHit(ctx, cacheKeyType)
			return e.Includes, nil
		}
	}
	hooks.OnCacheMiss(ctx, cacheKeyType)

	v, err, _ := r.group.Do(key, func() (any, error) {
		e, err := r.resolve(ctx, path, opts)
		if err != nil {
			return nil, err
		}
		if data, err := json.Marshal(e); err == nil {
			if r.cache.Set(ctx, key, data, r.ttl) == nil {
				hooks.OnCacheSet(ctx, cacheKeyType, len(data))
			}
		}
		return e.Includes, nil
	})
	if err != nil {
		return nil, err
	}
	return slices.Clone(v.([]string)), nil
}

func (r *Cached) resolve(ctx context.Context, path string, opts incgraph.Options) (entry, error) {
	if p, ok := r.inner.(Tracer); ok {
		incs, checked, err := p.TraceIncludes(ctx, path, opts)
		return entry{Includes: incs, Checked: checked}, err
	}
	incs, err := r.inner.DirectIncludes(ctx, path, opts)
	return entry{Includes: incs}, err
}

// fileStamp summarizes a file's size and modification time, or returns ""
// when the file cannot be stat'ed.
func fileStamp(path string) string {
	info, err := os.Stat(path)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%d:%d", info.Size(), info.ModTime().UnixNano())
}

var _ incgraph.Resolver = (*Cached)(nil)
