package incgraph

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/incgraph/pkg/observability"
)

// Options is the ordered list of compile options a file is resolved under.
// The engine never interprets them; they are handed to the [Resolver] as-is.
type Options []string

// Resolver reports the files a given file includes directly.
//
// Implementations must be deterministic for identical (path, opts) and may
// be slow. A missing or unreadable file should yield an empty result; a
// returned error is treated the same way.
type Resolver interface {
	DirectIncludes(ctx context.Context, path string, opts Options) ([]string, error)
}

// Config configures an [Engine].
type Config struct {
	// Logger receives build progress at debug level. Defaults to a discarding logger.
	Logger *log.Logger

	// OnReady is called exactly once per [Engine.Compute], on the worker
	// goroutine, after the run halts and before its Done channel closes.
	// It must not call Enqueue, Compute, Cancel or DiscardAll.
	OnReady func(Result)
}

// WithDefaults returns a copy of Config with zero values replaced by defaults.
func (c Config) WithDefaults() Config {
	cfg := c
	if cfg.Logger == nil {
		cfg.Logger = log.New(io.Discard)
	}
	if cfg.OnReady == nil {
		cfg.OnReady = func(Result) {}
	}
	return cfg
}

// Result describes how a compute run ended.
type Result struct {
	ID        string        // Run identifier
	Files     int           // Top-level files taken off the pending queue
	Nodes     int           // Vertices in the graph when the run halted
	Edges     int           // Edges in the graph when the run halted
	Pending   int           // Files still queued (non-zero only after cancellation)
	Cancelled bool          // Whether the run stopped at a cancellation checkpoint
	Duration  time.Duration // Wall time of the run
}

// Engine builds and queries an include graph.
//
// Enqueue, Compute, Cancel and DiscardAll are meant to be called from one
// control goroutine. At most one computation runs at a time; Enqueue and
// DiscardAll cancel it before touching the graph. Queries may be issued at
// any time and see the graph as built so far.
type Engine struct {
	resolver Resolver
	cfg      Config

	mu      sync.RWMutex // guards g and pending
	g       *store
	pending []pendingFile

	runMu  sync.Mutex
	active *Computation
}

// New creates an empty engine that resolves includes with r.
func New(r Resolver, cfg Config) *Engine {
	return &Engine{
		resolver: r,
		cfg:      cfg.WithDefaults(),
		g:        newStore(),
	}
}

// Enqueue adds a file to be processed by the next [Engine.Compute]. Any
// active computation is cancelled first.
func (e *Engine) Enqueue(path string, opts Options) {
	e.Cancel()
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pending = append(e.pending, pendingFile{path: Canonical(path), opts: opts})
}

// PendingCount returns the number of files waiting for the next compute run.
func (e *Engine) PendingCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.pending)
}

// Compute cancels any active computation and starts a new one over the
// pending queue on a background goroutine. The run is also cancelled when
// ctx is done.
func (e *Engine) Compute(ctx context.Context) *Computation {
	e.Cancel()

	runCtx, cancel := context.WithCancel(ctx)
	c := &Computation{
		id:     uuid.NewString(),
		cancel: cancel,
		done:   make(chan struct{}),
	}

	e.runMu.Lock()
	e.active = c
	e.runMu.Unlock()

	go e.run(runCtx, c)
	return c
}

// Cancel stops the active computation and waits for its goroutine to exit.
// It is a no-op when nothing is running.
func (e *Engine) Cancel() {
	e.runMu.Lock()
	c := e.active
	e.active = nil
	e.runMu.Unlock()

	if c != nil {
		c.Cancel()
	}
}

// DiscardAll cancels any active computation and returns the engine to its
// initial empty state.
func (e *Engine) DiscardAll() {
	e.Cancel()
	e.mu.Lock()
	defer e.mu.Unlock()
	e.g.reset()
	e.pending = nil
	e.cfg.Logger.Debug("discarded graph")
}

type runStats struct {
	files int
}

func (e *Engine) run(ctx context.Context, c *Computation) {
	start := time.Now()
	hooks := observability.Engine()

	pending := e.PendingCount()
	hooks.OnComputeStart(ctx, c.id, pending)
	e.cfg.Logger.Debug("compute started", "run", c.id, "pending", pending)

	var st runStats
	err := e.buildAll(ctx, &st)

	e.mu.RLock()
	res := Result{
		ID:        c.id,
		Files:     st.files,
		Nodes:     len(e.g.nodes),
		Edges:     e.g.edges,
		Pending:   len(e.pending),
		Cancelled: err != nil,
		Duration:  time.Since(start),
	}
	e.mu.RUnlock()

	c.cancel()
	c.result = res

	if res.Cancelled {
		e.cfg.Logger.Debug("compute cancelled", "run", c.id, "nodes", res.Nodes, "pending", res.Pending)
	} else {
		e.cfg.Logger.Debug("compute finished", "run", c.id, "nodes", res.Nodes, "edges", res.Edges, "duration", res.Duration)
	}
	hooks.OnComputeComplete(ctx, c.id, res.Nodes, res.Edges, res.Duration, res.Cancelled)

	e.cfg.OnReady(res)
	close(c.done)
}

// Computation is the completion handle of one [Engine.Compute] call.
type Computation struct {
	id     string
	cancel context.CancelFunc
	done   chan struct{}
	result Result
}

// ID returns the run identifier.
func (c *Computation) ID() string { return c.id }

// Done returns a channel that is closed once the run has halted, either
// because the pending queue was drained or because it was cancelled.
func (c *Computation) Done() <-chan struct{} { return c.done }

// Wait blocks until the run halts or ctx is done.
func (c *Computation) Wait(ctx context.Context) (Result, error) {
	select {
	case <-c.done:
		return c.result, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Result returns the run's result and true once the run has halted.
func (c *Computation) Result() (Result, bool) {
	select {
	case <-c.done:
		return c.result, true
	default:
		return Result{}, false
	}
}

// Cancel requests cancellation and waits for the worker to exit. Calling it
// on a finished run returns immediately.
func (c *Computation) Cancel() {
	c.cancel()
	<-c.done
}
