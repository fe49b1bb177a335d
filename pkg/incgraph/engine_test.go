package incgraph

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type mapResolver struct {
	includes map[string][]string
	calls    atomic.Int32
}

func (m *mapResolver) DirectIncludes(ctx context.Context, path string, opts Options) ([]string, error) {
	m.calls.Add(1)
	return m.includes[path], nil
}

// gateResolver blocks on the first lookup of block until ctx is done.
type gateResolver struct {
	includes map[string][]string
	block    string
	started  chan struct{}
	once     sync.Once
	blocking atomic.Bool
}

func newGateResolver(includes map[string][]string, block string) *gateResolver {
	r := &gateResolver{includes: includes, block: block, started: make(chan struct{})}
	r.blocking.Store(true)
	return r
}

func (r *gateResolver) DirectIncludes(ctx context.Context, path string, opts Options) ([]string, error) {
	if path == r.block && r.blocking.Load() {
		r.once.Do(func() { close(r.started) })
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return r.includes[path], nil
}

func waitResult(t *testing.T, c *Computation) Result {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	res, err := c.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait() error: %v", err)
	}
	return res
}

func build(t *testing.T, includes map[string][]string, files ...string) *Engine {
	t.Helper()
	e := New(&mapResolver{includes: includes}, Config{})
	for _, f := range files {
		e.Enqueue(f, nil)
	}
	waitResult(t, e.Compute(context.Background()))
	return e
}

func TestComputeDiscoversIncludes(t *testing.T) {
	e := build(t, map[string][]string{
		"a.h": {"b.h"},
	}, "a.h")

	if _, ok := e.Vertex("b.h"); !ok {
		t.Fatal("b.h should have a vertex after compute")
	}
	if _, ok := e.Vertex("never.h"); ok {
		t.Error("never.h should not have a vertex")
	}
	if e.NodeCount() != 2 {
		t.Errorf("NodeCount() = %d, want 2", e.NodeCount())
	}
	if e.EdgeCount() != 1 {
		t.Errorf("EdgeCount() = %d, want 1", e.EdgeCount())
	}
}

func TestComputeResult(t *testing.T) {
	var ready atomic.Int32
	e := New(&mapResolver{includes: map[string][]string{
		"a.h": {"b.h", "c.h"},
		"b.h": {"c.h"},
	}}, Config{OnReady: func(Result) { ready.Add(1) }})
	e.Enqueue("a.h", nil)
	e.Enqueue("c.h", nil)

	c := e.Compute(context.Background())
	res := waitResult(t, c)

	if res.ID == "" || res.ID != c.ID() {
		t.Errorf("Result.ID = %q, want %q", res.ID, c.ID())
	}
	if res.Cancelled {
		t.Error("Result.Cancelled = true, want false")
	}
	if res.Files != 2 {
		t.Errorf("Result.Files = %d, want 2", res.Files)
	}
	if res.Nodes != 3 || res.Edges != 3 {
		t.Errorf("Result nodes/edges = %d/%d, want 3/3", res.Nodes, res.Edges)
	}
	if res.Pending != 0 {
		t.Errorf("Result.Pending = %d, want 0", res.Pending)
	}
	if got := ready.Load(); got != 1 {
		t.Errorf("OnReady called %d times, want 1", got)
	}
	if _, ok := c.Result(); !ok {
		t.Error("Result() should be available after Wait")
	}
}

func TestNoDuplicateVertices(t *testing.T) {
	r := &mapResolver{includes: map[string][]string{
		"a.h": {"b.h"},
	}}
	e := New(r, Config{})
	e.Enqueue("a.h", nil)
	e.Enqueue("a.h", nil)
	e.Enqueue("./b.h", nil)
	waitResult(t, e.Compute(context.Background()))

	if e.NodeCount() != 2 {
		t.Errorf("NodeCount() = %d, want 2", e.NodeCount())
	}
	if got := r.calls.Load(); got != 2 {
		t.Errorf("resolver called %d times, want 2", got)
	}
}

func TestRecomputeSkipsResolvedFiles(t *testing.T) {
	r := &mapResolver{includes: map[string][]string{
		"a.h": {"b.h"},
	}}
	e := New(r, Config{})
	e.Enqueue("a.h", nil)
	waitResult(t, e.Compute(context.Background()))

	e.Enqueue("b.h", nil)
	res := waitResult(t, e.Compute(context.Background()))
	if res.Files != 1 {
		t.Errorf("Result.Files = %d, want 1", res.Files)
	}
	if got := r.calls.Load(); got != 2 {
		t.Errorf("resolver called %d times, want 2", got)
	}
}

func TestEdgeSymmetry(t *testing.T) {
	e := build(t, map[string][]string{
		"main.c":   {"a.h", "b.h", "a.h"},
		"a.h":      {"common.h", "b.h"},
		"b.h":      {"common.h"},
		"common.h": {"a.h"},
	}, "main.c")

	count := func(hs []Handle, want Handle) int {
		n := 0
		for _, h := range hs {
			if h == want {
				n++
			}
		}
		return n
	}

	total := 0
	for h := Handle(0); int(h) < e.NodeCount(); h++ {
		for _, to := range e.Includes(h) {
			total++
			if count(e.Includes(h), to) != count(e.IncludedBy(to), h) {
				t.Errorf("edge %s -> %s is not mirrored", e.Path(h), e.Path(to))
			}
		}
		for _, from := range e.IncludedBy(h) {
			if count(e.Includes(from), h) == 0 {
				t.Errorf("in-edge %s <- %s has no out-edge", e.Path(h), e.Path(from))
			}
		}
	}
	if total != e.EdgeCount() {
		t.Errorf("sum of out-degrees = %d, EdgeCount() = %d", total, e.EdgeCount())
	}
}

func TestDuplicateEdgesKept(t *testing.T) {
	e := build(t, map[string][]string{
		"a.h": {"b.h", "b.h"},
	}, "a.h")

	if e.EdgeCount() != 2 {
		t.Errorf("EdgeCount() = %d, want 2", e.EdgeCount())
	}
	h, _ := e.Vertex("b.h")
	if got := len(e.IncludedBy(h)); got != 2 {
		t.Errorf("len(IncludedBy(b.h)) = %d, want 2", got)
	}
}

func TestCycleTerminates(t *testing.T) {
	e := build(t, map[string][]string{
		"a.h": {"b.h"},
		"b.h": {"a.h"},
	}, "a.h")

	if e.NodeCount() != 2 || e.EdgeCount() != 2 {
		t.Fatalf("nodes/edges = %d/%d, want 2/2", e.NodeCount(), e.EdgeCount())
	}
	if !e.HasDependency("a.h", TransitiveIncludes) {
		t.Error("a.h should have transitive includes")
	}
	if !e.HasDependency("b.h", TransitiveIncludes) {
		t.Error("b.h should have transitive includes")
	}
}

func TestSelfInclude(t *testing.T) {
	e := build(t, map[string][]string{
		"a.h": {"a.h"},
	}, "a.h")

	if e.NodeCount() != 1 || e.EdgeCount() != 1 {
		t.Fatalf("nodes/edges = %d/%d, want 1/1", e.NodeCount(), e.EdgeCount())
	}
	if !e.HasDependency("a.h", DirectIncludedBy) {
		t.Error("a.h should be included by itself")
	}
}

func TestEdgeOrderMatchesRecursiveExpansion(t *testing.T) {
	e := build(t, map[string][]string{
		"a.h": {"b.h", "c.h"},
		"b.h": {"d.h"},
		"c.h": {"d.h"},
	}, "a.h")

	d, _ := e.Vertex("d.h")
	var parents []string
	for _, h := range e.IncludedBy(d) {
		parents = append(parents, e.Path(h))
	}
	if fmt.Sprint(parents) != "[b.h c.h]" {
		t.Errorf("IncludedBy(d.h) = %v, want [b.h c.h]", parents)
	}

	// Vertices are created before their subtree is expanded.
	var order []string
	for _, v := range e.Snapshot() {
		order = append(order, v.Path)
	}
	if fmt.Sprint(order) != "[a.h b.h d.h c.h]" {
		t.Errorf("vertex order = %v, want [a.h b.h d.h c.h]", order)
	}
}

func TestDeepChain(t *testing.T) {
	const depth = 100000
	includes := make(map[string][]string, depth)
	for i := 0; i < depth-1; i++ {
		includes[fmt.Sprintf("h%d.h", i)] = []string{fmt.Sprintf("h%d.h", i+1)}
	}
	e := build(t, includes, "h0.h")

	if e.NodeCount() != depth {
		t.Errorf("NodeCount() = %d, want %d", e.NodeCount(), depth)
	}
	if got := len(e.CollectDependencies("h0.h", TransitiveIncludes, nil)); got != depth-1 {
		t.Errorf("transitive includes = %d, want %d", got, depth-1)
	}
}

type errResolver struct{}

func (errResolver) DirectIncludes(ctx context.Context, path string, opts Options) ([]string, error) {
	if path == "a.h" {
		return []string{"broken.h"}, nil
	}
	return nil, errors.New("unreadable")
}

func TestResolverErrorIsLeaf(t *testing.T) {
	e := New(errResolver{}, Config{})
	e.Enqueue("a.h", nil)
	res := waitResult(t, e.Compute(context.Background()))

	if res.Cancelled {
		t.Error("resolver errors should not cancel the run")
	}
	if _, ok := e.Vertex("broken.h"); !ok {
		t.Error("broken.h should still get a vertex")
	}
	if e.HasDependency("broken.h", DirectIncludes) {
		t.Error("broken.h should be a leaf")
	}
}

type optsResolver struct {
	mu   sync.Mutex
	seen map[string][]string
}

func (r *optsResolver) DirectIncludes(ctx context.Context, path string, opts Options) ([]string, error) {
	r.mu.Lock()
	r.seen[path] = opts
	r.mu.Unlock()
	if path == "a.c" {
		return []string{"x.h"}, nil
	}
	if path == "x.h" {
		return []string{"y.h"}, nil
	}
	return nil, nil
}

func TestOptionsThreadedToIncludes(t *testing.T) {
	r := &optsResolver{seen: make(map[string][]string)}
	e := New(r, Config{})
	e.Enqueue("a.c", Options{"-DA", "-Iinc"})
	e.Enqueue("b.c", Options{"-DB"})
	waitResult(t, e.Compute(context.Background()))

	for _, p := range []string{"a.c", "x.h", "y.h"} {
		if fmt.Sprint(r.seen[p]) != "[-DA -Iinc]" {
			t.Errorf("%s resolved with %v, want [-DA -Iinc]", p, r.seen[p])
		}
	}
	if fmt.Sprint(r.seen["b.c"]) != "[-DB]" {
		t.Errorf("b.c resolved with %v, want [-DB]", r.seen["b.c"])
	}
}

func TestCancelWhenIdleIsNoop(t *testing.T) {
	e := New(&mapResolver{}, Config{})
	e.Cancel()
	e.Cancel()

	e = build(t, map[string][]string{"a.h": {"b.h"}}, "a.h")
	e.Cancel()
	if e.NodeCount() != 2 {
		t.Errorf("NodeCount() = %d, want 2", e.NodeCount())
	}
}

func TestCancelStopsWorker(t *testing.T) {
	r := newGateResolver(map[string][]string{
		"a.h": {"slow.h"},
		"b.h": {"c.h"},
	}, "slow.h")

	var ready atomic.Int32
	e := New(r, Config{OnReady: func(Result) { ready.Add(1) }})
	e.Enqueue("a.h", nil)
	e.Enqueue("b.h", nil)
	e.Enqueue("d.h", nil)

	c := e.Compute(context.Background())
	<-r.started
	e.Cancel()

	res, ok := c.Result()
	if !ok {
		t.Fatal("Cancel() returned before the run halted")
	}
	if !res.Cancelled {
		t.Error("Result.Cancelled = false, want true")
	}
	if res.Pending != 2 {
		t.Errorf("Result.Pending = %d, want 2", res.Pending)
	}
	if got := ready.Load(); got != 1 {
		t.Errorf("OnReady called %d times, want 1", got)
	}

	// Partial results stay queryable and stop changing.
	nodes, edges := e.NodeCount(), e.EdgeCount()
	if nodes != 2 {
		t.Errorf("NodeCount() after cancel = %d, want 2", nodes)
	}
	if got := e.CollectDependencies("a.h", DirectIncludes, nil); fmt.Sprint(got) != "[slow.h]" {
		t.Errorf("a.h includes = %v, want [slow.h]", got)
	}
	time.Sleep(20 * time.Millisecond)
	if e.NodeCount() != nodes || e.EdgeCount() != edges {
		t.Error("graph changed after Cancel() returned")
	}

	// The next compute picks up the files that were never started.
	r.blocking.Store(false)
	res = waitResult(t, e.Compute(context.Background()))
	if res.Cancelled {
		t.Error("second run should complete")
	}
	if _, ok := e.Vertex("c.h"); !ok {
		t.Error("c.h should be resolved by the second run")
	}
	if _, ok := e.Vertex("d.h"); !ok {
		t.Error("d.h should be resolved by the second run")
	}
}

func TestComputationCancel(t *testing.T) {
	r := newGateResolver(nil, "a.h")
	e := New(r, Config{})
	e.Enqueue("a.h", nil)

	c := e.Compute(context.Background())
	<-r.started
	c.Cancel()
	c.Cancel()

	res, ok := c.Result()
	if !ok || !res.Cancelled {
		t.Errorf("Result() = %+v, %v; want cancelled", res, ok)
	}
	e.Cancel()
}

func TestParentContextCancels(t *testing.T) {
	r := newGateResolver(nil, "a.h")
	e := New(r, Config{})
	e.Enqueue("a.h", nil)

	ctx, cancel := context.WithCancel(context.Background())
	c := e.Compute(ctx)
	<-r.started
	cancel()

	res := waitResult(t, c)
	if !res.Cancelled {
		t.Error("run should be cancelled with its parent context")
	}
}

func TestComputeSupersedesActiveRun(t *testing.T) {
	r := newGateResolver(map[string][]string{"b.h": {"c.h"}}, "a.h")

	var ready atomic.Int32
	e := New(r, Config{OnReady: func(Result) { ready.Add(1) }})
	e.Enqueue("a.h", nil)
	e.Enqueue("b.h", nil)

	first := e.Compute(context.Background())
	<-r.started
	r.blocking.Store(false)
	second := e.Compute(context.Background())

	if res, ok := first.Result(); !ok || !res.Cancelled {
		t.Errorf("first run = %+v, %v; want cancelled", res, ok)
	}
	res := waitResult(t, second)
	if res.Cancelled {
		t.Error("second run should complete")
	}
	if got := ready.Load(); got != 2 {
		t.Errorf("OnReady called %d times, want 2", got)
	}
	if _, ok := e.Vertex("c.h"); !ok {
		t.Error("c.h should be resolved by the second run")
	}
}

func TestEnqueueCancelsActiveRun(t *testing.T) {
	r := newGateResolver(nil, "a.h")
	e := New(r, Config{})
	e.Enqueue("a.h", nil)

	c := e.Compute(context.Background())
	<-r.started
	e.Enqueue("b.h", nil)

	if _, ok := c.Result(); !ok {
		t.Fatal("Enqueue() should wait for the active run to stop")
	}
	if e.PendingCount() != 1 {
		t.Errorf("PendingCount() = %d, want 1", e.PendingCount())
	}
}

func TestWaitContextDone(t *testing.T) {
	r := newGateResolver(nil, "a.h")
	e := New(r, Config{})
	e.Enqueue("a.h", nil)
	c := e.Compute(context.Background())
	defer e.Cancel()
	<-r.started

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := c.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait() error = %v, want deadline exceeded", err)
	}
}

func TestDiscardAll(t *testing.T) {
	e := build(t, map[string][]string{
		"a.h": {"b.h"},
		"b.h": {"c.h"},
	}, "a.h")
	e.Enqueue("z.h", nil)

	e.DiscardAll()

	for _, p := range []string{"a.h", "b.h", "c.h"} {
		if _, ok := e.Vertex(p); ok {
			t.Errorf("%s should be gone", p)
		}
		for _, role := range Roles {
			if e.HasDependency(p, role) {
				t.Errorf("HasDependency(%s, %v) = true after discard", p, role)
			}
			if got := e.CollectDependencies(p, role, nil); len(got) != 0 {
				t.Errorf("CollectDependencies(%s, %v) = %v after discard", p, role, got)
			}
		}
	}
	if e.NodeCount() != 0 || e.EdgeCount() != 0 || e.PendingCount() != 0 {
		t.Error("engine should be empty after DiscardAll")
	}

	res := waitResult(t, e.Compute(context.Background()))
	if res.Files != 0 || res.Nodes != 0 {
		t.Errorf("compute after discard = %+v, want empty", res)
	}
}

func TestDiscardAllCancelsActiveRun(t *testing.T) {
	r := newGateResolver(map[string][]string{"a.h": {"slow.h"}}, "slow.h")
	e := New(r, Config{})
	e.Enqueue("a.h", nil)

	c := e.Compute(context.Background())
	<-r.started
	e.DiscardAll()

	if _, ok := c.Result(); !ok {
		t.Fatal("DiscardAll() should wait for the active run to stop")
	}
	if e.NodeCount() != 0 {
		t.Errorf("NodeCount() = %d, want 0", e.NodeCount())
	}
}

func TestInsertDuplicateVertexPanics(t *testing.T) {
	s := newStore()
	s.insert("a.h")

	defer func() {
		if recover() == nil {
			t.Error("inserting a duplicate vertex should panic")
		}
	}()
	s.insert("a.h")
}

func TestStoreReset(t *testing.T) {
	s := newStore()
	a := s.insert("a.h")
	b := s.insert("b.h")
	s.link(a, b)

	s.reset()
	if _, ok := s.find("a.h"); ok {
		t.Error("find() should fail after reset")
	}
	if s.edges != 0 || len(s.nodes) != 0 {
		t.Error("reset should drop all nodes and edges")
	}
	if h := s.insert("a.h"); h != 0 {
		t.Errorf("first handle after reset = %d, want 0", h)
	}
}

// releaseResolver holds the lookup of hold until release is closed and
// counts lookups per file.
type releaseResolver struct {
	includes map[string][]string
	hold     string
	entered  chan struct{}
	release  chan struct{}

	mu    sync.Mutex
	calls map[string]int
}

func (r *releaseResolver) DirectIncludes(ctx context.Context, path string, opts Options) ([]string, error) {
	r.mu.Lock()
	r.calls[path]++
	r.mu.Unlock()
	if path == r.hold {
		close(r.entered)
		<-r.release
	}
	return r.includes[path], nil
}

func TestCancelledRunResolvesNoNewFrame(t *testing.T) {
	r := &releaseResolver{
		includes: map[string][]string{"x.h": {"y.h"}, "a.h": {"b.h"}, "b.h": {"c.h"}},
		hold:     "a.h",
		entered:  make(chan struct{}),
		release:  make(chan struct{}),
		calls:    make(map[string]int),
	}
	e := New(r, Config{})
	e.Enqueue("x.h", nil)
	e.Enqueue("a.h", nil)

	ctx, cancel := context.WithCancel(context.Background())
	c := e.Compute(ctx)
	<-r.entered

	// The visitor runs under the read lock, so the worker stalls on
	// inserting b.h until the context is already cancelled.
	e.CollectDependencies("x.h", DirectIncludes, func(string) bool {
		close(r.release)
		time.Sleep(50 * time.Millisecond)
		cancel()
		return true
	})

	res := waitResult(t, c)
	if !res.Cancelled {
		t.Error("run should be cancelled")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if n := r.calls["b.h"]; n != 0 {
		t.Errorf("b.h resolved %d times after cancellation, want 0", n)
	}
	if _, ok := e.Vertex("c.h"); ok {
		t.Error("c.h should not be discovered")
	}
}
