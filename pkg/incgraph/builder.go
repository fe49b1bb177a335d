package incgraph

import (
	"context"
	"time"

	"github.com/matzehuels/incgraph/pkg/observability"
)

// pendingFile is a top-level file waiting for the next compute run.
type pendingFile struct {
	path string
	opts Options
}

// frame is one level of the explicit expansion stack. A frame whose vertex
// was created during this expansion carries the parent that discovered it;
// the parent edge is linked when the frame is popped, matching the order a
// recursive expansion would produce.
type frame struct {
	h        Handle
	parent   Handle
	includes []string
	next     int
	resolved bool
}

const noParent Handle = -1

// buildAll drains the pending queue in FIFO order. It returns the context
// error if cancellation was observed at a checkpoint.
func (e *Engine) buildAll(ctx context.Context, st *runStats) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		e.mu.Lock()
		if len(e.pending) == 0 {
			e.mu.Unlock()
			return nil
		}
		f := e.pending[0]
		e.pending[0] = pendingFile{}
		e.pending = e.pending[1:]
		h, exists := e.g.find(f.path)
		if !exists {
			h = e.g.insert(f.path)
		}
		e.mu.Unlock()

		st.files++
		if exists {
			e.cfg.Logger.Debug("already resolved", "file", f.path)
			continue
		}
		if err := e.expand(ctx, h, f.opts); err != nil {
			return err
		}
	}
}

// expand walks the includes of root depth-first. Every newly discovered file
// gets its vertex before it is descended into, so reaching a file that is
// still being expanded records the edge and stops there.
func (e *Engine) expand(ctx context.Context, root Handle, opts Options) error {
	stack := []frame{{h: root, parent: noParent}}

	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if !top.resolved {
			if err := ctx.Err(); err != nil {
				e.unwind(&stack)
				return err
			}
			top.includes = e.resolve(ctx, e.g.path(top.h), opts)
			top.resolved = true
		}

		if top.next == len(top.includes) {
			e.pop(&stack)
			continue
		}

		if err := ctx.Err(); err != nil {
			e.unwind(&stack)
			return err
		}

		cur := top.h
		inc := top.includes[top.next]
		top.next++

		e.mu.Lock()
		h, ok := e.g.find(inc)
		if ok {
			e.g.link(cur, h)
			e.mu.Unlock()
			continue
		}
		h = e.g.insert(inc)
		e.mu.Unlock()

		stack = append(stack, frame{h: h, parent: cur})
	}
	return nil
}

// unwind pops every frame so vertices created for the walk keep their
// parent edges.
func (e *Engine) unwind(stack *[]frame) {
	for len(*stack) > 0 {
		e.pop(stack)
	}
}

func (e *Engine) pop(stack *[]frame) {
	s := *stack
	f := s[len(s)-1]
	*stack = s[:len(s)-1]
	if f.parent == noParent {
		return
	}
	e.mu.Lock()
	e.g.link(f.parent, f.h)
	e.mu.Unlock()
}

// resolve asks the resolver for the direct includes of path. Resolver
// failures are indistinguishable from a leaf file.
func (e *Engine) resolve(ctx context.Context, path string, opts Options) []string {
	start := time.Now()
	incs, err := e.resolver.DirectIncludes(ctx, path, opts)
	observability.Resolver().OnResolve(ctx, path, len(incs), time.Since(start), err)
	if err != nil {
		e.cfg.Logger.Debug("resolve failed", "file", path, "err", err)
		return nil
	}

	out := make([]string, 0, len(incs))
	for _, inc := range incs {
		if inc == "" {
			continue
		}
		out = append(out, Canonical(inc))
	}
	return out
}
