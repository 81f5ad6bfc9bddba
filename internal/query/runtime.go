package query

import (
	"context"

	"tyinc/internal/trace"
)

// frame is one entry of a runtime's active-evaluation stack.
type frame struct {
	ing       ingredient
	key       any
	deps      []dependency
	seen      map[dependency]struct{}
	changedAt Revision
	// cycle is set when the frame takes part in a recovered cycle; its
	// result is then replaced by its kind's fallback. Another runtime may set
	// it under waitMu while this runtime is parked in the wait-for graph.
	cycle []Participant
	span  *trace.Span
}

func (f *frame) participant() Participant {
	return Participant{Query: f.ing.name(), Key: f.key}
}

func (f *frame) record(ing ingredient, key any, changedAt Revision) {
	dep := dependency{ing: ing, key: key}
	if f.seen == nil {
		f.seen = make(map[dependency]struct{}, 8)
	}
	if _, dup := f.seen[dep]; !dup {
		f.seen[dep] = struct{}{}
		f.deps = append(f.deps, dep)
	}
	if changedAt > f.changedAt {
		f.changedAt = changedAt
	}
}

func (f *frame) reset() {
	f.deps = nil
	f.seen = nil
	f.changedAt = NoRevision
}

// Runtime is a single-goroutine read session over a Database. It carries the
// active-evaluation stack used for dependency recording and cycle detection,
// so a Runtime must not be shared between goroutines; attach one per
// goroutine instead.
type Runtime struct {
	db       *Database
	id       uint64
	ctx      context.Context
	revision Revision
	stack    []*frame
}

// Database returns the database the runtime reads from.
func (rt *Runtime) Database() *Database { return rt.db }

// Revision returns the revision the runtime is bound to.
func (rt *Runtime) Revision() Revision { return rt.revision }

// Context returns the context the runtime was attached with.
func (rt *Runtime) Context() context.Context { return rt.ctx }

// Depth returns the number of in-flight evaluations on the runtime's stack.
func (rt *Runtime) Depth() int { return len(rt.stack) }

// Cancelled reports whether the runtime's work has been superseded, either by
// a pending write or by its context.
func (rt *Runtime) Cancelled() bool {
	return rt.db.pendingWrite.Load() > 0 || rt.ctx.Err() != nil
}

// CheckCancelled unwinds the runtime when its work has been superseded. Long
// loops inside query functions (inference, solving) call it periodically;
// every store operation calls it as well.
func (rt *Runtime) CheckCancelled() {
	if rt.db.pendingWrite.Load() > 0 {
		panic(cancelled{})
	}
	if err := rt.ctx.Err(); err != nil {
		panic(cancelled{cause: err})
	}
}

// SpanID returns the trace span of the innermost evaluation, 0 at top level.
func (rt *Runtime) SpanID() uint64 {
	if f := rt.top(); f != nil {
		return f.span.ID()
	}
	return 0
}

func (rt *Runtime) top() *frame {
	if len(rt.stack) == 0 {
		return nil
	}
	return rt.stack[len(rt.stack)-1]
}

func (rt *Runtime) push(ing ingredient, key any, scope trace.Scope) *frame {
	f := &frame{ing: ing, key: key}
	f.span = trace.Begin(rt.db.tracer, scope, ing.name(), rt.SpanID(),
		trace.WithKey(key), trace.WithRuntime(rt.id, uint64(rt.revision)))
	rt.stack = append(rt.stack, f)
	return f
}

func (rt *Runtime) pop(f *frame) {
	n := len(rt.stack)
	if n == 0 || rt.stack[n-1] != f {
		panic("query: active stack corrupted")
	}
	rt.stack[n-1] = nil
	rt.stack = rt.stack[:n-1]
}

// record adds a read edge to the innermost evaluation, if any.
func (rt *Runtime) record(ing ingredient, key any, changedAt Revision) {
	if f := rt.top(); f != nil {
		f.record(ing, key, changedAt)
	}
}

// indexOf returns the stack position of the evaluation for (ing, key).
func (rt *Runtime) indexOf(ing ingredient, key any) int {
	for i := len(rt.stack) - 1; i >= 0; i-- {
		f := rt.stack[i]
		if f.ing == ing && f.key == key {
			return i
		}
	}
	return -1
}

// depsChangedAfter reports whether any dependency changed after rev.
func (rt *Runtime) depsChangedAfter(deps []dependency, rev Revision) bool {
	for _, d := range deps {
		if d.ing.maybeChangedAfter(rt, d.key, rev) {
			return true
		}
	}
	return false
}
