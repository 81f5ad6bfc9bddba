package query

import (
	"reflect"
	"sync"
	"sync/atomic"

	"tyinc/internal/observ"
	"tyinc/internal/trace"
)

// memo is a published result. Memos are never mutated; re-verification
// replaces the slot's memo with a re-stamped copy.
type memo[V any] struct {
	value      V
	changedAt  Revision
	verifiedAt Revision
	deps       []dependency
	// fromCycle marks a recovery fallback. Such memos are re-executed rather
	// than deep-verified in later revisions.
	fromCycle bool
}

// claim marks a key as being evaluated by one runtime. Other requesters wait
// on done.
type claim struct {
	owner    *Runtime
	done     chan struct{}
	released atomic.Bool
}

func (c *claim) release() {
	if c.released.CompareAndSwap(false, true) {
		close(c.done)
	}
}

type slot[V any] struct {
	memo       *memo[V]
	claim      *claim
	executions int
}

// QueryOption configures a derived query kind.
type QueryOption[K comparable, V any] func(*Query[K, V])

// WithRecovery registers the value substituted for a key when its
// evaluation takes part in a dependency cycle.
func WithRecovery[K comparable, V any](fn func(rt *Runtime, cycle []Participant, key K) V) QueryOption[K, V] {
	return func(q *Query[K, V]) { q.recovery = fn }
}

// WithEqual replaces the structural equality used for backdating.
func WithEqual[K comparable, V any](eq func(a, b V) bool) QueryOption[K, V] {
	return func(q *Query[K, V]) {
		if eq != nil {
			q.eq = eq
		}
	}
}

// WithScope sets the trace scope of the query's evaluation spans.
func WithScope[K comparable, V any](scope trace.Scope) QueryOption[K, V] {
	return func(q *Query[K, V]) { q.scope = scope }
}

// Query is a memoized derived query kind.
type Query[K comparable, V any] struct {
	db       *Database
	label    string
	fn       func(rt *Runtime, key K) V
	recovery func(rt *Runtime, cycle []Participant, key K) V
	eq       func(a, b V) bool
	scope    trace.Scope

	mu    sync.Mutex
	slots map[K]*slot[V]
	stats observ.QueryCounters
}

// Define registers a derived query kind on db.
func Define[K comparable, V any](db *Database, name string, fn func(rt *Runtime, key K) V, opts ...QueryOption[K, V]) *Query[K, V] {
	q := &Query[K, V]{
		db:    db,
		label: name,
		fn:    fn,
		eq:    func(a, b V) bool { return reflect.DeepEqual(a, b) },
		scope: trace.ScopeQuery,
		slots: make(map[K]*slot[V]),
	}
	for _, opt := range opts {
		opt(q)
	}
	db.register(q)
	return q
}

// Name returns the query kind's name.
func (q *Query[K, V]) Name() string { return q.label }

func (q *Query[K, V]) name() string                    { return q.label }
func (q *Query[K, V]) recoverable() bool               { return q.recovery != nil }
func (q *Query[K, V]) counters() *observ.QueryCounters { return &q.stats }

// Get returns the up-to-date value for key and records the read in the
// caller's active evaluation. A key heading an unrecoverable cycle yields the
// zero value; use Fetch to observe the cycle.
func (q *Query[K, V]) Get(rt *Runtime, key K) V {
	v, _ := q.Fetch(rt, key)
	return v
}

// Fetch is Get, but reports an unrecoverable cycle headed by key as a
// *CycleError.
func (q *Query[K, V]) Fetch(rt *Runtime, key K) (V, error) {
	v, changedAt, err := q.resolve(rt, key, false)
	if err != nil {
		changedAt = rt.revision
	}
	rt.record(q, key, changedAt)
	return v, err
}

// Peek returns the memoized value without validating it.
func (q *Query[K, V]) Peek(key K) (V, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if s := q.slots[key]; s != nil && s.memo != nil {
		return s.memo.value, true
	}
	var zero V
	return zero, false
}

// Executions returns how many times the query function ran for key.
func (q *Query[K, V]) Executions(key K) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	if s := q.slots[key]; s != nil {
		return s.executions
	}
	return 0
}

func (q *Query[K, V]) maybeChangedAfter(rt *Runtime, key any, after Revision) bool {
	_, changedAt, err := q.resolve(rt, key.(K), true)
	return err != nil || changedAt > after
}

func (q *Query[K, V]) slot(key K) *slot[V] {
	s := q.slots[key]
	if s == nil {
		s = &slot[V]{}
		q.slots[key] = s
	}
	return s
}

// resolve brings key's memo up to date for rt's revision. In probe mode a
// cycle through key is reported as an error instead of being recovered, and
// the caller treats the key as changed.
func (q *Query[K, V]) resolve(rt *Runtime, key K, probe bool) (V, Revision, error) {
	var zero V
	for {
		rt.CheckCancelled()
		q.mu.Lock()
		s := q.slot(key)
		if m := s.memo; m != nil && m.verifiedAt == rt.revision {
			q.mu.Unlock()
			q.stats.Hits.Add(1)
			return m.value, m.changedAt, nil
		}
		if c := s.claim; c != nil {
			q.mu.Unlock()
			if c.owner == rt {
				if probe {
					return zero, NoRevision, &CycleError{Participants: rt.participants(rt.indexOf(q, key), nil)}
				}
				v := q.cycle(rt, rt.indexOf(q, key), key, nil)
				return v, rt.revision, nil
			}
			if cc := rt.db.blockOn(rt, c, q, key, !probe); cc != nil {
				if probe {
					return zero, NoRevision, &CycleError{Participants: cc.members}
				}
				v := q.cycle(rt, cc.head, key, cc)
				return v, rt.revision, nil
			}
			select {
			case <-c.done:
			case <-rt.ctx.Done():
			}
			rt.db.unblock(rt)
			continue
		}
		c := &claim{owner: rt, done: make(chan struct{})}
		s.claim = c
		old := s.memo
		q.mu.Unlock()

		m, err := q.execute(rt, key, s, c, old)
		if err != nil {
			return zero, NoRevision, err
		}
		return m.value, m.changedAt, nil
	}
}

// execute runs under a claim: it deep-verifies the old memo if there is one,
// otherwise (or when verification fails) runs the query function.
func (q *Query[K, V]) execute(rt *Runtime, key K, s *slot[V], c *claim, old *memo[V]) (result *memo[V], err error) {
	f := rt.push(q, key, q.scope)
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		q.mu.Lock()
		s.claim = nil
		q.mu.Unlock()
		c.release()
		rt.pop(f)
		if u, ok := r.(*cycleUnwind); ok && u.head == f {
			f.span.End("cycle")
			result, err = nil, u.err
			return
		}
		if _, ok := r.(cancelled); ok {
			q.stats.Cancellations.Add(1)
			f.span.End("cancelled")
		} else {
			f.span.End("panic")
		}
		panic(r)
	}()

	if old != nil && !old.fromCycle {
		if !rt.depsChangedAfter(old.deps, old.verifiedAt) && f.cycle == nil {
			m := *old
			m.verifiedAt = rt.revision
			q.stats.Verifications.Add(1)
			q.publish(rt, s, c, f, &m, "verified")
			return &m, nil
		}
	}

	f.reset()
	q.stats.Executions.Add(1)
	q.mu.Lock()
	s.executions++
	q.mu.Unlock()

	value := q.fn(rt, key)
	changedAt := f.changedAt
	fromCycle := false
	if f.cycle != nil {
		value = q.recovery(rt, f.cycle, key)
		changedAt = rt.revision
		fromCycle = true
		q.stats.Recoveries.Add(1)
	}
	detail := "executed"
	if fromCycle {
		detail = "fallback"
	}
	if old != nil && q.eq(old.value, value) {
		value = old.value
		changedAt = old.changedAt
		detail += ",backdated"
		q.stats.Backdates.Add(1)
	}
	m := &memo[V]{
		value:      value,
		changedAt:  changedAt,
		verifiedAt: rt.revision,
		deps:       f.deps,
		fromCycle:  fromCycle,
	}
	q.publish(rt, s, c, f, m, detail)
	return m, nil
}

func (q *Query[K, V]) publish(rt *Runtime, s *slot[V], c *claim, f *frame, m *memo[V], detail string) {
	q.mu.Lock()
	s.memo = m
	s.claim = nil
	q.mu.Unlock()
	c.release()
	rt.pop(f)
	f.span.End(detail)
}
