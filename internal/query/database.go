package query

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"tyinc/internal/observ"
	"tyinc/internal/trace"
)

// ingredient is the type-erased view of a query or input kind that the
// engine needs to validate dependency edges.
type ingredient interface {
	name() string
	// maybeChangedAfter brings the keyed value up to date and reports whether
	// it changed after the given revision.
	maybeChangedAfter(rt *Runtime, key any, after Revision) bool
	// recoverable reports whether the kind has a cycle recovery function.
	recoverable() bool
	counters() *observ.QueryCounters
}

// dependency is one recorded read edge.
type dependency struct {
	ing ingredient
	key any
}

// waitEdge records that a runtime is blocked on a claim held by owner.
type waitEdge struct {
	owner *Runtime
	claim *claim
	ing   ingredient
	key   any
}

// Option configures a Database.
type Option func(*Database)

// WithTracer sets the tracer used for query spans.
func WithTracer(t trace.Tracer) Option {
	return func(db *Database) {
		if t != nil {
			db.tracer = t
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *zap.Logger) Option {
	return func(db *Database) {
		if l != nil {
			db.logger = l
		}
	}
}

// Database is the shared store: revision counter, query registry, wait-for
// graph. Independent databases share nothing, so tests can run side by side.
type Database struct {
	// lock is held shared by every attached runtime and exclusively by writes.
	lock         sync.RWMutex
	pendingWrite atomic.Int32
	revision     atomic.Uint64

	regMu       sync.Mutex
	ingredients []ingredient

	waitMu sync.Mutex
	waits  map[*Runtime]waitEdge

	nextRuntime atomic.Uint64
	cycles      cycleHistory

	tracer trace.Tracer
	logger *zap.Logger
}

// New creates an empty database at FirstRevision.
func New(opts ...Option) *Database {
	db := &Database{
		waits:  make(map[*Runtime]waitEdge),
		tracer: trace.Nop,
		logger: zap.NewNop(),
	}
	db.revision.Store(uint64(FirstRevision))
	for _, opt := range opts {
		opt(db)
	}
	return db
}

// Revision returns the current revision.
func (db *Database) Revision() Revision {
	return Revision(db.revision.Load())
}

// Logger returns the database's logger.
func (db *Database) Logger() *zap.Logger { return db.logger }

// Tracer returns the database's tracer.
func (db *Database) Tracer() trace.Tracer { return db.tracer }

func (db *Database) register(ing ingredient) {
	db.regMu.Lock()
	db.ingredients = append(db.ingredients, ing)
	db.regMu.Unlock()
}

// Attach opens a read session bound to the current revision. The returned
// function must be called to release it; writes wait for every attached
// runtime to detach. Attach must not be called while the same goroutine
// holds another attached runtime.
func (db *Database) Attach(ctx context.Context) (*Runtime, func()) {
	if ctx == nil {
		ctx = context.Background()
	}
	db.lock.RLock()
	rt := &Runtime{
		db:       db,
		id:       db.nextRuntime.Add(1),
		ctx:      ctx,
		revision: db.Revision(),
	}
	var once sync.Once
	return rt, func() {
		once.Do(db.lock.RUnlock)
	}
}

// Run attaches a runtime, evaluates fn, and detaches. Cancellation surfaces
// as an error wrapping ErrCancelled.
func Run[V any](ctx context.Context, db *Database, fn func(rt *Runtime) V) (result V, err error) {
	rt, detach := db.Attach(ctx)
	defer detach()
	defer func() {
		if r := recover(); r != nil {
			c, ok := r.(cancelled)
			if !ok {
				panic(r)
			}
			var zero V
			result = zero
			err = errors.Wrapf(ErrCancelled, "runtime %d at %s", rt.id, rt.revision)
			if c.cause != nil {
				err = errors.WithSecondaryError(err, c.cause)
			}
		}
	}()
	return fn(rt), nil
}

// write cancels in-flight runtimes, waits for them to detach, bumps the
// revision and applies fn under the exclusive lock.
func (db *Database) write(fn func(rev Revision)) Revision {
	db.pendingWrite.Add(1)
	db.lock.Lock()
	db.pendingWrite.Add(-1)
	rev := Revision(db.revision.Add(1))
	fn(rev)
	db.lock.Unlock()
	return rev
}

// SyntheticWrite bumps the revision without changing any input. Every memo
// then takes the deep-verification path on its next read.
func (db *Database) SyntheticWrite() Revision {
	rev := db.write(func(Revision) {})
	db.logger.Debug("synthetic write", zap.Stringer("revision", rev))
	return rev
}

// Stats returns per-kind counters in registration order.
func (db *Database) Stats() observ.QueryReport {
	db.regMu.Lock()
	ings := append([]ingredient(nil), db.ingredients...)
	db.regMu.Unlock()
	report := observ.QueryReport{
		Revision: uint64(db.Revision()),
		Queries:  make([]observ.QueryStats, 0, len(ings)),
	}
	for _, ing := range ings {
		report.Queries = append(report.Queries, ing.counters().Snapshot(ing.name()))
	}
	return report
}

// blockOn registers rt as waiting for a claim held by another runtime. When
// the wait would close a cycle back to rt, nothing is registered and the
// cycle is returned instead. With mark set and every member recoverable, the
// frames of the other runtimes in the chain are marked to publish their
// fallbacks; they stay parked until rt releases its claims, so their stacks
// are stable while waitMu is held.
func (db *Database) blockOn(rt *Runtime, c *claim, ing ingredient, key any, mark bool) *crossCycle {
	db.waitMu.Lock()
	defer db.waitMu.Unlock()
	links := []waitEdge{{owner: c.owner, claim: c, ing: ing, key: key}}
	cur := c.owner
	for range len(db.waits) + 1 {
		e, ok := db.waits[cur]
		if !ok || e.claim.released.Load() {
			break
		}
		if e.owner == rt {
			return closeCycle(rt, e, links, mark)
		}
		links = append(links, e)
		cur = e.owner
	}
	db.waits[rt] = waitEdge{owner: c.owner, claim: c, ing: ing, key: key}
	return nil
}

// crossCycle is a cycle that spans several runtimes.
type crossCycle struct {
	// head is the index of rt's frame that the chain waits on.
	head        int
	members     []Participant
	recoverable bool
}

// closeCycle collects the members of a cycle that leaves rt at the frame for
// last's key and comes back through links. Called with waitMu held.
func closeCycle(rt *Runtime, last waitEdge, links []waitEdge, mark bool) *crossCycle {
	head := max(rt.indexOf(last.ing, last.key), 0)
	members := rt.participants(head, nil)
	recoverable := framesRecoverable(rt.stack[head:])
	parked := make([][]*frame, 0, len(links))
	for _, l := range links {
		i := max(l.owner.indexOf(l.ing, l.key), 0)
		frames := l.owner.stack[i:]
		for _, f := range frames {
			members = append(members, f.participant())
		}
		recoverable = recoverable && framesRecoverable(frames)
		parked = append(parked, frames)
	}
	if mark && recoverable {
		for _, frames := range parked {
			for _, f := range frames {
				if f.cycle == nil {
					f.cycle = members
				}
			}
		}
	}
	return &crossCycle{head: head, members: members, recoverable: recoverable}
}

func (db *Database) unblock(rt *Runtime) {
	db.waitMu.Lock()
	delete(db.waits, rt)
	db.waitMu.Unlock()
}
