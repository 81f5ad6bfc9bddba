package query

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"tyinc/internal/observ"
)

type inputSlot[V any] struct {
	value     V
	present   bool
	changedAt Revision
}

// Input is an externally set query kind. Every write bumps the database
// revision and stamps the value with it.
type Input[K comparable, V any] struct {
	db    *Database
	label string

	mu    sync.RWMutex
	slots map[K]*inputSlot[V]
	stats observ.QueryCounters
}

// DefineInput registers an input kind on db.
func DefineInput[K comparable, V any](db *Database, name string) *Input[K, V] {
	in := &Input[K, V]{
		db:    db,
		label: name,
		slots: make(map[K]*inputSlot[V]),
	}
	db.register(in)
	return in
}

// Name returns the input kind's name.
func (in *Input[K, V]) Name() string { return in.label }

func (in *Input[K, V]) name() string                    { return in.label }
func (in *Input[K, V]) recoverable() bool               { return false }
func (in *Input[K, V]) counters() *observ.QueryCounters { return &in.stats }

// Set stores value for key in a new revision. In-flight runtimes are
// cancelled first.
func (in *Input[K, V]) Set(key K, value V) Revision {
	rev := in.db.write(func(rev Revision) {
		in.mu.Lock()
		in.slots[key] = &inputSlot[V]{value: value, present: true, changedAt: rev}
		in.mu.Unlock()
	})
	if ce := in.db.logger.Check(zap.DebugLevel, "input set"); ce != nil {
		ce.Write(zap.String("input", in.label), zap.String("key", fmt.Sprint(key)), zap.Stringer("revision", rev))
	}
	return rev
}

// Remove deletes key's value in a new revision. Readers then observe the
// key as absent.
func (in *Input[K, V]) Remove(key K) Revision {
	rev := in.db.write(func(rev Revision) {
		in.mu.Lock()
		in.slots[key] = &inputSlot[V]{changedAt: rev}
		in.mu.Unlock()
	})
	if ce := in.db.logger.Check(zap.DebugLevel, "input removed"); ce != nil {
		ce.Write(zap.String("input", in.label), zap.String("key", fmt.Sprint(key)), zap.Stringer("revision", rev))
	}
	return rev
}

// Get returns key's value, or the zero value when it is not set.
func (in *Input[K, V]) Get(rt *Runtime, key K) V {
	v, _ := in.Lookup(rt, key)
	return v
}

// Lookup returns key's value and whether it is set. The read is recorded in
// the caller's active evaluation either way.
func (in *Input[K, V]) Lookup(rt *Runtime, key K) (V, bool) {
	rt.CheckCancelled()
	in.mu.RLock()
	s := in.slots[key]
	in.mu.RUnlock()
	in.stats.Hits.Add(1)
	if s == nil {
		rt.record(in, key, NoRevision)
		var zero V
		return zero, false
	}
	rt.record(in, key, s.changedAt)
	return s.value, s.present
}

// Keys returns the keys that currently hold a value, in no particular order.
// It records no dependency.
func (in *Input[K, V]) Keys() []K {
	in.mu.RLock()
	defer in.mu.RUnlock()
	out := make([]K, 0, len(in.slots))
	for k, s := range in.slots {
		if s.present {
			out = append(out, k)
		}
	}
	return out
}

func (in *Input[K, V]) maybeChangedAfter(_ *Runtime, key any, after Revision) bool {
	in.mu.RLock()
	s := in.slots[key.(K)]
	in.mu.RUnlock()
	return s != nil && s.changedAt > after
}
