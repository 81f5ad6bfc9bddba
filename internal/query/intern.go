package query

import (
	"fmt"
	"sync"

	"fortio.org/safecast"
)

// Interner maps composite values to dense handles for the lifetime of a
// session. Handle 0 is never issued and serves as the invalid sentinel.
// Tables only grow; handles stay valid because cached results embed them.
type Interner[T comparable, ID ~uint32] struct {
	label  string
	mu     sync.RWMutex
	values []T
	index  map[T]ID
}

// NewInterner creates an empty interner.
func NewInterner[T comparable, ID ~uint32](name string) *Interner[T, ID] {
	var zero T
	return &Interner[T, ID]{
		label:  name,
		values: []T{zero}, // reserve 0 as invalid sentinel
		index:  make(map[T]ID, 64),
	}
}

// Name returns the interner's name.
func (in *Interner[T, ID]) Name() string { return in.label }

// Intern returns the handle for v, allocating one on first sight.
func (in *Interner[T, ID]) Intern(v T) ID {
	in.mu.RLock()
	id, ok := in.index[v]
	in.mu.RUnlock()
	if ok {
		return id
	}

	in.mu.Lock()
	defer in.mu.Unlock()
	if id, ok := in.index[v]; ok {
		return id
	}
	n, err := safecast.Conv[uint32](len(in.values))
	if err != nil {
		panic(fmt.Errorf("%s: handle space exhausted: %w", in.label, err))
	}
	id = ID(n)
	in.values = append(in.values, v)
	in.index[v] = id
	return id
}

// Lookup returns the value behind id. Handles this interner never issued
// are an invariant breach and panic.
func (in *Interner[T, ID]) Lookup(id ID) T {
	in.mu.RLock()
	defer in.mu.RUnlock()
	if id == 0 || int(id) >= len(in.values) {
		panic(fmt.Sprintf("%s: lookup of unissued handle %d", in.label, uint32(id)))
	}
	return in.values[id]
}

// Len returns the number of issued handles.
func (in *Interner[T, ID]) Len() int {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return len(in.values) - 1
}
