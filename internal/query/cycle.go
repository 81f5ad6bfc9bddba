package query

import (
	"sync"

	"go.uber.org/zap"
)

// cycleHistoryLimit bounds the number of cycles a database remembers.
const cycleHistoryLimit = 64

// CycleRecord describes one detected cycle.
type CycleRecord struct {
	Revision     Revision
	Participants []Participant
	Recovered    bool
	// CrossRuntime is set when the cycle spanned several runtimes through the
	// wait-for graph.
	CrossRuntime bool
}

// cycleHistory keeps the most recent cycles for diagnostics.
type cycleHistory struct {
	mu      sync.Mutex
	records []CycleRecord
}

func (h *cycleHistory) add(rec CycleRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.records) == cycleHistoryLimit {
		copy(h.records, h.records[1:])
		h.records = h.records[:cycleHistoryLimit-1]
	}
	h.records = append(h.records, rec)
}

func (h *cycleHistory) snapshot() []CycleRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]CycleRecord(nil), h.records...)
}

// Cycles returns the most recently detected cycles, oldest first.
func (db *Database) Cycles() []CycleRecord {
	return db.cycles.snapshot()
}

// participants lists the stack frames from i to the top, followed by extra.
func (rt *Runtime) participants(i int, extra *Participant) []Participant {
	if i < 0 {
		i = 0
	}
	out := make([]Participant, 0, len(rt.stack)-i+1)
	for _, f := range rt.stack[i:] {
		out = append(out, f.participant())
	}
	if extra != nil {
		out = append(out, *extra)
	}
	return out
}

// framesRecoverable reports whether every frame's kind has a recovery
// function.
func framesRecoverable(frames []*frame) bool {
	for _, f := range frames {
		if !f.ing.recoverable() {
			return false
		}
	}
	return true
}

// cycle handles a request for key that closes a cycle through rt's frames
// from index i upward. When every participant can recover, each frame is
// marked to produce its fallback and the requester receives key's fallback.
// Otherwise the runtime unwinds to the frame at i. A non-nil cross carries
// the members parked in other runtimes; blockOn has already marked them.
func (q *Query[K, V]) cycle(rt *Runtime, i int, key K, cross *crossCycle) V {
	if i < 0 {
		i = 0
	}
	frames := rt.stack[i:]
	members := rt.participants(i, nil)
	recoverable := q.recovery != nil && framesRecoverable(frames)
	if cross != nil {
		members = cross.members
		recoverable = recoverable && cross.recoverable
	}
	rt.db.cycles.add(CycleRecord{
		Revision:     rt.revision,
		Participants: members,
		Recovered:    recoverable,
		CrossRuntime: cross != nil,
	})

	if !recoverable || len(frames) == 0 {
		err := &CycleError{Participants: members}
		rt.db.logger.Debug("query cycle without recovery",
			zap.String("query", q.label),
			zap.Stringer("revision", rt.revision),
			zap.Bool("cross_runtime", cross != nil),
			zap.Error(err))
		if len(frames) == 0 {
			var zero V
			return zero
		}
		panic(&cycleUnwind{head: frames[0], err: err})
	}

	for _, f := range frames {
		if f.cycle == nil {
			f.cycle = members
		}
	}
	rt.db.logger.Debug("query cycle recovered",
		zap.String("query", q.label),
		zap.Stringer("revision", rt.revision),
		zap.Bool("cross_runtime", cross != nil),
		zap.Int("participants", len(members)),
		zap.Stringers("cycle", members))
	return q.recovery(rt, members, key)
}
