package trace

import (
	"fmt"
	"sync/atomic"
	"time"
)

var (
	seqCounter  atomic.Uint64
	spanCounter atomic.Uint64
	// openSpans counts spans begun on an enabled tracer and not yet ended.
	openSpans atomic.Int64
)

func nextSeq() uint64 { return seqCounter.Add(1) }

// OpenSpans returns the number of spans currently in flight.
func OpenSpans() int64 { return openSpans.Load() }

func renderKey(key any) string {
	switch k := key.(type) {
	case nil:
		return ""
	case string:
		return k
	case fmt.Stringer:
		return k.String()
	default:
		return fmt.Sprintf("%v", k)
	}
}

// Span is an open begin/end pair. The zero Span (and a nil *Span) is inert,
// so callers never check whether tracing is on.
type Span struct {
	tracer Tracer
	begin  Event
}

// Begin opens a span under parent (0 for a root span) and emits its begin
// event. Attributes are evaluated only when the scope is emitted.
func Begin(t Tracer, scope Scope, name string, parent uint64, attrs ...Attr) *Span {
	if t == nil || !t.Enabled() || !t.Level().ShouldEmit(scope) {
		return &Span{}
	}
	ev := Event{
		Time:     time.Now(),
		Kind:     KindSpanBegin,
		Scope:    scope,
		SpanID:   spanCounter.Add(1),
		ParentID: parent,
		Name:     name,
	}
	for _, a := range attrs {
		a(&ev)
	}
	s := &Span{tracer: t, begin: ev}
	openSpans.Add(1)
	emit(t, ev)
	return s
}

// End emits the span's end event with outcome and returns the elapsed time.
// Ending a span twice emits nothing the second time.
func (s *Span) End(outcome string) time.Duration {
	if s == nil || s.tracer == nil {
		return 0
	}
	ev := s.begin
	ev.Kind = KindSpanEnd
	ev.Time = time.Now()
	ev.Elapsed = ev.Time.Sub(s.begin.Time)
	ev.Outcome = outcome
	t := s.tracer
	s.tracer = nil
	openSpans.Add(-1)
	emit(t, ev)
	return ev.Elapsed
}

// ID returns the span ID, 0 for an inert span.
func (s *Span) ID() uint64 {
	if s == nil {
		return 0
	}
	return s.begin.SpanID
}

// Point emits an instant event under parent.
func Point(t Tracer, scope Scope, name, outcome string, parent uint64, attrs ...Attr) {
	if t == nil || !t.Enabled() || !t.Level().ShouldEmit(scope) {
		return
	}
	ev := Event{
		Time:     time.Now(),
		Kind:     KindPoint,
		Scope:    scope,
		ParentID: parent,
		Name:     name,
		Outcome:  outcome,
	}
	for _, a := range attrs {
		a(&ev)
	}
	emit(t, ev)
}

func emit(t Tracer, ev Event) {
	ev.Seq = nextSeq()
	t.Emit(&ev)
}
