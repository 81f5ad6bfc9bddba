package trace

import (
	"time"

	"go.uber.org/zap/zapcore"
)

// Kind is the type of a trace event.
type Kind uint8

const (
	KindSpanBegin Kind = iota + 1
	KindSpanEnd
	KindPoint
	KindHeartbeat
)

func (k Kind) String() string {
	switch k {
	case KindSpanBegin:
		return "begin"
	case KindSpanEnd:
		return "end"
	case KindPoint:
		return "point"
	case KindHeartbeat:
		return "heartbeat"
	default:
		return "unknown"
	}
}

func (k Kind) arrow() string {
	switch k {
	case KindSpanBegin:
		return "→"
	case KindSpanEnd:
		return "←"
	case KindHeartbeat:
		return "♡"
	default:
		return "•"
	}
}

// Scope is the granularity of an event; lower values are coarser.
type Scope uint8

const (
	// ScopeDriver covers CLI and driver operations.
	ScopeDriver Scope = iota + 1
	// ScopeEntry covers the expensive entry points (infer, trait_solve).
	ScopeEntry
	// ScopeQuery covers a single derived query evaluation.
	ScopeQuery
	// ScopeDetail covers waits, validation and cycle recovery.
	ScopeDetail
)

func (s Scope) String() string {
	switch s {
	case ScopeDriver:
		return "driver"
	case ScopeEntry:
		return "entry"
	case ScopeQuery:
		return "query"
	case ScopeDetail:
		return "detail"
	default:
		return "unknown"
	}
}

// Event is one trace record. Query spans carry the runtime that evaluated
// them, the revision it was bound to and the rendered key.
type Event struct {
	Time     time.Time     `msgpack:"t"`
	Seq      uint64        `msgpack:"seq"`
	Kind     Kind          `msgpack:"k"`
	Scope    Scope         `msgpack:"s"`
	SpanID   uint64        `msgpack:"id"`
	ParentID uint64        `msgpack:"parent,omitempty"`
	Runtime  uint64        `msgpack:"rt,omitempty"`
	Revision uint64        `msgpack:"rev,omitempty"`
	Name     string        `msgpack:"name"`
	Key      string        `msgpack:"key,omitempty"`
	Outcome  string        `msgpack:"outcome,omitempty"`
	Elapsed  time.Duration `msgpack:"elapsed,omitempty"`
}

// MarshalLogObject renders the event's fields for the zap encoders.
func (ev *Event) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddUint64("seq", ev.Seq)
	enc.AddString("kind", ev.Kind.String())
	enc.AddString("scope", ev.Scope.String())
	if ev.SpanID != 0 {
		enc.AddUint64("span", ev.SpanID)
	}
	if ev.ParentID != 0 {
		enc.AddUint64("parent", ev.ParentID)
	}
	if ev.Runtime != 0 {
		enc.AddUint64("rt", ev.Runtime)
	}
	if ev.Revision != 0 {
		enc.AddUint64("rev", ev.Revision)
	}
	if ev.Key != "" {
		enc.AddString("key", ev.Key)
	}
	if ev.Outcome != "" {
		enc.AddString("outcome", ev.Outcome)
	}
	if ev.Kind == KindSpanEnd {
		enc.AddDuration("elapsed", ev.Elapsed)
	}
	return nil
}

// Attr sets optional fields of a span's events.
type Attr func(*Event)

// WithKey records the key the span evaluates. The key is rendered only
// when the span is emitted.
func WithKey(key any) Attr {
	return func(ev *Event) { ev.Key = renderKey(key) }
}

// WithRuntime records the runtime and revision a span runs on.
func WithRuntime(runtime, revision uint64) Attr {
	return func(ev *Event) {
		ev.Runtime = runtime
		ev.Revision = revision
	}
}
