package trace

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

const defaultRingSize = 4096

// Tracer receives trace events. Implementations are safe for concurrent
// use: query runtimes on different goroutines share one tracer.
type Tracer interface {
	Emit(ev *Event)
	Flush() error
	Close() error
	Level() Level
	Enabled() bool
}

// StorageMode selects where events go.
type StorageMode uint8

const (
	ModeStream StorageMode = iota + 1 // written as they arrive
	ModeRing                          // kept in memory
	ModeBoth
)

var modeNames = map[string]StorageMode{"stream": ModeStream, "ring": ModeRing, "both": ModeBoth}

func (m StorageMode) String() string {
	for name, mode := range modeNames {
		if mode == m {
			return name
		}
	}
	return "unknown"
}

// ParseMode converts a mode name; the empty string is ModeStream.
func ParseMode(s string) (StorageMode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ModeStream, nil
	}
	if m, ok := modeNames[s]; ok {
		return m, nil
	}
	return 0, errors.Newf("invalid trace mode %q (expected stream|ring|both)", s)
}

// Config describes a tracer.
type Config struct {
	Level      Level
	Mode       StorageMode
	Format     Format    // FormatAuto picks from OutputPath
	Output     io.Writer // overrides OutputPath
	OutputPath string    // "-" or empty for stderr
	RingSize   int
	Heartbeat  time.Duration
}

// New builds the tracer cfg describes. LevelOff yields Nop.
func New(cfg Config) (Tracer, error) {
	if cfg.Level == LevelOff {
		return Nop, nil
	}
	format := cfg.Format
	if format == FormatAuto {
		format = FormatFor(cfg.OutputPath)
	}

	var ring *RingTracer
	if cfg.Mode == ModeRing || cfg.Mode == ModeBoth {
		ring = NewRingTracer(cfg.RingSize, cfg.Level)
	}
	switch cfg.Mode {
	case ModeRing:
		return ring, nil
	case ModeStream, ModeBoth:
		w, err := openOutput(cfg)
		if err != nil {
			return nil, err
		}
		stream := NewStreamTracer(w, cfg.Level, format)
		if ring == nil {
			return stream, nil
		}
		return &tee{stream: stream, ring: ring}, nil
	default:
		return nil, errors.Newf("unknown trace mode %d", cfg.Mode)
	}
}

// Ring returns the in-memory buffer behind t, if it has one.
func Ring(t Tracer) (*RingTracer, bool) {
	switch t := t.(type) {
	case *RingTracer:
		return t, true
	case *tee:
		return t.ring, true
	}
	return nil, false
}

func openOutput(cfg Config) (io.Writer, error) {
	if cfg.Output != nil {
		return cfg.Output, nil
	}
	if cfg.OutputPath == "" || cfg.OutputPath == "-" {
		return stderrWriter{os.Stderr}, nil
	}
	f, err := os.Create(cfg.OutputPath)
	if err != nil {
		return nil, errors.Wrap(err, "open trace output")
	}
	return f, nil
}

// stderrWriter keeps Close and Sync away from os.Stderr.
type stderrWriter struct{ io.Writer }

// tee feeds a stream and a ring from one event flow.
type tee struct {
	stream *StreamTracer
	ring   *RingTracer
}

func (t *tee) Emit(ev *Event) {
	t.stream.Emit(ev)
	t.ring.Emit(ev)
}

func (t *tee) Flush() error { return t.stream.Flush() }

func (t *tee) Close() error { return errors.CombineErrors(t.stream.Close(), t.ring.Close()) }

func (t *tee) Level() Level  { return t.stream.Level() }
func (t *tee) Enabled() bool { return t.stream.Enabled() }
