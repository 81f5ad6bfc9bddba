package trace

import (
	"io"
	"sync"

	"go.uber.org/zap/zapcore"
)

// StreamTracer writes every accepted event as it arrives.
type StreamTracer struct {
	mu    sync.Mutex
	out   zapcore.WriteSyncer
	close io.Closer
	enc   *encoder
	level Level
}

// NewStreamTracer writes events at or above level to w in format. Close
// closes w when it is an io.Closer.
func NewStreamTracer(w io.Writer, level Level, format Format) *StreamTracer {
	if format == FormatAuto {
		format = FormatText
	}
	t := &StreamTracer{out: zapcore.AddSync(w), enc: newEncoder(format), level: level}
	if c, ok := w.(io.Closer); ok {
		t.close = c
	}
	return t
}

func (t *StreamTracer) Emit(ev *Event) {
	if ev.Kind != KindHeartbeat && !t.level.ShouldEmit(ev.Scope) {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	b, err := t.enc.encode(ev)
	if err != nil {
		return
	}
	// A broken trace pipe must not fail analysis.
	_, _ = t.out.Write(b)
}

func (t *StreamTracer) Flush() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.out.Sync()
}

func (t *StreamTracer) Close() error {
	if err := t.Flush(); err != nil {
		return err
	}
	if t.close != nil {
		return t.close.Close()
	}
	return nil
}

func (t *StreamTracer) Level() Level  { return t.level }
func (t *StreamTracer) Enabled() bool { return t.level > LevelOff }
