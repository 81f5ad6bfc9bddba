package trace

import (
	"strconv"
	"sync"
	"time"
)

// Heartbeat emits a periodic event carrying the number of open spans, so a
// stuck evaluation shows as heartbeats with a non-zero count.
type Heartbeat struct {
	stop chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

// StartHeartbeat starts emitting to t every interval. It returns nil when t
// is disabled or interval is not positive; Stop on nil is a no-op.
func StartHeartbeat(t Tracer, interval time.Duration) *Heartbeat {
	if t == nil || !t.Enabled() || interval <= 0 {
		return nil
	}
	h := &Heartbeat{stop: make(chan struct{})}
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		tick := time.NewTicker(interval)
		defer tick.Stop()
		for beat := 1; ; beat++ {
			select {
			case now := <-tick.C:
				emit(t, Event{
					Time:    now,
					Kind:    KindHeartbeat,
					Scope:   ScopeDriver,
					Name:    "heartbeat#" + strconv.Itoa(beat),
					Outcome: "open=" + strconv.FormatInt(OpenSpans(), 10),
				})
			case <-h.stop:
				return
			}
		}
	}()
	return h
}

// Stop ends the heartbeat and waits for its goroutine.
func (h *Heartbeat) Stop() {
	if h == nil {
		return
	}
	h.once.Do(func() {
		close(h.stop)
		h.wg.Wait()
	})
}
