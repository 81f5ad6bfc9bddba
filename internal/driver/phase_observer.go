package driver

import (
	"time"

	"tyinc/internal/hir"
	"tyinc/internal/observ"
)

// PhaseStatus tells whether a phase is starting or done.
type PhaseStatus int

const (
	PhaseStart PhaseStatus = iota
	PhaseEnd
)

// PhaseEvent marks a phase boundary. Elapsed is set on PhaseEnd only.
type PhaseEvent struct {
	Name    string
	Status  PhaseStatus
	Elapsed time.Duration
}

// PhaseObserver is called synchronously at every phase boundary of Check.
type PhaseObserver func(PhaseEvent)

// phases runs named steps, timing each and reporting its boundaries.
type phases struct {
	timer    *observ.Timer
	observer PhaseObserver
}

// run times fn as phase name; the note fn returns is kept with the timing.
func (p phases) run(name string, fn func() (string, error)) error {
	p.notify(PhaseEvent{Name: name, Status: PhaseStart})
	start := time.Now()
	idx := p.timer.Begin(name)
	note, err := fn()
	p.timer.End(idx, note)
	p.notify(PhaseEvent{Name: name, Status: PhaseEnd, Elapsed: time.Since(start)})
	return err
}

func (p phases) notify(e PhaseEvent) {
	if p.observer != nil {
		p.observer(e)
	}
}

// BodyStatus is the progress of one body during prewarm.
type BodyStatus int

const (
	BodyStarted BodyStatus = iota
	BodyDone
)

// BodyEvent reports one body's inference starting or finishing. Index is
// the body's position among Total bodies.
type BodyEvent struct {
	Index       int
	Total       int
	Def         hir.DefWithBodyID
	Name        string
	Status      BodyStatus
	Diagnostics int
	Elapsed     time.Duration
}

// BodyObserver receives body events from prewarm workers. It is called
// concurrently and must not block for long.
type BodyObserver func(BodyEvent)
