package query

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

// ErrCancelled is returned by Run when a pending write or the caller's
// context abandoned the evaluation.
var ErrCancelled = errors.New("query: evaluation cancelled")

// Participant names one query evaluation taking part in a cycle.
type Participant struct {
	Query string
	Key   any
}

// String renders the participant as "query(key)".
func (p Participant) String() string {
	return fmt.Sprintf("%s(%v)", p.Query, p.Key)
}

// CycleError reports a dependency cycle through a query kind without a
// recovery function. It is only ever returned to the caller of the cycle's
// head; other runtimes and unrelated keys are unaffected.
type CycleError struct {
	Participants []Participant
}

func (e *CycleError) Error() string {
	parts := make([]string, 0, len(e.Participants)+1)
	for _, p := range e.Participants {
		parts = append(parts, p.String())
	}
	if len(e.Participants) > 0 {
		parts = append(parts, e.Participants[0].String())
	}
	return "query: dependency cycle: " + strings.Join(parts, " -> ")
}

// cancelled is the panic payload used to unwind a runtime whose revision is
// being superseded.
type cancelled struct {
	cause error
}

// cycleUnwind is the panic payload used to unwind from the point a cycle was
// detected up to the cycle's head frame.
type cycleUnwind struct {
	head *frame
	err  *CycleError
}
