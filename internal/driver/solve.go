package driver

import (
	"context"

	"github.com/cockroachdb/errors"

	"tyinc/internal/hir"
	"tyinc/internal/query"
	"tyinc/internal/sema"
	"tyinc/internal/types"
)

// Outcome is the solver's answer for one clause of a bound.
type Outcome uint8

const (
	OutcomeUnique Outcome = iota
	OutcomeAmbiguous
	OutcomeNoSolution
)

func (o Outcome) String() string {
	switch o {
	case OutcomeUnique:
		return "unique"
	case OutcomeAmbiguous:
		return "ambiguous"
	default:
		return "no solution"
	}
}

// GoalResult is one clause of a solved bound with its outcome.
type GoalResult struct {
	Goal    string
	Outcome Outcome
	// Bindings renders the unique solution's substitution, if any.
	Bindings string
}

// Solve asks whether the type written as typeSrc satisfies boundSrc, both
// resolved as seen from crate.
func Solve(ctx context.Context, s *Session, crate, typeSrc, boundSrc string) ([]GoalResult, error) {
	krate, ok := s.Workspace.Crate(crate)
	if !ok {
		return nil, errors.Newf("unknown crate %q", crate)
	}
	self, err := s.Workspace.ParseType(krate, typeSrc)
	if err != nil {
		return nil, errors.Wrapf(err, "type %q", typeSrc)
	}
	bound, err := s.Workspace.ParseBound(krate, boundSrc)
	if err != nil {
		return nil, errors.Wrapf(err, "bound %q", boundSrc)
	}
	return sema.Run(ctx, s.DB, func(rt *query.Runtime) []GoalResult {
		return solveBound(rt, s.DB, krate, self, bound)
	})
}

func solveBound(rt *query.Runtime, db *sema.Database, krate hir.CrateID, self hir.TypeRef, bound hir.TypeBound) []GoalResult {
	namer := db.Namer(rt)
	clauses, solutions := db.SolveBound(rt, krate, self, bound)
	out := make([]GoalResult, len(clauses))
	for i, c := range clauses {
		r := GoalResult{Goal: types.DisplayGoal(c, namer), Outcome: OutcomeNoSolution}
		switch sol := solutions[i]; {
		case sol == nil:
		case sol.Kind == types.SolutionUnique:
			r.Outcome = OutcomeUnique
			r.Bindings = types.DisplayArgs(sol.Subst, namer)
		default:
			r.Outcome = OutcomeAmbiguous
		}
		out[i] = r
	}
	return out
}
