package types

// SolutionKind distinguishes definite from partial answers.
type SolutionKind uint8

const (
	// SolutionUnique means the goal holds with exactly the given
	// substitution.
	SolutionUnique SolutionKind = iota
	// SolutionAmbiguous means the goal may hold; Subst carries whatever is
	// known for certain, possibly nothing.
	SolutionAmbiguous
)

func (k SolutionKind) String() string {
	if k == SolutionAmbiguous {
		return "ambiguous"
	}
	return "unique"
}

// Solution answers a canonical goal. Subst has one entry per binder of the
// goal; entries may refer back to the goal's binders as bound variables at
// depth 0 when the solver learned nothing about them. A nil *Solution means
// the goal cannot hold.
type Solution struct {
	Kind  SolutionKind `msgpack:",omitempty"`
	Subst Substitution `msgpack:",omitempty"`
}

// Unique reports whether the solution is definite.
func (s *Solution) Unique() bool { return s != nil && s.Kind == SolutionUnique }

// Ambiguous returns an ambiguous solution that carries no guidance.
func Ambiguous() *Solution { return &Solution{Kind: SolutionAmbiguous} }

// Apply unifies the caller's variables with what the solution determined.
// vars are the variables returned by Canonicalize for the same goal.
// Ambiguous solutions without guidance are ignored.
func (t *Table) Apply(s *Solution, vars []*Ty) bool {
	if s == nil || len(s.Subst) == 0 {
		return s != nil
	}
	args := make(Substitution, len(vars))
	for i, v := range vars {
		args[i] = TyArg(v)
	}
	ok := true
	for i, a := range s.Subst {
		if i >= len(vars) || a.Ty == nil {
			continue
		}
		ty := MakeBinders(len(vars), a.Ty).Substitute(args)
		if !t.Unify(vars[i], ty) {
			ok = false
		}
	}
	return ok
}
