package sema

import (
	"bytes"
	"testing"

	"tyinc/internal/hir"
	"tyinc/internal/query"
	"tyinc/internal/types"
)

// showCrate declares trait Show and struct W<T> in one crate.
func showCrate(t *testing.T, opts ...Option) (f *fixture, k hir.CrateID, show, w hir.DefID) {
	f = newFixture(t, opts...)
	k = f.crate("app")
	show = f.add(k, traitItem("Show"))
	w = f.add(k, structItem("W", tparams("T")))
	return f, k, show, w
}

func showGoal(show, w hir.DefID, arg *types.Ty) types.InEnvironment {
	ref := types.TraitRef{Trait: hir.TraitID(show), Args: types.Substitution{types.TyArg(types.MakeAdt(w, types.Substitution{types.TyArg(arg)}))}}
	return types.InEnvironment{Goal: types.Implemented(ref)}
}

func TestCanonicalGoalsShareEvaluation(t *testing.T) {
	f, k, show, w := showCrate(t)
	impl := f.add(k, implItem(tparams("T"), hir.Unit(), &hir.TypeBound{Trait: hir.TraitID(show)}))
	f.items[impl].Impl.SelfTy = hir.Path(w, param(impl, 0))
	f.commit()

	first := types.NewTable()
	c1, _ := types.Canonicalize(first, showGoal(show, w, first.NewVar(types.VarGeneral)))
	second := types.NewTable()
	second.NewVar(types.VarGeneral)
	second.NewVar(types.VarInt)
	c2, _ := types.Canonicalize(second, showGoal(show, w, second.NewVar(types.VarGeneral)))

	e1, err := types.EncodeCanonical(c1)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	e2, err := types.EncodeCanonical(c2)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !bytes.Equal(e1, e2) {
		t.Fatalf("canonical goals differ")
	}

	s1 := run(t, f.db, func(rt *query.Runtime) *types.Solution { return f.db.TraitSolve(rt, k, c1) })
	s2 := run(t, f.db, func(rt *query.Runtime) *types.Solution { return f.db.TraitSolve(rt, k, c2) })
	if s1 == nil || s1 != s2 {
		t.Fatalf("solutions = %v, %v; want one shared answer", s1, s2)
	}
	key := TraitSolveKey{Crate: k, Goal: f.db.goals.Intern(string(e1))}
	if n := f.db.traitSolveQuery.Executions(key); n != 1 {
		t.Fatalf("trait_solve executed %d times, want 1", n)
	}
}

func TestTraitSolveGroundGoals(t *testing.T) {
	f, k, show, w := showCrate(t)
	f.add(k, implItem(hir.GenericParams{}, hir.Path(w, hir.Builtin("i32")), &hir.TypeBound{Trait: hir.TraitID(show)}))
	f.commit()

	solve := func(arg *types.Ty) *types.Solution {
		c, _ := types.Canonicalize(types.NewTable(), showGoal(show, w, arg))
		return run(t, f.db, func(rt *query.Runtime) *types.Solution { return f.db.TraitSolve(rt, k, c) })
	}
	if s := solve(types.MakeScalar(types.ScalarI32)); !s.Unique() {
		t.Fatalf("W<i32>: Show = %v, want unique", s)
	}
	if s := solve(types.Bool()); s != nil {
		t.Fatalf("W<bool>: Show = %v, want no solution", s)
	}
}

func TestTraitSolveCycleRecovery(t *testing.T) {
	cases := []struct {
		recovery SolverRecovery
		want     func(*types.Solution) bool
	}{
		{RecoverNoSolution, func(s *types.Solution) bool { return s == nil }},
		{RecoverAmbiguous, func(s *types.Solution) bool { return s != nil && s.Kind == types.SolutionAmbiguous }},
	}
	for _, tc := range cases {
		f, k, show, w := showCrate(t, WithSolverRecovery(tc.recovery))
		impl := f.add(k, implItem(tparams("T"), hir.Unit(), &hir.TypeBound{Trait: hir.TraitID(show)}))
		self := hir.Path(w, param(impl, 0))
		f.items[impl].Impl.SelfTy = self
		f.items[impl].Generics.Where = []hir.WherePredicate{{Target: self, Bound: bound(show)}}
		f.commit()

		c, _ := types.Canonicalize(types.NewTable(), showGoal(show, w, types.MakeScalar(types.ScalarI32)))
		s := run(t, f.db, func(rt *query.Runtime) *types.Solution { return f.db.TraitSolve(rt, k, c) })
		if !tc.want(s) {
			t.Fatalf("recovery %s: solution %v", tc.recovery, s)
		}
	}
}

func TestParseSolverRecovery(t *testing.T) {
	if r, ok := ParseSolverRecovery("ambiguous"); !ok || r != RecoverAmbiguous {
		t.Fatalf("ambiguous = %v, %v", r, ok)
	}
	if _, ok := ParseSolverRecovery("maybe"); ok {
		t.Fatalf("unknown recovery accepted")
	}
}
