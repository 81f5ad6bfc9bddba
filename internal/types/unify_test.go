package types

import (
	"bytes"
	"testing"

	"tyinc/internal/hir"
)

func TestUnifyBindsVariables(t *testing.T) {
	tab := NewTable()
	v := tab.NewVar(VarGeneral)
	if !tab.Unify(MakeAdt(1, Substitution{TyArg(v)}), MakeAdt(1, Substitution{TyArg(Bool())})) {
		t.Fatalf("expected unification to succeed")
	}
	if r := tab.Resolve(v); r.Kind != KindScalar || r.Scalar != ScalarBool {
		t.Fatalf("expected ?1 := bool, got %s", Display(r, nil))
	}
}

func TestUnifyRespectsIntegerVariables(t *testing.T) {
	tab := NewTable()
	iv := tab.NewVar(VarInt)
	gv := tab.NewVar(VarGeneral)
	if !tab.Unify(gv, iv) {
		t.Fatalf("general and integer variables must unify")
	}
	if tab.Unify(gv, Bool()) {
		t.Fatalf("integer variable must reject bool through its alias")
	}
	if tab.Resolve(iv).Kind != KindInferVar {
		t.Fatalf("failed unification must leave the table unchanged")
	}
	if !tab.Unify(gv, MakeScalar(ScalarU16)) {
		t.Fatalf("integer variable must accept u16")
	}
	if r := tab.Resolve(iv); r.Scalar != ScalarU16 {
		t.Fatalf("expected u16, got %s", Display(r, nil))
	}
}

func TestUnifyOccursCheck(t *testing.T) {
	tab := NewTable()
	v := tab.NewVar(VarGeneral)
	if tab.Unify(v, MakeSlice(v)) {
		t.Fatalf("occurs check must reject ?1 = [?1]")
	}
}

func TestUnifyErrorAndLifetimes(t *testing.T) {
	tab := NewTable()
	if !tab.Unify(Error(), MakeTuple(Bool(), Str())) {
		t.Fatalf("error type must unify with anything")
	}
	a := MakeRef(Str(), false, Lifetime{Kind: LifetimeStatic})
	b := MakeRef(Str(), false, Lifetime{Kind: LifetimeParam, Param: 3})
	if !tab.Unify(a, b) {
		t.Fatalf("lifetimes must not affect unification")
	}
	if tab.Unify(a, MakeRef(Str(), true, Lifetime{})) {
		t.Fatalf("mutability must affect unification")
	}
}

func TestSnapshotRollback(t *testing.T) {
	tab := NewTable()
	v := tab.NewVar(VarGeneral)
	snap := tab.Snapshot()
	w := tab.NewVar(VarGeneral)
	if !tab.Unify(v, w) || !tab.Unify(w, Str()) {
		t.Fatalf("speculative unification failed")
	}
	tab.Rollback(snap)
	if tab.Resolve(v).Kind != KindInferVar {
		t.Fatalf("rollback must unbind ?1")
	}
	if tab.Len() != 1 {
		t.Fatalf("rollback must drop variables created after the snapshot, have %d", tab.Len())
	}
}

func TestResolveDeepFallback(t *testing.T) {
	tab := NewTable()
	i := tab.NewVar(VarInt)
	f := tab.NewVar(VarFloat)
	g := tab.NewVar(VarGeneral)
	got := tab.ResolveDeep(MakeTuple(i, f, g), DefaultFallback)
	if s := Display(got, nil); s != "(i32, f64, {unknown})" {
		t.Fatalf("unexpected fallback result %q", s)
	}
}

func TestCanonicalizeIgnoresVariableNumbering(t *testing.T) {
	tab := NewTable()
	a, b, c := tab.NewVar(VarGeneral), tab.NewVar(VarGeneral), tab.NewVar(VarGeneral)
	trait := hir.TraitID(5)
	g1 := InEnvironment{Env: Environment{Owner: 2}, Goal: Implemented(TraitRef{Trait: trait, Args: Substitution{TyArg(b), TyArg(c)}})}
	g2 := InEnvironment{Env: Environment{Owner: 2}, Goal: Implemented(TraitRef{Trait: trait, Args: Substitution{TyArg(a), TyArg(b)}})}
	c1, vars1 := Canonicalize(tab, g1)
	c2, _ := Canonicalize(tab, g2)
	if len(c1.Binders) != 2 || len(vars1) != 2 || vars1[0].Var != b.Var {
		t.Fatalf("unexpected canonical binders %v / %v", c1.Binders, vars1)
	}
	e1, err := EncodeCanonical(c1)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	e2, err := EncodeCanonical(c2)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !bytes.Equal(e1, e2) {
		t.Fatalf("alpha-equivalent goals must encode identically")
	}
	dec, err := DecodeCanonical(e1)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if s := DisplayGoal(dec.Value.Goal, nil); s != "^0.0: def#5<^0.1>" {
		t.Fatalf("unexpected decoded goal %q", s)
	}
}

func TestCanonicalizeResolvesBoundVariables(t *testing.T) {
	tab := NewTable()
	v := tab.NewVar(VarGeneral)
	tab.Unify(v, Bool())
	c, vars := Canonicalize(tab, InEnvironment{Goal: Implemented(TraitRef{Trait: 1, Args: Substitution{TyArg(v)}})})
	if !c.IsGround() || len(vars) != 0 {
		t.Fatalf("resolved variables must not become binders")
	}
}

func TestApplySolution(t *testing.T) {
	tab := NewTable()
	v := tab.NewVar(VarGeneral)
	w := tab.NewVar(VarGeneral)
	_, vars := Canonicalize(tab, InEnvironment{Goal: Implemented(TraitRef{Trait: 1, Args: Substitution{TyArg(v), TyArg(w)}})})
	sol := &Solution{Kind: SolutionUnique, Subst: Substitution{TyArg(MakeSlice(MakeBound(0, 1))), TyArg(MakeBound(0, 1))}}
	if !tab.Apply(sol, vars) {
		t.Fatalf("apply failed")
	}
	if s := Display(tab.ResolveDeep(v, nil), nil); s != "[?2]" {
		t.Fatalf("expected ?1 := [?2], got %q", s)
	}
	if tab.Apply(nil, vars) {
		t.Fatalf("no solution must report failure")
	}
}
