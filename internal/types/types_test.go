package types

import (
	"testing"

	"tyinc/internal/hir"
)

func TestBindersSubstitute(t *testing.T) {
	vec := hir.DefID(3)
	b := MakeBinders(2, MakeAdt(vec, Substitution{TyArg(MakeBound(0, 0)), TyArg(MakeBound(0, 1))}))
	got := b.Substitute(Substitution{TyArg(MakeScalar(ScalarI32)), TyArg(Bool())})
	if s := Display(got, nil); s != "def#3<i32, bool>" {
		t.Fatalf("unexpected substitution result %q", s)
	}
	if s := Display(b.SkipBinders(), nil); s != "def#3<^0.0, ^0.1>" {
		t.Fatalf("binder value must stay untouched, got %q", s)
	}
}

func TestNestedBindersKeepInnerVariables(t *testing.T) {
	inner := MakeBinders(1, MakeTuple(MakeBound(1, 0), MakeBound(0, 0)))
	outer := MakeBinders(1, inner)
	got := outer.Substitute(Substitution{TyArg(MakeScalar(ScalarI32))})
	if got.Len != 1 {
		t.Fatalf("inner binder must survive, got len %d", got.Len)
	}
	if s := Display(got.Value, nil); s != "(i32, ^0.0)" {
		t.Fatalf("unexpected nested substitution %q", s)
	}
}

func TestSubstituteArityMismatchPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on arity mismatch")
		}
	}()
	MakeBinders(2, Unit()).Substitute(Substitution{TyArg(Bool())})
}

func TestShiftInMovesEscapingVariables(t *testing.T) {
	ty := MakeTuple(MakeBound(0, 1), MakeSlice(MakeBound(1, 0)))
	if s := Display(ShiftIn(ty, 2), nil); s != "(^2.1, [^3.0])" {
		t.Fatalf("unexpected shift result %q", s)
	}
}

func TestFoldSharesUnchangedSubtrees(t *testing.T) {
	left := MakeSlice(Bool())
	ty := MakeTuple(left, MakeBound(0, 0))
	got := MakeBinders(1, ty).Substitute(Substitution{TyArg(Str())})
	if got.Elems[0] != left {
		t.Fatalf("unchanged element must be shared")
	}
	if got == ty {
		t.Fatalf("changed tuple must be copied")
	}
}

func TestConstArgumentsSubstitute(t *testing.T) {
	arr := MakeArray(Bool(), &Const{Kind: ConstBound, Bound: BoundVar{Index: 0}})
	got := MakeBinders(1, arr).Substitute(Substitution{ConstArg(KnownConst(4))})
	if s := Display(got, nil); s != "[bool; 4]" {
		t.Fatalf("unexpected array %q", s)
	}
}

func TestFingerprints(t *testing.T) {
	adt, ok := FingerprintOf(MakeAdt(7, nil))
	if !ok || adt.Kind != KindAdt || adt.Def != 7 {
		t.Fatalf("unexpected adt fingerprint %+v", adt)
	}
	if _, ok := FingerprintOf(MakePlaceholder(1)); ok {
		t.Fatalf("placeholders must not be fingerprinted")
	}
	if _, ok := FingerprintOf(Error()); ok {
		t.Fatalf("error type must not be fingerprinted")
	}
	if _, ok := InherentFingerprintOf(MakeRef(Bool(), false, Lifetime{})); ok {
		t.Fatalf("references carry no inherent impls")
	}
	a, _ := FingerprintOf(MakeTuple(Bool(), Bool()))
	b, _ := FingerprintOf(MakeTuple(Str(), Str()))
	if a != b {
		t.Fatalf("tuples of equal arity share a fingerprint")
	}
}

func TestVarianceAlgebra(t *testing.T) {
	if Covariant.Xform(Contravariant) != Contravariant {
		t.Fatalf("covariant under contravariant position must flip")
	}
	if Contravariant.Xform(Contravariant) != Covariant {
		t.Fatalf("double contravariance must be covariant")
	}
	if Covariant.Meet(Contravariant) != Invariant {
		t.Fatalf("mixed uses must be invariant")
	}
	if Bivariant.Meet(Covariant) != Covariant {
		t.Fatalf("bivariant is the identity of meet")
	}
}

func TestDisplayGoals(t *testing.T) {
	ref := TraitRef{Trait: hir.TraitID(2), Args: Substitution{TyArg(MakeScalar(ScalarU8)), TyArg(Str())}}
	if s := DisplayGoal(Implemented(ref), nil); s != "u8: def#2<str>" {
		t.Fatalf("unexpected goal display %q", s)
	}
	proj := ProjectionTy{Assoc: hir.AssocTypeID(9), Args: Substitution{TyArg(MakePlaceholder(4))}}
	if s := DisplayGoal(Normalizes(proj, Bool()), nil); s != "<P4>::def#9 == bool" {
		t.Fatalf("unexpected normalize display %q", s)
	}
	fn := MakeFnPtr([]*Ty{MakeRef(Str(), false, Lifetime{})}, MakeTuple(Bool()))
	if s := Display(fn, nil); s != "fn(&str) -> (bool,)" {
		t.Fatalf("unexpected fn pointer display %q", s)
	}
}
