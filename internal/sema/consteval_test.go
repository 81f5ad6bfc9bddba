package sema

import (
	"testing"

	"tyinc/internal/hir"
	"tyinc/internal/query"
)

func evalConst(f *fixture, c hir.DefID) ConstEvalResult {
	f.t.Helper()
	return run(f.t, f.db, func(rt *query.Runtime) ConstEvalResult { return f.db.ConstEval(rt, hir.ConstID(c)) })
}

func TestConstEvalArithmetic(t *testing.T) {
	f := newFixture(t)
	k := f.crate("app")
	n := f.add(k, constItem("N", hir.Builtin("usize")))
	m := f.add(k, constItem("M", hir.Builtin("usize")))
	f.commit()

	bb := newBody(n)
	bb.root(f, bb.binary(hir.BinAdd, bb.intLit(2, ""), bb.intLit(3, "")))
	bm := newBody(m)
	bm.root(f, bm.binary(hir.BinMul, bm.constant(n), bm.intLit(4, "")))

	if v, ok := evalConst(f, n).Uint64(); !ok || v != 5 {
		t.Fatalf("N = %v, %v", v, ok)
	}
	if v, ok := evalConst(f, m).Uint64(); !ok || v != 20 {
		t.Fatalf("M = %v, %v", v, ok)
	}
}

func TestConstEvalErrors(t *testing.T) {
	f := newFixture(t)
	k := f.crate("app")
	over := f.add(k, constItem("OVER", hir.Builtin("u8")))
	div := f.add(k, constItem("DIV", hir.Builtin("i32")))
	flag := f.add(k, constItem("FLAG", hir.Builtin("bool")))
	missing := f.add(k, constItem("MISSING", hir.Builtin("i32")))
	f.commit()

	b := newBody(over)
	b.root(f, b.binary(hir.BinAdd, b.intLit(255, ""), b.intLit(1, "")))
	b = newBody(div)
	b.root(f, b.binary(hir.BinDiv, b.intLit(1, ""), b.intLit(0, "")))
	b = newBody(flag)
	b.root(f, b.intLit(1, ""))

	cases := []struct {
		name string
		def  hir.DefID
		want ConstEvalErrorKind
	}{
		{"overflow", over, ConstEvalPanic},
		{"division by zero", div, ConstEvalPanic},
		{"int for bool", flag, ConstEvalMismatchedType},
		{"no initializer", missing, ConstEvalMissingBody},
	}
	for _, tc := range cases {
		r := evalConst(f, tc.def)
		if r.Err == nil || r.Err.Kind != tc.want {
			t.Fatalf("%s: result %+v, want %s", tc.name, r, tc.want)
		}
	}
}

func TestConstEvalCycleRecovers(t *testing.T) {
	f := newFixture(t)
	k := f.crate("app")
	a := f.add(k, constItem("A", hir.Builtin("i32")))
	b := f.add(k, constItem("B", hir.Builtin("i32")))
	f.commit()

	ba := newBody(a)
	ba.root(f, ba.constant(b))
	bb := newBody(b)
	bb.root(f, bb.binary(hir.BinAdd, bb.constant(a), bb.intLit(1, "")))

	for _, c := range []hir.DefID{a, b} {
		r := evalConst(f, c)
		if r.Err == nil || r.Err.Kind != ConstEvalCycle {
			t.Fatalf("%s = %+v, want cycle error", c, r)
		}
	}
	if len(f.db.Store().Cycles()) == 0 {
		t.Fatalf("cycle was not recorded")
	}
}

func TestConstEvalReexecutesOnEdit(t *testing.T) {
	f := newFixture(t)
	k := f.crate("app")
	n := f.add(k, constItem("N", hir.Builtin("i32")))
	f.commit()
	b := newBody(n)
	b.root(f, b.intLit(1, ""))
	if v, _ := evalConst(f, n).Uint64(); v != 1 {
		t.Fatalf("N = %d", v)
	}
	b = newBody(n)
	b.root(f, b.intLit(7, ""))
	if v, _ := evalConst(f, n).Uint64(); v != 7 {
		t.Fatalf("N after edit = %d", v)
	}
}

func TestConstEvalBackdatesEqualValue(t *testing.T) {
	f := newFixture(t)
	k := f.crate("app")
	n := f.add(k, constItem("N", hir.Builtin("usize")))
	m := f.add(k, constItem("M", hir.Builtin("usize")))
	f.commit()

	bn := newBody(n)
	bn.root(f, bn.binary(hir.BinAdd, bn.intLit(2, ""), bn.intLit(3, "")))
	bm := newBody(m)
	bm.root(f, bm.binary(hir.BinMul, bm.constant(n), bm.intLit(4, "")))
	if v, _ := evalConst(f, m).Uint64(); v != 20 {
		t.Fatalf("M = %d", v)
	}

	bn = newBody(n)
	bn.root(f, bn.intLit(5, ""))
	if v, _ := evalConst(f, m).Uint64(); v != 20 {
		t.Fatalf("M after edit = %d", v)
	}
	if got := f.db.constEval.Executions(hir.ConstID(n)); got != 2 {
		t.Fatalf("N should re-evaluate after its body changed, ran %d times", got)
	}
	if got := f.db.constEval.Executions(hir.ConstID(m)); got != 1 {
		t.Fatalf("M should be verified against the equal value of N, ran %d times", got)
	}
}
