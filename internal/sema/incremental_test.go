package sema

import (
	"testing"

	"tyinc/internal/hir"
)

// blanketFixture declares `trait Show { fn show(&self) -> i32; }` and
// `impl<T> Show for T` in core, and in app a local `struct S`, a function
// main(s: S) calling `s.show()` and an unrelated function other.
type blanketFixture struct {
	f              *fixture
	core, app      hir.CrateID
	showFn         hir.DefID
	blanket        hir.DefID
	s, main, other hir.DefID
	call           hir.ExprID
}

func newBlanketFixture(t *testing.T) *blanketFixture {
	f := newFixture(t)
	b := &blanketFixture{f: f}
	b.core = f.crate("core")
	b.app = f.crate("app", b.core)
	var show hir.DefID
	show, b.showFn = showTrait(f, b.core)
	b.blanket = f.add(b.core, implItem(tparams("T"), hir.Unit(), &hir.TypeBound{Trait: hir.TraitID(show)}))
	f.items[b.blanket].Impl.SelfTy = param(b.blanket, 0)
	b.s = f.add(b.app, structItem("S", hir.GenericParams{}))
	b.main = f.add(b.app, fnItem("main", hir.GenericParams{}, ptr(hir.Builtin("i32")), hir.Path(b.s)))
	b.other = f.add(b.app, fnItem("other", hir.GenericParams{}, ptr(hir.Builtin("i32"))))
	f.commit()

	bm := newBody(b.main)
	recv := bm.param("s")
	b.call = bm.methodCall(bm.local(recv), "show")
	bm.root(f, b.call)
	bo := newBody(b.other)
	bo.root(f, bo.intLit(5, ""))
	return b
}

func TestRemovingImplReinfersOnlyDependents(t *testing.T) {
	b := newBlanketFixture(t)
	f := b.f

	r := f.infer(b.main)
	noDiagnostics(t, f, r)
	if m, ok := r.Method(b.call); !ok || m.Func != hir.FunctionID(b.showFn) {
		t.Fatalf("s.show() resolved to %+v", m)
	}
	noDiagnostics(t, f, f.infer(b.other))

	f.db.RemoveItem(b.blanket)
	f.db.SetCrateDefs(&hir.CrateDefs{Crate: b.core, Items: f.top[b.core][:1]})

	r = f.infer(b.main)
	if len(r.Diagnostics) != 1 || r.Diagnostics[0].Kind != DiagUnresolvedMethod || r.Diagnostics[0].Expr != b.call {
		t.Fatalf("diagnostics after removing the impl = %+v", r.Diagnostics)
	}
	noDiagnostics(t, f, f.infer(b.other))

	if n := f.db.inferQuery.Executions(b.main); n != 2 {
		t.Fatalf("main inferred %d times, want 2", n)
	}
	if n := f.db.inferQuery.Executions(b.other); n != 1 {
		t.Fatalf("other inferred %d times, want 1", n)
	}
}

func TestEqualItemDoesNotReinfer(t *testing.T) {
	b := newBlanketFixture(t)
	f := b.f
	f.infer(b.other)

	same := *f.items[b.other]
	fn := *same.Fn
	same.Fn = &fn
	f.db.SetItem(b.other, &same)

	r := f.infer(b.other)
	noDiagnostics(t, f, r)
	if s := f.display(r.ReturnTy); s != "i32" {
		t.Fatalf("other returns %s", s)
	}
	if n := f.db.inferQuery.Executions(b.other); n != 1 {
		t.Fatalf("other inferred %d times after an equal edit, want 1", n)
	}
}

func TestBodyEditReinfers(t *testing.T) {
	b := newBlanketFixture(t)
	f := b.f
	f.infer(b.other)

	bo := newBody(b.other)
	bo.root(f, bo.boolean(true))
	r := f.infer(b.other)
	if len(r.Diagnostics) != 1 || r.Diagnostics[0].Kind != DiagTypeMismatch {
		t.Fatalf("diagnostics = %+v", r.Diagnostics)
	}
	if n := f.db.inferQuery.Executions(b.other); n != 2 {
		t.Fatalf("other inferred %d times, want 2", n)
	}
}
