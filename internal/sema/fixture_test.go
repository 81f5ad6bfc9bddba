package sema

import (
	"context"
	"testing"

	"tyinc/internal/hir"
	"tyinc/internal/query"
	"tyinc/internal/types"
)

// fixture assembles crates, items and bodies for a test database.
type fixture struct {
	t      *testing.T
	db     *Database
	next   hir.DefID
	crates []hir.CrateData
	top    map[hir.CrateID][]hir.DefID
	items  map[hir.DefID]*hir.Item
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	return &fixture{
		t:     t,
		db:    New(opts...),
		top:   map[hir.CrateID][]hir.DefID{},
		items: map[hir.DefID]*hir.Item{},
	}
}

func (f *fixture) crate(name string, deps ...hir.CrateID) hir.CrateID {
	id := hir.CrateID(len(f.crates) + 1)
	f.crates = append(f.crates, hir.CrateData{ID: id, Name: name, Deps: deps})
	return id
}

// add declares a crate-level item.
func (f *fixture) add(krate hir.CrateID, item *hir.Item) hir.DefID {
	f.next++
	item.Crate = krate
	f.items[f.next] = item
	f.top[krate] = append(f.top[krate], f.next)
	return f.next
}

// member declares an associated item of a trait or impl.
func (f *fixture) member(container hir.DefID, item *hir.Item) hir.DefID {
	f.next++
	parent := f.items[container]
	item.Crate = parent.Crate
	item.Container = container
	item.Block = parent.Block
	f.items[f.next] = item
	switch {
	case parent.Trait != nil:
		parent.Trait.Items = append(parent.Trait.Items, f.next)
	case parent.Impl != nil:
		parent.Impl.Items = append(parent.Impl.Items, f.next)
	}
	return f.next
}

// commit writes every input.
func (f *fixture) commit() {
	f.db.SetCrateGraph(&hir.CrateGraph{Crates: f.crates})
	for _, c := range f.crates {
		f.db.SetCrateDefs(&hir.CrateDefs{Crate: c.ID, Items: f.top[c.ID]})
	}
	for def, item := range f.items {
		f.db.SetItem(def, item)
	}
}

func run[V any](t *testing.T, db *Database, fn func(rt *query.Runtime) V) V {
	t.Helper()
	v, err := Run(context.Background(), db, fn)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	return v
}

// Items ---------------------------------------------------------------------------

func param(def hir.DefID, i uint32) hir.TypeRef {
	return hir.Param(hir.TypeOrConstParamID{Parent: def, Local: i})
}

func selfRef() hir.TypeRef { return hir.TypeRef{Kind: hir.TypeRefSelf} }

func assocOf(base hir.TypeRef, name string) hir.TypeRef {
	return hir.TypeRef{Kind: hir.TypeRefAssoc, Elem: &base, Assoc: name}
}

func tparams(names ...string) hir.GenericParams {
	var g hir.GenericParams
	for _, n := range names {
		g.Types = append(g.Types, hir.TypeParam{Name: n})
	}
	return g
}

func structItem(name string, g hir.GenericParams, fields ...hir.FieldData) *hir.Item {
	return &hir.Item{Kind: hir.ItemStruct, Name: name, Generics: g,
		Struct: &hir.StructData{Shape: hir.ShapeRecord, Fields: fields}}
}

func traitItem(name string) *hir.Item {
	return &hir.Item{Kind: hir.ItemTrait, Name: name, Trait: &hir.TraitData{}}
}

func implItem(g hir.GenericParams, self hir.TypeRef, trait *hir.TypeBound) *hir.Item {
	return &hir.Item{Kind: hir.ItemImpl, Generics: g, Impl: &hir.ImplData{SelfTy: self, Trait: trait}}
}

func fnItem(name string, g hir.GenericParams, ret *hir.TypeRef, params ...hir.TypeRef) *hir.Item {
	return &hir.Item{Kind: hir.ItemFunction, Name: name, Generics: g,
		Fn: &hir.FnData{Params: params, Ret: ret, HasBody: true}}
}

func method(name string, self *hir.SelfParam, ret *hir.TypeRef, params ...hir.TypeRef) *hir.Item {
	it := fnItem(name, hir.GenericParams{}, ret, params...)
	it.Fn.Self = self
	return it
}

func assocType(name string, ty *hir.TypeRef) *hir.Item {
	return &hir.Item{Kind: hir.ItemTypeAlias, Name: name, Alias: &hir.AliasData{Type: ty}}
}

func constItem(name string, ty hir.TypeRef) *hir.Item {
	return &hir.Item{Kind: hir.ItemConst, Name: name, Constant: &hir.ConstData{Type: ty, HasBody: true}}
}

func ptr(t hir.TypeRef) *hir.TypeRef { return &t }

func bound(trait hir.DefID, args ...hir.TypeRef) hir.TypeBound {
	return hir.TypeBound{Trait: hir.TraitID(trait), Args: args}
}

// Bodies --------------------------------------------------------------------------

type bodyBuilder struct {
	b *hir.Body
}

func newBody(owner hir.DefWithBodyID) *bodyBuilder {
	return &bodyBuilder{b: hir.NewBody(owner)}
}

func (bb *bodyBuilder) expr(kind hir.ExprKind, data hir.ExprData) hir.ExprID {
	return bb.b.AddExpr(hir.Expr{Kind: kind, Data: data})
}

func (bb *bodyBuilder) bind(name string) hir.PatID {
	return bb.b.AddPat(hir.Pat{Kind: hir.PatBind, Name: name})
}

func (bb *bodyBuilder) param(name string) hir.PatID {
	p := bb.bind(name)
	bb.b.Params = append(bb.b.Params, p)
	return p
}

func (bb *bodyBuilder) intLit(v uint64, suffix string) hir.ExprID {
	return bb.expr(hir.ExprLiteral, hir.LiteralData{Kind: hir.LiteralInt, Int: v, Suffix: suffix})
}

func (bb *bodyBuilder) boolean(v bool) hir.ExprID {
	return bb.expr(hir.ExprLiteral, hir.LiteralData{Kind: hir.LiteralBool, Bool: v})
}

func (bb *bodyBuilder) local(p hir.PatID) hir.ExprID {
	return bb.expr(hir.ExprPath, hir.PathData{Kind: hir.PathLocal, Local: p})
}

func (bb *bodyBuilder) fn(def hir.DefID) hir.ExprID {
	return bb.expr(hir.ExprPath, hir.PathData{Kind: hir.PathValue, Value: hir.ValueTyDefID{Kind: hir.ValueFunction, Def: def}})
}

func (bb *bodyBuilder) constant(def hir.DefID) hir.ExprID {
	return bb.expr(hir.ExprPath, hir.PathData{Kind: hir.PathValue, Value: hir.ValueTyDefID{Kind: hir.ValueConst, Def: def}})
}

func (bb *bodyBuilder) call(callee hir.ExprID, args ...hir.ExprID) hir.ExprID {
	return bb.expr(hir.ExprCall, hir.CallData{Callee: callee, Args: args})
}

func (bb *bodyBuilder) methodCall(recv hir.ExprID, name string, args ...hir.ExprID) hir.ExprID {
	return bb.expr(hir.ExprMethodCall, hir.MethodCallData{Receiver: recv, Method: name, Args: args})
}

func (bb *bodyBuilder) binary(op hir.BinaryOp, l, r hir.ExprID) hir.ExprID {
	return bb.expr(hir.ExprBinary, hir.BinaryData{Op: op, Left: l, Right: r})
}

func (bb *bodyBuilder) block(tail hir.ExprID, stmts ...hir.Stmt) hir.ExprID {
	return bb.expr(hir.ExprBlock, hir.BlockData{Stmts: stmts, Tail: tail})
}

func letStmt(p hir.PatID, ty *hir.TypeRef, init hir.ExprID) hir.Stmt {
	return hir.Stmt{Kind: hir.StmtLet, Pat: p, Type: ty, Expr: init}
}

// root finishes the body with root as its value and stores it.
func (bb *bodyBuilder) root(f *fixture, root hir.ExprID) *hir.Body {
	bb.b.Root = root
	f.db.SetBody(bb.b.Owner, bb.b)
	return bb.b
}

// Assertions ----------------------------------------------------------------------

func (f *fixture) infer(def hir.DefID) *InferenceResult {
	f.t.Helper()
	return run(f.t, f.db, func(rt *query.Runtime) *InferenceResult { return f.db.Infer(rt, def) })
}

func (f *fixture) display(t *types.Ty) string {
	return run(f.t, f.db, func(rt *query.Runtime) string { return types.Display(t, f.db.Namer(rt)) })
}

func noDiagnostics(t *testing.T, f *fixture, r *InferenceResult) {
	t.Helper()
	for _, d := range r.Diagnostics {
		msg := run(t, f.db, func(rt *query.Runtime) string { return d.Message(f.db.Namer(rt)) })
		t.Errorf("unexpected diagnostic %s: %s", d.Kind, msg)
	}
}
