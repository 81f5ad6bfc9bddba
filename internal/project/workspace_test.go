package project

import (
	"slices"
	"strings"
	"testing"

	"tyinc/internal/hir"
	"tyinc/internal/query"
)

const showWorkspace = `
[[crate]]
name = "core"

[[crate.trait]]
name = "Show"
types = ["Out"]

[[crate.trait.fn]]
name = "show"
self = "&self"
ret = "Self::Out"

[[crate]]
name = "app"
deps = ["core"]

[[crate.struct]]
name = "W"
generics = ["T: Show"]
fields = ["inner: T", "n: [u8; 4]"]

[[crate.impl]]
generics = ["T"]
trait = "Show"
for = "W<T>"
where = ["T: core::Show"]
types = ["Out = i32"]

[[crate.impl.fn]]
name = "show"
self = "&self"
ret = "i32"
body = "{ 1 }"

[[crate.fn]]
name = "main"
ret = "i32"
body = '{ let w = W { inner: 1u8, n: [0, 0, 0, 0] }; w.show() }'
`

func mustParse(t *testing.T, src string) *Resolved {
	t.Helper()
	r, err := ParseWorkspace(src)
	if err != nil {
		t.Fatalf("ParseWorkspace: %v", err)
	}
	return r
}

func TestParseWorkspaceLowersItems(t *testing.T) {
	r := mustParse(t, showWorkspace)

	if len(r.Graph.Crates) != 2 || !slices.Equal(r.Graph.Crates[1].Deps, []hir.CrateID{1}) {
		t.Fatalf("crate graph = %+v", r.Graph.Crates)
	}
	if !slices.Equal(r.Order, []hir.CrateID{1, 2}) {
		t.Fatalf("order = %v", r.Order)
	}
	if !slices.Equal(r.Defs[0].Items, []hir.DefID{1}) || !slices.Equal(r.Defs[1].Items, []hir.DefID{4, 5, 8}) {
		t.Fatalf("crate defs = %v, %v", r.Defs[0].Items, r.Defs[1].Items)
	}

	show := r.Items[1]
	if show.Kind != hir.ItemTrait || !slices.Equal(show.Trait.Items, []hir.DefID{2, 3}) {
		t.Fatalf("trait Show = %+v", show)
	}
	method := r.Items[3]
	if method.Container != 1 || method.Fn.Self == nil || !method.Fn.Self.Ref {
		t.Fatalf("Show::show = %+v", method)
	}
	if ret := method.Fn.Ret; ret == nil || ret.Kind != hir.TypeRefAssoc || ret.Elem.Kind != hir.TypeRefSelf || ret.Assoc != "Out" {
		t.Fatalf("Show::show returns %+v", method.Fn.Ret)
	}

	w := r.Items[4]
	if b := w.Generics.Types[0].Bounds; len(b) != 1 || b[0].Trait != 1 {
		t.Fatalf("W<T: Show> bounds = %+v", b)
	}
	if n := w.Struct.Fields[1].Type; n.Kind != hir.TypeRefArray || n.Len == nil || n.Len.Value != 4 {
		t.Fatalf("W.n = %+v", n)
	}

	impl := r.Items[5].Impl
	param := hir.Param(hir.TypeOrConstParamID{Parent: 5, Local: 0})
	if impl.SelfTy.Kind != hir.TypeRefPath || impl.SelfTy.Def != 4 || impl.SelfTy.Args[0].Param != param.Param {
		t.Fatalf("impl self type = %+v", impl.SelfTy)
	}
	if impl.Trait == nil || impl.Trait.Trait != 1 || !slices.Equal(impl.Items, []hir.DefID{6, 7}) {
		t.Fatalf("impl = %+v", impl)
	}
	if where := r.Items[5].Generics.Where; len(where) != 1 || where[0].Target.Param != param.Param {
		t.Fatalf("where = %+v", where)
	}
	if out := r.Items[6].Alias.Type; out == nil || out.Builtin != "i32" {
		t.Fatalf("Out = %+v", out)
	}
}

func TestParseWorkspaceLowersBodies(t *testing.T) {
	r := mustParse(t, showWorkspace)

	body := r.Bodies[8]
	root := body.Expr(body.Root)
	block, ok := root.Data.(hir.BlockData)
	if root.Kind != hir.ExprBlock || !ok || len(block.Stmts) != 1 {
		t.Fatalf("main root = %+v", root)
	}
	lit := body.Expr(block.Stmts[0].Expr).Data.(hir.StructLitData)
	if lit.Variant.Adt != 4 || len(lit.Fields) != 2 || lit.Fields[1].Name != "n" {
		t.Fatalf("struct literal = %+v", lit)
	}
	if first := body.Expr(lit.Fields[0].Value).Data.(hir.LiteralData); first.Int != 1 || first.Suffix != "u8" {
		t.Fatalf("inner = %+v", first)
	}
	call := body.Expr(block.Tail).Data.(hir.MethodCallData)
	recv := body.Expr(call.Receiver).Data.(hir.PathData)
	if call.Method != "show" || recv.Kind != hir.PathLocal || recv.Local != block.Stmts[0].Pat {
		t.Fatalf("tail = %+v on %+v", call, recv)
	}

	method := r.Bodies[7]
	if len(method.Params) != 1 || method.Pat(method.Params[0]).Name != "self" {
		t.Fatalf("show params = %v", method.Params)
	}
	if _, ok := r.Bodies[3]; ok {
		t.Fatalf("trait method without a body got one")
	}
}

func TestParseBodyExpressions(t *testing.T) {
	r := mustParse(t, `
[[crate]]
name = "app"

[[crate.enum]]
name = "Opt"
generics = ["T"]
variants = ["None", "Some(T)"]

[[crate.fn]]
name = "id"
generics = ["T"]
params = ["x: T"]
ret = "T"
body = "x"

[[crate.fn]]
name = "main"
ret = "i32"
body = '''
{
    let o = Opt::Some(1);
    let f = |x: i32| x + 1;
    if true { f(2) } else { id::<i32>(3) }
}
'''
`)
	id, _ := r.Lookup(1, "id")
	main, _ := r.Lookup(1, "main")
	body := r.Bodies[main]
	block := body.Expr(body.Root).Data.(hir.BlockData)
	if len(block.Stmts) != 2 {
		t.Fatalf("statements = %+v", block.Stmts)
	}

	some := body.Expr(block.Stmts[0].Expr).Data.(hir.CallData)
	ctor := body.Expr(some.Callee).Data.(hir.PathData)
	if ctor.Kind != hir.PathValue || ctor.Value.Kind != hir.ValueVariant || ctor.Value.Variant != 1 {
		t.Fatalf("Opt::Some = %+v", ctor)
	}

	closure := body.Expr(block.Stmts[1].Expr).Data.(hir.ClosureData)
	if len(closure.ParamTys) != 1 || closure.ParamTys[0] == nil || closure.ParamTys[0].Builtin != "i32" {
		t.Fatalf("closure = %+v", closure)
	}
	sum := body.Expr(closure.Body).Data.(hir.BinaryData)
	if x := body.Expr(sum.Left).Data.(hir.PathData); x.Kind != hir.PathLocal || x.Local != closure.Params[0] {
		t.Fatalf("closure body reads %+v", x)
	}

	ifData := body.Expr(block.Tail).Data.(hir.IfData)
	els := body.Expr(ifData.Else).Data.(hir.BlockData)
	call := body.Expr(els.Tail).Data.(hir.CallData)
	callee := body.Expr(call.Callee).Data.(hir.PathData)
	if callee.Value.Def != id || len(callee.Generic) != 1 || callee.Generic[0].Builtin != "i32" {
		t.Fatalf("id::<i32> = %+v", callee)
	}

	idBody := r.Bodies[id]
	if p := idBody.Expr(idBody.Root).Data.(hir.PathData); p.Kind != hir.PathLocal || p.Local != idBody.Params[0] {
		t.Fatalf("id body = %+v", p)
	}
}

func TestParseWorkspaceErrors(t *testing.T) {
	cases := []struct {
		name, src, want string
	}{
		{"unknown dep", `
[[crate]]
name = "app"
deps = ["nope"]
`, "unknown crate"},
		{"cycle", `
[[crate]]
name = "a"
deps = ["b"]
[[crate]]
name = "b"
deps = ["a"]
`, "cycle"},
		{"unknown type", `
[[crate]]
name = "app"
[[crate.struct]]
name = "S"
fields = ["x: Missing"]
`, "cannot find Missing"},
		{"unknown key", `
[[crate]]
name = "app"
colour = "blue"
`, "unknown keys"},
		{"duplicate", `
[[crate]]
name = "app"
[[crate.struct]]
name = "S"
[[crate.fn]]
name = "S"
`, "duplicate item"},
		{"self outside impl", `
[[crate]]
name = "app"
[[crate.fn]]
name = "f"
ret = "Self"
`, "Self outside"},
		{"body syntax", `
[[crate]]
name = "app"
[[crate.fn]]
name = "f"
body = "{ let = 1; }"
`, "expected identifier"},
	}
	for _, tc := range cases {
		_, err := ParseWorkspace(tc.src)
		if err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("%s: error %v, want it to mention %q", tc.name, err, tc.want)
		}
	}
}

func TestNamesAreNormalized(t *testing.T) {
	r := mustParse(t, `
[[crate]]
name = "cafe\u0301"

[[crate.struct]]
name = "Cre\u0300me"
`)
	k, ok := r.Crate("caf\u00e9")
	if !ok {
		t.Fatalf("crate not found by its composed name")
	}
	if _, ok := r.Lookup(k, "Cr\u00e8me"); !ok {
		t.Fatalf("struct not found by its composed name")
	}
}

type recordingSink struct {
	calls []string
	rev   query.Revision
}

func (s *recordingSink) record(call string) query.Revision {
	s.calls = append(s.calls, call)
	s.rev++
	return s.rev
}

func (s *recordingSink) SetCrateGraph(*hir.CrateGraph) query.Revision { return s.record("graph") }

func (s *recordingSink) SetCrateDefs(*hir.CrateDefs) query.Revision { return s.record("defs") }

func (s *recordingSink) SetItem(hir.DefID, *hir.Item) query.Revision { return s.record("item") }

func (s *recordingSink) SetBody(hir.DefWithBodyID, *hir.Body) query.Revision {
	return s.record("body")
}

func TestApplyWritesEveryInput(t *testing.T) {
	r := mustParse(t, showWorkspace)
	var s recordingSink
	last := r.Apply(&s)
	if s.calls[0] != "graph" || last != s.rev {
		t.Fatalf("calls = %v, last revision %d", s.calls, last)
	}
	count := func(kind string) int {
		n := 0
		for _, c := range s.calls {
			if c == kind {
				n++
			}
		}
		return n
	}
	if count("defs") != 2 || count("item") != len(r.Items) || count("body") != len(r.Bodies) {
		t.Fatalf("calls = %v", s.calls)
	}
}
