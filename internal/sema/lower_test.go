package sema

import (
	"slices"
	"testing"

	"tyinc/internal/hir"
	"tyinc/internal/query"
	"tyinc/internal/types"
)

func TestFieldTypesUseBoundVariables(t *testing.T) {
	f := newFixture(t)
	k := f.crate("app")
	w := f.add(k, structItem("Wrapper", tparams("T"), hir.FieldData{Name: "v", Type: param(1, 0)}))
	f.commit()

	fields := run(t, f.db, func(rt *query.Runtime) []types.Binders[*types.Ty] {
		return f.db.FieldTypes(rt, hir.VariantID{Adt: hir.AdtID(w)})
	})
	if len(fields) != 1 || fields[0].Len != 1 {
		t.Fatalf("fields = %+v", fields)
	}
	got := fields[0].Substitute(types.Substitution{types.TyArg(types.Bool())})
	if got.Kind != types.KindScalar || got.Scalar != types.ScalarBool {
		t.Fatalf("field after substitution = %s", types.Display(got, nil))
	}
	ty := run(t, f.db, func(rt *query.Runtime) types.Binders[*types.Ty] { return f.db.Ty(rt, hir.AdtTy(hir.AdtID(w))) })
	if s := f.display(ty.Substitute(types.Substitution{types.TyArg(types.Bool())})); s != "Wrapper<bool>" {
		t.Fatalf("ty = %s", s)
	}
}

func TestCyclicAliasLowersToError(t *testing.T) {
	f := newFixture(t)
	k := f.crate("app")
	opt := f.add(k, &hir.Item{Kind: hir.ItemEnum, Name: "Option", Generics: tparams("T"),
		Enum: &hir.EnumData{Variants: []hir.VariantData{
			{Name: "None", Shape: hir.ShapeUnit},
			{Name: "Some", Shape: hir.ShapeTuple, Fields: []hir.FieldData{{Name: "0", Type: param(1, 0)}}},
		}}})
	alias := f.add(k, &hir.Item{Kind: hir.ItemTypeAlias, Name: "A"})
	f.items[alias].Alias = &hir.AliasData{Type: ptr(hir.Path(opt, hir.Path(alias)))}
	f.commit()

	ty := run(t, f.db, func(rt *query.Runtime) types.Binders[*types.Ty] {
		return f.db.Ty(rt, hir.AliasTy(hir.TypeAliasID(alias)))
	})
	if !ty.SkipBinders().IsError() {
		t.Fatalf("type A = Option<A> lowered to %s", f.display(ty.SkipBinders()))
	}
}

func TestAliasExpandsArguments(t *testing.T) {
	f := newFixture(t)
	k := f.crate("app")
	pair := f.add(k, structItem("Pair", tparams("A", "B")))
	alias := f.add(k, &hir.Item{Kind: hir.ItemTypeAlias, Name: "Same", Generics: tparams("T")})
	f.items[alias].Alias = &hir.AliasData{Type: ptr(hir.Path(pair, param(alias, 0), param(alias, 0)))}
	user := f.add(k, fnItem("user", hir.GenericParams{}, ptr(hir.Path(alias, hir.Builtin("u8")))))
	f.commit()

	sig := run(t, f.db, func(rt *query.Runtime) types.PolyFnSig {
		return f.db.CallableItemSignature(rt, hir.CallableDefID{Def: user})
	})
	if s := f.display(sig.SkipBinders().Ret); s != "Pair<u8, u8>" {
		t.Fatalf("ret = %s", s)
	}
}

func TestGenericSignature(t *testing.T) {
	f := newFixture(t)
	k := f.crate("app")
	id := f.add(k, fnItem("id", tparams("T"), ptr(param(1, 0)), param(1, 0)))
	f.commit()

	sig := run(t, f.db, func(rt *query.Runtime) types.PolyFnSig {
		return f.db.CallableItemSignature(rt, hir.CallableDefID{Def: id})
	})
	inst := sig.Substitute(types.Substitution{types.TyArg(types.MakeScalar(types.ScalarU8))})
	if len(inst.Params) != 1 || f.display(inst.Params[0]) != "u8" || f.display(inst.Ret) != "u8" {
		t.Fatalf("instantiated signature = %+v", inst)
	}
}

func TestGenericDefaults(t *testing.T) {
	f := newFixture(t)
	k := f.crate("app")
	d := f.add(k, &hir.Item{Kind: hir.ItemStruct, Name: "D", Struct: &hir.StructData{},
		Generics: hir.GenericParams{Types: []hir.TypeParam{
			{Name: "T"},
			{Name: "U", Default: ptr(param(1, 0))},
		}}})
	e := f.add(k, &hir.Item{Kind: hir.ItemStruct, Name: "E", Struct: &hir.StructData{},
		Generics: hir.GenericParams{Types: []hir.TypeParam{
			{Name: "T", Default: ptr(param(2, 1))},
			{Name: "U", Default: ptr(hir.Builtin("i32"))},
		}}})
	user := f.add(k, fnItem("user", hir.GenericParams{}, ptr(hir.Path(d, hir.Builtin("bool")))))
	f.commit()

	defaults := run(t, f.db, func(rt *query.Runtime) []types.Binders[types.GenericArg] { return f.db.GenericDefaults(rt, d) })
	if len(defaults) != 2 {
		t.Fatalf("defaults = %+v", defaults)
	}
	if b := defaults[1].SkipBinders().Ty; b.Kind != types.KindBoundVar || b.Bound.Index != 0 {
		t.Fatalf("default of U = %s", types.Display(b, nil))
	}
	forward := run(t, f.db, func(rt *query.Runtime) []types.Binders[types.GenericArg] { return f.db.GenericDefaults(rt, e) })
	if !forward[0].SkipBinders().Ty.IsError() {
		t.Fatalf("forward reference in default = %s", types.Display(forward[0].SkipBinders().Ty, nil))
	}
	sig := run(t, f.db, func(rt *query.Runtime) types.PolyFnSig {
		return f.db.CallableItemSignature(rt, hir.CallableDefID{Def: user})
	})
	if s := f.display(sig.SkipBinders().Ret); s != "D<bool, bool>" {
		t.Fatalf("ret with default = %s", s)
	}
}

func TestAssocShorthandProjects(t *testing.T) {
	f := newFixture(t)
	k := f.crate("app")
	iter := f.add(k, traitItem("Iterator"))
	item := f.member(iter, assocType("Item", nil))
	fn := f.add(k, fnItem("first", tparams("T"), nil))
	f.items[fn].Generics.Types[0].Bounds = []hir.TypeBound{bound(iter)}
	f.items[fn].Fn.Params = []hir.TypeRef{param(fn, 0)}
	f.items[fn].Fn.Ret = ptr(assocOf(param(fn, 0), "Item"))
	f.commit()

	sig := run(t, f.db, func(rt *query.Runtime) types.PolyFnSig {
		return f.db.CallableItemSignature(rt, hir.CallableDefID{Def: fn})
	})
	ret := sig.SkipBinders().Ret
	if ret.Kind != types.KindAlias || ret.Def != item {
		t.Fatalf("T::Item lowered to %s", types.Display(ret, nil))
	}
	if arg := ret.Args.Type(0); arg.Kind != types.KindBoundVar || arg.Bound.Index != 0 {
		t.Fatalf("projection self = %s", types.Display(arg, nil))
	}
}

func TestMutualParamPredicatesRecover(t *testing.T) {
	f := newFixture(t)
	k := f.crate("app")
	tr := f.add(k, traitItem("Tr"))
	f.items[tr].Generics = tparams("X")
	f.member(tr, assocType("A", nil))
	fn := f.add(k, fnItem("f", tparams("T", "U"), nil))
	g := &f.items[fn].Generics
	g.Types[0].Bounds = []hir.TypeBound{bound(tr, assocOf(param(fn, 1), "A"))}
	g.Types[1].Bounds = []hir.TypeBound{bound(tr, assocOf(param(fn, 0), "A"))}
	f.commit()

	paramT := hir.TypeOrConstParamID{Parent: fn, Local: 0}
	preds := run(t, f.db, func(rt *query.Runtime) []types.Binders[types.WhereClause] {
		return f.db.GenericPredicatesForParam(rt, fn, paramT, "A")
	})
	if len(preds) != 0 {
		t.Fatalf("cyclic predicates = %+v, want recovered empty list", preds)
	}
	paramU := hir.TypeOrConstParamID{Parent: fn, Local: 1}
	keyU := ParamPredicatesKey{Def: fn, Param: paramU, Assoc: "A"}
	if got, ok := f.db.genericPredicatesForParam.Peek(keyU); !ok || len(got) != 0 {
		t.Fatalf("U predicates = %+v (%v), want memoized empty list", got, ok)
	}
	var members []any
	for _, rec := range f.db.Store().Cycles() {
		if !rec.Recovered {
			continue
		}
		for _, p := range rec.Participants {
			if p.Query == "generic_predicates_for_param" {
				members = append(members, p.Key)
			}
		}
	}
	if !slices.Contains(members, any(ParamPredicatesKey{Def: fn, Param: paramT, Assoc: "A"})) || !slices.Contains(members, any(keyU)) {
		t.Fatalf("cycle members = %v, want both T and U", members)
	}
	all := run(t, f.db, func(rt *query.Runtime) []types.Binders[types.WhereClause] {
		return f.db.GenericPredicates(rt, fn)
	})
	if len(all) != 2 {
		t.Fatalf("generic predicates = %d, want 2", len(all))
	}
}
