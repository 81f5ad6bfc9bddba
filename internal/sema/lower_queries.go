package sema

import (
	"reflect"

	"tyinc/internal/hir"
	"tyinc/internal/query"
	"tyinc/internal/types"
)

// TraitEnvironment is the set of assumptions in scope inside a definition:
// its where clauses with parameters as placeholders, closed under
// supertraits.
type TraitEnvironment struct {
	Owner   hir.GenericDefID
	Crate   hir.CrateID
	Block   hir.BlockID
	Clauses types.Predicates
}

// Env returns the solver environment of the owner.
func (e *TraitEnvironment) Env() types.Environment {
	return types.Environment{Owner: e.Owner, Block: e.Block}
}

func errorBinders(n int) types.Binders[*types.Ty] {
	return types.MakeBinders(n, types.Error())
}

// Type and value lowering --------------------------------------------------------

func (db *Database) tyQuery(rt *query.Runtime, def hir.TyDefID) types.Binders[*types.Ty] {
	g := db.generics(rt, def.Def)
	if def.Kind == hir.TyDefAdt {
		return types.MakeBinders(g.len(), types.MakeAdt(def.Def, types.BoundVarsSubst(g.kinds(), 0)))
	}
	item := db.item(rt, def.Def)
	if item == nil || item.Alias == nil || item.Alias.Type == nil {
		return errorBinders(g.len())
	}
	l := db.lowerer(rt, def.Def, paramBound)
	return types.MakeBinders(g.len(), l.lower(*item.Alias.Type))
}

func (db *Database) tyRecover(rt *query.Runtime, _ []query.Participant, def hir.TyDefID) types.Binders[*types.Ty] {
	return errorBinders(db.generics(rt, def.Def).len())
}

func (db *Database) valueTyQuery(rt *query.Runtime, def hir.ValueTyDefID) types.Binders[*types.Ty] {
	g := db.generics(rt, def.Def)
	ident := types.BoundVarsSubst(g.kinds(), 0)
	switch def.Kind {
	case hir.ValueFunction:
		id := db.callables.Intern(hir.CallableDefID{Kind: hir.CallableFunction, Def: def.Def})
		return types.MakeBinders(g.len(), types.MakeFnDef(id, ident))
	case hir.ValueStruct, hir.ValueVariant:
		v, ok := db.adtData.Get(rt, hir.AdtID(def.Def)).Variant(def.Variant)
		if !ok {
			return errorBinders(g.len())
		}
		if v.Shape != hir.ShapeTuple {
			return types.MakeBinders(g.len(), types.MakeAdt(def.Def, ident))
		}
		kind := hir.CallableStruct
		if def.Kind == hir.ValueVariant {
			kind = hir.CallableVariant
		}
		id := db.callables.Intern(hir.CallableDefID{Kind: kind, Def: def.Def, Variant: def.Variant})
		return types.MakeBinders(g.len(), types.MakeFnDef(id, ident))
	default:
		item := db.item(rt, def.Def)
		if item == nil || item.Constant == nil {
			return errorBinders(g.len())
		}
		l := db.lowerer(rt, def.Def, paramBound)
		return types.MakeBinders(g.len(), l.lower(item.Constant.Type))
	}
}

func (db *Database) implSelfTyQuery(rt *query.Runtime, impl hir.ImplID) types.Binders[*types.Ty] {
	item := db.item(rt, impl.Def())
	l := db.lowerer(rt, impl.Def(), paramBound)
	if item == nil || item.Impl == nil {
		return errorBinders(l.gens.len())
	}
	return types.MakeBinders(l.gens.len(), l.lower(item.Impl.SelfTy))
}

func (db *Database) implSelfTyRecover(rt *query.Runtime, _ []query.Participant, impl hir.ImplID) types.Binders[*types.Ty] {
	return errorBinders(db.generics(rt, impl.Def()).len())
}

func (db *Database) constParamTyQuery(rt *query.Runtime, param hir.ConstParamID) *types.Ty {
	for _, p := range db.genericParams.Get(rt, param.Parent).Params {
		if p.ID != param || !p.Const || p.ConstTy == nil {
			continue
		}
		return db.lowerer(rt, param.Parent, paramPlaceholder).lower(*p.ConstTy)
	}
	return types.Error()
}

func (db *Database) implTraitQuery(rt *query.Runtime, impl hir.ImplID) *types.Binders[types.TraitRef] {
	item := db.item(rt, impl.Def())
	if item == nil || item.Impl == nil || item.Impl.Trait == nil {
		return nil
	}
	l := db.lowerer(rt, impl.Def(), paramBound)
	self := db.implSelfTy.Get(rt, impl).SkipBinders()
	b := types.MakeBinders(l.gens.len(), l.traitRef(self, *item.Impl.Trait))
	return &b
}

func (db *Database) fieldTypesQuery(rt *query.Runtime, variant hir.VariantID) []types.Binders[*types.Ty] {
	item := db.item(rt, variant.Adt.Def())
	if item == nil {
		return nil
	}
	var fields []hir.FieldData
	switch {
	case item.Struct != nil && variant.Index == 0:
		fields = item.Struct.Fields
	case item.Enum != nil && int(variant.Index) < len(item.Enum.Variants):
		fields = item.Enum.Variants[variant.Index].Fields
	default:
		return nil
	}
	l := db.lowerer(rt, variant.Adt.Def(), paramBound)
	out := make([]types.Binders[*types.Ty], len(fields))
	for i, f := range fields {
		out[i] = types.MakeBinders(l.gens.len(), l.lower(f.Type))
	}
	return out
}

func (db *Database) callableItemSignatureQuery(rt *query.Runtime, def hir.CallableDefID) types.PolyFnSig {
	l := db.lowerer(rt, def.Def, paramBound)
	n := l.gens.len()
	if def.Kind != hir.CallableFunction {
		fields := db.fieldTypes.Get(rt, hir.VariantID{Adt: hir.AdtID(def.Def), Index: def.Variant})
		params := make([]*types.Ty, len(fields))
		for i, f := range fields {
			params[i] = f.SkipBinders()
		}
		ret := types.MakeAdt(def.Def, types.BoundVarsSubst(l.gens.kinds(), 0))
		return types.MakeBinders(n, types.FnSig{Params: params, Ret: ret})
	}

	item := db.item(rt, def.Def)
	if item == nil || item.Fn == nil {
		return types.MakeBinders(n, types.FnSig{Ret: types.Error()})
	}
	fn := item.Fn
	params := make([]*types.Ty, 0, len(fn.Params)+1)
	if fn.Self != nil {
		self := l.selfTy()
		if fn.Self.Ref {
			self = types.MakeRef(self, fn.Self.Mut, types.Lifetime{})
		}
		params = append(params, self)
	}
	for _, p := range fn.Params {
		params = append(params, l.lower(p))
	}
	ret := types.Unit()
	if fn.Ret != nil {
		l.fn, l.opaque = hir.FunctionID(def.Def), true
		ret = l.lower(*fn.Ret)
	}
	return types.MakeBinders(n, types.FnSig{Params: params, Ret: ret})
}

func (db *Database) returnTypeImplTraitsQuery(rt *query.Runtime, fn hir.FunctionID) *types.Binders[types.ReturnTypeImplTraits] {
	item := db.item(rt, fn.Def())
	if item == nil || item.Fn == nil || item.Fn.Ret == nil {
		return nil
	}
	l := db.lowerer(rt, fn.Def(), paramBound)
	l.fn, l.opaque = fn, true
	l.lower(*item.Fn.Ret)
	if len(l.opaques) == 0 {
		return nil
	}
	b := types.MakeBinders(l.gens.len(), types.ReturnTypeImplTraits{ImplTraits: l.opaques})
	return &b
}

// Predicates ------------------------------------------------------------------------

// impliedTraitClause returns `Self: Trait<params>` for a trait or an item
// inside one.
func (db *Database) impliedTraitClause(rt *query.Runtime, l *tyLowerer) (types.WhereClause, bool) {
	trait, ok := l.gens.trait()
	if !ok {
		return types.WhereClause{}, false
	}
	n := len(db.genericParams.Get(rt, trait.Def()).Params)
	return types.Implemented(types.TraitRef{Trait: trait, Args: l.identity().Prefix(n)}), true
}

// targetsParam reports whether a where-clause target names param.
func targetsParam(target hir.TypeRef, param hir.TypeOrConstParamID, g *generics) bool {
	switch target.Kind {
	case hir.TypeRefParam:
		return target.Param == param
	case hir.TypeRefSelf:
		self, ok := g.traitSelf()
		return ok && self == param
	}
	return false
}

func (db *Database) genericPredicatesForParamQuery(rt *query.Runtime, key ParamPredicatesKey) []types.Binders[types.WhereClause] {
	l := db.lowerer(rt, key.Def, paramBound)
	n := l.gens.len()
	if _, ok := l.gens.indexOf(key.Param); !ok {
		return nil
	}
	keep := func(trait hir.TraitID) bool {
		return key.Assoc == "" || db.traitDeclaresAssoc(rt, trait, key.Assoc)
	}
	var out []types.Binders[types.WhereClause]
	add := func(preds types.Predicates) {
		for _, p := range preds {
			out = append(out, types.MakeBinders(n, p))
		}
	}

	if self, ok := l.gens.traitSelf(); ok && self == key.Param {
		if clause, ok := db.impliedTraitClause(rt, l); ok && keep(clause.Trait.Trait) {
			add(types.Predicates{clause})
		}
	}
	self := l.param(key.Param)
	for _, scope := range l.gens.scopes() {
		for _, p := range scope.Params {
			if p.ID != key.Param {
				continue
			}
			for _, b := range p.Bounds {
				if keep(b.Trait) {
					add(l.lowerBound(self, b))
				}
			}
		}
		for _, w := range scope.Where {
			if targetsParam(w.Target, key.Param, l.gens) && keep(w.Bound.Trait) {
				add(l.lowerBound(self, w.Bound))
			}
		}
	}
	return out
}

func (db *Database) genericPredicatesForParamRecover(*query.Runtime, []query.Participant, ParamPredicatesKey) []types.Binders[types.WhereClause] {
	return nil
}

func (db *Database) genericPredicatesQuery(rt *query.Runtime, def hir.GenericDefID) []types.Binders[types.WhereClause] {
	l := db.lowerer(rt, def, paramBound)
	n := l.gens.len()
	var out []types.Binders[types.WhereClause]
	add := func(preds types.Predicates) {
		for _, p := range preds {
			out = append(out, types.MakeBinders(n, p))
		}
	}
	if clause, ok := db.impliedTraitClause(rt, l); ok {
		add(types.Predicates{clause})
	}
	for _, scope := range l.gens.scopes() {
		for _, p := range scope.Params {
			self := l.param(p.ID)
			for _, b := range p.Bounds {
				add(l.lowerBound(self, b))
			}
		}
		for _, w := range scope.Where {
			add(l.lowerBound(l.lower(w.Target), w.Bound))
		}
	}
	return out
}

func (db *Database) traitEnvironmentQuery(rt *query.Runtime, def hir.GenericDefID) *TraitEnvironment {
	subst := db.placeholderSubst(rt, def)
	var clauses types.Predicates
	for _, p := range db.genericPredicates.Get(rt, def) {
		if p.Len == len(subst) {
			clauses = append(clauses, p.Substitute(subst))
		}
	}
	krate, block := db.defLocation(rt, def)
	return &TraitEnvironment{
		Owner:   def,
		Crate:   krate,
		Block:   block,
		Clauses: db.elaborate(rt, clauses),
	}
}

// elaborate closes clauses under supertraits, dropping duplicates.
func (db *Database) elaborate(rt *query.Runtime, clauses types.Predicates) types.Predicates {
	var out types.Predicates
	has := func(c types.WhereClause) bool {
		for _, o := range out {
			if reflect.DeepEqual(o, c) {
				return true
			}
		}
		return false
	}
	work := append(types.Predicates(nil), clauses...)
	for len(work) > 0 {
		c := work[0]
		work = work[1:]
		if has(c) {
			continue
		}
		out = append(out, c)
		if c.Kind != types.ClauseImplemented {
			continue
		}
		for _, super := range db.superTraitRefs(rt, c.Trait) {
			work = append(work, types.Implemented(super))
		}
	}
	return out
}

func (db *Database) genericDefaultsQuery(rt *query.Runtime, def hir.GenericDefID) []types.Binders[types.GenericArg] {
	l := db.lowerer(rt, def, paramBound)
	n := l.gens.len()
	kinds := l.gens.kinds()
	out := make([]types.Binders[types.GenericArg], n)
	for i, p := range l.gens.params {
		arg := types.ErrorSubst(kinds[i : i+1])[0]
		if p.Default != nil && !p.Const {
			arg = types.TyArg(forbidForwardRefs(l.lower(*p.Default), i))
		}
		out[i] = types.MakeBinders(n, arg)
	}
	return out
}

func (db *Database) genericDefaultsRecover(rt *query.Runtime, _ []query.Participant, def hir.GenericDefID) []types.Binders[types.GenericArg] {
	g := db.generics(rt, def)
	errs := types.ErrorSubst(g.kinds())
	out := make([]types.Binders[types.GenericArg], len(errs))
	for i, a := range errs {
		out[i] = types.MakeBinders(len(errs), a)
	}
	return out
}

// forbidForwardRefs replaces references to parameter i and later ones with
// the error type: a default may only mention the parameters before it.
func forbidForwardRefs(t *types.Ty, i int) *types.Ty {
	return t.FoldWith(&types.Folder{
		Ty: func(x *types.Ty, depth uint32) *types.Ty {
			if x.Kind == types.KindBoundVar && x.Bound.Debruijn == depth && x.Bound.Index >= uint32(i) {
				return types.Error()
			}
			return nil
		},
	}, 0)
}
