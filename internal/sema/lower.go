package sema

import (
	"tyinc/internal/hir"
	"tyinc/internal/query"
	"tyinc/internal/types"
)

// paramMode selects how generic parameters lower.
type paramMode uint8

const (
	// paramBound lowers parameters to bound variables of the definition's
	// binder, for values cached as Binders.
	paramBound paramMode = iota
	// paramPlaceholder lowers parameters to rigid placeholders, for types
	// seen from inside the definition.
	paramPlaceholder
)

// tyLowerer turns resolved type references into types.Ty in the generic
// context of one definition.
type tyLowerer struct {
	db    *Database
	rt    *query.Runtime
	gens  *generics
	mode  paramMode
	depth uint32

	// fn and opaque enable `impl Trait` in return position.
	fn      hir.FunctionID
	opaque  bool
	opaques []types.ImplTraitBounds

	// infer creates the type of `_` and of omitted generic arguments.
	// Without it both lower to the error type.
	infer func() *types.Ty
}

func (db *Database) lowerer(rt *query.Runtime, def hir.GenericDefID, mode paramMode) *tyLowerer {
	return &tyLowerer{db: db, rt: rt, gens: db.generics(rt, def), mode: mode}
}

// identity maps every parameter of the context to itself.
func (l *tyLowerer) identity() types.Substitution {
	if l.mode == paramPlaceholder {
		return l.db.placeholders(l.gens)
	}
	return types.BoundVarsSubst(l.gens.kinds(), l.depth)
}

func (l *tyLowerer) lower(ref hir.TypeRef) *types.Ty {
	switch ref.Kind {
	case hir.TypeRefInfer:
		if l.infer != nil {
			return l.infer()
		}
		return types.Error()
	case hir.TypeRefNever:
		return types.Never()
	case hir.TypeRefBuiltin:
		if ref.Builtin == "str" {
			return types.Str()
		}
		if s, ok := types.ParseScalar(ref.Builtin); ok {
			return types.MakeScalar(s)
		}
		return types.Error()
	case hir.TypeRefTuple:
		elems := make([]*types.Ty, len(ref.Args))
		for i, a := range ref.Args {
			elems[i] = l.lower(a)
		}
		return types.MakeTuple(elems...)
	case hir.TypeRefPath:
		return l.path(ref)
	case hir.TypeRefParam:
		return l.param(ref.Param)
	case hir.TypeRefSelf:
		return l.selfTy()
	case hir.TypeRefRef:
		return types.MakeRef(l.lowerPtr(ref.Elem), ref.Mut, l.lifetime(ref.Lifetime))
	case hir.TypeRefSlice:
		return types.MakeSlice(l.lowerPtr(ref.Elem))
	case hir.TypeRefArray:
		return types.MakeArray(l.lowerPtr(ref.Elem), l.constRef(ref.Len))
	case hir.TypeRefFn:
		params := make([]*types.Ty, len(ref.Args))
		for i, a := range ref.Args {
			params[i] = l.lower(a)
		}
		ret := types.Unit()
		if ref.Ret != nil {
			ret = l.lower(*ref.Ret)
		}
		return types.MakeFnPtr(params, ret)
	case hir.TypeRefAssoc:
		return l.assoc(ref)
	case hir.TypeRefImplTrait:
		return l.implTrait(ref.Bounds)
	default:
		return types.Error()
	}
}

func (l *tyLowerer) lowerPtr(ref *hir.TypeRef) *types.Ty {
	if ref == nil {
		return types.Error()
	}
	return l.lower(*ref)
}

// Paths -------------------------------------------------------------------------

func (l *tyLowerer) path(ref hir.TypeRef) *types.Ty {
	if adt := l.db.adtData.Get(l.rt, hir.AdtID(ref.Def)); adt != nil {
		return types.MakeAdt(ref.Def, l.fillArgs(ref.Def, nil, ref.Args))
	}
	alias := l.db.ty.Get(l.rt, hir.AliasTy(hir.TypeAliasID(ref.Def)))
	args := l.fillArgs(ref.Def, nil, ref.Args)
	if len(args) != alias.Len {
		return types.Error()
	}
	return alias.Substitute(args)
}

// fillArgs builds the substitution for def from prefix, then explicit
// arguments for the definition's own parameters, then defaults.
func (l *tyLowerer) fillArgs(def hir.GenericDefID, prefix types.Substitution, explicit []hir.TypeRef) types.Substitution {
	g := l.db.generics(l.rt, def)
	out := make(types.Substitution, 0, g.len())
	out = append(out, prefix...)
	for i := len(out); i < g.parentLen; i++ {
		out = append(out, l.missing(g.params[i]))
	}
	start := len(out)
	var defaults []types.Binders[types.GenericArg]
	for i := start; i < g.len(); i++ {
		p := g.params[i]
		if j := i - start; j < len(explicit) {
			out = append(out, l.arg(p, explicit[j]))
			continue
		}
		if p.Default != nil {
			if defaults == nil {
				defaults = l.db.genericDefaults.Get(l.rt, def)
			}
			if i < len(defaults) && defaults[i].Len == g.len() {
				out = append(out, defaults[i].Substitute(padArgs(out, g)))
				continue
			}
		}
		out = append(out, l.missing(p))
	}
	return out
}

// padArgs extends a partial substitution to the full parameter list with
// error arguments.
func padArgs(args types.Substitution, g *generics) types.Substitution {
	rest := types.ErrorSubst(g.kinds()[len(args):])
	return args.Append(rest...)
}

func (l *tyLowerer) arg(p GenericParam, ref hir.TypeRef) types.GenericArg {
	if !p.Const {
		return types.TyArg(l.lower(ref))
	}
	switch {
	case ref.IsConstArg():
		return types.ConstArg(l.constRef(ref.Len))
	case ref.Kind == hir.TypeRefParam:
		return types.ConstArg(l.constParam(ref.Param))
	default:
		return types.ConstArg(types.UnknownConst())
	}
}

func (l *tyLowerer) missing(p GenericParam) types.GenericArg {
	if p.Const {
		return types.ConstArg(types.UnknownConst())
	}
	if l.infer != nil {
		return types.TyArg(l.infer())
	}
	return types.TyArg(types.Error())
}

// Parameters --------------------------------------------------------------------

func (l *tyLowerer) param(id hir.TypeOrConstParamID) *types.Ty {
	idx, ok := l.gens.indexOf(id)
	if !ok || l.gens.params[idx].Const {
		return types.Error()
	}
	if l.mode == paramPlaceholder {
		return types.MakePlaceholder(l.db.params.Intern(id))
	}
	return types.MakeBound(l.depth, uint32(idx))
}

func (l *tyLowerer) constParam(id hir.TypeOrConstParamID) *types.Const {
	idx, ok := l.gens.indexOf(id)
	if !ok || !l.gens.params[idx].Const {
		return types.UnknownConst()
	}
	if l.mode == paramPlaceholder {
		return &types.Const{Kind: types.ConstParam, Param: l.db.params.Intern(id)}
	}
	return &types.Const{Kind: types.ConstBound, Bound: types.BoundVar{Debruijn: l.depth, Index: uint32(idx)}}
}

// selfTy lowers `Self`: the trait's Self parameter, or the impl's self type.
func (l *tyLowerer) selfTy() *types.Ty {
	if id, ok := l.gens.traitSelf(); ok {
		return l.param(id)
	}
	if impl, n, ok := l.gens.impl(); ok {
		self := l.db.implSelfTy.Get(l.rt, impl)
		if self.Len != n {
			return types.Error()
		}
		return self.Substitute(l.identity().Prefix(n))
	}
	return types.Error()
}

func (l *tyLowerer) lifetime(ref *hir.LifetimeRef) types.Lifetime {
	switch {
	case ref == nil:
		return types.Lifetime{}
	case ref.Static:
		return types.Lifetime{Kind: types.LifetimeStatic}
	default:
		return types.Lifetime{Kind: types.LifetimeParam, Param: l.db.lifetimes.Intern(ref.Param)}
	}
}

func (l *tyLowerer) constRef(c *hir.ConstRef) *types.Const {
	if c == nil {
		return types.UnknownConst()
	}
	switch c.Kind {
	case hir.ConstRefLiteral:
		return types.KnownConst(c.Value)
	case hir.ConstRefPath:
		if v, ok := l.db.constEval.Get(l.rt, c.Const).Uint64(); ok {
			return types.KnownConst(v)
		}
		return types.UnknownConst()
	case hir.ConstRefParam:
		return l.constParam(c.Param)
	default:
		return types.UnknownConst()
	}
}

// Associated types ---------------------------------------------------------------

func (l *tyLowerer) assoc(ref hir.TypeRef) *types.Ty {
	if ref.Elem == nil {
		return types.Error()
	}
	if ref.Bound != nil {
		self := l.lower(*ref.Elem)
		return l.projection(l.traitRef(self, *ref.Bound), ref.Assoc)
	}
	switch ref.Elem.Kind {
	case hir.TypeRefParam:
		return l.shorthand(ref.Elem.Param, ref.Assoc)
	case hir.TypeRefSelf:
		if id, ok := l.gens.traitSelf(); ok {
			return l.shorthand(id, ref.Assoc)
		}
		if impl, n, ok := l.gens.impl(); ok {
			tr := l.db.implTrait.Get(l.rt, impl)
			if tr == nil || tr.Len != n {
				return types.Error()
			}
			return l.projection(tr.Substitute(l.identity().Prefix(n)), ref.Assoc)
		}
	}
	return types.Error()
}

// shorthand resolves `T::Name` through the bounds declared on T.
func (l *tyLowerer) shorthand(param hir.TypeOrConstParamID, name string) *types.Ty {
	key := ParamPredicatesKey{Def: l.gens.def, Param: param, Assoc: name}
	preds := l.db.genericPredicatesForParam.Get(l.rt, key)
	id := l.identity()
	for _, p := range preds {
		if p.Len != len(id) {
			continue
		}
		clause := p.Substitute(id)
		if clause.Kind != types.ClauseImplemented {
			continue
		}
		if ty := l.projection(clause.Trait, name); !ty.IsError() {
			return ty
		}
	}
	return types.Error()
}

func (l *tyLowerer) projection(ref types.TraitRef, name string) *types.Ty {
	assoc, owner, ok := l.db.findAssoc(l.rt, ref, name)
	if !ok {
		return types.Error()
	}
	return types.MakeAlias(types.ProjectionTy{Assoc: assoc, Args: owner.Args})
}

// Bounds ------------------------------------------------------------------------

func (l *tyLowerer) traitRef(self *types.Ty, b hir.TypeBound) types.TraitRef {
	args := l.fillArgs(b.Trait.Def(), types.Substitution{types.TyArg(self)}, b.Args)
	return types.TraitRef{Trait: b.Trait, Args: args}
}

// lowerBound lowers `self: Trait<Args, Name = Ty>` to an Implemented clause
// plus one AliasEq clause per binding.
func (l *tyLowerer) lowerBound(self *types.Ty, b hir.TypeBound) types.Predicates {
	ref := l.traitRef(self, b)
	out := types.Predicates{types.Implemented(ref)}
	for _, binding := range b.Bindings {
		assoc, owner, ok := l.db.findAssoc(l.rt, ref, binding.Name)
		if !ok {
			continue
		}
		alias := types.ProjectionTy{Assoc: assoc, Args: owner.Args}
		out = append(out, types.Normalizes(alias, l.lower(binding.Type)))
	}
	return out
}

func (l *tyLowerer) implTrait(bounds []hir.TypeBound) *types.Ty {
	if !l.opaque {
		return types.Error()
	}
	idx := len(l.opaques)
	l.opaques = append(l.opaques, types.ImplTraitBounds{})

	l.opaque = false
	l.depth++
	self := types.MakeBound(0, 0)
	var preds types.Predicates
	for _, b := range bounds {
		preds = append(preds, l.lowerBound(self, b)...)
	}
	l.depth--
	l.opaque = true

	l.opaques[idx] = types.ImplTraitBounds{Bounds: types.MakeBinders(1, preds)}
	id := l.db.implTraits.Intern(hir.ImplTraitID{Func: l.fn, Index: uint32(idx)})
	return types.MakeOpaque(id, l.identity())
}

// Trait hierarchy ---------------------------------------------------------------

// findAssoc finds the associated type called name in the trait of ref or
// one of its supertraits, returning the trait ref that declares it.
func (db *Database) findAssoc(rt *query.Runtime, ref types.TraitRef, name string) (hir.AssocTypeID, types.TraitRef, bool) {
	seen := map[hir.TraitID]bool{}
	queue := []types.TraitRef{ref}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if seen[cur.Trait] {
			continue
		}
		seen[cur.Trait] = true
		info := db.traitData.Get(rt, cur.Trait)
		if info == nil {
			continue
		}
		if id, ok := info.AssocTypes[name]; ok {
			return id, cur, true
		}
		queue = append(queue, db.superTraitRefs(rt, cur)...)
	}
	return 0, types.TraitRef{}, false
}

// superTraitRefs returns the direct supertraits of ref, instantiated with
// ref's arguments.
func (db *Database) superTraitRefs(rt *query.Runtime, ref types.TraitRef) []types.TraitRef {
	key := ParamPredicatesKey{Def: ref.Trait.Def(), Param: hir.TraitSelf(ref.Trait)}
	var out []types.TraitRef
	for _, p := range db.genericPredicatesForParam.Get(rt, key) {
		if p.Len != len(ref.Args) {
			continue
		}
		clause := p.Substitute(ref.Args)
		if clause.Kind == types.ClauseImplemented && clause.Trait.Trait != ref.Trait {
			out = append(out, clause.Trait)
		}
	}
	return out
}

// traitDeclaresAssoc reports whether trait or one of its supertraits
// declares an associated type called name. It reads names only, so it is
// safe to call while bounds are being lowered.
func (db *Database) traitDeclaresAssoc(rt *query.Runtime, trait hir.TraitID, name string) bool {
	seen := map[hir.TraitID]bool{}
	queue := []hir.TraitID{trait}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if seen[cur] {
			continue
		}
		seen[cur] = true
		info := db.traitData.Get(rt, cur)
		if info == nil {
			continue
		}
		if _, ok := info.AssocTypes[name]; ok {
			return true
		}
		queue = append(queue, info.Supers...)
	}
	return false
}
