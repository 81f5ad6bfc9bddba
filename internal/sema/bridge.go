package sema

import (
	"reflect"
	"slices"

	"tyinc/internal/hir"
	"tyinc/internal/query"
	"tyinc/internal/solve"
	"tyinc/internal/types"
)

// Solver datums ------------------------------------------------------------------

func (db *Database) associatedTyDataQuery(rt *query.Runtime, assoc hir.AssocTypeID) *solve.AssociatedTyDatum {
	item := db.item(rt, assoc.Def())
	if item == nil || item.Alias == nil || !item.IsAssoc() {
		return nil
	}
	trait := hir.TraitID(item.Container)
	if db.traitData.Get(rt, trait) == nil {
		return nil
	}
	l := db.lowerer(rt, assoc.Def(), paramBound)
	self := types.MakeAlias(types.ProjectionTy{Assoc: assoc, Args: l.identity()})
	var bounds types.Predicates
	for _, b := range item.Alias.Bounds {
		bounds = append(bounds, l.lowerBound(self, b)...)
	}
	return &solve.AssociatedTyDatum{
		Trait:  trait,
		ID:     assoc,
		Name:   item.Name,
		Bounds: types.MakeBinders(l.gens.len(), bounds),
	}
}

func (db *Database) traitDatumQuery(rt *query.Runtime, trait hir.TraitID) *solve.TraitDatum {
	info := db.traitData.Get(rt, trait)
	if info == nil {
		return nil
	}
	g := db.generics(rt, trait.Def())
	implied := types.Implemented(types.TraitRef{Trait: trait, Args: types.BoundVarsSubst(g.kinds(), 0)})
	var where types.Predicates
	for _, p := range db.genericPredicates.Get(rt, trait.Def()) {
		if clause := p.SkipBinders(); !reflect.DeepEqual(clause, implied) {
			where = append(where, clause)
		}
	}
	return &solve.TraitDatum{
		ID:     trait,
		Kinds:  g.kinds(),
		Where:  types.MakeBinders(g.len(), where),
		Auto:   info.Auto,
		Marker: info.Marker,
		Assoc:  info.AssocOrder,
	}
}

func (db *Database) structDatumQuery(rt *query.Runtime, adt hir.AdtID) *solve.StructDatum {
	info := db.adtData.Get(rt, adt)
	if info == nil {
		return nil
	}
	g := db.generics(rt, adt.Def())
	var bound solve.StructBound
	for i := range info.Variants {
		for _, f := range db.fieldTypes.Get(rt, hir.VariantID{Adt: adt, Index: uint32(i)}) {
			bound.Fields = append(bound.Fields, f.SkipBinders())
		}
	}
	for _, p := range db.genericPredicates.Get(rt, adt.Def()) {
		bound.Where = append(bound.Where, p.SkipBinders())
	}
	return &solve.StructDatum{ID: adt, Kinds: g.kinds(), Binders: types.MakeBinders(g.len(), bound)}
}

func (db *Database) implDatumQuery(rt *query.Runtime, impl hir.ImplID) *solve.ImplDatum {
	info := db.implData.Get(rt, impl)
	if info == nil || !info.HasTrait {
		return nil
	}
	ref := db.implTrait.Get(rt, impl)
	if ref == nil {
		return nil
	}
	g := db.generics(rt, impl.Def())
	var where types.Predicates
	for _, p := range db.genericPredicates.Get(rt, impl.Def()) {
		where = append(where, p.SkipBinders())
	}
	var assoc []hir.AssocTypeID
	if trait := db.traitData.Get(rt, ref.SkipBinders().Trait); trait != nil {
		for name := range info.AssocTypes {
			if id, ok := trait.AssocTypes[name]; ok {
				assoc = append(assoc, id)
			}
		}
		slices.Sort(assoc)
	}
	return &solve.ImplDatum{
		ID:       impl,
		Kinds:    g.kinds(),
		Binders:  types.MakeBinders(g.len(), solve.ImplBound{Trait: ref.SkipBinders(), Where: where}),
		Negative: info.Negative,
		Assoc:    assoc,
	}
}

func (db *Database) fnDefDatumQuery(rt *query.Runtime, id types.FnDefID) *solve.FnDefDatum {
	callable := db.callables.Lookup(id)
	g := db.generics(rt, callable.Def)
	sig := db.callableItemSignature.Get(rt, callable)
	var where types.Predicates
	for _, p := range db.genericPredicates.Get(rt, callable.Def) {
		where = append(where, p.SkipBinders())
	}
	return &solve.FnDefDatum{
		ID:      id,
		Kinds:   g.kinds(),
		Binders: types.MakeBinders(g.len(), solve.FnDefBound{Sig: sig.SkipBinders(), Where: where}),
	}
}

func (db *Database) associatedTyValueQuery(rt *query.Runtime, id hir.AssocTypeValueID) *solve.AssociatedTyValue {
	info := db.implData.Get(rt, id.Impl)
	ref := db.implTrait.Get(rt, id.Impl)
	if info == nil || ref == nil {
		return nil
	}
	datum := db.associatedTyData.Get(rt, id.Assoc)
	if datum == nil {
		return nil
	}
	alias, ok := info.AssocTypes[datum.Name]
	if !ok {
		return nil
	}
	return &solve.AssociatedTyValue{
		Impl:  id.Impl,
		Assoc: id.Assoc,
		Value: db.ty.Get(rt, hir.AliasTy(alias)),
	}
}

func (db *Database) programClausesForEnvQuery(rt *query.Runtime, env types.Environment) types.Predicates {
	if !env.Owner.IsValid() {
		return nil
	}
	return db.traitEnvironment.Get(rt, env.Owner).Clauses
}

// Variance -----------------------------------------------------------------------

// varianceCollector records how each parameter of a binder is used.
type varianceCollector struct {
	db  *Database
	rt  *query.Runtime
	out []types.Variance
}

func (c *varianceCollector) ty(t *types.Ty, pos types.Variance, depth uint32) {
	if t == nil || pos == types.Bivariant {
		return
	}
	switch t.Kind {
	case types.KindBoundVar:
		if t.Bound.Debruijn == depth && int(t.Bound.Index) < len(c.out) {
			c.out[t.Bound.Index] = c.out[t.Bound.Index].Meet(pos)
		}
	case types.KindRef:
		if t.Mut {
			c.ty(t.Elem, pos.Xform(types.Invariant), depth)
		} else {
			c.ty(t.Elem, pos, depth)
		}
	case types.KindSlice, types.KindArray:
		c.ty(t.Elem, pos, depth)
	case types.KindTuple:
		for _, e := range t.Elems {
			c.ty(e, pos, depth)
		}
	case types.KindFnPtr:
		for _, p := range t.FnPtrParams() {
			c.ty(p, pos.Xform(types.Contravariant), depth)
		}
		c.ty(t.FnPtrRet(), pos, depth)
	case types.KindAdt:
		vs := c.db.adtVariance.Get(c.rt, hir.AdtID(t.Def))
		for i, a := range t.Args {
			v := types.Invariant
			if i < len(vs) {
				v = vs[i]
			}
			c.ty(a.Ty, pos.Xform(v), depth)
		}
	default:
		for _, a := range t.Args {
			c.ty(a.Ty, pos.Xform(types.Invariant), depth)
		}
	}
}

func (db *Database) fnDefVarianceQuery(rt *query.Runtime, id types.FnDefID) []types.Variance {
	callable := db.callables.Lookup(id)
	sig := db.callableItemSignature.Get(rt, callable)
	c := &varianceCollector{db: db, rt: rt, out: make([]types.Variance, sig.Len)}
	for _, p := range sig.SkipBinders().Params {
		c.ty(p, types.Contravariant, 0)
	}
	c.ty(sig.SkipBinders().Ret, types.Covariant, 0)
	return c.out
}

func (db *Database) adtVarianceQuery(rt *query.Runtime, adt hir.AdtID) []types.Variance {
	info := db.adtData.Get(rt, adt)
	g := db.generics(rt, adt.Def())
	c := &varianceCollector{db: db, rt: rt, out: make([]types.Variance, g.len())}
	if info == nil {
		return c.out
	}
	for i := range info.Variants {
		for _, f := range db.fieldTypes.Get(rt, hir.VariantID{Adt: adt, Index: uint32(i)}) {
			c.ty(f.SkipBinders(), types.Covariant, 0)
		}
	}
	return c.out
}

func (db *Database) adtVarianceRecover(rt *query.Runtime, _ []query.Participant, adt hir.AdtID) []types.Variance {
	out := make([]types.Variance, db.generics(rt, adt.Def()).len())
	for i := range out {
		out[i] = types.Invariant
	}
	return out
}
