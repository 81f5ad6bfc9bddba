package sema

import (
	"slices"

	"tyinc/internal/hir"
	"tyinc/internal/types"
)

// lookupMethod resolves `recv.name(...)`. It walks the autoderef steps of
// the receiver type and, at each step, prefers inherent methods to trait
// methods. The returned signature is instantiated and its first parameter
// is the receiver.
func (ic *inferCtx) lookupMethod(id, recvExpr hir.ExprID, recv *types.Ty, name string, explicit []hir.TypeRef) (MethodResolution, types.FnSig, bool) {
	t := ic.resolve(recv)
	for range maxAutoderef {
		if t.Kind == types.KindInferVar || t.IsError() {
			return MethodResolution{}, types.FnSig{}, false
		}
		if res, ok := ic.probe(id, t, name, explicit, true); ok {
			sig, ok := ic.methodSig(id, res)
			if !ok {
				return MethodResolution{}, types.FnSig{}, false
			}
			ic.adjustReceiver(recvExpr, res.Func, t, sig.Params[0])
			return res, sig, true
		}
		if t.Kind != types.KindRef {
			break
		}
		t = ic.resolve(t.Elem)
	}
	return MethodResolution{}, types.FnSig{}, false
}

// lookupAssocFn resolves `Type::name` to an associated function.
func (ic *inferCtx) lookupAssocFn(id hir.ExprID, self *types.Ty, name string, explicit []hir.TypeRef) (MethodResolution, bool) {
	t := ic.resolve(self)
	if t.Kind == types.KindInferVar || t.IsError() {
		return MethodResolution{}, false
	}
	return ic.probe(id, t, name, explicit, false)
}

func (ic *inferCtx) methodSig(expr hir.ExprID, res MethodResolution) (types.FnSig, bool) {
	callable := hir.CallableDefID{Kind: hir.CallableFunction, Def: res.Func.Def()}
	fn := types.MakeFnDef(ic.db.callables.Intern(callable), res.Subst)
	sig, ok := ic.callSig(expr, fn)
	if !ok || len(sig.Params) == 0 {
		return types.FnSig{}, false
	}
	return sig, true
}

// adjustReceiver borrows the receiver when the method takes `&self` or
// `&mut self` and checks it against the self parameter.
func (ic *inferCtx) adjustReceiver(recvExpr hir.ExprID, fn hir.FunctionID, recv, param *types.Ty) {
	info := ic.db.functionData.Get(ic.rt, fn)
	adjusted := recv
	if info != nil && info.Self != nil && info.Self.Ref {
		adjusted = types.MakeRef(recv, info.Self.Mut, types.Lifetime{})
	}
	ic.coerce(recvExpr, adjusted, param)
}

// probe finds a function called name applicable to self, inherent impls
// first. needSelf restricts the search to methods.
func (ic *inferCtx) probe(id hir.ExprID, self *types.Ty, name string, explicit []hir.TypeRef, needSelf bool) (MethodResolution, bool) {
	if res, ok := ic.probeInherent(id, self, name, explicit, needSelf); ok {
		return res, true
	}
	return ic.probeTraits(id, self, name, explicit, needSelf)
}

func (ic *inferCtx) wants(fn hir.FunctionID, needSelf bool) bool {
	info := ic.db.functionData.Get(ic.rt, fn)
	return info != nil && (!needSelf || info.Self != nil)
}

// inherentCandidates returns the inherent impls that may apply to a type
// with fingerprint fp: those of the defining crate of an ADT, or of the
// crates inherent_impl_crates reports for other types, plus those in the
// enclosing blocks.
func (ic *inferCtx) inherentCandidates(self *types.Ty, fp types.Fingerprint) []hir.ImplID {
	var crates []hir.CrateID
	if self.Kind == types.KindAdt {
		if info := ic.db.adtData.Get(ic.rt, hir.AdtID(self.Def)); info != nil {
			crates = append(crates, info.Crate)
		}
	} else {
		key := ImplCratesKey{Crate: ic.env.Crate, Fingerprint: fp}
		crates = ic.db.inherentImplCrates.Get(ic.rt, key).Slice()
	}
	var out []hir.ImplID
	for _, k := range crates {
		out = append(out, ic.db.inherentImplsInCrate.Get(ic.rt, k).ForSelfTy(fp)...)
	}
	for _, b := range ic.db.blockChain(ic.rt, ic.block) {
		out = append(out, ic.db.inherentImplsInBlock.Get(ic.rt, b).ForSelfTy(fp)...)
	}
	return out
}

func (ic *inferCtx) probeInherent(id hir.ExprID, self *types.Ty, name string, explicit []hir.TypeRef, needSelf bool) (MethodResolution, bool) {
	fp, ok := types.InherentFingerprintOf(self)
	if !ok {
		return MethodResolution{}, false
	}
	for _, impl := range ic.inherentCandidates(self, fp) {
		info := ic.db.implData.Get(ic.rt, impl)
		if info == nil {
			continue
		}
		fn, ok := info.Methods[name]
		if !ok || !ic.wants(fn, needSelf) {
			continue
		}
		snap := ic.tab.Snapshot()
		implArgs := ic.tab.FreshSubst(ic.db.generics(ic.rt, impl.Def()).kinds())
		implSelf := ic.db.implSelfTy.Get(ic.rt, impl)
		if implSelf.Len != len(implArgs) || !ic.tab.Unify(implSelf.Substitute(implArgs), self) {
			ic.tab.Rollback(snap)
			continue
		}
		subst := ic.instantiateArgs(fn.Def(), implArgs, explicit)
		ic.registerPredicates(fn.Def(), subst, id)
		return MethodResolution{Func: fn, Subst: subst}, true
	}
	return MethodResolution{}, false
}

// candidateTraits returns the traits whose methods are visible: those bound
// in the environment, those declared in enclosing blocks and those of the
// crate and its dependencies.
func (ic *inferCtx) candidateTraits() []hir.TraitID {
	var out []hir.TraitID
	add := func(t hir.TraitID) {
		if !slices.Contains(out, t) {
			out = append(out, t)
		}
	}
	for _, c := range ic.env.Clauses {
		if c.Kind == types.ClauseImplemented {
			add(c.Trait.Trait)
		}
	}
	for _, b := range ic.db.blockChain(ic.rt, ic.block) {
		defs := ic.db.block(ic.rt, b)
		if defs == nil {
			continue
		}
		for _, def := range defs.Items {
			if ic.db.traitData.Get(ic.rt, hir.TraitID(def)) != nil {
				add(hir.TraitID(def))
			}
		}
	}
	for _, t := range ic.db.traitsInScope.Get(ic.rt, ic.env.Crate) {
		add(t)
	}
	return out
}

func (ic *inferCtx) probeTraits(id hir.ExprID, self *types.Ty, name string, explicit []hir.TypeRef, needSelf bool) (MethodResolution, bool) {
	for _, trait := range ic.candidateTraits() {
		info := ic.db.traitData.Get(ic.rt, trait)
		if info == nil {
			continue
		}
		fn, ok := info.Methods[name]
		if !ok || !ic.wants(fn, needSelf) {
			continue
		}
		snap := ic.tab.Snapshot()
		args := ic.tab.FreshSubst(ic.db.generics(ic.rt, trait.Def()).kinds())
		args[0] = types.TyArg(self)
		goal := types.Implemented(types.TraitRef{Trait: trait, Args: args})
		sol := ic.solve(goal)
		if sol == nil {
			ic.tab.Rollback(snap)
			continue
		}
		if !sol.Unique() {
			ic.register(goal, id)
		}
		subst := ic.instantiateArgs(fn.Def(), args, explicit)
		ic.registerPredicates(fn.Def(), subst, id)
		return MethodResolution{Func: fn, Subst: subst}, true
	}
	return MethodResolution{}, false
}
