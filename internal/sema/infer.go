package sema

import (
	"go.uber.org/zap"

	"tyinc/internal/hir"
	"tyinc/internal/query"
	"tyinc/internal/trace"
	"tyinc/internal/types"
)

// Infer returns the inferred types of def's body. It is the public entry
// point and wraps infer_query in its own span so time spent waiting on
// another runtime is visible in traces.
func (db *Database) Infer(rt *query.Runtime, def hir.DefWithBodyID) *InferenceResult {
	span := trace.Begin(db.cfg.tracer, trace.ScopeEntry, "infer:wait", rt.SpanID(), trace.WithKey(def))
	defer span.End("")
	return db.inferQuery.Get(rt, def)
}

// obligation is a goal inference must prove before the body is well typed.
type obligation struct {
	clause types.WhereClause
	expr   hir.ExprID
	block  hir.BlockID
}

// inferCtx holds the state of one body's inference.
type inferCtx struct {
	db    *Database
	rt    *query.Runtime
	owner hir.DefWithBodyID
	body  *hir.Body
	env   *TraitEnvironment
	block hir.BlockID

	tab     *types.Table
	lowerer *tyLowerer
	result  *InferenceResult

	exprs       []*types.Ty
	pats        []*types.Ty
	returns     []*types.Ty
	obligations []obligation
	closureSigs map[types.ClosureID]types.FnSig
	diags       []Diagnostic
}

func (db *Database) inferQueryFn(rt *query.Runtime, def hir.DefWithBodyID) *InferenceResult {
	body := db.body(rt, def)
	result := newInferenceResult(body)
	if body == nil {
		return result
	}
	ic := &inferCtx{
		db:          db,
		rt:          rt,
		owner:       def,
		body:        body,
		env:         db.traitEnvironment.Get(rt, def),
		tab:         types.NewTable(),
		result:      result,
		exprs:       make([]*types.Ty, len(body.Exprs)),
		pats:        make([]*types.Ty, len(body.Pats)),
		closureSigs: map[types.ClosureID]types.FnSig{},
	}
	ic.block = ic.env.Block
	ic.lowerer = db.lowerer(rt, def, paramPlaceholder)
	ic.lowerer.infer = ic.newVar

	ret := ic.setup()
	ic.returns = []*types.Ty{ret}
	ty := ic.inferExpr(body.Root, ret)
	ic.coerce(body.Root, ty, ret)
	ic.solveObligations(true)
	ic.finish(ret)

	db.cfg.logger.Debug("infer",
		zap.Stringer("def", def),
		zap.Int("exprs", len(body.Exprs)),
		zap.Int("vars", ic.tab.Len()),
		zap.Int("diagnostics", len(result.Diagnostics)))
	return result
}

// setup binds the parameters and returns the expected type of the body.
func (ic *inferCtx) setup() *types.Ty {
	subst := ic.lowerer.identity()
	if fn := ic.db.functionData.Get(ic.rt, hir.FunctionID(ic.owner)); fn != nil {
		callable := hir.CallableDefID{Kind: hir.CallableFunction, Def: ic.owner}
		sig := ic.db.callableItemSignature.Get(ic.rt, callable)
		if sig.Len != len(subst) {
			return types.Error()
		}
		inst := sig.Substitute(subst)
		for i, pat := range ic.body.Params {
			pty := types.Error()
			if i < len(inst.Params) {
				pty = ic.normalize(inst.Params[i], hir.NoExprID)
			}
			ic.bindPat(pat, pty)
		}
		return ic.normalize(ic.revealOpaques(inst.Ret), hir.NoExprID)
	}
	vt := ic.db.valueTy.Get(ic.rt, hir.ValueTyDefID{Kind: hir.ValueConst, Def: ic.owner})
	if vt.Len != len(subst) {
		return types.Error()
	}
	return ic.normalize(vt.Substitute(subst), hir.NoExprID)
}

// revealOpaques replaces the body's own `impl Trait` return types with
// inference variables constrained by their bounds.
func (ic *inferCtx) revealOpaques(t *types.Ty) *types.Ty {
	vars := map[types.OpaqueID]*types.Ty{}
	return t.FoldWith(&types.Folder{
		Ty: func(x *types.Ty, _ uint32) *types.Ty {
			if x.Kind != types.KindOpaque || ic.db.implTraits.Lookup(x.Opaque).Func.Def() != ic.owner {
				return nil
			}
			if v, ok := vars[x.Opaque]; ok {
				return v
			}
			v := ic.newVar()
			vars[x.Opaque] = v
			for _, c := range ic.db.opaqueBounds(ic.rt, x.Opaque, x.Args, v) {
				ic.register(c, hir.NoExprID)
			}
			return v
		},
	}, 0)
}

// Variables and types ------------------------------------------------------------

func (ic *inferCtx) newVar() *types.Ty { return ic.tab.NewVar(types.VarGeneral) }

func (ic *inferCtx) resolve(t *types.Ty) *types.Ty {
	if t == nil {
		return types.Error()
	}
	return ic.tab.Resolve(t)
}

func (ic *inferCtx) freshArg(p GenericParam) types.GenericArg {
	if p.Const {
		return types.ConstArg(types.UnknownConst())
	}
	return types.TyArg(ic.newVar())
}

// instantiateArgs builds the substitution for def: prefix for the leading
// parameters, explicit arguments for its own parameters and fresh
// variables for the rest.
func (ic *inferCtx) instantiateArgs(def hir.GenericDefID, prefix types.Substitution, explicit []hir.TypeRef) types.Substitution {
	g := ic.db.generics(ic.rt, def)
	out := make(types.Substitution, 0, g.len())
	for i, p := range g.params {
		j := i - g.parentLen
		switch {
		case i < len(prefix):
			out = append(out, prefix[i])
		case j >= 0 && j < len(explicit):
			out = append(out, ic.lowerer.arg(p, explicit[j]))
		default:
			out = append(out, ic.freshArg(p))
		}
	}
	return out
}

// lowerTy lowers a type written in the body.
func (ic *inferCtx) lowerTy(ref *hir.TypeRef) *types.Ty {
	if ref == nil {
		return ic.newVar()
	}
	return ic.normalize(ic.lowerer.lower(*ref), hir.NoExprID)
}

// normalize replaces projections in t with variables and registers the
// goals that determine them.
func (ic *inferCtx) normalize(t *types.Ty, expr hir.ExprID) *types.Ty {
	if t == nil {
		return types.Error()
	}
	return t.FoldWith(&types.Folder{
		Ty: func(x *types.Ty, _ uint32) *types.Ty {
			if x.Kind != types.KindAlias {
				return nil
			}
			proj := x.Projection()
			proj.Args = ic.normalizeArgs(proj.Args, expr)
			v := ic.newVar()
			goal := types.Normalizes(proj, v)
			switch sol := ic.solve(goal); {
			case sol == nil:
				ic.tab.Unify(v, types.MakeAlias(proj))
			case sol.Unique():
			default:
				ic.obligations = append(ic.obligations, obligation{clause: goal, expr: expr, block: ic.block})
			}
			return v
		},
	}, 0)
}

func (ic *inferCtx) normalizeArgs(args types.Substitution, expr hir.ExprID) types.Substitution {
	out := make(types.Substitution, len(args))
	for i, a := range args {
		out[i] = a
		if a.Ty != nil {
			out[i] = types.TyArg(ic.normalize(a.Ty, expr))
		}
	}
	return out
}

func (ic *inferCtx) bindPat(id hir.PatID, t *types.Ty) {
	if !id.IsValid() || int(id) >= len(ic.pats) {
		return
	}
	ic.pats[id] = t
	pat := ic.body.Pat(id)
	if pat.Kind != hir.PatTuple {
		return
	}
	rt := ic.resolve(t)
	if rt.Kind != types.KindTuple || len(rt.Elems) != len(pat.Elems) {
		elems := make([]*types.Ty, len(pat.Elems))
		for i := range elems {
			elems[i] = ic.newVar()
		}
		tuple := types.MakeTuple(elems...)
		if !ic.tab.Unify(t, tuple) {
			ic.mismatch(hir.NoExprID, t, tuple)
		}
		rt = tuple
	}
	for i, e := range pat.Elems {
		ic.bindPat(e, rt.Elems[i])
	}
}

// Obligations --------------------------------------------------------------------

func (ic *inferCtx) goalEnv() types.Environment {
	env := types.Environment{Owner: ic.owner, Block: ic.block}
	if len(ic.env.Clauses) == 0 {
		env.Owner = hir.NoDefID
	}
	return env
}

// solve canonicalizes goal, asks trait_solve and applies a unique answer.
func (ic *inferCtx) solve(goal types.Goal) *types.Solution {
	canon, vars := types.Canonicalize(ic.tab, types.InEnvironment{Env: ic.goalEnv(), Goal: goal})
	sol := ic.db.TraitSolve(ic.rt, ic.env.Crate, canon)
	if sol.Unique() && !ic.tab.Apply(sol, vars) {
		return nil
	}
	return sol
}

func (ic *inferCtx) register(clause types.WhereClause, expr hir.ExprID) {
	ic.obligations = append(ic.obligations, obligation{clause: clause, expr: expr, block: ic.block})
}

// registerPredicates adds the where clauses of def instantiated with args.
func (ic *inferCtx) registerPredicates(def hir.GenericDefID, args types.Substitution, expr hir.ExprID) {
	for _, p := range ic.db.genericPredicates.Get(ic.rt, def) {
		if p.Len != len(args) {
			continue
		}
		ic.register(p.Substitute(args), expr)
	}
}

// solveObligations retries pending goals until none makes progress. On the
// final pass goals without a solution are reported and projections that
// stayed ambiguous fall back to their rigid form.
func (ic *inferCtx) solveObligations(final bool) {
	for {
		progress := false
		pending := ic.obligations[:0:0]
		for _, ob := range ic.obligations {
			ic.rt.CheckCancelled()
			saved := ic.block
			ic.block = ob.block
			sol := ic.solve(ob.clause)
			ic.block = saved
			switch {
			case sol == nil:
				ic.unsatisfied(ob)
				progress = true
			case sol.Unique():
				progress = true
			default:
				pending = append(pending, ob)
			}
		}
		ic.obligations = pending
		if !progress || len(pending) == 0 {
			break
		}
	}
	if !final {
		return
	}
	for _, ob := range ic.obligations {
		if ob.clause.Kind == types.ClauseAliasEq {
			ic.tab.Unify(ob.clause.AliasEq.Ty, types.MakeAlias(ob.clause.AliasEq.Alias))
		}
	}
	ic.obligations = nil
}

func (ic *inferCtx) unsatisfied(ob obligation) {
	if ob.clause.Kind == types.ClauseAliasEq {
		ic.tab.Unify(ob.clause.AliasEq.Ty, types.MakeAlias(ob.clause.AliasEq.Alias))
		return
	}
	ic.diags = append(ic.diags, Diagnostic{Kind: DiagUnsatisfiedBound, Expr: ob.expr, Bound: ob.clause.Trait})
}

// Diagnostics --------------------------------------------------------------------

func (ic *inferCtx) mismatch(expr hir.ExprID, expected, actual *types.Ty) {
	ic.diags = append(ic.diags, Diagnostic{Kind: DiagTypeMismatch, Expr: expr, Expected: expected, Actual: actual})
}

func (ic *inferCtx) report(d Diagnostic) { ic.diags = append(ic.diags, d) }

// Finalization -------------------------------------------------------------------

func (ic *inferCtx) deep(t *types.Ty) *types.Ty {
	if t == nil {
		return nil
	}
	return ic.tab.ResolveDeep(t, types.DefaultFallback)
}

func (ic *inferCtx) finish(ret *types.Ty) {
	r := ic.result
	for i, t := range ic.exprs {
		r.ExprTypes[i] = ic.deep(t)
	}
	for i, t := range ic.pats {
		r.PatTypes[i] = ic.deep(t)
	}
	for id, m := range r.Methods {
		m.Subst = ic.tab.ResolveDeepArgs(m.Subst, types.DefaultFallback)
		r.Methods[id] = m
	}
	for id, sig := range ic.closureSigs {
		params := make([]*types.Ty, len(sig.Params))
		for i, p := range sig.Params {
			params[i] = ic.deep(p)
		}
		r.ClosureSigs[id] = types.FnSig{Params: params, Ret: ic.deep(sig.Ret)}
	}
	r.ReturnTy = ic.deep(ret)
	for _, d := range ic.diags {
		d.Expected, d.Actual = ic.deep(d.Expected), ic.deep(d.Actual)
		if d.Expected.ContainsError() || d.Actual.ContainsError() {
			continue
		}
		if d.Kind == DiagUnsatisfiedBound {
			d.Bound.Args = ic.tab.ResolveDeepArgs(d.Bound.Args, types.DefaultFallback)
			if argsContainError(d.Bound.Args) {
				continue
			}
		}
		r.Diagnostics = append(r.Diagnostics, d)
	}
}

func argsContainError(args types.Substitution) bool {
	for _, a := range args {
		if a.Ty != nil && a.Ty.ContainsError() {
			return true
		}
	}
	return false
}
