package solve

import (
	"reflect"

	"tyinc/internal/hir"
	"tyinc/internal/types"
)

// DefaultMaxTypeDepth bounds the size of goals the solver accepts. Larger
// goals are answered with an ambiguous solution instead of being explored.
const DefaultMaxTypeDepth = 32

// Solver proves goals against a Program.
type Solver struct {
	prog     Program
	maxDepth int
}

// Option configures a Solver.
type Option func(*Solver)

// WithMaxTypeDepth overrides DefaultMaxTypeDepth.
func WithMaxTypeDepth(n int) Option {
	return func(s *Solver) {
		if n > 0 {
			s.maxDepth = n
		}
	}
}

// New returns a solver over prog.
func New(prog Program, opts ...Option) *Solver {
	s := &Solver{prog: prog, maxDepth: DefaultMaxTypeDepth}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Solve answers a canonical goal: a unique solution, an ambiguous one, or
// nil when the goal cannot hold.
func (s *Solver) Solve(goal types.CanonicalGoal) *types.Solution {
	s.prog.CheckCancelled()
	tab := types.NewTable()
	g, vars := types.InstantiateCanonical(tab, goal)
	if goalDepth(g.Goal) > s.maxDepth {
		return types.Ambiguous()
	}
	c := &goalCtx{s: s, tab: tab, env: g.Env, vars: vars}
	switch g.Goal.Kind {
	case types.ClauseAliasEq:
		return c.normalize(g.Goal.AliasEq)
	default:
		return c.implemented(g.Goal.Trait)
	}
}

func goalDepth(g types.Goal) int {
	args := g.Trait.Args
	extra := 0
	if g.Kind == types.ClauseAliasEq {
		args = g.AliasEq.Alias.Args
		extra = g.AliasEq.Ty.Depth()
	}
	d := extra
	for _, a := range args {
		if n := a.Ty.Depth(); n > d {
			d = n
		}
	}
	return d
}

type candidate struct {
	subst     types.Substitution
	ambiguous bool
}

// goalCtx holds the state of one Solve call.
type goalCtx struct {
	s     *Solver
	tab   *types.Table
	env   types.Environment
	vars  []*types.Ty
	cands []candidate
}

// try runs fn speculatively and records its answer when it succeeds. The
// table is always restored afterwards.
func (c *goalCtx) try(fn func() (ok, ambiguous bool)) {
	c.s.prog.CheckCancelled()
	snap := c.tab.Snapshot()
	defer c.tab.Rollback(snap)
	ok, ambiguous := fn()
	if !ok {
		return
	}
	subst, complete := c.answer()
	c.cands = append(c.cands, candidate{subst: subst, ambiguous: ambiguous || !complete})
}

// answer expresses what the table knows about the goal's variables in terms
// of the goal's own binders. Entries that mention variables created during
// the solve carry no information and make the answer incomplete.
func (c *goalCtx) answer() (types.Substitution, bool) {
	roots := make(map[types.InferVar]uint32, len(c.vars))
	for j, v := range c.vars {
		r := c.tab.Resolve(v)
		if _, seen := roots[r.Var]; r.Kind == types.KindInferVar && !seen {
			roots[r.Var] = uint32(j)
		}
	}
	complete := true
	out := make(types.Substitution, len(c.vars))
	for i, v := range c.vars {
		ty := c.tab.ResolveDeep(v, nil)
		foreign := false
		ty.Visit(func(x *types.Ty) bool {
			if x.Kind == types.KindInferVar {
				if _, ok := roots[x.Var]; !ok {
					foreign = true
				}
			}
			return !foreign
		})
		if foreign {
			complete = false
			out[i] = types.TyArg(types.MakeBound(0, uint32(i)))
			continue
		}
		out[i] = types.TyArg(ty.FoldWith(&types.Folder{
			Ty: func(x *types.Ty, depth uint32) *types.Ty {
				if x.Kind == types.KindInferVar {
					return types.MakeBound(depth, roots[x.Var])
				}
				return nil
			},
		}, 0))
	}
	return out, complete
}

// result combines the recorded candidates.
func (c *goalCtx) result() *types.Solution {
	if len(c.cands) == 0 {
		return nil
	}
	first := c.cands[0]
	ambiguous := first.ambiguous
	for _, other := range c.cands[1:] {
		if !reflect.DeepEqual(other.subst, first.subst) {
			return types.Ambiguous()
		}
		ambiguous = ambiguous || other.ambiguous
	}
	kind := types.SolutionUnique
	if ambiguous {
		kind = types.SolutionAmbiguous
	}
	return &types.Solution{Kind: kind, Subst: first.subst}
}

// prove solves a nested obligation through the program and applies a
// unique answer to the table.
func (c *goalCtx) prove(clause types.WhereClause) (ok, ambiguous bool) {
	canon, vars := types.Canonicalize(c.tab, types.InEnvironment{Env: c.env, Goal: clause})
	sol := c.s.prog.Solve(canon)
	if sol == nil {
		return false, false
	}
	if !sol.Unique() {
		return true, true
	}
	return c.tab.Apply(sol, vars), false
}

func (c *goalCtx) proveAll(preds types.Predicates) (ok, ambiguous bool) {
	for _, p := range preds {
		ok, amb := c.prove(p)
		if !ok {
			return false, false
		}
		ambiguous = ambiguous || amb
	}
	return true, ambiguous
}

// assumptions returns the environment clauses plus the bounds of an opaque
// self type.
func (c *goalCtx) assumptions(self *types.Ty) types.Predicates {
	clauses := c.s.prog.EnvClauses(c.env)
	if self.Kind == types.KindOpaque {
		clauses = append(clauses[:len(clauses):len(clauses)], c.s.prog.OpaqueBounds(self.Opaque, self.Args)...)
	}
	return clauses
}

// Implemented goals ------------------------------------------------------------

func (c *goalCtx) implemented(ref types.TraitRef) *types.Solution {
	self := c.tab.Resolve(ref.SelfTy())
	if self.Kind == types.KindInferVar || self.Kind == types.KindError {
		return types.Ambiguous()
	}
	for _, clause := range c.assumptions(self) {
		if clause.Kind != types.ClauseImplemented || clause.Trait.Trait != ref.Trait {
			continue
		}
		c.try(func() (bool, bool) {
			return c.tab.UnifyTraitRefs(clause.Trait, ref), false
		})
	}
	if len(c.cands) > 0 {
		return c.result()
	}

	impls := c.s.prog.ImplsForTrait(ref.Trait, self, c.env)
	matchedNegative := false
	for _, id := range impls {
		d := c.s.prog.ImplDatum(id)
		if d == nil {
			continue
		}
		if d.Negative {
			snap := c.tab.Snapshot()
			bound := d.Binders.Substitute(c.tab.FreshSubst(d.Kinds))
			if c.tab.UnifyTraitRefs(bound.Trait, ref) {
				matchedNegative = true
			}
			c.tab.Rollback(snap)
			continue
		}
		c.try(func() (bool, bool) {
			bound := d.Binders.Substitute(c.tab.FreshSubst(d.Kinds))
			if !c.tab.UnifyTraitRefs(bound.Trait, ref) {
				return false, false
			}
			return c.proveAll(bound.Where)
		})
	}
	if len(c.cands) > 0 || matchedNegative {
		return c.result()
	}

	if td := c.s.prog.TraitDatum(ref.Trait); td != nil && td.Auto {
		c.try(func() (bool, bool) { return c.autoTrait(ref, self) })
	}
	return c.result()
}

// autoTrait applies the structural rule: a type implements an auto trait
// when all of its components do.
func (c *goalCtx) autoTrait(ref types.TraitRef, self *types.Ty) (ok, ambiguous bool) {
	var parts []*types.Ty
	switch self.Kind {
	case types.KindScalar, types.KindStr, types.KindNever, types.KindFnPtr, types.KindFnDef:
		return true, false
	case types.KindTuple:
		parts = self.Elems
	case types.KindRef, types.KindArray, types.KindSlice:
		parts = []*types.Ty{self.Elem}
	case types.KindAdt:
		sd := c.s.prog.StructDatum(hir.AdtID(self.Def))
		if sd == nil {
			return false, false
		}
		parts = sd.Binders.Substitute(self.Args).Fields
	case types.KindAlias, types.KindClosure, types.KindOpaque:
		return true, true
	default:
		return false, false
	}
	preds := make(types.Predicates, 0, len(parts))
	for _, p := range parts {
		args := types.Substitution{types.TyArg(p)}.Append(ref.Args[1:]...)
		preds = append(preds, types.Implemented(types.TraitRef{Trait: ref.Trait, Args: args}))
	}
	return c.proveAll(preds)
}

// Normalization goals ----------------------------------------------------------

func (c *goalCtx) normalize(eq types.AliasEq) *types.Solution {
	assoc := c.s.prog.AssociatedTyData(eq.Alias.Assoc)
	if assoc == nil {
		return nil
	}
	self := c.tab.Resolve(eq.Alias.Args.Type(0))
	if self.Kind == types.KindInferVar || self.Kind == types.KindError {
		return types.Ambiguous()
	}
	for _, clause := range c.assumptions(self) {
		if clause.Kind != types.ClauseAliasEq || clause.AliasEq.Alias.Assoc != eq.Alias.Assoc {
			continue
		}
		c.try(func() (bool, bool) {
			ok := c.tab.UnifyArgs(clause.AliasEq.Alias.Args, eq.Alias.Args) &&
				c.tab.Unify(clause.AliasEq.Ty, eq.Ty)
			return ok, false
		})
	}
	if len(c.cands) > 0 {
		return c.result()
	}

	ref := eq.Alias.TraitRef(assoc.Trait)
	for _, id := range c.s.prog.ImplsForTrait(assoc.Trait, self, c.env) {
		d := c.s.prog.ImplDatum(id)
		if d == nil || d.Negative {
			continue
		}
		c.try(func() (bool, bool) {
			args := c.tab.FreshSubst(d.Kinds)
			bound := d.Binders.Substitute(args)
			if !c.tab.UnifyTraitRefs(bound.Trait, ref) {
				return false, false
			}
			ok, ambiguous := c.proveAll(bound.Where)
			if !ok {
				return false, false
			}
			value := c.s.prog.AssociatedTyValue(id, eq.Alias.Assoc)
			if value == nil || value.Value.Len != len(args) {
				return false, false
			}
			return c.tab.Unify(value.Value.Substitute(args), eq.Ty), ambiguous
		})
	}
	return c.result()
}
