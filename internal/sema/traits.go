package sema

import (
	"go.uber.org/zap"

	"tyinc/internal/hir"
	"tyinc/internal/query"
	"tyinc/internal/solve"
	"tyinc/internal/trace"
	"tyinc/internal/types"
)

// TraitSolve proves a canonical goal in the context of krate. Equal goals
// share one cached evaluation regardless of how their variables were
// numbered before canonicalization.
func (db *Database) TraitSolve(rt *query.Runtime, krate hir.CrateID, goal types.CanonicalGoal) *types.Solution {
	span := trace.Begin(db.cfg.tracer, trace.ScopeDetail, "trait_solve::wait", rt.SpanID())
	defer span.End("")
	enc, err := types.EncodeCanonical(goal)
	if err != nil {
		db.cfg.logger.Warn("trait_solve: goal not encodable", zap.Error(err))
		return types.Ambiguous()
	}
	id := db.goals.Intern(string(enc))
	return db.traitSolveQuery.Get(rt, TraitSolveKey{Crate: krate, Goal: id})
}

func (db *Database) traitSolveQueryFn(rt *query.Runtime, key TraitSolveKey) *types.Solution {
	goal, err := types.DecodeCanonical([]byte(db.goals.Lookup(key.Goal)))
	if err != nil {
		db.cfg.logger.Warn("trait_solve: interned goal not decodable",
			zap.Uint32("goal", uint32(key.Goal)), zap.Error(err))
		return types.Ambiguous()
	}
	prog := &program{db: db, rt: rt, krate: key.Crate}
	sol := solve.New(prog, solve.WithMaxTypeDepth(db.cfg.maxTypeDepth)).Solve(goal)
	if ce := db.cfg.logger.Check(zap.DebugLevel, "trait_solve"); ce != nil {
		ce.Write(
			zap.String("goal", types.DisplayGoal(goal.Value.Goal, nil)),
			zap.Stringer("crate", key.Crate),
			zap.String("solution", solutionLabel(sol)),
		)
	}
	return sol
}

func (db *Database) traitSolveRecover(_ *query.Runtime, cycle []query.Participant, key TraitSolveKey) *types.Solution {
	db.cfg.logger.Debug("trait_solve: cyclic goal",
		zap.Uint32("goal", uint32(key.Goal)),
		zap.Int("participants", len(cycle)),
		zap.Stringer("recovery", db.cfg.solverRecovery))
	if db.cfg.solverRecovery == RecoverAmbiguous {
		return types.Ambiguous()
	}
	return nil
}

func solutionLabel(s *types.Solution) string {
	if s == nil {
		return "none"
	}
	return s.Kind.String()
}

// program exposes the database to the solver for one crate.
type program struct {
	db    *Database
	rt    *query.Runtime
	krate hir.CrateID
}

var _ solve.Program = (*program)(nil)

func (p *program) ImplsForTrait(trait hir.TraitID, self *types.Ty, env types.Environment) []hir.ImplID {
	fp, ok := types.FingerprintOf(self)
	out := p.db.traitImplsInDeps.Get(p.rt, p.krate).ForTraitAndSelf(trait, fp, ok)
	for _, block := range p.db.blockChain(p.rt, env.Block) {
		out = append(out, p.db.traitImplsInBlock.Get(p.rt, block).ForTraitAndSelf(trait, fp, ok)...)
	}
	return out
}

func (p *program) ImplDatum(impl hir.ImplID) *solve.ImplDatum {
	return p.db.implDatum.Get(p.rt, impl)
}

func (p *program) TraitDatum(trait hir.TraitID) *solve.TraitDatum {
	return p.db.traitDatum.Get(p.rt, trait)
}

func (p *program) StructDatum(adt hir.AdtID) *solve.StructDatum {
	return p.db.structDatum.Get(p.rt, adt)
}

func (p *program) AssociatedTyData(assoc hir.AssocTypeID) *solve.AssociatedTyDatum {
	return p.db.associatedTyData.Get(p.rt, assoc)
}

func (p *program) AssociatedTyValue(impl hir.ImplID, assoc hir.AssocTypeID) *solve.AssociatedTyValue {
	return p.db.associatedTyValue.Get(p.rt, hir.AssocTypeValueID{Impl: impl, Assoc: assoc})
}

func (p *program) EnvClauses(env types.Environment) types.Predicates {
	return p.db.programClausesForEnv.Get(p.rt, env)
}

func (p *program) OpaqueBounds(id types.OpaqueID, args types.Substitution) types.Predicates {
	return p.db.opaqueBounds(p.rt, id, args, types.MakeOpaque(id, args))
}

func (p *program) Solve(goal types.CanonicalGoal) *types.Solution {
	return p.db.TraitSolve(p.rt, p.krate, goal)
}

func (p *program) CheckCancelled() { p.rt.CheckCancelled() }

// opaqueBounds returns the bounds of an `impl Trait` type instantiated with
// the arguments of its function, with self standing for the opaque type.
func (db *Database) opaqueBounds(rt *query.Runtime, id types.OpaqueID, args types.Substitution, self *types.Ty) types.Predicates {
	loc := db.implTraits.Lookup(id)
	rti := db.returnTypeImplTraits.Get(rt, loc.Func)
	if rti == nil || rti.Len != len(args) || int(loc.Index) >= len(rti.Value.ImplTraits) {
		return nil
	}
	bounds := rti.Substitute(args).ImplTraits[loc.Index].Bounds
	return bounds.Substitute(types.Substitution{types.TyArg(self)})
}

// SolveBound asks whether self satisfies bound from krate, outside any
// generic definition. It returns the lowered clauses and one solution per
// clause: the Implemented clause first, then one AliasEq per binding.
func (db *Database) SolveBound(rt *query.Runtime, krate hir.CrateID, self hir.TypeRef, bound hir.TypeBound) (types.Predicates, []*types.Solution) {
	l := db.lowerer(rt, hir.NoDefID, paramPlaceholder)
	clauses := l.lowerBound(l.lower(self), bound)
	out := make([]*types.Solution, len(clauses))
	for i, c := range clauses {
		canon, _ := types.Canonicalize(types.NewTable(), types.InEnvironment{Goal: c})
		out[i] = db.TraitSolve(rt, krate, canon)
	}
	return clauses, out
}
