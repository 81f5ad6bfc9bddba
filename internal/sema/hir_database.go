package sema

import (
	"tyinc/internal/hir"
	"tyinc/internal/query"
	"tyinc/internal/solve"
	"tyinc/internal/types"
)

// HirDatabase is the query surface of the semantic core. Every method reads
// through the runtime, so callers get memoization, dependency tracking and
// cancellation for free.
type HirDatabase interface {
	// Inference
	Infer(rt *query.Runtime, def hir.DefWithBodyID) *InferenceResult

	// Lowering
	Ty(rt *query.Runtime, def hir.TyDefID) types.Binders[*types.Ty]
	ValueTy(rt *query.Runtime, def hir.ValueTyDefID) types.Binders[*types.Ty]
	ImplSelfTy(rt *query.Runtime, impl hir.ImplID) types.Binders[*types.Ty]
	ConstParamTy(rt *query.Runtime, param hir.ConstParamID) *types.Ty
	ConstEval(rt *query.Runtime, def hir.ConstID) ConstEvalResult
	ImplTrait(rt *query.Runtime, impl hir.ImplID) *types.Binders[types.TraitRef]
	FieldTypes(rt *query.Runtime, variant hir.VariantID) []types.Binders[*types.Ty]
	CallableItemSignature(rt *query.Runtime, def hir.CallableDefID) types.PolyFnSig
	ReturnTypeImplTraits(rt *query.Runtime, fn hir.FunctionID) *types.Binders[types.ReturnTypeImplTraits]
	GenericPredicatesForParam(rt *query.Runtime, def hir.GenericDefID, param hir.TypeOrConstParamID, assoc string) []types.Binders[types.WhereClause]
	GenericPredicates(rt *query.Runtime, def hir.GenericDefID) []types.Binders[types.WhereClause]
	TraitEnvironment(rt *query.Runtime, def hir.GenericDefID) *TraitEnvironment
	GenericDefaults(rt *query.Runtime, def hir.GenericDefID) []types.Binders[types.GenericArg]

	// Impl indices
	InherentImplsInCrate(rt *query.Runtime, krate hir.CrateID) *InherentImpls
	InherentImplsInBlock(rt *query.Runtime, block hir.BlockID) *InherentImpls
	InherentImplCrates(rt *query.Runtime, krate hir.CrateID, fp types.Fingerprint) ImplCrates
	TraitImplsInCrate(rt *query.Runtime, krate hir.CrateID) *TraitImpls
	TraitImplsInBlock(rt *query.Runtime, block hir.BlockID) *TraitImpls
	TraitImplsInDeps(rt *query.Runtime, krate hir.CrateID) *TraitImpls

	// Solver bridge
	AssociatedTyData(rt *query.Runtime, assoc hir.AssocTypeID) *solve.AssociatedTyDatum
	TraitDatum(rt *query.Runtime, krate hir.CrateID, trait hir.TraitID) *solve.TraitDatum
	StructDatum(rt *query.Runtime, krate hir.CrateID, adt hir.AdtID) *solve.StructDatum
	ImplDatum(rt *query.Runtime, krate hir.CrateID, impl hir.ImplID) *solve.ImplDatum
	FnDefDatum(rt *query.Runtime, krate hir.CrateID, fn types.FnDefID) *solve.FnDefDatum
	FnDefVariance(rt *query.Runtime, krate hir.CrateID, fn types.FnDefID) []types.Variance
	AdtVariance(rt *query.Runtime, krate hir.CrateID, adt hir.AdtID) []types.Variance
	AssociatedTyValue(rt *query.Runtime, krate hir.CrateID, id hir.AssocTypeValueID) *solve.AssociatedTyValue
	ProgramClausesForEnv(rt *query.Runtime, env types.Environment) types.Predicates
	TraitSolve(rt *query.Runtime, krate hir.CrateID, goal types.CanonicalGoal) *types.Solution

	// Interning
	InternCallableDef(def hir.CallableDefID) types.FnDefID
	LookupCallableDef(id types.FnDefID) hir.CallableDefID
	InternTypeOrConstParamID(param hir.TypeOrConstParamID) types.PlaceholderID
	LookupTypeOrConstParamID(id types.PlaceholderID) hir.TypeOrConstParamID
	InternLifetimeParamID(param hir.LifetimeParamID) types.LifetimeID
	LookupLifetimeParamID(id types.LifetimeID) hir.LifetimeParamID
	InternImplTraitID(id hir.ImplTraitID) types.OpaqueID
	LookupImplTraitID(id types.OpaqueID) hir.ImplTraitID
	InternClosure(loc hir.ClosureLoc) types.ClosureID
	LookupClosure(id types.ClosureID) hir.ClosureLoc
}

var _ HirDatabase = (*Database)(nil)

// Lowering -----------------------------------------------------------------------

// Ty returns the type of an ADT or type alias under the binders of its
// generics. Cyclic aliases lower to the error type.
func (db *Database) Ty(rt *query.Runtime, def hir.TyDefID) types.Binders[*types.Ty] {
	return db.ty.Get(rt, def)
}

// ValueTy returns the type of a definition used as a value.
func (db *Database) ValueTy(rt *query.Runtime, def hir.ValueTyDefID) types.Binders[*types.Ty] {
	return db.valueTy.Get(rt, def)
}

func (db *Database) ImplSelfTy(rt *query.Runtime, impl hir.ImplID) types.Binders[*types.Ty] {
	return db.implSelfTy.Get(rt, impl)
}

func (db *Database) ConstParamTy(rt *query.Runtime, param hir.ConstParamID) *types.Ty {
	return db.constParamTy.Get(rt, param)
}

func (db *Database) ConstEval(rt *query.Runtime, def hir.ConstID) ConstEvalResult {
	return db.constEval.Get(rt, def)
}

// ImplTrait returns the trait an impl implements, or nil for inherent impls.
func (db *Database) ImplTrait(rt *query.Runtime, impl hir.ImplID) *types.Binders[types.TraitRef] {
	return db.implTrait.Get(rt, impl)
}

func (db *Database) FieldTypes(rt *query.Runtime, variant hir.VariantID) []types.Binders[*types.Ty] {
	return db.fieldTypes.Get(rt, variant)
}

func (db *Database) CallableItemSignature(rt *query.Runtime, def hir.CallableDefID) types.PolyFnSig {
	return db.callableItemSignature.Get(rt, def)
}

func (db *Database) ReturnTypeImplTraits(rt *query.Runtime, fn hir.FunctionID) *types.Binders[types.ReturnTypeImplTraits] {
	return db.returnTypeImplTraits.Get(rt, fn)
}

// GenericPredicatesForParam returns the predicates of def that constrain
// param. A non-empty assoc keeps only bounds whose trait, or one of its
// supertraits, declares an associated type of that name.
func (db *Database) GenericPredicatesForParam(rt *query.Runtime, def hir.GenericDefID, param hir.TypeOrConstParamID, assoc string) []types.Binders[types.WhereClause] {
	return db.genericPredicatesForParam.Get(rt, ParamPredicatesKey{Def: def, Param: param, Assoc: assoc})
}

func (db *Database) GenericPredicates(rt *query.Runtime, def hir.GenericDefID) []types.Binders[types.WhereClause] {
	return db.genericPredicates.Get(rt, def)
}

func (db *Database) TraitEnvironment(rt *query.Runtime, def hir.GenericDefID) *TraitEnvironment {
	return db.traitEnvironment.Get(rt, def)
}

func (db *Database) GenericDefaults(rt *query.Runtime, def hir.GenericDefID) []types.Binders[types.GenericArg] {
	return db.genericDefaults.Get(rt, def)
}

// PlaceholderSubst maps every generic parameter of def to its placeholder,
// for rendering binders as seen from inside def.
func (db *Database) PlaceholderSubst(rt *query.Runtime, def hir.GenericDefID) types.Substitution {
	return db.placeholderSubst(rt, def)
}

// Impl indices -------------------------------------------------------------------

func (db *Database) InherentImplsInCrate(rt *query.Runtime, krate hir.CrateID) *InherentImpls {
	return db.inherentImplsInCrate.Get(rt, krate)
}

// InherentImplsInBlock returns nil when the block declares no inherent impls.
func (db *Database) InherentImplsInBlock(rt *query.Runtime, block hir.BlockID) *InherentImpls {
	return db.inherentImplsInBlock.Get(rt, block)
}

// InherentImplCrates returns up to two crates among krate and its
// dependencies that have inherent impls for types with fingerprint fp.
func (db *Database) InherentImplCrates(rt *query.Runtime, krate hir.CrateID, fp types.Fingerprint) ImplCrates {
	return db.inherentImplCrates.Get(rt, ImplCratesKey{Crate: krate, Fingerprint: fp})
}

func (db *Database) TraitImplsInCrate(rt *query.Runtime, krate hir.CrateID) *TraitImpls {
	return db.traitImplsInCrate.Get(rt, krate)
}

// TraitImplsInBlock returns nil when the block declares no trait impls.
func (db *Database) TraitImplsInBlock(rt *query.Runtime, block hir.BlockID) *TraitImpls {
	return db.traitImplsInBlock.Get(rt, block)
}

// TraitImplsInDeps merges the trait impls of krate and all its transitive
// dependencies.
func (db *Database) TraitImplsInDeps(rt *query.Runtime, krate hir.CrateID) *TraitImpls {
	return db.traitImplsInDeps.Get(rt, krate)
}

// Solver bridge ------------------------------------------------------------------
//
// The datum queries do not depend on the crate; it is accepted so callers
// can address them the way the solver does.

func (db *Database) AssociatedTyData(rt *query.Runtime, assoc hir.AssocTypeID) *solve.AssociatedTyDatum {
	return db.associatedTyData.Get(rt, assoc)
}

func (db *Database) TraitDatum(rt *query.Runtime, _ hir.CrateID, trait hir.TraitID) *solve.TraitDatum {
	return db.traitDatum.Get(rt, trait)
}

func (db *Database) StructDatum(rt *query.Runtime, _ hir.CrateID, adt hir.AdtID) *solve.StructDatum {
	return db.structDatum.Get(rt, adt)
}

func (db *Database) ImplDatum(rt *query.Runtime, _ hir.CrateID, impl hir.ImplID) *solve.ImplDatum {
	return db.implDatum.Get(rt, impl)
}

func (db *Database) FnDefDatum(rt *query.Runtime, _ hir.CrateID, fn types.FnDefID) *solve.FnDefDatum {
	return db.fnDefDatum.Get(rt, fn)
}

func (db *Database) FnDefVariance(rt *query.Runtime, _ hir.CrateID, fn types.FnDefID) []types.Variance {
	return db.fnDefVariance.Get(rt, fn)
}

func (db *Database) AdtVariance(rt *query.Runtime, _ hir.CrateID, adt hir.AdtID) []types.Variance {
	return db.adtVariance.Get(rt, adt)
}

func (db *Database) AssociatedTyValue(rt *query.Runtime, _ hir.CrateID, id hir.AssocTypeValueID) *solve.AssociatedTyValue {
	return db.associatedTyValue.Get(rt, id)
}

func (db *Database) ProgramClausesForEnv(rt *query.Runtime, env types.Environment) types.Predicates {
	return db.programClausesForEnv.Get(rt, env)
}

// Interning ----------------------------------------------------------------------

func (db *Database) InternCallableDef(def hir.CallableDefID) types.FnDefID {
	return db.callables.Intern(def)
}

func (db *Database) LookupCallableDef(id types.FnDefID) hir.CallableDefID {
	return db.callables.Lookup(id)
}

func (db *Database) InternTypeOrConstParamID(param hir.TypeOrConstParamID) types.PlaceholderID {
	return db.params.Intern(param)
}

func (db *Database) LookupTypeOrConstParamID(id types.PlaceholderID) hir.TypeOrConstParamID {
	return db.params.Lookup(id)
}

func (db *Database) InternLifetimeParamID(param hir.LifetimeParamID) types.LifetimeID {
	return db.lifetimes.Intern(param)
}

func (db *Database) LookupLifetimeParamID(id types.LifetimeID) hir.LifetimeParamID {
	return db.lifetimes.Lookup(id)
}

func (db *Database) InternImplTraitID(id hir.ImplTraitID) types.OpaqueID {
	return db.implTraits.Intern(id)
}

func (db *Database) LookupImplTraitID(id types.OpaqueID) hir.ImplTraitID {
	return db.implTraits.Lookup(id)
}

func (db *Database) InternClosure(loc hir.ClosureLoc) types.ClosureID {
	return db.closures.Intern(loc)
}

func (db *Database) LookupClosure(id types.ClosureID) hir.ClosureLoc {
	return db.closures.Lookup(id)
}
