// Package sema lowers resolved definitions to type-system values, indexes
// impls, bridges goals to the trait solver and infers body types. Every
// computation is a query on a query.Database, so results are memoized,
// revalidated after edits and shared between concurrent readers.
package sema

import (
	"context"

	"go.uber.org/zap"

	"tyinc/internal/hir"
	"tyinc/internal/query"
	"tyinc/internal/solve"
	"tyinc/internal/trace"
	"tyinc/internal/types"
)

// GoalID is an interned canonical goal.
type GoalID uint32

// SolverRecovery is the answer trait_solve gives for a goal whose solving
// re-enters itself.
type SolverRecovery uint8

const (
	// RecoverNoSolution treats a cyclic goal as unprovable.
	RecoverNoSolution SolverRecovery = iota
	// RecoverAmbiguous treats a cyclic goal as ambiguous.
	RecoverAmbiguous
)

func (r SolverRecovery) String() string {
	if r == RecoverAmbiguous {
		return "ambiguous"
	}
	return "none"
}

// ParseSolverRecovery maps "none" and "ambiguous" to a SolverRecovery.
func ParseSolverRecovery(s string) (SolverRecovery, bool) {
	switch s {
	case "", "none":
		return RecoverNoSolution, true
	case "ambiguous":
		return RecoverAmbiguous, true
	default:
		return RecoverNoSolution, false
	}
}

type config struct {
	logger         *zap.Logger
	tracer         trace.Tracer
	solverRecovery SolverRecovery
	maxTypeDepth   int
}

// Option configures a Database.
type Option func(*config)

// WithLogger sets the structured logger shared with the query store.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithTracer sets the tracer for query and entry-point spans.
func WithTracer(t trace.Tracer) Option {
	return func(c *config) { c.tracer = t }
}

// WithSolverRecovery sets the trait_solve cycle fallback.
func WithSolverRecovery(r SolverRecovery) Option {
	return func(c *config) { c.solverRecovery = r }
}

// WithMaxTypeDepth bounds the goals the solver explores.
func WithMaxTypeDepth(n int) Option {
	return func(c *config) { c.maxTypeDepth = n }
}

// TraitSolveKey identifies one trait_solve_query evaluation.
type TraitSolveKey struct {
	Crate hir.CrateID
	Goal  GoalID
}

// ParamPredicatesKey identifies one generic_predicates_for_param evaluation.
// A non-empty Assoc keeps only bounds whose trait declares an associated
// type of that name.
type ParamPredicatesKey struct {
	Def   hir.GenericDefID
	Param hir.TypeOrConstParamID
	Assoc string
}

// ImplCratesKey identifies one inherent_impl_crates evaluation.
type ImplCratesKey struct {
	Crate       hir.CrateID
	Fingerprint types.Fingerprint
}

// Database is the analysis database.
type Database struct {
	store *query.Database
	cfg   config

	// inputs
	crateGraph *query.Input[struct{}, *hir.CrateGraph]
	crateDefs  *query.Input[hir.CrateID, *hir.CrateDefs]
	items      *query.Input[hir.DefID, *hir.Item]
	bodies     *query.Input[hir.DefWithBodyID, *hir.Body]
	blockDefs  *query.Input[hir.BlockID, *hir.BlockDefs]

	// interners
	callables  *query.Interner[hir.CallableDefID, types.FnDefID]
	params     *query.Interner[hir.TypeOrConstParamID, types.PlaceholderID]
	lifetimes  *query.Interner[hir.LifetimeParamID, types.LifetimeID]
	implTraits *query.Interner[hir.ImplTraitID, types.OpaqueID]
	closures   *query.Interner[hir.ClosureLoc, types.ClosureID]
	goals      *query.Interner[string, GoalID]

	// definition data
	genericParams *query.Query[hir.GenericDefID, *GenericParams]
	functionData  *query.Query[hir.FunctionID, *FunctionInfo]
	adtData       *query.Query[hir.AdtID, *AdtInfo]
	traitData     *query.Query[hir.TraitID, *TraitInfo]
	implData      *query.Query[hir.ImplID, *ImplInfo]

	// lowering
	ty                        *query.Query[hir.TyDefID, types.Binders[*types.Ty]]
	valueTy                   *query.Query[hir.ValueTyDefID, types.Binders[*types.Ty]]
	implSelfTy                *query.Query[hir.ImplID, types.Binders[*types.Ty]]
	constParamTy              *query.Query[hir.ConstParamID, *types.Ty]
	constEval                 *query.Query[hir.ConstID, ConstEvalResult]
	implTrait                 *query.Query[hir.ImplID, *types.Binders[types.TraitRef]]
	fieldTypes                *query.Query[hir.VariantID, []types.Binders[*types.Ty]]
	callableItemSignature     *query.Query[hir.CallableDefID, types.PolyFnSig]
	returnTypeImplTraits      *query.Query[hir.FunctionID, *types.Binders[types.ReturnTypeImplTraits]]
	genericPredicatesForParam *query.Query[ParamPredicatesKey, []types.Binders[types.WhereClause]]
	genericPredicates         *query.Query[hir.GenericDefID, []types.Binders[types.WhereClause]]
	traitEnvironment          *query.Query[hir.GenericDefID, *TraitEnvironment]
	genericDefaults           *query.Query[hir.GenericDefID, []types.Binders[types.GenericArg]]

	// impl indices
	inherentImplsInCrate *query.Query[hir.CrateID, *InherentImpls]
	inherentImplsInBlock *query.Query[hir.BlockID, *InherentImpls]
	inherentImplCrates   *query.Query[ImplCratesKey, ImplCrates]
	traitImplsInCrate    *query.Query[hir.CrateID, *TraitImpls]
	traitImplsInBlock    *query.Query[hir.BlockID, *TraitImpls]
	traitImplsInDeps     *query.Query[hir.CrateID, *TraitImpls]
	traitsInScope        *query.Query[hir.CrateID, []hir.TraitID]

	// solver bridge
	associatedTyData     *query.Query[hir.AssocTypeID, *solve.AssociatedTyDatum]
	traitDatum           *query.Query[hir.TraitID, *solve.TraitDatum]
	structDatum          *query.Query[hir.AdtID, *solve.StructDatum]
	implDatum            *query.Query[hir.ImplID, *solve.ImplDatum]
	fnDefDatum           *query.Query[types.FnDefID, *solve.FnDefDatum]
	fnDefVariance        *query.Query[types.FnDefID, []types.Variance]
	adtVariance          *query.Query[hir.AdtID, []types.Variance]
	associatedTyValue    *query.Query[hir.AssocTypeValueID, *solve.AssociatedTyValue]
	programClausesForEnv *query.Query[types.Environment, types.Predicates]
	traitSolveQuery      *query.Query[TraitSolveKey, *types.Solution]

	// inference
	inferQuery *query.Query[hir.DefWithBodyID, *InferenceResult]
}

// New creates an empty analysis database.
func New(opts ...Option) *Database {
	cfg := config{
		logger:       zap.NewNop(),
		tracer:       trace.Nop,
		maxTypeDepth: solve.DefaultMaxTypeDepth,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}
	if cfg.tracer == nil {
		cfg.tracer = trace.Nop
	}
	s := query.New(query.WithLogger(cfg.logger), query.WithTracer(cfg.tracer))
	db := &Database{store: s, cfg: cfg}

	db.crateGraph = query.DefineInput[struct{}, *hir.CrateGraph](s, "crate_graph")
	db.crateDefs = query.DefineInput[hir.CrateID, *hir.CrateDefs](s, "crate_defs")
	db.items = query.DefineInput[hir.DefID, *hir.Item](s, "item")
	db.bodies = query.DefineInput[hir.DefWithBodyID, *hir.Body](s, "body")
	db.blockDefs = query.DefineInput[hir.BlockID, *hir.BlockDefs](s, "block_defs")

	db.callables = query.NewInterner[hir.CallableDefID, types.FnDefID]("intern_callable_def")
	db.params = query.NewInterner[hir.TypeOrConstParamID, types.PlaceholderID]("intern_type_or_const_param_id")
	db.lifetimes = query.NewInterner[hir.LifetimeParamID, types.LifetimeID]("intern_lifetime_param_id")
	db.implTraits = query.NewInterner[hir.ImplTraitID, types.OpaqueID]("intern_impl_trait_id")
	db.closures = query.NewInterner[hir.ClosureLoc, types.ClosureID]("intern_closure")
	db.goals = query.NewInterner[string, GoalID]("intern_canonical_goal")

	db.genericParams = query.Define(s, "generic_params", db.genericParamsQuery)
	db.functionData = query.Define(s, "function_data", db.functionDataQuery)
	db.adtData = query.Define(s, "adt_data", db.adtDataQuery)
	db.traitData = query.Define(s, "trait_data", db.traitDataQuery)
	db.implData = query.Define(s, "impl_data", db.implDataQuery)

	db.ty = query.Define(s, "ty", db.tyQuery, query.WithRecovery(db.tyRecover))
	db.valueTy = query.Define(s, "value_ty", db.valueTyQuery)
	db.implSelfTy = query.Define(s, "impl_self_ty", db.implSelfTyQuery, query.WithRecovery(db.implSelfTyRecover))
	db.constParamTy = query.Define(s, "const_param_ty", db.constParamTyQuery)
	db.constEval = query.Define(s, "const_eval", db.constEvalQuery,
		query.WithRecovery(db.constEvalRecover), query.WithEqual[hir.ConstID](ConstEvalResult.Equal))
	db.implTrait = query.Define(s, "impl_trait", db.implTraitQuery)
	db.fieldTypes = query.Define(s, "field_types", db.fieldTypesQuery)
	db.callableItemSignature = query.Define(s, "callable_item_signature", db.callableItemSignatureQuery)
	db.returnTypeImplTraits = query.Define(s, "return_type_impl_traits", db.returnTypeImplTraitsQuery)
	db.genericPredicatesForParam = query.Define(s, "generic_predicates_for_param", db.genericPredicatesForParamQuery,
		query.WithRecovery(db.genericPredicatesForParamRecover))
	db.genericPredicates = query.Define(s, "generic_predicates", db.genericPredicatesQuery)
	db.traitEnvironment = query.Define(s, "trait_environment", db.traitEnvironmentQuery)
	db.genericDefaults = query.Define(s, "generic_defaults", db.genericDefaultsQuery,
		query.WithRecovery(db.genericDefaultsRecover))

	db.inherentImplsInCrate = query.Define(s, "inherent_impls_in_crate", db.inherentImplsInCrateQuery)
	db.inherentImplsInBlock = query.Define(s, "inherent_impls_in_block", db.inherentImplsInBlockQuery)
	db.inherentImplCrates = query.Define(s, "inherent_impl_crates", db.inherentImplCratesQuery)
	db.traitImplsInCrate = query.Define(s, "trait_impls_in_crate", db.traitImplsInCrateQuery)
	db.traitImplsInBlock = query.Define(s, "trait_impls_in_block", db.traitImplsInBlockQuery)
	db.traitImplsInDeps = query.Define(s, "trait_impls_in_deps", db.traitImplsInDepsQuery)
	db.traitsInScope = query.Define(s, "traits_in_scope", db.traitsInScopeQuery)

	db.associatedTyData = query.Define(s, "associated_ty_data", db.associatedTyDataQuery)
	db.traitDatum = query.Define(s, "trait_datum", db.traitDatumQuery)
	db.structDatum = query.Define(s, "struct_datum", db.structDatumQuery)
	db.implDatum = query.Define(s, "impl_datum", db.implDatumQuery)
	db.fnDefDatum = query.Define(s, "fn_def_datum", db.fnDefDatumQuery)
	db.fnDefVariance = query.Define(s, "fn_def_variance", db.fnDefVarianceQuery)
	db.adtVariance = query.Define(s, "adt_variance", db.adtVarianceQuery, query.WithRecovery(db.adtVarianceRecover))
	db.associatedTyValue = query.Define(s, "associated_ty_value", db.associatedTyValueQuery)
	db.programClausesForEnv = query.Define(s, "program_clauses_for_env", db.programClausesForEnvQuery)
	db.traitSolveQuery = query.Define(s, "trait_solve_query", db.traitSolveQueryFn,
		query.WithRecovery(db.traitSolveRecover), query.WithScope[TraitSolveKey, *types.Solution](trace.ScopeEntry))

	db.inferQuery = query.Define(s, "infer_query", db.inferQueryFn,
		query.WithScope[hir.DefWithBodyID, *InferenceResult](trace.ScopeEntry))
	return db
}

// Store returns the underlying query store.
func (db *Database) Store() *query.Database { return db.store }

// Logger returns the database logger.
func (db *Database) Logger() *zap.Logger { return db.cfg.logger }

// Run evaluates fn against the current revision of db.
func Run[V any](ctx context.Context, db *Database, fn func(rt *query.Runtime) V) (V, error) {
	return query.Run(ctx, db.store, fn)
}

// Inputs ---------------------------------------------------------------------

// SetCrateGraph replaces the crate graph.
func (db *Database) SetCrateGraph(g *hir.CrateGraph) query.Revision {
	return db.crateGraph.Set(struct{}{}, g)
}

// SetCrateDefs replaces the crate-level item list of defs.Crate.
func (db *Database) SetCrateDefs(defs *hir.CrateDefs) query.Revision {
	return db.crateDefs.Set(defs.Crate, defs)
}

// SetItem replaces the signature data of def.
func (db *Database) SetItem(def hir.DefID, item *hir.Item) query.Revision {
	return db.items.Set(def, item)
}

// RemoveItem deletes def. Callers also drop it from its crate or block list.
func (db *Database) RemoveItem(def hir.DefID) query.Revision {
	return db.items.Remove(def)
}

// SetBody replaces the body of def.
func (db *Database) SetBody(def hir.DefWithBodyID, body *hir.Body) query.Revision {
	return db.bodies.Set(def, body)
}

// RemoveBody deletes the body of def.
func (db *Database) RemoveBody(def hir.DefWithBodyID) query.Revision {
	return db.bodies.Remove(def)
}

// SetBlockDefs replaces the items declared in defs.Block.
func (db *Database) SetBlockDefs(defs *hir.BlockDefs) query.Revision {
	return db.blockDefs.Set(defs.Block, defs)
}

// Bodies returns every definition that currently has a body.
func (db *Database) Bodies() []hir.DefWithBodyID { return db.bodies.Keys() }

// Crates returns the crates of the current graph, without recording a read.
func (db *Database) Crates() []hir.CrateData {
	var out []hir.CrateData
	_, _ = Run(context.Background(), db, func(rt *query.Runtime) struct{} {
		if g := db.graph(rt); g != nil {
			out = append(out, g.Crates...)
		}
		return struct{}{}
	})
	return out
}

func (db *Database) graph(rt *query.Runtime) *hir.CrateGraph {
	g, _ := db.crateGraph.Lookup(rt, struct{}{})
	return g
}

func (db *Database) item(rt *query.Runtime, def hir.DefID) *hir.Item {
	it, ok := db.items.Lookup(rt, def)
	if !ok {
		return nil
	}
	return it
}

func (db *Database) body(rt *query.Runtime, def hir.DefWithBodyID) *hir.Body {
	b, ok := db.bodies.Lookup(rt, def)
	if !ok {
		return nil
	}
	return b
}

func (db *Database) crateItems(rt *query.Runtime, krate hir.CrateID) []hir.DefID {
	defs, ok := db.crateDefs.Lookup(rt, krate)
	if !ok || defs == nil {
		return nil
	}
	return defs.Items
}

func (db *Database) block(rt *query.Runtime, block hir.BlockID) *hir.BlockDefs {
	if !block.IsValid() {
		return nil
	}
	b, ok := db.blockDefs.Lookup(rt, block)
	if !ok {
		return nil
	}
	return b
}
