// Package solve is a small recursive trait solver. It proves canonical goals
// against a Program, the view of definitions the analysis database exposes.
// The solver keeps no state between calls: caching and cycle handling
// belong to whoever implements Program.Solve.
package solve

import (
	"tyinc/internal/hir"
	"tyinc/internal/types"
)

// Program is everything the solver needs to know about the code under
// analysis. Datum accessors return nil for definitions that do not exist.
type Program interface {
	// ImplsForTrait returns the impls of trait whose self type may match
	// self: impls in the fingerprint's bucket plus blanket impls.
	ImplsForTrait(trait hir.TraitID, self *types.Ty, env types.Environment) []hir.ImplID
	ImplDatum(impl hir.ImplID) *ImplDatum
	TraitDatum(trait hir.TraitID) *TraitDatum
	StructDatum(adt hir.AdtID) *StructDatum
	AssociatedTyData(assoc hir.AssocTypeID) *AssociatedTyDatum
	// AssociatedTyValue returns the value an impl gives to an associated
	// type, closed over the impl's generics.
	AssociatedTyValue(impl hir.ImplID, assoc hir.AssocTypeID) *AssociatedTyValue
	// EnvClauses returns the assumptions in scope for env, with generic
	// parameters as placeholders.
	EnvClauses(env types.Environment) types.Predicates
	// OpaqueBounds returns the bounds of an `impl Trait` type instantiated
	// with args.
	OpaqueBounds(id types.OpaqueID, args types.Substitution) types.Predicates
	// Solve proves a nested goal.
	Solve(goal types.CanonicalGoal) *types.Solution
	// CheckCancelled aborts the solve when the caller's work is stale.
	CheckCancelled()
}

// ImplBound is the signature of an impl under its generics.
type ImplBound struct {
	Trait types.TraitRef
	Where types.Predicates
}

// FoldWith rewrites the bound.
func (b ImplBound) FoldWith(f *types.Folder, depth uint32) ImplBound {
	return ImplBound{Trait: b.Trait.FoldWith(f, depth), Where: b.Where.FoldWith(f, depth)}
}

// ImplDatum describes a trait impl.
type ImplDatum struct {
	ID       hir.ImplID
	Kinds    []types.ParamKind
	Binders  types.Binders[ImplBound]
	Negative bool
	// Assoc lists the associated types the impl gives values to.
	Assoc []hir.AssocTypeID
}

// TraitDatum describes a trait. Where holds the trait's own where clauses
// and supertrait bounds with parameter 0 as Self.
type TraitDatum struct {
	ID     hir.TraitID
	Kinds  []types.ParamKind
	Where  types.Binders[types.Predicates]
	Auto   bool
	Marker bool
	Assoc  []hir.AssocTypeID
}

// StructBound lists the field types and where clauses of an ADT.
type StructBound struct {
	Fields []*types.Ty
	Where  types.Predicates
}

// FoldWith rewrites the bound.
func (b StructBound) FoldWith(f *types.Folder, depth uint32) StructBound {
	fields := make([]*types.Ty, len(b.Fields))
	for i, t := range b.Fields {
		fields[i] = t.FoldWith(f, depth)
	}
	return StructBound{Fields: fields, Where: b.Where.FoldWith(f, depth)}
}

// StructDatum describes a struct or enum; enum variants contribute their
// fields in declaration order.
type StructDatum struct {
	ID      hir.AdtID
	Kinds   []types.ParamKind
	Binders types.Binders[StructBound]
}

// AssociatedTyDatum describes an associated type declared by a trait.
// Bounds are closed over the trait's generics and constrain
// `<Self as Trait>::Assoc`.
type AssociatedTyDatum struct {
	Trait  hir.TraitID
	ID     hir.AssocTypeID
	Name   string
	Bounds types.Binders[types.Predicates]
}

// AssociatedTyValue is the type an impl assigns to an associated type.
type AssociatedTyValue struct {
	Impl  hir.ImplID
	Assoc hir.AssocTypeID
	Value types.Binders[*types.Ty]
}

// FnDefBound is the signature of a callable under its generics.
type FnDefBound struct {
	Sig   types.FnSig
	Where types.Predicates
}

// FoldWith rewrites the bound.
func (b FnDefBound) FoldWith(f *types.Folder, depth uint32) FnDefBound {
	return FnDefBound{Sig: b.Sig.FoldWith(f, depth), Where: b.Where.FoldWith(f, depth)}
}

// FnDefDatum describes a callable definition.
type FnDefDatum struct {
	ID      types.FnDefID
	Kinds   []types.ParamKind
	Binders types.Binders[FnDefBound]
}
