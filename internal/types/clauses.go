package types

import "tyinc/internal/hir"

// TraitRef is `Args[0]: Trait<Args[1:]...>`.
type TraitRef struct {
	Trait hir.TraitID  `msgpack:",omitempty"`
	Args  Substitution `msgpack:",omitempty"`
}

// SelfTy returns the implementing type.
func (r TraitRef) SelfTy() *Ty { return r.Args.Type(0) }

// FoldWith rewrites the trait ref's arguments.
func (r TraitRef) FoldWith(f *Folder, depth uint32) TraitRef {
	return TraitRef{Trait: r.Trait, Args: r.Args.FoldWith(f, depth)}
}

// ProjectionTy is `<Args[0] as Trait<Args[1:]...>>::Assoc`, where Trait is
// the trait that declares Assoc.
type ProjectionTy struct {
	Assoc hir.AssocTypeID `msgpack:",omitempty"`
	Args  Substitution    `msgpack:",omitempty"`
}

// TraitRef returns the trait reference the projection goes through.
func (p ProjectionTy) TraitRef(trait hir.TraitID) TraitRef {
	return TraitRef{Trait: trait, Args: p.Args}
}

// FoldWith rewrites the projection's arguments.
func (p ProjectionTy) FoldWith(f *Folder, depth uint32) ProjectionTy {
	return ProjectionTy{Assoc: p.Assoc, Args: p.Args.FoldWith(f, depth)}
}

// AliasEq states that a projection normalizes to Ty.
type AliasEq struct {
	Alias ProjectionTy `msgpack:",omitempty"`
	Ty    *Ty          `msgpack:",omitempty"`
}

// FoldWith rewrites both sides.
func (e AliasEq) FoldWith(f *Folder, depth uint32) AliasEq {
	return AliasEq{Alias: e.Alias.FoldWith(f, depth), Ty: e.Ty.FoldWith(f, depth)}
}

// WhereClauseKind enumerates where-clause forms.
type WhereClauseKind uint8

const (
	// ClauseImplemented is `T: Trait`.
	ClauseImplemented WhereClauseKind = iota
	// ClauseAliasEq is `<T as Trait>::Assoc == U`.
	ClauseAliasEq
)

// WhereClause is a predicate over types.
type WhereClause struct {
	Kind    WhereClauseKind `msgpack:",omitempty"`
	Trait   TraitRef        `msgpack:",omitempty"`
	AliasEq AliasEq         `msgpack:",omitempty"`
}

// Implemented returns the clause `ref.SelfTy(): ref.Trait`.
func Implemented(ref TraitRef) WhereClause {
	return WhereClause{Kind: ClauseImplemented, Trait: ref}
}

// Normalizes returns the clause `alias == ty`.
func Normalizes(alias ProjectionTy, ty *Ty) WhereClause {
	return WhereClause{Kind: ClauseAliasEq, AliasEq: AliasEq{Alias: alias, Ty: ty}}
}

// FoldWith rewrites the clause.
func (c WhereClause) FoldWith(f *Folder, depth uint32) WhereClause {
	switch c.Kind {
	case ClauseAliasEq:
		return WhereClause{Kind: c.Kind, AliasEq: c.AliasEq.FoldWith(f, depth)}
	default:
		return WhereClause{Kind: c.Kind, Trait: c.Trait.FoldWith(f, depth)}
	}
}

// SelfTy returns the type the clause constrains.
func (c WhereClause) SelfTy() *Ty {
	if c.Kind == ClauseAliasEq {
		return c.AliasEq.Alias.Args.Type(0)
	}
	return c.Trait.SelfTy()
}

// QuantifiedWhereClause is a where clause as written in a signature.
// Higher-ranked binders are not modelled, so it carries no binder of its own.
type QuantifiedWhereClause = WhereClause

// Predicates is a list of where clauses.
type Predicates []WhereClause

// FoldWith rewrites every clause.
func (p Predicates) FoldWith(f *Folder, depth uint32) Predicates {
	if len(p) == 0 {
		return p
	}
	out := make(Predicates, len(p))
	for i, c := range p {
		out[i] = c.FoldWith(f, depth)
	}
	return out
}

// Goal is something the trait solver is asked to prove: a where clause of
// kind ClauseImplemented, or ClauseAliasEq to normalize a projection.
type Goal = WhereClause

// Environment names the assumptions a goal is proven under: the where
// clauses of Owner, plus the impls declared in Block and its enclosing
// blocks.
type Environment struct {
	Owner hir.GenericDefID `msgpack:",omitempty"`
	Block hir.BlockID      `msgpack:",omitempty"`
}

// InEnvironment pairs a goal with its environment.
type InEnvironment struct {
	Env  Environment `msgpack:",omitempty"`
	Goal Goal        `msgpack:",omitempty"`
}

// FoldWith rewrites the goal.
func (g InEnvironment) FoldWith(f *Folder, depth uint32) InEnvironment {
	return InEnvironment{Env: g.Env, Goal: g.Goal.FoldWith(f, depth)}
}

// FnSig is a callable signature.
type FnSig struct {
	Params []*Ty
	Ret    *Ty
}

// FoldWith rewrites the signature.
func (s FnSig) FoldWith(f *Folder, depth uint32) FnSig {
	params, _ := foldTys(s.Params, f, depth)
	return FnSig{Params: params, Ret: s.Ret.FoldWith(f, depth)}
}

// PolyFnSig is a signature closed over its definition's generics.
type PolyFnSig = Binders[FnSig]

// ImplTraitBounds are the bounds of one `impl Trait` type. The inner binder
// has a single parameter: the opaque type itself.
type ImplTraitBounds struct {
	Bounds Binders[Predicates]
}

// ReturnTypeImplTraits lists the `impl Trait` types of a function's return
// type, in order of appearance.
type ReturnTypeImplTraits struct {
	ImplTraits []ImplTraitBounds
}

// FoldWith rewrites every bound.
func (r ReturnTypeImplTraits) FoldWith(f *Folder, depth uint32) ReturnTypeImplTraits {
	out := make([]ImplTraitBounds, len(r.ImplTraits))
	for i, it := range r.ImplTraits {
		out[i] = ImplTraitBounds{Bounds: it.Bounds.FoldWith(f, depth)}
	}
	return ReturnTypeImplTraits{ImplTraits: out}
}
