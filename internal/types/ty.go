// Package types holds the type-system values produced by lowering and
// consumed by inference and the trait solver: types, substitutions,
// binders, clauses, goals, canonical forms and the unification table.
//
// Values are immutable once built and freely shared between cached query
// results. Rewriting happens through Fold, which copies only the parts of a
// tree that change.
package types

import (
	"fmt"

	"tyinc/internal/hir"
)

// Interned handles issued by the analysis database.
type (
	// FnDefID is an interned callable definition.
	FnDefID uint32
	// PlaceholderID is an interned generic type or const parameter.
	PlaceholderID uint32
	// LifetimeID is an interned lifetime parameter.
	LifetimeID uint32
	// OpaqueID is an interned `impl Trait` return type.
	OpaqueID uint32
	// ClosureID is an interned closure expression.
	ClosureID uint32
)

// Kind enumerates all supported kinds of types.
type Kind uint8

const (
	KindError Kind = iota
	KindNever
	KindScalar
	KindStr
	KindTuple
	KindAdt
	KindRef
	KindArray
	KindSlice
	KindFnPtr
	KindFnDef
	KindPlaceholder
	KindBoundVar
	KindInferVar
	KindAlias
	KindOpaque
	KindClosure
)

func (k Kind) String() string {
	switch k {
	case KindError:
		return "error"
	case KindNever:
		return "never"
	case KindScalar:
		return "scalar"
	case KindStr:
		return "str"
	case KindTuple:
		return "tuple"
	case KindAdt:
		return "adt"
	case KindRef:
		return "ref"
	case KindArray:
		return "array"
	case KindSlice:
		return "slice"
	case KindFnPtr:
		return "fn-ptr"
	case KindFnDef:
		return "fn-def"
	case KindPlaceholder:
		return "placeholder"
	case KindBoundVar:
		return "bound"
	case KindInferVar:
		return "infer"
	case KindAlias:
		return "alias"
	case KindOpaque:
		return "opaque"
	case KindClosure:
		return "closure"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// BoundVar is a de Bruijn reference to a parameter of an enclosing Binders:
// Debruijn counts binders outward from the reference, Index selects the
// parameter.
type BoundVar struct {
	Debruijn uint32 `msgpack:",omitempty"`
	Index    uint32 `msgpack:",omitempty"`
}

// InferVar is an inference variable of a Table.
type InferVar uint32

// LifetimeKind enumerates lifetime forms.
type LifetimeKind uint8

const (
	LifetimeErased LifetimeKind = iota
	LifetimeStatic
	LifetimeParam
)

// Lifetime is the region of a reference. Lifetimes never take part in
// unification.
type Lifetime struct {
	Kind  LifetimeKind `msgpack:",omitempty"`
	Param LifetimeID   `msgpack:",omitempty"`
}

// ConstKind enumerates const argument forms.
type ConstKind uint8

const (
	ConstUnknown ConstKind = iota
	ConstKnown
	ConstParam
	ConstBound
)

// Const is a const generic argument or an array length.
type Const struct {
	Kind  ConstKind     `msgpack:",omitempty"`
	Value uint64        `msgpack:",omitempty"`
	Param PlaceholderID `msgpack:",omitempty"`
	Bound BoundVar      `msgpack:",omitempty"`
}

// KnownConst returns an evaluated const.
func KnownConst(v uint64) *Const { return &Const{Kind: ConstKnown, Value: v} }

// UnknownConst returns a const whose value could not be determined.
func UnknownConst() *Const { return &Const{Kind: ConstUnknown} }

// Ty is an immutable type tree. Only the fields relevant to Kind are set.
type Ty struct {
	Kind   Kind   `msgpack:",omitempty"`
	Scalar Scalar `msgpack:",omitempty"`
	// Def is the ADT for KindAdt and the associated type for KindAlias.
	Def hir.DefID `msgpack:",omitempty"`
	// Args are the generic arguments of ADTs, fn defs, aliases, opaque
	// types and closures.
	Args Substitution `msgpack:",omitempty"`
	// Elems holds tuple elements, or fn-pointer parameters followed by
	// the return type.
	Elems    []*Ty         `msgpack:",omitempty"`
	Elem     *Ty           `msgpack:",omitempty"`
	Mut      bool          `msgpack:",omitempty"`
	Lifetime Lifetime      `msgpack:",omitempty"`
	Len      *Const        `msgpack:",omitempty"`
	FnDef    FnDefID       `msgpack:",omitempty"`
	Param    PlaceholderID `msgpack:",omitempty"`
	Bound    BoundVar      `msgpack:",omitempty"`
	Var      InferVar      `msgpack:",omitempty"`
	Opaque   OpaqueID      `msgpack:",omitempty"`
	Closure  ClosureID     `msgpack:",omitempty"`
}

var (
	errorTy = &Ty{Kind: KindError}
	neverTy = &Ty{Kind: KindNever}
	unitTy  = &Ty{Kind: KindTuple}
	strTy   = &Ty{Kind: KindStr}
)

// Type constructors ----------------------------------------------------------

// Error returns the unknown/error type.
func Error() *Ty { return errorTy }

// Never returns `!`.
func Never() *Ty { return neverTy }

// Unit returns `()`.
func Unit() *Ty { return unitTy }

// Str returns `str`.
func Str() *Ty { return strTy }

// MakeScalar returns a primitive type.
func MakeScalar(s Scalar) *Ty { return &Ty{Kind: KindScalar, Scalar: s} }

// Bool returns `bool`.
func Bool() *Ty { return MakeScalar(ScalarBool) }

// MakeTuple returns `(elems...)`.
func MakeTuple(elems ...*Ty) *Ty {
	if len(elems) == 0 {
		return unitTy
	}
	return &Ty{Kind: KindTuple, Elems: elems}
}

// MakeAdt returns a nominal type applied to args.
func MakeAdt(def hir.DefID, args Substitution) *Ty {
	return &Ty{Kind: KindAdt, Def: def, Args: args}
}

// MakeRef returns `&elem` or `&mut elem`.
func MakeRef(elem *Ty, mut bool, lt Lifetime) *Ty {
	return &Ty{Kind: KindRef, Elem: elem, Mut: mut, Lifetime: lt}
}

// MakeArray returns `[elem; len]`.
func MakeArray(elem *Ty, n *Const) *Ty {
	if n == nil {
		n = UnknownConst()
	}
	return &Ty{Kind: KindArray, Elem: elem, Len: n}
}

// MakeSlice returns `[elem]`.
func MakeSlice(elem *Ty) *Ty { return &Ty{Kind: KindSlice, Elem: elem} }

// MakeFnPtr returns `fn(params...) -> ret`.
func MakeFnPtr(params []*Ty, ret *Ty) *Ty {
	elems := make([]*Ty, 0, len(params)+1)
	elems = append(elems, params...)
	elems = append(elems, ret)
	return &Ty{Kind: KindFnPtr, Elems: elems}
}

// MakeFnDef returns the zero-sized type of a callable definition.
func MakeFnDef(id FnDefID, args Substitution) *Ty {
	return &Ty{Kind: KindFnDef, FnDef: id, Args: args}
}

// MakePlaceholder returns a rigid generic parameter.
func MakePlaceholder(id PlaceholderID) *Ty { return &Ty{Kind: KindPlaceholder, Param: id} }

// MakeBound returns a bound variable.
func MakeBound(debruijn, index uint32) *Ty {
	return &Ty{Kind: KindBoundVar, Bound: BoundVar{Debruijn: debruijn, Index: index}}
}

// MakeVar returns an inference variable.
func MakeVar(v InferVar) *Ty { return &Ty{Kind: KindInferVar, Var: v} }

// MakeAlias returns the projection `<args[0] as Trait>::Assoc`.
func MakeAlias(p ProjectionTy) *Ty {
	return &Ty{Kind: KindAlias, Def: hir.DefID(p.Assoc), Args: p.Args}
}

// MakeOpaque returns an `impl Trait` type.
func MakeOpaque(id OpaqueID, args Substitution) *Ty {
	return &Ty{Kind: KindOpaque, Opaque: id, Args: args}
}

// MakeClosure returns the type of a closure expression.
func MakeClosure(id ClosureID, args Substitution) *Ty {
	return &Ty{Kind: KindClosure, Closure: id, Args: args}
}

// Queries --------------------------------------------------------------------

// IsError reports whether t is the error type.
func (t *Ty) IsError() bool { return t == nil || t.Kind == KindError }

// IsUnit reports whether t is `()`.
func (t *Ty) IsUnit() bool { return t != nil && t.Kind == KindTuple && len(t.Elems) == 0 }

// IsNever reports whether t is `!`.
func (t *Ty) IsNever() bool { return t != nil && t.Kind == KindNever }

// Projection returns the projection of an alias type.
func (t *Ty) Projection() ProjectionTy {
	return ProjectionTy{Assoc: hir.AssocTypeID(t.Def), Args: t.Args}
}

// FnPtrParams returns the parameters of a fn-pointer type.
func (t *Ty) FnPtrParams() []*Ty { return t.Elems[:len(t.Elems)-1] }

// FnPtrRet returns the return type of a fn-pointer type.
func (t *Ty) FnPtrRet() *Ty { return t.Elems[len(t.Elems)-1] }

// ContainsError reports whether the error type occurs anywhere in t.
func (t *Ty) ContainsError() bool {
	found := false
	t.Visit(func(x *Ty) bool {
		if x.Kind == KindError {
			found = true
		}
		return !found
	})
	return found
}

// HasVars reports whether t mentions inference variables.
func (t *Ty) HasVars() bool {
	found := false
	t.Visit(func(x *Ty) bool {
		if x.Kind == KindInferVar {
			found = true
		}
		return !found
	})
	return found
}

// Depth returns the nesting depth of t.
func (t *Ty) Depth() int {
	if t == nil {
		return 0
	}
	d := 0
	for _, c := range t.children() {
		if cd := c.Depth(); cd > d {
			d = cd
		}
	}
	return d + 1
}

// Visit calls fn for t and, while fn returns true, for every nested type.
func (t *Ty) Visit(fn func(*Ty) bool) {
	if t == nil || !fn(t) {
		return
	}
	for _, c := range t.children() {
		c.Visit(fn)
	}
}

func (t *Ty) children() []*Ty {
	var out []*Ty
	for _, a := range t.Args {
		if a.Ty != nil {
			out = append(out, a.Ty)
		}
	}
	out = append(out, t.Elems...)
	if t.Elem != nil {
		out = append(out, t.Elem)
	}
	return out
}
