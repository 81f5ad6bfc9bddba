package types

import (
	"fmt"

	"tyinc/internal/hir"
)

// Fingerprint is a coarse, hashable summary of a type's head constructor.
// Impl indices are bucketed by the fingerprint of the impl's self type;
// impls whose self type has no fingerprint are blanket impls and are
// candidates for every query.
type Fingerprint struct {
	Kind   Kind
	Def    hir.DefID
	Scalar Scalar
	Mut    bool
	Arity  int
}

func (f Fingerprint) String() string {
	switch f.Kind {
	case KindAdt:
		return fmt.Sprintf("adt(%s)", f.Def)
	case KindScalar:
		return f.Scalar.String()
	case KindRef:
		if f.Mut {
			return "&mut"
		}
		return "&"
	case KindTuple:
		return fmt.Sprintf("tuple/%d", f.Arity)
	case KindFnPtr:
		return fmt.Sprintf("fn/%d", f.Arity)
	default:
		return f.Kind.String()
	}
}

// FingerprintOf returns the fingerprint of t, or false when t's head is a
// variable, parameter, projection or error and so may match anything.
func FingerprintOf(t *Ty) (Fingerprint, bool) {
	if t == nil {
		return Fingerprint{}, false
	}
	switch t.Kind {
	case KindAdt:
		return Fingerprint{Kind: KindAdt, Def: t.Def}, true
	case KindScalar:
		return Fingerprint{Kind: KindScalar, Scalar: t.Scalar}, true
	case KindStr, KindNever, KindSlice, KindArray:
		return Fingerprint{Kind: t.Kind}, true
	case KindTuple:
		return Fingerprint{Kind: KindTuple, Arity: len(t.Elems)}, true
	case KindFnPtr:
		return Fingerprint{Kind: KindFnPtr, Arity: len(t.Elems) - 1}, true
	case KindRef:
		return Fingerprint{Kind: KindRef, Mut: t.Mut}, true
	case KindFnDef:
		return Fingerprint{Kind: KindFnDef}, true
	case KindClosure:
		return Fingerprint{Kind: KindClosure}, true
	case KindOpaque:
		return Fingerprint{Kind: KindOpaque}, true
	default:
		return Fingerprint{}, false
	}
}

// InherentFingerprintOf is FingerprintOf restricted to types that can carry
// inherent impls. References are seen through by method resolution and are
// never keys themselves.
func InherentFingerprintOf(t *Ty) (Fingerprint, bool) {
	fp, ok := FingerprintOf(t)
	if !ok {
		return fp, false
	}
	switch fp.Kind {
	case KindRef, KindFnDef, KindClosure, KindOpaque, KindNever:
		return Fingerprint{}, false
	}
	return fp, true
}
