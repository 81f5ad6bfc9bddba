package types

// GenericArg is one argument of a substitution: a type or a const.
type GenericArg struct {
	Ty    *Ty    `msgpack:",omitempty"`
	Const *Const `msgpack:",omitempty"`
}

// TyArg wraps a type argument.
func TyArg(t *Ty) GenericArg { return GenericArg{Ty: t} }

// ConstArg wraps a const argument.
func ConstArg(c *Const) GenericArg { return GenericArg{Const: c} }

// IsConst reports whether the argument is a const.
func (a GenericArg) IsConst() bool { return a.Const != nil }

// FoldWith rewrites the argument.
func (a GenericArg) FoldWith(f *Folder, depth uint32) GenericArg {
	return GenericArg{Ty: a.Ty.FoldWith(f, depth), Const: a.Const.FoldWith(f, depth)}
}

// Substitution is an ordered list of generic arguments, one per parameter of
// the binder it instantiates.
type Substitution []GenericArg

// FoldWith rewrites every argument.
func (s Substitution) FoldWith(f *Folder, depth uint32) Substitution {
	out, _ := s.fold(f, depth)
	return out
}

func (s Substitution) fold(f *Folder, depth uint32) (Substitution, bool) {
	var out Substitution
	for i, a := range s {
		na := a.FoldWith(f, depth)
		if (na.Ty != a.Ty || na.Const != a.Const) && out == nil {
			out = make(Substitution, len(s))
			copy(out, s[:i])
		}
		if out != nil {
			out[i] = na
		}
	}
	if out == nil {
		return s, false
	}
	return out, true
}

// Type returns the i-th argument as a type; const arguments yield the error
// type.
func (s Substitution) Type(i int) *Ty {
	if i < 0 || i >= len(s) || s[i].Ty == nil {
		return Error()
	}
	return s[i].Ty
}

// Prefix returns the first n arguments.
func (s Substitution) Prefix(n int) Substitution {
	if n > len(s) {
		n = len(s)
	}
	return s[:n:n]
}

// Append returns s followed by more, without aliasing s.
func (s Substitution) Append(more ...GenericArg) Substitution {
	out := make(Substitution, 0, len(s)+len(more))
	out = append(out, s...)
	return append(out, more...)
}

// ParamKind tells whether a generic parameter takes a type or a const.
type ParamKind uint8

const (
	ParamType ParamKind = iota
	ParamConst
)

// BoundVarsSubst returns the identity substitution for a binder whose
// parameters have the given kinds: parameter i maps to bound variable
// (debruijn, i).
func BoundVarsSubst(kinds []ParamKind, debruijn uint32) Substitution {
	out := make(Substitution, len(kinds))
	for i, k := range kinds {
		bv := BoundVar{Debruijn: debruijn, Index: uint32(i)}
		if k == ParamConst {
			out[i] = ConstArg(&Const{Kind: ConstBound, Bound: bv})
		} else {
			out[i] = TyArg(&Ty{Kind: KindBoundVar, Bound: bv})
		}
	}
	return out
}

// ErrorSubst returns n error arguments with the given kinds.
func ErrorSubst(kinds []ParamKind) Substitution {
	out := make(Substitution, len(kinds))
	for i, k := range kinds {
		if k == ParamConst {
			out[i] = ConstArg(UnknownConst())
		} else {
			out[i] = TyArg(Error())
		}
	}
	return out
}
