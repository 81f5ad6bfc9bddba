package types

import "fmt"

// Folder rewrites the leaves of a type-system value. Ty is called for every
// type before its children; a non-nil result replaces the type and stops the
// descent. Const does the same for consts. depth counts the binders entered
// since the fold started.
type Folder struct {
	Ty    func(t *Ty, depth uint32) *Ty
	Const func(c *Const, depth uint32) *Const
}

// Foldable is a value that can be rewritten by a Folder.
type Foldable[T any] interface {
	FoldWith(f *Folder, depth uint32) T
}

// FoldWith rewrites t, copying only the parts that change.
func (t *Ty) FoldWith(f *Folder, depth uint32) *Ty {
	if t == nil {
		return nil
	}
	if f.Ty != nil {
		if r := f.Ty(t, depth); r != nil {
			return r
		}
	}
	args, argsChanged := t.Args.fold(f, depth)
	elems, elemsChanged := foldTys(t.Elems, f, depth)
	elem := t.Elem.FoldWith(f, depth)
	n := t.Len.FoldWith(f, depth)
	if !argsChanged && !elemsChanged && elem == t.Elem && n == t.Len {
		return t
	}
	out := *t
	out.Args, out.Elems, out.Elem, out.Len = args, elems, elem, n
	return &out
}

// FoldWith rewrites a const.
func (c *Const) FoldWith(f *Folder, depth uint32) *Const {
	if c == nil || f.Const == nil {
		return c
	}
	if r := f.Const(c, depth); r != nil {
		return r
	}
	return c
}

func foldTys(ts []*Ty, f *Folder, depth uint32) ([]*Ty, bool) {
	var out []*Ty
	for i, t := range ts {
		nt := t.FoldWith(f, depth)
		if nt != t && out == nil {
			out = make([]*Ty, len(ts))
			copy(out, ts[:i])
		}
		if out != nil {
			out[i] = nt
		}
	}
	if out == nil {
		return ts, false
	}
	return out, true
}

// Shifting ------------------------------------------------------------------

// ShiftIn moves every bound variable that escapes the value by n binders
// outward. It is applied to a substituted value placed under n binders.
func ShiftIn[T Foldable[T]](v T, n uint32) T {
	if n == 0 {
		return v
	}
	return v.FoldWith(&Folder{
		Ty: func(t *Ty, depth uint32) *Ty {
			if t.Kind == KindBoundVar && t.Bound.Debruijn >= depth {
				return MakeBound(t.Bound.Debruijn+n, t.Bound.Index)
			}
			return nil
		},
		Const: func(c *Const, depth uint32) *Const {
			if c.Kind == ConstBound && c.Bound.Debruijn >= depth {
				return &Const{Kind: ConstBound, Bound: BoundVar{Debruijn: c.Bound.Debruijn + n, Index: c.Bound.Index}}
			}
			return nil
		},
	}, 0)
}

// substituter replaces the bound variables of the binder at depth 0 with
// args and lowers references to outer binders by one.
func substituter(args Substitution) *Folder {
	return &Folder{
		Ty: func(t *Ty, depth uint32) *Ty {
			if t.Kind != KindBoundVar {
				return nil
			}
			switch {
			case t.Bound.Debruijn == depth:
				arg := args[t.Bound.Index]
				if arg.Ty == nil {
					return Error()
				}
				return ShiftIn(arg.Ty, depth)
			case t.Bound.Debruijn > depth:
				return MakeBound(t.Bound.Debruijn-1, t.Bound.Index)
			}
			return t
		},
		Const: func(c *Const, depth uint32) *Const {
			if c.Kind != ConstBound {
				return nil
			}
			switch {
			case c.Bound.Debruijn == depth:
				arg := args[c.Bound.Index]
				if arg.Const == nil {
					return UnknownConst()
				}
				return arg.Const
			case c.Bound.Debruijn > depth:
				return &Const{Kind: ConstBound, Bound: BoundVar{Debruijn: c.Bound.Debruijn - 1, Index: c.Bound.Index}}
			}
			return c
		},
	}
}

// Binders ---------------------------------------------------------------------

// Binders closes Value over Len generic parameters. Inside Value, parameter i
// of the innermost enclosing binder is the bound variable (0, i).
type Binders[T Foldable[T]] struct {
	Len   int
	Value T
}

// MakeBinders wraps value in a binder of n parameters.
func MakeBinders[T Foldable[T]](n int, value T) Binders[T] {
	return Binders[T]{Len: n, Value: value}
}

// Empty wraps a value that mentions no parameters.
func Empty[T Foldable[T]](value T) Binders[T] {
	return Binders[T]{Value: value}
}

// Substitute instantiates the binder. The argument count must equal Len;
// anything else is an invariant breach.
func (b Binders[T]) Substitute(args Substitution) T {
	if len(args) != b.Len {
		panic(fmt.Sprintf("types: binder of %d parameters instantiated with %d arguments", b.Len, len(args)))
	}
	return b.Value.FoldWith(substituter(args), 0)
}

// SkipBinders returns the value with its bound variables left in place.
func (b Binders[T]) SkipBinders() T { return b.Value }

// FoldWith folds the value one binder deeper.
func (b Binders[T]) FoldWith(f *Folder, depth uint32) Binders[T] {
	return Binders[T]{Len: b.Len, Value: b.Value.FoldWith(f, depth+1)}
}
