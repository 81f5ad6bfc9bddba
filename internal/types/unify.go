package types

import "fmt"

// VarKind restricts what an inference variable may be bound to.
type VarKind uint8

const (
	// VarGeneral accepts any type.
	VarGeneral VarKind = iota
	// VarInt accepts integer scalars only.
	VarInt
	// VarFloat accepts float scalars only.
	VarFloat
)

func (k VarKind) String() string {
	switch k {
	case VarInt:
		return "int"
	case VarFloat:
		return "float"
	default:
		return "general"
	}
}

type varSlot struct {
	kind  VarKind
	value *Ty // nil while unbound
}

type undoEntry struct {
	v    InferVar
	kind VarKind
}

// Snapshot marks a point a Table can be rolled back to.
type Snapshot struct {
	vars int
	undo int
}

// Table is a unification table of inference variables. Variable 0 is
// reserved; bindings are recorded so speculative work can be undone.
type Table struct {
	vars []varSlot
	undo []undoEntry
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{vars: []varSlot{{}}}
}

// NewVar allocates a fresh variable of the given kind.
func (t *Table) NewVar(kind VarKind) *Ty {
	t.vars = append(t.vars, varSlot{kind: kind})
	return MakeVar(InferVar(len(t.vars) - 1))
}

// Len returns the number of variables allocated so far.
func (t *Table) Len() int { return len(t.vars) - 1 }

// VarKind returns the kind of v's root.
func (t *Table) VarKind(v InferVar) VarKind {
	return t.vars[v].kind
}

// Snapshot records the current state.
func (t *Table) Snapshot() Snapshot {
	return Snapshot{vars: len(t.vars), undo: len(t.undo)}
}

// Rollback undoes every binding and variable created after s.
func (t *Table) Rollback(s Snapshot) {
	for i := len(t.undo) - 1; i >= s.undo; i-- {
		e := t.undo[i]
		if int(e.v) < len(t.vars) {
			t.vars[e.v] = varSlot{kind: e.kind}
		}
	}
	t.undo = t.undo[:s.undo]
	t.vars = t.vars[:s.vars]
}

// Resolve follows variable bindings at the top level of ty.
func (t *Table) Resolve(ty *Ty) *Ty {
	for ty != nil && ty.Kind == KindInferVar {
		if int(ty.Var) >= len(t.vars) {
			panic(fmt.Sprintf("types: inference variable ?%d does not belong to this table", ty.Var))
		}
		next := t.vars[ty.Var].value
		if next == nil {
			return ty
		}
		ty = next
	}
	return ty
}

// ResolveDeep substitutes every bound variable in ty. Unbound variables are
// passed to fallback; a nil fallback keeps them.
func (t *Table) ResolveDeep(ty *Ty, fallback func(v InferVar, kind VarKind) *Ty) *Ty {
	return ty.FoldWith(t.deepFolder(fallback), 0)
}

// ResolveDeepArgs is ResolveDeep over a substitution.
func (t *Table) ResolveDeepArgs(s Substitution, fallback func(v InferVar, kind VarKind) *Ty) Substitution {
	return s.FoldWith(t.deepFolder(fallback), 0)
}

func (t *Table) deepFolder(fallback func(v InferVar, kind VarKind) *Ty) *Folder {
	f := &Folder{}
	f.Ty = func(x *Ty, depth uint32) *Ty {
		if x.Kind != KindInferVar {
			return nil
		}
		r := t.Resolve(x)
		if r.Kind == KindInferVar {
			if fallback != nil {
				return fallback(r.Var, t.vars[r.Var].kind)
			}
			return r
		}
		return r.FoldWith(f, depth)
	}
	return f
}

// DefaultFallback resolves leftover integer variables to i32, float variables
// to f64 and everything else to the error type.
func DefaultFallback(_ InferVar, kind VarKind) *Ty {
	switch kind {
	case VarInt:
		return MakeScalar(ScalarI32)
	case VarFloat:
		return MakeScalar(ScalarF64)
	default:
		return Error()
	}
}

// Unify makes a and b equal, binding variables as needed. On failure the
// table is left as it was.
func (t *Table) Unify(a, b *Ty) bool {
	s := t.Snapshot()
	if t.unify(a, b) {
		return true
	}
	t.Rollback(s)
	return false
}

// UnifyArgs unifies two substitutions element-wise.
func (t *Table) UnifyArgs(a, b Substitution) bool {
	s := t.Snapshot()
	if t.unifyArgs(a, b) {
		return true
	}
	t.Rollback(s)
	return false
}

// UnifyTraitRefs unifies two trait references.
func (t *Table) UnifyTraitRefs(a, b TraitRef) bool {
	return a.Trait == b.Trait && t.UnifyArgs(a.Args, b.Args)
}

func (t *Table) bind(v InferVar, ty *Ty) bool {
	slot := t.vars[v]
	if ty.Kind == KindInferVar {
		if ty.Var == v {
			return true
		}
		other := t.vars[ty.Var]
		switch {
		case slot.kind == other.kind:
		case slot.kind == VarGeneral:
		case other.kind == VarGeneral:
			// Bind the general variable to the restricted one instead.
			return t.bind(ty.Var, MakeVar(v))
		default:
			return false
		}
	} else {
		switch slot.kind {
		case VarInt:
			if ty.Kind != KindScalar || !ty.Scalar.IsInt() {
				return ty.Kind == KindError
			}
		case VarFloat:
			if ty.Kind != KindScalar || !ty.Scalar.IsFloat() {
				return ty.Kind == KindError
			}
		}
		if t.occurs(v, ty) {
			return false
		}
	}
	t.undo = append(t.undo, undoEntry{v: v, kind: slot.kind})
	t.vars[v].value = ty
	return true
}

func (t *Table) occurs(v InferVar, ty *Ty) bool {
	found := false
	ty.Visit(func(x *Ty) bool {
		if x.Kind == KindInferVar {
			if r := t.Resolve(x); r.Kind == KindInferVar {
				if r.Var == v {
					found = true
				}
			} else if t.occurs(v, r) {
				found = true
			}
		}
		return !found
	})
	return found
}

func (t *Table) unify(a, b *Ty) bool {
	a, b = t.Resolve(a), t.Resolve(b)
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	if a.Kind == KindError || b.Kind == KindError {
		return true
	}
	if a.Kind == KindInferVar {
		return t.bind(a.Var, b)
	}
	if b.Kind == KindInferVar {
		return t.bind(b.Var, a)
	}
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindNever, KindStr:
		return true
	case KindScalar:
		return a.Scalar == b.Scalar
	case KindTuple, KindFnPtr:
		if len(a.Elems) != len(b.Elems) {
			return false
		}
		for i := range a.Elems {
			if !t.unify(a.Elems[i], b.Elems[i]) {
				return false
			}
		}
		return true
	case KindAdt, KindAlias:
		return a.Def == b.Def && t.unifyArgs(a.Args, b.Args)
	case KindRef:
		return a.Mut == b.Mut && t.unify(a.Elem, b.Elem)
	case KindSlice:
		return t.unify(a.Elem, b.Elem)
	case KindArray:
		return unifyConst(a.Len, b.Len) && t.unify(a.Elem, b.Elem)
	case KindFnDef:
		return a.FnDef == b.FnDef && t.unifyArgs(a.Args, b.Args)
	case KindPlaceholder:
		return a.Param == b.Param
	case KindBoundVar:
		return a.Bound == b.Bound
	case KindOpaque:
		return a.Opaque == b.Opaque && t.unifyArgs(a.Args, b.Args)
	case KindClosure:
		return a.Closure == b.Closure
	default:
		return false
	}
}

func (t *Table) unifyArgs(a, b Substitution) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		switch {
		case a[i].Ty != nil && b[i].Ty != nil:
			if !t.unify(a[i].Ty, b[i].Ty) {
				return false
			}
		case a[i].Const != nil && b[i].Const != nil:
			if !unifyConst(a[i].Const, b[i].Const) {
				return false
			}
		case a[i].Ty == nil && a[i].Const == nil, b[i].Ty == nil && b[i].Const == nil:
		default:
			return false
		}
	}
	return true
}

// unifyConst treats unknown consts as compatible with anything.
func unifyConst(a, b *Const) bool {
	if a == nil || b == nil || a.Kind == ConstUnknown || b.Kind == ConstUnknown {
		return true
	}
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case ConstKnown:
		return a.Value == b.Value
	case ConstParam:
		return a.Param == b.Param
	default:
		return a.Bound == b.Bound
	}
}

// Instantiate replaces the binder's parameters with fresh general variables
// (or unknown consts) and returns the value with the substitution used.
func Instantiate[T Foldable[T]](t *Table, b Binders[T], kinds []ParamKind) (T, Substitution) {
	args := t.FreshSubst(kinds)
	return b.Substitute(args), args
}

// FreshSubst returns one fresh variable per type parameter; const
// parameters receive unknown consts.
func (t *Table) FreshSubst(kinds []ParamKind) Substitution {
	args := make(Substitution, len(kinds))
	for i, k := range kinds {
		if k == ParamConst {
			args[i] = ConstArg(UnknownConst())
		} else {
			args[i] = TyArg(t.NewVar(VarGeneral))
		}
	}
	return args
}
