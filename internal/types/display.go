package types

import (
	"fmt"
	"strings"

	"tyinc/internal/hir"
)

// Namer supplies human-readable names for definitions and interned handles.
type Namer interface {
	DefName(def hir.DefID) string
	FnDefName(id FnDefID) string
	ParamName(id PlaceholderID) string
}

// Display renders t in surface syntax. A nil namer prints raw handles.
func Display(t *Ty, n Namer) string {
	var sb strings.Builder
	writeTy(&sb, t, n)
	return sb.String()
}

// DisplayTraitRef renders `Self: Trait<Args>`.
func DisplayTraitRef(r TraitRef, n Namer) string {
	var sb strings.Builder
	writeTy(&sb, r.SelfTy(), n)
	sb.WriteString(": ")
	sb.WriteString(defName(hir.DefID(r.Trait), n))
	if len(r.Args) > 1 {
		writeArgs(&sb, r.Args[1:], n)
	}
	return sb.String()
}

// DisplayArgs renders `<A, B>`, or nothing for an empty substitution.
func DisplayArgs(args Substitution, n Namer) string {
	var sb strings.Builder
	writeArgs(&sb, args, n)
	return sb.String()
}

// DisplayGoal renders a goal.
func DisplayGoal(g Goal, n Namer) string {
	if g.Kind == ClauseAliasEq {
		var sb strings.Builder
		writeTy(&sb, MakeAlias(g.AliasEq.Alias), n)
		sb.WriteString(" == ")
		writeTy(&sb, g.AliasEq.Ty, n)
		return sb.String()
	}
	return DisplayTraitRef(g.Trait, n)
}

func defName(def hir.DefID, n Namer) string {
	if n != nil {
		return n.DefName(def)
	}
	return def.String()
}

func writeArgs(sb *strings.Builder, args Substitution, n Namer) {
	if len(args) == 0 {
		return
	}
	sb.WriteByte('<')
	for i, a := range args {
		if i > 0 {
			sb.WriteString(", ")
		}
		if a.Const != nil {
			writeConst(sb, a.Const, n)
		} else {
			writeTy(sb, a.Ty, n)
		}
	}
	sb.WriteByte('>')
}

func writeConst(sb *strings.Builder, c *Const, n Namer) {
	switch c.Kind {
	case ConstKnown:
		fmt.Fprintf(sb, "%d", c.Value)
	case ConstParam:
		if n != nil {
			sb.WriteString(n.ParamName(c.Param))
		} else {
			fmt.Fprintf(sb, "P%d", c.Param)
		}
	case ConstBound:
		fmt.Fprintf(sb, "^%d.%d", c.Bound.Debruijn, c.Bound.Index)
	default:
		sb.WriteByte('_')
	}
}

func writeTy(sb *strings.Builder, t *Ty, n Namer) {
	if t == nil {
		sb.WriteString("{unknown}")
		return
	}
	switch t.Kind {
	case KindError:
		sb.WriteString("{unknown}")
	case KindNever:
		sb.WriteByte('!')
	case KindScalar:
		sb.WriteString(t.Scalar.String())
	case KindStr:
		sb.WriteString("str")
	case KindTuple:
		sb.WriteByte('(')
		for i, e := range t.Elems {
			if i > 0 {
				sb.WriteString(", ")
			}
			writeTy(sb, e, n)
		}
		if len(t.Elems) == 1 {
			sb.WriteByte(',')
		}
		sb.WriteByte(')')
	case KindAdt:
		sb.WriteString(defName(t.Def, n))
		writeArgs(sb, t.Args, n)
	case KindRef:
		sb.WriteByte('&')
		if t.Mut {
			sb.WriteString("mut ")
		}
		writeTy(sb, t.Elem, n)
	case KindArray:
		sb.WriteByte('[')
		writeTy(sb, t.Elem, n)
		sb.WriteString("; ")
		writeConst(sb, t.Len, n)
		sb.WriteByte(']')
	case KindSlice:
		sb.WriteByte('[')
		writeTy(sb, t.Elem, n)
		sb.WriteByte(']')
	case KindFnPtr:
		sb.WriteString("fn(")
		for i, p := range t.FnPtrParams() {
			if i > 0 {
				sb.WriteString(", ")
			}
			writeTy(sb, p, n)
		}
		sb.WriteByte(')')
		if ret := t.FnPtrRet(); !ret.IsUnit() {
			sb.WriteString(" -> ")
			writeTy(sb, ret, n)
		}
	case KindFnDef:
		if n != nil {
			sb.WriteString(n.FnDefName(t.FnDef))
		} else {
			fmt.Fprintf(sb, "fn#%d", t.FnDef)
		}
		writeArgs(sb, t.Args, n)
	case KindPlaceholder:
		if n != nil {
			sb.WriteString(n.ParamName(t.Param))
		} else {
			fmt.Fprintf(sb, "P%d", t.Param)
		}
	case KindBoundVar:
		fmt.Fprintf(sb, "^%d.%d", t.Bound.Debruijn, t.Bound.Index)
	case KindInferVar:
		fmt.Fprintf(sb, "?%d", t.Var)
	case KindAlias:
		sb.WriteByte('<')
		writeTy(sb, t.Args.Type(0), n)
		sb.WriteString(">::")
		sb.WriteString(defName(t.Def, n))
		if len(t.Args) > 1 {
			writeArgs(sb, t.Args[1:], n)
		}
	case KindOpaque:
		fmt.Fprintf(sb, "impl#%d", t.Opaque)
		writeArgs(sb, t.Args, n)
	case KindClosure:
		fmt.Fprintf(sb, "{closure#%d}", t.Closure)
	default:
		sb.WriteString(t.Kind.String())
	}
}
