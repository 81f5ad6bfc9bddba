package sema

import (
	"fmt"

	"tyinc/internal/hir"
	"tyinc/internal/types"
)

// DiagnosticKind enumerates the problems inference reports.
type DiagnosticKind uint8

const (
	DiagTypeMismatch DiagnosticKind = iota
	DiagUnresolvedMethod
	DiagUnresolvedField
	DiagArgCountMismatch
	DiagNotCallable
	DiagUnsatisfiedBound
	DiagUnresolvedAssoc
)

func (k DiagnosticKind) String() string {
	switch k {
	case DiagTypeMismatch:
		return "type-mismatch"
	case DiagUnresolvedMethod:
		return "unresolved-method"
	case DiagUnresolvedField:
		return "unresolved-field"
	case DiagArgCountMismatch:
		return "arg-count-mismatch"
	case DiagNotCallable:
		return "not-callable"
	case DiagUnsatisfiedBound:
		return "unsatisfied-bound"
	case DiagUnresolvedAssoc:
		return "unresolved-assoc-item"
	default:
		return "unknown"
	}
}

// Diagnostic is one inference problem, attached to an expression.
type Diagnostic struct {
	Kind     DiagnosticKind
	Expr     hir.ExprID
	Expected *types.Ty
	Actual   *types.Ty
	Name     string
	Want     int
	Got      int
	Bound    types.TraitRef
}

// Message renders the diagnostic; n names definitions and may be nil.
func (d Diagnostic) Message(n types.Namer) string {
	switch d.Kind {
	case DiagTypeMismatch:
		return fmt.Sprintf("expected %s, found %s", types.Display(d.Expected, n), types.Display(d.Actual, n))
	case DiagUnresolvedMethod:
		return fmt.Sprintf("no method named `%s` found for %s", d.Name, types.Display(d.Actual, n))
	case DiagUnresolvedField:
		return fmt.Sprintf("no field `%s` on %s", d.Name, types.Display(d.Actual, n))
	case DiagArgCountMismatch:
		return fmt.Sprintf("expected %d arguments, found %d", d.Want, d.Got)
	case DiagNotCallable:
		return fmt.Sprintf("%s is not callable", types.Display(d.Actual, n))
	case DiagUnsatisfiedBound:
		return fmt.Sprintf("the bound `%s` is not satisfied", types.DisplayTraitRef(d.Bound, n))
	case DiagUnresolvedAssoc:
		return fmt.Sprintf("no associated item named `%s` found for %s", d.Name, types.Display(d.Actual, n))
	default:
		return d.Kind.String()
	}
}

// MethodResolution is the function a method call or associated path
// resolved to, with the substitution for its generics.
type MethodResolution struct {
	Func  hir.FunctionID
	Subst types.Substitution
}

// FieldResolution is the field a field access resolved to. Tuple fields
// have no variant.
type FieldResolution struct {
	Variant hir.VariantID
	Tuple   bool
	Index   int
}

// InferenceResult holds the fully resolved types of one body.
type InferenceResult struct {
	ExprTypes   []*types.Ty
	PatTypes    []*types.Ty
	Methods     map[hir.ExprID]MethodResolution
	Fields      map[hir.ExprID]FieldResolution
	ClosureSigs map[types.ClosureID]types.FnSig
	Diagnostics []Diagnostic
	ReturnTy    *types.Ty
}

func newInferenceResult(body *hir.Body) *InferenceResult {
	r := &InferenceResult{
		Methods:     map[hir.ExprID]MethodResolution{},
		Fields:      map[hir.ExprID]FieldResolution{},
		ClosureSigs: map[types.ClosureID]types.FnSig{},
		ReturnTy:    types.Error(),
	}
	if body != nil {
		r.ExprTypes = make([]*types.Ty, len(body.Exprs))
		r.PatTypes = make([]*types.Ty, len(body.Pats))
	}
	return r
}

// TypeOfExpr returns the type of an expression, or the error type.
func (r *InferenceResult) TypeOfExpr(id hir.ExprID) *types.Ty {
	if r == nil || int(id) >= len(r.ExprTypes) || r.ExprTypes[id] == nil {
		return types.Error()
	}
	return r.ExprTypes[id]
}

// TypeOfPat returns the type of a pattern, or the error type.
func (r *InferenceResult) TypeOfPat(id hir.PatID) *types.Ty {
	if r == nil || int(id) >= len(r.PatTypes) || r.PatTypes[id] == nil {
		return types.Error()
	}
	return r.PatTypes[id]
}

// Method returns the resolution of a method call or associated path.
func (r *InferenceResult) Method(id hir.ExprID) (MethodResolution, bool) {
	m, ok := r.Methods[id]
	return m, ok
}

// Field returns the resolution of a field access.
func (r *InferenceResult) Field(id hir.ExprID) (FieldResolution, bool) {
	f, ok := r.Fields[id]
	return f, ok
}
