package sema

import (
	"fmt"
	"math/big"

	"tyinc/internal/hir"
	"tyinc/internal/query"
	"tyinc/internal/types"
)

// ConstEvalErrorKind classifies const evaluation failures.
type ConstEvalErrorKind uint8

const (
	// ConstEvalCycle is a const whose value depends on itself.
	ConstEvalCycle ConstEvalErrorKind = iota
	// ConstEvalMismatchedType is a value that does not fit the declared type.
	ConstEvalMismatchedType
	// ConstEvalPanic is an evaluation that panicked (overflow, division by zero).
	ConstEvalPanic
	// ConstEvalMissingBody is a const without an initializer.
	ConstEvalMissingBody
	// ConstEvalUnsupported is an expression the evaluator does not handle.
	ConstEvalUnsupported
)

func (k ConstEvalErrorKind) String() string {
	switch k {
	case ConstEvalCycle:
		return "cycle"
	case ConstEvalMismatchedType:
		return "mismatched type"
	case ConstEvalPanic:
		return "panic"
	case ConstEvalMissingBody:
		return "missing body"
	default:
		return "unsupported"
	}
}

// ConstEvalError describes why a const has no value.
type ConstEvalError struct {
	Kind    ConstEvalErrorKind
	Message string
}

func (e *ConstEvalError) Error() string {
	if e.Message == "" {
		return "const eval: " + e.Kind.String()
	}
	return fmt.Sprintf("const eval: %s: %s", e.Kind, e.Message)
}

func evalErr(kind ConstEvalErrorKind, format string, args ...any) *ConstEvalError {
	return &ConstEvalError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// ConstValue is an evaluated bool or integer.
type ConstValue struct {
	Scalar types.Scalar
	Bool   bool
	Int    *big.Int
}

func (v ConstValue) String() string {
	if v.Int != nil {
		return v.Int.String() + v.Scalar.String()
	}
	return fmt.Sprint(v.Bool)
}

// ConstEvalResult is the outcome of const_eval: a value or an error.
type ConstEvalResult struct {
	Value ConstValue
	Err   *ConstEvalError
}

// Uint64 returns the value as an array length.
func (r ConstEvalResult) Uint64() (uint64, bool) {
	if r.Err != nil || r.Value.Int == nil || r.Value.Int.Sign() < 0 || !r.Value.Int.IsUint64() {
		return 0, false
	}
	return r.Value.Int.Uint64(), true
}

// Equal compares results by value.
func (r ConstEvalResult) Equal(o ConstEvalResult) bool {
	if (r.Err == nil) != (o.Err == nil) {
		return false
	}
	if r.Err != nil {
		return *r.Err == *o.Err
	}
	a, b := r.Value, o.Value
	if a.Scalar != b.Scalar || a.Bool != b.Bool || (a.Int == nil) != (b.Int == nil) {
		return false
	}
	return a.Int == nil || a.Int.Cmp(b.Int) == 0
}

func (db *Database) constEvalQuery(rt *query.Runtime, c hir.ConstID) ConstEvalResult {
	body := db.body(rt, c.Def())
	if body == nil || !body.Root.IsValid() {
		return ConstEvalResult{Err: evalErr(ConstEvalMissingBody, "%s has no initializer", c)}
	}
	declared := db.valueTy.Get(rt, hir.ValueTyDefID{Kind: hir.ValueConst, Def: c.Def()}).SkipBinders()
	want := types.ScalarNone
	if declared.Kind == types.KindScalar {
		want = declared.Scalar
	}
	ev := &constEvaluator{db: db, rt: rt, body: body}
	v, err := ev.eval(body.Root, want)
	if err != nil {
		return ConstEvalResult{Err: err}
	}
	if declared.IsError() {
		return ConstEvalResult{Value: v}
	}
	if declared.Kind != types.KindScalar || (declared.Scalar == types.ScalarBool) != (v.Int == nil) {
		return ConstEvalResult{Err: evalErr(ConstEvalMismatchedType, "expected %s, found %s", types.Display(declared, nil), v)}
	}
	if v.Int != nil {
		if v.Scalar != declared.Scalar {
			return ConstEvalResult{Err: evalErr(ConstEvalMismatchedType, "expected %s, found %s", declared.Scalar, v.Scalar)}
		}
		if !fits(v.Int, declared.Scalar) {
			return ConstEvalResult{Err: evalErr(ConstEvalPanic, "%s overflows %s", v.Int, declared.Scalar)}
		}
	}
	return ConstEvalResult{Value: v}
}

func (db *Database) constEvalRecover(_ *query.Runtime, cycle []query.Participant, c hir.ConstID) ConstEvalResult {
	return ConstEvalResult{Err: evalErr(ConstEvalCycle, "%s depends on itself through %d evaluations", c, len(cycle))}
}

// constEvaluator interprets the integer and bool subset of const bodies.
type constEvaluator struct {
	db   *Database
	rt   *query.Runtime
	body *hir.Body
}

func (e *constEvaluator) eval(id hir.ExprID, want types.Scalar) (ConstValue, *ConstEvalError) {
	expr := e.body.Expr(id)
	switch expr.Kind {
	case hir.ExprLiteral:
		lit := expr.Data.(hir.LiteralData)
		switch lit.Kind {
		case hir.LiteralBool:
			return ConstValue{Scalar: types.ScalarBool, Bool: lit.Bool}, nil
		case hir.LiteralInt:
			s := want
			if suffix, ok := types.ParseScalar(lit.Suffix); ok {
				s = suffix
			}
			if !s.IsInt() {
				s = types.ScalarI32
			}
			return ConstValue{Scalar: s, Int: new(big.Int).SetUint64(lit.Int)}, nil
		}
		return ConstValue{}, evalErr(ConstEvalUnsupported, "%s literal", expr.Kind)
	case hir.ExprPath:
		path := expr.Data.(hir.PathData)
		if path.Kind != hir.PathValue || path.Value.Kind != hir.ValueConst {
			return ConstValue{}, evalErr(ConstEvalUnsupported, "path is not a const")
		}
		r := e.db.constEval.Get(e.rt, hir.ConstID(path.Value.Def))
		return r.Value, r.Err
	case hir.ExprBlock:
		block := expr.Data.(hir.BlockData)
		if len(block.Stmts) > 0 || !block.Tail.IsValid() {
			return ConstValue{}, evalErr(ConstEvalUnsupported, "block with statements")
		}
		return e.eval(block.Tail, want)
	case hir.ExprUnary:
		return e.unary(expr.Data.(hir.UnaryData), want)
	case hir.ExprBinary:
		return e.binary(expr.Data.(hir.BinaryData), want)
	default:
		return ConstValue{}, evalErr(ConstEvalUnsupported, "%s expression", expr.Kind)
	}
}

func (e *constEvaluator) unary(u hir.UnaryData, want types.Scalar) (ConstValue, *ConstEvalError) {
	v, err := e.eval(u.Expr, want)
	if err != nil {
		return v, err
	}
	switch {
	case u.Op == hir.UnaryNot && v.Int == nil:
		return ConstValue{Scalar: types.ScalarBool, Bool: !v.Bool}, nil
	case u.Op == hir.UnaryNeg && v.Int != nil && v.Scalar.IsSigned():
		r := new(big.Int).Neg(v.Int)
		if !fits(r, v.Scalar) {
			return ConstValue{}, evalErr(ConstEvalPanic, "attempt to negate with overflow")
		}
		return ConstValue{Scalar: v.Scalar, Int: r}, nil
	case u.Op == hir.UnaryNot && v.Int != nil:
		r := new(big.Int).Not(v.Int)
		if !v.Scalar.IsSigned() {
			r.And(r, maxUnsigned(v.Scalar))
		}
		return ConstValue{Scalar: v.Scalar, Int: r}, nil
	}
	return ConstValue{}, evalErr(ConstEvalMismatchedType, "cannot apply unary operator to %s", v.Scalar)
}

func (e *constEvaluator) binary(b hir.BinaryData, want types.Scalar) (ConstValue, *ConstEvalError) {
	if b.Op.IsLogical() {
		want = types.ScalarBool
	} else if b.Op.IsComparison() {
		want = types.ScalarNone
	}
	l, err := e.eval(b.Left, want)
	if err != nil {
		return l, err
	}
	r, err := e.eval(b.Right, l.Scalar)
	if err != nil {
		return r, err
	}
	if l.Scalar != r.Scalar {
		return ConstValue{}, evalErr(ConstEvalMismatchedType, "%s %s %s", l.Scalar, b.Op, r.Scalar)
	}
	if l.Int == nil {
		switch b.Op {
		case hir.BinAnd:
			return ConstValue{Scalar: types.ScalarBool, Bool: l.Bool && r.Bool}, nil
		case hir.BinOr:
			return ConstValue{Scalar: types.ScalarBool, Bool: l.Bool || r.Bool}, nil
		case hir.BinEq:
			return ConstValue{Scalar: types.ScalarBool, Bool: l.Bool == r.Bool}, nil
		case hir.BinNe:
			return ConstValue{Scalar: types.ScalarBool, Bool: l.Bool != r.Bool}, nil
		}
		return ConstValue{}, evalErr(ConstEvalMismatchedType, "cannot apply %s to bool", b.Op)
	}
	if b.Op.IsComparison() {
		c := l.Int.Cmp(r.Int)
		var res bool
		switch b.Op {
		case hir.BinEq:
			res = c == 0
		case hir.BinNe:
			res = c != 0
		case hir.BinLt:
			res = c < 0
		case hir.BinLe:
			res = c <= 0
		case hir.BinGt:
			res = c > 0
		default:
			res = c >= 0
		}
		return ConstValue{Scalar: types.ScalarBool, Bool: res}, nil
	}
	out := new(big.Int)
	switch b.Op {
	case hir.BinAdd:
		out.Add(l.Int, r.Int)
	case hir.BinSub:
		out.Sub(l.Int, r.Int)
	case hir.BinMul:
		out.Mul(l.Int, r.Int)
	case hir.BinDiv, hir.BinRem:
		if r.Int.Sign() == 0 {
			return ConstValue{}, evalErr(ConstEvalPanic, "attempt to divide by zero")
		}
		if b.Op == hir.BinDiv {
			out.Quo(l.Int, r.Int)
		} else {
			out.Rem(l.Int, r.Int)
		}
	default:
		return ConstValue{}, evalErr(ConstEvalMismatchedType, "cannot apply %s to integers", b.Op)
	}
	if !fits(out, l.Scalar) {
		return ConstValue{}, evalErr(ConstEvalPanic, "attempt to compute `%s %s %s` with overflow", l.Int, b.Op, r.Int)
	}
	return ConstValue{Scalar: l.Scalar, Int: out}, nil
}

func maxUnsigned(s types.Scalar) *big.Int {
	m := new(big.Int).Lsh(big.NewInt(1), uint(s.Bits()))
	return m.Sub(m, big.NewInt(1))
}

// fits reports whether v is representable in the integer scalar s.
func fits(v *big.Int, s types.Scalar) bool {
	bits := uint(s.Bits())
	if bits == 0 {
		return false
	}
	if !s.IsSigned() {
		return v.Sign() >= 0 && v.Cmp(maxUnsigned(s)) <= 0
	}
	limit := new(big.Int).Lsh(big.NewInt(1), bits-1)
	lo := new(big.Int).Neg(limit)
	hi := limit.Sub(limit, big.NewInt(1))
	return v.Cmp(lo) >= 0 && v.Cmp(hi) <= 0
}
