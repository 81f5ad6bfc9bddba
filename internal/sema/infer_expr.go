package sema

import (
	"strconv"

	"tyinc/internal/hir"
	"tyinc/internal/types"
)

// maxAutoderef bounds autoderef chains in field access and method lookup.
const maxAutoderef = 8

// inferExpr infers the type of an expression. expected is a hint and may be
// nil; callers coerce the result when the type is required.
func (ic *inferCtx) inferExpr(id hir.ExprID, expected *types.Ty) *types.Ty {
	ic.rt.CheckCancelled()
	t := ic.inferExprInner(id, expected)
	if t == nil {
		t = types.Error()
	}
	if id.IsValid() && int(id) < len(ic.exprs) {
		ic.exprs[id] = t
	}
	return t
}

func (ic *inferCtx) inferExprInner(id hir.ExprID, expected *types.Ty) *types.Ty {
	expr := ic.body.Expr(id)
	switch data := expr.Data.(type) {
	case hir.LiteralData:
		return ic.inferLiteral(data)
	case hir.PathData:
		return ic.inferPath(id, data)
	case hir.CallData:
		return ic.inferCall(id, data)
	case hir.MethodCallData:
		return ic.inferMethodCall(id, data)
	case hir.FieldAccessData:
		return ic.inferField(id, data)
	case hir.StructLitData:
		return ic.inferStructLit(id, data, expected)
	case hir.ElementsData:
		if expr.Kind == hir.ExprArray {
			return ic.inferArray(data, expected)
		}
		return ic.inferTuple(data, expected)
	case hir.RefData:
		var hint *types.Ty
		if e := ic.resolveHint(expected); e != nil && e.Kind == types.KindRef {
			hint = e.Elem
		}
		return types.MakeRef(ic.inferExpr(data.Expr, hint), data.Mut, types.Lifetime{})
	case hir.UnaryData:
		if expr.Kind == hir.ExprDeref {
			return ic.inferDeref(id, data)
		}
		return ic.inferUnary(id, data, expected)
	case hir.BinaryData:
		return ic.inferBinary(id, data)
	case hir.IfData:
		return ic.inferIf(data, expected)
	case hir.BlockData:
		return ic.inferBlock(data, expected)
	case hir.ReturnData:
		ret := ic.returns[len(ic.returns)-1]
		if data.Expr.IsValid() {
			ic.coerce(data.Expr, ic.inferExpr(data.Expr, ret), ret)
		} else {
			ic.coerce(id, types.Unit(), ret)
		}
		return types.Never()
	case hir.ClosureData:
		return ic.inferClosure(id, data, expected)
	case hir.IndexData:
		return ic.inferIndex(id, data)
	default:
		return types.Error()
	}
}

func (ic *inferCtx) resolveHint(t *types.Ty) *types.Ty {
	if t == nil {
		return nil
	}
	return ic.resolve(t)
}

// Literals and paths -------------------------------------------------------------

func (ic *inferCtx) inferLiteral(lit hir.LiteralData) *types.Ty {
	switch lit.Kind {
	case hir.LiteralInt, hir.LiteralFloat:
		if s, ok := types.ParseScalar(lit.Suffix); ok {
			return types.MakeScalar(s)
		}
		if lit.Kind == hir.LiteralFloat {
			return ic.tab.NewVar(types.VarFloat)
		}
		return ic.tab.NewVar(types.VarInt)
	case hir.LiteralBool:
		return types.Bool()
	case hir.LiteralChar:
		return types.MakeScalar(types.ScalarChar)
	case hir.LiteralString:
		return types.MakeRef(types.Str(), false, types.Lifetime{Kind: types.LifetimeStatic})
	default:
		return types.Error()
	}
}

func (ic *inferCtx) inferPath(id hir.ExprID, p hir.PathData) *types.Ty {
	switch p.Kind {
	case hir.PathLocal:
		if int(p.Local) < len(ic.pats) && ic.pats[p.Local] != nil {
			return ic.pats[p.Local]
		}
		return types.Error()
	case hir.PathValue:
		vt := ic.db.valueTy.Get(ic.rt, p.Value)
		args := ic.instantiateArgs(p.Value.Def, nil, p.Generic)
		if vt.Len != len(args) {
			return types.Error()
		}
		ic.registerPredicates(p.Value.Def, args, id)
		return ic.normalize(vt.Substitute(args), id)
	case hir.PathAssoc:
		self := ic.lowerTy(p.SelfTy)
		res, ok := ic.lookupAssocFn(id, self, p.Name, p.Generic)
		if !ok {
			ic.report(Diagnostic{Kind: DiagUnresolvedAssoc, Expr: id, Name: p.Name, Actual: self})
			return types.Error()
		}
		ic.result.Methods[id] = res
		callable := hir.CallableDefID{Kind: hir.CallableFunction, Def: res.Func.Def()}
		return types.MakeFnDef(ic.db.callables.Intern(callable), res.Subst)
	default:
		return types.Error()
	}
}

// Calls --------------------------------------------------------------------------

// callSig returns the parameter and return types of a callable type.
func (ic *inferCtx) callSig(expr hir.ExprID, callee *types.Ty) (types.FnSig, bool) {
	switch callee.Kind {
	case types.KindFnDef:
		callable := ic.db.callables.Lookup(callee.FnDef)
		sig := ic.db.callableItemSignature.Get(ic.rt, callable)
		if sig.Len != len(callee.Args) {
			return types.FnSig{}, false
		}
		inst := sig.Substitute(callee.Args)
		params := make([]*types.Ty, len(inst.Params))
		for i, p := range inst.Params {
			params[i] = ic.normalize(p, expr)
		}
		return types.FnSig{Params: params, Ret: ic.normalize(inst.Ret, expr)}, true
	case types.KindFnPtr:
		return types.FnSig{Params: callee.FnPtrParams(), Ret: callee.FnPtrRet()}, true
	case types.KindClosure:
		sig, ok := ic.closureSigs[callee.Closure]
		return sig, ok
	default:
		return types.FnSig{}, false
	}
}

func (ic *inferCtx) inferCall(id hir.ExprID, c hir.CallData) *types.Ty {
	callee := ic.resolve(ic.inferExpr(c.Callee, nil))
	if callee.Kind == types.KindInferVar {
		params := make([]*types.Ty, len(c.Args))
		for i := range params {
			params[i] = ic.newVar()
		}
		ptr := types.MakeFnPtr(params, ic.newVar())
		ic.tab.Unify(callee, ptr)
		callee = ptr
	}
	if callee.IsError() {
		ic.checkArgs(id, nil, c.Args, false)
		return types.Error()
	}
	sig, ok := ic.callSig(id, callee)
	if !ok {
		ic.report(Diagnostic{Kind: DiagNotCallable, Expr: c.Callee, Actual: callee})
		ic.checkArgs(id, nil, c.Args, false)
		return types.Error()
	}
	ic.checkArgs(id, sig.Params, c.Args, true)
	return sig.Ret
}

// checkArgs infers the arguments against params. When strict is set a
// count mismatch is reported.
func (ic *inferCtx) checkArgs(id hir.ExprID, params []*types.Ty, args []hir.ExprID, strict bool) {
	if strict && len(params) != len(args) {
		ic.report(Diagnostic{Kind: DiagArgCountMismatch, Expr: id, Want: len(params), Got: len(args)})
	}
	for i, a := range args {
		if i >= len(params) {
			ic.inferExpr(a, nil)
			continue
		}
		ic.coerce(a, ic.inferExpr(a, params[i]), params[i])
	}
}

func (ic *inferCtx) inferMethodCall(id hir.ExprID, m hir.MethodCallData) *types.Ty {
	recv := ic.inferExpr(m.Receiver, nil)
	res, sig, ok := ic.lookupMethod(id, m.Receiver, recv, m.Method, m.Generic)
	if !ok {
		ic.report(Diagnostic{Kind: DiagUnresolvedMethod, Expr: id, Name: m.Method, Actual: recv})
		ic.checkArgs(id, nil, m.Args, false)
		return types.Error()
	}
	ic.result.Methods[id] = res
	ic.checkArgs(id, sig.Params[1:], m.Args, true)
	return sig.Ret
}

// Places -------------------------------------------------------------------------

func (ic *inferCtx) inferField(id hir.ExprID, f hir.FieldAccessData) *types.Ty {
	base := ic.inferExpr(f.Base, nil)
	t := ic.resolve(base)
	for range maxAutoderef {
		switch t.Kind {
		case types.KindTuple:
			if i, err := strconv.Atoi(f.Name); err == nil && i >= 0 && i < len(t.Elems) {
				ic.result.Fields[id] = FieldResolution{Tuple: true, Index: i}
				return t.Elems[i]
			}
		case types.KindAdt:
			adt := hir.AdtID(t.Def)
			info := ic.db.adtData.Get(ic.rt, adt)
			if info == nil || info.Enum {
				break
			}
			v, _ := info.Variant(0)
			if i, ok := v.Field(f.Name); ok {
				variant := hir.VariantID{Adt: adt}
				fields := ic.db.fieldTypes.Get(ic.rt, variant)
				if i >= len(fields) || fields[i].Len != len(t.Args) {
					return types.Error()
				}
				ic.result.Fields[id] = FieldResolution{Variant: variant, Index: i}
				return ic.normalize(fields[i].Substitute(t.Args), id)
			}
		case types.KindRef:
			t = ic.resolve(t.Elem)
			continue
		case types.KindError, types.KindInferVar:
			return types.Error()
		}
		break
	}
	ic.report(Diagnostic{Kind: DiagUnresolvedField, Expr: id, Name: f.Name, Actual: base})
	return types.Error()
}

func (ic *inferCtx) inferDeref(id hir.ExprID, u hir.UnaryData) *types.Ty {
	inner := ic.resolve(ic.inferExpr(u.Expr, nil))
	switch inner.Kind {
	case types.KindRef:
		return inner.Elem
	case types.KindError:
		return types.Error()
	default:
		elem := ic.newVar()
		ic.coerce(u.Expr, inner, types.MakeRef(elem, false, types.Lifetime{}))
		return elem
	}
}

func (ic *inferCtx) inferIndex(id hir.ExprID, x hir.IndexData) *types.Ty {
	base := ic.inferExpr(x.Base, nil)
	idx := ic.inferExpr(x.Index, types.MakeScalar(types.ScalarUsize))
	ic.coerce(x.Index, idx, types.MakeScalar(types.ScalarUsize))
	t := ic.resolve(base)
	for range maxAutoderef {
		switch t.Kind {
		case types.KindArray, types.KindSlice:
			return t.Elem
		case types.KindRef:
			t = ic.resolve(t.Elem)
			continue
		case types.KindError, types.KindInferVar:
			return types.Error()
		}
		break
	}
	ic.report(Diagnostic{Kind: DiagUnresolvedMethod, Expr: id, Name: "index", Actual: base})
	return types.Error()
}

// Aggregates ---------------------------------------------------------------------

func (ic *inferCtx) inferStructLit(id hir.ExprID, s hir.StructLitData, expected *types.Ty) *types.Ty {
	def := s.Variant.Adt.Def()
	info := ic.db.adtData.Get(ic.rt, s.Variant.Adt)
	v, ok := info.Variant(s.Variant.Index)
	if !ok {
		for _, f := range s.Fields {
			ic.inferExpr(f.Value, nil)
		}
		return types.Error()
	}
	args := ic.instantiateArgs(def, nil, nil)
	adt := types.MakeAdt(def, args)
	if expected != nil {
		ic.tab.Unify(adt, expected)
	}
	ic.registerPredicates(def, args, id)
	fields := ic.db.fieldTypes.Get(ic.rt, s.Variant)
	for _, f := range s.Fields {
		i, ok := v.Field(f.Name)
		if !ok || i >= len(fields) || fields[i].Len != len(args) {
			ic.report(Diagnostic{Kind: DiagUnresolvedField, Expr: f.Value, Name: f.Name, Actual: adt})
			ic.inferExpr(f.Value, nil)
			continue
		}
		ft := ic.normalize(fields[i].Substitute(args), f.Value)
		ic.coerce(f.Value, ic.inferExpr(f.Value, ft), ft)
	}
	return adt
}

func (ic *inferCtx) inferTuple(e hir.ElementsData, expected *types.Ty) *types.Ty {
	hint := ic.resolveHint(expected)
	elems := make([]*types.Ty, len(e.Elems))
	for i, x := range e.Elems {
		var h *types.Ty
		if hint != nil && hint.Kind == types.KindTuple && len(hint.Elems) == len(e.Elems) {
			h = hint.Elems[i]
		}
		elems[i] = ic.inferExpr(x, h)
	}
	return types.MakeTuple(elems...)
}

func (ic *inferCtx) inferArray(e hir.ElementsData, expected *types.Ty) *types.Ty {
	var elem *types.Ty
	if hint := ic.resolveHint(expected); hint != nil && (hint.Kind == types.KindArray || hint.Kind == types.KindSlice) {
		elem = hint.Elem
	} else {
		elem = ic.newVar()
	}
	for _, x := range e.Elems {
		ic.coerce(x, ic.inferExpr(x, elem), elem)
	}
	return types.MakeArray(elem, types.KnownConst(uint64(len(e.Elems))))
}

// Operators ----------------------------------------------------------------------

func (ic *inferCtx) inferUnary(id hir.ExprID, u hir.UnaryData, expected *types.Ty) *types.Ty {
	t := ic.inferExpr(u.Expr, expected)
	r := ic.resolve(t)
	switch {
	case r.Kind == types.KindInferVar || r.IsError():
		return t
	case u.Op == hir.UnaryNot && r.Kind == types.KindScalar && (r.Scalar == types.ScalarBool || r.Scalar.IsInt()):
		return t
	case u.Op == hir.UnaryNeg && r.Kind == types.KindScalar && (r.Scalar.IsSigned() || r.Scalar.IsFloat()):
		return t
	}
	ic.report(Diagnostic{Kind: DiagUnresolvedMethod, Expr: id, Name: unaryMethod(u.Op), Actual: t})
	return types.Error()
}

func unaryMethod(op hir.UnaryOp) string {
	if op == hir.UnaryNot {
		return "not"
	}
	return "neg"
}

func (ic *inferCtx) inferBinary(id hir.ExprID, b hir.BinaryData) *types.Ty {
	switch {
	case b.Op.IsLogical():
		ic.coerce(b.Left, ic.inferExpr(b.Left, types.Bool()), types.Bool())
		ic.coerce(b.Right, ic.inferExpr(b.Right, types.Bool()), types.Bool())
		return types.Bool()
	case b.Op == hir.BinAssign:
		lhs := ic.inferExpr(b.Left, nil)
		ic.coerce(b.Right, ic.inferExpr(b.Right, lhs), lhs)
		return types.Unit()
	}
	lhs := ic.inferExpr(b.Left, nil)
	ic.coerce(b.Right, ic.inferExpr(b.Right, lhs), lhs)
	if b.Op.IsComparison() {
		return types.Bool()
	}
	r := ic.resolve(lhs)
	switch {
	case r.Kind == types.KindInferVar || r.IsError():
	case r.Kind == types.KindScalar && (r.Scalar.IsInt() || r.Scalar.IsFloat()):
	default:
		ic.report(Diagnostic{Kind: DiagUnresolvedMethod, Expr: id, Name: b.Op.String(), Actual: lhs})
		return types.Error()
	}
	return lhs
}

// Control flow -------------------------------------------------------------------

func (ic *inferCtx) inferIf(x hir.IfData, expected *types.Ty) *types.Ty {
	ic.coerce(x.Cond, ic.inferExpr(x.Cond, types.Bool()), types.Bool())
	then := ic.inferExpr(x.Then, expected)
	if !x.Else.IsValid() {
		ic.coerce(x.Then, then, types.Unit())
		return types.Unit()
	}
	hint := expected
	if hint == nil {
		hint = then
	}
	els := ic.inferExpr(x.Else, hint)
	if ic.resolve(then).IsNever() {
		return els
	}
	ic.coerce(x.Else, els, then)
	return then
}

func (ic *inferCtx) inferBlock(b hir.BlockData, expected *types.Ty) *types.Ty {
	saved := ic.block
	if b.Block.IsValid() {
		ic.block = b.Block
	}
	defer func() { ic.block = saved }()

	diverges := false
	for _, st := range b.Stmts {
		switch st.Kind {
		case hir.StmtLet:
			declared := ic.lowerTy(st.Type)
			if st.Expr.IsValid() {
				t := ic.inferExpr(st.Expr, declared)
				ic.coerce(st.Expr, t, declared)
				if ic.resolve(t).IsNever() {
					diverges = true
				}
			}
			ic.bindPat(st.Pat, declared)
		case hir.StmtExpr:
			if ic.resolve(ic.inferExpr(st.Expr, nil)).IsNever() {
				diverges = true
			}
		}
	}
	if b.Tail.IsValid() {
		return ic.inferExpr(b.Tail, expected)
	}
	if diverges {
		return types.Never()
	}
	return types.Unit()
}

func (ic *inferCtx) inferClosure(id hir.ExprID, c hir.ClosureData, expected *types.Ty) *types.Ty {
	hint := ic.resolveHint(expected)
	if hint != nil && hint.Kind != types.KindFnPtr {
		hint = nil
	}
	params := make([]*types.Ty, len(c.Params))
	for i, pat := range c.Params {
		var ref *hir.TypeRef
		if i < len(c.ParamTys) {
			ref = c.ParamTys[i]
		}
		params[i] = ic.lowerTy(ref)
		if hint != nil && len(hint.FnPtrParams()) == len(params) {
			ic.tab.Unify(params[i], hint.FnPtrParams()[i])
		}
		ic.bindPat(pat, params[i])
	}
	ret := ic.lowerTy(c.Ret)
	if hint != nil {
		ic.tab.Unify(ret, hint.FnPtrRet())
	}
	closure := ic.db.closures.Intern(hir.ClosureLoc{Owner: ic.owner, Expr: id})
	ic.closureSigs[closure] = types.FnSig{Params: params, Ret: ret}

	ic.returns = append(ic.returns, ret)
	ic.coerce(c.Body, ic.inferExpr(c.Body, ret), ret)
	ic.returns = ic.returns[:len(ic.returns)-1]
	return types.MakeClosure(closure, ic.lowerer.identity())
}

// Coercion -----------------------------------------------------------------------

// coerce makes actual usable where expected is required and reports a
// mismatch otherwise. Beyond unification it allows `!` to any type,
// `&mut T` to `&T`, and fn items and closures to fn pointers.
func (ic *inferCtx) coerce(expr hir.ExprID, actual, expected *types.Ty) bool {
	if expected == nil {
		return true
	}
	a, e := ic.resolve(actual), ic.resolve(expected)
	switch {
	case a.IsNever():
		return true
	case a.Kind == types.KindRef && e.Kind == types.KindRef && a.Mut && !e.Mut:
		if ic.tab.Unify(a.Elem, e.Elem) {
			return true
		}
	case e.Kind == types.KindFnPtr && (a.Kind == types.KindFnDef || a.Kind == types.KindClosure):
		if sig, ok := ic.callSig(expr, a); ok && ic.tab.Unify(types.MakeFnPtr(sig.Params, sig.Ret), e) {
			return true
		}
	default:
		if ic.tab.Unify(a, e) {
			return true
		}
	}
	ic.mismatch(expr, e, a)
	return false
}
