package project

import (
	"strconv"

	"tyinc/internal/hir"
)

type binding struct {
	name string
	pat  hir.PatID
}

// bodyParser builds a body arena from an expression snippet. Locals are a
// stack of bindings; blocks and closures pop what they pushed.
type bodyParser struct {
	*parser
	body   *hir.Body
	locals []binding
}

func (bp *bodyParser) add(kind hir.ExprKind, data hir.ExprData) hir.ExprID {
	return bp.body.AddExpr(hir.Expr{Kind: kind, Data: data})
}

func (bp *bodyParser) lookupLocal(name string) (hir.PatID, bool) {
	for i := len(bp.locals) - 1; i >= 0; i-- {
		if bp.locals[i].name == name {
			return bp.locals[i].pat, true
		}
	}
	return hir.NoPatID, false
}

// Patterns -------------------------------------------------------------------

// pattern parses `_`, `x`, `mut x` or a tuple of patterns. Bindings become
// visible once bind is called.
func (bp *bodyParser) pattern(binds *[]binding) hir.PatID {
	switch {
	case bp.accept("_"):
		return bp.body.AddPat(hir.Pat{Kind: hir.PatWild})
	case bp.accept("("):
		var elems []hir.PatID
		for bp.err == nil && !bp.is(")") {
			elems = append(elems, bp.pattern(binds))
			if !bp.accept(",") {
				break
			}
		}
		bp.expect(")")
		return bp.body.AddPat(hir.Pat{Kind: hir.PatTuple, Elems: elems})
	}
	mut := bp.accept("mut")
	name := bp.ident()
	id := bp.body.AddPat(hir.Pat{Kind: hir.PatBind, Name: name, Mut: mut})
	*binds = append(*binds, binding{name: name, pat: id})
	return id
}

func (bp *bodyParser) bind(binds []binding) { bp.locals = append(bp.locals, binds...) }

// Blocks and statements -------------------------------------------------------

func (bp *bodyParser) block() hir.ExprID {
	bp.expect("{")
	mark := len(bp.locals)
	var stmts []hir.Stmt
	tail := hir.NoExprID
	for bp.err == nil && !bp.is("}") {
		if bp.accept(";") {
			continue
		}
		if bp.accept("let") {
			stmts = append(stmts, bp.let())
			continue
		}
		e := bp.expr(false)
		switch {
		case bp.accept(";"):
			stmts = append(stmts, hir.Stmt{Kind: hir.StmtExpr, Expr: e})
		case bp.is("}"):
			tail = e
		case bp.blockLike(e):
			stmts = append(stmts, hir.Stmt{Kind: hir.StmtExpr, Expr: e})
		default:
			bp.failf("expected \";\" or \"}\", found %s", describe(bp.peek()))
		}
	}
	bp.expect("}")
	bp.locals = bp.locals[:mark]
	return bp.add(hir.ExprBlock, hir.BlockData{Stmts: stmts, Tail: tail})
}

func (bp *bodyParser) blockLike(e hir.ExprID) bool {
	k := bp.body.Expr(e).Kind
	return k == hir.ExprBlock || k == hir.ExprIf
}

func (bp *bodyParser) let() hir.Stmt {
	var binds []binding
	pat := bp.pattern(&binds)
	st := hir.Stmt{Kind: hir.StmtLet, Pat: pat, Expr: hir.NoExprID}
	if bp.accept(":") {
		t := bp.typeRef()
		st.Type = &t
	}
	if bp.accept("=") {
		st.Expr = bp.expr(false)
	}
	bp.expect(";")
	bp.bind(binds)
	return st
}

// Expressions ----------------------------------------------------------------

var binaryOps = []map[string]hir.BinaryOp{
	{"||": hir.BinOr},
	{"&&": hir.BinAnd},
	{"==": hir.BinEq, "!=": hir.BinNe, "<": hir.BinLt, "<=": hir.BinLe, ">": hir.BinGt, ">=": hir.BinGe},
	{"+": hir.BinAdd, "-": hir.BinSub},
	{"*": hir.BinMul, "/": hir.BinDiv, "%": hir.BinRem},
}

// expr parses an expression. noStruct forbids struct literals at the top
// level, as in the condition of an if.
func (bp *bodyParser) expr(noStruct bool) hir.ExprID {
	lhs := bp.binary(0, noStruct)
	if bp.is("=") {
		bp.next()
		rhs := bp.expr(noStruct)
		return bp.add(hir.ExprBinary, hir.BinaryData{Op: hir.BinAssign, Left: lhs, Right: rhs})
	}
	return lhs
}

func (bp *bodyParser) binary(level int, noStruct bool) hir.ExprID {
	if level == len(binaryOps) {
		return bp.unary(noStruct)
	}
	lhs := bp.binary(level+1, noStruct)
	for bp.err == nil {
		t := bp.peek()
		op, ok := binaryOps[level][t.Text]
		if t.Kind != tokPunct || !ok {
			return lhs
		}
		bp.next()
		rhs := bp.binary(level+1, noStruct)
		lhs = bp.add(hir.ExprBinary, hir.BinaryData{Op: op, Left: lhs, Right: rhs})
	}
	return lhs
}

func (bp *bodyParser) unary(noStruct bool) hir.ExprID {
	switch {
	case bp.accept("-"):
		return bp.add(hir.ExprUnary, hir.UnaryData{Op: hir.UnaryNeg, Expr: bp.unary(noStruct)})
	case bp.accept("!"):
		return bp.add(hir.ExprUnary, hir.UnaryData{Op: hir.UnaryNot, Expr: bp.unary(noStruct)})
	case bp.accept("*"):
		return bp.add(hir.ExprDeref, hir.UnaryData{Expr: bp.unary(noStruct)})
	case bp.accept("&&"):
		inner := bp.add(hir.ExprRef, hir.RefData{Mut: bp.accept("mut"), Expr: bp.unary(noStruct)})
		return bp.add(hir.ExprRef, hir.RefData{Expr: inner})
	case bp.accept("&"):
		mut := bp.accept("mut")
		return bp.add(hir.ExprRef, hir.RefData{Mut: mut, Expr: bp.unary(noStruct)})
	}
	return bp.postfix(bp.primary(noStruct))
}

func (bp *bodyParser) postfix(e hir.ExprID) hir.ExprID {
	for bp.err == nil {
		switch {
		case bp.accept("("):
			e = bp.add(hir.ExprCall, hir.CallData{Callee: e, Args: bp.args(")")})
		case bp.accept("["):
			idx := bp.expr(false)
			bp.expect("]")
			e = bp.add(hir.ExprIndex, hir.IndexData{Base: e, Index: idx})
		case bp.accept("."):
			t := bp.peek()
			if t.Kind == tokInt && t.Suffix == "" {
				bp.next()
				e = bp.add(hir.ExprField, hir.FieldAccessData{Base: e, Name: t.Text})
				continue
			}
			name := bp.ident()
			var generic []hir.TypeRef
			if bp.is("::") {
				bp.next()
				generic, _ = bp.genericArgs(false)
			}
			if bp.accept("(") {
				e = bp.add(hir.ExprMethodCall, hir.MethodCallData{Receiver: e, Method: name, Args: bp.args(")"), Generic: generic})
				continue
			}
			e = bp.add(hir.ExprField, hir.FieldAccessData{Base: e, Name: name})
		default:
			return e
		}
	}
	return e
}

// args parses comma-separated expressions up to close, whose opening
// delimiter was already consumed.
func (bp *bodyParser) args(close string) []hir.ExprID {
	var out []hir.ExprID
	for bp.err == nil && !bp.is(close) {
		out = append(out, bp.expr(false))
		if !bp.accept(",") {
			break
		}
	}
	bp.expect(close)
	return out
}

func (bp *bodyParser) primary(noStruct bool) hir.ExprID {
	if bp.err != nil {
		return hir.NoExprID
	}
	t := bp.peek()
	switch t.Kind {
	case tokInt:
		bp.next()
		v, err := strconv.ParseUint(t.Text, 10, 64)
		if err != nil {
			bp.failf("integer literal %s out of range", t.Text)
		}
		return bp.add(hir.ExprLiteral, hir.LiteralData{Kind: hir.LiteralInt, Int: v, Suffix: t.Suffix})
	case tokFloat:
		bp.next()
		v, err := strconv.ParseFloat(t.Text, 64)
		if err != nil {
			bp.failf("invalid float literal %s", t.Text)
		}
		return bp.add(hir.ExprLiteral, hir.LiteralData{Kind: hir.LiteralFloat, Float: v, Suffix: t.Suffix})
	case tokChar:
		bp.next()
		return bp.add(hir.ExprLiteral, hir.LiteralData{Kind: hir.LiteralChar, Text: t.Text})
	case tokString:
		bp.next()
		return bp.add(hir.ExprLiteral, hir.LiteralData{Kind: hir.LiteralString, Text: t.Text})
	}
	switch {
	case bp.accept("true"):
		return bp.add(hir.ExprLiteral, hir.LiteralData{Kind: hir.LiteralBool, Bool: true})
	case bp.accept("false"):
		return bp.add(hir.ExprLiteral, hir.LiteralData{Kind: hir.LiteralBool})
	case bp.is("{"):
		return bp.block()
	case bp.accept("if"):
		return bp.ifExpr()
	case bp.accept("return"):
		val := hir.NoExprID
		if !bp.is(";") && !bp.is("}") && !bp.is(")") && !bp.is(",") && bp.peek().Kind != tokEOF {
			val = bp.expr(noStruct)
		}
		return bp.add(hir.ExprReturn, hir.ReturnData{Expr: val})
	case bp.is("|") || bp.is("||"):
		return bp.closure()
	case bp.accept("("):
		return bp.tupleElems()
	case bp.accept("["):
		return bp.add(hir.ExprArray, hir.ElementsData{Elems: bp.args("]")})
	case t.Kind == tokIdent:
		return bp.path(noStruct)
	}
	bp.failf("expected expression, found %s", describe(t))
	return hir.NoExprID
}

// tupleElems parses the rest of `(a)` or `(a, b)`. A single element without
// a trailing comma is a parenthesized expression.
func (bp *bodyParser) tupleElems() hir.ExprID {
	var elems []hir.ExprID
	trailing := false
	for bp.err == nil && !bp.is(")") {
		elems = append(elems, bp.expr(false))
		trailing = bp.accept(",")
		if !trailing {
			break
		}
	}
	if !bp.expect(")") {
		return hir.NoExprID
	}
	if len(elems) == 1 && !trailing {
		return elems[0]
	}
	return bp.add(hir.ExprTuple, hir.ElementsData{Elems: elems})
}

func (bp *bodyParser) ifExpr() hir.ExprID {
	cond := bp.expr(true)
	then := bp.block()
	els := hir.NoExprID
	if bp.accept("else") {
		if bp.accept("if") {
			els = bp.ifExpr()
		} else {
			els = bp.block()
		}
	}
	return bp.add(hir.ExprIf, hir.IfData{Cond: cond, Then: then, Else: els})
}

// closure parses `|a, b: T| -> R body`.
func (bp *bodyParser) closure() hir.ExprID {
	var data hir.ClosureData
	var binds []binding
	if !bp.accept("||") {
		bp.expect("|")
		for bp.err == nil && !bp.is("|") {
			data.Params = append(data.Params, bp.pattern(&binds))
			var ty *hir.TypeRef
			if bp.accept(":") {
				t := bp.typeRef()
				ty = &t
			}
			data.ParamTys = append(data.ParamTys, ty)
			if !bp.accept(",") {
				break
			}
		}
		bp.expect("|")
	}
	if bp.accept("->") {
		t := bp.typeRef()
		data.Ret = &t
	}
	mark := len(bp.locals)
	bp.bind(binds)
	data.Body = bp.expr(false)
	bp.locals = bp.locals[:mark]
	return bp.add(hir.ExprClosure, data)
}

// Paths ----------------------------------------------------------------------

// path parses a local, a value item, an enum variant, `Type::name` or a
// struct literal.
func (bp *bodyParser) path(noStruct bool) hir.ExprID {
	first := bp.ident()
	if pat, ok := bp.lookupLocal(first); ok && !bp.is("::") {
		return bp.add(hir.ExprPath, hir.PathData{Kind: hir.PathLocal, Local: pat})
	}

	if first == "Self" || bp.sc.isParam(first) || (builtinTypes[first] && bp.is("::")) {
		bp.pos--
		self := bp.pathType()
		return bp.assocPath(self)
	}

	def, ok := bp.valuePath(first)
	if !ok {
		return bp.add(hir.ExprPath, hir.PathData{Kind: hir.PathUnresolved, Name: first})
	}
	item := bp.sc.r.Items[def]
	var typeArgs []hir.TypeRef
	if bp.is("::") && bp.peekAt(1).Text == "<" {
		bp.next()
		typeArgs, _ = bp.genericArgs(false)
	}

	switch item.Kind {
	case hir.ItemStruct:
		if bp.is("{") && !noStruct {
			return bp.structLit(hir.VariantID{Adt: hir.AdtID(def)})
		}
		if bp.is("::") {
			return bp.assocPath(hir.Path(def, typeArgs...))
		}
		return bp.add(hir.ExprPath, hir.PathData{Kind: hir.PathValue, Value: hir.ValueTyDefID{Kind: hir.ValueStruct, Def: def}, Generic: typeArgs})
	case hir.ItemEnum:
		if !bp.is("::") {
			bp.failf("expected a variant of %s", item.Name)
			return hir.NoExprID
		}
		for i, v := range item.Enum.Variants {
			if bp.peekAt(1).Text != v.Name {
				continue
			}
			bp.next()
			bp.next()
			if bp.is("{") && !noStruct {
				return bp.structLit(hir.VariantID{Adt: hir.AdtID(def), Index: uint32(i)})
			}
			value := hir.ValueTyDefID{Kind: hir.ValueVariant, Def: def, Variant: uint32(i)}
			return bp.add(hir.ExprPath, hir.PathData{Kind: hir.PathValue, Value: value, Generic: typeArgs})
		}
		return bp.assocPath(hir.Path(def, typeArgs...))
	case hir.ItemTypeAlias:
		return bp.assocPath(hir.Path(def, typeArgs...))
	case hir.ItemFunction:
		return bp.add(hir.ExprPath, hir.PathData{Kind: hir.PathValue, Value: hir.ValueTyDefID{Kind: hir.ValueFunction, Def: def}, Generic: typeArgs})
	case hir.ItemConst:
		return bp.add(hir.ExprPath, hir.PathData{Kind: hir.PathValue, Value: hir.ValueTyDefID{Kind: hir.ValueConst, Def: def}})
	case hir.ItemStatic:
		return bp.add(hir.ExprPath, hir.PathData{Kind: hir.PathValue, Value: hir.ValueTyDefID{Kind: hir.ValueStatic, Def: def}})
	}
	bp.failf("%s is not a value", item.Name)
	return hir.NoExprID
}

// valuePath resolves a possibly crate-qualified item name without failing
// the parse when it is unknown.
func (bp *bodyParser) valuePath(first string) (hir.DefID, bool) {
	if bp.sc.isCrate(first) && bp.is("::") && bp.peekAt(1).Kind == tokIdent {
		bp.next()
		return bp.sc.lookupIn(first, bp.ident())
	}
	return bp.sc.lookupItem(first)
}

// assocPath parses `::name` after a type, with an optional turbofish.
func (bp *bodyParser) assocPath(self hir.TypeRef) hir.ExprID {
	if self.Kind == hir.TypeRefSelf && bp.is("{") && bp.sc.selfAdt.IsValid() {
		return bp.structLit(hir.VariantID{Adt: hir.AdtID(bp.sc.selfAdt)})
	}
	if self.Kind == hir.TypeRefAssoc {
		// `T::name` was read as an associated type; it names a function.
		base, name := *self.Elem, self.Assoc
		return bp.assocFn(base, name)
	}
	if !bp.expect("::") {
		return hir.NoExprID
	}
	return bp.assocFn(self, bp.ident())
}

func (bp *bodyParser) assocFn(self hir.TypeRef, name string) hir.ExprID {
	var generic []hir.TypeRef
	if bp.is("::") && bp.peekAt(1).Text == "<" {
		bp.next()
		generic, _ = bp.genericArgs(false)
	}
	return bp.add(hir.ExprPath, hir.PathData{Kind: hir.PathAssoc, SelfTy: &self, Name: name, Generic: generic})
}

// structLit parses `{ a: e, b }` for variant.
func (bp *bodyParser) structLit(variant hir.VariantID) hir.ExprID {
	bp.expect("{")
	var fields []hir.FieldInit
	for bp.err == nil && !bp.is("}") {
		name := bp.ident()
		var value hir.ExprID
		if bp.accept(":") {
			value = bp.expr(false)
		} else if pat, ok := bp.lookupLocal(name); ok {
			value = bp.add(hir.ExprPath, hir.PathData{Kind: hir.PathLocal, Local: pat})
		} else {
			value = bp.add(hir.ExprPath, hir.PathData{Kind: hir.PathUnresolved, Name: name})
		}
		fields = append(fields, hir.FieldInit{Name: name, Value: value})
		if !bp.accept(",") {
			break
		}
	}
	bp.expect("}")
	return bp.add(hir.ExprStructLit, hir.StructLitData{Variant: variant, Fields: fields})
}

// Snippet entry points --------------------------------------------------------

// parseBody parses an initializer or function body. self adds a receiver
// binding; params are the "pattern: Type" parameter snippets.
func parseBody(owner hir.DefWithBodyID, src string, self bool, params []string, sc *scope) (*hir.Body, error) {
	body := hir.NewBody(owner)
	var binds []binding
	if self {
		pat := body.AddPat(hir.Pat{Kind: hir.PatBind, Name: "self"})
		body.Params = append(body.Params, pat)
		binds = append(binds, binding{name: "self", pat: pat})
	}
	for _, param := range params {
		p, err := newParser(param, sc)
		if err != nil {
			return nil, err
		}
		bp := &bodyParser{parser: p, body: body}
		body.Params = append(body.Params, bp.pattern(&binds))
		bp.expect(":")
		bp.typeRef()
		if err := bp.done(); err != nil {
			return nil, err
		}
	}

	p, err := newParser(src, sc)
	if err != nil {
		return nil, err
	}
	bp := &bodyParser{parser: p, body: body}
	bp.bind(binds)
	body.Root = bp.expr(false)
	return body, bp.done()
}
