package project

import (
	"strconv"

	"github.com/cockroachdb/errors"

	"tyinc/internal/hir"
)

// builtinTypes are the primitive type names.
var builtinTypes = map[string]bool{
	"i8": true, "i16": true, "i32": true, "i64": true, "i128": true, "isize": true,
	"u8": true, "u16": true, "u32": true, "u64": true, "u128": true, "usize": true,
	"f32": true, "f64": true, "bool": true, "char": true, "str": true,
}

// parser reads one snippet. The first error sticks: later calls become
// no-ops and the caller inspects err once at the end.
type parser struct {
	src  string
	toks []token
	pos  int
	sc   *scope
	err  error
}

func newParser(src string, sc *scope) (*parser, error) {
	toks, err := scan(src)
	if err != nil {
		return nil, err
	}
	return &parser{src: src, toks: toks, sc: sc}, nil
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) peekAt(n int) token {
	if p.pos+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+n]
}

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.Kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) is(text string) bool {
	t := p.peek()
	return (t.Kind == tokPunct || t.Kind == tokIdent) && t.Text == text
}

func (p *parser) accept(text string) bool {
	if p.is(text) {
		p.next()
		return true
	}
	return false
}

func (p *parser) expect(text string) bool {
	if p.accept(text) {
		return true
	}
	p.failf("expected %q, found %s", text, describe(p.peek()))
	return false
}

func (p *parser) ident() string {
	t := p.peek()
	if t.Kind != tokIdent {
		p.failf("expected identifier, found %s", describe(t))
		return ""
	}
	p.next()
	return t.Text
}

func (p *parser) failf(format string, args ...any) {
	if p.err != nil {
		return
	}
	p.err = errors.Newf("%s: "+format, append([]any{position(p.src, p.peek().Off)}, args...)...)
}

// done checks that the whole snippet was consumed.
func (p *parser) done() error {
	if p.err == nil && p.peek().Kind != tokEOF {
		p.failf("unexpected %s", describe(p.peek()))
	}
	return p.err
}

func describe(t token) string {
	if t.Kind == tokEOF {
		return "end of input"
	}
	return strconv.Quote(t.Text)
}

// Types ----------------------------------------------------------------------

func (p *parser) typeRef() hir.TypeRef {
	if p.err != nil {
		return hir.TypeRef{}
	}
	t := p.peek()
	switch {
	case p.accept("!"):
		return hir.TypeRef{Kind: hir.TypeRefNever}
	case p.accept("_"):
		return hir.TypeRef{Kind: hir.TypeRefInfer}
	case p.accept("&&"):
		inner := p.refTail()
		return hir.Ref(inner, false)
	case p.accept("&"):
		return p.refTail()
	case p.accept("("):
		var elems []hir.TypeRef
		trailing := false
		for p.err == nil && !p.is(")") {
			elems = append(elems, p.typeRef())
			trailing = p.accept(",")
			if !trailing {
				break
			}
		}
		p.expect(")")
		if len(elems) == 1 && !trailing {
			return elems[0]
		}
		return hir.TypeRef{Kind: hir.TypeRefTuple, Args: elems}
	case p.accept("["):
		elem := p.typeRef()
		if p.accept(";") {
			n := p.constArg()
			p.expect("]")
			return hir.TypeRef{Kind: hir.TypeRefArray, Elem: &elem, Len: &n}
		}
		p.expect("]")
		return hir.TypeRef{Kind: hir.TypeRefSlice, Elem: &elem}
	case p.accept("fn"):
		p.expect("(")
		var params []hir.TypeRef
		for p.err == nil && !p.is(")") {
			params = append(params, p.typeRef())
			if !p.accept(",") {
				break
			}
		}
		p.expect(")")
		ref := hir.TypeRef{Kind: hir.TypeRefFn, Args: params}
		if p.accept("->") {
			ret := p.typeRef()
			ref.Ret = &ret
		}
		return ref
	case p.accept("impl"):
		return hir.TypeRef{Kind: hir.TypeRefImplTrait, Bounds: p.bounds()}
	case p.accept("<"):
		self := p.typeRef()
		p.expect("as")
		b := p.bound()
		p.expect(">")
		p.expect("::")
		name := p.ident()
		return hir.TypeRef{Kind: hir.TypeRefAssoc, Elem: &self, Bound: &b, Assoc: name}
	case t.Kind == tokIdent:
		return p.pathType()
	}
	p.failf("expected type, found %s", describe(t))
	return hir.TypeRef{}
}

// refTail parses what follows `&`: an optional lifetime, `mut` and the
// referenced type.
func (p *parser) refTail() hir.TypeRef {
	var lt *hir.LifetimeRef
	if t := p.peek(); t.Kind == tokLifetime {
		p.next()
		lt = p.lifetime(t.Text)
	}
	mut := p.accept("mut")
	elem := p.typeRef()
	ref := hir.Ref(elem, mut)
	ref.Lifetime = lt
	return ref
}

func (p *parser) lifetime(name string) *hir.LifetimeRef {
	if name == "static" {
		return &hir.LifetimeRef{Static: true}
	}
	id, ok := p.sc.lookupLifetime(name)
	if !ok {
		p.failf("undeclared lifetime '%s", name)
		return nil
	}
	return &hir.LifetimeRef{Param: id}
}

// pathType parses `Self`, a generic parameter, a primitive or a possibly
// crate-qualified type name, with generic arguments and an optional
// `::Assoc` suffix on parameters and Self.
func (p *parser) pathType() hir.TypeRef {
	name := p.ident()
	var base hir.TypeRef
	switch {
	case name == "Self":
		if !p.sc.self {
			p.failf("Self outside of a trait or impl")
			return hir.TypeRef{}
		}
		base = hir.TypeRef{Kind: hir.TypeRefSelf}
	case p.sc.isParam(name):
		id, isConst, _ := p.sc.lookupParam(name)
		if isConst {
			p.failf("const parameter %s used as a type", name)
			return hir.TypeRef{}
		}
		base = hir.Param(id)
	case builtinTypes[name]:
		return hir.Builtin(name)
	default:
		def, ok := p.itemPath(name)
		if !ok {
			return hir.TypeRef{}
		}
		switch p.sc.r.Items[def].Kind {
		case hir.ItemStruct, hir.ItemEnum, hir.ItemTypeAlias:
		default:
			p.failf("%s is not a type", name)
			return hir.TypeRef{}
		}
		ref := hir.Path(def)
		if p.is("<") {
			ref.Args, _ = p.genericArgs(false)
		}
		return ref
	}
	if p.is("::") && p.peekAt(1).Kind == tokIdent {
		p.next()
		assoc := p.ident()
		return hir.TypeRef{Kind: hir.TypeRefAssoc, Elem: &base, Assoc: assoc}
	}
	return base
}

// itemPath resolves `Name` or `crate::Name` whose first segment was
// already consumed.
func (p *parser) itemPath(first string) (hir.DefID, bool) {
	if p.sc.isCrate(first) && p.is("::") {
		p.next()
		name := p.ident()
		def, ok := p.sc.lookupIn(first, name)
		if !ok {
			p.failf("cannot find %s in crate %s", name, first)
		}
		return def, ok
	}
	def, ok := p.sc.lookupItem(first)
	if !ok {
		p.failf("cannot find %s", first)
	}
	return def, ok
}

// genericArgs parses `<A, B, Name = T>`. Bindings are only accepted inside
// trait bounds.
func (p *parser) genericArgs(bindings bool) ([]hir.TypeRef, []hir.AssocBinding) {
	p.expect("<")
	var args []hir.TypeRef
	var binds []hir.AssocBinding
	for p.err == nil && !p.is(">") {
		switch {
		case p.peek().Kind == tokIdent && p.peekAt(1).Text == "=" && p.peekAt(1).Kind == tokPunct:
			if !bindings {
				p.failf("associated type binding outside of a bound")
				return nil, nil
			}
			name := p.ident()
			p.next()
			binds = append(binds, hir.AssocBinding{Name: name, Type: p.typeRef()})
		case p.isConstArg():
			args = append(args, hir.ConstArg(p.constArg()))
		default:
			args = append(args, p.typeRef())
		}
		if !p.accept(",") {
			break
		}
	}
	p.expect(">")
	return args, binds
}

// isConstArg reports whether the next generic argument is a const.
func (p *parser) isConstArg() bool {
	t := p.peek()
	switch {
	case t.Kind == tokInt || (t.Kind == tokPunct && t.Text == "{"):
		return true
	case t.Kind != tokIdent || p.peekAt(1).Text == "::" || p.peekAt(1).Text == "<":
		return false
	}
	if _, isConst, ok := p.sc.lookupParam(t.Text); ok {
		return isConst
	}
	if def, ok := p.sc.lookupItem(t.Text); ok {
		return p.sc.r.Items[def].Kind == hir.ItemConst
	}
	return false
}

// constArg parses an array length or const generic argument: a literal, a
// const parameter or a const item, optionally in braces.
func (p *parser) constArg() hir.ConstRef {
	if p.accept("{") {
		c := p.constArg()
		p.expect("}")
		return c
	}
	t := p.peek()
	switch t.Kind {
	case tokInt:
		p.next()
		v, err := strconv.ParseUint(t.Text, 10, 64)
		if err != nil {
			p.failf("const %s out of range", t.Text)
		}
		return hir.ConstRef{Kind: hir.ConstRefLiteral, Value: v}
	case tokIdent:
		p.next()
		if t.Text == "_" {
			return hir.ConstRef{Kind: hir.ConstRefUnknown}
		}
		if id, isConst, ok := p.sc.lookupParam(t.Text); ok {
			if !isConst {
				p.failf("type parameter %s used as a const", t.Text)
			}
			return hir.ConstRef{Kind: hir.ConstRefParam, Param: id}
		}
		def, ok := p.itemPath(t.Text)
		if ok && p.sc.r.Items[def].Kind != hir.ItemConst {
			p.failf("%s is not a const", t.Text)
		}
		return hir.ConstRef{Kind: hir.ConstRefPath, Const: hir.ConstID(def)}
	}
	p.failf("expected const, found %s", describe(t))
	return hir.ConstRef{}
}

// Bounds ---------------------------------------------------------------------

// bounds parses `Trait + Trait<Args> + ...`.
func (p *parser) bounds() []hir.TypeBound {
	var out []hir.TypeBound
	for p.err == nil {
		out = append(out, p.bound())
		if !p.accept("+") {
			break
		}
	}
	return out
}

func (p *parser) bound() hir.TypeBound {
	def, ok := p.itemPath(p.ident())
	if !ok {
		return hir.TypeBound{}
	}
	if p.sc.r.Items[def].Kind != hir.ItemTrait {
		p.failf("%s is not a trait", p.sc.r.Items[def].Name)
		return hir.TypeBound{}
	}
	b := hir.TypeBound{Trait: hir.TraitID(def)}
	if p.is("<") {
		b.Args, b.Bindings = p.genericArgs(true)
	}
	return b
}

// Snippet entry points --------------------------------------------------------

func parseType(src string, sc *scope) (hir.TypeRef, error) {
	p, err := newParser(src, sc)
	if err != nil {
		return hir.TypeRef{}, err
	}
	t := p.typeRef()
	return t, p.done()
}

func parseBounds(src string, sc *scope) ([]hir.TypeBound, error) {
	p, err := newParser(src, sc)
	if err != nil {
		return nil, err
	}
	b := p.bounds()
	return b, p.done()
}

// parseWhere parses `Target: Bound + Bound` into one predicate per bound.
func parseWhere(src string, sc *scope) ([]hir.WherePredicate, error) {
	p, err := newParser(src, sc)
	if err != nil {
		return nil, err
	}
	target := p.typeRef()
	p.expect(":")
	var out []hir.WherePredicate
	for _, b := range p.bounds() {
		out = append(out, hir.WherePredicate{Target: target, Bound: b})
	}
	return out, p.done()
}

// parseNamed parses `name: Type` as used by fields.
func parseNamed(src string, sc *scope) (string, hir.TypeRef, error) {
	p, err := newParser(src, sc)
	if err != nil {
		return "", hir.TypeRef{}, err
	}
	name := p.ident()
	p.expect(":")
	t := p.typeRef()
	return name, t, p.done()
}

// parseAssocValue parses `Name = Type` as used by impl associated types.
func parseAssocValue(src string, sc *scope) (string, hir.TypeRef, error) {
	p, err := newParser(src, sc)
	if err != nil {
		return "", hir.TypeRef{}, err
	}
	name := p.ident()
	p.expect("=")
	t := p.typeRef()
	return name, t, p.done()
}

// parseAssocDecl parses `Name` or `Name: Bounds` as used by trait
// associated types.
func parseAssocDecl(src string, sc *scope) (string, []hir.TypeBound, error) {
	p, err := newParser(src, sc)
	if err != nil {
		return "", nil, err
	}
	name := p.ident()
	var b []hir.TypeBound
	if p.accept(":") {
		b = p.bounds()
	}
	return name, b, p.done()
}
