package project

import (
	"strconv"

	"github.com/cockroachdb/errors"
	"golang.org/x/text/unicode/norm"

	"tyinc/internal/hir"
	"tyinc/internal/project/dag"
)

// Resolved is a workspace lowered to analysis inputs.
type Resolved struct {
	Graph  *hir.CrateGraph
	Defs   []*hir.CrateDefs
	Items  map[hir.DefID]*hir.Item
	Bodies map[hir.DefID]*hir.Body
	// Order lists crates with dependencies first.
	Order []hir.CrateID

	crates []*crateScope
	byName map[string]*crateScope
}

// Crate returns the ID of the named crate.
func (r *Resolved) Crate(name string) (hir.CrateID, bool) {
	cs, ok := r.byName[norm.NFC.String(name)]
	if !ok {
		return hir.NoCrateID, false
	}
	return cs.id, true
}

// Lookup resolves `Name` or `dep::Name` as seen from krate.
func (r *Resolved) Lookup(krate hir.CrateID, path string) (hir.DefID, bool) {
	sc := r.scope(krate)
	if sc == nil {
		return hir.NoDefID, false
	}
	p, err := newParser(path, sc)
	if err != nil {
		return hir.NoDefID, false
	}
	def, ok := p.itemPath(p.ident())
	return def, ok && p.done() == nil
}

// ParseType resolves a type written outside any item, as seen from krate.
func (r *Resolved) ParseType(krate hir.CrateID, src string) (hir.TypeRef, error) {
	sc := r.scope(krate)
	if sc == nil {
		return hir.TypeRef{}, errors.Newf("unknown crate %s", krate)
	}
	return parseType(src, sc)
}

// ParseBound resolves a single trait bound such as `Iterator<Item = u32>`.
func (r *Resolved) ParseBound(krate hir.CrateID, src string) (hir.TypeBound, error) {
	sc := r.scope(krate)
	if sc == nil {
		return hir.TypeBound{}, errors.Newf("unknown crate %s", krate)
	}
	bounds, err := parseBounds(src, sc)
	if err != nil {
		return hir.TypeBound{}, err
	}
	if len(bounds) != 1 {
		return hir.TypeBound{}, errors.Newf("expected one bound, found %d", len(bounds))
	}
	return bounds[0], nil
}

func (r *Resolved) scope(krate hir.CrateID) *scope {
	for _, cs := range r.crates {
		if cs.id == krate {
			return &scope{r: r, krate: cs}
		}
	}
	return nil
}

// resolver lowers a workspace in three passes: declare every item, lower
// signatures, then lower bodies. Later passes may refer to any item.
type resolver struct {
	out    *Resolved
	next   hir.DefID
	sigs   []func() error
	bodies []func() error
}

// Resolve lowers ws. Crate IDs follow declaration order starting at 1.
func Resolve(ws *Workspace) (*Resolved, error) {
	nodes := make([]dag.Node, len(ws.Crates))
	for i := range ws.Crates {
		c := &ws.Crates[i]
		c.Name = norm.NFC.String(c.Name)
		for j, d := range c.Deps {
			c.Deps[j] = norm.NFC.String(d)
		}
		nodes[i] = dag.Node{Name: c.Name, Deps: c.Deps}
	}
	idx, err := dag.BuildIndex(nodes)
	if err != nil {
		return nil, err
	}
	g, err := dag.BuildGraph(idx, nodes)
	if err != nil {
		return nil, err
	}
	topo := dag.Sort(g)
	if err := topo.Err(idx); err != nil {
		return nil, err
	}

	r := &resolver{out: &Resolved{
		Graph:  &hir.CrateGraph{},
		Items:  map[hir.DefID]*hir.Item{},
		Bodies: map[hir.DefID]*hir.Body{},
		byName: map[string]*crateScope{},
	}}
	for i, c := range ws.Crates {
		cs := &crateScope{id: hir.CrateID(i + 1), name: c.Name, names: map[string]hir.DefID{}}
		r.out.crates = append(r.out.crates, cs)
		r.out.byName[c.Name] = cs
	}
	for _, id := range topo.Order {
		r.out.Order = append(r.out.Order, hir.CrateID(id+1))
	}
	for i, c := range ws.Crates {
		cs := r.out.crates[i]
		data := hir.CrateData{ID: cs.id, Name: cs.name}
		for _, d := range c.Deps {
			dep := r.out.byName[d]
			cs.deps = append(cs.deps, dep)
			data.Deps = append(data.Deps, dep.id)
		}
		r.out.Graph.Crates = append(r.out.Graph.Crates, data)
	}

	for i := range ws.Crates {
		if err := r.declareCrate(r.out.crates[i], &ws.Crates[i]); err != nil {
			return nil, err
		}
	}
	for _, step := range r.sigs {
		if err := step(); err != nil {
			return nil, err
		}
	}
	for _, step := range r.bodies {
		if err := step(); err != nil {
			return nil, err
		}
	}
	return r.out, nil
}

// Declarations ----------------------------------------------------------------

func (r *resolver) alloc(cs *crateScope, item *hir.Item) hir.DefID {
	r.next++
	item.Name = norm.NFC.String(item.Name)
	item.Crate = cs.id
	r.out.Items[r.next] = item
	return r.next
}

// declare allocates a crate-level item and makes its name visible.
func (r *resolver) declare(cs *crateScope, defs *hir.CrateDefs, item *hir.Item) (hir.DefID, error) {
	def := r.alloc(cs, item)
	if item.Name != "" {
		if _, dup := cs.names[item.Name]; dup {
			return def, errors.Newf("crate %s: duplicate item %s", cs.name, item.Name)
		}
		cs.names[item.Name] = def
	}
	defs.Items = append(defs.Items, def)
	return def, nil
}

// member allocates an associated item of a trait or impl.
func (r *resolver) member(container hir.DefID, item *hir.Item) hir.DefID {
	parent := r.out.Items[container]
	def := r.alloc(r.crateOf(parent.Crate), item)
	item.Container = container
	switch {
	case parent.Trait != nil:
		parent.Trait.Items = append(parent.Trait.Items, def)
	case parent.Impl != nil:
		parent.Impl.Items = append(parent.Impl.Items, def)
	}
	return def
}

func (r *resolver) crateOf(id hir.CrateID) *crateScope { return r.out.crates[id-1] }

func (r *resolver) declareCrate(cs *crateScope, c *CrateDecl) error {
	defs := &hir.CrateDefs{Crate: cs.id}
	r.out.Defs = append(r.out.Defs, defs)
	base := &scope{r: r.out, krate: cs}

	for _, d := range c.Structs {
		def, err := r.declare(cs, defs, &hir.Item{Kind: hir.ItemStruct, Name: d.Name, Struct: &hir.StructData{}})
		if err != nil {
			return err
		}
		r.sigs = append(r.sigs, func() error { return r.wrap(cs, d.Name, r.lowerStruct(base, def, d)) })
	}
	for _, d := range c.Enums {
		def, err := r.declare(cs, defs, &hir.Item{Kind: hir.ItemEnum, Name: d.Name, Enum: &hir.EnumData{}})
		if err != nil {
			return err
		}
		// Variant names are needed by bodies before signatures are lowered.
		for _, v := range d.Variants {
			name, _, _ := splitVariant(v)
			r.out.Items[def].Enum.Variants = append(r.out.Items[def].Enum.Variants, hir.VariantData{Name: name})
		}
		r.sigs = append(r.sigs, func() error { return r.wrap(cs, d.Name, r.lowerEnum(base, def, d)) })
	}
	for _, d := range c.Types {
		def, err := r.declare(cs, defs, &hir.Item{Kind: hir.ItemTypeAlias, Name: d.Name, Alias: &hir.AliasData{}})
		if err != nil {
			return err
		}
		r.sigs = append(r.sigs, func() error { return r.wrap(cs, d.Name, r.lowerAlias(base, def, d)) })
	}
	for _, d := range c.Traits {
		def, err := r.declare(cs, defs, &hir.Item{Kind: hir.ItemTrait, Name: d.Name, Trait: &hir.TraitData{Auto: d.Auto, Marker: d.Marker}})
		if err != nil {
			return err
		}
		r.declareTrait(base, def, d)
	}
	for i, d := range c.Impls {
		def, err := r.declare(cs, defs, &hir.Item{Kind: hir.ItemImpl, Impl: &hir.ImplData{Negative: d.Negative}})
		if err != nil {
			return err
		}
		r.declareImpl(base, def, i, d)
	}
	for _, d := range c.Consts {
		if err := r.declareConst(base, defs, hir.ItemConst, d); err != nil {
			return err
		}
	}
	for _, d := range c.Statics {
		if err := r.declareConst(base, defs, hir.ItemStatic, d); err != nil {
			return err
		}
	}
	for _, d := range c.Fns {
		def, err := r.declare(cs, defs, &hir.Item{Kind: hir.ItemFunction, Name: d.Name, Fn: &hir.FnData{}})
		if err != nil {
			return err
		}
		r.declareFn(base, def, d)
	}
	return nil
}

func (r *resolver) wrap(cs *crateScope, what string, err error) error {
	if err == nil {
		return nil
	}
	return errors.Wrapf(err, "crate %s: %s", cs.name, what)
}

// Signatures --------------------------------------------------------------------

// generics lowers declared parameters and where clauses of def. It returns
// the scope extended with the parameters.
func (r *resolver) generics(sc *scope, def hir.DefID, decls, where []string) (*scope, error) {
	frame := genericFrame{owner: def}
	for _, d := range decls {
		p, err := newParser(d, sc)
		if err != nil {
			return nil, err
		}
		t := p.peek()
		switch {
		case t.Kind == tokLifetime:
			frame.lifetimes = append(frame.lifetimes, t.Text)
		case p.accept("const"):
			frame.params = append(frame.params, paramDecl{name: p.ident(), isConst: true})
		default:
			frame.params = append(frame.params, paramDecl{name: p.ident()})
		}
		if p.err != nil {
			return nil, p.err
		}
	}
	inner := sc.with(frame)

	item := r.out.Items[def]
	for _, d := range decls {
		p, err := newParser(d, inner)
		if err != nil {
			return nil, err
		}
		if p.peek().Kind == tokLifetime {
			continue
		}
		var tp hir.TypeParam
		if p.accept("const") {
			tp.Name, tp.Const = p.ident(), true
			p.expect(":")
			ty := p.typeRef()
			tp.ConstTy = &ty
			if p.accept("=") {
				c := hir.ConstArg(p.constArg())
				tp.Default = &c
			}
		} else {
			tp.Name = p.ident()
			if p.accept(":") {
				tp.Bounds = p.bounds()
			}
			if p.accept("=") {
				ty := p.typeRef()
				tp.Default = &ty
			}
		}
		if err := p.done(); err != nil {
			return nil, errors.Wrapf(err, "generic parameter %q", d)
		}
		item.Generics.Types = append(item.Generics.Types, tp)
	}
	item.Generics.Lifetimes = frame.lifetimes
	for _, w := range where {
		preds, err := parseWhere(w, inner)
		if err != nil {
			return nil, errors.Wrapf(err, "where clause %q", w)
		}
		item.Generics.Where = append(item.Generics.Where, preds...)
	}
	return inner, nil
}

func (r *resolver) lowerStruct(sc *scope, def hir.DefID, d StructDecl) error {
	inner, err := r.generics(sc, def, d.Generics, d.Where)
	if err != nil {
		return err
	}
	st := r.out.Items[def].Struct
	switch {
	case len(d.Fields) > 0 && len(d.Tuple) > 0:
		return errors.New("struct has both fields and tuple fields")
	case len(d.Fields) > 0:
		st.Shape = hir.ShapeRecord
		for _, f := range d.Fields {
			name, ty, err := parseNamed(f, inner)
			if err != nil {
				return errors.Wrapf(err, "field %q", f)
			}
			st.Fields = append(st.Fields, hir.FieldData{Name: name, Type: ty})
		}
	case len(d.Tuple) > 0:
		st.Shape = hir.ShapeTuple
		st.Fields, err = tupleFields(d.Tuple, inner)
	default:
		st.Shape = hir.ShapeUnit
	}
	return err
}

func tupleFields(types []string, sc *scope) ([]hir.FieldData, error) {
	out := make([]hir.FieldData, len(types))
	for i, src := range types {
		ty, err := parseType(src, sc)
		if err != nil {
			return nil, errors.Wrapf(err, "field %d", i)
		}
		out[i] = hir.FieldData{Name: strconv.Itoa(i), Type: ty}
	}
	return out, nil
}

func (r *resolver) lowerEnum(sc *scope, def hir.DefID, d EnumDecl) error {
	inner, err := r.generics(sc, def, d.Generics, d.Where)
	if err != nil {
		return err
	}
	variants := r.out.Items[def].Enum.Variants
	for i, v := range d.Variants {
		_, shape, fields := splitVariant(v)
		variants[i].Shape = shape
		switch shape {
		case hir.ShapeTuple:
			variants[i].Fields, err = tupleFields(fields, inner)
		case hir.ShapeRecord:
			for _, f := range fields {
				name, ty, ferr := parseNamed(f, inner)
				if ferr != nil {
					return errors.Wrapf(ferr, "variant %q", v)
				}
				variants[i].Fields = append(variants[i].Fields, hir.FieldData{Name: name, Type: ty})
			}
		}
		if err != nil {
			return errors.Wrapf(err, "variant %q", v)
		}
	}
	return nil
}

func (r *resolver) lowerAlias(sc *scope, def hir.DefID, d AliasDecl) error {
	inner, err := r.generics(sc, def, d.Generics, nil)
	if err != nil {
		return err
	}
	ty, err := parseType(d.Type, inner)
	if err != nil {
		return err
	}
	r.out.Items[def].Alias.Type = &ty
	return nil
}

func (r *resolver) declareTrait(sc *scope, def hir.DefID, d TraitDecl) {
	cs := sc.krate
	type assoc struct {
		def hir.DefID
		src string
	}
	var types []assoc
	for _, src := range d.Types {
		name := assocName(src)
		types = append(types, assoc{r.member(def, &hir.Item{Kind: hir.ItemTypeAlias, Name: name, Alias: &hir.AliasData{}}), src})
	}
	var fns []hir.DefID
	for _, f := range d.Fns {
		fns = append(fns, r.member(def, &hir.Item{Kind: hir.ItemFunction, Name: f.Name, Fn: &hir.FnData{}}))
	}

	self := *sc
	self.self = true
	var inner *scope
	r.sigs = append(r.sigs, func() error {
		var err error
		inner, err = r.generics(&self, def, d.Generics, d.Where)
		if err != nil {
			return r.wrap(cs, d.Name, err)
		}
		trait := r.out.Items[def].Trait
		for _, s := range d.Super {
			b, err := parseBounds(s, inner)
			if err != nil {
				return r.wrap(cs, d.Name, errors.Wrapf(err, "supertrait %q", s))
			}
			trait.Supertraits = append(trait.Supertraits, b...)
		}
		for _, a := range types {
			_, bounds, err := parseAssocDecl(a.src, inner)
			if err != nil {
				return r.wrap(cs, d.Name, errors.Wrapf(err, "associated type %q", a.src))
			}
			r.out.Items[a.def].Alias.Bounds = bounds
		}
		return nil
	})
	for i, f := range d.Fns {
		r.memberFn(func() *scope { return inner }, fns[i], f, d.Name)
	}
}

func (r *resolver) declareImpl(sc *scope, def hir.DefID, index int, d ImplDecl) {
	cs := sc.krate
	label := "impl #" + strconv.Itoa(index+1)
	type value struct {
		def hir.DefID
		src string
	}
	var values []value
	for _, src := range d.Types {
		name := assocName(src)
		values = append(values, value{r.member(def, &hir.Item{Kind: hir.ItemTypeAlias, Name: name, Alias: &hir.AliasData{}}), src})
	}
	var fns []hir.DefID
	for _, f := range d.Fns {
		fns = append(fns, r.member(def, &hir.Item{Kind: hir.ItemFunction, Name: f.Name, Fn: &hir.FnData{}}))
	}

	base := *sc
	base.self = true
	var inner *scope
	r.sigs = append(r.sigs, func() error {
		var err error
		inner, err = r.generics(&base, def, d.Generics, d.Where)
		if err != nil {
			return r.wrap(cs, label, err)
		}
		impl := r.out.Items[def].Impl
		if impl.SelfTy, err = parseType(d.For, inner); err != nil {
			return r.wrap(cs, label, errors.Wrapf(err, "self type %q", d.For))
		}
		if d.Trait != "" {
			b, err := parseBounds(d.Trait, inner)
			if err != nil {
				return r.wrap(cs, label, errors.Wrapf(err, "trait %q", d.Trait))
			}
			if len(b) != 1 {
				return r.wrap(cs, label, errors.Newf("trait %q: expected one trait", d.Trait))
			}
			impl.Trait = &b[0]
		}
		if impl.SelfTy.Kind == hir.TypeRefPath && r.out.Items[impl.SelfTy.Def].Kind != hir.ItemTypeAlias {
			inner.selfAdt = impl.SelfTy.Def
		}
		for _, v := range values {
			_, ty, err := parseAssocValue(v.src, inner)
			if err != nil {
				return r.wrap(cs, label, errors.Wrapf(err, "associated type %q", v.src))
			}
			r.out.Items[v.def].Alias.Type = &ty
		}
		return nil
	})
	for i, f := range d.Fns {
		r.memberFn(func() *scope { return inner }, fns[i], f, label)
	}
}

// memberFn schedules the signature and body of an associated function. The
// container's scope is only known once its own signature step has run.
func (r *resolver) memberFn(container func() *scope, def hir.DefID, d FnDecl, owner string) {
	cs := r.crateOf(r.out.Items[def].Crate)
	label := owner + "::" + d.Name
	var inner *scope
	r.sigs = append(r.sigs, func() error {
		var err error
		inner, err = r.lowerFn(container(), def, d)
		return r.wrap(cs, label, err)
	})
	if d.Body != "" {
		r.bodies = append(r.bodies, func() error {
			return r.wrap(cs, label, r.lowerBody(inner, def, d))
		})
	}
}

func (r *resolver) declareFn(sc *scope, def hir.DefID, d FnDecl) {
	var inner *scope
	r.sigs = append(r.sigs, func() error {
		var err error
		inner, err = r.lowerFn(sc, def, d)
		return r.wrap(sc.krate, d.Name, err)
	})
	if d.Body != "" {
		r.bodies = append(r.bodies, func() error {
			return r.wrap(sc.krate, d.Name, r.lowerBody(inner, def, d))
		})
	}
}

func (r *resolver) lowerFn(sc *scope, def hir.DefID, d FnDecl) (*scope, error) {
	inner, err := r.generics(sc, def, d.Generics, d.Where)
	if err != nil {
		return nil, err
	}
	fn := r.out.Items[def].Fn
	fn.HasBody = d.Body != ""
	switch d.Self {
	case "":
	case "self":
		fn.Self = &hir.SelfParam{}
	case "&self":
		fn.Self = &hir.SelfParam{Ref: true}
	case "&mut self":
		fn.Self = &hir.SelfParam{Ref: true, Mut: true}
	default:
		return nil, errors.Newf("invalid receiver %q", d.Self)
	}
	if fn.Self != nil && !sc.self {
		return nil, errors.New("receiver outside of a trait or impl")
	}
	for _, src := range d.Params {
		ty, err := parseParamType(src, inner)
		if err != nil {
			return nil, errors.Wrapf(err, "parameter %q", src)
		}
		fn.Params = append(fn.Params, ty)
	}
	if d.Ret != "" {
		ty, err := parseType(d.Ret, inner)
		if err != nil {
			return nil, errors.Wrapf(err, "return type %q", d.Ret)
		}
		fn.Ret = &ty
	}
	return inner, nil
}

func (r *resolver) declareConst(sc *scope, defs *hir.CrateDefs, kind hir.ItemKind, d ConstDecl) error {
	def, err := r.declare(sc.krate, defs, &hir.Item{Kind: kind, Name: d.Name, Constant: &hir.ConstData{Mutable: d.Mut}})
	if err != nil {
		return err
	}
	r.sigs = append(r.sigs, func() error {
		ty, err := parseType(d.Type, sc)
		if err != nil {
			return r.wrap(sc.krate, d.Name, err)
		}
		c := r.out.Items[def].Constant
		c.Type, c.HasBody = ty, d.Value != ""
		return nil
	})
	if d.Value != "" {
		r.bodies = append(r.bodies, func() error {
			body, err := parseBody(def, d.Value, false, nil, sc)
			if err != nil {
				return r.wrap(sc.krate, d.Name, err)
			}
			r.out.Bodies[def] = body
			return nil
		})
	}
	return nil
}

func (r *resolver) lowerBody(sc *scope, def hir.DefID, d FnDecl) error {
	body, err := parseBody(def, d.Body, d.Self != "", d.Params, sc)
	if err != nil {
		return errors.Wrap(err, "body")
	}
	r.out.Bodies[def] = body
	return nil
}
