package sema

import (
	"tyinc/internal/hir"
	"tyinc/internal/query"
	"tyinc/internal/types"
)

// generics is the full parameter list of a definition: the parameters of its
// trait or impl first, then its own.
type generics struct {
	def       hir.GenericDefID
	parent    *GenericParams
	own       *GenericParams
	params    []GenericParam
	parentLen int
}

func (db *Database) generics(rt *query.Runtime, def hir.GenericDefID) *generics {
	own := db.genericParams.Get(rt, def)
	g := &generics{def: def, own: own}
	if own.Parent.IsValid() {
		g.parent = db.genericParams.Get(rt, own.Parent)
		g.params = append(g.params, g.parent.Params...)
		g.parentLen = len(g.parent.Params)
	}
	g.params = append(g.params, own.Params...)
	return g
}

// len returns the number of type and const parameters.
func (g *generics) len() int { return len(g.params) }

func (g *generics) indexOf(id hir.TypeOrConstParamID) (int, bool) {
	for i, p := range g.params {
		if p.ID == id {
			return i, true
		}
	}
	return 0, false
}

func (g *generics) kinds() []types.ParamKind {
	out := make([]types.ParamKind, len(g.params))
	for i, p := range g.params {
		if p.Const {
			out[i] = types.ParamConst
		}
	}
	return out
}

// scopes returns the parameter owners outermost first.
func (g *generics) scopes() []*GenericParams {
	if g.parent != nil {
		return []*GenericParams{g.parent, g.own}
	}
	return []*GenericParams{g.own}
}

// traitSelf returns the implicit Self parameter when the definition is a
// trait or lives in one.
func (g *generics) traitSelf() (hir.TypeOrConstParamID, bool) {
	for _, s := range g.scopes() {
		if s.Trait {
			return hir.TraitSelf(hir.TraitID(s.Def)), true
		}
	}
	return hir.TypeOrConstParamID{}, false
}

// trait returns the trait the definition is or belongs to.
func (g *generics) trait() (hir.TraitID, bool) {
	for _, s := range g.scopes() {
		if s.Trait {
			return hir.TraitID(s.Def), true
		}
	}
	return 0, false
}

// impl returns the impl the definition is or belongs to, with the number of
// parameters it declares.
func (g *generics) impl() (hir.ImplID, int, bool) {
	for _, s := range g.scopes() {
		if s.Impl {
			return hir.ImplID(s.Def), len(s.Params), true
		}
	}
	return 0, 0, false
}

// placeholders returns the substitution mapping every parameter to itself
// as a rigid placeholder.
func (db *Database) placeholders(g *generics) types.Substitution {
	out := make(types.Substitution, len(g.params))
	for i, p := range g.params {
		id := db.params.Intern(p.ID)
		if p.Const {
			out[i] = types.ConstArg(&types.Const{Kind: types.ConstParam, Param: id})
		} else {
			out[i] = types.TyArg(types.MakePlaceholder(id))
		}
	}
	return out
}

// placeholderSubst returns the placeholder substitution of def.
func (db *Database) placeholderSubst(rt *query.Runtime, def hir.GenericDefID) types.Substitution {
	return db.placeholders(db.generics(rt, def))
}
