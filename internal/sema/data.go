package sema

import (
	"tyinc/internal/hir"
	"tyinc/internal/query"
)

// Definition data queries project the parts of an Item other definitions
// depend on. Readers go through these instead of the item input, so an item
// re-set with equal data never invalidates its dependents.

// GenericParam is one type or const parameter with its owner-relative ID.
type GenericParam struct {
	ID      hir.TypeOrConstParamID
	Name    string
	Const   bool
	ConstTy *hir.TypeRef
	Default *hir.TypeRef
	Bounds  []hir.TypeBound
}

// GenericParams are the parameters a definition declares itself. A trait
// lists its implicit Self first, bounded by the supertraits.
type GenericParams struct {
	Def hir.GenericDefID
	// Parent is the trait or impl an associated item inherits generics from.
	Parent    hir.GenericDefID
	Params    []GenericParam
	Lifetimes []hir.LifetimeParamID
	Where     []hir.WherePredicate
	// Trait is set for traits, Impl for impls.
	Trait bool
	Impl  bool
}

func (db *Database) genericParamsQuery(rt *query.Runtime, def hir.GenericDefID) *GenericParams {
	gp := &GenericParams{Def: def}
	item := db.item(rt, def)
	if item == nil {
		return gp
	}
	gp.Parent = item.Container
	gp.Trait = item.Kind == hir.ItemTrait
	gp.Impl = item.Kind == hir.ItemImpl
	if gp.Trait && item.Trait != nil {
		gp.Params = append(gp.Params, GenericParam{
			ID:     hir.TraitSelf(hir.TraitID(def)),
			Name:   "Self",
			Bounds: item.Trait.Supertraits,
		})
	}
	for i, p := range item.Generics.Types {
		gp.Params = append(gp.Params, GenericParam{
			ID:      hir.TypeOrConstParamID{Parent: def, Local: uint32(i)},
			Name:    p.Name,
			Const:   p.Const,
			ConstTy: p.ConstTy,
			Default: p.Default,
			Bounds:  p.Bounds,
		})
	}
	for i := range item.Generics.Lifetimes {
		gp.Lifetimes = append(gp.Lifetimes, hir.LifetimeParamID{Parent: def, Local: uint32(i)})
	}
	gp.Where = item.Generics.Where
	return gp
}

// FunctionInfo is the signature-independent part of a function.
type FunctionInfo struct {
	Name      string
	Crate     hir.CrateID
	Block     hir.BlockID
	Container hir.DefID
	Self      *hir.SelfParam
	Params    int
	HasBody   bool
}

func (db *Database) functionDataQuery(rt *query.Runtime, fn hir.FunctionID) *FunctionInfo {
	item := db.item(rt, fn.Def())
	if item == nil || item.Fn == nil {
		return nil
	}
	return &FunctionInfo{
		Name:      item.Name,
		Crate:     item.Crate,
		Block:     item.Block,
		Container: item.Container,
		Self:      item.Fn.Self,
		Params:    len(item.Fn.Params),
		HasBody:   item.Fn.HasBody,
	}
}

// VariantInfo is the shape of a struct or enum variant.
type VariantInfo struct {
	Name   string
	Shape  hir.VariantShape
	Fields []string
}

// Field returns the index of the named field.
func (v VariantInfo) Field(name string) (int, bool) {
	for i, f := range v.Fields {
		if f == name {
			return i, true
		}
	}
	return 0, false
}

// AdtInfo is the shape of a struct or enum. Structs have a single variant.
type AdtInfo struct {
	Name     string
	Crate    hir.CrateID
	Enum     bool
	Variants []VariantInfo
}

// Variant returns the variant at index i.
func (a *AdtInfo) Variant(i uint32) (VariantInfo, bool) {
	if a == nil || int(i) >= len(a.Variants) {
		return VariantInfo{}, false
	}
	return a.Variants[i], true
}

func variantInfo(name string, shape hir.VariantShape, fields []hir.FieldData) VariantInfo {
	v := VariantInfo{Name: name, Shape: shape, Fields: make([]string, len(fields))}
	for i, f := range fields {
		v.Fields[i] = f.Name
	}
	return v
}

func (db *Database) adtDataQuery(rt *query.Runtime, adt hir.AdtID) *AdtInfo {
	item := db.item(rt, adt.Def())
	if item == nil {
		return nil
	}
	info := &AdtInfo{Name: item.Name, Crate: item.Crate}
	switch {
	case item.Struct != nil:
		info.Variants = []VariantInfo{variantInfo(item.Name, item.Struct.Shape, item.Struct.Fields)}
	case item.Enum != nil:
		info.Enum = true
		for _, v := range item.Enum.Variants {
			info.Variants = append(info.Variants, variantInfo(v.Name, v.Shape, v.Fields))
		}
	default:
		return nil
	}
	return info
}

// TraitInfo lists a trait's associated items by name.
type TraitInfo struct {
	Name       string
	Crate      hir.CrateID
	Auto       bool
	Marker     bool
	Supers     []hir.TraitID
	Methods    map[string]hir.FunctionID
	AssocTypes map[string]hir.AssocTypeID
	// AssocOrder keeps the associated types in declaration order.
	AssocOrder []hir.AssocTypeID
	Consts     map[string]hir.ConstID
}

func (db *Database) traitDataQuery(rt *query.Runtime, trait hir.TraitID) *TraitInfo {
	item := db.item(rt, trait.Def())
	if item == nil || item.Trait == nil {
		return nil
	}
	info := &TraitInfo{
		Name:       item.Name,
		Crate:      item.Crate,
		Auto:       item.Trait.Auto,
		Marker:     item.Trait.Marker,
		Methods:    map[string]hir.FunctionID{},
		AssocTypes: map[string]hir.AssocTypeID{},
		Consts:     map[string]hir.ConstID{},
	}
	for _, b := range item.Trait.Supertraits {
		info.Supers = append(info.Supers, b.Trait)
	}
	for _, def := range item.Trait.Items {
		member := db.item(rt, def)
		if member == nil {
			continue
		}
		switch member.Kind {
		case hir.ItemFunction:
			info.Methods[member.Name] = hir.FunctionID(def)
		case hir.ItemTypeAlias:
			info.AssocTypes[member.Name] = hir.AssocTypeID(def)
			info.AssocOrder = append(info.AssocOrder, hir.AssocTypeID(def))
		case hir.ItemConst:
			info.Consts[member.Name] = hir.ConstID(def)
		}
	}
	return info
}

// ImplInfo lists an impl's items by name.
type ImplInfo struct {
	Crate      hir.CrateID
	Block      hir.BlockID
	HasTrait   bool
	Negative   bool
	Methods    map[string]hir.FunctionID
	AssocTypes map[string]hir.TypeAliasID
	Consts     map[string]hir.ConstID
}

func (db *Database) implDataQuery(rt *query.Runtime, impl hir.ImplID) *ImplInfo {
	item := db.item(rt, impl.Def())
	if item == nil || item.Impl == nil {
		return nil
	}
	info := &ImplInfo{
		Crate:      item.Crate,
		Block:      item.Block,
		HasTrait:   item.Impl.Trait != nil,
		Negative:   item.Impl.Negative,
		Methods:    map[string]hir.FunctionID{},
		AssocTypes: map[string]hir.TypeAliasID{},
		Consts:     map[string]hir.ConstID{},
	}
	for _, def := range item.Impl.Items {
		member := db.item(rt, def)
		if member == nil {
			continue
		}
		switch member.Kind {
		case hir.ItemFunction:
			info.Methods[member.Name] = hir.FunctionID(def)
		case hir.ItemTypeAlias:
			info.AssocTypes[member.Name] = hir.TypeAliasID(def)
		case hir.ItemConst:
			info.Consts[member.Name] = hir.ConstID(def)
		}
	}
	return info
}

// defLocation returns the crate and block a definition lives in. Associated
// items report their container's block.
func (db *Database) defLocation(rt *query.Runtime, def hir.DefID) (hir.CrateID, hir.BlockID) {
	gp := db.genericParams.Get(rt, def)
	if gp.Parent.IsValid() {
		def = gp.Parent
	}
	item := db.item(rt, def)
	if item == nil {
		return hir.NoCrateID, hir.NoBlockID
	}
	return item.Crate, item.Block
}
