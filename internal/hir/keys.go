package hir

import "fmt"

// TyDefKind distinguishes the definitions that name a type.
type TyDefKind uint8

const (
	TyDefAdt TyDefKind = iota
	TyDefAlias
)

// TyDefID is a definition with a type: an ADT or a type alias.
type TyDefID struct {
	Kind TyDefKind
	Def  DefID
}

// AdtTy names the type of an ADT.
func AdtTy(id AdtID) TyDefID { return TyDefID{Kind: TyDefAdt, Def: DefID(id)} }

// AliasTy names the type of a type alias.
func AliasTy(id TypeAliasID) TyDefID { return TyDefID{Kind: TyDefAlias, Def: DefID(id)} }

func (id TyDefID) String() string {
	if id.Kind == TyDefAlias {
		return fmt.Sprintf("alias(%s)", id.Def)
	}
	return fmt.Sprintf("adt(%s)", id.Def)
}

// ValueTyDefKind distinguishes definitions usable as values.
type ValueTyDefKind uint8

const (
	ValueFunction ValueTyDefKind = iota
	ValueStruct
	ValueVariant
	ValueConst
	ValueStatic
)

// ValueTyDefID is a definition usable in value position: functions,
// tuple/unit struct and variant constructors, consts and statics.
type ValueTyDefID struct {
	Kind    ValueTyDefKind
	Def     DefID
	Variant uint32 // enum variant index for ValueVariant
}

func (id ValueTyDefID) String() string {
	if id.Kind == ValueVariant {
		return fmt.Sprintf("value(%s::%d)", id.Def, id.Variant)
	}
	return fmt.Sprintf("value(%s)", id.Def)
}

// VariantID is a struct (variant 0) or one enum variant.
type VariantID struct {
	Adt   AdtID
	Index uint32
}

func (id VariantID) String() string { return fmt.Sprintf("variant(%s::%d)", id.Adt, id.Index) }

// CallableDefKind distinguishes callable definitions.
type CallableDefKind uint8

const (
	CallableFunction CallableDefKind = iota
	CallableStruct
	CallableVariant
)

// CallableDefID is anything with a call signature: a function or the
// constructor of a tuple struct or tuple variant.
type CallableDefID struct {
	Kind    CallableDefKind
	Def     DefID
	Variant uint32
}

func (id CallableDefID) String() string {
	switch id.Kind {
	case CallableStruct:
		return fmt.Sprintf("ctor(%s)", id.Def)
	case CallableVariant:
		return fmt.Sprintf("ctor(%s::%d)", id.Def, id.Variant)
	default:
		return fmt.Sprintf("fn(%s)", id.Def)
	}
}

// AsValue returns the value definition of the callable.
func (id CallableDefID) AsValue() ValueTyDefID {
	switch id.Kind {
	case CallableStruct:
		return ValueTyDefID{Kind: ValueStruct, Def: id.Def}
	case CallableVariant:
		return ValueTyDefID{Kind: ValueVariant, Def: id.Def, Variant: id.Variant}
	default:
		return ValueTyDefID{Kind: ValueFunction, Def: id.Def}
	}
}

// TypeOrConstParamID is a type or const generic parameter, identified by its
// owner and its position among the owner's own type/const parameters.
type TypeOrConstParamID struct {
	Parent GenericDefID
	Local  uint32
}

func (id TypeOrConstParamID) String() string {
	return fmt.Sprintf("param(%s#%d)", id.Parent, id.Local)
}

// TraitSelfLocal is the Local index of a trait's implicit Self parameter.
const TraitSelfLocal = ^uint32(0)

// TraitSelf returns the implicit Self parameter of a trait.
func TraitSelf(trait TraitID) TypeOrConstParamID {
	return TypeOrConstParamID{Parent: DefID(trait), Local: TraitSelfLocal}
}

// IsTraitSelf reports whether id is a trait's implicit Self parameter.
func (id TypeOrConstParamID) IsTraitSelf() bool { return id.Local == TraitSelfLocal }

// ConstParamID is a TypeOrConstParamID known to name a const parameter.
type ConstParamID = TypeOrConstParamID

// LifetimeParamID is a lifetime parameter of a generic definition.
type LifetimeParamID struct {
	Parent GenericDefID
	Local  uint32
}

// ImplTraitID is the n-th `impl Trait` in a function's return type.
type ImplTraitID struct {
	Func  FunctionID
	Index uint32
}

// ClosureLoc is a closure expression inside a body.
type ClosureLoc struct {
	Owner DefWithBodyID
	Expr  ExprID
}

// AssocTypeValueID is the value an impl gives an associated type.
type AssocTypeValueID struct {
	Impl  ImplID
	Assoc AssocTypeID
}
