package hir

// ItemKind enumerates definition kinds.
type ItemKind uint8

const (
	ItemFunction ItemKind = iota
	ItemStruct
	ItemEnum
	ItemTrait
	ItemImpl
	ItemTypeAlias
	ItemConst
	ItemStatic
)

func (k ItemKind) String() string {
	switch k {
	case ItemFunction:
		return "fn"
	case ItemStruct:
		return "struct"
	case ItemEnum:
		return "enum"
	case ItemTrait:
		return "trait"
	case ItemImpl:
		return "impl"
	case ItemTypeAlias:
		return "type"
	case ItemConst:
		return "const"
	case ItemStatic:
		return "static"
	default:
		return "item"
	}
}

// Item is the signature-level data of one definition. Bodies are separate
// inputs so that editing a body never touches its signature.
type Item struct {
	Kind  ItemKind
	Name  string
	Crate CrateID
	// Container is the trait or impl an associated item belongs to.
	Container DefID
	// Block is the block expression the item is declared in, if any.
	Block    BlockID
	Generics GenericParams

	Fn       *FnData
	Struct   *StructData
	Enum     *EnumData
	Trait    *TraitData
	Impl     *ImplData
	Alias    *AliasData
	Constant *ConstData
}

// IsAssoc reports whether the item lives inside a trait or impl.
func (it *Item) IsAssoc() bool { return it.Container.IsValid() }

// TypeParam is a declared type or const parameter.
type TypeParam struct {
	Name    string
	Const   bool
	ConstTy *TypeRef
	Default *TypeRef
	Bounds  []TypeBound
}

// WherePredicate is `Target: Bound` in a where clause.
type WherePredicate struct {
	Target TypeRef
	Bound  TypeBound
}

// GenericParams are the parameters an item declares itself. Parameters of
// the enclosing trait or impl are not repeated here.
type GenericParams struct {
	Types     []TypeParam
	Lifetimes []string
	Where     []WherePredicate
}

// Len returns the number of type and const parameters.
func (g GenericParams) Len() int { return len(g.Types) }

// SelfParam describes a method receiver.
type SelfParam struct {
	Ref bool
	Mut bool
}

// FnData is a function signature.
type FnData struct {
	Self     *SelfParam
	Params   []TypeRef
	Ret      *TypeRef // nil is unit
	HasBody  bool
	Variadic bool
}

// FieldData is one field of a struct or variant.
type FieldData struct {
	Name string
	Type TypeRef
}

// VariantShape distinguishes struct-like, tuple-like and unit variants.
type VariantShape uint8

const (
	ShapeRecord VariantShape = iota
	ShapeTuple
	ShapeUnit
)

// StructData holds a struct's fields.
type StructData struct {
	Shape  VariantShape
	Fields []FieldData
}

// VariantData is one enum variant.
type VariantData struct {
	Name   string
	Shape  VariantShape
	Fields []FieldData
}

// EnumData holds an enum's variants.
type EnumData struct {
	Variants []VariantData
}

// TraitData holds a trait's supertraits and associated items.
type TraitData struct {
	Supertraits []TypeBound
	Items       []DefID
	Auto        bool
	Marker      bool
}

// ImplData holds an impl's self type, implemented trait and items.
type ImplData struct {
	SelfTy   TypeRef
	Trait    *TypeBound // nil for inherent impls
	Items    []DefID
	Negative bool
}

// AliasData holds a type alias. Associated types in traits have no Type.
type AliasData struct {
	Type   *TypeRef
	Bounds []TypeBound
}

// ConstData holds a const or static type.
type ConstData struct {
	Type    TypeRef
	HasBody bool
	Mutable bool
}

// CrateData is one node of the crate graph.
type CrateData struct {
	ID   CrateID
	Name string
	Deps []CrateID
}

// CrateGraph is the set of crates and their dependency edges.
type CrateGraph struct {
	Crates []CrateData
}

// Crate returns the crate with the given ID.
func (g *CrateGraph) Crate(id CrateID) (CrateData, bool) {
	if g == nil {
		return CrateData{}, false
	}
	for _, c := range g.Crates {
		if c.ID == id {
			return c, true
		}
	}
	return CrateData{}, false
}

// TransitiveDeps returns krate followed by every crate it depends on,
// breadth first, each listed once.
func (g *CrateGraph) TransitiveDeps(krate CrateID) []CrateID {
	seen := map[CrateID]bool{krate: true}
	out := []CrateID{krate}
	for i := 0; i < len(out); i++ {
		data, ok := g.Crate(out[i])
		if !ok {
			continue
		}
		for _, dep := range data.Deps {
			if !seen[dep] {
				seen[dep] = true
				out = append(out, dep)
			}
		}
	}
	return out
}

// CrateDefs lists the items declared at crate level, in declaration order.
// Associated items are reachable through their trait or impl.
type CrateDefs struct {
	Crate CrateID
	Items []DefID
}

// BlockDefs lists the items declared inside one block expression.
type BlockDefs struct {
	Block  BlockID
	Owner  DefWithBodyID
	Parent BlockID // enclosing block with items, if any
	Crate  CrateID
	Items  []DefID
}
