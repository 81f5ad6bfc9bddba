package hir

// TypeRefKind enumerates syntactic type forms.
type TypeRefKind uint8

const (
	// TypeRefError is a type that failed to resolve.
	TypeRefError TypeRefKind = iota
	// TypeRefInfer is `_`.
	TypeRefInfer
	// TypeRefNever is `!`.
	TypeRefNever
	// TypeRefBuiltin is a primitive named by Builtin ("i32", "bool", "str", ...).
	TypeRefBuiltin
	// TypeRefTuple is `(A, B)`; the empty tuple is unit.
	TypeRefTuple
	// TypeRefPath names an ADT or a type alias (Def) with generic Args.
	TypeRefPath
	// TypeRefParam names a generic type parameter.
	TypeRefParam
	// TypeRefSelf is `Self` inside a trait or impl.
	TypeRefSelf
	// TypeRefRef is `&T` or `&mut T`.
	TypeRefRef
	// TypeRefSlice is `[T]`.
	TypeRefSlice
	// TypeRefArray is `[T; N]`.
	TypeRefArray
	// TypeRefFn is `fn(A, B) -> R`; Args holds the parameters, Ret the result.
	TypeRefFn
	// TypeRefAssoc is `Base::Name` or, with a Bound, `<Base as Trait>::Name`.
	TypeRefAssoc
	// TypeRefImplTrait is `impl Trait + ...`.
	TypeRefImplTrait
)

func (k TypeRefKind) String() string {
	switch k {
	case TypeRefError:
		return "Error"
	case TypeRefInfer:
		return "Infer"
	case TypeRefNever:
		return "Never"
	case TypeRefBuiltin:
		return "Builtin"
	case TypeRefTuple:
		return "Tuple"
	case TypeRefPath:
		return "Path"
	case TypeRefParam:
		return "Param"
	case TypeRefSelf:
		return "Self"
	case TypeRefRef:
		return "Ref"
	case TypeRefSlice:
		return "Slice"
	case TypeRefArray:
		return "Array"
	case TypeRefFn:
		return "Fn"
	case TypeRefAssoc:
		return "Assoc"
	case TypeRefImplTrait:
		return "ImplTrait"
	default:
		return "Unknown"
	}
}

// TypeRef is a syntactic type whose paths are already resolved. A const
// generic argument is written as a TypeRef whose Len holds the value.
type TypeRef struct {
	Kind     TypeRefKind
	Builtin  string
	Def      DefID
	Param    TypeOrConstParamID
	Args     []TypeRef
	Elem     *TypeRef
	Ret      *TypeRef
	Mut      bool
	Lifetime *LifetimeRef
	Len      *ConstRef
	Assoc    string
	Bound    *TypeBound
	Bounds   []TypeBound
}

// LifetimeRef is a lifetime written in a reference type.
type LifetimeRef struct {
	Static bool
	Param  LifetimeParamID
}

// ConstRefKind enumerates const argument forms.
type ConstRefKind uint8

const (
	ConstRefLiteral ConstRefKind = iota
	ConstRefPath
	ConstRefParam
	ConstRefUnknown
)

// ConstRef is a const argument: an array length or a const generic argument.
type ConstRef struct {
	Kind  ConstRefKind
	Value uint64
	Const ConstID
	Param TypeOrConstParamID
}

// AssocBinding is `Name = Type` inside a trait bound.
type AssocBinding struct {
	Name string
	Type TypeRef
}

// TypeBound is a trait bound `Trait<Args, Name = Type>`.
type TypeBound struct {
	Trait    TraitID
	Args     []TypeRef
	Bindings []AssocBinding
}

// Type reference helpers -----------------------------------------------------

// Unit returns the `()` type reference.
func Unit() TypeRef { return TypeRef{Kind: TypeRefTuple} }

// Builtin returns a primitive type reference.
func Builtin(name string) TypeRef { return TypeRef{Kind: TypeRefBuiltin, Builtin: name} }

// Path returns a reference to a nominal type.
func Path(def DefID, args ...TypeRef) TypeRef {
	return TypeRef{Kind: TypeRefPath, Def: def, Args: args}
}

// Param returns a reference to a generic parameter.
func Param(id TypeOrConstParamID) TypeRef { return TypeRef{Kind: TypeRefParam, Param: id} }

// Ref returns `&elem` or `&mut elem`.
func Ref(elem TypeRef, mut bool) TypeRef {
	return TypeRef{Kind: TypeRefRef, Elem: &elem, Mut: mut}
}

// ConstArg returns a const generic argument.
func ConstArg(c ConstRef) TypeRef { return TypeRef{Kind: TypeRefError, Len: &c} }

// IsConstArg reports whether the reference is a const generic argument.
func (t TypeRef) IsConstArg() bool { return t.Kind == TypeRefError && t.Len != nil }
