package hir

// ExprKind enumerates body expression kinds.
type ExprKind uint8

const (
	// ExprMissing is an expression that failed to parse or resolve.
	ExprMissing ExprKind = iota
	// ExprLiteral represents literals (int, float, bool, char, string).
	ExprLiteral
	// ExprPath represents a reference to a local binding or a value definition.
	ExprPath
	// ExprCall represents `callee(args)`.
	ExprCall
	// ExprMethodCall represents `receiver.method(args)`.
	ExprMethodCall
	// ExprField represents `expr.name`.
	ExprField
	// ExprStructLit represents `Path { field: value, ... }`.
	ExprStructLit
	// ExprTuple represents `(a, b)`.
	ExprTuple
	// ExprArray represents `[a, b, c]`.
	ExprArray
	// ExprRef represents `&expr` and `&mut expr`.
	ExprRef
	// ExprDeref represents `*expr`.
	ExprDeref
	// ExprUnary represents `-expr` and `!expr`.
	ExprUnary
	// ExprBinary represents binary operators.
	ExprBinary
	// ExprIf represents `if cond { } else { }`.
	ExprIf
	// ExprBlock represents `{ stmts; tail }`.
	ExprBlock
	// ExprReturn represents `return expr`.
	ExprReturn
	// ExprClosure represents `|params| body`.
	ExprClosure
	// ExprIndex represents `base[index]`.
	ExprIndex
)

// String returns a human-readable name for the expression kind.
func (k ExprKind) String() string {
	switch k {
	case ExprMissing:
		return "Missing"
	case ExprLiteral:
		return "Literal"
	case ExprPath:
		return "Path"
	case ExprCall:
		return "Call"
	case ExprMethodCall:
		return "MethodCall"
	case ExprField:
		return "Field"
	case ExprStructLit:
		return "StructLit"
	case ExprTuple:
		return "Tuple"
	case ExprArray:
		return "Array"
	case ExprRef:
		return "Ref"
	case ExprDeref:
		return "Deref"
	case ExprUnary:
		return "Unary"
	case ExprBinary:
		return "Binary"
	case ExprIf:
		return "If"
	case ExprBlock:
		return "Block"
	case ExprReturn:
		return "Return"
	case ExprClosure:
		return "Closure"
	case ExprIndex:
		return "Index"
	default:
		return "Unknown"
	}
}

// Expr is one node of a body's expression arena.
type Expr struct {
	Kind ExprKind
	Data ExprData // Kind-specific payload
}

// ExprData is the interface for expression-specific data.
type ExprData interface {
	exprData()
}

// LiteralKind enumerates literal value kinds.
type LiteralKind uint8

const (
	LiteralInt LiteralKind = iota
	LiteralFloat
	LiteralBool
	LiteralChar
	LiteralString
)

// LiteralData holds data for ExprLiteral.
type LiteralData struct {
	Kind   LiteralKind
	Int    uint64
	Float  float64
	Bool   bool
	Text   string // char and string literals
	Suffix string // "u8", "i64", "f32", ...
}

func (LiteralData) exprData() {}

// PathKind distinguishes what an expression path resolved to.
type PathKind uint8

const (
	// PathLocal refers to a binding pattern of the same body.
	PathLocal PathKind = iota
	// PathValue refers to a value definition.
	PathValue
	// PathAssoc is `Type::name`, resolved through the type's impls.
	PathAssoc
	// PathUnresolved is a path name resolution could not resolve.
	PathUnresolved
)

// PathData holds data for ExprPath.
type PathData struct {
	Kind    PathKind
	Local   PatID
	Value   ValueTyDefID
	SelfTy  *TypeRef
	Name    string
	Generic []TypeRef // explicit generic arguments
}

func (PathData) exprData() {}

// CallData holds data for ExprCall.
type CallData struct {
	Callee ExprID
	Args   []ExprID
}

func (CallData) exprData() {}

// MethodCallData holds data for ExprMethodCall.
type MethodCallData struct {
	Receiver ExprID
	Method   string
	Args     []ExprID
	Generic  []TypeRef
}

func (MethodCallData) exprData() {}

// FieldAccessData holds data for ExprField. Tuple fields are named "0", "1", ...
type FieldAccessData struct {
	Base ExprID
	Name string
}

func (FieldAccessData) exprData() {}

// FieldInit is one `name: value` of a struct literal.
type FieldInit struct {
	Name  string
	Value ExprID
}

// StructLitData holds data for ExprStructLit.
type StructLitData struct {
	Variant VariantID
	Fields  []FieldInit
}

func (StructLitData) exprData() {}

// ElementsData holds data for ExprTuple and ExprArray.
type ElementsData struct {
	Elems []ExprID
}

func (ElementsData) exprData() {}

// RefData holds data for ExprRef.
type RefData struct {
	Mut  bool
	Expr ExprID
}

func (RefData) exprData() {}

// UnaryOp enumerates prefix operators.
type UnaryOp uint8

const (
	UnaryNeg UnaryOp = iota
	UnaryNot
)

// UnaryData holds data for ExprUnary and ExprDeref.
type UnaryData struct {
	Op   UnaryOp
	Expr ExprID
}

func (UnaryData) exprData() {}

// BinaryOp enumerates infix operators.
type BinaryOp uint8

const (
	BinAdd BinaryOp = iota
	BinSub
	BinMul
	BinDiv
	BinRem
	BinEq
	BinNe
	BinLt
	BinLe
	BinGt
	BinGe
	BinAnd
	BinOr
	BinAssign
)

var binaryOpText = [...]string{
	BinAdd: "+", BinSub: "-", BinMul: "*", BinDiv: "/", BinRem: "%",
	BinEq: "==", BinNe: "!=", BinLt: "<", BinLe: "<=", BinGt: ">", BinGe: ">=",
	BinAnd: "&&", BinOr: "||", BinAssign: "=",
}

func (op BinaryOp) String() string {
	if int(op) < len(binaryOpText) {
		return binaryOpText[op]
	}
	return "?"
}

// IsArithmetic reports whether op is +, -, *, / or %.
func (op BinaryOp) IsArithmetic() bool { return op <= BinRem }

// IsComparison reports whether op compares its operands.
func (op BinaryOp) IsComparison() bool { return op >= BinEq && op <= BinGe }

// IsLogical reports whether op is && or ||.
func (op BinaryOp) IsLogical() bool { return op == BinAnd || op == BinOr }

// BinaryData holds data for ExprBinary.
type BinaryData struct {
	Op    BinaryOp
	Left  ExprID
	Right ExprID
}

func (BinaryData) exprData() {}

// IfData holds data for ExprIf.
type IfData struct {
	Cond ExprID
	Then ExprID
	Else ExprID // NoExprID if no else branch
}

func (IfData) exprData() {}

// BlockData holds data for ExprBlock.
type BlockData struct {
	// Block is set when the block declares items.
	Block BlockID
	Stmts []Stmt
	Tail  ExprID
}

func (BlockData) exprData() {}

// ReturnData holds data for ExprReturn.
type ReturnData struct {
	Expr ExprID // NoExprID for a bare return
}

func (ReturnData) exprData() {}

// ClosureData holds data for ExprClosure.
type ClosureData struct {
	Params   []PatID
	ParamTys []*TypeRef
	Ret      *TypeRef
	Body     ExprID
}

func (ClosureData) exprData() {}

// IndexData holds data for ExprIndex.
type IndexData struct {
	Base  ExprID
	Index ExprID
}

func (IndexData) exprData() {}
