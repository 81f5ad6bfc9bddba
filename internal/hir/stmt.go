package hir

// StmtKind enumerates statement kinds.
type StmtKind uint8

const (
	// StmtLet represents `let pat: Type = init;`.
	StmtLet StmtKind = iota
	// StmtExpr represents an expression statement.
	StmtExpr
)

// String returns a human-readable name for the statement kind.
func (k StmtKind) String() string {
	switch k {
	case StmtLet:
		return "Let"
	case StmtExpr:
		return "Expr"
	default:
		return "Unknown"
	}
}

// Stmt is one statement of a block.
type Stmt struct {
	Kind StmtKind
	Pat  PatID
	Type *TypeRef
	Expr ExprID // initializer for StmtLet (may be NoExprID)
}

// PatKind enumerates pattern kinds.
type PatKind uint8

const (
	PatWild PatKind = iota
	PatBind
	PatTuple
)

// Pat is one node of a body's pattern arena.
type Pat struct {
	Kind  PatKind
	Name  string
	Mut   bool
	Elems []PatID
}

// Body is the expression and pattern tree of a function, const or static.
// Arena slot 0 is reserved so that NoExprID and NoPatID never name a node.
type Body struct {
	Owner  DefWithBodyID
	Params []PatID
	Exprs  []Expr
	Pats   []Pat
	Root   ExprID
}

// NewBody returns an empty body with the reserved arena slots in place.
func NewBody(owner DefWithBodyID) *Body {
	return &Body{
		Owner: owner,
		Exprs: []Expr{{Kind: ExprMissing}},
		Pats:  []Pat{{Kind: PatWild}},
	}
}

// AddExpr appends an expression and returns its ID.
func (b *Body) AddExpr(e Expr) ExprID {
	b.Exprs = append(b.Exprs, e)
	return ExprID(len(b.Exprs) - 1)
}

// AddPat appends a pattern and returns its ID.
func (b *Body) AddPat(p Pat) PatID {
	b.Pats = append(b.Pats, p)
	return PatID(len(b.Pats) - 1)
}

// Expr returns the expression with the given ID; unknown IDs yield a
// missing expression.
func (b *Body) Expr(id ExprID) Expr {
	if !id.IsValid() || int(id) >= len(b.Exprs) {
		return Expr{Kind: ExprMissing}
	}
	return b.Exprs[id]
}

// Pat returns the pattern with the given ID; unknown IDs yield a wildcard.
func (b *Body) Pat(id PatID) Pat {
	if !id.IsValid() || int(id) >= len(b.Pats) {
		return Pat{Kind: PatWild}
	}
	return b.Pats[id]
}
