package ast

import "github.com/dekarrin/kernc/internal/source"

// Expr is an expression node. Expressions are owned by the statement or
// declaration that holds them.
type Expr interface {
	Pos() source.Position
	exprNode()
}

// ExprPos is embedded in every expression type to hold its position.
type ExprPos struct {
	P source.Position
}

// At returns an ExprPos for pos.
func At(pos source.Position) ExprPos {
	return ExprPos{P: pos}
}

func (e ExprPos) Pos() source.Position {
	return e.P
}

func (ExprPos) exprNode() {}

// LiteralKind is the kind of a Literal.
type LiteralKind int

const (
	IntLit LiteralKind = iota
	FloatLit
	CharLit
	StringLit
	BoolLit
)

// Ident is a reference to a name. Var is set when the name resolves to a
// declared variable.
type Ident struct {
	ExprPos
	Name string
	Var  *Variable
}

// Literal is a constant as written in source.
type Literal struct {
	ExprPos
	Kind LiteralKind
	Text string
}

// Unary is a prefix or postfix operator application.
type Unary struct {
	ExprPos
	Op      string
	X       Expr
	Postfix bool
}

// Binary is an infix operator application, including assignments and the
// comma operator.
type Binary struct {
	ExprPos
	Op string
	X  Expr
	Y  Expr
}

// Ternary is `Cond ? Then : Else`.
type Ternary struct {
	ExprPos
	Cond Expr
	Then Expr
	Else Expr
}

// Call is a function call.
type Call struct {
	ExprPos
	Fn   Expr
	Args []Expr
}

// Subscript is `X[Index]`.
type Subscript struct {
	ExprPos
	X     Expr
	Index Expr
}

// Member is `X.Name` or `X->Name`.
type Member struct {
	ExprPos
	X     Expr
	Name  string
	Arrow bool
}

// Cast is `(Type) X`.
type Cast struct {
	ExprPos
	Type *VarType
	X    Expr
}

// Sizeof is `sizeof(Type)` or `sizeof X`. Exactly one of Type and X is set.
type Sizeof struct {
	ExprPos
	Type *VarType
	X    Expr
}

// Paren is a parenthesized expression.
type Paren struct {
	ExprPos
	X Expr
}

// InitList is a brace initializer.
type InitList struct {
	ExprPos
	Elems []Expr
}

// RawExpr is backend source text inserted by a transform, such as a thread
// index expression. It is emitted verbatim.
type RawExpr struct {
	ExprPos
	Text string
}

// NewIdent returns an Ident that refers to v.
func NewIdent(v *Variable, pos source.Position) *Ident {
	return &Ident{ExprPos: ExprPos{P: pos}, Name: v.Name, Var: v}
}

// NewInt returns an integer Literal.
func NewInt(text string, pos source.Position) *Literal {
	return &Literal{ExprPos: ExprPos{P: pos}, Kind: IntLit, Text: text}
}

// NewBinary returns a Binary expression positioned at x.
func NewBinary(op string, x, y Expr) *Binary {
	return &Binary{ExprPos: ExprPos{P: x.Pos()}, Op: op, X: x, Y: y}
}

// NewParen wraps x in parentheses unless it is already atomic.
func NewParen(x Expr) Expr {
	switch x.(type) {
	case *Ident, *Literal, *Paren, *RawExpr, *Call, *Subscript, *Member:
		return x
	}
	return &Paren{ExprPos: ExprPos{P: x.Pos()}, X: x}
}

// NewRaw returns a RawExpr.
func NewRaw(text string, pos source.Position) *RawExpr {
	return &RawExpr{ExprPos: ExprPos{P: pos}, Text: text}
}

// IsLiteralInt returns whether e is the integer literal with the given text.
func IsLiteralInt(e Expr, text string) bool {
	lit, ok := e.(*Literal)
	return ok && lit.Kind == IntLit && lit.Text == text
}

// CloneExpr returns a deep copy of e. Variables referenced by identifiers and
// types in casts are shared with the original.
func CloneExpr(e Expr) Expr {
	switch x := e.(type) {
	case nil:
		return nil
	case *Ident:
		c := *x
		return &c
	case *Literal:
		c := *x
		return &c
	case *RawExpr:
		c := *x
		return &c
	case *Unary:
		c := *x
		c.X = CloneExpr(x.X)
		return &c
	case *Binary:
		c := *x
		c.X = CloneExpr(x.X)
		c.Y = CloneExpr(x.Y)
		return &c
	case *Ternary:
		c := *x
		c.Cond = CloneExpr(x.Cond)
		c.Then = CloneExpr(x.Then)
		c.Else = CloneExpr(x.Else)
		return &c
	case *Call:
		c := *x
		c.Fn = CloneExpr(x.Fn)
		c.Args = cloneExprs(x.Args)
		return &c
	case *Subscript:
		c := *x
		c.X = CloneExpr(x.X)
		c.Index = CloneExpr(x.Index)
		return &c
	case *Member:
		c := *x
		c.X = CloneExpr(x.X)
		return &c
	case *Cast:
		c := *x
		c.X = CloneExpr(x.X)
		return &c
	case *Sizeof:
		c := *x
		c.X = CloneExpr(x.X)
		return &c
	case *Paren:
		c := *x
		c.X = CloneExpr(x.X)
		return &c
	case *InitList:
		c := *x
		c.Elems = cloneExprs(x.Elems)
		return &c
	}
	return e
}

func cloneExprs(es []Expr) []Expr {
	if es == nil {
		return nil
	}
	out := make([]Expr, len(es))
	for i := range es {
		out[i] = CloneExpr(es[i])
	}
	return out
}
