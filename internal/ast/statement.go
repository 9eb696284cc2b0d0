package ast

import (
	"fmt"

	"github.com/dekarrin/kernc/internal/kcerrors"
	"github.com/dekarrin/kernc/internal/source"
)

// Statement is a node in the statement tree. The set of statement types is
// closed; every implementation is defined in this package and embeds Node.
type Statement interface {
	// Kind returns the kind tag of the statement.
	Kind() Kind

	// Parent returns the statement that owns this one, or nil for the root.
	Parent() Statement

	// Attributes returns the attribute table of the statement.
	Attributes() *AttributeTable

	// Pos returns where the statement starts in source.
	Pos() source.Position

	setParent(p Statement)
}

// Container is a Statement that owns an ordered list of child statements.
// Children are addressed by index; Set replaces the child in a slot and makes
// the container its parent.
type Container interface {
	Statement
	Len() int
	At(i int) Statement
	Set(i int, s Statement) error
	Append(s Statement)
	Insert(i int, s Statement) error
}

// Node holds the fields common to every statement. It is embedded in every
// Statement type.
type Node struct {
	parent Statement
	attrs  AttributeTable
	pos    source.Position
}

// NodeAt returns a Node positioned at pos.
func NodeAt(pos source.Position) Node {
	return Node{pos: pos}
}

func (n *Node) Parent() Statement {
	return n.parent
}

func (n *Node) Attributes() *AttributeTable {
	return &n.attrs
}

func (n *Node) Pos() source.Position {
	return n.pos
}

func (n *Node) setParent(p Statement) {
	n.parent = p
}

// Body is the child list of a container statement.
type Body struct {
	Children []Statement
}

// Len returns the number of children.
func (b *Body) Len() int {
	return len(b.Children)
}

// At returns the child at index i.
func (b *Body) At(i int) Statement {
	return b.Children[i]
}

func (b *Body) set(owner Statement, i int, s Statement) error {
	if i < 0 || i >= len(b.Children) {
		return kcerrors.New(fmt.Sprintf("child index %d out of range for %s with %d children", i, owner.Kind(), len(b.Children)), kcerrors.ErrInternal)
	}
	if s == nil {
		return kcerrors.New("cannot place nil statement in "+owner.Kind().String(), kcerrors.ErrInternal)
	}
	b.Children[i] = s
	s.setParent(owner)
	return nil
}

func (b *Body) append(owner Statement, s Statement) {
	b.Children = append(b.Children, s)
	s.setParent(owner)
}

func (b *Body) insert(owner Statement, i int, s Statement) error {
	if i < 0 || i > len(b.Children) {
		return kcerrors.New(fmt.Sprintf("insert index %d out of range for %s with %d children", i, owner.Kind(), len(b.Children)), kcerrors.ErrInternal)
	}
	b.Children = append(b.Children, nil)
	copy(b.Children[i+1:], b.Children[i:])
	b.Children[i] = s
	s.setParent(owner)
	return nil
}

// EmptyStatement is a lone `;`. With attributes it is a standalone annotation
// such as `@barrier;`.
type EmptyStatement struct {
	Node
}

func (*EmptyStatement) Kind() Kind { return KindEmpty }

// PragmaStatement is a #pragma line. Text is everything after "pragma".
type PragmaStatement struct {
	Node
	Text string
}

func (*PragmaStatement) Kind() Kind { return KindPragma }

// RawStatement is backend source inserted by a transform. It is emitted
// verbatim on its own line; an empty Text emits nothing.
type RawStatement struct {
	Node
	Text string
}

func (*RawStatement) Kind() Kind { return KindRaw }

// NewRawStatement returns a RawStatement.
func NewRawStatement(text string, pos source.Position) *RawStatement {
	return &RawStatement{Node: NodeAt(pos), Text: text}
}

// ExprStatement is an expression followed by `;`.
type ExprStatement struct {
	Node
	X Expr
}

func (*ExprStatement) Kind() Kind { return KindExpression }

// NewExprStatement returns an ExprStatement.
func NewExprStatement(x Expr) *ExprStatement {
	return &ExprStatement{Node: NodeAt(x.Pos()), X: x}
}

// Declarator is a single declared variable within a Declaration.
type Declarator struct {
	Var  *Variable
	Init Expr
}

// Declaration declares one or more variables that share a base type.
type Declaration struct {
	Node
	Decls []Declarator
}

func (*Declaration) Kind() Kind { return KindDeclaration }

// NewDeclaration returns a Declaration of a single variable.
func NewDeclaration(v *Variable, init Expr) *Declaration {
	return &Declaration{Node: NodeAt(v.Pos), Decls: []Declarator{{Var: v, Init: init}}}
}

// TypeDeclStatement is a struct definition, a typedef, or both.
type TypeDeclStatement struct {
	Node

	// Struct is the struct defined by the statement, if any.
	Struct *StructDef

	// Alias is the typedef name, if any. Type is the aliased type.
	Alias string
	Type  *VarType
}

func (*TypeDeclStatement) Kind() Kind { return KindTypeDecl }

// FunctionDeclStatement is a function prototype.
type FunctionDeclStatement struct {
	Node
	Func *Function
}

func (*FunctionDeclStatement) Kind() Kind { return KindFunctionDecl }

// ContinueStatement is `continue;`.
type ContinueStatement struct {
	Node
}

func (*ContinueStatement) Kind() Kind { return KindContinue }

// BreakStatement is `break;`.
type BreakStatement struct {
	Node
}

func (*BreakStatement) Kind() Kind { return KindBreak }

// ReturnStatement is `return;` or `return Value;`.
type ReturnStatement struct {
	Node
	Value Expr
}

func (*ReturnStatement) Kind() Kind { return KindReturn }

// CaseStatement is a `case Value:` label inside a switch body.
type CaseStatement struct {
	Node
	Value Expr
}

func (*CaseStatement) Kind() Kind { return KindCase }

// DefaultStatement is a `default:` label inside a switch body.
type DefaultStatement struct {
	Node
}

func (*DefaultStatement) Kind() Kind { return KindDefault }

// BlockStatement is a list of statements. The root of a tree is a
// BlockStatement without braces; transforms also use braceless blocks to
// put several statements in one slot.
type BlockStatement struct {
	Node
	Body
	Braces bool
	Scope  *Scope
}

func (*BlockStatement) Kind() Kind { return KindBlock }

// NewBlock returns a BlockStatement holding children.
func NewBlock(pos source.Position, braces bool, children ...Statement) *BlockStatement {
	b := &BlockStatement{Node: NodeAt(pos), Braces: braces}
	for _, c := range children {
		b.Append(c)
	}
	return b
}

func (s *BlockStatement) Set(i int, c Statement) error    { return s.set(s, i, c) }
func (s *BlockStatement) Append(c Statement)              { s.append(s, c) }
func (s *BlockStatement) Insert(i int, c Statement) error { return s.insert(s, i, c) }

// FunctionStatement is a function definition. Its children are the function
// body.
type FunctionStatement struct {
	Node
	Body
	Func  *Function
	Scope *Scope
}

func (*FunctionStatement) Kind() Kind { return KindFunction }

func (s *FunctionStatement) Set(i int, c Statement) error    { return s.set(s, i, c) }
func (s *FunctionStatement) Append(c Statement)              { s.append(s, c) }
func (s *FunctionStatement) Insert(i int, c Statement) error { return s.insert(s, i, c) }

// IfStatement is an if with its else-if and else branches. Its child slots
// are the statements of its body followed by each ElifStatement and then the
// ElseStatement, if present.
type IfStatement struct {
	Node
	Body
	Cond  Expr
	Elifs []*ElifStatement
	Else  *ElseStatement
}

func (*IfStatement) Kind() Kind { return KindIf }

// AddElif appends an else-if branch.
func (s *IfStatement) AddElif(e *ElifStatement) {
	s.Elifs = append(s.Elifs, e)
	e.setParent(s)
}

// SetElse sets the else branch.
func (s *IfStatement) SetElse(e *ElseStatement) {
	s.Else = e
	if e != nil {
		e.setParent(s)
	}
}

func (s *IfStatement) Len() int {
	n := len(s.Children) + len(s.Elifs)
	if s.Else != nil {
		n++
	}
	return n
}

func (s *IfStatement) At(i int) Statement {
	if i < len(s.Children) {
		return s.Children[i]
	}
	i -= len(s.Children)
	if i < len(s.Elifs) {
		return s.Elifs[i]
	}
	return s.Else
}

// Set replaces the child in slot i. Branch slots only accept a statement of
// the same branch kind; anything else is a TypeMismatch.
func (s *IfStatement) Set(i int, c Statement) error {
	if i < len(s.Children) {
		return s.set(s, i, c)
	}

	bi := i - len(s.Children)
	if bi < len(s.Elifs) {
		elif, err := To[*ElifStatement](c)
		if err != nil {
			return err
		}
		s.Elifs[bi] = elif
		elif.setParent(s)
		return nil
	}

	if bi == len(s.Elifs) && s.Else != nil {
		els, err := To[*ElseStatement](c)
		if err != nil {
			return err
		}
		s.SetElse(els)
		return nil
	}

	return kcerrors.New(fmt.Sprintf("child index %d out of range for if with %d slots", i, s.Len()), kcerrors.ErrInternal)
}

func (s *IfStatement) Append(c Statement)              { s.append(s, c) }
func (s *IfStatement) Insert(i int, c Statement) error { return s.insert(s, i, c) }

// ElifStatement is an `else if` branch.
type ElifStatement struct {
	Node
	Body
	Cond Expr
}

func (*ElifStatement) Kind() Kind { return KindElif }

func (s *ElifStatement) Set(i int, c Statement) error    { return s.set(s, i, c) }
func (s *ElifStatement) Append(c Statement)              { s.append(s, c) }
func (s *ElifStatement) Insert(i int, c Statement) error { return s.insert(s, i, c) }

// ElseStatement is an `else` branch.
type ElseStatement struct {
	Node
	Body
}

func (*ElseStatement) Kind() Kind { return KindElse }

func (s *ElseStatement) Set(i int, c Statement) error    { return s.set(s, i, c) }
func (s *ElseStatement) Append(c Statement)              { s.append(s, c) }
func (s *ElseStatement) Insert(i int, c Statement) error { return s.insert(s, i, c) }

// ForStatement is a for loop. Init is a Declaration, an ExprStatement or nil;
// it is owned by the loop but is not one of its child slots.
type ForStatement struct {
	Node
	Body
	Init   Statement
	Cond   Expr
	Update Expr
	Scope  *Scope
}

func (*ForStatement) Kind() Kind { return KindFor }

// SetInit sets the init statement of the loop.
func (s *ForStatement) SetInit(init Statement) {
	s.Init = init
	if init != nil {
		init.setParent(s)
	}
}

func (s *ForStatement) Set(i int, c Statement) error    { return s.set(s, i, c) }
func (s *ForStatement) Append(c Statement)              { s.append(s, c) }
func (s *ForStatement) Insert(i int, c Statement) error { return s.insert(s, i, c) }

// WhileStatement is a while loop, or a do-while loop when Do is set.
type WhileStatement struct {
	Node
	Body
	Cond Expr
	Do   bool
}

func (*WhileStatement) Kind() Kind { return KindWhile }

func (s *WhileStatement) Set(i int, c Statement) error    { return s.set(s, i, c) }
func (s *WhileStatement) Append(c Statement)              { s.append(s, c) }
func (s *WhileStatement) Insert(i int, c Statement) error { return s.insert(s, i, c) }

// SwitchStatement is a switch. Case and default labels are ordinary children.
type SwitchStatement struct {
	Node
	Body
	Value Expr
}

func (*SwitchStatement) Kind() Kind { return KindSwitch }

func (s *SwitchStatement) Set(i int, c Statement) error    { return s.set(s, i, c) }
func (s *SwitchStatement) Append(c Statement)              { s.append(s, c) }
func (s *SwitchStatement) Insert(i int, c Statement) error { return s.insert(s, i, c) }

// IndexOf returns the slot of child within its parent container, or -1 if
// child has no parent container.
func IndexOf(child Statement) (Container, int) {
	parent, ok := child.Parent().(Container)
	if !ok {
		return nil, -1
	}
	for i := 0; i < parent.Len(); i++ {
		if parent.At(i) == child {
			return parent, i
		}
	}
	return parent, -1
}

// Reparent makes p the parent of s. It is used by transforms that move an
// existing statement into a new owner outside of a container slot.
func Reparent(s Statement, p Statement) {
	s.setParent(p)
}
