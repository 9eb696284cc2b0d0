// Package parse builds a statement tree from preprocessed kernel tokens.
//
// Statements are parsed by recursive descent and expressions by a Pratt
// parser using C operator precedence. Whether a statement is a declaration or
// an expression is decided by looking names up in the scope chain, so a
// typedef or struct name is a type from the point it is declared onward.
//
// Attributes are checked against the attribute registry as they are attached;
// the first error of any kind stops the parse.
package parse

import (
	"errors"
	"strings"

	"github.com/dekarrin/kernc/internal/ast"
	"github.com/dekarrin/kernc/internal/attr"
	"github.com/dekarrin/kernc/internal/kcerrors"
	"github.com/dekarrin/kernc/internal/lex"
	"github.com/dekarrin/kernc/internal/source"
)

const stage = "parse"

type parser struct {
	file     *source.File
	toks     []lex.Token
	cur      int
	reg      *attr.Registry
	scope    *ast.Scope
	warnings []*kcerrors.Diagnostic
}

// Parse builds the statement tree of a translation unit from toks, which must
// end with an EndOfText token. If reg is nil, the default attribute registry
// is used. Non-fatal warnings are returned alongside the tree; on error, the
// tree is nil and the error is a *kcerrors.Diagnostic.
func Parse(f *source.File, toks []lex.Token, reg *attr.Registry) (*ast.BlockStatement, []*kcerrors.Diagnostic, error) {
	if reg == nil {
		reg = attr.Default()
	}
	if len(toks) == 0 || toks[len(toks)-1].Class != lex.EndOfText {
		toks = append(toks, lex.Token{Class: lex.EndOfText})
	}

	p := &parser{
		file:  f,
		toks:  toks,
		reg:   reg,
		scope: ast.NewGlobalScope(),
	}

	root, err := p.parseUnit()
	if err != nil {
		d := kcerrors.Wrap(err, stage, p.peek().Pos)
		return nil, p.warnings, d.WithSourceLine(f)
	}

	for _, w := range p.warnings {
		w.WithSourceLine(f)
	}
	return root, p.warnings, nil
}

func (p *parser) peek() lex.Token {
	return p.toks[p.cur]
}

func (p *parser) peekAt(n int) lex.Token {
	if p.cur+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.cur+n]
}

func (p *parser) next() lex.Token {
	tok := p.toks[p.cur]
	if tok.Class != lex.EndOfText {
		p.cur++
	}
	return tok
}

func (p *parser) atEnd() bool {
	return p.peek().Class == lex.EndOfText
}

// accept consumes the next token if it is the punctuation s.
func (p *parser) accept(s string) bool {
	if p.peek().IsPunct(s) {
		p.next()
		return true
	}
	return false
}

func (p *parser) expect(s string) (lex.Token, error) {
	tok := p.peek()
	if !tok.IsPunct(s) {
		return tok, p.errorf(tok.Pos, "expected '%s', found %s", s, tok.Human())
	}
	return p.next(), nil
}

func (p *parser) expectIdent(what string) (lex.Token, error) {
	tok := p.peek()
	if tok.Class != lex.Identifier {
		return tok, p.errorf(tok.Pos, "expected %s, found %s", what, tok.Human())
	}
	return p.next(), nil
}

func (p *parser) errorf(pos source.Position, format string, a ...interface{}) error {
	return kcerrors.Errorf(kcerrors.ErrSyntax, stage, pos, format, a...)
}

func (p *parser) warnf(pos source.Position, format string, a ...interface{}) {
	p.warnings = append(p.warnings, kcerrors.Warningf(stage, pos, format, a...))
}

// qualifierError converts a qualifier validation failure into a diagnostic at
// pos.
func (p *parser) qualifierError(err error, pos source.Position) error {
	var ke kcerrors.Error
	if errors.As(err, &ke) {
		return kcerrors.Errorf(kcerrors.ErrQualifierConflict, stage, pos, "%s", strings.TrimSuffix(ke.Error(), ": "+kcerrors.ErrQualifierConflict.Error()))
	}
	return kcerrors.Wrap(err, stage, pos)
}

func (p *parser) pushScope() *ast.Scope {
	p.scope = ast.NewScope(p.scope)
	return p.scope
}

func (p *parser) popScope() {
	p.scope = p.scope.Parent()
}

func (p *parser) declare(v *ast.Variable) error {
	if err := p.scope.DeclareVariable(v); err != nil {
		return p.errorf(v.Pos, "%s", err.Error())
	}
	return nil
}

func (p *parser) parseUnit() (*ast.BlockStatement, error) {
	root := ast.NewBlock(source.Position{File: p.file.Name, Line: 1, Column: 1}, false)
	root.Scope = p.scope

	for !p.atEnd() {
		st, err := p.parseStatement(true)
		if err != nil {
			return nil, err
		}
		root.Append(st)
	}

	return root, nil
}

// parseStatement parses one statement along with any attributes before it.
func (p *parser) parseStatement(global bool) (ast.Statement, error) {
	attrs, err := p.parseAttributes()
	if err != nil {
		return nil, err
	}

	st, err := p.parseBareStatement(global)
	if err != nil {
		return nil, err
	}

	if err := p.attachStatementAttributes(st, attrs); err != nil {
		return nil, err
	}
	return st, nil
}

func (p *parser) parseBareStatement(global bool) (ast.Statement, error) {
	tok := p.peek()

	if global {
		switch {
		case tok.Class == lex.Directive, tok.IsPunct(";"), tok.IsKeyword("typedef"), p.isTypeStart(0):
		default:
			return nil, p.errorf(tok.Pos, "expected a declaration or function definition, found %s", tok.Human())
		}
	}

	switch {
	case tok.Class == lex.Directive:
		return p.parsePragma()
	case tok.IsPunct(";"):
		p.next()
		return &ast.EmptyStatement{Node: ast.NodeAt(tok.Pos)}, nil
	case tok.IsPunct("{"):
		return p.parseBlock()
	case tok.IsKeyword("if"):
		return p.parseIf()
	case tok.IsKeyword("for"):
		return p.parseFor()
	case tok.IsKeyword("while"):
		return p.parseWhile()
	case tok.IsKeyword("do"):
		return p.parseDoWhile()
	case tok.IsKeyword("switch"):
		return p.parseSwitch()
	case tok.IsKeyword("case"):
		return p.parseCase()
	case tok.IsKeyword("default"):
		p.next()
		if _, err := p.expect(":"); err != nil {
			return nil, err
		}
		return &ast.DefaultStatement{Node: ast.NodeAt(tok.Pos)}, nil
	case tok.IsKeyword("break"):
		p.next()
		if _, err := p.expect(";"); err != nil {
			return nil, err
		}
		return &ast.BreakStatement{Node: ast.NodeAt(tok.Pos)}, nil
	case tok.IsKeyword("continue"):
		p.next()
		if _, err := p.expect(";"); err != nil {
			return nil, err
		}
		return &ast.ContinueStatement{Node: ast.NodeAt(tok.Pos)}, nil
	case tok.IsKeyword("return"):
		return p.parseReturn()
	case tok.IsKeyword("typedef"):
		return p.parseTypedef()
	case tok.IsKeyword("else"):
		return nil, p.errorf(tok.Pos, "'else' without a matching 'if'")
	case p.isTypeStart(0):
		return p.parseDeclarationOrFunction(global)
	case tok.Class == lex.EndOfText:
		return nil, p.errorf(tok.Pos, "unexpected end of input")
	}

	x, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(";"); err != nil {
		return nil, err
	}
	return ast.NewExprStatement(x), nil
}

func (p *parser) parsePragma() (ast.Statement, error) {
	tok := p.next()
	name, rest, _ := strings.Cut(tok.Lexeme, " ")
	if name != "pragma" {
		return nil, p.errorf(tok.Pos, "unexpected directive '#%s'", name)
	}
	return &ast.PragmaStatement{Node: ast.NodeAt(tok.Pos), Text: strings.TrimSpace(rest)}, nil
}

func (p *parser) parseBlock() (*ast.BlockStatement, error) {
	open, err := p.expect("{")
	if err != nil {
		return nil, err
	}

	blk := ast.NewBlock(open.Pos, true)
	blk.Scope = p.pushScope()
	defer p.popScope()

	if err := p.parseStatementsUntilClose(blk); err != nil {
		return nil, err
	}
	return blk, nil
}

// parseStatementsUntilClose appends statements to c up to and including the
// closing brace.
func (p *parser) parseStatementsUntilClose(c ast.Container) error {
	for !p.peek().IsPunct("}") {
		if p.atEnd() {
			return p.errorf(p.peek().Pos, "expected '}', found end of input")
		}
		st, err := p.parseStatement(false)
		if err != nil {
			return err
		}
		c.Append(st)
	}
	p.next()
	return nil
}

// parseBody parses the body of a control statement into c. A braced block
// body has its statements placed in c directly.
func (p *parser) parseBody(c ast.Container) error {
	if p.peek().IsPunct("{") {
		p.next()
		p.pushScope()
		defer p.popScope()
		return p.parseStatementsUntilClose(c)
	}

	st, err := p.parseStatement(false)
	if err != nil {
		return err
	}
	if _, isDecl := st.(*ast.Declaration); isDecl {
		return p.errorf(st.Pos(), "a declaration cannot be the body of a control statement")
	}
	c.Append(st)
	return nil
}

func (p *parser) parseParenCond(what string) (ast.Expr, error) {
	if _, err := p.expect("("); err != nil {
		return nil, err
	}
	if p.peek().IsPunct(")") {
		return nil, p.errorf(p.peek().Pos, "%s requires a condition", what)
	}
	cond, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(")"); err != nil {
		return nil, err
	}
	return cond, nil
}

func (p *parser) parseIf() (ast.Statement, error) {
	tok := p.next()
	cond, err := p.parseParenCond("if")
	if err != nil {
		return nil, err
	}

	ifs := &ast.IfStatement{Node: ast.NodeAt(tok.Pos), Cond: cond}
	if err := p.parseBody(ifs); err != nil {
		return nil, err
	}

	for p.peek().IsKeyword("else") {
		elseTok := p.next()
		if p.peek().IsKeyword("if") {
			p.next()
			cond, err := p.parseParenCond("else if")
			if err != nil {
				return nil, err
			}
			elif := &ast.ElifStatement{Node: ast.NodeAt(elseTok.Pos), Cond: cond}
			if err := p.parseBody(elif); err != nil {
				return nil, err
			}
			ifs.AddElif(elif)
			continue
		}

		els := &ast.ElseStatement{Node: ast.NodeAt(elseTok.Pos)}
		if err := p.parseBody(els); err != nil {
			return nil, err
		}
		ifs.SetElse(els)
		break
	}

	return ifs, nil
}

func (p *parser) parseFor() (ast.Statement, error) {
	tok := p.next()
	if _, err := p.expect("("); err != nil {
		return nil, err
	}

	loop := &ast.ForStatement{Node: ast.NodeAt(tok.Pos)}
	loop.Scope = p.pushScope()
	defer p.popScope()

	// init
	if !p.accept(";") {
		var init ast.Statement
		var err error
		if p.isTypeStart(0) {
			init, err = p.parseDeclarationOrFunction(false)
		} else {
			var x ast.Expr
			x, err = p.parseExpr(0)
			if err == nil {
				_, err = p.expect(";")
				init = ast.NewExprStatement(x)
			}
		}
		if err != nil {
			return nil, err
		}
		loop.SetInit(init)
	}

	// condition
	if !p.peek().IsPunct(";") {
		cond, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		loop.Cond = cond
	}
	if _, err := p.expect(";"); err != nil {
		return nil, err
	}

	// update
	if !p.peek().IsPunct(")") && !p.peek().IsPunct(";") {
		update, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		loop.Update = update
	}

	// attribute clause
	if p.accept(";") {
		attrs, err := p.parseAttributes()
		if err != nil {
			return nil, err
		}
		if len(attrs) == 0 {
			return nil, p.errorf(p.peek().Pos, "expected loop attributes after fourth ';', found %s", p.peek().Human())
		}
		for _, a := range attrs {
			if err := p.reg.Attach(loop.Attributes(), a, attr.TargetFor); err != nil {
				return nil, err
			}
		}
	}

	if _, err := p.expect(")"); err != nil {
		return nil, err
	}

	if err := p.parseBody(loop); err != nil {
		return nil, err
	}
	return loop, nil
}

func (p *parser) parseWhile() (ast.Statement, error) {
	tok := p.next()
	cond, err := p.parseParenCond("while")
	if err != nil {
		return nil, err
	}

	w := &ast.WhileStatement{Node: ast.NodeAt(tok.Pos), Cond: cond}
	if err := p.parseBody(w); err != nil {
		return nil, err
	}
	return w, nil
}

func (p *parser) parseDoWhile() (ast.Statement, error) {
	tok := p.next()

	w := &ast.WhileStatement{Node: ast.NodeAt(tok.Pos), Do: true}
	if err := p.parseBody(w); err != nil {
		return nil, err
	}

	if !p.peek().IsKeyword("while") {
		return nil, p.errorf(p.peek().Pos, "expected 'while' after do body, found %s", p.peek().Human())
	}
	p.next()

	cond, err := p.parseParenCond("do-while")
	if err != nil {
		return nil, err
	}
	w.Cond = cond

	if _, err := p.expect(";"); err != nil {
		return nil, err
	}
	return w, nil
}

func (p *parser) parseSwitch() (ast.Statement, error) {
	tok := p.next()
	value, err := p.parseParenCond("switch")
	if err != nil {
		return nil, err
	}

	sw := &ast.SwitchStatement{Node: ast.NodeAt(tok.Pos), Value: value}
	if !p.peek().IsPunct("{") {
		return nil, p.errorf(p.peek().Pos, "expected '{' after switch, found %s", p.peek().Human())
	}
	p.next()
	p.pushScope()
	defer p.popScope()

	if err := p.parseStatementsUntilClose(sw); err != nil {
		return nil, err
	}
	return sw, nil
}

func (p *parser) parseCase() (ast.Statement, error) {
	tok := p.next()

	value, err := p.parseExpr(exprBPTernary)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(":"); err != nil {
		return nil, err
	}
	return &ast.CaseStatement{Node: ast.NodeAt(tok.Pos), Value: value}, nil
}

func (p *parser) parseReturn() (ast.Statement, error) {
	tok := p.next()
	ret := &ast.ReturnStatement{Node: ast.NodeAt(tok.Pos)}

	if !p.peek().IsPunct(";") {
		value, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		ret.Value = value
	}

	if _, err := p.expect(";"); err != nil {
		return nil, err
	}
	return ret, nil
}

// attachStatementAttributes attaches attributes that preceded a statement.
// On a declaration they are attached to every declared variable.
func (p *parser) attachStatementAttributes(st ast.Statement, attrs []*ast.Attribute) error {
	if len(attrs) == 0 {
		return nil
	}

	target := attr.TargetOf(st)

	if decl, ok := st.(*ast.Declaration); ok {
		for _, a := range attrs {
			if err := p.reg.Check(a, target); err != nil {
				return err
			}
			for _, d := range decl.Decls {
				if d.Var.Attrs.Has(a.Name) {
					return kcerrors.Errorf(kcerrors.ErrAttributeMisuse, stage, a.Pos, "[@%s] is already applied to %s", a.Name, d.Var.Name)
				}
				d.Var.Attrs.Set(a.Clone())
			}
		}
		return nil
	}

	for _, a := range attrs {
		if err := p.reg.Attach(st.Attributes(), a, target); err != nil {
			return err
		}
	}
	return nil
}

// parseAttributes parses any number of consecutive attributes.
func (p *parser) parseAttributes() ([]*ast.Attribute, error) {
	var attrs []*ast.Attribute
	for p.peek().Class == lex.Attribute {
		a, err := p.parseAttribute()
		if err != nil {
			return nil, err
		}
		attrs = append(attrs, a)
	}
	return attrs, nil
}

func (p *parser) parseAttribute() (*ast.Attribute, error) {
	tok := p.next()
	a := &ast.Attribute{Name: tok.Lexeme, Pos: tok.Pos}

	if !p.accept("(") {
		return a, nil
	}
	if p.accept(")") {
		return a, nil
	}

	for {
		var arg ast.AttributeArg

		switch {
		case p.peek().Class == lex.Attribute:
			nested, err := p.parseAttribute()
			if err != nil {
				return nil, err
			}
			arg.Attr = nested
		case p.peek().Class == lex.Identifier && p.peekAt(1).IsPunct("="):
			arg.Name = p.next().Lexeme
			p.next()
			value, err := p.parseExpr(exprBPComma)
			if err != nil {
				return nil, err
			}
			arg.Value = value
		default:
			value, err := p.parseExpr(exprBPComma)
			if err != nil {
				return nil, err
			}
			arg.Value = value
		}
		a.Args = append(a.Args, arg)

		if p.accept(")") {
			return a, nil
		}
		if _, err := p.expect(","); err != nil {
			return nil, err
		}
	}
}
