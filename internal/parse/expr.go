package parse

import (
	"github.com/dekarrin/kernc/internal/ast"
	"github.com/dekarrin/kernc/internal/lex"
)

// binding powers, lowest to highest
const (
	exprBPComma   = 10
	exprBPAssign  = 20
	exprBPTernary = 30
	exprBPPrefix  = 140
	exprBPPostfix = 150
)

var binaryBP = map[string]int{
	",":  exprBPComma,
	"=":  exprBPAssign,
	"+=": exprBPAssign, "-=": exprBPAssign, "*=": exprBPAssign, "/=": exprBPAssign,
	"%=": exprBPAssign, "&=": exprBPAssign, "|=": exprBPAssign, "^=": exprBPAssign,
	"<<=": exprBPAssign, ">>=": exprBPAssign,
	"?":  exprBPTernary,
	"||": 40,
	"&&": 50,
	"|":  60,
	"^":  70,
	"&":  80,
	"==": 90, "!=": 90,
	"<": 100, ">": 100, "<=": 100, ">=": 100,
	"<<": 110, ">>": 110,
	"+": 120, "-": 120,
	"*": 130, "/": 130, "%": 130,
	"(":  exprBPPostfix,
	"[":  exprBPPostfix,
	".":  exprBPPostfix,
	"->": exprBPPostfix,
	"++": exprBPPostfix,
	"--": exprBPPostfix,
}

var prefixOps = map[string]bool{
	"-": true, "+": true, "!": true, "~": true, "*": true, "&": true, "++": true, "--": true,
}

// parseExpr parses an expression whose operators all bind tighter than
// minBP. Passing 0 parses a full expression including the comma operator.
func (p *parser) parseExpr(minBP int) (ast.Expr, error) {
	left, err := p.nud()
	if err != nil {
		return nil, err
	}

	for {
		tok := p.peek()
		if tok.Class != lex.Punct {
			return left, nil
		}
		bp, ok := binaryBP[tok.Lexeme]
		if !ok || bp <= minBP {
			return left, nil
		}
		p.next()

		left, err = p.led(tok, left, bp)
		if err != nil {
			return nil, err
		}
	}
}

func (p *parser) nud() (ast.Expr, error) {
	tok := p.peek()

	switch tok.Class {
	case lex.Identifier:
		p.next()
		if tok.Lexeme == "true" || tok.Lexeme == "false" {
			return &ast.Literal{ExprPos: ast.At(tok.Pos), Kind: ast.BoolLit, Text: tok.Lexeme}, nil
		}
		return &ast.Ident{ExprPos: ast.At(tok.Pos), Name: tok.Lexeme, Var: p.scope.LookupVariable(tok.Lexeme)}, nil
	case lex.IntLiteral:
		p.next()
		return &ast.Literal{ExprPos: ast.At(tok.Pos), Kind: ast.IntLit, Text: tok.Lexeme}, nil
	case lex.FloatLiteral:
		p.next()
		return &ast.Literal{ExprPos: ast.At(tok.Pos), Kind: ast.FloatLit, Text: tok.Lexeme}, nil
	case lex.CharLiteral:
		p.next()
		return &ast.Literal{ExprPos: ast.At(tok.Pos), Kind: ast.CharLit, Text: tok.Lexeme}, nil
	case lex.StringLiteral:
		p.next()
		return &ast.Literal{ExprPos: ast.At(tok.Pos), Kind: ast.StringLit, Text: tok.Lexeme}, nil
	case lex.Keyword:
		if tok.IsKeyword("sizeof") {
			return p.parseSizeof()
		}
	case lex.Punct:
		if tok.IsPunct("(") {
			return p.parseParenOrCast()
		}
		if prefixOps[tok.Lexeme] {
			p.next()
			x, err := p.parseExpr(exprBPPrefix)
			if err != nil {
				return nil, err
			}
			return &ast.Unary{ExprPos: ast.At(tok.Pos), Op: tok.Lexeme, X: x}, nil
		}
	}

	return nil, p.errorf(tok.Pos, "expected an expression, found %s", tok.Human())
}

func (p *parser) led(op lex.Token, left ast.Expr, bp int) (ast.Expr, error) {
	switch op.Lexeme {
	case "(":
		call := &ast.Call{ExprPos: ast.At(left.Pos()), Fn: left}
		if p.accept(")") {
			return call, nil
		}
		for {
			arg, err := p.parseExpr(exprBPComma)
			if err != nil {
				return nil, err
			}
			call.Args = append(call.Args, arg)
			if p.accept(")") {
				return call, nil
			}
			if _, err := p.expect(","); err != nil {
				return nil, err
			}
		}
	case "[":
		index, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect("]"); err != nil {
			return nil, err
		}
		return &ast.Subscript{ExprPos: ast.At(left.Pos()), X: left, Index: index}, nil
	case ".", "->":
		name, err := p.expectIdent("member name")
		if err != nil {
			return nil, err
		}
		return &ast.Member{ExprPos: ast.At(left.Pos()), X: left, Name: name.Lexeme, Arrow: op.Lexeme == "->"}, nil
	case "++", "--":
		return &ast.Unary{ExprPos: ast.At(left.Pos()), Op: op.Lexeme, X: left, Postfix: true}, nil
	case "?":
		then, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(":"); err != nil {
			return nil, err
		}
		els, err := p.parseExpr(exprBPTernary - 1)
		if err != nil {
			return nil, err
		}
		return &ast.Ternary{ExprPos: ast.At(left.Pos()), Cond: left, Then: then, Else: els}, nil
	}

	rightBP := bp
	if bp == exprBPAssign {
		// right associative
		rightBP = bp - 1
	}
	right, err := p.parseExpr(rightBP)
	if err != nil {
		return nil, err
	}
	return &ast.Binary{ExprPos: ast.At(left.Pos()), Op: op.Lexeme, X: left, Y: right}, nil
}

func (p *parser) parseParenOrCast() (ast.Expr, error) {
	open := p.next()

	if p.isTypeStart(0) {
		vt, err := p.parseTypeName()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(")"); err != nil {
			return nil, err
		}
		x, err := p.parseExpr(exprBPPrefix)
		if err != nil {
			return nil, err
		}
		return &ast.Cast{ExprPos: ast.At(open.Pos), Type: vt, X: x}, nil
	}

	x, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(")"); err != nil {
		return nil, err
	}
	return &ast.Paren{ExprPos: ast.At(open.Pos), X: x}, nil
}

func (p *parser) parseSizeof() (ast.Expr, error) {
	tok := p.next()

	if p.peek().IsPunct("(") && p.isTypeStart(1) {
		p.next()
		vt, err := p.parseTypeName()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(")"); err != nil {
			return nil, err
		}
		return &ast.Sizeof{ExprPos: ast.At(tok.Pos), Type: vt}, nil
	}

	x, err := p.parseExpr(exprBPPrefix)
	if err != nil {
		return nil, err
	}
	if paren, ok := x.(*ast.Paren); ok {
		x = paren.X
	}
	return &ast.Sizeof{ExprPos: ast.At(tok.Pos), X: x}, nil
}
