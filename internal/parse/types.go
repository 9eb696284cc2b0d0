package parse

import (
	"strings"

	"github.com/dekarrin/kernc/internal/ast"
	"github.com/dekarrin/kernc/internal/attr"
	"github.com/dekarrin/kernc/internal/kcerrors"
	"github.com/dekarrin/kernc/internal/lex"
	"github.com/dekarrin/kernc/internal/source"
)

var qualifierKeywords = map[string]ast.Qualifier{
	"const":        ast.Const,
	"volatile":     ast.Volatile,
	"restrict":     ast.Restrict,
	"__restrict__": ast.Restrict,
	"__restrict":   ast.Restrict,
	"static":       ast.Static,
	"extern":       ast.Extern,
	"inline":       ast.Inline,
}

// storageQualifiers apply to the declared entity as a whole rather than to its
// base type.
const storageQualifiers = ast.Static | ast.Extern | ast.Inline

var sizeWords = map[string]bool{
	"unsigned": true,
	"signed":   true,
	"long":     true,
	"short":    true,
}

// typeSpec is the leading part of a declaration that all of its declarators
// share.
type typeSpec struct {
	pos     source.Position
	name    string
	quals   ast.Qualifier
	storage ast.Qualifier
	strct   *ast.StructDef

	// defined is set when the specifier itself contains a struct body.
	defined bool
}

func (ts *typeSpec) base() *ast.VarType {
	return &ast.VarType{Name: ts.name, Qualifiers: ts.quals, Struct: ts.strct}
}

// isTypeStart returns whether the token n ahead begins a type.
func (p *parser) isTypeStart(n int) bool {
	tok := p.peekAt(n)
	switch tok.Class {
	case lex.Keyword:
		_, isQual := qualifierKeywords[tok.Lexeme]
		return isQual || sizeWords[tok.Lexeme] || tok.Lexeme == "struct"
	case lex.Identifier:
		return p.scope.IsType(tok.Lexeme)
	}
	return false
}

func (p *parser) parseTypeSpec() (*typeSpec, error) {
	ts := &typeSpec{pos: p.peek().Pos}

	var words []string
	var base string

loop:
	for {
		tok := p.peek()
		switch {
		case tok.Class == lex.Keyword && qualifierKeywords[tok.Lexeme] != ast.NoQualifiers:
			p.next()
			q := qualifierKeywords[tok.Lexeme]

			if q.Has(ast.Restrict) {
				return nil, p.qualifierError(q.Validate(ast.OnBase), tok.Pos)
			}

			if storageQualifiers.Has(q) {
				if ts.storage.Has(q) {
					p.warnf(tok.Pos, "duplicate qualifier '%s'", tok.Lexeme)
				}
				ts.storage = ts.storage.Union(q)
			} else {
				if ts.quals.Has(q) {
					p.warnf(tok.Pos, "duplicate qualifier '%s'", tok.Lexeme)
				}
				ts.quals = ts.quals.Union(q)
			}
		case tok.Class == lex.Keyword && sizeWords[tok.Lexeme]:
			if base != "" {
				return nil, p.errorf(tok.Pos, "'%s' must come before the type name", tok.Lexeme)
			}
			p.next()
			words = append(words, tok.Lexeme)
		case tok.IsKeyword("struct") && base == "" && len(words) == 0:
			if err := p.parseStructSpec(ts); err != nil {
				return nil, err
			}
			base = ts.name
		case tok.Class == lex.Identifier && base == "" && p.scope.IsType(tok.Lexeme):
			p.next()
			base = tok.Lexeme
			if vt, ok := p.scope.LookupType(tok.Lexeme); ok && vt != nil {
				ts.strct = vt.Struct
			}
		default:
			break loop
		}
	}

	if base == "" && len(words) == 0 {
		return nil, p.errorf(p.peek().Pos, "expected a type, found %s", p.peek().Human())
	}

	if base != "" {
		words = append(words, base)
	}
	ts.name = strings.Join(words, " ")
	return ts, nil
}

func (p *parser) parseStructSpec(ts *typeSpec) error {
	p.next()

	var name string
	if p.peek().Class == lex.Identifier {
		name = p.next().Lexeme
	}

	if !p.peek().IsPunct("{") {
		if name == "" {
			return p.errorf(p.peek().Pos, "expected struct name or '{', found %s", p.peek().Human())
		}
		ts.name = "struct " + name
		if vt, ok := p.scope.LookupType(ts.name); ok && vt != nil {
			ts.strct = vt.Struct
		}
		return nil
	}
	p.next()

	def := &ast.StructDef{Name: name}
	fieldScope := ast.NewScope(p.scope)

	for !p.accept("}") {
		if p.atEnd() {
			return p.errorf(p.peek().Pos, "expected '}' to end struct, found end of input")
		}

		fts, err := p.parseTypeSpec()
		if err != nil {
			return err
		}
		for {
			vt, nameTok, err := p.parseDeclarator(fts, false)
			if err != nil {
				return err
			}
			field := ast.NewVariable(nameTok.Lexeme, vt, nameTok.Pos)
			if err := fieldScope.DeclareVariable(field); err != nil {
				return p.errorf(nameTok.Pos, "%s", err.Error())
			}
			def.Fields = append(def.Fields, field)

			if !p.accept(",") {
				break
			}
		}
		if _, err := p.expect(";"); err != nil {
			return err
		}
	}

	ts.strct = def
	ts.defined = true
	if name != "" {
		ts.name = "struct " + name
		if err := p.scope.DeclareType(ts.name, &ast.VarType{Name: ts.name, Struct: def}); err != nil {
			return p.errorf(ts.pos, "%s", err.Error())
		}
	} else {
		ts.name = "struct"
	}
	return nil
}

// parseDeclarator parses the pointer levels, name and array dimensions of one
// declarator. If abstract is set, the name may be omitted.
func (p *parser) parseDeclarator(ts *typeSpec, abstract bool) (*ast.VarType, lex.Token, error) {
	vt := ts.base()

	for p.peek().IsPunct("*") {
		p.next()
		vt.AddPointer(ast.NoQualifiers)
		level := vt.PointerDepth() - 1

		for p.peek().Class == lex.Keyword && qualifierKeywords[p.peek().Lexeme] != ast.NoQualifiers {
			tok := p.next()
			q := qualifierKeywords[tok.Lexeme]
			if vt.Pointers[level].Qualifiers.Has(q) {
				p.warnf(tok.Pos, "duplicate qualifier '%s'", tok.Lexeme)
			}
			if err := vt.AddPointerQualifier(level, q); err != nil {
				return nil, tok, p.qualifierError(err, tok.Pos)
			}
		}
	}

	var name lex.Token
	if p.peek().Class == lex.Identifier {
		name = p.next()
	} else if !abstract {
		return nil, p.peek(), p.errorf(p.peek().Pos, "expected a name to declare, found %s", p.peek().Human())
	} else {
		name = lex.Token{Pos: p.peek().Pos}
	}

	for p.peek().IsPunct("[") {
		p.next()
		if p.accept("]") {
			vt.Arrays = append(vt.Arrays, nil)
			continue
		}
		dim, err := p.parseExpr(0)
		if err != nil {
			return nil, name, err
		}
		if _, err := p.expect("]"); err != nil {
			return nil, name, err
		}
		vt.Arrays = append(vt.Arrays, dim)
	}

	return vt, name, nil
}

// parseTypeName parses a type in a cast or sizeof, with no declared name.
func (p *parser) parseTypeName() (*ast.VarType, error) {
	ts, err := p.parseTypeSpec()
	if err != nil {
		return nil, err
	}
	if ts.storage != ast.NoQualifiers {
		return nil, p.errorf(ts.pos, "storage qualifier '%s' is not allowed in a type name", ts.storage)
	}
	vt, name, err := p.parseDeclarator(ts, true)
	if err != nil {
		return nil, err
	}
	if name.Lexeme != "" {
		return nil, p.errorf(name.Pos, "unexpected name '%s' in type", name.Lexeme)
	}
	return vt, nil
}

func (p *parser) parseTypedef() (ast.Statement, error) {
	tok := p.next()

	ts, err := p.parseTypeSpec()
	if err != nil {
		return nil, err
	}
	if ts.storage != ast.NoQualifiers {
		return nil, p.qualifierError(kcerrors.New(ts.storage.String()+" cannot qualify a typedef", kcerrors.ErrQualifierConflict), ts.pos)
	}

	vt, name, err := p.parseDeclarator(ts, false)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(";"); err != nil {
		return nil, err
	}

	if err := p.scope.DeclareType(name.Lexeme, vt); err != nil {
		return nil, p.errorf(name.Pos, "%s", err.Error())
	}

	td := &ast.TypeDeclStatement{Node: ast.NodeAt(tok.Pos), Alias: name.Lexeme, Type: vt}
	if ts.defined {
		td.Struct = ts.strct
	}
	return td, nil
}

// parseDeclarationOrFunction parses a declaration, a function prototype or a
// function definition. Functions are only allowed when global is set.
func (p *parser) parseDeclarationOrFunction(global bool) (ast.Statement, error) {
	ts, err := p.parseTypeSpec()
	if err != nil {
		return nil, err
	}

	if ts.defined && p.peek().IsPunct(";") {
		p.next()
		if ts.strct.Name == "" {
			return nil, p.errorf(ts.pos, "anonymous struct must be named by a typedef")
		}
		return &ast.TypeDeclStatement{Node: ast.NodeAt(ts.pos), Struct: ts.strct}, nil
	}
	if ts.defined {
		return nil, p.errorf(p.peek().Pos, "a struct definition must be followed by ';'")
	}

	vt, name, err := p.parseDeclarator(ts, false)
	if err != nil {
		return nil, err
	}

	if p.peek().IsPunct("(") {
		if !global {
			return nil, p.errorf(name.Pos, "function '%s' can only be declared at global scope", name.Lexeme)
		}
		return p.parseFunction(ts, vt, name)
	}

	decl := &ast.Declaration{Node: ast.NodeAt(ts.pos)}
	for {
		v, init, err := p.finishDeclarator(ts, vt, name)
		if err != nil {
			return nil, err
		}
		decl.Decls = append(decl.Decls, ast.Declarator{Var: v, Init: init})

		if !p.accept(",") {
			break
		}
		vt, name, err = p.parseDeclarator(ts, false)
		if err != nil {
			return nil, err
		}
	}

	if _, err := p.expect(";"); err != nil {
		return nil, err
	}
	return decl, nil
}

// finishDeclarator applies storage qualifiers, trailing attributes and the
// initializer of one variable declarator and declares it in scope.
func (p *parser) finishDeclarator(ts *typeSpec, vt *ast.VarType, name lex.Token) (*ast.Variable, ast.Expr, error) {
	if ts.storage != ast.NoQualifiers {
		if err := ts.storage.Validate(ast.OnBase); err != nil {
			return nil, nil, p.qualifierError(err, ts.pos)
		}
		vt.Qualifiers = vt.Qualifiers.Union(ts.storage)
	}
	if err := vt.Qualifiers.Validate(ast.OnBase); err != nil {
		return nil, nil, p.qualifierError(err, ts.pos)
	}

	v := ast.NewVariable(name.Lexeme, vt, name.Pos)

	attrs, err := p.parseAttributes()
	if err != nil {
		return nil, nil, err
	}
	for _, a := range attrs {
		if err := p.reg.Attach(&v.Attrs, a, attr.TargetVariable); err != nil {
			return nil, nil, err
		}
	}

	var init ast.Expr
	if p.accept("=") {
		init, err = p.parseInitializer()
		if err != nil {
			return nil, nil, err
		}
	}

	if err := p.declare(v); err != nil {
		return nil, nil, err
	}
	return v, init, nil
}

func (p *parser) parseInitializer() (ast.Expr, error) {
	if !p.peek().IsPunct("{") {
		return p.parseExpr(exprBPComma)
	}

	open := p.next()
	list := &ast.InitList{ExprPos: ast.At(open.Pos)}
	for !p.accept("}") {
		el, err := p.parseInitializer()
		if err != nil {
			return nil, err
		}
		list.Elems = append(list.Elems, el)
		if p.accept("}") {
			break
		}
		if _, err := p.expect(","); err != nil {
			return nil, err
		}
	}
	return list, nil
}

func (p *parser) parseFunction(ts *typeSpec, returns *ast.VarType, name lex.Token) (ast.Statement, error) {
	if returns.IsArray() {
		return nil, p.errorf(name.Pos, "function '%s' cannot return an array", name.Lexeme)
	}
	if err := ts.storage.Validate(ast.OnFunction); err != nil {
		return nil, p.qualifierError(err, ts.pos)
	}

	fn := &ast.Function{Name: name.Lexeme, Returns: returns, Qualifiers: ts.storage, Pos: name.Pos}

	fnScope := p.pushScope()
	defer p.popScope()

	p.next()
	if err := p.parseArguments(fn); err != nil {
		return nil, err
	}

	if prior := p.scope.Parent().LookupFunction(fn.Name); prior != nil && len(prior.Args) != len(fn.Args) {
		return nil, p.errorf(name.Pos, "function '%s' redeclared with %d arguments, previously %d", fn.Name, len(fn.Args), len(prior.Args))
	}
	p.scope.Parent().DeclareFunction(fn)

	if p.accept(";") {
		return &ast.FunctionDeclStatement{Node: ast.NodeAt(ts.pos), Func: fn}, nil
	}

	if !p.peek().IsPunct("{") {
		return nil, p.errorf(p.peek().Pos, "expected '{' or ';' after function declarator, found %s", p.peek().Human())
	}
	p.next()

	def := &ast.FunctionStatement{Node: ast.NodeAt(ts.pos), Func: fn, Scope: fnScope}
	if err := p.parseStatementsUntilClose(def); err != nil {
		return nil, err
	}
	return def, nil
}

func (p *parser) parseArguments(fn *ast.Function) error {
	if p.accept(")") {
		return nil
	}
	if p.peek().Class == lex.Identifier && p.peek().Lexeme == "void" && p.peekAt(1).IsPunct(")") {
		p.next()
		p.next()
		return nil
	}

	for {
		leading, err := p.parseAttributes()
		if err != nil {
			return err
		}

		ts, err := p.parseTypeSpec()
		if err != nil {
			return err
		}
		if ts.storage != ast.NoQualifiers {
			return p.qualifierError(kcerrors.New(ts.storage.String()+" cannot qualify a function argument", kcerrors.ErrQualifierConflict), ts.pos)
		}
		if ts.defined {
			return p.errorf(ts.pos, "struct cannot be defined in an argument list")
		}

		vt, name, err := p.parseDeclarator(ts, false)
		if err != nil {
			return err
		}
		if err := vt.Qualifiers.Validate(ast.OnBase); err != nil {
			return p.qualifierError(err, ts.pos)
		}

		arg := ast.NewVariable(name.Lexeme, vt, name.Pos)

		trailing, err := p.parseAttributes()
		if err != nil {
			return err
		}
		for _, a := range append(leading, trailing...) {
			if err := p.reg.Attach(&arg.Attrs, a, attr.TargetArgument); err != nil {
				return err
			}
		}

		if err := p.declare(arg); err != nil {
			return err
		}
		fn.Args = append(fn.Args, arg)

		if p.accept(")") {
			return nil
		}
		if _, err := p.expect(","); err != nil {
			return err
		}
	}
}
