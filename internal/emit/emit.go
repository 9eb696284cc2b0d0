// Package emit writes a lowered statement tree as backend source.
package emit

import (
	"strings"

	"github.com/dekarrin/kernc/internal/ast"
	"github.com/dekarrin/kernc/internal/backend"
	"github.com/dekarrin/kernc/internal/kcerrors"
	"github.com/dekarrin/kernc/internal/source"
)

const (
	stage  = "emit"
	indent = "  "
)

type emitter struct {
	sb      strings.Builder
	dialect backend.Dialect
}

// Emit returns the source for root in the dialect of mode. Every attribute
// must have been removed and every qualifier must have a spelling in the
// dialect; anything else is an emission error. The same tree and mode always
// give the same output.
func Emit(root *ast.BlockStatement, mode backend.Mode) (string, error) {
	d, err := backend.For(mode)
	if err != nil {
		return "", kcerrors.Errorf(kcerrors.ErrEmission, stage, root.Pos(), "%s", err.Error())
	}

	e := &emitter{dialect: d}
	if d.Preamble != "" {
		e.sb.WriteString(d.Preamble)
		e.sb.WriteRune('\n')
	}

	var prev ast.Statement
	for i := 0; i < root.Len(); i++ {
		s := root.At(i)
		if prev != nil && (prev.Kind() == ast.KindFunction || s.Kind() == ast.KindFunction) {
			e.sb.WriteRune('\n')
		}
		if err := e.statement(s, 0); err != nil {
			return "", err
		}
		prev = s
	}

	return e.sb.String(), nil
}

func (e *emitter) errorf(pos source.Position, format string, a ...interface{}) error {
	return kcerrors.Errorf(kcerrors.ErrEmission, stage, pos, format, a...)
}

func (e *emitter) line(level int, text string) {
	e.sb.WriteString(strings.Repeat(indent, level))
	e.sb.WriteString(text)
	e.sb.WriteRune('\n')
}

func (e *emitter) checkAttributes(tbl *ast.AttributeTable) error {
	if tbl.Len() == 0 {
		return nil
	}
	a := tbl.All()[0]
	return e.errorf(a.Pos, "attribute @%s has no meaning in %s output", a.Name, e.dialect.Mode)
}

func (e *emitter) statement(s ast.Statement, level int) error {
	if err := e.checkAttributes(s.Attributes()); err != nil {
		return err
	}

	switch st := s.(type) {
	case *ast.EmptyStatement:
		e.line(level, ";")
	case *ast.PragmaStatement:
		e.line(level, "#pragma "+st.Text)
	case *ast.RawStatement:
		if st.Text != "" {
			for _, ln := range strings.Split(st.Text, "\n") {
				e.line(level, ln)
			}
		}
	case *ast.ExprStatement:
		e.line(level, ast.FormatExpr(st.X)+";")
	case *ast.Declaration:
		return e.declaration(st, level)
	case *ast.TypeDeclStatement:
		return e.typeDecl(st, level)
	case *ast.FunctionDeclStatement:
		sig, err := e.signature(st.Func)
		if err != nil {
			return err
		}
		e.line(level, sig+";")
	case *ast.FunctionStatement:
		sig, err := e.signature(st.Func)
		if err != nil {
			return err
		}
		return e.braced(level, sig+" {", "}", st)
	case *ast.BlockStatement:
		if !st.Braces {
			return e.children(st, level)
		}
		return e.braced(level, "{", "}", st)
	case *ast.IfStatement:
		return e.ifChain(st, level)
	case *ast.ForStatement:
		return e.forLoop(st, level)
	case *ast.WhileStatement:
		if st.Do {
			return e.braced(level, "do {", "} while ("+ast.FormatExpr(st.Cond)+");", st)
		}
		return e.braced(level, "while ("+ast.FormatExpr(st.Cond)+") {", "}", st)
	case *ast.SwitchStatement:
		return e.braced(level, "switch ("+ast.FormatExpr(st.Value)+") {", "}", st)
	case *ast.CaseStatement:
		e.line(level, "case "+ast.FormatExpr(st.Value)+":")
	case *ast.DefaultStatement:
		e.line(level, "default:")
	case *ast.ContinueStatement:
		e.line(level, "continue;")
	case *ast.BreakStatement:
		e.line(level, "break;")
	case *ast.ReturnStatement:
		if st.Value == nil {
			e.line(level, "return;")
		} else {
			e.line(level, "return "+ast.FormatExpr(st.Value)+";")
		}
	default:
		return e.errorf(s.Pos(), "no %s output for %s statement", e.dialect.Mode, s.Kind())
	}

	return nil
}

func (e *emitter) children(c ast.Container, level int) error {
	for i := 0; i < c.Len(); i++ {
		if err := e.statement(c.At(i), level); err != nil {
			return err
		}
	}
	return nil
}

// body writes the statements of a container body. The branches of an if are
// not part of its body.
func (e *emitter) body(children []ast.Statement, level int) error {
	for _, c := range children {
		if err := e.statement(c, level); err != nil {
			return err
		}
	}
	return nil
}

func (e *emitter) braced(level int, open, close string, c ast.Container) error {
	e.line(level, open)
	if err := e.children(c, level+1); err != nil {
		return err
	}
	e.line(level, close)
	return nil
}

func (e *emitter) ifChain(st *ast.IfStatement, level int) error {
	e.line(level, "if ("+ast.FormatExpr(st.Cond)+") {")
	if err := e.body(st.Children, level+1); err != nil {
		return err
	}

	for _, elif := range st.Elifs {
		if err := e.checkAttributes(elif.Attributes()); err != nil {
			return err
		}
		e.line(level, "} else if ("+ast.FormatExpr(elif.Cond)+") {")
		if err := e.body(elif.Children, level+1); err != nil {
			return err
		}
	}

	if st.Else != nil {
		if err := e.checkAttributes(st.Else.Attributes()); err != nil {
			return err
		}
		e.line(level, "} else {")
		if err := e.body(st.Else.Children, level+1); err != nil {
			return err
		}
	}

	e.line(level, "}")
	return nil
}

func (e *emitter) forLoop(st *ast.ForStatement, level int) error {
	var init string
	switch in := st.Init.(type) {
	case nil:
	case *ast.Declaration:
		if err := e.checkAttributes(in.Attributes()); err != nil {
			return err
		}
		decls, err := e.declarators(in)
		if err != nil {
			return err
		}
		if len(decls) != 1 {
			return e.errorf(in.Pos(), "for loop init declares variables of different types")
		}
		init = decls[0]
	case *ast.ExprStatement:
		init = ast.FormatExpr(in.X)
	default:
		return e.errorf(in.Pos(), "no %s output for %s statement as a for loop init", e.dialect.Mode, in.Kind())
	}

	var cond, update string
	if st.Cond != nil {
		cond = " " + ast.FormatExpr(st.Cond)
	}
	if st.Update != nil {
		update = " " + ast.FormatExpr(st.Update)
	}

	return e.braced(level, "for ("+init+";"+cond+";"+update+") {", "}", st)
}

func (e *emitter) declaration(st *ast.Declaration, level int) error {
	decls, err := e.declarators(st)
	if err != nil {
		return err
	}
	for _, d := range decls {
		e.line(level, d+";")
	}
	return nil
}

// declarators renders a declaration as one or more declaration texts without
// the trailing semicolon. Declarators that share a base type are kept
// together.
func (e *emitter) declarators(st *ast.Declaration) ([]string, error) {
	var out []string
	var prevBase string

	for _, d := range st.Decls {
		if err := e.checkAttributes(&d.Var.Attrs); err != nil {
			return nil, err
		}

		base, err := e.baseType(d.Var.Type, d.Var.Pos)
		if err != nil {
			return nil, err
		}
		decl, err := e.declarator(d.Var.Type, d.Var.Name, d.Var.Pos)
		if err != nil {
			return nil, err
		}
		if d.Init != nil {
			decl += " = " + ast.FormatExpr(d.Init)
		}

		if len(out) > 0 && base == prevBase {
			out[len(out)-1] += ", " + decl
		} else {
			out = append(out, base+" "+decl)
		}
		prevBase = base
	}
	return out, nil
}

func (e *emitter) qualifiers(q ast.Qualifier, pos source.Position) (string, error) {
	var words []string
	for _, single := range q.Each() {
		spelled, ok := e.dialect.Qualifier(single)
		if !ok {
			return "", e.errorf(pos, "qualifier '%s' has no spelling in %s output", single, e.dialect.Mode)
		}
		words = append(words, spelled)
	}
	return strings.Join(words, " "), nil
}

func (e *emitter) baseType(vt *ast.VarType, pos source.Position) (string, error) {
	quals, err := e.qualifiers(vt.Qualifiers, pos)
	if err != nil {
		return "", err
	}
	if quals == "" {
		return vt.Name, nil
	}
	return quals + " " + vt.Name, nil
}

// declarator renders the pointer levels, name and array dimensions of vt.
func (e *emitter) declarator(vt *ast.VarType, name string, pos source.Position) (string, error) {
	var sb strings.Builder

	for i, p := range vt.Pointers {
		sb.WriteRune('*')
		if p.Qualifiers != ast.NoQualifiers {
			quals, err := e.qualifiers(p.Qualifiers, pos)
			if err != nil {
				return "", err
			}
			sb.WriteString(" " + quals)
			if i+1 < len(vt.Pointers) || name != "" {
				sb.WriteRune(' ')
			}
		}
	}
	sb.WriteString(name)

	for _, dim := range vt.Arrays {
		sb.WriteRune('[')
		if dim != nil {
			sb.WriteString(ast.FormatExpr(dim))
		}
		sb.WriteRune(']')
	}
	return sb.String(), nil
}

func (e *emitter) fullType(vt *ast.VarType, name string, pos source.Position) (string, error) {
	base, err := e.baseType(vt, pos)
	if err != nil {
		return "", err
	}
	decl, err := e.declarator(vt, name, pos)
	if err != nil {
		return "", err
	}
	if decl == "" {
		return base, nil
	}
	return base + " " + decl, nil
}

func (e *emitter) signature(fn *ast.Function) (string, error) {
	var prefix []string

	if fn.Qualifiers.Has(ast.Kernel) {
		prefix = append(prefix, e.dialect.KernelPrefix)
	} else if e.dialect.DevicePrefix != "" {
		prefix = append(prefix, e.dialect.DevicePrefix)
	}
	quals, err := e.qualifiers(fn.Qualifiers.Without(ast.Kernel), fn.Pos)
	if err != nil {
		return "", err
	}
	if quals != "" {
		prefix = append(prefix, quals)
	}

	ret, err := e.fullType(fn.Returns, fn.Name, fn.Pos)
	if err != nil {
		return "", err
	}

	args := make([]string, len(fn.Args))
	for i, arg := range fn.Args {
		if err := e.checkAttributes(&arg.Attrs); err != nil {
			return "", err
		}
		args[i], err = e.fullType(arg.Type, arg.Name, arg.Pos)
		if err != nil {
			return "", err
		}
	}

	sig := ret + "(" + strings.Join(args, ", ") + ")"
	if len(prefix) > 0 {
		sig = strings.Join(prefix, " ") + " " + sig
	}
	return sig, nil
}

func (e *emitter) typeDecl(st *ast.TypeDeclStatement, level int) error {
	var head string
	if st.Alias != "" {
		head = "typedef "
	}

	if st.Struct != nil {
		open := head + "struct"
		if st.Struct.Name != "" {
			open += " " + st.Struct.Name
		}
		e.line(level, open+" {")
		for _, f := range st.Struct.Fields {
			decl, err := e.fullType(f.Type, f.Name, f.Pos)
			if err != nil {
				return err
			}
			e.line(level+1, decl+";")
		}

		close := "}"
		if st.Alias != "" {
			decl, err := e.declarator(st.Type, st.Alias, st.Pos())
			if err != nil {
				return err
			}
			close += " " + decl
		}
		e.line(level, close+";")
		return nil
	}

	decl, err := e.fullType(st.Type, st.Alias, st.Pos())
	if err != nil {
		return err
	}
	e.line(level, head+decl+";")
	return nil
}
