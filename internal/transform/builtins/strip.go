package builtins

import (
	"github.com/dekarrin/kernc/internal/ast"
	"github.com/dekarrin/kernc/internal/attr"
	"github.com/dekarrin/kernc/internal/transform"
)

// Strip removes every internal attribute from the tree. It never fails.
type Strip struct {
	reg *attr.Registry
}

// NewStrip returns the strip pass. Attributes are internal if reg says so.
func NewStrip(reg *attr.Registry) Strip {
	if reg == nil {
		reg = attr.Default()
	}
	return Strip{reg: reg}
}

func (Strip) Name() string {
	return "strip"
}

func (Strip) ValidStatementKinds() ast.Kind {
	return ast.KindAll
}

func (st Strip) TransformStatement(s ast.Statement, slot transform.Slot) (ast.Statement, error) {
	st.strip(s.Attributes())

	switch node := s.(type) {
	case *ast.Declaration:
		st.stripDeclaration(node)
	case *ast.ForStatement:
		if decl, ok := node.Init.(*ast.Declaration); ok {
			st.strip(decl.Attributes())
			st.stripDeclaration(decl)
		}
	case *ast.FunctionStatement, *ast.FunctionDeclStatement:
		for _, arg := range functionOf(s).Args {
			st.strip(&arg.Attrs)
		}
	}

	return s, nil
}

func (st Strip) stripDeclaration(decl *ast.Declaration) {
	for _, d := range decl.Decls {
		st.strip(&d.Var.Attrs)
	}
}

func (st Strip) strip(tbl *ast.AttributeTable) {
	for _, a := range tbl.All() {
		if st.reg.IsInternal(a.Name) {
			tbl.Remove(a.Name)
		}
	}
}
