package builtins

import (
	"github.com/dekarrin/kernc/internal/ast"
	"github.com/dekarrin/kernc/internal/attr"
	"github.com/dekarrin/kernc/internal/kcerrors"
	"github.com/dekarrin/kernc/internal/transform"
)

// Dim rewrites calls on a variable marked @dim(D0, D1, ...) into a flat
// subscript: a(i, j) becomes a[i + D0 * j].
type Dim struct{}

// NewDim returns the dim pass.
func NewDim() Dim {
	return Dim{}
}

func (Dim) Name() string {
	return "dim"
}

func (Dim) ValidStatementKinds() ast.Kind {
	return ast.KindExpression | ast.KindDeclaration | ast.KindReturn | ast.KindCase |
		ast.KindIf | ast.KindElif | ast.KindFor | ast.KindWhile | ast.KindSwitch
}

func (d Dim) TransformStatement(s ast.Statement, slot transform.Slot) (ast.Statement, error) {
	if err := d.rewrite(s); err != nil {
		return nil, err
	}
	if loop, ok := s.(*ast.ForStatement); ok && loop.Init != nil {
		if err := d.rewrite(loop.Init); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (d Dim) rewrite(s ast.Statement) error {
	var err error
	ast.WalkExprs(s, func(e *ast.Expr) {
		if err != nil {
			return
		}
		*e = ast.RewriteExpr(*e, func(x ast.Expr) ast.Expr {
			if err != nil {
				return x
			}
			call, ok := x.(*ast.Call)
			if !ok {
				return x
			}
			id, ok := call.Fn.(*ast.Ident)
			if !ok || id.Var == nil {
				return x
			}
			a := id.Var.Attrs.Get(attr.Dim)
			if a == nil {
				return x
			}

			var flat ast.Expr
			flat, err = d.flatten(call, a)
			if err != nil {
				return x
			}
			return flat
		})
	})
	return err
}

func (d Dim) flatten(call *ast.Call, a *ast.Attribute) (ast.Expr, error) {
	dims := a.Positional()
	if len(call.Args) != len(dims) {
		return nil, kcerrors.Errorf(kcerrors.ErrAttributeMisuse, d.Name(), call.Pos(), "[@%s] %s has %d dimensions but was indexed with %d", a.Name, call.Fn.(*ast.Ident).Name, len(dims), len(call.Args))
	}

	// i0 + D0 * (i1 + D1 * (i2 ...))
	n := len(call.Args)
	index := ast.NewParen(call.Args[n-1])
	for k := n - 2; k >= 0; k-- {
		scaled := ast.NewBinary("*", ast.NewParen(ast.CloneExpr(dims[k].Value)), index)
		sum := ast.NewBinary("+", ast.NewParen(call.Args[k]), scaled)
		if k > 0 {
			index = ast.NewParen(sum)
		} else {
			index = sum
		}
	}

	return &ast.Subscript{ExprPos: ast.At(call.Pos()), X: call.Fn, Index: index}, nil
}
