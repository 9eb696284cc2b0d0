package builtins

import (
	"github.com/dekarrin/kernc/internal/ast"
	"github.com/dekarrin/kernc/internal/attr"
)

// loopShape is a for loop of the form
//
//	for (T i = start; i OP bound; i += step)
//
// where OP is one of <, <=, > and >=, and step moves i toward bound.
type loopShape struct {
	iter  *ast.Variable
	start ast.Expr
	op    string
	bound ast.Expr

	// step is the magnitude of the increment. down is set when the loop
	// counts downward.
	step ast.Expr
	down bool
}

func (ls loopShape) unitStep() bool {
	return ast.IsLiteralInt(ls.step, "1")
}

// shapeOf checks that loop is in canonical form. The returned error is an
// attribute misuse of a, the attribute that requires the form.
func shapeOf(stage string, loop *ast.ForStatement, a *ast.Attribute) (loopShape, error) {
	var ls loopShape
	bad := func(why string) (loopShape, error) {
		return ls, attr.Misuse(stage, a, "loop must have the form 'for (int i = start; i < end; ++i)': %s", why)
	}

	decl, ok := loop.Init.(*ast.Declaration)
	if !ok || len(decl.Decls) != 1 || decl.Decls[0].Init == nil {
		return bad("the init clause must declare and initialize one iterator")
	}
	ls.iter = decl.Decls[0].Var
	ls.start = decl.Decls[0].Init
	if ls.iter.Type.IsPointer() || ls.iter.Type.IsArray() {
		return bad("the iterator must be a scalar")
	}

	cond, ok := loop.Cond.(*ast.Binary)
	if !ok {
		return bad("the condition must compare the iterator to a bound")
	}
	switch {
	case isIdentOf(cond.X, ls.iter):
		ls.op = cond.Op
		ls.bound = cond.Y
	case isIdentOf(cond.Y, ls.iter):
		ls.op = flipComparison(cond.Op)
		ls.bound = cond.X
	default:
		return bad("the condition must compare the iterator to a bound")
	}
	switch ls.op {
	case "<", "<=":
	case ">", ">=":
		ls.down = true
	default:
		return bad("the condition must use <, <=, > or >=")
	}

	up, step, ok := updateOf(loop.Update, ls.iter)
	if !ok {
		return bad("the update must increment or decrement the iterator")
	}
	if up == ls.down {
		return bad("the update moves the iterator away from the bound")
	}
	ls.step = step

	return ls, nil
}

func isIdentOf(e ast.Expr, v *ast.Variable) bool {
	id, ok := e.(*ast.Ident)
	return ok && id.Var == v
}

func flipComparison(op string) string {
	switch op {
	case "<":
		return ">"
	case "<=":
		return ">="
	case ">":
		return "<"
	case ">=":
		return "<="
	}
	return op
}

// updateOf returns the direction and step magnitude of an update expression.
func updateOf(e ast.Expr, iter *ast.Variable) (up bool, step ast.Expr, ok bool) {
	switch u := e.(type) {
	case *ast.Unary:
		if !isIdentOf(u.X, iter) {
			return false, nil, false
		}
		switch u.Op {
		case "++":
			return true, ast.NewInt("1", u.Pos()), true
		case "--":
			return false, ast.NewInt("1", u.Pos()), true
		}
	case *ast.Binary:
		if !isIdentOf(u.X, iter) {
			return false, nil, false
		}
		switch u.Op {
		case "+=":
			return true, u.Y, true
		case "-=":
			return false, u.Y, true
		}
	}
	return false, nil, false
}

func unparen(e ast.Expr) ast.Expr {
	for {
		p, ok := e.(*ast.Paren)
		if !ok {
			return e
		}
		e = p.X
	}
}

// offsetFrom returns x when e has the form start + x, as a tiled loop bound
// does.
func offsetFrom(e, start ast.Expr) (ast.Expr, bool) {
	sum, ok := unparen(e).(*ast.Binary)
	if !ok || sum.Op != "+" {
		return nil, false
	}
	lhs, ok := unparen(sum.X).(*ast.Ident)
	if !ok {
		return nil, false
	}
	if id, ok := unparen(start).(*ast.Ident); !ok || id.Var == nil || id.Var != lhs.Var {
		return nil, false
	}
	return unparen(sum.Y), true
}

// extent returns the number of iterations of the loop as an expression.
func (ls loopShape) extent() ast.Expr {
	var span ast.Expr
	hi, lo := ls.bound, ls.start
	if ls.down {
		hi, lo = ls.start, ls.bound
	}
	hi = ast.CloneExpr(hi)
	lo = ast.CloneExpr(lo)

	if offset, ok := offsetFrom(hi, lo); ok {
		span = offset
	} else if ast.IsLiteralInt(lo, "0") {
		span = hi
	} else {
		span = ast.NewBinary("-", ast.NewParen(hi), ast.NewParen(lo))
	}
	if ls.op == "<=" || ls.op == ">=" {
		span = ast.NewBinary("+", span, ast.NewInt("1", hi.Pos()))
	}

	if ls.unitStep() {
		return span
	}
	step := ast.NewParen(ast.CloneExpr(ls.step))
	rounded := ast.NewBinary("-", ast.NewBinary("+", span, step), ast.NewInt("1", hi.Pos()))
	return ast.NewBinary("/", ast.NewParen(rounded), step)
}

// iterAt returns the expression for the iterator value at iteration index.
func (ls loopShape) iterAt(index ast.Expr) ast.Expr {
	offset := index
	if !ls.unitStep() {
		offset = ast.NewBinary("*", index, ast.NewParen(ast.CloneExpr(ls.step)))
	}
	if ast.IsLiteralInt(ls.start, "0") && !ls.down {
		return offset
	}
	op := "+"
	if ls.down {
		op = "-"
		offset = ast.NewParen(offset)
	}
	return ast.NewBinary(op, ast.NewParen(ast.CloneExpr(ls.start)), offset)
}
