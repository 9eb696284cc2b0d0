package ast

// Walk calls fn on s and then on every statement below it in pre-order. The
// branches of an if and the init statement of a for loop are visited as
// children. If fn returns false, the children of that statement are skipped.
func Walk(s Statement, fn func(Statement) bool) {
	if s == nil {
		return
	}
	if !fn(s) {
		return
	}

	if f, ok := s.(*ForStatement); ok && f.Init != nil {
		Walk(f.Init, fn)
	}

	if c, ok := s.(Container); ok {
		for i := 0; i < c.Len(); i++ {
			Walk(c.At(i), fn)
		}
	}
}

// Find returns every statement at or below s for which match returns true, in
// pre-order.
func Find(s Statement, match func(Statement) bool) []Statement {
	var found []Statement
	Walk(s, func(st Statement) bool {
		if match(st) {
			found = append(found, st)
		}
		return true
	})
	return found
}

// WalkExprs calls fn with a pointer to each expression owned directly by s,
// not including those of its children. Assigning through the pointer replaces
// the expression. Declarator array dimensions are included.
func WalkExprs(s Statement, fn func(*Expr)) {
	visit := func(e *Expr) {
		if *e != nil {
			fn(e)
		}
	}

	switch st := s.(type) {
	case *ExprStatement:
		visit(&st.X)
	case *Declaration:
		for i := range st.Decls {
			if vt := st.Decls[i].Var.Type; vt != nil {
				for j := range vt.Arrays {
					visit(&vt.Arrays[j])
				}
			}
			visit(&st.Decls[i].Init)
		}
	case *ReturnStatement:
		visit(&st.Value)
	case *CaseStatement:
		visit(&st.Value)
	case *IfStatement:
		visit(&st.Cond)
	case *ElifStatement:
		visit(&st.Cond)
	case *ForStatement:
		visit(&st.Cond)
		visit(&st.Update)
	case *WhileStatement:
		visit(&st.Cond)
	case *SwitchStatement:
		visit(&st.Value)
	}
}

// RewriteExpr rebuilds e bottom-up, calling fn on every sub-expression after
// its own children have been rewritten. The value fn returns replaces the
// expression it was given.
func RewriteExpr(e Expr, fn func(Expr) Expr) Expr {
	if e == nil {
		return nil
	}

	switch x := e.(type) {
	case *Unary:
		x.X = RewriteExpr(x.X, fn)
	case *Binary:
		x.X = RewriteExpr(x.X, fn)
		x.Y = RewriteExpr(x.Y, fn)
	case *Ternary:
		x.Cond = RewriteExpr(x.Cond, fn)
		x.Then = RewriteExpr(x.Then, fn)
		x.Else = RewriteExpr(x.Else, fn)
	case *Call:
		x.Fn = RewriteExpr(x.Fn, fn)
		for i := range x.Args {
			x.Args[i] = RewriteExpr(x.Args[i], fn)
		}
	case *Subscript:
		x.X = RewriteExpr(x.X, fn)
		x.Index = RewriteExpr(x.Index, fn)
	case *Member:
		x.X = RewriteExpr(x.X, fn)
	case *Cast:
		x.X = RewriteExpr(x.X, fn)
	case *Sizeof:
		x.X = RewriteExpr(x.X, fn)
	case *Paren:
		x.X = RewriteExpr(x.X, fn)
	case *InitList:
		for i := range x.Elems {
			x.Elems[i] = RewriteExpr(x.Elems[i], fn)
		}
	}

	return fn(e)
}

// InspectExpr calls fn on e and each of its sub-expressions, children first.
func InspectExpr(e Expr, fn func(Expr)) {
	RewriteExpr(e, func(x Expr) Expr {
		fn(x)
		return x
	})
}

// RewriteAllExprs applies RewriteExpr with fn to every expression owned by s
// and by the statements below it, including for-loop init statements.
func RewriteAllExprs(s Statement, fn func(Expr) Expr) {
	Walk(s, func(st Statement) bool {
		WalkExprs(st, func(e *Expr) {
			*e = RewriteExpr(*e, fn)
		})
		return true
	})
}

// References returns whether e refers to v anywhere within it.
func References(e Expr, v *Variable) bool {
	found := false
	InspectExpr(e, func(x Expr) {
		if id, ok := x.(*Ident); ok && id.Var == v {
			found = true
		}
	})
	return found
}
