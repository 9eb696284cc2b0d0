package builtins

import (
	"strconv"

	"github.com/dekarrin/kernc/internal/ast"
	"github.com/dekarrin/kernc/internal/source"
)

// loopJumps returns the break and continue statements in the body of loop
// that target loop itself. Jumps inside nested loops target those loops, and
// a break inside a switch leaves the switch.
func loopJumps(loop *ast.ForStatement) (breaks, continues []ast.Statement) {
	var visit func(s ast.Statement, inSwitch bool)
	visit = func(s ast.Statement, inSwitch bool) {
		switch s.Kind() {
		case ast.KindFor, ast.KindWhile:
			return
		case ast.KindBreak:
			if !inSwitch {
				breaks = append(breaks, s)
			}
			return
		case ast.KindContinue:
			continues = append(continues, s)
			return
		case ast.KindSwitch:
			inSwitch = true
		}

		if c, ok := s.(ast.Container); ok {
			for i := 0; i < c.Len(); i++ {
				visit(c.At(i), inSwitch)
			}
		}
	}

	for i := 0; i < loop.Len(); i++ {
		visit(loop.At(i), false)
	}
	return breaks, continues
}

// doOnce returns `do { body } while (0);`. A continue inside it skips the
// rest of body, the same as it did for one iteration of the original loop.
func doOnce(pos source.Position, body ...ast.Statement) *ast.WhileStatement {
	w := &ast.WhileStatement{Node: ast.NodeAt(pos), Cond: ast.NewInt("0", pos), Do: true}
	for _, s := range body {
		w.Append(s)
	}
	return w
}

// wrapContinues moves the body of loop into a doOnce if anything in it
// continues loop, so that statements appended to loop afterward still run on
// every iteration.
func wrapContinues(loop *ast.ForStatement) {
	if _, continues := loopJumps(loop); len(continues) == 0 {
		return
	}
	body := loop.Children
	loop.Children = nil
	loop.Append(doOnce(loop.Pos(), body...))
}

// constInt folds e to an integer when it is built only from integer
// literals and + - * /.
func constInt(e ast.Expr) (int, bool) {
	switch x := unparen(e).(type) {
	case *ast.Literal:
		if x.Kind != ast.IntLit {
			return 0, false
		}
		n, err := strconv.Atoi(x.Text)
		return n, err == nil
	case *ast.Binary:
		a, ok := constInt(x.X)
		if !ok {
			return 0, false
		}
		b, ok := constInt(x.Y)
		if !ok {
			return 0, false
		}
		switch x.Op {
		case "+":
			return a + b, true
		case "-":
			return a - b, true
		case "*":
			return a * b, true
		case "/":
			if b == 0 {
				return 0, false
			}
			return a / b, true
		}
	}
	return 0, false
}
