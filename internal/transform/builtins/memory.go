package builtins

import (
	"strconv"

	"github.com/dekarrin/kernc/internal/ast"
	"github.com/dekarrin/kernc/internal/attr"
	"github.com/dekarrin/kernc/internal/backend"
	"github.com/dekarrin/kernc/internal/kcerrors"
	"github.com/dekarrin/kernc/internal/transform"
)

// exclusiveIndexName is the counter host backends use to select the copy of
// an @exclusive variable that belongs to the current inner-loop iteration.
const exclusiveIndexName = "_exclusive_index"

// Memory places @shared and @exclusive variables.
//
// A @shared array is shared by every inner-loop iteration of one outer-loop
// iteration. On GPU backends it gets the shared memory qualifier; on host
// backends a plain local array already has that behavior.
//
// An @exclusive variable is private to each inner-loop iteration but keeps
// its value across sibling inner loops of the same outer iteration. GPU
// backends get this from a plain local. Host backends run the inner loops
// sequentially, so the variable becomes an array with one element per inner
// iteration, indexed by a counter that is reset before each inner loop nest
// and advanced at the end of each innermost iteration.
type Memory struct {
	dialect backend.Dialect
	size    int
}

// NewMemory returns the memory pass for d.
func NewMemory(d backend.Dialect, opts Options) Memory {
	size := opts.ExclusiveSize
	if size <= 0 {
		size = DefaultExclusiveSize
	}
	return Memory{dialect: d, size: size}
}

func (Memory) Name() string {
	return "memory"
}

func (Memory) ValidStatementKinds() ast.Kind {
	return ast.KindDeclaration | ast.KindFor
}

func (m Memory) TransformStatement(s ast.Statement, slot transform.Slot) (ast.Statement, error) {
	switch st := s.(type) {
	case *ast.Declaration:
		return s, m.placeDeclaration(st)
	case *ast.ForStatement:
		if !m.dialect.Mode.IsGPU() && isOuter(st) {
			return s, m.expandExclusives(st)
		}
	}
	return s, nil
}

func (m Memory) placeDeclaration(decl *ast.Declaration) error {
	for _, d := range decl.Decls {
		v := d.Var
		shared := v.Attrs.Get(attr.Shared)
		exclusive := v.Attrs.Get(attr.Exclusive)

		if shared != nil && exclusive != nil {
			return kcerrors.Errorf(kcerrors.ErrQualifierConflict, m.Name(), exclusive.Pos, "%s cannot be both @shared and @exclusive", v.Name)
		}

		if shared != nil {
			if err := m.checkPlacement(decl, shared); err != nil {
				return err
			}
			if !v.Type.IsArray() {
				return attr.Misuse(m.Name(), shared, "%s must be an array", v.Name)
			}
			if d.Init != nil {
				return attr.Misuse(m.Name(), shared, "%s cannot have an initializer", v.Name)
			}
			if m.dialect.Mode.IsGPU() {
				v.Type.AddQualifier(ast.Shared)
				if err := v.Type.Qualifiers.Validate(ast.OnBase); err != nil {
					return kcerrors.Wrap(err, m.Name(), v.Pos)
				}
			}
		}

		if exclusive != nil {
			if err := m.checkExclusive(decl, d, exclusive); err != nil {
				return err
			}
		}
	}
	return nil
}

// checkPlacement verifies that decl is inside an @outer loop and outside any
// @inner loop.
func (m Memory) checkPlacement(decl ast.Statement, a *ast.Attribute) error {
	if enclosingInner(decl) != nil {
		return attr.Misuse(m.Name(), a, "cannot be declared inside an @inner loop")
	}
	if enclosingOuter(decl) == nil {
		return attr.Misuse(m.Name(), a, "must be declared inside an @outer loop")
	}
	return nil
}

func (m Memory) checkExclusive(decl *ast.Declaration, d ast.Declarator, a *ast.Attribute) error {
	if err := m.checkPlacement(decl, a); err != nil {
		return err
	}
	if d.Init != nil {
		return attr.Misuse(m.Name(), a, "%s cannot have an initializer", d.Var.Name)
	}
	return nil
}

// expandExclusives rewrites the @exclusive variables declared directly in
// outer for a host backend.
func (m Memory) expandExclusives(outer *ast.ForStatement) error {
	var decls []*ast.Declaration
	var vars []*ast.Variable

	for i := 0; i < outer.Len(); i++ {
		ast.Walk(outer.At(i), func(s ast.Statement) bool {
			if isLoopAttributed(s) {
				return false
			}
			if decl, ok := s.(*ast.Declaration); ok {
				for _, d := range decl.Decls {
					a := d.Var.Attrs.Get(attr.Exclusive)
					if a == nil {
						continue
					}
					if err := m.checkExclusive(decl, d, a); err != nil {
						// reported when the declaration itself is visited
						continue
					}
					decls = append(decls, decl)
					vars = append(vars, d.Var)
				}
			}
			return true
		})
	}
	if len(vars) == 0 {
		return nil
	}

	pos := outer.Pos()
	intType := ast.NewType("int")
	index := ast.NewVariable(exclusiveIndexName, intType, pos)

	for _, v := range vars {
		v.Type.Arrays = append([]ast.Expr{ast.NewInt(strconv.Itoa(m.size), v.Pos)}, v.Type.Arrays...)
	}

	for _, v := range vars {
		if err := m.checkExclusiveUses(outer, v); err != nil {
			return err
		}
	}

	for _, loop := range topLevelInners(outer) {
		if n, ok := innerIterations(loop); ok && n > m.size {
			a := vars[0].Attrs.Get(attr.Exclusive)
			return kcerrors.Errorf(kcerrors.ErrAttributeMisuse, m.Name(), loop.Pos(), "[@%s] inner loops run %d iterations but exclusive storage holds %d; raise the exclusive size", a.Name, n, m.size)
		}
	}

	for _, loop := range topLevelInners(outer) {
		ast.RewriteAllExprs(loop, func(e ast.Expr) ast.Expr {
			id, ok := e.(*ast.Ident)
			if !ok || id.Var == nil {
				return e
			}
			for _, v := range vars {
				if id.Var == v {
					return &ast.Subscript{ExprPos: ast.At(id.Pos()), X: id, Index: ast.NewIdent(index, id.Pos())}
				}
			}
			return e
		})

		for _, innermost := range innermostInners(loop) {
			wrapContinues(innermost)
			innermost.Append(ast.NewExprStatement(&ast.Unary{ExprPos: ast.At(innermost.Pos()), Op: "++", X: ast.NewIdent(index, innermost.Pos())}))
		}

		reset := ast.NewExprStatement(ast.NewBinary("=", ast.NewIdent(index, loop.Pos()), ast.NewInt("0", loop.Pos())))
		nest := ast.NewBlock(loop.Pos(), false)
		if err := replaceInParent(loop, nest); err != nil {
			return err
		}
		nest.Append(reset)
		nest.Append(loop)
	}

	return outer.Insert(0, ast.NewDeclaration(index, nil))
}

func (m Memory) checkExclusiveUses(outer *ast.ForStatement, v *ast.Variable) error {
	var err error
	for i := 0; i < outer.Len() && err == nil; i++ {
		ast.Walk(outer.At(i), func(s ast.Statement) bool {
			if err != nil || isLoopAttributed(s) {
				return false
			}
			ast.WalkExprs(s, func(e *ast.Expr) {
				if err != nil {
					return
				}
				ast.InspectExpr(*e, func(x ast.Expr) {
					if err == nil && isIdentOf(x, v) {
						a := v.Attrs.Get(attr.Exclusive)
						err = kcerrors.Errorf(kcerrors.ErrAttributeMisuse, m.Name(), x.Pos(), "[@%s] %s can only be used inside @inner loops", a.Name, v.Name)
					}
				})
			})
			return true
		})
	}
	return err
}

// innerIterations returns how many innermost iterations the @inner nest
// rooted at loop runs, when every extent in it is constant.
func innerIterations(loop *ast.ForStatement) (int, bool) {
	ls, err := shapeOf("memory", loop, loopAttr(loop))
	if err != nil {
		return 0, false
	}
	n, ok := constInt(ls.extent())
	if !ok {
		return 0, false
	}

	nested := topLevelInners(loop)
	if len(nested) == 0 {
		return n, true
	}
	per := 0
	for _, child := range nested {
		c, ok := innerIterations(child)
		if !ok {
			return 0, false
		}
		per += c
	}
	return n * per, true
}
