package builtins

import (
	"strconv"

	"github.com/dekarrin/kernc/internal/ast"
	"github.com/dekarrin/kernc/internal/attr"
	"github.com/dekarrin/kernc/internal/backend"
	"github.com/dekarrin/kernc/internal/kcerrors"
	"github.com/dekarrin/kernc/internal/transform"
)

// Loops maps @outer and @inner loops onto the parallel hierarchy of the
// backend.
//
// When a function is visited, every attributed loop in it is validated and
// loops without an explicit dimension are given one, counting up from 0 at
// the innermost loop of each nest. When a loop is visited it is rewritten:
// GPU backends replace it with a block that computes the iterator from the
// work-group or work-item index, OpenMP runs the outermost @outer loop in
// parallel, and Serial leaves loops as they are.
//
// On GPU backends a continue in a mapped loop ends the work item's pass
// through the body, and a break out of one is an error. Sibling loops of one
// dimension that run fewer iterations than the launch extent are guarded.
type Loops struct {
	dialect  backend.Dialect
	launches *Launches
	warn     func(d *kcerrors.Diagnostic)

	// wrapped tracks OpenMP loops that already carry the parallel pragma.
	wrapped map[*ast.ForStatement]bool

	// guards holds the extent of GPU loops that run fewer iterations than
	// the launch extent of their dimension.
	guards map[*ast.ForStatement]ast.Expr
}

// NewLoops returns the loops pass for d.
func NewLoops(d backend.Dialect, opts Options) *Loops {
	launches := opts.Launches
	if launches == nil {
		launches = NewLaunches()
	}
	return &Loops{
		dialect:  d,
		launches: launches,
		warn:     opts.warn,
		wrapped:  make(map[*ast.ForStatement]bool),
		guards:   make(map[*ast.ForStatement]ast.Expr),
	}
}

func (*Loops) Name() string {
	return "loops"
}

func (*Loops) ValidStatementKinds() ast.Kind {
	return ast.KindFunction | ast.KindFor
}

func (l *Loops) TransformStatement(s ast.Statement, slot transform.Slot) (ast.Statement, error) {
	switch st := s.(type) {
	case *ast.FunctionStatement:
		return s, l.validate(st)
	case *ast.ForStatement:
		if isLoopAttributed(st) {
			return l.rewrite(st)
		}
	}
	return s, nil
}

func loopAttr(loop *ast.ForStatement) *ast.Attribute {
	if a := loop.Attributes().Get(attr.Outer); a != nil {
		return a
	}
	return loop.Attributes().Get(attr.Inner)
}

func (l *Loops) validate(fn *ast.FunctionStatement) error {
	kernelAttr := fn.Attributes().Get(attr.Kernel)

	var loops []*ast.ForStatement
	for i := 0; i < fn.Len(); i++ {
		ast.Walk(fn.At(i), func(s ast.Statement) bool {
			if isLoopAttributed(s) {
				loops = append(loops, s.(*ast.ForStatement))
			}
			return true
		})
	}

	hasOuter := false
	for _, loop := range loops {
		outerAttr := loop.Attributes().Get(attr.Outer)
		innerAttr := loop.Attributes().Get(attr.Inner)
		a := loopAttr(loop)

		if outerAttr != nil && innerAttr != nil {
			return attr.Misuse(l.Name(), innerAttr, "cannot be combined with @outer on the same loop")
		}
		if kernelAttr == nil {
			return attr.Misuse(l.Name(), a, "loops can only be used in @kernel functions")
		}
		if _, err := shapeOf(l.Name(), loop, a); err != nil {
			return err
		}
		if l.dialect.Mode.IsGPU() {
			if breaks, _ := loopJumps(loop); len(breaks) > 0 {
				return kcerrors.Errorf(kcerrors.ErrAttributeMisuse, l.Name(), breaks[0].Pos(), "[@%s] break cannot leave a loop that runs as parallel %s work items", a.Name, l.dialect.Mode)
			}
		}

		if outerAttr != nil {
			hasOuter = true
			if enclosingInner(loop) != nil {
				return attr.Misuse(l.Name(), outerAttr, "cannot be inside an @inner loop")
			}
			if len(topLevelInners(loop)) == 0 && !containsOuter(loop) {
				return attr.Misuse(l.Name(), outerAttr, "loop must contain an @inner loop")
			}
		} else if enclosingOuter(loop) == nil {
			return attr.Misuse(l.Name(), innerAttr, "must be inside an @outer loop")
		}
	}

	if kernelAttr != nil && !hasOuter {
		return attr.Misuse(l.Name(), kernelAttr, "function %s must contain an @outer loop", fn.Func.Name)
	}

	for _, loop := range loops {
		if err := l.assignDim(loop); err != nil {
			return err
		}
	}
	for _, loop := range loops {
		if err := l.checkDuplicateDim(loop); err != nil {
			return err
		}
	}

	if kernelAttr != nil {
		l.recordLaunch(fn, loops)
	}

	return nil
}

// extentGroup is every loop of one kernel mapped to the same attribute and
// dimension.
type extentGroup struct {
	name    string
	dim     int
	loops   []*ast.ForStatement
	extents []ast.Expr
}

// recordLaunch stores the launch extents of fn. When loops that share a
// dimension disagree, the largest constant extent wins; if any of them is not
// constant the first one wins and a warning is raised. On GPU backends the
// loops that differ from the chosen extent are guarded.
func (l *Loops) recordLaunch(fn *ast.FunctionStatement, loops []*ast.ForStatement) {
	var groups []*extentGroup
	for _, loop := range loops {
		a := loopAttr(loop)
		ls, _ := shapeOf(l.Name(), loop, a)
		dim := attr.LoopDim(a)

		var g *extentGroup
		for _, cur := range groups {
			if cur.name == a.Name && cur.dim == dim {
				g = cur
				break
			}
		}
		if g == nil {
			g = &extentGroup{name: a.Name, dim: dim}
			groups = append(groups, g)
		}
		g.loops = append(g.loops, loop)
		g.extents = append(g.extents, ls.extent())
	}

	info := l.launches.kernel(fn.Func.Name)
	for _, g := range groups {
		chosen := l.chooseExtent(g)
		text := ast.FormatExpr(chosen)

		if l.dialect.Mode.IsGPU() {
			for i, loop := range g.loops {
				if ast.FormatExpr(g.extents[i]) != text {
					l.guards[loop] = g.extents[i]
				}
			}
		}

		if g.name == attr.Outer {
			info.Outer = setExtent(info.Outer, g.dim, text)
		} else {
			info.Inner = setExtent(info.Inner, g.dim, text)
		}
	}
	info.Outer = fillExtents(info.Outer)
	info.Inner = fillExtents(info.Inner)
}

func (l *Loops) chooseExtent(g *extentGroup) ast.Expr {
	best := g.extents[0]
	bestN, allConst := constInt(best)
	for _, e := range g.extents[1:] {
		n, ok := constInt(e)
		if !ok {
			allConst = false
			break
		}
		if n > bestN {
			best, bestN = e, n
		}
	}
	if allConst {
		return best
	}

	first := ast.FormatExpr(g.extents[0])
	for i, e := range g.extents[1:] {
		if other := ast.FormatExpr(e); other != first && l.dialect.Mode.IsGPU() {
			l.warn(kcerrors.Warningf(l.Name(), g.loops[i+1].Pos(), "@%s loops in dimension %d have extents %s and %s; the launch uses %s and longer loops are cut short", g.name, g.dim, first, other, first))
		}
	}
	return g.extents[0]
}

func containsOuter(loop *ast.ForStatement) bool {
	found := false
	for i := 0; i < loop.Len(); i++ {
		ast.Walk(loop.At(i), func(s ast.Statement) bool {
			if isOuter(s) {
				found = true
			}
			return !found
		})
	}
	return found
}

// nestDepth returns how many loops with the same attribute as loop are nested
// below it along the deepest path.
func nestDepth(loop *ast.ForStatement, name string) int {
	deepest := 0
	for i := 0; i < loop.Len(); i++ {
		ast.Walk(loop.At(i), func(s ast.Statement) bool {
			if s.Kind() == ast.KindFor && s.Attributes().Has(name) {
				if d := 1 + nestDepth(s.(*ast.ForStatement), name); d > deepest {
					deepest = d
				}
				return false
			}
			return true
		})
	}
	return deepest
}

func (l *Loops) assignDim(loop *ast.ForStatement) error {
	a := loopAttr(loop)
	if attr.LoopDim(a) >= 0 {
		return nil
	}

	dim := nestDepth(loop, a.Name)
	if dim > attr.MaxLoopDim {
		return attr.Misuse(l.Name(), a, "loop nest is deeper than %d dimensions", attr.MaxLoopDim+1)
	}
	a.Args = []ast.AttributeArg{{Value: ast.NewInt(strconv.Itoa(dim), a.Pos)}}
	return nil
}

func (l *Loops) checkDuplicateDim(loop *ast.ForStatement) error {
	a := loopAttr(loop)
	dim := attr.LoopDim(a)

	for p := loop.Parent(); p != nil && p.Kind() != ast.KindFunction; p = p.Parent() {
		if p.Kind() != ast.KindFor {
			continue
		}
		if other := p.Attributes().Get(a.Name); other != nil && attr.LoopDim(other) == dim {
			return attr.Misuse(l.Name(), a, "dimension %d is already used by an enclosing @%s loop", dim, a.Name)
		}
	}
	return nil
}

func (l *Loops) rewrite(loop *ast.ForStatement) (ast.Statement, error) {
	a := loopAttr(loop)
	ls, err := shapeOf(l.Name(), loop, a)
	if err != nil {
		return nil, err
	}

	switch {
	case l.dialect.Mode.IsGPU():
		dim := attr.LoopDim(a)
		if dim < 0 || dim > attr.MaxLoopDim {
			return nil, kcerrors.Errorf(kcerrors.ErrInternal, l.Name(), a.Pos, "loop dimension was not assigned")
		}
		index := l.dialect.InnerIndex[dim]
		if a.Name == attr.Outer {
			index = l.dialect.OuterIndex[dim]
		}

		body := loop.Children
		if _, continues := loopJumps(loop); len(continues) > 0 {
			body = []ast.Statement{doOnce(loop.Pos(), body...)}
		}
		if extent, ok := l.guards[loop]; ok {
			guard := &ast.IfStatement{
				Node: ast.NodeAt(loop.Pos()),
				Cond: ast.NewBinary("<", ast.NewRaw(index, a.Pos), ast.NewParen(ast.CloneExpr(extent))),
			}
			for _, child := range body {
				guard.Append(child)
			}
			body = []ast.Statement{guard}
		}

		iter := ast.NewDeclaration(ls.iter, ls.iterAt(ast.NewRaw(index, a.Pos)))
		blk := ast.NewBlock(loop.Pos(), true, iter)
		for _, child := range body {
			blk.Append(child)
		}
		return blk, nil

	case l.dialect.Mode == backend.OpenMP:
		if a.Name != attr.Outer || enclosingOuter(loop) != nil || l.wrapped[loop] {
			return loop, nil
		}
		l.wrapped[loop] = true
		pragma := &ast.PragmaStatement{Node: ast.NodeAt(loop.Pos()), Text: "omp parallel for"}
		return ast.NewBlock(loop.Pos(), false, pragma, loop), nil
	}

	return loop, nil
}
