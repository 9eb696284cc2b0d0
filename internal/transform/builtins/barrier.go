package builtins

import (
	"github.com/dekarrin/kernc/internal/ast"
	"github.com/dekarrin/kernc/internal/attr"
	"github.com/dekarrin/kernc/internal/backend"
	"github.com/dekarrin/kernc/internal/kcerrors"
	"github.com/dekarrin/kernc/internal/transform"
)

// Barrier lowers @barrier to the backend synchronization primitive. On GPU
// backends it also synchronizes between consecutive inner loops of an outer
// loop that declares @shared memory, unless the earlier loop is marked
// @nobarrier.
type Barrier struct {
	dialect backend.Dialect
	opts    Options
}

// NewBarrier returns the barrier pass for d.
func NewBarrier(d backend.Dialect, opts Options) Barrier {
	return Barrier{dialect: d, opts: opts}
}

func (Barrier) Name() string {
	return "barrier"
}

func (Barrier) ValidStatementKinds() ast.Kind {
	return ast.KindAll
}

func (b Barrier) TransformStatement(s ast.Statement, slot transform.Slot) (ast.Statement, error) {
	if a := s.Attributes().Get(attr.Barrier); a != nil {
		return b.lower(s, a)
	}

	if loop, ok := s.(*ast.ForStatement); ok && isOuter(loop) && b.dialect.Mode.IsGPU() && declaresShared(loop) {
		b.insertAutomatic(loop)
	}
	return s, nil
}

func (b Barrier) lower(s ast.Statement, a *ast.Attribute) (ast.Statement, error) {
	for p := s.Parent(); ; p = p.Parent() {
		if p == nil || p.Kind().Is(ast.KindFunction) {
			return nil, attr.Misuse(b.Name(), a, "can only be used inside an @outer loop")
		}
		if isInner(p) {
			return nil, attr.Misuse(b.Name(), a, "cannot be used inside an @inner loop")
		}
		if isOuter(p) {
			break
		}
		if isDivergent(p) {
			return nil, attr.Misuse(b.Name(), a, "cannot be used inside divergent control flow (%s)", p.Kind())
		}
	}

	s.Attributes().Remove(attr.Barrier)
	sync := ast.NewRawStatement(b.dialect.Barriers[attr.BarrierScope(a)], a.Pos)

	if s.Kind() == ast.KindEmpty && s.Attributes().Len() == 0 {
		return sync, nil
	}
	return ast.NewBlock(s.Pos(), false, sync, s), nil
}

// declaresShared returns whether a @shared variable is declared directly in
// outer.
func declaresShared(outer *ast.ForStatement) bool {
	found := false
	for i := 0; i < outer.Len() && !found; i++ {
		ast.Walk(outer.At(i), func(s ast.Statement) bool {
			if found || isLoopAttributed(s) {
				return false
			}
			if decl, ok := s.(*ast.Declaration); ok {
				for _, d := range decl.Decls {
					if d.Var.Attrs.Has(attr.Shared) {
						found = true
					}
				}
			}
			return !found
		})
	}
	return found
}

func (b Barrier) insertAutomatic(outer *ast.ForStatement) {
	loops := topLevelInners(outer)
	if len(loops) < 2 {
		return
	}

	// the last inner loop needs no barrier after it
	for _, loop := range loops[:len(loops)-1] {
		if loop.Attributes().Has(attr.NoBarrier) {
			continue
		}

		if divergent := ast.EnclosingWhere(loop, isDivergent, isOuter); divergent != nil {
			b.opts.warn(kcerrors.Warningf(b.Name(), loop.Pos(), "no barrier inserted after @inner loop inside %s; add @nobarrier or an explicit @barrier", divergent.Kind()))
			continue
		}

		parent, idx := ast.IndexOf(loop)
		if parent == nil || idx < 0 {
			continue
		}
		if idx+1 < parent.Len() {
			next := parent.At(idx + 1)
			if next.Attributes().Has(attr.Barrier) || isBarrierRaw(b.dialect, next) {
				continue
			}
		}

		sync := ast.NewRawStatement(b.dialect.Barriers["local"], loop.Pos())
		if err := parent.Insert(idx+1, sync); err != nil {
			b.opts.warn(kcerrors.Warningf(b.Name(), loop.Pos(), "no barrier inserted after @inner loop: %s", err.Error()))
		}
	}
}

func isBarrierRaw(d backend.Dialect, s ast.Statement) bool {
	raw, ok := s.(*ast.RawStatement)
	if !ok {
		return false
	}
	for _, prim := range d.Barriers {
		if raw.Text == prim {
			return true
		}
	}
	return false
}
