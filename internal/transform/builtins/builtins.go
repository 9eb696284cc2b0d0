// Package builtins holds the transform passes that lower kernel source to a
// backend: loop tiling, restrict qualification, memory promotion, barriers,
// loop-to-thread mapping, kernel qualification and attribute removal.
package builtins

import (
	"github.com/dekarrin/kernc/internal/ast"
	"github.com/dekarrin/kernc/internal/attr"
	"github.com/dekarrin/kernc/internal/backend"
	"github.com/dekarrin/kernc/internal/kcerrors"
	"github.com/dekarrin/kernc/internal/transform"
)

// DefaultExclusiveSize is the number of inner-loop iterations a host
// @exclusive variable has storage for when Options does not say otherwise.
const DefaultExclusiveSize = 256

// Options configures the built-in passes.
type Options struct {
	// ExclusiveSize is the length of the array an @exclusive variable
	// becomes on host backends.
	ExclusiveSize int

	// Warn receives non-fatal diagnostics. It may be nil.
	Warn func(d *kcerrors.Diagnostic)

	// Launches receives kernel launch metadata. It may be nil.
	Launches *Launches

	// Registry decides which attributes are internal. If nil, the default
	// registry is used.
	Registry *attr.Registry
}

func (o Options) warn(d *kcerrors.Diagnostic) {
	if o.Warn != nil {
		o.Warn(d)
	}
}

// ForBackend returns the pipeline of built-in passes for mode, in the order
// they must run.
func ForBackend(mode backend.Mode, opts Options) (*transform.Pipeline, error) {
	d, err := backend.For(mode)
	if err != nil {
		return nil, err
	}
	if opts.ExclusiveSize <= 0 {
		opts.ExclusiveSize = DefaultExclusiveSize
	}
	if opts.Registry == nil {
		opts.Registry = attr.Default()
	}
	if opts.Launches == nil {
		opts.Launches = NewLaunches()
	}

	return transform.NewPipeline(
		NewDim(),
		NewTile(),
		NewRestrict(),
		NewMemory(d, opts),
		NewBarrier(d, opts),
		NewLoops(d, opts),
		NewKernels(d, opts),
		NewStrip(opts.Registry),
	), nil
}

// functionOf returns the signature of a function definition or declaration.
func functionOf(s ast.Statement) *ast.Function {
	switch st := s.(type) {
	case *ast.FunctionStatement:
		return st.Func
	case *ast.FunctionDeclStatement:
		return st.Func
	}
	return nil
}

func isOuter(s ast.Statement) bool {
	return s.Kind() == ast.KindFor && s.Attributes().Has(attr.Outer)
}

func isInner(s ast.Statement) bool {
	return s.Kind() == ast.KindFor && s.Attributes().Has(attr.Inner)
}

func isLoopAttributed(s ast.Statement) bool {
	return isOuter(s) || isInner(s)
}

// isDivergent returns whether s is control flow that not every thread of a
// work-group is guaranteed to take.
func isDivergent(s ast.Statement) bool {
	return s.Kind().Is(ast.KindIf | ast.KindElif | ast.KindElse | ast.KindSwitch | ast.KindWhile)
}

// enclosingOuter returns the nearest @outer loop above s, stopping at the
// enclosing function.
func enclosingOuter(s ast.Statement) *ast.ForStatement {
	found := ast.EnclosingWhere(s, isOuter, func(p ast.Statement) bool { return p.Kind() == ast.KindFunction })
	if found == nil {
		return nil
	}
	return found.(*ast.ForStatement)
}

// enclosingInner returns the nearest @inner loop above s, stopping at the
// enclosing function.
func enclosingInner(s ast.Statement) *ast.ForStatement {
	found := ast.EnclosingWhere(s, isInner, func(p ast.Statement) bool { return p.Kind() == ast.KindFunction })
	if found == nil {
		return nil
	}
	return found.(*ast.ForStatement)
}

// topLevelInners returns the @inner loops under outer that have no @inner
// loop above them, in pre-order.
func topLevelInners(outer *ast.ForStatement) []*ast.ForStatement {
	var loops []*ast.ForStatement
	for i := 0; i < outer.Len(); i++ {
		ast.Walk(outer.At(i), func(s ast.Statement) bool {
			if isOuter(s) {
				return false
			}
			if isInner(s) {
				loops = append(loops, s.(*ast.ForStatement))
				return false
			}
			return true
		})
	}
	return loops
}

// innermostInners returns the @inner loops at or under loop that contain no
// other @inner loop.
func innermostInners(loop *ast.ForStatement) []*ast.ForStatement {
	var out []*ast.ForStatement
	ast.Walk(loop, func(s ast.Statement) bool {
		if !isInner(s) {
			return true
		}
		f := s.(*ast.ForStatement)
		hasNested := false
		for i := 0; i < f.Len(); i++ {
			ast.Walk(f.At(i), func(c ast.Statement) bool {
				if isInner(c) {
					hasNested = true
				}
				return !hasNested
			})
		}
		if !hasNested {
			out = append(out, f)
		}
		return true
	})
	return out
}

// replaceInParent puts repl in the slot old occupies.
func replaceInParent(old, repl ast.Statement) error {
	parent, idx := ast.IndexOf(old)
	if parent == nil || idx < 0 {
		return kcerrors.Errorf(kcerrors.ErrInternal, "", old.Pos(), "%s statement is not in a container", old.Kind())
	}
	return parent.Set(idx, repl)
}
