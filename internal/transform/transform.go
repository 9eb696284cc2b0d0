// Package transform runs passes over a statement tree. A Pass sees every
// statement whose kind is in its mask, in a deterministic pre-order walk, and
// may keep the statement, replace it, or fail.
package transform

import (
	"github.com/dekarrin/kernc/internal/ast"
	"github.com/dekarrin/kernc/internal/kcerrors"
)

// Slot is where a visited statement sits in the tree. Parent is nil for the
// root.
type Slot struct {
	Parent ast.Container
	Index  int
}

// Pass is a single tree rewrite.
type Pass interface {
	// Name identifies the pass in diagnostics.
	Name() string

	// ValidStatementKinds is the mask of statement kinds TransformStatement
	// is called for.
	ValidStatementKinds() ast.Kind

	// TransformStatement is called for each matching statement. Returning s
	// keeps it, returning another statement replaces it in the same slot, and
	// returning an error aborts the pass.
	TransformStatement(s ast.Statement, slot Slot) (ast.Statement, error)
}

// Apply runs p over the tree rooted at root. The walk is pre-order; after a
// statement is visited, the walk continues into the children of whatever now
// occupies its slot. The first error stops the walk and is returned as a
// *kcerrors.Diagnostic whose stage is the pass name.
func Apply(p Pass, root ast.Statement) error {
	mask := p.ValidStatementKinds()

	var visit func(s ast.Statement, slot Slot) (ast.Statement, error)
	visit = func(s ast.Statement, slot Slot) (ast.Statement, error) {
		if s.Kind().Is(mask) {
			out, err := p.TransformStatement(s, slot)
			if err != nil {
				return nil, kcerrors.Wrap(err, p.Name(), s.Pos())
			}
			if out == nil {
				return nil, kcerrors.Errorf(kcerrors.ErrInternal, p.Name(), s.Pos(), "pass returned no statement for %s", s.Kind())
			}
			if out != s {
				if slot.Parent == nil {
					return nil, kcerrors.Errorf(kcerrors.ErrInternal, p.Name(), s.Pos(), "pass cannot replace the root statement")
				}
				if err := slot.Parent.Set(slot.Index, out); err != nil {
					return nil, kcerrors.Wrap(err, p.Name(), s.Pos())
				}
				s = out
			}
		}

		c, ok := s.(ast.Container)
		if !ok {
			return s, nil
		}
		for i := 0; i < c.Len(); i++ {
			if _, err := visit(c.At(i), Slot{Parent: c, Index: i}); err != nil {
				return nil, err
			}
		}
		return s, nil
	}

	_, err := visit(root, Slot{})
	return err
}

// Func is a Pass built from a function.
type Func struct {
	name  string
	kinds ast.Kind
	fn    func(s ast.Statement, slot Slot) (ast.Statement, error)
}

// New returns a Pass that calls fn for statements whose kind is in kinds.
func New(name string, kinds ast.Kind, fn func(s ast.Statement, slot Slot) (ast.Statement, error)) Func {
	return Func{name: name, kinds: kinds, fn: fn}
}

func (f Func) Name() string                  { return f.name }
func (f Func) ValidStatementKinds() ast.Kind { return f.kinds }

func (f Func) TransformStatement(s ast.Statement, slot Slot) (ast.Statement, error) {
	return f.fn(s, slot)
}

// Pipeline is an ordered list of passes.
type Pipeline struct {
	passes []Pass
}

// NewPipeline returns a Pipeline that runs passes in the given order.
func NewPipeline(passes ...Pass) *Pipeline {
	pl := &Pipeline{}
	pl.passes = append(pl.passes, passes...)
	return pl
}

// Add appends p to the pipeline.
func (pl *Pipeline) Add(p Pass) {
	pl.passes = append(pl.passes, p)
}

// Passes returns the names of the passes in order.
func (pl *Pipeline) Passes() []string {
	names := make([]string, len(pl.passes))
	for i := range pl.passes {
		names[i] = pl.passes[i].Name()
	}
	return names
}

// Run applies every pass to root in order. It stops at the first pass that
// fails; the tree is then in an unspecified state and must be discarded.
func (pl *Pipeline) Run(root ast.Statement) error {
	for _, p := range pl.passes {
		if err := Apply(p, root); err != nil {
			return err
		}
	}
	return nil
}
