package builtins

import (
	"github.com/dekarrin/kernc/internal/ast"
	"github.com/dekarrin/kernc/internal/attr"
	"github.com/dekarrin/kernc/internal/backend"
	"github.com/dekarrin/kernc/internal/transform"
)

// Kernels turns @kernel functions into backend entry points. Kernels must
// return void. On OpenCL, pointer arguments are placed in global memory.
type Kernels struct {
	dialect  backend.Dialect
	launches *Launches
}

// NewKernels returns the kernels pass for d.
func NewKernels(d backend.Dialect, opts Options) Kernels {
	launches := opts.Launches
	if launches == nil {
		launches = NewLaunches()
	}
	return Kernels{dialect: d, launches: launches}
}

func (Kernels) Name() string {
	return "kernels"
}

func (Kernels) ValidStatementKinds() ast.Kind {
	return ast.KindFunctions
}

func (k Kernels) TransformStatement(s ast.Statement, slot transform.Slot) (ast.Statement, error) {
	a := s.Attributes().Get(attr.Kernel)
	if a == nil {
		return s, nil
	}
	fn := functionOf(s)

	ret := fn.Returns
	if ret.Name != "void" || ret.IsPointer() {
		return nil, attr.Misuse(k.Name(), a, "function %s must return void, not %s", fn.Name, ret)
	}

	fn.Qualifiers = fn.Qualifiers.Union(ast.Kernel)
	if err := fn.Qualifiers.Validate(ast.OnFunction); err != nil {
		return nil, err
	}

	if k.dialect.Global != "" {
		for _, arg := range fn.Args {
			if arg.Type.IsPointer() && !arg.Type.Qualifiers.Has(ast.Global) {
				arg.Type.AddQualifier(ast.Global)
			}
		}
	}

	if s.Kind() == ast.KindFunction {
		info := k.launches.kernel(fn.Name)
		info.Args = info.Args[:0]
		for _, arg := range fn.Args {
			info.Args = append(info.Args, arg.Type.Declare(arg.Name))
		}
	}

	return s, nil
}
