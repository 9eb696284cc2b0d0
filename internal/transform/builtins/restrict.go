package builtins

import (
	"github.com/dekarrin/kernc/internal/ast"
	"github.com/dekarrin/kernc/internal/attr"
	"github.com/dekarrin/kernc/internal/transform"
)

// Restrict qualifies the last pointer level of every function argument
// marked @restrict. Applying it more than once has no further effect.
type Restrict struct{}

// NewRestrict returns the restrict pass.
func NewRestrict() Restrict {
	return Restrict{}
}

func (Restrict) Name() string {
	return "restrict"
}

func (Restrict) ValidStatementKinds() ast.Kind {
	return ast.KindFunctionDecl | ast.KindFunction
}

func (r Restrict) TransformStatement(s ast.Statement, slot transform.Slot) (ast.Statement, error) {
	fn := functionOf(s)
	if fn == nil {
		return s, nil
	}

	for _, arg := range fn.Args {
		a := arg.Attrs.Get(attr.Restrict)
		if a == nil {
			continue
		}

		depth := arg.Type.PointerDepth()
		if depth == 0 {
			return nil, attr.Misuse(r.Name(), a, "can only be applied to pointer function arguments")
		}
		if err := arg.Type.AddPointerQualifier(depth-1, ast.Restrict); err != nil {
			return nil, err
		}
	}

	return s, nil
}
