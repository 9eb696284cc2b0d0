package attr

import (
	"fmt"
	"strconv"

	"github.com/dekarrin/kernc/internal/ast"
)

// Names of the built-in attributes.
const (
	Kernel    = "kernel"
	Outer     = "outer"
	Inner     = "inner"
	Tile      = "tile"
	NoBarrier = "nobarrier"
	Shared    = "shared"
	Exclusive = "exclusive"
	Restrict  = "restrict"
	Barrier   = "barrier"
	Dim       = "dim"
)

// MaxLoopDim is the highest loop dimension index an @outer or @inner loop can
// be mapped to.
const MaxLoopDim = 2

func builtins() []Descriptor {
	return []Descriptor{
		{Name: Kernel, Targets: TargetFunction | TargetFunctionDecl, Internal: true},
		{Name: Outer, Targets: TargetFor, MaxArgs: 1, Internal: true, Validate: validateLoopDim},
		{Name: Inner, Targets: TargetFor, MaxArgs: 1, Internal: true, Validate: validateLoopDim},
		{Name: Tile, Targets: TargetFor, MinArgs: 1, MaxArgs: 3, Named: []string{"check"}, Internal: true, Validate: validateTile},
		{Name: NoBarrier, Targets: TargetFor, Internal: true},
		{Name: Shared, Targets: TargetDeclaration | TargetVariable, Internal: true},
		{Name: Exclusive, Targets: TargetDeclaration | TargetVariable, Internal: true},
		{Name: Restrict, Targets: TargetArgument, Internal: true},
		{Name: Barrier, Targets: TargetEmpty | TargetStatement, MaxArgs: 1, Internal: true, Validate: validateBarrier},
		{Name: Dim, Targets: TargetDeclaration | TargetVariable | TargetArgument, MinArgs: 1, MaxArgs: -1, Internal: true, Validate: validateDim},
	}
}

// LoopDim returns the explicit dimension of an @outer or @inner attribute, or
// -1 if none was given.
func LoopDim(a *ast.Attribute) int {
	pos := a.Positional()
	if len(pos) == 0 || pos[0].Value == nil {
		return -1
	}
	lit, ok := pos[0].Value.(*ast.Literal)
	if !ok {
		return -1
	}
	n, err := strconv.Atoi(lit.Text)
	if err != nil {
		return -1
	}
	return n
}

// TileSize returns the size expression of a @tile attribute.
func TileSize(a *ast.Attribute) ast.Expr {
	pos := a.Positional()
	if len(pos) == 0 {
		return nil
	}
	return pos[0].Value
}

// TileLoops returns the attributes to place on the tiled loop and on the loop
// over a single tile, in that order. Either may be nil.
func TileLoops(a *ast.Attribute) (tiled, within *ast.Attribute) {
	pos := a.Positional()
	if len(pos) > 1 {
		tiled = pos[1].Attr
	}
	if len(pos) > 2 {
		within = pos[2].Attr
	}
	return tiled, within
}

// TileCheck returns whether a @tile attribute asks for a bounds check on each
// tile. It defaults to true.
func TileCheck(a *ast.Attribute) bool {
	arg, ok := a.Named("check")
	if !ok {
		return true
	}
	return isTrue(arg.Value)
}

// BarrierScope returns "global" or "local" for a @barrier attribute.
func BarrierScope(a *ast.Attribute) string {
	pos := a.Positional()
	if len(pos) == 0 {
		return "local"
	}
	lit := pos[0].Value.(*ast.Literal)
	s, _ := strconv.Unquote(lit.Text)
	return s
}

func validateLoopDim(a *ast.Attribute) error {
	pos := a.Positional()
	if len(pos) == 0 {
		return nil
	}
	if pos[0].Value == nil {
		return fmt.Errorf("dimension must be an integer")
	}
	lit, ok := pos[0].Value.(*ast.Literal)
	if !ok || lit.Kind != ast.IntLit {
		return fmt.Errorf("dimension must be an integer literal")
	}
	n, err := strconv.Atoi(lit.Text)
	if err != nil || n < 0 || n > MaxLoopDim {
		return fmt.Errorf("dimension must be between 0 and %d, got %s", MaxLoopDim, lit.Text)
	}
	return nil
}

func validateTile(a *ast.Attribute) error {
	pos := a.Positional()
	if pos[0].Value == nil {
		return fmt.Errorf("first argument must be the tile size")
	}

	for _, arg := range pos[1:] {
		if arg.Attr == nil {
			return fmt.Errorf("loop arguments must be @outer or @inner")
		}
		if arg.Attr.Name != Outer && arg.Attr.Name != Inner {
			return fmt.Errorf("loop arguments must be @outer or @inner, not @%s", arg.Attr.Name)
		}
		if len(arg.Attr.Args) > 1 {
			return fmt.Errorf("@%s takes at most 1 argument", arg.Attr.Name)
		}
		if err := validateLoopDim(arg.Attr); err != nil {
			return fmt.Errorf("@%s %s", arg.Attr.Name, err.Error())
		}
	}

	if check, ok := a.Named("check"); ok {
		if !isBool(check.Value) {
			return fmt.Errorf("check must be true or false")
		}
	}
	return nil
}

func validateBarrier(a *ast.Attribute) error {
	pos := a.Positional()
	if len(pos) == 0 {
		return nil
	}
	lit, ok := pos[0].Value.(*ast.Literal)
	if !ok || lit.Kind != ast.StringLit {
		return fmt.Errorf("argument must be \"local\" or \"global\"")
	}
	if s, _ := strconv.Unquote(lit.Text); s != "local" && s != "global" {
		return fmt.Errorf("argument must be \"local\" or \"global\", got %s", lit.Text)
	}
	return nil
}

func validateDim(a *ast.Attribute) error {
	for _, arg := range a.Positional() {
		if arg.Value == nil {
			return fmt.Errorf("arguments must be expressions")
		}
	}
	return nil
}

func isBool(e ast.Expr) bool {
	switch v := e.(type) {
	case *ast.Literal:
		return v.Kind == ast.BoolLit
	case *ast.Ident:
		return v.Name == "true" || v.Name == "false"
	}
	return false
}

func isTrue(e ast.Expr) bool {
	switch v := e.(type) {
	case *ast.Literal:
		return v.Text == "true"
	case *ast.Ident:
		return v.Name == "true"
	}
	return false
}
