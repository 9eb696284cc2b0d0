package builtins

import (
	"github.com/dekarrin/kernc/internal/ast"
	"github.com/dekarrin/kernc/internal/attr"
	"github.com/dekarrin/kernc/internal/transform"
)

// Tile splits a loop marked @tile(size, ...) into a loop over tiles and a
// loop within each tile. For
//
//	for (int i = 0; i < N; ++i; @tile(16, @outer, @inner))
//
// the result is
//
//	for (int _tile_i = 0; _tile_i < N; _tile_i += 16; @outer)
//	  for (int i = _tile_i; i < _tile_i + 16; ++i; @inner)
//	    if (i < N)
//
// The bounds check is left out when the attribute has check=false.
type Tile struct{}

// NewTile returns the tile pass.
func NewTile() Tile {
	return Tile{}
}

func (Tile) Name() string {
	return "tile"
}

func (Tile) ValidStatementKinds() ast.Kind {
	return ast.KindFor
}

func (t Tile) TransformStatement(s ast.Statement, slot transform.Slot) (ast.Statement, error) {
	loop := s.(*ast.ForStatement)
	a := loop.Attributes().Get(attr.Tile)
	if a == nil {
		return s, nil
	}

	ls, err := shapeOf(t.Name(), loop, a)
	if err != nil {
		return nil, err
	}
	size := attr.TileSize(a)
	pos := loop.Pos()

	stepOp, withinOp := "+=", "+"
	if ls.down {
		stepOp, withinOp = "-=", "-"
	}

	tileVar := ast.NewVariable("_tile_"+ls.iter.Name, ls.iter.Type.Clone(), pos)
	tileVar.Type.Qualifiers = tileVar.Type.Qualifiers.Without(ast.Const)

	tiles := &ast.ForStatement{Node: ast.NodeAt(pos)}
	tiles.SetInit(ast.NewDeclaration(tileVar, ast.CloneExpr(ls.start)))
	tiles.Cond = ast.NewBinary(ls.op, ast.NewIdent(tileVar, pos), ast.CloneExpr(ls.bound))
	tiles.Update = ast.NewBinary(stepOp, ast.NewIdent(tileVar, pos), ast.CloneExpr(size))

	within := &ast.ForStatement{Node: ast.NodeAt(pos)}
	within.SetInit(ast.NewDeclaration(ls.iter, ast.NewIdent(tileVar, pos)))
	withinOpCmp := "<"
	if ls.down {
		withinOpCmp = ">"
	}
	within.Cond = ast.NewBinary(withinOpCmp, ast.NewIdent(ls.iter, pos), ast.NewParen(ast.NewBinary(withinOp, ast.NewIdent(tileVar, pos), ast.NewParen(ast.CloneExpr(size)))))
	within.Update = loop.Update
	tiles.Append(within)

	var body ast.Container = within
	if attr.TileCheck(a) {
		check := &ast.IfStatement{Node: ast.NodeAt(pos), Cond: ast.NewBinary(ls.op, ast.NewIdent(ls.iter, pos), ast.CloneExpr(ls.bound))}
		within.Append(check)
		body = check
	}
	for _, child := range loop.Children {
		body.Append(child)
	}

	tiledAttr, withinAttr := attr.TileLoops(a)
	if tiledAttr != nil {
		tiles.Attributes().Set(tiledAttr.Clone())
	}
	if withinAttr != nil {
		within.Attributes().Set(withinAttr.Clone())
	}
	for _, other := range loop.Attributes().All() {
		if other.Name != attr.Tile && !within.Attributes().Has(other.Name) {
			within.Attributes().Set(other)
		}
	}

	return tiles, nil
}
