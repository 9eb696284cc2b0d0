package ast

import (
	"errors"
	"testing"

	"github.com/dekarrin/kernc/internal/kcerrors"
	"github.com/dekarrin/kernc/internal/source"
	"github.com/stretchr/testify/assert"
)

func pos(line, col int) source.Position {
	return source.Position{File: "test.okl", Line: line, Column: col}
}

func Test_Kind_String(t *testing.T) {
	testCases := []struct {
		name   string
		input  Kind
		expect string
	}{
		{name: "none", input: KindNone, expect: "none"},
		{name: "all", input: KindAll, expect: "all"},
		{name: "single", input: KindFor, expect: "for"},
		{name: "mask", input: KindFunction | KindFor, expect: "function|for"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)
			assert.Equal(tc.expect, tc.input.String())
		})
	}
}

func Test_Kind_Is(t *testing.T) {
	assert := assert.New(t)

	assert.True(KindFor.Is(KindContainers))
	assert.True(KindFunctionDecl.Is(KindFunctions))
	assert.False(KindReturn.Is(KindContainers))
	assert.False(KindFor.Is(KindNone))
	assert.True(KindRaw.Is(KindAll))
}

func Test_Qualifier_Union(t *testing.T) {
	assert := assert.New(t)

	q := Const.Union(Restrict)
	assert.Equal(q, q.Union(Restrict), "union is idempotent")
	assert.Equal(Const.Union(Volatile).Union(Restrict), Const.Union(Volatile.Union(Restrict)), "union is associative")
	assert.True(q.Has(Const))
	assert.True(q.Has(Restrict))
	assert.False(q.Has(Volatile))
	assert.Equal(Const, q.Without(Restrict))
}

func Test_Qualifier_Validate(t *testing.T) {
	testCases := []struct {
		name      string
		q         Qualifier
		where     Placement
		expectErr bool
	}{
		{name: "const on base", q: Const, where: OnBase},
		{name: "const on pointer", q: Const, where: OnPointer},
		{name: "restrict on pointer", q: Restrict, where: OnPointer},
		{name: "restrict on base", q: Restrict, where: OnBase, expectErr: true},
		{name: "inline on base", q: Inline, where: OnBase, expectErr: true},
		{name: "kernel on function", q: Kernel, where: OnFunction},
		{name: "static and extern", q: Static | Extern, where: OnBase, expectErr: true},
		{name: "shared and exclusive", q: Shared | Exclusive, where: OnBase, expectErr: true},
		{name: "shared and global", q: Shared | Global, where: OnBase, expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			err := tc.q.Validate(tc.where)
			if tc.expectErr {
				assert.ErrorIs(err, kcerrors.ErrQualifierConflict)
			} else {
				assert.NoError(err)
			}
		})
	}
}

func Test_VarType_Declare(t *testing.T) {
	testCases := []struct {
		name   string
		build  func() *VarType
		decl   string
		expect string
	}{
		{
			name:   "plain",
			build:  func() *VarType { return NewType("int") },
			decl:   "i",
			expect: "int i",
		},
		{
			name: "const pointer",
			build: func() *VarType {
				vt := NewType("float")
				vt.AddQualifier(Const)
				vt.AddPointer(NoQualifiers)
				return vt
			},
			decl:   "a",
			expect: "const float *a",
		},
		{
			name: "restrict on last pointer level",
			build: func() *VarType {
				vt := NewType("float")
				vt.AddPointer(NoQualifiers)
				vt.AddPointer(Restrict)
				return vt
			},
			decl:   "m",
			expect: "float * * restrict m",
		},
		{
			name: "array",
			build: func() *VarType {
				vt := NewType("float")
				vt.Arrays = append(vt.Arrays, NewInt("16", pos(1, 1)))
				return vt
			},
			decl:   "tile",
			expect: "float tile[16]",
		},
		{
			name: "abstract",
			build: func() *VarType {
				vt := NewType("int")
				vt.AddPointer(NoQualifiers)
				return vt
			},
			expect: "int *",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)
			assert.Equal(tc.expect, tc.build().Declare(tc.decl))
		})
	}
}

func Test_VarType_AddPointerQualifier(t *testing.T) {
	assert := assert.New(t)

	vt := NewType("float")
	err := vt.AddPointerQualifier(0, Restrict)
	assert.ErrorIs(err, kcerrors.ErrQualifierConflict, "no pointer level to qualify")

	vt.AddPointer(NoQualifiers)
	assert.NoError(vt.AddPointerQualifier(0, Restrict))
	assert.True(vt.Pointers[0].Qualifiers.Has(Restrict))

	err = vt.AddPointerQualifier(0, Inline)
	assert.ErrorIs(err, kcerrors.ErrQualifierConflict)
}

func Test_VarType_Clone(t *testing.T) {
	assert := assert.New(t)

	vt := NewType("float")
	vt.AddPointer(NoQualifiers)

	c := vt.Clone()
	assert.NoError(c.AddPointerQualifier(0, Restrict))
	assert.Equal(NoQualifiers, vt.Pointers[0].Qualifiers, "clone must not share pointer levels")
}

func Test_AttributeTable(t *testing.T) {
	assert := assert.New(t)

	var tbl AttributeTable
	tbl.Set(&Attribute{Name: "outer"})
	tbl.Set(&Attribute{Name: "tile", Args: []AttributeArg{{Value: NewInt("16", pos(1, 1))}}})
	tbl.Set(&Attribute{Name: "outer", Args: []AttributeArg{{Value: NewInt("1", pos(1, 1))}}})

	assert.Equal(2, tbl.Len())
	assert.Equal("@outer(1) @tile(16)", tbl.String())

	removed := tbl.Remove("outer")
	if assert.NotNil(removed) {
		assert.Equal("outer", removed.Name)
	}
	assert.False(tbl.Has("outer"))
	assert.Nil(tbl.Remove("outer"))
}

func Test_To(t *testing.T) {
	assert := assert.New(t)

	var s Statement = NewBlock(pos(1, 1), true)

	blk, err := To[*BlockStatement](s)
	assert.NoError(err)
	assert.Same(s, blk)

	_, err = To[*ForStatement](s)
	assert.ErrorIs(err, kcerrors.ErrTypeMismatch)

	var d *kcerrors.Diagnostic
	if assert.True(errors.As(err, &d)) {
		assert.Equal(pos(1, 1), d.Pos)
		assert.Contains(d.Message, "ForStatement")
	}

	_, err = To[*BlockStatement](nil)
	assert.ErrorIs(err, kcerrors.ErrTypeMismatch)
}

func Test_Container_Set(t *testing.T) {
	assert := assert.New(t)

	ret := &ReturnStatement{Node: NodeAt(pos(2, 3))}
	blk := NewBlock(pos(1, 1), true, ret)

	assert.Same(blk, ret.Parent())

	brk := &BreakStatement{Node: NodeAt(pos(2, 3))}
	assert.NoError(blk.Set(0, brk))
	assert.Same(blk, brk.Parent())
	assert.Same(brk, blk.At(0))

	err := blk.Set(5, brk)
	assert.ErrorIs(err, kcerrors.ErrInternal)

	assert.NoError(blk.Insert(0, ret))
	assert.Equal(2, blk.Len())
	assert.Same(ret, blk.At(0))
	assert.Same(brk, blk.At(1))
}

func Test_IfStatement_slots(t *testing.T) {
	assert := assert.New(t)

	ifs := &IfStatement{Node: NodeAt(pos(1, 1))}
	body := &BreakStatement{}
	ifs.Append(body)

	elif := &ElifStatement{Node: NodeAt(pos(2, 1))}
	ifs.AddElif(elif)
	els := &ElseStatement{Node: NodeAt(pos(3, 1))}
	ifs.SetElse(els)

	assert.Equal(3, ifs.Len())
	assert.Same(body, ifs.At(0))
	assert.Same(elif, ifs.At(1))
	assert.Same(els, ifs.At(2))
	assert.Same(ifs, elif.Parent())

	err := ifs.Set(1, &BreakStatement{})
	assert.ErrorIs(err, kcerrors.ErrTypeMismatch, "elif slot only takes an elif")

	err = ifs.Set(2, &ElifStatement{})
	assert.ErrorIs(err, kcerrors.ErrTypeMismatch, "else slot only takes an else")

	replacement := &ElifStatement{}
	assert.NoError(ifs.Set(1, replacement))
	assert.Same(replacement, ifs.Elifs[0])
}

func Test_Walk(t *testing.T) {
	assert := assert.New(t)

	fn := &FunctionStatement{Node: NodeAt(pos(1, 1)), Func: &Function{Name: "k", Returns: NewType("void")}}
	loop := &ForStatement{Node: NodeAt(pos(2, 1))}
	i := NewVariable("i", NewType("int"), pos(2, 6))
	loop.SetInit(NewDeclaration(i, NewInt("0", pos(2, 14))))
	loop.Append(&BreakStatement{})
	fn.Append(loop)
	fn.Append(&ReturnStatement{})
	root := NewBlock(source.Position{}, false, fn)

	var kinds []Kind
	Walk(root, func(s Statement) bool {
		kinds = append(kinds, s.Kind())
		return true
	})

	assert.Equal([]Kind{KindBlock, KindFunction, KindFor, KindDeclaration, KindBreak, KindReturn}, kinds)

	outer, ok := Enclosing[*FunctionStatement](loop.At(0))
	assert.True(ok)
	assert.Same(fn, outer)
	assert.Same(loop, loop.Init.Parent())
}

func Test_RewriteAllExprs(t *testing.T) {
	assert := assert.New(t)

	v := NewVariable("x", NewType("int"), pos(1, 5))
	other := NewVariable("y", NewType("int"), pos(1, 5))

	stmt := NewExprStatement(NewBinary("=", NewIdent(v, pos(2, 1)), NewBinary("+", NewIdent(v, pos(2, 5)), NewInt("1", pos(2, 9)))))
	blk := NewBlock(pos(1, 1), true, stmt)

	RewriteAllExprs(blk, func(e Expr) Expr {
		if id, ok := e.(*Ident); ok && id.Var == v {
			return NewIdent(other, id.Pos())
		}
		return e
	})

	assert.Equal("y = y + 1", FormatExpr(stmt.X))
	assert.False(References(stmt.X, v))
	assert.True(References(stmt.X, other))
}

func Test_Dump(t *testing.T) {
	assert := assert.New(t)

	fn := &FunctionStatement{Node: NodeAt(pos(1, 1)), Func: &Function{Name: "k", Returns: NewType("void")}}
	fn.Append(&BreakStatement{})
	fn.Append(&ReturnStatement{})
	root := NewBlock(source.Position{}, false, fn)

	expect := "(TREE)\n" +
		`  \---: (BLOCK "braceless")` + "\n" +
		`          \--0: (FUNCTION "void k()")` + "\n" +
		`                  |--0: (BREAK)` + "\n" +
		`                  \--1: (RETURN)`

	assert.Equal(expect, Dump(root))
}

func Test_Scope(t *testing.T) {
	assert := assert.New(t)

	global := NewGlobalScope()
	assert.True(global.IsType("float4"))
	assert.True(global.IsType("int"))

	local := NewScope(global)
	v := NewVariable("int", NewType("float"), pos(1, 1))
	assert.NoError(local.DeclareVariable(v))
	assert.False(local.IsType("int"), "variable shadows type")
	assert.Error(local.DeclareVariable(NewVariable("int", NewType("float"), pos(2, 1))))
	assert.Same(v, local.LookupVariable("int"))
	assert.Nil(global.LookupVariable("int"))
}
