package ast

import (
	"fmt"
	"strings"

	"github.com/dekarrin/kernc/internal/kcerrors"
)

// PointerLevel is one level of indirection in a VarType along with the
// qualifiers that apply to that level only.
type PointerLevel struct {
	Qualifiers Qualifier
}

// VarType is the type of a variable, argument or function return value.
//
// Pointer levels are ordered from the one nearest the base type outward, so in
// `float * const * p` level 0 is the plain pointer to float and level 1 is the
// const one. Array dimensions are ordered as written; a nil dimension is
// unsized.
type VarType struct {
	// Name is the base type name, such as "float", "unsigned int" or the name
	// of a typedef or struct.
	Name       string
	Qualifiers Qualifier
	Pointers   []PointerLevel
	Arrays     []Expr

	// Struct is set when the base type is a struct definition written inline.
	Struct *StructDef
}

// NewType returns a VarType of the named base type with no pointers or arrays.
func NewType(name string) *VarType {
	return &VarType{Name: name}
}

// PointerDepth returns the number of pointer levels.
func (vt *VarType) PointerDepth() int {
	return len(vt.Pointers)
}

// IsPointer returns whether vt has at least one pointer level.
func (vt *VarType) IsPointer() bool {
	return len(vt.Pointers) > 0
}

// IsArray returns whether vt has at least one array dimension.
func (vt *VarType) IsArray() bool {
	return len(vt.Arrays) > 0
}

// AddQualifier unions q into the base type qualifiers.
func (vt *VarType) AddQualifier(q Qualifier) {
	vt.Qualifiers = vt.Qualifiers.Union(q)
}

// AddPointer appends a pointer level with the given qualifiers.
func (vt *VarType) AddPointer(q Qualifier) {
	vt.Pointers = append(vt.Pointers, PointerLevel{Qualifiers: q})
}

// AddPointerQualifier unions q into the qualifiers of the given pointer level.
// It is an error for level to be outside of 0..PointerDepth()-1.
func (vt *VarType) AddPointerQualifier(level int, q Qualifier) error {
	if level < 0 || level >= len(vt.Pointers) {
		return kcerrors.New(fmt.Sprintf("pointer level %d does not exist in %q (depth %d)", level, vt.String(), len(vt.Pointers)), kcerrors.ErrQualifierConflict)
	}
	if err := q.Validate(OnPointer); err != nil {
		return err
	}

	vt.Pointers[level].Qualifiers = vt.Pointers[level].Qualifiers.Union(q)
	return nil
}

// Clone returns a deep copy of vt. Array dimension expressions are shared as
// they are never mutated in place.
func (vt *VarType) Clone() *VarType {
	if vt == nil {
		return nil
	}
	c := &VarType{
		Name:       vt.Name,
		Qualifiers: vt.Qualifiers,
		Struct:     vt.Struct,
	}
	if vt.Pointers != nil {
		c.Pointers = make([]PointerLevel, len(vt.Pointers))
		copy(c.Pointers, vt.Pointers)
	}
	if vt.Arrays != nil {
		c.Arrays = make([]Expr, len(vt.Arrays))
		copy(c.Arrays, vt.Arrays)
	}
	return c
}

// Base returns a copy of vt with no pointers or arrays.
func (vt *VarType) Base() *VarType {
	return &VarType{Name: vt.Name, Qualifiers: vt.Qualifiers, Struct: vt.Struct}
}

// Declare renders vt as a C declaration of the given name using source
// spelling for qualifiers. name may be empty for abstract declarators such as
// in a cast.
func (vt *VarType) Declare(name string) string {
	var sb strings.Builder

	if vt.Qualifiers != NoQualifiers {
		sb.WriteString(vt.Qualifiers.String())
		sb.WriteRune(' ')
	}
	sb.WriteString(vt.Name)

	for _, p := range vt.Pointers {
		sb.WriteString(" *")
		if p.Qualifiers != NoQualifiers {
			sb.WriteString(" " + p.Qualifiers.String())
		}
	}

	if name != "" {
		if len(vt.Pointers) == 0 || vt.Pointers[len(vt.Pointers)-1].Qualifiers != NoQualifiers {
			sb.WriteRune(' ')
		}
		sb.WriteString(name)
	}

	for _, dim := range vt.Arrays {
		sb.WriteRune('[')
		if dim != nil {
			sb.WriteString(FormatExpr(dim))
		}
		sb.WriteRune(']')
	}

	return sb.String()
}

func (vt *VarType) String() string {
	return vt.Declare("")
}

// StructDef is a struct type definition.
type StructDef struct {
	Name   string
	Fields []*Variable
}
