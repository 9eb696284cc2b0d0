package ast

import (
	"fmt"

	"github.com/dekarrin/kernc/internal/source"
)

// Variable is a declared variable, struct field or function argument. A
// Variable is referenced by the statement that declares it rather than owned
// by it; transforms mutate its Type and Attrs in place.
type Variable struct {
	Name  string
	Type  *VarType
	Attrs AttributeTable
	Scope *Scope
	Pos   source.Position
}

// NewVariable returns a Variable with the given name and type.
func NewVariable(name string, vt *VarType, pos source.Position) *Variable {
	return &Variable{Name: name, Type: vt, Pos: pos}
}

func (v *Variable) String() string {
	s := v.Type.Declare(v.Name)
	if v.Attrs.Len() > 0 {
		s += " " + v.Attrs.String()
	}
	return s
}

// Function is a function signature shared by a declaration and a definition.
type Function struct {
	Name       string
	Returns    *VarType
	Args       []*Variable
	Qualifiers Qualifier
	Pos        source.Position
}

// Arg returns the argument with the given name, or nil.
func (f *Function) Arg(name string) *Variable {
	for _, a := range f.Args {
		if a.Name == name {
			return a
		}
	}
	return nil
}

func (f *Function) String() string {
	s := ""
	if f.Qualifiers != NoQualifiers {
		s = f.Qualifiers.String() + " "
	}
	s += f.Returns.Declare(f.Name) + "("
	for i, a := range f.Args {
		if i > 0 {
			s += ", "
		}
		s += a.String()
	}
	return s + ")"
}

// Scope is one level of the scope chain used while parsing.
type Scope struct {
	parent *Scope
	vars   map[string]*Variable
	types  map[string]*VarType
	funcs  map[string]*Function
}

// BuiltinTypes are the base type names known in every global scope.
var BuiltinTypes = []string{
	"void", "bool", "char", "short", "int", "long", "float", "double",
	"size_t", "ptrdiff_t",
	"int8_t", "int16_t", "int32_t", "int64_t",
	"uint8_t", "uint16_t", "uint32_t", "uint64_t",
	"uchar", "ushort", "uint", "ulong", "half",
}

var vectorBases = []string{"char", "uchar", "short", "ushort", "int", "uint", "long", "ulong", "float", "double"}

// NewGlobalScope returns a root scope that knows the builtin types and the
// 2, 3 and 4 wide vector types.
func NewGlobalScope() *Scope {
	s := NewScope(nil)
	for _, name := range BuiltinTypes {
		s.types[name] = NewType(name)
	}
	for _, base := range vectorBases {
		for n := 2; n <= 4; n++ {
			name := fmt.Sprintf("%s%d", base, n)
			s.types[name] = NewType(name)
		}
	}
	return s
}

// NewScope returns an empty scope whose parent is parent.
func NewScope(parent *Scope) *Scope {
	return &Scope{
		parent: parent,
		vars:   make(map[string]*Variable),
		types:  make(map[string]*VarType),
		funcs:  make(map[string]*Function),
	}
}

// Parent returns the enclosing scope, or nil for the global scope.
func (s *Scope) Parent() *Scope {
	return s.parent
}

// DeclareVariable adds v to s. It is an error to declare the same name twice
// in one scope.
func (s *Scope) DeclareVariable(v *Variable) error {
	if _, ok := s.vars[v.Name]; ok {
		return fmt.Errorf("%q is already declared in this scope", v.Name)
	}
	if _, ok := s.types[v.Name]; ok {
		return fmt.Errorf("%q is already declared as a type in this scope", v.Name)
	}
	v.Scope = s
	s.vars[v.Name] = v
	return nil
}

// LookupVariable finds the nearest variable with the given name.
func (s *Scope) LookupVariable(name string) *Variable {
	for cur := s; cur != nil; cur = cur.parent {
		if v, ok := cur.vars[name]; ok {
			return v
		}
	}
	return nil
}

// DeclareType adds a type name to s.
func (s *Scope) DeclareType(name string, vt *VarType) error {
	if _, ok := s.vars[name]; ok {
		return fmt.Errorf("%q is already declared as a variable in this scope", name)
	}
	s.types[name] = vt
	return nil
}

// LookupType finds the nearest type with the given name. A variable that
// shadows the name hides the type.
func (s *Scope) LookupType(name string) (*VarType, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if _, ok := cur.vars[name]; ok {
			return nil, false
		}
		if vt, ok := cur.types[name]; ok {
			return vt, true
		}
	}
	return nil, false
}

// IsType returns whether name refers to a type in s.
func (s *Scope) IsType(name string) bool {
	_, ok := s.LookupType(name)
	return ok
}

// DeclareFunction adds f to s. Redeclaring a function is allowed.
func (s *Scope) DeclareFunction(f *Function) {
	s.funcs[f.Name] = f
}

// LookupFunction finds the nearest function with the given name.
func (s *Scope) LookupFunction(name string) *Function {
	for cur := s; cur != nil; cur = cur.parent {
		if f, ok := cur.funcs[name]; ok {
			return f
		}
	}
	return nil
}
