package ast

import (
	"strings"

	"github.com/dekarrin/kernc/internal/source"
)

// AttributeArg is a single argument of an Attribute. Exactly one of Value and
// Attr is set. Name is set for `name = value` arguments.
type AttributeArg struct {
	Name  string
	Value Expr
	Attr  *Attribute
}

func (arg AttributeArg) String() string {
	var val string
	if arg.Attr != nil {
		val = arg.Attr.String()
	} else if arg.Value != nil {
		val = FormatExpr(arg.Value)
	}

	if arg.Name != "" {
		return arg.Name + "=" + val
	}
	return val
}

// Attribute is an instance of an @name annotation in source.
type Attribute struct {
	Name string
	Args []AttributeArg
	Pos  source.Position
}

// Positional returns the arguments that are not named.
func (a *Attribute) Positional() []AttributeArg {
	var out []AttributeArg
	for _, arg := range a.Args {
		if arg.Name == "" {
			out = append(out, arg)
		}
	}
	return out
}

// Named returns the argument with the given name.
func (a *Attribute) Named(name string) (AttributeArg, bool) {
	for _, arg := range a.Args {
		if arg.Name == name {
			return arg, true
		}
	}
	return AttributeArg{}, false
}

// Clone returns a copy of a with its own argument slice.
func (a *Attribute) Clone() *Attribute {
	c := &Attribute{Name: a.Name, Pos: a.Pos}
	if a.Args != nil {
		c.Args = make([]AttributeArg, len(a.Args))
		for i, arg := range a.Args {
			c.Args[i] = arg
			if arg.Attr != nil {
				c.Args[i].Attr = arg.Attr.Clone()
			}
		}
	}
	return c
}

func (a *Attribute) String() string {
	if len(a.Args) == 0 {
		return "@" + a.Name
	}

	args := make([]string, len(a.Args))
	for i := range a.Args {
		args[i] = a.Args[i].String()
	}
	return "@" + a.Name + "(" + strings.Join(args, ", ") + ")"
}

// AttributeTable holds the attributes on one entity, at most one per name, in
// the order they were attached.
type AttributeTable struct {
	attrs []*Attribute
}

// Get returns the attribute with the given name, or nil.
func (t *AttributeTable) Get(name string) *Attribute {
	for _, a := range t.attrs {
		if a.Name == name {
			return a
		}
	}
	return nil
}

// Has returns whether an attribute with the given name is present.
func (t *AttributeTable) Has(name string) bool {
	return t.Get(name) != nil
}

// Set adds a, replacing any attribute with the same name.
func (t *AttributeTable) Set(a *Attribute) {
	for i := range t.attrs {
		if t.attrs[i].Name == a.Name {
			t.attrs[i] = a
			return
		}
	}
	t.attrs = append(t.attrs, a)
}

// Remove deletes the attribute with the given name and returns it, or nil if
// it was not present.
func (t *AttributeTable) Remove(name string) *Attribute {
	for i := range t.attrs {
		if t.attrs[i].Name == name {
			a := t.attrs[i]
			t.attrs = append(t.attrs[:i], t.attrs[i+1:]...)
			return a
		}
	}
	return nil
}

// Len returns the number of attributes.
func (t *AttributeTable) Len() int {
	return len(t.attrs)
}

// All returns the attributes in attachment order.
func (t *AttributeTable) All() []*Attribute {
	out := make([]*Attribute, len(t.attrs))
	copy(out, t.attrs)
	return out
}

func (t *AttributeTable) String() string {
	parts := make([]string, len(t.attrs))
	for i := range t.attrs {
		parts[i] = t.attrs[i].String()
	}
	return strings.Join(parts, " ")
}
