// Package attr holds the registry of known @attributes and the checks run on
// each attribute instance when it is attached during parsing.
package attr

import (
	"fmt"
	"sort"

	"github.com/dekarrin/kernc/internal/ast"
	"github.com/dekarrin/kernc/internal/kcerrors"
)

// Target is the set of entities an attribute may be attached to.
type Target uint16

const (
	TargetFunction Target = 1 << iota
	TargetFunctionDecl
	TargetArgument
	TargetVariable
	TargetDeclaration
	TargetFor
	TargetEmpty
	TargetStatement
)

func (t Target) String() string {
	names := []struct {
		t    Target
		name string
	}{
		{TargetFunction, "function"},
		{TargetFunctionDecl, "function declaration"},
		{TargetArgument, "function argument"},
		{TargetVariable, "variable"},
		{TargetDeclaration, "declaration"},
		{TargetFor, "for loop"},
		{TargetEmpty, "empty statement"},
		{TargetStatement, "statement"},
	}

	out := ""
	for _, n := range names {
		if t&n.t != 0 {
			if out != "" {
				out += " or "
			}
			out += n.name
		}
	}
	if out == "" {
		return fmt.Sprintf("Target(%d)", uint16(t))
	}
	return out
}

// Descriptor describes an attribute known to the compiler.
type Descriptor struct {
	Name string

	// Targets is the set of entities the attribute may be attached to.
	Targets Target

	// MinArgs and MaxArgs bound the number of positional arguments. A
	// negative MaxArgs means there is no upper bound.
	MinArgs int
	MaxArgs int

	// Named lists the `name = value` arguments the attribute accepts.
	Named []string

	// Internal attributes only direct the compiler and are removed before
	// code is emitted.
	Internal bool

	// Validate, if set, performs further checks on an instance. The returned
	// error message is reported as attribute misuse at the attribute.
	Validate func(a *ast.Attribute) error
}

// Registry is a set of attribute descriptors keyed by name.
type Registry struct {
	descs map[string]Descriptor
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{descs: make(map[string]Descriptor)}
}

// Default returns a new Registry holding every built-in attribute. Each call
// returns a separate Registry so callers may register more attributes without
// affecting others.
func Default() *Registry {
	r := NewRegistry()
	for _, d := range builtins() {
		r.Register(d)
	}
	return r
}

// Register adds d to the registry, replacing any descriptor with the same name.
func (r *Registry) Register(d Descriptor) {
	r.descs[d.Name] = d
}

// Lookup returns the descriptor for name.
func (r *Registry) Lookup(name string) (Descriptor, bool) {
	d, ok := r.descs[name]
	return d, ok
}

// Names returns the names of every registered attribute in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.descs))
	for n := range r.descs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// IsInternal returns whether name is a registered internal attribute.
func (r *Registry) IsInternal(name string) bool {
	d, ok := r.descs[name]
	return ok && d.Internal
}

// Check validates a as being attached to an entity of the given target kind.
// The returned error is an attribute misuse diagnostic positioned at a.
func (r *Registry) Check(a *ast.Attribute, target Target) error {
	d, ok := r.descs[a.Name]
	if !ok {
		return misuse(a, "unknown attribute")
	}

	if d.Targets&target == 0 {
		return misuse(a, "can only be applied to a %s", d.Targets)
	}

	n := len(a.Positional())
	if n < d.MinArgs {
		if d.MinArgs == 1 {
			return misuse(a, "requires an argument")
		}
		return misuse(a, "requires at least %d arguments, got %d", d.MinArgs, n)
	}
	if d.MaxArgs >= 0 && n > d.MaxArgs {
		if d.MaxArgs == 0 {
			return misuse(a, "takes no arguments")
		}
		return misuse(a, "takes at most %d arguments, got %d", d.MaxArgs, n)
	}

	for _, arg := range a.Args {
		if arg.Name == "" {
			continue
		}
		known := false
		for _, n := range d.Named {
			if n == arg.Name {
				known = true
				break
			}
		}
		if !known {
			return misuse(a, "does not take a %q argument", arg.Name)
		}
	}

	if d.Validate != nil {
		if err := d.Validate(a); err != nil {
			return misuse(a, "%s", err.Error())
		}
	}

	return nil
}

// Attach checks a against target and adds it to tbl. Attaching a second
// attribute with the same name to one entity is an error.
func (r *Registry) Attach(tbl *ast.AttributeTable, a *ast.Attribute, target Target) error {
	if tbl.Has(a.Name) {
		return misuse(a, "is already applied here")
	}
	if err := r.Check(a, target); err != nil {
		return err
	}
	tbl.Set(a)
	return nil
}

// TargetOf returns the Target that a statement-level attribute on s is checked
// against.
func TargetOf(s ast.Statement) Target {
	switch s.Kind() {
	case ast.KindFunction:
		return TargetFunction
	case ast.KindFunctionDecl:
		return TargetFunctionDecl
	case ast.KindDeclaration:
		return TargetDeclaration
	case ast.KindFor:
		return TargetFor
	case ast.KindEmpty:
		return TargetEmpty
	default:
		return TargetStatement
	}
}

func misuse(a *ast.Attribute, format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	return kcerrors.Errorf(kcerrors.ErrAttributeMisuse, "parse", a.Pos, "[@%s] %s", a.Name, msg)
}

// Misuse returns an attribute misuse diagnostic for a raised by the given
// stage. Transform passes use it to report attribute errors in the same
// format as the parser.
func Misuse(stage string, a *ast.Attribute, format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	return kcerrors.Errorf(kcerrors.ErrAttributeMisuse, stage, a.Pos, "[@%s] %s", a.Name, msg)
}
