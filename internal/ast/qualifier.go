package ast

import (
	"fmt"
	"strings"

	"github.com/dekarrin/kernc/internal/kcerrors"
)

// Qualifier is a set of type qualifiers. Each named constant is a single flag;
// sets are combined with Union, which is associative and idempotent.
type Qualifier uint32

const (
	Const Qualifier = 1 << iota
	Volatile
	Restrict
	Shared
	Exclusive

	// Global is the device global memory address space.
	Global

	Static
	Extern
	Inline

	// Kernel marks a function as a device entry point.
	Kernel

	qualifierEnd
)

// NoQualifiers is the empty Qualifier set.
const NoQualifiers Qualifier = 0

var qualifierNames = []struct {
	q    Qualifier
	name string
}{
	{Static, "static"},
	{Extern, "extern"},
	{Inline, "inline"},
	{Kernel, "kernel"},
	{Shared, "shared"},
	{Exclusive, "exclusive"},
	{Global, "global"},
	{Const, "const"},
	{Volatile, "volatile"},
	{Restrict, "restrict"},
}

// Placement is where in a declaration a qualifier may appear.
type Placement uint8

const (
	OnBase Placement = 1 << iota
	OnPointer
	OnFunction
)

func (p Placement) String() string {
	switch p {
	case OnBase:
		return "base type"
	case OnPointer:
		return "pointer"
	case OnFunction:
		return "function"
	default:
		return fmt.Sprintf("Placement(%d)", uint8(p))
	}
}

var qualifierPlacements = map[Qualifier]Placement{
	Const:     OnBase | OnPointer,
	Volatile:  OnBase | OnPointer,
	Restrict:  OnPointer,
	Shared:    OnBase,
	Exclusive: OnBase,
	Global:    OnBase,
	Static:    OnBase | OnFunction,
	Extern:    OnBase | OnFunction,
	Inline:    OnFunction,
	Kernel:    OnFunction,
}

var qualifierConflicts = [][2]Qualifier{
	{Static, Extern},
	{Shared, Exclusive},
	{Shared, Global},
}

// Union returns the set of qualifiers in either q or other.
func (q Qualifier) Union(other Qualifier) Qualifier {
	return q | other
}

// Has returns whether q contains every qualifier in other.
func (q Qualifier) Has(other Qualifier) bool {
	return q&other == other
}

// Without returns q with every qualifier in other removed.
func (q Qualifier) Without(other Qualifier) Qualifier {
	return q &^ other
}

// Each returns the individual qualifiers in q in canonical order.
func (q Qualifier) Each() []Qualifier {
	var out []Qualifier
	for _, qn := range qualifierNames {
		if q&qn.q != 0 {
			out = append(out, qn.q)
		}
	}
	return out
}

// String gives the source spelling of the qualifiers in canonical order,
// separated by spaces.
func (q Qualifier) String() string {
	var names []string
	for _, qn := range qualifierNames {
		if q&qn.q != 0 {
			names = append(names, qn.name)
		}
	}
	return strings.Join(names, " ")
}

// Validate checks that every qualifier in q is legal at the given placement
// and that no two of them conflict. The returned error matches
// kcerrors.ErrQualifierConflict.
func (q Qualifier) Validate(where Placement) error {
	for _, single := range q.Each() {
		if qualifierPlacements[single]&where == 0 {
			return kcerrors.New(fmt.Sprintf("%s cannot qualify a %s", single, where), kcerrors.ErrQualifierConflict)
		}
	}

	for _, pair := range qualifierConflicts {
		if q.Has(pair[0] | pair[1]) {
			return kcerrors.New(fmt.Sprintf("%s and %s cannot be combined", pair[0], pair[1]), kcerrors.ErrQualifierConflict)
		}
	}

	if q&^(qualifierEnd-1) != 0 {
		return kcerrors.New(fmt.Sprintf("unknown qualifier bits %#x", uint32(q&^(qualifierEnd-1))), kcerrors.ErrQualifierConflict)
	}

	return nil
}
