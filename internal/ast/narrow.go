package ast

import (
	"fmt"
	"strings"

	"github.com/dekarrin/kernc/internal/kcerrors"
	"github.com/dekarrin/kernc/internal/source"
)

// To narrows s to the concrete statement type T. If s is not a T, a
// TypeMismatch diagnostic naming both types is returned.
func To[T Statement](s Statement) (T, error) {
	var zero T
	if s == nil {
		return zero, kcerrors.Errorf(kcerrors.ErrTypeMismatch, "ast", source.Position{}, "cannot narrow nil statement to %s", typeName(zero))
	}

	t, ok := s.(T)
	if !ok {
		return zero, kcerrors.Errorf(kcerrors.ErrTypeMismatch, "ast", s.Pos(), "cannot narrow %s statement (%s) to %s", s.Kind(), typeName(s), typeName(zero))
	}
	return t, nil
}

// MustTo is like To but panics if s is not a T. It is meant for code that has
// already checked the kind of s.
func MustTo[T Statement](s Statement) T {
	t, err := To[T](s)
	if err != nil {
		panic(err.Error())
	}
	return t
}

func typeName(v interface{}) string {
	return strings.TrimPrefix(fmt.Sprintf("%T", v), "*ast.")
}

// Enclosing returns the nearest ancestor of s that is a T, not including s.
func Enclosing[T Statement](s Statement) (T, bool) {
	for p := s.Parent(); p != nil; p = p.Parent() {
		if t, ok := p.(T); ok {
			return t, true
		}
	}
	var zero T
	return zero, false
}

// EnclosingWhere returns the nearest ancestor of s for which match returns
// true, not including s. If stop is non-nil, the search ends without a match
// at the first ancestor for which stop returns true.
func EnclosingWhere(s Statement, match func(Statement) bool, stop func(Statement) bool) Statement {
	for p := s.Parent(); p != nil; p = p.Parent() {
		if match(p) {
			return p
		}
		if stop != nil && stop(p) {
			return nil
		}
	}
	return nil
}

// Root returns the top-most ancestor of s.
func Root(s Statement) Statement {
	for s.Parent() != nil {
		s = s.Parent()
	}
	return s
}
