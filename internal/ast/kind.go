// Package ast is the statement tree of kernel source along with the type,
// qualifier and attribute model attached to it.
//
// The tree is singly owned from the top down. Every statement other than the
// root has exactly one parent, available through Parent() purely for lookup.
// Containers expose their children by index so that a transform can replace a
// child with a single slot assignment.
package ast

import "strings"

// Kind is the kind tag of a Statement. Every kind is a distinct power of two so
// a set of kinds can be built with | and tested with Is.
type Kind uint32

const (
	KindEmpty Kind = 1 << iota
	KindPragma
	KindBlock
	KindTypeDecl
	KindExpression
	KindDeclaration
	KindFunctionDecl
	KindFunction
	KindIf
	KindElif
	KindElse
	KindFor
	KindWhile
	KindSwitch
	KindCase
	KindDefault
	KindContinue
	KindBreak
	KindReturn
	KindRaw

	kindEnd
)

const (
	KindNone Kind = 0

	// KindAll matches every statement kind.
	KindAll = kindEnd - 1

	// KindFunctions matches function declarations and definitions.
	KindFunctions = KindFunctionDecl | KindFunction

	// KindContainers matches every kind that holds child statements.
	KindContainers = KindBlock | KindFunction | KindIf | KindElif | KindElse | KindFor | KindWhile | KindSwitch
)

var kindNames = []struct {
	k    Kind
	name string
}{
	{KindEmpty, "empty"},
	{KindPragma, "pragma"},
	{KindBlock, "block"},
	{KindTypeDecl, "typeDecl"},
	{KindExpression, "expression"},
	{KindDeclaration, "declaration"},
	{KindFunctionDecl, "functionDecl"},
	{KindFunction, "function"},
	{KindIf, "if"},
	{KindElif, "elif"},
	{KindElse, "else"},
	{KindFor, "for"},
	{KindWhile, "while"},
	{KindSwitch, "switch"},
	{KindCase, "case"},
	{KindDefault, "default"},
	{KindContinue, "continue"},
	{KindBreak, "break"},
	{KindReturn, "return"},
	{KindRaw, "raw"},
}

// Is returns whether k shares any bit with mask.
func (k Kind) Is(mask Kind) bool {
	return k&mask != 0
}

// String gives the name of the kind. A mask of several kinds gives their names
// joined with "|".
func (k Kind) String() string {
	if k == KindNone {
		return "none"
	}
	if k == KindAll {
		return "all"
	}

	var names []string
	for _, kn := range kindNames {
		if k&kn.k != 0 {
			names = append(names, kn.name)
		}
	}
	if k&^KindAll != 0 {
		names = append(names, "unknown")
	}
	return strings.Join(names, "|")
}
