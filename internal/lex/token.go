package lex

import (
	"fmt"

	"github.com/dekarrin/kernc/internal/source"
)

// Class is the kind of a Token.
type Class int

const (
	EndOfText Class = iota
	Identifier
	Keyword
	Punct
	IntLiteral
	FloatLiteral
	CharLiteral
	StringLiteral

	// Attribute is an "@name" marker. The lexeme is the name without the
	// leading '@'.
	Attribute

	// Directive is a preprocessor line. The lexeme is the text after the '#'
	// with surrounding whitespace removed.
	Directive
)

var classNames = map[Class]string{
	EndOfText:     "end of input",
	Identifier:    "identifier",
	Keyword:       "keyword",
	Punct:         "punctuation",
	IntLiteral:    "integer literal",
	FloatLiteral:  "float literal",
	CharLiteral:   "char literal",
	StringLiteral: "string literal",
	Attribute:     "attribute",
	Directive:     "directive",
}

func (c Class) String() string {
	if name, ok := classNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Class(%d)", int(c))
}

// keywords are reserved words of the kernel language. Type names such as int
// and float are not keywords; they are resolved through the scope chain so
// that typedefs and builtin types behave the same way.
var keywords = map[string]bool{
	"if": true, "else": true, "for": true, "while": true, "do": true,
	"switch": true, "case": true, "default": true, "break": true,
	"continue": true, "return": true, "typedef": true, "struct": true,
	"sizeof": true, "const": true, "volatile": true, "restrict": true,
	"__restrict__": true, "__restrict": true, "static": true, "extern": true,
	"inline": true, "unsigned": true, "signed": true, "long": true,
	"short": true,
}

// IsKeyword returns whether s is a reserved word.
func IsKeyword(s string) bool {
	return keywords[s]
}

// Token is a single lexeme of kernel source. Tokens are not modified once
// created.
type Token struct {
	Class  Class
	Lexeme string
	Pos    source.Position
}

// Is returns whether t has the given class and lexeme.
func (t Token) Is(class Class, lexeme string) bool {
	return t.Class == class && t.Lexeme == lexeme
}

// IsPunct returns whether t is the given operator or punctuation.
func (t Token) IsPunct(p string) bool {
	return t.Is(Punct, p)
}

// IsKeyword returns whether t is the given keyword.
func (t Token) IsKeyword(kw string) bool {
	return t.Is(Keyword, kw)
}

// Human returns a description of the token suitable for error messages.
func (t Token) Human() string {
	switch t.Class {
	case EndOfText:
		return "end of input"
	case Attribute:
		return fmt.Sprintf("attribute '@%s'", t.Lexeme)
	case Directive:
		return fmt.Sprintf("directive '#%s'", t.Lexeme)
	case Identifier:
		return fmt.Sprintf("identifier '%s'", t.Lexeme)
	default:
		return fmt.Sprintf("'%s'", t.Lexeme)
	}
}

func (t Token) String() string {
	return fmt.Sprintf("<%s %q @ %s>", t.Class, t.Lexeme, t.Pos)
}
