package lex

import (
	"errors"
	"testing"

	"github.com/dekarrin/kernc/internal/kcerrors"
	"github.com/dekarrin/kernc/internal/source"
	"github.com/stretchr/testify/assert"
)

func lexemes(toks []Token) []string {
	var out []string
	for _, t := range toks {
		if t.Class == EndOfText {
			continue
		}
		out = append(out, t.Lexeme)
	}
	return out
}

func classes(toks []Token) []Class {
	var out []Class
	for _, t := range toks {
		out = append(out, t.Class)
	}
	return out
}

func Test_Lex_tokenClassSequence(t *testing.T) {
	testCases := []struct {
		name      string
		input     string
		expect    []Class
		expectErr bool
	}{
		{
			name:   "blank string",
			input:  "",
			expect: []Class{EndOfText},
		},
		{
			name:   "declaration",
			input:  "const int x = 5;",
			expect: []Class{Keyword, Identifier, Identifier, Punct, IntLiteral, Punct, EndOfText},
		},
		{
			name:   "attribute on argument",
			input:  "float *a @restrict",
			expect: []Class{Identifier, Punct, Identifier, Attribute, EndOfText},
		},
		{
			name:   "float forms",
			input:  "1.0f .5 3e10 2.",
			expect: []Class{FloatLiteral, FloatLiteral, FloatLiteral, FloatLiteral, EndOfText},
		},
		{
			name:   "int forms",
			input:  "0x1F 10u 077 12UL",
			expect: []Class{IntLiteral, IntLiteral, IntLiteral, IntLiteral, EndOfText},
		},
		{
			name:   "strings and chars",
			input:  `"hi\"there" '\n' 'a'`,
			expect: []Class{StringLiteral, CharLiteral, CharLiteral, EndOfText},
		},
		{
			name:   "comments are discarded",
			input:  "a // line\n/* block\n comment */ b",
			expect: []Class{Identifier, Identifier, EndOfText},
		},
		{
			name:   "directive at line start",
			input:  "  #pragma unroll\nx",
			expect: []Class{Directive, Identifier, EndOfText},
		},
		{
			name:      "directive mid-line",
			input:     "x #pragma",
			expectErr: true,
		},
		{
			name:      "unterminated comment",
			input:     "/* oops",
			expectErr: true,
		},
		{
			name:      "unterminated string",
			input:     "\"abc\n\"",
			expectErr: true,
		},
		{
			name:      "bad number",
			input:     "12abc",
			expectErr: true,
		},
		{
			name:      "lone at sign",
			input:     "@ x",
			expectErr: true,
		},
		{
			name:      "stray character",
			input:     "a $ b",
			expectErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			actual, err := Lex(source.NewFile("test.okl", tc.input))
			if tc.expectErr {
				assert.Error(err)
				assert.True(errors.Is(err, kcerrors.ErrSyntax))
				return
			}
			if !assert.NoError(err) {
				return
			}

			assert.Equal(tc.expect, classes(actual))
		})
	}
}

func Test_Lex_longestPunctMatch(t *testing.T) {
	assert := assert.New(t)

	toks, err := Lex(source.NewFile("t", "a<<=b->c++ >>d"))
	assert.NoError(err)
	assert.Equal([]string{"a", "<<=", "b", "->", "c", "++", ">>", "d"}, lexemes(toks))
}

func Test_Lex_positions(t *testing.T) {
	assert := assert.New(t)

	toks, err := Lex(source.NewFile("k.okl", "int x;\n  float *y;"))
	assert.NoError(err)

	assert.Equal(source.Position{File: "k.okl", Line: 1, Column: 1}, toks[0].Pos)
	assert.Equal(source.Position{File: "k.okl", Line: 1, Column: 5}, toks[1].Pos)
	assert.Equal(source.Position{File: "k.okl", Line: 2, Column: 3}, toks[3].Pos)
	assert.Equal(source.Position{File: "k.okl", Line: 2, Column: 10}, toks[5].Pos)
}

func Test_Lex_errorHasSourceLine(t *testing.T) {
	assert := assert.New(t)

	_, err := Lex(source.NewFile("k.okl", "int a;\nint $b;"))
	var d *kcerrors.Diagnostic
	if !assert.True(errors.As(err, &d)) {
		return
	}
	assert.Equal(2, d.Pos.Line)
	assert.Equal(5, d.Pos.Column)
	assert.Equal("int $b;", d.SourceLine)
	assert.Equal("lex", d.Stage)
}
