// Package lex turns kernel source text into tokens and applies preprocessor
// directives and property defines to the token stream.
package lex

import (
	"strings"
	"unicode"

	"github.com/dekarrin/kernc/internal/kcerrors"
	"github.com/dekarrin/kernc/internal/source"
)

// puncts is every operator and punctuation lexeme, longest first so that the
// lexer always takes the longest match.
var puncts = []string{
	"<<=", ">>=", "...",
	"->", "++", "--", "<<", ">>", "<=", ">=", "==", "!=", "&&", "||",
	"+=", "-=", "*=", "/=", "%=", "&=", "|=", "^=", "::",
	"+", "-", "*", "/", "%", "=", "<", ">", "!", "&", "|", "^", "~", "?",
	":", ";", ",", ".", "(", ")", "[", "]", "{", "}",
}

type lexer struct {
	file *source.File
	src  []rune
	pos  int
	line int
	col  int

	// directives is whether '#' lines are recognized. It is off when lexing
	// the body of a directive or the value of a define.
	directives  bool
	atLineStart bool

	toks []Token
}

// Lex converts the text of f into tokens. The returned slice always ends with
// an EndOfText token. Comments are discarded and preprocessor lines are
// returned as single Directive tokens; use Preprocess to apply them.
func Lex(f *source.File) ([]Token, error) {
	lx := &lexer{
		file:        f,
		src:         []rune(f.Text),
		line:        1,
		col:         1,
		directives:  true,
		atLineStart: true,
	}
	return lx.run()
}

// lexFragment lexes text that is located at the given position, such as the
// body of a #define. The returned tokens do not include EndOfText.
func lexFragment(f *source.File, text string, at source.Position) ([]Token, error) {
	lx := &lexer{
		file: f,
		src:  []rune(text),
		line: at.Line,
		col:  at.Column,
	}
	if lx.line < 1 {
		lx.line = 1
	}
	if lx.col < 1 {
		lx.col = 1
	}

	toks, err := lx.run()
	if err != nil {
		return nil, err
	}
	return toks[:len(toks)-1], nil
}

func (lx *lexer) here() source.Position {
	return source.Position{File: lx.file.Name, Line: lx.line, Column: lx.col}
}

func (lx *lexer) peek() rune {
	if lx.pos >= len(lx.src) {
		return 0
	}
	return lx.src[lx.pos]
}

func (lx *lexer) peek2() rune {
	if lx.pos+1 >= len(lx.src) {
		return 0
	}
	return lx.src[lx.pos+1]
}

func (lx *lexer) advance() rune {
	ch := lx.src[lx.pos]
	lx.pos++
	if ch == '\n' {
		lx.line++
		lx.col = 1
		lx.atLineStart = true
	} else {
		lx.col++
	}
	return ch
}

func (lx *lexer) errorf(pos source.Position, format string, a ...interface{}) error {
	return kcerrors.Errorf(kcerrors.ErrSyntax, "lex", pos, format, a...).WithSourceLine(lx.file)
}

func (lx *lexer) emit(class Class, lexeme string, pos source.Position) {
	lx.toks = append(lx.toks, Token{Class: class, Lexeme: lexeme, Pos: pos})
	lx.atLineStart = false
}

func (lx *lexer) run() ([]Token, error) {
	for {
		if err := lx.skipSpaceAndComments(); err != nil {
			return nil, err
		}
		if lx.pos >= len(lx.src) {
			break
		}

		start := lx.here()
		ch := lx.peek()

		switch {
		case ch == '#':
			if !lx.directives || !lx.atLineStart {
				return nil, lx.errorf(start, "unexpected '#'")
			}
			lx.lexDirective(start)
		case ch == '_' || unicode.IsLetter(ch):
			word := lx.readWord()
			if keywords[word] {
				lx.emit(Keyword, word, start)
			} else {
				lx.emit(Identifier, word, start)
			}
		case unicode.IsDigit(ch) || (ch == '.' && unicode.IsDigit(lx.peek2())):
			if err := lx.lexNumber(start); err != nil {
				return nil, err
			}
		case ch == '\'':
			if err := lx.lexQuoted(start, '\'', CharLiteral); err != nil {
				return nil, err
			}
		case ch == '"':
			if err := lx.lexQuoted(start, '"', StringLiteral); err != nil {
				return nil, err
			}
		case ch == '@':
			lx.advance()
			if !(lx.peek() == '_' || unicode.IsLetter(lx.peek())) {
				return nil, lx.errorf(start, "expected attribute name after '@'")
			}
			lx.emit(Attribute, lx.readWord(), start)
		default:
			if !lx.lexPunct(start) {
				return nil, lx.errorf(start, "unexpected character %q", ch)
			}
		}
	}

	lx.toks = append(lx.toks, Token{Class: EndOfText, Pos: lx.here()})
	return lx.toks, nil
}

func (lx *lexer) skipSpaceAndComments() error {
	for lx.pos < len(lx.src) {
		ch := lx.peek()
		switch {
		case unicode.IsSpace(ch):
			lx.advance()
		case ch == '\\' && lx.peek2() == '\n':
			// line splice outside of a directive
			lx.advance()
			lx.advance()
		case ch == '/' && lx.peek2() == '/':
			for lx.pos < len(lx.src) && lx.peek() != '\n' {
				lx.advance()
			}
		case ch == '/' && lx.peek2() == '*':
			start := lx.here()
			lx.advance()
			lx.advance()
			closed := false
			for lx.pos < len(lx.src) {
				if lx.peek() == '*' && lx.peek2() == '/' {
					lx.advance()
					lx.advance()
					closed = true
					break
				}
				lx.advance()
			}
			if !closed {
				return lx.errorf(start, "unterminated block comment")
			}
		default:
			return nil
		}
	}
	return nil
}

func (lx *lexer) readWord() string {
	var sb strings.Builder
	for lx.pos < len(lx.src) {
		ch := lx.peek()
		if ch != '_' && !unicode.IsLetter(ch) && !unicode.IsDigit(ch) {
			break
		}
		sb.WriteRune(lx.advance())
	}
	return sb.String()
}

func (lx *lexer) lexDirective(start source.Position) {
	lx.advance() // '#'

	var sb strings.Builder
	for lx.pos < len(lx.src) && lx.peek() != '\n' {
		if lx.peek() == '\\' && lx.peek2() == '\n' {
			lx.advance()
			lx.advance()
			sb.WriteRune(' ')
			continue
		}
		sb.WriteRune(lx.advance())
	}

	lx.emit(Directive, strings.TrimSpace(sb.String()), start)
	lx.atLineStart = true
}

func (lx *lexer) lexNumber(start source.Position) error {
	var sb strings.Builder
	isFloat := false

	if lx.peek() == '0' && (lx.peek2() == 'x' || lx.peek2() == 'X') {
		sb.WriteRune(lx.advance())
		sb.WriteRune(lx.advance())
		digits := 0
		for isHexDigit(lx.peek()) {
			sb.WriteRune(lx.advance())
			digits++
		}
		if digits == 0 {
			return lx.errorf(start, "hexadecimal literal has no digits")
		}
	} else {
		for unicode.IsDigit(lx.peek()) {
			sb.WriteRune(lx.advance())
		}
		if lx.peek() == '.' {
			isFloat = true
			sb.WriteRune(lx.advance())
			for unicode.IsDigit(lx.peek()) {
				sb.WriteRune(lx.advance())
			}
		}
		if lx.peek() == 'e' || lx.peek() == 'E' {
			isFloat = true
			sb.WriteRune(lx.advance())
			if lx.peek() == '+' || lx.peek() == '-' {
				sb.WriteRune(lx.advance())
			}
			digits := 0
			for unicode.IsDigit(lx.peek()) {
				sb.WriteRune(lx.advance())
				digits++
			}
			if digits == 0 {
				return lx.errorf(start, "exponent has no digits")
			}
		}
	}

	if isFloat {
		if strings.ContainsRune("fFlL", lx.peek()) {
			sb.WriteRune(lx.advance())
		}
	} else {
		for strings.ContainsRune("uUlL", lx.peek()) {
			sb.WriteRune(lx.advance())
		}
	}

	if next := lx.peek(); next == '_' || unicode.IsLetter(next) || unicode.IsDigit(next) {
		return lx.errorf(start, "invalid numeric literal %q", sb.String()+string(next))
	}

	if isFloat {
		lx.emit(FloatLiteral, sb.String(), start)
	} else {
		lx.emit(IntLiteral, sb.String(), start)
	}
	return nil
}

func (lx *lexer) lexQuoted(start source.Position, quote rune, class Class) error {
	var sb strings.Builder
	sb.WriteRune(lx.advance())

	for {
		if lx.pos >= len(lx.src) || lx.peek() == '\n' {
			if class == CharLiteral {
				return lx.errorf(start, "unterminated char literal")
			}
			return lx.errorf(start, "unterminated string literal")
		}

		ch := lx.advance()
		sb.WriteRune(ch)
		if ch == '\\' {
			if lx.pos >= len(lx.src) {
				continue
			}
			sb.WriteRune(lx.advance())
			continue
		}
		if ch == quote {
			break
		}
	}

	lexeme := sb.String()
	if class == CharLiteral && len([]rune(lexeme)) < 3 {
		return lx.errorf(start, "empty char literal")
	}

	lx.emit(class, lexeme, start)
	return nil
}

func (lx *lexer) lexPunct(start source.Position) bool {
	rest := lx.src[lx.pos:]
	for _, p := range puncts {
		pr := []rune(p)
		if len(pr) > len(rest) {
			continue
		}
		if string(rest[:len(pr)]) == p {
			for range pr {
				lx.advance()
			}
			lx.emit(Punct, p, start)
			return true
		}
	}
	return false
}

func isHexDigit(ch rune) bool {
	return unicode.IsDigit(ch) || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')
}
