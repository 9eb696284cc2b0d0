package lex

import (
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/dekarrin/kernc/internal/kcerrors"
	"github.com/dekarrin/kernc/internal/source"
	"golang.org/x/text/unicode/norm"
)

// Tokenize is the full front of the pipeline: the text is NFC-normalized,
// lexed, and preprocessed with the given defines applied as object-like
// macros. It returns the source file the tokens refer to.
func Tokenize(name, text string, defines map[string]string) (*source.File, []Token, error) {
	f := source.NewFile(name, norm.NFC.String(text))

	toks, err := Lex(f)
	if err != nil {
		return f, nil, err
	}

	toks, err = Preprocess(f, toks, defines)
	if err != nil {
		return f, nil, err
	}

	return f, toks, nil
}

type macro struct {
	body []Token
}

type condFrame struct {
	active       bool
	parentActive bool
	taken        bool
	sawElse      bool
	pos          source.Position
}

type preprocessor struct {
	file   *source.File
	macros map[string]macro
	conds  []condFrame
	out    []Token
}

// Preprocess applies directives in toks and substitutes macros. defines are
// installed as macros before the first token is read, in sorted name order;
// in-source #define and #undef may override them.
//
// Supported directives are #define (object-like only), #undef, #if, #ifdef,
// #ifndef, #elif, #else, #endif, #error and #pragma. #pragma lines are kept
// as Directive tokens for the parser.
func Preprocess(f *source.File, toks []Token, defines map[string]string) ([]Token, error) {
	pp := &preprocessor{
		file:   f,
		macros: make(map[string]macro),
	}

	names := make([]string, 0, len(defines))
	for k := range defines {
		names = append(names, k)
	}
	sort.Strings(names)

	for _, name := range names {
		if !isIdentifier(name) {
			return nil, kcerrors.Errorf(kcerrors.ErrSyntax, "preprocess", source.Position{File: f.Name}, "define name %q is not a valid identifier", name)
		}
		defFile := source.NewFile("defines/"+name, defines[name])
		body, err := lexFragment(defFile, defines[name], defFile.At(1, 1))
		if err != nil {
			return nil, err
		}
		pp.macros[name] = macro{body: body}
	}

	for _, tok := range toks {
		switch {
		case tok.Class == Directive:
			if err := pp.directive(tok); err != nil {
				return nil, err
			}
		case tok.Class == EndOfText:
			if len(pp.conds) > 0 {
				top := pp.conds[len(pp.conds)-1]
				return nil, pp.errorf(top.pos, "unterminated conditional directive")
			}
			pp.out = append(pp.out, tok)
		case !pp.emitting():
			continue
		case tok.Class == Identifier:
			pp.out = append(pp.out, pp.expand(tok, nil)...)
		default:
			pp.out = append(pp.out, tok)
		}
	}

	return pp.out, nil
}

func (pp *preprocessor) errorf(pos source.Position, format string, a ...interface{}) error {
	return kcerrors.Errorf(kcerrors.ErrSyntax, "preprocess", pos, format, a...).WithSourceLine(pp.file)
}

func (pp *preprocessor) emitting() bool {
	return len(pp.conds) == 0 || pp.conds[len(pp.conds)-1].active
}

// expand returns the tokens tok expands to. Names in hidden are not expanded
// again, which stops self-referencing macros from recursing forever.
func (pp *preprocessor) expand(tok Token, hidden map[string]bool) []Token {
	m, ok := pp.macros[tok.Lexeme]
	if !ok || hidden[tok.Lexeme] {
		return []Token{tok}
	}

	inner := map[string]bool{tok.Lexeme: true}
	for k := range hidden {
		inner[k] = true
	}

	var out []Token
	for _, bt := range m.body {
		// expanded tokens report the position of the use site
		bt.Pos = tok.Pos
		if bt.Class == Identifier {
			out = append(out, pp.expand(bt, inner)...)
		} else {
			out = append(out, bt)
		}
	}
	return out
}

func splitDirective(text string) (name, rest string, restOffset int) {
	i := 0
	for i < len(text) && (unicode.IsLetter(rune(text[i])) || text[i] == '_') {
		i++
	}
	name = text[:i]
	j := i
	for j < len(text) && (text[j] == ' ' || text[j] == '\t') {
		j++
	}
	return name, strings.TrimSpace(text[j:]), j
}

func (pp *preprocessor) directive(tok Token) error {
	name, rest, restOffset := splitDirective(tok.Lexeme)
	restPos := tok.Pos
	restPos.Column += 1 + restOffset

	switch name {
	case "ifdef", "ifndef":
		frame := condFrame{parentActive: pp.emitting(), pos: tok.Pos}
		if frame.parentActive {
			macroName := strings.TrimSpace(rest)
			if !isIdentifier(macroName) {
				return pp.errorf(restPos, "#%s requires a macro name", name)
			}
			_, defined := pp.macros[macroName]
			frame.active = defined == (name == "ifdef")
			frame.taken = frame.active
		}
		pp.conds = append(pp.conds, frame)
		return nil
	case "if":
		frame := condFrame{parentActive: pp.emitting(), pos: tok.Pos}
		if frame.parentActive {
			val, err := pp.evalCondition(rest, restPos)
			if err != nil {
				return err
			}
			frame.active = val != 0
			frame.taken = frame.active
		}
		pp.conds = append(pp.conds, frame)
		return nil
	case "elif":
		if len(pp.conds) == 0 {
			return pp.errorf(tok.Pos, "#elif without #if")
		}
		top := &pp.conds[len(pp.conds)-1]
		if top.sawElse {
			return pp.errorf(tok.Pos, "#elif after #else")
		}
		if top.taken || !top.parentActive {
			top.active = false
			return nil
		}
		val, err := pp.evalCondition(rest, restPos)
		if err != nil {
			return err
		}
		top.active = val != 0
		top.taken = top.active
		return nil
	case "else":
		if len(pp.conds) == 0 {
			return pp.errorf(tok.Pos, "#else without #if")
		}
		top := &pp.conds[len(pp.conds)-1]
		if top.sawElse {
			return pp.errorf(tok.Pos, "duplicate #else")
		}
		top.sawElse = true
		top.active = top.parentActive && !top.taken
		top.taken = true
		return nil
	case "endif":
		if len(pp.conds) == 0 {
			return pp.errorf(tok.Pos, "#endif without #if")
		}
		pp.conds = pp.conds[:len(pp.conds)-1]
		return nil
	}

	if !pp.emitting() {
		return nil
	}

	switch name {
	case "":
		// null directive
		return nil
	case "define":
		macroName, body, bodyOffset := splitDirective(rest)
		if !isIdentifier(macroName) {
			return pp.errorf(restPos, "#define requires a macro name")
		}
		if len(macroName) < len(rest) && rest[len(macroName)] == '(' {
			return pp.errorf(restPos, "function-like macro %q is not supported", macroName)
		}
		bodyPos := restPos
		bodyPos.Column += bodyOffset
		bodyToks, err := lexFragment(pp.file, body, bodyPos)
		if err != nil {
			return err
		}
		pp.macros[macroName] = macro{body: bodyToks}
		return nil
	case "undef":
		macroName := strings.TrimSpace(rest)
		if !isIdentifier(macroName) {
			return pp.errorf(restPos, "#undef requires a macro name")
		}
		delete(pp.macros, macroName)
		return nil
	case "pragma":
		pp.out = append(pp.out, tok)
		return nil
	case "error":
		return pp.errorf(tok.Pos, "#error %s", rest)
	case "include":
		return pp.errorf(tok.Pos, "#include is not supported; kernel sources must be self-contained")
	default:
		return pp.errorf(tok.Pos, "unknown directive #%s", name)
	}
}

// evalCondition evaluates the integer expression of an #if or #elif.
func (pp *preprocessor) evalCondition(text string, pos source.Position) (int64, error) {
	raw, err := lexFragment(pp.file, text, pos)
	if err != nil {
		return 0, err
	}
	if len(raw) == 0 {
		return 0, pp.errorf(pos, "#if with no expression")
	}

	// resolve defined() before any macro expansion
	var resolved []Token
	for i := 0; i < len(raw); i++ {
		t := raw[i]
		if t.Class != Identifier || t.Lexeme != "defined" {
			resolved = append(resolved, t)
			continue
		}

		var nameTok Token
		switch {
		case i+1 < len(raw) && raw[i+1].Class == Identifier:
			nameTok = raw[i+1]
			i++
		case i+3 < len(raw) && raw[i+1].IsPunct("(") && raw[i+2].Class == Identifier && raw[i+3].IsPunct(")"):
			nameTok = raw[i+2]
			i += 3
		default:
			return 0, pp.errorf(t.Pos, "malformed defined() in #if")
		}

		val := "0"
		if _, ok := pp.macros[nameTok.Lexeme]; ok {
			val = "1"
		}
		resolved = append(resolved, Token{Class: IntLiteral, Lexeme: val, Pos: t.Pos})
	}

	var expanded []Token
	for _, t := range resolved {
		if t.Class == Identifier {
			expanded = append(expanded, pp.expand(t, nil)...)
		} else {
			expanded = append(expanded, t)
		}
	}

	ev := &condEvaluator{pp: pp, toks: expanded, end: pos}
	val, err := ev.parse(0)
	if err != nil {
		return 0, err
	}
	if ev.pos < len(ev.toks) {
		return 0, pp.errorf(ev.toks[ev.pos].Pos, "unexpected %s in #if", ev.toks[ev.pos].Human())
	}
	return val, nil
}

// condEvaluator is a small precedence climbing evaluator for #if expressions.
type condEvaluator struct {
	pp   *preprocessor
	toks []Token
	pos  int
	end  source.Position
}

var condPrecedence = map[string]int{
	"||": 1, "&&": 2, "|": 3, "^": 4, "&": 5,
	"==": 6, "!=": 6,
	"<": 7, ">": 7, "<=": 7, ">=": 7,
	"<<": 8, ">>": 8,
	"+": 9, "-": 9,
	"*": 10, "/": 10, "%": 10,
}

func (ev *condEvaluator) next() (Token, bool) {
	if ev.pos >= len(ev.toks) {
		return Token{}, false
	}
	t := ev.toks[ev.pos]
	ev.pos++
	return t, true
}

func (ev *condEvaluator) parse(minPrec int) (int64, error) {
	left, err := ev.unary()
	if err != nil {
		return 0, err
	}

	for ev.pos < len(ev.toks) {
		op := ev.toks[ev.pos]
		prec, ok := condPrecedence[op.Lexeme]
		if op.Class != Punct || !ok || prec <= minPrec {
			break
		}
		ev.pos++

		right, err := ev.parse(prec)
		if err != nil {
			return 0, err
		}

		left, err = ev.apply(op, left, right)
		if err != nil {
			return 0, err
		}
	}

	return left, nil
}

func (ev *condEvaluator) unary() (int64, error) {
	t, ok := ev.next()
	if !ok {
		return 0, ev.pp.errorf(ev.end, "unexpected end of #if expression")
	}

	switch {
	case t.IsPunct("("):
		val, err := ev.parse(0)
		if err != nil {
			return 0, err
		}
		closing, ok := ev.next()
		if !ok || !closing.IsPunct(")") {
			return 0, ev.pp.errorf(t.Pos, "unclosed '(' in #if")
		}
		return val, nil
	case t.IsPunct("!"):
		val, err := ev.unary()
		if val == 0 {
			return 1, err
		}
		return 0, err
	case t.IsPunct("-"):
		val, err := ev.unary()
		return -val, err
	case t.IsPunct("+"):
		return ev.unary()
	case t.IsPunct("~"):
		val, err := ev.unary()
		return ^val, err
	case t.Class == IntLiteral:
		val, err := strconv.ParseInt(strings.TrimRight(t.Lexeme, "uUlL"), 0, 64)
		if err != nil {
			return 0, ev.pp.errorf(t.Pos, "invalid integer %q in #if", t.Lexeme)
		}
		return val, nil
	case t.Class == Identifier || t.Class == Keyword:
		// names left after expansion are not defined and evaluate to 0
		return 0, nil
	default:
		return 0, ev.pp.errorf(t.Pos, "unexpected %s in #if", t.Human())
	}
}

func (ev *condEvaluator) apply(op Token, l, r int64) (int64, error) {
	b := func(v bool) int64 {
		if v {
			return 1
		}
		return 0
	}

	switch op.Lexeme {
	case "||":
		return b(l != 0 || r != 0), nil
	case "&&":
		return b(l != 0 && r != 0), nil
	case "|":
		return l | r, nil
	case "^":
		return l ^ r, nil
	case "&":
		return l & r, nil
	case "==":
		return b(l == r), nil
	case "!=":
		return b(l != r), nil
	case "<":
		return b(l < r), nil
	case ">":
		return b(l > r), nil
	case "<=":
		return b(l <= r), nil
	case ">=":
		return b(l >= r), nil
	case "<<":
		return l << uint64(r), nil
	case ">>":
		return l >> uint64(r), nil
	case "+":
		return l + r, nil
	case "-":
		return l - r, nil
	case "*":
		return l * r, nil
	case "/", "%":
		if r == 0 {
			return 0, ev.pp.errorf(op.Pos, "division by zero in #if")
		}
		if op.Lexeme == "/" {
			return l / r, nil
		}
		return l % r, nil
	}
	return 0, ev.pp.errorf(op.Pos, "unsupported operator %s in #if", op.Lexeme)
}

func isIdentifier(s string) bool {
	if s == "" || keywords[s] {
		return false
	}
	for i, ch := range s {
		if ch == '_' || unicode.IsLetter(ch) {
			continue
		}
		if i > 0 && unicode.IsDigit(ch) {
			continue
		}
		return false
	}
	return true
}
