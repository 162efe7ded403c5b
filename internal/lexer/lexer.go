// Package lexer turns source text into a flat token stream, tracking
// indentation of logical lines as Indent/Dedent tokens. Continuation inside
// brackets or after a backslash suppresses Newline emission, matching the
// language's logical-line rules.
package lexer

import (
	"strings"
)

// tabWidth is the column advance of a tab when measuring indentation.
const tabWidth = 8

// multi-character operators, longest first so maximal munch wins.
var multiOps = []string{
	"**=", "//=", ">>=", "<<=", "...",
	"->", ":=", "**", "//", "<<", ">>",
	"==", "!=", "<=", ">=",
	"+=", "-=", "*=", "/=", "%=", "&=", "|=", "^=", "@=",
}

const singleOps = "+-*/%@<>&|^~=:,;.()[]{}"

type lexer struct {
	src    string
	pos    int
	line   int
	col    int
	tokens []Token

	indents     []int
	bracketBal  int
	atLineStart bool
	lineHasTok  bool // current logical line produced at least one token
	err         *LexError
}

// Tokenize lexes the whole source. On an unterminated string or bracket the
// stream produced so far is returned together with the error; structural
// closers (Newline, Dedent, EOF) are still appended so a parser can consume
// the partial stream without special cases.
func Tokenize(source string) ([]Token, *LexError) {
	l := &lexer{
		src:         source,
		line:        1,
		indents:     []int{0},
		atLineStart: true,
	}
	l.run()
	return l.tokens, l.err
}

func (l *lexer) run() {
	for l.pos < len(l.src) && l.err == nil {
		if l.atLineStart && l.bracketBal == 0 {
			if l.handleLineStart() {
				continue
			}
			break // end of input reached while skipping blank lines
		}
		l.lexToken()
	}
	l.finish()
}

// handleLineStart measures leading whitespace of the upcoming logical line
// and emits Indent/Dedent tokens. Blank and comment-only lines are skipped
// without structural effect. Returns false at end of input.
func (l *lexer) handleLineStart() bool {
	for {
		width := 0
		i := l.pos
		for i < len(l.src) {
			switch l.src[i] {
			case ' ':
				width++
			case '\t':
				width += tabWidth - width%tabWidth
			default:
				goto measured
			}
			i++
		}
	measured:
		if i >= len(l.src) {
			l.pos = i
			return false
		}
		switch l.src[i] {
		case '\n':
			l.advanceTo(i + 1)
			l.line++
			l.col = 0
			continue
		case '#':
			for i < len(l.src) && l.src[i] != '\n' {
				i++
			}
			l.advanceTo(i)
			continue
		case '\r':
			l.advanceTo(i + 1)
			continue
		}

		l.advanceTo(i)
		l.applyIndent(width)
		l.atLineStart = false
		l.lineHasTok = false
		return true
	}
}

func (l *lexer) applyIndent(width int) {
	top := l.indents[len(l.indents)-1]
	switch {
	case width > top:
		l.indents = append(l.indents, width)
		l.emit(Indent, "")
	case width < top:
		for len(l.indents) > 1 && l.indents[len(l.indents)-1] > width {
			l.indents = l.indents[:len(l.indents)-1]
			l.emit(Dedent, "")
		}
		// An inconsistent level dedents to the nearest enclosing one; the
		// grammar parser reports the statement if it ends up malformed.
	}
}

func (l *lexer) lexToken() {
	c := l.src[l.pos]
	switch {
	case c == ' ' || c == '\t' || c == '\r':
		l.advanceTo(l.pos + 1)
	case c == '#':
		i := l.pos
		for i < len(l.src) && l.src[i] != '\n' {
			i++
		}
		l.advanceTo(i)
	case c == '\n':
		l.consumeNewline()
	case c == '\\' && l.pos+1 < len(l.src) && l.src[l.pos+1] == '\n':
		// explicit line continuation
		l.pos += 2
		l.line++
		l.col = 0
	case isNameStart(c):
		l.lexName()
	case c >= '0' && c <= '9':
		l.lexNumber()
	case c == '.' && l.pos+1 < len(l.src) && l.src[l.pos+1] >= '0' && l.src[l.pos+1] <= '9':
		l.lexNumber()
	case c == '"' || c == '\'':
		l.lexString("")
	default:
		l.lexOp()
	}
}

func (l *lexer) consumeNewline() {
	if l.bracketBal > 0 {
		// Newline suppressed inside brackets.
		l.pos++
		l.line++
		l.col = 0
		return
	}
	if l.lineHasTok {
		l.emit(Newline, "\n")
	}
	l.pos++
	l.line++
	l.col = 0
	l.atLineStart = true
}

func (l *lexer) lexName() {
	startLine, startCol, start := l.line, l.col, l.pos
	i := l.pos
	for i < len(l.src) && isNameByte(l.src[i]) {
		i++
	}
	text := l.src[start:i]

	// A short run of string-prefix letters directly before a quote starts a
	// prefixed string literal (r"...", rb'...', f"...").
	if len(text) <= 2 && i < len(l.src) && (l.src[i] == '"' || l.src[i] == '\'') && isStringPrefix(text) {
		l.advanceTo(i)
		l.lexString(text)
		return
	}

	l.advanceTo(i)
	l.tokens = append(l.tokens, Token{
		Type: Name, Text: text, Value: text,
		Line: startLine, Col: startCol, EndLine: l.line, EndCol: l.col,
		Start: start, End: i,
	})
	l.lineHasTok = true
}

func isStringPrefix(s string) bool {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case 'r', 'R', 'b', 'B', 'f', 'F', 'u', 'U':
		default:
			return false
		}
	}
	return true
}

func (l *lexer) lexNumber() {
	startLine, startCol, start := l.line, l.col, l.pos
	i := l.pos
	for i < len(l.src) {
		c := l.src[i]
		if c >= '0' && c <= '9' || c == '_' || c == '.' ||
			c == 'x' || c == 'X' || c == 'o' || c == 'O' || c == 'b' || c == 'B' ||
			c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F' || c == 'j' || c == 'J' {
			// exponent sign
			if (c == 'e' || c == 'E') && i+1 < len(l.src) && (l.src[i+1] == '+' || l.src[i+1] == '-') {
				i++
			}
			i++
			continue
		}
		break
	}
	text := l.src[start:i]
	l.advanceTo(i)
	l.tokens = append(l.tokens, Token{
		Type: Number, Text: text, Value: text,
		Line: startLine, Col: startCol, EndLine: l.line, EndCol: l.col,
		Start: start, End: i,
	})
	l.lineHasTok = true
}

func (l *lexer) lexString(prefix string) {
	startLine := l.line
	startCol := l.col - len(prefix)
	start := l.pos - len(prefix)
	quote := l.src[l.pos]

	triple := strings.HasPrefix(l.src[l.pos:], strings.Repeat(string(quote), 3))
	if triple {
		l.advanceTo(l.pos + 3)
		closer := strings.Repeat(string(quote), 3)
		for {
			if l.pos >= len(l.src) {
				l.fail("unterminated string literal", startLine, startCol)
				return
			}
			if strings.HasPrefix(l.src[l.pos:], closer) {
				inner := l.src[start+len(prefix)+3 : l.pos]
				l.advanceTo(l.pos + 3)
				l.emitString(l.src[start:l.pos], inner, prefix, startLine, startCol)
				return
			}
			if l.src[l.pos] == '\\' && l.pos+1 < len(l.src) {
				l.advanceTo(l.pos + 2)
				continue
			}
			if l.src[l.pos] == '\n' {
				l.pos++
				l.line++
				l.col = 0
				continue
			}
			l.advanceTo(l.pos + 1)
		}
	}

	l.advanceTo(l.pos + 1)
	for {
		if l.pos >= len(l.src) || l.src[l.pos] == '\n' {
			l.fail("unterminated string literal", startLine, startCol)
			return
		}
		if l.src[l.pos] == quote {
			inner := l.src[start+len(prefix)+1 : l.pos]
			l.advanceTo(l.pos + 1)
			l.emitString(l.src[start:l.pos], inner, prefix, startLine, startCol)
			return
		}
		if l.src[l.pos] == '\\' && l.pos+1 < len(l.src) {
			l.advanceTo(l.pos + 2)
			continue
		}
		l.advanceTo(l.pos + 1)
	}
}

func (l *lexer) emitString(text, value, prefix string, startLine, startCol int) {
	l.tokens = append(l.tokens, Token{
		Type: String, Text: text, Value: value, Prefix: strings.ToLower(prefix),
		Line: startLine, Col: startCol, EndLine: l.line, EndCol: l.col,
		Start: l.pos - len(text), End: l.pos,
	})
	l.lineHasTok = true
}

func (l *lexer) lexOp() {
	startLine, startCol := l.line, l.col
	rest := l.src[l.pos:]
	for _, op := range multiOps {
		if strings.HasPrefix(rest, op) {
			l.advanceTo(l.pos + len(op))
			l.emitOpAt(op, startLine, startCol)
			return
		}
	}
	c := l.src[l.pos]
	if strings.IndexByte(singleOps, c) < 0 {
		// Unknown byte: skip it rather than loop forever; the parser will
		// flag the statement if the gap matters.
		l.advanceTo(l.pos + 1)
		return
	}
	switch c {
	case '(', '[', '{':
		l.bracketBal++
	case ')', ']', '}':
		if l.bracketBal > 0 {
			l.bracketBal--
		}
	}
	l.advanceTo(l.pos + 1)
	l.emitOpAt(string(c), startLine, startCol)
}

func (l *lexer) emitOpAt(text string, line, col int) {
	l.tokens = append(l.tokens, Token{
		Type: Op, Text: text, Value: text,
		Line: line, Col: col, EndLine: l.line, EndCol: l.col,
		Start: l.pos - len(text), End: l.pos,
	})
	l.lineHasTok = true
}

func (l *lexer) emit(t TokenType, text string) {
	l.tokens = append(l.tokens, Token{
		Type: t, Text: text, Value: text,
		Line: l.line, Col: l.col, EndLine: l.line, EndCol: l.col,
		Start: l.pos, End: l.pos,
	})
}

func (l *lexer) fail(msg string, line, col int) {
	l.err = &LexError{Message: msg, Line: line, Col: col}
}

// finish closes the stream: trailing Newline, pending Dedents, EOF, and the
// unterminated-bracket check.
func (l *lexer) finish() {
	if l.err == nil && l.bracketBal > 0 {
		l.fail("unterminated bracket at end of input", l.line, l.col)
	}
	if l.lineHasTok && !l.atLineStart {
		l.emit(Newline, "\n")
	}
	for len(l.indents) > 1 {
		l.indents = l.indents[:len(l.indents)-1]
		l.emit(Dedent, "")
	}
	l.emit(EOF, "")
}

// advanceTo moves the cursor forward within the current line.
func (l *lexer) advanceTo(pos int) {
	l.col += pos - l.pos
	l.pos = pos
}

func isNameStart(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= 0x80
}

func isNameByte(c byte) bool {
	return isNameStart(c) || c >= '0' && c <= '9'
}
