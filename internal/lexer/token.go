package lexer

import "fmt"

// TokenType discriminates lexical token categories. Indentation is
// surfaced as structural Indent/Dedent tokens so the grammar parser can
// treat block structure like ordinary delimiters.
type TokenType int

const (
	EOF TokenType = iota
	Newline
	Indent
	Dedent
	Name
	Number
	String
	Op
)

func (t TokenType) String() string {
	switch t {
	case EOF:
		return "EOF"
	case Newline:
		return "NEWLINE"
	case Indent:
		return "INDENT"
	case Dedent:
		return "DEDENT"
	case Name:
		return "NAME"
	case Number:
		return "NUMBER"
	case String:
		return "STRING"
	case Op:
		return "OP"
	}
	return "UNKNOWN"
}

// Token is one lexical token. Line is 1-based, Col is a 0-based byte
// offset within the line. Start and End are byte offsets into the source,
// so callers can capture verbatim text across token runs.
type Token struct {
	Type    TokenType
	Text    string // verbatim source text, including quotes and prefix for strings
	Value   string // unquoted content for strings, otherwise equal to Text
	Prefix  string // string literal prefix letters (r, b, f, u combinations)
	Line    int
	Col     int
	EndLine int
	EndCol  int
	Start   int
	End     int
}

// Is reports whether the token is an Op or Name with exactly this text.
// Keywords are Name tokens matched by text.
func (t Token) Is(text string) bool {
	return (t.Type == Op || t.Type == Name) && t.Text == text
}

func (t Token) String() string {
	return fmt.Sprintf("%s(%q)@%d:%d", t.Type, t.Text, t.Line, t.Col)
}

// LexError reports an unterminated literal or bracket at end-of-input.
// It is recorded and returned alongside the tokens produced so far, never
// thrown: the unit keeps its partial stream.
type LexError struct {
	Message string
	Line    int
	Col     int
}

func (e *LexError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Col, e.Message)
}
