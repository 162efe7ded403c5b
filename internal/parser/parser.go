// Package parser is a recursive-descent grammar parser over the
// declaration-relevant productions: module body, decorated definitions,
// class definitions, sync/async function definitions, simple and annotated
// assignments. Non-declaration statements are summarized. On a malformed
// statement the parser records a SyntaxError diagnostic and resynchronizes
// at the next statement boundary of the same or lower indentation, so one
// bad method never discards its siblings.
package parser

import (
	"strings"

	"github.com/mvp-joe/pymap/internal/lexer"
	"github.com/mvp-joe/pymap/internal/symbol"
)

// Result carries the parsed tree, the diagnostics recorded along the way,
// and whether the parse was truncated by budget exhaustion.
type Result struct {
	Module      *Module
	Diagnostics []symbol.Diagnostic
	Truncated   bool
}

// statement keywords that start summarized (non-declaration) statements.
var stmtKeywords = map[string]bool{
	"import": true, "from": true, "return": true, "raise": true,
	"pass": true, "del": true, "global": true, "nonlocal": true,
	"assert": true, "yield": true, "if": true, "elif": true, "else": true,
	"for": true, "while": true, "with": true, "try": true, "except": true,
	"finally": true, "match": true, "break": true, "continue": true,
	"lambda": true, "await": true, "print": true,
}

// Parse consumes the token stream against the original source text. The
// budget is spent one step per statement production; on exhaustion the
// parser returns the tree built so far with Truncated set.
func Parse(src string, toks []lexer.Token, budget *symbol.Budget) Result {
	p := &parser{src: src, toks: toks, budget: budget}
	mod := p.parseModule()
	return Result{Module: mod, Diagnostics: p.diags, Truncated: p.truncated}
}

type parser struct {
	src    string
	toks   []lexer.Token
	pos    int
	prev   lexer.Token
	diags  []symbol.Diagnostic
	budget *symbol.Budget

	truncated bool
}

// ── token plumbing ─────────────────────────────────────────────────

func (p *parser) cur() lexer.Token {
	if p.pos >= len(p.toks) {
		return lexer.Token{Type: lexer.EOF}
	}
	return p.toks[p.pos]
}

func (p *parser) peek(n int) lexer.Token {
	if p.pos+n >= len(p.toks) {
		return lexer.Token{Type: lexer.EOF}
	}
	return p.toks[p.pos+n]
}

func (p *parser) advance() lexer.Token {
	t := p.cur()
	if p.pos < len(p.toks) {
		p.prev = p.toks[p.pos]
		p.pos++
	}
	return t
}

func spanBetween(start, end lexer.Token) symbol.Span {
	return symbol.Span{
		StartLine: start.Line, StartCol: start.Col,
		EndLine: end.EndLine, EndCol: end.EndCol,
	}
}

func pointSpan(t lexer.Token) symbol.Span {
	return spanBetween(t, t)
}

func (p *parser) syntaxError(msg string, t lexer.Token) {
	p.diags = append(p.diags, symbol.Diagnostic{
		Severity: symbol.SeverityError,
		Kind:     symbol.DiagSyntaxError,
		Message:  msg,
		Span:     pointSpan(t),
	})
}

// recover skips to the next statement boundary of the same or lower
// indentation: the rest of the broken line, plus any suite it opened.
func (p *parser) recover() {
	depth := 0
	for {
		switch t := p.cur(); t.Type {
		case lexer.EOF:
			return
		case lexer.Indent:
			depth++
		case lexer.Dedent:
			if depth == 0 {
				return
			}
			depth--
			if depth == 0 {
				p.advance()
				return
			}
		case lexer.Newline:
			p.advance()
			if depth == 0 && p.cur().Type != lexer.Indent {
				return
			}
			continue
		}
		p.advance()
	}
}

// skipSuite consumes a balanced Indent...Dedent block. cur must be Indent.
func (p *parser) skipSuite() {
	depth := 0
	for {
		switch p.cur().Type {
		case lexer.EOF:
			return
		case lexer.Indent:
			depth++
		case lexer.Dedent:
			depth--
			if depth == 0 {
				p.advance()
				return
			}
		}
		p.advance()
	}
}

// ── productions ────────────────────────────────────────────────────

func (p *parser) parseModule() *Module {
	mod := &Module{}
	for p.cur().Type == lexer.Newline {
		p.advance()
	}
	if p.cur().Type == lexer.String && p.peek(1).Type == lexer.Newline {
		s := p.advance()
		p.advance()
		mod.Doc = &StringLit{Value: s.Value, Prefix: s.Prefix, Span: spanBetween(s, s)}
	}
	mod.Body = p.parseBody()
	return mod
}

// parseBody parses statements until Dedent or EOF. The caller consumes the
// terminating Dedent.
func (p *parser) parseBody() []Stmt {
	var body []Stmt
	for {
		switch p.cur().Type {
		case lexer.EOF, lexer.Dedent:
			return body
		case lexer.Newline:
			p.advance()
			continue
		}
		if !p.budget.Step() {
			p.truncated = true
			p.pos = len(p.toks)
			return body
		}
		if st := p.parseStatement(); st != nil {
			body = append(body, st)
		}
	}
}

func (p *parser) parseStatement() Stmt {
	t := p.cur()
	switch {
	case t.Is("@"):
		return p.parseDecorated()
	case t.Is("class"):
		return p.parseClass(t, nil)
	case t.Is("def"):
		return p.parseFunc(t, nil, false)
	case t.Is("async"):
		if p.peek(1).Is("def") {
			p.advance()
			return p.parseFunc(t, nil, true)
		}
		return p.summarize(t)
	case t.Type == lexer.Name && t.Text == "type" && p.peek(1).Type == lexer.Name && p.peek(2).Is("="):
		// PEP 695 alias statement: type X = ...
		p.advance()
		return p.parseAssignWithAnnotation("TypeAlias")
	case t.Type == lexer.Name && stmtKeywords[t.Text]:
		return p.summarize(t)
	case t.Type == lexer.Name && (p.peek(1).Is(":") || p.peek(1).Is("=")):
		return p.parseAssignWithAnnotation("")
	case t.Type == lexer.String && p.peek(1).Type == lexer.Newline:
		s := p.advance()
		p.advance()
		span := spanBetween(s, s)
		return &ExprStmt{Str: &StringLit{Value: s.Value, Prefix: s.Prefix, Span: span}, Text: s.Text, Span: span}
	default:
		return p.summarize(t)
	}
}

// summarize consumes one statement it does not model: the rest of the line
// plus any suite the line opens.
func (p *parser) summarize(start lexer.Token) Stmt {
	keyword := ""
	if start.Type == lexer.Name {
		keyword = start.Text
	}
	for p.cur().Type != lexer.Newline && p.cur().Type != lexer.EOF && p.cur().Type != lexer.Dedent {
		p.advance()
	}
	end := p.prev
	if p.cur().Type == lexer.Newline {
		p.advance()
	}
	if p.cur().Type == lexer.Indent {
		p.skipSuite()
	}
	return &SummaryStmt{Keyword: keyword, Span: spanBetween(start, end)}
}

func (p *parser) parseDecorated() Stmt {
	var decorators []Decorator
	for p.cur().Is("@") {
		at := p.advance()
		name, ok := p.parseDottedName()
		if !ok {
			p.syntaxError("expected decorator name after '@'", p.cur())
			p.recover()
			return &BadStmt{Span: pointSpan(at)}
		}
		args := ""
		if p.cur().Is("(") {
			args = p.captureParens()
		}
		end := p.prev
		if p.cur().Type == lexer.Newline {
			p.advance()
		}
		decorators = append(decorators, Decorator{Name: name, Args: args, Span: spanBetween(at, end)})
	}

	t := p.cur()
	switch {
	case t.Is("class"):
		return p.parseClass(t, decorators)
	case t.Is("def"):
		return p.parseFunc(t, decorators, false)
	case t.Is("async") && p.peek(1).Is("def"):
		p.advance()
		return p.parseFunc(t, decorators, true)
	default:
		p.syntaxError("expected class or function definition after decorators", t)
		p.recover()
		return &BadStmt{Span: pointSpan(t)}
	}
}

func (p *parser) parseDottedName() (string, bool) {
	if p.cur().Type != lexer.Name {
		return "", false
	}
	var b strings.Builder
	b.WriteString(p.advance().Text)
	for p.cur().Is(".") && p.peek(1).Type == lexer.Name {
		p.advance()
		b.WriteByte('.')
		b.WriteString(p.advance().Text)
	}
	return b.String(), true
}

// captureParens consumes a balanced ( ... ) group and returns the verbatim
// text between the parentheses.
func (p *parser) captureParens() string {
	open := p.advance() // '('
	depth := 1
	var closer lexer.Token
	for depth > 0 {
		t := p.cur()
		if t.Type == lexer.EOF {
			return strings.TrimSpace(p.src[open.End:])
		}
		switch t.Text {
		case "(", "[", "{":
			depth++
		case ")", "]", "}":
			depth--
		}
		closer = p.advance()
	}
	return strings.TrimSpace(p.src[open.End:closer.Start])
}

// captureUntil consumes tokens up to a Newline or one of the stop operator
// texts at bracket depth zero, returning the verbatim source slice.
func (p *parser) captureUntil(stops ...string) string {
	var first, last lexer.Token
	started := false
	depth := 0
	for {
		t := p.cur()
		if t.Type == lexer.Newline || t.Type == lexer.EOF || t.Type == lexer.Dedent {
			break
		}
		if depth == 0 && t.Type == lexer.Op && contains(stops, t.Text) {
			break
		}
		switch t.Text {
		case "(", "[", "{":
			depth++
		case ")", "]", "}":
			if depth == 0 {
				// closing bracket belongs to an enclosing group
				goto done
			}
			depth--
		}
		if !started {
			first = t
			started = true
		}
		last = t
		p.advance()
	}
done:
	if !started {
		return ""
	}
	return strings.TrimSpace(p.src[first.Start:last.End])
}

func contains(list []string, s string) bool {
	for _, have := range list {
		if have == s {
			return true
		}
	}
	return false
}

func (p *parser) parseClass(start lexer.Token, decorators []Decorator) Stmt {
	p.advance() // 'class'
	if p.cur().Type != lexer.Name {
		p.syntaxError("expected class name", p.cur())
		p.recover()
		return &BadStmt{Span: pointSpan(start)}
	}
	name := p.advance()

	cls := &ClassDef{Name: name.Text, Decorators: decorators}
	if p.cur().Is("[") {
		// PEP 695 type parameter list: class Stack[T]:
		p.captureBrackets("[", "]")
	}
	if p.cur().Is("(") {
		p.parseClassArgs(cls)
	}
	if !p.cur().Is(":") {
		p.syntaxError("expected ':' after class header", p.cur())
		p.recover()
		return &BadStmt{Span: spanBetween(start, p.prev)}
	}
	p.advance() // ':'

	doc, body := p.parseDeclarativeSuite()
	cls.Doc = doc
	cls.Body = body
	cls.Span = spanBetween(start, p.prev)
	return cls
}

func (p *parser) parseClassArgs(cls *ClassDef) {
	p.advance() // '('
	for {
		t := p.cur()
		if t.Is(")") {
			p.advance()
			return
		}
		if t.Type == lexer.EOF {
			return
		}
		if t.Type == lexer.Name && p.peek(1).Is("=") {
			key := p.advance()
			p.advance() // '='
			value := p.captureUntil(",")
			cls.Keywords = append(cls.Keywords, Keyword{Name: key.Text, Value: value})
		} else {
			base := p.captureUntil(",")
			if base != "" {
				cls.Bases = append(cls.Bases, base)
			}
		}
		if p.cur().Is(",") {
			p.advance()
			continue
		}
		if p.cur().Is(")") {
			p.advance()
			return
		}
		// Unexpected token inside the base list.
		p.syntaxError("malformed class base list", p.cur())
		p.recover()
		return
	}
}

// captureBrackets consumes a balanced open...close group, returning the
// inner text.
func (p *parser) captureBrackets(open, close string) string {
	first := p.advance()
	depth := 1
	var last lexer.Token
	for depth > 0 {
		t := p.cur()
		if t.Type == lexer.EOF {
			return ""
		}
		switch t.Text {
		case "(", "[", "{":
			depth++
		case ")", "]", "}":
			depth--
		}
		last = p.advance()
	}
	return strings.TrimSpace(p.src[first.End:last.Start])
}

// parseDeclarativeSuite parses an indented class or module-style suite:
// optional docstring, then full statement parsing. Inline suites
// (`class X: pass`) are summarized to an empty body.
func (p *parser) parseDeclarativeSuite() (*StringLit, []Stmt) {
	if p.cur().Type != lexer.Newline {
		for p.cur().Type != lexer.Newline && p.cur().Type != lexer.EOF && p.cur().Type != lexer.Dedent {
			p.advance()
		}
		if p.cur().Type == lexer.Newline {
			p.advance()
		}
		return nil, nil
	}
	p.advance() // Newline
	if p.cur().Type != lexer.Indent {
		p.syntaxError("expected an indented block", p.cur())
		return nil, nil
	}
	p.advance() // Indent

	var doc *StringLit
	if p.cur().Type == lexer.String && p.peek(1).Type == lexer.Newline {
		s := p.advance()
		p.advance()
		doc = &StringLit{Value: s.Value, Prefix: s.Prefix, Span: spanBetween(s, s)}
	}
	body := p.parseBody()
	if p.cur().Type == lexer.Dedent {
		p.advance()
	}
	return doc, body
}

func (p *parser) parseFunc(start lexer.Token, decorators []Decorator, async bool) Stmt {
	p.advance() // 'def'
	if p.cur().Type != lexer.Name {
		p.syntaxError("expected function name", p.cur())
		p.recover()
		return &BadStmt{Span: pointSpan(start)}
	}
	name := p.advance()

	fn := &FuncDef{Name: name.Text, Decorators: decorators, Async: async}
	if p.cur().Is("[") {
		p.captureBrackets("[", "]")
	}
	if !p.cur().Is("(") {
		p.syntaxError("expected '(' after function name", p.cur())
		p.recover()
		return &BadStmt{Span: spanBetween(start, p.prev)}
	}
	params, ok := p.parseParams()
	if !ok {
		return &BadStmt{Span: spanBetween(start, p.prev)}
	}
	fn.Params = params

	if p.cur().Is("->") {
		p.advance()
		fn.Returns = p.captureUntil(":")
	}
	if !p.cur().Is(":") {
		p.syntaxError("expected ':' after function signature", p.cur())
		p.recover()
		return &BadStmt{Span: spanBetween(start, p.prev)}
	}
	p.advance() // ':'

	p.scanFunctionBody(fn)
	fn.Span = spanBetween(start, p.prev)
	return fn
}

// parseParams parses the parameter list of a function definition, already
// classifying parameter kinds against the * and / markers.
func (p *parser) parseParams() ([]Param, bool) {
	p.advance() // '('
	var params []Param
	seenStar := false
	for {
		t := p.cur()
		switch {
		case t.Is(")"):
			p.advance()
			return params, true
		case t.Type == lexer.EOF:
			p.syntaxError("unterminated parameter list", t)
			return params, true
		case t.Is("/"):
			// positional-only marker: retro-mark everything before it
			p.advance()
			for i := range params {
				if params[i].Kind == symbol.ParamPosOrKeyword {
					params[i].Kind = symbol.ParamPositional
				}
			}
		case t.Is("*") && p.peek(1).Type == lexer.Name:
			p.advance()
			nameTok := p.advance()
			param := Param{Name: nameTok.Text, Kind: symbol.ParamVarPos}
			if p.cur().Is(":") {
				p.advance()
				param.Annotation = p.captureUntil(",", "=")
			}
			params = append(params, param)
			seenStar = true
		case t.Is("*"):
			p.advance()
			seenStar = true
		case t.Is("**") && p.peek(1).Type == lexer.Name:
			p.advance()
			nameTok := p.advance()
			param := Param{Name: nameTok.Text, Kind: symbol.ParamVarKeyword}
			if p.cur().Is(":") {
				p.advance()
				param.Annotation = p.captureUntil(",", "=")
			}
			params = append(params, param)
		case t.Type == lexer.Name:
			nameTok := p.advance()
			kind := symbol.ParamPosOrKeyword
			if seenStar {
				kind = symbol.ParamKeywordOnly
			}
			param := Param{Name: nameTok.Text, Kind: kind}
			if p.cur().Is(":") {
				p.advance()
				param.Annotation = p.captureUntil(",", "=")
			}
			if p.cur().Is("=") {
				p.advance()
				param.Default = p.captureUntil(",")
				param.HasDefault = true
			}
			params = append(params, param)
		default:
			p.syntaxError("malformed parameter list", t)
			p.recover()
			return params, false
		}
		if p.cur().Is(",") {
			p.advance()
		}
	}
}

// scanFunctionBody summarizes a function body: the docstring and whether a
// yield expression occurs at the function's own nesting level (yields
// inside nested definitions do not count).
func (p *parser) scanFunctionBody(fn *FuncDef) {
	if p.cur().Type != lexer.Newline {
		// inline body on the header line
		for p.cur().Type != lexer.Newline && p.cur().Type != lexer.EOF && p.cur().Type != lexer.Dedent {
			if p.cur().Is("yield") {
				fn.HasYield = true
			}
			p.advance()
		}
		if p.cur().Type == lexer.Newline {
			p.advance()
		}
		return
	}
	p.advance() // Newline
	if p.cur().Type != lexer.Indent {
		p.syntaxError("expected an indented block", p.cur())
		return
	}
	p.advance() // Indent

	if p.cur().Type == lexer.String && p.peek(1).Type == lexer.Newline {
		s := p.advance()
		p.advance()
		fn.Doc = &StringLit{Value: s.Value, Prefix: s.Prefix, Span: spanBetween(s, s)}
	}

	depth := 1
	var nested []int // indent depths at which nested def/class suites began
	headerNested := false
	for {
		t := p.cur()
		switch t.Type {
		case lexer.EOF:
			return
		case lexer.Indent:
			depth++
			if headerNested {
				nested = append(nested, depth)
				headerNested = false
			}
		case lexer.Dedent:
			if len(nested) > 0 && nested[len(nested)-1] == depth {
				nested = nested[:len(nested)-1]
			}
			depth--
			if depth == 0 {
				p.advance()
				return
			}
		case lexer.Newline:
			headerNested = headerNested && p.peek(1).Type == lexer.Indent
			if !p.budget.Step() {
				p.truncated = true
				p.pos = len(p.toks)
				return
			}
		case lexer.Name:
			switch t.Text {
			case "def", "class":
				headerNested = true
			case "yield":
				if len(nested) == 0 && !headerNested {
					fn.HasYield = true
				}
			}
		}
		p.advance()
	}
}

func (p *parser) parseAssignWithAnnotation(forced string) Stmt {
	nameTok := p.advance()
	a := &Assign{Target: nameTok.Text, Annotation: forced}
	if p.cur().Is(":") {
		p.advance()
		a.Annotation = p.captureUntil("=")
	}
	if p.cur().Is("=") {
		p.advance()
		a.Value = p.captureUntil()
	}
	end := p.prev
	if p.cur().Type == lexer.Newline {
		p.advance()
	}
	a.Span = spanBetween(nameTok, end)
	return a
}
