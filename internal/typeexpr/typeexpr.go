// Package typeexpr normalizes Python type annotation text into a structured
// expression tree. It understands named references (including dotted paths),
// subscripted generics, union compositions (both typing.Union and the `|`
// shorthand), Optional wrappers, and string forward references. Forward
// references are kept as unresolved named references; resolution happens
// lazily by name lookup against the assembled symbol table, never eagerly,
// so recursive aliases terminate.
package typeexpr

import (
	"strings"
)

// Kind discriminates expression tree nodes.
type Kind string

const (
	KindName     Kind = "name"     // plain or dotted reference: int, os.PathLike
	KindForward  Kind = "forward"  // string forward reference: "Node"
	KindGeneric  Kind = "generic"  // subscripted: List[int], Dict[str, int]
	KindUnion    Kind = "union"    // Union[a, b] or a | b
	KindOptional Kind = "optional" // Optional[x]
	KindLiteral  Kind = "literal"  // literal value argument: 42, "r", None, ...
	KindTuple    Kind = "tuple"    // parenthesized group, e.g. Callable arg lists
)

// Expr is one node of a normalized type expression.
type Expr struct {
	Kind Kind    `json:"kind"`
	Name string  `json:"name,omitempty"` // KindName/KindForward/KindGeneric base, KindLiteral raw text
	Args []*Expr `json:"args,omitempty"` // generic arguments, union members, optional target
}

// String renders the expression in canonical Python-ish syntax. The output
// is stable for identical inputs, which the determinism contract relies on.
func (e *Expr) String() string {
	if e == nil {
		return ""
	}
	switch e.Kind {
	case KindName, KindLiteral:
		return e.Name
	case KindForward:
		return "\"" + e.Name + "\""
	case KindGeneric:
		parts := make([]string, len(e.Args))
		for i, a := range e.Args {
			parts[i] = a.String()
		}
		return e.Name + "[" + strings.Join(parts, ", ") + "]"
	case KindUnion:
		parts := make([]string, len(e.Args))
		for i, a := range e.Args {
			parts[i] = a.String()
		}
		return strings.Join(parts, " | ")
	case KindOptional:
		if len(e.Args) == 1 {
			return "Optional[" + e.Args[0].String() + "]"
		}
		return "Optional"
	case KindTuple:
		parts := make([]string, len(e.Args))
		for i, a := range e.Args {
			parts[i] = a.String()
		}
		return "(" + strings.Join(parts, ", ") + ")"
	}
	return e.Name
}

// Parse normalizes annotation text. It is tolerant: on malformed input the
// raw text is preserved as a single name node so no annotation is ever lost.
func Parse(text string) *Expr {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	p := &exprParser{src: text}
	expr := p.parseUnion()
	if expr == nil || !p.eof() {
		return &Expr{Kind: KindName, Name: text}
	}
	return expr
}

type exprParser struct {
	src string
	pos int
}

func (p *exprParser) eof() bool {
	p.skipSpace()
	return p.pos >= len(p.src)
}

func (p *exprParser) skipSpace() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t' || p.src[p.pos] == '\n') {
		p.pos++
	}
}

func (p *exprParser) peek() byte {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

// parseUnion handles the `|` shorthand: X | Y | None.
func (p *exprParser) parseUnion() *Expr {
	first := p.parseAtom()
	if first == nil {
		return nil
	}
	var members []*Expr
	for p.peek() == '|' {
		p.pos++
		next := p.parseAtom()
		if next == nil {
			return nil
		}
		if members == nil {
			members = []*Expr{first}
		}
		members = append(members, next)
	}
	if members == nil {
		return first
	}
	return &Expr{Kind: KindUnion, Args: flattenUnions(members)}
}

// flattenUnions merges nested unions so `a | b | c` has three members, and
// `Union[a, b] | c` likewise.
func flattenUnions(members []*Expr) []*Expr {
	out := make([]*Expr, 0, len(members))
	for _, m := range members {
		if m.Kind == KindUnion {
			out = append(out, m.Args...)
			continue
		}
		out = append(out, m)
	}
	return out
}

func (p *exprParser) parseAtom() *Expr {
	switch c := p.peek(); {
	case c == '"' || c == '\'':
		return p.parseForward(c)
	case c == '(':
		return p.parseTuple()
	case c == '[':
		// bracketed parameter list, e.g. Callable[[int, str], bool]
		return p.parseBracketList()
	case c == '.':
		// Ellipsis
		if strings.HasPrefix(p.src[p.pos:], "...") {
			p.pos += 3
			return &Expr{Kind: KindLiteral, Name: "..."}
		}
		return nil
	case c == '-' || (c >= '0' && c <= '9'):
		return p.parseNumber()
	case isNameByte(c):
		return p.parseNamed()
	default:
		return nil
	}
}

func (p *exprParser) parseForward(quote byte) *Expr {
	p.pos++ // opening quote
	start := p.pos
	for p.pos < len(p.src) && p.src[p.pos] != quote {
		p.pos++
	}
	name := p.src[start:p.pos]
	if p.pos < len(p.src) {
		p.pos++ // closing quote
	}
	// A quoted forward reference may itself be a full expression, e.g.
	// "List[Node]". Normalize the inner text but keep the forward tag on
	// plain names so lazy resolution still knows what to look up.
	inner := strings.TrimSpace(name)
	if strings.ContainsAny(inner, "[|") {
		if sub := Parse(inner); sub != nil {
			return sub
		}
	}
	return &Expr{Kind: KindForward, Name: inner}
}

func (p *exprParser) parseTuple() *Expr {
	p.pos++ // '('
	tuple := &Expr{Kind: KindTuple}
	for {
		if p.peek() == ')' {
			p.pos++
			return tuple
		}
		arg := p.parseUnion()
		if arg == nil {
			return nil
		}
		tuple.Args = append(tuple.Args, arg)
		switch p.peek() {
		case ',':
			p.pos++
		case ')':
			p.pos++
			return tuple
		default:
			return nil
		}
	}
}

func (p *exprParser) parseBracketList() *Expr {
	p.pos++ // '['
	list := &Expr{Kind: KindTuple}
	for {
		if p.peek() == ']' {
			p.pos++
			return list
		}
		arg := p.parseUnion()
		if arg == nil {
			return nil
		}
		list.Args = append(list.Args, arg)
		switch p.peek() {
		case ',':
			p.pos++
		case ']':
			p.pos++
			return list
		default:
			return nil
		}
	}
}

func (p *exprParser) parseNumber() *Expr {
	p.skipSpace()
	start := p.pos
	if p.src[p.pos] == '-' {
		p.pos++
	}
	for p.pos < len(p.src) && (p.src[p.pos] >= '0' && p.src[p.pos] <= '9' || p.src[p.pos] == '.' || p.src[p.pos] == '_') {
		p.pos++
	}
	if p.pos == start {
		return nil
	}
	return &Expr{Kind: KindLiteral, Name: p.src[start:p.pos]}
}

func (p *exprParser) parseNamed() *Expr {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.src) && (isNameByte(p.src[p.pos]) || p.src[p.pos] == '.') {
		p.pos++
	}
	name := p.src[start:p.pos]
	if name == "" {
		return nil
	}

	if p.peek() != '[' {
		if name == "None" {
			return &Expr{Kind: KindLiteral, Name: "None"}
		}
		return &Expr{Kind: KindName, Name: name}
	}

	p.pos++ // '['
	var args []*Expr
	for {
		if p.peek() == ']' {
			p.pos++
			break
		}
		arg := p.parseUnion()
		if arg == nil {
			return nil
		}
		args = append(args, arg)
		switch p.peek() {
		case ',':
			p.pos++
		case ']':
			p.pos++
		default:
			return nil
		}
		if p.src[p.pos-1] == ']' {
			break
		}
	}

	base := lastComponent(name)
	switch base {
	case "Optional":
		return &Expr{Kind: KindOptional, Args: args}
	case "Union":
		return &Expr{Kind: KindUnion, Args: flattenUnions(args)}
	default:
		return &Expr{Kind: KindGeneric, Name: name, Args: args}
	}
}

func isNameByte(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

// lastComponent returns the final segment of a dotted path, so
// typing.Optional and Optional normalize the same way.
func lastComponent(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i+1:]
	}
	return name
}
