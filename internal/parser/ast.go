package parser

import (
	"github.com/mvp-joe/pymap/internal/symbol"
)

// Module is the root of one parsed unit's declaration tree.
type Module struct {
	Doc  *StringLit
	Body []Stmt
}

// Stmt is a declaration-relevant statement. Non-declaration statements are
// summarized, not fully modeled.
type Stmt interface {
	StmtSpan() symbol.Span
}

// StringLit is a string-literal expression, kept for docstrings.
type StringLit struct {
	Value  string // unquoted content
	Prefix string
	Span   symbol.Span
}

// Decorator is one @-line attached to a definition, recorded verbatim.
type Decorator struct {
	Name string // dotted path
	Args string // argument text between the parens, "" when uncalled
	Span symbol.Span
}

// Keyword is a class-header keyword argument such as metaclass=ABCMeta.
type Keyword struct {
	Name  string
	Value string
}

// ClassDef is a class definition with its base list and keyword arguments.
type ClassDef struct {
	Name       string
	Bases      []string // positional bases, verbatim text, order preserved
	Keywords   []Keyword
	Decorators []Decorator
	Doc        *StringLit
	Body       []Stmt
	Span       symbol.Span
}

func (c *ClassDef) StmtSpan() symbol.Span { return c.Span }

// Param is one declared parameter, already classified by position relative
// to the * and / markers.
type Param struct {
	Name       string
	Kind       symbol.ParamKind
	Annotation string // verbatim annotation text, "" when absent
	Default    string // verbatim default text, "" when absent
	HasDefault bool
}

// FuncDef is a function or method definition. The body is summarized: only
// the docstring and own-level yield presence are kept.
type FuncDef struct {
	Name       string
	Params     []Param
	Returns    string // verbatim return annotation, "" when absent
	Decorators []Decorator
	Async      bool
	HasYield   bool
	Doc        *StringLit
	Span       symbol.Span
}

func (f *FuncDef) StmtSpan() symbol.Span { return f.Span }

// Assign is a simple or annotated single-name binding. Complex targets
// (attribute or subscript assignment, tuple unpacking) are summarized away.
type Assign struct {
	Target     string
	Annotation string // verbatim, "" for plain assignment
	Value      string // verbatim RHS capture, "" for bare annotation
	Span       symbol.Span
}

func (a *Assign) StmtSpan() symbol.Span { return a.Span }

// ExprStmt is an expression statement; only string literals matter (it is
// how docstrings appear after the first statement slot).
type ExprStmt struct {
	Str  *StringLit // non-nil when the expression is a lone string literal
	Text string
	Span symbol.Span
}

func (e *ExprStmt) StmtSpan() symbol.Span { return e.Span }

// SummaryStmt records a statement the grammar does not model in full:
// with/try/for/while/if headers, imports, returns, and similar.
type SummaryStmt struct {
	Keyword string
	Span    symbol.Span
}

func (s *SummaryStmt) StmtSpan() symbol.Span { return s.Span }

// BadStmt marks a statement that failed to parse; the parser records a
// SyntaxError diagnostic and resynchronizes at the next statement boundary.
type BadStmt struct {
	Span symbol.Span
}

func (b *BadStmt) StmtSpan() symbol.Span { return b.Span }
