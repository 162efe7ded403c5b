// Package extract runs the full pipeline for one parse unit: lexing,
// grammar parsing, declaration classification, docstring and annotation
// parsing, and symbol assembly. A unit is one source text plus a file
// identifier; units share no state, so callers may run any number of them
// concurrently.
package extract

import (
	"context"
	"path"
	"strings"

	"github.com/mvp-joe/pymap/internal/docstring"
	"github.com/mvp-joe/pymap/internal/lexer"
	"github.com/mvp-joe/pymap/internal/parser"
	"github.com/mvp-joe/pymap/internal/symbol"
)

// Options bound the work performed on a single unit.
type Options struct {
	// Budget is the maximum number of cooperative steps spent on the unit.
	// Zero or negative means unlimited.
	Budget int
}

// Extract parses source text into a symbol tree plus diagnostics. It never
// returns an error: every failure mode is surfaced as a diagnostic on the
// result, and the tree holds whatever was recovered. The context is checked
// at statement boundaries; cancellation truncates the unit the same way
// budget exhaustion does.
func Extract(ctx context.Context, source, fileID string, opts Options) *symbol.Result {
	budget := symbol.NewBudget(opts.Budget)

	toks, lexErr := lexer.Tokenize(source)
	parsed := parser.Parse(source, toks, budget)

	e := &extractor{
		ctx:    ctx,
		budget: budget,
		diags:  parsed.Diagnostics,
	}
	if lexErr != nil {
		// Recorded first so the diagnostic order matches discovery order.
		e.diags = append([]symbol.Diagnostic{{
			Severity: symbol.SeverityError,
			Kind:     symbol.DiagLexError,
			Message:  lexErr.Message,
			Span: symbol.Span{
				StartLine: lexErr.Line, StartCol: lexErr.Col,
				EndLine: lexErr.Line, EndCol: lexErr.Col,
			},
		}}, e.diags...)
	}

	mod := &symbol.Symbol{
		Kind:       symbol.KindModule,
		Name:       moduleName(fileID),
		Visibility: symbol.VisibilityPublic,
	}
	if parsed.Module.Doc != nil {
		mod.Docstring = docstring.Parse(parsed.Module.Doc.Value)
	}

	entries := e.extractBody(parsed.Module.Body, scopeModule, "")
	mod.Children = e.assembleScope(entries)
	e.applyExports(mod)
	assignPaths(mod, mod.Name)

	truncated := parsed.Truncated || e.truncated
	if truncated {
		e.diags = append(e.diags, symbol.Diagnostic{
			Severity: symbol.SeverityWarning,
			Kind:     symbol.DiagBudgetExceeded,
			Message:  e.truncReason(),
		})
	}

	return &symbol.Result{
		FileID:      fileID,
		Module:      mod,
		Diagnostics: e.diags,
		Complete:    !truncated && lexErr == nil,
	}
}

type scopeKind int

const (
	scopeModule scopeKind = iota
	scopeClass
)

type extractor struct {
	ctx      context.Context
	budget   *symbol.Budget
	diags    []symbol.Diagnostic
	exports  []string // nil means no __all__ present
	canceled bool

	truncated bool
}

func (e *extractor) warn(msg string, span symbol.Span) {
	e.diags = append(e.diags, symbol.Diagnostic{
		Severity: symbol.SeverityWarning,
		Kind:     symbol.DiagStructuralWarning,
		Message:  msg,
		Span:     span,
	})
}

func (e *extractor) truncReason() string {
	if e.canceled {
		return "extraction canceled before the unit completed"
	}
	return "step budget exhausted before the unit completed"
}

// step spends one budget unit and checks the context. Returns false when
// the unit should stop producing symbols.
func (e *extractor) step() bool {
	if e.ctx != nil && e.ctx.Err() != nil {
		e.canceled = true
		e.truncated = true
		return false
	}
	if !e.budget.Step() {
		e.truncated = true
		return false
	}
	return true
}

// moduleName derives the module's root name from the file identifier:
// the basename without its extension, with package init files naming the
// package directory instead.
func moduleName(fileID string) string {
	base := path.Base(strings.ReplaceAll(fileID, "\\", "/"))
	if i := strings.LastIndexByte(base, '.'); i > 0 {
		base = base[:i]
	}
	if base == "__init__" {
		dir := path.Base(path.Dir(strings.ReplaceAll(fileID, "\\", "/")))
		if dir != "." && dir != "/" && dir != "" {
			return dir
		}
	}
	if base == "" || base == "." {
		return "module"
	}
	return base
}

// assignPaths fills in qualified paths top-down after assembly, so merged
// groups get their final names.
func assignPaths(s *symbol.Symbol, prefix string) {
	s.Path = prefix
	for _, c := range s.Children {
		assignPaths(c, prefix+"."+c.Name)
	}
}
