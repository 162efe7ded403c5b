package symbol

import "fmt"

// Severity of a diagnostic.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// DiagKind tags the diagnostic taxonomy. Only LexError and BudgetExceeded
// may truncate a unit's tree; nothing ever aborts a batch.
type DiagKind string

const (
	DiagLexError          DiagKind = "LexError"
	DiagSyntaxError       DiagKind = "SyntaxError"
	DiagStructuralWarning DiagKind = "StructuralWarning"
	DiagBudgetExceeded    DiagKind = "BudgetExceeded"
)

// Diagnostic is one recorded problem. Diagnostics are data returned to the
// caller, never logged internally or swallowed.
type Diagnostic struct {
	Severity Severity `json:"severity"`
	Kind     DiagKind `json:"kind"`
	Message  string   `json:"message"`
	Span     Span     `json:"span"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s:%d:%d: %s: %s", d.Severity, d.Span.StartLine, d.Span.StartCol, d.Kind, d.Message)
}

// Result is the complete output for one parse unit: the symbol tree rooted
// at a Module symbol, the ordered diagnostics list, and whether extraction
// ran to completion or was truncated by a LexError or budget exhaustion.
type Result struct {
	FileID      string       `json:"file_id"`
	Module      *Symbol      `json:"module"`
	Diagnostics []Diagnostic `json:"diagnostics"`
	Complete    bool         `json:"complete"`
}

// Budget is a caller-supplied cooperative bound on parsing work. Each
// grammar production and extraction step spends one unit; when the budget
// runs out the unit returns its best-effort partial tree with a
// BudgetExceeded diagnostic instead of hanging on pathological input.
// A nil Budget never exhausts.
type Budget struct {
	remaining int
	exhausted bool
}

// NewBudget returns a budget of n steps. n <= 0 means unlimited.
func NewBudget(n int) *Budget {
	if n <= 0 {
		return nil
	}
	return &Budget{remaining: n}
}

// Step spends one unit of work. It reports false once the budget is gone.
func (b *Budget) Step() bool {
	if b == nil {
		return true
	}
	if b.remaining <= 0 {
		b.exhausted = true
		return false
	}
	b.remaining--
	return true
}

// Exhausted reports whether Step has ever returned false.
func (b *Budget) Exhausted() bool {
	return b != nil && b.exhausted
}
