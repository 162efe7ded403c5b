package extract

import (
	"strings"

	"github.com/mvp-joe/pymap/internal/docstring"
	"github.com/mvp-joe/pymap/internal/parser"
	"github.com/mvp-joe/pymap/internal/symbol"
	"github.com/mvp-joe/pymap/internal/typeexpr"
)

// propRole tags a method's part in a property accessor group.
type propRole int

const (
	propNone propRole = iota
	propGetter
	propSetter
	propDeleter
)

// entry is one provisional declaration handed to the assembler, carrying
// the cross-statement signals (property role, overload marking) that only
// the assembler can resolve.
type entry struct {
	sym      *symbol.Symbol
	overload bool
	role     propRole
	roleBase string // accessor base name for setters/deleters
}

func (e *extractor) extractBody(body []parser.Stmt, scope scopeKind, classKind symbol.ClassKind) []*entry {
	var entries []*entry
	for _, st := range body {
		if !e.step() {
			return entries
		}
		switch st := st.(type) {
		case *parser.ClassDef:
			entries = append(entries, e.extractClass(st))
		case *parser.FuncDef:
			entries = append(entries, e.extractFunc(st, scope))
		case *parser.Assign:
			if ent := e.extractAssign(st, scope, classKind); ent != nil {
				entries = append(entries, ent)
			}
		}
		// SummaryStmt, ExprStmt, BadStmt carry no declarations.
	}
	return entries
}

// ── decorator recognition ──────────────────────────────────────────

// matchesDecorator reports whether a decorator's dotted name refers to the
// given well-known marker: the last path component must match, so both
// `@dataclass` and `@dataclasses.dataclass` are recognized.
func matchesDecorator(name, marker string) bool {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	return name == marker
}

func findDecorator(decs []parser.Decorator, markers ...string) *parser.Decorator {
	for i := range decs {
		for _, m := range markers {
			if matchesDecorator(decs[i].Name, m) {
				return &decs[i]
			}
		}
	}
	return nil
}

func convertDecorators(decs []parser.Decorator) []symbol.Decorator {
	if len(decs) == 0 {
		return nil
	}
	out := make([]symbol.Decorator, len(decs))
	for i, d := range decs {
		out[i] = symbol.Decorator{Name: d.Name, Args: d.Args, Span: d.Span}
	}
	return out
}

// ── classes ────────────────────────────────────────────────────────

var enumBases = map[string]bool{
	"Enum": true, "IntEnum": true, "StrEnum": true,
	"Flag": true, "IntFlag": true, "ReprEnum": true,
}

// baseHead returns the last dotted component of a base reference with any
// subscript stripped: `typing.Protocol[T]` becomes `Protocol`.
func baseHead(base string) string {
	if i := strings.IndexByte(base, '['); i >= 0 {
		base = base[:i]
	}
	if i := strings.LastIndexByte(base, '.'); i >= 0 {
		base = base[i+1:]
	}
	return strings.TrimSpace(base)
}

// subscriptArgs splits the inside of a base's subscript on top-level
// commas: `Generic[K, V]` yields ["K", "V"].
func subscriptArgs(base string) []string {
	open := strings.IndexByte(base, '[')
	closeIdx := strings.LastIndexByte(base, ']')
	if open < 0 || closeIdx <= open {
		return nil
	}
	inner := base[open+1 : closeIdx]
	var args []string
	depth := 0
	start := 0
	for i := 0; i < len(inner); i++ {
		switch inner[i] {
		case '[', '(', '{':
			depth++
		case ']', ')', '}':
			depth--
		case ',':
			if depth == 0 {
				if a := strings.TrimSpace(inner[start:i]); a != "" {
					args = append(args, a)
				}
				start = i + 1
			}
		}
	}
	if a := strings.TrimSpace(inner[start:]); a != "" {
		args = append(args, a)
	}
	return args
}

func (e *extractor) extractClass(cls *parser.ClassDef) *entry {
	sym := &symbol.Symbol{
		Kind:       symbol.KindClass,
		Name:       cls.Name,
		Visibility: symbol.VisibilityOf(cls.Name),
		Span:       cls.Span,
		Decorators: convertDecorators(cls.Decorators),
		Bases:      cls.Bases,
	}
	if cls.Doc != nil {
		sym.Docstring = docstring.Parse(cls.Doc.Value)
	}

	sym.ClassKind, sym.TypeParams = e.classifyClass(cls, sym)
	sym.IsException = isExceptionClass(cls.Bases)

	// __slots__ declared anywhere in the class body marks the class
	// slotted; the binding itself does not become a child symbol.
	for _, st := range cls.Body {
		if a, ok := st.(*parser.Assign); ok && a.Target == "__slots__" {
			sym.Modifiers.Add(symbol.ModSlotted)
			break
		}
	}

	children := e.extractBody(cls.Body, scopeClass, sym.ClassKind)
	sym.Children = e.assembleScope(children)
	if sym.ClassKind != symbol.ClassAbstract && hasAbstractMember(sym.Children) {
		// abstract methods outrank the generic/plain classification but
		// not the structural base kinds checked before them
		if sym.ClassKind == symbol.ClassGeneric || sym.ClassKind == symbol.ClassPlain {
			sym.ClassKind = symbol.ClassAbstract
		}
	}
	return &entry{sym: sym}
}

// classifyClass applies the structural precedence order: enum bases, then
// Protocol, NamedTuple, TypedDict, a data-class decorator, an abstract
// signal, a generic subscript, and finally plain.
func (e *extractor) classifyClass(cls *parser.ClassDef, sym *symbol.Symbol) (symbol.ClassKind, []string) {
	var typeParams []string
	generic := false
	for _, base := range cls.Bases {
		head := baseHead(base)
		switch {
		case enumBases[head]:
			return symbol.ClassEnum, nil
		case head == "Protocol":
			return symbol.ClassProtocol, subscriptArgs(base)
		case head == "NamedTuple":
			return symbol.ClassNamedTuple, nil
		case head == "TypedDict":
			return symbol.ClassTypedDict, nil
		case head == "Generic":
			generic = true
			typeParams = subscriptArgs(base)
		}
	}

	if d := findDecorator(cls.Decorators, "dataclass"); d != nil {
		if strings.Contains(d.Args, "frozen=True") {
			sym.Modifiers.Add(symbol.ModFrozen)
		}
		return symbol.ClassDataClass, typeParams
	}

	for _, kw := range cls.Keywords {
		if kw.Name == "metaclass" {
			return symbol.ClassAbstract, typeParams
		}
	}
	for _, base := range cls.Bases {
		if baseHead(base) == "ABC" {
			return symbol.ClassAbstract, typeParams
		}
	}

	if generic {
		return symbol.ClassGeneric, typeParams
	}
	return symbol.ClassPlain, nil
}

var exceptionRoots = map[string]bool{
	"BaseException": true, "Exception": true, "Warning": true,
	"KeyboardInterrupt": true, "SystemExit": true, "GeneratorExit": true,
}

func isExceptionClass(bases []string) bool {
	for _, base := range bases {
		head := baseHead(base)
		if exceptionRoots[head] ||
			strings.HasSuffix(head, "Error") ||
			strings.HasSuffix(head, "Exception") ||
			strings.HasSuffix(head, "Warning") {
			return true
		}
	}
	return false
}

func hasAbstractMember(children []*symbol.Symbol) bool {
	for _, c := range children {
		if c.Modifiers.Has(symbol.ModAbstract) {
			return true
		}
	}
	return false
}

// ── functions and methods ──────────────────────────────────────────

func (e *extractor) extractFunc(fn *parser.FuncDef, scope scopeKind) *entry {
	kind := symbol.KindFunction
	if scope == scopeClass {
		kind = symbol.KindMethod
	}
	sym := &symbol.Symbol{
		Kind:       kind,
		Name:       fn.Name,
		Visibility: symbol.VisibilityOf(fn.Name),
		Span:       fn.Span,
		Decorators: convertDecorators(fn.Decorators),
		Signature:  buildSignature(fn),
	}
	if fn.Doc != nil {
		sym.Docstring = docstring.Parse(fn.Doc.Value)
		e.checkDocParams(sym)
	}

	switch {
	case fn.Async && fn.HasYield:
		sym.Modifiers.Add(symbol.ModAsync)
		sym.Modifiers.Add(symbol.ModAsyncGenerator)
	case fn.Async:
		sym.Modifiers.Add(symbol.ModAsync)
	case fn.HasYield:
		sym.Modifiers.Add(symbol.ModGenerator)
	}

	if findDecorator(fn.Decorators, "staticmethod") != nil {
		sym.Modifiers.Add(symbol.ModStatic)
	}
	if findDecorator(fn.Decorators, "classmethod") != nil {
		sym.Modifiers.Add(symbol.ModClassBound)
	}
	if findDecorator(fn.Decorators, "abstractmethod", "abstractproperty") != nil {
		sym.Modifiers.Add(symbol.ModAbstract)
	}
	if findDecorator(fn.Decorators, "contextmanager", "asynccontextmanager") != nil {
		sym.Modifiers.Add(symbol.ModContextManager)
	}

	ent := &entry{sym: sym}
	if findDecorator(fn.Decorators, "overload") != nil {
		ent.overload = true
	}
	ent.role, ent.roleBase = propertyRole(fn)
	return ent
}

// propertyRole recognizes the three accessor forms: a property (or
// cached_property) decorator makes a getter, and a dotted
// `name.setter` / `name.deleter` decorator makes the matching accessor.
func propertyRole(fn *parser.FuncDef) (propRole, string) {
	for _, d := range fn.Decorators {
		if matchesDecorator(d.Name, "property") || matchesDecorator(d.Name, "cached_property") {
			return propGetter, fn.Name
		}
		if base, ok := strings.CutSuffix(d.Name, ".setter"); ok && !strings.Contains(base, ".") {
			return propSetter, base
		}
		if base, ok := strings.CutSuffix(d.Name, ".deleter"); ok && !strings.Contains(base, ".") {
			return propDeleter, base
		}
	}
	return propNone, ""
}

func buildSignature(fn *parser.FuncDef) *symbol.Signature {
	sig := &symbol.Signature{}
	for _, p := range fn.Params {
		param := symbol.Param{
			Name:       p.Name,
			Kind:       p.Kind,
			HasDefault: p.HasDefault,
			Default:    p.Default,
		}
		if p.Annotation != "" {
			param.Type = typeexpr.Parse(p.Annotation)
		}
		sig.Params = append(sig.Params, param)
	}
	if fn.Returns != "" {
		sig.Returns = typeexpr.Parse(fn.Returns)
	}
	return sig
}

// checkDocParams warns on documented parameters that do not exist in the
// declared signature. Leading stars on documented names (*args, **kwargs
// style) are ignored for matching.
func (e *extractor) checkDocParams(sym *symbol.Symbol) {
	if sym.Docstring == nil || sym.Signature == nil {
		return
	}
	declared := map[string]bool{}
	for _, p := range sym.Signature.Params {
		declared[p.Name] = true
	}
	for _, ent := range sym.Docstring.Params {
		name := strings.TrimLeft(ent.Name, "*")
		if name != "" && !declared[name] {
			e.warn("docstring documents unknown parameter "+name+" on "+sym.Name, sym.Span)
		}
	}
}

// ── assignments ────────────────────────────────────────────────────

func (e *extractor) extractAssign(a *parser.Assign, scope scopeKind, classKind symbol.ClassKind) *entry {
	if scope == scopeModule && a.Target == "__all__" {
		e.exports = parseExportList(a.Value)
		return nil
	}
	if a.Target == "__slots__" {
		return nil // folded into the class modifier set
	}

	sym := &symbol.Symbol{
		Name:       a.Target,
		Visibility: symbol.VisibilityOf(a.Target),
		Span:       a.Span,
		Value:      a.Value,
	}

	switch {
	case isAliasAnnotation(a.Annotation):
		sym.Kind = symbol.KindTypeAlias
		if a.Value != "" {
			sym.Type = typeexpr.Parse(a.Value)
		}
	case scope == scopeClass && classKind == symbol.ClassEnum && a.Annotation == "":
		sym.Kind = symbol.KindEnumMember
	case scope == scopeClass:
		sym.Kind = symbol.KindField
		if a.Annotation != "" {
			sym.Type = typeexpr.Parse(a.Annotation)
		}
	default:
		sym.Kind = symbol.KindConstantBinding
		if a.Annotation != "" {
			sym.Type = typeexpr.Parse(a.Annotation)
		}
	}
	return &entry{sym: sym}
}

func isAliasAnnotation(annotation string) bool {
	switch annotation {
	case "TypeAlias", "typing.TypeAlias", "t.TypeAlias":
		return true
	}
	return false
}

// parseExportList pulls the quoted names out of an export list literal.
// Anything that is not a plain quoted string is ignored.
func parseExportList(value string) []string {
	names := []string{}
	for i := 0; i < len(value); i++ {
		q := value[i]
		if q != '\'' && q != '"' {
			continue
		}
		end := strings.IndexByte(value[i+1:], q)
		if end < 0 {
			break
		}
		names = append(names, value[i+1:i+1+end])
		i += end + 1
	}
	return names
}
