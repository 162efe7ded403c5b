// Package symbol defines the language-agnostic declaration tree produced by
// the extractor, plus the diagnostics that travel with it. Symbols are
// created once per parse unit, never mutated after assembly completes, and
// share no state across units.
package symbol

import (
	"strings"

	"github.com/mvp-joe/pymap/internal/docstring"
	"github.com/mvp-joe/pymap/internal/typeexpr"
)

// Kind classifies a symbol node.
type Kind string

const (
	KindModule          Kind = "module"
	KindClass           Kind = "class"
	KindFunction        Kind = "function"
	KindMethod          Kind = "method"
	KindField           Kind = "field"
	KindEnumMember      Kind = "enum_member"
	KindPropertyGroup   Kind = "property_group"
	KindOverloadGroup   Kind = "overload_group"
	KindTypeAlias       Kind = "type_alias"
	KindConstantBinding Kind = "constant"
)

// Visibility is derived from the declared name's underscore convention.
type Visibility string

const (
	VisibilityPublic    Visibility = "public"
	VisibilityProtected Visibility = "protected"
	VisibilityPrivate   Visibility = "private"
	VisibilityDunder    Visibility = "dunder"
)

// VisibilityOf applies the naming convention uniformly to module-, class-,
// and instance-level names:
//   - __name__ (leading and trailing double underscore) -> dunder
//   - __name (leading double underscore only) -> private
//   - _name (single leading underscore) -> protected
//   - anything else -> public
func VisibilityOf(name string) Visibility {
	switch {
	case strings.HasPrefix(name, "__") && strings.HasSuffix(name, "__") && len(name) > 4:
		return VisibilityDunder
	case strings.HasPrefix(name, "__"):
		return VisibilityPrivate
	case strings.HasPrefix(name, "_"):
		return VisibilityProtected
	default:
		return VisibilityPublic
	}
}

// Modifier flags structural properties of a declaration.
type Modifier string

const (
	ModStatic         Modifier = "static"
	ModClassBound     Modifier = "class_bound"
	ModAbstract       Modifier = "abstract"
	ModAsync          Modifier = "async"
	ModGenerator      Modifier = "generator"
	ModAsyncGenerator Modifier = "async_generator"
	ModFrozen         Modifier = "frozen"
	ModSlotted        Modifier = "slotted"
	ModContextManager Modifier = "context_manager"
)

// ModifierSet is an ordered, duplicate-free set of modifiers. Insertion
// order is kept so serialized output is deterministic.
type ModifierSet []Modifier

// Add inserts a modifier if not already present.
func (m *ModifierSet) Add(mod Modifier) {
	if m.Has(mod) {
		return
	}
	*m = append(*m, mod)
}

// Has reports membership.
func (m ModifierSet) Has(mod Modifier) bool {
	for _, have := range m {
		if have == mod {
			return true
		}
	}
	return false
}

// ClassKind refines Kind == KindClass using the structural signals of the
// base list, decorators, and members.
type ClassKind string

const (
	ClassPlain      ClassKind = "plain"
	ClassEnum       ClassKind = "enum"
	ClassProtocol   ClassKind = "protocol"
	ClassNamedTuple ClassKind = "named_tuple"
	ClassTypedDict  ClassKind = "typed_dict"
	ClassDataClass  ClassKind = "data_class"
	ClassAbstract   ClassKind = "abstract"
	ClassGeneric    ClassKind = "generic"
)

// Span locates a symbol or diagnostic in source. Lines are 1-based,
// columns are 0-based byte offsets within the line.
type Span struct {
	StartLine int `json:"start_line"`
	StartCol  int `json:"start_col"`
	EndLine   int `json:"end_line"`
	EndCol    int `json:"end_col"`
}

// Decorator is one decorator reference, recorded exactly as written.
type Decorator struct {
	Name string `json:"name"`           // dotted path without the leading @
	Args string `json:"args,omitempty"` // verbatim argument text, parens stripped
	Span Span   `json:"span"`
}

// ParamKind follows the positional/keyword parameter taxonomy.
type ParamKind string

const (
	ParamPositional   ParamKind = "positional"
	ParamPosOrKeyword ParamKind = "positional_or_keyword"
	ParamKeywordOnly  ParamKind = "keyword_only"
	ParamVarPos       ParamKind = "var_positional"
	ParamVarKeyword   ParamKind = "var_keyword"
)

// Param is one declared parameter.
type Param struct {
	Name       string         `json:"name"`
	Kind       ParamKind      `json:"kind"`
	Type       *typeexpr.Expr `json:"type,omitempty"`
	HasDefault bool           `json:"has_default"`
	Default    string         `json:"default,omitempty"` // literal text capture
}

// Signature is an ordered parameter list plus return type.
type Signature struct {
	Params  []Param        `json:"params"`
	Returns *typeexpr.Expr `json:"returns,omitempty"`
}

// PropertyAccessors holds the merged getter/setter/deleter signatures of a
// PropertyGroup. A group always has a getter; setter and deleter are
// optional.
type PropertyAccessors struct {
	Getter  *Signature `json:"getter"`
	Setter  *Signature `json:"setter,omitempty"`
	Deleter *Signature `json:"deleter,omitempty"`
}

// Symbol is one classified declaration node in the output tree. Children
// are exclusively owned; the tree never contains ownership back-edges.
type Symbol struct {
	Kind       Kind           `json:"kind"`
	Name       string         `json:"name"`
	Path       string         `json:"path"` // dot-separated qualified path from module root
	Visibility Visibility     `json:"visibility"`
	Exported   bool           `json:"exported"`
	Span       Span           `json:"span"`
	Decorators []Decorator    `json:"decorators,omitempty"` // outer-to-inner as written
	Modifiers  ModifierSet    `json:"modifiers,omitempty"`
	Signature  *Signature     `json:"signature,omitempty"`
	Bases      []string       `json:"bases,omitempty"` // ordered base references as written
	Docstring  *docstring.Doc `json:"docstring,omitempty"`
	Children   []*Symbol      `json:"children,omitempty"`

	// Class refinement.
	ClassKind   ClassKind `json:"class_kind,omitempty"`
	TypeParams  []string  `json:"type_params,omitempty"` // from Generic[...] subscripts
	IsException bool      `json:"is_exception,omitempty"`

	// ConstantBinding / Field / EnumMember / TypeAlias payload.
	Type  *typeexpr.Expr `json:"type,omitempty"`  // declared type, or alias target
	Value string         `json:"value,omitempty"` // literal value capture, verbatim

	// OverloadGroup payload: the declared overload signatures in order.
	// Signature holds the implementation's canonical signature.
	Overloads []*Signature `json:"overloads,omitempty"`

	// PropertyGroup payload.
	Property *PropertyAccessors `json:"property,omitempty"`
}

// Find returns the direct child with the given name, or nil.
func (s *Symbol) Find(name string) *Symbol {
	for _, c := range s.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Walk visits s and all descendants in declaration order.
func (s *Symbol) Walk(visit func(*Symbol)) {
	visit(s)
	for _, c := range s.Children {
		c.Walk(visit)
	}
}
