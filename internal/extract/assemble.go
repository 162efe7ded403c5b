package extract

import (
	"github.com/mvp-joe/pymap/internal/symbol"
)

// assembleScope resolves the cross-statement relationships inside one
// scope: property accessor triplets merge into PropertyGroup symbols,
// overload runs collapse into OverloadGroup symbols, and everything else
// passes through in declaration order.
func (e *extractor) assembleScope(entries []*entry) []*symbol.Symbol {
	var out []*symbol.Symbol
	props := map[string]*symbol.Symbol{}
	var pending []*entry // overload candidates awaiting an implementation

	takePending := func(name string) []*symbol.Signature {
		var sigs []*symbol.Signature
		var rest []*entry
		for _, p := range pending {
			if p.sym.Name == name {
				sigs = append(sigs, p.sym.Signature)
			} else {
				rest = append(rest, p)
			}
		}
		pending = rest
		return sigs
	}

	for _, ent := range entries {
		s := ent.sym
		switch {
		case ent.overload:
			pending = append(pending, ent)

		case ent.role == propGetter:
			group := &symbol.Symbol{
				Kind:       symbol.KindPropertyGroup,
				Name:       s.Name,
				Visibility: s.Visibility,
				Span:       s.Span,
				Decorators: s.Decorators,
				Modifiers:  s.Modifiers,
				Docstring:  s.Docstring,
				Property:   &symbol.PropertyAccessors{Getter: s.Signature},
			}
			props[s.Name] = group
			out = append(out, group)

		case ent.role == propSetter || ent.role == propDeleter:
			group := props[ent.roleBase]
			if group == nil {
				e.warn("unmatched accessor: no property getter named "+ent.roleBase+" in scope", s.Span)
				out = append(out, s)
				continue
			}
			if ent.role == propSetter {
				group.Property.Setter = s.Signature
			} else {
				group.Property.Deleter = s.Signature
			}
			group.Span.EndLine = s.Span.EndLine
			group.Span.EndCol = s.Span.EndCol

		default:
			if s.Kind == symbol.KindFunction || s.Kind == symbol.KindMethod {
				if sigs := takePending(s.Name); len(sigs) > 0 {
					out = append(out, &symbol.Symbol{
						Kind:       symbol.KindOverloadGroup,
						Name:       s.Name,
						Visibility: s.Visibility,
						Span:       s.Span,
						Decorators: s.Decorators,
						Modifiers:  s.Modifiers,
						Signature:  s.Signature,
						Docstring:  s.Docstring,
						Overloads:  sigs,
					})
					continue
				}
			}
			out = append(out, s)
		}
	}

	// Overload candidates with no terminal implementation stay plain
	// declarations; the missing implementation is worth a warning.
	for _, p := range pending {
		e.warn("overload declarations for "+p.sym.Name+" have no implementation", p.sym.Span)
		out = append(out, p.sym)
	}
	return out
}

// applyExports resolves the exported flag across the tree. Every symbol
// defaults to its visibility-derived value; an explicit export list then
// overrides the module's top-level symbols in both directions.
func (e *extractor) applyExports(mod *symbol.Symbol) {
	mod.Walk(func(s *symbol.Symbol) {
		s.Exported = s.Visibility == symbol.VisibilityPublic
	})
	mod.Exported = true
	if e.exports == nil {
		return
	}
	named := make(map[string]bool, len(e.exports))
	for _, n := range e.exports {
		named[n] = true
	}
	for _, c := range mod.Children {
		c.Exported = named[c.Name]
	}
}
