// Package docstring classifies the leading string literal of a declaration
// body into a structured, format-tagged description. Format detection uses
// structural signals checked in a fixed order: a dash underline beneath a
// header word marks the structured-headers (NumPy) style, a colon-prefixed
// field marker marks the field-list (Sphinx) style, a recognized section
// keyword followed by a colon marks the block (Google) style, and anything
// else is kept as freeform text.
package docstring

import (
	"strings"
)

// Format tags the docstring style that was detected.
type Format string

const (
	FormatHeaders  Format = "structured-headers" // NumPy dash-underlined sections
	FormatFields   Format = "field-list"         // Sphinx :param x: markers
	FormatBlocks   Format = "block"              // Google Args:/Returns: sections
	FormatFreeform Format = "freeform"
)

// Entry is one parsed section item: a parameter, raised exception, etc.
type Entry struct {
	Name        string `json:"name"`
	Type        string `json:"type,omitempty"`
	Description string `json:"description,omitempty"`
}

// Doc is a structured description parsed from one docstring.
type Doc struct {
	Format   Format  `json:"format"`
	Text     string  `json:"text"`
	Summary  string  `json:"summary,omitempty"`
	Params   []Entry `json:"params,omitempty"`
	Returns  string  `json:"returns,omitempty"`
	Yields   string  `json:"yields,omitempty"`
	Raises   []Entry `json:"raises,omitempty"`
	Examples string  `json:"examples,omitempty"`
	Notes    string  `json:"notes,omitempty"`
}

var blockSections = map[string]string{
	"Args":       "args",
	"Arguments":  "args",
	"Parameters": "args",
	"Returns":    "returns",
	"Return":     "returns",
	"Yields":     "yields",
	"Yield":      "yields",
	"Raises":     "raises",
	"Exceptions": "raises",
	"Examples":   "examples",
	"Example":    "examples",
	"Notes":      "notes",
	"Note":       "notes",
}

var headerSections = map[string]string{
	"Parameters": "args",
	"Params":     "args",
	"Args":       "args",
	"Returns":    "returns",
	"Return":     "returns",
	"Yields":     "yields",
	"Yield":      "yields",
	"Raises":     "raises",
	"Exceptions": "raises",
	"Examples":   "examples",
	"Example":    "examples",
	"Notes":      "notes",
	"Note":       "notes",
}

// Parse classifies and parses a docstring. Empty input returns nil.
func Parse(text string) *Doc {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	doc := &Doc{Text: text, Summary: firstLine(text)}
	lines := strings.Split(text, "\n")

	switch {
	case hasDashUnderline(lines):
		doc.Format = FormatHeaders
		parseHeaderStyle(doc, lines)
	case hasFieldMarker(lines):
		doc.Format = FormatFields
		parseFieldStyle(doc, lines)
	case hasBlockKeyword(lines):
		doc.Format = FormatBlocks
		parseBlockStyle(doc, lines)
	default:
		doc.Format = FormatFreeform
	}
	return doc
}

func firstLine(text string) string {
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		return strings.TrimSpace(text[:i])
	}
	return text
}

// hasDashUnderline reports whether some line is a dash underline directly
// beneath a known header word.
func hasDashUnderline(lines []string) bool {
	for i := 0; i+1 < len(lines); i++ {
		header := strings.TrimSpace(lines[i])
		under := strings.TrimSpace(lines[i+1])
		if under == "" || !allDashes(under) {
			continue
		}
		if _, ok := headerSections[header]; ok {
			return true
		}
	}
	return false
}

func allDashes(s string) bool {
	for _, c := range s {
		if c != '-' {
			return false
		}
	}
	return len(s) > 0
}

func hasFieldMarker(lines []string) bool {
	for _, line := range lines {
		t := strings.TrimSpace(line)
		if strings.HasPrefix(t, ":param") || strings.HasPrefix(t, ":returns:") ||
			strings.HasPrefix(t, ":return:") || strings.HasPrefix(t, ":raises") ||
			strings.HasPrefix(t, ":yields:") || strings.HasPrefix(t, ":yield:") {
			return true
		}
	}
	return false
}

func hasBlockKeyword(lines []string) bool {
	for _, line := range lines {
		t := strings.TrimSpace(line)
		if !strings.HasSuffix(t, ":") {
			continue
		}
		if _, ok := blockSections[strings.TrimSuffix(t, ":")]; ok {
			return true
		}
	}
	return false
}

// ── NumPy style ────────────────────────────────────────────────────

func parseHeaderStyle(doc *Doc, lines []string) {
	i := 0
	for i < len(lines) {
		header := strings.TrimSpace(lines[i])
		isHeader := i+1 < len(lines) && header != "" && allDashes(strings.TrimSpace(lines[i+1]))
		if !isHeader {
			i++
			continue
		}
		section, known := headerSections[header]
		i += 2 // skip header and underline

		var content []string
		for i < len(lines) {
			next := strings.TrimSpace(lines[i])
			if i+1 < len(lines) && next != "" && allDashes(strings.TrimSpace(lines[i+1])) {
				break
			}
			content = append(content, lines[i])
			i++
		}
		if known {
			applySection(doc, section, content, parseHeaderEntries)
		}
	}
}

// parseHeaderEntries parses NumPy entry blocks of the form
// `name : type` followed by indented description lines.
func parseHeaderEntries(content []string) []Entry {
	var entries []Entry
	var cur *Entry
	for _, line := range content {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		indented := strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t")
		if !indented {
			if cur != nil && cur.Name != "" {
				entries = append(entries, *cur)
			}
			name, typ, _ := strings.Cut(trimmed, ":")
			cur = &Entry{Name: strings.TrimSpace(name), Type: strings.TrimSpace(typ)}
			continue
		}
		if cur != nil {
			if cur.Description != "" {
				cur.Description += " "
			}
			cur.Description += trimmed
		}
	}
	if cur != nil && cur.Name != "" {
		entries = append(entries, *cur)
	}
	return entries
}

// ── Sphinx style ───────────────────────────────────────────────────

func parseFieldStyle(doc *Doc, lines []string) {
	for _, line := range lines {
		t := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(t, ":param "):
			rest := strings.TrimPrefix(t, ":param ")
			if name, desc, ok := strings.Cut(rest, ":"); ok {
				entry := Entry{Description: strings.TrimSpace(desc)}
				// ":param int count: ..." carries the type before the name.
				fields := strings.Fields(strings.TrimSpace(name))
				switch len(fields) {
				case 1:
					entry.Name = fields[0]
				case 2:
					entry.Type = fields[0]
					entry.Name = fields[1]
				default:
					entry.Name = strings.TrimSpace(name)
				}
				doc.Params = append(doc.Params, entry)
			}
		case strings.HasPrefix(t, ":returns:"):
			doc.Returns = strings.TrimSpace(strings.TrimPrefix(t, ":returns:"))
		case strings.HasPrefix(t, ":return:"):
			doc.Returns = strings.TrimSpace(strings.TrimPrefix(t, ":return:"))
		case strings.HasPrefix(t, ":yields:"):
			doc.Yields = strings.TrimSpace(strings.TrimPrefix(t, ":yields:"))
		case strings.HasPrefix(t, ":yield:"):
			doc.Yields = strings.TrimSpace(strings.TrimPrefix(t, ":yield:"))
		case strings.HasPrefix(t, ":raises "):
			rest := strings.TrimPrefix(t, ":raises ")
			if exc, desc, ok := strings.Cut(rest, ":"); ok {
				doc.Raises = append(doc.Raises, Entry{
					Name:        strings.TrimSpace(exc),
					Description: strings.TrimSpace(desc),
				})
			}
		}
	}
}

// ── Google style ───────────────────────────────────────────────────

func parseBlockStyle(doc *Doc, lines []string) {
	section := ""
	var content []string
	flush := func() {
		if section != "" {
			applySection(doc, section, content, parseBlockEntries)
		}
		content = nil
	}
	for _, line := range lines {
		t := strings.TrimSpace(line)
		if strings.HasSuffix(t, ":") {
			if name, ok := blockSections[strings.TrimSuffix(t, ":")]; ok {
				flush()
				section = name
				continue
			}
		}
		if section != "" {
			content = append(content, line)
		}
	}
	flush()
}

// parseBlockEntries parses Google entries: `name (type): description` or
// `name: description`, with indented continuation lines.
func parseBlockEntries(content []string) []Entry {
	var entries []Entry
	var cur *Entry
	for _, line := range content {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		name, desc, ok := strings.Cut(trimmed, ":")
		if ok && !strings.Contains(name, " ") || ok && strings.Contains(name, "(") {
			if cur != nil {
				entries = append(entries, *cur)
			}
			cur = &Entry{Description: strings.TrimSpace(desc)}
			name = strings.TrimSpace(name)
			if open := strings.IndexByte(name, '('); open >= 0 {
				if close := strings.IndexByte(name, ')'); close > open {
					cur.Type = strings.TrimSpace(name[open+1 : close])
				}
				name = strings.TrimSpace(name[:open])
			}
			cur.Name = name
			continue
		}
		if cur != nil {
			if cur.Description != "" {
				cur.Description += " "
			}
			cur.Description += trimmed
		}
	}
	if cur != nil {
		entries = append(entries, *cur)
	}
	return entries
}

func applySection(doc *Doc, section string, content []string, parseEntries func([]string) []Entry) {
	text := strings.TrimSpace(strings.Join(content, "\n"))
	if text == "" {
		return
	}
	switch section {
	case "args":
		doc.Params = append(doc.Params, parseEntries(content)...)
	case "returns":
		doc.Returns = text
	case "yields":
		doc.Yields = text
	case "raises":
		doc.Raises = append(doc.Raises, parseEntries(content)...)
	case "examples":
		doc.Examples = text
	case "notes":
		doc.Notes = text
	}
}
