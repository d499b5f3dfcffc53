package render

import (
	"fmt"
	"strconv"
	"strings"
)

// ListSeparator joins sequence values when no modifier is given.
const ListSeparator = ", "

// modifiers maps the suffix after "|" in a placeholder to its formatter.
var modifiers = map[string]func(v any) string{
	"lines": func(v any) string {
		if items, ok := listOf(v); ok {
			return strings.Join(items, "\n")
		}
		return scalarString(v)
	},
	"list": func(v any) string {
		items := itemsOf(v)
		for i, s := range items {
			items[i] = "- " + s
		}
		return strings.Join(items, "\n")
	},
	"links": func(v any) string {
		items := itemsOf(v)
		for i, s := range items {
			items[i] = "[[" + s + "]]"
		}
		return strings.Join(items, ListSeparator)
	},
	"first": func(v any) string {
		if items, ok := listOf(v); ok {
			if len(items) == 0 {
				return ""
			}
			return items[0]
		}
		return scalarString(v)
	},
	"yaml": yamlValue,
}

// ReplaceVariableSyntax substitutes every {{field}} placeholder in text with
// the record's value and evaluates {{#field}}/{{^field}} sections. Unknown or
// absent fields render as the empty string; malformed tags are left as-is.
func ReplaceVariableSyntax(rec Record, text string) string {
	if !strings.Contains(text, "{{") {
		return text
	}
	toks := tokenize(text)
	pair := pairSections(toks)
	trimStandalone(toks)

	var b strings.Builder
	b.Grow(len(text))
	renderTokens(&b, rec, toks, pair, 0, len(toks))
	return b.String()
}

func renderTokens(b *strings.Builder, rec Record, toks []token, pair []int, from, to int) {
	for k := from; k < to; k++ {
		t := toks[k]
		switch t.kind {
		case tokLiteral:
			b.WriteString(t.text)
		case tokVariable:
			b.WriteString(formatValue(lookup(rec, t.name), t.modifier))
		case tokSection, tokInverted:
			end := pair[k]
			if truthy(lookup(rec, t.name)) == (t.kind == tokSection) {
				renderTokens(b, rec, toks, pair, k+1, end)
			}
			k = end
		}
	}
}

func lookup(rec Record, name string) any {
	if rec == nil {
		return nil
	}
	v, ok := rec.Field(name)
	if !ok {
		return nil
	}
	return v
}

func formatValue(v any, modifier string) string {
	if modifier != "" {
		return modifiers[modifier](v)
	}
	if items, ok := listOf(v); ok {
		return strings.Join(items, ListSeparator)
	}
	return scalarString(v)
}

// truthy decides whether a section body is rendered.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	}
	if items, ok := listOf(v); ok {
		return len(items) > 0
	}
	return true
}

// scalarString renders a scalar: integers in base 10, floats in their
// shortest decimal form, booleans as true/false.
func scalarString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case uint:
		return strconv.FormatUint(uint64(t), 10)
	case uint64:
		return strconv.FormatUint(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case fmt.Stringer:
		return t.String()
	}
	return fmt.Sprint(v)
}

// listOf reports whether v is a sequence and returns its elements as strings.
// Nil elements are dropped.
func listOf(v any) ([]string, bool) {
	switch t := v.(type) {
	case []string:
		return t, true
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if item == nil {
				continue
			}
			out = append(out, scalarString(item))
		}
		return out, true
	}
	return nil, false
}

// itemsOf returns a fresh slice of elements, treating a non-empty scalar as a
// one-element sequence.
func itemsOf(v any) []string {
	if items, ok := listOf(v); ok {
		return append([]string(nil), items...)
	}
	if s := scalarString(v); s != "" {
		return []string{s}
	}
	return nil
}
