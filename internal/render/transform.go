package render

import "strings"

// ApplyTemplateTransformations normalizes the structure of a raw template
// before any data is substituted: line endings become LF, comment directives
// are removed and directive markers lose their inner whitespace. Placeholders
// are left for ReplaceVariableSyntax. The result is a fixed point, so applying
// the function again returns it unchanged.
func ApplyTemplateTransformations(raw string) string {
	s := strings.ReplaceAll(raw, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	for {
		next := normalizeMarkers(stripComments(s))
		if next == s {
			return s
		}
		s = next
	}
}

// stripComments removes {{! ... }} and {{!-- ... --}} directives. A comment
// alone on its line takes the line with it.
func stripComments(s string) string {
	if !strings.Contains(s, "{{!") {
		return s
	}
	var b strings.Builder
	i := 0
	for {
		rel := strings.Index(s[i:], "{{!")
		if rel < 0 {
			break
		}
		start := i + rel
		closer := "}}"
		if strings.HasPrefix(s[start:], "{{!--") {
			closer = "--}}"
		}
		endRel := strings.Index(s[start+3:], closer)
		if endRel < 0 {
			break
		}
		end := start + 3 + endRel + len(closer)

		lineStart := strings.LastIndexByte(s[:start], '\n') + 1
		lineEnd := len(s)
		if nl := strings.IndexByte(s[end:], '\n'); nl >= 0 {
			lineEnd = end + nl + 1
		}
		if lineStart >= i && isBlank(s[lineStart:start]) && isBlank(strings.TrimSuffix(s[end:lineEnd], "\n")) {
			b.WriteString(s[i:lineStart])
			i = lineEnd
			continue
		}
		b.WriteString(s[i:start])
		i = end
	}
	b.WriteString(s[i:])
	return b.String()
}

func isBlank(s string) bool {
	return strings.Trim(s, " \t") == ""
}

// normalizeMarkers rewrites every recognized tag in its canonical spelling.
func normalizeMarkers(s string) string {
	if !strings.Contains(s, "{{") {
		return s
	}
	toks := tokenize(s)
	var b strings.Builder
	b.Grow(len(s))
	for _, t := range toks {
		if t.kind == tokLiteral {
			b.WriteString(t.text)
			continue
		}
		b.WriteString(t.canonical())
	}
	return b.String()
}
