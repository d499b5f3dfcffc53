package render

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// yamlReserved are plain words a YAML parser would not read back as strings.
var yamlReserved = map[string]struct{}{
	"true": {}, "false": {}, "yes": {}, "no": {}, "on": {}, "off": {},
	"y": {}, "n": {}, "null": {}, "~": {},
}

// yamlScalar encodes s as a YAML string scalar, plain when that is
// unambiguous and double-quoted otherwise.
func yamlScalar(s string) string {
	if plainSafe(s) {
		return s
	}
	return doubleQuote(s)
}

// plainSafe accepts a conservative subset of plain scalars that are valid in
// both block and flow context and resolve to strings.
func plainSafe(s string) bool {
	if s == "" || strings.HasSuffix(s, " ") {
		return false
	}
	if _, ok := yamlReserved[strings.ToLower(s)]; ok {
		return false
	}
	for i, r := range s {
		if i == 0 {
			if !unicode.IsLetter(r) {
				return false
			}
			continue
		}
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), unicode.IsMark(r):
		case strings.ContainsRune(" ._-'()/+", r):
		default:
			return false
		}
	}
	return true
}

func doubleQuote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			switch {
			case yamlPrintable(r):
				b.WriteRune(r)
			case r <= 0xff:
				fmt.Fprintf(&b, `\x%02X`, r)
			case r <= 0xffff:
				fmt.Fprintf(&b, `\u%04X`, r)
			default:
				fmt.Fprintf(&b, `\U%08X`, r)
			}
		}
	}
	b.WriteByte('"')
	return b.String()
}

// yamlPrintable reports whether r may appear unescaped inside a double-quoted
// scalar. Line separators and the byte order mark count as unprintable.
func yamlPrintable(r rune) bool {
	switch {
	case r >= 0x20 && r <= 0x7e:
		return true
	case r >= 0xa0 && r <= 0xd7ff:
		return r != 0x2028 && r != 0x2029
	case r >= 0xe000 && r <= 0xfffd:
		return r != 0xfeff
	case r >= 0x10000 && r <= 0x10ffff:
		return true
	}
	return false
}

// flowSequence encodes items as an inline YAML sequence.
func flowSequence(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = yamlScalar(s)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

// yamlValue encodes any record value for a front matter context: numbers and
// booleans bare, strings via yamlScalar, sequences as flow sequences.
func yamlValue(v any) string {
	if items, ok := listOf(v); ok {
		return flowSequence(items)
	}
	switch t := v.(type) {
	case bool:
		return strconv.FormatBool(t)
	case int, int32, int64, uint, uint64, float32, float64:
		return scalarString(t)
	}
	return yamlScalar(scalarString(v))
}
