package render

import "strings"

// KeyType selects how sequence values are written in generated front matter.
type KeyType string

const (
	// KeyTypeInline writes `key: [a, b]`.
	KeyTypeInline KeyType = "inline"
	// KeyTypeBlock writes `key:` followed by `  - a` lines.
	KeyTypeBlock KeyType = "block"
)

// FrontMatterDelimiter opens and closes a front matter block.
const FrontMatterDelimiter = "---"

// DefaultTags is the value of the fixed tags key.
var DefaultTags = []string{"book"}

type valueKind int

const (
	kindString valueKind = iota
	kindList
	kindInt
)

// defaultKeys is the fixed, ordered key set of generated front matter.
var defaultKeys = []struct {
	key  string
	kind valueKind
}{
	{"title", kindString},
	{"subtitle", kindString},
	{"authors", kindList},
	{"categories", kindList},
	{"publisher", kindString},
	{"publishDate", kindString},
	{"totalPage", kindInt},
	{"description", kindString},
	{"isbn10", kindString},
	{"isbn13", kindString},
	{"coverUrl", kindString},
}

// ApplyDefaultFrontMatter builds the default key/value block for rec and
// appends existing (user-authored, already substituted) lines after it.
//
// Keys in existing are not deduplicated against the default block. Most
// front matter consumers keep the last occurrence; strict YAML parsers reject
// the duplicate instead. The delimiters are not included.
func ApplyDefaultFrontMatter(rec Record, existing string, keyType KeyType) string {
	var b strings.Builder
	for _, k := range defaultKeys {
		v := lookup(rec, k.key)
		switch k.kind {
		case kindList:
			items, _ := listOf(v)
			if items == nil && v != nil {
				items = itemsOf(v)
			}
			writeSequence(&b, k.key, items, keyType)
		case kindInt:
			b.WriteString(k.key + ": ")
			if v == nil {
				b.WriteString(`""`)
			} else {
				b.WriteString(yamlValue(v))
			}
			b.WriteByte('\n')
		default:
			b.WriteString(k.key + ": " + yamlScalar(scalarString(v)) + "\n")
		}
	}
	writeSequence(&b, "tags", DefaultTags, keyType)

	out := strings.TrimSuffix(b.String(), "\n")
	if extra := strings.Trim(existing, "\r\n"); extra != "" {
		out += "\n" + extra
	}
	return out
}

func writeSequence(b *strings.Builder, key string, items []string, keyType KeyType) {
	if len(items) == 0 {
		b.WriteString(key + ": []\n")
		return
	}
	if keyType != KeyTypeBlock {
		b.WriteString(key + ": " + flowSequence(items) + "\n")
		return
	}
	b.WriteString(key + ":\n")
	for _, s := range items {
		b.WriteString("  - " + yamlScalar(s) + "\n")
	}
}
