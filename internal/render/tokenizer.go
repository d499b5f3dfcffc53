package render

import (
	"regexp"
	"strings"
)

type tokenKind int

const (
	tokLiteral tokenKind = iota
	tokVariable
	tokSection  // {{#name}}
	tokInverted // {{^name}}
	tokClose    // {{/name}}
)

type token struct {
	kind     tokenKind
	text     string // source text, used when the tag is passed through
	name     string
	modifier string
}

var fieldNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.-]*$`)

// tokenize splits text into literal spans and tags in one left-to-right pass.
// Anything that does not parse as a tag stays literal.
func tokenize(text string) []token {
	var toks []token
	lit := 0
	i := 0
	for i < len(text) {
		open := strings.Index(text[i:], "{{")
		if open < 0 {
			break
		}
		open += i
		end := strings.Index(text[open+2:], "}}")
		if end < 0 {
			break
		}
		end += open + 2
		// A later opener before the closer restarts the tag there.
		if next := strings.Index(text[open+2:end], "{{"); next >= 0 {
			i = open + 2 + next
			continue
		}
		tok, ok := parseTag(text[open+2 : end])
		if !ok {
			i = open + 1
			continue
		}
		if open > lit {
			toks = append(toks, token{kind: tokLiteral, text: text[lit:open]})
		}
		tok.text = text[open : end+2]
		toks = append(toks, tok)
		i = end + 2
		lit = i
	}
	if lit < len(text) {
		toks = append(toks, token{kind: tokLiteral, text: text[lit:]})
	}
	return toks
}

// parseTag parses the text between the delimiters.
func parseTag(inner string) (token, bool) {
	inner = strings.TrimSpace(inner)
	if inner == "" {
		return token{}, false
	}
	var kind tokenKind
	switch inner[0] {
	case '#':
		kind = tokSection
	case '^':
		kind = tokInverted
	case '/':
		kind = tokClose
	default:
		name, mod, hasMod := strings.Cut(inner, "|")
		name = strings.TrimSpace(name)
		mod = strings.TrimSpace(mod)
		if !fieldNameRe.MatchString(name) {
			return token{}, false
		}
		if hasMod {
			if _, ok := modifiers[mod]; !ok {
				return token{}, false
			}
		}
		return token{kind: tokVariable, name: name, modifier: mod}, true
	}
	name := strings.TrimSpace(inner[1:])
	if !fieldNameRe.MatchString(name) {
		return token{}, false
	}
	return token{kind: kind, name: name}, true
}

// canonical returns the whitespace-free spelling of a tag.
func (t token) canonical() string {
	switch t.kind {
	case tokSection:
		return "{{#" + t.name + "}}"
	case tokInverted:
		return "{{^" + t.name + "}}"
	case tokClose:
		return "{{/" + t.name + "}}"
	case tokVariable:
		if t.modifier != "" {
			return "{{" + t.name + "|" + t.modifier + "}}"
		}
		return "{{" + t.name + "}}"
	}
	return t.text
}

// pairSections matches section openers with closers. Unmatched tags are
// demoted to literals. The returned slice maps each matched opener to its
// closer and back; other entries are -1.
func pairSections(toks []token) []int {
	pair := make([]int, len(toks))
	for i := range pair {
		pair[i] = -1
	}
	var stack []int
	for k := range toks {
		switch toks[k].kind {
		case tokSection, tokInverted:
			stack = append(stack, k)
		case tokClose:
			p := len(stack) - 1
			for p >= 0 && toks[stack[p]].name != toks[k].name {
				p--
			}
			if p < 0 {
				toks[k].kind = tokLiteral
				continue
			}
			for _, open := range stack[p+1:] {
				toks[open].kind = tokLiteral
			}
			pair[stack[p]] = k
			pair[k] = stack[p]
			stack = stack[:p]
		}
	}
	for _, open := range stack {
		toks[open].kind = tokLiteral
	}
	return pair
}

// trimStandalone removes the indentation and line break around section tags
// that sit alone on their line, so sections do not leave blank lines behind.
func trimStandalone(toks []token) {
	type cut struct{ head, tail int }
	cuts := make([]cut, len(toks))
	for k := range toks {
		cuts[k] = cut{head: 0, tail: len(toks[k].text)}
	}
	for k, t := range toks {
		if t.kind != tokSection && t.kind != tokInverted && t.kind != tokClose {
			continue
		}
		tailFrom, okBefore := lineStartBefore(toks, k)
		headTo, okAfter := lineEndAfter(toks, k)
		if !okBefore || !okAfter {
			continue
		}
		if k > 0 && toks[k-1].kind == tokLiteral {
			cuts[k-1].tail = min(cuts[k-1].tail, tailFrom)
		}
		if k+1 < len(toks) && toks[k+1].kind == tokLiteral {
			cuts[k+1].head = max(cuts[k+1].head, headTo)
		}
	}
	for k := range toks {
		if toks[k].kind != tokLiteral {
			continue
		}
		c := cuts[k]
		if c.head >= c.tail {
			toks[k].text = ""
			continue
		}
		toks[k].text = toks[k].text[c.head:c.tail]
	}
}

// lineStartBefore reports whether only blanks separate tag k from the start
// of its line, and where that blank run begins in the preceding literal.
func lineStartBefore(toks []token, k int) (int, bool) {
	if k == 0 {
		return 0, true
	}
	prev := toks[k-1]
	if prev.kind != tokLiteral {
		return 0, false
	}
	from := strings.LastIndexByte(prev.text, '\n') + 1
	if from == 0 && k-1 != 0 {
		return 0, false
	}
	if strings.TrimLeft(prev.text[from:], " \t") != "" {
		return 0, false
	}
	return from, true
}

// lineEndAfter reports whether only blanks separate tag k from the end of its
// line, and how much of the following literal (including the newline) to drop.
func lineEndAfter(toks []token, k int) (int, bool) {
	if k == len(toks)-1 {
		return 0, true
	}
	next := toks[k+1]
	if next.kind != tokLiteral {
		return 0, false
	}
	rest := strings.TrimLeft(next.text, " \t")
	consumed := len(next.text) - len(rest)
	switch {
	case strings.HasPrefix(rest, "\n"):
		return consumed + 1, true
	case strings.HasPrefix(rest, "\r\n"):
		return consumed + 2, true
	case rest == "" && k+1 == len(toks)-1:
		return consumed, true
	}
	return 0, false
}
