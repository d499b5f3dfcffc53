// Package render turns a book record and a template into note text and a
// file name. Every function in the package is pure: no I/O, no shared state,
// and the same inputs always give the same output.
package render

import "time"

// Record is the metadata a note is rendered from. Field reports the value
// bound to a placeholder name: a scalar, a sequence ([]string or []any of
// scalars) or nil when absent.
type Record interface {
	Field(name string) (any, bool)
}

// SpecKind tags which template mechanism a TemplateSpec carries.
type SpecKind int

const (
	// KindTemplateFile renders a single template file.
	KindTemplateFile SpecKind = iota
	// KindLegacy renders the front matter and content settings.
	KindLegacy
)

// LegacyConfig is the older two-field template mechanism.
type LegacyConfig struct {
	Frontmatter           string
	Content               string
	UseDefaultFrontmatter bool
	KeyType               KeyType
}

// TemplateSpec is either a template file (Raw) or a legacy configuration.
type TemplateSpec struct {
	Kind   SpecKind
	Raw    string
	Legacy LegacyConfig
}

// FromTemplateFile returns a spec rendering the given template text.
func FromTemplateFile(raw string) TemplateSpec {
	return TemplateSpec{Kind: KindTemplateFile, Raw: raw}
}

// FromLegacy returns a spec rendering the legacy settings.
func FromLegacy(cfg LegacyConfig) TemplateSpec {
	return TemplateSpec{Kind: KindLegacy, Legacy: cfg}
}

// Render produces the final note text. For template files, date directives
// are expanded against now unless now is the zero time.
func Render(rec Record, spec TemplateSpec, now time.Time) string {
	switch spec.Kind {
	case KindLegacy:
		return renderLegacy(rec, spec.Legacy)
	default:
		text := ApplyTemplateTransformations(spec.Raw)
		if !now.IsZero() {
			text = ExpandDates(text, now)
		}
		return ReplaceVariableSyntax(rec, text)
	}
}

func renderLegacy(rec Record, cfg LegacyConfig) string {
	var frontmatter string
	if cfg.Frontmatter != "" {
		frontmatter = ReplaceVariableSyntax(rec, cfg.Frontmatter)
	}
	if cfg.UseDefaultFrontmatter {
		frontmatter = ApplyDefaultFrontMatter(rec, frontmatter, cfg.KeyType)
	}
	content := ReplaceVariableSyntax(rec, cfg.Content)
	if frontmatter == "" {
		return content
	}
	return FrontMatterDelimiter + "\n" + frontmatter + "\n" + FrontMatterDelimiter + "\n" + content
}
