package mcpserver

// TemplateSyntax describes the placeholder language accepted by note
// templates, file name formats and the legacy front matter settings.
const TemplateSyntax = `# booknote Template Syntax

Templates are plain text. Everything outside a placeholder is copied as is.

## Placeholders

| Form | Output |
|---|---|
| ` + "`{{title}}`" + ` | the field value, empty when the field is absent |
| ` + "`{{authors}}`" + ` | a list joined with ", " |
| ` + "`{{author}}`" + ` | alias of authors |
| ` + "`{{authors\\|lines}}`" + ` | one item per line |
| ` + "`{{authors\\|list}}`" + ` | a Markdown bullet list |
| ` + "`{{authors\\|links}}`" + ` | items as [[wikilinks]] joined with ", " |
| ` + "`{{authors\\|first}}`" + ` | the first item only |
| ` + "`{{title\\|yaml}}`" + ` | a YAML-safe scalar (quoted when needed) |

Unknown fields render as the empty string. Text that is not a well-formed
placeholder is left untouched.

## Sections

- ` + "`{{#publisher}}...{{/publisher}}`" + ` keeps the body only when the field is present.
- ` + "`{{^publisher}}...{{/publisher}}`" + ` keeps the body only when the field is absent.

A section tag alone on its line is removed together with the line break.

## Dates

- ` + "`{{date}}`" + ` gives the current date as YYYY-MM-DD, ` + "`{{time}}`" + ` gives HH:mm.
- ` + "`{{date:DD MMMM YYYY}}`" + ` uses a moment-style format.
- ` + "`{{date+7d}}`" + ` shifts the date; units are y q M w d h m s.

## Fields

title, subtitle, authors, categories, publisher, publishDate, totalPage,
description, coverUrl, link, previewLink, isbn10, isbn13, language, plus any
other scalar or list field present in the record.

## Example

` + "```" + `markdown
---
title: {{title|yaml}}
author: [{{authors}}]
isbn: {{isbn13}}
created: {{date}}
tags: [book]
---
# {{title}}
{{#description}}

{{description}}
{{/description}}
` + "```" + `
`
