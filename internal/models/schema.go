package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// bookSchema enforces the record invariant: every property is a scalar or an
// array of scalars, never an object or a nested array.
const bookSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "definitions": {
    "scalar": {"type": ["string", "number", "boolean", "null"]}
  },
  "properties": {
    "title":      {"type": "string"},
    "authors":    {"type": "array", "items": {"type": "string"}},
    "categories": {"type": "array", "items": {"type": "string"}},
    "totalPage":  {"type": "integer", "minimum": 0},
    "pageCount":  {"type": "integer", "minimum": 0}
  },
  "additionalProperties": {
    "anyOf": [
      {"$ref": "#/definitions/scalar"},
      {"type": "array", "items": {"$ref": "#/definitions/scalar"}}
    ]
  }
}`

var compiledBookSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewStringLoader(bookSchema))
})

// ValidationError lists every schema violation found in a record.
type ValidationError struct {
	Details []string
}

func (e *ValidationError) Error() string {
	return "invalid book record: " + strings.Join(e.Details, "; ")
}

// ValidateJSON checks a raw JSON record against the book schema.
func ValidateJSON(data []byte) error {
	schema, err := compiledBookSchema()
	if err != nil {
		return fmt.Errorf("compile book schema: %w", err)
	}
	result, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("invalid book record: %w", err)
	}
	if result.Valid() {
		return nil
	}
	details := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		details = append(details, desc.String())
	}
	return &ValidationError{Details: details}
}

// DecodeBook validates and decodes one JSON record.
func DecodeBook(data []byte) (Book, error) {
	if err := ValidateJSON(data); err != nil {
		return Book{}, err
	}
	var b Book
	if err := json.Unmarshal(data, &b); err != nil {
		return Book{}, fmt.Errorf("invalid book record: %w", err)
	}
	return b, nil
}

// DecodeBooks validates and decodes a JSON array of records.
func DecodeBooks(data []byte) ([]Book, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("invalid candidate list: %w", err)
	}
	out := make([]Book, 0, len(raws))
	for i, raw := range raws {
		b, err := DecodeBook(raw)
		if err != nil {
			return nil, fmt.Errorf("candidate %d: %w", i, err)
		}
		out = append(out, b)
	}
	return out, nil
}
