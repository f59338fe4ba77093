// Package document validates and (de)serializes resume documents.
//
// Every payload that is about to become a domain.Resume passes through
// Deserialize: the JSON is checked against the embedded schema first, then
// against the struct rules on the domain types. Nothing is partially accepted.
package document

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"github.com/resumeforge/tailor-client/internal/core/domain"
)

//go:embed resume.schema.json
var schemaJSON []byte

var (
	schemaOnce sync.Once
	schema     *gojsonschema.Schema
	schemaErr  error
)

func loadSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaJSON))
	})
	return schema, schemaErr
}

// ValidationFailure lists every problem found in a candidate document.
type ValidationFailure struct {
	Problems []string
}

func (v *ValidationFailure) Error() string {
	return "resume validation failed: " + strings.Join(v.Problems, "; ")
}

// Is lets callers match a failure with errors.Is(err, domain.ErrValidation).
func (v *ValidationFailure) Is(target error) bool {
	return target == domain.ErrValidation
}

func failure(problems ...string) *ValidationFailure {
	return &ValidationFailure{Problems: problems}
}

// Deserialize parses text into a resume, rejecting malformed syntax, wrong
// field types, unknown fields and rule violations.
func Deserialize(text string) (*domain.Resume, error) {
	return Decode([]byte(text))
}

// Decode is Deserialize for raw bytes.
func Decode(data []byte) (*domain.Resume, error) {
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, failure(fmt.Sprintf("malformed JSON: %v", err))
	}
	if err := checkSchema(gojsonschema.NewGoLoader(generic)); err != nil {
		return nil, err
	}

	var doc domain.Resume
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, failure(err.Error())
	}
	if problems := checkStruct(&doc); len(problems) > 0 {
		return nil, failure(problems...)
	}
	return &doc, nil
}

// Validate checks an in-memory document and returns an independent copy.
func Validate(doc *domain.Resume) (*domain.Resume, error) {
	if doc == nil {
		return nil, failure("document is empty")
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, failure(err.Error())
	}
	return Decode(data)
}

// Serialize renders doc as compact JSON. Nil lists are omitted and empty
// lists are written as [], so Deserialize returns an equal document.
func Serialize(doc *domain.Resume) (string, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("serialize resume: %w", err)
	}
	return string(data), nil
}

// Pretty renders doc the way the editable text mirror shows it.
func Pretty(doc *domain.Resume) string {
	if doc == nil {
		return ""
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return ""
	}
	return string(data)
}

func checkSchema(loader gojsonschema.JSONLoader) error {
	s, err := loadSchema()
	if err != nil {
		return fmt.Errorf("load resume schema: %w", err)
	}
	res, err := s.Validate(loader)
	if err != nil {
		return failure(err.Error())
	}
	if res.Valid() {
		return nil
	}
	problems := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		problems = append(problems, e.String())
	}
	return failure(problems...)
}
