package document

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/resumeforge/tailor-client/internal/core/domain"
)

var structRules = validator.New()

// checkStruct applies the semantic rules carried in the domain struct tags.
func checkStruct(doc *domain.Resume) []string {
	err := structRules.Struct(doc)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return []string{err.Error()}
	}
	msgs := make([]string, 0, len(ve))
	for _, fe := range ve {
		msgs = append(msgs, fieldError(fe))
	}
	return msgs
}

// fieldError converts a single FieldError into a human-readable message
// addressed by the resume path, e.g. "experience[0].company is required".
func fieldError(fe validator.FieldError) string {
	field := fieldPath(fe.Namespace())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email"
	case "url":
		return field + " must be a valid URL"
	default:
		return fmt.Sprintf("%s failed validation (%s)", field, fe.Tag())
	}
}

var jsonNames = map[string]string{
	"Contact":      "contact_info",
	"LinkedIn":     "linkedin",
	"GitHub":       "github",
	"StartDate":    "start_date",
	"EndDate":      "end_date",
	"FieldOfStudy": "field_of_study",
	"URL":          "url",
	"GPA":          "gpa",
}

func fieldPath(namespace string) string {
	parts := strings.Split(namespace, ".")
	if len(parts) > 1 {
		parts = parts[1:] // drop the root type name
	}
	for i, p := range parts {
		name, index, _ := strings.Cut(p, "[")
		if mapped, ok := jsonNames[name]; ok {
			name = mapped
		} else {
			name = strings.ToLower(name)
		}
		if index != "" {
			name += "[" + index
		}
		parts[i] = name
	}
	return strings.Join(parts, ".")
}
