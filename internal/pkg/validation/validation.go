// Package validation adapts go-playground/validator to echo request binding.
package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator wraps go-playground/validator so echo can call c.Validate(req).
type Validator struct {
	v *validator.Validate
}

// New returns a Validator ready to be assigned to echo.Echo.Validator.
func New() *Validator {
	return &Validator{v: validator.New()}
}

// Validate satisfies the echo.Validator interface. Failures are a
// *FieldErrors listing one message per offending field.
func (ev *Validator) Validate(i any) error {
	err := ev.v.Struct(i)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}
	msgs := make([]string, 0, len(ve))
	for _, fe := range ve {
		msgs = append(msgs, fieldError(fe))
	}
	return &FieldErrors{Messages: msgs}
}

// FieldErrors is returned when a request struct fails its tags.
type FieldErrors struct {
	Messages []string
}

func (e *FieldErrors) Error() string {
	return strings.Join(e.Messages, "; ")
}

// fieldError converts a single ValidationError into a human-readable message.
func fieldError(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "alphanum":
		return field + " must contain only letters and digits"
	default:
		return fmt.Sprintf("%s failed validation (%s)", field, fe.Tag())
	}
}
