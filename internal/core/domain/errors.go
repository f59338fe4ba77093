package domain

import (
	"errors"
	"fmt"
)

var (
	ErrAuthentication   = errors.New("authentication failed")
	ErrConflict         = errors.New("identity already exists")
	ErrValidation       = errors.New("resume validation failed")
	ErrParse            = errors.New("pdf parsing failed")
	ErrTailor           = errors.New("tailoring failed")
	ErrGeneration       = errors.New("pdf generation failed")
	ErrNotFound         = errors.New("not found")
	ErrUnauthorized     = errors.New("session rejected by remote service")
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrArtifactNotFound = errors.New("artifact not found")
	ErrNoTailoredResume = errors.New("no tailored resume to promote")
	ErrNotEditing       = errors.New("no edit session open")
	ErrSuperseded       = errors.New("superseded by a newer selection")
	ErrFlowBusy         = errors.New("flow is busy")
	ErrSessionEnded     = errors.New("session ended before the operation completed")
)

// APIError is the single failure type produced by the API client. Kind is one
// of the sentinel errors above, or nil for an unclassified response.
type APIError struct {
	Status  int            `json:"status"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	Kind    error          `json:"-"`
}

func (e *APIError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("api: %s", e.Message)
	}
	return fmt.Sprintf("api: %d %s", e.Status, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Kind
}

// StatusOf extracts the transport status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}
