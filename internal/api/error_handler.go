package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/resumeforge/tailor-client/internal/core/document"
	"github.com/resumeforge/tailor-client/internal/core/domain"
	"github.com/resumeforge/tailor-client/internal/pkg/validation"
)

// errorResponse is the canonical error envelope for all bridge errors.
type errorResponse struct {
	Error    string   `json:"error"`
	Problems []string `json:"problems,omitempty"`
	// Status is the remote service's HTTP status, when there was one.
	Status int `json:"status,omitempty"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps domain error kinds to HTTP status codes.
//   - Passes remote service messages through so the render layer can show them.
//   - Logs unexpected errors without leaking details to the client.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, body := resolveError(err, log, c)
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, body)
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, errorResponse) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, errorResponse{Error: fmt.Sprintf("%v", he.Message)}
	}

	var fieldErrs *validation.FieldErrors
	if errors.As(err, &fieldErrs) {
		return http.StatusUnprocessableEntity, errorResponse{Error: "invalid request", Problems: fieldErrs.Messages}
	}

	var invalid *document.ValidationFailure
	if errors.As(err, &invalid) {
		return http.StatusUnprocessableEntity, errorResponse{Error: "resume is invalid", Problems: invalid.Problems}
	}

	resp := errorResponse{Error: err.Error()}
	var apiErr *domain.APIError
	if errors.As(err, &apiErr) {
		resp = errorResponse{Error: apiErr.Message, Status: apiErr.Status}
	}

	switch {
	case errors.Is(err, domain.ErrNotAuthenticated):
		return http.StatusUnauthorized, errorResponse{Error: "not signed in"}
	case errors.Is(err, domain.ErrUnauthorized):
		resp.Error = "session expired, sign in again"
		return http.StatusUnauthorized, resp
	case errors.Is(err, domain.ErrAuthentication):
		return http.StatusUnauthorized, resp
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, resp
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrParse):
		return http.StatusUnprocessableEntity, resp
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrArtifactNotFound):
		return http.StatusNotFound, resp
	case errors.Is(err, domain.ErrNotEditing),
		errors.Is(err, domain.ErrNoTailoredResume),
		errors.Is(err, domain.ErrFlowBusy),
		errors.Is(err, domain.ErrSessionEnded):
		return http.StatusConflict, resp
	case errors.Is(err, domain.ErrTailor), errors.Is(err, domain.ErrGeneration):
		return http.StatusBadGateway, resp
	case apiErr != nil:
		// Unclassified remote failure or transport error.
		return http.StatusBadGateway, resp
	}

	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, errorResponse{Error: "internal server error"}
}
