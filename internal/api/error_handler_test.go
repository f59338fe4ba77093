package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resumeforge/tailor-client/internal/core/document"
	"github.com/resumeforge/tailor-client/internal/core/domain"
	"github.com/resumeforge/tailor-client/internal/pkg/validation"
)

func TestHTTPErrorHandler(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		code    int
		message string
	}{
		{"echo error", echo.NewHTTPError(http.StatusBadRequest, "invalid payload"), http.StatusBadRequest, "invalid payload"},
		{"request validation", &validation.FieldErrors{Messages: []string{"username is required"}}, http.StatusUnprocessableEntity, "invalid request"},
		{"document validation", &document.ValidationFailure{Problems: []string{"contact_info.name is required"}}, http.StatusUnprocessableEntity, "resume is invalid"},
		{"not signed in", domain.ErrNotAuthenticated, http.StatusUnauthorized, "not signed in"},
		{"session rejected", &domain.APIError{Status: 401, Message: "Could not validate credentials", Kind: domain.ErrUnauthorized}, http.StatusUnauthorized, "session expired, sign in again"},
		{"bad credentials", &domain.APIError{Status: 401, Message: "Incorrect username or password", Kind: domain.ErrAuthentication}, http.StatusUnauthorized, "Incorrect username or password"},
		{"duplicate user", &domain.APIError{Status: 409, Message: "Username already registered", Kind: domain.ErrConflict}, http.StatusConflict, "Username already registered"},
		{"parse failure", &domain.APIError{Status: 422, Message: "Could not extract text from PDF", Kind: domain.ErrParse}, http.StatusUnprocessableEntity, "Could not extract text from PDF"},
		{"tailor failure", &domain.APIError{Status: 500, Message: "LLM unavailable", Kind: domain.ErrTailor}, http.StatusBadGateway, "LLM unavailable"},
		{"transport failure", &domain.APIError{Message: "connection refused"}, http.StatusBadGateway, "connection refused"},
		{"artifact gone", domain.ErrArtifactNotFound, http.StatusNotFound, "artifact not found"},
		{"busy flow", domain.ErrFlowBusy, http.StatusConflict, "flow is busy"},
		{"session ended", fmt.Errorf("load base resume: %w", domain.ErrSessionEnded), http.StatusConflict, "load base resume: session ended before the operation completed"},
		{"not editing", fmt.Errorf("update draft: %w", domain.ErrNotEditing), http.StatusConflict, "update draft: no edit session open"},
		{"unexpected", context.DeadlineExceeded, http.StatusInternalServerError, "internal server error"},
	}

	handle := NewHTTPErrorHandler(zerolog.Nop())
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

			handle(tc.err, c)

			assert.Equal(t, tc.code, rec.Code)
			var body errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tc.message, body.Error)
		})
	}
}

func TestHTTPErrorHandler_CarriesProblemsAndStatus(t *testing.T) {
	handle := NewHTTPErrorHandler(zerolog.Nop())

	rec := httptest.NewRecorder()
	c := echo.New().NewContext(httptest.NewRequest(http.MethodPost, "/", nil), rec)
	handle(&document.ValidationFailure{Problems: []string{"a", "b"}}, c)
	var body errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []string{"a", "b"}, body.Problems)

	rec = httptest.NewRecorder()
	c = echo.New().NewContext(httptest.NewRequest(http.MethodPost, "/", nil), rec)
	handle(&domain.APIError{Status: 502, Message: "Bad Gateway", Kind: domain.ErrGeneration}, c)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 502, body.Status)
	assert.True(t, errors.Is(&domain.APIError{Kind: domain.ErrGeneration}, domain.ErrGeneration))
}
