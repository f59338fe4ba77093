package devserver

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/resumeforge/tailor-client/internal/core/document"
	"github.com/resumeforge/tailor-client/internal/core/domain"
	"github.com/resumeforge/tailor-client/internal/pkg/validation"
)

const maxUpload = 10 << 20

type credentialsRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Username    string `json:"username"`
}

type historyRequest struct {
	JobDescription string          `json:"job_description"`
	Content        json.RawMessage `json:"content"`
}

func (s *Server) root(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"message": "Resume Tailor API is running"})
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) bindCredentials(c echo.Context) (credentialsRequest, error) {
	var req credentialsRequest
	if err := c.Bind(&req); err != nil {
		return req, &detailError{status: http.StatusUnprocessableEntity, detail: "invalid payload"}
	}
	if err := c.Validate(&req); err != nil {
		var fe *validation.FieldErrors
		if errors.As(err, &fe) {
			return req, unprocessable(fe.Messages)
		}
		return req, err
	}
	return req, nil
}

func (s *Server) login(c echo.Context) error {
	req, err := s.bindCredentials(c)
	if err != nil {
		return err
	}
	if err := s.accounts.login(req.Username, req.Password); err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Incorrect username or password")
	}
	return s.grant(c, req.Username)
}

func (s *Server) signup(c echo.Context) error {
	req, err := s.bindCredentials(c)
	if err != nil {
		return err
	}
	if err := s.accounts.register(req.Username, req.Password); err != nil {
		if errors.Is(err, errUserExists) {
			return echo.NewHTTPError(http.StatusConflict, "Username already registered")
		}
		return err
	}
	s.log.Info().Str("username", req.Username).Msg("account created")
	return s.grant(c, req.Username)
}

func (s *Server) grant(c echo.Context, username string) error {
	token, err := s.accounts.issueToken(username)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tokenResponse{AccessToken: token, TokenType: "bearer", Username: username})
}

func (s *Server) getResume(c echo.Context) error {
	doc := s.data.base(currentUser(c))
	if doc == nil {
		return echo.NewHTTPError(http.StatusNotFound, "No resume found")
	}
	return c.JSON(http.StatusOK, doc)
}

func (s *Server) putResume(c echo.Context) error {
	doc, err := decodeResumeBody(c)
	if err != nil {
		return err
	}
	s.data.setBase(currentUser(c), doc)
	return c.JSON(http.StatusOK, map[string]string{"status": "success"})
}

func (s *Server) parsePDF(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return unprocessable([]string{"file: field required"})
	}
	f, err := fh.Open()
	if err != nil {
		return err
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxUpload))
	if err != nil {
		return err
	}

	doc, err := parsePDF(fh.Filename, data)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "Could not extract text from PDF")
	}
	return c.JSON(http.StatusOK, doc)
}

func (s *Server) tailor(c echo.Context) error {
	var jd domain.JobDescription
	if err := c.Bind(&jd); err != nil {
		return &detailError{status: http.StatusUnprocessableEntity, detail: "invalid payload"}
	}
	if strings.TrimSpace(jd.RawText) == "" {
		return unprocessable([]string{"raw_text: field required"})
	}
	base := s.data.base(currentUser(c))
	if base == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Please upload a base resume first")
	}
	return c.JSON(http.StatusOK, tailor(base, jd))
}

func (s *Server) generatePDF(c echo.Context) error {
	doc, err := decodeResumeBody(c)
	if err != nil {
		return err
	}
	pdf, err := renderPDF(doc)
	if err != nil {
		return err
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="resume.pdf"`)
	return c.Blob(http.StatusOK, domain.ContentTypePDF, pdf)
}

func (s *Server) listHistory(c echo.Context) error {
	return c.JSON(http.StatusOK, s.data.listHistory(currentUser(c)))
}

func (s *Server) saveHistory(c echo.Context) error {
	var req historyRequest
	if err := c.Bind(&req); err != nil {
		return &detailError{status: http.StatusUnprocessableEntity, detail: "invalid payload"}
	}
	if !isJSONObject(req.Content) {
		return unprocessable([]string{"content: value is not a valid dict"})
	}
	rec := s.data.addHistory(currentUser(c), req.JobDescription, req.Content)
	return c.JSON(http.StatusOK, rec)
}

func (s *Server) getHistory(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return unprocessable([]string{"resume_id: value is not a valid integer"})
	}
	rec, ok := s.data.historyItem(currentUser(c), id)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "Resume not found")
	}
	return c.JSON(http.StatusOK, rec)
}

func decodeResumeBody(c echo.Context) (*domain.Resume, error) {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxUpload))
	if err != nil {
		return nil, err
	}
	doc, err := document.Decode(body)
	if err != nil {
		var vf *document.ValidationFailure
		if errors.As(err, &vf) {
			return nil, unprocessable(vf.Problems)
		}
		return nil, err
	}
	return doc, nil
}

// unprocessable renders problems as a FastAPI validation detail list.
func unprocessable(problems []string) error {
	items := make([]map[string]any, 0, len(problems))
	for _, p := range problems {
		loc := []any{"body"}
		msg := p
		if field, rest, ok := strings.Cut(p, ": "); ok {
			loc = append(loc, field)
			msg = rest
		}
		items = append(items, map[string]any{"loc": loc, "msg": msg, "type": "value_error"})
	}
	return &detailError{status: http.StatusUnprocessableEntity, detail: items}
}

func isJSONObject(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return false
	}
	var obj map[string]any
	return json.Unmarshal(raw, &obj) == nil
}
