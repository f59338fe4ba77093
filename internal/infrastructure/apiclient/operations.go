package apiclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"

	"github.com/resumeforge/tailor-client/internal/core/document"
	"github.com/resumeforge/tailor-client/internal/core/domain"
)

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type historyRequest struct {
	JobDescription string         `json:"job_description"`
	Content        *domain.Resume `json:"content"`
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, username, password string) (*domain.AuthGrant, error) {
	return c.authenticate(ctx, request{
		op:       "login",
		method:   http.MethodPost,
		path:     "/auth/login",
		jsonBody: credentialsRequest{Username: username, Password: password},
		kinds:    map[int]error{http.StatusUnauthorized: domain.ErrAuthentication},
	})
}

// Signup creates an account and signs it in.
func (c *Client) Signup(ctx context.Context, username, password string) (*domain.AuthGrant, error) {
	return c.authenticate(ctx, request{
		op:       "signup",
		method:   http.MethodPost,
		path:     "/auth/signup",
		jsonBody: credentialsRequest{Username: username, Password: password},
		kinds:    map[int]error{http.StatusConflict: domain.ErrConflict},
	})
}

func (c *Client) authenticate(ctx context.Context, r request) (*domain.AuthGrant, error) {
	res, err := c.do(ctx, r)
	if err != nil {
		return nil, err
	}
	var grant domain.AuthGrant
	if err := c.decodeJSON(r, res, &grant); err != nil {
		return nil, err
	}
	if grant.AccessToken == "" || grant.Username == "" {
		return nil, &domain.APIError{Status: res.status, Message: r.op + " response is missing the token or username", Kind: domain.ErrAuthentication}
	}
	return &grant, nil
}

// FetchBaseResume returns the stored base resume, or (nil, nil) when the user
// has none yet.
func (c *Client) FetchBaseResume(ctx context.Context) (*domain.Resume, error) {
	r := request{op: "fetch_base_resume", method: http.MethodGet, path: "/users/me/resume", protected: true}
	res, err := c.do(ctx, r)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(res.body)) == 0 || string(bytes.TrimSpace(res.body)) == "null" {
		return nil, nil
	}
	return c.decodeResume(r, res)
}

func (c *Client) SaveBaseResume(ctx context.Context, resume *domain.Resume) error {
	_, err := c.do(ctx, request{
		op:        "save_base_resume",
		method:    http.MethodPost,
		path:      "/users/me/resume",
		protected: true,
		jsonBody:  resume,
	})
	return err
}

// ParsePDF uploads a PDF as the multipart field "file" and returns the
// resume the service extracted from it.
func (c *Client) ParsePDF(ctx context.Context, filename string, file io.Reader) (*domain.Resume, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filepath.Base(filename)))
	header.Set("Content-Type", domain.ContentTypePDF)
	part, err := mw.CreatePart(header)
	if err != nil {
		return nil, &domain.APIError{Message: fmt.Sprintf("build upload: %v", err), Kind: domain.ErrParse}
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, &domain.APIError{Message: fmt.Sprintf("read upload: %v", err), Kind: domain.ErrParse}
	}
	if err := mw.Close(); err != nil {
		return nil, &domain.APIError{Message: fmt.Sprintf("build upload: %v", err), Kind: domain.ErrParse}
	}

	r := request{
		op:        "parse_pdf",
		method:    http.MethodPost,
		path:      "/users/me/parse-pdf",
		protected: true,
		rawBody:   buf.Bytes(),
		rawType:   mw.FormDataContentType(),
		timeout:   c.timeouts.ParseTimeout,
		failKind:  domain.ErrParse,
		kinds: map[int]error{
			http.StatusBadRequest:          domain.ErrParse,
			http.StatusUnprocessableEntity: domain.ErrParse,
		},
	}
	res, err := c.do(ctx, r)
	if err != nil {
		return nil, err
	}
	return c.decodeResume(r, res)
}

// TailorResume asks the service to rewrite the stored base resume for jd.
// The result is a derived document; nothing client-side is modified.
func (c *Client) TailorResume(ctx context.Context, jd domain.JobDescription) (*domain.Resume, error) {
	r := request{
		op:        "tailor_resume",
		method:    http.MethodPost,
		path:      "/users/me/tailor",
		protected: true,
		jsonBody:  jd,
		timeout:   c.timeouts.TailorTimeout,
		failKind:  domain.ErrTailor,
		kinds:     map[int]error{http.StatusBadRequest: domain.ErrTailor},
	}
	res, err := c.do(ctx, r)
	if err != nil {
		return nil, err
	}
	return c.decodeResume(r, res)
}

// GeneratePDF renders resume remotely. The endpoint is public.
func (c *Client) GeneratePDF(ctx context.Context, resume *domain.Resume) ([]byte, error) {
	r := request{
		op:       "generate_pdf",
		method:   http.MethodPost,
		path:     "/generate-pdf",
		jsonBody: resume,
		timeout:  c.timeouts.GenerateTimeout,
		failKind: domain.ErrGeneration,
	}
	res, err := c.do(ctx, r)
	if err != nil {
		return nil, err
	}
	if len(res.body) == 0 {
		return nil, &domain.APIError{Status: res.status, Message: "empty PDF response", Kind: domain.ErrGeneration}
	}
	return res.body, nil
}

// ListHistory returns the user's history in server order (oldest-first).
func (c *Client) ListHistory(ctx context.Context) ([]domain.HistoryEntry, error) {
	r := request{op: "list_history", method: http.MethodGet, path: "/history/", protected: true}
	res, err := c.do(ctx, r)
	if err != nil {
		return nil, err
	}
	var entries []domain.HistoryEntry
	if err := c.decodeJSON(r, res, &entries); err != nil {
		return nil, err
	}
	for i := range entries {
		if err := c.checkEntry(r, res, &entries[i]); err != nil {
			return nil, err
		}
	}
	return entries, nil
}

func (c *Client) SaveHistory(ctx context.Context, jobDescription string, content *domain.Resume) (*domain.HistoryEntry, error) {
	r := request{
		op:        "save_history",
		method:    http.MethodPost,
		path:      "/history/",
		protected: true,
		jsonBody:  historyRequest{JobDescription: jobDescription, Content: content},
	}
	return c.historyEntry(ctx, r)
}

func (c *Client) FetchHistoryItem(ctx context.Context, id int64) (*domain.HistoryEntry, error) {
	r := request{
		op:        "fetch_history_item",
		method:    http.MethodGet,
		path:      fmt.Sprintf("/history/%d", id),
		protected: true,
	}
	return c.historyEntry(ctx, r)
}

func (c *Client) historyEntry(ctx context.Context, r request) (*domain.HistoryEntry, error) {
	res, err := c.do(ctx, r)
	if err != nil {
		return nil, err
	}
	var entry domain.HistoryEntry
	if err := c.decodeJSON(r, res, &entry); err != nil {
		return nil, err
	}
	if err := c.checkEntry(r, res, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// checkEntry runs the stored snapshot through document validation so a
// malformed entry never reaches a flow.
func (c *Client) checkEntry(r request, res *response, entry *domain.HistoryEntry) error {
	content, err := document.Validate(&entry.Content)
	if err != nil {
		return invalidPayload(r, res, err)
	}
	entry.Content = *content
	return nil
}

func (c *Client) decodeResume(r request, res *response) (*domain.Resume, error) {
	doc, err := document.Decode(res.body)
	if err != nil {
		return nil, invalidPayload(r, res, err)
	}
	return doc, nil
}

func invalidPayload(r request, res *response, err error) error {
	apiErr := &domain.APIError{
		Status:  res.status,
		Message: fmt.Sprintf("%s returned an invalid resume: %v", r.op, err),
		Kind:    domain.ErrValidation,
	}
	var vf *document.ValidationFailure
	if errors.As(err, &vf) {
		apiErr.Details = map[string]any{"problems": vf.Problems}
	}
	return apiErr
}
