// Package apiclient is the HTTP implementation of ports.ResumeAPI.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/resumeforge/tailor-client/internal/core/domain"
	"github.com/resumeforge/tailor-client/internal/core/ports"
	"github.com/resumeforge/tailor-client/internal/pkg/metrics"
)

const (
	defaultRequestTimeout  = 30 * time.Second
	defaultTailorTimeout   = 2 * time.Minute
	defaultGenerateTimeout = 60 * time.Second
	defaultParseTimeout    = 60 * time.Second

	maxErrorBody = 64 << 10
)

// Config captures the settings of the remote service connection.
type Config struct {
	BaseURL         string
	RequestTimeout  time.Duration
	TailorTimeout   time.Duration
	GenerateTimeout time.Duration
	ParseTimeout    time.Duration
	// HTTPClient overrides the transport. Its own Timeout should be zero;
	// per-operation deadlines are applied through the request context.
	HTTPClient *http.Client
}

// Client talks to the remote resume service. It holds no mutable state; the
// bearer credential is the one pinned on the call context, or else read from
// the injected CredentialSource on every call.
type Client struct {
	baseURL  string
	http     *http.Client
	creds    ports.CredentialSource
	timeouts Config
	log      zerolog.Logger
}

var _ ports.ResumeAPI = (*Client)(nil)

// New builds a Client. Zero timeouts fall back to the package defaults.
func New(cfg Config, creds ports.CredentialSource, log zerolog.Logger) *Client {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	if cfg.TailorTimeout <= 0 {
		cfg.TailorTimeout = defaultTailorTimeout
	}
	if cfg.GenerateTimeout <= 0 {
		cfg.GenerateTimeout = defaultGenerateTimeout
	}
	if cfg.ParseTimeout <= 0 {
		cfg.ParseTimeout = defaultParseTimeout
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	return &Client{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		http:     hc,
		creds:    creds,
		timeouts: cfg,
		log:      log.With().Str("component", "apiclient").Logger(),
	}
}

// request describes one remote call.
type request struct {
	op        string
	method    string
	path      string
	protected bool
	jsonBody  any
	rawBody   []byte
	rawType   string
	timeout   time.Duration
	// failKind classifies 5xx responses, timeouts and transport failures.
	failKind error
	// kinds classifies specific statuses ahead of the defaults.
	kinds map[int]error
}

type response struct {
	status int
	header http.Header
	body   []byte
}

// do performs r and returns the body of a 2xx response. Every failure is a
// *domain.APIError.
func (c *Client) do(ctx context.Context, r request) (res *response, err error) {
	start := time.Now()
	defer func() {
		metrics.APIRequestDuration.WithLabelValues(r.op).Observe(time.Since(start).Seconds())
		metrics.APIRequestsTotal.WithLabelValues(r.op, outcomeLabel(err)).Inc()
		if err != nil {
			c.log.Warn().Err(err).Str("operation", r.op).Int("status", domain.StatusOf(err)).Msg("remote call failed")
		}
	}()

	if r.timeout <= 0 {
		r.timeout = c.timeouts.RequestTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var body io.Reader
	contentType := ""
	switch {
	case r.rawBody != nil:
		body = bytes.NewReader(r.rawBody)
		contentType = r.rawType
	case r.jsonBody != nil:
		payload, mErr := json.Marshal(r.jsonBody)
		if mErr != nil {
			return nil, &domain.APIError{Message: fmt.Sprintf("encode request: %v", mErr), Kind: domain.ErrValidation}
		}
		body = bytes.NewReader(payload)
		contentType = "application/json"
	}

	req, err := http.NewRequestWithContext(callCtx, r.method, c.baseURL+r.path, body)
	if err != nil {
		return nil, &domain.APIError{Message: fmt.Sprintf("build request: %v", err), Kind: r.failKind}
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if r.protected {
		token, ok := ports.CredentialFrom(ctx)
		if !ok {
			token, ok = c.creds.Credential()
		}
		if !ok {
			return nil, &domain.APIError{Status: http.StatusUnauthorized, Message: "no active session", Kind: domain.ErrNotAuthenticated}
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	c.log.Debug().Str("operation", r.op).Str("method", r.method).Str("path", r.path).Msg("remote call")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, c.transportError(ctx, callCtx, r, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, statusError(r, resp.StatusCode, raw)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.transportError(ctx, callCtx, r, err)
	}
	return &response{status: resp.StatusCode, header: resp.Header, body: data}, nil
}

func (c *Client) transportError(parent, callCtx context.Context, r request, err error) error {
	switch {
	case parent.Err() != nil:
		// The caller withdrew interest; report that rather than a failure kind.
		return &domain.APIError{Message: fmt.Sprintf("%s cancelled: %v", r.op, parent.Err()), Kind: parent.Err()}
	case errors.Is(callCtx.Err(), context.DeadlineExceeded):
		return &domain.APIError{Message: fmt.Sprintf("%s timed out after %s", r.op, r.timeout), Kind: r.failKind}
	}
	return &domain.APIError{Message: err.Error(), Kind: r.failKind}
}

// statusError turns a non-2xx response into an APIError. The message is the
// server-supplied "detail" when present, else the HTTP status text.
func statusError(r request, status int, raw []byte) error {
	apiErr := &domain.APIError{Status: status, Message: http.StatusText(status)}

	var envelope map[string]any
	if len(raw) > 0 && json.Unmarshal(raw, &envelope) == nil {
		apiErr.Details = envelope
		if msg := detailMessage(envelope["detail"]); msg != "" {
			apiErr.Message = msg
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = fmt.Sprintf("status %d", status)
	}
	apiErr.Kind = classify(r, status)
	return apiErr
}

func classify(r request, status int) error {
	if kind, ok := r.kinds[status]; ok {
		return kind
	}
	switch {
	case status == http.StatusUnauthorized && r.protected:
		return domain.ErrUnauthorized
	case status == http.StatusNotFound:
		return domain.ErrNotFound
	case status == http.StatusUnprocessableEntity:
		return domain.ErrValidation
	case status >= 500:
		return r.failKind
	}
	return nil
}

// detailMessage flattens FastAPI-style details: a string, or a list of
// {"loc": [...], "msg": "..."} objects.
func detailMessage(detail any) string {
	switch d := detail.(type) {
	case string:
		return d
	case []any:
		msgs := make([]string, 0, len(d))
		for _, item := range d {
			obj, ok := item.(map[string]any)
			if !ok {
				continue
			}
			msg, _ := obj["msg"].(string)
			if msg == "" {
				continue
			}
			if loc, ok := obj["loc"].([]any); ok && len(loc) > 0 {
				parts := make([]string, 0, len(loc))
				for _, l := range loc {
					parts = append(parts, fmt.Sprint(l))
				}
				msg = strings.Join(parts, ".") + ": " + msg
			}
			msgs = append(msgs, msg)
		}
		return strings.Join(msgs, "; ")
	}
	return ""
}

func (c *Client) decodeJSON(r request, res *response, out any) error {
	if err := json.Unmarshal(res.body, out); err != nil {
		return &domain.APIError{
			Status:  res.status,
			Message: fmt.Sprintf("decode %s response: %v", r.op, err),
			Kind:    r.failKind,
		}
	}
	return nil
}

// Ping reports whether the remote service answers HTTP at all.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("remote service unreachable: %w", err)
	}
	_ = resp.Body.Close()
	return nil
}

func outcomeLabel(err error) string {
	if err == nil {
		return "ok"
	}
	switch {
	case errors.Is(err, domain.ErrAuthentication):
		return "authentication"
	case errors.Is(err, domain.ErrConflict):
		return "conflict"
	case errors.Is(err, domain.ErrValidation):
		return "validation"
	case errors.Is(err, domain.ErrParse):
		return "parse"
	case errors.Is(err, domain.ErrTailor):
		return "tailor"
	case errors.Is(err, domain.ErrGeneration):
		return "generation"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrUnauthorized), errors.Is(err, domain.ErrNotAuthenticated):
		return "unauthorized"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	}
	return "error"
}
