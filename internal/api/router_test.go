package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/resumeforge/tailor-client/internal/api/handler"
	"github.com/resumeforge/tailor-client/internal/core/ports"
	"github.com/resumeforge/tailor-client/internal/core/service"
	"github.com/resumeforge/tailor-client/internal/devserver"
	"github.com/resumeforge/tailor-client/internal/infrastructure/apiclient"
	"github.com/resumeforge/tailor-client/internal/infrastructure/storage/memory"
)

// newBridge wires the bridge to a dev server, the way cmd/resumeforge does.
func newBridge(t *testing.T) *httptest.Server {
	t.Helper()
	remote := httptest.NewServer(devserver.New(devserver.Config{JWTSecret: "bridge", TokenTTL: time.Hour, BcryptCost: bcrypt.MinCost}, zerolog.Nop()))
	t.Cleanup(remote.Close)

	kv := memory.New()
	var session *service.SessionStore
	client := apiclient.New(apiclient.Config{BaseURL: remote.URL + "/api/v1"}, ports.CredentialFunc(func() (string, bool) {
		return session.Credential()
	}), zerolog.Nop())
	session = service.NewSessionStore(client, kv, zerolog.Nop())
	app := service.NewApp(client, session, service.NewArtifactRegistry(), nil, zerolog.Nop())
	t.Cleanup(app.Close)
	require.NoError(t, app.Start(context.Background()))

	hub := handler.NewEventHub([]string{"*"}, zerolog.Nop())
	t.Cleanup(hub.Close)
	t.Cleanup(hub.Attach(app))

	e := NewRouter(Deps{
		App:     app,
		Events:  hub,
		Probes:  map[string]handler.Pinger{"storage": kv, "remote": client},
		Metrics: prometheus.NewRegistry(),
		Log:     zerolog.Nop(),
	})
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, srv *httptest.Server, method, path, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestRouter_Probes(t *testing.T) {
	srv := newBridge(t)

	assert.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/health", "").StatusCode)
	assert.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/health/ready", "").StatusCode)
	assert.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/metrics", "").StatusCode)
}

func TestRouter_SignedOutRoutesAreClosed(t *testing.T) {
	srv := newBridge(t)

	for _, path := range []string{"/v1/resume", "/v1/tailor", "/v1/history", "/v1/artifacts/x"} {
		assert.Equal(t, http.StatusUnauthorized, do(t, srv, http.MethodGet, path, "").StatusCode, path)
	}
	assert.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/v1/session", "").StatusCode)
}

func TestRouter_SignupThenTailorGuard(t *testing.T) {
	srv := newBridge(t)

	resp := do(t, srv, http.MethodPost, "/v1/session/signup", `{"username":"ada","password":"pw123"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = do(t, srv, http.MethodPost, "/v1/session/signup", `{"username":"ada","password":"pw123"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = do(t, srv, http.MethodPost, "/v1/session/login", `{"username":"ada"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	// No base resume yet, so the guard refuses to start.
	resp = do(t, srv, http.MethodPost, "/v1/tailor", `{"raw_text":"Go developer"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, srv, http.MethodPost, "/v1/resume/promote", "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = do(t, srv, http.MethodGet, "/v1/history", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, srv, http.MethodDelete, "/v1/session", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, http.StatusUnauthorized, do(t, srv, http.MethodGet, "/v1/resume", "").StatusCode)
}
