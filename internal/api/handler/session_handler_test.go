package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/rs/zerolog"

	"github.com/resumeforge/tailor-client/internal/core/domain"
	"github.com/resumeforge/tailor-client/internal/core/service"
	"github.com/resumeforge/tailor-client/internal/infrastructure/storage/memory"
	"github.com/resumeforge/tailor-client/internal/pkg/validation"
)

func newSignedOutApp(t *testing.T, api *stubAPI) *service.App {
	t.Helper()
	session := service.NewSessionStore(api, memory.New(), zerolog.Nop())
	app := service.NewApp(api, session, service.NewArtifactRegistry(), nil, zerolog.Nop())
	t.Cleanup(app.Close)
	if err := app.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	return app
}

func TestSessionHandler_Login_Success(t *testing.T) {
	api := &stubAPI{grant: &domain.AuthGrant{AccessToken: "tok", TokenType: "bearer", Username: "ada"}}
	h := NewSessionHandler(newSignedOutApp(t, api))

	c, rec := newContext(http.MethodPost, "/v1/session/login", `{"username":"ada","password":"pw"}`)
	if err := h.Login(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	expectStatus(t, rec, http.StatusOK)

	var resp sessionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.State != domain.AuthAuthenticated || resp.Username != "ada" {
		t.Fatalf("unexpected session: %+v", resp)
	}
}

func TestSessionHandler_Login_MissingPassword(t *testing.T) {
	h := NewSessionHandler(newSignedOutApp(t, &stubAPI{}))

	c, _ := newContext(http.MethodPost, "/v1/session/login", `{"username":"ada"}`)
	err := h.Login(c)

	var fieldErrs *validation.FieldErrors
	if !errors.As(err, &fieldErrs) {
		t.Fatalf("expected field errors, got %v", err)
	}
	if len(fieldErrs.Messages) != 1 || fieldErrs.Messages[0] != "password is required" {
		t.Fatalf("unexpected messages: %v", fieldErrs.Messages)
	}
}

func TestSessionHandler_Login_Rejected(t *testing.T) {
	api := &stubAPI{loginErr: &domain.APIError{Status: 401, Message: "Incorrect username or password", Kind: domain.ErrAuthentication}}
	app := newSignedOutApp(t, api)
	h := NewSessionHandler(app)

	c, _ := newContext(http.MethodPost, "/v1/session/login", `{"username":"ada","password":"bad"}`)
	if err := h.Login(c); !errors.Is(err, domain.ErrAuthentication) {
		t.Fatalf("expected authentication error, got %v", err)
	}
	if app.Session.State() != domain.AuthUnauthenticated {
		t.Fatalf("expected unauthenticated, got %s", app.Session.State())
	}
}

func TestSessionHandler_Logout(t *testing.T) {
	app := newSignedInApp(t, &stubAPI{})
	h := NewSessionHandler(app)

	for i := 0; i < 2; i++ {
		c, rec := newContext(http.MethodDelete, "/v1/session", "")
		if err := h.Logout(c); err != nil {
			t.Fatalf("logout %d: %v", i, err)
		}
		expectStatus(t, rec, http.StatusOK)
	}
	if app.Session.State() != domain.AuthUnauthenticated {
		t.Fatalf("expected unauthenticated, got %s", app.Session.State())
	}
}
