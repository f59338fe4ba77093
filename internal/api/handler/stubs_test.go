package handler

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/resumeforge/tailor-client/internal/core/domain"
	"github.com/resumeforge/tailor-client/internal/core/ports"
	"github.com/resumeforge/tailor-client/internal/core/service"
	"github.com/resumeforge/tailor-client/internal/infrastructure/storage/memory"
	"github.com/resumeforge/tailor-client/internal/pkg/validation"
)

// stubAPI is a ports.ResumeAPI with canned answers.
type stubAPI struct {
	mu       sync.Mutex
	grant    *domain.AuthGrant
	loginErr error
	base     *domain.Resume
	parsed   *domain.Resume
	tailored *domain.Resume
	history  []domain.HistoryEntry
	block    chan struct{}
}

var _ ports.ResumeAPI = (*stubAPI)(nil)

func (s *stubAPI) Login(ctx context.Context, username, password string) (*domain.AuthGrant, error) {
	if s.loginErr != nil {
		return nil, s.loginErr
	}
	return s.grant, nil
}

func (s *stubAPI) Signup(ctx context.Context, username, password string) (*domain.AuthGrant, error) {
	return s.Login(ctx, username, password)
}

func (s *stubAPI) FetchBaseResume(ctx context.Context) (*domain.Resume, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.base.Clone(), nil
}

func (s *stubAPI) SaveBaseResume(ctx context.Context, r *domain.Resume) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.base = r.Clone()
	return nil
}

func (s *stubAPI) ParsePDF(ctx context.Context, filename string, file io.Reader) (*domain.Resume, error) {
	if _, err := io.ReadAll(file); err != nil {
		return nil, err
	}
	return s.parsed.Clone(), nil
}

func (s *stubAPI) TailorResume(ctx context.Context, jd domain.JobDescription) (*domain.Resume, error) {
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return nil, &domain.APIError{Message: ctx.Err().Error(), Kind: domain.ErrTailor}
		}
	}
	return s.tailored.Clone(), nil
}

func (s *stubAPI) GeneratePDF(ctx context.Context, r *domain.Resume) ([]byte, error) {
	return []byte("%PDF-1.4 " + r.Contact.Name), nil
}

func (s *stubAPI) ListHistory(ctx context.Context) ([]domain.HistoryEntry, error) {
	return s.history, nil
}

func (s *stubAPI) SaveHistory(ctx context.Context, jd string, content *domain.Resume) (*domain.HistoryEntry, error) {
	return &domain.HistoryEntry{JobDescription: jd, Content: *content}, nil
}

func (s *stubAPI) FetchHistoryItem(ctx context.Context, id int64) (*domain.HistoryEntry, error) {
	return nil, nil
}

func (s *stubAPI) Ping(ctx context.Context) error { return nil }

func sampleResume(name string) *domain.Resume {
	return &domain.Resume{
		Contact: domain.ContactInfo{Name: name},
		Summary: "Engineer",
		Skills:  []domain.SkillGroup{{Category: "Languages", Skills: []string{"Go"}}},
	}
}

// newSignedInApp returns an App whose session is already established.
func newSignedInApp(t *testing.T, api *stubAPI) *service.App {
	t.Helper()
	if api.grant == nil {
		api.grant = &domain.AuthGrant{AccessToken: "tok", TokenType: "bearer", Username: "ada"}
	}
	session := service.NewSessionStore(api, memory.New(), zerolog.Nop())
	app := service.NewApp(api, session, service.NewArtifactRegistry(), nil, zerolog.Nop())
	t.Cleanup(app.Close)
	if err := app.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := app.Login(context.Background(), "ada", "pw"); err != nil {
		t.Fatalf("login: %v", err)
	}
	return app
}

func newContext(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = validation.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("expected %d, got %d: %s", want, rec.Code, rec.Body.String())
	}
}
