package service

import (
	"context"
	"io"
	"sync"

	"github.com/resumeforge/tailor-client/internal/core/domain"
	"github.com/resumeforge/tailor-client/internal/core/ports"
)

type stubAPI struct {
	mu sync.Mutex

	grant    *domain.AuthGrant
	loginErr error

	base      *domain.Resume
	fetchErr  error
	fetchHook func(ctx context.Context)
	saveErr   error
	saved     []*domain.Resume

	parsed   *domain.Resume
	parseErr error

	tailored    *domain.Resume
	tailorErr   error
	tailorHook  func(ctx context.Context) error
	jds         []domain.JobDescription
	tailorCreds []string

	pdf          []byte
	generateErr  error
	generateHook func(ctx context.Context, r *domain.Resume) ([]byte, error)

	history   []domain.HistoryEntry
	listCalls int
	items     map[int64]*domain.HistoryEntry

	historySaves []ports.HistoryJob
}

var _ ports.ResumeAPI = (*stubAPI)(nil)

func sampleBase() *domain.Resume {
	return &domain.Resume{
		Contact: domain.ContactInfo{Name: "Ada Lovelace", Email: "ada@example.com"},
		Summary: "Mathematician",
		Experience: []domain.Experience{{
			Company:     "Analytical Engines",
			Position:    "Programmer",
			Description: []string{"Wrote the first algorithm"},
		}},
		Skills: []domain.SkillGroup{{Category: "Languages", Skills: []string{"Python"}}},
	}
}

func tailoredFrom(base *domain.Resume) *domain.Resume {
	out := base.Clone()
	out.Summary = "Python expert"
	return out
}

func (s *stubAPI) Login(_ context.Context, _, _ string) (*domain.AuthGrant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loginErr != nil {
		return nil, s.loginErr
	}
	g := *s.grant
	return &g, nil
}

func (s *stubAPI) Signup(ctx context.Context, u, p string) (*domain.AuthGrant, error) {
	return s.Login(ctx, u, p)
}

func (s *stubAPI) FetchBaseResume(ctx context.Context) (*domain.Resume, error) {
	s.mu.Lock()
	hook := s.fetchHook
	s.mu.Unlock()
	if hook != nil {
		hook(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.base.Clone(), s.fetchErr
}

func (s *stubAPI) SaveBaseResume(_ context.Context, r *domain.Resume) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved = append(s.saved, r.Clone())
	s.base = r.Clone()
	return nil
}

func (s *stubAPI) ParsePDF(_ context.Context, _ string, file io.Reader) (*domain.Resume, error) {
	_, _ = io.ReadAll(file)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.parseErr != nil {
		return nil, s.parseErr
	}
	return s.parsed.Clone(), nil
}

func (s *stubAPI) TailorResume(ctx context.Context, jd domain.JobDescription) (*domain.Resume, error) {
	cred, _ := ports.CredentialFrom(ctx)
	s.mu.Lock()
	s.jds = append(s.jds, jd)
	s.tailorCreds = append(s.tailorCreds, cred)
	hook := s.tailorHook
	s.mu.Unlock()

	if hook != nil {
		if err := hook(ctx); err != nil {
			return nil, err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tailorErr != nil {
		return nil, s.tailorErr
	}
	return s.tailored.Clone(), nil
}

func (s *stubAPI) GeneratePDF(ctx context.Context, r *domain.Resume) ([]byte, error) {
	s.mu.Lock()
	hook := s.generateHook
	s.mu.Unlock()
	if hook != nil {
		return hook(ctx, r)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generateErr != nil {
		return nil, s.generateErr
	}
	return append([]byte(nil), s.pdf...), nil
}

func (s *stubAPI) ListHistory(_ context.Context) ([]domain.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listCalls++
	return append([]domain.HistoryEntry(nil), s.history...), nil
}

func (s *stubAPI) SaveHistory(ctx context.Context, jd string, content *domain.Resume) (*domain.HistoryEntry, error) {
	cred, _ := ports.CredentialFrom(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.historySaves = append(s.historySaves, ports.HistoryJob{Credential: cred, JobDescription: jd, Content: content.Clone()})
	return &domain.HistoryEntry{ID: int64(len(s.historySaves)), JobDescription: jd, Content: *content.Clone()}, nil
}

func (s *stubAPI) FetchHistoryItem(_ context.Context, id int64) (*domain.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.items[id]
	if !ok {
		return nil, &domain.APIError{Status: 404, Message: "Resume not found", Kind: domain.ErrNotFound}
	}
	out := *e
	return &out, nil
}

func (s *stubAPI) Ping(context.Context) error { return nil }

// stubKV is an in-memory ports.KeyValueStore.
type stubKV struct {
	mu     sync.Mutex
	data   map[string]string
	setErr error
	getErr error
}

func newStubKV() *stubKV {
	return &stubKV{data: make(map[string]string)}
}

func (s *stubKV) Get(_ context.Context, keys ...string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	out := make(map[string]string)
	for _, k := range keys {
		if v, ok := s.data[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

func (s *stubKV) Set(_ context.Context, entries map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.setErr != nil {
		return s.setErr
	}
	for k, v := range entries {
		s.data[k] = v
	}
	return nil
}

func (s *stubKV) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.data, k)
	}
	return nil
}

func (s *stubKV) Ping(context.Context) error { return nil }
func (s *stubKV) Close() error               { return nil }

// syncRecorder saves history inline so tests can assert on it directly.
type syncRecorder struct {
	api ports.ResumeAPI
}

func (r syncRecorder) Record(job ports.HistoryJob) {
	ctx := ports.WithCredential(context.Background(), job.Credential)
	_, _ = r.api.SaveHistory(ctx, job.JobDescription, job.Content)
}

func (syncRecorder) Discard() {}

// heldRecorder keeps jobs queued until the test inspects them.
type heldRecorder struct {
	mu   sync.Mutex
	jobs []ports.HistoryJob
}

func (r *heldRecorder) Record(job ports.HistoryJob) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs = append(r.jobs, job)
}

func (r *heldRecorder) Discard() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs = nil
}

func (r *heldRecorder) Queued() []ports.HistoryJob {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ports.HistoryJob(nil), r.jobs...)
}

// fixedSession is a SessionReader over a constant session.
type fixedSession struct {
	session domain.Session
}

func (s fixedSession) Current() (domain.Session, bool) {
	return s.session, s.session.Valid()
}

// fixedBase is a BaseProvider over a constant document.
type fixedBase struct {
	doc *domain.Resume
}

func (b fixedBase) Base() *domain.Resume { return b.doc.Clone() }
