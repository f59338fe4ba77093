package ports

import (
	"context"
	"io"

	"github.com/resumeforge/tailor-client/internal/core/domain"
)

// CredentialSource supplies the bearer credential for protected calls.
type CredentialSource interface {
	// Credential returns the current credential and whether one is present.
	Credential() (string, bool)
}

// AuthAPI is the unauthenticated part of the remote service.
type AuthAPI interface {
	Login(ctx context.Context, username, password string) (*domain.AuthGrant, error)
	Signup(ctx context.Context, username, password string) (*domain.AuthGrant, error)
}

// ResumeAPI is the sole channel to the remote service. Every failure is a
// *domain.APIError whose Kind classifies it.
type ResumeAPI interface {
	AuthAPI

	// FetchBaseResume returns (nil, nil) when the user has no base resume yet.
	FetchBaseResume(ctx context.Context) (*domain.Resume, error)
	SaveBaseResume(ctx context.Context, resume *domain.Resume) error
	ParsePDF(ctx context.Context, filename string, file io.Reader) (*domain.Resume, error)
	TailorResume(ctx context.Context, jd domain.JobDescription) (*domain.Resume, error)
	// GeneratePDF is public and returns the raw PDF bytes.
	GeneratePDF(ctx context.Context, resume *domain.Resume) ([]byte, error)

	ListHistory(ctx context.Context) ([]domain.HistoryEntry, error)
	SaveHistory(ctx context.Context, jobDescription string, content *domain.Resume) (*domain.HistoryEntry, error)
	FetchHistoryItem(ctx context.Context, id int64) (*domain.HistoryEntry, error)

	// Ping reports whether the remote service is reachable.
	Ping(ctx context.Context) error
}

type credentialKey struct{}

// WithCredential pins token on ctx. Protected calls made with the returned
// context send token instead of asking the CredentialSource.
func WithCredential(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, credentialKey{}, token)
}

// CredentialFrom returns the token pinned on ctx, if any.
func CredentialFrom(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(credentialKey{}).(string)
	return token, ok && token != ""
}

// CredentialFunc adapts a function to CredentialSource.
type CredentialFunc func() (string, bool)

func (f CredentialFunc) Credential() (string, bool) {
	return f()
}
