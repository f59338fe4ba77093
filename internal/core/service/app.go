package service

import (
	"context"
	"io"

	"github.com/rs/zerolog"

	"github.com/resumeforge/tailor-client/internal/core/domain"
	"github.com/resumeforge/tailor-client/internal/core/ports"
)

// App wires the session, the base resume workspace and both flows for one
// client. Signing out resets everything the previous user left behind.
type App struct {
	Session   *SessionStore
	Resume    *ResumeWorkspace
	Tailor    *TailorFlow
	History   *HistoryFlow
	Artifacts ports.ArtifactStore

	log         zerolog.Logger
	unsubscribe func()
}

func NewApp(
	api ports.ResumeAPI,
	session *SessionStore,
	artifacts ports.ArtifactStore,
	recorder ports.HistoryRecorder,
	log zerolog.Logger,
) *App {
	resume := NewResumeWorkspace(api, log)
	a := &App{
		Session:   session,
		Resume:    resume,
		Tailor:    NewTailorFlow(api, session, resume, artifacts, recorder, log),
		History:   NewHistoryFlow(api, artifacts, log),
		Artifacts: artifacts,
		log:       log.With().Str("component", "app").Logger(),
	}
	unsubSession := session.Subscribe(func(ev SessionEvent) {
		if ev.State == domain.AuthUnauthenticated {
			a.Resume.Reset()
			a.Tailor.Abandon()
			a.History.Reset()
			// Saves still queued belong to the user who just left.
			if recorder != nil {
				recorder.Discard()
			}
		}
	})
	// Background runs have no caller to hand a rejected credential to.
	unsubTailor := a.Tailor.Subscribe(func(s TailorSnapshot) {
		if s.State == domain.FlowError {
			a.signOutIfRejected(context.Background(), a.Tailor.Err())
		}
	})
	a.History.onFailure = func(err error) { a.signOutIfRejected(context.Background(), err) }
	a.unsubscribe = func() {
		unsubSession()
		unsubTailor()
	}
	return a
}

// Start rehydrates the session and, when signed in, loads the base resume.
func (a *App) Start(ctx context.Context) error {
	if err := a.Session.Rehydrate(ctx); err != nil {
		return err
	}
	if _, ok := a.Session.Current(); ok {
		a.loadBase(ctx)
	}
	return nil
}

func (a *App) Login(ctx context.Context, username, password string) (domain.Session, error) {
	session, err := a.Session.Login(ctx, username, password)
	if err != nil {
		return domain.Session{}, err
	}
	a.loadBase(ctx)
	return session, nil
}

func (a *App) Signup(ctx context.Context, username, password string) (domain.Session, error) {
	session, err := a.Session.Signup(ctx, username, password)
	if err != nil {
		return domain.Session{}, err
	}
	a.loadBase(ctx)
	return session, nil
}

func (a *App) Logout(ctx context.Context) error {
	return a.Session.Logout(ctx)
}

// Import forwards to the workspace and drops the session when the remote
// service rejected it.
func (a *App) Import(ctx context.Context, filename string, file io.Reader) error {
	return a.Check(ctx, a.Resume.Import(ctx, filename, file))
}

// Promote makes the last tailored document the base resume.
func (a *App) Promote(ctx context.Context) error {
	derived := a.Tailor.Derived()
	if derived == nil {
		return domain.ErrNoTailoredResume
	}
	return a.Check(ctx, a.Resume.SaveAsBase(ctx, derived))
}

// Check signs out when err shows the credential expired server-side, and
// returns err unchanged.
func (a *App) Check(ctx context.Context, err error) error {
	a.signOutIfRejected(ctx, err)
	return err
}

func (a *App) signOutIfRejected(ctx context.Context, err error) {
	if !IsSessionRejected(err) {
		return
	}
	a.log.Warn().Err(err).Msg("credential rejected, signing out")
	if logoutErr := a.Session.Logout(ctx); logoutErr != nil {
		a.log.Warn().Err(logoutErr).Msg("clearing rejected session")
	}
}

func (a *App) loadBase(ctx context.Context) {
	err := a.Resume.Load(ctx)
	if err == nil {
		return
	}
	a.log.Warn().Err(err).Msg("base resume not loaded")
	_ = a.Check(ctx, err)
}

// Close stops background work and releases every held artifact.
func (a *App) Close() {
	a.unsubscribe()
	a.Tailor.Close()
	a.History.Close()
}
