package service

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/resumeforge/tailor-client/internal/core/domain"
	"github.com/resumeforge/tailor-client/internal/core/ports"
	"github.com/resumeforge/tailor-client/internal/pkg/metrics"
)

// BaseProvider supplies the canonical base resume, or nil when there is none.
type BaseProvider interface {
	Base() *domain.Resume
}

// SessionReader exposes the signed-in session a run is bound to.
type SessionReader interface {
	Current() (domain.Session, bool)
}

// TailorSnapshot is the observable state of a tailoring flow.
type TailorSnapshot struct {
	State          domain.FlowState `json:"state"`
	CanTailor      bool             `json:"can_tailor"`
	JobDescription string           `json:"job_description"`
	Derived        *domain.Resume   `json:"derived,omitempty"`
	Artifact       *domain.Artifact `json:"artifact,omitempty"`
	Error          string           `json:"error,omitempty"`
	ErrorStatus    int              `json:"error_status,omitempty"`
	Seq            uint64           `json:"seq"`
}

func (s TailorSnapshot) Sequence() uint64 { return s.Seq }

// TailorFlow sequences tailor -> generate -> record for one panel. At most one
// run is in flight; a new run is only accepted from idle, complete or error.
type TailorFlow struct {
	api       ports.ResumeAPI
	session   SessionReader
	base      BaseProvider
	artifacts ports.ArtifactStore
	recorder  ports.HistoryRecorder
	log       zerolog.Logger

	// ctx bounds background runs started with Start; Close cancels it.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	state    domain.FlowState
	jd       domain.JobDescription
	derived  *domain.Resume
	artifact *domain.Artifact
	err      error
	closed   bool
	abortRun context.CancelFunc

	changes Broadcaster[TailorSnapshot]
}

func NewTailorFlow(
	api ports.ResumeAPI,
	session SessionReader,
	base BaseProvider,
	artifacts ports.ArtifactStore,
	recorder ports.HistoryRecorder,
	log zerolog.Logger,
) *TailorFlow {
	ctx, cancel := context.WithCancel(context.Background())
	return &TailorFlow{
		api:       api,
		session:   session,
		base:      base,
		artifacts: artifacts,
		recorder:  recorder,
		log:       log.With().Str("component", "tailor_flow").Logger(),
		ctx:       ctx,
		cancel:    cancel,
		state:     domain.FlowIdle,
	}
}

// Tailor runs the flow to completion and reports whether it started. A run
// rejected by the entry guard is a no-op, not a failure; the outcome of a
// started run is read from Snapshot.
func (f *TailorFlow) Tailor(ctx context.Context, jd domain.JobDescription) bool {
	ctx, abort := context.WithCancel(ctx)
	defer abort()
	base, owner, ok := f.begin(jd, abort)
	if !ok {
		return false
	}
	f.wg.Add(1)
	defer f.wg.Done()
	f.run(ctx, jd, base, owner)
	return true
}

// Start is Tailor in the background. The guard is evaluated before Start
// returns.
func (f *TailorFlow) Start(jd domain.JobDescription) bool {
	ctx, abort := context.WithCancel(f.ctx)
	base, owner, ok := f.begin(jd, abort)
	if !ok {
		abort()
		return false
	}
	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		defer abort()
		f.run(ctx, jd, base, owner)
	}()
	return true
}

// begin applies the entry guard, captures the session the run belongs to
// and moves to tailoring.
func (f *TailorFlow) begin(jd domain.JobDescription, abort context.CancelFunc) (*domain.Resume, domain.Session, bool) {
	jd.RawText = strings.TrimSpace(jd.RawText)
	if jd.RawText == "" {
		return nil, domain.Session{}, false
	}
	base := f.base.Base()
	if base == nil {
		return nil, domain.Session{}, false
	}
	var owner domain.Session
	if f.session != nil {
		owner, _ = f.session.Current()
	}

	f.mu.Lock()
	if f.closed || !f.state.AcceptsAction() {
		f.mu.Unlock()
		return nil, domain.Session{}, false
	}
	superseded := f.artifact
	f.jd = jd
	f.derived = nil
	f.artifact = nil
	f.err = nil
	f.abortRun = abort
	f.enterLocked(domain.FlowTailoring)
	snap := f.snapshotLocked()
	f.mu.Unlock()

	if superseded != nil {
		f.artifacts.Release(superseded.ID)
	}
	f.changes.Publish(snap)
	return base, owner, true
}

func (f *TailorFlow) run(ctx context.Context, jd domain.JobDescription, base *domain.Resume, owner domain.Session) {
	if owner.Valid() {
		ctx = ports.WithCredential(ctx, owner.Credential)
	}
	f.log.Info().Int("jd_length", len(jd.RawText)).Str("name", base.Contact.Name).Msg("tailoring started")

	derived, err := f.api.TailorResume(ctx, jd)
	if err != nil {
		f.failed("tailor", err)
		return
	}
	f.transition(domain.FlowGenerating, func() { f.derived = derived.Clone() })

	pdf, err := f.api.GeneratePDF(ctx, derived)
	if err != nil {
		f.failed("generate", err)
		return
	}

	art := f.artifacts.Put(pdf, domain.ContentTypePDF)
	kept := f.transition(domain.FlowComplete, func() { f.artifact = &art })
	if !kept {
		f.artifacts.Release(art.ID)
		return
	}
	f.log.Info().Str("artifact_id", art.ID).Int("size", art.Size).Msg("tailoring complete")

	if f.recorder != nil {
		f.recorder.Record(ports.HistoryJob{
			Owner:          owner.Identity,
			Credential:     owner.Credential,
			JobDescription: jd.RawText,
			Content:        derived.Clone(),
		})
	}
}

func (f *TailorFlow) failed(step string, err error) {
	f.log.Error().Err(err).Str("step", step).Int("status", domain.StatusOf(err)).Msg("tailoring failed")
	f.transition(domain.FlowError, func() { f.err = err })
}

// transition applies mutate and enters next when the table allows it. It
// reports false when the flow was closed or the transition is not allowed.
func (f *TailorFlow) transition(next domain.FlowState, mutate func()) bool {
	f.mu.Lock()
	if f.closed || !f.state.CanTransitionTo(next) {
		from := f.state
		f.mu.Unlock()
		f.log.Warn().Str("from", string(from)).Str("to", string(next)).Msg("transition dropped")
		return false
	}
	mutate()
	f.enterLocked(next)
	snap := f.snapshotLocked()
	f.mu.Unlock()

	f.changes.Publish(snap)
	return true
}

func (f *TailorFlow) enterLocked(next domain.FlowState) {
	f.changes.Stamp()
	f.state = next
	metrics.FlowTransitionsTotal.WithLabelValues("tailor", string(next)).Inc()
}

// Reset returns a finished flow to idle and releases its artifact. It reports
// false while a run is in progress.
func (f *TailorFlow) Reset() bool {
	f.mu.Lock()
	if f.state.InProgress() {
		f.mu.Unlock()
		return false
	}
	released := f.artifact
	if f.state != domain.FlowIdle {
		f.enterLocked(domain.FlowIdle)
	} else {
		f.changes.Stamp()
	}
	f.jd = domain.JobDescription{}
	f.derived = nil
	f.artifact = nil
	f.err = nil
	f.abortRun = nil
	snap := f.snapshotLocked()
	f.mu.Unlock()

	if released != nil {
		f.artifacts.Release(released.ID)
	}
	f.changes.Publish(snap)
	return true
}

// Derived returns a copy of the tailored document of the last successful
// run, or nil.
func (f *TailorFlow) Derived() *domain.Resume {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.derived.Clone()
}

func (f *TailorFlow) State() domain.FlowState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Err returns the failure retained by the error state.
func (f *TailorFlow) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

func (f *TailorFlow) Snapshot() TailorSnapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshotLocked()
}

func (f *TailorFlow) Subscribe(fn func(TailorSnapshot)) func() {
	return f.changes.Subscribe(fn)
}

// Abandon cancels the run in flight, if any, and returns the flow to idle.
func (f *TailorFlow) Abandon() {
	if f.Reset() {
		return
	}
	f.mu.Lock()
	abort := f.abortRun
	f.mu.Unlock()
	if abort != nil {
		abort()
	}
	f.wg.Wait()
	f.Reset()
}

// Wait blocks until background runs have finished.
func (f *TailorFlow) Wait() {
	f.wg.Wait()
}

// Close cancels background runs, waits for them and releases the artifact.
func (f *TailorFlow) Close() {
	f.cancel()
	f.wg.Wait()

	f.mu.Lock()
	f.closed = true
	released := f.artifact
	f.artifact = nil
	f.mu.Unlock()

	if released != nil {
		f.artifacts.Release(released.ID)
	}
}

func (f *TailorFlow) snapshotLocked() TailorSnapshot {
	snap := TailorSnapshot{
		State:          f.state,
		CanTailor:      !f.closed && f.state.AcceptsAction() && f.base.Base() != nil,
		JobDescription: f.jd.RawText,
		Derived:        f.derived.Clone(),
		Seq:            f.changes.Seq(),
	}
	if f.artifact != nil {
		art := *f.artifact
		snap.Artifact = &art
	}
	if f.err != nil {
		snap.Error = f.err.Error()
		snap.ErrorStatus = domain.StatusOf(f.err)
	}
	return snap
}
