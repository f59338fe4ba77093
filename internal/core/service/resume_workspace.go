package service

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"

	"github.com/resumeforge/tailor-client/internal/core/document"
	"github.com/resumeforge/tailor-client/internal/core/domain"
	"github.com/resumeforge/tailor-client/internal/core/ports"
	"github.com/resumeforge/tailor-client/internal/pkg/metrics"
)

// WorkspaceSnapshot is the observable state of the base resume.
type WorkspaceSnapshot struct {
	Loaded    bool           `json:"loaded"`
	Base      *domain.Resume `json:"base"`
	Mirror    string         `json:"mirror"`
	Editing   bool           `json:"editing"`
	Draft     string         `json:"draft,omitempty"`
	Importing bool           `json:"importing"`
	Saving    bool           `json:"saving"`
	Error     string         `json:"error,omitempty"`
	Seq       uint64         `json:"seq"`
}

func (s WorkspaceSnapshot) Sequence() uint64 { return s.Seq }

// ResumeWorkspace holds the canonical base resume and its editable text
// mirror. The base is only ever replaced by a document that passed
// validation and was accepted by the remote service.
type ResumeWorkspace struct {
	api ports.ResumeAPI
	log zerolog.Logger

	// ops serializes the network-backed operations.
	ops sync.Mutex

	mu        sync.RWMutex
	loaded    bool
	base      *domain.Resume
	mirror    string
	editing   bool
	draft     string
	importing bool
	saving    bool
	lastErr   error
	// gen counts resets; an operation started in an earlier generation
	// must not touch the state.
	gen uint64

	changes Broadcaster[WorkspaceSnapshot]
}

func NewResumeWorkspace(api ports.ResumeAPI, log zerolog.Logger) *ResumeWorkspace {
	return &ResumeWorkspace{
		api: api,
		log: log.With().Str("component", "resume").Logger(),
	}
}

// Load fetches the base resume. A user without one yet is not an error.
func (w *ResumeWorkspace) Load(ctx context.Context) error {
	w.ops.Lock()
	defer w.ops.Unlock()
	gen := w.generation()

	doc, err := w.api.FetchBaseResume(ctx)
	if err != nil {
		if !w.failAt(gen, err) {
			return fmt.Errorf("load base resume: %w", domain.ErrSessionEnded)
		}
		return fmt.Errorf("load base resume: %w", err)
	}
	if !w.commit(gen, func() {
		w.loaded = true
		w.lastErr = nil
		w.replaceBase(doc)
	}) {
		return fmt.Errorf("load base resume: %w", domain.ErrSessionEnded)
	}
	return nil
}

// Import parses a PDF remotely, persists the result as the base and only then
// replaces the canonical copy. Any failure leaves the base untouched.
func (w *ResumeWorkspace) Import(ctx context.Context, filename string, file io.Reader) error {
	w.ops.Lock()
	defer w.ops.Unlock()
	gen := w.generation()

	w.commit(gen, func() { w.importing = true })

	doc, err := w.api.ParsePDF(ctx, filename, file)
	if err == nil {
		err = w.api.SaveBaseResume(ctx, doc)
	}
	if err != nil {
		w.log.Error().Err(err).Str("filename", filename).Int("status", domain.StatusOf(err)).Msg("import failed")
		w.commit(gen, func() {
			w.importing = false
			w.lastErr = err
		})
		return fmt.Errorf("import resume: %w", err)
	}

	if !w.commit(gen, func() {
		w.importing = false
		w.loaded = true
		w.lastErr = nil
		w.editing = false
		w.draft = ""
		w.replaceBase(doc)
	}) {
		return fmt.Errorf("import resume: %w", domain.ErrSessionEnded)
	}
	metrics.FlowTransitionsTotal.WithLabelValues("resume", "imported").Inc()
	return nil
}

// BeginEdit opens an edit session whose draft starts as the current mirror.
// Opening an already open session keeps its draft.
func (w *ResumeWorkspace) BeginEdit() {
	w.update(func() {
		if w.editing {
			return
		}
		w.editing = true
		w.draft = w.mirror
		w.lastErr = nil
	})
}

// UpdateDraft replaces the draft text. The text is not validated until Save.
func (w *ResumeWorkspace) UpdateDraft(text string) error {
	var err error
	w.update(func() {
		if !w.editing {
			err = domain.ErrNotEditing
			return
		}
		w.draft = text
	})
	return err
}

// CancelEdit discards the draft and resynchronizes it with the base.
func (w *ResumeWorkspace) CancelEdit() {
	w.update(func() {
		w.editing = false
		w.draft = ""
		w.lastErr = nil
		w.mirror = document.Pretty(w.base)
	})
}

// Save validates the draft and, once the remote service accepts it, makes it
// the base and closes the edit session. On failure the session stays open
// with the draft intact.
func (w *ResumeWorkspace) Save(ctx context.Context) error {
	w.ops.Lock()
	defer w.ops.Unlock()

	w.mu.RLock()
	editing, draft, gen := w.editing, w.draft, w.gen
	w.mu.RUnlock()
	if !editing {
		return domain.ErrNotEditing
	}

	doc, err := document.Deserialize(draft)
	if err != nil {
		w.failAt(gen, err)
		return fmt.Errorf("save resume: %w", err)
	}

	w.commit(gen, func() { w.saving = true })
	if err := w.api.SaveBaseResume(ctx, doc); err != nil {
		w.commit(gen, func() {
			w.saving = false
			w.lastErr = err
		})
		return fmt.Errorf("save resume: %w", err)
	}

	if !w.commit(gen, func() {
		w.saving = false
		w.lastErr = nil
		w.editing = false
		w.draft = ""
		w.loaded = true
		w.replaceBase(doc)
	}) {
		return fmt.Errorf("save resume: %w", domain.ErrSessionEnded)
	}
	metrics.FlowTransitionsTotal.WithLabelValues("resume", "saved").Inc()
	return nil
}

// SaveAsBase promotes doc, typically a tailored result, to be the new base.
// This is the only way a derived document becomes the base.
func (w *ResumeWorkspace) SaveAsBase(ctx context.Context, doc *domain.Resume) error {
	w.ops.Lock()
	defer w.ops.Unlock()
	gen := w.generation()

	valid, err := document.Validate(doc)
	if err != nil {
		w.failAt(gen, err)
		return fmt.Errorf("promote resume: %w", err)
	}
	if err := w.api.SaveBaseResume(ctx, valid); err != nil {
		w.failAt(gen, err)
		return fmt.Errorf("promote resume: %w", err)
	}

	if !w.commit(gen, func() {
		w.lastErr = nil
		w.loaded = true
		w.replaceBase(valid)
	}) {
		return fmt.Errorf("promote resume: %w", domain.ErrSessionEnded)
	}
	metrics.FlowTransitionsTotal.WithLabelValues("resume", "promoted").Inc()
	return nil
}

// Base returns a copy of the canonical base resume, or nil when there is none.
func (w *ResumeWorkspace) Base() *domain.Resume {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.base.Clone()
}

func (w *ResumeWorkspace) Snapshot() WorkspaceSnapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.snapshotLocked()
}

func (w *ResumeWorkspace) Subscribe(fn func(WorkspaceSnapshot)) func() {
	return w.changes.Subscribe(fn)
}

// Reset forgets everything held for the previous session. Operations still
// in flight finish without touching the state.
func (w *ResumeWorkspace) Reset() {
	w.update(func() {
		w.gen++
		w.loaded = false
		w.base = nil
		w.mirror = ""
		w.editing = false
		w.draft = ""
		w.importing = false
		w.saving = false
		w.lastErr = nil
	})
}

// replaceBase must be called with mu held.
func (w *ResumeWorkspace) replaceBase(doc *domain.Resume) {
	w.base = doc.Clone()
	w.mirror = document.Pretty(w.base)
}

func (w *ResumeWorkspace) generation() uint64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.gen
}

func (w *ResumeWorkspace) failAt(gen uint64, err error) bool {
	return w.commit(gen, func() { w.lastErr = err })
}

// commit applies fn unless the workspace was reset since gen. It reports
// whether fn ran.
func (w *ResumeWorkspace) commit(gen uint64, fn func()) bool {
	w.mu.Lock()
	if w.gen != gen {
		w.mu.Unlock()
		w.log.Debug().Msg("result of an ended session discarded")
		return false
	}
	fn()
	w.changes.Stamp()
	snap := w.snapshotLocked()
	w.mu.Unlock()
	w.changes.Publish(snap)
	return true
}

func (w *ResumeWorkspace) update(fn func()) {
	w.mu.Lock()
	fn()
	w.changes.Stamp()
	snap := w.snapshotLocked()
	w.mu.Unlock()
	w.changes.Publish(snap)
}

func (w *ResumeWorkspace) snapshotLocked() WorkspaceSnapshot {
	snap := WorkspaceSnapshot{
		Loaded:    w.loaded,
		Base:      w.base.Clone(),
		Mirror:    w.mirror,
		Editing:   w.editing,
		Draft:     w.draft,
		Importing: w.importing,
		Saving:    w.saving,
		Seq:       w.changes.Seq(),
	}
	if w.lastErr != nil {
		snap.Error = w.lastErr.Error()
	}
	return snap
}
