package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/resumeforge/tailor-client/internal/core/domain"
	"github.com/resumeforge/tailor-client/internal/core/ports"
	"github.com/resumeforge/tailor-client/internal/pkg/metrics"
)

// HistorySelection is the state of the currently selected entry. Loading is
// scoped to this one selection.
type HistorySelection struct {
	EntryID  int64            `json:"entry_id"`
	Loading  bool             `json:"loading"`
	Artifact *domain.Artifact `json:"artifact,omitempty"`
	Error    string           `json:"error,omitempty"`
}

type HistorySnapshot struct {
	Loaded    bool                  `json:"loaded"`
	Entries   []domain.HistoryEntry `json:"entries"`
	Selection *HistorySelection     `json:"selection,omitempty"`
	Error     string                `json:"error,omitempty"`
	Seq       uint64                `json:"seq"`
}

func (s HistorySnapshot) Sequence() uint64 { return s.Seq }

// HistoryFlow lists past tailoring results newest-first and renders the
// selected one. The last selection wins: a result arriving after a newer
// selection is discarded.
type HistoryFlow struct {
	api       ports.ResumeAPI
	artifacts ports.ArtifactStore
	log       zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	loadMu sync.Mutex

	mu        sync.Mutex
	loaded    bool
	entries   []domain.HistoryEntry
	loadErr   error
	seq       uint64
	abort     context.CancelFunc
	selection *HistorySelection

	changes Broadcaster[HistorySnapshot]

	// onFailure sees background selection errors other than ErrSuperseded.
	onFailure func(error)
}

func NewHistoryFlow(api ports.ResumeAPI, artifacts ports.ArtifactStore, log zerolog.Logger) *HistoryFlow {
	ctx, cancel := context.WithCancel(context.Background())
	return &HistoryFlow{
		api:       api,
		artifacts: artifacts,
		log:       log.With().Str("component", "history_flow").Logger(),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Load fetches the history list once. Later calls return without I/O.
func (f *HistoryFlow) Load(ctx context.Context) error {
	f.loadMu.Lock()
	defer f.loadMu.Unlock()

	f.mu.Lock()
	loaded := f.loaded
	f.mu.Unlock()
	if loaded {
		return nil
	}

	entries, err := f.api.ListHistory(ctx)
	if err != nil {
		f.update(func() { f.loadErr = err })
		return fmt.Errorf("load history: %w", err)
	}
	f.update(func() {
		f.loaded = true
		f.loadErr = nil
		f.entries = domain.NewestFirst(entries)
	})
	metrics.FlowTransitionsTotal.WithLabelValues("history", "loaded").Inc()
	f.log.Debug().Int("entries", len(entries)).Msg("history loaded")
	return nil
}

// Select renders the entry with the given id and blocks until done. It
// returns domain.ErrSuperseded when a newer selection took over meanwhile.
func (f *HistoryFlow) Select(ctx context.Context, id int64) error {
	callCtx, seq, released := f.beginSelect(ctx, id)
	if released != nil {
		f.artifacts.Release(released.ID)
	}
	return f.render(callCtx, seq, id)
}

// StartSelect is Select in the background.
func (f *HistoryFlow) StartSelect(id int64) {
	callCtx, seq, released := f.beginSelect(f.ctx, id)
	if released != nil {
		f.artifacts.Release(released.ID)
	}
	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		if err := f.render(callCtx, seq, id); err != nil && !errors.Is(err, domain.ErrSuperseded) {
			f.log.Warn().Err(err).Int64("entry_id", id).Msg("history selection failed")
			if f.onFailure != nil {
				f.onFailure(err)
			}
		}
	}()
}

// beginSelect cancels interest in the pending selection and records the new
// one. It returns the previous selection's artifact for release.
func (f *HistoryFlow) beginSelect(parent context.Context, id int64) (context.Context, uint64, *domain.Artifact) {
	callCtx, abort := context.WithCancel(parent)

	f.mu.Lock()
	if f.abort != nil {
		f.abort()
	}
	f.seq++
	seq := f.seq
	f.abort = abort
	var released *domain.Artifact
	if f.selection != nil {
		released = f.selection.Artifact
	}
	f.selection = &HistorySelection{EntryID: id, Loading: true}
	f.changes.Stamp()
	snap := f.snapshotLocked()
	f.mu.Unlock()

	metrics.FlowTransitionsTotal.WithLabelValues("history", "selecting").Inc()
	f.changes.Publish(snap)
	return callCtx, seq, released
}

func (f *HistoryFlow) render(ctx context.Context, seq uint64, id int64) error {
	entry, err := f.entry(ctx, id)
	var pdf []byte
	if err == nil {
		pdf, err = f.api.GeneratePDF(ctx, &entry.Content)
	}

	f.mu.Lock()
	if seq != f.seq {
		f.mu.Unlock()
		metrics.StaleResultsDiscardedTotal.Inc()
		f.log.Debug().Int64("entry_id", id).Msg("stale selection result discarded")
		return domain.ErrSuperseded
	}
	f.abort()
	f.abort = nil
	if err != nil {
		f.selection = &HistorySelection{EntryID: id, Error: err.Error()}
		f.changes.Stamp()
		snap := f.snapshotLocked()
		f.mu.Unlock()

		metrics.FlowTransitionsTotal.WithLabelValues("history", "error").Inc()
		f.changes.Publish(snap)
		return fmt.Errorf("select history entry %d: %w", id, err)
	}
	art := f.artifacts.Put(pdf, domain.ContentTypePDF)
	f.selection = &HistorySelection{EntryID: id, Artifact: &art}
	f.changes.Stamp()
	snap := f.snapshotLocked()
	f.mu.Unlock()

	metrics.FlowTransitionsTotal.WithLabelValues("history", "selected").Inc()
	f.changes.Publish(snap)
	return nil
}

// entry looks id up in the loaded list and falls back to fetching it.
func (f *HistoryFlow) entry(ctx context.Context, id int64) (*domain.HistoryEntry, error) {
	f.mu.Lock()
	for i := range f.entries {
		if f.entries[i].ID == id {
			e := f.entries[i]
			f.mu.Unlock()
			return &e, nil
		}
	}
	f.mu.Unlock()
	return f.api.FetchHistoryItem(ctx, id)
}

// Entries returns the loaded list, newest first.
func (f *HistoryFlow) Entries() []domain.HistoryEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return copyEntries(f.entries)
}

// Selection returns the current selection, or nil.
func (f *HistoryFlow) Selection() *HistorySelection {
	f.mu.Lock()
	defer f.mu.Unlock()
	return copySelection(f.selection)
}

func (f *HistoryFlow) Snapshot() HistorySnapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshotLocked()
}

func (f *HistoryFlow) Subscribe(fn func(HistorySnapshot)) func() {
	return f.changes.Subscribe(fn)
}

// Reset drops the list and the selection so the next Load fetches again.
func (f *HistoryFlow) Reset() {
	f.loadMu.Lock()
	defer f.loadMu.Unlock()

	var released *domain.Artifact
	f.update(func() {
		if f.abort != nil {
			f.abort()
			f.abort = nil
		}
		f.seq++
		if f.selection != nil {
			released = f.selection.Artifact
		}
		f.selection = nil
		f.loaded = false
		f.entries = nil
		f.loadErr = nil
	})
	if released != nil {
		f.artifacts.Release(released.ID)
	}
}

// Wait blocks until background selections have finished.
func (f *HistoryFlow) Wait() {
	f.wg.Wait()
}

// Close cancels pending selections and releases the displayed artifact.
func (f *HistoryFlow) Close() {
	f.cancel()
	f.wg.Wait()
	f.Reset()
}

func (f *HistoryFlow) update(fn func()) {
	f.mu.Lock()
	fn()
	f.changes.Stamp()
	snap := f.snapshotLocked()
	f.mu.Unlock()
	f.changes.Publish(snap)
}

func (f *HistoryFlow) snapshotLocked() HistorySnapshot {
	snap := HistorySnapshot{
		Loaded:    f.loaded,
		Entries:   copyEntries(f.entries),
		Selection: copySelection(f.selection),
		Seq:       f.changes.Seq(),
	}
	if f.loadErr != nil {
		snap.Error = f.loadErr.Error()
	}
	return snap
}

func copyEntries(in []domain.HistoryEntry) []domain.HistoryEntry {
	out := make([]domain.HistoryEntry, len(in))
	for i, e := range in {
		out[i] = e
		out[i].Content = *e.Content.Clone()
	}
	return out
}

func copySelection(s *HistorySelection) *HistorySelection {
	if s == nil {
		return nil
	}
	out := *s
	if s.Artifact != nil {
		art := *s.Artifact
		out.Artifact = &art
	}
	return &out
}
