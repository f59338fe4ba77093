package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resumeforge/tailor-client/internal/core/domain"
)

func historyEntry(id int64, jd string) domain.HistoryEntry {
	content := tailoredFrom(sampleBase())
	content.Summary = jd
	return domain.HistoryEntry{ID: id, JobDescription: jd, Content: *content}
}

func newHistoryFixture() (*HistoryFlow, *stubAPI, *ArtifactRegistry) {
	api := &stubAPI{
		history: []domain.HistoryEntry{historyEntry(1, "e1"), historyEntry(2, "e2"), historyEntry(3, "e3")},
		pdf:     []byte("%PDF-1.4"),
	}
	reg := NewArtifactRegistry()
	return NewHistoryFlow(api, reg, zerolog.Nop()), api, reg
}

func TestHistoryFlow_LoadReversesOnce(t *testing.T) {
	flow, api, _ := newHistoryFixture()

	require.NoError(t, flow.Load(context.Background()))
	require.NoError(t, flow.Load(context.Background()))

	var ids []int64
	for _, e := range flow.Entries() {
		ids = append(ids, e.ID)
	}
	assert.Equal(t, []int64{3, 2, 1}, ids)
	assert.Equal(t, 1, api.listCalls)
	assert.Equal(t, int64(1), api.history[0].ID, "server slice untouched")
}

func TestHistoryFlow_EntriesAreReadOnlyCopies(t *testing.T) {
	flow, _, _ := newHistoryFixture()
	require.NoError(t, flow.Load(context.Background()))

	entries := flow.Entries()
	entries[0].Content.Skills[0].Skills[0] = "mutated"
	assert.Equal(t, "Python", flow.Entries()[0].Content.Skills[0].Skills[0])
}

func TestHistoryFlow_Select(t *testing.T) {
	flow, api, reg := newHistoryFixture()
	require.NoError(t, flow.Load(context.Background()))

	var rendered []string
	api.generateHook = func(_ context.Context, r *domain.Resume) ([]byte, error) {
		rendered = append(rendered, r.Summary)
		return []byte("%PDF " + r.Summary), nil
	}

	require.NoError(t, flow.Select(context.Background(), 2))
	sel := flow.Selection()
	require.NotNil(t, sel)
	assert.Equal(t, int64(2), sel.EntryID)
	assert.False(t, sel.Loading)
	require.NotNil(t, sel.Artifact)

	_, pdf, err := reg.Get(sel.Artifact.ID)
	require.NoError(t, err)
	assert.Equal(t, "%PDF e2", string(pdf))

	require.NoError(t, flow.Select(context.Background(), 2))
	assert.Equal(t, []string{"e2", "e2"}, rendered, "every selection regenerates")
	assert.Equal(t, 1, reg.Live(), "previous selection artifact released")
}

func TestHistoryFlow_SelectFallsBackToFetch(t *testing.T) {
	flow, api, _ := newHistoryFixture()
	extra := historyEntry(42, "fetched")
	api.items = map[int64]*domain.HistoryEntry{42: &extra}

	require.NoError(t, flow.Select(context.Background(), 42))
	assert.NotNil(t, flow.Selection().Artifact)

	err := flow.Select(context.Background(), 99)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	sel := flow.Selection()
	assert.Equal(t, int64(99), sel.EntryID)
	assert.False(t, sel.Loading)
	assert.Nil(t, sel.Artifact)
	assert.NotEmpty(t, sel.Error)
}

func TestHistoryFlow_LastSelectionWins(t *testing.T) {
	flow, api, reg := newHistoryFixture()
	require.NoError(t, flow.Load(context.Background()))

	releaseA := make(chan struct{})
	startedA := make(chan struct{})
	api.generateHook = func(ctx context.Context, r *domain.Resume) ([]byte, error) {
		if r.Summary == "e1" {
			close(startedA)
			// The response arrives late, regardless of cancellation.
			<-releaseA
			return []byte("%PDF A"), nil
		}
		return []byte("%PDF B"), nil
	}

	errA := make(chan error, 1)
	go func() { errA <- flow.Select(context.Background(), 1) }()
	<-startedA

	assert.True(t, flow.Selection().Loading)

	require.NoError(t, flow.Select(context.Background(), 3))
	close(releaseA)
	assert.ErrorIs(t, <-errA, domain.ErrSuperseded)

	sel := flow.Selection()
	require.NotNil(t, sel)
	assert.Equal(t, int64(3), sel.EntryID)
	require.NotNil(t, sel.Artifact)
	_, pdf, err := reg.Get(sel.Artifact.ID)
	require.NoError(t, err)
	assert.Equal(t, "%PDF B", string(pdf))
	assert.Equal(t, 1, reg.Live(), "stale result never becomes an artifact")
}

func TestHistoryFlow_NewSelectionCancelsPendingCall(t *testing.T) {
	flow, api, _ := newHistoryFixture()
	require.NoError(t, flow.Load(context.Background()))

	cancelled := make(chan struct{})
	api.generateHook = func(ctx context.Context, r *domain.Resume) ([]byte, error) {
		if r.Summary == "e1" {
			<-ctx.Done()
			close(cancelled)
			return nil, &domain.APIError{Message: "cancelled", Kind: ctx.Err()}
		}
		return []byte("%PDF"), nil
	}

	flow.StartSelect(1)
	require.NoError(t, flow.Select(context.Background(), 2))
	<-cancelled
	flow.Wait()

	assert.Equal(t, int64(2), flow.Selection().EntryID)
	assert.Empty(t, flow.Selection().Error)
}

func TestHistoryFlow_ResetAndClose(t *testing.T) {
	flow, api, reg := newHistoryFixture()
	require.NoError(t, flow.Load(context.Background()))
	require.NoError(t, flow.Select(context.Background(), 1))

	flow.Reset()
	assert.Empty(t, flow.Entries())
	assert.Nil(t, flow.Selection())
	assert.Zero(t, reg.Live())

	require.NoError(t, flow.Load(context.Background()))
	assert.Equal(t, 2, api.listCalls)

	require.NoError(t, flow.Select(context.Background(), 1))
	flow.Close()
	assert.Zero(t, reg.Live())
}
