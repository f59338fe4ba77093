package service

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/resumeforge/tailor-client/internal/core/domain"
	"github.com/resumeforge/tailor-client/internal/core/ports"
	"github.com/resumeforge/tailor-client/internal/pkg/metrics"
)

type storedArtifact struct {
	meta domain.Artifact
	data []byte
}

// ArtifactRegistry keeps generated binaries in memory until their owner
// releases them.
type ArtifactRegistry struct {
	mu    sync.RWMutex
	items map[string]storedArtifact
	now   func() time.Time
}

var _ ports.ArtifactStore = (*ArtifactRegistry)(nil)

func NewArtifactRegistry() *ArtifactRegistry {
	return &ArtifactRegistry{items: make(map[string]storedArtifact), now: time.Now}
}

func (r *ArtifactRegistry) Put(data []byte, contentType string) domain.Artifact {
	meta := domain.Artifact{
		ID:          uuid.NewString(),
		ContentType: contentType,
		Size:        len(data),
		CreatedAt:   r.now().UTC(),
	}
	r.mu.Lock()
	r.items[meta.ID] = storedArtifact{meta: meta, data: data}
	r.mu.Unlock()
	metrics.ArtifactsLive.Inc()
	return meta
}

func (r *ArtifactRegistry) Get(id string) (domain.Artifact, []byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	item, ok := r.items[id]
	if !ok {
		return domain.Artifact{}, nil, domain.ErrArtifactNotFound
	}
	return item.meta, item.data, nil
}

// Release drops the artifact. Unknown or already released ids are ignored.
func (r *ArtifactRegistry) Release(id string) {
	if id == "" {
		return
	}
	r.mu.Lock()
	_, ok := r.items[id]
	delete(r.items, id)
	r.mu.Unlock()
	if ok {
		metrics.ArtifactsLive.Dec()
	}
}

func (r *ArtifactRegistry) Live() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}
