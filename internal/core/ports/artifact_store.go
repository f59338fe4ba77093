package ports

import "github.com/resumeforge/tailor-client/internal/core/domain"

// ArtifactStore holds generated binaries until they are explicitly released.
type ArtifactStore interface {
	Put(data []byte, contentType string) domain.Artifact
	Get(id string) (domain.Artifact, []byte, error)
	Release(id string)
	Live() int
}
