package ports

import "github.com/resumeforge/tailor-client/internal/core/domain"

// HistoryJob is one best-effort history save queued after a successful
// tailoring run. Owner and Credential are captured when the run starts so the
// entry lands in the account that produced it.
type HistoryJob struct {
	Owner          string
	Credential     string
	JobDescription string
	Content        *domain.Resume
}

// HistoryRecorder persists history entries off the flow path. Record never
// blocks on the network and never reports failure to the caller.
type HistoryRecorder interface {
	Record(job HistoryJob)
	// Discard drops every job queued so far that has not been sent yet.
	Discard()
}
