// Package queue runs best-effort history saves off the tailoring flow path.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/resumeforge/tailor-client/internal/core/ports"
	"github.com/resumeforge/tailor-client/internal/pkg/metrics"
)

const (
	channelBuffer      = 64
	defaultSaveTimeout = 30 * time.Second
)

// Dispatcher feeds queued history jobs to a single worker so entries reach
// the server in the order their runs completed.
type Dispatcher struct {
	jobs    chan queued
	api     ports.ResumeAPI
	timeout time.Duration
	log     zerolog.Logger

	pending sync.WaitGroup
	done    chan struct{}

	mu sync.Mutex
	// seq numbers queued jobs; jobs at or below cutoff were discarded.
	seq    uint64
	cutoff uint64
}

type queued struct {
	job ports.HistoryJob
	seq uint64
}

var _ ports.HistoryRecorder = (*Dispatcher)(nil)

// NewDispatcher creates a Dispatcher. A timeout <= 0 uses defaultSaveTimeout.
func NewDispatcher(api ports.ResumeAPI, timeout time.Duration, log zerolog.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = defaultSaveTimeout
	}
	return &Dispatcher{
		jobs:    make(chan queued, channelBuffer),
		api:     api,
		timeout: timeout,
		log:     log.With().Str("component", "history_recorder").Logger(),
		done:    make(chan struct{}),
	}
}

// Start launches the worker. It stops when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	go d.runWorker(ctx)
}

// Record queues job without blocking. When the buffer is full the job is
// dropped and counted as a failed save.
func (d *Dispatcher) Record(job ports.HistoryJob) {
	if job.Credential == "" {
		metrics.HistorySaveFailuresTotal.Inc()
		d.log.Warn().Msg("history job without credential, entry dropped")
		return
	}
	d.mu.Lock()
	d.seq++
	q := queued{job: job, seq: d.seq}
	d.mu.Unlock()

	d.pending.Add(1)
	select {
	case d.jobs <- q:
	default:
		d.pending.Done()
		metrics.HistorySaveFailuresTotal.Inc()
		d.log.Warn().Msg("history queue full, entry dropped")
	}
}

// Discard drops every job queued so far. A save already on the wire
// completes under its own credential.
func (d *Dispatcher) Discard() {
	d.mu.Lock()
	d.cutoff = d.seq
	d.mu.Unlock()
}

func (d *Dispatcher) discarded(q queued) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return q.seq <= d.cutoff
}

// Drain waits until every queued job was attempted or ctx expires.
func (d *Dispatcher) Drain(ctx context.Context) error {
	waited := make(chan struct{})
	go func() {
		d.pending.Wait()
		close(waited)
	}()
	select {
	case <-waited:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed once the worker has exited.
func (d *Dispatcher) Done() <-chan struct{} {
	return d.done
}

func (d *Dispatcher) runWorker(ctx context.Context) {
	defer close(d.done)
	for {
		select {
		case <-ctx.Done():
			return
		case q := <-d.jobs:
			if d.discarded(q) {
				d.log.Debug().Str("owner", q.job.Owner).Msg("discarded history job skipped")
			} else {
				d.save(ctx, q.job)
			}
			d.pending.Done()
		}
	}
}

func (d *Dispatcher) save(ctx context.Context, job ports.HistoryJob) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	ctx = ports.WithCredential(ctx, job.Credential)

	entry, err := d.api.SaveHistory(ctx, job.JobDescription, job.Content)
	if err != nil {
		metrics.HistorySaveFailuresTotal.Inc()
		d.log.Warn().Err(err).Str("owner", job.Owner).Msg("history save failed")
		return
	}
	d.log.Debug().Int64("entry_id", entry.ID).Str("owner", job.Owner).Msg("history saved")
}
