// Package jobqueue is C6: an in-process asynchronous job queue for IFC
// processing (wexBIM conversion, property extraction). Grounded on the
// teacher's bootstrap goroutine idiom — a <-ctx.Done() goroutine alongside
// the main work loop (Lens/modules/jobs/pkg/bootstrap/bootstrap.go) — and
// its klog.InfoS/ErrorS structured logging, generalized from a periodic-
// cron job runner to a typed work-item queue with a handler registry.
package jobqueue

import (
	"context"
	"sync"

	"k8s.io/klog/v2"
)

// Type identifies a job's handler.
type Type string

const (
	TypeIfcToWexBim      Type = "IfcToWexBim"
	TypeExtractProperties Type = "ExtractProperties"
)

// Job is one unit of work. IdempotencyKey lets the queue skip a job that
// was already completed (spec §4.6: a retried enqueue for the same model
// version must not double-process it).
type Job struct {
	ID             string
	Type           Type
	ProjectID      string
	ModelVersionID string
	FileID         string
	IdempotencyKey string
}

// Handler processes one job. A returned error is logged; the queue does
// not currently retry automatically, it relies on the caller observing the
// ModelVersion's Failed status and re-enqueuing.
type Handler func(ctx context.Context, job Job) error

// Queue is a bounded-channel work queue with a fixed worker pool, matching
// the teacher's "start N goroutines, select on ctx.Done()" shutdown idiom.
type Queue struct {
	jobs     chan Job
	handlers map[Type]Handler

	mu           sync.Mutex
	completed    map[string]struct{}   // idempotency keys already processed
	versionLocks map[string]*sync.Mutex // one lock per ModelVersionID, held for the job's full handler call

	// unknownType is invoked, instead of just logging, when a dequeued job's
	// Type has no registered handler (spec §4.6 step 3).
	unknownType Handler

	wg sync.WaitGroup
}

func New(capacity int) *Queue {
	return &Queue{
		jobs:         make(chan Job, capacity),
		handlers:     map[Type]Handler{},
		completed:    map[string]struct{}{},
		versionLocks: map[string]*sync.Mutex{},
	}
}

// Register binds a handler to a job type. Call before Start.
func (q *Queue) Register(t Type, h Handler) {
	q.handlers[t] = h
}

// RegisterUnknownTypeHandler binds the fallback invoked when a dequeued
// job's Type has no registered Handler, so the caller can still record a
// terminal outcome on the job's subject (spec §4.6 step 3) instead of the
// job silently vanishing.
func (q *Queue) RegisterUnknownTypeHandler(h Handler) {
	q.unknownType = h
}

// Enqueue submits a job. It returns false without blocking if the queue is
// currently full, so callers can surface backpressure instead of stalling
// the request path.
func (q *Queue) Enqueue(job Job) bool {
	if job.IdempotencyKey != "" {
		q.mu.Lock()
		_, done := q.completed[job.IdempotencyKey]
		q.mu.Unlock()
		if done {
			return true
		}
	}
	select {
	case q.jobs <- job:
		return true
	default:
		return false
	}
}

// Start launches workerCount goroutines draining the queue until ctx is
// canceled, then Stop waits for in-flight jobs to finish.
func (q *Queue) Start(ctx context.Context, workerCount int) {
	for i := 0; i < workerCount; i++ {
		q.wg.Add(1)
		go q.worker(ctx, i)
	}
}

// Stop blocks until every worker goroutine has returned. Call after
// canceling the context passed to Start.
func (q *Queue) Stop() {
	q.wg.Wait()
}

func (q *Queue) worker(ctx context.Context, id int) {
	defer q.wg.Done()
	for {
		select {
		case <-ctx.Done():
			klog.InfoS("jobqueue worker stopping", "worker", id)
			return
		case job := <-q.jobs:
			q.process(ctx, job)
		}
	}
}

// process runs one job. Jobs are serialized per ModelVersionID so the two
// stages of one version (IfcToWexBim, ExtractProperties) never race on the
// same ModelVersion row, even when dispatched to different workers; jobs
// for different versions still run fully concurrently (spec §5).
func (q *Queue) process(ctx context.Context, job Job) {
	unlock := q.lockVersion(job.ModelVersionID)
	defer unlock()

	h, ok := q.handlers[job.Type]
	if !ok {
		klog.ErrorS(nil, "no handler registered for job type", "type", job.Type, "job", job.ID)
		if q.unknownType != nil {
			if err := q.unknownType(ctx, job); err != nil {
				klog.ErrorS(err, "failed to record unknown-job-type failure", "job", job.ID)
			}
		}
		q.markProcessed(job)
		return
	}
	if err := h(ctx, job); err != nil {
		klog.ErrorS(err, "job handler failed", "type", job.Type, "job", job.ID)
		return
	}
	q.markProcessed(job)
}

func (q *Queue) markProcessed(job Job) {
	if job.IdempotencyKey == "" {
		return
	}
	q.mu.Lock()
	q.completed[job.IdempotencyKey] = struct{}{}
	q.mu.Unlock()
}

// lockVersion returns an unlock func for job.ModelVersionID's dedicated
// mutex, already held; callers defer the returned func.
func (q *Queue) lockVersion(modelVersionID string) func() {
	if modelVersionID == "" {
		return func() {}
	}
	q.mu.Lock()
	l, ok := q.versionLocks[modelVersionID]
	if !ok {
		l = &sync.Mutex{}
		q.versionLocks[modelVersionID] = l
	}
	q.mu.Unlock()
	l.Lock()
	return l.Unlock
}
