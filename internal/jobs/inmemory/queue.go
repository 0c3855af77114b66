package inmemory

import (
	"context"
	"sync"
	"time"

	"github.com/dvloznov/ledger/internal/domain"
	"github.com/dvloznov/ledger/internal/jobs"
	"github.com/dvloznov/ledger/internal/logger"
	"github.com/google/uuid"
)

// Queue is an in-memory job runner backed by a channel and a fixed number
// of workers. It caps how many analyses run at once; submitters block until
// their own job finishes. Safe for concurrent use.
type Queue struct {
	taskChan  chan *task
	closeChan chan struct{}
	wg        sync.WaitGroup
	mu        sync.RWMutex
	workers   int
	closed    bool
	started   bool
}

type task struct {
	ctx  context.Context
	job  *jobs.AnalyzeJob
	done chan outcome
}

type outcome struct {
	result domain.AnalysisResult
	err    error
}

// NewQueue creates a new in-memory job queue with the given worker count.
// bufferSize determines how many jobs can wait before Run blocks on enqueue.
func NewQueue(workers, bufferSize int) *Queue {
	if workers < 1 {
		workers = 1
	}
	if bufferSize < 0 {
		bufferSize = 0
	}
	return &Queue{
		taskChan:  make(chan *task, bufferSize),
		closeChan: make(chan struct{}),
		workers:   workers,
	}
}

// Start launches the workers. Each job is processed by handler.
func (q *Queue) Start(ctx context.Context, handler jobs.Handler) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return jobs.ErrClosed
	}
	if q.started {
		return nil
	}
	q.started = true

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, handler)
	}
	return nil
}

// Run implements jobs.Runner.
func (q *Queue) Run(ctx context.Context, job *jobs.AnalyzeJob) (domain.AnalysisResult, error) {
	t, err := q.publish(ctx, job)
	if err != nil {
		return domain.AnalysisResult{}, err
	}

	select {
	case out := <-t.done:
		return out.result, out.err
	case <-ctx.Done():
		return domain.AnalysisResult{}, ctx.Err()
	}
}

func (q *Queue) publish(ctx context.Context, job *jobs.AnalyzeJob) (*task, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return nil, jobs.ErrClosed
	}

	if job.JobID == "" {
		job.JobID = uuid.New().String()
	}
	job.Status = jobs.JobStatusPending
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}

	// done is buffered so a worker never blocks on a caller that left.
	t := &task{ctx: ctx, job: job, done: make(chan outcome, 1)}

	select {
	case q.taskChan <- t:
		return t, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-q.closeChan:
		return nil, jobs.ErrClosed
	}
}

// worker processes jobs from the queue.
func (q *Queue) worker(ctx context.Context, handler jobs.Handler) {
	defer q.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-q.closeChan:
			// Drain what was accepted before Stop.
			for {
				select {
				case t := <-q.taskChan:
					q.processJob(t, handler)
				default:
					return
				}
			}
		case t := <-q.taskChan:
			q.processJob(t, handler)
		}
	}
}

// processJob executes a single job. Jobs whose caller already left are
// skipped.
func (q *Queue) processJob(t *task, handler jobs.Handler) {
	job := t.job
	log := logger.FromContext(t.ctx).With().Str("job_id", job.JobID).Logger()

	if err := t.ctx.Err(); err != nil {
		job.Status = jobs.JobStatusAbandoned
		log.Debug().Msg("Skipping abandoned job")
		t.done <- outcome{err: err}
		return
	}

	job.Status = jobs.JobStatusRunning
	now := time.Now()
	job.StartedAt = &now

	result, err := handler(t.ctx, job)

	completedAt := time.Now()
	job.CompletedAt = &completedAt
	if err != nil {
		job.Status = jobs.JobStatusFailed
		job.Error = err.Error()
	} else {
		job.Status = jobs.JobStatusCompleted
	}

	log.Debug().
		Str("status", string(job.Status)).
		Dur("duration", completedAt.Sub(now)).
		Msg("Job finished")

	t.done <- outcome{result: result, err: err}
}

// Stop implements jobs.Runner.
// It stops the queue and waits for all in-flight jobs to complete.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.closeChan)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the queue without a deadline.
func (q *Queue) Close() error {
	return q.Stop(context.Background())
}

var _ jobs.Runner = (*Queue)(nil)
