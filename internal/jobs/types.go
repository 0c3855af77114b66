package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/dvloznov/ledger/internal/domain"
)

// ErrClosed is returned when work is submitted to a stopped runner.
var ErrClosed = errors.New("jobs: queue is closed")

// JobStatus represents the current status of a job.
type JobStatus string

const (
	// JobStatusPending indicates the job is waiting for a worker.
	JobStatusPending JobStatus = "pending"
	// JobStatusRunning indicates the job is currently being processed.
	JobStatusRunning JobStatus = "running"
	// JobStatusCompleted indicates the job completed successfully.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates the job failed.
	JobStatusFailed JobStatus = "failed"
	// JobStatusAbandoned indicates the caller gave up before a worker
	// picked the job up.
	JobStatusAbandoned JobStatus = "abandoned"
)

// AnalyzeJob is one uploaded statement waiting for analysis.
type AnalyzeJob struct {
	// JobID is the unique identifier for this job.
	JobID string `json:"job_id"`

	// Filename is the client-supplied upload name.
	Filename string `json:"filename"`

	// PDF is the raw upload.
	PDF []byte `json:"-"`

	// Status is the current status of the job.
	Status JobStatus `json:"status"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Error contains error details if the job failed.
	Error string `json:"error,omitempty"`
}

// Handler analyses one job. ctx is the submitting caller's context.
type Handler func(ctx context.Context, job *AnalyzeJob) (domain.AnalysisResult, error)

// Runner executes jobs on a bounded set of workers while the submitter
// waits for the outcome.
type Runner interface {
	// Run blocks until the job finishes or ctx is done.
	Run(ctx context.Context, job *AnalyzeJob) (domain.AnalysisResult, error)

	// Stop stops accepting jobs and waits for in-flight jobs to complete.
	Stop(ctx context.Context) error
}
