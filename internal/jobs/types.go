package jobs

import (
	"context"
	"time"
)

// JobType represents the type of job to be executed.
type JobType string

const (
	// JobTypeExpense represents a chat message to be registered in Zaim.
	JobTypeExpense JobType = "expense"
)

// JobStatus represents the current status of a job.
type JobStatus string

const (
	// JobStatusPending indicates the job is waiting to be processed.
	JobStatusPending JobStatus = "pending"
	// JobStatusRunning indicates the job is currently being processed.
	JobStatusRunning JobStatus = "running"
	// JobStatusCompleted indicates the job completed successfully.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates the job failed. Failed jobs are not retried.
	JobStatusFailed JobStatus = "failed"
)

// ExpenseJob carries one Slack message from the webhook to a worker.
type ExpenseJob struct {
	// JobID is the unique identifier for this job.
	JobID string `json:"job_id"`

	// RequestID ties the job back to the webhook request that created it.
	RequestID string `json:"request_id,omitempty"`

	// ChannelID and Timestamp address the originating Slack message.
	ChannelID string `json:"channel_id"`
	Timestamp string `json:"timestamp"`

	// UserName is the Slack user who posted the message.
	UserName string `json:"user_name"`

	// Text is the raw message body.
	Text string `json:"text"`

	// Status is the current status of the job.
	Status JobStatus `json:"status"`

	// CreatedAt is when the job was created.
	CreatedAt time.Time `json:"created_at"`

	// StartedAt is when the job started processing.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// CompletedAt is when the job completed (success or failure).
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Error contains the text reported back to the user if the job failed.
	Error string `json:"error,omitempty"`
}

// Job is a generic interface for all job types.
type Job interface {
	// GetID returns the unique job identifier.
	GetID() string

	// GetType returns the job type.
	GetType() JobType

	// GetStatus returns the current job status.
	GetStatus() JobStatus
}

// GetID implements the Job interface.
func (j *ExpenseJob) GetID() string {
	return j.JobID
}

// GetType implements the Job interface.
func (j *ExpenseJob) GetType() JobType {
	return JobTypeExpense
}

// GetStatus implements the Job interface.
func (j *ExpenseJob) GetStatus() JobStatus {
	return j.Status
}

// Publisher defines the interface for publishing jobs to a queue.
type Publisher interface {
	// PublishExpense publishes a chat message for background registration.
	PublishExpense(ctx context.Context, job *ExpenseJob) error

	// Close closes the publisher and releases resources.
	Close() error
}

// Consumer defines the interface for consuming jobs from a queue.
type Consumer interface {
	// Start begins consuming jobs from the queue.
	// The handler function is called for each job received.
	Start(ctx context.Context, handler JobHandler) error

	// Stop stops consuming jobs and waits for in-flight jobs to complete.
	Stop(ctx context.Context) error
}

// JobHandler is a function that processes a job.
// A returned error marks the job failed; it is never retried.
type JobHandler func(ctx context.Context, job Job) error

// JobStore records job state for the operator endpoints.
type JobStore interface {
	// SaveJob saves or updates a job's state.
	SaveJob(ctx context.Context, job *ExpenseJob) error

	// GetJob retrieves a job by ID.
	GetJob(ctx context.Context, jobID string) (*ExpenseJob, error)

	// ListJobs retrieves jobs with optional filtering, newest first.
	ListJobs(ctx context.Context, filter JobFilter) ([]*ExpenseJob, error)

	// UpdateJobStatus updates the status of a job.
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus, errorMsg string) error
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	// ChannelID filters jobs by Slack channel.
	ChannelID string

	// Status filters jobs by status.
	Status JobStatus

	// Limit limits the number of results.
	Limit int

	// Offset for pagination.
	Offset int
}
