package inmemory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dvloznov/slack2zaim/internal/jobs"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrQueueClosed is returned when publishing to or starting a stopped queue.
var ErrQueueClosed = errors.New("queue is closed")

// Queue is an in-memory implementation of job publisher and consumer.
// It uses Go channels for job distribution and is safe for concurrent use.
// Jobs run exactly once; a failed job is recorded and dropped.
// Stop lets the workers finish every job already accepted.
type Queue struct {
	jobChan     chan *jobs.ExpenseJob
	wg          sync.WaitGroup
	mu          sync.RWMutex
	store       jobs.JobStore
	workerCount int
	log         zerolog.Logger
	closed      bool
}

// NewQueue creates a new in-memory job queue.
// bufferSize determines how many jobs can wait before PublishExpense blocks.
// workerCount below one is treated as one.
func NewQueue(bufferSize, workerCount int, store jobs.JobStore, log zerolog.Logger) *Queue {
	if workerCount < 1 {
		workerCount = 1
	}
	return &Queue{
		jobChan:     make(chan *jobs.ExpenseJob, bufferSize),
		store:       store,
		workerCount: workerCount,
		log:         log,
	}
}

// PublishExpense implements the Publisher interface.
// It blocks while the buffer is full until ctx is done. The read lock is held
// for the whole send so Stop cannot close jobChan underneath it.
func (q *Queue) PublishExpense(ctx context.Context, job *jobs.ExpenseJob) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrQueueClosed
	}

	if job.JobID == "" {
		job.JobID = uuid.New().String()
	}
	if job.Status == "" {
		job.Status = jobs.JobStatusPending
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}

	if q.store != nil {
		if err := q.store.SaveJob(ctx, job); err != nil {
			return fmt.Errorf("failed to save job: %w", err)
		}
	}

	select {
	case q.jobChan <- job:
		return nil
	case <-ctx.Done():
		q.markDropped(job, "not enqueued: "+ctx.Err().Error())
		return ctx.Err()
	}
}

func (q *Queue) markDropped(job *jobs.ExpenseJob, reason string) {
	q.log.Warn().Str("job_id", job.JobID).Str("reason", reason).Msg("Job dropped")
	if q.store == nil {
		return
	}
	_ = q.store.UpdateJobStatus(context.Background(), job.JobID, jobs.JobStatusFailed, reason)
}

// Start implements the Consumer interface.
// It starts workerCount goroutines that call handler for each job.
func (q *Queue) Start(ctx context.Context, handler jobs.JobHandler) error {
	q.mu.RLock()
	if q.closed {
		q.mu.RUnlock()
		return ErrQueueClosed
	}
	q.mu.RUnlock()

	for i := 0; i < q.workerCount; i++ {
		q.wg.Add(1)
		go q.worker(ctx, handler)
	}

	return nil
}

// worker processes jobs from the queue.
func (q *Queue) worker(ctx context.Context, handler jobs.JobHandler) {
	defer q.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-q.jobChan:
			if !ok {
				return
			}

			q.processJob(ctx, job, handler)
		}
	}
}

// processJob runs a single job to completion. The handler's context is
// detached from ctx so a shutdown does not abort a half-sent reply.
func (q *Queue) processJob(ctx context.Context, job *jobs.ExpenseJob, handler jobs.JobHandler) {
	runCtx := context.WithoutCancel(ctx)

	job.Status = jobs.JobStatusRunning
	now := time.Now()
	job.StartedAt = &now

	if q.store != nil {
		_ = q.store.SaveJob(runCtx, job)
	}

	err := q.safeHandle(runCtx, job, handler)

	completedAt := time.Now()
	job.CompletedAt = &completedAt

	if err != nil {
		job.Status = jobs.JobStatusFailed
		job.Error = err.Error()
	} else {
		job.Status = jobs.JobStatusCompleted
		job.Error = ""
	}

	if q.store != nil {
		_ = q.store.SaveJob(runCtx, job)
	}
}

func (q *Queue) safeHandle(ctx context.Context, job *jobs.ExpenseJob, handler jobs.JobHandler) (err error) {
	defer func() {
		if r := recover(); r != nil {
			q.log.Error().
				Interface("panic", r).
				Str("job_id", job.JobID).
				Msg("Job handler panicked")
			err = fmt.Errorf("job handler panicked: %v", r)
		}
	}()
	return handler(ctx, job)
}

// Stop implements the Consumer interface.
// It refuses new jobs, lets the workers run every buffered job and waits for
// them. Jobs no worker picked up (none started, or their context was
// cancelled) are marked failed.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.jobChan)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		for job := range q.jobChan {
			q.markDropped(job, "not processed: queue stopped")
		}
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close implements the Publisher interface.
func (q *Queue) Close() error {
	return q.Stop(context.Background())
}

// Ensure Queue implements both Publisher and Consumer interfaces.
var _ jobs.Publisher = (*Queue)(nil)
var _ jobs.Consumer = (*Queue)(nil)
