package inmemory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dvloznov/slack2zaim/internal/jobs"
)

// ErrJobNotFound is returned for unknown or evicted job IDs.
var ErrJobNotFound = errors.New("job not found")

// DefaultCapacity is the number of jobs a Store keeps when none is given.
const DefaultCapacity = 500

// Store is a bounded in-memory JobStore. Once full, the oldest job is evicted.
// It exists for troubleshooting only; contents are lost on restart.
type Store struct {
	mu       sync.RWMutex
	jobs     map[string]*jobs.ExpenseJob
	order    []string
	capacity int
}

// NewStore creates a store holding at most capacity jobs.
func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{
		jobs:     make(map[string]*jobs.ExpenseJob),
		capacity: capacity,
	}
}

// SaveJob implements the JobStore interface.
func (s *Store) SaveJob(ctx context.Context, job *jobs.ExpenseJob) error {
	if job.JobID == "" {
		return fmt.Errorf("job ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.JobID]; !exists {
		s.order = append(s.order, job.JobID)
		for len(s.order) > s.capacity {
			delete(s.jobs, s.order[0])
			s.order = s.order[1:]
		}
	}

	// Create a copy to avoid external modifications
	jobCopy := *job
	s.jobs[job.JobID] = &jobCopy

	return nil
}

// GetJob implements the JobStore interface.
func (s *Store) GetJob(ctx context.Context, jobID string) (*jobs.ExpenseJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}

	jobCopy := *job
	return &jobCopy, nil
}

// ListJobs implements the JobStore interface. Results are newest first.
func (s *Store) ListJobs(ctx context.Context, filter jobs.JobFilter) ([]*jobs.ExpenseJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []*jobs.ExpenseJob{}

	for i := len(s.order) - 1; i >= 0; i-- {
		job := s.jobs[s.order[i]]

		if filter.ChannelID != "" && job.ChannelID != filter.ChannelID {
			continue
		}
		if filter.Status != "" && job.Status != filter.Status {
			continue
		}

		jobCopy := *job
		result = append(result, &jobCopy)
	}

	if filter.Offset > 0 {
		if filter.Offset >= len(result) {
			return []*jobs.ExpenseJob{}, nil
		}
		result = result[filter.Offset:]
	}

	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}

	return result, nil
}

// UpdateJobStatus implements the JobStore interface.
func (s *Store) UpdateJobStatus(ctx context.Context, jobID string, status jobs.JobStatus, errorMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}

	job.Status = status
	if errorMsg != "" {
		job.Error = errorMsg
	}

	return nil
}

// Ensure Store implements JobStore interface.
var _ jobs.JobStore = (*Store)(nil)
