package jobstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gitlab.com/coderunner.net/internal/core/ports/secondary"
	"gitlab.com/coderunner.net/internal/domain"
	"gitlab.com/coderunner.net/internal/static/errs"
)

var (
	_ secondary.JobRepository = (*Store)(nil)
	_ secondary.JobPurger     = (*Store)(nil)
)

// Store is a mutex-guarded in-process job map. Jobs are copied on the way in
// and out so callers never share records with the store.
type Store struct {
	mu   sync.RWMutex
	jobs map[string]*domain.Job
	now  func() time.Time
}

func NewStore() *Store {
	return &Store{
		jobs: make(map[string]*domain.Job),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) CreateJob(_ context.Context, job *domain.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.ID]; ok {
		return fmt.Errorf("%w: %s", errs.ErrJobExists, job.ID)
	}
	s.jobs[job.ID] = job.Clone()
	return nil
}

func (s *Store) MarkRunning(_ context.Context, jobID string) error {
	return s.update(jobID, func(j *domain.Job, now time.Time) error {
		return j.MarkRunning(now)
	})
}

func (s *Store) CompleteJob(_ context.Context, jobID string, verdict *domain.Verdict) error {
	v := verdict.Clone()
	return s.update(jobID, func(j *domain.Job, now time.Time) error {
		return j.Complete(v, now)
	})
}

func (s *Store) FailJob(_ context.Context, jobID string, message string) error {
	return s.update(jobID, func(j *domain.Job, now time.Time) error {
		return j.Fail(message, now)
	})
}

func (s *Store) GetJob(_ context.Context, jobID string) (*domain.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", errs.ErrJobNotFound, jobID)
	}
	return job.Clone(), nil
}

// PurgeExpired drops terminal jobs that completed before the cutoff.
func (s *Store) PurgeExpired(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, job := range s.jobs {
		if job.Status.IsTerminal() && job.CompletedAt != nil && job.CompletedAt.Before(before) {
			delete(s.jobs, id)
			n++
		}
	}
	return n, nil
}

// update applies fn to a scratch copy and commits it only on success, so a
// rejected transition leaves the stored job untouched.
func (s *Store) update(jobID string, fn func(j *domain.Job, now time.Time) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return fmt.Errorf("%w: %s", errs.ErrJobNotFound, jobID)
	}
	next := job.Clone()
	if err := fn(next, s.now()); err != nil {
		return err
	}
	s.jobs[jobID] = next
	return nil
}
