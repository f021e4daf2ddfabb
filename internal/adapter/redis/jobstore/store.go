package jobstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"gitlab.com/coderunner.net/internal/core/ports/primary"
	"gitlab.com/coderunner.net/internal/core/ports/secondary"
	"gitlab.com/coderunner.net/internal/domain"
	"gitlab.com/coderunner.net/internal/static/errs"
)

var _ secondary.JobRepository = (*JobRepository)(nil)

const (
	jobKeyPrefix = "coderunner:job:"
	maxTxRetries = 5
)

// JobRepository keeps jobs as JSON documents with a TTL, so every engine
// instance behind a load balancer sees the same registry.
type JobRepository struct {
	redisClient *redis.Client
	ttl         time.Duration
	logger      primary.Logger
}

// NewJobRepository creates a new Redis job repository
func NewJobRepository(redisClient *redis.Client, ttl time.Duration, logger primary.Logger) *JobRepository {
	return &JobRepository{
		redisClient: redisClient,
		ttl:         ttl,
		logger:      logger,
	}
}

func jobKey(jobID string) string {
	return jobKeyPrefix + jobID
}

// CreateJob stores the job only if the id is free.
func (r *JobRepository) CreateJob(ctx context.Context, job *domain.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}
	ok, err := r.redisClient.SetNX(ctx, jobKey(job.ID), data, r.ttl).Result()
	if err != nil {
		r.logger.Error("Failed to save job", "jobId", job.ID, "error", err)
		return fmt.Errorf("failed to save job: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", errs.ErrJobExists, job.ID)
	}
	return nil
}

func (r *JobRepository) MarkRunning(ctx context.Context, jobID string) error {
	return r.update(ctx, jobID, func(j *domain.Job, now time.Time) error {
		return j.MarkRunning(now)
	})
}

func (r *JobRepository) CompleteJob(ctx context.Context, jobID string, verdict *domain.Verdict) error {
	return r.update(ctx, jobID, func(j *domain.Job, now time.Time) error {
		return j.Complete(verdict, now)
	})
}

func (r *JobRepository) FailJob(ctx context.Context, jobID string, message string) error {
	return r.update(ctx, jobID, func(j *domain.Job, now time.Time) error {
		return j.Fail(message, now)
	})
}

// GetJob retrieves a job from Redis by ID
func (r *JobRepository) GetJob(ctx context.Context, jobID string) (*domain.Job, error) {
	data, err := r.redisClient.Get(ctx, jobKey(jobID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s", errs.ErrJobNotFound, jobID)
		}
		r.logger.Error("Failed to get job", "jobId", jobID, "error", err)
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return decodeJob(data)
}

// update runs fn inside an optimistic WATCH/MULTI transaction and retries
// when another writer touched the key in between.
func (r *JobRepository) update(ctx context.Context, jobID string, fn func(j *domain.Job, now time.Time) error) error {
	key := jobKey(jobID)
	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return fmt.Errorf("%w: %s", errs.ErrJobNotFound, jobID)
			}
			return err
		}
		job, err := decodeJob(data)
		if err != nil {
			return err
		}
		if err := fn(job, time.Now().UTC()); err != nil {
			return err
		}
		next, err := json.Marshal(job)
		if err != nil {
			return fmt.Errorf("failed to marshal job: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, next, r.ttl)
			return nil
		})
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := r.redisClient.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil && !errors.Is(err, errs.ErrInvalidTransition) && !errors.Is(err, errs.ErrJobNotFound) {
			r.logger.Error("Failed to update job", "jobId", jobID, "error", err)
		}
		return err
	}
	return fmt.Errorf("update job %s: too much contention", jobID)
}

func decodeJob(data []byte) (*domain.Job, error) {
	var job domain.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}
	return &job, nil
}
