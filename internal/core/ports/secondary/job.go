package secondary

import (
	"context"
	"time"

	"gitlab.com/coderunner.net/internal/domain"
)

// JobRepository is the Job Registry store. Implementations must enforce the
// pending -> running -> terminal ordering and keep terminal jobs immutable.
type JobRepository interface {
	// CreateJob stores a new pending job; errs.ErrJobExists when the id is taken
	CreateJob(ctx context.Context, job *domain.Job) error

	// MarkRunning moves a pending job to running
	MarkRunning(ctx context.Context, jobID string) error

	// CompleteJob attaches the verdict and moves the job to completed
	CompleteJob(ctx context.Context, jobID string, verdict *domain.Verdict) error

	// FailJob records an infrastructure error and moves the job to failed
	FailJob(ctx context.Context, jobID string, message string) error

	// GetJob retrieves a job by ID; errs.ErrJobNotFound when unknown
	GetJob(ctx context.Context, jobID string) (*domain.Job, error)
}

// JobPurger is implemented by stores that need an explicit sweep to drop
// terminal jobs older than the retention window.
type JobPurger interface {
	PurgeExpired(ctx context.Context, before time.Time) (int64, error)
}
