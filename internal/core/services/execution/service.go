package execution

import (
	"context"

	"gitlab.com/coderunner.net/internal/domain"
)

// SubmitRequest is an execution request as received from a caller. Nil
// limits take their defaults.
type SubmitRequest struct {
	JobID       string
	Code        string
	Language    string
	Timeout     *float64 // seconds
	MemoryLimit *int     // MB
	CPULimit    *float64 // cores
}

// IExecutionService is the only entry point into the engine.
type IExecutionService interface {
	// Submit validates and enqueues a request; validation errors create no job
	Submit(ctx context.Context, req SubmitRequest) (*domain.Job, error)

	// GetJob retrieves the current state of a job
	GetJob(ctx context.Context, jobID string) (*domain.Job, error)

	// Await blocks until a job run by this instance is terminal or ctx ends,
	// then returns its latest state
	Await(ctx context.Context, jobID string) (*domain.Job, error)

	// Execute runs a validated request synchronously without touching the job store
	Execute(ctx context.Context, req domain.ExecutionRequest) (*domain.Verdict, error)

	// Languages lists the registered languages
	Languages() []domain.LanguageConfig
}
