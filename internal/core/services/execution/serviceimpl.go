package execution

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"gitlab.com/coderunner.net/internal/config"
	"gitlab.com/coderunner.net/internal/core/ports/primary"
	"gitlab.com/coderunner.net/internal/core/ports/secondary"
	"gitlab.com/coderunner.net/internal/core/services/classifier"
	"gitlab.com/coderunner.net/internal/core/services/language"
	"gitlab.com/coderunner.net/internal/core/services/supervisor"
	"gitlab.com/coderunner.net/internal/domain"
	"gitlab.com/coderunner.net/internal/metrics"
	"gitlab.com/coderunner.net/internal/schedulerengine"
	"gitlab.com/coderunner.net/internal/static/errs"
)

var _ IExecutionService = (*ExecutionService)(nil)

const (
	abortedMessage = "execution aborted: engine shutting down"
	storeTimeout   = 10 * time.Second
)

// Dispatcher admits and runs tasks; implemented by schedulerengine.SchedulerEngine.
type Dispatcher interface {
	Reserve() (release func(), err error)
	Dispatch(release func(), task schedulerengine.Task) error
}

type ExecutionService struct {
	registry   language.IRegistry
	supervisor supervisor.ISupervisor
	classifier classifier.IClassifier
	jobRepo    secondary.JobRepository
	dispatcher Dispatcher
	limits     *config.LimitsConfig
	logger     primary.Logger

	mu      sync.Mutex
	waiters map[string]chan struct{}
}

func NewExecutionService(
	registry language.IRegistry,
	supervisor supervisor.ISupervisor,
	classifier classifier.IClassifier,
	jobRepo secondary.JobRepository,
	dispatcher Dispatcher,
	limits *config.LimitsConfig,
	logger primary.Logger,
) *ExecutionService {
	return &ExecutionService{
		registry:   registry,
		supervisor: supervisor,
		classifier: classifier,
		jobRepo:    jobRepo,
		dispatcher: dispatcher,
		limits:     limits,
		logger:     logger,
		waiters:    make(map[string]chan struct{}),
	}
}

func (s *ExecutionService) Submit(ctx context.Context, req SubmitRequest) (*domain.Job, error) {
	execReq, lang, err := Validate(req, s.registry, s.limits)
	if err != nil {
		metrics.RejectedTotal.WithLabelValues("validation").Inc()
		return nil, err
	}

	release, err := s.dispatcher.Reserve()
	if err != nil {
		metrics.RejectedTotal.WithLabelValues("queue_full").Inc()
		return nil, err
	}

	job := domain.NewJob(execReq.JobID, lang.ID, time.Now().UTC())
	if err := s.jobRepo.CreateJob(ctx, job); err != nil {
		release()
		if errors.Is(err, errs.ErrJobExists) {
			metrics.RejectedTotal.WithLabelValues("duplicate").Inc()
		}
		return nil, err
	}

	done := make(chan struct{})
	s.mu.Lock()
	s.waiters[job.ID] = done
	s.mu.Unlock()

	s.logger.Info("Job accepted",
		"jobId", job.ID,
		"language", lang.ID,
		"limits", execReq.Limits.String())

	err = s.dispatcher.Dispatch(release, func(ctx context.Context) {
		s.process(ctx, execReq, lang)
	})
	if err != nil {
		s.fail(job.ID, abortedMessage, "dispatch")
		s.finish(job.ID)
		return nil, err
	}
	return job, nil
}

func (s *ExecutionService) GetJob(ctx context.Context, jobID string) (*domain.Job, error) {
	return s.jobRepo.GetJob(ctx, jobID)
}

func (s *ExecutionService) Await(ctx context.Context, jobID string) (*domain.Job, error) {
	s.mu.Lock()
	done, ok := s.waiters[jobID]
	s.mu.Unlock()
	if ok {
		select {
		case <-done:
		case <-ctx.Done():
		}
	}
	// a cancelled request context must not hide the job state
	readCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), storeTimeout)
	defer cancel()
	return s.jobRepo.GetJob(readCtx, jobID)
}

func (s *ExecutionService) Languages() []domain.LanguageConfig {
	return s.registry.List()
}

func (s *ExecutionService) Execute(ctx context.Context, req domain.ExecutionRequest) (*domain.Verdict, error) {
	lang, err := s.registry.Resolve(req.Language)
	if err != nil {
		return nil, err
	}
	return s.execute(ctx, req, lang)
}

func (s *ExecutionService) execute(ctx context.Context, req domain.ExecutionRequest, lang domain.LanguageConfig) (*domain.Verdict, error) {
	outcome, err := s.supervisor.Run(ctx, domain.LaunchSpec{
		JobID:    req.JobID,
		Code:     req.Code,
		Language: lang,
		Limits:   req.Limits,
	})
	if err != nil {
		return nil, err
	}

	metrics.ExecutionsTotal.WithLabelValues(lang.ID, string(outcome.State)).Inc()
	metrics.ExecutionDuration.WithLabelValues(lang.ID).Observe(outcome.Elapsed.Seconds())
	if outcome.MemoryBytes > 0 {
		metrics.MemoryUsage.WithLabelValues(lang.ID).Observe(float64(outcome.MemoryBytes))
	}
	return s.classifier.Classify(lang.ID, outcome, req.Limits.Timeout), nil
}

// process is the single owner of the job from running to terminal.
func (s *ExecutionService) process(ctx context.Context, req domain.ExecutionRequest, lang domain.LanguageConfig) {
	defer s.finish(req.JobID)
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Job panicked", "jobId", req.JobID, "panic", r)
			s.fail(req.JobID, fmt.Sprintf("infrastructure error: panic: %v", r), "panic")
		}
	}()

	if ctx.Err() != nil {
		s.fail(req.JobID, abortedMessage, "shutdown")
		return
	}

	storeCtx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	err := s.jobRepo.MarkRunning(storeCtx, req.JobID)
	cancel()
	if err != nil {
		s.logger.Error("Failed to mark job running", "jobId", req.JobID, "error", err)
		s.fail(req.JobID, fmt.Sprintf("infrastructure error: %v", err), "store")
		return
	}

	verdict, err := s.execute(ctx, req, lang)
	if err != nil {
		if errors.Is(err, errs.ErrShuttingDown) {
			s.fail(req.JobID, abortedMessage, "shutdown")
			return
		}
		s.logger.Error("Execution failed", "jobId", req.JobID, "error", err)
		s.fail(req.JobID, fmt.Sprintf("infrastructure error: %v", err), "execution")
		return
	}

	storeCtx, cancel = context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	if err := s.jobRepo.CompleteJob(storeCtx, req.JobID, verdict); err != nil {
		s.logger.Error("Failed to store verdict", "jobId", req.JobID, "error", err)
		s.fail(req.JobID, fmt.Sprintf("infrastructure error: %v", err), "store")
		return
	}
	s.logger.Info("Job completed", "jobId", req.JobID, "passed", verdict.Passed)
}

func (s *ExecutionService) fail(jobID, message, stage string) {
	metrics.InfrastructureErrors.WithLabelValues(stage).Inc()
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	if err := s.jobRepo.FailJob(ctx, jobID, message); err != nil {
		s.logger.Error("Failed to mark job failed", "jobId", jobID, "error", err)
	}
}

func (s *ExecutionService) finish(jobID string) {
	s.mu.Lock()
	done, ok := s.waiters[jobID]
	delete(s.waiters, jobID)
	s.mu.Unlock()
	if ok {
		close(done)
	}
}
