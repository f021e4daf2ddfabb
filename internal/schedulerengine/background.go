package schedulerengine

import (
	"context"
	"sync"
	"time"

	"gitlab.com/coderunner.net/internal/core/ports/primary"
	"gitlab.com/coderunner.net/internal/core/ports/secondary"
	"gitlab.com/coderunner.net/internal/metrics"
	"gitlab.com/coderunner.net/internal/static/errs"
)

// Task is one unit of work. It receives the engine context, which is
// cancelled on shutdown.
type Task func(ctx context.Context)

// SchedulerEngine is a fixed pool of workers behind an admission semaphore.
// A slot is reserved before any state is created for a job and returned when
// its task finishes, so Dispatch never blocks.
type SchedulerEngine struct {
	workers int
	slots   chan struct{}
	tasks   chan Task
	logger  primary.Logger

	mu      sync.RWMutex
	closed  bool
	started bool
	wg      sync.WaitGroup
}

func NewSchedulerEngine(workers, queueSize int, logger primary.Logger) *SchedulerEngine {
	capacity := workers + queueSize
	return &SchedulerEngine{
		workers: workers,
		slots:   make(chan struct{}, capacity),
		tasks:   make(chan Task, capacity),
		logger:  logger,
	}
}

// Reserve takes an admission slot; errs.ErrQueueFull when none is free.
func (s *SchedulerEngine) Reserve() (release func(), err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, errs.ErrShuttingDown
	}
	select {
	case s.slots <- struct{}{}:
	default:
		return nil, errs.ErrQueueFull
	}
	var once sync.Once
	return func() { once.Do(func() { <-s.slots }) }, nil
}

// Dispatch queues a task holding a slot from Reserve. The slot is released
// by the engine once the task returns.
func (s *SchedulerEngine) Dispatch(release func(), task Task) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		release()
		return errs.ErrShuttingDown
	}
	s.tasks <- func(ctx context.Context) {
		defer release()
		task(ctx)
	}
	metrics.QueueDepth.Inc()
	return nil
}

// Start launches the workers. Tasks still queued at shutdown are run with the
// cancelled context so they can record their own abort.
func (s *SchedulerEngine) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()

	s.wg.Add(s.workers)
	for i := 0; i < s.workers; i++ {
		go func(id int) {
			defer s.wg.Done()
			for task := range s.tasks {
				metrics.QueueDepth.Dec()
				metrics.ActiveExecutions.Inc()
				s.run(ctx, id, task)
				metrics.ActiveExecutions.Dec()
			}
		}(i)
	}
	s.logger.Info("Scheduler engine started", "workers", s.workers, "capacity", cap(s.slots))
}

func (s *SchedulerEngine) run(ctx context.Context, worker int, task Task) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Task panicked", "worker", worker, "panic", r)
		}
	}()
	task(ctx)
}

// Stop refuses new work and waits for the queue to drain.
func (s *SchedulerEngine) Stop() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.tasks)
	s.mu.Unlock()
	s.wg.Wait()
	s.logger.Info("Scheduler engine stopped")
}

// StartJanitor periodically purges terminal jobs older than ttl.
func (s *SchedulerEngine) StartJanitor(ctx context.Context, purger secondary.JobPurger, ttl, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				n, err := purger.PurgeExpired(ctx, now.Add(-ttl))
				if err != nil {
					s.logger.Error("Failed to purge expired jobs", "error", err)
					continue
				}
				if n > 0 {
					s.logger.Info("Purged expired jobs", "count", n)
				}
			}
		}
	}()
}
