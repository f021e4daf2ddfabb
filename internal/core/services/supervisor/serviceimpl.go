package supervisor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gitlab.com/coderunner.net/internal/core/ports/primary"
	"gitlab.com/coderunner.net/internal/core/ports/secondary"
	"gitlab.com/coderunner.net/internal/domain"
	"gitlab.com/coderunner.net/internal/static/errs"
)

var _ ISupervisor = (*Supervisor)(nil)

// ErrKillTimeout is returned when a terminated unit does not report exit within the grace period.
var ErrKillTimeout = errors.New("execution unit did not exit after kill")

type Supervisor struct {
	launcher    secondary.Launcher
	logger      primary.Logger
	outputLimit int
	killGrace   time.Duration
}

func NewSupervisor(launcher secondary.Launcher, logger primary.Logger, outputLimit int, killGrace time.Duration) *Supervisor {
	return &Supervisor{
		launcher:    launcher,
		logger:      logger,
		outputLimit: outputLimit,
		killGrace:   killGrace,
	}
}

type waitResult struct {
	info domain.ExitInfo
	err  error
}

func (s *Supervisor) Run(ctx context.Context, spec domain.LaunchSpec) (domain.Outcome, error) {
	stdout := newBoundedBuffer(s.outputLimit)
	stderr := newBoundedBuffer(s.outputLimit)

	start := time.Now()
	unit, err := s.launcher.Launch(ctx, spec, stdout, stderr)
	if err != nil {
		return domain.Outcome{}, fmt.Errorf("launch %s: %w", spec.Language.ID, err)
	}
	defer func() {
		if err := unit.Release(); err != nil {
			s.logger.Error("Failed to release execution unit", "jobId", spec.JobID, "error", err)
		}
	}()

	waitCh := make(chan waitResult, 1)
	go func() {
		info, err := unit.Wait()
		waitCh <- waitResult{info: info, err: err}
	}()

	timer := time.NewTimer(spec.Limits.Timeout)
	defer timer.Stop()

	var (
		res      waitResult
		timedOut bool
	)
	select {
	case res = <-waitCh:
	case <-timer.C:
		timedOut = true
		s.logger.Info("Execution timed out", "jobId", spec.JobID, "timeout", spec.Limits.Timeout)
		res, err = s.terminate(unit, waitCh)
		if err != nil {
			return domain.Outcome{}, err
		}
	case <-ctx.Done():
		s.logger.Warn("Execution aborted", "jobId", spec.JobID, "reason", ctx.Err())
		if _, err := s.terminate(unit, waitCh); err != nil {
			s.logger.Error("Aborted execution unit did not exit", "jobId", spec.JobID, "error", err)
		}
		return domain.Outcome{}, fmt.Errorf("%w: %v", errs.ErrShuttingDown, ctx.Err())
	}
	elapsed := time.Since(start)

	if res.err != nil && !timedOut {
		return domain.Outcome{}, fmt.Errorf("wait for %s: %w", spec.JobID, res.err)
	}

	outcome := domain.Outcome{
		ExitCode:        res.info.ExitCode,
		Signal:          res.info.Signal,
		Stdout:          stdout.String(),
		Stderr:          stderr.String(),
		OutputTruncated: stdout.Truncated() || stderr.Truncated(),
		Elapsed:         elapsed,
		MemoryBytes:     res.info.MemoryBytes,
		CPUTime:         res.info.CPUTime,
	}
	if res.info.Runtime > 0 && !timedOut {
		outcome.Elapsed = res.info.Runtime
	}
	switch {
	case timedOut:
		outcome.State = domain.StateTimedOut
	case res.info.LimitExceeded:
		outcome.State = domain.StateResourceExceeded
	case res.info.Signal != "":
		outcome.State = domain.StateCrashed
	default:
		outcome.State = domain.StateCompleted
	}

	s.logger.Debug("Execution finished",
		"jobId", spec.JobID,
		"state", outcome.State,
		"exitCode", outcome.ExitCode,
		"elapsed", elapsed)
	return outcome, nil
}

// terminate kills the whole unit and waits for it to be reaped.
func (s *Supervisor) terminate(unit secondary.ExecutionUnit, waitCh <-chan waitResult) (waitResult, error) {
	if err := unit.Terminate(); err != nil {
		s.logger.Warn("Terminate reported an error", "error", err)
	}
	grace := time.NewTimer(s.killGrace)
	defer grace.Stop()
	select {
	case res := <-waitCh:
		return res, nil
	case <-grace.C:
		return waitResult{}, ErrKillTimeout
	}
}
