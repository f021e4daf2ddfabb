// Package storetest holds the behaviour every job store must share.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/coderunner.net/internal/core/ports/secondary"
	"gitlab.com/coderunner.net/internal/domain"
	"gitlab.com/coderunner.net/internal/static/errs"
)

// RunJobRepositoryContract exercises repo against the job lifecycle rules.
// Job ids are random so the suite can share a database with other runs.
func RunJobRepositoryContract(t *testing.T, repo secondary.JobRepository) {
	ctx := context.Background()
	newID := func() string { return "contract-" + uuid.NewString() }

	t.Run("lifecycle", func(t *testing.T) {
		id := newID()
		require.NoError(t, repo.CreateJob(ctx, domain.NewJob(id, "python", time.Now().UTC())))

		job, err := repo.GetJob(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, domain.JobStatusPending, job.Status)
		assert.Nil(t, job.Result)

		require.NoError(t, repo.MarkRunning(ctx, id))
		job, err = repo.GetJob(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, domain.JobStatusRunning, job.Status)
		assert.NotNil(t, job.StartedAt)

		verdict := &domain.Verdict{
			Passed:  false,
			Metrics: map[string]interface{}{domain.MetricExitCode: 1},
			Hints:   []string{"Check your syntax"},
			Logs:    "STDOUT:\n\n\nSTDERR:\nSyntaxError",
		}
		require.NoError(t, repo.CompleteJob(ctx, id, verdict))

		job, err = repo.GetJob(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, domain.JobStatusCompleted, job.Status)
		require.NotNil(t, job.Result)
		assert.False(t, job.Result.Passed)
		assert.Equal(t, verdict.Hints, job.Result.Hints)
		assert.Equal(t, verdict.Logs, job.Result.Logs)
		assert.EqualValues(t, 1, job.Result.Metrics[domain.MetricExitCode])
		assert.NotNil(t, job.CompletedAt)
	})

	t.Run("terminal jobs are immutable", func(t *testing.T) {
		id := newID()
		require.NoError(t, repo.CreateJob(ctx, domain.NewJob(id, "python", time.Now().UTC())))
		require.NoError(t, repo.FailJob(ctx, id, "cannot spawn"))

		err := repo.CompleteJob(ctx, id, &domain.Verdict{Passed: true})
		assert.True(t, errors.Is(err, errs.ErrInvalidTransition), "got %v", err)
		assert.True(t, errors.Is(repo.MarkRunning(ctx, id), errs.ErrInvalidTransition))
		assert.True(t, errors.Is(repo.FailJob(ctx, id, "again"), errs.ErrInvalidTransition))

		job, err := repo.GetJob(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, domain.JobStatusFailed, job.Status)
		assert.Equal(t, "cannot spawn", job.ErrorMessage)
		assert.Nil(t, job.Result)
	})

	t.Run("duplicate id", func(t *testing.T) {
		id := newID()
		require.NoError(t, repo.CreateJob(ctx, domain.NewJob(id, "python", time.Now().UTC())))
		err := repo.CreateJob(ctx, domain.NewJob(id, "shell", time.Now().UTC()))
		assert.True(t, errors.Is(err, errs.ErrJobExists), "got %v", err)
	})

	t.Run("unknown id", func(t *testing.T) {
		id := newID()
		_, err := repo.GetJob(ctx, id)
		assert.True(t, errors.Is(err, errs.ErrJobNotFound))
		assert.True(t, errors.Is(repo.MarkRunning(ctx, id), errs.ErrJobNotFound))
		assert.True(t, errors.Is(repo.FailJob(ctx, id, "x"), errs.ErrJobNotFound))
	})

	t.Run("concurrent jobs do not interfere", func(t *testing.T) {
		const n = 16
		ids := make([]string, n)
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			ids[i] = newID()
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				id := ids[i]
				assert.NoError(t, repo.CreateJob(ctx, domain.NewJob(id, "shell", time.Now().UTC())))
				assert.NoError(t, repo.MarkRunning(ctx, id))
				assert.NoError(t, repo.CompleteJob(ctx, id, &domain.Verdict{Passed: true, Logs: fmt.Sprintf("out-%d", i)}))
			}(i)
		}
		wg.Wait()

		for i, id := range ids {
			job, err := repo.GetJob(ctx, id)
			require.NoError(t, err)
			require.NotNil(t, job.Result)
			assert.Equal(t, fmt.Sprintf("out-%d", i), job.Result.Logs)
		}
	})
}
