package jobstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/coderunner.net/internal/adapter/storetest"
	"gitlab.com/coderunner.net/internal/domain"
	"gitlab.com/coderunner.net/internal/static/errs"
)

func TestStoreContract(t *testing.T) {
	storetest.RunJobRepositoryContract(t, NewStore())
}

func TestStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	require.NoError(t, s.CreateJob(ctx, domain.NewJob("a", "python", time.Now())))

	job, err := s.GetJob(ctx, "a")
	require.NoError(t, err)
	job.Status = domain.JobStatusFailed

	again, err := s.GetJob(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusPending, again.Status)
}

func TestPurgeExpired(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	s.now = func() time.Time { return base }
	require.NoError(t, s.CreateJob(ctx, domain.NewJob("old", "python", base)))
	require.NoError(t, s.FailJob(ctx, "old", "boom"))
	require.NoError(t, s.CreateJob(ctx, domain.NewJob("running", "python", base)))
	require.NoError(t, s.MarkRunning(ctx, "running"))

	s.now = func() time.Time { return base.Add(2 * time.Hour) }
	require.NoError(t, s.CreateJob(ctx, domain.NewJob("fresh", "python", base)))
	require.NoError(t, s.FailJob(ctx, "fresh", "boom"))

	n, err := s.PurgeExpired(ctx, base.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = s.GetJob(ctx, "old")
	assert.True(t, errors.Is(err, errs.ErrJobNotFound))
	_, err = s.GetJob(ctx, "running")
	assert.NoError(t, err, "non-terminal jobs are never purged")
	_, err = s.GetJob(ctx, "fresh")
	assert.NoError(t, err)
}
