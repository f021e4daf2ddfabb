package docker

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/coderunner.net/internal/adapter/logging"
	"gitlab.com/coderunner.net/internal/core/services/supervisor"
	"gitlab.com/coderunner.net/internal/domain"
)

var python = domain.LanguageConfig{
	ID:             "python",
	Extension:      ".py",
	Command:        []string{"python3", "-u", domain.FilePlaceholder},
	DefaultTimeout: 30 * time.Second,
	Image:          "python:3.11-slim",
}

func TestContainerConfig(t *testing.T) {
	cfg, host := containerConfig("/tmp/job-1", domain.LaunchSpec{
		JobID:    "job-1",
		Language: python,
		Limits:   domain.Limits{Timeout: 5 * time.Second, MemoryMB: 128, CPU: 0.5},
	})

	assert.Equal(t, "python:3.11-slim", cfg.Image)
	assert.Equal(t, []string{"python3", "-u", "/workspace/main.py"}, []string(cfg.Cmd))
	assert.True(t, cfg.NetworkDisabled)
	assert.Equal(t, sandboxUser, cfg.User)

	assert.Equal(t, []string{"/tmp/job-1:/workspace:ro"}, host.Binds)
	assert.Equal(t, "none", string(host.NetworkMode))
	assert.True(t, host.ReadonlyRootfs)
	assert.Equal(t, []string{"ALL"}, []string(host.CapDrop))
	assert.Equal(t, int64(128<<20), host.Memory)
	assert.Equal(t, host.Memory, host.MemorySwap, "swap must not extend the memory ceiling")
	assert.Equal(t, int64(5e8), host.NanoCPUs)
	require.NotNil(t, host.PidsLimit)
	assert.Equal(t, pidsLimit, *host.PidsLimit)
}

func TestLaunchRequiresImage(t *testing.T) {
	l := NewLauncher(nil, Options{ScratchRoot: t.TempDir()}, logging.NewNopLogger())
	lang := python
	lang.Image = ""
	_, err := l.Launch(context.Background(), domain.LaunchSpec{Language: lang}, nil, nil)
	assert.Error(t, err)
}

// Requires a reachable Docker engine.
func TestDockerIntegration(t *testing.T) {
	if os.Getenv("TEST_DOCKER") != "1" {
		t.Skip("TEST_DOCKER not set")
	}
	cli, err := NewClient()
	require.NoError(t, err)
	defer cli.Close()

	root := t.TempDir()
	l := NewLauncher(cli, Options{ScratchRoot: root}, logging.NewNopLogger())
	ctx := context.Background()
	require.NoError(t, l.EnsureImages(ctx, []domain.LanguageConfig{python}))

	s := supervisor.NewSupervisor(l, logging.NewNopLogger(), 64*1024, 5*time.Second)
	limits := domain.Limits{Timeout: 10 * time.Second, MemoryMB: 128, CPU: 1}

	out, err := s.Run(ctx, domain.LaunchSpec{JobID: "it-ok", Code: "print(1+1)", Language: python, Limits: limits})
	require.NoError(t, err)
	assert.Equal(t, domain.StateCompleted, out.State)
	assert.Equal(t, "2\n", out.Stdout)

	limits.Timeout = 2 * time.Second
	out, err = s.Run(ctx, domain.LaunchSpec{JobID: "it-loop", Code: "while True:\n    pass\n", Language: python, Limits: limits})
	require.NoError(t, err)
	assert.Equal(t, domain.StateTimedOut, out.State)

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
