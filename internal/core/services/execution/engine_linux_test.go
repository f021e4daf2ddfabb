//go:build linux

package execution

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/coderunner.net/internal/adapter/logging"
	"gitlab.com/coderunner.net/internal/adapter/sandbox/process"
	"gitlab.com/coderunner.net/internal/core/services/classifier"
	"gitlab.com/coderunner.net/internal/core/services/supervisor"
	"gitlab.com/coderunner.net/internal/domain"
)

func newProcessFixture(t *testing.T) *fixture {
	t.Helper()
	logger := logging.NewNopLogger()
	launcher := process.NewLauncher(process.Options{ScratchRoot: t.TempDir(), KillGrace: time.Second}, logger)
	return newFixture(t, supervisor.NewSupervisor(launcher, logger, 64*1024, 2*time.Second), 2, 4)
}

func requirePython(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("python3"); err != nil {
		t.Skip("python3 not installed")
	}
}

func readPID(t *testing.T, path string) int {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	require.NoError(t, err)
	return pid
}

// processGone reports whether pid has exited. A zombie counts as gone.
func processGone(pid int) bool {
	data, err := os.ReadFile(fmt.Sprintf("/proc/%d/stat", pid))
	if err != nil {
		return true
	}
	i := strings.LastIndexByte(string(data), ')')
	return i >= 0 && i+2 < len(data) && data[i+2] == 'Z'
}

func submitAndWait(t *testing.T, f *fixture, req SubmitRequest) *domain.Job {
	t.Helper()
	_, err := f.svc.Submit(context.Background(), req)
	require.NoError(t, err)
	job := awaitTerminal(t, f.svc, req.JobID)
	require.Equal(t, domain.JobStatusCompleted, job.Status, job.ErrorMessage)
	require.NotNil(t, job.Result)
	return job
}

func TestPythonPrint(t *testing.T) {
	requirePython(t)
	f := newProcessFixture(t)
	timeout := 5.0

	job := submitAndWait(t, f, SubmitRequest{JobID: "py-print", Language: "python", Code: "print(1+1)", Timeout: &timeout})
	assert.True(t, job.Result.Passed)
	assert.Contains(t, job.Result.Logs, "2")
}

func TestPythonInfiniteLoop(t *testing.T) {
	requirePython(t)
	f := newProcessFixture(t)
	timeout := 2.0

	job := submitAndWait(t, f, SubmitRequest{JobID: "py-loop", Language: "python", Code: "while True:\n    pass\n", Timeout: &timeout})
	assert.False(t, job.Result.Passed)
	require.NotEmpty(t, job.Result.Hints)
	assert.Contains(t, job.Result.Hints[0], "time budget")
	assert.Equal(t, 2.0, job.Result.Metrics[domain.MetricExecutionTime])
}

func TestPythonSyntaxError(t *testing.T) {
	requirePython(t)
	f := newProcessFixture(t)

	job := submitAndWait(t, f, SubmitRequest{JobID: "py-syntax", Language: "python", Code: "print(\"unterminated\"\nx = = 1\n"})
	assert.False(t, job.Result.Passed)
	found := false
	for _, h := range job.Result.Hints {
		if strings.Contains(strings.ToLower(h), "syntax") {
			found = true
		}
	}
	assert.True(t, found, "hints %v should mention syntax", job.Result.Hints)
	assert.Contains(t, job.Result.Logs, "STDERR:")
}

func TestShellChildKilledAtTimeout(t *testing.T) {
	f := newProcessFixture(t)
	timeout := 1.0

	pidFile := filepath.Join(t.TempDir(), "child.pid")

	job := submitAndWait(t, f, SubmitRequest{
		JobID:    "sh-fork",
		Language: "shell",
		Code:     fmt.Sprintf("sh -c 'echo $$ > \"$0\"; while :; do :; done' %q &\nwait\n", pidFile),
		Timeout:  &timeout,
	})
	assert.False(t, job.Result.Passed)
	assert.Equal(t, []string{classifier.HintTimeout}, job.Result.Hints)

	pid := readPID(t, pidFile)
	assert.Eventually(t, func() bool { return processGone(pid) }, 3*time.Second, 50*time.Millisecond,
		"looping child %d survived the timeout", pid)
}

func TestShellBackgroundChildKilledAfterExit(t *testing.T) {
	f := newProcessFixture(t)
	timeout := 5.0
	pidFile := filepath.Join(t.TempDir(), "sleep.pid")

	job := submitAndWait(t, f, SubmitRequest{
		JobID:    "sh-orphan",
		Language: "shell",
		Code:     fmt.Sprintf("sleep 30 >/dev/null 2>&1 &\necho $! > %q\nexit 0\n", pidFile),
		Timeout:  &timeout,
	})
	assert.True(t, job.Result.Passed)

	pid := readPID(t, pidFile)
	assert.Eventually(t, func() bool { return processGone(pid) }, 3*time.Second, 50*time.Millisecond,
		"background sleep %d outlived its job", pid)
}

func TestShellExitCode(t *testing.T) {
	f := newProcessFixture(t)

	job := submitAndWait(t, f, SubmitRequest{JobID: "sh-exit", Language: "shell", Code: "echo out\necho err >&2\nexit 4\n"})
	assert.False(t, job.Result.Passed)
	assert.Equal(t, 4, job.Result.Metrics[domain.MetricExitCode])
	assert.Equal(t, "STDOUT:\nout\n\n\nSTDERR:\nerr\n", job.Result.Logs)
}

func TestExecuteWithoutStore(t *testing.T) {
	f := newProcessFixture(t)
	verdict, err := f.svc.Execute(context.Background(), domain.ExecutionRequest{
		JobID:    "cli",
		Code:     "echo ok",
		Language: "shell",
		Limits:   domain.Limits{Timeout: 5 * time.Second, MemoryMB: 64, CPU: 1},
	})
	require.NoError(t, err)
	assert.True(t, verdict.Passed)
	assert.Equal(t, "ok\n", verdict.Logs)
}
