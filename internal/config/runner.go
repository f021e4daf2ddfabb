package config

import (
	"fmt"
	"os"
	"time"
)

const (
	BackendProcess = "process"
	BackendDocker  = "docker"
)

type RunnerConfig struct {
	Backend          string
	MaxConcurrent    int
	QueueSize        int
	ScratchDir       string
	OutputLimitBytes int
	KillGrace        time.Duration
	CgroupRoot       string
	IsolateNetwork   bool
	SyncWait         bool
}

func NewRunnerConfig() *RunnerConfig {
	return &RunnerConfig{
		Backend:          getEnv("RUNNER_BACKEND", BackendProcess),
		MaxConcurrent:    getIntEnv("RUNNER_MAX_CONCURRENT", 4),
		QueueSize:        getIntEnv("RUNNER_QUEUE_SIZE", 64),
		ScratchDir:       getEnv("RUNNER_SCRATCH_DIR", os.TempDir()),
		OutputLimitBytes: getIntEnv("RUNNER_OUTPUT_LIMIT_BYTES", 64*1024),
		KillGrace:        time.Duration(getIntEnv("RUNNER_KILL_GRACE_MS", 2000)) * time.Millisecond,
		CgroupRoot:       getEnv("RUNNER_CGROUP_ROOT", ""),
		IsolateNetwork:   getBoolEnv("RUNNER_ISOLATE_NETWORK", false),
		SyncWait:         getBoolEnv("RUNNER_SYNC_WAIT", true),
	}
}

func (c *RunnerConfig) validate() []error {
	var problems []error
	if c.Backend != BackendProcess && c.Backend != BackendDocker {
		problems = append(problems, fmt.Errorf("unknown RUNNER_BACKEND %q", c.Backend))
	}
	if c.MaxConcurrent <= 0 {
		problems = append(problems, fmt.Errorf("RUNNER_MAX_CONCURRENT must be > 0"))
	}
	if c.QueueSize < 0 {
		problems = append(problems, fmt.Errorf("RUNNER_QUEUE_SIZE must be >= 0"))
	}
	if c.OutputLimitBytes <= 0 {
		problems = append(problems, fmt.Errorf("RUNNER_OUTPUT_LIMIT_BYTES must be > 0"))
	}
	if c.KillGrace <= 0 {
		problems = append(problems, fmt.Errorf("RUNNER_KILL_GRACE_MS must be > 0"))
	}
	return problems
}
