package domain

import (
	"fmt"
	"time"
)

// Limits are the resource ceilings of one execution. All fields are positive
// once a request has been accepted.
type Limits struct {
	Timeout  time.Duration
	MemoryMB int
	CPU      float64
}

// MemoryBytes is the memory ceiling in bytes.
func (l Limits) MemoryBytes() int64 {
	return int64(l.MemoryMB) * 1024 * 1024
}

// CPUSeconds is the CPU-time budget granted for the whole wall-clock window,
// rounded up and padded by one second so the rlimit never fires before the
// deadline on a process that stays within its share.
func (l Limits) CPUSeconds() int {
	secs := l.CPU * l.Timeout.Seconds()
	whole := int(secs)
	if float64(whole) < secs {
		whole++
	}
	return whole + 1
}

func (l Limits) String() string {
	return fmt.Sprintf("timeout=%s memory=%dMB cpu=%.2f", l.Timeout, l.MemoryMB, l.CPU)
}

// ExecutionRequest is a validated request to run code.
type ExecutionRequest struct {
	JobID    string
	Code     string
	Language string
	Limits   Limits
}

// LaunchSpec is what a sandbox launcher needs to start one execution unit.
type LaunchSpec struct {
	JobID    string
	Code     string
	Language LanguageConfig
	Limits   Limits
}
