package domain

import "time"

// TerminalState is how a supervised execution ended.
type TerminalState string

const (
	StateCompleted        TerminalState = "completed"
	StateTimedOut         TerminalState = "timed_out"
	StateResourceExceeded TerminalState = "resource_exceeded"
	StateCrashed          TerminalState = "crashed"
)

// ExitInfo is what an execution unit reports once its process has ended.
type ExitInfo struct {
	ExitCode int
	// Signal is the name of the fatal signal, empty for a normal exit.
	Signal string
	// LimitExceeded is set when the isolation layer reports a ceiling breach
	// (OOM kill, CPU rlimit signal).
	LimitExceeded bool
	MemoryBytes   int64
	CPUTime       time.Duration
	// Runtime is the run time measured by the isolation layer itself, zero
	// when it cannot tell.
	Runtime time.Duration
}

// Outcome is the supervisor's account of one execution.
type Outcome struct {
	State           TerminalState
	ExitCode        int
	Signal          string
	Stdout          string
	Stderr          string
	OutputTruncated bool
	Elapsed         time.Duration
	MemoryBytes     int64
	CPUTime         time.Duration
}
