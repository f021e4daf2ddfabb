package jobs

import "gitlab.com/coderunner.net/internal/core/services/execution"

// ExecuteRequest is the body of POST /execute.
type ExecuteRequest struct {
	JobID       string   `json:"job_id"`
	Code        string   `json:"code"`
	Language    string   `json:"language"`
	Timeout     *float64 `json:"timeout,omitempty"`
	MemoryLimit *int     `json:"memory_limit,omitempty"`
	CPULimit    *float64 `json:"cpu_limit,omitempty"`
	// Async returns 202 right after the job is accepted.
	Async bool `json:"async,omitempty"`
}

func (r ExecuteRequest) toSubmit() execution.SubmitRequest {
	return execution.SubmitRequest{
		JobID:       r.JobID,
		Code:        r.Code,
		Language:    r.Language,
		Timeout:     r.Timeout,
		MemoryLimit: r.MemoryLimit,
		CPULimit:    r.CPULimit,
	}
}
