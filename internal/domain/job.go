package domain

import (
	"fmt"
	"time"

	"gitlab.com/coderunner.net/internal/static/errs"
)

// JobStatus represents the status of a job
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// IsTerminal reports whether no further transition is allowed from s.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Job is one tracked execution attempt.
type Job struct {
	ID           string     `json:"job_id" db:"id"`
	Language     string     `json:"language" db:"language"`
	Status       JobStatus  `json:"status" db:"status"`
	Result       *Verdict   `json:"result,omitempty" db:"-"`
	ErrorMessage string     `json:"error_message,omitempty" db:"error_message"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	StartedAt    *time.Time `json:"started_at,omitempty" db:"started_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty" db:"completed_at"`
}

type JobTable struct {
	ID           string
	Language     string
	Status       string
	Result       string
	ErrorMessage string
	CreatedAt    string
	StartedAt    string
	CompletedAt  string
}

func GetJobTable() JobTable {
	return JobTable{
		ID:           "id",
		Language:     "language",
		Status:       "status",
		Result:       "result",
		ErrorMessage: "error_message",
		CreatedAt:    "created_at",
		StartedAt:    "started_at",
		CompletedAt:  "completed_at",
	}
}

func (JobTable) TableName() string {
	return "execution_jobs"
}

// NewJob creates a new job in the pending state
func NewJob(id, language string, now time.Time) *Job {
	return &Job{
		ID:        id,
		Language:  language,
		Status:    JobStatusPending,
		CreatedAt: now,
	}
}

// MarkRunning moves a pending job to running.
func (j *Job) MarkRunning(now time.Time) error {
	if j.Status != JobStatusPending {
		return j.transitionError(JobStatusRunning)
	}
	j.Status = JobStatusRunning
	j.StartedAt = &now
	return nil
}

// Complete attaches the verdict. Allowed from pending or running, never twice.
func (j *Job) Complete(verdict *Verdict, now time.Time) error {
	if j.Status.IsTerminal() {
		return j.transitionError(JobStatusCompleted)
	}
	if verdict == nil {
		return fmt.Errorf("complete job %s: verdict is required", j.ID)
	}
	j.Status = JobStatusCompleted
	j.Result = verdict
	j.ErrorMessage = ""
	j.CompletedAt = &now
	return nil
}

// Fail records an infrastructure failure. A failed job never carries a verdict.
func (j *Job) Fail(message string, now time.Time) error {
	if j.Status.IsTerminal() {
		return j.transitionError(JobStatusFailed)
	}
	j.Status = JobStatusFailed
	j.Result = nil
	j.ErrorMessage = message
	j.CompletedAt = &now
	return nil
}

// Clone returns a deep copy so stores never hand out shared pointers.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	c := *j
	if j.StartedAt != nil {
		t := *j.StartedAt
		c.StartedAt = &t
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		c.CompletedAt = &t
	}
	c.Result = j.Result.Clone()
	return &c
}

func (j *Job) transitionError(to JobStatus) error {
	return fmt.Errorf("job %s: %s -> %s: %w", j.ID, j.Status, to, errs.ErrInvalidTransition)
}
