package model

import "time"

// RunStatus is the state of a pipeline run or step.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
	RunStatusSkipped   RunStatus = "skipped"
)

// Run records one execution of the deployment pipeline.
type Run struct {
	ID          string
	Environment string
	BackendID   string
	Status      RunStatus
	Error       string
	Steps       []RunStep
	StartedAt   time.Time
	FinishedAt  time.Time
}

// RunStep records one pipeline step.
type RunStep struct {
	Name       string    `json:"name"`
	Status     RunStatus `json:"status"`
	Message    string    `json:"message,omitempty"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
}

// Duration returns the elapsed time of the run (zero while running).
func (r *Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
