package action

import "time"

// Status classifies the outcome of executing a single action.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// ExecutionResult is the per-action outcome returned by the executor.
// Fields holds kind-specific result data such as minted identifiers.
type ExecutionResult struct {
	Kind       Kind           `json:"kind"`
	Status     Status         `json:"status"`
	Fields     map[string]any `json:"fields,omitempty"`
	Error      string         `json:"error,omitempty"`
	ExecutedAt time.Time      `json:"executed_at"`
}

// Stats holds process-lifetime execution counters.
type Stats struct {
	Total             int64 `json:"total_executions"`
	Successful        int64 `json:"successful"`
	Failed            int64 `json:"failed"`
	Skipped           int64 `json:"skipped"`
	TasksCreated      int64 `json:"tasks_created"`
	NotificationsSent int64 `json:"notifications_sent"`
}
