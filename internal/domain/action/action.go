// Package action defines the planned-action value objects exchanged between
// the planner and the executor.
package action

// Kind identifies the type of a planned action.
type Kind string

const (
	KindCreateTask      Kind = "create_task"
	KindNotify          Kind = "notify"
	KindEscalate        Kind = "escalate"
	KindSchedule        Kind = "schedule"
	KindMonitor         Kind = "monitor"
	KindBlockDeployment Kind = "block_deployment"
	KindAggregate       Kind = "aggregate"
	KindAutoFix         Kind = "auto_fix"
	KindRequestReview   Kind = "request_review"
)

// Severity labels how urgent an action is.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// SeverityForPriority maps a 0-10 priority score to a severity label.
func SeverityForPriority(priority int) Severity {
	switch {
	case priority >= 9:
		return SeverityCritical
	case priority >= 7:
		return SeverityHigh
	case priority >= 5:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// Action is a typed, parameterized instruction for an external side effect.
// Params keys are kind-specific; the reasoning field is diagnostic only.
type Action struct {
	Kind      Kind           `json:"kind"`
	Severity  Severity       `json:"severity"`
	Params    map[string]any `json:"params"`
	Reasoning string         `json:"reasoning"`
}

// Param returns the string value for a params key, or def when absent.
func (a Action) Param(key, def string) string {
	if v, ok := a.Params[key].(string); ok {
		return v
	}
	return def
}
