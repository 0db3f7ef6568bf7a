// Package planner holds the deterministic decision core: the priority
// scorer and the rule-driven action planner.
package planner

import (
	"fmt"
	"unicode/utf8"

	"github.com/avely-dev/flowpulse/internal/domain/action"
	"github.com/avely-dev/flowpulse/internal/domain/event"
	"github.com/avely-dev/flowpulse/internal/memory"
)

// rule describes how one event type is handled: the priority floor below
// which the event is logged only, the action kinds that apply, and the
// escalation predicate over the running count.
type rule struct {
	threshold int
	kinds     map[action.Kind]bool
	escalate  func(count int64) bool
}

func kinds(ks ...action.Kind) map[action.Kind]bool {
	m := make(map[action.Kind]bool, len(ks))
	for _, k := range ks {
		m[k] = true
	}
	return m
}

// rules is the declarative per-type table. Types absent from the table fall
// back to a single manual-review task.
var rules = map[event.Type]rule{
	event.TypeError: {
		threshold: 7,
		kinds:     kinds(action.KindCreateTask, action.KindNotify),
		escalate:  func(count int64) bool { return count >= 3 },
	},
	event.TypeSecurityAlert: {
		threshold: 0, // always act
		kinds:     kinds(action.KindCreateTask, action.KindNotify, action.KindBlockDeployment),
		escalate:  func(int64) bool { return true },
	},
	event.TypeTestFailure: {
		threshold: 6,
		kinds:     kinds(action.KindCreateTask),
		escalate:  func(count int64) bool { return count >= 5 },
	},
	event.TypeDeployment: {
		threshold: 5,
		kinds:     kinds(action.KindMonitor, action.KindCreateTask),
		escalate:  func(int64) bool { return false },
	},
	event.TypeCodeReview: {
		threshold: 6,
		kinds:     kinds(action.KindSchedule),
		escalate:  func(count int64) bool { return count >= 10 },
	},
}

// aggregateTypes are the types subject to the recurring-pattern heuristic,
// independent of the per-type escalation rule.
var aggregateTypes = map[event.Type]bool{
	event.TypeIssueCreated: true,
	event.TypeTestFailure:  true,
}

const (
	aggregateThreshold = 3
	autoFixThreshold   = 2
	notifyFloor        = 8
	mentionFloor       = 9
)

// autoFixable is the closed set of issue types with a known automated fix.
var autoFixable = map[string]bool{
	"dependency_vulnerability": true,
	"formatting_error":         true,
	"configuration_drift":      true,
}

// Plan selects the ordered action list for one event. Pure: no side
// effects, no clock reads, identical inputs yield identical plans.
// Task and notification actions precede the history-derived escalation,
// aggregation and auto-fix actions; callers must preserve that order.
func Plan(t event.Type, payload event.Payload, priority int, snap memory.Snapshot) []action.Action {
	r, ok := rules[t]
	if !ok {
		return defaultPlan(t, payload)
	}

	if priority < r.threshold {
		return nil
	}

	count := snap.Count
	if count < 1 {
		count = 1
	}

	var actions []action.Action

	if r.kinds[action.KindCreateTask] {
		actions = append(actions, planTask(t, payload, priority))
	}

	if r.kinds[action.KindNotify] && priority >= notifyFloor {
		actions = append(actions, planNotify(t, payload, priority))
	}

	if r.kinds[action.KindSchedule] {
		actions = append(actions, planSchedule(t, payload))
	}

	if r.kinds[action.KindMonitor] {
		actions = append(actions, planMonitor(payload))
	}

	if r.kinds[action.KindBlockDeployment] {
		actions = append(actions, planBlock(payload))
	}

	if r.escalate(count) {
		actions = append(actions, planEscalate(t, count))
	}

	if count >= aggregateThreshold && aggregateTypes[t] {
		actions = append(actions, planAggregate(t, count))
	}

	if canAutoFix(payload, count) {
		actions = append(actions, planAutoFix(payload))
	}

	return actions
}

func planTask(t event.Type, payload event.Payload, priority int) action.Action {
	var title string
	switch t {
	case event.TypeError:
		title = "Fix: " + payload.GetString("message", "Unknown error")
	case event.TypeTestFailure:
		title = "Test failed: " + payload.GetString("test_name", "unknown")
	case event.TypeSecurityAlert:
		title = "Security: " + payload.GetString("alert_type", "unknown")
	case event.TypeDeployment:
		title = "Verify deployment: " + payload.GetString("service", "unknown")
	default:
		title = fmt.Sprintf("Handle %s", t)
	}

	return action.Action{
		Kind:     action.KindCreateTask,
		Severity: action.SeverityForPriority(priority),
		Params: map[string]any{
			"title":       title,
			"description": payload.String(),
			"labels":      []string{string(t), "automated"},
			"assignee":    assigneeFor(t),
		},
		Reasoning: fmt.Sprintf("Event priority %d requires task tracking", priority),
	}
}

func planNotify(t event.Type, payload event.Payload, priority int) action.Action {
	channel := "general"
	switch t {
	case event.TypeSecurityAlert:
		channel = "security"
	case event.TypeError:
		if priority >= mentionFloor {
			channel = "urgent"
		} else {
			channel = "alerts"
		}
	case event.TypeDeployment:
		channel = "deployments"
	}

	severity := action.SeverityMedium
	if priority >= notifyFloor {
		severity = action.SeverityHigh
	}

	params := map[string]any{
		"channel": channel,
		"message": notifyMessage(t, payload),
	}
	if priority >= mentionFloor {
		params["mention"] = "oncall"
	}

	return action.Action{
		Kind:      action.KindNotify,
		Severity:  severity,
		Params:    params,
		Reasoning: fmt.Sprintf("High priority event (%d) requires immediate notification", priority),
	}
}

func notifyMessage(t event.Type, payload event.Payload) string {
	switch t {
	case event.TypeSecurityAlert:
		return fmt.Sprintf("Security alert: %s - %s",
			payload.GetString("alert_type", "unknown"),
			payload.GetString("details", ""))
	case event.TypeError:
		return fmt.Sprintf("Error: %s in %s",
			payload.GetString("message", "unknown"),
			payload.GetString("service", "unknown"))
	}

	body := truncate(payload.String(), 100)
	return fmt.Sprintf("%s: %s", t, body)
}

// truncate caps s at n bytes without splitting a multi-byte rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func planSchedule(t event.Type, payload event.Payload) action.Action {
	resource := payload.GetString("pr_id", "")
	if resource == "" {
		resource = payload.GetString("issue_id", "unknown")
	}

	return action.Action{
		Kind:     action.KindSchedule,
		Severity: action.SeverityMedium,
		Params: map[string]any{
			"activity":    string(t),
			"resource_id": resource,
			"time_slot":   "next_available",
			"duration":    "30m",
		},
		Reasoning: "Scheduling required for code review workflow",
	}
}

func planMonitor(payload event.Payload) action.Action {
	return action.Action{
		Kind:     action.KindMonitor,
		Severity: action.SeverityMedium,
		Params: map[string]any{
			"target":          payload.GetString("service", "unknown"),
			"metrics":         []string{"error_rate", "latency", "cpu", "memory"},
			"duration":        "30m",
			"alert_threshold": "high",
		},
		Reasoning: "Post-deployment monitoring required",
	}
}

func planBlock(payload event.Payload) action.Action {
	return action.Action{
		Kind:     action.KindBlockDeployment,
		Severity: action.SeverityCritical,
		Params: map[string]any{
			"reason":            "Security alert: " + payload.GetString("alert_type", "unknown"),
			"affected_services": payload.GetStrings("affected_services"),
			"until_resolved":    true,
		},
		Reasoning: "Security vulnerability requires deployment freeze",
	}
}

func planEscalate(t event.Type, count int64) action.Action {
	return action.Action{
		Kind:     action.KindEscalate,
		Severity: action.SeverityHigh,
		Params: map[string]any{
			"reason":       fmt.Sprintf("Repeated %s detected (%d occurrences)", t, count),
			"escalate_to":  "engineering_manager",
			"include_data": true,
		},
		Reasoning: fmt.Sprintf("Event count %d exceeds threshold", count),
	}
}

func planAggregate(t event.Type, count int64) action.Action {
	return action.Action{
		Kind:     action.KindAggregate,
		Severity: action.SeverityMedium,
		Params: map[string]any{
			"action":     "create_epic",
			"event_type": string(t),
			"count":      count,
			"title":      fmt.Sprintf("Recurring %s pattern", t),
		},
		Reasoning: fmt.Sprintf("Multiple related events (%d) suggest larger issue", count),
	}
}

func canAutoFix(payload event.Payload, count int64) bool {
	issueType := payload.GetString("alert_type", "")
	if issueType == "" {
		issueType = payload.GetString("error_type", "")
	}
	return autoFixable[issueType] && count >= autoFixThreshold
}

func planAutoFix(payload event.Payload) action.Action {
	return action.Action{
		Kind:     action.KindAutoFix,
		Severity: action.SeverityHigh,
		Params: map[string]any{
			"fix_type":  fixType(payload),
			"automatic": true,
			"create_pr": true,
		},
		Reasoning: "Known issue with automated fix available",
	}
}

func fixType(payload event.Payload) string {
	body := payload.String()
	switch {
	case containsFold(body, "dependency"):
		return "dependency_update"
	case containsFold(body, "config"):
		return "config_correction"
	default:
		return "generic_fix"
	}
}

// defaultPlan handles event types with no rule entry: a single low-severity
// task flagged for manual review, so nothing is silently dropped.
func defaultPlan(t event.Type, payload event.Payload) []action.Action {
	return []action.Action{{
		Kind:     action.KindCreateTask,
		Severity: action.SeverityLow,
		Params: map[string]any{
			"title":       fmt.Sprintf("Review %s", t),
			"description": payload.String(),
			"labels":      []string{string(t), "automated", "review"},
			"assignee":    assigneeFor(t),
		},
		Reasoning: "Unrecognized event type - creating task for review",
	}}
}

func assigneeFor(t event.Type) string {
	switch {
	case t == event.TypeSecurityAlert:
		return "security_team"
	case t == event.TypeDeployment:
		return "devops_team"
	case containsFold(string(t), "test"):
		return "qa_team"
	default:
		return "oncall_engineer"
	}
}
