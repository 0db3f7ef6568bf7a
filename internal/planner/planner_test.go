package planner

import (
	"reflect"
	"testing"
	"unicode/utf8"

	"github.com/avely-dev/flowpulse/internal/domain/action"
	"github.com/avely-dev/flowpulse/internal/domain/event"
	"github.com/avely-dev/flowpulse/internal/memory"
)

func planKinds(actions []action.Action) []action.Kind {
	out := make([]action.Kind, 0, len(actions))
	for _, a := range actions {
		out = append(out, a.Kind)
	}
	return out
}

func hasKind(actions []action.Action, k action.Kind) bool {
	for _, a := range actions {
		if a.Kind == k {
			return true
		}
	}
	return false
}

func findKind(t *testing.T, actions []action.Action, k action.Kind) action.Action {
	t.Helper()
	for _, a := range actions {
		if a.Kind == k {
			return a
		}
	}
	t.Fatalf("plan %v does not contain %s", planKinds(actions), k)
	return action.Action{}
}

func TestPlanCriticalError(t *testing.T) {
	payload := event.Payload{
		"message":  "Database connection timeout",
		"severity": "critical",
		"service":  "api-gateway",
	}
	plan := Plan(event.TypeError, payload, 10, memory.Snapshot{Count: 1})

	task := findKind(t, plan, action.KindCreateTask)
	if task.Severity != action.SeverityCritical {
		t.Errorf("task severity = %s, want critical", task.Severity)
	}
	if got := task.Param("assignee", ""); got != "oncall_engineer" {
		t.Errorf("assignee = %q, want oncall_engineer", got)
	}

	notify := findKind(t, plan, action.KindNotify)
	if got := notify.Param("channel", ""); got != "urgent" {
		t.Errorf("channel = %q, want urgent", got)
	}
	if got := notify.Param("mention", ""); got != "oncall" {
		t.Errorf("mention = %q, want oncall", got)
	}

	if hasKind(plan, action.KindEscalate) {
		t.Error("single error must not escalate")
	}
}

func TestPlanSecurityAlert(t *testing.T) {
	payload := event.Payload{
		"alert_type": "dependency_vulnerability",
		"details":    "CVE-2024-1234",
	}
	plan := Plan(event.TypeSecurityAlert, payload, 10, memory.Snapshot{Count: 1})

	for _, k := range []action.Kind{
		action.KindCreateTask,
		action.KindNotify,
		action.KindBlockDeployment,
		action.KindEscalate,
	} {
		if !hasKind(plan, k) {
			t.Errorf("plan %v missing %s", planKinds(plan), k)
		}
	}

	task := findKind(t, plan, action.KindCreateTask)
	if got := task.Param("assignee", ""); got != "security_team" {
		t.Errorf("assignee = %q, want security_team", got)
	}

	block := findKind(t, plan, action.KindBlockDeployment)
	if block.Severity != action.SeverityCritical {
		t.Errorf("block severity = %s, want critical", block.Severity)
	}
}

func TestPlanTestFailureEscalation(t *testing.T) {
	payload := event.Payload{"test_name": "test_user_login"}

	plan4 := Plan(event.TypeTestFailure, payload, 8, memory.Snapshot{Count: 4})
	if hasKind(plan4, action.KindEscalate) {
		t.Error("count 4 must not escalate")
	}

	plan5 := Plan(event.TypeTestFailure, payload, 8, memory.Snapshot{Count: 5})
	if !hasKind(plan5, action.KindCreateTask) {
		t.Error("expected create_task")
	}
	if !hasKind(plan5, action.KindEscalate) {
		t.Error("count 5 must escalate")
	}
}

func TestPlanDeployment(t *testing.T) {
	payload := event.Payload{"service": "user-service"}
	plan := Plan(event.TypeDeployment, payload, 7, memory.Snapshot{Count: 1})

	if !hasKind(plan, action.KindMonitor) {
		t.Error("expected monitor")
	}
	if !hasKind(plan, action.KindCreateTask) {
		t.Error("expected create_task")
	}
	if hasKind(plan, action.KindNotify) {
		t.Error("deployment at priority 7 must not notify")
	}
	if hasKind(plan, action.KindEscalate) {
		t.Error("deployment never escalates")
	}

	mon := findKind(t, plan, action.KindMonitor)
	if got := mon.Param("target", ""); got != "user-service" {
		t.Errorf("monitor target = %q, want user-service", got)
	}
}

func TestPlanBelowThreshold(t *testing.T) {
	tests := []struct {
		name     string
		t        event.Type
		priority int
		wantNil  bool
	}{
		{"error below 7", event.TypeError, 6, true},
		{"error at 7", event.TypeError, 7, false},
		{"test_failure below 6", event.TypeTestFailure, 5, true},
		{"deployment below 5", event.TypeDeployment, 4, true},
		{"code_review below 6", event.TypeCodeReview, 5, true},
		{"security_alert at 0", event.TypeSecurityAlert, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := Plan(tt.t, event.Payload{}, tt.priority, memory.Snapshot{Count: 1})
			if (plan == nil) != tt.wantNil {
				t.Errorf("plan = %v, wantNil = %v", planKinds(plan), tt.wantNil)
			}
		})
	}
}

func TestPlanCodeReviewSchedule(t *testing.T) {
	payload := event.Payload{"pr_id": "PR-456"}
	plan := Plan(event.TypeCodeReview, payload, 6, memory.Snapshot{Count: 1})

	sched := findKind(t, plan, action.KindSchedule)
	if got := sched.Param("resource_id", ""); got != "PR-456" {
		t.Errorf("resource_id = %q, want PR-456", got)
	}

	plan10 := Plan(event.TypeCodeReview, payload, 6, memory.Snapshot{Count: 10})
	if !hasKind(plan10, action.KindEscalate) {
		t.Error("count 10 must escalate for code_review")
	}
}

func TestPlanAggregation(t *testing.T) {
	// issue_created base priority 4 is below no rule threshold: it has no
	// rule entry, so aggregation applies via test_failure instead.
	payload := event.Payload{"test_name": "flaky"}

	plan := Plan(event.TypeTestFailure, payload, 8, memory.Snapshot{Count: 3})
	agg := findKind(t, plan, action.KindAggregate)
	if got := agg.Param("action", ""); got != "create_epic" {
		t.Errorf("aggregate action = %q, want create_epic", got)
	}

	plan2 := Plan(event.TypeTestFailure, payload, 8, memory.Snapshot{Count: 2})
	if hasKind(plan2, action.KindAggregate) {
		t.Error("count 2 must not aggregate")
	}

	// Errors repeat but are not an aggregate type.
	planErr := Plan(event.TypeError, event.Payload{"message": "x"}, 10, memory.Snapshot{Count: 4})
	if hasKind(planErr, action.KindAggregate) {
		t.Error("error type must not aggregate")
	}
}

func TestPlanAutoFix(t *testing.T) {
	payload := event.Payload{"alert_type": "dependency_vulnerability"}

	plan1 := Plan(event.TypeSecurityAlert, payload, 10, memory.Snapshot{Count: 1})
	if hasKind(plan1, action.KindAutoFix) {
		t.Error("first occurrence must not auto-fix")
	}

	plan2 := Plan(event.TypeSecurityAlert, payload, 10, memory.Snapshot{Count: 2})
	fix := findKind(t, plan2, action.KindAutoFix)
	if got := fix.Param("fix_type", ""); got != "dependency_update" {
		t.Errorf("fix_type = %q, want dependency_update", got)
	}

	planOther := Plan(event.TypeSecurityAlert, event.Payload{"alert_type": "zero_day"}, 10, memory.Snapshot{Count: 5})
	if hasKind(planOther, action.KindAutoFix) {
		t.Error("unknown alert_type must not auto-fix")
	}
}

func TestPlanDefaultForUnruledTypes(t *testing.T) {
	for _, typ := range []event.Type{event.TypeCommit, event.TypeIssueCreated, event.TypeUnknown} {
		t.Run(string(typ), func(t *testing.T) {
			plan := Plan(typ, event.Payload{}, 5, memory.Snapshot{})
			if len(plan) != 1 || plan[0].Kind != action.KindCreateTask {
				t.Fatalf("plan = %v, want single create_task", planKinds(plan))
			}
			if plan[0].Severity != action.SeverityLow {
				t.Errorf("severity = %s, want low", plan[0].Severity)
			}
		})
	}
}

func TestPlanZeroCountTreatedAsOne(t *testing.T) {
	// A missing snapshot must not trip count-based predicates.
	plan := Plan(event.TypeError, event.Payload{"message": "x"}, 10, memory.Snapshot{})
	if hasKind(plan, action.KindEscalate) {
		t.Error("zero count must not escalate")
	}
}

func TestPlanPure(t *testing.T) {
	payload := event.Payload{"message": "Database down", "service": "api"}
	snap := memory.Snapshot{Count: 3}

	first := Plan(event.TypeError, payload, 10, snap)
	for range 5 {
		if got := Plan(event.TypeError, payload, 10, snap); !reflect.DeepEqual(got, first) {
			t.Fatal("identical inputs produced different plans")
		}
	}
}

func TestPlanOrdering(t *testing.T) {
	// History-derived actions come after the immediate ones.
	payload := event.Payload{"alert_type": "dependency_vulnerability"}
	plan := Plan(event.TypeSecurityAlert, payload, 10, memory.Snapshot{Count: 2})

	order := planKinds(plan)
	idx := func(k action.Kind) int {
		for i, got := range order {
			if got == k {
				return i
			}
		}
		return -1
	}

	if idx(action.KindCreateTask) > idx(action.KindEscalate) {
		t.Errorf("create_task must precede escalate: %v", order)
	}
	if idx(action.KindEscalate) > idx(action.KindAutoFix) {
		t.Errorf("escalate must precede auto_fix: %v", order)
	}
}

func TestNotifyMessageTruncatesOnRuneBoundary(t *testing.T) {
	// A payload that serializes past 100 bytes with multi-byte runes
	// straddling the cut point.
	payload := event.Payload{
		"details": "デプロイが失敗しましたデプロイが失敗しましたデプロイが失敗しました",
	}

	msg := notifyMessage(event.TypeDeployment, payload)
	if !utf8.ValidString(msg) {
		t.Errorf("message is not valid UTF-8: %q", msg)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		n    int
		want string
	}{
		{"short unchanged", "abc", 100, "abc"},
		{"ascii cut", "abcdef", 3, "abc"},
		{"rune preserved", "日本語", 6, "日本"},
		{"mid-rune backs off", "日本語", 7, "日本"},
		{"exact", "日本語", 9, "日本語"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := truncate(tt.in, tt.n); got != tt.want {
				t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
			}
		})
	}
}
