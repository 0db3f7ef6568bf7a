// Package executor maps planned actions to side effects and reports a
// structured result for every action, never letting a failure escape its
// boundary.
package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/avely-dev/flowpulse/internal/domain/action"
	"github.com/avely-dev/flowpulse/internal/port/cache"
	"github.com/avely-dev/flowpulse/internal/port/notifier"
)

// NotificationSender is the narrow surface the notify handler needs.
// *service.NotificationService satisfies it.
type NotificationSender interface {
	Notify(ctx context.Context, n notifier.Notification)
}

// handler executes one action kind and returns its result fields.
type handler func(ctx context.Context, a action.Action) (map[string]any, error)

// Executor dispatches actions to their handlers, mints identifiers, and
// keeps cumulative execution statistics. Safe for concurrent use.
type Executor struct {
	sender   NotificationSender
	cache    cache.Cache
	dedupTTL time.Duration
	clock    func() time.Time

	handlers map[action.Kind]handler

	total             atomic.Int64
	successful        atomic.Int64
	failed            atomic.Int64
	skipped           atomic.Int64
	tasksCreated      atomic.Int64
	notificationsSent atomic.Int64

	seqMu sync.Mutex
	seqs  map[string]int64

	logMu    sync.Mutex
	log      []LogEntry
	logLimit int
}

// LogEntry is one record in the bounded in-process execution log.
type LogEntry struct {
	Action action.Action          `json:"action"`
	Result action.ExecutionResult `json:"result"`
}

const defaultLogLimit = 100

// New creates an Executor. sender may be nil (notify actions then log
// only); dedup may be nil to disable idempotent replay.
func New(sender NotificationSender, dedup cache.Cache, dedupTTL time.Duration) *Executor {
	e := &Executor{
		sender:   sender,
		cache:    dedup,
		dedupTTL: dedupTTL,
		clock:    time.Now,
		seqs:     make(map[string]int64),
		logLimit: defaultLogLimit,
	}

	e.handlers = map[action.Kind]handler{
		action.KindCreateTask:      e.createTask,
		action.KindNotify:          e.notify,
		action.KindEscalate:        e.escalate,
		action.KindSchedule:        e.schedule,
		action.KindMonitor:         e.monitor,
		action.KindBlockDeployment: e.blockDeployment,
		action.KindAggregate:       e.aggregate,
		action.KindAutoFix:         e.autoFix,
		action.KindRequestReview:   e.requestReview,
	}
	return e
}

// Execute runs a single action. dedupKey is a caller-supplied idempotency
// key; when non-empty, a repeated key replays the previously cached result
// instead of re-executing the side effect. Unknown kinds produce a skipped
// result; handler failures and panics produce a failed result. Execute
// never panics and never returns an error.
func (e *Executor) Execute(ctx context.Context, a action.Action, dedupKey string) action.ExecutionResult {
	if res, ok := e.replay(ctx, dedupKey); ok {
		slog.Debug("execution replayed", "kind", a.Kind, "dedup_key", dedupKey)
		return res
	}

	h, ok := e.handlers[a.Kind]
	if !ok {
		res := action.ExecutionResult{
			Kind:       a.Kind,
			Status:     action.StatusSkipped,
			Error:      fmt.Sprintf("unknown action kind: %s", a.Kind),
			ExecutedAt: e.clock(),
		}
		e.record(a, res)
		return res
	}

	res := e.run(ctx, h, a)
	e.record(a, res)
	e.remember(ctx, dedupKey, res)
	return res
}

// run invokes the handler, converting any error or panic into a failed result.
func (e *Executor) run(ctx context.Context, h handler, a action.Action) (res action.ExecutionResult) {
	defer func() {
		if r := recover(); r != nil {
			res = action.ExecutionResult{
				Kind:       a.Kind,
				Status:     action.StatusFailed,
				Error:      fmt.Sprintf("handler panic: %v", r),
				ExecutedAt: e.clock(),
			}
		}
	}()

	fields, err := h(ctx, a)
	if err != nil {
		return action.ExecutionResult{
			Kind:       a.Kind,
			Status:     action.StatusFailed,
			Error:      err.Error(),
			ExecutedAt: e.clock(),
		}
	}

	return action.ExecutionResult{
		Kind:       a.Kind,
		Status:     action.StatusSuccess,
		Fields:     fields,
		ExecutedAt: e.clock(),
	}
}

// nextID mints a strictly increasing identifier per prefix, e.g. TASK-0001.
// Monotonic counters rule out the collisions a random draw could produce
// under concurrent execution.
func (e *Executor) nextID(prefix string) string {
	e.seqMu.Lock()
	e.seqs[prefix]++
	n := e.seqs[prefix]
	e.seqMu.Unlock()
	return fmt.Sprintf("%s-%04d", prefix, n)
}

func (e *Executor) createTask(_ context.Context, a action.Action) (map[string]any, error) {
	id := e.nextID("TASK")
	e.tasksCreated.Add(1)

	slog.Info("task created",
		"task_id", id,
		"title", a.Param("title", "Untitled Task"),
		"severity", a.Severity,
		"assignee", a.Param("assignee", "unassigned"),
	)

	return map[string]any{
		"task_id":    id,
		"title":      a.Param("title", "Untitled Task"),
		"assignee":   a.Param("assignee", "unassigned"),
		"created_at": e.clock().Format(time.RFC3339),
	}, nil
}

func (e *Executor) notify(ctx context.Context, a action.Action) (map[string]any, error) {
	id := e.nextID("MSG")
	channel := a.Param("channel", "general")
	message := a.Param("message", "Notification")
	mention := a.Param("mention", "")

	if e.sender != nil {
		e.sender.Notify(ctx, notifier.Notification{
			Channel: channel,
			Message: message,
			Mention: mention,
			Level:   string(a.Severity),
			Source:  a.Param("source", ""),
		})
	}
	e.notificationsSent.Add(1)

	slog.Info("notification sent", "message_id", id, "channel", channel, "mention", mention)

	return map[string]any{
		"message_id":   id,
		"channel":      channel,
		"delivered_at": e.clock().Format(time.RFC3339),
	}, nil
}

func (e *Executor) escalate(_ context.Context, a action.Action) (map[string]any, error) {
	id := e.nextID("ESC")
	target := a.Param("escalate_to", "manager")

	slog.Warn("escalated", "escalation_id", id, "escalate_to", target, "reason", a.Param("reason", "Unknown"))

	return map[string]any{
		"escalation_id": id,
		"escalated_to":  target,
		"reason":        a.Param("reason", "Unknown"),
		"escalated_at":  e.clock().Format(time.RFC3339),
	}, nil
}

func (e *Executor) schedule(_ context.Context, a action.Action) (map[string]any, error) {
	id := e.nextID("SCH")

	slog.Info("scheduled",
		"schedule_id", id,
		"activity", a.Param("activity", "task"),
		"resource_id", a.Param("resource_id", "unknown"),
	)

	return map[string]any{
		"schedule_id":    id,
		"activity":       a.Param("activity", "task"),
		"resource_id":    a.Param("resource_id", "unknown"),
		"scheduled_time": a.Param("time_slot", "next_available"),
		"duration":       a.Param("duration", "30m"),
	}, nil
}

func (e *Executor) monitor(_ context.Context, a action.Action) (map[string]any, error) {
	id := e.nextID("MON")
	target := a.Param("target", "unknown")

	slog.Info("monitoring started", "monitor_id", id, "target", target)

	return map[string]any{
		"monitor_id": id,
		"target":     target,
		"metrics":    a.Params["metrics"],
		"duration":   a.Param("duration", "30m"),
		"started_at": e.clock().Format(time.RFC3339),
	}, nil
}

func (e *Executor) blockDeployment(_ context.Context, a action.Action) (map[string]any, error) {
	id := e.nextID("BLK")

	slog.Warn("deployment blocked",
		"block_id", id,
		"reason", a.Param("reason", "Unknown"),
		"affected_services", a.Params["affected_services"],
	)

	return map[string]any{
		"block_id":          id,
		"blocked":           true,
		"reason":            a.Param("reason", "Unknown"),
		"affected_services": a.Params["affected_services"],
		"blocked_at":        e.clock().Format(time.RFC3339),
	}, nil
}

func (e *Executor) aggregate(_ context.Context, a action.Action) (map[string]any, error) {
	id := e.nextID("AGG")

	slog.Info("events aggregated",
		"aggregate_id", id,
		"event_type", a.Param("event_type", "unknown"),
		"count", a.Params["count"],
	)

	return map[string]any{
		"aggregate_id": id,
		"action":       a.Param("action", "group"),
		"event_type":   a.Param("event_type", "unknown"),
		"count":        a.Params["count"],
	}, nil
}

func (e *Executor) autoFix(_ context.Context, a action.Action) (map[string]any, error) {
	id := e.nextID("FIX")
	fields := map[string]any{
		"fix_id":   id,
		"fix_type": a.Param("fix_type", "generic_fix"),
		"fixed_at": e.clock().Format(time.RFC3339),
	}

	if createPR, _ := a.Params["create_pr"].(bool); createPR {
		fields["pr_id"] = e.nextID("PR")
	}

	slog.Info("auto-fix executed", "fix_id", id, "fix_type", fields["fix_type"], "pr_id", fields["pr_id"])
	return fields, nil
}

func (e *Executor) requestReview(_ context.Context, a action.Action) (map[string]any, error) {
	id := e.nextID("REV")

	slog.Info("review requested",
		"request_id", id,
		"resource_id", a.Param("resource_id", "unknown"),
	)

	return map[string]any{
		"request_id":  id,
		"resource_id": a.Param("resource_id", "unknown"),
		"reviewers":   a.Params["reviewers"],
	}, nil
}

// record updates counters and the bounded execution log.
func (e *Executor) record(a action.Action, res action.ExecutionResult) {
	e.total.Add(1)
	switch res.Status {
	case action.StatusSuccess:
		e.successful.Add(1)
	case action.StatusFailed:
		e.failed.Add(1)
	case action.StatusSkipped:
		e.skipped.Add(1)
	}

	e.logMu.Lock()
	e.log = append(e.log, LogEntry{Action: a, Result: res})
	if len(e.log) > e.logLimit {
		e.log = e.log[len(e.log)-e.logLimit:]
	}
	e.logMu.Unlock()
}

// Stats returns the cumulative execution counters.
func (e *Executor) Stats() action.Stats {
	return action.Stats{
		Total:             e.total.Load(),
		Successful:        e.successful.Load(),
		Failed:            e.failed.Load(),
		Skipped:           e.skipped.Load(),
		TasksCreated:      e.tasksCreated.Load(),
		NotificationsSent: e.notificationsSent.Load(),
	}
}

// RecentExecutions returns up to limit entries from the end of the log.
func (e *Executor) RecentExecutions(limit int) []LogEntry {
	e.logMu.Lock()
	defer e.logMu.Unlock()

	if limit <= 0 || limit > len(e.log) {
		limit = len(e.log)
	}
	out := make([]LogEntry, limit)
	copy(out, e.log[len(e.log)-limit:])
	return out
}

func (e *Executor) replay(ctx context.Context, dedupKey string) (action.ExecutionResult, bool) {
	if dedupKey == "" || e.cache == nil {
		return action.ExecutionResult{}, false
	}

	data, ok, err := e.cache.Get(ctx, "exec:"+dedupKey)
	if err != nil || !ok {
		return action.ExecutionResult{}, false
	}

	var res action.ExecutionResult
	if err := json.Unmarshal(data, &res); err != nil {
		slog.Warn("corrupt dedup cache entry", "key", dedupKey)
		return action.ExecutionResult{}, false
	}
	return res, true
}

func (e *Executor) remember(ctx context.Context, dedupKey string, res action.ExecutionResult) {
	if dedupKey == "" || e.cache == nil {
		return
	}

	data, err := json.Marshal(res)
	if err != nil {
		return
	}
	if err := e.cache.Set(ctx, "exec:"+dedupKey, data, e.dedupTTL); err != nil {
		slog.Warn("dedup cache set failed", "key", dedupKey, "error", err)
	}
}
