package executor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/avely-dev/flowpulse/internal/domain/action"
	"github.com/avely-dev/flowpulse/internal/port/notifier"
)

// mockSender captures notifications handed to the executor.
type mockSender struct {
	mu   sync.Mutex
	sent []notifier.Notification
}

func (m *mockSender) Notify(_ context.Context, n notifier.Notification) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, n)
}

// mapCache is an in-memory cache.Cache for dedup tests.
type mapCache struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func newMapCache() *mapCache {
	return &mapCache{entries: make(map[string][]byte)}
}

func (c *mapCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	return v, ok, nil
}

func (c *mapCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
	return nil
}

func (c *mapCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

func TestExecuteUnknownKind(t *testing.T) {
	e := New(nil, nil, 0)

	res := e.Execute(context.Background(), action.Action{Kind: "teleport"}, "")
	if res.Status != action.StatusSkipped {
		t.Errorf("status = %s, want skipped", res.Status)
	}
	if res.Error == "" {
		t.Error("expected error message on skipped result")
	}

	stats := e.Stats()
	if stats.Skipped != 1 || stats.Total != 1 {
		t.Errorf("stats = %+v, want 1 skipped of 1", stats)
	}
}

func TestExecuteCreateTaskDistinctIDs(t *testing.T) {
	e := New(nil, nil, 0)
	a := action.Action{
		Kind:   action.KindCreateTask,
		Params: map[string]any{"title": "Fix it"},
	}

	res1 := e.Execute(context.Background(), a, "")
	res2 := e.Execute(context.Background(), a, "")

	if res1.Status != action.StatusSuccess || res2.Status != action.StatusSuccess {
		t.Fatalf("statuses = %s, %s", res1.Status, res2.Status)
	}

	id1, _ := res1.Fields["task_id"].(string)
	id2, _ := res2.Fields["task_id"].(string)
	if id1 == "" || id1 == id2 {
		t.Errorf("expected distinct task ids, got %q and %q", id1, id2)
	}
	if id1 != "TASK-0001" || id2 != "TASK-0002" {
		t.Errorf("expected monotonic ids, got %q and %q", id1, id2)
	}

	if got := e.Stats().TasksCreated; got != 2 {
		t.Errorf("tasks created = %d, want 2", got)
	}
}

func TestExecuteNotifyFansOut(t *testing.T) {
	sender := &mockSender{}
	e := New(sender, nil, 0)

	a := action.Action{
		Kind:     action.KindNotify,
		Severity: action.SeverityHigh,
		Params: map[string]any{
			"channel": "urgent",
			"message": "Database down",
			"mention": "oncall",
		},
	}

	res := e.Execute(context.Background(), a, "")
	if res.Status != action.StatusSuccess {
		t.Fatalf("status = %s", res.Status)
	}

	if len(sender.sent) != 1 {
		t.Fatalf("sent = %d notifications, want 1", len(sender.sent))
	}
	n := sender.sent[0]
	if n.Channel != "urgent" || n.Mention != "oncall" || n.Level != "high" {
		t.Errorf("notification = %+v", n)
	}

	if got := e.Stats().NotificationsSent; got != 1 {
		t.Errorf("notifications sent = %d, want 1", got)
	}
}

func TestExecuteAutoFixMintsPR(t *testing.T) {
	e := New(nil, nil, 0)

	withPR := e.Execute(context.Background(), action.Action{
		Kind:   action.KindAutoFix,
		Params: map[string]any{"fix_type": "dependency_update", "create_pr": true},
	}, "")
	if _, ok := withPR.Fields["pr_id"].(string); !ok {
		t.Errorf("expected pr_id field, got %v", withPR.Fields)
	}

	withoutPR := e.Execute(context.Background(), action.Action{
		Kind:   action.KindAutoFix,
		Params: map[string]any{"fix_type": "generic_fix"},
	}, "")
	if _, ok := withoutPR.Fields["pr_id"]; ok {
		t.Errorf("unexpected pr_id field: %v", withoutPR.Fields)
	}
}

func TestExecuteDedupReplay(t *testing.T) {
	e := New(nil, newMapCache(), time.Minute)
	a := action.Action{
		Kind:   action.KindCreateTask,
		Params: map[string]any{"title": "Fix timeout"},
	}

	first := e.Execute(context.Background(), a, "error|api::timeout|create_task")
	second := e.Execute(context.Background(), a, "error|api::timeout|create_task")

	if first.Fields["task_id"] != second.Fields["task_id"] {
		t.Errorf("replay minted a new id: %v vs %v", first.Fields["task_id"], second.Fields["task_id"])
	}

	// A replayed action must not double-count side effects.
	if got := e.Stats().TasksCreated; got != 1 {
		t.Errorf("tasks created = %d, want 1", got)
	}

	third := e.Execute(context.Background(), a, "error|api::other|create_task")
	if third.Fields["task_id"] == first.Fields["task_id"] {
		t.Error("different key must execute fresh")
	}
}

func TestExecuteAllKindsSucceed(t *testing.T) {
	e := New(&mockSender{}, nil, 0)

	kinds := []action.Kind{
		action.KindCreateTask,
		action.KindNotify,
		action.KindEscalate,
		action.KindSchedule,
		action.KindMonitor,
		action.KindBlockDeployment,
		action.KindAggregate,
		action.KindAutoFix,
		action.KindRequestReview,
	}

	for _, k := range kinds {
		t.Run(string(k), func(t *testing.T) {
			res := e.Execute(context.Background(), action.Action{Kind: k, Params: map[string]any{}}, "")
			if res.Status != action.StatusSuccess {
				t.Errorf("status = %s, error = %s", res.Status, res.Error)
			}
			if res.ExecutedAt.IsZero() {
				t.Error("expected executed_at to be set")
			}
		})
	}

	stats := e.Stats()
	if stats.Total != int64(len(kinds)) || stats.Failed != 0 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestExecuteHandlerFailureContained(t *testing.T) {
	e := New(nil, nil, 0)
	e.handlers["explode"] = func(context.Context, action.Action) (map[string]any, error) {
		panic("boom")
	}
	e.handlers["fail"] = func(context.Context, action.Action) (map[string]any, error) {
		return nil, context.DeadlineExceeded
	}

	res := e.Execute(context.Background(), action.Action{Kind: "explode"}, "")
	if res.Status != action.StatusFailed {
		t.Errorf("panic status = %s, want failed", res.Status)
	}
	if res.Error == "" {
		t.Error("expected panic message in result")
	}

	res = e.Execute(context.Background(), action.Action{Kind: "fail"}, "")
	if res.Status != action.StatusFailed {
		t.Errorf("error status = %s, want failed", res.Status)
	}

	if got := e.Stats().Failed; got != 2 {
		t.Errorf("failed = %d, want 2", got)
	}
}

func TestRecentExecutionsBounded(t *testing.T) {
	e := New(nil, nil, 0)
	e.logLimit = 3

	for range 10 {
		e.Execute(context.Background(), action.Action{Kind: action.KindEscalate, Params: map[string]any{}}, "")
	}

	entries := e.RecentExecutions(0)
	if len(entries) != 3 {
		t.Fatalf("log length = %d, want 3", len(entries))
	}
	// Newest entry is last.
	last := entries[2].Result.Fields["escalation_id"]
	if last != "ESC-0010" {
		t.Errorf("last escalation id = %v, want ESC-0010", last)
	}
}

func TestConcurrentExecution(t *testing.T) {
	e := New(nil, nil, 0)

	const workers = 8
	const perWorker = 25

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range perWorker {
				e.Execute(context.Background(), action.Action{
					Kind:   action.KindCreateTask,
					Params: map[string]any{"title": "load"},
				}, "")
			}
		}()
	}
	wg.Wait()

	stats := e.Stats()
	if stats.TasksCreated != workers*perWorker {
		t.Errorf("tasks created = %d, want %d", stats.TasksCreated, workers*perWorker)
	}

	// Every minted id is distinct under concurrency.
	seen := make(map[any]bool)
	for _, entry := range e.RecentExecutions(0) {
		id := entry.Result.Fields["task_id"]
		if seen[id] {
			t.Fatalf("duplicate task id %v", id)
		}
		seen[id] = true
	}
}
