// Package service orchestrates the event pipeline: classification, scoring,
// memory, planning, advisory review, and execution.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	otelad "github.com/avely-dev/flowpulse/internal/adapter/otel"
	"github.com/avely-dev/flowpulse/internal/domain/action"
	"github.com/avely-dev/flowpulse/internal/domain/event"
	"github.com/avely-dev/flowpulse/internal/executor"
	"github.com/avely-dev/flowpulse/internal/memory"
	"github.com/avely-dev/flowpulse/internal/planner"
	"github.com/avely-dev/flowpulse/internal/port/messagequeue"
	"github.com/avely-dev/flowpulse/internal/port/reviewer"
)

// Record is the terminal result of processing one event end to end.
type Record struct {
	ID          string                   `json:"id"`
	Event       event.Event              `json:"event"`
	Priority    int                      `json:"priority"`
	Snapshot    memory.Snapshot          `json:"snapshot"`
	Plan        []action.Action          `json:"plan"`
	Review      ReviewOutcome            `json:"review"`
	Results     []action.ExecutionResult `json:"results"`
	ProcessedAt time.Time                `json:"processed_at"`
}

// RecordBroadcaster pushes terminal records to connected observers.
// *ws.Hub satisfies it.
type RecordBroadcaster interface {
	BroadcastRecord(ctx context.Context, payload any)
}

// PipelineService runs events through the full pipeline. Concurrency is
// bounded by a weighted semaphore; shutdown waits for in-flight events.
type PipelineService struct {
	memory   *memory.Store
	executor *executor.Executor
	review   *ReviewService
	queue    messagequeue.Queue
	hub      RecordBroadcaster
	metrics  *otelad.Metrics
	logger   *slog.Logger

	maxInFlight int64
	sem         *semaphore.Weighted

	recMu   sync.RWMutex
	records []Record
	recCap  int

	unsubscribe func()
	stopConsol  chan struct{}
	stopOnce    sync.Once
}

// PipelineOptions carries the optional collaborators of a pipeline.
// Queue, Hub, and Metrics may each be nil.
type PipelineOptions struct {
	Queue         messagequeue.Queue
	Hub           RecordBroadcaster
	Metrics       *otelad.Metrics
	MaxInFlight   int64
	RecordHistory int
}

// NewPipelineService creates the pipeline over its collaborators.
func NewPipelineService(mem *memory.Store, exec *executor.Executor, review *ReviewService, logger *slog.Logger, opts PipelineOptions) *PipelineService {
	if opts.MaxInFlight <= 0 {
		opts.MaxInFlight = 16
	}
	if opts.RecordHistory <= 0 {
		opts.RecordHistory = 256
	}
	return &PipelineService{
		memory:      mem,
		executor:    exec,
		review:      review,
		queue:       opts.Queue,
		hub:         opts.Hub,
		metrics:     opts.Metrics,
		logger:      logger,
		maxInFlight: opts.MaxInFlight,
		sem:         semaphore.NewWeighted(opts.MaxInFlight),
		recCap:      opts.RecordHistory,
		stopConsol:  make(chan struct{}),
	}
}

// Process runs a single raw event through the pipeline and returns its
// terminal record. It blocks while the in-flight limit is reached.
//
// deliveryID is the transport's identity for this delivery (broker message
// ID, client idempotency key); a redelivered ID replays the cached action
// results instead of re-executing side effects. Distinct occurrences of the
// same failure carry distinct IDs and always execute. Empty disables replay.
func (s *PipelineService) Process(ctx context.Context, raw event.Raw, deliveryID string) (Record, error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return Record{}, fmt.Errorf("acquire pipeline slot: %w", err)
	}
	defer s.sem.Release(1)

	started := time.Now()

	ev := event.Classify(raw)
	priority := planner.Score(ev.Type, ev.Payload)
	snap := s.memory.Observe(ev, priority)
	plan := planner.Plan(ev.Type, ev.Payload, priority, snap)

	req := reviewer.Request{
		Event:    ev,
		Priority: priority,
		Context:  reviewContext(snap, priority, time.Now().UTC()),
		Plan:     plan,
	}
	finalPlan, outcome := s.review.Review(ctx, req)

	if outcome.FellBack {
		s.countReviewFallback(ctx)
	}
	if !outcome.Approved() {
		s.countRejected(ctx)
	}

	results := make([]action.ExecutionResult, 0, len(finalPlan))
	for i, a := range finalPlan {
		res := s.executor.Execute(ctx, a, dedupKey(deliveryID, i, a.Kind))
		results = append(results, res)
		s.countResult(ctx, res)
	}

	rec := Record{
		ID:          uuid.NewString(),
		Event:       ev,
		Priority:    priority,
		Snapshot:    snap,
		Plan:        plan,
		Review:      outcome,
		Results:     results,
		ProcessedAt: time.Now().UTC(),
	}

	s.remember(rec)
	s.emit(ctx, rec)

	if s.metrics != nil {
		s.metrics.EventsProcessed.Add(ctx, 1)
		s.metrics.PlanLatency.Record(ctx, time.Since(started).Seconds())
	}

	s.logger.Info("event processed",
		"record_id", rec.ID,
		"event_type", string(ev.Type),
		"priority", priority,
		"planned", len(plan),
		"executed", len(results))

	return rec, nil
}

// reviewContext assembles the reviewer's situational prompt from the memory
// snapshot and the computed urgency of this occurrence.
func reviewContext(snap memory.Snapshot, priority int, now time.Time) string {
	recency := time.Duration(0)
	if !snap.LastSeen.IsZero() {
		recency = now.Sub(snap.LastSeen)
	}
	urgency := memory.UrgencyScore(priority, snap.Count, recency)
	return fmt.Sprintf("%s; Urgency: %.1f", snap.ContextSummary(), urgency)
}

// dedupKey scopes the executor's idempotency key to one action of one
// delivery. The event's content never feeds the key: two independent
// occurrences of the same failure must both act.
func dedupKey(deliveryID string, index int, kind action.Kind) string {
	if deliveryID == "" {
		return ""
	}
	return fmt.Sprintf("%s|%d|%s", deliveryID, index, kind)
}

// Start subscribes the pipeline to the raw event subject and begins the
// background consolidation loop. Safe to call with a nil queue.
func (s *PipelineService) Start(ctx context.Context, consolidateEvery, consolidateAfter time.Duration) error {
	if s.queue != nil {
		cancel, err := s.queue.Subscribe(ctx, messagequeue.SubjectEventsRaw, s.handleMessage)
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", messagequeue.SubjectEventsRaw, err)
		}
		s.unsubscribe = cancel
	}

	if consolidateEvery > 0 {
		go s.consolidateLoop(consolidateEvery, consolidateAfter)
	}
	return nil
}

func (s *PipelineService) handleMessage(ctx context.Context, subject, deliveryID string, data []byte) error {
	var raw event.Raw
	if err := json.Unmarshal(data, &raw); err != nil {
		// Malformed messages are acked so they do not redeliver forever.
		s.logger.Warn("dropping malformed event message", "subject", subject, "error", err)
		return nil
	}
	_, err := s.Process(ctx, raw, deliveryID)
	return err
}

func (s *PipelineService) consolidateLoop(every, maxAge time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case now := <-ticker.C:
			removed := s.memory.Consolidate(now, maxAge)
			if removed > 0 {
				s.logger.Info("memory consolidated", "removed", removed, "max_age", maxAge)
			}
		case <-s.stopConsol:
			return
		}
	}
}

// Stop cancels the subscription and waits for in-flight events to finish.
func (s *PipelineService) Stop(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.stopConsol) })
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	// Draining the full semaphore weight means no event is mid-pipeline.
	if err := s.sem.Acquire(ctx, s.maxInFlight); err != nil {
		return fmt.Errorf("drain pipeline: %w", err)
	}
	s.sem.Release(s.maxInFlight)
	return nil
}

func (s *PipelineService) remember(rec Record) {
	s.recMu.Lock()
	defer s.recMu.Unlock()
	s.records = append(s.records, rec)
	if len(s.records) > s.recCap {
		s.records = s.records[len(s.records)-s.recCap:]
	}
}

// emit publishes the record on the queue and pushes it to the hub.
func (s *PipelineService) emit(ctx context.Context, rec Record) {
	if s.queue != nil {
		data, err := json.Marshal(rec)
		if err != nil {
			s.logger.Error("marshal record", "record_id", rec.ID, "error", err)
		} else if err := s.queue.Publish(ctx, messagequeue.SubjectEventsRecords, data); err != nil {
			s.logger.Warn("publish record failed", "record_id", rec.ID, "error", err)
		}
	}
	if s.hub != nil {
		s.hub.BroadcastRecord(ctx, rec)
	}
}

// Records returns the most recent records, newest last. limit <= 0 returns
// the full retained history.
func (s *PipelineService) Records(limit int) []Record {
	s.recMu.RLock()
	defer s.recMu.RUnlock()
	if limit <= 0 || limit > len(s.records) {
		limit = len(s.records)
	}
	out := make([]Record, limit)
	copy(out, s.records[len(s.records)-limit:])
	return out
}

// Stats exposes the executor's cumulative counters.
func (s *PipelineService) Stats() action.Stats {
	return s.executor.Stats()
}

// RecentExecutions exposes the tail of the executor's log, oldest first.
func (s *PipelineService) RecentExecutions(limit int) []executor.LogEntry {
	return s.executor.RecentExecutions(limit)
}

// Memory exposes the aggregate store for read-side handlers.
func (s *PipelineService) Memory() *memory.Store {
	return s.memory
}

func (s *PipelineService) countResult(ctx context.Context, res action.ExecutionResult) {
	if s.metrics == nil {
		return
	}
	switch res.Status {
	case action.StatusSuccess:
		s.metrics.ActionsExecuted.Add(ctx, 1)
	case action.StatusFailed:
		s.metrics.ActionsFailed.Add(ctx, 1)
	case action.StatusSkipped:
		s.metrics.ActionsSkipped.Add(ctx, 1)
	}
}

func (s *PipelineService) countReviewFallback(ctx context.Context) {
	if s.metrics != nil {
		s.metrics.ReviewFallbacks.Add(ctx, 1)
	}
}

func (s *PipelineService) countRejected(ctx context.Context) {
	if s.metrics != nil {
		s.metrics.EventsRejected.Add(ctx, 1)
	}
}
