package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "flowpulse"

// Metrics holds all FlowPulse metric instruments.
type Metrics struct {
	EventsProcessed metric.Int64Counter
	EventsRejected  metric.Int64Counter
	ActionsExecuted metric.Int64Counter
	ActionsFailed   metric.Int64Counter
	ActionsSkipped  metric.Int64Counter
	ReviewFallbacks metric.Int64Counter
	PlanLatency     metric.Float64Histogram
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.EventsProcessed, err = meter.Int64Counter("flowpulse.events.processed",
		metric.WithDescription("Number of events processed by the pipeline"))
	if err != nil {
		return nil, err
	}

	m.EventsRejected, err = meter.Int64Counter("flowpulse.events.rejected",
		metric.WithDescription("Number of plans rejected by review"))
	if err != nil {
		return nil, err
	}

	m.ActionsExecuted, err = meter.Int64Counter("flowpulse.actions.executed",
		metric.WithDescription("Number of actions executed successfully"))
	if err != nil {
		return nil, err
	}

	m.ActionsFailed, err = meter.Int64Counter("flowpulse.actions.failed",
		metric.WithDescription("Number of actions that failed"))
	if err != nil {
		return nil, err
	}

	m.ActionsSkipped, err = meter.Int64Counter("flowpulse.actions.skipped",
		metric.WithDescription("Number of actions skipped"))
	if err != nil {
		return nil, err
	}

	m.ReviewFallbacks, err = meter.Int64Counter("flowpulse.review.fallbacks",
		metric.WithDescription("Number of reviews that fell back to the unreviewed plan"))
	if err != nil {
		return nil, err
	}

	m.PlanLatency, err = meter.Float64Histogram("flowpulse.plan.duration_seconds",
		metric.WithDescription("End-to-end event processing duration in seconds"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
