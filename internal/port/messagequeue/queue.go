// Package messagequeue defines the message queue port (interface).
package messagequeue

import "context"

// Handler processes a message received from the queue. deliveryID
// identifies this delivery (the broker's message ID); a redelivery of the
// same message carries the same ID.
type Handler func(ctx context.Context, subject, deliveryID string, data []byte) error

// Queue is the port interface for publishing and subscribing to messages.
type Queue interface {
	// Publish sends a message to the given subject.
	Publish(ctx context.Context, subject string, data []byte) error

	// Subscribe registers a handler for messages on the given subject.
	// The returned function cancels the subscription.
	Subscribe(ctx context.Context, subject string, handler Handler) (cancel func(), err error)

	// Close shuts down the queue connection.
	Close() error
}

// Subject constants for the flowpulse event stream.
const (
	// SubjectEventsRaw carries raw workflow events into the pipeline.
	SubjectEventsRaw = "events.raw"

	// SubjectEventsRecords carries terminal per-event records out of the
	// pipeline for downstream consumers.
	SubjectEventsRecords = "events.records"
)
