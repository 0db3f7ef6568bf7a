// Package reviewer defines the advisory review port. A reviewer looks at an
// event and its planned actions and returns a verdict; it never plans on
// its own.
package reviewer

import (
	"context"

	"github.com/avely-dev/flowpulse/internal/domain/action"
	"github.com/avely-dev/flowpulse/internal/domain/event"
)

// Verdict is the reviewer's judgement of a proposed plan.
type Verdict string

const (
	VerdictApproved Verdict = "approved"
	VerdictAdjusted Verdict = "adjusted"
	VerdictRejected Verdict = "rejected"
)

// Request carries the event and proposed plan to the reviewer.
type Request struct {
	Event    event.Event     `json:"event"`
	Priority int             `json:"priority"`
	Context  string          `json:"context,omitempty"` // memory summary
	Plan     []action.Action `json:"action_list"`
}

// Assessment is the reviewer's response. Adjustments is only populated for
// VerdictAdjusted and replaces the original plan wholesale.
type Assessment struct {
	Verdict     Verdict         `json:"validation"`
	Reasoning   string          `json:"reasoning"`
	Adjustments []action.Action `json:"adjustments,omitempty"`
}

// Reviewer is the port interface for advisory plan review.
// Implementations are expected to suspend on network I/O and must honor
// context cancellation.
type Reviewer interface {
	Review(ctx context.Context, req Request) (Assessment, error)
}
