package service

import (
	"context"
	"log/slog"

	"github.com/avely-dev/flowpulse/internal/domain/action"
	"github.com/avely-dev/flowpulse/internal/port/reviewer"
)

// ReviewOutcome is the result of running a plan past the advisory reviewer.
// When the reviewer is unavailable or returns garbage, FellBack is true and
// the original plan stands unchanged.
type ReviewOutcome struct {
	Assessment reviewer.Assessment `json:"assessment"`
	FellBack   bool                `json:"fell_back"`
}

// Approved reports whether execution should proceed with the (possibly
// adjusted) plan. Only an explicit rejection halts execution.
func (o ReviewOutcome) Approved() bool {
	return o.Assessment.Verdict != reviewer.VerdictRejected
}

// ReviewService wraps a Reviewer port with fail-open semantics: review is
// advisory, so any transport or parse failure keeps the pipeline moving.
type ReviewService struct {
	reviewer reviewer.Reviewer
	logger   *slog.Logger
}

// NewReviewService creates a review service. The reviewer may be nil, in
// which case every plan passes through untouched.
func NewReviewService(rev reviewer.Reviewer, logger *slog.Logger) *ReviewService {
	return &ReviewService{reviewer: rev, logger: logger}
}

// Review submits the plan for assessment. The returned plan is the one to
// execute: the original on approval or fallback, the adjusted set when the
// reviewer amended it, or nil on rejection.
func (s *ReviewService) Review(ctx context.Context, req reviewer.Request) ([]action.Action, ReviewOutcome) {
	fallback := ReviewOutcome{
		Assessment: reviewer.Assessment{
			Verdict:   reviewer.VerdictApproved,
			Reasoning: "review unavailable, proceeding with original plan",
		},
		FellBack: true,
	}

	if s.reviewer == nil {
		return req.Plan, fallback
	}

	assessment, err := s.reviewer.Review(ctx, req)
	if err != nil {
		s.logger.Warn("review failed, falling back to original plan",
			"event_type", string(req.Event.Type), "error", err)
		return req.Plan, fallback
	}

	outcome := ReviewOutcome{Assessment: assessment}
	switch assessment.Verdict {
	case reviewer.VerdictRejected:
		s.logger.Info("plan rejected by review",
			"event_type", string(req.Event.Type), "reasoning", assessment.Reasoning)
		return nil, outcome
	case reviewer.VerdictAdjusted:
		if len(assessment.Adjustments) == 0 {
			// Adjusted verdict without a replacement plan keeps the original.
			return req.Plan, outcome
		}
		return assessment.Adjustments, outcome
	default:
		return req.Plan, outcome
	}
}
