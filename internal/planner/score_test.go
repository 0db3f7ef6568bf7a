package planner

import (
	"testing"

	"github.com/avely-dev/flowpulse/internal/domain/event"
)

func TestScoreBasePriorities(t *testing.T) {
	tests := []struct {
		eventType event.Type
		want      int
	}{
		{event.TypeError, 10},
		{event.TypeSecurityAlert, 10},
		{event.TypeTestFailure, 8},
		{event.TypeDeployment, 7},
		{event.TypeCodeReview, 6},
		{event.TypeCommit, 5},
		{event.TypeIssueCreated, 4},
		{event.TypeFileChange, 3},
		{event.TypeUnknown, 5},
		{event.TypeBuildStatus, 5},
	}

	for _, tt := range tests {
		t.Run(string(tt.eventType), func(t *testing.T) {
			if got := Score(tt.eventType, event.Payload{}); got != tt.want {
				t.Errorf("Score(%s) = %d, want %d", tt.eventType, got, tt.want)
			}
		})
	}
}

func TestScoreKeywordBoost(t *testing.T) {
	tests := []struct {
		name    string
		t       event.Type
		payload event.Payload
		want    int
	}{
		{
			name:    "boost applies",
			t:       event.TypeCommit,
			payload: event.Payload{"message": "urgent hotfix"},
			want:    8,
		},
		{
			name:    "boost clamps at 10",
			t:       event.TypeTestFailure,
			payload: event.Payload{"error": "blocker in CI"},
			want:    10,
		},
		{
			name:    "keyword in key counts too",
			t:       event.TypeFileChange,
			payload: event.Payload{"security": true},
			want:    6,
		},
		{
			name:    "case insensitive",
			t:       event.TypeCommit,
			payload: event.Payload{"message": "CRITICAL path change"},
			want:    8,
		},
		{
			name:    "single boost for multiple keywords",
			t:       event.TypeCommit,
			payload: event.Payload{"message": "critical urgent security blocker"},
			want:    8,
		},
		{
			name:    "no keyword",
			t:       event.TypeCommit,
			payload: event.Payload{"message": "routine change"},
			want:    5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Score(tt.t, tt.payload); got != tt.want {
				t.Errorf("Score = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestScoreDeterministic(t *testing.T) {
	payload := event.Payload{"message": "critical failure", "service": "api"}
	first := Score(event.TypeError, payload)
	for range 10 {
		if got := Score(event.TypeError, payload); got != first {
			t.Fatalf("score changed between calls: %d vs %d", got, first)
		}
	}
}

func TestScoreNilPayload(t *testing.T) {
	if got := Score(event.TypeError, nil); got != 10 {
		t.Errorf("Score with nil payload = %d, want 10", got)
	}
}
