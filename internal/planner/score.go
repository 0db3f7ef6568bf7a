package planner

import (
	"strings"

	"github.com/avely-dev/flowpulse/internal/domain/event"
)

// basePriority maps each event type to its baseline urgency.
var basePriority = map[event.Type]int{
	event.TypeError:         10,
	event.TypeSecurityAlert: 10,
	event.TypeTestFailure:   8,
	event.TypeDeployment:    7,
	event.TypeCodeReview:    6,
	event.TypeCommit:        5,
	event.TypeIssueCreated:  4,
	event.TypeFileChange:    3,
}

const defaultBasePriority = 5

// urgentKeywords boost priority when present anywhere in the payload.
var urgentKeywords = []string{"critical", "urgent", "blocker", "security"}

const (
	keywordBoost = 3
	maxPriority  = 10
)

// Score derives a 0-10 priority from the event type and payload content.
// Deterministic and total: the same inputs always produce the same score
// and a missing or empty payload simply scores the base priority.
func Score(t event.Type, payload event.Payload) int {
	priority, ok := basePriority[t]
	if !ok {
		priority = defaultBasePriority
	}

	body := strings.ToLower(payload.String())
	for _, kw := range urgentKeywords {
		if strings.Contains(body, kw) {
			priority += keywordBoost
			break
		}
	}

	if priority > maxPriority {
		return maxPriority
	}
	return priority
}

// containsFold reports whether s contains substr, case-insensitively.
func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), substr)
}
