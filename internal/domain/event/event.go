// Package event defines the workflow event domain entity.
package event

import (
	"encoding/json"
	"strings"
	"time"
)

// Type identifies the kind of workflow event.
type Type string

const (
	TypeError            Type = "error"
	TypeSecurityAlert    Type = "security_alert"
	TypeTestFailure      Type = "test_failure"
	TypeDeployment       Type = "deployment"
	TypeCodeReview       Type = "code_review"
	TypeCommit           Type = "commit"
	TypeIssueCreated     Type = "issue_created"
	TypeFileChange       Type = "file_change"
	TypeBuildStatus      Type = "build_status"
	TypePerformanceAlert Type = "performance_alert"
	TypeUnknown          Type = "unknown"
)

// knownTypes is the closed set of types the classifier accepts.
var knownTypes = map[Type]struct{}{
	TypeError:            {},
	TypeSecurityAlert:    {},
	TypeTestFailure:      {},
	TypeDeployment:       {},
	TypeCodeReview:       {},
	TypeCommit:           {},
	TypeIssueCreated:     {},
	TypeFileChange:       {},
	TypeBuildStatus:      {},
	TypePerformanceAlert: {},
}

// Payload is the opaque key-value body of an event. Consumers read specific
// keys and tolerate anything missing.
type Payload map[string]any

// GetString returns the string value for key, or def when absent or not a string.
func (p Payload) GetString(key, def string) string {
	if v, ok := p[key].(string); ok {
		return v
	}
	return def
}

// GetStrings returns a string slice for key. JSON decoding yields []any, so
// both representations are accepted.
func (p Payload) GetStrings(key string) []string {
	switch v := p[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// String renders the payload as compact JSON. Used for keyword scans and
// notification bodies.
func (p Payload) String() string {
	data, err := json.Marshal(p)
	if err != nil {
		return "{}"
	}
	return string(data)
}

// Event is a single classified workflow occurrence. It is immutable once
// constructed; the pipeline passes it by value.
type Event struct {
	Type      Type      `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
	Payload   Payload   `json:"payload"`
	Source    string    `json:"source,omitempty"`
}

// Raw is an event as it arrives on the wire, before classification.
// Data holds the JSON-encoded payload.
type Raw struct {
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
	Data      string    `json:"data"`
	Source    string    `json:"source,omitempty"`
}

// Classify turns a raw event into a canonical Event. Unrecognized types
// collapse to TypeUnknown and a malformed data body becomes an empty
// payload; classification never fails.
func Classify(raw Raw) Event {
	t := Type(raw.EventType)
	if _, ok := knownTypes[t]; !ok {
		t = TypeUnknown
	}

	ts := raw.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	source := raw.Source
	if source == "" {
		source = "system"
	}

	return Event{
		Type:      t,
		Timestamp: ts,
		Payload:   ParsePayload(raw.Data),
		Source:    source,
	}
}

// ParsePayload decodes a JSON object into a Payload. Anything unparsable
// yields an empty map so a single bad event never fails the pipeline.
func ParsePayload(data string) Payload {
	if data == "" {
		return Payload{}
	}
	var p Payload
	if err := json.Unmarshal([]byte(data), &p); err != nil || p == nil {
		return Payload{}
	}
	return p
}

const signatureMessageLimit = 50

// Signature derives the coarse grouping key for error events:
// service plus the portion of message before the first colon, or the first
// 50 characters when there is no colon. Events with no usable payload map
// to "unknown".
func (e Event) Signature() string {
	if len(e.Payload) == 0 {
		return "unknown"
	}

	service := e.Payload.GetString("service", "unknown")
	message := e.Payload.GetString("message", "")

	if idx := strings.Index(message, ":"); idx >= 0 {
		message = message[:idx]
	} else if len(message) > signatureMessageLimit {
		message = message[:signatureMessageLimit]
	}

	return service + "::" + message
}
