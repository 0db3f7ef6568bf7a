package action

import "testing"

func TestSeverityForPriority(t *testing.T) {
	tests := []struct {
		priority int
		want     Severity
	}{
		{10, SeverityCritical},
		{9, SeverityCritical},
		{8, SeverityHigh},
		{7, SeverityHigh},
		{6, SeverityMedium},
		{5, SeverityMedium},
		{4, SeverityLow},
		{0, SeverityLow},
	}

	for _, tt := range tests {
		if got := SeverityForPriority(tt.priority); got != tt.want {
			t.Errorf("SeverityForPriority(%d) = %s, want %s", tt.priority, got, tt.want)
		}
	}
}

func TestParam(t *testing.T) {
	a := Action{Params: map[string]any{
		"title": "Fix it",
		"count": 3,
	}}

	if got := a.Param("title", "x"); got != "Fix it" {
		t.Errorf("Param = %q", got)
	}
	if got := a.Param("count", "fallback"); got != "fallback" {
		t.Errorf("Param on non-string = %q, want fallback", got)
	}
	if got := a.Param("missing", "def"); got != "def" {
		t.Errorf("Param missing = %q, want def", got)
	}

	var empty Action
	if got := empty.Param("any", "def"); got != "def" {
		t.Errorf("Param on nil params = %q, want def", got)
	}
}
