package event

import "time"

// SampleFeed returns a canned sequence of workflow events covering every
// rule path: repeated errors sharing a signature, repeated test failures,
// a security alert, a deployment and an issue. Used by cmd/flowgen and
// integration-style tests.
func SampleFeed() []Raw {
	base := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	step := 5 * time.Minute

	feed := []Raw{
		{EventType: "commit", Data: `{"commit_id":"abc123","author":"developer1","message":"Fix authentication bug","files_changed":3}`},
		{EventType: "test_failure", Data: `{"test_name":"test_user_login","error":"AssertionError: Expected 200, got 401","suite":"integration"}`},
		{EventType: "error", Data: `{"message":"Database connection timeout","severity":"critical","service":"api-gateway","stack_trace":"Connection refused on port 5432"}`},
		{EventType: "code_review", Data: `{"pr_id":"PR-456","title":"Implement OAuth2 flow","author":"developer2","reviewers":["reviewer1","reviewer2"],"status":"pending"}`},
		{EventType: "security_alert", Data: `{"alert_type":"dependency_vulnerability","severity":"high","details":"CVE-2024-1234 in lodash@4.17.0","affected_services":["frontend","backend"]}`},
		{EventType: "deployment", Data: `{"service":"user-service","environment":"production","version":"v2.3.1","status":"success"}`},
		{EventType: "test_failure", Data: `{"test_name":"test_payment_processing","error":"Timeout after 30s","suite":"e2e"}`},
		{EventType: "issue_created", Data: `{"issue_id":"ISSUE-789","title":"Performance degradation on dashboard","reporter":"user123","priority":"medium","labels":["performance","frontend"]}`},
		{EventType: "error", Data: `{"message":"Out of memory error","severity":"critical","service":"data-processor","memory_usage":"95%"}`},
		{EventType: "test_failure", Data: `{"test_name":"test_user_login","error":"AssertionError: Expected 200, got 401","suite":"integration","note":"Third failure in a row"}`},
	}

	for i := range feed {
		feed[i].Timestamp = base.Add(time.Duration(i) * step)
	}
	return feed
}
