// Package litellm implements the advisory reviewer port against a LiteLLM
// proxy's chat-completions API.
package litellm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/avely-dev/flowpulse/internal/port/reviewer"
	"github.com/avely-dev/flowpulse/internal/resilience"
)

// Reviewer asks an LLM to validate a proposed action plan. It never plans:
// the model may only approve, adjust, or reject what the planner produced.
type Reviewer struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	breaker    *resilience.Breaker
}

// NewReviewer creates a LiteLLM-backed reviewer. timeout bounds the whole
// HTTP round-trip; a reviewer that hangs must not stall the pipeline.
func NewReviewer(baseURL, apiKey, model string, timeout time.Duration) *Reviewer {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Reviewer{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// SetBreaker attaches a circuit breaker to all outgoing HTTP calls.
func (r *Reviewer) SetBreaker(b *resilience.Breaker) {
	r.breaker = b
}

const systemPrompt = `You are a reviewer for a developer-workflow automation engine.
Given an event and the actions an autonomous planner selected, judge whether
the actions are appropriate. Respond with a single JSON object:
{"validation":"approved|adjusted|rejected","reasoning":"brief explanation","adjustments":[]}
Populate "adjustments" with a replacement action list only when validation is "adjusted".`

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Review sends the event and plan to the model and parses its verdict.
// Any transport, status or parse failure surfaces as an error; the caller
// decides what failing open means.
func (r *Reviewer) Review(ctx context.Context, req reviewer.Request) (reviewer.Assessment, error) {
	userMsg, err := json.Marshal(req)
	if err != nil {
		return reviewer.Assessment{}, fmt.Errorf("marshal review request: %w", err)
	}

	body, err := json.Marshal(chatRequest{
		Model: r.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: string(userMsg)},
		},
		Temperature: 0.1,
		MaxTokens:   500,
	})
	if err != nil {
		return reviewer.Assessment{}, fmt.Errorf("marshal chat request: %w", err)
	}

	data, err := r.doRequest(ctx, body)
	if err != nil {
		return reviewer.Assessment{}, err
	}

	var resp chatResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return reviewer.Assessment{}, fmt.Errorf("unmarshal chat response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return reviewer.Assessment{}, fmt.Errorf("empty chat response")
	}

	return parseAssessment(resp.Choices[0].Message.Content)
}

// parseAssessment extracts the verdict JSON from the model output, tolerating
// surrounding prose or code fences.
func parseAssessment(content string) (reviewer.Assessment, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return reviewer.Assessment{}, fmt.Errorf("no JSON object in reviewer output")
	}

	var a reviewer.Assessment
	if err := json.Unmarshal([]byte(content[start:end+1]), &a); err != nil {
		return reviewer.Assessment{}, fmt.Errorf("parse reviewer verdict: %w", err)
	}

	switch a.Verdict {
	case reviewer.VerdictApproved, reviewer.VerdictAdjusted, reviewer.VerdictRejected:
		return a, nil
	default:
		return reviewer.Assessment{}, fmt.Errorf("unknown verdict %q", a.Verdict)
	}
}

func (r *Reviewer) doRequest(ctx context.Context, body []byte) ([]byte, error) {
	var result []byte
	call := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/chat/completions", bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}

		req.Header.Set("Content-Type", "application/json")
		if r.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+r.apiKey)
		}

		resp, err := r.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("http request: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}

		if resp.StatusCode >= 400 {
			return fmt.Errorf("litellm API error %d: %s", resp.StatusCode, string(data))
		}

		result = data
		return nil
	}

	if r.breaker != nil {
		if err := r.breaker.Execute(call); err != nil {
			return nil, err
		}
		return result, nil
	}

	if err := call(); err != nil {
		return nil, err
	}
	return result, nil
}
