// Package dispatch implements AgentDispatcher (§4.2): it calls the agent
// under test over plain HTTP/JSON and normalizes the reply into
// models.AgentResponse.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/rpapostolis/agentic-workflow-evals-sub000/pkg/models"
	"github.com/rpapostolis/agentic-workflow-evals-sub000/pkg/retry"
)

// wireRequest is the agent dispatch wire format (§6).
type wireRequest struct {
	Input           string `json:"input"`
	DatasetID       string `json:"dataset_id,omitempty"`
	TestCaseID      string `json:"test_case_id,omitempty"`
	AgentID         string `json:"agent_id,omitempty"`
	EvaluationRunID string `json:"evaluation_run_id,omitempty"`
	SystemPrompt    string `json:"system_prompt,omitempty"`
}

type wireToolCall struct {
	Name            string         `json:"name"`
	Arguments       map[string]any `json:"arguments"`
	Result          any            `json:"result,omitempty"`
	Success         *bool          `json:"success,omitempty"`
	Reasoning       string         `json:"reasoning,omitempty"`
	StepNumber      int            `json:"step_number,omitempty"`
	DurationSeconds float64        `json:"duration_seconds,omitempty"`
}

type wireMetadata struct {
	Model     string  `json:"model,omitempty"`
	TokensIn  int     `json:"tokens_in,omitempty"`
	TokensOut int     `json:"tokens_out,omitempty"`
	CostUSD   float64 `json:"cost_usd,omitempty"`
	Error     string  `json:"error,omitempty"`
}

type wireResponse struct {
	Response  string         `json:"response"`
	ToolCalls []wireToolCall `json:"tool_calls"`
	Metadata  *wireMetadata  `json:"metadata,omitempty"`
}

// Request is the normalized set of inputs for one dispatch call.
type Request struct {
	Endpoint        string
	Input           string
	DatasetID       string
	TestCaseID      string
	AgentID         string
	EvaluationRunID string
	SystemPrompt    string
	Timeout         time.Duration
}

// RateLimitCallback is invoked on each 429 retry so the caller can append a
// status_history entry (§4.2, §5).
type RateLimitCallback func(attempt int, wait time.Duration)

// Dispatcher calls agents under test. One Dispatcher is shared across runs;
// its *http.Client is long-lived and connection-pooled (§5).
type Dispatcher struct {
	httpClient *http.Client
	retryPolicy retry.Policy
	logger     *slog.Logger
}

// New builds a Dispatcher with a connection-pooling transport, grounded on
// the teacher's long-lived single-client-struct shape.
func New(retryPolicy retry.Policy, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		retryPolicy: retryPolicy,
		logger:      logger,
	}
}

// Dispatch calls the agent under test and returns a normalized response.
// On HTTP 429 it retries per the configured policy, invoking onRateLimit
// before each sleep. On other non-2xx statuses or transport errors it
// returns a single-shot error — the caller is responsible for turning that
// into a TestCaseResult.execution_error (§4.2, §7).
func (d *Dispatcher) Dispatch(ctx context.Context, req Request, onRateLimit RateLimitCallback) (models.AgentResponse, int, error) {
	body, err := json.Marshal(wireRequest{
		Input:           req.Input,
		DatasetID:       req.DatasetID,
		TestCaseID:      req.TestCaseID,
		AgentID:         req.AgentID,
		EvaluationRunID: req.EvaluationRunID,
		SystemPrompt:    req.SystemPrompt,
	})
	if err != nil {
		return models.AgentResponse{}, 0, fmt.Errorf("marshal dispatch request: %w", err)
	}

	callCtx := ctx
	var cancel context.CancelFunc
	if req.Timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	var result models.AgentResponse
	attempts, err := retry.Do(callCtx, d.retryPolicy, func(attempt int, wait time.Duration) {
		d.logger.Warn("agent dispatch rate limited", "endpoint", req.Endpoint, "attempt", attempt, "wait", wait)
		if onRateLimit != nil {
			onRateLimit(attempt, wait)
		}
	}, func(attemptCtx context.Context, attempt int) (retry.Outcome, error) {
		httpReq, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, req.Endpoint, bytes.NewReader(body))
		if err != nil {
			return retry.Outcome{}, fmt.Errorf("build request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")

		resp, err := d.httpClient.Do(httpReq)
		if err != nil {
			return retry.Outcome{}, fmt.Errorf("agent request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests {
			_, _ = io.Copy(io.Discard, resp.Body)
			return retry.Outcome{RateLimited: true}, fmt.Errorf("agent returned 429 (attempt %d)", attempt)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			payload, _ := io.ReadAll(resp.Body)
			return retry.Outcome{}, fmt.Errorf("agent returned status %d: %s", resp.StatusCode, trimBody(payload))
		}

		var wire wireResponse
		if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
			return retry.Outcome{}, fmt.Errorf("decode agent response: %w", err)
		}
		result = normalize(wire)
		return retry.Outcome{}, nil
	})
	return result, attempts, err
}

func normalize(wire wireResponse) models.AgentResponse {
	calls := make([]models.ToolCall, 0, len(wire.ToolCalls))
	for _, tc := range wire.ToolCalls {
		calls = append(calls, models.ToolCall{
			Name:            tc.Name,
			Arguments:       tc.Arguments,
			Result:          tc.Result,
			Success:         tc.Success,
			Reasoning:       tc.Reasoning,
			StepNumber:      tc.StepNumber,
			DurationSeconds: tc.DurationSeconds,
		})
	}

	var meta models.AgentMetadata
	if wire.Metadata != nil {
		meta = models.AgentMetadata{
			Model:     wire.Metadata.Model,
			TokensIn:  wire.Metadata.TokensIn,
			TokensOut: wire.Metadata.TokensOut,
			CostUSD:   wire.Metadata.CostUSD,
			Error:     wire.Metadata.Error,
		}
	}

	return models.AgentResponse{
		ResponseText: wire.Response,
		ToolCalls:    calls,
		Metadata:     meta,
	}
}

func trimBody(b []byte) string {
	const max = 500
	if len(b) > max {
		return string(b[:max]) + "...(truncated)"
	}
	return string(b)
}
