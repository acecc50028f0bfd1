// Package judge implements the Judge component (§4.3): an LLM-as-judge
// evaluator that grades assertions against an agent's response and tool
// calls via an OpenAI-style chat-completions endpoint.
package judge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/rpapostolis/agentic-workflow-evals-sub000/pkg/models"
	"github.com/rpapostolis/agentic-workflow-evals-sub000/pkg/retry"
)

// Config is the judge LLM endpoint configuration (§6).
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
}

// RateLimitCallback is invoked on each 429 retry so the caller can append a
// status_history entry (§4.3, §5).
type RateLimitCallback func(attempt int, wait time.Duration)

// Client grades assertions against an active JudgeConfig. One Client is
// shared across runs; its *http.Client is long-lived and connection-pooled
// (§5), mirroring dispatch.Dispatcher.
type Client struct {
	httpClient  *http.Client
	retryPolicy retry.Policy
	cfg         Config
	logger      *slog.Logger
}

// New builds a judge Client.
func New(cfg Config, retryPolicy retry.Policy, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		retryPolicy: retryPolicy,
		cfg:         cfg,
		logger:      logger,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
}

type chatChoice struct {
	Message chatMessage `json:"message"`
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
	Usage   struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// Usage is the token accounting returned alongside a grading call, used by
// callers to emit a CostRecord (call_type=judge_llm, §4.3).
type Usage struct {
	TokensIn  int
	TokensOut int
	Model     string
}

// Complete issues one chat-completions call against the same judge endpoint
// and returns the raw assistant content plus usage. Exported for callers
// outside this package that need a free-form LLM call over the same wire
// contract (ProposalGenerator's call_type=proposal_generation, §4.6).
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string, onRateLimit RateLimitCallback) (string, Usage, error) {
	return c.complete(ctx, systemPrompt, userPrompt, onRateLimit)
}

// complete issues one chat-completions call and returns the raw assistant
// content plus usage, retrying on 429 per policy.
func (c *Client) complete(ctx context.Context, systemPrompt, userPrompt string, onRateLimit RateLimitCallback) (string, Usage, error) {
	reqBody, err := json.Marshal(chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
	})
	if err != nil {
		return "", Usage{}, fmt.Errorf("marshal judge request: %w", err)
	}

	var content string
	var usage Usage
	_, err = retry.Do(ctx, c.retryPolicy, func(attempt int, wait time.Duration) {
		c.logger.Warn("judge call rate limited", "attempt", attempt, "wait", wait)
		if onRateLimit != nil {
			onRateLimit(attempt, wait)
		}
	}, func(attemptCtx context.Context, attempt int) (retry.Outcome, error) {
		httpReq, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(reqBody))
		if err != nil {
			return retry.Outcome{}, fmt.Errorf("build request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		if c.cfg.APIKey != "" {
			httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
		}

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			return retry.Outcome{}, fmt.Errorf("judge request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests {
			return retry.Outcome{RateLimited: true}, fmt.Errorf("judge returned 429 (attempt %d)", attempt)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return retry.Outcome{}, fmt.Errorf("judge returned status %d", resp.StatusCode)
		}

		var chat chatResponse
		if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
			return retry.Outcome{}, fmt.Errorf("decode judge response: %w", err)
		}
		if len(chat.Choices) == 0 {
			return retry.Outcome{}, fmt.Errorf("judge response had no choices")
		}
		content = chat.Choices[0].Message.Content
		usage = Usage{TokensIn: chat.Usage.PromptTokens, TokensOut: chat.Usage.CompletionTokens, Model: c.cfg.Model}
		return retry.Outcome{}, nil
	})
	return content, usage, err
}

type singleReply struct {
	Passed    any    `json:"passed"`
	Reasoning string `json:"reasoning"`
}

// GradeSingle grades one free-form assertion (§4.3 single-assertion
// grading). A JSON-parse failure degrades to a fail-closed result rather
// than propagating (§7 JudgeParseError).
func (c *Client) GradeSingle(ctx context.Context, jc models.JudgeConfig, assertion string, gctx GradeContext, onRateLimit RateLimitCallback) (models.AssertionResult, Usage, error) {
	prompt := renderSingle(jc.UserPromptTemplateSingle, assertion, gctx, jc)
	content, usage, err := c.complete(ctx, jc.SystemPrompt, prompt, onRateLimit)
	if err != nil {
		return models.AssertionResult{}, usage, err
	}

	var reply singleReply
	if jsonErr := json.Unmarshal(extractJSON(content), &reply); jsonErr != nil {
		c.logger.Warn("judge single-assertion reply failed to parse", "error", jsonErr)
		return models.AssertionResult{
			Passed:         false,
			LLMJudgeOutput: "judge parse error: " + content,
		}, usage, nil
	}
	return models.AssertionResult{
		Passed:         coerceBool(reply.Passed),
		LLMJudgeOutput: reply.Reasoning,
	}, usage, nil
}

type batchResultEntry struct {
	Index     int    `json:"index"`
	Passed    any    `json:"passed"`
	Reasoning string `json:"reasoning"`
}

type batchReply struct {
	Results []batchResultEntry `json:"results"`
}

// GradeBatch grades an ordered list of assertions about one tool's calls in
// a single judge round-trip (§4.3 batched tool-assertion grading). The
// returned slice always has length len(assertions): a parse failure, a
// short reply, or an out-of-range index all degrade to padded/truncated
// fail-closed entries rather than propagating (§4.3, §8).
func (c *Client) GradeBatch(ctx context.Context, jc models.JudgeConfig, toolName string, assertions []string, gctx GradeContext, onRateLimit RateLimitCallback) ([]models.AssertionResult, Usage, error) {
	if len(assertions) == 0 {
		return nil, Usage{}, nil
	}

	prompt := renderBatched(jc.UserPromptTemplateBatched, toolName, assertions, gctx, jc)
	content, usage, err := c.complete(ctx, jc.SystemPrompt, prompt, onRateLimit)
	if err != nil {
		return nil, usage, err
	}

	results := make([]models.AssertionResult, len(assertions))
	var reply batchReply
	if jsonErr := json.Unmarshal(extractJSON(content), &reply); jsonErr != nil {
		c.logger.Warn("judge batched reply failed to parse", "error", jsonErr, "expected", len(assertions))
		for i := range results {
			results[i] = models.AssertionResult{Passed: false, LLMJudgeOutput: "judge parse error: " + content}
		}
		return results, usage, nil
	}

	if len(reply.Results) != len(assertions) {
		c.logger.Warn("judge batched reply length mismatch", "expected", len(assertions), "got", len(reply.Results))
	}
	for i := range results {
		results[i] = models.AssertionResult{Passed: false, LLMJudgeOutput: "judge reply missing entry for this index"}
	}
	for _, r := range reply.Results {
		if r.Index < 0 || r.Index >= len(results) {
			continue
		}
		results[r.Index] = models.AssertionResult{
			Passed:         coerceBool(r.Passed),
			LLMJudgeOutput: r.Reasoning,
		}
	}
	return results, usage, nil
}

// extractJSON strips a leading/trailing markdown code fence some models
// wrap JSON replies in, then returns the content unchanged otherwise.
func extractJSON(content string) []byte {
	trimmed := strings.TrimSpace(content)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	return []byte(strings.TrimSpace(trimmed))
}
