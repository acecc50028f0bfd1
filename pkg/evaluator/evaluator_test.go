package evaluator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpapostolis/agentic-workflow-evals-sub000/pkg/dispatch"
	"github.com/rpapostolis/agentic-workflow-evals-sub000/pkg/judge"
	"github.com/rpapostolis/agentic-workflow-evals-sub000/pkg/models"
	"github.com/rpapostolis/agentic-workflow-evals-sub000/pkg/retry"
)

func testRetryPolicy() retry.Policy {
	return retry.Policy{MaxAttempts: 1, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}
}

// agentServer returns an agent endpoint that replies with the given tool
// calls and response text, ignoring the request body.
func agentServer(t *testing.T, responseText string, toolCalls []map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"response":   responseText,
			"tool_calls": toolCalls,
			"metadata":   map[string]any{"tokens_in": 10, "tokens_out": 5},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

// judgeServer returns a judge endpoint that always answers `passed`,
// serving both the single-assertion and batched-assertion wire formats.
func judgeServer(t *testing.T, passed bool) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		userContent := ""
		if len(req.Messages) > 1 {
			userContent = req.Messages[1].Content
		}

		var content string
		if jsonContainsIndexedResults(userContent) {
			raw, _ := json.Marshal(map[string]any{
				"results": []map[string]any{{"index": 0, "passed": passed, "reasoning": "ok"}},
			})
			content = string(raw)
		} else {
			raw, _ := json.Marshal(map[string]any{"passed": passed, "reasoning": "ok"})
			content = string(raw)
		}

		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]any{"role": "assistant", "content": content}}},
			"usage":   map[string]any{"prompt_tokens": 20, "completion_tokens": 8},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

// jsonContainsIndexedResults is a crude heuristic to tell a batched-mode
// judge prompt (tool expectation grading) apart from a single-assertion
// prompt without parsing the rendered template.
func jsonContainsIndexedResults(userContent string) bool {
	return len(userContent) > 0 && (containsAll(userContent, "Tool:") || containsAll(userContent, "tool_name"))
}

func containsAll(haystack, needle string) bool {
	return len(haystack) >= len(needle) && (func() bool {
		for i := 0; i+len(needle) <= len(haystack); i++ {
			if haystack[i:i+len(needle)] == needle {
				return true
			}
		}
		return false
	})()
}

func newTestEvaluator(agentSrv, judgeSrv *httptest.Server) *Evaluator {
	policy := testRetryPolicy()
	d := dispatch.New(policy, nil)
	j := judge.New(judge.Config{BaseURL: judgeSrv.URL, Model: "gpt-4o-mini"}, policy, nil)
	return New(d, j, nil)
}

func basicJudgeConfig() models.JudgeConfig {
	return models.JudgeConfig{
		ID:                        "default",
		ScoringMode:               models.ScoringModeBinary,
		SystemPrompt:              "You are a judge.",
		UserPromptTemplateSingle:  "Assertion: {{assertion}}\nResponse: {{actual_response}}",
		UserPromptTemplateBatched: "{{assertions_block}}\nTool: {{tool_name}}\nCalls: {{tool_calls_json}}",
	}
}

func TestEvaluate_ResponseOnlyPass(t *testing.T) {
	agentSrv := agentServer(t, "Hi! How can I help?", nil)
	judgeSrv := judgeServer(t, true)
	ev := newTestEvaluator(agentSrv, judgeSrv)

	tc := models.NewTestCase(models.TestCase{
		ID: "tc-1", DatasetID: "ds-1", Input: "hi",
		ResponseQualityExpect: &models.ResponseQualityAssertion{Assertion: "greets the user"},
	})
	result := ev.Evaluate(context.Background(), tc, basicJudgeConfig(), Params{AgentEndpoint: agentSrv.URL}, Callbacks{})

	assert.True(t, result.Passed)
	assert.Empty(t, result.FailureMode)
	require.NotNil(t, result.ResponseQuality)
	assert.True(t, result.ResponseQuality.Passed)
}

// TestEvaluate_MissingToolWithExpectationIsToolNotCalled is the spec's §8 S2
// scenario: the agent calls an unrelated tool (sendTeams) instead of the
// required sendMail, which also carries a ToolExpectation with argument
// assertions. The worked example requires failure_mode=tool_not_called even
// though a different tool was called — this must not be reachable as
// partial_match (the classifyFailure ordering bug) nor misclassified as
// wrong_tool.
func TestEvaluate_MissingToolWithExpectationIsToolNotCalled(t *testing.T) {
	agentSrv := agentServer(t, "Sent a Teams message instead.", []map[string]any{
		{"name": "sendTeams", "arguments": map[string]any{"message": "done"}},
	})
	judgeSrv := judgeServer(t, true)
	ev := newTestEvaluator(agentSrv, judgeSrv)

	tc := models.TestCase{
		ID: "tc-2", DatasetID: "ds-1", Input: "email the team",
		AssertionMode:  models.AssertionModeToolLevel,
		MinimalToolSet: []string{"sendMail"},
		ToolExpectations: []models.ToolExpectation{
			{ToolName: "sendMail", Arguments: []models.ArgumentAssertion{
				{ArgName: "recipient", Assertions: []string{"recipient is the team"}},
			}},
		},
	}
	result := ev.Evaluate(context.Background(), tc, basicJudgeConfig(), Params{AgentEndpoint: agentSrv.URL}, Callbacks{})

	require.False(t, result.Passed)
	assert.Equal(t, models.FailureModeToolNotCalled, result.FailureMode)
}

// TestEvaluate_RequiredToolNotCalledAtAll covers the simpler sibling case:
// the required tool is missing and nothing else was called either.
func TestEvaluate_RequiredToolNotCalledAtAll(t *testing.T) {
	agentSrv := agentServer(t, "I'm not sure what to do.", nil)
	judgeSrv := judgeServer(t, true)
	ev := newTestEvaluator(agentSrv, judgeSrv)

	tc := models.TestCase{
		ID: "tc-3", DatasetID: "ds-1", Input: "email the team",
		AssertionMode:  models.AssertionModeToolLevel,
		MinimalToolSet: []string{"sendMail"},
		ToolExpectations: []models.ToolExpectation{
			{ToolName: "sendMail", Arguments: []models.ArgumentAssertion{
				{ArgName: "recipient", Assertions: []string{"recipient is the team"}},
			}},
		},
	}
	result := ev.Evaluate(context.Background(), tc, basicJudgeConfig(), Params{AgentEndpoint: agentSrv.URL}, Callbacks{})

	require.False(t, result.Passed)
	assert.Equal(t, models.FailureModeToolNotCalled, result.FailureMode)
}

// TestEvaluate_MissingToolWithNoExpectationIsWrongTool covers the converse
// case: a minimal_tool_set entry with no corresponding ToolExpectation (so
// there's no finer-grained "why" to report), and the agent calls something
// else instead — this is the one case wrong_tool should still report.
func TestEvaluate_MissingToolWithNoExpectationIsWrongTool(t *testing.T) {
	agentSrv := agentServer(t, "Sent a Teams message instead.", []map[string]any{
		{"name": "sendTeams", "arguments": map[string]any{"message": "done"}},
	})
	judgeSrv := judgeServer(t, true)
	ev := newTestEvaluator(agentSrv, judgeSrv)

	tc := models.TestCase{
		ID: "tc-2b", DatasetID: "ds-1", Input: "email the team",
		AssertionMode:  models.AssertionModeToolLevel,
		MinimalToolSet: []string{"sendMail"},
	}
	result := ev.Evaluate(context.Background(), tc, basicJudgeConfig(), Params{AgentEndpoint: agentSrv.URL}, Callbacks{})

	require.False(t, result.Passed)
	assert.Equal(t, models.FailureModeWrongTool, result.FailureMode)
}

// TestEvaluate_ExpectedToolCalledButArgsWrong covers the case the required
// tool IS called, so expected-tools passes, but its argument assertions
// fail — this should classify as wrong_args, not tool_not_called/wrong_tool.
func TestEvaluate_ExpectedToolCalledButArgsWrong(t *testing.T) {
	agentSrv := agentServer(t, "Sent the email.", []map[string]any{
		{"name": "sendMail", "arguments": map[string]any{"recipient": "wrong-person@example.com"}},
	})
	judgeSrv := judgeServer(t, false)
	ev := newTestEvaluator(agentSrv, judgeSrv)

	tc := models.TestCase{
		ID: "tc-4", DatasetID: "ds-1", Input: "email the team",
		AssertionMode:  models.AssertionModeToolLevel,
		MinimalToolSet: []string{"sendMail"},
		ToolExpectations: []models.ToolExpectation{
			{ToolName: "sendMail", Arguments: []models.ArgumentAssertion{
				{ArgName: "recipient", Assertions: []string{"recipient is the team"}},
			}},
		},
	}
	result := ev.Evaluate(context.Background(), tc, basicJudgeConfig(), Params{AgentEndpoint: agentSrv.URL}, Callbacks{})

	require.False(t, result.Passed)
	assert.Equal(t, models.FailureModeWrongArgs, result.FailureMode)
}

func TestEvaluate_DispatchErrorDegradesToExecutionError(t *testing.T) {
	judgeSrv := judgeServer(t, true)
	ev := newTestEvaluator(nil, judgeSrv)

	tc := models.NewTestCase(models.TestCase{
		ID: "tc-5", DatasetID: "ds-1", Input: "hi",
		ResponseQualityExpect: &models.ResponseQualityAssertion{Assertion: "greets the user"},
	})
	result := ev.Evaluate(context.Background(), tc, basicJudgeConfig(), Params{AgentEndpoint: "http://127.0.0.1:0"}, Callbacks{})

	assert.False(t, result.Passed)
	assert.NotEmpty(t, result.ExecutionError)
}
