package judge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpapostolis/agentic-workflow-evals-sub000/pkg/models"
	"github.com/rpapostolis/agentic-workflow-evals-sub000/pkg/retry"
)

func TestCoerceBool(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want bool
	}{
		{"bool true", true, true},
		{"bool false", false, false},
		{"string true", "true", true},
		{"string false", "false", false},
		{"string yes", "yes", true},
		{"string pass", "pass", true},
		{"string passed", "PASSED", true},
		{"string one", "1", true},
		{"empty string", "", false},
		{"nil", nil, false},
		{"garbage string", "maybe", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, coerceBool(tt.in))
		})
	}
}

func chatContentHandler(t *testing.T, content string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := chatResponse{Choices: []chatChoice{{Message: chatMessage{Role: "assistant", Content: content}}}}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}
}

func testJudgeConfig() models.JudgeConfig {
	return models.JudgeConfig{
		ID:                        "default",
		ScoringMode:               models.ScoringModeBinary,
		SystemPrompt:              "You are a judge.",
		UserPromptTemplateSingle:  "Assertion: {{assertion}}\nResponse: {{actual_response}}",
		UserPromptTemplateBatched: "{{assertions_block}}\nTool: {{tool_name}}\nCalls: {{tool_calls_json}}",
	}
}

func TestGradeSingle_HappyPath(t *testing.T) {
	srv := httptest.NewServer(chatContentHandler(t, `{"passed": true, "reasoning": "greets the user"}`))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, Model: "gpt-4o-mini"}, retry.Policy{MaxAttempts: 2, BaseDelay: time.Millisecond}, nil)
	result, _, err := c.GradeSingle(context.Background(), testJudgeConfig(), "Response greets.", GradeContext{ActualResponse: "hello!"}, nil)
	require.NoError(t, err)
	assert.True(t, result.Passed)
	assert.Equal(t, "greets the user", result.LLMJudgeOutput)
}

func TestGradeSingle_ParseFailureDegradesGracefully(t *testing.T) {
	srv := httptest.NewServer(chatContentHandler(t, "not json"))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL}, retry.Policy{MaxAttempts: 1}, nil)
	result, _, err := c.GradeSingle(context.Background(), testJudgeConfig(), "claim", GradeContext{}, nil)
	require.NoError(t, err)
	assert.False(t, result.Passed)
	assert.Contains(t, result.LLMJudgeOutput, "judge parse error")
}

func TestGradeBatch_HappyPath(t *testing.T) {
	srv := httptest.NewServer(chatContentHandler(t, `{"results":[{"index":0,"passed":true,"reasoning":"ok"},{"index":1,"passed":"false","reasoning":"bad arg"}]}`))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL}, retry.Policy{MaxAttempts: 1}, nil)
	results, _, err := c.GradeBatch(context.Background(), testJudgeConfig(), "sendMail", []string{"to is correct", "subject is correct"}, GradeContext{}, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.True(t, results[0].Passed)
	assert.False(t, results[1].Passed)
}

func TestGradeBatch_ParseFailureDegradesToExpectedLength(t *testing.T) {
	srv := httptest.NewServer(chatContentHandler(t, `"not json"`))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL}, retry.Policy{MaxAttempts: 1}, nil)
	results, _, err := c.GradeBatch(context.Background(), testJudgeConfig(), "sendMail", []string{"a", "b", "c", "d"}, GradeContext{}, nil)
	require.NoError(t, err)
	require.Len(t, results, 4)
	for _, r := range results {
		assert.False(t, r.Passed)
	}
}

func TestGradeBatch_EmptyAssertions(t *testing.T) {
	c := New(Config{BaseURL: "http://unused"}, retry.Policy{MaxAttempts: 1}, nil)
	results, _, err := c.GradeBatch(context.Background(), testJudgeConfig(), "sendMail", nil, GradeContext{}, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRenderBatched_IncludesIndexedAssertions(t *testing.T) {
	rendered := renderBatched("{{assertions_block}}|{{tool_name}}", "sendMail", []string{"first", "second"}, GradeContext{}, testJudgeConfig())
	assert.Contains(t, rendered, "0. first")
	assert.Contains(t, rendered, "1. second")
	assert.Contains(t, rendered, "sendMail")
}
