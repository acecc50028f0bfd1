package runs

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpapostolis/agentic-workflow-evals-sub000/pkg/dispatch"
	"github.com/rpapostolis/agentic-workflow-evals-sub000/pkg/evaluator"
	"github.com/rpapostolis/agentic-workflow-evals-sub000/pkg/judge"
	"github.com/rpapostolis/agentic-workflow-evals-sub000/pkg/models"
	"github.com/rpapostolis/agentic-workflow-evals-sub000/pkg/retry"
	"github.com/rpapostolis/agentic-workflow-evals-sub000/pkg/store"
)

func newTestCoordinator(t *testing.T, judgeSrv *httptest.Server) (*Coordinator, *store.Store) {
	t.Helper()
	s, err := store.Open(context.Background(), store.Config{Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	policy := retry.Policy{MaxAttempts: 2, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}
	d := dispatch.New(policy, nil)
	j := judge.New(judge.Config{BaseURL: judgeSrv.URL, Model: "gpt-4o-mini"}, policy, nil)
	ev := evaluator.New(d, j, nil)
	return New(s, ev, nil), s
}

func seedBasicFixture(t *testing.T, s *store.Store, agentEndpoint string) (models.Agent, models.Dataset) {
	t.Helper()
	ctx := context.Background()

	agent := models.Agent{ID: "agent-1", Name: "Agent One", Endpoint: agentEndpoint, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	require.NoError(t, s.CreateAgent(ctx, agent))
	_, err := s.CreatePromptVersion(ctx, models.PromptVersion{AgentID: agent.ID, Text: "you are a helpful agent", CreatedAt: time.Now()}, true)
	require.NoError(t, err)

	jc := models.JudgeConfig{
		ID:                        "default",
		ScoringMode:               models.ScoringModeBinary,
		SystemPrompt:              "You are a judge.",
		UserPromptTemplateSingle:  "Assertion: {{assertion}}\nResponse: {{actual_response}}",
		UserPromptTemplateBatched: "{{assertions_block}}\nTool: {{tool_name}}\nCalls: {{tool_calls_json}}",
	}
	_, err = s.CreateJudgeConfig(ctx, jc, true)
	require.NoError(t, err)

	tc1 := models.TestCase{ID: "tc-1", DatasetID: "ds-1", Input: "hello", AssertionMode: models.AssertionModeResponseOnly,
		ResponseQualityExpect: &models.ResponseQualityAssertion{Assertion: "greets the user"}}
	tc2 := models.TestCase{ID: "tc-2", DatasetID: "ds-1", Input: "hello again", AssertionMode: models.AssertionModeResponseOnly,
		ResponseQualityExpect: &models.ResponseQualityAssertion{Assertion: "greets the user"}}
	require.NoError(t, s.CreateTestCase(ctx, tc1))
	require.NoError(t, s.CreateTestCase(ctx, tc2))

	dataset := models.Dataset{ID: "ds-1", Seed: models.SeedScenario{Goal: "greeting"}, TestCaseIDs: []string{"tc-1", "tc-2"}, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	require.NoError(t, s.CreateDataset(ctx, dataset))

	return agent, dataset
}

func agentHandler(response string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"response":   response,
			"tool_calls": []any{},
			"metadata":   map[string]any{"tokens_in": 10, "tokens_out": 5},
		})
	}
}

func judgeHandler(passed bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		content, _ := json.Marshal(map[string]any{"passed": passed, "reasoning": "looks fine"})
		resp := map[string]any{"choices": []any{map[string]any{"message": map[string]any{"role": "assistant", "content": string(content)}}}}
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func TestCoordinator_LaunchCompletesRunSuccessfully(t *testing.T) {
	agentSrv := httptest.NewServer(agentHandler("hello there!"))
	defer agentSrv.Close()
	judgeSrv := httptest.NewServer(judgeHandler(true))
	defer judgeSrv.Close()

	c, s := newTestCoordinator(t, judgeSrv)
	agent, dataset := seedBasicFixture(t, s, agentSrv.URL)

	run, err := c.Launch(context.Background(), LaunchRequest{AgentID: agent.ID, DatasetID: dataset.ID})
	require.NoError(t, err)

	assert.Equal(t, models.RunStatusCompleted, run.Status)
	assert.Equal(t, 2, run.TotalTests)
	assert.Equal(t, 2, run.CompletedTests)
	assert.Equal(t, 2, run.PassedCount)
	assert.NotNil(t, run.CompletedAt)
	assert.Equal(t, []string{"tc-1", "tc-2"}, []string{run.TestCases[0].TestCaseID, run.TestCases[1].TestCaseID})

	stored, err := s.GetRun(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusCompleted, stored.Status)
}

func TestCoordinator_LaunchDetectsRegression(t *testing.T) {
	agentSrv := httptest.NewServer(agentHandler("hello there!"))
	defer agentSrv.Close()
	judgeSrv := httptest.NewServer(judgeHandler(true))
	defer judgeSrv.Close()

	c, s := newTestCoordinator(t, judgeSrv)
	agent, dataset := seedBasicFixture(t, s, agentSrv.URL)

	firstRun, err := c.Launch(context.Background(), LaunchRequest{AgentID: agent.ID, DatasetID: dataset.ID})
	require.NoError(t, err)
	require.Equal(t, models.RunStatusCompleted, firstRun.Status)

	failingJudgeSrv := httptest.NewServer(judgeHandler(false))
	defer failingJudgeSrv.Close()
	j := judge.New(judge.Config{BaseURL: failingJudgeSrv.URL}, retry.Policy{MaxAttempts: 1}, nil)
	d := dispatch.New(retry.Policy{MaxAttempts: 1}, nil)
	c.evaluator = evaluator.New(d, j, nil)

	secondRun, err := c.Launch(context.Background(), LaunchRequest{AgentID: agent.ID, DatasetID: dataset.ID})
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusCompleted, secondRun.Status)
	assert.Len(t, secondRun.Regressions, 2)
}

func TestCoordinator_CancelStopsRunBeforeNextCase(t *testing.T) {
	blockCh := make(chan struct{})
	releaseCh := make(chan struct{})
	var hits int
	agentSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if hits == 1 {
			close(blockCh)
			<-releaseCh
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"response": "hi", "tool_calls": []any{}})
	}))
	defer agentSrv.Close()
	judgeSrv := httptest.NewServer(judgeHandler(true))
	defer judgeSrv.Close()

	c, s := newTestCoordinator(t, judgeSrv)
	agent, dataset := seedBasicFixture(t, s, agentSrv.URL)

	var run models.EvaluationRun
	var launchErr error
	done := make(chan struct{})
	go func() {
		run, launchErr = c.Launch(context.Background(), LaunchRequest{AgentID: agent.ID, DatasetID: dataset.ID})
		close(done)
	}()

	<-blockCh
	runID := firstActiveRunID(c)
	require.NotEmpty(t, runID)
	require.True(t, c.Cancel(runID))
	close(releaseCh)
	<-done

	require.NoError(t, launchErr)
	assert.Equal(t, models.RunStatusCancelled, run.Status)
}

func firstActiveRunID(c *Coordinator) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for id := range c.activeRuns {
		return id
	}
	return ""
}

func TestCoordinator_SweepOrphansCancelsInterruptedRuns(t *testing.T) {
	s, err := store.Open(context.Background(), store.Config{Path: ":memory:"})
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	run := models.EvaluationRun{ID: uuid.NewString(), AgentID: "a", DatasetID: "d", Status: models.RunStatusRunning, CreatedAt: time.Now()}
	require.NoError(t, s.CreateRun(ctx, run))

	c := New(s, nil, nil)
	swept, err := c.SweepOrphans(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, swept)

	stored, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusCancelled, stored.Status)
	assert.Contains(t, stored.StatusHistory[len(stored.StatusHistory)-1].Message, "cancelled on restart")
}
