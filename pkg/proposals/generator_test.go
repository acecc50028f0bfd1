package proposals

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

	"github.com/rpapostolis/agentic-workflow-evals-sub000/pkg/judge"
	"github.com/rpapostolis/agentic-workflow-evals-sub000/pkg/models"
	"github.com/rpapostolis/agentic-workflow-evals-sub000/pkg/retry"
	"github.com/rpapostolis/agentic-workflow-evals-sub000/pkg/store"
)

func newTestStoreWithFixture(t *testing.T, agentID string) *store.Store {
	t.Helper()
	s, err := store.Open(context.Background(), store.Config{Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	ctx := context.Background()

	require.NoError(t, s.CreateAgent(ctx, models.Agent{ID: agentID, Name: "A", Endpoint: "http://unused", CreatedAt: time.Now(), UpdatedAt: time.Now()}))
	_, err = s.CreatePromptVersion(ctx, models.PromptVersion{AgentID: agentID, Text: "line one\nline two\nbe concise", CreatedAt: time.Now()}, true)
	require.NoError(t, err)

	require.NoError(t, s.EnsureSystemPromptDefault(ctx, models.SystemPrompt{
		Key: models.SystemPromptKeyProposalGenerationSystem, Name: "sys", Content: "You analyze agent prompts.", UpdatedAt: time.Now(),
	}))
	require.NoError(t, s.EnsureSystemPromptDefault(ctx, models.SystemPrompt{
		Key: models.SystemPromptKeyProposalGenerationUser, Name: "usr",
		Content:   "Tag: {{tag}}\nCount: {{occurrence_count}}/{{total_runs}}\nPrompt: {{current_prompt}}\nNotes: {{sample_notes}}\nTools: {{tool_summary}}\nExcerpts: {{excerpts}}",
		UpdatedAt: time.Now(),
	}))

	require.NoError(t, s.CreateTestCase(ctx, models.TestCase{ID: "tc-1", DatasetID: "ds-1", Input: "book a flight"}))
	require.NoError(t, s.CreateTestCase(ctx, models.TestCase{ID: "tc-2", DatasetID: "ds-1", Input: "cancel a flight"}))

	for i := 0; i < 2; i++ {
		run := models.EvaluationRun{
			ID: uuid.NewString(), AgentID: agentID, DatasetID: "ds-1", Status: models.RunStatusCompleted, CreatedAt: time.Now(),
			TestCases: []models.TestCaseResult{
				{TestCaseID: "tc-1", Passed: false, ResponseText: "sorry I can't help"},
			},
		}
		require.NoError(t, s.CreateRun(ctx, run))
		require.NoError(t, s.CreateRunAnnotation(ctx, models.RunAnnotation{
			ID: uuid.NewString(), RunID: run.ID, TestCaseID: "tc-1", Outcome: 2, Issues: []string{"ignores_constraint"}, Notes: "ignored the date constraint", CreatedAt: time.Now(),
		}))
	}
	return s
}

func TestGenerator_GenerateDraftsProposalForRecurringTag(t *testing.T) {
	judgeReply := map[string]any{
		"title": "Clarify date constraint handling", "category": "quality", "confidence": 0.8,
		"priority": "high", "pattern_source": "ignores_constraint (2/2 runs)", "impact": "fewer date mistakes",
		"diff":      map[string]any{"added": []string{"Always respect explicit date constraints."}, "removed": []string{"be concise"}},
		"reasoning": "Agent repeatedly drops the date constraint.",
	}
	content, err := json.Marshal(judgeReply)
	require.NoError(t, err)

	judgeSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{"choices": []any{map[string]any{"message": map[string]any{"role": "assistant", "content": string(content)}}}}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer judgeSrv.Close()

	s := newTestStoreWithFixture(t, "agent-1")
	j := judge.New(judge.Config{BaseURL: judgeSrv.URL}, retry.Policy{MaxAttempts: 1}, nil)
	g := New(s, j, nil, 2)

	proposals, err := g.Generate(context.Background(), "agent-1", 0)
	require.NoError(t, err)
	require.Len(t, proposals, 1)
	assert.Equal(t, "Clarify date constraint handling", proposals[0].Title)
	assert.Equal(t, models.ProposalCategoryQuality, proposals[0].Category)
	assert.Equal(t, models.ProposalStatusPending, proposals[0].Status)
	assert.Equal(t, 1, proposals[0].BasePromptVersion)
}

func TestGenerator_GenerateSkipsBelowThreshold(t *testing.T) {
	s := newTestStoreWithFixture(t, "agent-1")
	j := judge.New(judge.Config{BaseURL: "http://unused"}, retry.Policy{MaxAttempts: 1}, nil)
	g := New(s, j, nil, 3)

	proposals, err := g.Generate(context.Background(), "agent-1", 0)
	require.NoError(t, err)
	assert.Empty(t, proposals)
}

func TestApply_BuildsNewVersionAndActivatesIt(t *testing.T) {
	s := newTestStoreWithFixture(t, "agent-1")
	g := New(s, judge.New(judge.Config{}, retry.Policy{MaxAttempts: 1}, nil), nil, 2)

	proposal := models.PromptProposal{
		ID: uuid.NewString(), AgentID: "agent-1", BasePromptVersion: 1,
		Title: "test", Status: models.ProposalStatusPending,
		Diff: models.PromptDiff{Removed: []string{"be concise"}, Added: []string{"always confirm dates"}},
		CreatedAt: time.Now(),
	}
	require.NoError(t, s.CreateProposal(context.Background(), proposal))

	newVersion, err := g.Apply(context.Background(), proposal.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, newVersion.Version)
	assert.True(t, newVersion.IsActive)
	assert.NotContains(t, newVersion.Text, "be concise")
	assert.Contains(t, newVersion.Text, "always confirm dates")

	active, err := s.GetActivePromptVersion(context.Background(), "agent-1")
	require.NoError(t, err)
	assert.Equal(t, 2, active.Version)

	stored, err := s.GetProposal(context.Background(), proposal.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProposalStatusApplied, stored.Status)
	assert.NotNil(t, stored.ResolvedAt)
}
