package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpapostolis/agentic-workflow-evals-sub000/pkg/evalerrors"
	"github.com/rpapostolis/agentic-workflow-evals-sub000/pkg/models"
)

func newTestStore(t *testing.T) *Store {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(ctx, Config{Path: path})
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, s.Close())
	})
	return s
}

func TestStore_Health(t *testing.T) {
	s := newTestStore(t)
	health, err := s.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "healthy", health.Status)
}

func TestStore_AgentLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	agent := models.Agent{ID: "agent-1", Name: "Support Bot", Endpoint: "http://localhost:9000/invoke", CreatedAt: time.Now(), UpdatedAt: time.Now()}
	require.NoError(t, s.CreateAgent(ctx, agent))

	err := s.CreateAgent(ctx, agent)
	assert.ErrorIs(t, err, evalerrors.ErrAlreadyExists)

	got, err := s.GetAgent(ctx, "agent-1")
	require.NoError(t, err)
	assert.Equal(t, agent.Name, got.Name)

	got.Name = "Support Bot v2"
	require.NoError(t, s.UpdateAgent(ctx, got))

	list, err := s.ListAgents(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Support Bot v2", list[0].Name)

	require.NoError(t, s.DeleteAgent(ctx, "agent-1"))
	_, err = s.GetAgent(ctx, "agent-1")
	assert.ErrorIs(t, err, evalerrors.ErrNotFound)
}

func TestStore_PromptVersionActivation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateAgent(ctx, models.Agent{ID: "agent-1", Name: "Bot", Endpoint: "http://x"}))

	v1, err := s.CreatePromptVersion(ctx, models.PromptVersion{AgentID: "agent-1", Text: "v1 prompt"}, false)
	require.NoError(t, err)
	assert.Equal(t, 1, v1.Version)
	assert.True(t, v1.IsActive, "first version activates implicitly")

	v2, err := s.CreatePromptVersion(ctx, models.PromptVersion{AgentID: "agent-1", Text: "v2 prompt"}, true)
	require.NoError(t, err)
	assert.Equal(t, 2, v2.Version)

	active, err := s.GetActivePromptVersion(ctx, "agent-1")
	require.NoError(t, err)
	assert.Equal(t, 2, active.Version)

	require.NoError(t, s.ActivatePromptVersion(ctx, "agent-1", 1))
	active, err = s.GetActivePromptVersion(ctx, "agent-1")
	require.NoError(t, err)
	assert.Equal(t, 1, active.Version)

	versions, err := s.ListPromptVersions(ctx, "agent-1")
	require.NoError(t, err)
	assert.Len(t, versions, 2)
}

func TestStore_DatasetCascadeDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateDataset(ctx, models.Dataset{ID: "ds-1", Seed: models.SeedScenario{Goal: "refund flow"}}))
	require.NoError(t, s.CreateTestCase(ctx, models.NewTestCase(models.TestCase{ID: "tc-1", DatasetID: "ds-1", Input: "hi"})))

	require.NoError(t, s.DeleteDataset(ctx, "ds-1"))

	_, err := s.GetTestCase(ctx, "tc-1")
	assert.ErrorIs(t, err, evalerrors.ErrNotFound)
}

func TestStore_JudgeConfigActivation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	jc1, err := s.CreateJudgeConfig(ctx, models.JudgeConfig{ID: "default", ScoringMode: models.ScoringModeBinary}, false)
	require.NoError(t, err)
	assert.True(t, jc1.IsActive)

	jc2, err := s.CreateJudgeConfig(ctx, models.JudgeConfig{ID: "default", ScoringMode: models.ScoringModeRubric}, true)
	require.NoError(t, err)
	assert.Equal(t, 2, jc2.Version)

	active, err := s.GetActiveJudgeConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, active.Version)
}

func TestStore_RunStatusFilter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	running := models.EvaluationRun{ID: "run-1", AgentID: "agent-1", DatasetID: "ds-1", Status: models.RunStatusRunning}
	completed := models.EvaluationRun{ID: "run-2", AgentID: "agent-1", DatasetID: "ds-1", Status: models.RunStatusCompleted}
	require.NoError(t, s.CreateRun(ctx, running))
	require.NoError(t, s.CreateRun(ctx, completed))

	pending, err := s.ListRunsByStatus(ctx, models.RunStatusRunning)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "run-1", pending[0].ID)

	_, err = s.LastCompletedRun(ctx, "agent-1", "ds-1", "run-2")
	assert.ErrorIs(t, err, evalerrors.ErrNotFound)

	last, err := s.LastCompletedRun(ctx, "agent-1", "ds-1", "run-3")
	require.NoError(t, err)
	assert.Equal(t, "run-2", last.ID)
}

func TestStore_ResetAllData(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateAgent(ctx, models.Agent{ID: "agent-1", Name: "Bot", Endpoint: "http://x"}))
	require.NoError(t, s.ResetAllData(ctx))

	list, err := s.ListAgents(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}
