package startup

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpapostolis/agentic-workflow-evals-sub000/pkg/models"
	"github.com/rpapostolis/agentic-workflow-evals-sub000/pkg/runs"
	"github.com/rpapostolis/agentic-workflow-evals-sub000/pkg/store"
)

func newTestReconciler(t *testing.T) (*Reconciler, *store.Store) {
	t.Helper()
	s, err := store.Open(context.Background(), store.Config{Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	c := runs.New(s, nil, nil)
	return New(s, c, nil, "http://agent.example.test"), s
}

func TestReconciler_RunSeedsDefaultsOnEmptyStore(t *testing.T) {
	r, s := newTestReconciler(t)
	ctx := context.Background()

	require.NoError(t, r.Run(ctx))

	agents, err := s.ListAgents(ctx)
	require.NoError(t, err)
	require.Len(t, agents, 1)
	assert.Equal(t, "default", agents[0].ID)

	active, err := s.GetActivePromptVersion(ctx, "default")
	require.NoError(t, err)
	assert.Equal(t, 1, active.Version)

	configs, err := s.ListJudgeConfigs(ctx)
	require.NoError(t, err)
	require.Len(t, configs, 1)
	assert.Equal(t, models.ScoringModeBinary, configs[0].ScoringMode)

	for _, key := range []models.SystemPromptKey{
		models.SystemPromptKeyProposalGenerationSystem,
		models.SystemPromptKeyProposalGenerationUser,
		models.SystemPromptKeyComparisonExplanation,
	} {
		p, err := s.GetSystemPrompt(ctx, key)
		require.NoError(t, err)
		assert.NotEmpty(t, p.Content)
	}
}

func TestReconciler_RunIsIdempotent(t *testing.T) {
	r, s := newTestReconciler(t)
	ctx := context.Background()

	require.NoError(t, r.Run(ctx))
	require.NoError(t, r.Run(ctx))

	agents, err := s.ListAgents(ctx)
	require.NoError(t, err)
	assert.Len(t, agents, 1)

	configs, err := s.ListJudgeConfigs(ctx)
	require.NoError(t, err)
	assert.Len(t, configs, 1)
}

func TestReconciler_UpgradesExistingBinaryConfigToRubric(t *testing.T) {
	r, s := newTestReconciler(t)
	ctx := context.Background()

	_, err := s.CreateJudgeConfig(ctx, models.JudgeConfig{
		ID: defaultJudgeConfigID, ScoringMode: models.ScoringModeBinary,
		SystemPrompt: "pre-existing", UserPromptTemplateSingle: "x", UserPromptTemplateBatched: "y",
	}, true)
	require.NoError(t, err)

	require.NoError(t, r.Run(ctx))

	configs, err := s.ListJudgeConfigs(ctx)
	require.NoError(t, err)
	require.Len(t, configs, 2)

	active, err := s.GetActiveJudgeConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.ScoringModeRubric, active.ScoringMode)
	require.NotEmpty(t, active.Criteria)
	assert.Equal(t, staleCriterionName, active.Criteria[0].Name)
}

func TestReconciler_RenamesStaleCriterionOnce(t *testing.T) {
	r, s := newTestReconciler(t)
	ctx := context.Background()

	_, err := s.CreateJudgeConfig(ctx, models.JudgeConfig{
		ID: defaultJudgeConfigID, ScoringMode: models.ScoringModeBinary,
		SystemPrompt: "x", UserPromptTemplateSingle: "x", UserPromptTemplateBatched: "y",
	}, true)
	require.NoError(t, err)
	require.NoError(t, r.Run(ctx))

	require.NoError(t, r.Run(ctx))

	active, err := s.GetActiveJudgeConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.ScoringModeRubric, active.ScoringMode)
	assert.Equal(t, renamedCriterionName, active.Criteria[0].Name)

	configs, err := s.ListJudgeConfigs(ctx)
	require.NoError(t, err)
	assert.Len(t, configs, 3)
}

func TestReconciler_ResetToDefaultsReseedsAfterWipe(t *testing.T) {
	r, s := newTestReconciler(t)
	ctx := context.Background()
	require.NoError(t, r.Run(ctx))

	require.NoError(t, r.ResetToDefaults(ctx))

	agents, err := s.ListAgents(ctx)
	require.NoError(t, err)
	assert.Len(t, agents, 1)
}
