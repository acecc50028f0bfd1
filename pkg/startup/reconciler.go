// Package startup implements StartupReconciler (§4.7): idempotent
// first-boot seeding of a default agent, default judge configs (including
// a one-way binary→rubric upgrade path and a stale-criterion rename), the
// engine's built-in prompt templates, and the orphaned-run sweep.
package startup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rpapostolis/agentic-workflow-evals-sub000/pkg/models"
	"github.com/rpapostolis/agentic-workflow-evals-sub000/pkg/runs"
	"github.com/rpapostolis/agentic-workflow-evals-sub000/pkg/store"
)

// defaultJudgeConfigID is the well-known id the seeded judge configs share;
// later versions of this id form the binary→rubric upgrade chain.
const defaultJudgeConfigID = "default"

// staleCriterionName is a rubric criterion the engine once shipped under a
// narrower name; ensureDefaultJudgeConfigs renames it forward one time.
const staleCriterionName = "Tool Selection Precision"
const renamedCriterionName = "Tool Call Accuracy"

// Reconciler runs once at process start.
type Reconciler struct {
	store                *store.Store
	coordinator          *runs.Coordinator
	logger               *slog.Logger
	defaultAgentEndpoint string
}

// New builds a Reconciler. defaultAgentEndpoint seeds the default agent's
// endpoint when the store has no agents yet.
func New(s *store.Store, coordinator *runs.Coordinator, logger *slog.Logger, defaultAgentEndpoint string) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{store: s, coordinator: coordinator, logger: logger, defaultAgentEndpoint: defaultAgentEndpoint}
}

// Run performs every startup reconciliation step in order (§4.7).
func (r *Reconciler) Run(ctx context.Context) error {
	if err := r.ensureDefaultAgent(ctx); err != nil {
		return fmt.Errorf("ensure default agent: %w", err)
	}
	if err := r.ensureDefaultJudgeConfigs(ctx); err != nil {
		return fmt.Errorf("ensure default judge configs: %w", err)
	}
	if err := r.ensureDefaultSystemPrompts(ctx); err != nil {
		return fmt.Errorf("ensure default system prompts: %w", err)
	}
	swept, err := r.coordinator.SweepOrphans(ctx)
	if err != nil {
		return fmt.Errorf("sweep orphaned runs: %w", err)
	}
	if swept > 0 {
		r.logger.Info("cancelled orphaned runs on startup", "count", swept)
	}
	return nil
}

// ensureDefaultAgent seeds one agent with an initial active prompt version
// if the store has none at all (§4.7 "Ensure at least one agent exists").
func (r *Reconciler) ensureDefaultAgent(ctx context.Context) error {
	agents, err := r.store.ListAgents(ctx)
	if err != nil {
		return err
	}
	if len(agents) > 0 {
		return nil
	}

	now := time.Now()
	agent := models.Agent{
		ID:        "default",
		Name:      "Default Agent",
		Endpoint:  r.defaultAgentEndpoint,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.store.CreateAgent(ctx, agent); err != nil {
		return fmt.Errorf("create default agent: %w", err)
	}
	_, err = r.store.CreatePromptVersion(ctx, models.PromptVersion{
		AgentID:   agent.ID,
		Text:      "You are a helpful assistant. Use the tools available to you to complete the user's request accurately.",
		Notes:     "seeded default prompt",
		CreatedAt: now,
	}, true)
	if err != nil {
		return fmt.Errorf("seed default prompt version: %w", err)
	}
	r.logger.Info("seeded default agent", "agent_id", agent.ID)
	return nil
}

// ensureDefaultJudgeConfigs seeds a binary judge config if none exists,
// upgrades it to a rubric version the first time it sees only a binary
// version, and renames a stale rubric criterion forward exactly once
// (§4.7). Each step is idempotent: it only fires when its precondition is
// still unmet, so repeated restarts after the upgrade has already run are
// no-ops.
func (r *Reconciler) ensureDefaultJudgeConfigs(ctx context.Context) error {
	versions, err := r.store.ListJudgeConfigs(ctx)
	if err != nil {
		return err
	}

	if len(versions) == 0 {
		_, err := r.store.CreateJudgeConfig(ctx, models.JudgeConfig{
			ID:                        defaultJudgeConfigID,
			ScoringMode:               models.ScoringModeBinary,
			SystemPrompt:              defaultJudgeSystemPrompt,
			UserPromptTemplateSingle:  defaultJudgeUserTemplateSingle,
			UserPromptTemplateBatched: defaultJudgeUserTemplateBatched,
			Notes:                     "seeded default (binary)",
			CreatedAt:                 time.Now(),
		}, true)
		if err != nil {
			return fmt.Errorf("seed binary default judge config: %w", err)
		}
		r.logger.Info("seeded default judge config", "judge_config_id", defaultJudgeConfigID, "scoring_mode", models.ScoringModeBinary)
		return nil
	}

	hasRubric := false
	var latestRubric models.JudgeConfig
	for _, v := range versions {
		if v.ID != defaultJudgeConfigID {
			continue
		}
		if v.ScoringMode == models.ScoringModeRubric {
			hasRubric = true
			if v.Version > latestRubric.Version {
				latestRubric = v
			}
		}
	}

	if !hasRubric {
		_, err := r.store.CreateJudgeConfig(ctx, models.JudgeConfig{
			ID:                        defaultJudgeConfigID,
			ScoringMode:               models.ScoringModeRubric,
			Criteria:                  defaultRubricCriteria(staleCriterionName),
			SystemPrompt:              defaultJudgeSystemPrompt,
			UserPromptTemplateSingle:  defaultJudgeUserTemplateSingle,
			UserPromptTemplateBatched: defaultJudgeUserTemplateBatched,
			Notes:                     "upgraded default to rubric scoring",
			CreatedAt:                 time.Now(),
		}, true)
		if err != nil {
			return fmt.Errorf("upgrade default judge config to rubric: %w", err)
		}
		r.logger.Info("upgraded default judge config to rubric scoring", "judge_config_id", defaultJudgeConfigID)
		return nil
	}

	if hasCriterion(latestRubric.Criteria, staleCriterionName) {
		_, err := r.store.CreateJudgeConfig(ctx, models.JudgeConfig{
			ID:                        defaultJudgeConfigID,
			ScoringMode:               models.ScoringModeRubric,
			Criteria:                  defaultRubricCriteria(renamedCriterionName),
			SystemPrompt:              improvedJudgeSystemPrompt,
			UserPromptTemplateSingle:  defaultJudgeUserTemplateSingle,
			UserPromptTemplateBatched: defaultJudgeUserTemplateBatched,
			Notes:                     fmt.Sprintf("renamed %q to %q", staleCriterionName, renamedCriterionName),
			CreatedAt:                 time.Now(),
		}, true)
		if err != nil {
			return fmt.Errorf("rename stale rubric criterion: %w", err)
		}
		r.logger.Info("renamed stale rubric criterion", "from", staleCriterionName, "to", renamedCriterionName)
	}
	return nil
}

func hasCriterion(criteria []models.RubricCriterion, name string) bool {
	for _, c := range criteria {
		if c.Name == name {
			return true
		}
	}
	return false
}

func defaultRubricCriteria(toolCriterionName string) []models.RubricCriterion {
	return []models.RubricCriterion{
		{
			Name: toolCriterionName,
			Levels: []models.RubricLevel{
				{Level: 1, Descriptor: "Called the wrong tool or none at all"},
				{Level: 3, Descriptor: "Called a reasonable tool with a minor argument mistake"},
				{Level: 5, Descriptor: "Called the correct tool with correct arguments"},
			},
		},
		{
			Name: "Response Helpfulness",
			Levels: []models.RubricLevel{
				{Level: 1, Descriptor: "Response is irrelevant or incorrect"},
				{Level: 3, Descriptor: "Response is partially helpful but incomplete"},
				{Level: 5, Descriptor: "Response fully and accurately addresses the request"},
			},
		},
	}
}

// ensureDefaultSystemPrompts seeds the engine's built-in prompt templates
// without overwriting any operator edit (§4.7).
func (r *Reconciler) ensureDefaultSystemPrompts(ctx context.Context) error {
	defaults := []models.SystemPrompt{
		{Key: models.SystemPromptKeyProposalGenerationSystem, Name: "Proposal generation (system)", Content: defaultProposalSystemPrompt, UpdatedAt: time.Now()},
		{Key: models.SystemPromptKeyProposalGenerationUser, Name: "Proposal generation (user)", Content: defaultProposalUserTemplate, UpdatedAt: time.Now()},
		{Key: models.SystemPromptKeyComparisonExplanation, Name: "Run comparison explanation", Content: defaultComparisonExplanationPrompt, UpdatedAt: time.Now()},
	}
	for _, p := range defaults {
		if err := r.store.EnsureSystemPromptDefault(ctx, p); err != nil {
			return fmt.Errorf("seed system prompt %s: %w", p.Key, err)
		}
	}
	return nil
}

// ResetToDefaults is exposed for the admin seed-demo/reset flow: it wipes
// all data then runs the full reconciliation again, useful for demos and
// local development (SPEC_FULL §B.7 admin surface).
func (r *Reconciler) ResetToDefaults(ctx context.Context) error {
	if err := r.store.ResetAllData(ctx); err != nil {
		return fmt.Errorf("reset data: %w", err)
	}
	return r.Run(ctx)
}
